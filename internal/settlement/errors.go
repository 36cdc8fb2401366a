package settlement

import (
	"errors"
	"fmt"
)

// Code is the machine-readable reason a settlement operation was refused.
type Code string

const (
	CodeInvalidInput          Code = "invalid_input"
	CodeSamePlayer            Code = "same_player"
	CodeQuotaExceeded         Code = "quota_exceeded"
	CodeNotFound              Code = "not_found"
	CodeNotParticipant        Code = "not_participant"
	CodeAlreadyValidated      Code = "already_validated"
	CodeAlreadyCanceled       Code = "already_canceled"
	CodeMatchAlreadyProcessed Code = "match_already_processed"
	CodeInvalidKFactor        Code = "invalid_k_factor"
	CodeInconsistentMatch     Code = "inconsistent_match"
	CodeInternal              Code = "internal"
)

// Error is a reason-coded failure. Two Errors match under errors.Is when
// their codes are equal, so callers compare against the sentinels below.
type Error struct {
	Code    Code
	Message string
	Err     error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Code, e.Message, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

func (e *Error) Unwrap() error {
	return e.Err
}

func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	return ok && t.Code == e.Code
}

var (
	ErrInvalidInput          = &Error{Code: CodeInvalidInput, Message: "invalid input"}
	ErrSamePlayer            = &Error{Code: CodeSamePlayer, Message: "a member cannot play against themselves"}
	ErrQuotaExceeded         = &Error{Code: CodeQuotaExceeded, Message: "daily match limit reached for this pair"}
	ErrNotFound              = &Error{Code: CodeNotFound, Message: "not found"}
	ErrNotParticipant        = &Error{Code: CodeNotParticipant, Message: "only participants can act on this match"}
	ErrAlreadyValidated      = &Error{Code: CodeAlreadyValidated, Message: "match already validated"}
	ErrAlreadyCanceled       = &Error{Code: CodeAlreadyCanceled, Message: "match was canceled"}
	ErrMatchAlreadyProcessed = &Error{Code: CodeMatchAlreadyProcessed, Message: "match was processed concurrently"}
	ErrInvalidKFactor        = &Error{Code: CodeInvalidKFactor, Message: "configured rating factor is out of range"}
	ErrInconsistentMatch     = &Error{Code: CodeInconsistentMatch, Message: "declared winner does not match the score"}
	ErrInternal              = &Error{Code: CodeInternal, Message: "internal error"}
)

func newError(code Code, message string, err error) *Error {
	return &Error{Code: code, Message: message, Err: err}
}

func internal(message string, err error) *Error {
	return newError(CodeInternal, message, err)
}

// CodeOf returns the reason code carried by err, or CodeInternal.
func CodeOf(err error) Code {
	var e *Error
	if errors.As(err, &e) {
		return e.Code
	}
	return CodeInternal
}
