package handlers

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"github.com/charmbracelet/log"
	"github.com/mauv0809/pingpong-ladder/internal/settlement"
)

// ContextKey is a custom type to avoid key collisions in context.
type ContextKey string

const (
	DryRunKey ContextKey = "dryRun"
	UserIDKey ContextKey = "userID"
)

// UserHeader carries the caller identity set by the upstream gateway.
const UserHeader = "X-User-ID"

// IsDryRunFromContext is a helper to safely retrieve the dry_run flag from the request context.
func IsDryRunFromContext(r *http.Request) bool {
	dryRun, ok := r.Context().Value(DryRunKey).(bool)
	return ok && dryRun
}

// UserIDFromContext returns the authenticated member id, or "".
func UserIDFromContext(r *http.Request) string {
	userID, _ := r.Context().Value(UserIDKey).(string)
	return userID
}

// ErrorResponse is the body of every refused request.
type ErrorResponse struct {
	Code    settlement.Code `json:"code"`
	Message string          `json:"message"`
}

var statusByCode = map[settlement.Code]int{
	settlement.CodeInvalidInput:          http.StatusBadRequest,
	settlement.CodeSamePlayer:            http.StatusBadRequest,
	settlement.CodeQuotaExceeded:         http.StatusTooManyRequests,
	settlement.CodeNotFound:              http.StatusNotFound,
	settlement.CodeNotParticipant:        http.StatusForbidden,
	settlement.CodeAlreadyValidated:      http.StatusConflict,
	settlement.CodeAlreadyCanceled:       http.StatusConflict,
	settlement.CodeMatchAlreadyProcessed: http.StatusConflict,
	settlement.CodeInvalidKFactor:        http.StatusInternalServerError,
	settlement.CodeInconsistentMatch:     http.StatusUnprocessableEntity,
	settlement.CodeInternal:              http.StatusInternalServerError,
}

// StatusFor maps a reason code to its HTTP status.
func StatusFor(code settlement.Code) int {
	if status, ok := statusByCode[code]; ok {
		return status
	}
	return http.StatusInternalServerError
}

func respondJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(body); err != nil {
		log.Error("Failed to write response", "error", err)
	}
}

// respondError writes err as {code, message}. Wrapped causes are logged, never returned.
func respondError(w http.ResponseWriter, err error) {
	resp := ErrorResponse{Code: settlement.CodeInternal, Message: settlement.ErrInternal.Message}
	var coded *settlement.Error
	if errors.As(err, &coded) {
		resp = ErrorResponse{Code: coded.Code, Message: coded.Message}
	}
	status := StatusFor(resp.Code)
	if status >= http.StatusInternalServerError {
		log.Error("Request failed", "code", resp.Code, "error", err)
	} else {
		log.Debug("Request refused", "code", resp.Code, "error", err)
	}
	respondJSON(w, status, resp)
}

func badRequest(w http.ResponseWriter, message string) {
	respondJSON(w, http.StatusBadRequest, ErrorResponse{Code: settlement.CodeInvalidInput, Message: message})
}

func decodeBody(w http.ResponseWriter, r *http.Request, dst any) error {
	return json.NewDecoder(http.MaxBytesReader(w, r.Body, 1<<16)).Decode(dst)
}

// queryInt reads a positive integer query parameter, falling back on anything else.
func queryInt(r *http.Request, key string, fallback int) int {
	raw := r.URL.Query().Get(key)
	if raw == "" {
		return fallback
	}
	v, err := strconv.Atoi(raw)
	if err != nil || v <= 0 {
		log.Warn("Invalid query parameter, using default", "key", key, "value", raw, "default", fallback)
		return fallback
	}
	return v
}
