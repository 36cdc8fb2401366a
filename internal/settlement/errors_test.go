package settlement

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestErrorMatching(t *testing.T) {
	err := newError(CodeNotFound, "match not found", nil)
	assert.ErrorIs(t, err, ErrNotFound)
	assert.NotErrorIs(t, err, ErrNotParticipant)

	wrapped := fmt.Errorf("confirm: %w", err)
	assert.Equal(t, CodeNotFound, CodeOf(wrapped))
	assert.Equal(t, CodeInternal, CodeOf(errors.New("boom")))

	cause := errors.New("db closed")
	ierr := internal("failed to load match", cause)
	assert.ErrorIs(t, ierr, cause)
	assert.ErrorIs(t, ierr, ErrInternal)
	assert.Contains(t, ierr.Error(), "db closed")
}
