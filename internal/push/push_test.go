package push

import (
	"io"
	"net/http"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

func response(status int) *http.Response {
	return &http.Response{StatusCode: status, Body: io.NopCloser(strings.NewReader("body"))}
}

func TestClassify(t *testing.T) {
	assert.NoError(t, classify(response(http.StatusCreated)))
	assert.NoError(t, classify(response(http.StatusOK)))

	assert.ErrorIs(t, classify(response(http.StatusGone)), ErrGone)
	assert.ErrorIs(t, classify(response(http.StatusNotFound)), ErrGone)

	err := classify(response(http.StatusTooManyRequests))
	assert.Error(t, err)
	assert.NotErrorIs(t, err, ErrGone)

	err = classify(response(http.StatusInternalServerError))
	assert.Error(t, err)
	assert.NotErrorIs(t, err, ErrGone)
}
