package apperr

import (
	"errors"
	"fmt"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestCodeOf(t *testing.T) {
	assert.Equal(t, ErrCodeNotFound, CodeOf(NotFound("request", "42")))
	assert.Equal(t, ErrCodeConflict, CodeOf(Conflict("lost the race")))
	assert.Equal(t, ErrCodeValidation, CodeOf(InvalidInput("amount", "must be positive")))
	assert.Equal(t, ErrCodeUnauthorized, CodeOf(Unauthorized("nope")))

	// Unclassified errors default to internal.
	assert.Equal(t, ErrCodeInternal, CodeOf(errors.New("pool exhausted")))

	// Wrapped codes survive fmt wrapping.
	wrapped := fmt.Errorf("while deciding: %w", Conflict("lost the race"))
	assert.Equal(t, ErrCodeConflict, CodeOf(wrapped))
}

func TestWrapPreservesCause(t *testing.T) {
	cause := errors.New("connection refused")
	err := Wrap(cause, ErrCodeInternal, "query failed")

	assert.ErrorIs(t, err, cause)
	assert.Contains(t, err.Error(), "query failed")
	assert.Contains(t, err.Error(), "connection refused")
	assert.Equal(t, "query failed", MessageOf(err))
}

func TestHTTPStatus(t *testing.T) {
	tests := []struct {
		err    error
		status int
	}{
		{NotFound("request", "42"), http.StatusNotFound},
		{Unauthorized("nope"), http.StatusForbidden},
		{New(ErrCodeInvalidTransition, "release from submitted"), http.StatusConflict},
		{Conflict("lost the race"), http.StatusConflict},
		{InvalidInput("amount", "must be positive"), http.StatusUnprocessableEntity},
		{errors.New("pool exhausted"), http.StatusInternalServerError},
	}

	for _, tt := range tests {
		assert.Equal(t, tt.status, HTTPStatus(tt.err), "%v", tt.err)
	}
}

func TestMessageOfFallsBackToError(t *testing.T) {
	plain := errors.New("something broke")
	assert.Equal(t, "something broke", MessageOf(plain))
}
