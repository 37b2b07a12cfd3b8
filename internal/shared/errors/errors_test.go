package errors

import (
	"errors"
	"fmt"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestGetStatusCode(t *testing.T) {
	tests := []struct {
		name     string
		err      error
		expected int
	}{
		{"validation", Validation("", "bad email"), http.StatusBadRequest},
		{"not found", NotFound("PROJECT_NOT_FOUND", "project"), http.StatusNotFound},
		{"unauthorized", Unauthorized(""), http.StatusUnauthorized},
		{"forbidden", Forbidden("", ""), http.StatusForbidden},
		{"conflict", Conflict("PENDING_INVITATION_EXISTS", "exists"), http.StatusConflict},
		{"state invalid", StateInvalid("INVITATION_EXPIRED", "expired"), http.StatusBadRequest},
		{"internal", Internal("boom", nil), http.StatusInternalServerError},
		{"wrapped app error", fmt.Errorf("outer: %w", Forbidden("", "")), http.StatusForbidden},
		{"bare class sentinel", fmt.Errorf("x: %w", ErrConflict), http.StatusConflict},
		{"unknown", errors.New("mystery"), http.StatusInternalServerError},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, GetStatusCode(tt.err))
		})
	}
}

func TestAppError_Is(t *testing.T) {
	expired := StateInvalid("INVITATION_EXPIRED", "invitation has expired")

	t.Run("matches same code", func(t *testing.T) {
		other := StateInvalid("INVITATION_EXPIRED", "different message")
		assert.True(t, errors.Is(other, expired))
	})

	t.Run("matches class sentinel", func(t *testing.T) {
		assert.True(t, errors.Is(expired, ErrStateInvalid))
		assert.False(t, errors.Is(expired, ErrNotFound))
	})

	t.Run("different code does not match", func(t *testing.T) {
		assert.False(t, errors.Is(StateInvalid("INVITATION_CANCELLED", "x"), expired))
	})
}

func TestAppError_ToResponse(t *testing.T) {
	resp := Conflict("ALREADY_INVESTOR", "user is already an investor").ToResponse()
	assert.Equal(t, "ALREADY_INVESTOR", resp.Error.Code)
	assert.Equal(t, "user is already an investor", resp.Error.Message)
}
