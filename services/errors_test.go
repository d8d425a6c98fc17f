package services

import (
	"errors"
	"fmt"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/upb/emr-gateway/apperr"
	"github.com/upb/emr-gateway/repositories"
)

func TestDomainErrorsNormalize(t *testing.T) {
	tests := []struct {
		name       string
		err        error
		wantStatus int
		wantMsg    string
	}{
		{"invalid credentials", ErrInvalidCredentials, http.StatusUnauthorized, "Invalid credentials"},
		{"user not found", ErrUserNotFound, http.StatusNotFound, "User not found"},
		{"username taken", ErrUsernameTaken, http.StatusConflict, "Username already exists"},
		{"invalid user id", ErrInvalidUserID, http.StatusBadRequest, "Invalid user id"},
		{"unknown action", ErrUnknownAction, http.StatusBadRequest, "Unknown action"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			status, env := apperr.Normalize(tt.err)
			assert.Equal(t, tt.wantStatus, status)
			assert.Equal(t, tt.wantMsg, env.Message)
		})
	}
}

func TestDomainErrorsAreDistinct(t *testing.T) {
	assert.False(t, errors.Is(ErrInvalidUserID, ErrUnknownAction))
	assert.False(t, errors.Is(ErrUserNotFound, ErrUsernameTaken))
	assert.True(t, errors.Is(ErrUserNotFound, ErrUserNotFound))
}

func TestTranslateRepoError(t *testing.T) {
	t.Run("nil stays nil", func(t *testing.T) {
		assert.NoError(t, translateRepoError(nil, ErrUserNotFound, nil, "get user"))
	})

	t.Run("not found", func(t *testing.T) {
		err := translateRepoError(fmt.Errorf("query: %w", repositories.ErrNotFound), ErrUserNotFound, nil, "get user")
		assert.ErrorIs(t, err, ErrUserNotFound)
	})

	t.Run("duplicate", func(t *testing.T) {
		err := translateRepoError(repositories.ErrDuplicate, nil, ErrUsernameTaken, "create user")
		assert.ErrorIs(t, err, ErrUsernameTaken)
	})

	t.Run("duplicate without mapping is internal", func(t *testing.T) {
		err := translateRepoError(repositories.ErrDuplicate, ErrUserNotFound, nil, "get user")
		assert.Equal(t, apperr.KindUnhandled, apperr.KindOf(err))
		assert.ErrorIs(t, err, repositories.ErrDuplicate)
	})

	t.Run("driver error is internal", func(t *testing.T) {
		cause := errors.New("connection reset")
		err := translateRepoError(cause, ErrUserNotFound, nil, "get user")

		assert.Equal(t, apperr.KindUnhandled, apperr.KindOf(err))
		assert.ErrorIs(t, err, cause)
		assert.Contains(t, err.Error(), "get user")

		status, env := apperr.Normalize(err)
		assert.Equal(t, http.StatusInternalServerError, status)
		assert.Equal(t, apperr.MsgGeneric, env.Message)
	})
}
