package apperrors

import (
	"errors"
	"fmt"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestAppError_IsMatchesSentinelWithCause(t *testing.T) {
	sentinel := Conflict("alias already in use")
	wrapped := fmt.Errorf("create: %w", sentinel.WithCause(errors.New("23505")))

	assert.ErrorIs(t, wrapped, sentinel)
	assert.NotErrorIs(t, wrapped, Conflict("something else"))

	appErr, ok := As(wrapped)
	assert.True(t, ok)
	assert.Equal(t, http.StatusConflict, appErr.Code)
	assert.Equal(t, "alias already in use: 23505", appErr.Error())
}

func TestInternal_HidesCauseFromMessage(t *testing.T) {
	err := Internal(errors.New("connection refused"))

	assert.Equal(t, http.StatusInternalServerError, err.Code)
	assert.Equal(t, "internal server error", err.Message)
	assert.ErrorContains(t, err, "connection refused")
}
