package apperrors

import (
	"errors"
	"net/http"
)

// AppError is an error that is safe to show to API clients.
type AppError struct {
	Code    int
	Message string
	Cause   error
}

func (e *AppError) Error() string {
	if e.Cause != nil {
		return e.Message + ": " + e.Cause.Error()
	}
	return e.Message
}

func (e *AppError) Unwrap() error {
	return e.Cause
}

// Is matches another AppError with the same code and message, so sentinels
// survive being re-created with a cause attached.
func (e *AppError) Is(target error) bool {
	t, ok := target.(*AppError)
	if !ok {
		return false
	}
	return e.Code == t.Code && e.Message == t.Message
}

// WithCause returns a copy of e carrying cause for server-side logging.
func (e *AppError) WithCause(cause error) *AppError {
	return &AppError{Code: e.Code, Message: e.Message, Cause: cause}
}

func WithCode(code int, message string) *AppError {
	return &AppError{Code: code, Message: message}
}

func Validation(message string) *AppError {
	return WithCode(http.StatusBadRequest, message)
}

func Unauthorized(message string) *AppError {
	return WithCode(http.StatusUnauthorized, message)
}

func NotFound(message string) *AppError {
	return WithCode(http.StatusNotFound, message)
}

func Conflict(message string) *AppError {
	return WithCode(http.StatusConflict, message)
}

func Internal(cause error) *AppError {
	return &AppError{Code: http.StatusInternalServerError, Message: "internal server error", Cause: cause}
}

// As extracts the AppError from err's chain.
func As(err error) (*AppError, bool) {
	var appErr *AppError
	if errors.As(err, &appErr) {
		return appErr, true
	}
	return nil, false
}
