package errors

import (
	stderrors "errors"
	"fmt"
	"net/http"
)

// ErrorCode represents a unique error code
type ErrorCode int

// AppError represents an application error
type AppError struct {
	Code    ErrorCode `json:"code"`
	Message string    `json:"message"`
	Err     error     `json:"-"`
}

func (e *AppError) Error() string {
	if e.Err != nil && e.Err.Error() != e.Message {
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	}
	return e.Message
}

func (e *AppError) Unwrap() error {
	return e.Err
}

// StatusCode maps the error code onto an HTTP status.
func (e *AppError) StatusCode() int {
	switch e.Code {
	case ErrNotFound:
		return http.StatusNotFound
	case ErrBadRequest, ErrValidation:
		return http.StatusBadRequest
	case ErrUnauthorized:
		return http.StatusUnauthorized
	case ErrForbidden:
		return http.StatusForbidden
	case ErrRemote, ErrPartialWrite:
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}

// Common error codes
const (
	ErrNotFound ErrorCode = iota + 1000
	ErrBadRequest
	ErrUnauthorized
	ErrForbidden
	ErrInternal
	// ErrValidation is a local check that failed before any remote call.
	ErrValidation
	// ErrRemote carries a write failure reported by the remote data service.
	ErrRemote
	// ErrPartialWrite means the first step of a multi-step write landed and a later one did not.
	ErrPartialWrite
	ErrConfig
)

// Error constructors
func NewNotFound(resource string, err error) *AppError {
	return &AppError{
		Code:    ErrNotFound,
		Message: fmt.Sprintf("%s not found", resource),
		Err:     err,
	}
}

func NewBadRequest(message string, err error) *AppError {
	return &AppError{
		Code:    ErrBadRequest,
		Message: message,
		Err:     err,
	}
}

func NewInternal(err error) *AppError {
	return &AppError{
		Code:    ErrInternal,
		Message: "internal server error",
		Err:     err,
	}
}

// Common errors
func NotFound(resource string, err error) *AppError {
	return NewNotFound(resource, err)
}

func BadRequest(message string, err error) *AppError {
	return NewBadRequest(message, err)
}

func Internal(err error) *AppError {
	return NewInternal(err)
}

// Validation reports the first violated rule of a draft.
func Validation(message string) *AppError {
	return &AppError{
		Code:    ErrValidation,
		Message: message,
	}
}

// Remote wraps a remote write failure, keeping its message verbatim.
func Remote(err error) *AppError {
	return &AppError{
		Code:    ErrRemote,
		Message: err.Error(),
		Err:     err,
	}
}

func PartialWrite(message string, err error) *AppError {
	return &AppError{
		Code:    ErrPartialWrite,
		Message: message,
		Err:     err,
	}
}

func Config(message string, err error) *AppError {
	return &AppError{
		Code:    ErrConfig,
		Message: message,
		Err:     err,
	}
}

// HasCode reports whether any AppError in err's chain carries code.
func HasCode(err error, code ErrorCode) bool {
	var appErr *AppError
	for err != nil {
		if !stderrors.As(err, &appErr) {
			return false
		}
		if appErr.Code == code {
			return true
		}
		err = appErr.Err
	}
	return false
}
