package errors

import (
	stderrors "errors"
	"net/http"
)

type ErrorType string

const (
	ErrorTypeNotFound     ErrorType = "NOT_FOUND"
	ErrorTypeValidation   ErrorType = "VALIDATION"
	ErrorTypeInternal     ErrorType = "INTERNAL"
	ErrorTypeUnauthorized ErrorType = "UNAUTHORIZED"
	ErrorTypeInvalidState ErrorType = "INVALID_STATE"
)

type Error struct {
	Type    ErrorType `json:"type"`
	Message string    `json:"message"`
	Code    int       `json:"code"`
	Details any       `json:"details,omitempty"`
}

func (e *Error) Error() string {
	return e.Message
}

// Is matches any *Error of the same Type, so callers can test
// errors.Is(err, errors.InvalidState("")).
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	return ok && t.Type == e.Type
}

func NotFound(message string) *Error {
	return &Error{
		Type:    ErrorTypeNotFound,
		Message: message,
		Code:    http.StatusNotFound,
	}
}

func ValidationError(message string, details any) *Error {
	return &Error{
		Type:    ErrorTypeValidation,
		Message: message,
		Code:    http.StatusBadRequest,
		Details: details,
	}
}

// InvalidState reports an operation attempted before its preconditions
// (an initialized session) were met.
func InvalidState(message string) *Error {
	return &Error{
		Type:    ErrorTypeInvalidState,
		Message: message,
		Code:    http.StatusConflict,
	}
}

func Internal(message string) *Error {
	return &Error{
		Type:    ErrorTypeInternal,
		Message: message,
		Code:    http.StatusInternalServerError,
	}
}

// IsType reports whether err wraps an *Error of type t.
func IsType(err error, t ErrorType) bool {
	var e *Error
	return stderrors.As(err, &e) && e.Type == t
}

// HTTPStatus maps err to a response code, defaulting to 500 for errors
// that are not *Error.
func HTTPStatus(err error) int {
	var e *Error
	if stderrors.As(err, &e) && e.Code != 0 {
		return e.Code
	}
	return http.StatusInternalServerError
}
