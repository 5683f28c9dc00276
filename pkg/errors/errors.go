package errors

import (
	"errors"
	"fmt"
	"net/http"
)

// Standard sentinel errors, one per error kind surfaced by the storefront.
var (
	ErrNotFound          = errors.New("resource not found")
	ErrInvalidInput      = errors.New("invalid input")
	ErrUnauthorized      = errors.New("unauthorized")
	ErrForbidden         = errors.New("forbidden")
	ErrInternal          = errors.New("internal error")
	ErrConflict          = errors.New("conflict")
	ErrServiceUnavail    = errors.New("service unavailable")
	ErrService           = errors.New("service error")
	ErrIllegalTransition = errors.New("illegal transition")
)

// AppError represents a structured application error with HTTP status mapping.
type AppError struct {
	Code    string `json:"code"`
	Message string `json:"message"`
	Status  int    `json:"-"`
	Err     error  `json:"-"`
}

func (e *AppError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Code, e.Message, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

func (e *AppError) Unwrap() error {
	return e.Err
}

// NotFound creates a 404 error.
func NotFound(resource, id string) *AppError {
	return &AppError{
		Code:    "NOT_FOUND",
		Message: fmt.Sprintf("%s with id %s not found", resource, id),
		Status:  http.StatusNotFound,
		Err:     ErrNotFound,
	}
}

// InvalidInput creates a 400 error. Used for every locally rejected request
// (empty cart, missing product reference, malformed quantity); no network
// call is made when one of these is returned.
func InvalidInput(message string) *AppError {
	return &AppError{
		Code:    "INVALID_INPUT",
		Message: message,
		Status:  http.StatusBadRequest,
		Err:     ErrInvalidInput,
	}
}

// Unauthorized creates a 401 error. Callers redirect to login.
func Unauthorized(message string) *AppError {
	return &AppError{
		Code:    "UNAUTHORIZED",
		Message: message,
		Status:  http.StatusUnauthorized,
		Err:     ErrUnauthorized,
	}
}

// Forbidden creates a 403 error. Callers show a permission message and stay put.
func Forbidden(message string) *AppError {
	return &AppError{
		Code:    "FORBIDDEN",
		Message: message,
		Status:  http.StatusForbidden,
		Err:     ErrForbidden,
	}
}

// Conflict creates a 409 error.
func Conflict(message string) *AppError {
	return &AppError{
		Code:    "CONFLICT",
		Message: message,
		Status:  http.StatusConflict,
		Err:     ErrConflict,
	}
}

// IllegalTransition creates a 409 error for an order action attempted outside
// its legal source status.
func IllegalTransition(action, status string) *AppError {
	return &AppError{
		Code:    "ILLEGAL_TRANSITION",
		Message: fmt.Sprintf("cannot %s an order in %q status", action, status),
		Status:  http.StatusConflict,
		Err:     ErrIllegalTransition,
	}
}

// RejectedTransition creates an IllegalTransition error from a remote
// service's refusal, when the order's current status is not known locally.
func RejectedTransition(message string) *AppError {
	return &AppError{
		Code:    "ILLEGAL_TRANSITION",
		Message: message,
		Status:  http.StatusConflict,
		Err:     ErrIllegalTransition,
	}
}

// ServiceError creates an error for a non-2xx response from a remote service
// that has no more specific kind. It renders as 502 on the storefront API.
func ServiceError(message string) *AppError {
	return &AppError{
		Code:    "SERVICE_ERROR",
		Message: message,
		Status:  http.StatusBadGateway,
		Err:     ErrService,
	}
}

// ServiceUnavailable creates a 503 error.
func ServiceUnavailable(message string) *AppError {
	return &AppError{
		Code:    "SERVICE_UNAVAILABLE",
		Message: message,
		Status:  http.StatusServiceUnavailable,
		Err:     ErrServiceUnavail,
	}
}

// Internal creates a 500 error.
func Internal(err error) *AppError {
	return &AppError{
		Code:    "INTERNAL_ERROR",
		Message: "an internal error occurred",
		Status:  http.StatusInternalServerError,
		Err:     err,
	}
}

// Wrap wraps an error with additional context.
func Wrap(err error, message string) error {
	return fmt.Errorf("%s: %w", message, err)
}

// IsUnauthorized reports whether err is of the Unauthorized kind.
func IsUnauthorized(err error) bool { return errors.Is(err, ErrUnauthorized) }

// IsForbidden reports whether err is of the Forbidden kind.
func IsForbidden(err error) bool { return errors.Is(err, ErrForbidden) }

// IsInvalidInput reports whether err is a local validation failure.
func IsInvalidInput(err error) bool { return errors.Is(err, ErrInvalidInput) }

// IsIllegalTransition reports whether err is an illegal order transition.
func IsIllegalTransition(err error) bool { return errors.Is(err, ErrIllegalTransition) }

// HTTPStatus returns the HTTP status code for the given error.
func HTTPStatus(err error) int {
	var appErr *AppError
	if errors.As(err, &appErr) && appErr.Status != 0 {
		return appErr.Status
	}

	switch {
	case errors.Is(err, ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, ErrConflict), errors.Is(err, ErrIllegalTransition):
		return http.StatusConflict
	case errors.Is(err, ErrInvalidInput):
		return http.StatusBadRequest
	case errors.Is(err, ErrUnauthorized):
		return http.StatusUnauthorized
	case errors.Is(err, ErrForbidden):
		return http.StatusForbidden
	case errors.Is(err, ErrServiceUnavail):
		return http.StatusServiceUnavailable
	case errors.Is(err, ErrService):
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}
