package apperr

import (
	"errors"
	"net/http"
)

var (
	ErrBadRequest         = errors.New("bad request")
	ErrUnauthorized       = errors.New("unauthorized")
	ErrForbidden          = errors.New("forbidden")
	ErrNotFound           = errors.New("not found")
	ErrConflict           = errors.New("conflict")
	ErrRateLimited        = errors.New("rate limited")
	ErrServiceUnavailable = errors.New("service unavailable")
)

var (
	ErrUserNotFound       = New("user not found", ErrNotFound)
	ErrBookNotFound       = New("book not found", ErrNotFound)
	ErrReviewNotFound     = New("review not found", ErrNotFound)
	ErrCartNotFound       = New("cart not found", ErrNotFound)
	ErrOrderNotFound      = New("order not found", ErrNotFound)
	ErrSessionNotFound    = New("chat session not found", ErrNotFound)
	ErrAdminNotFound      = New("admin not found", ErrNotFound)
	ErrEmailTaken         = New("email already registered", ErrConflict)
	ErrInvalidCredentials = New("invalid email or password", ErrUnauthorized)
	ErrInvalidToken       = New("invalid or expired token", ErrUnauthorized)
	ErrNotOwner           = New("not allowed to modify this resource", ErrForbidden)
	ErrSessionClosed      = New("chat session has ended", ErrConflict)
	ErrEmptyOrder         = New("order has no books", ErrBadRequest)
	ErrInvalidID          = New("invalid id", ErrBadRequest)
)

// Error is a client-safe message tied to one of the generic classes above.
type Error struct {
	msg   string
	class error
}

func New(msg string, class error) *Error {
	return &Error{msg: msg, class: class}
}

func (e *Error) Error() string { return e.msg }

func (e *Error) Unwrap() error { return e.class }

// Validation carries a list of human readable rule violations.
type Validation struct {
	Message  string
	Problems []string
}

func NewValidation(msg string, problems ...string) *Validation {
	return &Validation{Message: msg, Problems: problems}
}

func (v *Validation) Error() string { return v.Message }

func (v *Validation) Unwrap() error { return ErrBadRequest }

// Status maps err to an HTTP status code. Anything unclassified is a 500.
func Status(err error) int {
	switch {
	case err == nil:
		return http.StatusOK
	case errors.Is(err, ErrBadRequest):
		return http.StatusBadRequest
	case errors.Is(err, ErrUnauthorized):
		return http.StatusUnauthorized
	case errors.Is(err, ErrForbidden):
		return http.StatusForbidden
	case errors.Is(err, ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, ErrConflict):
		return http.StatusConflict
	case errors.Is(err, ErrRateLimited):
		return http.StatusTooManyRequests
	case errors.Is(err, ErrServiceUnavailable):
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}

// Message returns the text safe to show a client.
func Message(err error) string {
	if Status(err) == http.StatusInternalServerError {
		return "internal server error"
	}
	return err.Error()
}
