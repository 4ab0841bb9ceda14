package domain

import "errors"

// Sentinel errors for the application.
var (
	ErrNotFound     = errors.New("resource not found")
	ErrUnauthorized = errors.New("unauthorized access")
	ErrForbidden    = errors.New("forbidden")
	ErrConflict     = errors.New("resource already exists")
	ErrInternal     = errors.New("internal server error")
	ErrInvalidInput = errors.New("invalid input")
)

// Error is a client-visible error carrying an HTTP-like status. Every socket
// event handler normalizes its failures into one of these at the event
// boundary; anything else is reported as a generic 500.
type Error struct {
	Status  int      `json:"status"`
	Message string   `json:"message"`
	Errs    []string `json:"errors,omitempty"`
}

func (e *Error) Error() string { return e.Message }

// Unwrap maps the status back onto the matching sentinel so errors.Is keeps
// working across the service boundary.
func (e *Error) Unwrap() error {
	switch e.Status {
	case 400:
		return ErrInvalidInput
	case 401:
		return ErrUnauthorized
	case 403:
		return ErrForbidden
	case 404:
		return ErrNotFound
	case 409:
		return ErrConflict
	default:
		return ErrInternal
	}
}

func BadRequest(msg string) *Error   { return &Error{Status: 400, Message: msg} }
func Unauthorized(msg string) *Error { return &Error{Status: 401, Message: msg} }
func Forbidden(msg string) *Error    { return &Error{Status: 403, Message: msg} }
func NotFound(msg string) *Error     { return &Error{Status: 404, Message: msg} }
func Conflict(msg string) *Error     { return &Error{Status: 409, Message: msg} }
