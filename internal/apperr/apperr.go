package apperr

import (
	"errors"
	"net/http"
)

var (
	ErrValidation         = errors.New("validation")          // 400
	ErrInvalidCredentials = errors.New("invalid credentials") // 401
	ErrUnauthorized       = errors.New("unauthorized")        // 401
	ErrForbidden          = errors.New("forbidden")           // 403
	ErrNotFound           = errors.New("not found")           // 404
	ErrConflict           = errors.New("conflict")            // 400, see Status
	ErrInternal           = errors.New("internal")            // 500
	ErrUnavailable        = errors.New("unavailable")         // 503
)

// Error separates what the client is told (Kind, Message) from what went
// wrong internally (Cause). Cause is logged and never reaches a production
// response.
type Error struct {
	Kind    error
	Message string
	Cause   error
}

func (e *Error) Error() string {
	if e.Cause == nil {
		return e.Message
	}
	return e.Message + ": " + e.Cause.Error()
}

func (e *Error) Unwrap() error { return e.Cause }

func (e *Error) Is(target error) bool { return target == e.Kind }

func New(kind error, msg string) *Error {
	return &Error{Kind: kind, Message: msg}
}

func Wrap(kind error, msg string, cause error) *Error {
	return &Error{Kind: kind, Message: msg, Cause: cause}
}

func Validation(msg string) *Error { return New(ErrValidation, msg) }

func Internal(cause error) *Error {
	return Wrap(ErrInternal, http.StatusText(http.StatusInternalServerError), cause)
}

// Collapse replaces any cause with a single Unauthorized error carrying msg.
// The original error stays reachable through Unwrap for logging.
func Collapse(msg string, cause error) *Error {
	return Wrap(ErrUnauthorized, msg, cause)
}

func As(err error) (*Error, bool) {
	var e *Error
	if errors.As(err, &e) {
		return e, true
	}
	return nil, false
}

// Status maps the error kind to an HTTP status. A duplicate email is
// reported as a bad request, like any other rejected input.
func Status(err error) int {
	e, ok := As(err)
	if !ok {
		return http.StatusInternalServerError
	}
	switch e.Kind {
	case ErrValidation, ErrConflict:
		return http.StatusBadRequest
	case ErrInvalidCredentials, ErrUnauthorized:
		return http.StatusUnauthorized
	case ErrForbidden:
		return http.StatusForbidden
	case ErrNotFound:
		return http.StatusNotFound
	case ErrUnavailable:
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}
