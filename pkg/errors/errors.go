package errors

import (
	"errors"
	"fmt"
	"net/http"
)

// Error is a domain error carrying the HTTP status it is reported with.
type Error struct {
	Code    string `json:"code"`
	Message string `json:"message"`
	Status  int    `json:"status"`
	Err     error  `json:"-"`
}

// Error implements the error interface.
func (e *Error) Error() string {
	if e == nil {
		return "<nil>"
	}
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	}
	return e.Message
}

// Unwrap returns the wrapped error.
func (e *Error) Unwrap() error {
	if e == nil {
		return nil
	}
	return e.Err
}

// Is matches any *Error with the same code, so clones and wrapped copies of a
// predefined error satisfy errors.Is against the original.
func (e *Error) Is(target error) bool {
	var t *Error
	if e == nil || !errors.As(target, &t) || t == nil {
		return false
	}
	return e.Code == t.Code
}

// New defines an error kind.
func New(code string, status int, message string) *Error {
	return &Error{Code: code, Status: status, Message: message}
}

// Wrap reports err as the given kind. An empty message keeps the kind's message.
func Wrap(err error, kind *Error, message string) *Error {
	if kind == nil {
		kind = ErrInternal
	}
	if message == "" {
		message = kind.Message
	}
	return &Error{Code: kind.Code, Status: kind.Status, Message: message, Err: err}
}

var (
	ErrNotFound     = New("NOT_FOUND", http.StatusNotFound, "resource not found")
	ErrForbidden    = New("FORBIDDEN", http.StatusForbidden, "forbidden")
	ErrUnauthorized = New("UNAUTHORIZED", http.StatusUnauthorized, "unauthorized")
	ErrConflict     = New("CONFLICT", http.StatusConflict, "conflict")
	ErrValidation   = New("VALIDATION_ERROR", http.StatusBadRequest, "validation failed")
	ErrInternal     = New("INTERNAL_ERROR", http.StatusInternalServerError, "internal server error")
	ErrUpstream     = New("UPSTREAM_ERROR", http.StatusBadGateway, "upstream service failed")
	ErrCacheMiss    = New("CACHE_MISS", http.StatusNotFound, "cache miss")

	// editing sessions
	ErrSessionNotFound = New("SESSION_NOT_FOUND", http.StatusNotFound, "editing session not found")
	ErrNoChanges       = New("NO_CHANGES", http.StatusPreconditionFailed, "selection has no unsaved changes")
	ErrSaveInFlight    = New("SAVE_IN_FLIGHT", http.StatusConflict, "a save is already in progress")
)

// FromStatus maps a status returned by an upstream service to the kind reported to
// our own callers. Server-side failures upstream become ErrUpstream.
func FromStatus(status int) *Error {
	switch status {
	case http.StatusNotFound:
		return ErrNotFound
	case http.StatusUnauthorized:
		return ErrUnauthorized
	case http.StatusForbidden:
		return ErrForbidden
	case http.StatusConflict:
		return ErrConflict
	case http.StatusBadRequest, http.StatusUnprocessableEntity:
		return ErrValidation
	default:
		return ErrUpstream
	}
}

// FromError normalises any error into an *Error.
func FromError(err error) *Error {
	if err == nil {
		return nil
	}
	var e *Error
	if errors.As(err, &e) {
		return e
	}
	return Wrap(err, ErrInternal, "")
}

// Clone returns a copy of kind, optionally with a different message.
func Clone(kind *Error, message string) *Error {
	if kind == nil {
		return nil
	}
	clone := *kind
	if message != "" {
		clone.Message = message
	}
	return &clone
}
