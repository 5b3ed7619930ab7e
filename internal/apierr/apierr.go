package apierr

import (
	"encoding/json"
	"errors"
	"net/http"
)

// Kinds. Match with errors.Is.
var (
	ErrNotFound     = errors.New("not found")
	ErrValidation   = errors.New("validation error")
	ErrPersistence  = errors.New("persistence error")
	ErrUnauthorized = errors.New("unauthorized")
	ErrForbidden    = errors.New("forbidden")
	ErrConflict     = errors.New("conflict")
)

type Error struct {
	Kind error
	Msg  string
	Err  error
}

func (e *Error) Error() string {
	if e == nil {
		return ""
	}
	if e.Msg != "" {
		return e.Msg
	}
	if e.Err != nil {
		return e.Err.Error()
	}
	if e.Kind != nil {
		return e.Kind.Error()
	}
	return "api error"
}

func (e *Error) Unwrap() error { return e.Err }

func (e *Error) Is(target error) bool {
	return e.Kind != nil && target == e.Kind
}

func NotFound(msg string) *Error     { return &Error{Kind: ErrNotFound, Msg: msg} }
func Validation(msg string) *Error   { return &Error{Kind: ErrValidation, Msg: msg} }
func Unauthorized(msg string) *Error { return &Error{Kind: ErrUnauthorized, Msg: msg} }
func Forbidden(msg string) *Error    { return &Error{Kind: ErrForbidden, Msg: msg} }
func Conflict(msg string) *Error     { return &Error{Kind: ErrConflict, Msg: msg} }

// Persistence wraps a storage failure. The cause stays reachable through
// errors.Unwrap but is never shown to clients.
func Persistence(err error) *Error {
	return &Error{Kind: ErrPersistence, Msg: "internal error", Err: err}
}

func Status(err error) int {
	switch {
	case err == nil:
		return http.StatusOK
	case errors.Is(err, ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, ErrValidation):
		return http.StatusBadRequest
	case errors.Is(err, ErrUnauthorized):
		return http.StatusUnauthorized
	case errors.Is(err, ErrForbidden):
		return http.StatusForbidden
	case errors.Is(err, ErrConflict):
		return http.StatusConflict
	default:
		return http.StatusInternalServerError
	}
}

// Message is the client-facing text for err.
func Message(err error) string {
	var apiErr *Error
	if errors.As(err, &apiErr) {
		return apiErr.Error()
	}
	return "internal error"
}

func Write(w http.ResponseWriter, err error) {
	WriteJSON(w, Status(err), map[string]string{"error": Message(err)})
}

func WriteJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
