// Package apperr carries the engine's error kinds across package boundaries
// so the HTTP layer can map them without string matching.
package apperr

import (
	"errors"
	"fmt"
	"net/http"
)

type Kind string

const (
	KindNotFound      Kind = "not_found"
	KindUnauthorized  Kind = "unauthorized"
	KindUnavailable   Kind = "unavailable"
	KindQuotaExceeded Kind = "quota_exceeded"
	KindInvalid       Kind = "invalid"
)

// Sentinels for errors.Is.
var (
	ErrNotFound      = &Error{Kind: KindNotFound}
	ErrUnauthorized  = &Error{Kind: KindUnauthorized}
	ErrUnavailable   = &Error{Kind: KindUnavailable}
	ErrQuotaExceeded = &Error{Kind: KindQuotaExceeded}
	ErrInvalid       = &Error{Kind: KindInvalid}
)

type Error struct {
	Kind Kind
	Msg  string
	Err  error
}

func (e *Error) Error() string {
	if e == nil {
		return ""
	}
	switch {
	case e.Msg != "" && e.Err != nil:
		return e.Msg + ": " + e.Err.Error()
	case e.Msg != "":
		return e.Msg
	case e.Err != nil:
		return e.Err.Error()
	default:
		return string(e.Kind)
	}
}

func (e *Error) Unwrap() error { return e.Err }

// Is matches any *Error of the same kind, so wrapped errors compare equal
// to the package sentinels.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok {
		return false
	}
	return e.Kind == t.Kind
}

func New(kind Kind, format string, args ...any) *Error {
	return &Error{Kind: kind, Msg: fmt.Sprintf(format, args...)}
}

func Wrap(kind Kind, err error, msg string) *Error {
	return &Error{Kind: kind, Msg: msg, Err: err}
}

func NotFound(format string, args ...any) *Error { return New(KindNotFound, format, args...) }
func Unauthorized(format string, args ...any) *Error {
	return New(KindUnauthorized, format, args...)
}
func Unavailable(format string, args ...any) *Error { return New(KindUnavailable, format, args...) }
func QuotaExceeded(format string, args ...any) *Error {
	return New(KindQuotaExceeded, format, args...)
}
func Invalid(format string, args ...any) *Error { return New(KindInvalid, format, args...) }

// KindOf returns the kind of the first *Error in err's chain, or "".
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return ""
}

// Status maps an error to the HTTP status the boundary should answer with.
func Status(err error) int {
	switch KindOf(err) {
	case KindNotFound:
		return http.StatusNotFound
	case KindUnauthorized:
		return http.StatusUnauthorized
	case KindUnavailable:
		return http.StatusForbidden
	case KindQuotaExceeded:
		return http.StatusConflict
	case KindInvalid:
		return http.StatusBadRequest
	default:
		return http.StatusInternalServerError
	}
}
