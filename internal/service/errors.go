package service

import (
	"errors"
	"fmt"

	"ecom-service/internal/store"
)

// Kind classifies service errors so the HTTP layer can pick a status code
type Kind int

const (
	KindInternal Kind = iota
	KindNotFound
	KindInvalid
	KindConflict
	KindForbidden
	KindUnauthorized
	KindTooManyRequests
)

// Error is a business-rule failure with a message safe to show clients
type Error struct {
	Kind    Kind
	Message string
	Err     error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return e.Message + ": " + e.Err.Error()
	}
	return e.Message
}

func (e *Error) Unwrap() error {
	return e.Err
}

func newError(kind Kind, format string, args ...interface{}) *Error {
	return &Error{Kind: kind, Message: fmt.Sprintf(format, args...)}
}

func NotFound(format string, args ...interface{}) *Error {
	return newError(KindNotFound, format, args...)
}

func Invalid(format string, args ...interface{}) *Error {
	return newError(KindInvalid, format, args...)
}

func Conflict(format string, args ...interface{}) *Error {
	return newError(KindConflict, format, args...)
}

func Forbidden(format string, args ...interface{}) *Error {
	return newError(KindForbidden, format, args...)
}

func Unauthorized(format string, args ...interface{}) *Error {
	return newError(KindUnauthorized, format, args...)
}

func TooManyRequests(format string, args ...interface{}) *Error {
	return newError(KindTooManyRequests, format, args...)
}

// AsError extracts a service error from err's chain
func AsError(err error) (*Error, bool) {
	var se *Error
	if errors.As(err, &se) {
		return se, true
	}
	return nil, false
}

// IsKind reports whether err is a service error of kind k
func IsKind(err error, k Kind) bool {
	se, ok := AsError(err)
	return ok && se.Kind == k
}

// storeErr maps store sentinels onto service errors. what names the
// entity for the message ("product", "order", ...).
func storeErr(err error, what string) error {
	switch {
	case err == nil:
		return nil
	case errors.Is(err, store.ErrNotFound):
		return &Error{Kind: KindNotFound, Message: what + " not found", Err: err}
	case errors.Is(err, store.ErrDuplicate):
		return &Error{Kind: KindConflict, Message: what + " already exists", Err: err}
	case errors.Is(err, store.ErrReferenced):
		return &Error{Kind: KindConflict, Message: what + " is referenced by other records", Err: err}
	case errors.Is(err, store.ErrConstraint):
		return &Error{Kind: KindInvalid, Message: what + " violates a data constraint", Err: err}
	}
	return err
}
