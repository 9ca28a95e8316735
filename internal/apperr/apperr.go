// Package apperr defines the error kinds shared by all features. Features
// declare their own sentinel errors from these kinds so handlers can map any
// of them to an HTTP status with errors.Is.
package apperr

import "errors"

// Kind classifies an application error
type Kind string

const (
	KindNotFound      Kind = "NOT_FOUND"
	KindForbidden     Kind = "FORBIDDEN"
	KindLocked        Kind = "LOCKED_RESOURCE"
	KindValidation    Kind = "VALIDATION_FAILED"
	KindConflict      Kind = "CONFLICT"
	KindExportFailure Kind = "EXPORT_FAILURE"
)

// Kind sentinels; errors.Is(err, ErrNotFound) is true for every NotFound error.
var (
	ErrNotFound      = &Error{Kind: KindNotFound, Message: "not found"}
	ErrForbidden     = &Error{Kind: KindForbidden, Message: "forbidden"}
	ErrLocked        = &Error{Kind: KindLocked, Message: "locked"}
	ErrValidation    = &Error{Kind: KindValidation, Message: "validation failed"}
	ErrConflict      = &Error{Kind: KindConflict, Message: "conflict"}
	ErrExportFailure = &Error{Kind: KindExportFailure, Message: "export failed"}
)

// Error carries a kind and a user-facing message
type Error struct {
	Kind    Kind
	Message string
}

func (e *Error) Error() string { return e.Message }

// Is matches any *Error of the same kind.
func (e *Error) Is(target error) bool {
	var t *Error
	if !errors.As(target, &t) {
		return false
	}
	return t.Kind == e.Kind
}

func NotFound(msg string) *Error   { return &Error{Kind: KindNotFound, Message: msg} }
func Forbidden(msg string) *Error  { return &Error{Kind: KindForbidden, Message: msg} }
func Locked(msg string) *Error     { return &Error{Kind: KindLocked, Message: msg} }
func Validation(msg string) *Error { return &Error{Kind: KindValidation, Message: msg} }
func Conflict(msg string) *Error   { return &Error{Kind: KindConflict, Message: msg} }

// ExportFailure wraps the underlying rendering error.
func ExportFailure(msg string) *Error { return &Error{Kind: KindExportFailure, Message: msg} }

// KindOf returns the kind of the first *Error in err's chain, or "" if none.
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return ""
}

// Message returns the user-facing message of the first *Error in err's chain.
func Message(err error) string {
	var e *Error
	if errors.As(err, &e) {
		return e.Message
	}
	return ""
}
