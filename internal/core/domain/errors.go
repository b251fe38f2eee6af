package domain

import (
	"errors"
	"fmt"
)

// ErrorKind is the closed set of expected failure categories returned by the
// identity and lifecycle core. Transport codes are derived from it at the edge.
type ErrorKind int

const (
	KindValidation ErrorKind = iota + 1
	KindConflict
	KindNotFound
	KindUnauthorized
	KindForbidden
	KindExpired
	KindRestoreFailed
)

var errorKindNames = map[ErrorKind]string{
	KindValidation:    "validation",
	KindConflict:      "conflict",
	KindNotFound:      "not_found",
	KindUnauthorized:  "unauthorized",
	KindForbidden:     "forbidden",
	KindExpired:       "expired",
	KindRestoreFailed: "restore_failed",
}

// String returns the wire name of the kind (e.g. "not_found").
func (k ErrorKind) String() string {
	if name, ok := errorKindNames[k]; ok {
		return name
	}
	return fmt.Sprintf("kind(%d)", int(k))
}

// Error is the typed failure carried by every expected business outcome.
// Message is always safe to show to an end user.
type Error struct {
	Kind       ErrorKind
	Message    string
	Constraint string // optional storage constraint that triggered a conflict
	Err        error
}

func (e *Error) Error() string {
	if e.Message == "" {
		return e.Kind.String()
	}
	return e.Message
}

func (e *Error) Unwrap() error { return e.Err }

// Is matches on kind only, so errors.Is(err, domain.ErrConflict) holds for
// any conflict regardless of its message.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok {
		return false
	}
	return t.Kind == e.Kind
}

var (
	ErrValidation    = &Error{Kind: KindValidation, Message: "invalid request"}
	ErrConflict      = &Error{Kind: KindConflict, Message: "resource already exists"}
	ErrNotFound      = &Error{Kind: KindNotFound, Message: "resource not found"}
	ErrUnauthorized  = &Error{Kind: KindUnauthorized, Message: "invalid email or password"}
	ErrForbidden     = &Error{Kind: KindForbidden, Message: "access forbidden"}
	ErrExpired       = &Error{Kind: KindExpired, Message: "token expired"}
	ErrRestoreFailed = &Error{Kind: KindRestoreFailed, Message: "restore failed"}
)

// Fail builds a new typed failure.
func Fail(kind ErrorKind, message string) *Error {
	return &Error{Kind: kind, Message: message}
}

// Conflict builds a conflict failure, optionally naming the violated constraint.
func Conflict(message, constraint string) *Error {
	return &Error{Kind: KindConflict, Message: message, Constraint: constraint}
}

// NotFound builds a not_found failure for the named resource.
func NotFound(resource string) *Error {
	return &Error{Kind: KindNotFound, Message: resource + " not found"}
}

// KindOf reports the kind of err when it is (or wraps) a *Error.
func KindOf(err error) (ErrorKind, bool) {
	var de *Error
	if errors.As(err, &de) {
		return de.Kind, true
	}
	return 0, false
}
