package common

import (
	"fmt"

	"github.com/pkg/errors"
)

// Kind is the closed taxonomy of OT/server error kinds. Concrete Go
// errors carry one of these so callers across process boundaries (RPC
// dispatch) can map to a stable wire vocabulary without inspecting
// message text.
type Kind string

const (
	KindBadValue            Kind = "badValue"
	KindBadUse               Kind = "badUse"
	KindBadData              Kind = "badData"
	KindTimedOut             Kind = "timedOut"
	KindRevisionNotAvailable Kind = "revisionNotAvailable"
	KindBadId                Kind = "badId"
	KindConflict             Kind = "conflict"
)

// Error is the concrete error type used throughout the OT layer and its
// callers. The cause (if any) is preserved via github.com/pkg/errors so
// internal logs keep a stack trace; only Kind and Message ever cross an
// RPC boundary (see wireErrorFrom in internal/apiserver/dispatch.go).
type Error struct {
	Kind    Kind
	Message string
	cause   error
}

func (e *Error) Error() string {
	if e.cause != nil {
		return fmt.Sprintf("%s: %s: %v", e.Kind, e.Message, e.cause)
	}
	return fmt.Sprintf("%s: %s", e.Kind, e.Message)
}

func (e *Error) Unwrap() error { return e.cause }

// Cause satisfies github.com/pkg/errors' Causer interface.
func (e *Error) Cause() error { return e.cause }

// New constructs a bare Error of the given kind.
func New(kind Kind, format string, args ...interface{}) *Error {
	return &Error{Kind: kind, Message: fmt.Sprintf(format, args...)}
}

// Wrap attaches kind and context to an underlying cause, preserving a
// stack trace via pkg/errors for internal logging.
func Wrap(kind Kind, cause error, format string, args ...interface{}) *Error {
	return &Error{
		Kind:    kind,
		Message: fmt.Sprintf(format, args...),
		cause:   errors.WithStack(cause),
	}
}

// Is reports whether err is an *Error of the given kind.
func Is(err error, kind Kind) bool {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind == kind
	}
	return false
}

func BadValue(format string, args ...interface{}) *Error {
	return New(KindBadValue, format, args...)
}

func BadUse(format string, args ...interface{}) *Error {
	return New(KindBadUse, format, args...)
}

func BadId(format string, args ...interface{}) *Error {
	return New(KindBadId, format, args...)
}

func RevisionNotAvailable(rev RevisionNumber) *Error {
	return New(KindRevisionNotAvailable, "revision %d is not available", rev)
}

func TimedOut(format string, args ...interface{}) *Error {
	return New(KindTimedOut, format, args...)
}

func Conflict(format string, args ...interface{}) *Error {
	return New(KindConflict, format, args...)
}
