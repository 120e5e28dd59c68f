// Copyright 2025 Certen Protocol
//
// Shared error taxonomy for the off-chain execution channel core. Every
// package below session-level either returns a sentinel error (package
// errors.New, in the teacher's style) or wraps one in Error so a caller
// driving an ExecutionRequest can make a single recover/surface/fatal
// decision regardless of which component failed.

package corerr

import (
	"errors"
	"fmt"
)

// Kind tags an Error with the taxonomy surfaced to session callers.
type Kind string

const (
	InvalidRequest        Kind = "InvalidRequest"
	LockConflict          Kind = "LockConflict"
	CompileError          Kind = "CompileError"
	StateFetchError       Kind = "StateFetchError"
	VmError               Kind = "VmError"
	ResourceLimitExceeded Kind = "ResourceLimitExceeded"
	SyncError             Kind = "SyncError"
	FraudDetected         Kind = "FraudDetected"
	TimeoutError          Kind = "TimeoutError"
	InternalError         Kind = "InternalError"
)

// Recoverable reports whether this kind is expected to be handled locally
// by the component that produced it (retry, fall through to next cache
// tier, re-create session) rather than surfaced to the caller.
func (k Kind) Recoverable() bool {
	switch k {
	case StateFetchError, InternalError:
		return true
	default:
		return false
	}
}

// Error is a tagged error carrying the operation that failed and the
// underlying cause, implementing Unwrap so callers can still use
// errors.Is/errors.As against sentinel errors from the wrapped packages.
type Error struct {
	Kind Kind
	Op   string
	Err  error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Kind, e.Op, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Kind, e.Op)
}

func (e *Error) Unwrap() error { return e.Err }

// New builds a tagged Error with no wrapped cause.
func New(kind Kind, op, reason string) *Error {
	return &Error{Kind: kind, Op: op, Err: errors.New(reason)}
}

// Wrap tags err with kind and op, preserving it as the unwrap target.
func Wrap(kind Kind, op string, err error) *Error {
	if err == nil {
		return nil
	}
	return &Error{Kind: kind, Op: op, Err: err}
}

// Is reports whether err is (or wraps) an Error of the given kind.
func Is(err error, kind Kind) bool {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind == kind
	}
	return false
}

// KindOf extracts the Kind from err, defaulting to InternalError when err
// isn't a tagged Error — every corerr.Error the core produces is expected
// to be explicitly kinded, so an untagged error reaching this point is
// itself treated as an internal bug.
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return InternalError
}
