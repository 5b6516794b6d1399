package account

import (
	"errors"
	"fmt"
)

// Kind classifies a caller-facing failure.
type Kind string

const (
	KindPermissionDenied Kind = "permission-denied"
	KindInvalidArgument  Kind = "invalid-argument"
	KindInternal         Kind = "internal"
)

// Error is the structured failure returned by Service operations. Message is safe to
// show to callers; Err keeps the underlying cause for logs and errors.Is.
type Error struct {
	Kind    Kind
	Message string
	// Field names the offending payload field for invalid-argument errors.
	Field string
	Err   error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Kind, e.Message, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Kind, e.Message)
}

func (e *Error) Unwrap() error {
	return e.Err
}

// KindOf returns the kind carried by err, defaulting to internal.
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return KindInternal
}

var (
	// ErrProfileNotFound indicates the profile record does not exist.
	ErrProfileNotFound = errors.New("profile not found")
	// ErrReconciliationNotFound indicates the reconciliation record does not exist.
	ErrReconciliationNotFound = errors.New("reconciliation record not found")
)

func permissionDenied(message string) *Error {
	return &Error{Kind: KindPermissionDenied, Message: message}
}

func internal(message string, cause error) *Error {
	return &Error{Kind: KindInternal, Message: message, Err: cause}
}
