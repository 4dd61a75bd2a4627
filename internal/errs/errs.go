// Package errs classifies the failures the engine recovers from locally.
package errs

import (
	"errors"
	"fmt"
)

// Kind names one failure class. Kinds compare with errors.Is.
type Kind string

func (k Kind) Error() string { return string(k) }

const (
	ListingFailed        Kind = "listing failed"
	AuthFailed           Kind = "authorization failed"
	ArchiveCreateFailed  Kind = "archive create failed"
	ArchiveExtractFailed Kind = "archive extract failed"
	TransferFailed       Kind = "transfer failed"
	IdentityPatchFailed  Kind = "identity patch failed"
	DestinationExists    Kind = "destination exists"
	InvalidInput         Kind = "invalid input"
)

// Error ties a Kind to the operation and the underlying cause.
type Error struct {
	Kind Kind
	Op   string
	Err  error
}

func (e *Error) Error() string {
	switch {
	case e.Op != "" && e.Err != nil:
		return fmt.Sprintf("%s: %s: %v", e.Op, e.Kind, e.Err)
	case e.Op != "":
		return fmt.Sprintf("%s: %s", e.Op, e.Kind)
	case e.Err != nil:
		return fmt.Sprintf("%s: %v", e.Kind, e.Err)
	default:
		return string(e.Kind)
	}
}

func (e *Error) Unwrap() error { return e.Err }

// Is matches both the Kind and, through Unwrap, the cause.
func (e *Error) Is(target error) bool {
	k, ok := target.(Kind)
	return ok && k == e.Kind
}

// New builds an *Error. A nil cause is allowed.
func New(kind Kind, op string, err error) error {
	return &Error{Kind: kind, Op: op, Err: err}
}

// Wrap classifies err unless it is nil or already carries a Kind.
func Wrap(kind Kind, op string, err error) error {
	if err == nil {
		return nil
	}
	var typed *Error
	if errors.As(err, &typed) {
		return err
	}
	return &Error{Kind: kind, Op: op, Err: err}
}

// KindOf returns the Kind carried by err, or "" when it has none.
func KindOf(err error) Kind {
	var typed *Error
	if errors.As(err, &typed) {
		return typed.Kind
	}
	var kind Kind
	if errors.As(err, &kind) {
		return kind
	}
	return ""
}
