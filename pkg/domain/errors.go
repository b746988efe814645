package domain

import (
	"errors"
	"fmt"
)

// NotFoundKind names the class of record a NotFoundError refers to.
type NotFoundKind string

// Record kinds reported by NotFoundError.
const (
	NotFoundProduct       NotFoundKind = "product"
	NotFoundCheckpoint    NotFoundKind = "checkpoint"
	NotFoundTransfer      NotFoundKind = "transfer"
	NotFoundCertification NotFoundKind = "certification"
	NotFoundAuthorization NotFoundKind = "authorization"
	NotFoundCounter       NotFoundKind = "counter"
)

// NotFoundError is returned when a required record does not exist.
type NotFoundError struct {
	Kind NotFoundKind
	Key  string
}

func (e NotFoundError) Error() string {
	return fmt.Sprintf("%s %s not found", e.Kind, e.Key)
}

// UnauthorizedError is returned when the caller lacks the authority an
// operation requires.
type UnauthorizedError struct {
	Caller Identity
	Reason string
}

func (e UnauthorizedError) Error() string {
	return fmt.Sprintf("caller %s unauthorized: %s", e.Caller, e.Reason)
}

// InvalidStateError is returned when an operation's state precondition fails,
// e.g. a recalled product or a transfer that already left Pending.
type InvalidStateError struct {
	Reason string
}

func (e InvalidStateError) Error() string {
	return fmt.Sprintf("invalid state: %s", e.Reason)
}

// IsNotFound reports whether err wraps a NotFoundError.
func IsNotFound(err error) bool {
	var nf NotFoundError
	return errors.As(err, &nf)
}

// IsUnauthorized reports whether err wraps an UnauthorizedError.
func IsUnauthorized(err error) bool {
	var ua UnauthorizedError
	return errors.As(err, &ua)
}

// IsInvalidState reports whether err wraps an InvalidStateError.
func IsInvalidState(err error) bool {
	var is InvalidStateError
	return errors.As(err, &is)
}
