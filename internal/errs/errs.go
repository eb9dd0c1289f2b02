// Package errs defines the error kinds reported by the topology core.
//
// Three kinds reuse the github.com/juju/errors constants so callers can
// test them with errors.Is against either package:
//
//	InvalidArgument   errors.NotValid
//	DuplicateIdentity errors.AlreadyExists
//	NotFound          errors.NotFound
//
// InvariantViolation and Exhausted have no juju equivalent and are
// declared here as juju ConstErrors.
package errs

import (
	stderrors "errors"
	"fmt"

	"github.com/juju/errors"
)

var (
	InvalidArgument   error = errors.NotValid
	DuplicateIdentity error = errors.AlreadyExists
	NotFound          error = errors.NotFound
)

const (
	// InvariantViolation reports a request that is well formed but would
	// break a structural rule of the graph.
	InvariantViolation = errors.ConstError("invariant violation")
	// Exhausted reports that an allocator has nothing left to hand out.
	Exhausted = errors.ConstError("resource exhausted")
)

// Invalidf returns an error satisfying errors.Is(err, InvalidArgument).
func Invalidf(format string, args ...any) error {
	return errors.NotValidf(format, args...)
}

// Duplicatef returns an error satisfying errors.Is(err, DuplicateIdentity).
func Duplicatef(format string, args ...any) error {
	return errors.AlreadyExistsf(format, args...)
}

// NotFoundf returns an error satisfying errors.Is(err, NotFound).
func NotFoundf(format string, args ...any) error {
	return errors.NotFoundf(format, args...)
}

// Invariantf returns an error satisfying errors.Is(err, InvariantViolation).
func Invariantf(format string, args ...any) error {
	return fmt.Errorf("%s: %w", fmt.Sprintf(format, args...), InvariantViolation)
}

// Exhaustedf returns an error satisfying errors.Is(err, Exhausted).
func Exhaustedf(format string, args ...any) error {
	return fmt.Errorf("%s: %w", fmt.Sprintf(format, args...), Exhausted)
}

// Is reports whether err belongs to kind.
func Is(err, kind error) bool {
	return stderrors.Is(err, kind)
}
