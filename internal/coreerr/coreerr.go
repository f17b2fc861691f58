// Package coreerr defines the closed set of error kinds the core returns,
// per spec §7. Every component returns one of these rather than a bare
// error string, so the dispatcher can surface structured messages and
// remediation suggestions to the caller.
package coreerr

import (
	"errors"
	"fmt"
)

// Kind is a closed enumeration of the error kinds the core can return.
type Kind int

const (
	// KindValidation is a cross-argument or field-level input violation.
	KindValidation Kind = iota
	// KindNotFound is returned when a session, branch, preset, or file is missing.
	KindNotFound
	// KindConflict is a name or bookmark collision.
	KindConflict
	// KindIntegrityError means a store invariant was violated (dangling
	// parent, duplicate id). Fatal for the current command.
	KindIntegrityError
	// KindBusy is store or snapshot cache contention timeout.
	KindBusy
	// KindProviderError is a network failure or non-success provider response.
	KindProviderError
	// KindCancelled is cooperative cancellation.
	KindCancelled
	// KindBranchLocked is a mutation attempted on an archived/merged branch.
	KindBranchLocked
	// KindMissingVariable is a required template variable with no value.
	KindMissingVariable
	// KindUnknownVariable is a reference to an undeclared template variable.
	KindUnknownVariable
	// KindSnapshotCorrupt means a snapshot failed to load and was deleted.
	KindSnapshotCorrupt
	// KindNothingToRetry is retry_last called when the trailing message is
	// not an assistant message.
	KindNothingToRetry
	// KindInvalidTopology is a branch merge whose target is also a source.
	KindInvalidTopology
)

func (k Kind) String() string {
	switch k {
	case KindValidation:
		return "Validation"
	case KindNotFound:
		return "NotFound"
	case KindConflict:
		return "Conflict"
	case KindIntegrityError:
		return "IntegrityError"
	case KindBusy:
		return "Busy"
	case KindProviderError:
		return "ProviderError"
	case KindCancelled:
		return "Cancelled"
	case KindBranchLocked:
		return "BranchLocked"
	case KindMissingVariable:
		return "MissingVariable"
	case KindUnknownVariable:
		return "UnknownVariable"
	case KindSnapshotCorrupt:
		return "SnapshotCorrupt"
	case KindNothingToRetry:
		return "NothingToRetry"
	case KindInvalidTopology:
		return "InvalidTopology"
	default:
		return "Unknown"
	}
}

// ExitCode maps a Kind to the process exit code from spec §6.
func (k Kind) ExitCode() int {
	switch k {
	case KindValidation:
		return 4
	case KindNotFound, KindConflict, KindIntegrityError, KindBranchLocked,
		KindMissingVariable, KindUnknownVariable, KindNothingToRetry, KindInvalidTopology:
		return 1
	case KindBusy:
		return 5
	case KindProviderError:
		return 3
	case KindCancelled:
		return 0
	case KindSnapshotCorrupt:
		return 5
	default:
		return 1
	}
}

// Error is the structured error value every core component returns.
// It carries a primary message and a list of suggested remediations so
// the dispatcher can format them without re-deriving context.
type Error struct {
	Kind        Kind
	Message     string
	Suggestions []string
	Err         error
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

// Is allows errors.Is(err, coreerr.KindNotFound) style matching against a
// sentinel Error of the same Kind created with New.
func (e *Error) Is(target error) bool {
	var other *Error
	if errors.As(target, &other) {
		return e.Kind == other.Kind
	}
	return false
}

// New constructs an Error with the given kind, message, and suggestions.
func New(kind Kind, message string, suggestions ...string) *Error {
	return &Error{Kind: kind, Message: message, Suggestions: suggestions}
}

// Wrap constructs an Error that wraps an underlying cause.
func Wrap(kind Kind, message string, cause error, suggestions ...string) *Error {
	return &Error{Kind: kind, Message: message, Suggestions: suggestions, Err: cause}
}

// Of reports whether err (or something it wraps) is a *Error of the given Kind.
func Of(err error, kind Kind) bool {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind == kind
	}
	return false
}
