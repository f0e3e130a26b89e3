// ABOUTME: Error taxonomy for conversation turns
// ABOUTME: Every collaborator failure is wrapped into a TurnError before user-visible handling
package core

import (
	"errors"
	"fmt"
)

// ErrorKind decides how a failed turn is surfaced to the user
type ErrorKind int

const (
	// KindValidation is a bad intake answer; the same question is asked again
	KindValidation ErrorKind = iota + 1
	// KindConflict is an unresolved active-run conflict; the user may retry
	KindConflict
	// KindDependency is a storage or remote API failure
	KindDependency
	// KindFatal is anything unexpected
	KindFatal
)

func (k ErrorKind) String() string {
	switch k {
	case KindValidation:
		return "validation"
	case KindConflict:
		return "conflict"
	case KindDependency:
		return "dependency"
	case KindFatal:
		return "fatal"
	default:
		return fmt.Sprintf("ErrorKind(%d)", int(k))
	}
}

// TurnError wraps a failure with the operation that produced it and its kind
type TurnError struct {
	Kind ErrorKind
	Op   string
	Err  error
}

func (e *TurnError) Error() string {
	return fmt.Sprintf("%s (%s): %v", e.Op, e.Kind, e.Err)
}

func (e *TurnError) Unwrap() error {
	return e.Err
}

// ErrNoActiveRun is reported when the backend claims a run is active but none can be listed
var ErrNoActiveRun = errors.New("active run reported but none found")

// ErrTransient marks a turn that should simply be retried by the user
var ErrTransient = errors.New("transient failure")

func dependency(op string, err error) error {
	return &TurnError{Kind: KindDependency, Op: op, Err: err}
}

func conflict(op string, err error) error {
	return &TurnError{Kind: KindConflict, Op: op, Err: fmt.Errorf("%w: %w", ErrTransient, err)}
}

// KindOf returns the kind of a turn failure. Unclassified errors are fatal.
func KindOf(err error) ErrorKind {
	if err == nil {
		return 0
	}
	var te *TurnError
	if errors.As(err, &te) {
		return te.Kind
	}
	return KindFatal
}
