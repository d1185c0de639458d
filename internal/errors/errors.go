// Package errors defines typed errors with categories for user-friendly reporting.
// It provides a structured approach to error handling with machine-readable error kinds
// and human-friendly messages, so callers can react to a category (a busy session,
// a missing confirmation) without matching on message text.
//
// The package supports wrapping underlying errors while maintaining error kind information.
package errors

import (
	stderrors "errors"
	"fmt"
)

// Kind is a machine-readable error category.
type Kind string

const (
	// EmptyQuery indicates a blank statement was submitted.
	EmptyQuery Kind = "empty_query"
	// SessionBusy indicates an execution is already outstanding for the session.
	SessionBusy Kind = "session_busy"
	// NoPendingConfirmation indicates confirm was requested with nothing to confirm.
	NoPendingConfirmation Kind = "no_pending_confirmation"
	// UnknownSession indicates the referenced session does not exist.
	UnknownSession Kind = "unknown_session"
	// ServiceFailure indicates the Query Service could not be reached or failed.
	ServiceFailure Kind = "service_failure"
	// ConfigInvalid indicates a configuration value failed validation.
	ConfigInvalid Kind = "config_invalid"
	// UnsupportedDSN indicates a connection string for an unknown driver.
	UnsupportedDSN Kind = "unsupported_dsn"
)

// E wraps an error with kind and human-friendly message.
type E struct {
	Kind    Kind
	Message string
	Err     error
}

func (e *E) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Kind, e.Message, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Kind, e.Message)
}

func (e *E) Unwrap() error { return e.Err }

func Wrap(kind Kind, msg string, err error) *E { return &E{Kind: kind, Message: msg, Err: err} }
func New(kind Kind, msg string) *E             { return &E{Kind: kind, Message: msg} }

// Is reports whether any error in err's chain is an *E of the given kind.
func Is(err error, kind Kind) bool {
	var e *E
	if stderrors.As(err, &e) {
		return e.Kind == kind
	}
	return false
}
