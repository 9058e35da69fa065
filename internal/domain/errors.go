package domain

import (
	"errors"
	"fmt"
)

// Sentinel errors shared across repositories and services.
var (
	ErrNotFound            = errors.New("not found")
	ErrDuplicateEmail      = errors.New("email already in use")
	ErrAlreadySubmitted    = errors.New("feedback already submitted")
	ErrNoSenderCredentials = errors.New("sender email settings not configured")
	ErrInvalidInput        = errors.New("invalid input")
)

// ValidationError reports bad input local to one participant or event setting.
// It never aborts a whole dispatch run.
type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("invalid %s: %s", e.Field, e.Reason)
}

// TransportError wraps a mail session failure (connect, auth, or delivery).
type TransportError struct {
	Err error
}

func (e *TransportError) Error() string {
	return fmt.Sprintf("mail transport: %v", e.Err)
}

func (e *TransportError) Unwrap() error { return e.Err }
