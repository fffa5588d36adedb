// Package bterrors defines the error taxonomy shared across the backreplay
// engine so callers can errors.As against a specific kind instead of
// string-matching messages.
package bterrors

import (
	"errors"
	"fmt"
	"strings"
)

// Kind classifies a backreplay error.
type Kind string

const (
	// Config marks an unrecognized mode/interval string or unsupported
	// backend. Fatal at setup.
	Config Kind = "config"
	// DataSource marks a backend I/O or schema failure. Fatal to the run.
	DataSource Kind = "data_source"
	// Numeric marks round_to(_, 0) or an unparseable decimal. Fatal to
	// the operation.
	Numeric Kind = "numeric"
	// Cancelled marks a cooperative cancellation. Terminates the run,
	// leaves state consistent.
	Cancelled Kind = "cancelled"
	// Contract marks a precondition violated by the caller. Surfaced as
	// a log message and early return, not an exception.
	Contract Kind = "contract"
)

// Error is a typed error carrying a Kind alongside its message.
type Error struct {
	Kind Kind
	msg  string
	err  error
}

func (e *Error) Error() string {
	if e.err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Kind, e.msg, e.err)
	}
	return fmt.Sprintf("%s: %s", e.Kind, e.msg)
}

func (e *Error) Unwrap() error { return e.err }

// Is reports whether target is an *Error with the same Kind, so
// errors.Is(err, bterrors.Numeric) style checks are not available directly —
// use errors.As and inspect Kind, or KindOf below.
func (e *Error) Is(target error) bool {
	var other *Error
	if errors.As(target, &other) {
		return other.Kind == e.Kind
	}
	return false
}

// New builds an *Error of the given kind with a static message.
func New(kind Kind, msg string) error {
	return &Error{Kind: kind, msg: msg}
}

// Newf builds an *Error of the given kind with a formatted message.
func Newf(kind Kind, format string, args ...interface{}) error {
	return &Error{Kind: kind, msg: fmt.Sprintf(format, args...)}
}

// Wrap builds an *Error of the given kind, preserving err for Unwrap/errors.As.
func Wrap(kind Kind, msg string, err error) error {
	if err == nil {
		return nil
	}
	return &Error{Kind: kind, msg: msg, err: err}
}

// KindOf returns the Kind of err if it (or something it wraps) is an *Error,
// and false otherwise.
func KindOf(err error) (Kind, bool) {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind, true
	}
	return "", false
}

// ValidationError aggregates multiple Config-kind problems so a caller can
// fix every configuration issue in one pass, mirroring how a single
// malformed .env often carries more than one mistake.
type ValidationError struct {
	Errors []string
}

func (ve *ValidationError) Error() string {
	return fmt.Sprintf("%d configuration error(s):\n  - %s",
		len(ve.Errors), strings.Join(ve.Errors, "\n  - "))
}

// Add appends a formatted issue to the aggregate.
func (ve *ValidationError) Add(format string, args ...interface{}) {
	ve.Errors = append(ve.Errors, fmt.Sprintf(format, args...))
}

// OrNil returns ve as an error if it carries any issues, nil otherwise.
func (ve *ValidationError) OrNil() error {
	if ve == nil || len(ve.Errors) == 0 {
		return nil
	}
	return ve
}
