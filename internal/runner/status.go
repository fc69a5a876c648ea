// SPDX-License-Identifier: MPL-2.0

package runner

import (
	"errors"
	"fmt"
)

const (
	// StatusClean is a fresh runner with no segment.
	StatusClean Status = iota
	// StatusConfigured has a live board segment.
	StatusConfigured
	// StatusBuilt has a compiled sketch ready to start.
	StatusBuilt
	// StatusRunning has a live sketch process.
	StatusRunning
	// StatusSuspended has a paused sketch process.
	StatusSuspended
	// StatusStopped had a sketch that has exited or was terminated.
	StatusStopped
)

var (
	// ErrInvalidStatus is returned when a Status value is not one of the defined states.
	ErrInvalidStatus = errors.New("invalid status")
	// ErrInvalidTransition is the sentinel error wrapped by InvalidTransitionError.
	ErrInvalidTransition = errors.New("invalid state transition")
)

type (
	// Status is the lifecycle state of a Runner.
	Status int32

	// InvalidStatusError is returned when a Status value is not recognized.
	// It wraps ErrInvalidStatus for errors.Is() compatibility.
	InvalidStatusError struct {
		Value Status
	}

	// InvalidTransitionError is recorded when an operation is called from a
	// status it is not defined for.
	// It wraps ErrInvalidTransition for errors.Is() compatibility.
	InvalidTransitionError struct {
		Op   string
		From Status
	}
)

// String returns a human-readable representation of the status.
func (s Status) String() string {
	switch s {
	case StatusClean:
		return "clean"
	case StatusConfigured:
		return "configured"
	case StatusBuilt:
		return "built"
	case StatusRunning:
		return "running"
	case StatusSuspended:
		return "suspended"
	case StatusStopped:
		return "stopped"
	default:
		return "unknown"
	}
}

// Validate returns nil if the Status is one of the defined states.
func (s Status) Validate() error {
	switch s {
	case StatusClean, StatusConfigured, StatusBuilt, StatusRunning, StatusSuspended, StatusStopped:
		return nil
	default:
		return &InvalidStatusError{Value: s}
	}
}

// IsActive reports whether a sketch process is alive (running or suspended).
func (s Status) IsActive() bool {
	return s == StatusRunning || s == StatusSuspended
}

// HasSegment reports whether a board segment is known to exist.
func (s Status) HasSegment() bool {
	switch s {
	case StatusConfigured, StatusBuilt, StatusRunning, StatusSuspended:
		return true
	default:
		return false
	}
}

// Error implements the error interface for InvalidStatusError.
func (e *InvalidStatusError) Error() string {
	return fmt.Sprintf("invalid status %d (valid: 0=clean, 1=configured, 2=built, 3=running, 4=suspended, 5=stopped)", e.Value)
}

// Unwrap returns ErrInvalidStatus for errors.Is() compatibility.
func (e *InvalidStatusError) Unwrap() error { return ErrInvalidStatus }

// Error implements the error interface for InvalidTransitionError.
func (e *InvalidTransitionError) Error() string {
	return fmt.Sprintf("cannot %s while %s", e.Op, e.From)
}

// Unwrap returns ErrInvalidTransition for errors.Is() compatibility.
func (e *InvalidTransitionError) Unwrap() error { return ErrInvalidTransition }
