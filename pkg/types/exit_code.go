// SPDX-License-Identifier: MPL-2.0

package types

import (
	"os"
	"strconv"
)

// ExitCodeSignaled is reported for a sketch that was ended by a signal,
// including a forced termination, rather than by returning from main.
const ExitCodeSignaled ExitCode = -1

// ExitCode is a sketch's exit status. Values from 0 to 255 come from the
// sketch itself; ExitCodeSignaled marks a process that did not exit on its
// own.
type ExitCode int

// ExitCodeOf reads the status of a finished process.
func ExitCodeOf(state *os.ProcessState) ExitCode {
	if state == nil {
		return ExitCodeSignaled
	}
	if code := state.ExitCode(); code >= 0 {
		return ExitCode(code)
	}
	return ExitCodeSignaled
}

// IsSignaled reports whether the process was ended by a signal.
func (c ExitCode) IsSignaled() bool { return c == ExitCodeSignaled }

// String returns the decimal code, or "signaled".
func (c ExitCode) String() string {
	if c.IsSignaled() {
		return "signaled"
	}
	return strconv.Itoa(int(c))
}
