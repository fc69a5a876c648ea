// SPDX-License-Identifier: MPL-2.0

package cmd

import (
	"fmt"

	"smce-runner/pkg/types"
)

// exitInterrupted is the conventional status for a run stopped by SIGINT.
const exitInterrupted types.ExitCode = 130

// ExitError carries the sketch's exit code out of a RunE handler so the
// process exits with it.
type ExitError struct {
	Code types.ExitCode
	Err  error
}

// Error returns the error message for ExitError.
func (e *ExitError) Error() string {
	if e.Err != nil {
		return e.Err.Error()
	}
	return fmt.Sprintf("sketch exited with status %d", e.Code)
}

// Unwrap returns the underlying error, if any.
func (e *ExitError) Unwrap() error {
	return e.Err
}

// processStatus maps a sketch exit code to a process exit status. A
// signaled sketch reports 1 since -1 is not portable.
func (e *ExitError) processStatus() int {
	if e.Code.IsSignaled() {
		return 1
	}
	return int(e.Code)
}
