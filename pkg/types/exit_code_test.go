// SPDX-License-Identifier: MPL-2.0

package types

import (
	"os/exec"
	"runtime"
	"testing"
)

func TestExitCodeString(t *testing.T) {
	t.Parallel()

	tests := []struct {
		code ExitCode
		want string
	}{
		{0, "0"},
		{42, "42"},
		{ExitCodeSignaled, "signaled"},
	}
	for _, tt := range tests {
		if got := tt.code.String(); got != tt.want {
			t.Errorf("ExitCode(%d).String() = %q, want %q", int(tt.code), got, tt.want)
		}
	}
	if !ExitCodeSignaled.IsSignaled() || ExitCode(1).IsSignaled() {
		t.Error("IsSignaled() mismatch")
	}
}

func TestExitCodeOf(t *testing.T) {
	t.Parallel()

	if got := ExitCodeOf(nil); got != ExitCodeSignaled {
		t.Errorf("ExitCodeOf(nil) = %v, want signaled", got)
	}
	if runtime.GOOS == "windows" {
		t.Skip("uses /bin/sh")
	}

	cmd := exec.Command("/bin/sh", "-c", "exit 7")
	_ = cmd.Run()
	if got := ExitCodeOf(cmd.ProcessState); got != 7 {
		t.Errorf("ExitCodeOf(exit 7) = %v", got)
	}

	cmd = exec.Command("/bin/sh", "-c", "kill -KILL $$")
	_ = cmd.Run()
	if got := ExitCodeOf(cmd.ProcessState); got != ExitCodeSignaled {
		t.Errorf("ExitCodeOf(killed) = %v, want signaled", got)
	}
}
