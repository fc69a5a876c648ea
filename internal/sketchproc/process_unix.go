// SPDX-License-Identifier: MPL-2.0

//go:build unix

package sketchproc

import (
	"errors"
	"os"
	"syscall"

	"golang.org/x/sys/unix"
)

// The sketch runs in its own process group so control signals also reach
// anything it forks, and no grandchild keeps the stderr pipe open.
func sysProcAttr() *syscall.SysProcAttr {
	return &syscall.SysProcAttr{Setpgid: true}
}

func signalGroup(p *os.Process, sig unix.Signal) error {
	err := unix.Kill(-p.Pid, sig)
	if errors.Is(err, unix.ESRCH) {
		// Group already gone; fall back to the leader in case the group
		// was never formed.
		err = unix.Kill(p.Pid, sig)
	}
	return err
}

func suspend(p *os.Process) error { return signalGroup(p, unix.SIGSTOP) }

func resume(p *os.Process) error { return signalGroup(p, unix.SIGCONT) }

// kill sends SIGKILL to the sketch's process group. Once the leader has
// been reaped only the group is signaled: the bare pid may already belong
// to an unrelated process.
func kill(p *os.Process, leaderExited bool) error {
	var err error
	if leaderExited {
		err = unix.Kill(-p.Pid, unix.SIGKILL)
	} else {
		err = signalGroup(p, unix.SIGKILL)
	}
	if err != nil && !errors.Is(err, unix.ESRCH) {
		return err
	}
	return nil
}
