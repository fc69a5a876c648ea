// SPDX-License-Identifier: MPL-2.0

//go:build windows

package sketchproc

import (
	"errors"
	"fmt"
	"os"
	"syscall"

	"golang.org/x/sys/windows"
)

var (
	ntdll                = windows.NewLazySystemDLL("ntdll.dll")
	procNtSuspendProcess = ntdll.NewProc("NtSuspendProcess")
	procNtResumeProcess  = ntdll.NewProc("NtResumeProcess")
)

func sysProcAttr() *syscall.SysProcAttr {
	return &syscall.SysProcAttr{HideWindow: true}
}

func ntProcessCall(proc *windows.LazyProc, pid int) error {
	if err := proc.Find(); err != nil {
		return err
	}
	h, err := windows.OpenProcess(windows.PROCESS_SUSPEND_RESUME, false, uint32(pid))
	if err != nil {
		return fmt.Errorf("open process: %w", err)
	}
	defer windows.CloseHandle(h)

	if status, _, _ := proc.Call(uintptr(h)); status != 0 {
		return fmt.Errorf("%s: NTSTATUS %#x", proc.Name, status)
	}
	return nil
}

func suspend(p *os.Process) error { return ntProcessCall(procNtSuspendProcess, p.Pid) }

func resume(p *os.Process) error { return ntProcessCall(procNtResumeProcess, p.Pid) }

func kill(p *os.Process, leaderExited bool) error {
	if leaderExited {
		return nil
	}
	if err := p.Kill(); err != nil && !errors.Is(err, os.ErrProcessDone) {
		return err
	}
	return nil
}
