// SPDX-License-Identifier: MPL-2.0

package sketchproc

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/exec"

	"smce-runner/pkg/types"
)

// SegmentEnvVar names the environment variable carrying the segment name.
const SegmentEnvVar = "SEGNAME"

const drainChunk = 1024

// ErrNotRunning is returned when a control signal targets an exited process.
var ErrNotRunning = errors.New("sketch process not running")

// Process is a running (or exited) sketch.
type Process struct {
	cmd      *exec.Cmd
	done     chan struct{}
	drained  chan struct{}
	exitCode types.ExitCode
}

// Start launches binPath with SEGNAME=segName and streams its stderr into
// log. log must be safe for use from another goroutine.
func Start(binPath, segName string, log io.Writer) (*Process, error) {
	cmd := exec.Command(binPath)
	cmd.Env = append(os.Environ(), SegmentEnvVar+"="+segName)
	cmd.Stdin = nil
	cmd.Stdout = nil
	cmd.SysProcAttr = sysProcAttr()

	r, w, err := os.Pipe()
	if err != nil {
		return nil, fmt.Errorf("create stderr pipe: %w", err)
	}
	cmd.Stderr = w
	if err := cmd.Start(); err != nil {
		_ = r.Close()
		_ = w.Close()
		return nil, fmt.Errorf("start sketch %s: %w", binPath, err)
	}
	// The child holds its own copy; ours must go so the drain sees EOF.
	_ = w.Close()

	p := &Process{
		cmd:     cmd,
		done:    make(chan struct{}),
		drained: make(chan struct{}),
	}
	go p.drain(r, log)
	go p.wait()
	return p, nil
}

// Pid returns the OS process id.
func (p *Process) Pid() int { return p.cmd.Process.Pid }

// Done is closed once the process has exited and been reaped.
func (p *Process) Done() <-chan struct{} { return p.done }

// Poll reports without blocking whether the process has exited and, if so,
// its exit code (types.ExitCodeSignaled when killed by a signal).
func (p *Process) Poll() (exited bool, code types.ExitCode) {
	select {
	case <-p.done:
		return true, p.exitCode
	default:
		return false, 0
	}
}

// Suspend pauses the process.
func (p *Process) Suspend() error {
	if exited, _ := p.Poll(); exited {
		return ErrNotRunning
	}
	if err := suspend(p.cmd.Process); err != nil {
		return fmt.Errorf("suspend sketch %d: %w", p.Pid(), err)
	}
	return nil
}

// Resume continues a suspended process.
func (p *Process) Resume() error {
	if exited, _ := p.Poll(); exited {
		return ErrNotRunning
	}
	if err := resume(p.cmd.Process); err != nil {
		return fmt.Errorf("resume sketch %d: %w", p.Pid(), err)
	}
	return nil
}

// Terminate kills the process and anything it spawned, waits for it to be
// reaped and for its stderr to be fully drained. A process that already
// exited is not an error, but children it left behind are still killed
// since they hold the stderr pipe open. Once Terminate returns nil no
// further writes reach the log.
func (p *Process) Terminate() error {
	exited, _ := p.Poll()
	if err := kill(p.cmd.Process, exited); err != nil {
		return fmt.Errorf("terminate sketch %d: %w", p.Pid(), err)
	}
	<-p.done
	<-p.drained
	return nil
}

func (p *Process) drain(r *os.File, log io.Writer) {
	defer close(p.drained)
	defer r.Close()

	buf := make([]byte, drainChunk)
	for {
		n, err := r.Read(buf)
		if n > 0 {
			_, _ = log.Write(buf[:n])
		}
		if err != nil {
			if !errors.Is(err, io.EOF) {
				slog.Debug("sketch stderr read failed", "error", err)
			}
			return
		}
	}
}

func (p *Process) wait() {
	defer close(p.done)

	err := p.cmd.Wait()
	if err != nil {
		var exitErr *exec.ExitError
		if !errors.As(err, &exitErr) {
			slog.Debug("sketch wait failed", "error", err)
		}
	}
	p.exitCode = types.ExitCodeOf(p.cmd.ProcessState)
}
