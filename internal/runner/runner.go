// SPDX-License-Identifier: MPL-2.0

package runner

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"strconv"
	"time"

	"github.com/charmbracelet/log"

	"smce-runner/internal/boardconf"
	"smce-runner/internal/boardview"
	"smce-runner/internal/clock"
	"smce-runner/internal/logbuf"
	"smce-runner/internal/sharedboard"
	"smce-runner/internal/sketchbuild"
	"smce-runner/internal/sketchproc"
	"smce-runner/pkg/types"
)

// SegmentPrefix starts every board segment name.
const SegmentPrefix = "SMCE-Runner-"

// ErrNoSketch is recorded by Rebuild when no sketch has been configured.
var ErrNoSketch = errors.New("no sketch configured")

type (
	// Toolchain compiles sketches. *sketchbuild.CMake implements it.
	Toolchain interface {
		Configure(ctx context.Context, req sketchbuild.Request, out io.Writer) (sketchbuild.Result, error)
		Build(ctx context.Context, res sketchbuild.Result, out io.Writer) error
	}

	// Runner drives one sketch. See the package documentation.
	Runner struct {
		toolchain  Toolchain
		ids        IDSource
		clock      clock.Clock
		logger     *log.Logger
		observer   Observer
		exitNotify func(types.ExitCode)

		id         uint64
		status     Status
		board      *sharedboard.Manager
		fqbn       string
		boardConf  boardconf.BoardConfig
		sketchPath string
		artifacts  sketchbuild.Result
		proc       *sketchproc.Process
		buildLog   *logbuf.Buffer
		runtimeLog *logbuf.Buffer
		lastErr    error
		startedAt  time.Time
	}
)

// New returns a clean runner that builds sketches with toolchain.
func New(toolchain Toolchain, opts ...Option) *Runner {
	r := &Runner{
		toolchain:  toolchain,
		ids:        ProcessIDSource(),
		clock:      clock.Real{},
		observer:   noopObserver{},
		board:      sharedboard.New(),
		buildLog:   logbuf.New(),
		runtimeLog: logbuf.New(),
	}
	for _, opt := range opts {
		opt(r)
	}
	if r.logger == nil {
		r.logger = log.NewWithOptions(os.Stderr, log.Options{Prefix: "runner"})
	}
	r.id = r.ids.NextID()
	return r
}

// Status returns the current lifecycle state.
func (r *Runner) Status() Status { return r.status }

// ID returns the runner instance id.
func (r *Runner) ID() uint64 { return r.id }

// SegmentName returns the name of the board segment for this instance.
func (r *Runner) SegmentName() string { return SegmentPrefix + strconv.FormatUint(r.id, 10) }

// FQBN returns the board name given to Configure.
func (r *Runner) FQBN() string { return r.fqbn }

// SketchPath returns the sketch source given to Build.
func (r *Runner) SketchPath() string { return r.sketchPath }

// SketchDir returns the generated build directory.
func (r *Runner) SketchDir() string { return r.artifacts.SketchDir }

// SketchBinary returns the compiled sketch executable.
func (r *Runner) SketchBinary() string { return r.artifacts.Binary }

// BuildLog returns a snapshot of the build tool output. Safe to call
// concurrently with Build.
func (r *Runner) BuildLog() string { return r.buildLog.String() }

// RuntimeLog returns a snapshot of the sketch's stderr. Safe to call from
// any goroutine.
func (r *Runner) RuntimeLog() string { return r.runtimeLog.String() }

// RuntimeLogSince returns runtime log bytes from offset on, and the offset
// to pass next time.
func (r *Runner) RuntimeLogSince(offset int) ([]byte, int) { return r.runtimeLog.Since(offset) }

// LastError returns why the most recent failed operation failed.
func (r *Runner) LastError() error { return r.lastErr }

// View returns a board view while a segment exists, an invalid view
// otherwise.
func (r *Runner) View() boardview.View {
	if !r.status.HasSegment() {
		return boardview.View{}
	}
	return boardview.New(r.board.Board())
}

// Configure builds the board segment for fqbn and cfg. Allowed while clean
// or configured.
func (r *Runner) Configure(fqbn string, cfg boardconf.BoardConfig) bool {
	if r.status != StatusClean && r.status != StatusConfigured {
		return r.reject("configure")
	}

	cfg = cfg.Clone()
	cfg.ApplyDefaults()
	if err := cfg.Validate(); err != nil {
		return r.fail(err)
	}
	if err := r.board.Configure(r.SegmentName(), fqbn, cfg); err != nil {
		// The previous segment is gone with the failed attempt.
		r.setStatus(StatusClean)
		return r.fail(err)
	}

	r.fqbn = fqbn
	r.boardConf = cfg
	r.logger.Debug("board configured", "segment", r.SegmentName(), "fqbn", fqbn)
	r.setStatus(StatusConfigured)
	return true
}

// Build configures and compiles the sketch at sketchPath. Allowed only
// while configured. On failure the status stays configured and the build
// log keeps everything the tool printed.
func (r *Runner) Build(ctx context.Context, sketchPath string, sketch boardconf.SketchConfig) bool {
	if r.status != StatusConfigured {
		return r.reject("build")
	}
	if r.toolchain == nil {
		return r.fail(errors.New("no toolchain"))
	}

	start := r.clock.Now()
	req := sketchbuild.Request{
		Ident:      strconv.FormatUint(r.id, 10),
		FQBN:       r.fqbn,
		SketchPath: sketchPath,
		Libraries:  sketchbuild.SerializeLibraries(sketch),
	}
	res, err := r.toolchain.Configure(ctx, req, r.buildLog)
	if err != nil {
		r.observer.BuildFinished(r.clock.Since(start), err)
		return r.fail(fmt.Errorf("configure sketch: %w", err))
	}
	r.sketchPath = sketchPath
	r.artifacts = res

	return r.compile(ctx, start)
}

// Rebuild recreates the board segment with the last configuration and
// recompiles the already configured sketch, skipping the configure step.
// Allowed whenever a sketch path is known and no sketch is running.
func (r *Runner) Rebuild(ctx context.Context) bool {
	if r.status.IsActive() {
		return r.reject("rebuild")
	}
	if r.sketchPath == "" {
		return r.fail(ErrNoSketch)
	}
	if r.toolchain == nil {
		return r.fail(errors.New("no toolchain"))
	}

	start := r.clock.Now()
	if err := r.reap(); err != nil {
		return r.fail(err)
	}
	if err := r.board.Configure(r.SegmentName(), r.fqbn, r.boardConf); err != nil {
		r.setStatus(StatusClean)
		return r.fail(err)
	}
	// A failed compile leaves the status as it was before the rebuild.
	return r.compile(ctx, start)
}

func (r *Runner) compile(ctx context.Context, start time.Time) bool {
	err := r.toolchain.Build(ctx, r.artifacts, r.buildLog)
	r.observer.BuildFinished(r.clock.Since(start), err)
	if err != nil {
		return r.fail(fmt.Errorf("build sketch: %w", err))
	}
	r.logger.Info("sketch built", "binary", r.artifacts.Binary, "took", r.clock.Since(start).Round(time.Millisecond))
	r.setStatus(StatusBuilt)
	return true
}

// Start launches the built sketch. Allowed only while built.
func (r *Runner) Start() bool {
	if r.status != StatusBuilt {
		return r.reject("start")
	}
	proc, err := sketchproc.Start(r.artifacts.Binary, r.SegmentName(), r.runtimeLog)
	if err != nil {
		return r.fail(err)
	}
	r.proc = proc
	r.startedAt = r.clock.Now()
	r.logger.Info("sketch started", "pid", proc.Pid(), "segment", r.SegmentName())
	r.setStatus(StatusRunning)
	return true
}

// Suspend pauses the running sketch.
func (r *Runner) Suspend() bool {
	if r.status != StatusRunning {
		return r.reject("suspend")
	}
	if err := r.proc.Suspend(); err != nil {
		return r.fail(err)
	}
	r.setStatus(StatusSuspended)
	return true
}

// Resume continues a suspended sketch.
func (r *Runner) Resume() bool {
	if r.status != StatusSuspended {
		return r.reject("resume")
	}
	if err := r.proc.Resume(); err != nil {
		return r.fail(err)
	}
	r.setStatus(StatusRunning)
	return true
}

// Terminate force-stops the sketch and waits for its log to drain. It
// fails only if the OS refuses the kill; a sketch that already exited is
// stopped successfully. The exit callback is not invoked.
func (r *Runner) Terminate() bool {
	if !r.status.IsActive() {
		return r.reject("terminate")
	}
	if err := r.proc.Terminate(); err != nil {
		return r.fail(err)
	}
	r.logger.Info("sketch terminated", "uptime", r.clock.Since(r.startedAt).Round(time.Millisecond))
	r.setStatus(StatusStopped)
	return true
}

// Stop ends the sketch. There is no cooperative shutdown handshake with
// the sketch yet, so this is Terminate.
func (r *Runner) Stop() bool { return r.Terminate() }

// Tick checks whether a running or suspended sketch has exited on its own.
// If so the runner becomes stopped and the exit callback fires with the
// exit code. It never blocks.
func (r *Runner) Tick() {
	if !r.status.IsActive() {
		return
	}
	exited, code := r.proc.Poll()
	if !exited {
		return
	}
	r.logger.Info("sketch exited", "code", code)
	r.setStatus(StatusStopped)
	r.observer.SketchExited(code)
	if r.exitNotify != nil {
		r.exitNotify(code)
	}
}

// ExitCode returns the sketch's exit code once it has stopped.
func (r *Runner) ExitCode() (types.ExitCode, bool) {
	if r.proc == nil {
		return 0, false
	}
	exited, code := r.proc.Poll()
	return code, exited
}

// Reset returns the runner to clean: the segment, build directory, logs and
// paths are discarded and a new instance id is taken. Not allowed while a
// sketch is running or suspended.
func (r *Runner) Reset() bool {
	if r.status.IsActive() {
		return r.reject("reset")
	}
	if err := r.release(); err != nil {
		return r.fail(err)
	}

	r.id = r.ids.NextID()
	r.fqbn = ""
	r.boardConf = boardconf.BoardConfig{}
	r.sketchPath = ""
	r.artifacts = sketchbuild.Result{}
	r.buildLog.Reset()
	r.runtimeLog.Reset()
	r.lastErr = nil
	r.setStatus(StatusClean)
	return true
}

// Close terminates a live sketch, joins its log drain, removes the build
// directory and releases the segment. The runner must not be used after.
func (r *Runner) Close() error {
	var errs []error
	if r.proc != nil {
		if err := r.proc.Terminate(); err != nil {
			errs = append(errs, err)
		}
	}
	if err := r.release(); err != nil {
		errs = append(errs, err)
	}
	r.status = StatusClean
	return errors.Join(errs...)
}

// Detach terminates a live sketch and releases the segment but leaves the
// build directory in place, handing the compiled binary to the caller.
// The runner must not be used after.
func (r *Runner) Detach() error {
	var errs []error
	if err := r.reap(); err != nil {
		errs = append(errs, err)
	}
	if err := r.board.Reset(); err != nil {
		errs = append(errs, err)
	}
	r.status = StatusClean
	return errors.Join(errs...)
}

// Supervise ticks every interval until the sketch stops or ctx ends. On
// cancellation the sketch is terminated. It returns the exit code the sketch
// stopped with.
func (r *Runner) Supervise(ctx context.Context, interval time.Duration) (types.ExitCode, error) {
	for r.status.IsActive() {
		select {
		case <-ctx.Done():
			if !r.Terminate() {
				return 0, r.lastErr
			}
			code, _ := r.ExitCode()
			return code, ctx.Err()
		case <-r.clock.After(interval):
			r.Tick()
		}
	}
	code, ok := r.ExitCode()
	if !ok {
		return 0, fmt.Errorf("%w: no sketch has run", ErrInvalidTransition)
	}
	return code, nil
}

// reap joins a finished sketch process so a new one can start.
func (r *Runner) reap() error {
	if r.proc == nil {
		return nil
	}
	if err := r.proc.Terminate(); err != nil {
		return err
	}
	r.proc = nil
	return nil
}

func (r *Runner) release() error {
	var errs []error
	if err := r.reap(); err != nil {
		errs = append(errs, err)
	}
	if dir := r.artifacts.SketchDir; dir != "" {
		if err := os.RemoveAll(dir); err != nil {
			errs = append(errs, fmt.Errorf("remove sketch directory: %w", err))
		}
	}
	if err := r.board.Reset(); err != nil {
		errs = append(errs, err)
	}
	return errors.Join(errs...)
}

func (r *Runner) setStatus(s Status) {
	if s == r.status {
		return
	}
	r.logger.Debug("status changed", "from", r.status, "to", s)
	r.observer.StatusChanged(r.status, s)
	r.status = s
}

func (r *Runner) reject(op string) bool {
	return r.fail(&InvalidTransitionError{Op: op, From: r.status})
}

func (r *Runner) fail(err error) bool {
	r.lastErr = err
	r.logger.Debug("operation failed", "error", err)
	return false
}
