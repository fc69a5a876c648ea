// SPDX-License-Identifier: MPL-2.0

package runner

import (
	"time"

	"github.com/charmbracelet/log"

	"smce-runner/internal/clock"
	"smce-runner/pkg/types"
)

type (
	// Option configures a Runner.
	Option func(*Runner)

	// Observer is told about lifecycle events, e.g. to export metrics.
	// Calls happen on the goroutine driving the runner.
	Observer interface {
		StatusChanged(from, to Status)
		BuildFinished(d time.Duration, err error)
		SketchExited(code types.ExitCode)
	}

	noopObserver struct{}
)

func (noopObserver) StatusChanged(Status, Status)       {}
func (noopObserver) BuildFinished(time.Duration, error) {}
func (noopObserver) SketchExited(types.ExitCode)        {}

// WithExitNotify registers fn to be called from Tick, once, when a sketch
// exits on its own. It is not called for sketches stopped by Terminate.
func WithExitNotify(fn func(types.ExitCode)) Option {
	return func(r *Runner) { r.exitNotify = fn }
}

// WithIDSource replaces the process-wide id source.
func WithIDSource(src IDSource) Option {
	return func(r *Runner) { r.ids = src }
}

// WithLogger sets the logger for lifecycle messages.
func WithLogger(l *log.Logger) Option {
	return func(r *Runner) { r.logger = l }
}

// WithObserver attaches an observer for lifecycle events.
func WithObserver(o Observer) Option {
	return func(r *Runner) { r.observer = o }
}

// WithClock replaces the wall clock used for timing and for Supervise.
func WithClock(c clock.Clock) Option {
	return func(r *Runner) { r.clock = c }
}
