// SPDX-License-Identifier: MPL-2.0

package cmd

import (
	"context"
	"fmt"
	"io"
	"time"

	"github.com/charmbracelet/log"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"smce-runner/internal/issue"
	"smce-runner/internal/metrics"
	"smce-runner/internal/runner"
	"smce-runner/internal/watch"
	"smce-runner/pkg/types"
)

type (
	runFlags struct {
		watch         bool
		timeout       time.Duration
		snapshotEvery time.Duration
	}

	// supervisor drives one runner from a single goroutine: ticks, sketch
	// output, periodic snapshots, the timeout and rebuilds on change.
	supervisor struct {
		r             *runner.Runner
		logger        *log.Logger
		out           io.Writer
		tick          time.Duration
		timeout       time.Duration
		snapshotEvery time.Duration
		offset        int
		renderSnap    func(string) string
	}
)

// newRunCommand creates `smce run`.
func newRunCommand(app *App, g *globalOptions) *cobra.Command {
	in := &sketchInputs{}
	flags := &runFlags{}
	cmd := &cobra.Command{
		Use:   "run <sketch>",
		Short: "Build a sketch and run it against the simulated board",
		Long: `Build a sketch and run it against the simulated board.

The sketch's output is streamed to stderr. smce exits with the sketch's
exit status. With --watch the sketch is rebuilt and restarted whenever a
source file changes, until interrupted.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runSketch(cmd.Context(), app, g, in, flags, args[0])
		},
	}
	in.register(cmd)
	cmd.Flags().BoolVarP(&flags.watch, "watch", "w", false, "rebuild and restart when sources change")
	cmd.Flags().DurationVar(&flags.timeout, "timeout", 0, "terminate the sketch after this long (0 disables)")
	cmd.Flags().DurationVar(&flags.snapshotEvery, "snapshot-every", 0, "print a board snapshot at this interval (0 disables)")
	return cmd
}

func runSketch(ctx context.Context, app *App, g *globalOptions, in *sketchInputs, flags *runFlags, sketchArg string) error {
	cfg, err := app.loadConfig(ctx, g)
	if err != nil {
		return err
	}
	logger := app.newLogger("run", cfg, g)

	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	collector, err := metrics.NewCollector(reg)
	if err != nil {
		return err
	}

	r, sketch, err := prepare(ctx, app, g, cfg, in, sketchArg,
		runner.WithObserver(collector),
		runner.WithExitNotify(func(code types.ExitCode) {
			logger.Info("sketch exited", "code", code)
		}),
	)
	if err != nil {
		return err
	}
	defer func() {
		if cerr := r.Close(); cerr != nil {
			logger.Warn("release runner", "error", cerr)
		}
	}()

	svcCtx, stopServices := context.WithCancel(ctx)
	eg, egCtx := errgroup.WithContext(svcCtx)

	if cfg.Metrics.Addr != "" {
		srv, err := metrics.NewServer(cfg.Metrics.Addr, reg)
		if err != nil {
			stopServices()
			return fmt.Errorf("metrics endpoint: %w", err)
		}
		fmt.Fprintln(app.stderr, step("metrics", srv.URL()))
		eg.Go(func() error { return srv.Serve(egCtx) })
	}

	var changes <-chan watch.Batch
	if flags.watch {
		w, err := watch.New(watch.Config{
			Roots:    watchRoots(r.SketchPath(), sketch),
			Patterns: cfg.Watch.Patterns,
			Debounce: cfg.Watch.Debounce,
			Logger:   app.newLogger("watch", cfg, g),
		})
		if err != nil {
			stopServices()
			_ = eg.Wait()
			return fmt.Errorf("watch sketch: %w", err)
		}
		changes = w.Changes()
		eg.Go(func() error { return w.Run(egCtx) })
		for _, root := range w.Roots() {
			fmt.Fprintln(app.stderr, step("watching", root))
		}
	}

	sup := &supervisor{
		r:             r,
		logger:        logger,
		out:           app.stderr,
		tick:          cfg.Runner.TickInterval,
		timeout:       flags.timeout,
		snapshotEvery: flags.snapshotEvery,
		renderSnap:    renderMarkdown,
	}
	code, err := sup.run(egCtx, ctx, changes)
	stopServices()
	if werr := eg.Wait(); werr != nil && err == nil {
		err = werr
	}
	if err != nil {
		return err
	}
	if code != 0 {
		return &ExitError{Code: code}
	}
	return nil
}

// run starts the built sketch and supervises it. It returns when the
// sketch stops (unless changes is live), on timeout, or when interrupt is
// done. svc ending early means a background service failed.
func (s *supervisor) run(svc, interrupt context.Context, changes <-chan watch.Batch) (types.ExitCode, error) {
	if !s.r.Start() {
		return 0, runnerFailure(s.r, "start sketch", issue.SketchStartFailedId, s.r.SketchBinary())
	}

	ticker := time.NewTicker(s.tick)
	defer ticker.Stop()

	var deadline <-chan time.Time
	if s.timeout > 0 {
		t := time.NewTimer(s.timeout)
		defer t.Stop()
		deadline = t.C
	}
	var snapshots <-chan time.Time
	if s.snapshotEvery > 0 {
		st := time.NewTicker(s.snapshotEvery)
		defer st.Stop()
		snapshots = st.C
	}

	for {
		select {
		case <-interrupt.Done():
			s.stop()
			return exitInterrupted, nil

		case <-svc.Done():
			s.stop()
			if interrupt.Err() != nil {
				return exitInterrupted, nil
			}
			return s.exitCode(), nil

		case <-ticker.C:
			s.r.Tick()
			s.flush()
			if s.r.Status() == runner.StatusStopped && changes == nil {
				return s.exitCode(), nil
			}

		case <-deadline:
			s.logger.Warn("timeout reached, terminating sketch", "after", s.timeout)
			s.stop()
			return s.exitCode(), nil

		case <-snapshots:
			s.snapshot()

		case batch, ok := <-changes:
			if !ok {
				changes = nil
				continue
			}
			if err := s.restart(svc, batch); err != nil {
				return 0, err
			}
		}
	}
}

// restart rebuilds after a change. A failed build is reported and the
// supervisor keeps waiting for the next change.
func (s *supervisor) restart(ctx context.Context, batch watch.Batch) error {
	s.logger.Info("sources changed, rebuilding", "files", len(batch.Paths))
	s.stop()
	if !s.r.Rebuild(ctx) {
		fmt.Fprint(s.out, s.r.BuildLog())
		s.logger.Error("rebuild failed, waiting for further changes", "error", s.r.LastError())
		return nil
	}
	if !s.r.Start() {
		return runnerFailure(s.r, "restart sketch", issue.SketchStartFailedId, s.r.SketchBinary())
	}
	return nil
}

// stop terminates a live sketch and flushes what it printed.
func (s *supervisor) stop() {
	if s.r.Status().IsActive() && !s.r.Terminate() {
		s.logger.Error("terminate sketch", "error", s.r.LastError())
	}
	s.flush()
}

// snapshot pauses the sketch long enough to copy the board.
func (s *supervisor) snapshot() {
	if s.r.Status() != runner.StatusRunning {
		return
	}
	if !s.r.Suspend() {
		s.logger.Warn("suspend for snapshot", "error", s.r.LastError())
		return
	}
	snap := s.r.View().Snapshot()
	if !s.r.Resume() {
		s.logger.Error("resume after snapshot", "error", s.r.LastError())
	}
	fmt.Fprint(s.out, s.renderSnap(snapshotMarkdown(snap)))
}

// flush copies new sketch output to out.
func (s *supervisor) flush() {
	chunk, next := s.r.RuntimeLogSince(s.offset)
	s.offset = next
	if len(chunk) > 0 {
		_, _ = s.out.Write(chunk)
	}
}

func (s *supervisor) exitCode() types.ExitCode {
	code, _ := s.r.ExitCode()
	return code
}
