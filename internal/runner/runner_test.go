// SPDX-License-Identifier: MPL-2.0

//go:build unix

package runner

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"reflect"
	"strings"
	"testing"
	"time"

	"github.com/charmbracelet/log"

	"smce-runner/internal/boardconf"
	"smce-runner/internal/boarddata"
	"smce-runner/internal/shm"
	"smce-runner/internal/sketchbuild"
	"smce-runner/pkg/types"
)

// Tests here are not parallel: exec of a freshly written script fails with
// ETXTBSY when another goroutine forks while the file is still open.

const (
	exitingSketch  = "#!/bin/sh\necho \"seg=$SEGNAME\" >&2\necho to-stdout\nexit 42\n"
	sleepingSketch = "#!/bin/sh\necho started >&2\nexec sleep 30\n"
)

var errBuildBroken = errors.New("compiler exploded")

// fakeToolchain writes script as the sketch binary instead of compiling.
type fakeToolchain struct {
	root       string
	script     string
	buildErr   error
	configures int
	builds     int
}

func newFakeToolchain(t *testing.T, script string) *fakeToolchain {
	t.Helper()
	return &fakeToolchain{root: t.TempDir(), script: script}
}

func (f *fakeToolchain) Configure(_ context.Context, req sketchbuild.Request, out io.Writer) (sketchbuild.Result, error) {
	f.configures++
	fmt.Fprintf(out, "-- configuring %s for %s\n", req.SketchPath, req.FQBN)
	dir := filepath.Join(f.root, "sketch-"+req.Ident)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return sketchbuild.Result{}, err
	}
	return sketchbuild.Result{SketchDir: dir, Binary: filepath.Join(dir, "Sketch")}, nil
}

func (f *fakeToolchain) Build(_ context.Context, res sketchbuild.Result, out io.Writer) error {
	f.builds++
	fmt.Fprintln(out, "[1/1] Linking Sketch")
	if f.buildErr != nil {
		fmt.Fprintln(out, "error: "+f.buildErr.Error())
		return f.buildErr
	}
	return os.WriteFile(res.Binary, []byte(f.script), 0o755)
}

type recordingObserver struct {
	transitions []string
	builds      []error
	exits       []types.ExitCode
}

func (o *recordingObserver) StatusChanged(from, to Status) {
	o.transitions = append(o.transitions, from.String()+">"+to.String())
}

func (o *recordingObserver) BuildFinished(_ time.Duration, err error) {
	o.builds = append(o.builds, err)
}

func (o *recordingObserver) SketchExited(code types.ExitCode) { o.exits = append(o.exits, code) }

func newTestRunner(t *testing.T, tc Toolchain, opts ...Option) *Runner {
	t.Helper()
	base := []Option{
		WithIDSource(NewCounterIDSource(uint64(os.Getpid())<<24 + uint64(time.Now().UnixNano()%(1<<24)))),
		WithLogger(log.New(io.Discard)),
	}
	r := New(tc, append(base, opts...)...)
	t.Cleanup(func() { _ = r.Close() })
	return r
}

func testBoard() boardconf.BoardConfig {
	return boardconf.BoardConfig{
		Pins:         []uint16{2, 5, 1},
		GPIODrivers:  []boardconf.GPIODriver{{PinID: 5, DigitalDriver: &boardconf.DriverCaps{BoardRead: true, BoardWrite: true}}},
		UARTChannels: []boardconf.UARTChannel{{}},
	}
}

func mustBuild(t *testing.T, r *Runner) {
	t.Helper()
	if !r.Configure("arduino:avr:uno", testBoard()) {
		t.Fatalf("Configure() failed: %v", r.LastError())
	}
	if !r.Build(t.Context(), "/src/Blink.ino", boardconf.SketchConfig{}) {
		t.Fatalf("Build() failed: %v", r.LastError())
	}
}

func tickUntilStopped(t *testing.T, r *Runner) {
	t.Helper()
	deadline := time.Now().Add(10 * time.Second)
	for r.Status() != StatusStopped {
		if time.Now().After(deadline) {
			t.Fatalf("sketch still %s after deadline", r.Status())
		}
		r.Tick()
		time.Sleep(10 * time.Millisecond)
	}
}

func waitForLog(t *testing.T, r *Runner, want string) {
	t.Helper()
	deadline := time.Now().Add(10 * time.Second)
	for !strings.Contains(r.RuntimeLog(), want) {
		if time.Now().After(deadline) {
			t.Fatalf("RuntimeLog() = %q, never contained %q", r.RuntimeLog(), want)
		}
		time.Sleep(10 * time.Millisecond)
	}
}

func TestRunner_FreshState(t *testing.T) {
	r := newTestRunner(t, newFakeToolchain(t, exitingSketch))

	if r.Status() != StatusClean {
		t.Errorf("Status() = %s, want clean", r.Status())
	}
	if r.View().Valid() {
		t.Error("View() should be invalid before Configure")
	}
	if r.BuildLog() != "" || r.RuntimeLog() != "" || r.SketchPath() != "" {
		t.Error("fresh runner should have empty logs and paths")
	}
	if want := fmt.Sprintf("SMCE-Runner-%d", r.ID()); r.SegmentName() != want {
		t.Errorf("SegmentName() = %q, want %q", r.SegmentName(), want)
	}
}

func TestRunner_RejectedTransitions(t *testing.T) {
	r := newTestRunner(t, newFakeToolchain(t, exitingSketch))

	ops := map[string]func() bool{
		"build":     func() bool { return r.Build(t.Context(), "x.ino", boardconf.SketchConfig{}) },
		"rebuild":   func() bool { return r.Rebuild(t.Context()) },
		"start":     r.Start,
		"suspend":   r.Suspend,
		"resume":    r.Resume,
		"terminate": r.Terminate,
		"stop":      r.Stop,
	}
	for name, op := range ops {
		if op() {
			t.Errorf("%s succeeded on a clean runner", name)
		}
		if r.Status() != StatusClean {
			t.Fatalf("%s changed status to %s", name, r.Status())
		}
		if r.LastError() == nil {
			t.Errorf("%s left no error", name)
		}
	}
	if !errors.Is(r.LastError(), ErrInvalidTransition) && !errors.Is(r.LastError(), ErrNoSketch) {
		t.Errorf("LastError() = %v", r.LastError())
	}
}

func TestRunner_ConfigureInvalidKeepsState(t *testing.T) {
	r := newTestRunner(t, newFakeToolchain(t, exitingSketch))

	bad := boardconf.BoardConfig{SDCards: []boardconf.SDCard{{CSPin: 1, RootDir: " "}}}
	if r.Configure("uno", bad) {
		t.Fatal("Configure() accepted a blank SD root")
	}
	if r.Status() != StatusClean {
		t.Errorf("Status() = %s, want clean", r.Status())
	}
	if !errors.Is(r.LastError(), boardconf.ErrInvalidBoardConfig) {
		t.Errorf("LastError() = %v, want ErrInvalidBoardConfig", r.LastError())
	}

	if !r.Configure("uno", testBoard()) {
		t.Fatalf("Configure() failed: %v", r.LastError())
	}
	if r.Configure("uno", bad) {
		t.Fatal("Configure() accepted a blank SD root")
	}
	if r.Status() != StatusConfigured || !r.View().Valid() {
		t.Error("failed reconfigure should keep the existing segment")
	}
}

func TestRunner_SketchExitNotifiesOnce(t *testing.T) {
	var codes []types.ExitCode
	obs := &recordingObserver{}
	r := newTestRunner(t, newFakeToolchain(t, exitingSketch),
		WithExitNotify(func(c types.ExitCode) { codes = append(codes, c) }),
		WithObserver(obs))

	mustBuild(t, r)
	if got := r.View().Pins(); len(got) != 3 || got[0].ID() != 1 || got[2].ID() != 5 {
		t.Fatalf("view pins = %v", got)
	}
	if !r.Start() {
		t.Fatalf("Start() failed: %v", r.LastError())
	}
	tickUntilStopped(t, r)
	r.Tick()
	r.Tick()

	if len(codes) != 1 || codes[0] != 42 {
		t.Fatalf("exit notifications = %v, want [42]", codes)
	}
	if code, ok := r.ExitCode(); !ok || code != 42 {
		t.Errorf("ExitCode() = %d, %v", code, ok)
	}
	if r.View().Valid() {
		t.Error("View() should be invalid once stopped")
	}
	if got := r.RuntimeLog(); !strings.Contains(got, "seg="+r.SegmentName()) || strings.Contains(got, "to-stdout") {
		t.Errorf("RuntimeLog() = %q, want stderr with segment name only", got)
	}

	want := []string{"clean>configured", "configured>built", "built>running", "running>stopped"}
	if !reflect.DeepEqual(obs.transitions, want) {
		t.Errorf("transitions = %v, want %v", obs.transitions, want)
	}
	if len(obs.exits) != 1 || len(obs.builds) != 1 || obs.builds[0] != nil {
		t.Errorf("observer exits = %v builds = %v", obs.exits, obs.builds)
	}
}

func TestRunner_BuildFailure(t *testing.T) {
	tc := newFakeToolchain(t, exitingSketch)
	tc.buildErr = errBuildBroken
	r := newTestRunner(t, tc)

	if !r.Configure("uno", testBoard()) {
		t.Fatal(r.LastError())
	}
	if r.Build(t.Context(), "/src/Broken.ino", boardconf.SketchConfig{}) {
		t.Fatal("Build() should fail")
	}
	if r.Status() != StatusConfigured {
		t.Errorf("Status() = %s, want configured", r.Status())
	}
	if !errors.Is(r.LastError(), errBuildBroken) {
		t.Errorf("LastError() = %v", r.LastError())
	}
	buildLog := r.BuildLog()
	for _, want := range []string{"-- configuring /src/Broken.ino for uno", "[1/1] Linking Sketch", "error: compiler exploded"} {
		if !strings.Contains(buildLog, want) {
			t.Errorf("BuildLog() missing %q:\n%s", want, buildLog)
		}
	}
	if r.Start() {
		t.Error("Start() succeeded after a failed build")
	}
}

func TestRunner_SuspendResumeTerminate(t *testing.T) {
	notified := false
	r := newTestRunner(t, newFakeToolchain(t, sleepingSketch),
		WithExitNotify(func(types.ExitCode) { notified = true }))

	mustBuild(t, r)
	if !r.Start() {
		t.Fatal(r.LastError())
	}
	waitForLog(t, r, "started")

	pin, ok := r.View().Pin(5)
	if !ok {
		t.Fatal("pin 5 missing")
	}
	pin.SetDirection(boarddata.DirectionOutput)
	pin.DigitalWrite(true)
	if n := r.View().UartChannels()[0].WriteRx([]byte("ping")); n != 4 {
		t.Fatalf("WriteRx() = %d, want 4", n)
	}
	before := r.View().Snapshot()
	if !before.Pins[2].Digital || before.UARTs[0].RxBuffered != 4 {
		t.Fatalf("state not written before suspend: %+v", before)
	}

	if !r.Suspend() || r.Status() != StatusSuspended {
		t.Fatalf("Suspend() failed: %v", r.LastError())
	}
	if r.Suspend() {
		t.Error("second Suspend() should be rejected")
	}
	r.Tick()
	if r.Status() != StatusSuspended {
		t.Fatalf("Tick() moved a suspended sketch to %s", r.Status())
	}
	if !r.Resume() || r.Status() != StatusRunning {
		t.Fatalf("Resume() failed: %v", r.LastError())
	}
	if after := r.View().Snapshot(); !reflect.DeepEqual(before, after) {
		t.Errorf("snapshot changed across suspend/resume:\n%+v\n%+v", before, after)
	}

	if r.Reset() {
		t.Error("Reset() should be rejected while running")
	}
	if !r.Suspend() {
		t.Fatal(r.LastError())
	}
	if !r.Terminate() || r.Status() != StatusStopped {
		t.Fatalf("Terminate() failed: %v", r.LastError())
	}
	r.Tick()
	if notified {
		t.Error("exit callback fired for a terminated sketch")
	}
	if !strings.Contains(r.RuntimeLog(), "started") {
		t.Errorf("RuntimeLog() = %q", r.RuntimeLog())
	}
}

func TestRunner_ResetMatchesFresh(t *testing.T) {
	r := newTestRunner(t, newFakeToolchain(t, exitingSketch))

	mustBuild(t, r)
	oldID, oldSeg, dir := r.ID(), r.SegmentName(), r.SketchDir()
	if !r.Start() {
		t.Fatal(r.LastError())
	}
	tickUntilStopped(t, r)

	if !r.Reset() {
		t.Fatalf("Reset() failed: %v", r.LastError())
	}
	if r.Status() != StatusClean || r.View().Valid() {
		t.Error("Reset() should leave a clean runner with no view")
	}
	if r.ID() == oldID {
		t.Error("Reset() should take a new id")
	}
	if r.BuildLog() != "" || r.RuntimeLog() != "" || r.SketchPath() != "" || r.SketchDir() != "" || r.LastError() != nil {
		t.Error("Reset() should clear logs, paths and the last error")
	}
	if _, err := os.Stat(dir); !errors.Is(err, os.ErrNotExist) {
		t.Errorf("sketch dir still present: %v", err)
	}
	if _, err := shm.Open(oldSeg); !errors.Is(err, shm.ErrSegmentNotFound) {
		t.Errorf("shm.Open(old) = %v, want ErrSegmentNotFound", err)
	}

	mustBuild(t, r)
	if r.Status() != StatusBuilt {
		t.Errorf("runner unusable after Reset(): %s", r.Status())
	}
}

func TestRunner_Rebuild(t *testing.T) {
	tc := newFakeToolchain(t, exitingSketch)
	r := newTestRunner(t, tc)

	mustBuild(t, r)
	if !r.Start() {
		t.Fatal(r.LastError())
	}
	tickUntilStopped(t, r)

	if !r.Rebuild(t.Context()) {
		t.Fatalf("Rebuild() failed: %v", r.LastError())
	}
	if r.Status() != StatusBuilt || !r.View().Valid() {
		t.Fatalf("Status() = %s after Rebuild()", r.Status())
	}
	if tc.configures != 1 || tc.builds != 2 {
		t.Errorf("configures = %d builds = %d, want 1 and 2", tc.configures, tc.builds)
	}
	if !r.Start() {
		t.Fatalf("Start() after Rebuild() failed: %v", r.LastError())
	}
	code, err := r.Supervise(t.Context(), 10*time.Millisecond)
	if err != nil || code != 42 {
		t.Errorf("Supervise() = %d, %v", code, err)
	}
}

func TestRunner_FailedRebuildKeepsStatus(t *testing.T) {
	tc := newFakeToolchain(t, exitingSketch)
	r := newTestRunner(t, tc)

	mustBuild(t, r)
	if !r.Start() {
		t.Fatal(r.LastError())
	}
	tickUntilStopped(t, r)

	tc.buildErr = errBuildBroken
	if r.Rebuild(t.Context()) {
		t.Fatal("Rebuild() succeeded with a broken toolchain")
	}
	if r.Status() != StatusStopped {
		t.Errorf("Status() = %s after failed Rebuild(), want stopped", r.Status())
	}
	if !errors.Is(r.LastError(), errBuildBroken) {
		t.Errorf("LastError() = %v", r.LastError())
	}
	if r.Build(t.Context(), r.SketchPath(), boardconf.SketchConfig{}) {
		t.Error("Build() allowed after a failed Rebuild()")
	}

	tc.buildErr = nil
	if !r.Rebuild(t.Context()) || r.Status() != StatusBuilt {
		t.Fatalf("Rebuild() after fixing the toolchain: status %s, err %v", r.Status(), r.LastError())
	}
}

func TestRunner_SuperviseCanceled(t *testing.T) {
	r := newTestRunner(t, newFakeToolchain(t, sleepingSketch))

	mustBuild(t, r)
	if !r.Start() {
		t.Fatal(r.LastError())
	}
	ctx, cancel := context.WithTimeout(t.Context(), 100*time.Millisecond)
	defer cancel()

	code, err := r.Supervise(ctx, 10*time.Millisecond)
	if !errors.Is(err, context.DeadlineExceeded) {
		t.Errorf("Supervise() error = %v", err)
	}
	if !code.IsSignaled() {
		t.Errorf("exit code = %d, want signaled", code)
	}
	if r.Status() != StatusStopped {
		t.Errorf("Status() = %s, want stopped", r.Status())
	}
}

func TestRunner_CloseReleasesEverything(t *testing.T) {
	r := newTestRunner(t, newFakeToolchain(t, sleepingSketch))

	mustBuild(t, r)
	if !r.Start() {
		t.Fatal(r.LastError())
	}
	seg, dir := r.SegmentName(), r.SketchDir()

	if err := r.Close(); err != nil {
		t.Fatalf("Close() error = %v", err)
	}
	if err := r.Close(); err != nil {
		t.Errorf("second Close() error = %v", err)
	}
	if _, err := shm.Open(seg); !errors.Is(err, shm.ErrSegmentNotFound) {
		t.Errorf("shm.Open() = %v, want ErrSegmentNotFound", err)
	}
	if _, err := os.Stat(dir); !errors.Is(err, os.ErrNotExist) {
		t.Errorf("sketch dir still present: %v", err)
	}
}

func TestRunner_DetachKeepsBinary(t *testing.T) {
	r := newTestRunner(t, newFakeToolchain(t, sleepingSketch))

	mustBuild(t, r)
	seg, bin := r.SegmentName(), r.SketchBinary()

	if err := r.Detach(); err != nil {
		t.Fatalf("Detach() error = %v", err)
	}
	if _, err := shm.Open(seg); !errors.Is(err, shm.ErrSegmentNotFound) {
		t.Errorf("shm.Open() = %v, want ErrSegmentNotFound", err)
	}
	if _, err := os.Stat(bin); err != nil {
		t.Errorf("binary removed by Detach: %v", err)
	}
	if r.Status() != StatusClean {
		t.Errorf("Status() = %v, want clean", r.Status())
	}
}
