// SPDX-License-Identifier: MPL-2.0

package sketchbuild

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/exec"
	"path/filepath"
	"strings"

	"github.com/charmbracelet/log"

	"smce-runner/pkg/platform"
)

const (
	// MarkerPrefix starts the output lines that carry generated paths.
	MarkerPrefix = "-- SMCE: "
	// ConfigureScript is the configure script, relative to the resource directory.
	ConfigureScript = "RtResources/SMCE/share/Scripts/ConfigureSketch.cmake"
	// GeneratorEnvVar overrides the CMake generator.
	GeneratorEnvVar = "CMAKE_GENERATOR"

	defaultGenerator = "Ninja"
	maxLineLength    = 1 << 20
)

var (
	// ErrBuildToolFailed is returned when cmake exits with a non-zero code.
	ErrBuildToolFailed = errors.New("build tool failed")
	// ErrMissingBinary is returned when a build succeeds but the sketch binary is absent.
	ErrMissingBinary = errors.New("sketch binary missing after build")
	// ErrMissingMarkers is returned when configure does not report the sketch paths.
	ErrMissingMarkers = errors.New("configure step did not report sketch paths")
)

type (
	// Request describes one sketch to configure.
	Request struct {
		// Ident is the runner instance id; the sketch uses it to find its segment.
		Ident string
		// FQBN is the fully qualified board name.
		FQBN string
		// SketchPath is the sketch source directory or file.
		SketchPath string
		// Libraries are the serialized library lists.
		Libraries LibraryArgs
	}

	// Result holds what configure generated.
	Result struct {
		SketchDir string
		Binary    string
	}

	// CMake invokes the cmake executable.
	CMake struct {
		// Path is the cmake executable; "cmake" when empty.
		Path string
		// ResourceDir is the runtime resource root (SMCE_DIR).
		ResourceDir string
		// Generator forces a generator; otherwise $CMAKE_GENERATOR, then
		// Ninja when it is on PATH.
		Generator string
		// ExtraArgs are appended to the configure command line before -P.
		ExtraArgs []string
		// Logger receives debug output about the commands run; may be nil.
		Logger *log.Logger
	}
)

// Args returns the configure command line, without the executable.
func (c *CMake) Args(req Request) ([]string, error) {
	src, err := filepath.Abs(req.SketchPath)
	if err != nil {
		return nil, fmt.Errorf("resolve sketch path: %w", err)
	}
	args := []string{
		"-DSKETCH_IDENT=" + req.Ident,
		"-DSMCE_DIR=" + c.ResourceDir,
		"-DSKETCH_FQBN=" + req.FQBN,
		"-DSKETCH_PATH=" + filepath.ToSlash(src),
		"-DPREPROC_REMOTE_LIBS=" + req.Libraries.PreprocRemote,
		"-DCOMPLINK_REMOTE_LIBS=" + req.Libraries.ComplinkRemote,
		"-DCOMPLINK_LOCAL_LIBS=" + req.Libraries.ComplinkLocal,
		"-DCOMPLINK_PATCH_LIBS=" + req.Libraries.ComplinkPatch,
	}
	args = append(args, c.ExtraArgs...)
	return append(args, "-P", filepath.Join(c.ResourceDir, ConfigureScript)), nil
}

// Configure runs the configure script. Output lines other than the two
// path markers are written to log. The context is only checked before the
// tool starts; a running configure is never interrupted.
func (c *CMake) Configure(ctx context.Context, req Request, out io.Writer) (Result, error) {
	if err := ctx.Err(); err != nil {
		return Result{}, err
	}
	args, err := c.Args(req)
	if err != nil {
		return Result{}, err
	}

	var res Result
	markers := 0
	err = c.run(args, c.configureEnv(), func(line string) {
		value, ok := parseMarker(line)
		if !ok {
			writeLine(out, line)
			return
		}
		switch markers {
		case 0:
			res.SketchDir = value
		case 1:
			res.Binary = value
		default:
			writeLine(out, line)
		}
		markers++
	})
	if err != nil {
		return Result{}, err
	}
	if markers < 2 {
		return Result{}, fmt.Errorf("%w: got %d of 2", ErrMissingMarkers, markers)
	}
	return res, nil
}

// Build compiles a configured sketch. It succeeds only when cmake exits
// zero and res.Binary exists afterwards.
func (c *CMake) Build(ctx context.Context, res Result, out io.Writer) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	var env []string
	if platform.IsWindows() {
		// Keep MSBuild from parking worker nodes that outlive the build.
		env = append(env, "MSBUILDDISABLENODEREUSE=1")
	}
	err := c.run([]string{"--build", filepath.Join(res.SketchDir, "build")}, env, func(line string) {
		writeLine(out, line)
	})
	if err != nil {
		return err
	}
	if _, err := os.Stat(res.Binary); err != nil {
		return fmt.Errorf("%w: %s", ErrMissingBinary, res.Binary)
	}
	return nil
}

func (c *CMake) executable() string {
	if c.Path == "" {
		return "cmake"
	}
	return c.Path
}

func (c *CMake) configureEnv() []string {
	if platform.IsWindows() {
		return nil
	}
	gen := c.Generator
	if gen == "" {
		gen = os.Getenv(GeneratorEnvVar)
	}
	if gen == "" {
		if _, err := exec.LookPath("ninja"); err == nil {
			gen = defaultGenerator
		}
	}
	if gen == "" {
		return nil
	}
	return []string{GeneratorEnvVar + "=" + gen}
}

// run executes cmake with stdout and stderr merged, calling onLine for
// each output line as it arrives.
func (c *CMake) run(args, env []string, onLine func(string)) error {
	exe := c.executable()
	cmd := exec.Command(exe, args...)
	cmd.Env = append(os.Environ(), env...)
	out, err := cmd.StdoutPipe()
	if err != nil {
		return fmt.Errorf("create output pipe: %w", err)
	}
	cmd.Stderr = cmd.Stdout

	if c.Logger != nil {
		c.Logger.Debug("running build tool", "cmd", exe, "args", args)
	}
	if err := cmd.Start(); err != nil {
		return fmt.Errorf("start %s: %w", exe, err)
	}

	readErr := readLines(out, onLine)
	if readErr != nil {
		// Keep the pipe drained so cmake cannot block on a full buffer.
		_, _ = io.Copy(io.Discard, out)
	}

	if err := cmd.Wait(); err != nil {
		var exitErr *exec.ExitError
		if errors.As(err, &exitErr) {
			return fmt.Errorf("%w: %s exited with code %d", ErrBuildToolFailed, exe, exitErr.ExitCode())
		}
		return fmt.Errorf("wait for %s: %w", exe, err)
	}
	if readErr != nil {
		return fmt.Errorf("read %s output: %w", exe, readErr)
	}
	return nil
}

// readLines calls onLine for each line of r without its line ending.
// Lines longer than maxLineLength are cut there and the rest of that line
// is dropped; reading carries on with the next line.
func readLines(r io.Reader, onLine func(string)) error {
	br := bufio.NewReaderSize(r, 64*1024)
	var line []byte
	for {
		chunk, more, err := br.ReadLine()
		if room := maxLineLength - len(line); len(chunk) > room {
			chunk = chunk[:room]
		}
		line = append(line, chunk...)
		if err != nil {
			if errors.Is(err, io.EOF) {
				return nil
			}
			return err
		}
		if !more {
			onLine(string(line))
			line = line[:0]
		}
	}
}

// parseMarker extracts the quoted value from a marker line.
func parseMarker(line string) (string, bool) {
	rest, ok := strings.CutPrefix(line, MarkerPrefix)
	if !ok {
		return "", false
	}
	i := strings.IndexByte(rest, '"')
	if i < 0 {
		return "", false
	}
	return strings.TrimSuffix(rest[i+1:], `"`), true
}

func writeLine(w io.Writer, line string) {
	_, _ = io.WriteString(w, line+"\n")
}
