// SPDX-License-Identifier: MPL-2.0

package cmd

import (
	"errors"
	"os"
	"os/exec"
	"path/filepath"

	"github.com/charmbracelet/log"
	"github.com/spf13/cobra"

	"smce-runner/internal/boardconf"
	"smce-runner/internal/config"
	"smce-runner/internal/issue"
	"smce-runner/internal/runner"
	"smce-runner/internal/sketchbuild"
)

// sketchInputs are the flags shared by build and run.
type sketchInputs struct {
	boardPath   string
	fqbn        string
	libsPath    string
	resourceDir string
}

func (in *sketchInputs) register(cmd *cobra.Command) {
	cmd.Flags().StringVarP(&in.boardPath, "board", "b", "", "board descriptor (.cue or .toml)")
	cmd.Flags().StringVar(&in.fqbn, "fqbn", "", "fully qualified board name, e.g. arduino:avr:uno (default from the library file)")
	cmd.Flags().StringVar(&in.libsPath, "libs", "", "library list (.cue or .toml)")
	cmd.Flags().StringVar(&in.resourceDir, "resource-dir", "", "SMCE resource directory (overrides resource_dir)")
	_ = cmd.MarkFlagRequired("board")
	_ = cmd.MarkFlagFilename("board", "cue", "toml")
	_ = cmd.MarkFlagFilename("libs", "cue", "toml")
	_ = cmd.MarkFlagDirname("resource-dir")
}

// load reads the board descriptor and library list and settles the FQBN.
func (in *sketchInputs) load() (boardconf.BoardConfig, boardconf.SketchConfig, string, error) {
	board, err := boardconf.Load(in.boardPath)
	if err != nil {
		return boardconf.BoardConfig{}, boardconf.SketchConfig{}, "", issue.NewErrorContext().
			WithOperation("load board descriptor").
			WithResource(in.boardPath).
			WithSuggestion("Run 'smce inspect --board " + in.boardPath + "' after fixing it to check the model").
			WithIssue(issue.BoardConfigInvalidId).
			Wrap(err).
			BuildError()
	}

	var sketch boardconf.SketchConfig
	if in.libsPath != "" {
		loaded, err := boardconf.LoadSketchConfig(in.libsPath)
		if err != nil {
			return boardconf.BoardConfig{}, boardconf.SketchConfig{}, "", issue.NewErrorContext().
				WithOperation("load library list").
				WithResource(in.libsPath).
				WithIssue(issue.SketchConfigInvalidId).
				Wrap(err).
				BuildError()
		}
		sketch = *loaded
	}

	fqbn := in.fqbn
	if fqbn == "" {
		fqbn = sketch.FQBN
	}
	if fqbn == "" {
		return boardconf.BoardConfig{}, boardconf.SketchConfig{}, "", issue.NewErrorContext().
			WithOperation("select board").
			WithSuggestion("Pass --fqbn, e.g. --fqbn arduino:avr:uno").
			WithSuggestion("Or set fqbn in the library file given to --libs").
			Wrap(errors.New("no FQBN given")).
			BuildError()
	}
	return *board, sketch, fqbn, nil
}

// resolveSketch returns the absolute sketch path, which must exist.
func resolveSketch(path string) (string, error) {
	abs, err := filepath.Abs(path)
	if err == nil {
		_, err = os.Stat(abs)
	}
	if err != nil {
		return "", issue.NewErrorContext().
			WithOperation("find sketch").
			WithResource(path).
			WithIssue(issue.SketchNotFoundId).
			Wrap(err).
			BuildError()
	}
	return abs, nil
}

// watchRoots are the sketch plus every local library directory.
func watchRoots(sketchPath string, sketch boardconf.SketchConfig) []string {
	roots := []string{sketchPath}
	for _, lib := range sketch.ComplinkLibs {
		if local, ok := lib.(boardconf.LocalLibrary); ok {
			roots = append(roots, local.RootDir)
		}
	}
	return roots
}

// applyOverrides folds command flags into the loaded configuration.
func (in *sketchInputs) applyOverrides(cfg *config.Config) {
	if in.resourceDir != "" {
		cfg.ResourceDir = in.resourceDir
	}
}

// newCMakeToolchain checks the resource tree and cmake before any shared
// memory is created.
func newCMakeToolchain(cfg *config.Config, logger *log.Logger) (runner.Toolchain, error) {
	if cfg.ResourceDir == "" {
		return nil, issue.NewErrorContext().
			WithOperation("locate SMCE resources").
			WithSuggestion("Pass --resource-dir or set resource_dir in the config file").
			WithIssue(issue.ResourceDirNotFoundId).
			Wrap(errors.New("no resource directory configured")).
			BuildError()
	}
	script := filepath.Join(cfg.ResourceDir, sketchbuild.ConfigureScript)
	if _, err := os.Stat(script); err != nil {
		return nil, issue.NewErrorContext().
			WithOperation("locate SMCE resources").
			WithResource(cfg.ResourceDir).
			WithIssue(issue.ResourceDirNotFoundId).
			Wrap(err).
			BuildError()
	}

	cmakePath, err := exec.LookPath(cfg.CMakePath)
	if err != nil {
		return nil, issue.NewErrorContext().
			WithOperation("find cmake").
			WithResource(cfg.CMakePath).
			WithIssue(issue.CMakeNotFoundId).
			Wrap(err).
			BuildError()
	}

	extra, err := sketchbuild.ParseExtraArgs(cfg.Build.ExtraArgs)
	if err != nil {
		return nil, issue.NewErrorContext().
			WithOperation("parse build.extra_args").
			WithResource(cfg.Build.ExtraArgs).
			WithSuggestion("Quote arguments the way a POSIX shell would").
			Wrap(err).
			BuildError()
	}

	return &sketchbuild.CMake{
		Path:        cmakePath,
		ResourceDir: cfg.ResourceDir,
		Generator:   cfg.CMakeGenerator,
		ExtraArgs:   extra,
		Logger:      logger,
	}, nil
}

// runnerFailure turns a failed runner operation into a user-facing error.
func runnerFailure(r *runner.Runner, op string, id issue.Id, resource string) error {
	return issue.NewErrorContext().
		WithOperation(op).
		WithResource(resource).
		WithIssue(id).
		Wrap(r.LastError()).
		BuildError()
}
