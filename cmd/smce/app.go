// SPDX-License-Identifier: MPL-2.0

package cmd

import (
	"context"
	"io"
	"os"

	"github.com/charmbracelet/log"

	"smce-runner/internal/config"
	"smce-runner/internal/runner"
)

type (
	// App wires CLI services and shared dependencies. Cobra handlers receive
	// it and never reach for globals.
	App struct {
		Config config.Provider
		// NewToolchain builds the sketch compiler for a loaded configuration.
		NewToolchain func(cfg *config.Config, logger *log.Logger) (runner.Toolchain, error)
		stdout       io.Writer
		stderr       io.Writer
	}

	// Dependencies defines the injection points for building an App. Nil
	// fields are replaced with production defaults by NewApp.
	Dependencies struct {
		Config       config.Provider
		NewToolchain func(cfg *config.Config, logger *log.Logger) (runner.Toolchain, error)
		Stdout       io.Writer
		Stderr       io.Writer
	}

	// globalOptions are the persistent root flags.
	globalOptions struct {
		verbose    bool
		configPath string
	}
)

// NewApp creates an App with defaults for omitted dependencies.
func NewApp(deps Dependencies) *App {
	if deps.Stdout == nil {
		deps.Stdout = os.Stdout
	}
	if deps.Stderr == nil {
		deps.Stderr = os.Stderr
	}
	if deps.Config == nil {
		deps.Config = config.NewProvider()
	}
	if deps.NewToolchain == nil {
		deps.NewToolchain = newCMakeToolchain
	}
	return &App{
		Config:       deps.Config,
		NewToolchain: deps.NewToolchain,
		stdout:       deps.Stdout,
		stderr:       deps.Stderr,
	}
}

// loadConfig loads configuration honoring --config.
func (a *App) loadConfig(ctx context.Context, g *globalOptions) (*config.Config, error) {
	return a.Config.Load(ctx, config.LoadOptions{ConfigFilePath: g.configPath})
}

// newLogger returns a component logger on stderr at the configured level,
// or debug when --verbose is set.
func (a *App) newLogger(prefix string, cfg *config.Config, g *globalOptions) *log.Logger {
	level := cfg.LogLevel.Level()
	if g.verbose {
		level = log.DebugLevel
	}
	return log.NewWithOptions(a.stderr, log.Options{
		Prefix:          prefix,
		Level:           level,
		ReportTimestamp: g.verbose,
	})
}
