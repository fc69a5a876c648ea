// SPDX-License-Identifier: MPL-2.0

package cmd

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/charmbracelet/fang"
	"github.com/spf13/cobra"

	"smce-runner/internal/issue"
)

var (
	// Version is the semantic version (set via -ldflags).
	Version = "dev"
	// Commit is the git commit hash (set via -ldflags).
	Commit = "unknown"
	// BuildDate is the build timestamp (set via -ldflags).
	BuildDate = "unknown"
)

// newRootCommand assembles the command tree around app.
func newRootCommand(app *App) *cobra.Command {
	g := &globalOptions{}
	root := &cobra.Command{
		Use:   "smce",
		Short: "Build and run Arduino sketches against a simulated board",
		Long: TitleStyle.Render("smce") + SubtitleStyle.Render(" - host-side sketch runner") + `

smce compiles an Arduino sketch for the host, publishes a simulated board
in shared memory and runs the sketch against it.

` + SubtitleStyle.Render("Examples:") + `
  smce build ./Blink --board board.cue --fqbn arduino:avr:uno
  smce run ./Blink --board board.cue --fqbn arduino:avr:uno --watch
  smce inspect --board board.cue
  smce config init`,
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.SetOut(app.stdout)
	root.SetErr(app.stderr)

	root.PersistentFlags().BoolVarP(&g.verbose, "verbose", "v", false, "enable verbose output")
	root.PersistentFlags().StringVar(&g.configPath, "config", "", "config file (default is $XDG_CONFIG_HOME/smce/config.cue)")

	root.AddCommand(
		newBuildCommand(app, g),
		newRunCommand(app, g),
		newInspectCommand(app, g),
		newConfigCommand(app, g),
	)
	return root
}

// getVersionString returns a formatted version string for display.
func getVersionString() string {
	if Version == "dev" {
		return "dev (built from source)"
	}
	return fmt.Sprintf("%s (commit: %s, built: %s)", Version, Commit, BuildDate)
}

// Execute runs the CLI and exits the process with the resulting status.
func Execute() {
	app := NewApp(Dependencies{})
	os.Exit(run(context.Background(), app, os.Args[1:]))
}

// run executes the command tree and returns the process exit status.
func run(ctx context.Context, app *App, args []string) int {
	root := newRootCommand(app)
	root.SetArgs(args)

	err := fang.Execute(
		ctx,
		root,
		fang.WithVersion(getVersionString()),
		fang.WithNotifySignal(os.Interrupt),
		fang.WithErrorHandler(func(w io.Writer, _ fang.Styles, err error) {
			var exitErr *ExitError
			if errors.As(err, &exitErr) && exitErr.Err == nil {
				return
			}
			verbose, _ := root.PersistentFlags().GetBool("verbose")
			fmt.Fprintln(w, formatErrorForDisplay(err, verbose))
		}),
	)
	if err == nil {
		return 0
	}
	var exitErr *ExitError
	if errors.As(err, &exitErr) {
		return exitErr.processStatus()
	}
	return 1
}

// formatErrorForDisplay renders ActionableErrors with their suggestions and,
// in verbose mode, the linked guide.
func formatErrorForDisplay(err error, verbose bool) string {
	var ae *issue.ActionableError
	if !errors.As(err, &ae) {
		return ErrorStyle.Render("Error: ") + err.Error()
	}
	out := ErrorStyle.Render("Error: ") + ae.Format(verbose)
	if guide := ae.Guide(); guide != nil && verbose {
		if md, rerr := guide.Render("auto"); rerr == nil {
			out += "\n" + md
		}
	}
	return out
}
