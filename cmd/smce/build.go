// SPDX-License-Identifier: MPL-2.0

package cmd

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"smce-runner/internal/boardconf"
	"smce-runner/internal/config"
	"smce-runner/internal/issue"
	"smce-runner/internal/runner"
)

// newBuildCommand creates `smce build`.
func newBuildCommand(app *App, g *globalOptions) *cobra.Command {
	in := &sketchInputs{}
	cmd := &cobra.Command{
		Use:   "build <sketch>",
		Short: "Compile a sketch for the host",
		Long: `Compile a sketch for the host.

The board segment is created for the duration of the build and removed
afterwards; the compiled binary stays in the generated sketch directory.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := app.loadConfig(cmd.Context(), g)
			if err != nil {
				return err
			}
			r, _, err := prepare(cmd.Context(), app, g, cfg, in, args[0])
			if err != nil {
				return err
			}
			fmt.Fprintln(app.stdout, step("built", r.SketchBinary()))
			return r.Detach()
		},
	}
	in.register(cmd)
	return cmd
}

// prepare loads the sketch inputs, configures a runner with opts and
// builds the sketch. The build log is echoed to stderr in verbose mode, and
// always when the build fails.
func prepare(ctx context.Context, app *App, g *globalOptions, cfg *config.Config, in *sketchInputs, sketchArg string, opts ...runner.Option) (*runner.Runner, boardconf.SketchConfig, error) {
	in.applyOverrides(cfg)

	sketchPath, err := resolveSketch(sketchArg)
	if err != nil {
		return nil, boardconf.SketchConfig{}, err
	}
	board, sketch, fqbn, err := in.load()
	if err != nil {
		return nil, boardconf.SketchConfig{}, err
	}
	tc, err := app.NewToolchain(cfg, app.newLogger("build", cfg, g))
	if err != nil {
		return nil, boardconf.SketchConfig{}, err
	}

	opts = append([]runner.Option{runner.WithLogger(app.newLogger("runner", cfg, g))}, opts...)
	r := runner.New(tc, opts...)
	if !r.Configure(fqbn, board) {
		_ = r.Close()
		return nil, boardconf.SketchConfig{}, runnerFailure(r, "configure board", issue.SegmentCreateFailedId, r.SegmentName())
	}
	fmt.Fprintln(app.stderr, step("configured", r.SegmentName()))

	ok := r.Build(ctx, sketchPath, sketch)
	if !ok || g.verbose {
		fmt.Fprint(app.stderr, r.BuildLog())
	}
	if !ok {
		_ = r.Close()
		return nil, boardconf.SketchConfig{}, runnerFailure(r, "build sketch", issue.BuildFailedId, sketchPath)
	}
	return r, sketch, nil
}
