// SPDX-License-Identifier: MPL-2.0

package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"smce-runner/internal/config"
)

// newConfigCommand creates the `smce config` command tree.
func newConfigCommand(app *App, g *globalOptions) *cobra.Command {
	cfgCmd := &cobra.Command{
		Use:   "config",
		Short: "Manage smce configuration",
		Long: `Manage smce configuration.

Configuration is stored in:
  - Linux: ~/.config/smce/config.cue
  - macOS: ~/Library/Application Support/smce/config.cue
  - Windows: %APPDATA%\smce\config.cue

A config.cue in the working directory is used when none of those exist.`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return cmd.Help()
		},
	}

	cfgCmd.AddCommand(&cobra.Command{
		Use:   "show",
		Short: "Print the effective configuration as CUE",
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := app.loadConfig(cmd.Context(), g)
			if err != nil {
				return err
			}
			fmt.Fprint(app.stdout, config.GenerateCUE(cfg))
			return nil
		},
	})

	cfgCmd.AddCommand(&cobra.Command{
		Use:   "init",
		Short: "Write a default configuration file",
		RunE: func(_ *cobra.Command, _ []string) error {
			path := g.configPath
			if path == "" {
				var err error
				if path, err = config.DefaultPath(""); err != nil {
					return err
				}
			}
			if err := config.Init(path); err != nil {
				return err
			}
			fmt.Fprintln(app.stdout, step("wrote", path))
			return nil
		},
	})

	cfgCmd.AddCommand(&cobra.Command{
		Use:   "path",
		Short: "Show which configuration file is in effect",
		RunE: func(_ *cobra.Command, _ []string) error {
			path, err := config.Resolve(config.LoadOptions{ConfigFilePath: g.configPath})
			if err != nil {
				return err
			}
			if path == "" {
				def, derr := config.DefaultPath("")
				if derr != nil {
					return derr
				}
				fmt.Fprintln(app.stdout, SubtitleStyle.Render("(defaults; no file at "+def+")"))
				return nil
			}
			fmt.Fprintln(app.stdout, path)
			return nil
		},
	})

	return cfgCmd
}
