// SPDX-License-Identifier: MPL-2.0

package cmd

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"sync/atomic"

	"github.com/spf13/cobra"

	"smce-runner/internal/boardview"
	"smce-runner/internal/issue"
	"smce-runner/internal/sharedboard"
)

var inspectSeq atomic.Uint64

// newInspectCommand creates `smce inspect`.
func newInspectCommand(app *App, _ *globalOptions) *cobra.Command {
	in := &sketchInputs{}
	var raw bool
	cmd := &cobra.Command{
		Use:   "inspect",
		Short: "Show the board model a descriptor produces",
		Long: `Show the board model a descriptor produces.

The board is built in a throwaway shared-memory segment, read back through
the same view a running sketch would see, and printed.`,
		Args: cobra.NoArgs,
		RunE: func(_ *cobra.Command, _ []string) (rerr error) {
			if in.fqbn == "" && in.libsPath == "" {
				in.fqbn = "inspect"
			}
			board, _, fqbn, err := in.load()
			if err != nil {
				return err
			}

			m := sharedboard.New()
			name := "SMCE-Inspect-" + strconv.Itoa(os.Getpid()) + "-" + strconv.FormatUint(inspectSeq.Add(1), 10)
			if err := m.Configure(name, fqbn, board); err != nil {
				return issue.NewErrorContext().
					WithOperation("build board model").
					WithResource(in.boardPath).
					WithIssue(issue.SegmentCreateFailedId).
					Wrap(err).
					BuildError()
			}
			defer func() { rerr = errors.Join(rerr, m.Reset()) }()

			md := snapshotMarkdown(boardview.New(m.Board()).Snapshot())
			if raw {
				fmt.Fprint(app.stdout, md)
				return nil
			}
			fmt.Fprint(app.stdout, renderMarkdown(md))
			return nil
		},
	}
	in.register(cmd)
	cmd.Flags().BoolVar(&raw, "raw", false, "print Markdown without terminal styling")
	_ = cmd.Flags().MarkHidden("resource-dir")
	return cmd
}
