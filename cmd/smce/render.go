// SPDX-License-Identifier: MPL-2.0

package cmd

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/glamour"

	"smce-runner/internal/boarddata"
	"smce-runner/internal/boardview"
)

const renderWidth = 100

// snapshotMarkdown lays a board snapshot out as Markdown tables.
func snapshotMarkdown(s boardview.Snapshot) string {
	var b strings.Builder
	fmt.Fprintf(&b, "# %s\n\n", orDash(s.FQBN))

	if len(s.Pins) > 0 {
		b.WriteString("## Pins\n\n| id | caps | active | direction | digital | analog |\n|---|---|---|---|---|---|\n")
		for _, p := range s.Pins {
			fmt.Fprintf(&b, "| %d | %s | %t | %s | %t | %d |\n",
				p.ID, capsString(p.Caps), p.Active, p.Direction, p.Digital, p.Analog)
		}
		b.WriteString("\n")
	}

	if len(s.UARTs) > 0 {
		b.WriteString("## Serial\n\n| # | baud | active | rx | tx |\n|---|---|---|---|---|\n")
		for i, u := range s.UARTs {
			fmt.Fprintf(&b, "| %d | %d | %t | %d/%d | %d/%d |\n",
				i, u.BaudRate, u.Active, u.RxBuffered, u.MaxRx, u.TxBuffered, u.MaxTx)
		}
		b.WriteString("\n")
	}

	if len(s.Storages) > 0 {
		b.WriteString("## Storage\n\n| bus | accessor | root |\n|---|---|---|\n")
		for _, st := range s.Storages {
			fmt.Fprintf(&b, "| %s | %d | `%s` |\n", st.Bus, st.Accessor, st.RootDir)
		}
		b.WriteString("\n")
	}

	if len(s.FrameBuffers) > 0 {
		b.WriteString("## Frame buffers\n\n| key | direction | active | freq | max size |\n|---|---|---|---|---|\n")
		for _, fb := range s.FrameBuffers {
			fmt.Fprintf(&b, "| %d | %s | %t | %d | %dx%d |\n",
				fb.Key, fb.Direction, fb.Active, fb.Freq, fb.MaxWidth, fb.MaxHeight)
		}
		b.WriteString("\n")
	}
	return b.String()
}

// renderMarkdown styles md for the terminal, falling back to the source
// when rendering fails.
func renderMarkdown(md string) string {
	r, err := glamour.NewTermRenderer(glamour.WithAutoStyle(), glamour.WithWordWrap(renderWidth))
	if err != nil {
		return md
	}
	out, err := r.Render(md)
	if err != nil {
		return md
	}
	return out
}

func capsString(c boarddata.Capability) string {
	var parts []string
	for _, f := range []struct {
		flag boarddata.Capability
		name string
	}{
		{boarddata.CapAnalogRead, "ar"},
		{boarddata.CapAnalogWrite, "aw"},
		{boarddata.CapDigitalRead, "dr"},
		{boarddata.CapDigitalWrite, "dw"},
	} {
		if c.Has(f.flag) {
			parts = append(parts, f.name)
		}
	}
	if len(parts) == 0 {
		return "-"
	}
	return strings.Join(parts, ",")
}

func orDash(s string) string {
	if s == "" {
		return "-"
	}
	return s
}
