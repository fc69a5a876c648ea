// SPDX-License-Identifier: MPL-2.0

package cmd

import (
	"strings"
	"testing"

	"smce-runner/internal/boardconf"
	"smce-runner/internal/boarddata"
	"smce-runner/internal/boardview"
)

func TestSnapshotMarkdown(t *testing.T) {
	t.Parallel()

	snap := boardview.Snapshot{
		FQBN: "arduino:avr:uno",
		Pins: []boardview.PinState{
			{ID: 5, Caps: boarddata.CapDigitalRead | boarddata.CapDigitalWrite, Active: true, Direction: boarddata.DirectionOutput, Digital: true},
			{ID: 9, Caps: boarddata.CapAnalogRead, Analog: 512},
		},
		UARTs: []boardview.UARTState{{BaudRate: 9600, Active: true, RxBuffered: 3, MaxRx: 64, TxBuffered: 0, MaxTx: 64}},
		FrameBuffers: []boardview.FrameBufferState{
			{Key: 1, Direction: boardconf.DirectionIn, Freq: 30, MaxWidth: 320, MaxHeight: 240},
		},
	}

	md := snapshotMarkdown(snap)
	for _, want := range []string{
		"# arduino:avr:uno",
		"| 5 | dr,dw | true | output | true | 0 |",
		"| 9 | ar | false | input | false | 512 |",
		"| 0 | 9600 | true | 3/64 | 0/64 |",
		"| 1 | in | false | 30 | 320x240 |",
	} {
		if !strings.Contains(md, want) {
			t.Errorf("snapshotMarkdown() missing %q in:\n%s", want, md)
		}
	}
	if strings.Contains(md, "## Storage") {
		t.Errorf("empty storage section rendered:\n%s", md)
	}
}

func TestSnapshotMarkdownEmpty(t *testing.T) {
	t.Parallel()

	if got := snapshotMarkdown(boardview.Snapshot{}); got != "# -\n\n" {
		t.Errorf("snapshotMarkdown(empty) = %q", got)
	}
}

func TestCapsString(t *testing.T) {
	t.Parallel()

	tests := []struct {
		caps boarddata.Capability
		want string
	}{
		{0, "-"},
		{boarddata.CapAnalogWrite, "aw"},
		{boarddata.CapAnalogRead | boarddata.CapDigitalWrite, "ar,dw"},
	}
	for _, tt := range tests {
		if got := capsString(tt.caps); got != tt.want {
			t.Errorf("capsString(%d) = %q, want %q", tt.caps, got, tt.want)
		}
	}
}
