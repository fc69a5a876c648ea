// SPDX-License-Identifier: MPL-2.0

package boarddata

import (
	"bytes"
	"errors"
	"sync/atomic"
	"testing"

	"smce-runner/internal/boardconf"
)

func TestFrameBufferRoundTrip(t *testing.T) {
	t.Parallel()

	b := build(t, "", boardconf.BoardConfig{
		FrameBuffers: []boardconf.FrameBuffer{{Key: 1, Direction: boardconf.DirectionIn, MaxWidth: 4, MaxHeight: 4}},
	})
	fb, _ := b.FrameBuffer(1)

	if w, h, px := fb.ReadFrame(nil); w != 0 || h != 0 || len(px) != 0 {
		t.Errorf("fresh buffer = %dx%d (%d bytes)", w, h, len(px))
	}

	frame := bytes.Repeat([]byte{0xff, 0x80, 0x00}, 2*3)
	if err := fb.WriteFrame(2, 3, frame); err != nil {
		t.Fatalf("WriteFrame() error = %v", err)
	}
	if fb.Seq()%2 != 0 || fb.Seq() == 0 {
		t.Errorf("Seq() = %d, want even and non-zero", fb.Seq())
	}

	w, h, px := fb.ReadFrame(make([]byte, 0, 64))
	if w != 2 || h != 3 || !bytes.Equal(px, frame) {
		t.Errorf("ReadFrame() = %dx%d %x", w, h, px)
	}

	fb.SetFreq(30)
	if fb.Freq() != 30 {
		t.Errorf("Freq() = %d, want 30", fb.Freq())
	}
}

func TestFrameBufferRejects(t *testing.T) {
	t.Parallel()

	b := build(t, "", boardconf.BoardConfig{
		FrameBuffers: []boardconf.FrameBuffer{{Key: 1, Direction: boardconf.DirectionOut, MaxWidth: 2, MaxHeight: 2}},
	})
	fb := b.FrameBuffers()[0]

	if err := fb.WriteFrame(3, 1, make([]byte, 9)); !errors.Is(err, ErrFrameTooLarge) {
		t.Errorf("oversized frame: error = %v", err)
	}
	if err := fb.WriteFrame(2, 2, make([]byte, 5)); err == nil {
		t.Error("short pixel slice should be rejected")
	}
	if fb.Seq() != 0 {
		t.Errorf("rejected writes bumped Seq() to %d", fb.Seq())
	}
}

func TestFrameBufferCorruptLength(t *testing.T) {
	t.Parallel()

	b := build(t, "", boardconf.BoardConfig{
		FrameBuffers: []boardconf.FrameBuffer{{Key: 1, Direction: boardconf.DirectionOut, MaxWidth: 2, MaxHeight: 2}},
	})
	fb := b.FrameBuffers()[0]
	if err := fb.WriteFrame(2, 2, make([]byte, 12)); err != nil {
		t.Fatalf("WriteFrame() error = %v", err)
	}
	atomic.StoreUint32(&fb.rec.Len, 1<<30)

	if _, _, px := fb.ReadFrame(nil); len(px) > int(fb.rec.Pixels.Len) {
		t.Errorf("ReadFrame() returned %d bytes, storage holds %d", len(px), fb.rec.Pixels.Len)
	}
}
