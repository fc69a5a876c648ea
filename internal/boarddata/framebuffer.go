// SPDX-License-Identifier: MPL-2.0

package boarddata

import (
	"errors"
	"fmt"
	"runtime"
	"sync/atomic"

	"smce-runner/internal/boardconf"
)

// ErrFrameTooLarge is returned when a frame exceeds the buffer's capacity.
var ErrFrameTooLarge = errors.New("frame exceeds frame buffer capacity")

const (
	dirIn  uint32 = 0
	dirOut uint32 = 1
)

// FrameBuffer is a camera or display surface holding one RGB888 frame.
// Writers bump a sequence counter around each update so readers can detect
// and retry torn reads. There is a single writer per buffer. The zero value
// is an empty buffer.
type FrameBuffer struct {
	rec *frameRecord
	mem []byte
}

// Key returns the consumer-assigned identifier.
func (f FrameBuffer) Key() uint64 {
	if f.rec == nil {
		return 0
	}
	return f.rec.Key
}

// Direction reports which side produces pixels.
func (f FrameBuffer) Direction() boardconf.Direction {
	if f.rec != nil && f.rec.Direction == dirOut {
		return boardconf.DirectionOut
	}
	return boardconf.DirectionIn
}

// Active reports whether the producer has started streaming.
func (f FrameBuffer) Active() bool {
	return f.rec != nil && atomic.LoadUint32(&f.rec.Active) != 0
}

// SetActive starts or stops the stream.
func (f FrameBuffer) SetActive(active bool) {
	if f.rec != nil {
		atomic.StoreUint32(&f.rec.Active, boolWord(active))
	}
}

// Freq returns the frame rate requested by the producer.
func (f FrameBuffer) Freq() uint32 {
	if f.rec == nil {
		return 0
	}
	return atomic.LoadUint32(&f.rec.Freq)
}

// SetFreq sets the frame rate.
func (f FrameBuffer) SetFreq(hz uint32) {
	if f.rec != nil {
		atomic.StoreUint32(&f.rec.Freq, hz)
	}
}

// MaxSize returns the largest frame the buffer holds.
func (f FrameBuffer) MaxSize() (width, height int) {
	if f.rec == nil {
		return 0, 0
	}
	return int(f.rec.MaxWidth), int(f.rec.MaxHeight)
}

// Capacity returns the pixel storage size in bytes.
func (f FrameBuffer) Capacity() int {
	if f.rec == nil {
		return 0
	}
	return int(f.rec.Pixels.Len)
}

// Seq returns the sequence counter. It is even while no write is in progress.
func (f FrameBuffer) Seq() uint32 {
	if f.rec == nil {
		return 0
	}
	return atomic.LoadUint32(&f.rec.Seq)
}

// WriteFrame stores a width×height RGB888 frame.
func (f FrameBuffer) WriteFrame(width, height int, pixels []byte) error {
	if f.rec == nil {
		return fmt.Errorf("%w: no frame buffer", ErrFrameTooLarge)
	}
	if width < 0 || height < 0 || width > int(f.rec.MaxWidth) || height > int(f.rec.MaxHeight) {
		return fmt.Errorf("%w: %dx%d, max %dx%d", ErrFrameTooLarge, width, height, f.rec.MaxWidth, f.rec.MaxHeight)
	}
	if want := width * height * bytesPerPixel; len(pixels) != want {
		return fmt.Errorf("frame of %dx%d needs %d bytes, got %d", width, height, want, len(pixels))
	}

	seq := atomic.AddUint32(&f.rec.Seq, 1)
	copy(f.rec.Pixels.bytes(f.mem), pixels)
	atomic.StoreUint32(&f.rec.Width, uint32(width))
	atomic.StoreUint32(&f.rec.Height, uint32(height))
	atomic.StoreUint32(&f.rec.Len, uint32(len(pixels)))
	atomic.StoreUint32(&f.rec.Seq, seq+1)
	return nil
}

// ReadFrame copies the latest complete frame, appending its pixels to
// dst[:0]. It retries while a write is in progress.
func (f FrameBuffer) ReadFrame(dst []byte) (width, height int, pixels []byte) {
	if f.rec == nil {
		return 0, 0, dst[:0]
	}
	for {
		before := atomic.LoadUint32(&f.rec.Seq)
		if before&1 != 0 {
			runtime.Gosched()
			continue
		}
		width = int(atomic.LoadUint32(&f.rec.Width))
		height = int(atomic.LoadUint32(&f.rec.Height))
		n := min(atomic.LoadUint32(&f.rec.Len), f.rec.Pixels.Len)
		pixels = append(dst[:0], ref{Off: f.rec.Pixels.Off, Len: n}.bytes(f.mem)...)
		if atomic.LoadUint32(&f.rec.Seq) == before {
			return width, height, pixels
		}
	}
}

func encodeDirection(d boardconf.Direction) uint32 {
	if d == boardconf.DirectionOut {
		return dirOut
	}
	return dirIn
}
