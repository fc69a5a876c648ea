// SPDX-License-Identifier: MPL-2.0

package shm

import (
	"errors"
	"fmt"
)

// ErrOutOfSpace is returned when an Arena cannot satisfy an allocation.
var ErrOutOfSpace = errors.New("shared memory segment out of space")

type (
	// Offset is a byte position relative to the start of a segment. It is the
	// only form of reference that may be stored inside shared memory.
	Offset uint32

	// Arena hands out non-overlapping, aligned ranges of a segment. It only
	// grows; everything is released together when the segment is discarded.
	// An Arena is not safe for concurrent use.
	Arena struct {
		mem  []byte
		next int
	}
)

// NewArena returns an allocator over mem, starting at offset 0.
func NewArena(mem []byte) *Arena {
	return &Arena{mem: mem}
}

// Alloc reserves size bytes aligned to align (a power of two) and returns
// their offset. The bytes are zeroed.
func (a *Arena) Alloc(size, align int) (Offset, error) {
	if size < 0 {
		return 0, fmt.Errorf("%w: negative allocation %d", ErrOutOfSpace, size)
	}
	start := AlignUp(a.next, align)
	end := start + size
	if end > len(a.mem) {
		return 0, fmt.Errorf("%w: need %d bytes at %d, segment has %d", ErrOutOfSpace, size, start, len(a.mem))
	}
	clear(a.mem[start:end])
	a.next = end
	return Offset(start), nil
}

// Bytes returns the n bytes at off.
func (a *Arena) Bytes(off Offset, n int) []byte {
	return a.mem[int(off) : int(off)+n : int(off)+n]
}

// Mem returns the whole region the arena allocates from.
func (a *Arena) Mem() []byte { return a.mem }

// Used returns the number of bytes handed out so far, including padding.
func (a *Arena) Used() int { return a.next }

// AlignUp rounds n up to a multiple of align, which must be a power of two.
func AlignUp(n, align int) int {
	if align <= 1 {
		return n
	}
	return (n + align - 1) &^ (align - 1)
}
