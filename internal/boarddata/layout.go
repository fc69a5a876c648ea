// SPDX-License-Identifier: MPL-2.0

package boarddata

import (
	"errors"
	"unsafe"

	"smce-runner/internal/shm"
)

const (
	// Magic identifies a board segment ("SMCE" little-endian).
	Magic uint32 = 0x45434d53
	// LayoutVersion changes whenever a record layout changes.
	LayoutVersion uint32 = 1

	// noPin marks an absent UART pin override.
	noPin uint32 = 0xFFFFFFFF

	recordAlign = 8
)

// ErrInvalidLayout is returned when a mapping does not hold a board model.
var ErrInvalidLayout = errors.New("invalid board layout")

type (
	// ref locates a string or table inside the segment. For tables Len is
	// the element count, for strings the byte length.
	ref struct {
		Off shm.Offset
		Len uint32
	}

	header struct {
		Magic        uint32
		Version      uint32
		Size         uint32
		_            uint32
		FQBN         ref
		Pins         ref
		UARTs        ref
		Storages     ref
		FrameBuffers ref
	}

	pinRecord struct {
		ID        uint16
		Caps      uint16
		Active    uint32
		Direction uint32
		Digital   uint32
		Analog    uint32
	}

	ringHeader struct {
		Buf  shm.Offset
		Mask uint32
		Cap  uint32
		Rd   uint32
		Wr   uint32
	}

	uartRecord struct {
		BaudRate uint32
		RxPin    uint32
		TxPin    uint32
		MaxRx    uint16
		MaxTx    uint16
		Active   uint32
		Rx       ringHeader
		Tx       ringHeader
	}

	storageRecord struct {
		Bus      uint32
		Accessor uint16
		_        uint16
		RootDir  ref
	}

	frameRecord struct {
		Key       uint64
		Direction uint32
		Active    uint32
		Width     uint32
		Height    uint32
		Freq      uint32
		Seq       uint32
		MaxWidth  uint16
		MaxHeight uint16
		Len       uint32
		Pixels    ref
	}
)

var (
	headerSize  = int(unsafe.Sizeof(header{}))
	pinSize     = int(unsafe.Sizeof(pinRecord{}))
	uartSize    = int(unsafe.Sizeof(uartRecord{}))
	storageSize = int(unsafe.Sizeof(storageRecord{}))
	frameSize   = int(unsafe.Sizeof(frameRecord{}))
)

// at reinterprets the bytes at off as a *T. The caller guarantees bounds
// and alignment.
func at[T any](mem []byte, off shm.Offset) *T {
	return (*T)(unsafe.Pointer(&mem[off]))
}

// table returns the r.Len records of type T starting at r.Off.
func table[T any](mem []byte, r ref) []T {
	if r.Len == 0 {
		return nil
	}
	return unsafe.Slice(at[T](mem, r.Off), r.Len)
}

func (r ref) bytes(mem []byte) []byte {
	return mem[r.Off : uint32(r.Off)+r.Len : uint32(r.Off)+r.Len]
}

func (r ref) within(size uint32, elem int) bool {
	end := uint64(r.Off) + uint64(r.Len)*uint64(elem)
	return end <= uint64(size)
}

func nextPow2(n uint32) uint32 {
	p := uint32(1)
	for p < n {
		p <<= 1
	}
	return p
}
