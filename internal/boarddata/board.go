// SPDX-License-Identifier: MPL-2.0

package boarddata

import (
	"slices"
	"sync/atomic"
)

// Board is a process-local handle on a board model inside a mapped segment.
// It holds no state of its own; every accessor reads the shared bytes.
type Board struct {
	mem []byte
	hdr *header
}

// Size returns the number of segment bytes the model occupies.
func (b *Board) Size() int { return int(b.hdr.Size) }

// FQBN returns the fully qualified board name the model was built for.
func (b *Board) FQBN() string { return string(b.hdr.FQBN.bytes(b.mem)) }

// Pins returns all pins sorted by id.
func (b *Board) Pins() []Pin {
	recs := table[pinRecord](b.mem, b.hdr.Pins)
	pins := make([]Pin, len(recs))
	for i := range recs {
		pins[i] = Pin{rec: &recs[i]}
	}
	return pins
}

// Pin looks up a pin by id.
func (b *Board) Pin(id uint16) (Pin, bool) {
	recs := table[pinRecord](b.mem, b.hdr.Pins)
	i, found := slices.BinarySearchFunc(recs, id, func(r pinRecord, id uint16) int {
		return int(r.ID) - int(id)
	})
	if !found {
		return Pin{}, false
	}
	return Pin{rec: &recs[i]}, true
}

// UARTs returns the serial channels in descriptor order.
func (b *Board) UARTs() []UART {
	recs := table[uartRecord](b.mem, b.hdr.UARTs)
	out := make([]UART, len(recs))
	for i := range recs {
		out[i] = UART{rec: &recs[i], mem: b.mem}
	}
	return out
}

// DirectStorages returns the storage devices in descriptor order.
func (b *Board) DirectStorages() []DirectStorage {
	recs := table[storageRecord](b.mem, b.hdr.Storages)
	out := make([]DirectStorage, len(recs))
	for i := range recs {
		out[i] = DirectStorage{rec: &recs[i], mem: b.mem}
	}
	return out
}

// FrameBuffers returns the frame buffers in descriptor order.
func (b *Board) FrameBuffers() []FrameBuffer {
	recs := table[frameRecord](b.mem, b.hdr.FrameBuffers)
	out := make([]FrameBuffer, len(recs))
	for i := range recs {
		out[i] = FrameBuffer{rec: &recs[i], mem: b.mem}
	}
	return out
}

// FrameBuffer looks up a frame buffer by key.
func (b *Board) FrameBuffer(key uint64) (FrameBuffer, bool) {
	for _, fb := range b.FrameBuffers() {
		if fb.rec.Key == key {
			return fb, true
		}
	}
	return FrameBuffer{}, false
}

// Bus is the transport a DirectStorage is attached through.
type Bus uint32

// BusSPI is the only bus currently modeled.
const BusSPI Bus = 0

// String returns the bus name.
func (b Bus) String() string {
	if b == BusSPI {
		return "spi"
	}
	return "unknown"
}

// DirectStorage is a mass-storage device. The zero value reads as empty.
type DirectStorage struct {
	rec *storageRecord
	mem []byte
}

// Bus returns the bus the device sits on.
func (s DirectStorage) Bus() Bus {
	if s.rec == nil {
		return BusSPI
	}
	return Bus(atomic.LoadUint32(&s.rec.Bus))
}

// Accessor returns the chip-select pin.
func (s DirectStorage) Accessor() uint16 {
	if s.rec == nil {
		return 0
	}
	return s.rec.Accessor
}

// RootDir returns the host directory backing the device, slash-separated.
func (s DirectStorage) RootDir() string {
	if s.rec == nil {
		return ""
	}
	return string(s.rec.RootDir.bytes(s.mem))
}
