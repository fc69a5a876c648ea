// SPDX-License-Identifier: MPL-2.0

// Package boardview is the accessor host-side consumers use to read and
// drive a running board.
package boardview

import (
	"smce-runner/internal/boardconf"
	"smce-runner/internal/boarddata"
)

type (
	// View is a copyable, non-owning handle on a live board model. It must
	// not be used after the runner that produced it resets or closes. The
	// zero View is invalid; accessing peripherals through it yields zero
	// values.
	View struct {
		board *boarddata.Board
	}

	// PinState is a point-in-time copy of one pin.
	PinState struct {
		ID        uint16
		Caps      boarddata.Capability
		Active    bool
		Direction boarddata.PinDirection
		Digital   bool
		Analog    uint16
	}

	// UARTState is a point-in-time copy of one serial channel.
	UARTState struct {
		BaudRate   uint32
		Active     bool
		RxBuffered int
		TxBuffered int
		MaxRx      uint16
		MaxTx      uint16
	}

	// FrameBufferState is a point-in-time copy of one frame buffer's metadata.
	FrameBufferState struct {
		Key       uint64
		Direction boardconf.Direction
		Active    bool
		Freq      uint32
		MaxWidth  int
		MaxHeight int
	}

	// StorageState is a copy of one storage device's attributes.
	StorageState struct {
		Bus      boarddata.Bus
		Accessor uint16
		RootDir  string
	}

	// Snapshot is a copy of the whole board.
	Snapshot struct {
		FQBN         string
		Pins         []PinState
		UARTs        []UARTState
		Storages     []StorageState
		FrameBuffers []FrameBufferState
	}
)

// New returns a view on b. A nil board yields an invalid view.
func New(b *boarddata.Board) View {
	return View{board: b}
}

// Valid reports whether the view refers to a live board model.
func (v View) Valid() bool { return v.board != nil }

// FQBN returns the board identifier the model was built for.
func (v View) FQBN() string {
	if v.board == nil {
		return ""
	}
	return v.board.FQBN()
}

// Pins returns all pins sorted by id.
func (v View) Pins() []boarddata.Pin {
	if v.board == nil {
		return nil
	}
	return v.board.Pins()
}

// Pin looks up a pin by id. An invalid view or unknown id yields the zero
// Pin and false.
func (v View) Pin(id uint16) (boarddata.Pin, bool) {
	if v.board == nil {
		return boarddata.Pin{}, false
	}
	return v.board.Pin(id)
}

// UartChannels returns the serial channels in descriptor order.
func (v View) UartChannels() []boarddata.UART {
	if v.board == nil {
		return nil
	}
	return v.board.UARTs()
}

// DirectStorages returns the storage devices in descriptor order.
func (v View) DirectStorages() []boarddata.DirectStorage {
	if v.board == nil {
		return nil
	}
	return v.board.DirectStorages()
}

// FrameBuffers returns the frame buffers in descriptor order.
func (v View) FrameBuffers() []boarddata.FrameBuffer {
	if v.board == nil {
		return nil
	}
	return v.board.FrameBuffers()
}

// FrameBuffer looks up a frame buffer by key.
func (v View) FrameBuffer(key uint64) (boarddata.FrameBuffer, bool) {
	if v.board == nil {
		return boarddata.FrameBuffer{}, false
	}
	return v.board.FrameBuffer(key)
}

// Snapshot copies the current state of every peripheral. Live values are
// read one at a time, so a snapshot of a running sketch is not atomic
// across peripherals; suspend the sketch first for a consistent picture.
func (v View) Snapshot() Snapshot {
	s := Snapshot{FQBN: v.FQBN()}
	for _, p := range v.Pins() {
		s.Pins = append(s.Pins, PinState{
			ID:        p.ID(),
			Caps:      p.Caps(),
			Active:    p.Active(),
			Direction: p.Direction(),
			Digital:   p.DigitalRead(),
			Analog:    p.AnalogRead(),
		})
	}
	for _, u := range v.UartChannels() {
		s.UARTs = append(s.UARTs, UARTState{
			BaudRate:   u.BaudRate(),
			Active:     u.Active(),
			RxBuffered: u.RxBuffered(),
			TxBuffered: u.TxBuffered(),
			MaxRx:      u.MaxBufferedRx(),
			MaxTx:      u.MaxBufferedTx(),
		})
	}
	for _, d := range v.DirectStorages() {
		s.Storages = append(s.Storages, StorageState{Bus: d.Bus(), Accessor: d.Accessor(), RootDir: d.RootDir()})
	}
	for _, f := range v.FrameBuffers() {
		w, h := f.MaxSize()
		s.FrameBuffers = append(s.FrameBuffers, FrameBufferState{
			Key:       f.Key(),
			Direction: f.Direction(),
			Active:    f.Active(),
			Freq:      f.Freq(),
			MaxWidth:  w,
			MaxHeight: h,
		})
	}
	return s
}
