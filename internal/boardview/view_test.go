// SPDX-License-Identifier: MPL-2.0

package boardview

import (
	"testing"

	"smce-runner/internal/boardconf"
	"smce-runner/internal/boarddata"
	"smce-runner/internal/shm"
)

func newBoard(t *testing.T) *boarddata.Board {
	t.Helper()

	cfg := boardconf.BoardConfig{
		Pins:         []uint16{2, 5, 1},
		GPIODrivers:  []boardconf.GPIODriver{{PinID: 5, AnalogDriver: &boardconf.DriverCaps{BoardRead: true}}},
		UARTChannels: []boardconf.UARTChannel{{}},
		SDCards:      []boardconf.SDCard{{CSPin: 10, RootDir: "/tmp/sd"}},
		FrameBuffers: []boardconf.FrameBuffer{{Key: 3, Direction: boardconf.DirectionIn}},
	}
	cfg.ApplyDefaults()
	size, err := boarddata.Size("uno", cfg)
	if err != nil {
		t.Fatal(err)
	}
	b, err := boarddata.Build(shm.NewArena(make([]byte, size)), "uno", cfg)
	if err != nil {
		t.Fatal(err)
	}
	return b
}

func TestInvalidView(t *testing.T) {
	t.Parallel()

	for name, v := range map[string]View{"zero": {}, "nil board": New(nil)} {
		t.Run(name, func(t *testing.T) {
			t.Parallel()

			if v.Valid() {
				t.Fatal("view should be invalid")
			}
			if v.Pins() != nil || v.UartChannels() != nil || v.DirectStorages() != nil || v.FrameBuffers() != nil {
				t.Error("invalid view should expose no peripherals")
			}
			if _, ok := v.Pin(1); ok {
				t.Error("Pin() on invalid view should report false")
			}
			if _, ok := v.FrameBuffer(3); ok {
				t.Error("FrameBuffer() on invalid view should report false")
			}
			p, _ := v.Pin(1)
			p.DigitalWrite(true)
			if p.DigitalRead() {
				t.Error("zero pin should read low")
			}
			if s := v.Snapshot(); s.FQBN != "" || len(s.Pins) != 0 {
				t.Errorf("Snapshot() = %+v, want empty", s)
			}
		})
	}
}

func TestViewIsCopyable(t *testing.T) {
	t.Parallel()

	v := New(newBoard(t))
	cp := v

	p, ok := v.Pin(5)
	if !ok {
		t.Fatal("pin 5 missing")
	}
	p.AnalogWrite(1023)

	q, _ := cp.Pin(5)
	if q.AnalogRead() != 1023 {
		t.Errorf("copy read %d, want 1023", q.AnalogRead())
	}
}

func TestSnapshot(t *testing.T) {
	t.Parallel()

	v := New(newBoard(t))
	p, _ := v.Pin(2)
	p.SetActive(true)
	p.SetDirection(boarddata.DirectionOutput)
	p.DigitalWrite(true)
	v.UartChannels()[0].WriteRx([]byte("hi"))

	s := v.Snapshot()
	if s.FQBN != "uno" || len(s.Pins) != 3 {
		t.Fatalf("Snapshot() = %+v", s)
	}
	if got := s.Pins[1]; got.ID != 2 || !got.Active || !got.Digital || got.Direction != boarddata.DirectionOutput {
		t.Errorf("pin 2 state = %+v", got)
	}
	if got := s.Pins[2]; got.ID != 5 || !got.Caps.Has(boarddata.CapAnalogRead) {
		t.Errorf("pin 5 state = %+v", got)
	}
	if got := s.UARTs[0]; got.RxBuffered != 2 || got.BaudRate != boardconf.DefaultBaudRate {
		t.Errorf("uart state = %+v", got)
	}
	if got := s.Storages[0]; got.Accessor != 10 || got.RootDir != "/tmp/sd" {
		t.Errorf("storage state = %+v", got)
	}
	if got := s.FrameBuffers[0]; got.Key != 3 || got.MaxWidth != 640 || got.Direction != boardconf.DirectionIn {
		t.Errorf("frame buffer state = %+v", got)
	}
}
