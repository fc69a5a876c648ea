// SPDX-License-Identifier: MPL-2.0

package sharedboard

import (
	"errors"
	"fmt"
	"os"
	"sync/atomic"
	"testing"
	"time"

	"smce-runner/internal/boardconf"
	"smce-runner/internal/boarddata"
	"smce-runner/internal/shm"
)

var seq atomic.Uint64

func uniqueName() string {
	return fmt.Sprintf("sharedboard-test-%d-%d-%d", os.Getpid(), time.Now().UnixNano(), seq.Add(1))
}

func TestConfigure(t *testing.T) {
	t.Parallel()

	m := New()
	t.Cleanup(func() { _ = m.Reset() })
	name := uniqueName()

	cfg := boardconf.BoardConfig{Pins: []uint16{3, 1}, UARTChannels: []boardconf.UARTChannel{{}}}
	if err := m.Configure(name, "uno", cfg); err != nil {
		t.Fatalf("Configure() error = %v", err)
	}
	if !m.Configured() || m.Name() != name || m.Board() == nil {
		t.Fatal("manager should hold a live segment")
	}
	if got := m.Board().UARTs()[0].MaxBufferedRx(); got != boardconf.DefaultBufferLength {
		t.Errorf("defaults not applied: rx = %d", got)
	}
	if cfg.UARTChannels[0].RxBufferLength != 0 {
		t.Error("Configure() modified the caller's config")
	}

	seg, err := shm.Open(name)
	if err != nil {
		t.Fatalf("sketch side cannot open segment: %v", err)
	}
	defer seg.Close()
	b, err := boarddata.Attach(seg.Bytes())
	if err != nil {
		t.Fatalf("Attach() error = %v", err)
	}
	if len(b.Pins()) != 2 {
		t.Errorf("attached pin count = %d, want 2", len(b.Pins()))
	}
}

func TestReconfigureReplacesModel(t *testing.T) {
	t.Parallel()

	m := New()
	t.Cleanup(func() { _ = m.Reset() })
	name := uniqueName()

	if err := m.Configure(name, "uno", boardconf.BoardConfig{Pins: []uint16{1, 2, 3}}); err != nil {
		t.Fatal(err)
	}
	if err := m.Configure(name, "mega", boardconf.BoardConfig{Pins: []uint16{7}}); err != nil {
		t.Fatalf("second Configure() error = %v", err)
	}
	if m.Board().FQBN() != "mega" || len(m.Board().Pins()) != 1 {
		t.Errorf("model not rebuilt: fqbn %q, %d pins", m.Board().FQBN(), len(m.Board().Pins()))
	}
}

func TestReset(t *testing.T) {
	t.Parallel()

	m := New()
	name := uniqueName()
	if err := m.Configure(name, "uno", boardconf.BoardConfig{}); err != nil {
		t.Fatal(err)
	}
	if err := m.Reset(); err != nil {
		t.Fatalf("Reset() error = %v", err)
	}
	if m.Configured() || m.Board() != nil || m.Name() != "" {
		t.Error("Reset() left state behind")
	}
	if _, err := shm.Open(name); !errors.Is(err, shm.ErrSegmentNotFound) {
		t.Errorf("segment still present after Reset(): %v", err)
	}
	if err := m.Reset(); err != nil {
		t.Errorf("second Reset() error = %v", err)
	}
}

func TestConfigureFailures(t *testing.T) {
	t.Parallel()

	t.Run("name collision", func(t *testing.T) {
		t.Parallel()

		name := uniqueName()
		other, err := shm.Create(name, 4096)
		if err != nil {
			t.Fatal(err)
		}
		t.Cleanup(func() { _ = other.Close() })

		m := New()
		err = m.Configure(name, "uno", boardconf.BoardConfig{})
		if !errors.Is(err, shm.ErrSegmentExists) {
			t.Errorf("error = %v, want ErrSegmentExists", err)
		}
		if m.Configured() {
			t.Error("failed Configure() left a segment")
		}
	})

	t.Run("invalid config", func(t *testing.T) {
		t.Parallel()

		m := New()
		cfg := boardconf.BoardConfig{SDCards: []boardconf.SDCard{{CSPin: 1}}}
		if err := m.Configure(uniqueName(), "uno", cfg); !errors.Is(err, boardconf.ErrInvalidBoardConfig) {
			t.Errorf("error = %v, want ErrInvalidBoardConfig", err)
		}
	})
}
