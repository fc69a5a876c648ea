// SPDX-License-Identifier: MPL-2.0

// Package sharedboard owns the shared memory segment that backs a runner's
// board model.
package sharedboard

import (
	"fmt"

	"smce-runner/internal/boardconf"
	"smce-runner/internal/boarddata"
	"smce-runner/internal/shm"
)

// Manager creates, rebuilds and tears down one board segment. It is not
// safe for concurrent use.
type Manager struct {
	seg   *shm.Segment
	board *boarddata.Board
}

// New returns a Manager with no segment.
func New() *Manager {
	return &Manager{}
}

// Configure discards any segment the manager holds, creates a segment
// called name sized for cfg and builds the board model in it. A failure
// leaves the manager without a segment.
func (m *Manager) Configure(name, fqbn string, cfg boardconf.BoardConfig) error {
	if err := m.Reset(); err != nil {
		return err
	}

	cfg = cfg.Clone()
	cfg.ApplyDefaults()
	size, err := boarddata.Size(fqbn, cfg)
	if err != nil {
		return err
	}
	seg, err := shm.Create(name, size)
	if err != nil {
		return fmt.Errorf("create board segment: %w", err)
	}
	board, err := boarddata.Build(shm.NewArena(seg.Bytes()), fqbn, cfg)
	if err != nil {
		_ = seg.Close()
		return fmt.Errorf("build board model: %w", err)
	}

	m.seg = seg
	m.board = board
	return nil
}

// Reset unmaps and removes the segment, if any.
func (m *Manager) Reset() error {
	seg := m.seg
	m.seg = nil
	m.board = nil
	if seg == nil {
		return nil
	}
	if err := seg.Close(); err != nil {
		return fmt.Errorf("release board segment %s: %w", seg.Name(), err)
	}
	return nil
}

// Board returns the live board model, or nil when unconfigured.
func (m *Manager) Board() *boarddata.Board { return m.board }

// Name returns the segment name, or "" when unconfigured.
func (m *Manager) Name() string {
	if m.seg == nil {
		return ""
	}
	return m.seg.Name()
}

// Configured reports whether a segment is live.
func (m *Manager) Configured() bool { return m.seg != nil }
