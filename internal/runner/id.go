// SPDX-License-Identifier: MPL-2.0

package runner

import (
	"sync"
	"sync/atomic"
	"time"
)

type (
	// IDSource hands out runner instance ids. Ids name shared memory
	// segments, so a source must never repeat one within a process.
	IDSource interface {
		NextID() uint64
	}

	// CounterIDSource increments from a seed. It is safe for concurrent use.
	CounterIDSource struct {
		last atomic.Uint64
	}
)

var processIDs = sync.OnceValue(func() *CounterIDSource {
	return NewCounterIDSource(uint64(time.Now().Unix()))
})

// NewCounterIDSource returns a source whose first id is seed+1.
func NewCounterIDSource(seed uint64) *CounterIDSource {
	s := &CounterIDSource{}
	s.last.Store(seed)
	return s
}

// NextID returns the next id.
func (s *CounterIDSource) NextID() uint64 { return s.last.Add(1) }

// ProcessIDSource returns the source shared by every runner in this
// process. It is seeded once from the wall clock, which keeps segment names
// distinct across restarts as long as fewer runners than seconds elapsed
// are created.
func ProcessIDSource() IDSource { return processIDs() }
