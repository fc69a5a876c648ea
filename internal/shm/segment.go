// SPDX-License-Identifier: MPL-2.0

package shm

import (
	"errors"
	"fmt"
	"strings"
)

// MaxSize bounds a single segment. Offsets are 32-bit.
const MaxSize = 1 << 31

var (
	// ErrSegmentExists is returned when Create finds a segment with the same name.
	ErrSegmentExists = errors.New("shared memory segment already exists")
	// ErrSegmentNotFound is returned when Open finds no segment with the given name.
	ErrSegmentNotFound = errors.New("shared memory segment not found")
	// ErrInvalidSegmentName is returned for empty names or names containing path separators.
	ErrInvalidSegmentName = errors.New("invalid shared memory segment name")
	// ErrInvalidSegmentSize is returned for non-positive sizes or sizes above MaxSize.
	ErrInvalidSegmentSize = errors.New("invalid shared memory segment size")
)

// Segment is a mapped shared-memory region.
// A Segment created with Create owns the name and removes it on Close;
// one obtained with Open only unmaps.
type Segment struct {
	name  string
	mem   []byte
	owner bool
	h     handle
}

// Create makes a new named segment of the given size and maps it read/write.
// The memory is zero-filled. Create never falls back to process-local memory:
// if the OS primitive fails the error is returned to the caller.
func Create(name string, size int) (*Segment, error) {
	if err := validateName(name); err != nil {
		return nil, err
	}
	if size <= 0 || size > MaxSize {
		return nil, fmt.Errorf("%w: %d", ErrInvalidSegmentSize, size)
	}
	return create(name, size)
}

// Open attaches to an existing segment created by another process (or by
// another Create in this one). The mapping size is taken from the segment.
func Open(name string) (*Segment, error) {
	if err := validateName(name); err != nil {
		return nil, err
	}
	return open(name)
}

// Name returns the segment's name.
func (s *Segment) Name() string { return s.name }

// Size returns the mapped size in bytes, or 0 after Close.
func (s *Segment) Size() int { return len(s.mem) }

// Bytes returns the mapped memory. The slice is invalid after Close.
func (s *Segment) Bytes() []byte { return s.mem }

// Owner reports whether this Segment created the name and will remove it.
func (s *Segment) Owner() bool { return s.owner }

// Close unmaps the segment and, for the creating side, removes its name.
// Calling Close more than once is a no-op.
func (s *Segment) Close() error {
	if s == nil || s.mem == nil {
		return nil
	}
	err := s.release()
	s.mem = nil
	return err
}

func validateName(name string) error {
	if strings.TrimSpace(name) == "" || strings.ContainsAny(name, `/\`) {
		return fmt.Errorf("%w: %q", ErrInvalidSegmentName, name)
	}
	return nil
}
