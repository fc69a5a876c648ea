// SPDX-License-Identifier: MPL-2.0

package logbuf

import (
	"sync"
)

// defaultCapacity matches the initial reservation the runner makes for each log.
const defaultCapacity = 4096

// Buffer is an append-only log buffer safe for concurrent use.
// The zero value is ready to use.
type Buffer struct {
	mu  sync.Mutex
	buf []byte
}

// New returns a Buffer with the default initial capacity reserved.
func New() *Buffer {
	return &Buffer{buf: make([]byte, 0, defaultCapacity)}
}

// Write appends p to the buffer. It never fails.
func (b *Buffer) Write(p []byte) (int, error) {
	b.mu.Lock()
	b.buf = append(b.buf, p...)
	b.mu.Unlock()
	return len(p), nil
}

// WriteString appends s to the buffer.
func (b *Buffer) WriteString(s string) (int, error) {
	b.mu.Lock()
	b.buf = append(b.buf, s...)
	b.mu.Unlock()
	return len(s), nil
}

// AppendLine appends line followed by a newline.
func (b *Buffer) AppendLine(line string) {
	b.mu.Lock()
	b.buf = append(b.buf, line...)
	b.buf = append(b.buf, '\n')
	b.mu.Unlock()
}

// String returns a snapshot of the whole buffer.
func (b *Buffer) String() string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return string(b.buf)
}

// Len returns the number of bytes held.
func (b *Buffer) Len() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return len(b.buf)
}

// Since returns a copy of everything written after the first offset bytes,
// and the new end offset. Pollers keep the returned offset and pass it back
// on the next call to receive only fresh output.
func (b *Buffer) Since(offset int) ([]byte, int) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if offset < 0 || offset > len(b.buf) {
		offset = len(b.buf)
	}
	out := make([]byte, len(b.buf)-offset)
	copy(out, b.buf[offset:])
	return out, len(b.buf)
}

// Reset discards the contents, keeping the allocated capacity.
func (b *Buffer) Reset() {
	b.mu.Lock()
	b.buf = b.buf[:0]
	b.mu.Unlock()
}
