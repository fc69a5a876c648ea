// SPDX-License-Identifier: MPL-2.0

package cueutil

import (
	"errors"
	"fmt"
	"sync"

	"cuelang.org/go/cue"
	"cuelang.org/go/cue/cuecontext"
)

// ErrBadSchema reports a defect in the embedded schema itself, never in
// the user's document.
var ErrBadSchema = errors.New("embedded schema is invalid")

// Schema is an embedded CUE schema, compiled on first use. A cue.Context
// is not safe for concurrent use, so decodes against one Schema are
// serialized.
type Schema struct {
	src []byte

	once sync.Once
	err  error

	mu   sync.Mutex
	ctx  *cue.Context
	root cue.Value
}

// NewSchema wraps schema source. Compilation errors surface from the
// first Decode.
func NewSchema(src []byte) *Schema {
	return &Schema{src: src}
}

func (s *Schema) compile() error {
	s.once.Do(func() {
		s.ctx = cuecontext.New()
		s.root = s.ctx.CompileBytes(s.src, cue.Filename("schema.cue"))
		if err := s.root.Err(); err != nil {
			s.err = fmt.Errorf("%w: %w", ErrBadSchema, err)
		}
	})
	return s.err
}

// Decode unifies data with the definition def of s, validates the result
// and decodes it into a new T.
func Decode[T any](s *Schema, def string, data []byte, opts ...Option) (*T, error) {
	o := newOptions(opts)
	if err := CheckFileSize(data, o.maxFileSize, o.filename); err != nil {
		return nil, err
	}
	if err := s.compile(); err != nil {
		return nil, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	defn := s.root.LookupPath(cue.ParsePath(def))
	if !defn.Exists() {
		return nil, fmt.Errorf("%w: no definition %s", ErrBadSchema, def)
	}

	doc := s.ctx.CompileBytes(data, cue.Filename(o.filename))
	if err := doc.Err(); err != nil {
		return nil, FormatError(err, o.filename)
	}
	unified := defn.Unify(doc)
	if err := unified.Validate(cue.Concrete(o.concrete)); err != nil {
		return nil, FormatError(err, o.filename)
	}

	out := new(T)
	if err := unified.Decode(out); err != nil {
		return nil, FormatError(err, o.filename)
	}
	return out, nil
}

// CheckFileSize rejects documents larger than maxSize bytes before any
// parsing happens.
func CheckFileSize(data []byte, maxSize int64, filename string) error {
	if int64(len(data)) > maxSize {
		return fmt.Errorf("%s: %d bytes exceeds the %d byte limit", filename, len(data), maxSize)
	}
	return nil
}
