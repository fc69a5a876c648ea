// SPDX-License-Identifier: MPL-2.0

package cueutil

import (
	"errors"
	"fmt"
	"strconv"
	"strings"

	cueerrors "cuelang.org/go/cue/errors"
)

type (
	// FieldError is one schema violation.
	FieldError struct {
		// Path is the offending field in JSON-path notation, e.g.
		// "uart_channels[1].rx_buffer_length". Empty for document-level errors.
		Path    string
		Message string
	}

	// ValidationError lists every violation found in one document.
	ValidationError struct {
		File   string
		Fields []FieldError
	}
)

// String renders "path: message", or just the message without a path.
func (f FieldError) String() string {
	if f.Path == "" {
		return f.Message
	}
	return f.Path + ": " + f.Message
}

// Error renders a single violation on one line and several as an
// indented list.
func (e *ValidationError) Error() string {
	if len(e.Fields) == 1 {
		return e.File + ": " + e.Fields[0].String()
	}
	var b strings.Builder
	b.WriteString(e.File)
	b.WriteString(": validation failed:")
	for _, f := range e.Fields {
		b.WriteString("\n  ")
		b.WriteString(f.String())
	}
	return b.String()
}

// FormatError converts a CUE error into a *ValidationError for file.
// Errors that did not come from CUE are only prefixed with file.
func FormatError(err error, file string) error {
	if err == nil {
		return nil
	}
	var ce cueerrors.Error
	if !errors.As(err, &ce) {
		return fmt.Errorf("%s: %w", file, err)
	}
	list := cueerrors.Errors(err)

	ve := &ValidationError{File: file, Fields: make([]FieldError, 0, len(list))}
	for _, e := range list {
		path := jsonPath(cueerrors.Path(e))
		ve.Fields = append(ve.Fields, FieldError{Path: path, Message: stripPath(e.Error(), path)})
	}
	return ve
}

// stripPath drops the field path CUE sometimes repeats at the start of
// its message.
func stripPath(msg, path string) string {
	if path == "" {
		return msg
	}
	if rest, ok := strings.CutPrefix(msg, path); ok {
		return strings.TrimSpace(strings.TrimPrefix(rest, ":"))
	}
	return msg
}

// jsonPath turns CUE's selector list, e.g. ["#Board", "pins", "0", "id"],
// into "pins[0].id". Leading definition selectors name the schema, not a
// field of the user's document, and are dropped.
func jsonPath(parts []string) string {
	for len(parts) > 0 && strings.HasPrefix(parts[0], "#") {
		parts = parts[1:]
	}
	var b strings.Builder
	for i, p := range parts {
		if _, err := strconv.Atoi(p); err == nil && i > 0 {
			b.WriteString("[" + p + "]")
			continue
		}
		if i > 0 {
			b.WriteByte('.')
		}
		b.WriteString(p)
	}
	return b.String()
}
