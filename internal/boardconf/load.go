// SPDX-License-Identifier: MPL-2.0

package boardconf

import (
	"bytes"
	_ "embed"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/pelletier/go-toml/v2"

	"smce-runner/pkg/cueutil"
)

//go:embed board_schema.cue
var schemaSrc []byte

var schema = cueutil.NewSchema(schemaSrc)

// ErrUnsupportedFormat is returned for descriptor files that are neither CUE nor TOML.
var ErrUnsupportedFormat = errors.New("unsupported descriptor format")

// Load reads a board descriptor from a .cue or .toml file, applies defaults
// and validates it.
func Load(path string) (*BoardConfig, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read board descriptor: %w", err)
	}
	return Parse(data, path)
}

// Parse decodes a board descriptor. The format is picked from the
// extension of name, which is also used in error messages.
func Parse(data []byte, name string) (*BoardConfig, error) {
	var cfg BoardConfig
	switch ext := strings.ToLower(filepath.Ext(name)); ext {
	case ".cue":
		res, err := cueutil.Decode[BoardConfig](schema, "#Board", data, cueutil.WithFilename(name))
		if err != nil {
			return nil, err
		}
		cfg = *res
	case ".toml":
		if err := cueutil.CheckFileSize(data, cueutil.DefaultMaxFileSize, name); err != nil {
			return nil, err
		}
		dec := toml.NewDecoder(bytes.NewReader(data)).DisallowUnknownFields()
		if err := dec.Decode(&cfg); err != nil {
			return nil, tomlError(name, err)
		}
	default:
		return nil, fmt.Errorf("%s: %w %q (want .cue or .toml)", name, ErrUnsupportedFormat, ext)
	}

	cfg.ApplyDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("%s: %w", name, err)
	}
	return &cfg, nil
}

// LoadSketchConfig reads a sketch library list from a .cue or .toml file.
func LoadSketchConfig(path string) (*SketchConfig, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read sketch config: %w", err)
	}
	return ParseSketchConfig(data, path)
}

// ParseSketchConfig decodes a sketch library list; see Parse.
func ParseSketchConfig(data []byte, name string) (*SketchConfig, error) {
	var file sketchFile
	switch ext := strings.ToLower(filepath.Ext(name)); ext {
	case ".cue":
		res, err := cueutil.Decode[sketchFile](schema, "#Sketch", data, cueutil.WithFilename(name))
		if err != nil {
			return nil, err
		}
		file = *res
	case ".toml":
		if err := cueutil.CheckFileSize(data, cueutil.DefaultMaxFileSize, name); err != nil {
			return nil, err
		}
		dec := toml.NewDecoder(bytes.NewReader(data)).DisallowUnknownFields()
		if err := dec.Decode(&file); err != nil {
			return nil, tomlError(name, err)
		}
	default:
		return nil, fmt.Errorf("%s: %w %q (want .cue or .toml)", name, ErrUnsupportedFormat, ext)
	}

	sk, err := file.sketchConfig()
	if err != nil {
		return nil, fmt.Errorf("%s: %w", name, err)
	}
	return sk, nil
}

// tomlError prefixes err with name. Strict-mode failures from go-toml only
// say that some field is unknown, so the offending keys are spelled out.
func tomlError(name string, err error) error {
	var sme *toml.StrictMissingError
	if !errors.As(err, &sme) {
		return fmt.Errorf("%s: %w", name, err)
	}
	keys := make([]string, 0, len(sme.Errors))
	for i := range sme.Errors {
		keys = append(keys, strings.Join(sme.Errors[i].Key(), "."))
	}
	return fmt.Errorf("%s: unknown field %s: %w", name, strings.Join(keys, ", "), err)
}
