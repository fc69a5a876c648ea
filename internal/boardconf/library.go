// SPDX-License-Identifier: MPL-2.0

package boardconf

import (
	"errors"
	"fmt"
	"strings"
)

const (
	// LibraryKindRemote is resolved by the build tool, optionally pinned to a version.
	LibraryKindRemote LibraryKind = "remote"
	// LibraryKindLocal lives on disk and may patch a remote library.
	LibraryKindLocal LibraryKind = "local"
	// LibraryKindFreestanding needs no resolution at all.
	LibraryKindFreestanding LibraryKind = "freestanding"
)

// ErrInvalidLibrary is the sentinel error wrapped by InvalidLibraryError.
var ErrInvalidLibrary = errors.New("invalid library")

type (
	// Library is one dependency of a sketch. The set of implementations is
	// closed: RemoteLibrary, LocalLibrary and FreestandingLibrary.
	Library interface {
		isLibrary()
	}

	// RemoteLibrary is fetched by name from the library index.
	RemoteLibrary struct {
		Name    string
		Version string
	}

	// LocalLibrary is a library checked out on disk. When PatchFor is set it
	// replaces the sources of the remote library with that name.
	LocalLibrary struct {
		RootDir  string
		PatchFor string
	}

	// FreestandingLibrary ships with the runtime resources.
	FreestandingLibrary struct {
		Name string
	}

	// LibraryKind discriminates library entries in descriptor files.
	LibraryKind string

	// SketchConfig lists the libraries a sketch is preprocessed and linked
	// against. FQBN is an optional default board identifier.
	SketchConfig struct {
		FQBN         string
		PreprocLibs  []Library
		ComplinkLibs []Library
	}

	// InvalidLibraryError is returned when a library entry cannot be classified.
	// It wraps ErrInvalidLibrary for errors.Is() compatibility.
	InvalidLibraryError struct {
		Index  int
		Reason string
	}

	// libraryEntry is the on-disk shape of a Library.
	libraryEntry struct {
		Kind     LibraryKind `json:"kind"                toml:"kind"`
		Name     string      `json:"name,omitempty"      toml:"name,omitempty"`
		Version  string      `json:"version,omitempty"   toml:"version,omitempty"`
		RootDir  string      `json:"root_dir,omitempty"  toml:"root_dir,omitempty"`
		PatchFor string      `json:"patch_for,omitempty" toml:"patch_for,omitempty"`
	}

	// sketchFile is the on-disk shape of a SketchConfig.
	sketchFile struct {
		FQBN         string         `json:"fqbn,omitempty" toml:"fqbn,omitempty"`
		PreprocLibs  []libraryEntry `json:"preproc_libs"   toml:"preproc_libs"`
		ComplinkLibs []libraryEntry `json:"complink_libs"  toml:"complink_libs"`
	}
)

func (RemoteLibrary) isLibrary()       {}
func (LocalLibrary) isLibrary()        {}
func (FreestandingLibrary) isLibrary() {}

// Ref returns "name" or "name@version", the form the build tool expects.
func (l RemoteLibrary) Ref() string {
	if l.Version == "" {
		return l.Name
	}
	return l.Name + "@" + l.Version
}

// IsPatch reports whether the library replaces a remote one.
func (l LocalLibrary) IsPatch() bool { return l.PatchFor != "" }

// Error implements the error interface.
func (e *InvalidLibraryError) Error() string {
	return fmt.Sprintf("library %d: %s", e.Index, e.Reason)
}

// Unwrap returns ErrInvalidLibrary for errors.Is() compatibility.
func (e *InvalidLibraryError) Unwrap() error { return ErrInvalidLibrary }

func (e libraryEntry) library(index int) (Library, error) {
	switch e.Kind {
	case LibraryKindRemote:
		if strings.TrimSpace(e.Name) == "" {
			return nil, &InvalidLibraryError{Index: index, Reason: "remote library needs a name"}
		}
		return RemoteLibrary{Name: e.Name, Version: e.Version}, nil
	case LibraryKindLocal:
		if strings.TrimSpace(e.RootDir) == "" {
			return nil, &InvalidLibraryError{Index: index, Reason: "local library needs a root_dir"}
		}
		return LocalLibrary{RootDir: e.RootDir, PatchFor: e.PatchFor}, nil
	case LibraryKindFreestanding:
		return FreestandingLibrary{Name: e.Name}, nil
	default:
		return nil, &InvalidLibraryError{Index: index, Reason: fmt.Sprintf("unknown kind %q", e.Kind)}
	}
}

func convertLibraries(entries []libraryEntry) ([]Library, error) {
	if len(entries) == 0 {
		return nil, nil
	}
	libs := make([]Library, 0, len(entries))
	for i, e := range entries {
		lib, err := e.library(i)
		if err != nil {
			return nil, err
		}
		libs = append(libs, lib)
	}
	return libs, nil
}

func (f sketchFile) sketchConfig() (*SketchConfig, error) {
	pre, err := convertLibraries(f.PreprocLibs)
	if err != nil {
		return nil, fmt.Errorf("preproc_libs: %w", err)
	}
	link, err := convertLibraries(f.ComplinkLibs)
	if err != nil {
		return nil, fmt.Errorf("complink_libs: %w", err)
	}
	return &SketchConfig{FQBN: f.FQBN, PreprocLibs: pre, ComplinkLibs: link}, nil
}
