// SPDX-License-Identifier: MPL-2.0

// Package sketchbuild drives the CMake scripts that turn a sketch into an
// executable.
//
// Building is two steps. Configure runs ConfigureSketch.cmake in script
// mode with the sketch identity, board, source path and library lists; the
// script announces the generated sketch directory and binary on lines of
// the form
//
//	-- SMCE: Sketch directory "<dir>"
//	-- SMCE: Sketch binary "<path>"
//
// Build then runs "cmake --build <dir>/build". Every other output line of
// either step is copied verbatim to the caller's log.
package sketchbuild
