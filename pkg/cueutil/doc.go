// SPDX-License-Identifier: MPL-2.0

// Package cueutil checks CUE documents against an embedded schema and
// decodes them into Go values.
//
// Board descriptors, sketch library lists and the runner configuration
// each pair a user file with one definition of an embedded schema:
//
//	//go:embed board_schema.cue
//	var schemaSrc []byte
//
//	var schema = cueutil.NewSchema(schemaSrc)
//
//	cfg, err := cueutil.Decode[BoardConfig](schema, "#Board", data,
//	    cueutil.WithFilename("board.cue"))
//
// Violations come back as a *ValidationError listing every offending
// field in JSON-path notation.
package cueutil
