// SPDX-License-Identifier: MPL-2.0

// Package boardconf holds the board descriptor a runner is configured with
// and the sketch library list its build step consumes.
//
// Descriptors are plain Go values. They can also be loaded from CUE files,
// validated against an embedded schema, or from TOML files.
package boardconf
