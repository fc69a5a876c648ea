// SPDX-License-Identifier: MPL-2.0

// Package runner sequences one sketch through its lifecycle:
//
//	clean → configured → built → running ⇄ suspended → stopped
//
// A Runner owns the board segment, the sketch build directory and the
// sketch process. Its operations report success as a bool and never panic;
// LastError holds the cause of the most recent failure. Operations must be
// called from a single goroutine. The build and runtime logs may be read
// from any goroutine at any time.
package runner
