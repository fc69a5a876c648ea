// SPDX-License-Identifier: MPL-2.0

// Package logbuf provides the append-only, mutex-guarded byte buffers that
// hold a runner's build log and runtime log.
//
// A Buffer has one writer at a time (the build step on the controlling
// goroutine, or the sketch's stderr drain goroutine) and any number of
// concurrent readers, typically a UI or monitoring goroutine polling for new
// output. Contents are only discarded by Reset.
package logbuf
