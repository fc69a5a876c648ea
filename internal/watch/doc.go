// SPDX-License-Identifier: MPL-2.0

// Package watch reports debounced source changes for rebuild-on-save.
//
// A Watcher observes one or more root directories (the sketch and its local
// libraries) and delivers batches of changed paths on a channel. Delivery
// waits for the consumer: while a rebuild is in progress new events keep
// accumulating into the next batch, so the consumer drives the runner from
// its own goroutine and never sees overlapping batches.
package watch
