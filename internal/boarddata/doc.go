// SPDX-License-Identifier: MPL-2.0

// Package boarddata lays out the simulated board's peripheral state inside a
// shared memory segment and gives typed access to it.
//
// The host and the sketch map the same segment at different addresses, so
// nothing inside it is a pointer: every reference is an offset from the
// segment base, resolved against the local mapping on access. Live values
// (pin levels, UART ring indices, frame sequence counters) are read and
// written with sync/atomic.
//
// Layout, starting at offset 0:
//
//	[header][fqbn][pins][uarts][uart ring storage][storages][root dirs][frame buffers][pixels]
package boarddata
