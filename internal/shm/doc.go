// SPDX-License-Identifier: MPL-2.0

// Package shm creates, attaches to and tears down the named shared-memory
// segments that carry a board's peripheral state between the host runner and
// the sketch process.
//
// A segment is mapped at an arbitrary address in every process that attaches
// to it, so nothing stored inside may be a pointer. Data placed in a segment
// is addressed by Offset values relative to the segment base, handed out by
// an Arena bump allocator.
//
// On POSIX systems a segment is a file under /dev/shm (or the temp dir where
// /dev/shm is unavailable) mapped with MAP_SHARED. On Windows it is a named,
// pagefile-backed file mapping.
package shm
