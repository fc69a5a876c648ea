// SPDX-License-Identifier: MPL-2.0

//go:build !unix && !windows

package shm

// Shared segments are only defined for POSIX-like and Windows NT targets.
var _ = shm_requires_a_POSIX_or_Windows_target
