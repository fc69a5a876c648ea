// SPDX-License-Identifier: MPL-2.0

//go:build !unix && !windows

package sketchproc

// Sketch processes can only be controlled on POSIX and Windows NT targets.
var _ = sketchproc_requires_a_POSIX_or_Windows_target
