// SPDX-License-Identifier: MPL-2.0

// Package sketchproc runs a compiled sketch as a child process.
//
// The child learns which shared memory segment to attach to from the
// SEGNAME environment variable. Its stdout is discarded; its stderr is
// drained by a dedicated goroutine into a caller-supplied writer until the
// pipe closes. A second goroutine reaps the child and records its exit
// code so liveness can be polled without blocking.
//
// Suspend and Resume freeze the child in place (SIGSTOP/SIGCONT on POSIX,
// NtSuspendProcess/NtResumeProcess on Windows); its memory, including the
// shared segment mapping, is untouched.
package sketchproc
