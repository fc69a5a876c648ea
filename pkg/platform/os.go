// SPDX-License-Identifier: MPL-2.0

package platform

import "runtime"

// GOOS values the runner branches on.
const (
	Windows = "windows"
	Darwin  = "darwin"
	Linux   = "linux"
)

// IsWindows reports whether the runner was built for Windows, where the
// build tool and the shared segment need different handling.
func IsWindows() bool { return runtime.GOOS == Windows }
