// SPDX-License-Identifier: MPL-2.0

// Command smce builds Arduino sketches for the host and runs them against a
// simulated board in shared memory.
package main

import "smce-runner/cmd/smce"

func main() {
	cmd.Execute()
}
