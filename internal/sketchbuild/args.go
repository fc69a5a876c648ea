// SPDX-License-Identifier: MPL-2.0

package sketchbuild

import (
	"fmt"
	"os"

	"mvdan.cc/sh/v3/shell"
)

// ParseExtraArgs splits a configured argument string with POSIX shell
// quoting rules, expanding environment variables.
func ParseExtraArgs(s string) ([]string, error) {
	fields, err := shell.Fields(s, os.Getenv)
	if err != nil {
		return nil, fmt.Errorf("parse extra build args %q: %w", s, err)
	}
	return fields, nil
}
