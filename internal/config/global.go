// SPDX-License-Identifier: MPL-2.0

package config

import "sync/atomic"

// configDirOverride replaces ConfigDir's platform lookup when non-empty.
// os.UserHomeDir ignores HOME on some platforms, so tests pin the
// directory here instead.
var configDirOverride atomic.Pointer[string]

// SetConfigDirOverride makes ConfigDir return dir.
func SetConfigDirOverride(dir string) {
	configDirOverride.Store(&dir)
}

// Reset drops any override set with SetConfigDirOverride.
func Reset() {
	configDirOverride.Store(nil)
}

func overriddenConfigDir() (string, bool) {
	if p := configDirOverride.Load(); p != nil && *p != "" {
		return *p, true
	}
	return "", false
}
