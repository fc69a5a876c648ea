// SPDX-License-Identifier: MPL-2.0

// Package config handles application configuration using Viper with CUE as the file format.
//
// Configuration is loaded from the file named by --config, else
// $XDG_CONFIG_HOME/smce/config.cue (~/Library/Application Support/smce on
// macOS, %APPDATA%\smce on Windows), else ./config.cue. Missing files mean
// defaults. Files are validated against config_schema.cue and SMCE_*
// environment variables override individual keys (SMCE_LOG_LEVEL,
// SMCE_RUNNER_TICK_INTERVAL, ...).
package config
