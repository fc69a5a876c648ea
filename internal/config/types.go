// SPDX-License-Identifier: MPL-2.0

package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/bmatcuk/doublestar/v4"
	"github.com/charmbracelet/log"
)

const (
	LogLevelDebug LogLevel = "debug"
	LogLevelInfo  LogLevel = "info"
	LogLevelWarn  LogLevel = "warn"
	LogLevelError LogLevel = "error"

	// DefaultTickInterval is how often `smce run` polls the sketch.
	DefaultTickInterval = 100 * time.Millisecond
	// DefaultDebounce coalesces bursts of editor writes.
	DefaultDebounce = 300 * time.Millisecond
)

var (
	// ErrInvalidLogLevel is returned when a LogLevel value is not recognized.
	ErrInvalidLogLevel = errors.New("invalid log level")
	// ErrInvalidConfig is the sentinel error wrapped by InvalidConfigError.
	ErrInvalidConfig = errors.New("invalid config")
)

// DefaultWatchPatterns are the sources whose changes trigger a rebuild.
var DefaultWatchPatterns = []string{"**/*.ino", "**/*.pde", "**/*.{c,cpp,cc,cxx}", "**/*.{h,hpp,hxx}"}

type (
	// LogLevel is a charmbracelet/log level name.
	LogLevel string

	// InvalidLogLevelError is returned when a LogLevel value is not recognized.
	// It wraps ErrInvalidLogLevel for errors.Is() compatibility.
	InvalidLogLevelError struct {
		Value LogLevel
	}

	// InvalidConfigError collects every field error found by Validate.
	// It wraps ErrInvalidConfig for errors.Is() compatibility.
	InvalidConfigError struct {
		FieldErrors []error
	}

	// Config holds the application configuration.
	Config struct {
		// ResourceDir is the root of the SMCE resource tree.
		ResourceDir string `json:"resource_dir" mapstructure:"resource_dir"`
		// CMakePath is the cmake executable.
		CMakePath string `json:"cmake_path" mapstructure:"cmake_path"`
		// CMakeGenerator forces CMAKE_GENERATOR when set.
		CMakeGenerator string `json:"cmake_generator" mapstructure:"cmake_generator"`
		// LogLevel filters runner and build logs.
		LogLevel LogLevel `json:"log_level" mapstructure:"log_level"`
		// Build configures sketch compilation.
		Build BuildConfig `json:"build" mapstructure:"build"`
		// Runner configures the supervision loop.
		Runner RunnerConfig `json:"runner" mapstructure:"runner"`
		// Watch configures rebuild-on-change.
		Watch WatchConfig `json:"watch" mapstructure:"watch"`
		// Metrics configures the Prometheus endpoint.
		Metrics MetricsConfig `json:"metrics" mapstructure:"metrics"`
	}

	// BuildConfig configures sketch compilation.
	BuildConfig struct {
		// ExtraArgs are appended to the configure step, shell-split.
		ExtraArgs string `json:"extra_args" mapstructure:"extra_args"`
	}

	// RunnerConfig configures the supervision loop.
	RunnerConfig struct {
		TickInterval time.Duration `json:"tick_interval" mapstructure:"tick_interval"`
	}

	// WatchConfig configures rebuild-on-change.
	WatchConfig struct {
		Debounce time.Duration `json:"debounce" mapstructure:"debounce"`
		// Patterns are doublestar globs relative to the sketch directory.
		Patterns []string `json:"patterns" mapstructure:"patterns"`
	}

	// MetricsConfig configures the Prometheus endpoint.
	MetricsConfig struct {
		// Addr is host:port; empty disables the endpoint.
		Addr string `json:"addr" mapstructure:"addr"`
	}
)

// String returns the level name.
func (l LogLevel) String() string { return string(l) }

// Validate returns nil if the LogLevel is one of the defined levels.
func (l LogLevel) Validate() error {
	switch l {
	case LogLevelDebug, LogLevelInfo, LogLevelWarn, LogLevelError:
		return nil
	default:
		return &InvalidLogLevelError{Value: l}
	}
}

// Level converts to a charmbracelet/log level. Unknown values map to info.
func (l LogLevel) Level() log.Level {
	lvl, err := log.ParseLevel(string(l))
	if err != nil {
		return log.InfoLevel
	}
	return lvl
}

// Error implements the error interface for InvalidLogLevelError.
func (e *InvalidLogLevelError) Error() string {
	return fmt.Sprintf("invalid log level %q (valid: debug, info, warn, error)", e.Value)
}

// Unwrap returns ErrInvalidLogLevel for errors.Is() compatibility.
func (e *InvalidLogLevelError) Unwrap() error { return ErrInvalidLogLevel }

// Validate checks constraints the schema cannot see after env overrides
// have been applied.
func (c Config) Validate() error {
	var errs []error
	if err := c.LogLevel.Validate(); err != nil {
		errs = append(errs, err)
	}
	if strings.TrimSpace(c.CMakePath) == "" {
		errs = append(errs, errors.New("cmake_path: must not be empty"))
	}
	if c.Runner.TickInterval <= 0 {
		errs = append(errs, fmt.Errorf("runner.tick_interval: must be positive, got %s", c.Runner.TickInterval))
	}
	if c.Watch.Debounce < 0 {
		errs = append(errs, fmt.Errorf("watch.debounce: must not be negative, got %s", c.Watch.Debounce))
	}
	for i, p := range c.Watch.Patterns {
		if !doublestar.ValidatePattern(p) {
			errs = append(errs, fmt.Errorf("watch.patterns[%d]: invalid glob %q", i, p))
		}
	}
	if len(errs) > 0 {
		return &InvalidConfigError{FieldErrors: errs}
	}
	return nil
}

// Error implements the error interface for InvalidConfigError.
func (e *InvalidConfigError) Error() string {
	return fmt.Sprintf("invalid config: %v", errors.Join(e.FieldErrors...))
}

// Unwrap returns ErrInvalidConfig for errors.Is() compatibility.
func (e *InvalidConfigError) Unwrap() error { return ErrInvalidConfig }

// DefaultConfig returns the default configuration
func DefaultConfig() *Config {
	return &Config{
		CMakePath: "cmake",
		LogLevel:  LogLevelInfo,
		Runner: RunnerConfig{
			TickInterval: DefaultTickInterval,
		},
		Watch: WatchConfig{
			Debounce: DefaultDebounce,
			Patterns: append([]string(nil), DefaultWatchPatterns...),
		},
	}
}
