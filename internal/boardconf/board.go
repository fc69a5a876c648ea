// SPDX-License-Identifier: MPL-2.0

package boardconf

import (
	"errors"
	"fmt"
	"math"
	"slices"
	"strings"
)

const (
	// DefaultBaudRate is the baud rate a UART channel starts with.
	DefaultBaudRate uint32 = 9600
	// DefaultBufferLength is the rx/tx capacity of a UART channel in bytes.
	DefaultBufferLength = 64
	// MaxBufferLength is the largest rx/tx capacity a channel can hold.
	MaxBufferLength = math.MaxUint16

	// DefaultFrameWidth and DefaultFrameHeight size a frame buffer's pixel
	// storage when the descriptor does not.
	DefaultFrameWidth  uint16 = 640
	DefaultFrameHeight uint16 = 480
	// MaxFrameDimension bounds either side of a frame buffer.
	MaxFrameDimension uint16 = 4096

	// DirectionIn frame buffers carry pixels from the sketch to the host.
	DirectionIn Direction = "in"
	// DirectionOut frame buffers carry pixels from the host to the sketch.
	DirectionOut Direction = "out"
)

var (
	// ErrInvalidBoardConfig is the sentinel error wrapped by InvalidBoardConfigError.
	ErrInvalidBoardConfig = errors.New("invalid board config")
	// ErrInvalidDirection is returned when a Direction value is not recognized.
	ErrInvalidDirection = errors.New("invalid frame buffer direction")
)

type (
	// BoardConfig describes the peripherals of a simulated board.
	BoardConfig struct {
		Pins         []uint16      `json:"pins"          toml:"pins"`
		GPIODrivers  []GPIODriver  `json:"gpio_drivers"  toml:"gpio_drivers"`
		UARTChannels []UARTChannel `json:"uart_channels" toml:"uart_channels"`
		SDCards      []SDCard      `json:"sd_cards"      toml:"sd_cards"`
		FrameBuffers []FrameBuffer `json:"frame_buffers" toml:"frame_buffers"`
	}

	// GPIODriver grants capabilities to a pin. A driver naming a pin absent
	// from BoardConfig.Pins has no effect.
	GPIODriver struct {
		PinID         uint16      `json:"pin_id"                   toml:"pin_id"`
		AnalogDriver  *DriverCaps `json:"analog_driver,omitempty"  toml:"analog_driver,omitempty"`
		DigitalDriver *DriverCaps `json:"digital_driver,omitempty" toml:"digital_driver,omitempty"`
	}

	// DriverCaps says whether the board can read and/or write a pin.
	DriverCaps struct {
		BoardRead  bool `json:"board_read"  toml:"board_read"`
		BoardWrite bool `json:"board_write" toml:"board_write"`
	}

	// UARTChannel describes one serial port.
	UARTChannel struct {
		RxPinOverride  *uint16 `json:"rx_pin_override,omitempty" toml:"rx_pin_override,omitempty"`
		TxPinOverride  *uint16 `json:"tx_pin_override,omitempty" toml:"tx_pin_override,omitempty"`
		BaudRate       uint32  `json:"baud_rate"                 toml:"baud_rate"`
		RxBufferLength int     `json:"rx_buffer_length"          toml:"rx_buffer_length"`
		TxBufferLength int     `json:"tx_buffer_length"          toml:"tx_buffer_length"`
	}

	// SDCard is a mass-storage device on the SPI bus backed by a host directory.
	SDCard struct {
		CSPin   uint16 `json:"cspin"    toml:"cspin"`
		RootDir string `json:"root_dir" toml:"root_dir"`
	}

	// FrameBuffer describes a camera or display surface.
	FrameBuffer struct {
		Key       uint64    `json:"key"                  toml:"key"`
		Direction Direction `json:"direction"            toml:"direction"`
		MaxWidth  uint16    `json:"max_width,omitempty"  toml:"max_width,omitempty"`
		MaxHeight uint16    `json:"max_height,omitempty" toml:"max_height,omitempty"`
	}

	// Direction is the data flow of a frame buffer.
	Direction string

	// InvalidDirectionError is returned when a Direction value is not recognized.
	// It wraps ErrInvalidDirection for errors.Is() compatibility.
	InvalidDirectionError struct {
		Value Direction
	}

	// InvalidBoardConfigError is returned when a BoardConfig has invalid fields.
	// It wraps ErrInvalidBoardConfig for errors.Is() compatibility and collects
	// field-level validation errors.
	InvalidBoardConfigError struct {
		FieldErrors []error
	}
)

// Validate returns an *InvalidDirectionError when d is neither "in" nor "out".
func (d Direction) Validate() error {
	switch d {
	case DirectionIn, DirectionOut:
		return nil
	default:
		return &InvalidDirectionError{Value: d}
	}
}

// String returns the string representation of the Direction.
func (d Direction) String() string { return string(d) }

// Error implements the error interface.
func (e *InvalidDirectionError) Error() string {
	return fmt.Sprintf("invalid frame buffer direction %q (valid: in, out)", e.Value)
}

// Unwrap returns ErrInvalidDirection for errors.Is() compatibility.
func (e *InvalidDirectionError) Unwrap() error { return ErrInvalidDirection }

// Error implements the error interface.
func (e *InvalidBoardConfigError) Error() string {
	msgs := make([]string, len(e.FieldErrors))
	for i, err := range e.FieldErrors {
		msgs[i] = err.Error()
	}
	return fmt.Sprintf("invalid board config: %s", strings.Join(msgs, "; "))
}

// Unwrap returns ErrInvalidBoardConfig for errors.Is() compatibility.
func (e *InvalidBoardConfigError) Unwrap() error { return ErrInvalidBoardConfig }

// Clone returns a deep copy of c.
func (c BoardConfig) Clone() BoardConfig {
	out := BoardConfig{
		Pins:         slices.Clone(c.Pins),
		GPIODrivers:  slices.Clone(c.GPIODrivers),
		UARTChannels: slices.Clone(c.UARTChannels),
		SDCards:      slices.Clone(c.SDCards),
		FrameBuffers: slices.Clone(c.FrameBuffers),
	}
	for i, d := range out.GPIODrivers {
		if d.AnalogDriver != nil {
			caps := *d.AnalogDriver
			out.GPIODrivers[i].AnalogDriver = &caps
		}
		if d.DigitalDriver != nil {
			caps := *d.DigitalDriver
			out.GPIODrivers[i].DigitalDriver = &caps
		}
	}
	for i, u := range out.UARTChannels {
		if u.RxPinOverride != nil {
			pin := *u.RxPinOverride
			out.UARTChannels[i].RxPinOverride = &pin
		}
		if u.TxPinOverride != nil {
			pin := *u.TxPinOverride
			out.UARTChannels[i].TxPinOverride = &pin
		}
	}
	return out
}

// ApplyDefaults fills zero-valued UART and frame buffer fields with their
// defaults. The CUE schema applies the same defaults on load.
func (c *BoardConfig) ApplyDefaults() {
	for i := range c.UARTChannels {
		ch := &c.UARTChannels[i]
		if ch.BaudRate == 0 {
			ch.BaudRate = DefaultBaudRate
		}
		if ch.RxBufferLength == 0 {
			ch.RxBufferLength = DefaultBufferLength
		}
		if ch.TxBufferLength == 0 {
			ch.TxBufferLength = DefaultBufferLength
		}
	}
	for i := range c.FrameBuffers {
		fb := &c.FrameBuffers[i]
		if fb.MaxWidth == 0 {
			fb.MaxWidth = DefaultFrameWidth
		}
		if fb.MaxHeight == 0 {
			fb.MaxHeight = DefaultFrameHeight
		}
	}
}

// Validate checks the ranges the peripheral model narrows values into.
// Call ApplyDefaults first; zero buffer lengths and dimensions are rejected.
func (c BoardConfig) Validate() error {
	var errs []error
	for i, ch := range c.UARTChannels {
		if ch.RxBufferLength < 1 || ch.RxBufferLength > MaxBufferLength {
			errs = append(errs, fmt.Errorf("uart_channels[%d].rx_buffer_length: %d out of range [1, %d]", i, ch.RxBufferLength, MaxBufferLength))
		}
		if ch.TxBufferLength < 1 || ch.TxBufferLength > MaxBufferLength {
			errs = append(errs, fmt.Errorf("uart_channels[%d].tx_buffer_length: %d out of range [1, %d]", i, ch.TxBufferLength, MaxBufferLength))
		}
	}
	for i, sd := range c.SDCards {
		if strings.TrimSpace(sd.RootDir) == "" {
			errs = append(errs, fmt.Errorf("sd_cards[%d].root_dir: must not be empty", i))
		}
	}
	seen := make(map[uint64]struct{}, len(c.FrameBuffers))
	for i, fb := range c.FrameBuffers {
		if err := fb.Direction.Validate(); err != nil {
			errs = append(errs, fmt.Errorf("frame_buffers[%d].direction: %w", i, err))
		}
		if fb.MaxWidth == 0 || fb.MaxWidth > MaxFrameDimension || fb.MaxHeight == 0 || fb.MaxHeight > MaxFrameDimension {
			errs = append(errs, fmt.Errorf("frame_buffers[%d]: dimensions %dx%d out of range [1, %d]", i, fb.MaxWidth, fb.MaxHeight, MaxFrameDimension))
		}
		if _, dup := seen[fb.Key]; dup {
			errs = append(errs, fmt.Errorf("frame_buffers[%d].key: duplicate key %d", i, fb.Key))
		}
		seen[fb.Key] = struct{}{}
	}
	if len(errs) > 0 {
		return &InvalidBoardConfigError{FieldErrors: errs}
	}
	return nil
}
