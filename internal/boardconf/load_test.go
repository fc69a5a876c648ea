// SPDX-License-Identifier: MPL-2.0

package boardconf

import (
	"errors"
	"os"
	"path/filepath"
	"slices"
	"strings"
	"testing"
)

const cueBoard = `
pins: [2, 5, 1]
gpio_drivers: [
	{pin_id: 5, analog_driver: {board_read: true}},
	{pin_id: 9, digital_driver: {board_read: true, board_write: true}},
]
uart_channels: [{}, {baud_rate: 115200, rx_pin_override: 0}]
sd_cards: [{cspin: 10, root_dir: "/tmp/sd"}]
frame_buffers: [{key: 1, direction: "in", max_width: 320, max_height: 240}]
`

const tomlBoard = `
pins = [2, 5, 1]

[[gpio_drivers]]
pin_id = 5
analog_driver = { board_read = true }

[[uart_channels]]
baud_rate = 115200

[[frame_buffers]]
key = 1
direction = "out"
`

func TestParseCUE(t *testing.T) {
	t.Parallel()

	cfg, err := Parse([]byte(cueBoard), "board.cue")
	if err != nil {
		t.Fatalf("Parse() error = %v", err)
	}
	if !slices.Equal(cfg.Pins, []uint16{2, 5, 1}) {
		t.Errorf("Pins = %v, want [2 5 1]", cfg.Pins)
	}
	if len(cfg.GPIODrivers) != 2 || cfg.GPIODrivers[0].AnalogDriver == nil || !cfg.GPIODrivers[0].AnalogDriver.BoardRead {
		t.Errorf("GPIODrivers = %+v", cfg.GPIODrivers)
	}
	if cfg.GPIODrivers[0].DigitalDriver != nil {
		t.Error("absent digital driver should decode as nil")
	}
	if got := cfg.UARTChannels[0]; got.BaudRate != DefaultBaudRate || got.RxBufferLength != DefaultBufferLength {
		t.Errorf("UART defaults = %+v", got)
	}
	if got := cfg.UARTChannels[1]; got.RxPinOverride == nil || *got.RxPinOverride != 0 || got.TxPinOverride != nil {
		t.Errorf("pin overrides = %+v", got)
	}
	if got := cfg.FrameBuffers[0]; got.Direction != DirectionIn || got.MaxWidth != 320 || got.MaxHeight != 240 {
		t.Errorf("FrameBuffers[0] = %+v", got)
	}
}

func TestParseTOML(t *testing.T) {
	t.Parallel()

	cfg, err := Parse([]byte(tomlBoard), "board.toml")
	if err != nil {
		t.Fatalf("Parse() error = %v", err)
	}
	if len(cfg.UARTChannels) != 1 || cfg.UARTChannels[0].TxBufferLength != DefaultBufferLength {
		t.Errorf("UARTChannels = %+v", cfg.UARTChannels)
	}
	if fb := cfg.FrameBuffers[0]; fb.MaxWidth != DefaultFrameWidth || fb.Direction != DirectionOut {
		t.Errorf("FrameBuffers[0] = %+v", fb)
	}
}

func TestParseErrors(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		file    string
		data    string
		wantSub string
	}{
		{"unsupported extension", "board.yaml", "pins: [1]", "unsupported"},
		{"cue buffer out of range", "board.cue", `uart_channels: [{rx_buffer_length: 70000}]`, "rx_buffer_length"},
		{"cue unknown field", "board.cue", `leds: [1]`, "leds"},
		{"cue bad direction", "board.cue", `frame_buffers: [{key: 1, direction: "up"}]`, "direction"},
		{"toml bad direction", "board.toml", "[[frame_buffers]]\nkey = 1\ndirection = \"up\"\n", "direction"},
		{"toml buffer out of range", "board.toml", "[[uart_channels]]\nrx_buffer_length = 70000\n", "rx_buffer_length"},
		{"toml unknown field", "board.toml", "leds = [1]\n", "unknown field leds"},
		{"toml unknown nested field", "board.toml", "[[uart_channels]]\nparity = \"even\"\n", "uart_channels.parity"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			_, err := Parse([]byte(tt.data), tt.file)
			if err == nil {
				t.Fatal("expected error")
			}
			if !strings.Contains(err.Error(), tt.wantSub) {
				t.Errorf("error %q should mention %q", err, tt.wantSub)
			}
		})
	}
}

func TestLoadFromDisk(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	path := filepath.Join(dir, "board.cue")
	if err := os.WriteFile(path, []byte(cueBoard), 0o644); err != nil {
		t.Fatal(err)
	}
	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if len(cfg.SDCards) != 1 || cfg.SDCards[0].CSPin != 10 {
		t.Errorf("SDCards = %+v", cfg.SDCards)
	}

	if _, err := Load(filepath.Join(dir, "missing.cue")); !errors.Is(err, os.ErrNotExist) {
		t.Errorf("Load(missing) error = %v, want os.ErrNotExist", err)
	}
}

func TestParseSketchConfig(t *testing.T) {
	t.Parallel()

	want := &SketchConfig{
		FQBN:        "arduino:avr:uno",
		PreprocLibs: []Library{RemoteLibrary{Name: "Servo", Version: "1.1.8"}},
		ComplinkLibs: []Library{
			RemoteLibrary{Name: "WiFi"},
			LocalLibrary{RootDir: "/libs/mqtt"},
			LocalLibrary{RootDir: "/libs/wifi-patch", PatchFor: "WiFi"},
			FreestandingLibrary{Name: "SMCE_WiFi"},
		},
	}

	inputs := map[string]string{
		"sketch.cue": `
fqbn: "arduino:avr:uno"
preproc_libs: [{kind: "remote", name: "Servo", version: "1.1.8"}]
complink_libs: [
	{kind: "remote", name: "WiFi"},
	{kind: "local", root_dir: "/libs/mqtt"},
	{kind: "local", root_dir: "/libs/wifi-patch", patch_for: "WiFi"},
	{kind: "freestanding", name: "SMCE_WiFi"},
]
`,
		"sketch.toml": `
fqbn = "arduino:avr:uno"
preproc_libs = [{ kind = "remote", name = "Servo", version = "1.1.8" }]
complink_libs = [
	{ kind = "remote", name = "WiFi" },
	{ kind = "local", root_dir = "/libs/mqtt" },
	{ kind = "local", root_dir = "/libs/wifi-patch", patch_for = "WiFi" },
	{ kind = "freestanding", name = "SMCE_WiFi" },
]
`,
	}

	for name, data := range inputs {
		t.Run(name, func(t *testing.T) {
			t.Parallel()

			got, err := ParseSketchConfig([]byte(data), name)
			if err != nil {
				t.Fatalf("ParseSketchConfig() error = %v", err)
			}
			if got.FQBN != want.FQBN {
				t.Errorf("FQBN = %q, want %q", got.FQBN, want.FQBN)
			}
			if !slices.Equal(got.PreprocLibs, want.PreprocLibs) {
				t.Errorf("PreprocLibs = %#v, want %#v", got.PreprocLibs, want.PreprocLibs)
			}
			if !slices.Equal(got.ComplinkLibs, want.ComplinkLibs) {
				t.Errorf("ComplinkLibs = %#v, want %#v", got.ComplinkLibs, want.ComplinkLibs)
			}
		})
	}
}

func TestParseSketchConfigInvalidLibrary(t *testing.T) {
	t.Parallel()

	tests := map[string]string{
		"remote without name": "complink_libs = [{ kind = \"remote\" }]\n",
		"local without root":  "complink_libs = [{ kind = \"local\", patch_for = \"WiFi\" }]\n",
		"unknown kind":        "preproc_libs = [{ kind = \"git\", name = \"x\" }]\n",
	}

	for name, data := range tests {
		t.Run(name, func(t *testing.T) {
			t.Parallel()

			_, err := ParseSketchConfig([]byte(data), "sketch.toml")
			if !errors.Is(err, ErrInvalidLibrary) {
				t.Errorf("error = %v, want ErrInvalidLibrary", err)
			}
		})
	}
}

func TestParseSketchConfigUnknownField(t *testing.T) {
	t.Parallel()

	_, err := ParseSketchConfig([]byte("extra_libs = []\n"), "sketch.toml")
	if err == nil || !strings.Contains(err.Error(), "unknown field extra_libs") {
		t.Errorf("error = %v, want it to name extra_libs", err)
	}
}

func TestRemoteLibraryRef(t *testing.T) {
	t.Parallel()

	if got := (RemoteLibrary{Name: "Servo"}).Ref(); got != "Servo" {
		t.Errorf("Ref() = %q, want Servo", got)
	}
	if got := (RemoteLibrary{Name: "Servo", Version: "1.1.8"}).Ref(); got != "Servo@1.1.8" {
		t.Errorf("Ref() = %q, want Servo@1.1.8", got)
	}
	if (LocalLibrary{RootDir: "/x"}).IsPatch() {
		t.Error("library without PatchFor should not be a patch")
	}
}
