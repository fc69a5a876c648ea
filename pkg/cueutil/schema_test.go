// SPDX-License-Identifier: MPL-2.0

package cueutil

import (
	"errors"
	"strings"
	"sync"
	"testing"
)

var channelSchema = NewSchema([]byte(`
#Channel: {
	baud_rate: int & >0 | *9600
	label?:    string
}
#Settings: {
	level?: "debug" | "info"
}
#Bus: {
	channels: [...#Channel]
}
`))

type channel struct {
	BaudRate int    `json:"baud_rate"`
	Label    string `json:"label,omitempty"`
}

func TestDecode(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		def     string
		data    string
		opts    []Option
		want    channel
		wantErr string
	}{
		{name: "defaults fill missing fields", def: "#Channel", data: `label: "debug"`, want: channel{BaudRate: 9600, Label: "debug"}},
		{name: "explicit value", def: "#Channel", data: `baud_rate: 115200`, want: channel{BaudRate: 115200}},
		{name: "constraint violation names file and field", def: "#Channel", data: `baud_rate: -1`, opts: []Option{WithFilename("uart.cue")}, wantErr: "uart.cue: baud_rate"},
		{name: "closed definition", def: "#Channel", data: `parity: "even"`, wantErr: "parity"},
		{name: "syntax error", def: "#Channel", data: `baud_rate: {`, wantErr: "<input>"},
		{name: "size limit", def: "#Channel", data: `baud_rate: 115200`, opts: []Option{WithMaxFileSize(4)}, wantErr: "byte limit"},
		{name: "unknown definition", def: "#Missing", data: `baud_rate: 1`, wantErr: "no definition #Missing"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			got, err := Decode[channel](channelSchema, tt.def, []byte(tt.data), tt.opts...)
			if tt.wantErr != "" {
				if err == nil || !strings.Contains(err.Error(), tt.wantErr) {
					t.Fatalf("Decode() error = %v, want containing %q", err, tt.wantErr)
				}
				return
			}
			if err != nil {
				t.Fatalf("Decode() error = %v", err)
			}
			if *got != tt.want {
				t.Errorf("Decode() = %+v, want %+v", *got, tt.want)
			}
		})
	}
}

func TestDecodeNonConcreteIntoMap(t *testing.T) {
	t.Parallel()

	got, err := Decode[map[string]any](channelSchema, "#Settings", []byte(`level: "debug"`), WithConcrete(false))
	if err != nil {
		t.Fatalf("Decode() error = %v", err)
	}
	if (*got)["level"] != "debug" {
		t.Errorf("Decode() = %v", *got)
	}
}

func TestDecodeConcurrent(t *testing.T) {
	t.Parallel()

	var wg sync.WaitGroup
	errs := make(chan error, 16)
	for range 16 {
		wg.Go(func() {
			_, err := Decode[channel](channelSchema, "#Channel", []byte(`baud_rate: 300`))
			errs <- err
		})
	}
	wg.Wait()
	close(errs)
	for err := range errs {
		if err != nil {
			t.Errorf("concurrent Decode() error = %v", err)
		}
	}
}

func TestBadSchema(t *testing.T) {
	t.Parallel()

	s := NewSchema([]byte(`#Broken: {`))
	_, err := Decode[channel](s, "#Broken", []byte(`{}`))
	if !errors.Is(err, ErrBadSchema) {
		t.Fatalf("Decode() error = %v, want ErrBadSchema", err)
	}
}

func TestValidationErrorFields(t *testing.T) {
	t.Parallel()

	_, err := Decode[channel](channelSchema, "#Channel", []byte(`label: 5`), WithFilename("uart.cue"))
	var ve *ValidationError
	if !errors.As(err, &ve) {
		t.Fatalf("error type = %T, want *ValidationError", err)
	}
	if ve.File != "uart.cue" || len(ve.Fields) == 0 {
		t.Fatalf("ValidationError = %+v", ve)
	}
	if ve.Fields[0].Path != "label" {
		t.Errorf("Fields[0].Path = %q, want label", ve.Fields[0].Path)
	}
}

func TestValidationErrorNestedPath(t *testing.T) {
	t.Parallel()

	_, err := Decode[map[string]any](channelSchema, "#Bus", []byte(`channels: [{baud_rate: -1}]`), WithFilename("bus.cue"))
	var ve *ValidationError
	if !errors.As(err, &ve) {
		t.Fatalf("error type = %T, want *ValidationError", err)
	}
	found := false
	for _, f := range ve.Fields {
		if strings.HasPrefix(f.Path, "#") {
			t.Errorf("field path %q leaks the definition name", f.Path)
		}
		if f.Path == "channels[0].baud_rate" {
			found = true
		}
	}
	if !found {
		t.Errorf("Fields = %+v, want one at channels[0].baud_rate", ve.Fields)
	}
}
