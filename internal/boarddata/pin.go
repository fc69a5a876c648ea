// SPDX-License-Identifier: MPL-2.0

package boarddata

import "sync/atomic"

// Capability flags of a pin.
const (
	CapAnalogRead Capability = 1 << iota
	CapAnalogWrite
	CapDigitalRead
	CapDigitalWrite
)

// Pin directions.
const (
	DirectionInput PinDirection = iota
	DirectionOutput
)

type (
	// Capability is a bit set of what the board may do with a pin.
	Capability uint16

	// PinDirection is the configured data direction of a pin.
	PinDirection uint32

	// Pin is one GPIO pin. The zero value reads as an inactive pin with no
	// capabilities and ignores writes.
	Pin struct {
		rec *pinRecord
	}
)

// Has reports whether every flag in want is set.
func (c Capability) Has(want Capability) bool { return c&want == want }

// String returns "input" or "output".
func (d PinDirection) String() string {
	if d == DirectionOutput {
		return "output"
	}
	return "input"
}

// ID returns the pin identifier.
func (p Pin) ID() uint16 {
	if p.rec == nil {
		return 0
	}
	return p.rec.ID
}

// Caps returns the capability flags granted by GPIO drivers.
func (p Pin) Caps() Capability {
	if p.rec == nil {
		return 0
	}
	return Capability(p.rec.Caps)
}

// CanAnalogRead reports whether the board can sample the pin.
func (p Pin) CanAnalogRead() bool { return p.Caps().Has(CapAnalogRead) }

// CanAnalogWrite reports whether the board can drive an analog level.
func (p Pin) CanAnalogWrite() bool { return p.Caps().Has(CapAnalogWrite) }

// CanDigitalRead reports whether the board can read a digital level.
func (p Pin) CanDigitalRead() bool { return p.Caps().Has(CapDigitalRead) }

// CanDigitalWrite reports whether the board can drive a digital level.
func (p Pin) CanDigitalWrite() bool { return p.Caps().Has(CapDigitalWrite) }

// Active reports whether the sketch has claimed the pin.
func (p Pin) Active() bool {
	return p.rec != nil && atomic.LoadUint32(&p.rec.Active) != 0
}

// SetActive marks the pin claimed or released.
func (p Pin) SetActive(active bool) {
	if p.rec != nil {
		atomic.StoreUint32(&p.rec.Active, boolWord(active))
	}
}

// Direction returns the pin's data direction.
func (p Pin) Direction() PinDirection {
	if p.rec == nil {
		return DirectionInput
	}
	return PinDirection(atomic.LoadUint32(&p.rec.Direction))
}

// SetDirection sets the pin's data direction.
func (p Pin) SetDirection(d PinDirection) {
	if p.rec != nil {
		atomic.StoreUint32(&p.rec.Direction, uint32(d))
	}
}

// DigitalRead returns the current digital level.
func (p Pin) DigitalRead() bool {
	return p.rec != nil && atomic.LoadUint32(&p.rec.Digital) != 0
}

// DigitalWrite sets the digital level.
func (p Pin) DigitalWrite(high bool) {
	if p.rec != nil {
		atomic.StoreUint32(&p.rec.Digital, boolWord(high))
	}
}

// AnalogRead returns the current analog level.
func (p Pin) AnalogRead() uint16 {
	if p.rec == nil {
		return 0
	}
	return uint16(atomic.LoadUint32(&p.rec.Analog))
}

// AnalogWrite sets the analog level.
func (p Pin) AnalogWrite(v uint16) {
	if p.rec != nil {
		atomic.StoreUint32(&p.rec.Analog, uint32(v))
	}
}

func boolWord(b bool) uint32 {
	if b {
		return 1
	}
	return 0
}
