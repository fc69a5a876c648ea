// SPDX-License-Identifier: MPL-2.0

package boarddata

import (
	"errors"
	"fmt"
	"path/filepath"
	"slices"
	"sync/atomic"

	"smce-runner/internal/boardconf"
	"smce-runner/internal/shm"
)

const bytesPerPixel = 3

type (
	allocator interface {
		Alloc(size, align int) (shm.Offset, error)
	}

	// counter sizes a layout without backing memory.
	counter struct {
		next int
	}

	plan struct {
		fqbn     ref
		pins     ref
		uarts    ref
		rx, tx   []ref
		storages ref
		roots    []ref
		frames   ref
		pixels   []ref
	}
)

func (c *counter) Alloc(size, align int) (shm.Offset, error) {
	start := shm.AlignUp(c.next, align)
	c.next = start + size
	return shm.Offset(start), nil
}

// Size returns the number of bytes a segment needs to hold the model for cfg.
func Size(fqbn string, cfg boardconf.BoardConfig) (int, error) {
	if err := cfg.Validate(); err != nil {
		return 0, err
	}
	var c counter
	if _, err := layout(&c, fqbn, cfg, pinIDs(cfg)); err != nil {
		return 0, err
	}
	return c.next, nil
}

// Build constructs the peripheral model for cfg at the start of an empty
// arena. Pins are stored sorted by id with duplicates collapsed; GPIO
// drivers naming unknown pins are ignored. cfg must have defaults applied.
func Build(a *shm.Arena, fqbn string, cfg boardconf.BoardConfig) (*Board, error) {
	if a.Used() != 0 {
		return nil, errors.New("board model must start at offset 0 of the arena")
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	ids := pinIDs(cfg)
	p, err := layout(a, fqbn, cfg, ids)
	if err != nil {
		return nil, err
	}

	mem := a.Mem()
	h := at[header](mem, 0)
	h.Version = LayoutVersion
	h.Size = uint32(a.Used())
	h.FQBN = p.fqbn
	h.Pins = p.pins
	h.UARTs = p.uarts
	h.Storages = p.storages
	h.FrameBuffers = p.frames
	copy(p.fqbn.bytes(mem), fqbn)

	pins := table[pinRecord](mem, p.pins)
	for i, id := range ids {
		pins[i].ID = id
	}
	for _, d := range cfg.GPIODrivers {
		i, found := slices.BinarySearch(ids, d.PinID)
		if !found {
			continue
		}
		pins[i].Caps |= driverCaps(d)
	}

	uarts := table[uartRecord](mem, p.uarts)
	for i, c := range cfg.UARTChannels {
		u := &uarts[i]
		u.BaudRate = c.BaudRate
		u.RxPin = pinOverride(c.RxPinOverride)
		u.TxPin = pinOverride(c.TxPinOverride)
		u.MaxRx = uint16(c.RxBufferLength)
		u.MaxTx = uint16(c.TxBufferLength)
		u.Rx = ringHeader{Buf: p.rx[i].Off, Mask: p.rx[i].Len - 1, Cap: uint32(u.MaxRx)}
		u.Tx = ringHeader{Buf: p.tx[i].Off, Mask: p.tx[i].Len - 1, Cap: uint32(u.MaxTx)}
	}

	storages := table[storageRecord](mem, p.storages)
	for i, c := range cfg.SDCards {
		s := &storages[i]
		s.Bus = uint32(BusSPI)
		s.Accessor = c.CSPin
		s.RootDir = p.roots[i]
		copy(p.roots[i].bytes(mem), filepath.ToSlash(c.RootDir))
	}

	frames := table[frameRecord](mem, p.frames)
	for i, c := range cfg.FrameBuffers {
		f := &frames[i]
		f.Key = c.Key
		f.Direction = encodeDirection(c.Direction)
		f.MaxWidth = c.MaxWidth
		f.MaxHeight = c.MaxHeight
		f.Pixels = p.pixels[i]
	}

	// Publish last so an attacher never sees a half-built header.
	atomic.StoreUint32(&h.Magic, Magic)
	return &Board{mem: mem, hdr: h}, nil
}

// Attach validates the model at the start of mem, typically a second
// mapping of a segment built elsewhere.
func Attach(mem []byte) (*Board, error) {
	if len(mem) < headerSize {
		return nil, fmt.Errorf("%w: %d bytes is smaller than the header", ErrInvalidLayout, len(mem))
	}
	h := at[header](mem, 0)
	if m := atomic.LoadUint32(&h.Magic); m != Magic {
		return nil, fmt.Errorf("%w: bad magic %#x", ErrInvalidLayout, m)
	}
	if h.Version != LayoutVersion {
		return nil, fmt.Errorf("%w: layout version %d, want %d", ErrInvalidLayout, h.Version, LayoutVersion)
	}
	if uint64(h.Size) > uint64(len(mem)) {
		return nil, fmt.Errorf("%w: model needs %d bytes, mapping has %d", ErrInvalidLayout, h.Size, len(mem))
	}
	if err := checkBounds(mem, h); err != nil {
		return nil, err
	}
	return &Board{mem: mem, hdr: h}, nil
}

func checkBounds(mem []byte, h *header) error {
	size := h.Size
	bad := func(what string) error {
		return fmt.Errorf("%w: %s out of bounds", ErrInvalidLayout, what)
	}
	if !h.FQBN.within(size, 1) {
		return bad("fqbn")
	}
	if !h.Pins.within(size, pinSize) {
		return bad("pin table")
	}
	if !h.UARTs.within(size, uartSize) {
		return bad("uart table")
	}
	if !h.Storages.within(size, storageSize) {
		return bad("storage table")
	}
	if !h.FrameBuffers.within(size, frameSize) {
		return bad("frame buffer table")
	}
	for _, u := range table[uartRecord](mem, h.UARTs) {
		for _, r := range []ringHeader{u.Rx, u.Tx} {
			if !(ref{Off: r.Buf, Len: r.Mask + 1}).within(size, 1) || r.Cap > r.Mask+1 {
				return bad("uart ring")
			}
		}
	}
	for _, s := range table[storageRecord](mem, h.Storages) {
		if !s.RootDir.within(size, 1) {
			return bad("storage root dir")
		}
	}
	for _, f := range table[frameRecord](mem, h.FrameBuffers) {
		if !f.Pixels.within(size, 1) {
			return bad("frame pixels")
		}
	}
	return nil
}

func layout(a allocator, fqbn string, cfg boardconf.BoardConfig, ids []uint16) (plan, error) {
	var p plan
	var err error
	alloc := func(n, align int) ref {
		if err != nil {
			return ref{}
		}
		var off shm.Offset
		off, err = a.Alloc(n, align)
		return ref{Off: off, Len: uint32(n)}
	}
	tableRef := func(count, elem int) ref {
		r := alloc(count*elem, recordAlign)
		r.Len = uint32(count)
		return r
	}

	alloc(headerSize, recordAlign)
	p.fqbn = alloc(len(fqbn), 1)
	p.pins = tableRef(len(ids), pinSize)
	p.uarts = tableRef(len(cfg.UARTChannels), uartSize)
	for _, c := range cfg.UARTChannels {
		p.rx = append(p.rx, alloc(int(nextPow2(uint32(c.RxBufferLength))), 1))
		p.tx = append(p.tx, alloc(int(nextPow2(uint32(c.TxBufferLength))), 1))
	}
	p.storages = tableRef(len(cfg.SDCards), storageSize)
	for _, c := range cfg.SDCards {
		p.roots = append(p.roots, alloc(len(filepath.ToSlash(c.RootDir)), 1))
	}
	p.frames = tableRef(len(cfg.FrameBuffers), frameSize)
	for _, c := range cfg.FrameBuffers {
		p.pixels = append(p.pixels, alloc(int(c.MaxWidth)*int(c.MaxHeight)*bytesPerPixel, recordAlign))
	}
	return p, err
}

func pinIDs(cfg boardconf.BoardConfig) []uint16 {
	ids := slices.Clone(cfg.Pins)
	slices.Sort(ids)
	return slices.Compact(ids)
}

func driverCaps(d boardconf.GPIODriver) uint16 {
	var caps uint16
	if a := d.AnalogDriver; a != nil {
		if a.BoardRead {
			caps |= uint16(CapAnalogRead)
		}
		if a.BoardWrite {
			caps |= uint16(CapAnalogWrite)
		}
	}
	if dd := d.DigitalDriver; dd != nil {
		if dd.BoardRead {
			caps |= uint16(CapDigitalRead)
		}
		if dd.BoardWrite {
			caps |= uint16(CapDigitalWrite)
		}
	}
	return caps
}

func pinOverride(p *uint16) uint32 {
	if p == nil {
		return noPin
	}
	return uint32(*p)
}
