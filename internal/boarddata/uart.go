// SPDX-License-Identifier: MPL-2.0

package boarddata

import "sync/atomic"

// UART is one serial channel. Each direction is a bounded single-producer,
// single-consumer byte ring: rx carries bytes from the host to the sketch,
// tx from the sketch to the host. The zero value is a closed channel.
type UART struct {
	rec *uartRecord
	mem []byte
}

// BaudRate returns the configured baud rate.
func (u UART) BaudRate() uint32 {
	if u.rec == nil {
		return 0
	}
	return atomic.LoadUint32(&u.rec.BaudRate)
}

// SetBaudRate changes the baud rate, as a sketch calling begin() would.
func (u UART) SetBaudRate(baud uint32) {
	if u.rec != nil {
		atomic.StoreUint32(&u.rec.BaudRate, baud)
	}
}

// RxPinOverride returns the rx pin override, if any.
func (u UART) RxPinOverride() (uint16, bool) {
	if u.rec == nil || u.rec.RxPin == noPin {
		return 0, false
	}
	return uint16(u.rec.RxPin), true
}

// TxPinOverride returns the tx pin override, if any.
func (u UART) TxPinOverride() (uint16, bool) {
	if u.rec == nil || u.rec.TxPin == noPin {
		return 0, false
	}
	return uint16(u.rec.TxPin), true
}

// MaxBufferedRx returns the rx ring capacity in bytes.
func (u UART) MaxBufferedRx() uint16 {
	if u.rec == nil {
		return 0
	}
	return u.rec.MaxRx
}

// MaxBufferedTx returns the tx ring capacity in bytes.
func (u UART) MaxBufferedTx() uint16 {
	if u.rec == nil {
		return 0
	}
	return u.rec.MaxTx
}

// Active reports whether the sketch has opened the channel.
func (u UART) Active() bool {
	return u.rec != nil && atomic.LoadUint32(&u.rec.Active) != 0
}

// SetActive opens or closes the channel.
func (u UART) SetActive(active bool) {
	if u.rec != nil {
		atomic.StoreUint32(&u.rec.Active, boolWord(active))
	}
}

// WriteRx queues bytes for the sketch to read and returns how many fit.
func (u UART) WriteRx(p []byte) int {
	if u.rec == nil {
		return 0
	}
	return ringWrite(&u.rec.Rx, u.mem, p)
}

// ReadTx drains bytes the sketch has written.
func (u UART) ReadTx(p []byte) int {
	if u.rec == nil {
		return 0
	}
	return ringRead(&u.rec.Tx, u.mem, p)
}

// ReadRx drains bytes queued by the host. This is the sketch's end of rx.
func (u UART) ReadRx(p []byte) int {
	if u.rec == nil {
		return 0
	}
	return ringRead(&u.rec.Rx, u.mem, p)
}

// WriteTx queues bytes for the host. This is the sketch's end of tx.
func (u UART) WriteTx(p []byte) int {
	if u.rec == nil {
		return 0
	}
	return ringWrite(&u.rec.Tx, u.mem, p)
}

// RxBuffered returns the number of bytes waiting in rx.
func (u UART) RxBuffered() int {
	if u.rec == nil {
		return 0
	}
	return ringAvailable(&u.rec.Rx)
}

// TxBuffered returns the number of bytes waiting in tx.
func (u UART) TxBuffered() int {
	if u.rec == nil {
		return 0
	}
	return ringAvailable(&u.rec.Tx)
}

// Indices grow monotonically and wrap at 2^32; storage is a power of two
// at least Cap long so masking stays correct across the wrap.

// The sketch can write Rd and Wr at any time, so the distance between them
// is clamped to the ring's capacity before it is used to index storage.

func ringUsed(r *ringHeader, rd, wr uint32) int {
	return int(min(wr-rd, r.Cap))
}

func ringAvailable(r *ringHeader) int {
	return ringUsed(r, atomic.LoadUint32(&r.Rd), atomic.LoadUint32(&r.Wr))
}

func ringWrite(r *ringHeader, mem []byte, src []byte) int {
	if len(src) == 0 {
		return 0
	}
	rd := atomic.LoadUint32(&r.Rd)
	wr := atomic.LoadUint32(&r.Wr)
	space := int(r.Cap) - ringUsed(r, rd, wr)
	if space <= 0 {
		return 0
	}
	n := min(space, len(src))

	buf := ref{Off: r.Buf, Len: r.Mask + 1}.bytes(mem)
	idx := int(wr & r.Mask)
	first := min(n, len(buf)-idx)
	copy(buf[idx:idx+first], src[:first])
	copy(buf[:n-first], src[first:n])
	atomic.StoreUint32(&r.Wr, wr+uint32(n))
	return n
}

func ringRead(r *ringHeader, mem []byte, dst []byte) int {
	if len(dst) == 0 {
		return 0
	}
	rd := atomic.LoadUint32(&r.Rd)
	wr := atomic.LoadUint32(&r.Wr)
	avail := ringUsed(r, rd, wr)
	if avail <= 0 {
		return 0
	}
	n := min(avail, len(dst))

	buf := ref{Off: r.Buf, Len: r.Mask + 1}.bytes(mem)
	idx := int(rd & r.Mask)
	first := min(n, len(buf)-idx)
	copy(dst[:first], buf[idx:idx+first])
	copy(dst[first:n], buf[:n-first])
	atomic.StoreUint32(&r.Rd, rd+uint32(n))
	return n
}
