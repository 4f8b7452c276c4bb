// Package wire adapts transaction based I²C stacks to the queued
// BeginTransmission/RequestFrom shape used by the sht3x driver.
package wire

import (
	"errors"
	"io"
)

// BufferSize bounds a single transmission or request, as on the
// microcontroller Wire implementations.
const BufferSize = 32

var (
	// ErrNotTransmitting is returned by Write outside Begin/EndTransmission.
	ErrNotTransmitting = errors.New("wire: write outside transmission")
	// ErrBufferFull is returned by Write when BufferSize would be exceeded.
	ErrBufferFull = errors.New("wire: transmit buffer full")
)

// buffers holds the queued transmit bytes and the received bytes not read
// yet. Both adapters embed it.
type buffers struct {
	addr uint16
	inTx bool
	tx   []byte
	rx   []byte
	pos  int
	err  error
}

func (b *buffers) BeginTransmission(addr uint16) {
	b.addr = addr
	b.inTx = true
	b.tx = b.tx[:0]
}

func (b *buffers) Write(p []byte) (int, error) {
	if !b.inTx {
		return 0, ErrNotTransmitting
	}
	n := len(p)
	if room := BufferSize - len(b.tx); n > room {
		n = room
	}
	b.tx = append(b.tx, p[:n]...)
	if n < len(p) {
		return n, ErrBufferFull
	}
	return n, nil
}

func (b *buffers) ReadByte() (byte, error) {
	if b.pos >= len(b.rx) {
		return 0, io.EOF
	}
	c := b.rx[b.pos]
	b.pos++
	return c, nil
}

func (b *buffers) Available() int {
	return len(b.rx) - b.pos
}

// Flush drops queued transmit bytes.
func (b *buffers) Flush() {
	b.tx = b.tx[:0]
}

// LastErr returns the error of the last failed transaction, if any. The
// queued interface has no other way to report why a request came back empty.
func (b *buffers) LastErr() error {
	return b.err
}

func (b *buffers) received(data []byte) {
	b.rx = append(b.rx[:0], data...)
	b.pos = 0
}

func clampRequest(n int) int {
	if n < 0 {
		return 0
	}
	if n > BufferSize {
		return BufferSize
	}
	return n
}
