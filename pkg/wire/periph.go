package wire

import (
	"fmt"

	"periph.io/x/conn/v3/i2c"
)

// Periph runs the queued transactions over a periph.io I²C bus. Every
// EndTransmission and RequestFrom is one bus Tx.
type Periph struct {
	buffers
	bus i2c.Bus
	buf [BufferSize]byte
}

// NewPeriph returns an adapter over bus. The bus stays owned by the caller.
func NewPeriph(bus i2c.Bus) *Periph {
	return &Periph{bus: bus}
}

// EndTransmission sends the queued bytes.
func (p *Periph) EndTransmission() error {
	p.inTx = false
	if err := p.bus.Tx(p.addr, p.tx, nil); err != nil {
		p.err = fmt.Errorf("wire: tx to 0x%02x: %w", p.addr, err)
		return p.err
	}
	return nil
}

// RequestFrom reads n bytes from addr. A failed transaction leaves nothing
// available.
func (p *Periph) RequestFrom(addr uint16, n int) int {
	n = clampRequest(n)
	p.received(nil)
	if n == 0 {
		return 0
	}
	r := p.buf[:n]
	if err := p.bus.Tx(addr, nil, r); err != nil {
		p.err = fmt.Errorf("wire: read %d bytes from 0x%02x: %w", n, addr, err)
		return 0
	}
	p.received(r)
	return n
}

func (p *Periph) String() string {
	return "wire/" + p.bus.String()
}
