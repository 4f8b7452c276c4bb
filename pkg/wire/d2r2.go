package wire

import (
	"errors"
	"fmt"

	i2c "github.com/d2r2/go-i2c"
)

// ErrAddress is returned when a transaction targets another address than the
// one the device was opened for.
var ErrAddress = errors.New("wire: address does not match opened device")

// ByteDevice is a Linux i2c-dev handle already bound to one address.
type ByteDevice interface {
	WriteBytes(buf []byte) (int, error)
	ReadBytes(buf []byte) (int, error)
}

var _ ByteDevice = (*i2c.I2C)(nil)

// D2R2 runs the queued transactions over a github.com/d2r2/go-i2c device.
type D2R2 struct {
	buffers
	dev     ByteDevice
	devAddr uint16
	buf     [BufferSize]byte
}

// NewD2R2 returns an adapter for dev, which must have been opened for addr.
func NewD2R2(dev ByteDevice, addr uint16) *D2R2 {
	return &D2R2{dev: dev, devAddr: addr}
}

// OpenD2R2 opens /dev/i2c-<bus> for addr. The returned device must be closed
// by the caller.
func OpenD2R2(addr uint8, bus int) (*D2R2, *i2c.I2C, error) {
	dev, err := i2c.NewI2C(addr, bus)
	if err != nil {
		return nil, nil, fmt.Errorf("wire: open i2c-%d 0x%02x: %w", bus, addr, err)
	}
	return NewD2R2(dev, uint16(addr)), dev, nil
}

// EndTransmission writes the queued bytes.
func (d *D2R2) EndTransmission() error {
	d.inTx = false
	if d.addr != d.devAddr {
		d.err = fmt.Errorf("%w: 0x%02x", ErrAddress, d.addr)
		return d.err
	}
	n, err := d.dev.WriteBytes(d.tx)
	if err != nil {
		d.err = fmt.Errorf("wire: write to 0x%02x: %w", d.addr, err)
		return d.err
	}
	if n != len(d.tx) {
		d.err = fmt.Errorf("wire: short write to 0x%02x: %d of %d", d.addr, n, len(d.tx))
		return d.err
	}
	return nil
}

// RequestFrom reads up to n bytes. A short read makes the received part
// available.
func (d *D2R2) RequestFrom(addr uint16, n int) int {
	n = clampRequest(n)
	d.received(nil)
	if addr != d.devAddr {
		d.err = fmt.Errorf("%w: 0x%02x", ErrAddress, addr)
		return 0
	}
	if n == 0 {
		return 0
	}
	got, err := d.dev.ReadBytes(d.buf[:n])
	if err != nil {
		d.err = fmt.Errorf("wire: read %d bytes from 0x%02x: %w", n, addr, err)
		return 0
	}
	d.received(d.buf[:got])
	return got
}

func (d *D2R2) String() string {
	return fmt.Sprintf("wire/d2r2{0x%02x}", d.devAddr)
}
