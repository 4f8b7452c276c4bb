package wire

import (
	"errors"
	"io"
	"testing"

	"github.com/google/go-cmp/cmp"
	"periph.io/x/conn/v3/i2c/i2ctest"

	"github.com/walkure/shtnode/pkg/sht3x"
)

var (
	_ sht3x.Bus = &Periph{}
	_ sht3x.Bus = &D2R2{}
)

func drain(b interface {
	Available() int
	ReadByte() (byte, error)
}) []byte {
	var out []byte
	for b.Available() > 0 {
		c, err := b.ReadByte()
		if err != nil {
			break
		}
		out = append(out, c)
	}
	return out
}

func TestPeriph(t *testing.T) {
	resp := []byte{0x66, 0x66, 0x93, 0x80, 0x00, 0xa2}
	bus := &i2ctest.Playback{
		Ops: []i2ctest.IO{
			{Addr: 0x44, W: []byte{0x24, 0x00}},
			{Addr: 0x44, R: resp},
		},
		DontPanic: true,
	}
	p := NewPeriph(bus)
	if got := p.String(); got != "wire/playback" {
		t.Errorf("String() = %q", got)
	}

	p.BeginTransmission(0x44)
	if n, err := p.Write([]byte{0x24}); n != 1 || err != nil {
		t.Fatalf("Write() = %d, %v", n, err)
	}
	p.Write([]byte{0x00})
	if err := p.EndTransmission(); err != nil {
		t.Fatal(err)
	}
	if n := p.RequestFrom(0x44, len(resp)); n != len(resp) {
		t.Fatalf("RequestFrom() = %d", n)
	}
	if diff := cmp.Diff(resp, drain(p)); diff != "" {
		t.Errorf("received mismatch (-want +got):\n%s", diff)
	}
	if _, err := p.ReadByte(); !errors.Is(err, io.EOF) {
		t.Errorf("ReadByte() past end = %v", err)
	}
	if err := bus.Close(); err != nil {
		t.Fatal(err)
	}
}

func TestPeriphFailedRequest(t *testing.T) {
	// An empty playback rejects every Tx.
	bus := &i2ctest.Playback{DontPanic: true}
	p := NewPeriph(bus)
	if n := p.RequestFrom(0x44, 6); n != 0 {
		t.Errorf("RequestFrom() = %d on failing bus", n)
	}
	if p.Available() != 0 {
		t.Errorf("Available() = %d", p.Available())
	}
	if p.LastErr() == nil {
		t.Error("LastErr() not set")
	}
	p.BeginTransmission(0x44)
	p.Write([]byte{0x24, 0x00})
	if err := p.EndTransmission(); err == nil {
		t.Error("EndTransmission() succeeded on failing bus")
	}
}

func TestWriteOutsideTransmission(t *testing.T) {
	p := NewPeriph(&i2ctest.Playback{DontPanic: true})
	if _, err := p.Write([]byte{1}); !errors.Is(err, ErrNotTransmitting) {
		t.Errorf("Write() = %v", err)
	}
	p.BeginTransmission(0x44)
	n, err := p.Write(make([]byte, BufferSize+4))
	if n != BufferSize || !errors.Is(err, ErrBufferFull) {
		t.Errorf("Write() overflow = %d, %v", n, err)
	}
}

type fakeDevice struct {
	written [][]byte
	read    []byte
	short   int
	err     error
}

func (f *fakeDevice) WriteBytes(buf []byte) (int, error) {
	if f.err != nil {
		return 0, f.err
	}
	f.written = append(f.written, append([]byte(nil), buf...))
	if f.short > 0 {
		return f.short, nil
	}
	return len(buf), nil
}

func (f *fakeDevice) ReadBytes(buf []byte) (int, error) {
	if f.err != nil {
		return 0, f.err
	}
	return copy(buf, f.read), nil
}

func TestD2R2(t *testing.T) {
	dev := &fakeDevice{read: []byte{1, 2, 3, 4, 5, 6}}
	d := NewD2R2(dev, 0x44)
	if got := d.String(); got != "wire/d2r2{0x44}" {
		t.Errorf("String() = %q", got)
	}

	d.BeginTransmission(0x44)
	d.Write([]byte{0x24, 0x00})
	if err := d.EndTransmission(); err != nil {
		t.Fatal(err)
	}
	if diff := cmp.Diff([][]byte{{0x24, 0x00}}, dev.written); diff != "" {
		t.Errorf("written mismatch (-want +got):\n%s", diff)
	}
	if n := d.RequestFrom(0x44, 6); n != 6 {
		t.Fatalf("RequestFrom() = %d", n)
	}
	if diff := cmp.Diff([]byte{1, 2, 3, 4, 5, 6}, drain(d)); diff != "" {
		t.Errorf("received mismatch (-want +got):\n%s", diff)
	}

	// Partial data from the kernel is passed through.
	dev.read = []byte{9, 9}
	if n := d.RequestFrom(0x44, 6); n != 2 {
		t.Errorf("short RequestFrom() = %d", n)
	}
}

func TestD2R2Errors(t *testing.T) {
	dev := &fakeDevice{}
	d := NewD2R2(dev, 0x44)

	d.BeginTransmission(0x45)
	d.Write([]byte{0x24, 0x00})
	if err := d.EndTransmission(); !errors.Is(err, ErrAddress) {
		t.Errorf("EndTransmission() to other address = %v", err)
	}
	if n := d.RequestFrom(0x45, 6); n != 0 {
		t.Errorf("RequestFrom() other address = %d", n)
	}

	dev.short = 1
	d.BeginTransmission(0x44)
	d.Write([]byte{0x24, 0x00})
	if err := d.EndTransmission(); err == nil {
		t.Error("short write not reported")
	}

	boom := errors.New("remote i/o error")
	dev.err = boom
	if n := d.RequestFrom(0x44, 6); n != 0 {
		t.Errorf("RequestFrom() = %d on error", n)
	}
	if !errors.Is(d.LastErr(), boom) {
		t.Errorf("LastErr() = %v", d.LastErr())
	}
}

func TestDriverOverPeriph(t *testing.T) {
	resp := sht3x.Decoded{RawTemp: 0x6666, RawHum: 0x3333}.Encode()
	bus := &i2ctest.Playback{
		Ops: []i2ctest.IO{
			{Addr: 0x44, W: []byte{0x24, 0x00}},
			{Addr: 0x44, R: resp[:]},
			{Addr: 0x44, W: []byte{0x24, 0x00}},
		},
	}
	dev, err := sht3x.New(NewPeriph(bus), nil)
	if err != nil {
		t.Fatal(err)
	}
	for _, now := range []uint64{0, 15, 16, 17} {
		dev.Update(now)
	}
	if dev.Err() != sht3x.NoError {
		t.Fatalf("Err() = %s", dev.Err())
	}
	if dev.Temperature() != 25 || dev.Humidity() != 20 {
		t.Errorf("reading = %v °C %v %%RH, want 25 / 20", dev.Temperature(), dev.Humidity())
	}
	if err := bus.Close(); err != nil {
		t.Fatal(err)
	}
}
