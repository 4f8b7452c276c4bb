package sht3x

import (
	"errors"
	"math"
	"testing"

	"github.com/google/go-cmp/cmp"
	"periph.io/x/conn/v3/physic"

	"github.com/walkure/shtnode/pkg/sht3x/sht3xtest"
)

var _ Bus = &sht3xtest.Bus{}

func response(rawTemp, rawHum uint16) []byte {
	r := Decoded{RawTemp: rawTemp, RawHum: rawHum}.Encode()
	return r[:]
}

func getDev(t *testing.T, bus *sht3xtest.Bus, opts *Opts) *Dev {
	t.Helper()
	dev, err := New(bus, opts)
	if err != nil {
		t.Fatal(err)
	}
	return dev
}

// step calls Update and checks the resulting state.
func step(t *testing.T, dev *Dev, now uint64, want State) {
	t.Helper()
	dev.Update(now)
	if got := dev.State(); got != want {
		t.Fatalf("Update(%d): state %s, want %s", now, got, want)
	}
}

func TestValidAddress(t *testing.T) {
	tests := []struct {
		addr uint
		want bool
	}{
		{0x00, false},
		{0x07, false},
		{0x08, true},
		{uint(DefaultAddress), true},
		{0x45, true},
		{0x77, true},
		{0x78, false},
		{0x144, false},
	}
	for _, tt := range tests {
		if got := ValidAddress(tt.addr); got != tt.want {
			t.Errorf("ValidAddress(0x%x) = %v, want %v", tt.addr, got, tt.want)
		}
	}
}

func TestNew(t *testing.T) {
	if _, err := New(nil, nil); !errors.Is(err, ErrNoBus) {
		t.Errorf("New(nil) err = %v", err)
	}
	dev := getDev(t, &sht3xtest.Bus{}, nil)
	if dev.State() != SendCommand {
		t.Errorf("initial state %s", dev.State())
	}
	if dev.Err() != Pending {
		t.Errorf("initial error code %s", dev.Err())
	}
	if s := dev.String(); s != "sht3x{0x44}" {
		t.Errorf("String() = %q", s)
	}
	if dev.Temperature() != InvalidTemperature || dev.Humidity() != InvalidHumidity {
		t.Errorf("getters before first cycle: %f %f", dev.Temperature(), dev.Humidity())
	}
}

func TestCycle(t *testing.T) {
	bus := &sht3xtest.Bus{Script: []sht3xtest.Step{
		sht3xtest.Tx(),
		sht3xtest.Rx(response(0x624D, 0x8000)...),
		sht3xtest.Tx(),
		sht3xtest.Rx(response(0x6666, 0x4000)...),
	}}
	dev := getDev(t, bus, nil)

	step(t, dev, 0, AwaitSettle)
	step(t, dev, 5, AwaitSettle)
	step(t, dev, 14, AwaitSettle)
	step(t, dev, 15, ReceiveResponse)
	if dev.Err() != Pending {
		t.Fatalf("error code changed before response: %s", dev.Err())
	}
	step(t, dev, 16, SendCommand)

	if dev.Err() != NoError {
		t.Fatalf("Err() = %s", dev.Err())
	}
	if got, want := dev.Temperature(), Celsius(0x624D); got != want {
		t.Errorf("Temperature() = %f, want %f", got, want)
	}
	if got, want := dev.Humidity(), PercentRH(0x8000); got != want {
		t.Errorf("Humidity() = %f, want %f", got, want)
	}
	if c := dev.Stats().Cycles; c != 1 {
		t.Errorf("cycles = %d after one cycle", c)
	}

	step(t, dev, 17, AwaitSettle)
	step(t, dev, 32, ReceiveResponse)
	step(t, dev, 33, SendCommand)
	if got, want := dev.Temperature(), Celsius(0x6666); got != want {
		t.Errorf("Temperature() = %f, want %f", got, want)
	}
	if got, want := dev.Humidity(), PercentRH(0x4000); got != want {
		t.Errorf("Humidity() = %f, want %f", got, want)
	}

	want := [][]byte{{0x24, 0x00}, {0x24, 0x00}}
	if diff := cmp.Diff(want, bus.Sent); diff != "" {
		t.Errorf("sent commands mismatch (-want +got):\n%s", diff)
	}
	if diff := cmp.Diff([]uint16{DefaultAddress, DefaultAddress}, bus.Requests); diff != "" {
		t.Errorf("requests mismatch (-want +got):\n%s", diff)
	}
	if err := bus.Done(); err != nil {
		t.Error(err)
	}
}

func TestTimeout(t *testing.T) {
	bus := &sht3xtest.Bus{Script: []sht3xtest.Step{
		sht3xtest.Tx(),
		sht3xtest.Rx(response(0x624D, 0x8000)...),
		sht3xtest.Tx(),
	}}
	dev := getDev(t, bus, nil)
	step(t, dev, 0, AwaitSettle)
	step(t, dev, 15, ReceiveResponse)
	step(t, dev, 16, SendCommand)
	before := dev.Reading()

	step(t, dev, 20, AwaitSettle)
	step(t, dev, 35, ReceiveResponse)
	// The script is exhausted: every request comes back empty.
	for now := uint64(36); now < 55; now++ {
		step(t, dev, now, ReceiveResponse)
	}
	if dev.Err() != NoError {
		t.Fatalf("error code changed before deadline: %s", dev.Err())
	}
	step(t, dev, 55, SendCommand)

	if dev.Err() != NotResponding {
		t.Fatalf("Err() = %s, want %s", dev.Err(), NotResponding)
	}
	if dev.Temperature() != InvalidTemperature || dev.Humidity() != InvalidHumidity {
		t.Errorf("getters after timeout: %f %f", dev.Temperature(), dev.Humidity())
	}
	if diff := cmp.Diff(before, dev.Reading()); diff != "" {
		t.Errorf("reading changed by timeout (-want +got):\n%s", diff)
	}
	if got := dev.Stats().Timeouts; got != 1 {
		t.Errorf("timeouts = %d", got)
	}
	if err := bus.Done(); err != nil {
		t.Error(err)
	}
}

func TestShortRead(t *testing.T) {
	full := response(0x1234, 0x5678)
	bus := &sht3xtest.Bus{Script: []sht3xtest.Step{
		sht3xtest.Tx(),
		sht3xtest.Rx(full[:3]...),
		sht3xtest.Rx(full...),
	}}
	dev := getDev(t, bus, nil)
	step(t, dev, 0, AwaitSettle)
	step(t, dev, 15, ReceiveResponse)
	step(t, dev, 16, ReceiveResponse)
	if n := bus.Available(); n != 0 {
		t.Errorf("%d partial bytes left on the bus", n)
	}
	step(t, dev, 17, SendCommand)
	if got, want := dev.Temperature(), Celsius(0x1234); got != want {
		t.Errorf("Temperature() = %f, want %f", got, want)
	}
	if got := dev.Stats().ShortReads; got != 1 {
		t.Errorf("short reads = %d", got)
	}
}

func TestPartialValidity(t *testing.T) {
	badHum := response(0x6666, 0x8000)
	badHum[5] ^= 0xff
	badTemp := response(0x7000, 0x4000)
	badTemp[2] ^= 0xff
	bus := &sht3xtest.Bus{Script: []sht3xtest.Step{
		sht3xtest.Tx(),
		sht3xtest.Rx(badHum...),
		sht3xtest.Tx(),
		sht3xtest.Rx(badTemp...),
	}}
	dev := getDev(t, bus, nil)
	step(t, dev, 0, AwaitSettle)
	step(t, dev, 15, ReceiveResponse)
	step(t, dev, 16, SendCommand)

	if dev.Err() != NoError {
		t.Fatalf("crc failure set error code %s", dev.Err())
	}
	if got, want := dev.Temperature(), Celsius(0x6666); got != want {
		t.Errorf("Temperature() = %f, want %f", got, want)
	}
	if got := dev.Humidity(); got != InvalidHumidity {
		t.Errorf("Humidity() = %f, never received a valid value", got)
	}

	step(t, dev, 17, AwaitSettle)
	step(t, dev, 32, ReceiveResponse)
	step(t, dev, 33, SendCommand)
	if got, want := dev.Temperature(), Celsius(0x6666); got != want {
		t.Errorf("Temperature() = %f, want previous %f", got, want)
	}
	if got, want := dev.Humidity(), PercentRH(0x4000); got != want {
		t.Errorf("Humidity() = %f, want %f", got, want)
	}
	want := Stats{Cycles: 2, TempCRCFailures: 1, HumCRCFailures: 1}
	if diff := cmp.Diff(want, dev.Stats()); diff != "" {
		t.Errorf("stats mismatch (-want +got):\n%s", diff)
	}
}

func TestTransmitFailure(t *testing.T) {
	bus := &sht3xtest.Bus{Script: []sht3xtest.Step{
		sht3xtest.TxFail(1),
		{Kind: sht3xtest.Transmit, Accept: -1, Err: errors.New("nack")},
		sht3xtest.Tx(),
	}}
	dev := getDev(t, bus, nil)
	step(t, dev, 0, SendCommand)
	step(t, dev, 1, SendCommand)
	step(t, dev, 2, AwaitSettle)
	if got := dev.Stats().TransmitFailures; got != 2 {
		t.Errorf("transmit failures = %d", got)
	}
	if dev.Err() != Pending {
		t.Errorf("transmit failure set error code %s", dev.Err())
	}
	// Settle counts from the successful command.
	step(t, dev, 16, AwaitSettle)
	step(t, dev, 17, ReceiveResponse)
}

func TestFlushIsBounded(t *testing.T) {
	bus := &sht3xtest.Bus{Stale: make([]byte, 25)}
	dev := getDev(t, bus, &Opts{MaxFlush: 10})
	step(t, dev, 0, AwaitSettle)
	if got := dev.Stats().Flushed; got != 10 {
		t.Errorf("flushed %d bytes, want 10", got)
	}
	if got := bus.Available(); got != 15 {
		t.Errorf("%d bytes left, want 15", got)
	}
	if bus.Flushes != 1 {
		t.Errorf("Flush() called %d times", bus.Flushes)
	}
}

func TestWraparound(t *testing.T) {
	bus := &sht3xtest.Bus{Script: []sht3xtest.Step{
		sht3xtest.Tx(),
		sht3xtest.Rx(response(0x6666, 0x8000)...),
		sht3xtest.Tx(),
	}}
	dev := getDev(t, bus, nil)

	start := uint64(math.MaxUint64 - 7)
	step(t, dev, start, AwaitSettle)
	step(t, dev, math.MaxUint64, AwaitSettle)
	step(t, dev, 6, AwaitSettle)
	step(t, dev, 7, ReceiveResponse)
	step(t, dev, 8, SendCommand)
	if dev.Err() != NoError {
		t.Fatalf("Err() = %s", dev.Err())
	}

	// Response window straddling the wrap.
	start = math.MaxUint64 - 20
	step(t, dev, start, AwaitSettle)
	step(t, dev, start+15, ReceiveResponse)
	step(t, dev, math.MaxUint64, ReceiveResponse)
	step(t, dev, 13, ReceiveResponse)
	if dev.Err() != NoError {
		t.Fatalf("timeout fired early: %s", dev.Err())
	}
	step(t, dev, 14, SendCommand)
	if dev.Err() != NotResponding {
		t.Errorf("Err() = %s, want %s", dev.Err(), NotResponding)
	}
}

func TestOpts(t *testing.T) {
	bus := &sht3xtest.Bus{Script: []sht3xtest.Step{
		sht3xtest.Tx(),
		sht3xtest.Rx(response(0x6666, 0x8000)...),
	}}
	dev := getDev(t, bus, &Opts{
		Addr:          0x45,
		ClockStretch:  true,
		Repeatability: RepeatabilityMediumStretch,
		SettleMs:      7,
		TimeoutMs:     3,
	})
	step(t, dev, 100, AwaitSettle)
	step(t, dev, 106, AwaitSettle)
	step(t, dev, 107, ReceiveResponse)
	step(t, dev, 108, SendCommand)
	if diff := cmp.Diff([][]byte{{0x2C, 0x0D}}, bus.Sent); diff != "" {
		t.Errorf("sent mismatch (-want +got):\n%s", diff)
	}
	if diff := cmp.Diff([]uint16{0x45}, bus.Requests); diff != "" {
		t.Errorf("requests mismatch (-want +got):\n%s", diff)
	}
}

func TestEnv(t *testing.T) {
	bus := &sht3xtest.Bus{Script: []sht3xtest.Step{
		sht3xtest.Tx(),
		sht3xtest.Rx(response(0xffff, 0xffff)...),
	}}
	dev := getDev(t, bus, nil)
	e := physic.Env{}
	if err := dev.Env(&e); err == nil {
		t.Error("Env() before first cycle did not fail")
	}
	step(t, dev, 0, AwaitSettle)
	step(t, dev, 15, ReceiveResponse)
	step(t, dev, 16, SendCommand)
	if err := dev.Env(&e); err != nil {
		t.Fatal(err)
	}
	if diff := e.Temperature.Celsius() - 130.0; math.Abs(diff) > 1e-6 {
		t.Errorf("temperature %s", e.Temperature)
	}
	if e.Humidity != 100*physic.PercentRH {
		t.Errorf("humidity %s", e.Humidity)
	}
	dev.Precision(&e)
	if e.Temperature != physic.Kelvin/100 {
		t.Errorf("precision %s", e.Temperature)
	}
}

func TestHalt(t *testing.T) {
	bus := &sht3xtest.Bus{}
	dev := getDev(t, bus, nil)
	if err := dev.Halt(); err != nil {
		t.Fatal(err)
	}
	dev.Update(0)
	if len(bus.Sent) != 0 || dev.State() != SendCommand {
		t.Errorf("halted driver touched the bus: %v", bus.Sent)
	}
}
