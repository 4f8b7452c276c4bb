// Package sht3x drives a Sensirion SHT3x temperature/humidity sensor without
// ever blocking the caller.
//
// The driver is a polled state machine: the control loop calls Update with
// the current monotonic time in milliseconds and the driver performs at most
// one protocol step per call. Delays are timestamp comparisons, never sleeps.
//
//	dev, _ := sht3x.New(bus, nil)
//	for {
//		dev.Update(clk.NowMs())
//		t, h := dev.Temperature(), dev.Humidity()
//		...
//	}
//
// # Datasheet
//
// https://sensirion.com/media/documents/213E6A3B/63A5A569/Datasheet_SHT3x_DIS.pdf
package sht3x

import (
	"errors"
	"fmt"
	"log/slog"

	"periph.io/x/conn/v3"
	"periph.io/x/conn/v3/physic"
)

// DefaultAddress is the sensor address with ADDR pulled low.
const DefaultAddress uint16 = 0x44

// Range of 7-bit addresses not reserved by the I2C specification.
const (
	MinAddress = 0x08
	MaxAddress = 0x77
)

// ValidAddress reports whether addr is a usable 7-bit device address.
func ValidAddress(addr uint) bool {
	return addr >= MinAddress && addr <= MaxAddress
}

// DefaultMaxFlush bounds the number of stale bytes drained before a command.
const DefaultMaxFlush = 1000

// Sentinels returned by the getters while no valid value is known.
const (
	InvalidTemperature = -273.15
	InvalidHumidity    = -1.0
)

// ErrNoBus is returned by New when bus is nil.
var ErrNoBus = errors.New("sht3x: nil bus")

// State is the protocol phase of the driver.
type State int

const (
	SendCommand State = iota
	AwaitSettle
	ReceiveResponse
)

func (s State) String() string {
	switch s {
	case SendCommand:
		return "SendCommand"
	case AwaitSettle:
		return "AwaitSettle"
	case ReceiveResponse:
		return "ReceiveResponse"
	default:
		return fmt.Sprintf("State(%d)", int(s))
	}
}

// ErrorCode is the sticky bus responsiveness status. It says whether the
// sensor answered in time, not whether the data was intact.
type ErrorCode int

const (
	// Pending means no cycle has completed yet.
	Pending ErrorCode = iota
	// NoError means the last cycle obtained a complete response.
	NoError
	// NotResponding means the last cycle timed out waiting for a response.
	NotResponding
)

func (e ErrorCode) String() string {
	switch e {
	case Pending:
		return "pending"
	case NoError:
		return "ok"
	case NotResponding:
		return "not_responding"
	default:
		return fmt.Sprintf("ErrorCode(%d)", int(e))
	}
}

// Opts holds the configuration options for the device.
type Opts struct {
	// Addr is the I²C address. Default is 0x44.
	Addr uint16
	// ClockStretch selects the clock stretching variant of the single shot
	// command.
	ClockStretch bool
	// Repeatability is the command LSB. Default is 0 (high repeatability,
	// no stretching).
	Repeatability Repeatability
	// SettleMs is the wait between command and first read. Leave 0 to use
	// the default of 15ms.
	SettleMs uint64
	// TimeoutMs bounds the wait for a complete response. Leave 0 to use the
	// default of 20ms.
	TimeoutMs uint64
	// MaxFlush bounds the stale bytes drained before each command. Leave 0
	// to use the default of 1000.
	MaxFlush int
	// Logger receives integrity failures and state changes. Nil discards.
	Logger *slog.Logger
}

// DefaultOpts holds the default configuration options for the device.
var DefaultOpts = Opts{
	Addr:      DefaultAddress,
	SettleMs:  DefaultSettleMs,
	TimeoutMs: DefaultTimeoutMs,
	MaxFlush:  DefaultMaxFlush,
}

// Reading is the last accepted measurement. Each channel is tracked
// independently.
type Reading struct {
	Temperature float64
	Humidity    float64
	TempValid   bool
	HumValid    bool
}

// Stats counts protocol outcomes since New.
type Stats struct {
	Cycles           uint64
	TransmitFailures uint64
	Timeouts         uint64
	TempCRCFailures  uint64
	HumCRCFailures   uint64
	ShortReads       uint64
	Flushed          uint64
}

// Dev is a polled SHT3x driver. It is not safe for concurrent use; the
// goroutine calling Update owns it.
type Dev struct {
	bus    Bus
	opts   Opts
	cmd    Command
	logger *slog.Logger

	state    State
	sentAt   uint64
	deadline uint64
	halted   bool

	reading Reading
	code    ErrorCode
	stats   Stats
	rx      Response
}

// New returns a driver bound to bus. The Opts can be nil. New does not touch
// the bus; the first Update sends the first command.
func New(bus Bus, opts *Opts) (*Dev, error) {
	if bus == nil {
		return nil, ErrNoBus
	}
	if opts == nil {
		opts = &DefaultOpts
	}
	o := *opts
	if o.Addr == 0 {
		o.Addr = DefaultAddress
	}
	if o.SettleMs == 0 {
		o.SettleMs = DefaultSettleMs
	}
	if o.TimeoutMs == 0 {
		o.TimeoutMs = DefaultTimeoutMs
	}
	if o.MaxFlush <= 0 {
		o.MaxFlush = DefaultMaxFlush
	}
	lg := o.Logger
	if lg == nil {
		lg = slog.New(slog.DiscardHandler)
	}
	return &Dev{
		bus:    bus,
		opts:   o,
		cmd:    EncodeMeasurementCommand(o.ClockStretch, o.Repeatability),
		logger: lg,
		state:  SendCommand,
	}, nil
}

// Update advances the protocol by at most one step. now is a monotonic
// millisecond timestamp; it may wrap.
func (d *Dev) Update(now uint64) {
	if d.halted {
		return
	}
	switch d.state {
	case SendCommand:
		if d.sendCommand() {
			d.sentAt = now
			d.state = AwaitSettle
		}
	case AwaitSettle:
		if SettleElapsed(now, d.sentAt, d.opts.SettleMs) {
			d.deadline = ResponseDeadline(now, d.opts.TimeoutMs)
			d.state = ReceiveResponse
		}
	case ReceiveResponse:
		d.receive(now)
	}
}

// flush drops whatever is left on the receive side, bounded by max reads.
func (d *Dev) flush(max int) {
	d.bus.Flush()
	for n := 0; n < max && d.bus.Available() > 0; n++ {
		if _, err := d.bus.ReadByte(); err != nil {
			return
		}
		d.stats.Flushed++
	}
}

func (d *Dev) sendCommand() bool {
	d.flush(d.opts.MaxFlush)

	d.bus.BeginTransmission(d.opts.Addr)
	n, werr := d.bus.Write(d.cmd[:])
	eerr := d.bus.EndTransmission()
	if werr != nil || eerr != nil || n != CommandSize {
		d.stats.TransmitFailures++
		d.logger.Debug("command not sent",
			slog.String("cmd", d.cmd.String()),
			slog.Int("written", n),
			slog.Any("write_err", werr),
			slog.Any("end_err", eerr),
		)
		return false
	}
	return true
}

func (d *Dev) receive(now uint64) {
	if ResponseTimedOut(now, d.deadline) {
		d.stats.Timeouts++
		d.stats.Cycles++
		if d.code != NotResponding {
			d.logger.Warn("sensor not responding", slog.Uint64("timeout_ms", d.opts.TimeoutMs))
		}
		d.code = NotResponding
		d.state = SendCommand
		return
	}

	if got := d.bus.RequestFrom(d.opts.Addr, ResponseSize); got < ResponseSize {
		d.stats.ShortReads++
		// Partial bytes belong to this attempt only.
		d.flush(ResponseSize)
		return
	}
	for i := range d.rx {
		b, err := d.bus.ReadByte()
		if err != nil {
			d.stats.ShortReads++
			d.flush(ResponseSize)
			return
		}
		d.rx[i] = b
	}

	dec, err := DecodeResponse(d.rx[:])
	if err != nil {
		// Unreachable with a fixed size buffer.
		d.logger.Error("decode", slog.Any("err", err))
		return
	}
	d.apply(dec)
	d.stats.Cycles++
	d.code = NoError
	d.state = SendCommand
}

func (d *Dev) apply(dec Decoded) {
	if dec.TempOK {
		d.reading.Temperature = Celsius(dec.RawTemp)
		d.reading.TempValid = true
	} else {
		d.stats.TempCRCFailures++
		d.logger.Warn("temperature crc mismatch", slog.Uint64("raw", uint64(dec.RawTemp)))
	}
	if dec.HumOK {
		d.reading.Humidity = PercentRH(dec.RawHum)
		d.reading.HumValid = true
	} else {
		d.stats.HumCRCFailures++
		d.logger.Warn("humidity crc mismatch", slog.Uint64("raw", uint64(dec.RawHum)))
	}
}

// Temperature returns the last valid temperature in °C, or
// InvalidTemperature when the sensor is not answering or no valid
// temperature was ever received.
func (d *Dev) Temperature() float64 {
	if d.code != NoError || !d.reading.TempValid {
		return InvalidTemperature
	}
	return d.reading.Temperature
}

// Humidity returns the last valid relative humidity in %, or
// InvalidHumidity.
func (d *Dev) Humidity() float64 {
	if d.code != NoError || !d.reading.HumValid {
		return InvalidHumidity
	}
	return d.reading.Humidity
}

// Err returns the sticky bus responsiveness status.
func (d *Dev) Err() ErrorCode { return d.code }

// State returns the current protocol phase.
func (d *Dev) State() State { return d.state }

// Reading returns the last accepted values regardless of the error code.
func (d *Dev) Reading() Reading { return d.reading }

// Stats returns the protocol counters.
func (d *Dev) Stats() Stats { return d.stats }

// Env fills e from the last accepted values. It never touches the bus.
func (d *Dev) Env(e *physic.Env) error {
	e.Pressure = 0
	if d.code != NoError {
		return fmt.Errorf("sht3x: %s", d.code)
	}
	if d.reading.TempValid {
		e.Temperature = celsiusToTemp(d.reading.Temperature)
	}
	if d.reading.HumValid {
		e.Humidity = percentToHumidity(d.reading.Humidity)
	}
	return nil
}

// Precision returns the smallest change in readings the device can produce.
func (d *Dev) Precision(e *physic.Env) {
	e.Temperature = physic.Kelvin / 100
	e.Humidity = physic.PercentRH / 100
	e.Pressure = 0
}

// Halt stops issuing commands. Implements conn.Resource.
func (d *Dev) Halt() error {
	d.halted = true
	return nil
}

func (d *Dev) String() string {
	return fmt.Sprintf("sht3x{0x%02x}", d.opts.Addr)
}

var _ conn.Resource = &Dev{}
