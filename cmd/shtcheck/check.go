package main

import (
	"errors"
	"fmt"
	"math"
	"time"

	dsht3x "github.com/d2r2/go-sht3x"

	"github.com/walkure/shtnode/pkg/clock"
	"github.com/walkure/shtnode/pkg/sht3x"
)

var errNoCycle = errors.New("no measurement cycle completed")

func validateFlags(addr, repeat uint) error {
	if !sht3x.ValidAddress(addr) {
		return fmt.Errorf("addr 0x%x: not a 7-bit device address", addr)
	}
	if repeat > 0xff {
		return fmt.Errorf("repeatability 0x%x: does not fit a byte", repeat)
	}
	return nil
}

// repeatability maps the command LSB of the polled driver onto the d2r2
// precision so both drivers measure alike.
func repeatability(r sht3x.Repeatability) dsht3x.MeasureRepeatability {
	switch r {
	case sht3x.RepeatabilityLow, sht3x.RepeatabilityLowStretch:
		return dsht3x.RepeatabilityLow
	case sht3x.RepeatabilityMedium, sht3x.RepeatabilityMediumStretch:
		return dsht3x.RepeatabilityMedium
	}
	return dsht3x.RepeatabilityHigh
}

// poll drives dev until it completed cycles measurements or limit ms passed
// on clk. sleep is called between updates.
func poll(dev *sht3x.Dev, clk clock.Clock, cycles uint64, limit uint64, sleep func()) (sht3x.Reading, error) {
	start := clk.NowMs()
	for dev.Stats().Cycles < cycles {
		now := clk.NowMs()
		if now-start >= limit {
			break
		}
		dev.Update(now)
		sleep()
	}

	st := dev.Stats()
	if st.Cycles == 0 {
		return sht3x.Reading{}, fmt.Errorf("%w in %dms: %+v", errNoCycle, limit, st)
	}
	if dev.Err() != sht3x.NoError {
		return dev.Reading(), fmt.Errorf("sensor %s after %d cycles", dev.Err(), st.Cycles)
	}
	return dev.Reading(), nil
}

// Result compares both drivers.
type Result struct {
	RefTemp, RefHumid float64
	Reading           sht3x.Reading
	Stats             sht3x.Stats
	Elapsed           time.Duration
}

// Agree reports whether both drivers are within tolerance. The sensor
// repeatability is well below 0.5 °C / 1 %RH.
func (r Result) Agree() bool {
	return r.Reading.TempValid && r.Reading.HumValid &&
		math.Abs(r.Reading.Temperature-r.RefTemp) <= 0.5 &&
		math.Abs(r.Reading.Humidity-r.RefHumid) <= 1
}
