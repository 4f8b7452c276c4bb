package main

import (
	"fmt"
	"io"

	"periph.io/x/conn/v3/gpio"
	"periph.io/x/conn/v3/gpio/gpioreg"
	"periph.io/x/conn/v3/i2c/i2creg"

	"github.com/walkure/shtnode/pkg/motion"
	"github.com/walkure/shtnode/pkg/sht3x"
	"github.com/walkure/shtnode/pkg/wire"
)

type namedBus interface {
	sht3x.Bus
	fmt.Stringer
}

// openBus opens the configured I2C stack. The closer releases the bus.
func openBus(c *Config) (namedBus, io.Closer, error) {
	switch c.Backend {
	case "d2r2":
		w, dev, err := wire.OpenD2R2(uint8(c.Addr), c.D2R2Bus)
		if err != nil {
			return nil, nil, err
		}
		return w, dev, nil
	default:
		bus, err := i2creg.Open(c.Bus)
		if err != nil {
			return nil, nil, fmt.Errorf("i2cbus error: %w", err)
		}
		return wire.NewPeriph(bus), bus, nil
	}
}

func pinByName(name string) (gpio.PinIO, error) {
	p := gpioreg.ByName(name)
	if p == nil {
		return nil, fmt.Errorf("gpio %q: not found", name)
	}
	return p, nil
}

// openMotion returns the PIR sensor and the indicator. Either is nil when its
// pin is not configured.
func openMotion(c *Config) (*motion.Sensor, *motion.Indicator, error) {
	var s *motion.Sensor
	var ind *motion.Indicator

	if c.Motion != "" {
		p, err := pinByName(c.Motion)
		if err != nil {
			return nil, nil, err
		}
		if s, err = motion.NewSensor(p); err != nil {
			return nil, nil, err
		}
	}
	if c.LED != "" {
		p, err := pinByName(c.LED)
		if err != nil {
			return nil, nil, err
		}
		if ind, err = motion.NewIndicator(p, c.LEDActiveLow); err != nil {
			return nil, nil, err
		}
	}
	return s, ind, nil
}
