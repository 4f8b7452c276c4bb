// Package motion reads a PIR motion sensor and drives an indicator output
// through periph.io GPIO pins.
package motion

import (
	"fmt"

	"periph.io/x/conn/v3"
	"periph.io/x/conn/v3/gpio"
)

// Sensor is a PIR sensor whose output is high while movement is detected.
type Sensor struct {
	pin gpio.PinIn
}

// NewSensor configures pin as an input with a pull-down so that a
// disconnected sensor reads as no movement.
func NewSensor(pin gpio.PinIn) (*Sensor, error) {
	if err := pin.In(gpio.PullDown, gpio.NoEdge); err != nil {
		return nil, fmt.Errorf("motion: %s: %w", pin, err)
	}
	return &Sensor{pin: pin}, nil
}

func (s *Sensor) IsMovement() bool {
	return s.pin.Read() == gpio.High
}

func (s *Sensor) String() string {
	return "motion{" + s.pin.String() + "}"
}

func (s *Sensor) Halt() error {
	return nil
}

// Indicator is an LED, optionally wired active low.
type Indicator struct {
	pin       gpio.PinOut
	activeLow bool
	on        bool
}

// NewIndicator configures pin as an output and turns the indicator off.
func NewIndicator(pin gpio.PinOut, activeLow bool) (*Indicator, error) {
	i := &Indicator{pin: pin, activeLow: activeLow}
	if err := i.write(false); err != nil {
		return nil, err
	}
	return i, nil
}

func (i *Indicator) write(on bool) error {
	l := gpio.Level(on)
	if i.activeLow {
		l = !l
	}
	if err := i.pin.Out(l); err != nil {
		return fmt.Errorf("motion: %s: %w", i.pin, err)
	}
	i.on = on
	return nil
}

// Set switches the indicator. The pin is only written on change.
func (i *Indicator) Set(on bool) error {
	if on == i.on {
		return nil
	}
	return i.write(on)
}

func (i *Indicator) On() bool {
	return i.on
}

func (i *Indicator) String() string {
	return "indicator{" + i.pin.String() + "}"
}

// Halt turns the indicator off.
func (i *Indicator) Halt() error {
	return i.write(false)
}

var (
	_ conn.Resource = &Sensor{}
	_ conn.Resource = &Indicator{}
)
