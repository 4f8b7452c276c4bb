package main

import (
	"fmt"

	gi2c "github.com/d2r2/go-i2c"
	dsht3x "github.com/d2r2/go-sht3x"
)

// Reference takes blocking single shot measurements with the d2r2 driver.
type Reference struct {
	i2c    *gi2c.I2C
	sensor *dsht3x.SHT3X
}

func NewReference(dev *gi2c.I2C) *Reference {
	return &Reference{
		i2c:    dev,
		sensor: dsht3x.NewSHT3X(),
	}
}

func (v *Reference) Reset() error {
	if err := v.sensor.Reset(v.i2c); err != nil {
		return fmt.Errorf("soft reset: %w", err)
	}
	return nil
}

func (v *Reference) Status() (dsht3x.StatusRegFlag, error) {
	st, err := v.sensor.ReadStatusReg(v.i2c)
	if err != nil {
		return 0, fmt.Errorf("status register: %w", err)
	}
	return dsht3x.StatusRegFlag(st), nil
}

func (v *Reference) ReadTemperatureAndRelativeHumidity(precision dsht3x.MeasureRepeatability) (float64, float64, error) {
	temp, humid, err := v.sensor.ReadTemperatureAndRelativeHumidity(v.i2c, precision)
	if err != nil {
		return 0, 0, fmt.Errorf("reference measurement: %w", err)
	}
	return float64(temp), float64(humid), nil
}
