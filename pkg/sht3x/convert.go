package sht3x

import "periph.io/x/conn/v3/physic"

const countDivisor = float64(65535)

// Celsius converts a raw temperature word: T = -45 + 175 * raw / 65535.
func Celsius(raw uint16) float64 {
	return -45.0 + 175.0*(float64(raw)/countDivisor)
}

// PercentRH converts a raw humidity word: RH = 100 * raw / 65535.
func PercentRH(raw uint16) float64 {
	return 100.0 * (float64(raw) / countDivisor)
}

func celsiusToTemp(c float64) physic.Temperature {
	return physic.Temperature(c*float64(physic.Kelvin)) + physic.ZeroCelsius
}

func percentToHumidity(p float64) physic.RelativeHumidity {
	return physic.RelativeHumidity(p * float64(physic.PercentRH))
}
