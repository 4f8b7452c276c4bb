package metrics

import "math"

// RoundFloat64 is a float64 rounded to Precision decimal places
type RoundFloat64 struct {
	Value     float64
	Precision int
}

func (v RoundFloat64) Float64() float64 {
	shift := math.Pow10(v.Precision)
	return math.Round(v.Value*shift) / shift
}
