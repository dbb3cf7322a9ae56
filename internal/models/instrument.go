package models

import "math"

// NormalizeVolume snaps v to the instrument's volume step, never below the
// minimum and never above the maximum when one is reported. Non-positive
// requests normalize to 0.
func (i Instrument) NormalizeVolume(v float64) float64 {
	if v <= 0 {
		return 0
	}
	out := v
	if i.VolumeStep > 0 {
		out = math.Round(v/i.VolumeStep) * i.VolumeStep
		out = RoundTo(out, stepDecimals(i.VolumeStep))
	}
	if out < i.VolumeMin {
		out = i.VolumeMin
	}
	if i.VolumeMax > 0 && out > i.VolumeMax {
		out = i.VolumeMax
	}
	return out
}

// RoundPrice rounds p to the instrument's digits.
func (i Instrument) RoundPrice(p float64) float64 {
	return RoundTo(p, i.Digits)
}

func RoundTo(v float64, digits int) float64 {
	if digits < 0 {
		return v
	}
	f := math.Pow(10, float64(digits))
	return math.Round(v*f) / f
}

// SameVolume compares lot sizes up to float noise.
func SameVolume(a, b float64) bool {
	return math.Abs(a-b) < 1e-9
}

// stepDecimals counts the decimals needed to represent step, capped at 8.
func stepDecimals(step float64) int {
	for d := 0; d <= 8; d++ {
		f := math.Pow(10, float64(d))
		if math.Abs(step*f-math.Round(step*f)) < 1e-9 {
			return d
		}
	}
	return 8
}
