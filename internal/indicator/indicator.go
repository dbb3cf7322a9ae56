// Package indicator provides technical indicator calculations over bar data.
//
// Indicators are streaming: feed values oldest first with Update and read
// Value once Ready reports true. Every indicator owns its own state, so a
// fresh instance per evaluation is safe to use from concurrent goroutines.
package indicator

// Indicator is implemented by the single-input indicators (SMA, EMA, RSI).
type Indicator interface {
	Update(value float64)
	Value() float64
	Ready() bool
}

// Last feeds values into ind and returns the final value, or false when the
// series is too short for the indicator to warm up.
func Last(ind Indicator, values []float64) (float64, bool) {
	for _, v := range values {
		ind.Update(v)
	}
	if !ind.Ready() {
		return 0, false
	}
	return ind.Value(), true
}
