package indicator

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSMA(t *testing.T) {
	s := NewSMA(3)
	v, ok := Last(s, []float64{1, 2})
	assert.False(t, ok)
	assert.Zero(t, v)

	v, ok = Last(s, []float64{3, 4, 5})
	require.True(t, ok)
	assert.InDelta(t, 4.0, v, 1e-12)
	assert.Equal(t, []float64{3, 4, 5}, s.Window())
}

func TestEMASeedAndSmoothing(t *testing.T) {
	e := NewEMA(3)
	v, ok := Last(e, []float64{1, 2, 3})
	require.True(t, ok)
	assert.InDelta(t, 2.0, v, 1e-12)

	e.Update(4)
	assert.InDelta(t, 3.0, e.Value(), 1e-12)
}

func TestRSI(t *testing.T) {
	tests := []struct {
		name   string
		series []float64
		want   float64
	}{
		{"only gains", ramp(15, 1, 1), 100},
		{"flat", repeat(15, 1.1), 50},
		{"balanced", zigzag(15), 50},
		{"only losses", ramp(15, 20, -1), 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			v, ok := Last(NewRSI(14), tt.series)
			require.True(t, ok)
			assert.InDelta(t, tt.want, v, 1e-9)
		})
	}

	_, ok := Last(NewRSI(14), ramp(14, 1, 1))
	assert.False(t, ok, "needs period+1 closes")
}

func TestMACD(t *testing.T) {
	m := NewMACD(12, 26, 9)
	require.Equal(t, 34, MACDLookback(12, 26, 9))

	series := ramp(34, 1, 0.5)
	for _, v := range series[:33] {
		m.Update(v)
	}
	assert.False(t, m.Ready())

	m.Update(series[33])
	require.True(t, m.Ready())
	assert.Greater(t, m.Line(), 0.0, "fast EMA leads on a rising series")
}

func TestBollinger(t *testing.T) {
	b := NewBollinger(8, 2)
	for _, v := range []float64{2, 4, 4, 4, 5, 5, 7, 9} {
		b.Update(v)
	}
	require.True(t, b.Ready())

	lower, middle, upper := b.Bands()
	assert.InDelta(t, 1.0, lower, 1e-12)
	assert.InDelta(t, 5.0, middle, 1e-12)
	assert.InDelta(t, 9.0, upper, 1e-12)
}

func TestStochastic(t *testing.T) {
	s := NewStochastic(3, 1, 1)
	require.Equal(t, 3, StochasticLookback(3, 1, 1))

	for i := 0; i < 3; i++ {
		assert.False(t, s.Ready())
		f := float64(i)
		s.Update(f+1, f-1, f+1)
	}

	require.True(t, s.Ready())
	assert.InDelta(t, 100.0, s.K(), 1e-12)
	assert.InDelta(t, 100.0, s.D(), 1e-12)
}

func TestStochasticFlatRange(t *testing.T) {
	s := NewStochastic(2, 2, 1)
	for i := 0; i < 4; i++ {
		s.Update(1, 1, 1)
	}
	require.True(t, s.Ready())
	assert.InDelta(t, 50.0, s.K(), 1e-12)
}

func ramp(n int, start, step float64) []float64 {
	out := make([]float64, n)
	for i := range out {
		out[i] = start + float64(i)*step
	}
	return out
}

func repeat(n int, v float64) []float64 {
	out := make([]float64, n)
	for i := range out {
		out[i] = v
	}
	return out
}

func zigzag(n int) []float64 {
	out := make([]float64, n)
	for i := range out {
		out[i] = 10 + float64(i%2)
	}
	return out
}
