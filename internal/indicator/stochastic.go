package indicator

// Stochastic is the slow stochastic oscillator: raw %K over k bars,
// smoothed by an SMA of slowing bars, and %D as an SMA of d bars of %K.
type Stochastic struct {
	k     int
	highs []float64
	lows  []float64
	slowK *SMA
	dLine *SMA
	curK  float64
	hasK  bool
}

func NewStochastic(k, d, slowing int) *Stochastic {
	return &Stochastic{
		k:     k,
		slowK: NewSMA(slowing),
		dLine: NewSMA(d),
	}
}

func (s *Stochastic) Update(high, low, close float64) {
	s.highs = append(s.highs, high)
	s.lows = append(s.lows, low)
	if len(s.highs) > s.k {
		s.highs = s.highs[1:]
		s.lows = s.lows[1:]
	}
	if len(s.highs) < s.k {
		return
	}

	hh, ll := s.highs[0], s.lows[0]
	for i := 1; i < len(s.highs); i++ {
		if s.highs[i] > hh {
			hh = s.highs[i]
		}
		if s.lows[i] < ll {
			ll = s.lows[i]
		}
	}

	raw := 50.0
	if hh > ll {
		raw = 100 * (close - ll) / (hh - ll)
	}

	s.slowK.Update(raw)
	if !s.slowK.Ready() {
		return
	}
	s.curK = s.slowK.Value()
	s.hasK = true
	s.dLine.Update(s.curK)
}

func (s *Stochastic) K() float64  { return s.curK }
func (s *Stochastic) D() float64  { return s.dLine.Value() }
func (s *Stochastic) Ready() bool { return s.hasK && s.dLine.Ready() }

// StochasticLookback is the number of bars needed before Ready reports true.
func StochasticLookback(k, d, slowing int) int {
	return k + slowing + d - 2
}
