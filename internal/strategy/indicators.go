package strategy

import (
	"errors"

	"github.com/JabirHus/NCTB/internal/indicator"
)

// Indicator is the closed set of supported indicator configurations:
// RSI, MACD, Bollinger, Stochastic and MovingAverage.
type Indicator interface {
	Name() string
	// Lookback is the number of bars needed before an opinion is possible.
	Lookback() int
	Opinion(s Series) Verdict

	check() error
}

// Series is an immutable view of the bar window, oldest first.
type Series struct {
	Closes []float64
	Highs  []float64
	Lows   []float64
}

func (s Series) Len() int { return len(s.Closes) }

func (s Series) shifted(shift int) Series {
	n := len(s.Closes) - shift
	if n < 0 {
		n = 0
	}
	return Series{Closes: s.Closes[:n], Highs: s.Highs[:n], Lows: s.Lows[:n]}
}

type RSI struct {
	Period    int
	Undersold int
	Oversold  int
}

func (RSI) Name() string    { return NameRSI }
func (r RSI) Lookback() int { return r.Period + 1 }

func (r RSI) Opinion(s Series) Verdict {
	v, ok := indicator.Last(indicator.NewRSI(r.Period), s.Closes)
	switch {
	case !ok:
		return None
	case v < float64(r.Undersold):
		return Buy
	case v > float64(r.Oversold):
		return Sell
	default:
		return None
	}
}

func (r RSI) check() error {
	if r.Undersold >= r.Oversold {
		return errors.New("undersold must be below oversold")
	}
	if r.Oversold > 100 {
		return errors.New("oversold must not exceed 100")
	}
	return nil
}

type MACD struct {
	Fast   int
	Slow   int
	Signal int
}

// macdTolerance treats a line within rounding noise of its signal as equal.
const macdTolerance = 1e-9

func (MACD) Name() string    { return NameMACD }
func (m MACD) Lookback() int { return indicator.MACDLookback(m.Fast, m.Slow, m.Signal) }

func (m MACD) Opinion(s Series) Verdict {
	calc := indicator.NewMACD(m.Fast, m.Slow, m.Signal)
	for _, c := range s.Closes {
		calc.Update(c)
	}
	if !calc.Ready() {
		return None
	}
	switch diff := calc.Line() - calc.Signal(); {
	case diff > macdTolerance:
		return Buy
	case diff < -macdTolerance:
		return Sell
	default:
		return None
	}
}

func (m MACD) check() error {
	if m.Fast >= m.Slow {
		return errors.New("fast must be below slow")
	}
	return nil
}

type Bollinger struct {
	Period    int
	Deviation int
	Shift     int
}

func (Bollinger) Name() string    { return NameBollinger }
func (b Bollinger) Lookback() int { return b.Period + b.Shift }

func (b Bollinger) Opinion(s Series) Verdict {
	w := s.shifted(b.Shift)
	bands := indicator.NewBollinger(b.Period, float64(b.Deviation))
	for _, c := range w.Closes {
		bands.Update(c)
	}
	if !bands.Ready() {
		return None
	}
	lower, _, upper := bands.Bands()
	last := w.Closes[len(w.Closes)-1]
	switch {
	case last < lower:
		return Buy
	case last > upper:
		return Sell
	default:
		return None
	}
}

func (Bollinger) check() error { return nil }

type Stochastic struct {
	K       int
	D       int
	Slowing int
}

const (
	stochasticLow  = 20.0
	stochasticHigh = 80.0
)

func (Stochastic) Name() string    { return NameStochastic }
func (s Stochastic) Lookback() int { return indicator.StochasticLookback(s.K, s.D, s.Slowing) }

func (s Stochastic) Opinion(series Series) Verdict {
	calc := indicator.NewStochastic(s.K, s.D, s.Slowing)
	for i := range series.Closes {
		calc.Update(series.Highs[i], series.Lows[i], series.Closes[i])
	}
	if !calc.Ready() {
		return None
	}
	k, d := calc.K(), calc.D()
	switch {
	case k < stochasticLow && d < stochasticLow && k > d:
		return Buy
	case k > stochasticHigh && d > stochasticHigh && k < d:
		return Sell
	default:
		return None
	}
}

func (Stochastic) check() error { return nil }

type MovingAverage struct {
	Period int
	Shift  int
}

func (MovingAverage) Name() string    { return NameMovingAverage }
func (m MovingAverage) Lookback() int { return m.Period + m.Shift }

// Opinion compares the latest close against the SMA taken Shift bars back.
func (m MovingAverage) Opinion(s Series) Verdict {
	ma, ok := indicator.Last(indicator.NewSMA(m.Period), s.shifted(m.Shift).Closes)
	if !ok || s.Len() == 0 {
		return None
	}
	last := s.Closes[s.Len()-1]
	switch {
	case last > ma:
		return Buy
	case last < ma:
		return Sell
	default:
		return None
	}
}

func (MovingAverage) check() error { return nil }
