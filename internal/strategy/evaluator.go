package strategy

import (
	"github.com/JabirHus/NCTB/internal/models"
)

type Verdict string

const (
	Buy  Verdict = "BUY"
	Sell Verdict = "SELL"
	None Verdict = "NONE"
)

// Side maps a directional verdict to an order side.
func (v Verdict) Side() (models.Side, bool) {
	switch v {
	case Buy:
		return models.SideBuy, true
	case Sell:
		return models.SideSell, true
	default:
		return "", false
	}
}

// Evaluator is immutable once built and safe for concurrent use.
type Evaluator struct {
	indicators []Indicator
	lookback   int
}

func NewEvaluator(def Definition) (*Evaluator, error) {
	inds, err := def.Indicators()
	if err != nil {
		return nil, err
	}
	lookback := 0
	for _, ind := range inds {
		if l := ind.Lookback(); l > lookback {
			lookback = l
		}
	}
	return &Evaluator{indicators: inds, lookback: lookback}, nil
}

// Lookback is the longest lookback across enabled indicators.
func (e *Evaluator) Lookback() int { return e.lookback }

func (e *Evaluator) Enabled() int { return len(e.indicators) }

// Evaluate returns the unanimous opinion of every enabled indicator, or None
// when any indicator abstains, opinions disagree, the window is shorter than
// the lookback or nothing is enabled.
func (e *Evaluator) Evaluate(bars []models.Bar) Verdict {
	verdict, _ := e.Explain(bars)
	return verdict
}

// Explain is Evaluate plus the per-indicator opinions, keyed by name.
func (e *Evaluator) Explain(bars []models.Bar) (Verdict, map[string]Verdict) {
	if len(e.indicators) == 0 || len(bars) < e.lookback {
		return None, nil
	}

	series := SeriesFromBars(bars)
	opinions := make(map[string]Verdict, len(e.indicators))
	for _, ind := range e.indicators {
		opinions[ind.Name()] = ind.Opinion(series)
	}

	consensus := None
	for _, ind := range e.indicators {
		op := opinions[ind.Name()]
		switch {
		case op == None:
			return None, opinions
		case consensus == None:
			consensus = op
		case op != consensus:
			return None, opinions
		}
	}
	return consensus, opinions
}

// Evaluate is a one-shot helper; invalid definitions evaluate to None.
func Evaluate(def Definition, bars []models.Bar) Verdict {
	e, err := NewEvaluator(def)
	if err != nil {
		return None
	}
	return e.Evaluate(bars)
}

func SeriesFromBars(bars []models.Bar) Series {
	s := Series{
		Closes: make([]float64, len(bars)),
		Highs:  make([]float64, len(bars)),
		Lows:   make([]float64, len(bars)),
	}
	for i, b := range bars {
		s.Closes[i] = b.Close
		s.Highs[i] = b.High
		s.Lows[i] = b.Low
	}
	return s
}
