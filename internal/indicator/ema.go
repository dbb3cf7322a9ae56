package indicator

// EMA calculates Exponential Moving Average, seeded with the SMA of the
// first period values.
type EMA struct {
	period  int
	alpha   float64
	count   int
	seedSum float64
	current float64
}

func NewEMA(period int) *EMA {
	return &EMA{
		period: period,
		alpha:  2.0 / float64(period+1),
	}
}

func (e *EMA) Update(value float64) {
	e.count++

	if e.count <= e.period {
		e.seedSum += value
		if e.count == e.period {
			e.current = e.seedSum / float64(e.period)
		}
		return
	}

	e.current = e.alpha*value + (1-e.alpha)*e.current
}

func (e *EMA) Value() float64 { return e.current }
func (e *EMA) Ready() bool    { return e.count >= e.period }
