package indicator

import "math"

// Bollinger computes bands at deviation population standard deviations
// around an SMA of period values.
type Bollinger struct {
	sma       *SMA
	deviation float64
}

func NewBollinger(period int, deviation float64) *Bollinger {
	return &Bollinger{
		sma:       NewSMA(period),
		deviation: deviation,
	}
}

func (b *Bollinger) Update(price float64) {
	b.sma.Update(price)
}

func (b *Bollinger) Ready() bool { return b.sma.Ready() }

// Bands returns lower, middle and upper band values.
func (b *Bollinger) Bands() (lower, middle, upper float64) {
	middle = b.sma.Value()
	window := b.sma.Window()
	if len(window) == 0 {
		return middle, middle, middle
	}

	variance := 0.0
	for _, v := range window {
		d := v - middle
		variance += d * d
	}
	std := math.Sqrt(variance / float64(len(window)))

	return middle - b.deviation*std, middle, middle + b.deviation*std
}
