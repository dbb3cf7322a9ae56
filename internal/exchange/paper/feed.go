package paper

import (
	"context"
	"math"
	"math/rand"
	"strings"
	"time"

	"github.com/JabirHus/NCTB/internal/models"
)

// DefaultInstrument returns plausible metadata for symbol.
func DefaultInstrument(symbol string) models.Instrument {
	inst := models.Instrument{
		Symbol:     symbol,
		Digits:     5,
		Point:      0.00001,
		VolumeMin:  0.01,
		VolumeStep: 0.01,
		VolumeMax:  100,
		Visible:    true,
	}
	upper := strings.ToUpper(symbol)
	switch {
	case strings.Contains(upper, "JPY"):
		inst.Digits, inst.Point = 3, 0.001
	case strings.HasPrefix(upper, "XAU"), strings.HasPrefix(upper, "XAG"),
		strings.HasPrefix(upper, "BTC"), strings.HasPrefix(upper, "ETH"):
		inst.Digits, inst.Point = 2, 0.01
	}
	return inst
}

func basePrice(symbol string) float64 {
	upper := strings.ToUpper(symbol)
	switch {
	case strings.Contains(upper, "JPY"):
		return 150
	case strings.HasPrefix(upper, "XAU"):
		return 2300
	case strings.HasPrefix(upper, "BTC"):
		return 60000
	default:
		return 1.1
	}
}

// Feed drives a random walk of M1-style bars and quotes for symbols.
type Feed struct {
	broker  *Broker
	symbols []string
	bars    int
	rnd     *rand.Rand
}

func NewFeed(broker *Broker, symbols []string, bars int, seed int64) *Feed {
	return &Feed{
		broker:  broker,
		symbols: symbols,
		bars:    bars,
		rnd:     rand.New(rand.NewSource(seed)),
	}
}

// Seed fills a full bar window per symbol so evaluation can start at once.
func (f *Feed) Seed(now time.Time) {
	for _, sym := range f.symbols {
		price := basePrice(sym)
		bars := make([]models.Bar, 0, f.bars)
		start := now.Add(-time.Duration(f.bars) * time.Minute)
		for i := 0; i < f.bars; i++ {
			bar := f.nextBar(sym, price, start.Add(time.Duration(i)*time.Minute))
			price = bar.Close
			bars = append(bars, bar)
		}
		f.broker.SetBars(sym, bars)
		f.quote(sym, price, now)
	}
}

// Run appends one bar per symbol every interval until ctx is done.
func (f *Feed) Run(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case now := <-ticker.C:
			for _, sym := range f.symbols {
				f.step(sym, now)
			}
		}
	}
}

func (f *Feed) step(symbol string, now time.Time) {
	f.broker.mu.Lock()
	bars := f.broker.bars[symbol]
	price := basePrice(symbol)
	if len(bars) > 0 {
		price = bars[len(bars)-1].Close
	}
	bar := f.nextBar(symbol, price, now)
	bars = append(bars, bar)
	if len(bars) > f.bars {
		bars = bars[len(bars)-f.bars:]
	}
	f.broker.bars[symbol] = bars
	f.broker.mu.Unlock()

	f.quote(symbol, bar.Close, now)
}

func (f *Feed) nextBar(symbol string, open float64, ts time.Time) models.Bar {
	vol := open * 0.0005
	closePrice := open + f.rnd.NormFloat64()*vol
	high := math.Max(open, closePrice) + f.rnd.Float64()*vol/2
	low := math.Min(open, closePrice) - f.rnd.Float64()*vol/2
	return models.Bar{Time: ts, Open: open, High: high, Low: low, Close: closePrice, Volume: float64(f.rnd.Intn(500) + 1)}
}

func (f *Feed) quote(symbol string, mid float64, ts time.Time) {
	spread := DefaultInstrument(symbol).Point * 10
	f.broker.SetTick(models.Tick{Symbol: symbol, Bid: mid - spread/2, Ask: mid + spread/2, Time: ts})
}
