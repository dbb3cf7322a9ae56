package engine

import (
	"strings"

	"github.com/JabirHus/NCTB/internal/models"
)

// InstrumentClass groups symbols that share a pip size.
type InstrumentClass int

const (
	ClassStandard InstrumentClass = iota
	ClassJPY
	ClassMetal
	ClassCrypto
)

var pipSizes = map[InstrumentClass]float64{
	ClassStandard: 0.0001,
	ClassJPY:      0.01,
	ClassMetal:    0.1,
	ClassCrypto:   1.0,
}

var (
	metalPrefixes  = []string{"XAU", "XAG", "XPT", "XPD"}
	cryptoPrefixes = []string{"BTC", "ETH", "LTC", "XRP", "SOL", "BCH"}
)

func ClassOf(symbol string) InstrumentClass {
	s := strings.ToUpper(symbol)
	for _, p := range metalPrefixes {
		if strings.HasPrefix(s, p) {
			return ClassMetal
		}
	}
	for _, p := range cryptoPrefixes {
		if strings.HasPrefix(s, p) {
			return ClassCrypto
		}
	}
	if strings.Contains(s, "JPY") {
		return ClassJPY
	}
	return ClassStandard
}

func PipSize(symbol string) float64 {
	return pipSizes[ClassOf(symbol)]
}

// StopLevels returns SL and TP for an entry at price. A non-positive distance
// yields 0 (no level).
func StopLevels(inst models.Instrument, side models.Side, price, slPips, tpPips float64) (sl, tp float64) {
	pip := PipSize(inst.Symbol)
	dir := 1.0
	if side == models.SideSell {
		dir = -1.0
	}
	if slPips > 0 {
		sl = inst.RoundPrice(price - dir*slPips*pip)
	}
	if tpPips > 0 {
		tp = inst.RoundPrice(price + dir*tpPips*pip)
	}
	return sl, tp
}
