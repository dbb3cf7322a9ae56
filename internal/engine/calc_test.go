package engine

import (
	"testing"

	"github.com/JabirHus/NCTB/internal/models"
	"github.com/stretchr/testify/assert"
)

func TestStopLevels(t *testing.T) {
	tests := []struct {
		name   string
		inst   models.Instrument
		side   models.Side
		price  float64
		sl, tp float64
	}{
		{"standard buy", models.Instrument{Symbol: "EURUSD", Digits: 5}, models.SideBuy, 1.10020, 1.09920, 1.10220},
		{"standard sell", models.Instrument{Symbol: "EURUSD", Digits: 5}, models.SideSell, 1.10000, 1.10100, 1.09800},
		{"jpy sell", models.Instrument{Symbol: "USDJPY", Digits: 3}, models.SideSell, 150.000, 150.100, 149.800},
		{"metal buy", models.Instrument{Symbol: "XAUUSD", Digits: 2}, models.SideBuy, 2300.00, 2299.00, 2302.00},
		{"crypto buy", models.Instrument{Symbol: "BTCUSD", Digits: 2}, models.SideBuy, 60000, 59990, 60020},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			sl, tp := StopLevels(tt.inst, tt.side, tt.price, 10, 20)
			assert.InDelta(t, tt.sl, sl, 1e-9)
			assert.InDelta(t, tt.tp, tp, 1e-9)
		})
	}

	sl, tp := StopLevels(models.Instrument{Symbol: "EURUSD", Digits: 5}, models.SideBuy, 1.1, 0, 0)
	assert.Zero(t, sl)
	assert.Zero(t, tp)
}

func TestClassOf(t *testing.T) {
	assert.Equal(t, ClassJPY, ClassOf("EURJPY"))
	assert.Equal(t, ClassMetal, ClassOf("XAUUSD"))
	assert.Equal(t, ClassCrypto, ClassOf("ethusd"))
	assert.Equal(t, ClassStandard, ClassOf("EURGBP"))
	assert.Equal(t, 0.01, PipSize("USDJPY"))
}
