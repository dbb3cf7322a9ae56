package exchange

import (
	"context"

	"github.com/JabirHus/NCTB/internal/models"
)

// MarketData supplies bar windows and quotes. Calls may fail transiently.
type MarketData interface {
	Bars(ctx context.Context, symbol, timeframe string, count int) ([]models.Bar, error)
	LatestTick(ctx context.Context, symbol string) (models.Tick, error)
}

// Session is an authenticated handle on one trading account. Every call is
// scoped to that account, so sessions for different accounts can be used
// from different goroutines.
type Session interface {
	Login() int64
	Symbols(ctx context.Context) ([]string, error)
	SymbolInfo(ctx context.Context, symbol string) (models.Instrument, error)
	SelectSymbol(ctx context.Context, symbol string) error
	LatestTick(ctx context.Context, symbol string) (models.Tick, error)
	// Positions lists open positions, filtered by symbol when symbol != "".
	Positions(ctx context.Context, symbol string) ([]models.Position, error)
	// SendOrder returns a nil result only together with a non-nil error.
	SendOrder(ctx context.Context, req models.OrderRequest) (*models.OrderResult, error)
}

type Broker interface {
	MarketData
	Login(ctx context.Context, creds models.Credentials) (Session, error)
	// Shutdown drops every session; later calls on them fail until the
	// account logs in again.
	Shutdown(ctx context.Context) error
}
