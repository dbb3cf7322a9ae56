package sqlite

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/JabirHus/NCTB/internal/exception"
	"github.com/JabirHus/NCTB/internal/models"
	"github.com/JabirHus/NCTB/internal/strategy"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func openStore(t *testing.T) *Store {
	t.Helper()
	s, err := Open(filepath.Join(t.TempDir(), "data", "nctb.db"))
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })
	return s
}

func TestTradeHistory(t *testing.T) {
	s := openStore(t)
	ctx := context.Background()
	base := time.Date(2026, 3, 2, 10, 0, 0, 0, time.UTC)

	for i, sym := range []string{"EURUSD", "USDJPY", "EURGBP"} {
		require.NoError(t, s.AppendTrade(ctx, models.TradeRecord{
			Symbol:     sym,
			Side:       models.SideBuy,
			Volume:     0.1,
			EntryPrice: 1.1,
			Ticket:     int64(1000 + i),
			Timestamp:  base.Add(time.Duration(i) * time.Minute),
		}))
	}

	all, err := s.Trades(ctx, 0)
	require.NoError(t, err)
	require.Len(t, all, 3)
	assert.Equal(t, "EURGBP", all[0].Symbol, "newest first")
	assert.Equal(t, base.Add(2*time.Minute), all[0].Timestamp)
	assert.Equal(t, models.SideBuy, all[0].Side)

	two, err := s.Trades(ctx, 2)
	require.NoError(t, err)
	assert.Len(t, two, 2)
}

func TestStrategyRoundTrip(t *testing.T) {
	s := openStore(t)
	ctx := context.Background()

	def, err := s.LoadStrategy(ctx)
	require.NoError(t, err)
	assert.Nil(t, def, "nothing saved yet")

	require.NoError(t, s.SaveStrategy(ctx, strategy.Default()))
	update := strategy.Definition{
		strategy.NameStochastic: {Enabled: true, Parameters: map[string]int{"k": 14, "d": 3, "slowing": 3}},
	}
	require.NoError(t, s.SaveStrategy(ctx, update))

	def, err = s.LoadStrategy(ctx)
	require.NoError(t, err)
	require.NotNil(t, def)
	assert.Equal(t, update, *def)

	bad := strategy.Definition{"ADX": {Enabled: true}}
	assert.ErrorIs(t, s.SaveStrategy(ctx, bad), exception.ErrConfiguration)
}

func TestCopiedTickets(t *testing.T) {
	s := openStore(t)
	ctx := context.Background()

	got, err := s.LoadCopiedTickets(ctx)
	require.NoError(t, err)
	assert.Empty(t, got)

	require.NoError(t, s.SaveCopiedTickets(ctx, []int64{1003, 1001, 1002}))
	require.NoError(t, s.SaveCopiedTickets(ctx, []int64{1002, 1004}))

	got, err = s.LoadCopiedTickets(ctx)
	require.NoError(t, err)
	assert.Equal(t, []int64{1002, 1004}, got)

	require.NoError(t, s.SaveCopiedTickets(ctx, nil))
	got, err = s.LoadCopiedTickets(ctx)
	require.NoError(t, err)
	assert.Empty(t, got)
}

func TestClosedTrades(t *testing.T) {
	s := openStore(t)
	ctx := context.Background()
	at := time.Date(2026, 3, 2, 11, 0, 0, 0, time.UTC)

	require.NoError(t, s.AppendClosedTrade(ctx, models.ClosedTrade{Ticket: 1001, Symbol: "EURUSD", Side: models.SideSell, Volume: 0.5, Reason: "master_closed", ClosedAt: at}))

	trades, err := s.ClosedTrades(ctx, 10)
	require.NoError(t, err)
	require.Len(t, trades, 1)
	assert.Equal(t, int64(1001), trades[0].Ticket)
	assert.Equal(t, models.SideSell, trades[0].Side)
	assert.Equal(t, at, trades[0].ClosedAt)
}

func TestReopenKeepsData(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nctb.db")
	ctx := context.Background()

	s, err := Open(path)
	require.NoError(t, err)
	require.NoError(t, s.SaveCopiedTickets(ctx, []int64{7}))
	require.NoError(t, s.Close())

	s, err = Open(path)
	require.NoError(t, err)
	defer s.Close()
	got, err := s.LoadCopiedTickets(ctx)
	require.NoError(t, err)
	assert.Equal(t, []int64{7}, got)
}

func TestClosedStore(t *testing.T) {
	s := openStore(t)
	require.NoError(t, s.Close())
	require.NoError(t, s.Close())

	err := s.AppendTrade(context.Background(), models.TradeRecord{Symbol: "EURUSD"})
	assert.ErrorIs(t, err, exception.ErrStoreClosed)
	assert.ErrorIs(t, err, exception.ErrPersistence)
}
