package redis

import (
	"context"
	"testing"
	"time"

	"github.com/JabirHus/NCTB/internal/exception"
	"github.com/JabirHus/NCTB/internal/models"
	"github.com/alicebob/miniredis/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newStore(t *testing.T) (*TicketStore, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	s, err := New(Config{Addr: mr.Addr(), Prefix: "test"})
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })
	return s, mr
}

func TestCopiedTickets(t *testing.T) {
	s, mr := newStore(t)
	ctx := context.Background()

	got, err := s.LoadCopiedTickets(ctx)
	require.NoError(t, err)
	assert.Empty(t, got)

	require.NoError(t, s.SaveCopiedTickets(ctx, []int64{1003, 1001}))
	require.NoError(t, s.SaveCopiedTickets(ctx, []int64{1002, 1001}))

	got, err = s.LoadCopiedTickets(ctx)
	require.NoError(t, err)
	assert.Equal(t, []int64{1001, 1002}, got)

	members, err := mr.Members("test:copied_tickets")
	require.NoError(t, err)
	assert.ElementsMatch(t, []string{"1001", "1002"}, members)

	require.NoError(t, s.SaveCopiedTickets(ctx, nil))
	assert.False(t, mr.Exists("test:copied_tickets"))
}

func TestClosedTrades(t *testing.T) {
	s, _ := newStore(t)
	ctx := context.Background()
	at := time.Date(2026, 3, 2, 11, 0, 0, 0, time.UTC)

	for i := int64(0); i < 3; i++ {
		require.NoError(t, s.AppendClosedTrade(ctx, models.ClosedTrade{
			Ticket: 1000 + i, Symbol: "EURUSD", Side: models.SideBuy, Volume: 0.1, Reason: "master_closed", ClosedAt: at,
		}))
	}

	trades, err := s.ClosedTrades(ctx, 2)
	require.NoError(t, err)
	require.Len(t, trades, 2)
	assert.Equal(t, int64(1002), trades[0].Ticket, "newest first")
	assert.Equal(t, at, trades[0].ClosedAt)
}

func TestBadTicketIsPersistenceError(t *testing.T) {
	s, mr := newStore(t)
	_, err := mr.SAdd("test:copied_tickets", "oops")
	require.NoError(t, err)

	_, err = s.LoadCopiedTickets(context.Background())
	assert.ErrorIs(t, err, exception.ErrPersistence)
}

func TestUnreachableServer(t *testing.T) {
	mr := miniredis.RunT(t)
	addr := mr.Addr()
	mr.Close()

	_, err := New(Config{Addr: addr})
	assert.ErrorIs(t, err, exception.ErrPersistence)
}

func TestPingReflectsServer(t *testing.T) {
	s, mr := newStore(t)
	ctx := context.Background()

	require.NoError(t, s.Ping(ctx))

	mr.Close()
	err := s.Ping(ctx)
	assert.ErrorIs(t, err, exception.ErrPersistence)
}
