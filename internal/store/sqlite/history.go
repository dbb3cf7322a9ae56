package sqlite

import (
	"context"
	"time"

	"github.com/JabirHus/NCTB/internal/models"
)

// AppendTrade records an executed order.
func (s *Store) AppendTrade(ctx context.Context, rec models.TradeRecord) error {
	if err := s.check(); err != nil {
		return err
	}
	ts := rec.Timestamp
	if ts.IsZero() {
		ts = time.Now()
	}
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO trades (symbol, side, volume, entry_price, exit_price, profit_loss, ticket, ts)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		rec.Symbol, string(rec.Side), rec.Volume, rec.EntryPrice, rec.ExitPrice, rec.ProfitLoss, rec.Ticket, ts.UnixMilli(),
	)
	if err != nil {
		return persistErr("append trade", err)
	}
	return nil
}

// Trades returns the newest trades first. limit <= 0 returns all of them.
func (s *Store) Trades(ctx context.Context, limit int) ([]models.TradeRecord, error) {
	if err := s.check(); err != nil {
		return nil, err
	}
	if limit <= 0 {
		limit = -1
	}
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, symbol, side, volume, entry_price, exit_price, profit_loss, ticket, ts
		 FROM trades ORDER BY ts DESC, id DESC LIMIT ?`, limit)
	if err != nil {
		return nil, persistErr("query trades", err)
	}
	defer rows.Close()

	var out []models.TradeRecord
	for rows.Next() {
		var (
			rec  models.TradeRecord
			side string
			ts   int64
		)
		if err := rows.Scan(&rec.ID, &rec.Symbol, &side, &rec.Volume, &rec.EntryPrice, &rec.ExitPrice, &rec.ProfitLoss, &rec.Ticket, &ts); err != nil {
			return nil, persistErr("scan trade", err)
		}
		rec.Side = models.Side(side)
		rec.Timestamp = time.UnixMilli(ts).UTC()
		out = append(out, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, persistErr("iterate trades", err)
	}
	return out, nil
}
