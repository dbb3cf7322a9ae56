package sqlite

import (
	"context"
	"time"

	"github.com/JabirHus/NCTB/internal/models"
)

func (s *Store) LoadCopiedTickets(ctx context.Context) ([]int64, error) {
	if err := s.check(); err != nil {
		return nil, err
	}
	rows, err := s.db.QueryContext(ctx, `SELECT ticket FROM copied_tickets ORDER BY ticket`)
	if err != nil {
		return nil, persistErr("load tickets", err)
	}
	defer rows.Close()

	var out []int64
	for rows.Next() {
		var t int64
		if err := rows.Scan(&t); err != nil {
			return nil, persistErr("scan ticket", err)
		}
		out = append(out, t)
	}
	if err := rows.Err(); err != nil {
		return nil, persistErr("iterate tickets", err)
	}
	return out, nil
}

// SaveCopiedTickets replaces the stored set in one transaction.
func (s *Store) SaveCopiedTickets(ctx context.Context, tickets []int64) error {
	if err := s.check(); err != nil {
		return err
	}
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return persistErr("begin", err)
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, `DELETE FROM copied_tickets`); err != nil {
		return persistErr("clear tickets", err)
	}
	stmt, err := tx.PrepareContext(ctx, `INSERT OR IGNORE INTO copied_tickets (ticket) VALUES (?)`)
	if err != nil {
		return persistErr("prepare", err)
	}
	defer stmt.Close()

	for _, t := range tickets {
		if _, err := stmt.ExecContext(ctx, t); err != nil {
			return persistErr("insert ticket", err)
		}
	}
	if err := tx.Commit(); err != nil {
		return persistErr("commit", err)
	}
	return nil
}

func (s *Store) AppendClosedTrade(ctx context.Context, trade models.ClosedTrade) error {
	if err := s.check(); err != nil {
		return err
	}
	at := trade.ClosedAt
	if at.IsZero() {
		at = time.Now()
	}
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO closed_master_trades (ticket, symbol, side, volume, reason, closed_at)
		 VALUES (?, ?, ?, ?, ?, ?)`,
		trade.Ticket, trade.Symbol, string(trade.Side), trade.Volume, trade.Reason, at.UnixMilli())
	if err != nil {
		return persistErr("append closed trade", err)
	}
	return nil
}

// ClosedTrades returns the newest closed master trades first.
func (s *Store) ClosedTrades(ctx context.Context, limit int) ([]models.ClosedTrade, error) {
	if err := s.check(); err != nil {
		return nil, err
	}
	if limit <= 0 {
		limit = -1
	}
	rows, err := s.db.QueryContext(ctx,
		`SELECT ticket, symbol, side, volume, reason, closed_at
		 FROM closed_master_trades ORDER BY closed_at DESC, id DESC LIMIT ?`, limit)
	if err != nil {
		return nil, persistErr("query closed trades", err)
	}
	defer rows.Close()

	var out []models.ClosedTrade
	for rows.Next() {
		var (
			tr   models.ClosedTrade
			side string
			at   int64
		)
		if err := rows.Scan(&tr.Ticket, &tr.Symbol, &side, &tr.Volume, &tr.Reason, &at); err != nil {
			return nil, persistErr("scan closed trade", err)
		}
		tr.Side = models.Side(side)
		tr.ClosedAt = time.UnixMilli(at).UTC()
		out = append(out, tr)
	}
	if err := rows.Err(); err != nil {
		return nil, persistErr("iterate closed trades", err)
	}
	return out, nil
}
