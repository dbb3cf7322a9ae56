package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"time"

	"github.com/JabirHus/NCTB/internal/strategy"
)

// LoadStrategy returns the stored definition, or nil when none was saved.
func (s *Store) LoadStrategy(ctx context.Context) (*strategy.Definition, error) {
	if err := s.check(); err != nil {
		return nil, err
	}
	var data string
	err := s.db.QueryRowContext(ctx, `SELECT data FROM strategy WHERE id = 1`).Scan(&data)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, persistErr("load strategy", err)
	}

	def, err := strategy.ParseJSON([]byte(data))
	if err != nil {
		return nil, err
	}
	return &def, nil
}

// SaveStrategy validates def and replaces the stored definition.
func (s *Store) SaveStrategy(ctx context.Context, def strategy.Definition) error {
	if err := s.check(); err != nil {
		return err
	}
	if err := def.Validate(); err != nil {
		return err
	}
	data, err := json.Marshal(def)
	if err != nil {
		return persistErr("encode strategy", err)
	}
	_, err = s.db.ExecContext(ctx,
		`INSERT INTO strategy (id, data, updated_at) VALUES (1, ?, ?)
		 ON CONFLICT(id) DO UPDATE SET data = excluded.data, updated_at = excluded.updated_at`,
		string(data), time.Now().UnixMilli())
	if err != nil {
		return persistErr("save strategy", err)
	}
	return nil
}
