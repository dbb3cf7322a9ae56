// Package sqlite keeps trade history, the strategy definition and
// replication state in one SQLite file. The pool is capped at a single
// connection so every write is serialized.
package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"sync/atomic"

	"github.com/JabirHus/NCTB/internal/exception"
	_ "github.com/mattn/go-sqlite3"
)

type Store struct {
	db     *sql.DB
	closed atomic.Bool
}

// Open opens (or creates) the database at path in WAL mode and applies the
// schema.
func Open(path string) (*Store, error) {
	if dir := filepath.Dir(path); dir != "" && dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("%w: sqlite dir: %v", exception.ErrPersistence, err)
		}
	}

	db, err := sql.Open("sqlite3", path+"?_journal_mode=WAL&_synchronous=NORMAL&_busy_timeout=5000")
	if err != nil {
		return nil, fmt.Errorf("%w: sqlite open: %v", exception.ErrPersistence, err)
	}
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)

	if err := createSchema(db); err != nil {
		db.Close()
		return nil, fmt.Errorf("%w: sqlite schema: %v", exception.ErrPersistence, err)
	}
	return &Store{db: db}, nil
}

// DB returns the underlying handle for health checks.
func (s *Store) DB() *sql.DB { return s.db }

func (s *Store) Close() error {
	if s.closed.Swap(true) {
		return nil
	}
	return s.db.Close()
}

func (s *Store) Ping(ctx context.Context) error {
	if err := s.check(); err != nil {
		return err
	}
	return s.db.PingContext(ctx)
}

func (s *Store) check() error {
	if s.closed.Load() {
		return exception.ErrStoreClosed
	}
	return nil
}

func createSchema(db *sql.DB) error {
	_, err := db.Exec(`
		CREATE TABLE IF NOT EXISTS trades (
			id          INTEGER PRIMARY KEY AUTOINCREMENT,
			symbol      TEXT    NOT NULL,
			side        TEXT    NOT NULL,
			volume      REAL    NOT NULL,
			entry_price REAL    NOT NULL,
			exit_price  REAL    NOT NULL DEFAULT 0,
			profit_loss REAL    NOT NULL DEFAULT 0,
			ticket      INTEGER NOT NULL,
			ts          INTEGER NOT NULL
		);

		CREATE TABLE IF NOT EXISTS strategy (
			id         INTEGER PRIMARY KEY CHECK (id = 1),
			data       TEXT    NOT NULL,
			updated_at INTEGER NOT NULL
		);

		CREATE TABLE IF NOT EXISTS copied_tickets (
			ticket INTEGER PRIMARY KEY
		);

		CREATE TABLE IF NOT EXISTS closed_master_trades (
			id        INTEGER PRIMARY KEY AUTOINCREMENT,
			ticket    INTEGER NOT NULL,
			symbol    TEXT    NOT NULL,
			side      TEXT    NOT NULL,
			volume    REAL    NOT NULL,
			reason    TEXT    NOT NULL,
			closed_at INTEGER NOT NULL
		);
	`)
	return err
}

func persistErr(op string, err error) error {
	return fmt.Errorf("%w: %s: %v", exception.ErrPersistence, op, err)
}
