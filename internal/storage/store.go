package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	_ "modernc.org/sqlite"
)

// CursorID names the single pipeline cursor row.
const CursorID = "events"

// Store wraps SQLite-backed persistence for the block cursor and the
// delivery journal.
type Store struct {
	db *sql.DB
}

// Open initializes a SQLite database and runs minimal schema setup.
func Open(path string) (*Store, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open db: %w", err)
	}
	if err := configure(db); err != nil {
		db.Close()
		return nil, err
	}
	if err := migrate(db); err != nil {
		db.Close()
		return nil, err
	}
	return &Store{db: db}, nil
}

// Close releases the underlying database handle.
func (s *Store) Close() error {
	if s == nil || s.db == nil {
		return nil
	}
	return s.db.Close()
}

// Ping checks database connectivity.
func (s *Store) Ping(ctx context.Context) error {
	if s == nil || s.db == nil {
		return errors.New("store not initialized")
	}
	return s.db.PingContext(ctx)
}

func configure(db *sql.DB) error {
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()

	pragmas := []string{
		"PRAGMA foreign_keys = ON;",
		"PRAGMA journal_mode = WAL;",
		"PRAGMA busy_timeout = 5000;",
	}
	for _, p := range pragmas {
		if _, err := db.ExecContext(ctx, p); err != nil {
			return fmt.Errorf("set pragma %q: %w", p, err)
		}
	}
	return nil
}

func migrate(db *sql.DB) error {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	schema := `
CREATE TABLE IF NOT EXISTS cursors (
  id          TEXT PRIMARY KEY,
  block       INTEGER NOT NULL,
  updated_at  TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP
);

CREATE TABLE IF NOT EXISTS deliveries (
  key         TEXT PRIMARY KEY,
  display     TEXT NOT NULL,
  txhash      TEXT NOT NULL,
  block       INTEGER NOT NULL,
  created_at  TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP
);
`
	if _, err := db.ExecContext(ctx, schema); err != nil {
		return fmt.Errorf("apply schema: %w", err)
	}
	return nil
}

// UpsertCursor records the last checked block.
func (s *Store) UpsertCursor(ctx context.Context, id string, block uint64) error {
	if id == "" {
		return errors.New("cursor id required")
	}
	_, err := s.db.ExecContext(ctx, `
INSERT INTO cursors (id, block, updated_at)
VALUES (?, ?, CURRENT_TIMESTAMP)
ON CONFLICT(id) DO UPDATE SET
  block=excluded.block,
  updated_at=CURRENT_TIMESTAMP;
`, id, block)
	if err != nil {
		return fmt.Errorf("upsert cursor: %w", err)
	}
	return nil
}

// GetCursor retrieves the last checked block.
func (s *Store) GetCursor(ctx context.Context, id string) (block uint64, ok bool, err error) {
	row := s.db.QueryRowContext(ctx, `
SELECT block FROM cursors WHERE id = ?;
`, id)
	switch err = row.Scan(&block); err {
	case nil:
		return block, true, nil
	case sql.ErrNoRows:
		return 0, false, nil
	default:
		return 0, false, fmt.Errorf("get cursor: %w", err)
	}
}

// Delivery is one journaled notification.
type Delivery struct {
	Key       string    `json:"key"`
	Display   string    `json:"display"`
	TxHash    string    `json:"txhash"`
	Block     uint64    `json:"block"`
	CreatedAt time.Time `json:"created_at"`
}

// RecordDelivery journals a sent notification; the primary key makes
// re-recording after a mid-batch crash harmless.
func (s *Store) RecordDelivery(ctx context.Context, d Delivery) error {
	if d.Key == "" || d.Display == "" {
		return errors.New("delivery key and display required")
	}
	_, err := s.db.ExecContext(ctx, `
INSERT INTO deliveries (key, display, txhash, block, created_at)
VALUES (?, ?, ?, ?, CURRENT_TIMESTAMP)
ON CONFLICT(key) DO NOTHING;
`, d.Key, d.Display, d.TxHash, d.Block)
	if err != nil {
		return fmt.Errorf("record delivery: %w", err)
	}
	return nil
}

// Deliveries returns the most recent journal entries, newest first.
func (s *Store) Deliveries(ctx context.Context, limit int) ([]Delivery, error) {
	if limit <= 0 {
		limit = 100
	}
	rows, err := s.db.QueryContext(ctx, `
SELECT key, display, txhash, block, created_at
FROM deliveries ORDER BY created_at DESC, block DESC LIMIT ?;
`, limit)
	if err != nil {
		return nil, fmt.Errorf("list deliveries: %w", err)
	}
	defer rows.Close()

	out := []Delivery{}
	for rows.Next() {
		var d Delivery
		if err := rows.Scan(&d.Key, &d.Display, &d.TxHash, &d.Block, &d.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan delivery: %w", err)
		}
		out = append(out, d)
	}
	return out, rows.Err()
}
