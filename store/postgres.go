package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	_ "github.com/jackc/pgx/v5/stdlib" // pgx postgres driver registered as 'pgx'
)

const pgSchema = `
CREATE TABLE IF NOT EXISTS team_records (
    key        TEXT PRIMARY KEY,
    role_id    TEXT NOT NULL,
    channel_id TEXT NOT NULL,
    created_at TIMESTAMPTZ NOT NULL DEFAULT now()
);`

// PGStore persists records in a single Postgres table. Records are immutable,
// so Put uses ON CONFLICT DO NOTHING; the first writer wins and later writers
// read back the winning row.
type PGStore struct {
	db *sql.DB
}

// OpenPostgres connects, verifies connectivity, and applies the idempotent
// embedded schema.
func OpenPostgres(ctx context.Context, dsn string) (*PGStore, error) {
	db, err := sql.Open("pgx", dsn)
	if err != nil {
		return nil, fmt.Errorf("open postgres: %w", err)
	}
	db.SetMaxOpenConns(5)
	db.SetConnMaxIdleTime(2 * time.Minute)

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := db.PingContext(pingCtx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("ping postgres: %w", err)
	}
	if _, err := db.ExecContext(ctx, pgSchema); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("apply schema: %w", err)
	}
	return &PGStore{db: db}, nil
}

func (s *PGStore) Get(ctx context.Context, key string) (Record, bool, error) {
	var rec Record
	err := s.db.QueryRowContext(ctx,
		`SELECT role_id, channel_id FROM team_records WHERE key = $1`, key,
	).Scan(&rec.RoleID, &rec.ChannelID)
	if errors.Is(err, sql.ErrNoRows) {
		return Record{}, false, nil
	}
	if err != nil {
		return Record{}, false, fmt.Errorf("get record %q: %w", key, err)
	}
	return rec, true, nil
}

func (s *PGStore) Put(ctx context.Context, key string, rec Record) error {
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO team_records (key, role_id, channel_id) VALUES ($1, $2, $3)
		 ON CONFLICT (key) DO NOTHING`, key, rec.RoleID, rec.ChannelID)
	if err != nil {
		return fmt.Errorf("persist record %q: %w", key, err)
	}
	return nil
}

func (s *PGStore) Len(ctx context.Context) (int, error) {
	var n int
	if err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM team_records`).Scan(&n); err != nil {
		return 0, fmt.Errorf("count records: %w", err)
	}
	return n, nil
}

func (s *PGStore) Close() error { return s.db.Close() }

// Ping reports backend connectivity for health checks.
func (s *PGStore) Ping(ctx context.Context) error { return s.db.PingContext(ctx) }
