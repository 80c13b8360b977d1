// Package record is the append-only sink for raw call events. Writes are
// best-effort: callers log failures and move on, scheduling never waits
// on the sink.
package record

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
)

type Store struct {
	pool *pgxpool.Pool
}

func New(ctx context.Context, databaseURL string) (*Store, error) {
	pool, err := pgxpool.New(ctx, databaseURL)
	if err != nil {
		return nil, fmt.Errorf("connect to database: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		return nil, fmt.Errorf("ping database: %w", err)
	}
	return &Store{pool: pool}, nil
}

func (s *Store) Close() {
	s.pool.Close()
}

// EnsureSchema creates the call_records table if it does not exist yet.
func (s *Store) EnsureSchema(ctx context.Context) error {
	_, err := s.pool.Exec(ctx, `
		CREATE TABLE IF NOT EXISTS call_records (
			id          UUID PRIMARY KEY,
			call_id     TEXT NOT NULL,
			payload     JSONB NOT NULL,
			received_at TIMESTAMPTZ NOT NULL DEFAULT now()
		)`)
	if err != nil {
		return fmt.Errorf("ensure call_records schema: %w", err)
	}
	return nil
}

// Record appends one raw webhook payload.
func (s *Store) Record(ctx context.Context, callID string, payload []byte) error {
	_, err := s.pool.Exec(ctx,
		`INSERT INTO call_records (id, call_id, payload) VALUES ($1, $2, $3)`,
		uuid.New(), callID, payload,
	)
	if err != nil {
		return fmt.Errorf("insert call record: %w", err)
	}
	return nil
}
