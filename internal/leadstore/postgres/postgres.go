// Package postgres implements the leadstore.Saver interface backed by a
// PostgreSQL table.
package postgres

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/lexline-ai/lexline/internal/leadstore"
)

// Compile-time interface check.
var _ leadstore.Saver = (*Store)(nil)

// schema creates the leads table. call_id uniqueness backs the at-most-one
// record guarantee for calls whose save is dispatched more than once across
// process restarts.
const schema = `
CREATE TABLE IF NOT EXISTS leads (
	id            BIGSERIAL PRIMARY KEY,
	call_id       TEXT NOT NULL UNIQUE,
	caller_number TEXT NOT NULL DEFAULT '',
	fields        JSONB NOT NULL DEFAULT '{}',
	transcript    TEXT NOT NULL DEFAULT '',
	received_at   TIMESTAMPTZ NOT NULL
)`

// Store is a PostgreSQL-backed lead saver. All operations are safe for
// concurrent use.
type Store struct {
	pool *pgxpool.Pool
}

// NewStore creates a Store, establishes a connection pool to the PostgreSQL
// database at dsn, verifies connectivity, and ensures the leads table exists.
func NewStore(ctx context.Context, dsn string) (*Store, error) {
	cfg, err := pgxpool.ParseConfig(dsn)
	if err != nil {
		return nil, fmt.Errorf("lead store: parse dsn: %w", err)
	}

	pool, err := pgxpool.NewWithConfig(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("lead store: create pool: %w", err)
	}

	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("lead store: ping: %w", err)
	}

	if _, err := pool.Exec(ctx, schema); err != nil {
		pool.Close()
		return nil, fmt.Errorf("lead store: migrate: %w", err)
	}

	return &Store{pool: pool}, nil
}

// SaveLead inserts the lead. A duplicate call_id is a no-op rather than an
// error, so a redundant dispatch cannot create a second record.
func (s *Store) SaveLead(ctx context.Context, lead leadstore.Lead) error {
	fields, err := json.Marshal(lead.Fields)
	if err != nil {
		return fmt.Errorf("lead store: encode fields: %w", err)
	}

	_, err = s.pool.Exec(ctx, `
		INSERT INTO leads (call_id, caller_number, fields, transcript, received_at)
		VALUES (@call_id, @caller_number, @fields, @transcript, @received_at)
		ON CONFLICT (call_id) DO NOTHING`,
		pgx.NamedArgs{
			"call_id":       lead.CallID,
			"caller_number": lead.CallerNumber,
			"fields":        fields,
			"transcript":    lead.Transcript,
			"received_at":   lead.ReceivedAt,
		},
	)
	if err != nil {
		return fmt.Errorf("lead store: insert lead %q: %w", lead.CallID, err)
	}
	return nil
}

// Ping verifies database connectivity. Used as a readiness check.
func (s *Store) Ping(ctx context.Context) error {
	return s.pool.Ping(ctx)
}

// Close releases the connection pool.
func (s *Store) Close() {
	s.pool.Close()
}
