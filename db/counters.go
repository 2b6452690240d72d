// ABOUTME: Named monotonic counters stored alongside the contract book
// ABOUTME: Backs the default sequence allocator when no external counter store is configured
package db

import (
	"context"
	"database/sql"
	"fmt"
)

// CounterRepository hands out increasing integers per counter name.
type CounterRepository struct {
	db *sql.DB
}

// NewCounterRepository creates a new counter repository.
func NewCounterRepository(db *sql.DB) *CounterRepository {
	return &CounterRepository{db: db}
}

// Next atomically increments the named counter and returns the new value.
// The first value of a fresh counter is 1.
func (r *CounterRepository) Next(ctx context.Context, name string) (int64, error) {
	var seq int64
	err := r.db.QueryRowContext(ctx, `
		INSERT INTO counters (name, seq) VALUES (?, 1)
		ON CONFLICT(name) DO UPDATE SET seq = seq + 1
		RETURNING seq
	`, name).Scan(&seq)
	if err != nil {
		return 0, fmt.Errorf("failed to advance counter %s: %w", name, err)
	}
	return seq, nil
}

// Current returns the last value handed out, or 0 if the counter is unused.
func (r *CounterRepository) Current(ctx context.Context, name string) (int64, error) {
	var seq int64
	err := r.db.QueryRowContext(ctx, `SELECT seq FROM counters WHERE name = ?`, name).Scan(&seq)
	if err == sql.ErrNoRows {
		return 0, nil
	}
	return seq, err
}
