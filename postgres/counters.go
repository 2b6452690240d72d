// ABOUTME: Named counters stored in PostgreSQL
// ABOUTME: Upsert with RETURNING gives each caller a distinct value
package postgres

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"
)

type CounterRepository struct {
	pool *pgxpool.Pool
}

// Next atomically increments the named counter; a fresh counter starts at 1.
func (r *CounterRepository) Next(ctx context.Context, name string) (int64, error) {
	var seq int64
	err := r.pool.QueryRow(ctx, `
		INSERT INTO counters (name, seq) VALUES ($1, 1)
		ON CONFLICT (name) DO UPDATE SET seq = counters.seq + 1
		RETURNING seq
	`, name).Scan(&seq)
	if err != nil {
		return 0, fmt.Errorf("failed to advance counter %s: %w", name, err)
	}
	return seq, nil
}
