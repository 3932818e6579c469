package db

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/barangay-nit/eservices/internal/tracking"
)

// Sequencer keeps per-day tracking counters in tracking_sequences. The upsert
// takes a row lock, so concurrent callers are serialized by Postgres.
type Sequencer struct {
	pool *pgxpool.Pool
}

func NewSequencer(pool *pgxpool.Pool) *Sequencer {
	return &Sequencer{pool: pool}
}

func (s *Sequencer) NextSequence(ctx context.Context, kind tracking.Kind, day time.Time) (int, error) {
	var n int
	err := s.pool.QueryRow(ctx, `
		INSERT INTO tracking_sequences (kind, day, last_value)
		VALUES ($1, $2, 1)
		ON CONFLICT (kind, day)
		DO UPDATE SET last_value = tracking_sequences.last_value + 1
		RETURNING last_value
	`, string(kind), day).Scan(&n)
	if err != nil {
		return 0, fmt.Errorf("bump tracking sequence: %w", err)
	}
	return n, nil
}

var _ tracking.Sequencer = (*Sequencer)(nil)
