package db

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5/pgconn"

	"github.com/barangay-nit/eservices/internal/domain"
)

// Execer is satisfied by *pgxpool.Pool, *pgx.Conn and pgx.Tx.
type Execer interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
}

// InsertEvent writes an audit row. Call it with the transaction that made the
// change so the trail and the status can never disagree.
func InsertEvent(ctx context.Context, q Execer, ev domain.Event) error {
	var actor *string
	if ev.Actor != "" {
		actor = &ev.Actor
	}

	_, err := q.Exec(ctx, `
		INSERT INTO event_logs (event_type, entity, record_id, tracking_id, actor, payload, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, COALESCE($7, now()))
	`, ev.Type, ev.Entity, ev.RecordID, ev.TrackingID, actor, ev.Payload, nullableTime(ev.CreatedAt))
	if err != nil {
		return fmt.Errorf("insert event log: %w", err)
	}

	return nil
}

func nullableTime(t time.Time) *time.Time {
	if t.IsZero() {
		return nil
	}
	return &t
}
