package certificate

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/barangay-nit/eservices/internal/db"
	"github.com/barangay-nit/eservices/internal/domain"
)

type PgRepository struct {
	pool *pgxpool.Pool
}

func NewPgRepository(pool *pgxpool.Pool) *PgRepository {
	return &PgRepository{pool: pool}
}

const requestColumns = `
	id, tracking_id, name, email, phone, certificate_type, purpose,
	id_type, id_number, id_file_ref, date_needed, status, remarks,
	processed_by, processed_at, created_at, updated_at`

func scanRequest(row pgx.Row) (*Request, error) {
	var r Request

	err := row.Scan(
		&r.ID,
		&r.TrackingID,
		&r.Name,
		&r.Email,
		&r.Phone,
		&r.CertificateType,
		&r.Purpose,
		&r.IDType,
		&r.IDNumber,
		&r.IDFileRef,
		&r.DateNeeded,
		&r.Status,
		&r.Remarks,
		&r.ProcessedBy,
		&r.ProcessedAt,
		&r.CreatedAt,
		&r.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrNotFound
		}
		return nil, err
	}

	return &r, nil
}

func (r *PgRepository) Create(ctx context.Context, req *Request) (*Request, error) {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return nil, err
	}
	defer tx.Rollback(ctx)

	row := tx.QueryRow(ctx, `
		INSERT INTO certificate_requests (
			tracking_id, name, email, phone, certificate_type, purpose,
			id_type, id_number, id_file_ref, date_needed, status, remarks,
			created_at, updated_at
		)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, 'pending', '', $11, $11)
		RETURNING `+requestColumns,
		req.TrackingID, req.Name, req.Email, req.Phone, req.CertificateType, req.Purpose,
		req.IDType, req.IDNumber, req.IDFileRef, req.DateNeeded, req.CreatedAt,
	)

	created, err := scanRequest(row)
	if err != nil {
		if db.IsUniqueViolation(err, "certificate_requests_tracking_id_key") {
			return nil, fmt.Errorf("tracking id %s already issued: %w", req.TrackingID, domain.ErrGenerationExhausted)
		}
		return nil, fmt.Errorf("insert certificate request: %w", err)
	}

	payload, _ := json.Marshal(map[string]any{"certificate_type": created.CertificateType})
	if err := db.InsertEvent(ctx, tx, domain.Event{
		Type:       EventRequestSubmitted,
		Entity:     "certificate_request",
		RecordID:   created.ID,
		TrackingID: created.TrackingID,
		Payload:    payload,
		CreatedAt:  created.CreatedAt,
	}); err != nil {
		return nil, err
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, err
	}
	return created, nil
}

func (r *PgRepository) GetByID(ctx context.Context, id int64) (*Request, error) {
	row := r.pool.QueryRow(ctx, `SELECT `+requestColumns+` FROM certificate_requests WHERE id = $1`, id)
	return scanRequest(row)
}

func (r *PgRepository) GetByTrackingID(ctx context.Context, trackingID string) (*Request, error) {
	row := r.pool.QueryRow(ctx, `SELECT `+requestColumns+` FROM certificate_requests WHERE tracking_id = $1`, trackingID)
	return scanRequest(row)
}

// Transition applies the change with a conditional UPDATE so two concurrent
// staff actions on the same record cannot both succeed.
func (r *PgRepository) Transition(ctx context.Context, t Transition) (*Request, error) {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return nil, err
	}
	defer tx.Rollback(ctx)

	row := tx.QueryRow(ctx, `
		UPDATE certificate_requests
		SET status = $2,
		    remarks = $3,
		    processed_by = $4,
		    processed_at = $5,
		    updated_at = $5
		WHERE id = $1
		  AND status = $6
		RETURNING `+requestColumns,
		t.ID, t.To, t.Remarks, t.Actor, t.At, t.From,
	)

	updated, err := scanRequest(row)
	if errors.Is(err, domain.ErrNotFound) {
		var current Status
		err := tx.QueryRow(ctx, `SELECT status FROM certificate_requests WHERE id = $1`, t.ID).Scan(&current)
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrNotFound
		}
		if err != nil {
			return nil, err
		}
		return nil, &domain.TransitionError{Entity: "certificate request", From: string(current), Action: t.Action}
	}
	if err != nil {
		return nil, err
	}

	payload, _ := json.Marshal(map[string]any{"from": t.From, "to": t.To, "remarks": t.Remarks})
	if err := db.InsertEvent(ctx, tx, domain.Event{
		Type:       eventFor(t.To),
		Entity:     "certificate_request",
		RecordID:   updated.ID,
		TrackingID: updated.TrackingID,
		Actor:      t.Actor,
		Payload:    payload,
		CreatedAt:  t.At,
	}); err != nil {
		return nil, err
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, err
	}
	return updated, nil
}

func (r *PgRepository) List(ctx context.Context, f ListFilter) ([]Request, int, error) {
	var status *string
	if f.Status != nil {
		s := string(*f.Status)
		status = &s
	}

	var total int
	if err := r.pool.QueryRow(ctx, `
		SELECT count(*) FROM certificate_requests
		WHERE ($1::text IS NULL OR status = $1)
	`, status).Scan(&total); err != nil {
		return nil, 0, err
	}

	rows, err := r.pool.Query(ctx, `
		SELECT `+requestColumns+`
		FROM certificate_requests
		WHERE ($1::text IS NULL OR status = $1)
		ORDER BY created_at DESC, id DESC
		LIMIT $2 OFFSET $3
	`, status, f.Limit, f.Offset)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	var result []Request
	for rows.Next() {
		req, err := scanRequest(rows)
		if err != nil {
			return nil, 0, err
		}
		result = append(result, *req)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, err
	}

	return result, total, nil
}

func (r *PgRepository) Counts(ctx context.Context) (Counts, error) {
	var c Counts
	err := r.pool.QueryRow(ctx, `
		SELECT count(*),
		       count(*) FILTER (WHERE status = 'pending'),
		       count(*) FILTER (WHERE status = 'approved'),
		       count(*) FILTER (WHERE status = 'rejected')
		FROM certificate_requests
	`).Scan(&c.Total, &c.Pending, &c.Approved, &c.Rejected)
	return c, err
}

func eventFor(to Status) string {
	switch to {
	case StatusApproved:
		return EventRequestApproved
	case StatusRejected:
		return EventRequestRejected
	}
	return EventRequestSubmitted
}

var _ Repository = (*PgRepository)(nil)
