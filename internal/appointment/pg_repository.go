package appointment

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgtype"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/barangay-nit/eservices/internal/db"
	"github.com/barangay-nit/eservices/internal/domain"
	"github.com/barangay-nit/eservices/internal/schedule"
)

const activeSlotIndex = "appointments_active_slot_key"

type PgRepository struct {
	pool *pgxpool.Pool
	loc  *time.Location
}

// NewPgRepository reads DATE columns back as midnight in loc, the office
// time zone.
func NewPgRepository(pool *pgxpool.Pool, loc *time.Location) *PgRepository {
	return &PgRepository{pool: pool, loc: loc}
}

// Helpers

const appointmentColumns = `
	id, tracking_id, name, email, phone, service_type, appointment_date,
	appointment_time, health_concern, status, remarks, processed_by,
	confirmed_at, cancelled_at, no_show_at, created_at, updated_at`

func toPgTime(t schedule.TimeOfDay) pgtype.Time {
	return pgtype.Time{Microseconds: int64(t.Duration() / time.Microsecond), Valid: true}
}

func fromPgTime(t pgtype.Time) schedule.TimeOfDay {
	return schedule.TimeOfDay(time.Duration(t.Microseconds) * time.Microsecond / time.Minute)
}

func (r *PgRepository) scanAppointment(row pgx.Row) (*Appointment, error) {
	var (
		a      Appointment
		date   time.Time
		slotAt pgtype.Time
	)

	err := row.Scan(
		&a.ID,
		&a.TrackingID,
		&a.Name,
		&a.Email,
		&a.Phone,
		&a.ServiceType,
		&date,
		&slotAt,
		&a.HealthConcern,
		&a.Status,
		&a.Remarks,
		&a.ProcessedBy,
		&a.ConfirmedAt,
		&a.CancelledAt,
		&a.NoShowAt,
		&a.CreatedAt,
		&a.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrNotFound
		}
		return nil, err
	}

	a.Date = time.Date(date.Year(), date.Month(), date.Day(), 0, 0, 0, 0, r.loc)
	a.Time = fromPgTime(slotAt)
	return &a, nil
}

func (r *PgRepository) scanAll(rows pgx.Rows) ([]Appointment, error) {
	defer rows.Close()

	var result []Appointment
	for rows.Next() {
		a, err := r.scanAppointment(rows)
		if err != nil {
			return nil, err
		}
		result = append(result, *a)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return result, nil
}

// Interface methods

func (r *PgRepository) Create(ctx context.Context, a *Appointment) (*Appointment, error) {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return nil, err
	}
	defer tx.Rollback(ctx)

	row := tx.QueryRow(ctx, `
		INSERT INTO appointments (
			tracking_id, name, email, phone, service_type, appointment_date,
			appointment_time, health_concern, status, remarks, created_at, updated_at
		)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, 'pending', '', $9, $9)
		RETURNING `+appointmentColumns,
		a.TrackingID, a.Name, a.Email, a.Phone, a.ServiceType, a.Date,
		toPgTime(a.Time), a.HealthConcern, a.CreatedAt,
	)

	created, err := r.scanAppointment(row)
	if err != nil {
		if db.IsUniqueViolation(err, activeSlotIndex) {
			return nil, domain.ErrSlotUnavailable
		}
		if db.IsUniqueViolation(err, "appointments_tracking_id_key") {
			return nil, fmt.Errorf("tracking id %s already issued: %w", a.TrackingID, domain.ErrGenerationExhausted)
		}
		return nil, fmt.Errorf("insert appointment: %w", err)
	}

	payload, _ := json.Marshal(map[string]any{
		"service_type": created.ServiceType,
		"date":         created.Date.Format(schedule.DateLayout),
		"time":         created.Time.String(),
	})
	if err := db.InsertEvent(ctx, tx, domain.Event{
		Type:       EventAppointmentBooked,
		Entity:     "appointment",
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

func (r *PgRepository) GetByID(ctx context.Context, id int64) (*Appointment, error) {
	row := r.pool.QueryRow(ctx, `SELECT `+appointmentColumns+` FROM appointments WHERE id = $1`, id)
	return r.scanAppointment(row)
}

func (r *PgRepository) GetByTrackingID(ctx context.Context, trackingID string) (*Appointment, error) {
	row := r.pool.QueryRow(ctx, `SELECT `+appointmentColumns+` FROM appointments WHERE tracking_id = $1`, trackingID)
	return r.scanAppointment(row)
}

func (r *PgRepository) ActiveSlotTimes(ctx context.Context, date time.Time, service string) ([]schedule.TimeOfDay, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT appointment_time
		FROM appointments
		WHERE appointment_date = $1
		  AND service_type = $2
		  AND status IN ('pending', 'confirmed')
		ORDER BY appointment_time
	`, date, service)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []schedule.TimeOfDay
	for rows.Next() {
		var t pgtype.Time
		if err := rows.Scan(&t); err != nil {
			return nil, err
		}
		out = append(out, fromPgTime(t))
	}
	return out, rows.Err()
}

// Transition writes the status, its timestamp column and the audit row in one
// transaction, guarded by the expected current status.
func (r *PgRepository) Transition(ctx context.Context, t Transition) (*Appointment, error) {
	stampColumn, event, err := transitionColumns(t.To)
	if err != nil {
		return nil, err
	}

	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return nil, err
	}
	defer tx.Rollback(ctx)

	row := tx.QueryRow(ctx, `
		UPDATE appointments
		SET status = $2,
		    remarks = $3,
		    processed_by = $4,
		    `+stampColumn+` = $5,
		    updated_at = $5
		WHERE id = $1
		  AND status = $6
		RETURNING `+appointmentColumns,
		t.ID, t.To, t.Remarks, t.Actor, t.At, t.From,
	)

	updated, err := r.scanAppointment(row)
	if errors.Is(err, domain.ErrNotFound) {
		var current Status
		err := tx.QueryRow(ctx, `SELECT status FROM appointments WHERE id = $1`, t.ID).Scan(&current)
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrNotFound
		}
		if err != nil {
			return nil, err
		}
		return nil, &domain.TransitionError{Entity: "appointment", From: string(current), Action: t.Action}
	}
	if err != nil {
		return nil, err
	}

	payload, _ := json.Marshal(map[string]any{"from": t.From, "to": t.To, "remarks": t.Remarks})
	if err := db.InsertEvent(ctx, tx, domain.Event{
		Type:       event,
		Entity:     "appointment",
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

func transitionColumns(to Status) (string, string, error) {
	switch to {
	case StatusConfirmed:
		return "confirmed_at", EventAppointmentConfirmed, nil
	case StatusCancelled:
		return "cancelled_at", EventAppointmentCancelled, nil
	case StatusNoShow:
		return "no_show_at", EventAppointmentNoShow, nil
	}
	return "", "", fmt.Errorf("no transition into %q", to)
}

func (r *PgRepository) FindLapsedPending(ctx context.Context, now time.Time) ([]Appointment, error) {
	now = now.In(r.loc)
	today := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, r.loc)
	clock := schedule.NewTimeOfDay(now.Hour(), now.Minute())

	rows, err := r.pool.Query(ctx, `
		SELECT `+appointmentColumns+`
		FROM appointments
		WHERE status = 'pending'
		  AND (appointment_date < $1
		       OR (appointment_date = $1 AND appointment_time <= $2))
		ORDER BY appointment_date, appointment_time
	`, today, toPgTime(clock))
	if err != nil {
		return nil, err
	}
	return r.scanAll(rows)
}

func (r *PgRepository) List(ctx context.Context, f ListFilter) ([]Appointment, int, error) {
	var status *string
	if f.Status != nil {
		s := string(*f.Status)
		status = &s
	}

	var total int
	if err := r.pool.QueryRow(ctx, `
		SELECT count(*) FROM appointments
		WHERE ($1::text IS NULL OR status = $1)
		  AND ($2::date IS NULL OR appointment_date = $2)
	`, status, f.Date).Scan(&total); err != nil {
		return nil, 0, err
	}

	rows, err := r.pool.Query(ctx, `
		SELECT `+appointmentColumns+`
		FROM appointments
		WHERE ($1::text IS NULL OR status = $1)
		  AND ($2::date IS NULL OR appointment_date = $2)
		ORDER BY appointment_date DESC, appointment_time DESC, id DESC
		LIMIT $3 OFFSET $4
	`, status, f.Date, f.Limit, f.Offset)
	if err != nil {
		return nil, 0, err
	}

	items, err := r.scanAll(rows)
	if err != nil {
		return nil, 0, err
	}
	return items, total, nil
}

func (r *PgRepository) Counts(ctx context.Context, today time.Time) (Counts, error) {
	var c Counts
	err := r.pool.QueryRow(ctx, `
		SELECT count(*),
		       count(*) FILTER (WHERE status = 'pending'),
		       count(*) FILTER (WHERE status = 'confirmed'),
		       count(*) FILTER (WHERE status = 'cancelled'),
		       count(*) FILTER (WHERE status = 'no_show'),
		       count(*) FILTER (WHERE appointment_date = $1)
		FROM appointments
	`, today).Scan(&c.Total, &c.Pending, &c.Confirmed, &c.Cancelled, &c.NoShow, &c.Today)
	return c, err
}

var _ Repository = (*PgRepository)(nil)
