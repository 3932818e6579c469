package appointment

import (
	"context"
	"time"

	"github.com/barangay-nit/eservices/internal/schedule"
)

// Repository contains all store interactions needed by the service.
type Repository interface {
	// Create inserts a pending appointment. It must fail with
	// domain.ErrSlotUnavailable when another active appointment already holds
	// the same (date, service, time), checked atomically with the insert.
	Create(ctx context.Context, a *Appointment) (*Appointment, error)

	GetByID(ctx context.Context, id int64) (*Appointment, error)
	GetByTrackingID(ctx context.Context, trackingID string) (*Appointment, error)

	// For slot computation
	ActiveSlotTimes(ctx context.Context, date time.Time, service string) ([]schedule.TimeOfDay, error)

	// Conditional update, see certificate.Repository.Transition.
	Transition(ctx context.Context, t Transition) (*Appointment, error)

	// Lapse sweep: pending appointments whose slot started before now.
	FindLapsedPending(ctx context.Context, now time.Time) ([]Appointment, error)

	// Admin views
	List(ctx context.Context, f ListFilter) ([]Appointment, int, error)
	Counts(ctx context.Context, today time.Time) (Counts, error)
}
