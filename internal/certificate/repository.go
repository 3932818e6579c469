package certificate

import (
	"context"
)

// Repository is the certificate request store. Transition must be a single
// atomic conditional update: it returns domain.ErrNotFound for a missing id
// and a *domain.TransitionError when the record is no longer in t.From.
type Repository interface {
	Create(ctx context.Context, r *Request) (*Request, error)
	GetByID(ctx context.Context, id int64) (*Request, error)
	GetByTrackingID(ctx context.Context, trackingID string) (*Request, error)
	Transition(ctx context.Context, t Transition) (*Request, error)

	// Admin views
	List(ctx context.Context, f ListFilter) ([]Request, int, error)
	Counts(ctx context.Context) (Counts, error)
}
