// Package admin is the only way staff drive status transitions. Every
// operation checks the caller's session before touching the store.
package admin

import (
	"context"
	"time"

	"github.com/barangay-nit/eservices/internal/appointment"
	"github.com/barangay-nit/eservices/internal/auth"
	"github.com/barangay-nit/eservices/internal/certificate"
	"github.com/barangay-nit/eservices/internal/domain"
)

type Gateway struct {
	certs *certificate.Service
	appts *appointment.Service
	now   func() time.Time
}

func NewGateway(certs *certificate.Service, appts *appointment.Service) *Gateway {
	return &Gateway{certs: certs, appts: appts, now: time.Now}
}

// SetClock replaces the clock used for session expiry checks.
func (g *Gateway) SetClock(now func() time.Time) { g.now = now }

func (g *Gateway) authorize(sess auth.Session) error {
	if !sess.Valid(g.now()) {
		return domain.ErrUnauthorized
	}
	return nil
}

func (g *Gateway) ApproveCertificate(ctx context.Context, sess auth.Session, id int64, remarks string) (*certificate.Request, error) {
	if err := g.authorize(sess); err != nil {
		return nil, err
	}
	return g.certs.Approve(ctx, id, remarks, sess.Username)
}

func (g *Gateway) RejectCertificate(ctx context.Context, sess auth.Session, id int64, reason string) (*certificate.Request, error) {
	if err := g.authorize(sess); err != nil {
		return nil, err
	}
	return g.certs.Reject(ctx, id, reason, sess.Username)
}

func (g *Gateway) ConfirmAppointment(ctx context.Context, sess auth.Session, id int64) (*appointment.Appointment, error) {
	if err := g.authorize(sess); err != nil {
		return nil, err
	}
	return g.appts.Confirm(ctx, id, sess.Username)
}

func (g *Gateway) CancelAppointment(ctx context.Context, sess auth.Session, id int64, reason string) (*appointment.Appointment, error) {
	if err := g.authorize(sess); err != nil {
		return nil, err
	}
	return g.appts.Cancel(ctx, id, reason, sess.Username)
}

func (g *Gateway) MarkNoShow(ctx context.Context, sess auth.Session, id int64) (*appointment.Appointment, error) {
	if err := g.authorize(sess); err != nil {
		return nil, err
	}
	return g.appts.MarkNoShow(ctx, id, sess.Username)
}

func (g *Gateway) GetCertificate(ctx context.Context, sess auth.Session, id int64) (*certificate.Request, error) {
	if err := g.authorize(sess); err != nil {
		return nil, err
	}
	return g.certs.Get(ctx, id)
}

func (g *Gateway) GetAppointment(ctx context.Context, sess auth.Session, id int64) (*appointment.Appointment, error) {
	if err := g.authorize(sess); err != nil {
		return nil, err
	}
	return g.appts.Get(ctx, id)
}

func (g *Gateway) ListCertificates(ctx context.Context, sess auth.Session, f certificate.ListFilter) ([]certificate.Request, int, error) {
	if err := g.authorize(sess); err != nil {
		return nil, 0, err
	}
	return g.certs.List(ctx, f)
}

func (g *Gateway) ListAppointments(ctx context.Context, sess auth.Session, f appointment.ListFilter) ([]appointment.Appointment, int, error) {
	if err := g.authorize(sess); err != nil {
		return nil, 0, err
	}
	return g.appts.List(ctx, f)
}

// Stats are exact counts taken from the store at the time of the call.
type Stats struct {
	Certificates certificate.Counts `json:"certificates"`
	Appointments appointment.Counts `json:"appointments"`
	AsOf         time.Time          `json:"asOf"`
}

func (g *Gateway) Stats(ctx context.Context, sess auth.Session) (Stats, error) {
	if err := g.authorize(sess); err != nil {
		return Stats{}, err
	}

	asOf := g.now()
	certs, err := g.certs.Counts(ctx)
	if err != nil {
		return Stats{}, err
	}
	appts, err := g.appts.Counts(ctx)
	if err != nil {
		return Stats{}, err
	}

	return Stats{Certificates: certs, Appointments: appts, AsOf: asOf}, nil
}
