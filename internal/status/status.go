// Package status answers anonymous "where is my request" queries by
// tracking ID.
package status

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/barangay-nit/eservices/internal/appointment"
	"github.com/barangay-nit/eservices/internal/certificate"
	"github.com/barangay-nit/eservices/internal/domain"
	"github.com/barangay-nit/eservices/internal/schedule"
	"github.com/barangay-nit/eservices/internal/tracking"
)

type CertificateReader interface {
	GetByTrackingID(ctx context.Context, trackingID string) (*certificate.Request, error)
}

type AppointmentReader interface {
	GetByTrackingID(ctx context.Context, trackingID string) (*appointment.Appointment, error)
}

// CertificateView is what an unauthenticated caller may see about a request.
type CertificateView struct {
	TrackingID    string  `json:"trackingId"`
	Type          string  `json:"type"`
	Name          string  `json:"name"`
	Status        string  `json:"status"`
	DateSubmitted string  `json:"dateSubmitted"`
	DateProcessed *string `json:"dateProcessed"`
	Remarks       string  `json:"remarks"`
}

type AppointmentView struct {
	TrackingID    string `json:"trackingId"`
	Service       string `json:"service"`
	Name          string `json:"name"`
	Date          string `json:"date"`
	Time          string `json:"time"`
	Status        string `json:"status"`
	DateSubmitted string `json:"dateSubmitted"`
	Remarks       string `json:"remarks"`
}

// View holds exactly one of Certificate or Appointment.
type View struct {
	Kind        tracking.Kind    `json:"kind"`
	Certificate *CertificateView `json:"certificate,omitempty"`
	Appointment *AppointmentView `json:"appointment,omitempty"`
}

type Service struct {
	certs CertificateReader
	appts AppointmentReader
	loc   *time.Location
}

func NewService(certs CertificateReader, appts AppointmentReader, loc *time.Location) *Service {
	return &Service{certs: certs, appts: appts, loc: loc}
}

// Lookup matches trackingID exactly. Every kind of miss, including a bad
// kind or a malformed ID, yields the same domain.ErrNotFound.
func (s *Service) Lookup(ctx context.Context, kind tracking.Kind, trackingID string) (View, error) {
	switch kind {
	case tracking.KindCertificate:
		req, err := s.certs.GetByTrackingID(ctx, trackingID)
		if err != nil {
			return View{}, miss(err)
		}
		return View{Kind: kind, Certificate: s.certificateView(req)}, nil

	case tracking.KindAppointment:
		appt, err := s.appts.GetByTrackingID(ctx, trackingID)
		if err != nil {
			return View{}, miss(err)
		}
		return View{Kind: kind, Appointment: s.appointmentView(appt)}, nil
	}

	return View{}, domain.ErrNotFound
}

func miss(err error) error {
	if errors.Is(err, domain.ErrNotFound) {
		return domain.ErrNotFound
	}
	return fmt.Errorf("lookup: %w", err)
}

func (s *Service) certificateView(r *certificate.Request) *CertificateView {
	v := &CertificateView{
		TrackingID:    r.TrackingID,
		Type:          r.CertificateType,
		Name:          r.Name,
		Status:        string(r.Status),
		DateSubmitted: r.CreatedAt.In(s.loc).Format(schedule.DateLayout),
		Remarks:       r.Remarks,
	}
	if r.ProcessedAt != nil {
		d := r.ProcessedAt.In(s.loc).Format(schedule.DateLayout)
		v.DateProcessed = &d
	}
	if r.Status == certificate.StatusPending {
		v.Remarks = "Under review"
	}
	return v
}

func (s *Service) appointmentView(a *appointment.Appointment) *AppointmentView {
	v := &AppointmentView{
		TrackingID:    a.TrackingID,
		Service:       a.ServiceType,
		Name:          a.Name,
		Date:          a.Date.Format(schedule.DateLayout),
		Time:          a.Time.String(),
		Status:        string(a.Status),
		DateSubmitted: a.CreatedAt.In(s.loc).Format(schedule.DateLayout),
		Remarks:       a.Remarks,
	}
	if a.Status == appointment.StatusPending {
		v.Remarks = "Awaiting confirmation"
	}
	return v
}
