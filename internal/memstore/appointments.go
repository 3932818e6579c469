package memstore

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/barangay-nit/eservices/internal/appointment"
	"github.com/barangay-nit/eservices/internal/domain"
	"github.com/barangay-nit/eservices/internal/schedule"
)

type AppointmentRepo struct {
	s *Store
}

func copyAppointment(a *appointment.Appointment) *appointment.Appointment {
	c := *a
	return &c
}

func sameDay(a, b time.Time) bool {
	ay, am, ad := a.Date()
	by, bm, bd := b.Date()
	return ay == by && am == bm && ad == bd
}

func (r *AppointmentRepo) Create(_ context.Context, a *appointment.Appointment) (*appointment.Appointment, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	for _, existing := range r.s.appts {
		if existing.TrackingID == a.TrackingID {
			return nil, domain.ErrGenerationExhausted
		}
		if existing.Status.Active() &&
			sameDay(existing.Date, a.Date) &&
			existing.ServiceType == a.ServiceType &&
			existing.Time == a.Time {
			return nil, domain.ErrSlotUnavailable
		}
	}

	r.s.apptSeq++
	c := copyAppointment(a)
	c.ID = r.s.apptSeq
	c.Status = appointment.StatusPending
	c.UpdatedAt = c.CreatedAt
	r.s.appts[c.ID] = c

	r.s.appendEvent(domain.Event{
		Type:       appointment.EventAppointmentBooked,
		Entity:     "appointment",
		RecordID:   c.ID,
		TrackingID: c.TrackingID,
		CreatedAt:  c.CreatedAt,
	})
	return copyAppointment(c), nil
}

func (r *AppointmentRepo) GetByID(_ context.Context, id int64) (*appointment.Appointment, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	a, ok := r.s.appts[id]
	if !ok {
		return nil, domain.ErrNotFound
	}
	return copyAppointment(a), nil
}

func (r *AppointmentRepo) GetByTrackingID(_ context.Context, trackingID string) (*appointment.Appointment, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	for _, a := range r.s.appts {
		if a.TrackingID == trackingID {
			return copyAppointment(a), nil
		}
	}
	return nil, domain.ErrNotFound
}

func (r *AppointmentRepo) ActiveSlotTimes(_ context.Context, date time.Time, service string) ([]schedule.TimeOfDay, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	var out []schedule.TimeOfDay
	for _, a := range r.s.appts {
		if a.Status.Active() && a.ServiceType == service && sameDay(a.Date, date) {
			out = append(out, a.Time)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out, nil
}

func (r *AppointmentRepo) Transition(_ context.Context, t appointment.Transition) (*appointment.Appointment, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	a, ok := r.s.appts[t.ID]
	if !ok {
		return nil, domain.ErrNotFound
	}
	if a.Status != t.From {
		return nil, &domain.TransitionError{Entity: "appointment", From: string(a.Status), Action: t.Action}
	}

	at := t.At
	actor := t.Actor
	var evType string
	switch t.To {
	case appointment.StatusConfirmed:
		a.ConfirmedAt = &at
		evType = appointment.EventAppointmentConfirmed
	case appointment.StatusCancelled:
		a.CancelledAt = &at
		evType = appointment.EventAppointmentCancelled
	case appointment.StatusNoShow:
		a.NoShowAt = &at
		evType = appointment.EventAppointmentNoShow
	default:
		return nil, fmt.Errorf("no transition into %q", t.To)
	}

	a.Status = t.To
	a.Remarks = t.Remarks
	a.ProcessedBy = &actor
	a.UpdatedAt = at

	r.s.appendEvent(domain.Event{
		Type:       evType,
		Entity:     "appointment",
		RecordID:   a.ID,
		TrackingID: a.TrackingID,
		Actor:      t.Actor,
		CreatedAt:  at,
	})
	return copyAppointment(a), nil
}

func (r *AppointmentRepo) FindLapsedPending(_ context.Context, now time.Time) ([]appointment.Appointment, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	var out []appointment.Appointment
	for _, a := range r.s.appts {
		if a.Status == appointment.StatusPending && !a.StartsAt().After(now) {
			out = append(out, *a)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].StartsAt().Before(out[j].StartsAt()) })
	return out, nil
}

func (r *AppointmentRepo) List(_ context.Context, f appointment.ListFilter) ([]appointment.Appointment, int, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	var all []appointment.Appointment
	for _, a := range r.s.appts {
		if f.Status != nil && a.Status != *f.Status {
			continue
		}
		if f.Date != nil && !sameDay(a.Date, *f.Date) {
			continue
		}
		all = append(all, *a)
	}
	sort.Slice(all, func(i, j int) bool {
		if !all[i].StartsAt().Equal(all[j].StartsAt()) {
			return all[i].StartsAt().After(all[j].StartsAt())
		}
		return all[i].ID > all[j].ID
	})

	return page(all, f.Limit, f.Offset), len(all), nil
}

func (r *AppointmentRepo) Counts(_ context.Context, today time.Time) (appointment.Counts, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	var c appointment.Counts
	for _, a := range r.s.appts {
		c.Total++
		switch a.Status {
		case appointment.StatusPending:
			c.Pending++
		case appointment.StatusConfirmed:
			c.Confirmed++
		case appointment.StatusCancelled:
			c.Cancelled++
		case appointment.StatusNoShow:
			c.NoShow++
		}
		if sameDay(a.Date, today) {
			c.Today++
		}
	}
	return c, nil
}

var _ appointment.Repository = (*AppointmentRepo)(nil)
