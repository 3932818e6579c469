package appointment

import (
	"context"
	"errors"
	"fmt"
	"log"
	"strings"

	"github.com/go-playground/validator/v10"

	"github.com/barangay-nit/eservices/internal/domain"
	"github.com/barangay-nit/eservices/internal/notify"
	redisclient "github.com/barangay-nit/eservices/internal/redis"
	"github.com/barangay-nit/eservices/internal/schedule"
	"github.com/barangay-nit/eservices/internal/tracking"
)

const (
	ActorSystem          = "system"
	lapsedRemarks        = "Lapsed without confirmation"
	defaultCancelRemarks = "Cancelled by barangay staff"
	confirmedRemarks     = "Appointment confirmed"
)

// BookInput is what a resident sends from the public booking form.
type BookInput struct {
	Name          string `json:"name" validate:"required,max=120"`
	Email         string `json:"email" validate:"required,email,max=254"`
	Phone         string `json:"phone" validate:"required,min=7,max=20"`
	ServiceType   string `json:"serviceType" validate:"required"`
	Date          string `json:"date" validate:"required,datetime=2006-01-02"`
	Time          string `json:"time" validate:"required"`
	HealthConcern string `json:"healthConcern" validate:"max=1000"`
}

type Service struct {
	repo     Repository
	slots    *schedule.Calculator
	ids      *tracking.Generator
	locker   redisclient.Locker
	validate *validator.Validate
	notifier notify.Notifier
}

func NewService(repo Repository, slots *schedule.Calculator, ids *tracking.Generator, locker redisclient.Locker) *Service {
	return &Service{
		repo:     repo,
		slots:    slots,
		ids:      ids,
		locker:   locker,
		validate: domain.NewValidator(),
		notifier: notify.LogNotifier{},
	}
}

// SetNotifier replaces the default log-only notifier.
func (s *Service) SetNotifier(n notify.Notifier) {
	s.notifier = n
}

// Book reserves a slot for a resident. Availability is recomputed from the
// store inside the slot lock; the store's active-slot uniqueness decides any
// race that gets past the lock.
func (s *Service) Book(ctx context.Context, in BookInput) (*Appointment, error) {
	in = trimInput(in)
	if err := s.validate.Struct(in); err != nil {
		return nil, domain.FromValidator(err)
	}

	svc, ok := s.slots.Catalog().Lookup(in.ServiceType)
	if !ok {
		return nil, domain.NewValidationError("serviceType", "unknown service")
	}

	date, err := schedule.ParseDate(in.Date, s.slots.Location())
	if err != nil {
		return nil, domain.NewValidationError("date", "datetime=2006-01-02")
	}
	if date, err = s.slots.CheckDate(date); err != nil {
		return nil, domain.NewValidationError("date", "outside booking window")
	}

	at, err := schedule.ParseTimeOfDay(in.Time)
	if err != nil {
		return nil, domain.NewValidationError("time", "expected HH:MM")
	}
	if !svc.HasSlot(date.Weekday(), at) {
		return nil, domain.NewValidationError("time", "not a bookable slot for this service and day")
	}
	if !at.On(date).After(s.slots.Now()) {
		return nil, domain.NewValidationError("time", "slot has already started")
	}

	var created *Appointment

	slotKey := fmt.Sprintf("%s:%s:%s", date.Format(schedule.DateLayout), svc.Name, at)
	err = s.locker.WithSlotLock(ctx, slotKey, func(lockCtx context.Context) error {
		free, err := s.slots.FreeSlots(lockCtx, date, svc.Name)
		if err != nil {
			return fmt.Errorf("recheck availability: %w", err)
		}
		if !containsSlot(free, at) {
			return domain.ErrSlotUnavailable
		}

		trackingID, err := s.ids.Generate(lockCtx, tracking.KindAppointment, s.slots.Now())
		if err != nil {
			return fmt.Errorf("issue tracking id: %w", err)
		}

		now := s.slots.Now()
		appt, err := s.repo.Create(lockCtx, &Appointment{
			TrackingID:    trackingID,
			Name:          in.Name,
			Email:         in.Email,
			Phone:         in.Phone,
			ServiceType:   svc.Name,
			Date:          date,
			Time:          at,
			HealthConcern: in.HealthConcern,
			Status:        StatusPending,
			CreatedAt:     now,
			UpdatedAt:     now,
		})
		if err != nil {
			return err
		}

		created = appt
		return nil
	})

	if err != nil {
		if errors.Is(err, redisclient.ErrLockNotAcquired) {
			return nil, fmt.Errorf("slot %s is being booked: %w", slotKey, domain.ErrSlotUnavailable)
		}
		if errors.Is(err, domain.ErrSlotUnavailable) {
			return nil, err
		}
		return nil, fmt.Errorf("book appointment: %w", err)
	}

	s.slots.Invalidate(ctx, created.Date, created.ServiceType)
	log.Printf("appointment booked tracking_id=%s service=%q date=%s time=%s",
		created.TrackingID, created.ServiceType, created.Date.Format(schedule.DateLayout), created.Time)
	notify.Send(ctx, s.notifier, notice(notify.AppointmentReceived, created))

	return created, nil
}

// Confirm moves a pending appointment to confirmed. The slot must not have
// started yet.
func (s *Service) Confirm(ctx context.Context, id int64, actor string) (*Appointment, error) {
	appt, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("load appointment: %w", err)
	}

	if appt.Status == StatusPending && !appt.StartsAt().After(s.slots.Now()) {
		return nil, &domain.TransitionError{
			Entity: "appointment",
			From:   string(appt.Status),
			Action: "confirm",
			Reason: "the appointment time has already passed",
		}
	}

	updated, err := s.transition(ctx, Transition{
		ID:      id,
		Action:  "confirm",
		From:    StatusPending,
		To:      StatusConfirmed,
		Remarks: confirmedRemarks,
		Actor:   actor,
	})
	if err != nil {
		return nil, err
	}

	notify.Send(ctx, s.notifier, notice(notify.AppointmentConfirmed, updated))
	return updated, nil
}

// Cancel releases a pending appointment's slot.
func (s *Service) Cancel(ctx context.Context, id int64, reason, actor string) (*Appointment, error) {
	reason = strings.TrimSpace(reason)
	if reason == "" {
		reason = defaultCancelRemarks
	}

	return s.transition(ctx, Transition{
		ID:      id,
		Action:  "cancel",
		From:    StatusPending,
		To:      StatusCancelled,
		Remarks: reason,
		Actor:   actor,
	})
}

// MarkNoShow closes a confirmed appointment whose slot has passed without the
// resident turning up.
func (s *Service) MarkNoShow(ctx context.Context, id int64, actor string) (*Appointment, error) {
	appt, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("load appointment: %w", err)
	}

	if appt.Status == StatusConfirmed && appt.StartsAt().After(s.slots.Now()) {
		return nil, &domain.TransitionError{
			Entity: "appointment",
			From:   string(appt.Status),
			Action: "mark no-show",
			Reason: "the appointment has not started yet",
		}
	}

	return s.transition(ctx, Transition{
		ID:      id,
		Action:  "mark no-show",
		From:    StatusConfirmed,
		To:      StatusNoShow,
		Remarks: "Resident did not arrive",
		Actor:   actor,
	})
}

func (s *Service) transition(ctx context.Context, t Transition) (*Appointment, error) {
	t.At = s.slots.Now()

	updated, err := s.repo.Transition(ctx, t)
	if err != nil {
		return nil, fmt.Errorf("%s appointment %d: %w", t.Action, t.ID, err)
	}

	s.slots.Invalidate(ctx, updated.Date, updated.ServiceType)
	log.Printf("appointment %s tracking_id=%s actor=%s", t.To, updated.TrackingID, t.Actor)

	return updated, nil
}

// LapsePending cancels pending appointments whose slot has already started.
// It is intended to be called by the lapse worker periodically.
func (s *Service) LapsePending(ctx context.Context) (int, error) {
	candidates, err := s.repo.FindLapsedPending(ctx, s.slots.Now())
	if err != nil {
		return 0, fmt.Errorf("find lapsed pending appointments: %w", err)
	}

	lapsed := 0
	for _, appt := range candidates {
		_, err := s.transition(ctx, Transition{
			ID:      appt.ID,
			Action:  "lapse",
			From:    StatusPending,
			To:      StatusCancelled,
			Remarks: lapsedRemarks,
			Actor:   ActorSystem,
		})
		if err != nil {
			// Confirmed or cancelled by staff since the query ran.
			if errors.Is(err, domain.ErrInvalidTransition) {
				continue
			}
			log.Printf("failed to lapse appointment %s: %v", appt.TrackingID, err)
			continue
		}
		lapsed++
	}

	return lapsed, nil
}

func (s *Service) Get(ctx context.Context, id int64) (*Appointment, error) {
	return s.repo.GetByID(ctx, id)
}

func (s *Service) GetByTrackingID(ctx context.Context, trackingID string) (*Appointment, error) {
	return s.repo.GetByTrackingID(ctx, trackingID)
}

// List retrieves appointments for the admin dashboard
func (s *Service) List(ctx context.Context, f ListFilter) ([]Appointment, int, error) {
	if f.Limit <= 0 {
		f.Limit = 20 // default
	}
	if f.Limit > 100 {
		f.Limit = 100 // max
	}
	if f.Offset < 0 {
		f.Offset = 0
	}

	items, total, err := s.repo.List(ctx, f)
	if err != nil {
		return nil, 0, fmt.Errorf("list appointments: %w", err)
	}
	return items, total, nil
}

func (s *Service) Counts(ctx context.Context) (Counts, error) {
	c, err := s.repo.Counts(ctx, s.slots.Today())
	if err != nil {
		return Counts{}, fmt.Errorf("count appointments: %w", err)
	}
	return c, nil
}

func notice(ev notify.Event, a *Appointment) notify.Notice {
	return notify.Notice{
		Event:      ev,
		Email:      a.Email,
		Name:       a.Name,
		TrackingID: a.TrackingID,
		Item:       a.ServiceType,
		Date:       a.Date,
		Time:       a.Time.String(),
	}
}

func containsSlot(slots []schedule.TimeOfDay, t schedule.TimeOfDay) bool {
	for _, s := range slots {
		if s == t {
			return true
		}
	}
	return false
}

func trimInput(in BookInput) BookInput {
	in.Name = strings.TrimSpace(in.Name)
	in.Email = strings.TrimSpace(in.Email)
	in.Phone = strings.TrimSpace(in.Phone)
	in.ServiceType = strings.TrimSpace(in.ServiceType)
	in.Date = strings.TrimSpace(in.Date)
	in.Time = strings.TrimSpace(in.Time)
	in.HealthConcern = strings.TrimSpace(in.HealthConcern)
	return in
}
