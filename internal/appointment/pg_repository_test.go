package appointment_test

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/barangay-nit/eservices/internal/appointment"
	"github.com/barangay-nit/eservices/internal/db/dbtest"
	"github.com/barangay-nit/eservices/internal/domain"
	"github.com/barangay-nit/eservices/internal/schedule"
)

func pgAppointment(trackingID string, day time.Time, at schedule.TimeOfDay) *appointment.Appointment {
	return &appointment.Appointment{
		TrackingID:  trackingID,
		Name:        "Pedro Penduko",
		Email:       "pedro@example.com",
		Phone:       "09190001111",
		ServiceType: "Other",
		Date:        day,
		Time:        at,
		CreatedAt:   time.Date(2025, 3, 3, 8, 0, 0, 0, loc),
	}
}

func TestPgRepositoryActiveSlotIndex(t *testing.T) {
	repo := appointment.NewPgRepository(dbtest.Pool(t), loc)
	ctx := context.Background()
	day := time.Date(2025, 3, 4, 0, 0, 0, 0, loc)
	nine := schedule.NewTimeOfDay(9, 0)

	first, err := repo.Create(ctx, pgAppointment("APPT-20250303-0001", day, nine))
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	if first.Time != nine || first.Date.Format(schedule.DateLayout) != "2025-03-04" || first.Status != appointment.StatusPending {
		t.Fatalf("created = %+v", first)
	}

	if _, err := repo.Create(ctx, pgAppointment("APPT-20250303-0002", day, nine)); !errors.Is(err, domain.ErrSlotUnavailable) {
		t.Fatalf("same slot err = %v", err)
	}
	if _, err := repo.Create(ctx, pgAppointment("APPT-20250303-0001", day, schedule.NewTimeOfDay(9, 30))); !errors.Is(err, domain.ErrGenerationExhausted) {
		t.Fatalf("duplicate tracking id err = %v", err)
	}

	held, err := repo.ActiveSlotTimes(ctx, day, "Other")
	if err != nil || len(held) != 1 || held[0] != nine {
		t.Fatalf("held = %v, %v", held, err)
	}

	cancelled, err := repo.Transition(ctx, appointment.Transition{
		ID: first.ID, Action: "cancel", From: appointment.StatusPending, To: appointment.StatusCancelled,
		Remarks: "Cancelled by barangay staff", Actor: "clerk", At: time.Date(2025, 3, 3, 9, 0, 0, 0, loc),
	})
	if err != nil {
		t.Fatalf("cancel: %v", err)
	}
	if cancelled.CancelledAt == nil || cancelled.ConfirmedAt != nil {
		t.Fatalf("cancelled = %+v", cancelled)
	}

	if held, _ := repo.ActiveSlotTimes(ctx, day, "Other"); len(held) != 0 {
		t.Fatalf("cancelled slot still held: %v", held)
	}
	if _, err := repo.Create(ctx, pgAppointment("APPT-20250303-0003", day, nine)); err != nil {
		t.Fatalf("rebook released slot: %v", err)
	}
}

func TestPgRepositoryConditionalTransition(t *testing.T) {
	repo := appointment.NewPgRepository(dbtest.Pool(t), loc)
	ctx := context.Background()
	day := time.Date(2025, 3, 4, 0, 0, 0, 0, loc)
	at := time.Date(2025, 3, 3, 9, 0, 0, 0, loc)

	appt, err := repo.Create(ctx, pgAppointment("APPT-20250303-0001", day, schedule.NewTimeOfDay(10, 0)))
	if err != nil {
		t.Fatalf("create: %v", err)
	}

	targets := []appointment.Status{appointment.StatusConfirmed, appointment.StatusCancelled, appointment.StatusConfirmed}
	errs := make([]error, len(targets))
	var wg sync.WaitGroup
	for i, to := range targets {
		wg.Add(1)
		go func(i int, to appointment.Status) {
			defer wg.Done()
			_, errs[i] = repo.Transition(ctx, appointment.Transition{
				ID: appt.ID, Action: "decide", From: appointment.StatusPending, To: to, Actor: "clerk", At: at,
			})
		}(i, to)
	}
	wg.Wait()

	wins := 0
	for _, err := range errs {
		switch {
		case err == nil:
			wins++
		case !errors.Is(err, domain.ErrInvalidTransition):
			t.Fatalf("unexpected err: %v", err)
		}
	}
	if wins != 1 {
		t.Fatalf("wins = %d, errs = %v", wins, errs)
	}

	if _, err := repo.Transition(ctx, appointment.Transition{
		ID: appt.ID + 1000, Action: "confirm", From: appointment.StatusPending, To: appointment.StatusConfirmed, At: at,
	}); !errors.Is(err, domain.ErrNotFound) {
		t.Fatalf("missing id err = %v", err)
	}
}

func TestPgRepositoryFindLapsedPending(t *testing.T) {
	repo := appointment.NewPgRepository(dbtest.Pool(t), loc)
	ctx := context.Background()
	day := time.Date(2025, 3, 4, 0, 0, 0, 0, loc)

	for i, slot := range []schedule.TimeOfDay{schedule.NewTimeOfDay(9, 0), schedule.NewTimeOfDay(10, 0), schedule.NewTimeOfDay(11, 0)} {
		if _, err := repo.Create(ctx, pgAppointment(fmt.Sprintf("APPT-20250303-%04d", i+1), day, slot)); err != nil {
			t.Fatalf("create: %v", err)
		}
	}

	lapsed, err := repo.FindLapsedPending(ctx, time.Date(2025, 3, 4, 10, 0, 0, 0, loc))
	if err != nil {
		t.Fatalf("find lapsed: %v", err)
	}
	if len(lapsed) != 2 || lapsed[0].Time != schedule.NewTimeOfDay(9, 0) || lapsed[1].Time != schedule.NewTimeOfDay(10, 0) {
		t.Fatalf("lapsed = %+v", lapsed)
	}
}
