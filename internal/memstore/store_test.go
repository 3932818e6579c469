package memstore

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/barangay-nit/eservices/internal/appointment"
	"github.com/barangay-nit/eservices/internal/domain"
	"github.com/barangay-nit/eservices/internal/schedule"
	"github.com/barangay-nit/eservices/internal/tracking"
)

func TestNextSequenceIsPerKindAndDay(t *testing.T) {
	s := New()
	ctx := context.Background()
	mon := time.Date(2025, 3, 3, 0, 0, 0, 0, time.UTC)
	tue := mon.AddDate(0, 0, 1)

	var wg sync.WaitGroup
	seen := make(chan int, 50)
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			n, _ := s.NextSequence(ctx, tracking.KindCertificate, mon)
			seen <- n
		}()
	}
	wg.Wait()
	close(seen)

	uniq := make(map[int]bool)
	for n := range seen {
		if uniq[n] {
			t.Fatalf("sequence %d issued twice", n)
		}
		uniq[n] = true
	}
	if len(uniq) != 50 || !uniq[1] || !uniq[50] {
		t.Fatalf("sequences = %v", uniq)
	}

	if n, _ := s.NextSequence(ctx, tracking.KindAppointment, mon); n != 1 {
		t.Fatalf("appt seq = %d", n)
	}
	if n, _ := s.NextSequence(ctx, tracking.KindCertificate, tue); n != 1 {
		t.Fatalf("next day seq = %d", n)
	}
}

func TestAppointmentActiveSlotUniqueness(t *testing.T) {
	s := New()
	repo := s.Appointments()
	ctx := context.Background()
	day := time.Date(2025, 3, 4, 0, 0, 0, 0, time.UTC)

	book := func(id string) (*appointment.Appointment, error) {
		return repo.Create(ctx, &appointment.Appointment{
			TrackingID:  id,
			ServiceType: "Other",
			Date:        day,
			Time:        schedule.NewTimeOfDay(9, 0),
			CreatedAt:   day,
		})
	}

	first, err := book("APPT-20250303-0001")
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	if _, err := book("APPT-20250303-0002"); !errors.Is(err, domain.ErrSlotUnavailable) {
		t.Fatalf("second booking err = %v", err)
	}
	if _, err := book("APPT-20250303-0001"); !errors.Is(err, domain.ErrGenerationExhausted) {
		t.Fatalf("duplicate tracking id err = %v", err)
	}

	taken, _ := repo.ActiveSlotTimes(ctx, day, "Other")
	if len(taken) != 1 || taken[0] != schedule.NewTimeOfDay(9, 0) {
		t.Fatalf("taken = %v", taken)
	}

	_, err = repo.Transition(ctx, appointment.Transition{
		ID: first.ID, Action: "cancel", From: appointment.StatusPending, To: appointment.StatusCancelled, At: day,
	})
	if err != nil {
		t.Fatalf("cancel: %v", err)
	}

	if taken, _ := repo.ActiveSlotTimes(ctx, day, "Other"); len(taken) != 0 {
		t.Fatalf("cancelled slot still taken: %v", taken)
	}
	if _, err := book("APPT-20250303-0003"); err != nil {
		t.Fatalf("rebook: %v", err)
	}
}

func TestReturnedRecordsAreCopies(t *testing.T) {
	s := New()
	ctx := context.Background()
	day := time.Date(2025, 3, 4, 0, 0, 0, 0, time.UTC)

	a, _ := s.Appointments().Create(ctx, &appointment.Appointment{TrackingID: "APPT-20250303-0001", ServiceType: "Other", Date: day})
	a.Status = appointment.StatusNoShow

	got, _ := s.Appointments().GetByID(ctx, a.ID)
	if got.Status != appointment.StatusPending {
		t.Fatalf("store mutated through returned pointer: %s", got.Status)
	}
}

func TestPage(t *testing.T) {
	items := []int{1, 2, 3, 4, 5}
	if got := page(items, 2, 1); len(got) != 2 || got[0] != 2 {
		t.Fatalf("page = %v", got)
	}
	if got := page(items, 2, 9); len(got) != 0 {
		t.Fatalf("past end = %v", got)
	}
	if got := page(items, 0, 3); len(got) != 2 {
		t.Fatalf("no limit = %v", got)
	}
}
