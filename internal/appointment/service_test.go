package appointment_test

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/barangay-nit/eservices/internal/appointment"
	"github.com/barangay-nit/eservices/internal/domain"
	"github.com/barangay-nit/eservices/internal/memstore"
	"github.com/barangay-nit/eservices/internal/notify"
	redisclient "github.com/barangay-nit/eservices/internal/redis"
	"github.com/barangay-nit/eservices/internal/schedule"
	"github.com/barangay-nit/eservices/internal/tracking"
)

type clock struct {
	mu  sync.Mutex
	now time.Time
}

func (c *clock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *clock) Set(t time.Time) {
	c.mu.Lock()
	c.now = t
	c.mu.Unlock()
}

var loc = time.FixedZone("PST", 8*3600)

// Monday 2025-03-03 08:00.
func newService(t *testing.T) (*appointment.Service, *memstore.Store, *clock) {
	t.Helper()
	clk := &clock{now: time.Date(2025, 3, 3, 8, 0, 0, 0, loc)}
	store := memstore.New()
	calc := schedule.NewCalculator(schedule.DefaultCatalog(), store.Appointments(), loc, schedule.WithClock(clk.Now))
	svc := appointment.NewService(store.Appointments(), calc, tracking.NewGenerator(store), redisclient.NewLocalLocker())
	return svc, store, clk
}

func input(service, date, at string) appointment.BookInput {
	return appointment.BookInput{
		Name:        "Pedro Penduko",
		Email:       "pedro@example.com",
		Phone:       "09190001111",
		ServiceType: service,
		Date:        date,
		Time:        at,
	}
}

func TestBookCanonicalizesService(t *testing.T) {
	svc, store, _ := newService(t)

	appt, err := svc.Book(context.Background(), input("Health Center Services", "2025-03-04", "10:30"))
	if err != nil {
		t.Fatalf("book: %v", err)
	}
	if appt.ServiceType != "General Checkup" {
		t.Fatalf("service = %s", appt.ServiceType)
	}
	if appt.TrackingID != "APPT-20250303-0001" || appt.Status != appointment.StatusPending {
		t.Fatalf("appt = %+v", appt)
	}
	if appt.Time != schedule.NewTimeOfDay(10, 30) {
		t.Fatalf("time = %s", appt.Time)
	}

	if ev := store.Events(); len(ev) != 1 || ev[0].Type != appointment.EventAppointmentBooked {
		t.Fatalf("events = %+v", ev)
	}
}

func TestBookRejectsBadInput(t *testing.T) {
	svc, _, _ := newService(t)
	ctx := context.Background()

	cases := []struct {
		name  string
		in    appointment.BookInput
		field string
	}{
		{"unknown service", input("Acupuncture", "2025-03-04", "09:00"), "serviceType"},
		{"past date", input("Other", "2025-03-01", "09:00"), "date"},
		{"beyond window", input("Other", "2025-04-30", "09:00"), "date"},
		{"off grid", input("Other", "2025-03-04", "09:15"), "time"},
		{"closed day", input("Dental Service", "2025-03-05", "09:00"), "time"},
		{"bad time", input("Other", "2025-03-04", "9am"), "time"},
		{"missing email", func() appointment.BookInput { in := input("Other", "2025-03-04", "09:00"); in.Email = ""; return in }(), "email"},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := svc.Book(ctx, tc.in)
			var ve *domain.ValidationError
			if !errors.As(err, &ve) {
				t.Fatalf("err = %v", err)
			}
			if _, ok := ve.Fields[tc.field]; !ok {
				t.Fatalf("fields = %v", ve.Fields)
			}
		})
	}
}

func TestBookTakenSlot(t *testing.T) {
	svc, _, _ := newService(t)
	ctx := context.Background()

	if _, err := svc.Book(ctx, input("Vaccination", "2025-03-04", "13:00")); err != nil {
		t.Fatalf("book: %v", err)
	}
	_, err := svc.Book(ctx, input("Vaccination Services", "2025-03-04", "13:00"))
	if !errors.Is(err, domain.ErrSlotUnavailable) {
		t.Fatalf("err = %v", err)
	}

	// Another service at the same time is independent.
	if _, err := svc.Book(ctx, input("Other", "2025-03-04", "13:00")); err != nil {
		t.Fatalf("other service: %v", err)
	}
}

func TestConcurrentBookingSameSlot(t *testing.T) {
	svc, _, _ := newService(t)
	ctx := context.Background()

	const n = 20
	var wg sync.WaitGroup
	errs := make([]error, n)
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			in := input("Mental Health", "2025-03-05", "14:00")
			in.Name = fmt.Sprintf("Resident %d", i)
			_, errs[i] = svc.Book(ctx, in)
		}(i)
	}
	wg.Wait()

	ok := 0
	for _, err := range errs {
		switch {
		case err == nil:
			ok++
		case errors.Is(err, domain.ErrSlotUnavailable):
		default:
			t.Fatalf("unexpected err: %v", err)
		}
	}
	if ok != 1 {
		t.Fatalf("successful bookings = %d", ok)
	}

	pending := appointment.StatusPending
	_, total, _ := svc.List(ctx, appointment.ListFilter{Status: &pending})
	if total != 1 {
		t.Fatalf("stored = %d", total)
	}
}

func TestCancelReleasesSlot(t *testing.T) {
	svc, _, _ := newService(t)
	ctx := context.Background()

	appt, err := svc.Book(ctx, input("Prenatal Care", "2025-03-05", "09:30"))
	if err != nil {
		t.Fatalf("book: %v", err)
	}

	cancelled, err := svc.Cancel(ctx, appt.ID, "", "clerk")
	if err != nil {
		t.Fatalf("cancel: %v", err)
	}
	if cancelled.Status != appointment.StatusCancelled || cancelled.CancelledAt == nil || cancelled.Remarks == "" {
		t.Fatalf("cancelled = %+v", cancelled)
	}

	if _, err := svc.Book(ctx, input("Prenatal Care", "2025-03-05", "09:30")); err != nil {
		t.Fatalf("rebook after cancel: %v", err)
	}

	if _, err := svc.Cancel(ctx, appt.ID, "again", "clerk"); !errors.Is(err, domain.ErrInvalidTransition) {
		t.Fatalf("double cancel err = %v", err)
	}
}

func TestConfirmAndNoShowTiming(t *testing.T) {
	svc, _, clk := newService(t)
	ctx := context.Background()

	appt, err := svc.Book(ctx, input("Other", "2025-03-03", "10:00"))
	if err != nil {
		t.Fatalf("book: %v", err)
	}

	if _, err := svc.MarkNoShow(ctx, appt.ID, "clerk"); !errors.Is(err, domain.ErrInvalidTransition) {
		t.Fatalf("no-show from pending err = %v", err)
	}

	confirmed, err := svc.Confirm(ctx, appt.ID, "clerk")
	if err != nil {
		t.Fatalf("confirm: %v", err)
	}
	if confirmed.ConfirmedAt == nil || *confirmed.ProcessedBy != "clerk" {
		t.Fatalf("confirmed = %+v", confirmed)
	}

	if _, err := svc.MarkNoShow(ctx, appt.ID, "clerk"); !errors.Is(err, domain.ErrInvalidTransition) {
		t.Fatalf("early no-show err = %v", err)
	}

	clk.Set(time.Date(2025, 3, 3, 10, 45, 0, 0, loc))
	noShow, err := svc.MarkNoShow(ctx, appt.ID, "clerk")
	if err != nil {
		t.Fatalf("no-show: %v", err)
	}
	if noShow.Status != appointment.StatusNoShow || noShow.NoShowAt == nil {
		t.Fatalf("no-show = %+v", noShow)
	}
}

func TestConfirmAfterSlotPassed(t *testing.T) {
	svc, _, clk := newService(t)
	ctx := context.Background()

	appt, err := svc.Book(ctx, input("Other", "2025-03-03", "09:00"))
	if err != nil {
		t.Fatalf("book: %v", err)
	}

	clk.Set(time.Date(2025, 3, 3, 9, 5, 0, 0, loc))
	_, err = svc.Confirm(ctx, appt.ID, "clerk")
	var te *domain.TransitionError
	if !errors.As(err, &te) || te.Reason == "" {
		t.Fatalf("err = %v", err)
	}
}

func TestLapsePending(t *testing.T) {
	svc, store, clk := newService(t)
	ctx := context.Background()

	early, _ := svc.Book(ctx, input("Other", "2025-03-03", "09:00"))
	kept, _ := svc.Book(ctx, input("Other", "2025-03-03", "09:30"))
	later, _ := svc.Book(ctx, input("Other", "2025-03-03", "15:00"))
	if _, err := svc.Confirm(ctx, kept.ID, "clerk"); err != nil {
		t.Fatalf("confirm: %v", err)
	}

	clk.Set(time.Date(2025, 3, 3, 12, 0, 0, 0, loc))
	n, err := svc.LapsePending(ctx)
	if err != nil {
		t.Fatalf("lapse: %v", err)
	}
	if n != 1 {
		t.Fatalf("lapsed = %d", n)
	}

	got, _ := svc.Get(ctx, early.ID)
	if got.Status != appointment.StatusCancelled || *got.ProcessedBy != appointment.ActorSystem {
		t.Fatalf("early = %+v", got)
	}
	if got, _ := svc.Get(ctx, kept.ID); got.Status != appointment.StatusConfirmed {
		t.Fatalf("kept = %s", got.Status)
	}
	if got, _ := svc.Get(ctx, later.ID); got.Status != appointment.StatusPending {
		t.Fatalf("later = %s", got.Status)
	}

	last := store.Events()[len(store.Events())-1]
	if last.Type != appointment.EventAppointmentCancelled || last.Actor != appointment.ActorSystem {
		t.Fatalf("last event = %+v", last)
	}
}

func TestCounts(t *testing.T) {
	svc, _, _ := newService(t)
	ctx := context.Background()

	a, _ := svc.Book(ctx, input("Other", "2025-03-03", "13:00"))
	b, _ := svc.Book(ctx, input("Other", "2025-03-04", "13:00"))
	_, _ = svc.Book(ctx, input("Other", "2025-03-04", "13:30"))
	if _, err := svc.Confirm(ctx, a.ID, "clerk"); err != nil {
		t.Fatalf("confirm: %v", err)
	}
	if _, err := svc.Cancel(ctx, b.ID, "resident called", "clerk"); err != nil {
		t.Fatalf("cancel: %v", err)
	}

	c, err := svc.Counts(ctx)
	if err != nil {
		t.Fatalf("counts: %v", err)
	}
	want := appointment.Counts{Total: 3, Pending: 1, Confirmed: 1, Cancelled: 1, Today: 1}
	if c != want {
		t.Fatalf("counts = %+v want %+v", c, want)
	}
}

func TestBookingAndConfirmNotices(t *testing.T) {
	svc, _, _ := newService(t)
	rec := &notify.Recorder{}
	svc.SetNotifier(rec)
	ctx := context.Background()

	appt, err := svc.Book(ctx, input("Dental Service", "2025-03-04", "09:00"))
	if err != nil {
		t.Fatalf("book: %v", err)
	}
	if _, err := svc.Book(ctx, input("Dental Service", "2025-03-04", "09:00")); !errors.Is(err, domain.ErrSlotUnavailable) {
		t.Fatalf("second booking err = %v", err)
	}
	if _, err := svc.Confirm(ctx, appt.ID, "clerk"); err != nil {
		t.Fatalf("confirm: %v", err)
	}
	if _, err := svc.Confirm(ctx, appt.ID, "clerk"); !errors.Is(err, domain.ErrInvalidTransition) {
		t.Fatalf("second confirm err = %v", err)
	}

	got := rec.Notices()
	if len(got) != 2 || got[0].Event != notify.AppointmentReceived || got[1].Event != notify.AppointmentConfirmed {
		t.Fatalf("notices = %+v", got)
	}
	n := got[1]
	if n.Email != "pedro@example.com" || n.TrackingID != appt.TrackingID || n.Item != "Dental Service" || n.Time != "09:00" || n.Date.Format("2006-01-02") != "2025-03-04" {
		t.Fatalf("confirmed notice = %+v", n)
	}
}

func TestCancelAndNoShowSendNoNotice(t *testing.T) {
	svc, _, clk := newService(t)
	rec := &notify.Recorder{Err: errors.New("mailbox full")}
	svc.SetNotifier(rec)
	ctx := context.Background()

	a, err := svc.Book(ctx, input("Other", "2025-03-04", "09:00"))
	if err != nil {
		t.Fatalf("book: %v", err)
	}
	b, err := svc.Book(ctx, input("Other", "2025-03-04", "09:30"))
	if err != nil {
		t.Fatalf("book: %v", err)
	}
	if _, err := svc.Cancel(ctx, a.ID, "", "clerk"); err != nil {
		t.Fatalf("cancel: %v", err)
	}
	if _, err := svc.Confirm(ctx, b.ID, "clerk"); err != nil {
		t.Fatalf("confirm: %v", err)
	}
	clk.Set(time.Date(2025, 3, 4, 10, 0, 0, 0, loc))
	if _, err := svc.MarkNoShow(ctx, b.ID, "clerk"); err != nil {
		t.Fatalf("no-show: %v", err)
	}

	if got := rec.Notices(); len(got) != 3 {
		t.Fatalf("notices = %+v", got)
	}
}
