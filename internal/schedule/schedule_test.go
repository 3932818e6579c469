package schedule

import (
	"context"
	"errors"
	"reflect"
	"sync"
	"testing"
	"time"

	"github.com/barangay-nit/eservices/internal/domain"
)

type fakeBookings map[string][]TimeOfDay

func (f fakeBookings) ActiveSlotTimes(_ context.Context, date time.Time, service string) ([]TimeOfDay, error) {
	return f[date.Format(DateLayout)+"|"+service], nil
}

type mapCache struct {
	mu          sync.Mutex
	entries     map[string][]TimeOfDay
	gens        map[string]int64
	invalidated int
}

func newMapCache() *mapCache {
	return &mapCache{entries: map[string][]TimeOfDay{}, gens: map[string]int64{}}
}

func (m *mapCache) key(date time.Time, service string) string {
	return date.Format(DateLayout) + "|" + service
}

func (m *mapCache) GetSlots(_ context.Context, date time.Time, service string) ([]TimeOfDay, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	v, ok := m.entries[m.key(date, service)]
	return v, ok
}

func (m *mapCache) Generation(_ context.Context, date time.Time, service string) (int64, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.gens[m.key(date, service)], true
}

func (m *mapCache) SetSlots(_ context.Context, date time.Time, service string, gen int64, slots []TimeOfDay) {
	m.mu.Lock()
	defer m.mu.Unlock()
	k := m.key(date, service)
	if m.gens[k] != gen {
		return
	}
	m.entries[k] = slots
}

func (m *mapCache) Invalidate(_ context.Context, date time.Time, service string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	k := m.key(date, service)
	delete(m.entries, k)
	m.gens[k]++
	m.invalidated++
}

// bookingDuringRead commits a booking and invalidates the calculator while
// the first availability read is in flight, returning the pre-booking view
// to that read.
type bookingDuringRead struct {
	calc   *Calculator
	day    time.Time
	held   []TimeOfDay
	booked bool
}

func (b *bookingDuringRead) ActiveSlotTimes(ctx context.Context, date time.Time, service string) ([]TimeOfDay, error) {
	if b.booked {
		return b.held, nil
	}
	b.booked = true
	snapshot := append([]TimeOfDay(nil), b.held...)
	b.held = append(b.held, NewTimeOfDay(13, 0))
	b.calc.Invalidate(ctx, b.day, service)
	return snapshot, nil
}

func fixedClock(t time.Time) func() time.Time {
	return func() time.Time { return t }
}

func TestParseTimeOfDay(t *testing.T) {
	tests := []struct {
		in      string
		want    TimeOfDay
		wantErr bool
	}{
		{"09:00", NewTimeOfDay(9, 0), false},
		{"16:30:00", NewTimeOfDay(16, 30), false},
		{"9:00", 0, true},
		{"24:00", 0, true},
		{"09:61", 0, true},
		{"09:00:15", 0, true},
		{"nine", 0, true},
	}
	for _, tt := range tests {
		got, err := ParseTimeOfDay(tt.in)
		if (err != nil) != tt.wantErr {
			t.Fatalf("ParseTimeOfDay(%q) err = %v, wantErr %v", tt.in, err, tt.wantErr)
		}
		if err == nil && got != tt.want {
			t.Fatalf("ParseTimeOfDay(%q) = %s, want %s", tt.in, got, tt.want)
		}
	}
}

func TestCatalogAliases(t *testing.T) {
	c := DefaultCatalog()

	tests := map[string]string{
		"Health Center Services": "General Checkup",
		"vaccination services":   "Vaccination",
		"Dental Service":         "Dental Service",
		" Mental Health ":        "Mental Health",
	}
	for label, want := range tests {
		got, ok := c.Canonical(label)
		if !ok || got != want {
			t.Fatalf("Canonical(%q) = %q, %v; want %q", label, got, ok, want)
		}
	}

	if _, ok := c.Canonical("Massage"); ok {
		t.Fatal("expected unknown service to be rejected")
	}
}

func TestServiceSlots(t *testing.T) {
	c := DefaultCatalog()

	vax, _ := c.Lookup("Vaccination")
	slots := vax.Slots(time.Friday)
	if len(slots) != 12 {
		t.Fatalf("vaccination slots = %d, want 12", len(slots))
	}
	if slots[0] != NewTimeOfDay(9, 0) || slots[5] != NewTimeOfDay(11, 30) || slots[6] != NewTimeOfDay(13, 0) {
		t.Fatalf("unexpected vaccination slots %v", slots)
	}

	mh, _ := c.Lookup("Mental Health")
	if got := mh.Slots(time.Monday); len(got) != 4 {
		t.Fatalf("mental health slots = %v", got)
	}

	gc, _ := c.Lookup("General Checkup")
	if got := gc.Slots(time.Saturday); len(got) != 0 {
		t.Fatalf("expected no saturday slots, got %v", got)
	}
}

func TestAvailableSlotsSubtractsBookings(t *testing.T) {
	loc := time.UTC
	now := time.Date(2025, 1, 6, 8, 0, 0, 0, loc)
	bookings := fakeBookings{
		"2025-01-10|Vaccination": {NewTimeOfDay(9, 0), NewTimeOfDay(13, 30)},
	}

	calc := NewCalculator(DefaultCatalog(), bookings, loc, WithClock(fixedClock(now)))

	got, err := calc.AvailableSlots(context.Background(), time.Date(2025, 1, 10, 0, 0, 0, 0, loc), "Vaccination Services")
	if err != nil {
		t.Fatalf("available slots: %v", err)
	}

	for _, s := range got {
		if s == NewTimeOfDay(9, 0) || s == NewTimeOfDay(13, 30) {
			t.Fatalf("held slot %s returned", s)
		}
	}
	if len(got) != 10 {
		t.Fatalf("got %d slots, want 10", len(got))
	}
	for i := 1; i < len(got); i++ {
		if got[i-1] >= got[i] {
			t.Fatalf("slots not ascending: %v", got)
		}
	}
}

func TestAvailableSlotsDentalClosedDay(t *testing.T) {
	loc := time.UTC
	calc := NewCalculator(DefaultCatalog(), fakeBookings{}, loc,
		WithClock(fixedClock(time.Date(2025, 1, 20, 10, 0, 0, 0, loc))))

	for _, day := range []time.Time{
		time.Date(2025, 2, 1, 0, 0, 0, 0, loc), // Saturday
		time.Date(2025, 2, 3, 0, 0, 0, 0, loc), // Monday
	} {
		got, err := calc.AvailableSlots(context.Background(), day, "Dental Service")
		if err != nil {
			t.Fatalf("available slots: %v", err)
		}
		if len(got) != 0 {
			t.Fatalf("expected empty for %s, got %v", day.Weekday(), got)
		}
	}

	got, err := calc.AvailableSlots(context.Background(), time.Date(2025, 2, 4, 0, 0, 0, 0, loc), "Dental Service")
	if err != nil {
		t.Fatalf("available slots: %v", err)
	}
	if len(got) != 14 {
		t.Fatalf("tuesday dental slots = %d, want 14", len(got))
	}
}

func TestAvailableSlotsErrors(t *testing.T) {
	loc := time.UTC
	now := time.Date(2025, 1, 6, 8, 0, 0, 0, loc)
	calc := NewCalculator(DefaultCatalog(), fakeBookings{}, loc, WithClock(fixedClock(now)))

	tests := []struct {
		name    string
		date    time.Time
		service string
		want    error
	}{
		{"yesterday", now.AddDate(0, 0, -1), "Vaccination", domain.ErrInvalidSlotQuery},
		{"beyond window", now.AddDate(0, 0, 31), "Vaccination", domain.ErrInvalidSlotQuery},
		{"unknown service", now, "Acupuncture", domain.ErrUnknownService},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := calc.AvailableSlots(context.Background(), tt.date, tt.service)
			if !errors.Is(err, tt.want) {
				t.Fatalf("got %v, want %v", err, tt.want)
			}
		})
	}

	if _, err := calc.AvailableSlots(context.Background(), now.AddDate(0, 0, 30), "Vaccination"); err != nil {
		t.Fatalf("day 30 should be bookable: %v", err)
	}
}

func TestAvailableSlotsDropsPastSlotsToday(t *testing.T) {
	loc := time.UTC
	now := time.Date(2025, 1, 6, 10, 15, 0, 0, loc) // Monday
	calc := NewCalculator(DefaultCatalog(), fakeBookings{}, loc, WithClock(fixedClock(now)))

	got, err := calc.AvailableSlots(context.Background(), now, "Prenatal Care")
	if err != nil {
		t.Fatalf("available slots: %v", err)
	}
	want := []TimeOfDay{NewTimeOfDay(10, 30), NewTimeOfDay(11, 0), NewTimeOfDay(11, 30)}
	if !reflect.DeepEqual(got, want) {
		t.Fatalf("got %v, want %v", got, want)
	}
}

func TestAvailableSlotsUsesCache(t *testing.T) {
	loc := time.UTC
	now := time.Date(2025, 1, 6, 8, 0, 0, 0, loc)
	bookings := fakeBookings{}
	cache := newMapCache()
	calc := NewCalculator(DefaultCatalog(), bookings, loc, WithClock(fixedClock(now)), WithCache(cache))

	day := time.Date(2025, 1, 8, 0, 0, 0, 0, loc)
	first, err := calc.AvailableSlots(context.Background(), day, "Mental Health")
	if err != nil {
		t.Fatalf("available slots: %v", err)
	}

	bookings["2025-01-08|Mental Health"] = []TimeOfDay{NewTimeOfDay(13, 0)}

	cached, _ := calc.AvailableSlots(context.Background(), day, "Mental Health")
	if !reflect.DeepEqual(first, cached) {
		t.Fatalf("expected cached result %v, got %v", first, cached)
	}

	fresh, err := calc.FreeSlots(context.Background(), day, "Mental Health")
	if err != nil {
		t.Fatalf("free slots: %v", err)
	}
	if len(fresh) != len(first)-1 {
		t.Fatalf("FreeSlots should bypass cache, got %v", fresh)
	}

	calc.Invalidate(context.Background(), day, "Mental Health")
	after, _ := calc.AvailableSlots(context.Background(), day, "Mental Health")
	if !reflect.DeepEqual(after, fresh) {
		t.Fatalf("after invalidate got %v, want %v", after, fresh)
	}
	if cache.invalidated != 1 {
		t.Fatalf("invalidated = %d", cache.invalidated)
	}
}

func TestAvailableSlotsDoesNotCacheListInvalidatedMidRead(t *testing.T) {
	loc := time.UTC
	now := time.Date(2025, 1, 6, 8, 0, 0, 0, loc)
	day := time.Date(2025, 1, 8, 0, 0, 0, 0, loc)

	bookings := &bookingDuringRead{day: day}
	cache := newMapCache()
	calc := NewCalculator(DefaultCatalog(), bookings, loc, WithClock(fixedClock(now)), WithCache(cache))
	bookings.calc = calc

	first, err := calc.AvailableSlots(context.Background(), day, "Mental Health")
	if err != nil {
		t.Fatalf("available slots: %v", err)
	}
	if len(first) != 4 {
		t.Fatalf("first read = %v", first)
	}

	second, err := calc.AvailableSlots(context.Background(), day, "Mental Health")
	if err != nil {
		t.Fatalf("available slots: %v", err)
	}
	want := []TimeOfDay{NewTimeOfDay(14, 0), NewTimeOfDay(15, 0), NewTimeOfDay(16, 0)}
	if !reflect.DeepEqual(second, want) {
		t.Fatalf("held slot 13:00 still offered after booking committed: %v", second)
	}
}
