package schedule

import (
	"context"
	"fmt"
	"log"
	"time"

	"github.com/barangay-nit/eservices/internal/domain"
)

// BookingReader reports which slot starts are held by active (pending or
// confirmed) appointments for a date and canonical service.
type BookingReader interface {
	ActiveSlotTimes(ctx context.Context, date time.Time, service string) ([]TimeOfDay, error)
}

// SlotCache is a read-through cache of free slots. Entries are dropped on
// every booking and every appointment transition for that date and service.
//
// Invalidate also bumps a per (date, service) generation. SetSlots must only
// store the list when the generation still equals gen, so a list computed
// before a booking committed is never written back after its invalidation.
type SlotCache interface {
	GetSlots(ctx context.Context, date time.Time, service string) ([]TimeOfDay, bool)
	Generation(ctx context.Context, date time.Time, service string) (int64, bool)
	SetSlots(ctx context.Context, date time.Time, service string, gen int64, slots []TimeOfDay)
	Invalidate(ctx context.Context, date time.Time, service string)
}

type noCache struct{}

func (noCache) GetSlots(context.Context, time.Time, string) ([]TimeOfDay, bool) { return nil, false }
func (noCache) Generation(context.Context, time.Time, string) (int64, bool)     { return 0, false }
func (noCache) SetSlots(context.Context, time.Time, string, int64, []TimeOfDay) {}
func (noCache) Invalidate(context.Context, time.Time, string)                   {}

type Calculator struct {
	catalog    *Catalog
	bookings   BookingReader
	cache      SlotCache
	loc        *time.Location
	windowDays int
	now        func() time.Time
}

type Option func(*Calculator)

func WithCache(c SlotCache) Option {
	return func(calc *Calculator) {
		if c != nil {
			calc.cache = c
		}
	}
}

func WithClock(now func() time.Time) Option {
	return func(calc *Calculator) { calc.now = now }
}

func WithWindowDays(days int) Option {
	return func(calc *Calculator) {
		if days > 0 {
			calc.windowDays = days
		}
	}
}

func NewCalculator(catalog *Catalog, bookings BookingReader, loc *time.Location, opts ...Option) *Calculator {
	c := &Calculator{
		catalog:    catalog,
		bookings:   bookings,
		cache:      noCache{},
		loc:        loc,
		windowDays: 30,
		now:        time.Now,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

func (c *Calculator) Catalog() *Catalog        { return c.catalog }
func (c *Calculator) Location() *time.Location { return c.loc }
func (c *Calculator) Now() time.Time           { return c.now().In(c.loc) }
func (c *Calculator) Today() time.Time         { return DateOnly(c.now(), c.loc) }

// CheckDate enforces today <= date <= today+windowDays.
func (c *Calculator) CheckDate(date time.Time) (time.Time, error) {
	day := time.Date(date.Year(), date.Month(), date.Day(), 0, 0, 0, 0, c.loc)
	today := c.Today()
	if day.Before(today) || day.After(today.AddDate(0, 0, c.windowDays)) {
		return time.Time{}, fmt.Errorf("%w: %s", domain.ErrInvalidSlotQuery, day.Format(DateLayout))
	}
	return day, nil
}

// AvailableSlots returns free slot starts for date and service in ascending
// order. The result may come from the cache; booking uses FreeSlots instead.
func (c *Calculator) AvailableSlots(ctx context.Context, date time.Time, service string) ([]TimeOfDay, error) {
	day, svc, err := c.resolve(date, service)
	if err != nil {
		return nil, err
	}

	if cached, ok := c.cache.GetSlots(ctx, day, svc.Name); ok {
		return c.dropPast(day, cached), nil
	}

	// Read the generation before the store so a concurrent invalidation
	// makes the write below a no-op.
	gen, cacheable := c.cache.Generation(ctx, day, svc.Name)

	free, err := c.compute(ctx, day, svc)
	if err != nil {
		return nil, err
	}
	if cacheable {
		c.cache.SetSlots(ctx, day, svc.Name, gen, free)
	}

	return c.dropPast(day, free), nil
}

// FreeSlots always reads the booking store.
func (c *Calculator) FreeSlots(ctx context.Context, date time.Time, service string) ([]TimeOfDay, error) {
	day, svc, err := c.resolve(date, service)
	if err != nil {
		return nil, err
	}
	free, err := c.compute(ctx, day, svc)
	if err != nil {
		return nil, err
	}
	return c.dropPast(day, free), nil
}

func (c *Calculator) Invalidate(ctx context.Context, date time.Time, service string) {
	day := time.Date(date.Year(), date.Month(), date.Day(), 0, 0, 0, 0, c.loc)
	c.cache.Invalidate(ctx, day, service)
}

func (c *Calculator) resolve(date time.Time, service string) (time.Time, Service, error) {
	svc, ok := c.catalog.Lookup(service)
	if !ok {
		return time.Time{}, Service{}, fmt.Errorf("%w: %q", domain.ErrUnknownService, service)
	}
	day, err := c.CheckDate(date)
	if err != nil {
		return time.Time{}, Service{}, err
	}
	return day, svc, nil
}

func (c *Calculator) compute(ctx context.Context, day time.Time, svc Service) ([]TimeOfDay, error) {
	all := svc.Slots(day.Weekday())
	if len(all) == 0 {
		return []TimeOfDay{}, nil
	}

	held, err := c.bookings.ActiveSlotTimes(ctx, day, svc.Name)
	if err != nil {
		return nil, fmt.Errorf("load booked slots: %w", err)
	}

	taken := make(map[TimeOfDay]struct{}, len(held))
	for _, t := range held {
		taken[t] = struct{}{}
	}

	free := make([]TimeOfDay, 0, len(all))
	for _, t := range all {
		if _, ok := taken[t]; !ok {
			free = append(free, t)
		}
	}

	if len(held) > 0 {
		log.Printf("slots computed date=%s service=%q total=%d held=%d", day.Format(DateLayout), svc.Name, len(all), len(held))
	}
	return free, nil
}

// dropPast removes slot starts that are already behind us when day is today.
func (c *Calculator) dropPast(day time.Time, slots []TimeOfDay) []TimeOfDay {
	if !day.Equal(c.Today()) {
		return slots
	}
	now := c.Now()
	out := make([]TimeOfDay, 0, len(slots))
	for _, t := range slots {
		if t.On(day).After(now) {
			out = append(out, t)
		}
	}
	return out
}
