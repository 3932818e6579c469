package schedule

import (
	"sort"
	"strings"
	"time"
)

// Window is a half-open operating period [Start, End).
type Window struct {
	Start TimeOfDay
	End   TimeOfDay
}

// Service describes when a health-center service takes bookings.
type Service struct {
	Name        string
	Days        []time.Weekday
	Windows     []Window
	SlotMinutes int
}

func (s Service) OfferedOn(day time.Weekday) bool {
	for _, d := range s.Days {
		if d == day {
			return true
		}
	}
	return false
}

// Slots lists every slot start for the weekday, ascending. Empty when the
// service is closed that day.
func (s Service) Slots(day time.Weekday) []TimeOfDay {
	if !s.OfferedOn(day) || s.SlotMinutes <= 0 {
		return nil
	}

	var out []TimeOfDay
	for _, w := range s.Windows {
		for t := w.Start; t+TimeOfDay(s.SlotMinutes) <= w.End; t += TimeOfDay(s.SlotMinutes) {
			out = append(out, t)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}

func (s Service) HasSlot(day time.Weekday, t TimeOfDay) bool {
	for _, slot := range s.Slots(day) {
		if slot == t {
			return true
		}
	}
	return false
}

type Catalog struct {
	services map[string]Service
	aliases  map[string]string
	order    []string
}

func NewCatalog(services []Service, aliases map[string]string) *Catalog {
	c := &Catalog{
		services: make(map[string]Service, len(services)),
		aliases:  make(map[string]string, len(aliases)+len(services)),
	}
	for _, s := range services {
		c.services[s.Name] = s
		c.aliases[strings.ToLower(s.Name)] = s.Name
		c.order = append(c.order, s.Name)
	}
	for label, canonical := range aliases {
		c.aliases[strings.ToLower(strings.TrimSpace(label))] = canonical
	}
	return c
}

var (
	weekdays = []time.Weekday{time.Monday, time.Tuesday, time.Wednesday, time.Thursday, time.Friday}
	morning  = Window{Start: NewTimeOfDay(9, 0), End: NewTimeOfDay(12, 0)}
)

// DefaultCatalog is the health center's published schedule.
func DefaultCatalog() *Catalog {
	return NewCatalog([]Service{
		{
			Name:        "General Checkup",
			Days:        weekdays,
			Windows:     []Window{{Start: NewTimeOfDay(9, 0), End: NewTimeOfDay(17, 0)}},
			SlotMinutes: 30,
		},
		{
			Name:        "Vaccination",
			Days:        weekdays,
			Windows:     []Window{morning, {Start: NewTimeOfDay(13, 0), End: NewTimeOfDay(16, 0)}},
			SlotMinutes: 30,
		},
		{
			Name:        "Prenatal Care",
			Days:        []time.Weekday{time.Monday, time.Wednesday, time.Friday},
			Windows:     []Window{morning},
			SlotMinutes: 30,
		},
		{
			Name:        "Dental Service",
			Days:        []time.Weekday{time.Tuesday, time.Thursday},
			Windows:     []Window{{Start: NewTimeOfDay(9, 0), End: NewTimeOfDay(16, 0)}},
			SlotMinutes: 30,
		},
		{
			Name:        "Mental Health",
			Days:        weekdays,
			Windows:     []Window{{Start: NewTimeOfDay(13, 0), End: NewTimeOfDay(17, 0)}},
			SlotMinutes: 60,
		},
		{
			Name:        "Other",
			Days:        weekdays,
			Windows:     []Window{{Start: NewTimeOfDay(9, 0), End: NewTimeOfDay(17, 0)}},
			SlotMinutes: 30,
		},
	}, map[string]string{
		"Health Center Services": "General Checkup",
		"Vaccination Services":   "Vaccination",
	})
}

// Canonical maps a UI label or canonical name to the canonical service name.
func (c *Catalog) Canonical(label string) (string, bool) {
	name, ok := c.aliases[strings.ToLower(strings.TrimSpace(label))]
	return name, ok
}

func (c *Catalog) Lookup(label string) (Service, bool) {
	name, ok := c.Canonical(label)
	if !ok {
		return Service{}, false
	}
	s, ok := c.services[name]
	return s, ok
}

// Services returns the catalog in its declared order.
func (c *Catalog) Services() []Service {
	out := make([]Service, 0, len(c.order))
	for _, name := range c.order {
		out = append(out, c.services[name])
	}
	return out
}
