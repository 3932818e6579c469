// Package memstore is an in-process store for local development and tests.
// A single mutex serializes every write, which gives the same guarantees the
// Postgres schema gives: conditional transitions and one active booking per
// slot.
package memstore

import (
	"context"
	"sync"
	"time"

	"github.com/barangay-nit/eservices/internal/appointment"
	"github.com/barangay-nit/eservices/internal/auth"
	"github.com/barangay-nit/eservices/internal/certificate"
	"github.com/barangay-nit/eservices/internal/domain"
	"github.com/barangay-nit/eservices/internal/tracking"
)

type Store struct {
	mu sync.Mutex

	certs     map[int64]*certificate.Request
	certSeq   int64
	appts     map[int64]*appointment.Appointment
	apptSeq   int64
	staff     map[string]*auth.Staff
	staffSeq  int64
	sequences map[string]int
	events    []domain.Event
}

func New() *Store {
	return &Store{
		certs:     make(map[int64]*certificate.Request),
		appts:     make(map[int64]*appointment.Appointment),
		staff:     make(map[string]*auth.Staff),
		sequences: make(map[string]int),
	}
}

func (s *Store) Certificates() *CertificateRepo { return &CertificateRepo{s: s} }
func (s *Store) Appointments() *AppointmentRepo { return &AppointmentRepo{s: s} }
func (s *Store) Staff() *StaffRepo              { return &StaffRepo{s: s} }

// Events returns a copy of the audit trail.
func (s *Store) Events() []domain.Event {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]domain.Event, len(s.events))
	copy(out, s.events)
	return out
}

func (s *Store) NextSequence(_ context.Context, kind tracking.Kind, day time.Time) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	key := string(kind) + day.Format("20060102")
	s.sequences[key]++
	return s.sequences[key], nil
}

// SetSequence primes a counter, for exhaustion tests.
func (s *Store) SetSequence(kind tracking.Kind, day time.Time, n int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.sequences[string(kind)+day.Format("20060102")] = n
}

func (s *Store) appendEvent(ev domain.Event) {
	s.events = append(s.events, ev)
}

func page[T any](items []T, limit, offset int) []T {
	if offset >= len(items) {
		return []T{}
	}
	end := len(items)
	if limit > 0 && offset+limit < end {
		end = offset + limit
	}
	return items[offset:end]
}

var _ tracking.Sequencer = (*Store)(nil)
