package memstore

import (
	"context"

	"github.com/barangay-nit/eservices/internal/auth"
	"github.com/barangay-nit/eservices/internal/domain"
)

type StaffRepo struct {
	s *Store
}

func (r *StaffRepo) GetStaffByUsername(_ context.Context, username string) (*auth.Staff, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	st, ok := r.s.staff[username]
	if !ok {
		return nil, domain.ErrNotFound
	}
	c := *st
	return &c, nil
}

func (r *StaffRepo) CreateStaff(_ context.Context, st *auth.Staff) (*auth.Staff, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	if _, exists := r.s.staff[st.Username]; exists {
		return nil, domain.NewValidationError("username", "already taken")
	}

	r.s.staffSeq++
	c := *st
	c.ID = r.s.staffSeq
	r.s.staff[c.Username] = &c

	out := c
	return &out, nil
}

var _ auth.StaffRepository = (*StaffRepo)(nil)
