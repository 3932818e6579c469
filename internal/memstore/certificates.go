package memstore

import (
	"context"
	"sort"

	"github.com/barangay-nit/eservices/internal/certificate"
	"github.com/barangay-nit/eservices/internal/domain"
)

type CertificateRepo struct {
	s *Store
}

func copyRequest(r *certificate.Request) *certificate.Request {
	c := *r
	return &c
}

func (r *CertificateRepo) Create(_ context.Context, req *certificate.Request) (*certificate.Request, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	for _, existing := range r.s.certs {
		if existing.TrackingID == req.TrackingID {
			return nil, domain.ErrGenerationExhausted
		}
	}

	r.s.certSeq++
	c := copyRequest(req)
	c.ID = r.s.certSeq
	c.Status = certificate.StatusPending
	c.UpdatedAt = c.CreatedAt
	r.s.certs[c.ID] = c

	r.s.appendEvent(domain.Event{
		Type:       certificate.EventRequestSubmitted,
		Entity:     "certificate_request",
		RecordID:   c.ID,
		TrackingID: c.TrackingID,
		CreatedAt:  c.CreatedAt,
	})
	return copyRequest(c), nil
}

func (r *CertificateRepo) GetByID(_ context.Context, id int64) (*certificate.Request, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	c, ok := r.s.certs[id]
	if !ok {
		return nil, domain.ErrNotFound
	}
	return copyRequest(c), nil
}

func (r *CertificateRepo) GetByTrackingID(_ context.Context, trackingID string) (*certificate.Request, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	for _, c := range r.s.certs {
		if c.TrackingID == trackingID {
			return copyRequest(c), nil
		}
	}
	return nil, domain.ErrNotFound
}

func (r *CertificateRepo) Transition(_ context.Context, t certificate.Transition) (*certificate.Request, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	c, ok := r.s.certs[t.ID]
	if !ok {
		return nil, domain.ErrNotFound
	}
	if c.Status != t.From {
		return nil, &domain.TransitionError{Entity: "certificate request", From: string(c.Status), Action: t.Action}
	}

	at := t.At
	actor := t.Actor
	c.Status = t.To
	c.Remarks = t.Remarks
	c.ProcessedAt = &at
	c.ProcessedBy = &actor
	c.UpdatedAt = at

	evType := certificate.EventRequestApproved
	if t.To == certificate.StatusRejected {
		evType = certificate.EventRequestRejected
	}
	r.s.appendEvent(domain.Event{
		Type:       evType,
		Entity:     "certificate_request",
		RecordID:   c.ID,
		TrackingID: c.TrackingID,
		Actor:      t.Actor,
		CreatedAt:  at,
	})
	return copyRequest(c), nil
}

func (r *CertificateRepo) List(_ context.Context, f certificate.ListFilter) ([]certificate.Request, int, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	var all []certificate.Request
	for _, c := range r.s.certs {
		if f.Status != nil && c.Status != *f.Status {
			continue
		}
		all = append(all, *c)
	}
	sort.Slice(all, func(i, j int) bool {
		if !all[i].CreatedAt.Equal(all[j].CreatedAt) {
			return all[i].CreatedAt.After(all[j].CreatedAt)
		}
		return all[i].ID > all[j].ID
	})

	return page(all, f.Limit, f.Offset), len(all), nil
}

func (r *CertificateRepo) Counts(_ context.Context) (certificate.Counts, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	var c certificate.Counts
	for _, req := range r.s.certs {
		c.Total++
		switch req.Status {
		case certificate.StatusPending:
			c.Pending++
		case certificate.StatusApproved:
			c.Approved++
		case certificate.StatusRejected:
			c.Rejected++
		}
	}
	return c, nil
}

var _ certificate.Repository = (*CertificateRepo)(nil)
