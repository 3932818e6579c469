package certificate

import (
	"context"
	"fmt"
	"log"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"

	"github.com/barangay-nit/eservices/internal/domain"
	"github.com/barangay-nit/eservices/internal/notify"
	"github.com/barangay-nit/eservices/internal/tracking"
)

const defaultApprovalRemarks = "Certificate approved"

// SubmitInput is what a resident sends from the public request form.
type SubmitInput struct {
	Name            string `json:"name" validate:"required,max=120"`
	Email           string `json:"email" validate:"required,email,max=254"`
	Phone           string `json:"phone" validate:"required,min=7,max=20"`
	CertificateType string `json:"certificateType" validate:"required,certificate_type"`
	Purpose         string `json:"purpose" validate:"required,max=500"`
	IDType          string `json:"idType" validate:"required,id_type"`
	IDNumber        string `json:"idNumber" validate:"required,max=64"`
	IDFileRef       string `json:"idFileRef" validate:"omitempty,max=255"`
	DateNeeded      string `json:"dateNeeded" validate:"omitempty,datetime=2006-01-02"`
}

type Service struct {
	repo     Repository
	ids      *tracking.Generator
	validate *validator.Validate
	notifier notify.Notifier
	loc      *time.Location
	now      func() time.Time
}

func NewService(repo Repository, ids *tracking.Generator, loc *time.Location) *Service {
	v := domain.NewValidator()
	_ = v.RegisterValidation("certificate_type", oneOf(Types))
	_ = v.RegisterValidation("id_type", oneOf(IDTypes))

	return &Service{
		repo:     repo,
		ids:      ids,
		validate: v,
		notifier: notify.LogNotifier{},
		loc:      loc,
		now:      time.Now,
	}
}

// SetNotifier replaces the default log-only notifier.
func (s *Service) SetNotifier(n notify.Notifier) {
	s.notifier = n
}

// SetClock replaces the wall clock, for tests and the simulator.
func (s *Service) SetClock(now func() time.Time) {
	s.now = now
}

func oneOf(allowed []string) validator.Func {
	return func(fl validator.FieldLevel) bool {
		v := fl.Field().String()
		for _, a := range allowed {
			if v == a {
				return true
			}
		}
		return false
	}
}

// Submit records a new pending request and stamps its tracking ID.
func (s *Service) Submit(ctx context.Context, in SubmitInput) (*Request, error) {
	in = trimInput(in)
	if err := s.validate.Struct(in); err != nil {
		return nil, domain.FromValidator(err)
	}

	now := s.now().In(s.loc)

	var dateNeeded *time.Time
	if in.DateNeeded != "" {
		d, err := time.ParseInLocation("2006-01-02", in.DateNeeded, s.loc)
		if err != nil {
			return nil, domain.NewValidationError("dateNeeded", "datetime=2006-01-02")
		}
		dateNeeded = &d
	}

	trackingID, err := s.ids.Generate(ctx, tracking.KindCertificate, now)
	if err != nil {
		return nil, fmt.Errorf("issue tracking id: %w", err)
	}

	req := &Request{
		TrackingID:      trackingID,
		Name:            in.Name,
		Email:           in.Email,
		Phone:           in.Phone,
		CertificateType: in.CertificateType,
		Purpose:         in.Purpose,
		IDType:          in.IDType,
		IDNumber:        in.IDNumber,
		DateNeeded:      dateNeeded,
		Status:          StatusPending,
		CreatedAt:       now,
		UpdatedAt:       now,
	}
	if in.IDFileRef != "" {
		ref := in.IDFileRef
		req.IDFileRef = &ref
	}

	created, err := s.repo.Create(ctx, req)
	if err != nil {
		return nil, fmt.Errorf("create certificate request: %w", err)
	}

	log.Printf("certificate request submitted tracking_id=%s type=%q", created.TrackingID, created.CertificateType)
	notify.Send(ctx, s.notifier, notice(notify.CertificateReceived, created))
	return created, nil
}

// Approve moves a pending request to approved. Remarks are optional.
func (s *Service) Approve(ctx context.Context, id int64, remarks, actor string) (*Request, error) {
	remarks = strings.TrimSpace(remarks)
	if remarks == "" {
		remarks = defaultApprovalRemarks
	}

	updated, err := s.transition(ctx, Transition{
		ID:      id,
		Action:  "approve",
		From:    StatusPending,
		To:      StatusApproved,
		Remarks: remarks,
		Actor:   actor,
	})
	if err != nil {
		return nil, err
	}

	notify.Send(ctx, s.notifier, notice(notify.CertificateApproved, updated))
	return updated, nil
}

// Reject moves a pending request to rejected. The reason is mandatory and is
// shown to the resident on the tracking page.
func (s *Service) Reject(ctx context.Context, id int64, reason, actor string) (*Request, error) {
	reason = strings.TrimSpace(reason)
	if reason == "" {
		return nil, domain.ErrMissingReason
	}

	updated, err := s.transition(ctx, Transition{
		ID:      id,
		Action:  "reject",
		From:    StatusPending,
		To:      StatusRejected,
		Remarks: reason,
		Actor:   actor,
	})
	if err != nil {
		return nil, err
	}

	n := notice(notify.CertificateRejected, updated)
	n.Reason = reason
	notify.Send(ctx, s.notifier, n)
	return updated, nil
}

func notice(ev notify.Event, r *Request) notify.Notice {
	return notify.Notice{
		Event:      ev,
		Email:      r.Email,
		Name:       r.Name,
		TrackingID: r.TrackingID,
		Item:       r.CertificateType,
	}
}

func (s *Service) transition(ctx context.Context, t Transition) (*Request, error) {
	t.At = s.now().In(s.loc)

	updated, err := s.repo.Transition(ctx, t)
	if err != nil {
		return nil, fmt.Errorf("%s certificate request %d: %w", t.Action, t.ID, err)
	}

	log.Printf("certificate request %s tracking_id=%s actor=%s", t.To, updated.TrackingID, t.Actor)
	return updated, nil
}

func (s *Service) Get(ctx context.Context, id int64) (*Request, error) {
	return s.repo.GetByID(ctx, id)
}

func (s *Service) GetByTrackingID(ctx context.Context, trackingID string) (*Request, error) {
	return s.repo.GetByTrackingID(ctx, trackingID)
}

func (s *Service) List(ctx context.Context, f ListFilter) ([]Request, int, error) {
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
		return nil, 0, fmt.Errorf("list certificate requests: %w", err)
	}
	return items, total, nil
}

func (s *Service) Counts(ctx context.Context) (Counts, error) {
	c, err := s.repo.Counts(ctx)
	if err != nil {
		return Counts{}, fmt.Errorf("count certificate requests: %w", err)
	}
	return c, nil
}

func trimInput(in SubmitInput) SubmitInput {
	in.Name = strings.TrimSpace(in.Name)
	in.Email = strings.TrimSpace(in.Email)
	in.Phone = strings.TrimSpace(in.Phone)
	in.CertificateType = strings.TrimSpace(in.CertificateType)
	in.Purpose = strings.TrimSpace(in.Purpose)
	in.IDType = strings.TrimSpace(in.IDType)
	in.IDNumber = strings.TrimSpace(in.IDNumber)
	in.IDFileRef = strings.TrimSpace(in.IDFileRef)
	in.DateNeeded = strings.TrimSpace(in.DateNeeded)
	return in
}
