package certificate_test

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/barangay-nit/eservices/internal/certificate"
	"github.com/barangay-nit/eservices/internal/db/dbtest"
	"github.com/barangay-nit/eservices/internal/domain"
)

func pgRequest(trackingID string, at time.Time) *certificate.Request {
	return &certificate.Request{
		TrackingID:      trackingID,
		Name:            "Ana Reyes",
		Email:           "ana@example.com",
		Phone:           "09171112222",
		CertificateType: certificate.TypeResidency,
		Purpose:         "School enrollment",
		IDType:          "Passport",
		IDNumber:        "P1234567",
		CreatedAt:       at,
	}
}

func TestPgRepositoryConditionalTransition(t *testing.T) {
	repo := certificate.NewPgRepository(dbtest.Pool(t))
	ctx := context.Background()
	at := time.Date(2025, 3, 3, 9, 0, 0, 0, time.UTC)

	created, err := repo.Create(ctx, pgRequest("CERT-20250303-0001", at))
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	if created.Status != certificate.StatusPending || created.ProcessedAt != nil {
		t.Fatalf("created = %+v", created)
	}

	if _, err := repo.Create(ctx, pgRequest("CERT-20250303-0001", at)); !errors.Is(err, domain.ErrGenerationExhausted) {
		t.Fatalf("duplicate tracking id err = %v", err)
	}

	approve := certificate.Transition{
		ID: created.ID, Action: "approve", From: certificate.StatusPending, To: certificate.StatusApproved,
		Remarks: "Certificate approved", Actor: "clerk", At: at.Add(time.Hour),
	}
	updated, err := repo.Transition(ctx, approve)
	if err != nil {
		t.Fatalf("approve: %v", err)
	}
	if updated.Status != certificate.StatusApproved || updated.ProcessedBy == nil || *updated.ProcessedBy != "clerk" ||
		updated.ProcessedAt == nil || !updated.ProcessedAt.Equal(at.Add(time.Hour)) {
		t.Fatalf("updated = %+v", updated)
	}

	reject := approve
	reject.Action, reject.To, reject.Remarks = "reject", certificate.StatusRejected, "late"
	_, err = repo.Transition(ctx, reject)
	var te *domain.TransitionError
	if !errors.As(err, &te) || te.From != "approved" || !errors.Is(err, domain.ErrInvalidTransition) {
		t.Fatalf("reject approved err = %v", err)
	}

	reject.ID = created.ID + 1000
	if _, err := repo.Transition(ctx, reject); !errors.Is(err, domain.ErrNotFound) {
		t.Fatalf("missing id err = %v", err)
	}

	got, err := repo.GetByTrackingID(ctx, "CERT-20250303-0001")
	if err != nil || got.Status != certificate.StatusApproved || got.Remarks != "Certificate approved" {
		t.Fatalf("stored = %+v, %v", got, err)
	}
}

func TestPgRepositoryConcurrentDecisions(t *testing.T) {
	repo := certificate.NewPgRepository(dbtest.Pool(t))
	ctx := context.Background()
	at := time.Date(2025, 3, 3, 9, 0, 0, 0, time.UTC)

	created, err := repo.Create(ctx, pgRequest("CERT-20250303-0001", at))
	if err != nil {
		t.Fatalf("create: %v", err)
	}

	targets := []certificate.Status{certificate.StatusApproved, certificate.StatusRejected, certificate.StatusApproved, certificate.StatusRejected}
	errs := make([]error, len(targets))
	var wg sync.WaitGroup
	for i, to := range targets {
		wg.Add(1)
		go func(i int, to certificate.Status) {
			defer wg.Done()
			_, errs[i] = repo.Transition(ctx, certificate.Transition{
				ID: created.ID, Action: "decide", From: certificate.StatusPending, To: to,
				Remarks: "decided", Actor: "clerk", At: at,
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

	c, err := repo.Counts(ctx)
	if err != nil {
		t.Fatalf("counts: %v", err)
	}
	if c.Total != 1 || c.Pending != 0 {
		t.Fatalf("counts = %+v", c)
	}
}
