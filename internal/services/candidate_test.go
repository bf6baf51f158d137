package services_test

import (
	"context"
	"errors"
	"testing"

	"github.com/abarreto/stagevote/internal/logger"
	"github.com/abarreto/stagevote/internal/models"
	"github.com/abarreto/stagevote/internal/services"
	"github.com/abarreto/stagevote/internal/testutil"
)

func setupCandidateService(t *testing.T) *services.CandidateService {
	t.Helper()
	return services.NewCandidateService(logger.New(), testutil.NewTestRepository(t))
}

func TestCreateCandidate_Validation(t *testing.T) {
	svc := setupCandidateService(t)
	ctx := context.Background()

	_, err := svc.CreateCandidate(ctx, services.Candidate{Category: models.CategoryTeen})
	if !errors.Is(err, services.ErrNameRequired) {
		t.Errorf("expected ErrNameRequired, got %v", err)
	}

	_, err = svc.CreateCandidate(ctx, services.Candidate{Name: "Alice", Category: "senior"})
	if !errors.Is(err, services.ErrInvalidCategory) {
		t.Errorf("expected ErrInvalidCategory, got %v", err)
	}
}

func TestCandidateLifecycle(t *testing.T) {
	svc := setupCandidateService(t)
	ctx := context.Background()

	id, err := svc.CreateCandidate(ctx, services.Candidate{
		Name:     "Alice",
		Category: models.CategoryTeen,
		PhotoURL: "http://example.com/alice.jpg",
	})
	if err != nil {
		t.Fatalf("CreateCandidate failed: %v", err)
	}

	c, err := svc.GetCandidate(ctx, int(id))
	if err != nil {
		t.Fatalf("GetCandidate failed: %v", err)
	}
	if c.Name != "Alice" || c.Category != models.CategoryTeen {
		t.Errorf("unexpected candidate %+v", c)
	}
	if c.IsFinalist {
		t.Error("new candidate must not be a finalist")
	}

	if err := svc.SetFinalist(ctx, int(id), true); err != nil {
		t.Fatalf("SetFinalist failed: %v", err)
	}
	finalists, err := svc.ListFinalists(ctx)
	if err != nil {
		t.Fatalf("ListFinalists failed: %v", err)
	}
	if len(finalists) != 1 || finalists[0].ID != int(id) {
		t.Errorf("expected one finalist %d, got %v", id, finalists)
	}

	if err := svc.UpdateCandidate(ctx, int(id), services.Candidate{
		Name:     "Alice B.",
		Category: models.CategoryAdult,
	}); err != nil {
		t.Fatalf("UpdateCandidate failed: %v", err)
	}
	c, _ = svc.GetCandidate(ctx, int(id))
	if c.Name != "Alice B." || c.Category != models.CategoryAdult {
		t.Errorf("update not applied: %+v", c)
	}

	if err := svc.DeleteCandidate(ctx, int(id)); err != nil {
		t.Fatalf("DeleteCandidate failed: %v", err)
	}
	if _, err := svc.GetCandidate(ctx, int(id)); err == nil {
		t.Error("expected candidate to be gone")
	}
}

func TestListByCategory(t *testing.T) {
	svc := setupCandidateService(t)
	ctx := context.Background()

	svc.CreateCandidate(ctx, services.Candidate{Name: "Zoe", Category: models.CategoryChild})
	svc.CreateCandidate(ctx, services.Candidate{Name: "Amy", Category: models.CategoryChild})
	svc.CreateCandidate(ctx, services.Candidate{Name: "Bruno", Category: models.CategoryAdult})

	children, err := svc.ListByCategory(ctx, models.CategoryChild)
	if err != nil {
		t.Fatalf("ListByCategory failed: %v", err)
	}
	if len(children) != 2 {
		t.Fatalf("expected 2 children, got %d", len(children))
	}
	if children[0].Name != "Amy" || children[1].Name != "Zoe" {
		t.Errorf("expected alphabetical order, got %s, %s", children[0].Name, children[1].Name)
	}
}
