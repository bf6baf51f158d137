package services

import (
	"context"

	"github.com/abarreto/stagevote/internal/errors"
	"github.com/abarreto/stagevote/internal/logger"
	"github.com/abarreto/stagevote/internal/models"
	"github.com/abarreto/stagevote/internal/repository"
)

// CandidateService handles the contestant roster
type CandidateService struct {
	log  logger.Logger
	repo repository.CandidateRepository
}

// NewCandidateService creates a new CandidateService
func NewCandidateService(log logger.Logger, repo repository.CandidateRepository) *CandidateService {
	return &CandidateService{log: log, repo: repo}
}

// Candidate carries candidate fields for create/update operations
type Candidate struct {
	Name       string          `json:"name"`
	Category   models.Category `json:"category"`
	PhotoURL   string          `json:"photo_url"`
	IsFinalist bool            `json:"is_finalist"`
}

func validateCandidate(c Candidate) error {
	if c.Name == "" {
		return ErrNameRequired
	}
	switch c.Category {
	case models.CategoryChild, models.CategoryTeen, models.CategoryAdult:
		return nil
	default:
		return ErrInvalidCategory
	}
}

// ListCandidates returns all candidates
func (s *CandidateService) ListCandidates(ctx context.Context) ([]models.Candidate, error) {
	return s.repo.ListCandidates(ctx)
}

// ListByCategory returns candidates in one age bracket. This is the
// reveal sequencer's candidate pool for the current category.
func (s *CandidateService) ListByCategory(ctx context.Context, category models.Category) ([]models.Candidate, error) {
	return s.repo.ListCandidatesByCategory(ctx, category)
}

// ListFinalists returns finalists in stage order
func (s *CandidateService) ListFinalists(ctx context.Context) ([]models.Candidate, error) {
	return s.repo.ListFinalists(ctx)
}

// GetCandidate retrieves one candidate
func (s *CandidateService) GetCandidate(ctx context.Context, id int) (*models.Candidate, error) {
	c, err := s.repo.GetCandidate(ctx, id)
	if err == repository.ErrNotFound {
		return nil, errors.NotFoundf("candidate %d not found", id)
	}
	return c, err
}

// CreateCandidate creates a new candidate
func (s *CandidateService) CreateCandidate(ctx context.Context, c Candidate) (int64, error) {
	if err := validateCandidate(c); err != nil {
		return 0, err
	}
	id, err := s.repo.CreateCandidate(ctx, c.Name, c.Category, c.PhotoURL, c.IsFinalist)
	if err != nil {
		return 0, errors.Wrap(err, errors.ErrInternal, "create candidate")
	}
	s.log.Info("Candidate created", "candidate_id", id, "name", c.Name)
	return id, nil
}

// UpdateCandidate updates a candidate
func (s *CandidateService) UpdateCandidate(ctx context.Context, id int, c Candidate) error {
	if err := validateCandidate(c); err != nil {
		return err
	}
	err := s.repo.UpdateCandidate(ctx, id, c.Name, c.Category, c.PhotoURL, c.IsFinalist)
	if err == repository.ErrNotFound {
		return errors.NotFoundf("candidate %d not found", id)
	}
	return err
}

// SetFinalist flags a candidate as advancing to the finale
func (s *CandidateService) SetFinalist(ctx context.Context, id int, finalist bool) error {
	return s.repo.SetFinalist(ctx, id, finalist)
}

// DeleteCandidate removes a candidate
func (s *CandidateService) DeleteCandidate(ctx context.Context, id int) error {
	return s.repo.DeleteCandidate(ctx, id)
}
