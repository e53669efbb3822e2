package programs

import (
	"context"
	"fmt"

	"github.com/stipendia/stipendia/internal/shared"
	"github.com/stipendia/stipendia/internal/users"
)

// Service handles scholarship program business logic.
type Service struct {
	repo  Repository
	cache *ListCache
}

// NewService builds a Service instance. cache may be nil.
func NewService(repo Repository, cache *ListCache) *Service {
	return &Service{repo: repo, cache: cache}
}

// Create adds a new program. Admin only.
func (s *Service) Create(ctx context.Context, actor users.User, input CreateInput) (Program, error) {
	if !actor.IsAdmin() {
		return Program{}, shared.ErrPermissionDenied
	}
	if input.FundingAmount <= 0 {
		return Program{}, fmt.Errorf("%w: funding amount must be positive", shared.ErrValidation)
	}
	if input.ApplicationDeadline.IsZero() {
		return Program{}, fmt.Errorf("%w: application deadline is required", shared.ErrValidation)
	}
	id, err := s.repo.Create(ctx, input)
	if err != nil {
		return Program{}, err
	}
	s.cache.Invalidate(ctx)
	return s.repo.GetByID(ctx, id)
}

// Update edits program fields. Admin only. Funding and allocation aggregates
// are not writable here; those belong to the ledger engine.
func (s *Service) Update(ctx context.Context, actor users.User, id int64, input UpdateInput) (Program, error) {
	if !actor.IsAdmin() {
		return Program{}, shared.ErrPermissionDenied
	}
	if input.FundingAmount != nil && *input.FundingAmount <= 0 {
		return Program{}, fmt.Errorf("%w: funding amount must be positive", shared.ErrValidation)
	}
	if err := s.repo.Update(ctx, id, input); err != nil {
		return Program{}, err
	}
	s.cache.Invalidate(ctx)
	return s.repo.GetByID(ctx, id)
}

// Get returns a program by id.
func (s *Service) Get(ctx context.Context, id int64) (Program, error) {
	return s.repo.GetByID(ctx, id)
}

// ListActive returns active programs, served from the cache when warm.
func (s *Service) ListActive(ctx context.Context) ([]Program, error) {
	return s.cache.Get(ctx, s.repo.ListActive)
}

// InvalidateListing drops the cached listing. The ledger engine calls this
// after allocations change program aggregates.
func (s *Service) InvalidateListing(ctx context.Context) {
	s.cache.Invalidate(ctx)
}
