package periods

import (
	"context"
	"fmt"

	"github.com/stipendia/stipendia/internal/shared"
	"github.com/stipendia/stipendia/internal/users"
)

// Service handles academic period business logic.
type Service struct {
	repo Repository
}

// NewService builds a Service instance.
func NewService(repo Repository) *Service {
	return &Service{repo: repo}
}

// Create adds a new academic period. Admin only.
func (s *Service) Create(ctx context.Context, actor users.User, input CreateInput) (AcademicPeriod, error) {
	if !actor.IsAdmin() {
		return AcademicPeriod{}, shared.ErrPermissionDenied
	}
	if !input.EndDate.After(input.StartDate) {
		return AcademicPeriod{}, fmt.Errorf("%w: period end date must follow start date", shared.ErrValidation)
	}
	id, err := s.repo.Create(ctx, input)
	if err != nil {
		return AcademicPeriod{}, err
	}
	return s.repo.GetByID(ctx, id)
}

// Get returns a period by id.
func (s *Service) Get(ctx context.Context, id int64) (AcademicPeriod, error) {
	return s.repo.GetByID(ctx, id)
}
