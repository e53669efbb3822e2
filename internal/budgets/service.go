package budgets

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/stipendia/stipendia/internal/shared"
	"github.com/stipendia/stipendia/internal/users"
)

var (
	// ErrActiveBudgetExists signals the active-budget uniqueness rule.
	ErrActiveBudgetExists = errors.New("another budget is already active for the current date")
)

// Service handles budget lifecycle logic.
type Service struct {
	repo Repository
	now  func() time.Time

	// activateMu serializes the uniqueness check and the status update in
	// Activate; the exclusion constraint backstops other processes.
	activateMu sync.Mutex
}

// NewService builds a Service instance.
func NewService(repo Repository) *Service {
	return &Service{repo: repo, now: time.Now}
}

// Create adds a budget in DRAFT. Admin only.
func (s *Service) Create(ctx context.Context, actor users.User, input CreateInput) (Budget, error) {
	if !actor.IsAdmin() {
		return Budget{}, shared.ErrPermissionDenied
	}
	if input.TotalAmount <= 0 {
		return Budget{}, fmt.Errorf("%w: total amount must be positive", shared.ErrValidation)
	}
	if !input.EndDate.After(input.StartDate) {
		return Budget{}, fmt.Errorf("%w: budget end date must follow start date", shared.ErrValidation)
	}
	input.CreatedBy = actor.ID
	id, err := s.repo.Create(ctx, input)
	if err != nil {
		return Budget{}, err
	}
	return s.repo.GetByID(ctx, id)
}

// Activate moves a DRAFT budget to ACTIVE. At most one budget may be ACTIVE
// whose date range contains today.
func (s *Service) Activate(ctx context.Context, actor users.User, id int64) (Budget, error) {
	if !actor.IsAdmin() {
		return Budget{}, shared.ErrPermissionDenied
	}

	s.activateMu.Lock()
	defer s.activateMu.Unlock()

	budget, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return Budget{}, err
	}
	if budget.Status != StatusDraft {
		return Budget{}, fmt.Errorf("%w: budget is %s, only DRAFT budgets can be activated", shared.ErrConflict, budget.Status)
	}
	today := s.now()
	if budget.Covers(today) {
		active, err := s.repo.ActiveCovering(ctx, today)
		if err != nil {
			return Budget{}, err
		}
		for _, other := range active {
			if other.ID != id {
				return Budget{}, fmt.Errorf("%w: budget %d", ErrActiveBudgetExists, other.ID)
			}
		}
	}
	if err := s.repo.UpdateStatus(ctx, id, StatusDraft, StatusActive); err != nil {
		return Budget{}, err
	}
	return s.repo.GetByID(ctx, id)
}

// Close moves an ACTIVE budget to CLOSED. Never backward.
func (s *Service) Close(ctx context.Context, actor users.User, id int64) (Budget, error) {
	if !actor.IsAdmin() {
		return Budget{}, shared.ErrPermissionDenied
	}
	budget, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return Budget{}, err
	}
	if budget.Status != StatusActive {
		return Budget{}, fmt.Errorf("%w: budget is %s, only ACTIVE budgets can be closed", shared.ErrConflict, budget.Status)
	}
	if err := s.repo.UpdateStatus(ctx, id, StatusActive, StatusClosed); err != nil {
		return Budget{}, err
	}
	return s.repo.GetByID(ctx, id)
}

// Get returns a budget by id.
func (s *Service) Get(ctx context.Context, id int64) (Budget, error) {
	return s.repo.GetByID(ctx, id)
}

// List returns all budgets, newest fiscal year first.
func (s *Service) List(ctx context.Context) ([]Budget, error) {
	return s.repo.List(ctx)
}
