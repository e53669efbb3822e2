package ledger

import (
	"context"
	"fmt"
	"time"

	"golang.org/x/text/language"
	"golang.org/x/text/message"

	"github.com/stipendia/stipendia/internal/audit"
	"github.com/stipendia/stipendia/internal/budgets"
	"github.com/stipendia/stipendia/internal/shared"
	"github.com/stipendia/stipendia/internal/users"
)

// ListingInvalidator drops cached program listings after aggregates move.
type ListingInvalidator interface {
	InvalidateListing(ctx context.Context)
}

// Service is the fund ledger engine. It keeps a budget, a program, and the
// fund allocation rows linking them mutually consistent: the allocation insert
// and both aggregate updates commit as one transaction against row-locked
// reads, and an in-process keyed mutex serializes allocations per budget so
// the same discipline holds for non-locking repository implementations.
type Service struct {
	repo      Repository
	auditor   audit.Recorder
	listings  ListingInvalidator
	budgetMu  *shared.KeyedMutex
	programMu *shared.KeyedMutex
	printer   *message.Printer
	now       func() time.Time
}

// NewService builds the ledger engine. auditor and listings may be nil.
func NewService(repo Repository, auditor audit.Recorder, listings ListingInvalidator) *Service {
	if auditor == nil {
		auditor = audit.Noop{}
	}
	return &Service{
		repo:      repo,
		auditor:   auditor,
		listings:  listings,
		budgetMu:  shared.NewKeyedMutex(),
		programMu: shared.NewKeyedMutex(),
		printer:   message.NewPrinter(language.English),
		now:       time.Now,
	}
}

// AllocateFunds moves money from an ACTIVE budget into a program's allocated
// pool. Admin only. The remaining-amount check is re-run against the locked
// budget row inside the transaction, so two concurrent allocations cannot
// jointly overdraw the budget.
func (s *Service) AllocateFunds(ctx context.Context, actor users.User, input AllocateInput) (AllocationResult, error) {
	if !actor.IsAdmin() {
		return AllocationResult{}, shared.ErrPermissionDenied
	}
	if input.Amount <= 0 {
		return AllocationResult{}, fmt.Errorf("%w: allocation amount must be positive", shared.ErrValidation)
	}

	s.budgetMu.Lock(input.BudgetID)
	defer s.budgetMu.Unlock(input.BudgetID)

	var result AllocationResult
	err := s.repo.WithTx(ctx, func(ctx context.Context, tx TxRepository) error {
		budget, err := tx.GetBudgetForUpdate(ctx, input.BudgetID)
		if err != nil {
			return fmt.Errorf("load budget: %w", err)
		}
		if budget.Status != budgets.StatusActive {
			return fmt.Errorf("%w: cannot allocate from inactive budget", shared.ErrConflict)
		}
		if budget.RemainingAmount() < input.Amount {
			return fmt.Errorf("%w: requested %s exceeds remaining %s",
				shared.ErrInsufficientFunds,
				s.printer.Sprintf("%.2f", input.Amount),
				s.printer.Sprintf("%.2f", budget.RemainingAmount()))
		}

		program, err := tx.GetProgramForUpdate(ctx, input.ProgramID)
		if err != nil {
			return fmt.Errorf("load program: %w", err)
		}
		if !program.Active {
			return fmt.Errorf("%w: cannot allocate to an inactive program", shared.ErrConflict)
		}

		alloc := FundAllocation{
			BudgetID:       budget.ID,
			ProgramID:      program.ID,
			Amount:         input.Amount,
			PreviousAmount: program.AllocatedAmount,
			Status:         AllocationApproved,
			AllocatedBy:    input.ActingUser,
			AllocatedAt:    s.now().UTC(),
			Notes:          input.Notes,
		}
		id, err := tx.InsertAllocation(ctx, alloc)
		if err != nil {
			return fmt.Errorf("insert allocation: %w", err)
		}
		alloc.ID = id

		if err := tx.AddBudgetAllocated(ctx, budget.ID, input.Amount); err != nil {
			return fmt.Errorf("update budget: %w", err)
		}
		if err := tx.AddProgramAllocated(ctx, program.ID, input.Amount); err != nil {
			return fmt.Errorf("update program: %w", err)
		}

		result = AllocationResult{
			Allocation:       alloc,
			BudgetRemaining:  budget.RemainingAmount() - input.Amount,
			ProgramAllocated: program.AllocatedAmount + input.Amount,
		}
		return nil
	})
	if err != nil {
		return AllocationResult{}, err
	}

	if s.listings != nil {
		s.listings.InvalidateListing(ctx)
	}
	s.auditor.Record(ctx, audit.Entry{
		ActorID:  input.ActingUser,
		Action:   "ledger.allocate",
		Entity:   "fund_allocation",
		EntityID: result.Allocation.ID,
		Amount:   input.Amount,
		Note:     input.Notes,
	})
	return result, nil
}

// RecordFundUsage consumes part of a program's allocated pool. Admin only.
// Usage is bounded by the allocated amount, checked against the locked row.
func (s *Service) RecordFundUsage(ctx context.Context, actor users.User, input UsageInput) (FundUsage, error) {
	if !actor.IsAdmin() {
		return FundUsage{}, shared.ErrPermissionDenied
	}
	if input.Amount <= 0 {
		return FundUsage{}, fmt.Errorf("%w: usage amount must be positive", shared.ErrValidation)
	}

	s.programMu.Lock(input.ProgramID)
	defer s.programMu.Unlock(input.ProgramID)

	var usage FundUsage
	err := s.repo.WithTx(ctx, func(ctx context.Context, tx TxRepository) error {
		program, err := tx.GetProgramForUpdate(ctx, input.ProgramID)
		if err != nil {
			return fmt.Errorf("load program: %w", err)
		}
		if program.RemainingAmount() < input.Amount {
			return fmt.Errorf("%w: requested %s exceeds program remaining %s",
				shared.ErrInsufficientFunds,
				s.printer.Sprintf("%.2f", input.Amount),
				s.printer.Sprintf("%.2f", program.RemainingAmount()))
		}

		usage = FundUsage{
			ProgramID:  program.ID,
			Amount:     input.Amount,
			RecordedBy: input.ActingUser,
			RecordedAt: s.now().UTC(),
			Notes:      input.Notes,
		}
		id, err := tx.InsertUsage(ctx, usage)
		if err != nil {
			return fmt.Errorf("insert usage: %w", err)
		}
		usage.ID = id

		if err := tx.AddProgramUsed(ctx, program.ID, input.Amount); err != nil {
			return fmt.Errorf("update program: %w", err)
		}
		return nil
	})
	if err != nil {
		return FundUsage{}, err
	}

	if s.listings != nil {
		s.listings.InvalidateListing(ctx)
	}
	s.auditor.Record(ctx, audit.Entry{
		ActorID:  input.ActingUser,
		Action:   "ledger.use",
		Entity:   "fund_usage",
		EntityID: usage.ID,
		Amount:   input.Amount,
		Note:     input.Notes,
	})
	return usage, nil
}

// ListAllocationsByBudget returns the allocation rows for one budget.
func (s *Service) ListAllocationsByBudget(ctx context.Context, budgetID int64) ([]FundAllocation, error) {
	return s.repo.ListAllocationsByBudget(ctx, budgetID)
}

// ListAllocationsByProgram returns the allocation rows for one program.
func (s *Service) ListAllocationsByProgram(ctx context.Context, programID int64) ([]FundAllocation, error) {
	return s.repo.ListAllocationsByProgram(ctx, programID)
}
