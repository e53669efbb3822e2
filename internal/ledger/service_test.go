package ledger

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/stipendia/stipendia/internal/budgets"
	"github.com/stipendia/stipendia/internal/programs"
	"github.com/stipendia/stipendia/internal/shared"
	"github.com/stipendia/stipendia/internal/users"
)

type memoryLedgerRepo struct {
	mu          sync.Mutex
	budgets     map[int64]budgets.Budget
	programs    map[int64]programs.Program
	allocations map[int64]FundAllocation
	usages      map[int64]FundUsage
	nextAlloc   int64
	nextUsage   int64

	failProgramUpdate bool
}

type memoryLedgerTx struct {
	budgets     map[int64]budgets.Budget
	programs    map[int64]programs.Program
	allocations map[int64]FundAllocation
	usages      map[int64]FundUsage
	repo        *memoryLedgerRepo
}

func newMemoryLedgerRepo() *memoryLedgerRepo {
	return &memoryLedgerRepo{
		budgets:     make(map[int64]budgets.Budget),
		programs:    make(map[int64]programs.Program),
		allocations: make(map[int64]FundAllocation),
		usages:      make(map[int64]FundUsage),
	}
}

func cloneMap[K comparable, V any](in map[K]V) map[K]V {
	out := make(map[K]V, len(in))
	for k, v := range in {
		out[k] = v
	}
	return out
}

// WithTx stages every mutation on copies and publishes them only when fn
// succeeds, mirroring the rollback behavior of the SQL implementation.
func (r *memoryLedgerRepo) WithTx(ctx context.Context, fn func(context.Context, TxRepository) error) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	tx := &memoryLedgerTx{
		budgets:     cloneMap(r.budgets),
		programs:    cloneMap(r.programs),
		allocations: cloneMap(r.allocations),
		usages:      cloneMap(r.usages),
		repo:        r,
	}
	if err := fn(ctx, tx); err != nil {
		return err
	}
	r.budgets = tx.budgets
	r.programs = tx.programs
	r.allocations = tx.allocations
	r.usages = tx.usages
	return nil
}

func (r *memoryLedgerRepo) GetAllocation(ctx context.Context, id int64) (FundAllocation, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	alloc, ok := r.allocations[id]
	if !ok {
		return FundAllocation{}, shared.ErrNotFound
	}
	return alloc, nil
}

func (r *memoryLedgerRepo) ListAllocationsByBudget(ctx context.Context, budgetID int64) ([]FundAllocation, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []FundAllocation
	for _, alloc := range r.allocations {
		if alloc.BudgetID == budgetID {
			out = append(out, alloc)
		}
	}
	return out, nil
}

func (r *memoryLedgerRepo) ListAllocationsByProgram(ctx context.Context, programID int64) ([]FundAllocation, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []FundAllocation
	for _, alloc := range r.allocations {
		if alloc.ProgramID == programID {
			out = append(out, alloc)
		}
	}
	return out, nil
}

func (t *memoryLedgerTx) GetBudgetForUpdate(ctx context.Context, id int64) (budgets.Budget, error) {
	b, ok := t.budgets[id]
	if !ok {
		return budgets.Budget{}, shared.ErrNotFound
	}
	return b, nil
}

func (t *memoryLedgerTx) GetProgramForUpdate(ctx context.Context, id int64) (programs.Program, error) {
	p, ok := t.programs[id]
	if !ok {
		return programs.Program{}, shared.ErrNotFound
	}
	return p, nil
}

func (t *memoryLedgerTx) InsertAllocation(ctx context.Context, alloc FundAllocation) (int64, error) {
	t.repo.nextAlloc++
	alloc.ID = t.repo.nextAlloc
	t.allocations[alloc.ID] = alloc
	return alloc.ID, nil
}

func (t *memoryLedgerTx) InsertUsage(ctx context.Context, usage FundUsage) (int64, error) {
	t.repo.nextUsage++
	usage.ID = t.repo.nextUsage
	t.usages[usage.ID] = usage
	return usage.ID, nil
}

func (t *memoryLedgerTx) AddBudgetAllocated(ctx context.Context, budgetID int64, delta float64) error {
	b := t.budgets[budgetID]
	b.AllocatedAmount += delta
	t.budgets[budgetID] = b
	return nil
}

func (t *memoryLedgerTx) AddProgramAllocated(ctx context.Context, programID int64, delta float64) error {
	if t.repo.failProgramUpdate {
		return errors.New("storage outage")
	}
	p := t.programs[programID]
	p.AllocatedAmount += delta
	t.programs[programID] = p
	return nil
}

func (t *memoryLedgerTx) AddProgramUsed(ctx context.Context, programID int64, delta float64) error {
	p := t.programs[programID]
	p.UsedAmount += delta
	t.programs[programID] = p
	return nil
}

var (
	adminUser   = users.User{ID: 1, Username: "bursar", Role: users.RoleAdmin, Active: true}
	studentUser = users.User{ID: 2, Username: "amina", Role: users.RoleStudent, Active: true}
)

func newLedgerFixture(t *testing.T) (*Service, *memoryLedgerRepo) {
	t.Helper()
	repo := newMemoryLedgerRepo()
	repo.budgets[1] = budgets.Budget{
		ID: 1, Name: "FY2026", FiscalYear: 2026, TotalAmount: 10000,
		Status: budgets.StatusActive,
		StartDate: time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC),
		EndDate:   time.Date(2026, 12, 31, 0, 0, 0, 0, time.UTC),
	}
	repo.programs[10] = programs.Program{ID: 10, Name: "Merit Award", FundingAmount: 20000, Active: true}
	return NewService(repo, nil, nil), repo
}

func TestAllocateFundsScenario(t *testing.T) {
	svc, repo := newLedgerFixture(t)
	ctx := context.Background()

	result, err := svc.AllocateFunds(ctx, adminUser, AllocateInput{BudgetID: 1, ProgramID: 10, Amount: 4000, ActingUser: adminUser.ID})
	require.NoError(t, err)
	require.Equal(t, 6000.0, result.BudgetRemaining)
	require.Equal(t, 4000.0, result.ProgramAllocated)
	require.Equal(t, 0.0, result.Allocation.PreviousAmount)
	require.Equal(t, AllocationApproved, result.Allocation.Status)

	_, err = svc.AllocateFunds(ctx, adminUser, AllocateInput{BudgetID: 1, ProgramID: 10, Amount: 7000, ActingUser: adminUser.ID})
	require.ErrorIs(t, err, shared.ErrInsufficientFunds)

	// State unchanged by the rejected allocation.
	require.Equal(t, 4000.0, repo.budgets[1].AllocatedAmount)
	require.Equal(t, 4000.0, repo.programs[10].AllocatedAmount)
	require.Len(t, repo.allocations, 1)
}

func TestAllocateFundsConservation(t *testing.T) {
	svc, repo := newLedgerFixture(t)
	ctx := context.Background()

	amounts := []float64{1200, 800, 2500, 1500}
	for _, amount := range amounts {
		_, err := svc.AllocateFunds(ctx, adminUser, AllocateInput{BudgetID: 1, ProgramID: 10, Amount: amount, ActingUser: adminUser.ID})
		require.NoError(t, err)
	}

	allocs, err := svc.ListAllocationsByBudget(ctx, 1)
	require.NoError(t, err)
	var sum float64
	for _, alloc := range allocs {
		sum += alloc.Amount
	}
	budget := repo.budgets[1]
	require.Equal(t, sum, budget.AllocatedAmount)
	require.Equal(t, sum, repo.programs[10].AllocatedAmount)
	require.GreaterOrEqual(t, budget.RemainingAmount(), 0.0)
}

func TestAllocateFundsNoOverdrawUnderConcurrency(t *testing.T) {
	svc, repo := newLedgerFixture(t)
	ctx := context.Background()

	// 25 concurrent allocations of 1000 against a 10000 budget: exactly the
	// subset that fits must succeed.
	const callers = 25
	var wg sync.WaitGroup
	errs := make([]error, callers)
	for i := 0; i < callers; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, errs[i] = svc.AllocateFunds(ctx, adminUser, AllocateInput{BudgetID: 1, ProgramID: 10, Amount: 1000, ActingUser: adminUser.ID})
		}(i)
	}
	wg.Wait()

	succeeded := 0
	for _, err := range errs {
		if err == nil {
			succeeded++
		} else {
			require.ErrorIs(t, err, shared.ErrInsufficientFunds)
		}
	}
	require.Equal(t, 10, succeeded)
	require.Equal(t, 10000.0, repo.budgets[1].AllocatedAmount)
	require.Equal(t, 0.0, repo.budgets[1].RemainingAmount())
	require.Len(t, repo.allocations, 10)
}

func TestAllocateFundsGuards(t *testing.T) {
	svc, repo := newLedgerFixture(t)
	ctx := context.Background()

	_, err := svc.AllocateFunds(ctx, studentUser, AllocateInput{BudgetID: 1, ProgramID: 10, Amount: 100})
	require.ErrorIs(t, err, shared.ErrPermissionDenied)

	_, err = svc.AllocateFunds(ctx, adminUser, AllocateInput{BudgetID: 1, ProgramID: 10, Amount: 0})
	require.ErrorIs(t, err, shared.ErrValidation)

	_, err = svc.AllocateFunds(ctx, adminUser, AllocateInput{BudgetID: 99, ProgramID: 10, Amount: 100})
	require.ErrorIs(t, err, shared.ErrNotFound)

	_, err = svc.AllocateFunds(ctx, adminUser, AllocateInput{BudgetID: 1, ProgramID: 99, Amount: 100})
	require.ErrorIs(t, err, shared.ErrNotFound)

	draft := repo.budgets[1]
	draft.Status = budgets.StatusDraft
	repo.budgets[1] = draft
	_, err = svc.AllocateFunds(ctx, adminUser, AllocateInput{BudgetID: 1, ProgramID: 10, Amount: 100})
	require.ErrorIs(t, err, shared.ErrConflict)
}

func TestAllocateFundsRollsBackOnPartialFailure(t *testing.T) {
	svc, repo := newLedgerFixture(t)
	ctx := context.Background()

	repo.failProgramUpdate = true
	_, err := svc.AllocateFunds(ctx, adminUser, AllocateInput{BudgetID: 1, ProgramID: 10, Amount: 1000, ActingUser: adminUser.ID})
	require.Error(t, err)

	// No partial ledger effects: neither the allocation row nor the budget
	// aggregate survived the failed transaction.
	require.Empty(t, repo.allocations)
	require.Equal(t, 0.0, repo.budgets[1].AllocatedAmount)
	require.Equal(t, 0.0, repo.programs[10].AllocatedAmount)
}

func TestRecordFundUsage(t *testing.T) {
	svc, repo := newLedgerFixture(t)
	ctx := context.Background()

	_, err := svc.AllocateFunds(ctx, adminUser, AllocateInput{BudgetID: 1, ProgramID: 10, Amount: 5000, ActingUser: adminUser.ID})
	require.NoError(t, err)

	usage, err := svc.RecordFundUsage(ctx, adminUser, UsageInput{ProgramID: 10, Amount: 3000, ActingUser: adminUser.ID})
	require.NoError(t, err)
	require.Equal(t, 3000.0, usage.Amount)
	require.Equal(t, 3000.0, repo.programs[10].UsedAmount)
	require.Equal(t, 2000.0, repo.programs[10].RemainingAmount())

	_, err = svc.RecordFundUsage(ctx, adminUser, UsageInput{ProgramID: 10, Amount: 2500, ActingUser: adminUser.ID})
	require.ErrorIs(t, err, shared.ErrInsufficientFunds)
	require.Equal(t, 3000.0, repo.programs[10].UsedAmount)

	_, err = svc.RecordFundUsage(ctx, studentUser, UsageInput{ProgramID: 10, Amount: 10})
	require.ErrorIs(t, err, shared.ErrPermissionDenied)
}

func TestRecordFundUsageConcurrentBound(t *testing.T) {
	svc, repo := newLedgerFixture(t)
	ctx := context.Background()

	_, err := svc.AllocateFunds(ctx, adminUser, AllocateInput{BudgetID: 1, ProgramID: 10, Amount: 4000, ActingUser: adminUser.ID})
	require.NoError(t, err)

	const callers = 10
	var wg sync.WaitGroup
	errs := make([]error, callers)
	for i := 0; i < callers; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, errs[i] = svc.RecordFundUsage(ctx, adminUser, UsageInput{ProgramID: 10, Amount: 1000, ActingUser: adminUser.ID})
		}(i)
	}
	wg.Wait()

	succeeded := 0
	for _, err := range errs {
		if err == nil {
			succeeded++
		}
	}
	require.Equal(t, 4, succeeded)
	require.Equal(t, 4000.0, repo.programs[10].UsedAmount)
}
