package ledger

import (
	"context"
	"errors"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/stipendia/stipendia/internal/budgets"
	"github.com/stipendia/stipendia/internal/platform/db"
	"github.com/stipendia/stipendia/internal/programs"
	"github.com/stipendia/stipendia/internal/shared"
)

// Repository defines ledger data access. All mutations run inside WithTx so
// the allocation row and both aggregates commit or roll back together.
type Repository interface {
	WithTx(ctx context.Context, fn func(context.Context, TxRepository) error) error

	GetAllocation(ctx context.Context, id int64) (FundAllocation, error)
	ListAllocationsByBudget(ctx context.Context, budgetID int64) ([]FundAllocation, error)
	ListAllocationsByProgram(ctx context.Context, programID int64) ([]FundAllocation, error)
}

// TxRepository defines operations within one ledger transaction. The ForUpdate
// reads take row locks, so the remaining-amount checks run against rows no
// concurrent allocation can move underneath us.
type TxRepository interface {
	GetBudgetForUpdate(ctx context.Context, id int64) (budgets.Budget, error)
	GetProgramForUpdate(ctx context.Context, id int64) (programs.Program, error)
	InsertAllocation(ctx context.Context, alloc FundAllocation) (int64, error)
	InsertUsage(ctx context.Context, usage FundUsage) (int64, error)
	AddBudgetAllocated(ctx context.Context, budgetID int64, delta float64) error
	AddProgramAllocated(ctx context.Context, programID int64, delta float64) error
	AddProgramUsed(ctx context.Context, programID int64, delta float64) error
}

var _ Repository = (*pgRepository)(nil)
var _ TxRepository = (*pgTxRepository)(nil)

type pgRepository struct {
	pool *pgxpool.Pool
}

// NewRepository constructs a PostgreSQL ledger repository.
func NewRepository(pool *pgxpool.Pool) Repository {
	return &pgRepository{pool: pool}
}

func (r *pgRepository) WithTx(ctx context.Context, fn func(context.Context, TxRepository) error) error {
	return db.WithTx(ctx, r.pool, func(tx pgx.Tx) error {
		return fn(ctx, &pgTxRepository{tx: tx})
	})
}

const allocationColumns = `id, budget_id, program_id, amount, previous_amount, status, allocated_by, allocated_at, notes`

func (r *pgRepository) GetAllocation(ctx context.Context, id int64) (FundAllocation, error) {
	return scanAllocation(r.pool.QueryRow(ctx, `SELECT `+allocationColumns+` FROM fund_allocations WHERE id = $1`, id))
}

func (r *pgRepository) ListAllocationsByBudget(ctx context.Context, budgetID int64) ([]FundAllocation, error) {
	return r.listAllocations(ctx, `SELECT `+allocationColumns+` FROM fund_allocations WHERE budget_id = $1 ORDER BY allocated_at`, budgetID)
}

func (r *pgRepository) ListAllocationsByProgram(ctx context.Context, programID int64) ([]FundAllocation, error) {
	return r.listAllocations(ctx, `SELECT `+allocationColumns+` FROM fund_allocations WHERE program_id = $1 ORDER BY allocated_at`, programID)
}

func (r *pgRepository) listAllocations(ctx context.Context, query string, arg int64) ([]FundAllocation, error) {
	rows, err := r.pool.Query(ctx, query, arg)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []FundAllocation
	for rows.Next() {
		alloc, err := scanAllocation(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, alloc)
	}
	return out, rows.Err()
}

type pgTxRepository struct {
	tx pgx.Tx
}

const budgetColumns = `id, name, fiscal_year, total_amount, allocated_amount, status, start_date, end_date, created_by, created_at, updated_at`

func (t *pgTxRepository) GetBudgetForUpdate(ctx context.Context, id int64) (budgets.Budget, error) {
	return budgets.ScanBudget(t.tx.QueryRow(ctx, `SELECT `+budgetColumns+` FROM budgets WHERE id = $1 FOR UPDATE`, id))
}

func (t *pgTxRepository) GetProgramForUpdate(ctx context.Context, id int64) (programs.Program, error) {
	var p programs.Program
	err := t.tx.QueryRow(ctx, `
		SELECT id, name, description, funding_amount, allocated_amount, used_amount, min_gpa, is_active, application_deadline, created_at, updated_at
		FROM scholarship_programs WHERE id = $1 FOR UPDATE`, id,
	).Scan(&p.ID, &p.Name, &p.Description, &p.FundingAmount, &p.AllocatedAmount, &p.UsedAmount,
		&p.MinGPA, &p.Active, &p.ApplicationDeadline, &p.CreatedAt, &p.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return programs.Program{}, shared.ErrNotFound
		}
		return programs.Program{}, err
	}
	return p, nil
}

func (t *pgTxRepository) InsertAllocation(ctx context.Context, alloc FundAllocation) (int64, error) {
	var id int64
	err := t.tx.QueryRow(ctx, `
		INSERT INTO fund_allocations (budget_id, program_id, amount, previous_amount, status, allocated_by, allocated_at, notes)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		RETURNING id`,
		alloc.BudgetID, alloc.ProgramID, alloc.Amount, alloc.PreviousAmount,
		string(alloc.Status), alloc.AllocatedBy, alloc.AllocatedAt, alloc.Notes,
	).Scan(&id)
	return id, err
}

func (t *pgTxRepository) InsertUsage(ctx context.Context, usage FundUsage) (int64, error) {
	var id int64
	err := t.tx.QueryRow(ctx, `
		INSERT INTO fund_usages (program_id, amount, recorded_by, recorded_at, notes)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING id`,
		usage.ProgramID, usage.Amount, usage.RecordedBy, usage.RecordedAt, usage.Notes,
	).Scan(&id)
	return id, err
}

func (t *pgTxRepository) AddBudgetAllocated(ctx context.Context, budgetID int64, delta float64) error {
	_, err := t.tx.Exec(ctx, `
		UPDATE budgets SET allocated_amount = allocated_amount + $2, updated_at = now()
		WHERE id = $1`, budgetID, delta)
	return err
}

func (t *pgTxRepository) AddProgramAllocated(ctx context.Context, programID int64, delta float64) error {
	_, err := t.tx.Exec(ctx, `
		UPDATE scholarship_programs SET allocated_amount = allocated_amount + $2, updated_at = now()
		WHERE id = $1`, programID, delta)
	return err
}

func (t *pgTxRepository) AddProgramUsed(ctx context.Context, programID int64, delta float64) error {
	_, err := t.tx.Exec(ctx, `
		UPDATE scholarship_programs SET used_amount = used_amount + $2, updated_at = now()
		WHERE id = $1`, programID, delta)
	return err
}

func scanAllocation(row pgx.Row) (FundAllocation, error) {
	var alloc FundAllocation
	var status string
	var at time.Time
	err := row.Scan(&alloc.ID, &alloc.BudgetID, &alloc.ProgramID, &alloc.Amount, &alloc.PreviousAmount,
		&status, &alloc.AllocatedBy, &at, &alloc.Notes)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return FundAllocation{}, shared.ErrNotFound
		}
		return FundAllocation{}, err
	}
	alloc.Status = AllocationStatus(status)
	alloc.AllocatedAt = at
	return alloc, nil
}
