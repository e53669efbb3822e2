package budgets

import (
	"context"
	"errors"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/stipendia/stipendia/internal/shared"
)

// Repository defines persistence operations for budgets.
type Repository interface {
	Create(ctx context.Context, input CreateInput) (int64, error)
	GetByID(ctx context.Context, id int64) (Budget, error)
	List(ctx context.Context) ([]Budget, error)
	// UpdateStatus moves a budget from one status to another; it reports
	// Conflict when the row is no longer in the expected status.
	UpdateStatus(ctx context.Context, id int64, from, to Status) error
	// ActiveCovering returns active budgets whose date range contains at.
	ActiveCovering(ctx context.Context, at time.Time) ([]Budget, error)
}

// PGRepository implements Repository using PostgreSQL.
type PGRepository struct {
	pool *pgxpool.Pool
}

// NewRepository constructs a PostgreSQL repository.
func NewRepository(pool *pgxpool.Pool) *PGRepository {
	return &PGRepository{pool: pool}
}

var _ Repository = (*PGRepository)(nil)

const budgetColumns = `id, name, fiscal_year, total_amount, allocated_amount, status, start_date, end_date, created_by, created_at, updated_at`

func (r *PGRepository) Create(ctx context.Context, input CreateInput) (int64, error) {
	var id int64
	err := r.pool.QueryRow(ctx, `
		INSERT INTO budgets (name, fiscal_year, total_amount, allocated_amount, status, start_date, end_date, created_by)
		VALUES ($1, $2, $3, 0, $4, $5, $6, $7)
		RETURNING id`,
		input.Name, input.FiscalYear, input.TotalAmount, string(StatusDraft), input.StartDate, input.EndDate, input.CreatedBy,
	).Scan(&id)
	return id, err
}

func (r *PGRepository) GetByID(ctx context.Context, id int64) (Budget, error) {
	return ScanBudget(r.pool.QueryRow(ctx, `SELECT `+budgetColumns+` FROM budgets WHERE id = $1`, id))
}

func (r *PGRepository) List(ctx context.Context) ([]Budget, error) {
	rows, err := r.pool.Query(ctx, `SELECT `+budgetColumns+` FROM budgets ORDER BY fiscal_year DESC, id DESC`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []Budget
	for rows.Next() {
		b, err := ScanBudget(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, b)
	}
	return out, rows.Err()
}

func (r *PGRepository) UpdateStatus(ctx context.Context, id int64, from, to Status) error {
	tag, err := r.pool.Exec(ctx, `
		UPDATE budgets SET status = $3, updated_at = now()
		WHERE id = $1 AND status = $2`,
		id, string(from), string(to))
	if err != nil {
		// The active-range exclusion constraint backstops concurrent
		// activations of overlapping budgets.
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23P01" {
			return ErrActiveBudgetExists
		}
		return err
	}
	if tag.RowsAffected() == 0 {
		if _, err := r.GetByID(ctx, id); err != nil {
			return err
		}
		return shared.ErrConflict
	}
	return nil
}

func (r *PGRepository) ActiveCovering(ctx context.Context, at time.Time) ([]Budget, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT `+budgetColumns+` FROM budgets
		WHERE status = $1 AND start_date <= $2 AND end_date >= $2`,
		string(StatusActive), at)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []Budget
	for rows.Next() {
		b, err := ScanBudget(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, b)
	}
	return out, rows.Err()
}

// ScanBudget maps one budget row. Shared with the ledger repository, which
// re-reads budget rows under row locks.
func ScanBudget(row pgx.Row) (Budget, error) {
	var b Budget
	var status string
	err := row.Scan(&b.ID, &b.Name, &b.FiscalYear, &b.TotalAmount, &b.AllocatedAmount, &status,
		&b.StartDate, &b.EndDate, &b.CreatedBy, &b.CreatedAt, &b.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Budget{}, shared.ErrNotFound
		}
		return Budget{}, err
	}
	b.Status = Status(status)
	return b, nil
}
