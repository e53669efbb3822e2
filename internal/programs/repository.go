package programs

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/stipendia/stipendia/internal/shared"
)

// Repository defines persistence operations for scholarship programs.
type Repository interface {
	Create(ctx context.Context, input CreateInput) (int64, error)
	GetByID(ctx context.Context, id int64) (Program, error)
	ListActive(ctx context.Context) ([]Program, error)
	Update(ctx context.Context, id int64, input UpdateInput) error
	DeactivateExpired(ctx context.Context) (int64, error)
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

const programColumns = `id, name, description, funding_amount, allocated_amount, used_amount, min_gpa, is_active, application_deadline, created_at, updated_at`

func (r *PGRepository) Create(ctx context.Context, input CreateInput) (int64, error) {
	var id int64
	err := r.pool.QueryRow(ctx, `
		INSERT INTO scholarship_programs (name, description, funding_amount, allocated_amount, used_amount, min_gpa, is_active, application_deadline)
		VALUES ($1, $2, $3, 0, 0, $4, true, $5)
		RETURNING id`,
		input.Name, input.Description, input.FundingAmount, input.MinGPA, input.ApplicationDeadline,
	).Scan(&id)
	return id, err
}

func (r *PGRepository) GetByID(ctx context.Context, id int64) (Program, error) {
	return scanProgram(r.pool.QueryRow(ctx, `SELECT `+programColumns+` FROM scholarship_programs WHERE id = $1`, id))
}

func (r *PGRepository) ListActive(ctx context.Context) ([]Program, error) {
	rows, err := r.pool.Query(ctx, `SELECT `+programColumns+` FROM scholarship_programs WHERE is_active ORDER BY application_deadline`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []Program
	for rows.Next() {
		p, err := scanProgram(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, p)
	}
	return out, rows.Err()
}

func (r *PGRepository) Update(ctx context.Context, id int64, input UpdateInput) error {
	tag, err := r.pool.Exec(ctx, `
		UPDATE scholarship_programs SET
			name = COALESCE($2, name),
			description = COALESCE($3, description),
			funding_amount = COALESCE($4, funding_amount),
			min_gpa = COALESCE($5, min_gpa),
			application_deadline = COALESCE($6, application_deadline),
			is_active = COALESCE($7, is_active),
			updated_at = now()
		WHERE id = $1`,
		id, input.Name, input.Description, input.FundingAmount, input.MinGPA, input.ApplicationDeadline, input.Active)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return shared.ErrNotFound
	}
	return nil
}

// DeactivateExpired flips the active flag on programs past their deadline.
// Called from the background sweep.
func (r *PGRepository) DeactivateExpired(ctx context.Context) (int64, error) {
	tag, err := r.pool.Exec(ctx, `
		UPDATE scholarship_programs SET is_active = false, updated_at = now()
		WHERE is_active AND application_deadline < now()`)
	if err != nil {
		return 0, err
	}
	return tag.RowsAffected(), nil
}

func scanProgram(row pgx.Row) (Program, error) {
	var p Program
	err := row.Scan(&p.ID, &p.Name, &p.Description, &p.FundingAmount, &p.AllocatedAmount, &p.UsedAmount,
		&p.MinGPA, &p.Active, &p.ApplicationDeadline, &p.CreatedAt, &p.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Program{}, shared.ErrNotFound
		}
		return Program{}, err
	}
	return p, nil
}
