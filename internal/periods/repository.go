package periods

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/stipendia/stipendia/internal/shared"
)

// Repository defines persistence operations for academic periods.
type Repository interface {
	Create(ctx context.Context, input CreateInput) (int64, error)
	GetByID(ctx context.Context, id int64) (AcademicPeriod, error)
	List(ctx context.Context) ([]AcademicPeriod, error)
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

func (r *PGRepository) Create(ctx context.Context, input CreateInput) (int64, error) {
	var id int64
	err := r.pool.QueryRow(ctx, `
		INSERT INTO academic_periods (name, start_date, end_date, is_active)
		VALUES ($1, $2, $3, true)
		RETURNING id`,
		input.Name, input.StartDate, input.EndDate,
	).Scan(&id)
	return id, err
}

func (r *PGRepository) GetByID(ctx context.Context, id int64) (AcademicPeriod, error) {
	var p AcademicPeriod
	err := r.pool.QueryRow(ctx, `
		SELECT id, name, start_date, end_date, is_active, created_at
		FROM academic_periods WHERE id = $1`, id,
	).Scan(&p.ID, &p.Name, &p.StartDate, &p.EndDate, &p.Active, &p.CreatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return AcademicPeriod{}, shared.ErrNotFound
		}
		return AcademicPeriod{}, err
	}
	return p, nil
}

func (r *PGRepository) List(ctx context.Context) ([]AcademicPeriod, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT id, name, start_date, end_date, is_active, created_at
		FROM academic_periods ORDER BY start_date DESC`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []AcademicPeriod
	for rows.Next() {
		var p AcademicPeriod
		if err := rows.Scan(&p.ID, &p.Name, &p.StartDate, &p.EndDate, &p.Active, &p.CreatedAt); err != nil {
			return nil, err
		}
		out = append(out, p)
	}
	return out, rows.Err()
}
