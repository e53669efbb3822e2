package applications

import (
	"context"
	"errors"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/stipendia/stipendia/internal/shared"
)

// Repository defines persistence operations for scholarship applications.
type Repository interface {
	Create(ctx context.Context, input SubmitInput, at time.Time) (int64, error)
	GetByID(ctx context.Context, id int64) (Application, error)
	List(ctx context.Context, filter ListFilter) ([]Application, error)
	// Decide performs the terminal transition guarded on PENDING status.
	// It reports Conflict when the row was already decided.
	Decide(ctx context.Context, id int64, to Status, reviewerID int64, at time.Time, comments string) error
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

const applicationColumns = `id, applicant_id, program_id, period_id, status, submitted_at, reviewer_id, decided_at, comments`

func (r *PGRepository) Create(ctx context.Context, input SubmitInput, at time.Time) (int64, error) {
	var id int64
	err := r.pool.QueryRow(ctx, `
		INSERT INTO scholarship_applications (applicant_id, program_id, period_id, status, submitted_at, comments)
		VALUES ($1, $2, $3, $4, $5, '')
		RETURNING id`,
		input.ApplicantID, input.ProgramID, input.PeriodID, string(StatusPending), at,
	).Scan(&id)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23505" {
			return 0, shared.ErrConflict
		}
		return 0, err
	}
	return id, nil
}

func (r *PGRepository) GetByID(ctx context.Context, id int64) (Application, error) {
	return scanApplication(r.pool.QueryRow(ctx, `SELECT `+applicationColumns+` FROM scholarship_applications WHERE id = $1`, id))
}

func (r *PGRepository) List(ctx context.Context, filter ListFilter) ([]Application, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT `+applicationColumns+` FROM scholarship_applications
		WHERE ($1 = 0 OR applicant_id = $1)
		  AND ($2 = 0 OR program_id = $2)
		  AND ($3 = '' OR status = $3)
		ORDER BY submitted_at DESC`,
		filter.ApplicantID, filter.ProgramID, string(filter.Status))
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []Application
	for rows.Next() {
		app, err := scanApplication(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, app)
	}
	return out, rows.Err()
}

// Decide's conditional UPDATE makes the first terminal transition win; a
// second decision attempt matches zero rows and surfaces as Conflict.
func (r *PGRepository) Decide(ctx context.Context, id int64, to Status, reviewerID int64, at time.Time, comments string) error {
	tag, err := r.pool.Exec(ctx, `
		UPDATE scholarship_applications
		SET status = $2, reviewer_id = $3, decided_at = $4, comments = $5
		WHERE id = $1 AND status = $6`,
		id, string(to), reviewerID, at, comments, string(StatusPending))
	if err != nil {
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

func scanApplication(row pgx.Row) (Application, error) {
	var app Application
	var status string
	err := row.Scan(&app.ID, &app.ApplicantID, &app.ProgramID, &app.PeriodID, &status,
		&app.SubmittedAt, &app.ReviewerID, &app.DecidedAt, &app.Comments)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Application{}, shared.ErrNotFound
		}
		return Application{}, err
	}
	app.Status = Status(status)
	return app, nil
}
