package users

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/stipendia/stipendia/internal/shared"
)

// Repository defines persistence operations for user accounts.
type Repository interface {
	Create(ctx context.Context, user User) (int64, error)
	GetByID(ctx context.Context, id int64) (User, error)
	GetByUsername(ctx context.Context, username string) (User, error)
	UpdateStatus(ctx context.Context, id int64, active bool) error
	UpdateProfile(ctx context.Context, id int64, update ProfileUpdate) error
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

const userColumns = `id, username, password_hash, full_name, email, role, is_active, gpa, enrollment_year, created_at, updated_at`

func (r *PGRepository) Create(ctx context.Context, user User) (int64, error) {
	var id int64
	err := r.pool.QueryRow(ctx, `
		INSERT INTO users (username, password_hash, full_name, email, role, is_active, gpa, enrollment_year)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		RETURNING id`,
		user.Username, user.PasswordHash, user.FullName, user.Email, string(user.Role), user.Active, user.GPA, user.EnrollmentYear,
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

func (r *PGRepository) GetByID(ctx context.Context, id int64) (User, error) {
	return r.scanOne(r.pool.QueryRow(ctx, `SELECT `+userColumns+` FROM users WHERE id = $1`, id))
}

func (r *PGRepository) GetByUsername(ctx context.Context, username string) (User, error) {
	return r.scanOne(r.pool.QueryRow(ctx, `SELECT `+userColumns+` FROM users WHERE username = $1`, username))
}

func (r *PGRepository) UpdateStatus(ctx context.Context, id int64, active bool) error {
	tag, err := r.pool.Exec(ctx, `UPDATE users SET is_active = $2, updated_at = now() WHERE id = $1`, id, active)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return shared.ErrNotFound
	}
	return nil
}

func (r *PGRepository) UpdateProfile(ctx context.Context, id int64, update ProfileUpdate) error {
	tag, err := r.pool.Exec(ctx, `
		UPDATE users SET
			full_name = COALESCE($2, full_name),
			email = COALESCE($3, email),
			gpa = COALESCE($4, gpa),
			enrollment_year = COALESCE($5, enrollment_year),
			updated_at = now()
		WHERE id = $1`,
		id, update.FullName, update.Email, update.GPA, update.EnrollmentYear)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return shared.ErrNotFound
	}
	return nil
}

func (r *PGRepository) scanOne(row pgx.Row) (User, error) {
	var user User
	var role string
	err := row.Scan(&user.ID, &user.Username, &user.PasswordHash, &user.FullName, &user.Email,
		&role, &user.Active, &user.GPA, &user.EnrollmentYear, &user.CreatedAt, &user.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return User{}, shared.ErrNotFound
		}
		return User{}, err
	}
	user.Role = Role(role)
	return user, nil
}
