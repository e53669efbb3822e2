package reports

import (
	"context"

	"github.com/jackc/pgx/v5/pgxpool"
)

// PGRepository implements Repository using PostgreSQL.
type PGRepository struct {
	pool *pgxpool.Pool
}

// NewRepository constructs a PostgreSQL repository.
func NewRepository(pool *pgxpool.Pool) *PGRepository {
	return &PGRepository{pool: pool}
}

var _ Repository = (*PGRepository)(nil)

func (r *PGRepository) ProgramStatusRows(ctx context.Context) ([]ProgramStatusRow, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT p.id,
		       p.name,
		       COUNT(*) FILTER (WHERE a.status = 'PENDING'),
		       COUNT(*) FILTER (WHERE a.status = 'APPROVED'),
		       COUNT(*) FILTER (WHERE a.status = 'REJECTED'),
		       p.allocated_amount
		FROM scholarship_programs p
		LEFT JOIN scholarship_applications a ON a.program_id = p.id
		GROUP BY p.id, p.name, p.allocated_amount
		ORDER BY p.name`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []ProgramStatusRow
	for rows.Next() {
		var row ProgramStatusRow
		if err := rows.Scan(&row.ProgramID, &row.ProgramName, &row.Pending, &row.Approved, &row.Rejected, &row.AllocatedTotal); err != nil {
			return nil, err
		}
		out = append(out, row)
	}
	return out, rows.Err()
}
