// Package audit records administrative actions for later review.
package audit

import (
	"context"
	"log/slog"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
)

// Entry is one recorded administrative action.
type Entry struct {
	ActorID  int64
	Action   string
	Entity   string
	EntityID int64
	Amount   float64
	Note     string
	At       time.Time
}

// Recorder accepts audit entries. Recording is best effort; failures are
// logged, never propagated into the command path.
type Recorder interface {
	Record(ctx context.Context, entry Entry)
}

// PGRecorder persists audit entries in PostgreSQL.
type PGRecorder struct {
	pool   *pgxpool.Pool
	logger *slog.Logger
}

// NewRecorder constructs a PGRecorder.
func NewRecorder(pool *pgxpool.Pool, logger *slog.Logger) *PGRecorder {
	return &PGRecorder{pool: pool, logger: logger}
}

var _ Recorder = (*PGRecorder)(nil)

// Record inserts one audit row.
func (r *PGRecorder) Record(ctx context.Context, entry Entry) {
	at := entry.At
	if at.IsZero() {
		at = time.Now().UTC()
	}
	_, err := r.pool.Exec(ctx, `
		INSERT INTO audit_log (actor_id, action, entity, entity_id, amount, note, recorded_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)`,
		entry.ActorID, entry.Action, entry.Entity, entry.EntityID, entry.Amount, entry.Note, at)
	if err != nil && r.logger != nil {
		r.logger.Warn("audit record", slog.String("action", entry.Action), slog.Any("error", err))
	}
}

// Noop discards entries. Used in tests and when auditing is disabled.
type Noop struct{}

// Record implements Recorder.
func (Noop) Record(context.Context, Entry) {}
