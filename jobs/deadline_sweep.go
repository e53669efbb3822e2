package jobs

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"

	"github.com/hibiken/asynq"
)

// ExpiredDeactivator closes programs whose application deadline has passed.
type ExpiredDeactivator interface {
	DeactivateExpired(ctx context.Context) (int64, error)
}

// ListingInvalidator drops the cached active-program listing.
type ListingInvalidator interface {
	InvalidateListing(ctx context.Context)
}

// DeadlineSweepJob deactivates scholarship programs past their deadline so
// they stop appearing in listings and stop accepting applications.
type DeadlineSweepJob struct {
	Programs ExpiredDeactivator
	Listings ListingInvalidator
	Logger   *slog.Logger
}

// NewDeadlineSweepJob initialises the sweep handler. listings may be nil.
func NewDeadlineSweepJob(programs ExpiredDeactivator, listings ListingInvalidator, logger *slog.Logger) *DeadlineSweepJob {
	return &DeadlineSweepJob{Programs: programs, Listings: listings, Logger: logger}
}

// Handle executes the sweep.
func (j *DeadlineSweepJob) Handle(ctx context.Context, t *asynq.Task) error {
	if j == nil || j.Programs == nil {
		return errors.New("deadline sweep: handler not configured")
	}
	var payload DeadlineSweepPayload
	if err := json.Unmarshal(t.Payload(), &payload); err != nil {
		return asynq.SkipRetry
	}

	logger := j.Logger.With(slog.String("job", "deadline_sweep"))
	if payload.DryRun {
		logger.Info("dry run requested, skipping sweep")
		return nil
	}

	swept, err := j.Programs.DeactivateExpired(ctx)
	if err != nil {
		logger.Error("sweep failed", slog.Any("error", err))
		return err
	}
	if swept > 0 && j.Listings != nil {
		j.Listings.InvalidateListing(ctx)
	}
	logger.Info("sweep complete", slog.Int64("deactivated", swept))
	return nil
}
