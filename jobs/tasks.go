package jobs

import (
	"encoding/json"

	"github.com/hibiken/asynq"
)

const (
	// QueueDefault is the default queue name for background jobs.
	QueueDefault = "default"
	// TaskLedgerIntegrityScan re-derives fund aggregates from allocation
	// rows and reports drift.
	TaskLedgerIntegrityScan = "ledger:integrity_scan"
	// TaskProgramDeadlineSweep deactivates programs whose application
	// deadline has passed.
	TaskProgramDeadlineSweep = "programs:deadline_sweep"
)

// LedgerIntegrityPayload tunes the integrity scan.
type LedgerIntegrityPayload struct {
	// Tolerance is the absolute drift below which an aggregate is treated
	// as consistent. Guards against float accumulation noise.
	Tolerance float64 `json:"tolerance"`
}

// NewLedgerIntegrityTask constructs the integrity scan task.
func NewLedgerIntegrityTask(tolerance float64) (*asynq.Task, error) {
	data, err := json.Marshal(LedgerIntegrityPayload{Tolerance: tolerance})
	if err != nil {
		return nil, err
	}
	return asynq.NewTask(TaskLedgerIntegrityScan, data), nil
}

// DeadlineSweepPayload tunes the deadline sweep.
type DeadlineSweepPayload struct {
	DryRun bool `json:"dryRun"`
}

// NewDeadlineSweepTask constructs the deadline sweep task.
func NewDeadlineSweepTask(dryRun bool) (*asynq.Task, error) {
	data, err := json.Marshal(DeadlineSweepPayload{DryRun: dryRun})
	if err != nil {
		return nil, err
	}
	return asynq.NewTask(TaskProgramDeadlineSweep, data), nil
}
