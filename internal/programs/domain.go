package programs

import "time"

// Program is a scholarship program funded through budget allocations.
// AllocatedAmount only grows via the ledger engine; UsedAmount only grows via
// recorded fund usage, bounded by AllocatedAmount.
type Program struct {
	ID                  int64
	Name                string
	Description         string
	FundingAmount       float64
	AllocatedAmount     float64
	UsedAmount          float64
	MinGPA              float64
	Active              bool
	ApplicationDeadline time.Time
	CreatedAt           time.Time
	UpdatedAt           time.Time
}

// RemainingAmount is the allocated pool not yet consumed. Always derived.
func (p Program) RemainingAmount() float64 {
	return p.AllocatedAmount - p.UsedAmount
}

// CreateInput carries the fields for a new program.
type CreateInput struct {
	Name                string
	Description         string
	FundingAmount       float64
	MinGPA              float64
	ApplicationDeadline time.Time
}

// UpdateInput carries optional program fields; nil means unchanged.
type UpdateInput struct {
	Name                *string
	Description         *string
	FundingAmount       *float64
	MinGPA              *float64
	ApplicationDeadline *time.Time
	Active              *bool
}
