package budgets

import "time"

// Status enumerates the budget lifecycle. Transitions run forward only:
// DRAFT → ACTIVE → CLOSED.
type Status string

const (
	StatusDraft  Status = "DRAFT"
	StatusActive Status = "ACTIVE"
	StatusClosed Status = "CLOSED"
)

// Budget is a time-boxed pool of money for a fiscal period from which
// scholarship funding is allocated.
type Budget struct {
	ID              int64
	Name            string
	FiscalYear      int
	TotalAmount     float64
	AllocatedAmount float64
	Status          Status
	StartDate       time.Time
	EndDate         time.Time
	CreatedBy       int64
	CreatedAt       time.Time
	UpdatedAt       time.Time
}

// RemainingAmount is total minus allocated. Always derived, never set.
func (b Budget) RemainingAmount() float64 {
	return b.TotalAmount - b.AllocatedAmount
}

// Covers reports whether the budget's date range contains the instant.
func (b Budget) Covers(at time.Time) bool {
	return !at.Before(b.StartDate) && !at.After(b.EndDate)
}

// CreateInput carries the fields for a new draft budget.
type CreateInput struct {
	Name        string
	FiscalYear  int
	TotalAmount float64
	StartDate   time.Time
	EndDate     time.Time
	CreatedBy   int64
}
