package ledger

import "time"

// AllocationStatus enumerates fund allocation states. Allocations are
// auto-approved in the current design.
type AllocationStatus string

const (
	AllocationApproved AllocationStatus = "APPROVED"
)

// FundAllocation records money moving from a budget into a scholarship
// program's allocated pool. PreviousAmount is an audit snapshot of the
// program's allocated amount immediately before this allocation.
type FundAllocation struct {
	ID             int64
	BudgetID       int64
	ProgramID      int64
	Amount         float64
	PreviousAmount float64
	Status         AllocationStatus
	AllocatedBy    int64
	AllocatedAt    time.Time
	Notes          string
}

// FundUsage records consumption of a program's allocated pool.
type FundUsage struct {
	ID         int64
	ProgramID  int64
	Amount     float64
	RecordedBy int64
	RecordedAt time.Time
	Notes      string
}

// AllocateInput carries the parameters of one allocation.
type AllocateInput struct {
	BudgetID   int64
	ProgramID  int64
	Amount     float64
	Notes      string
	ActingUser int64
}

// UsageInput carries the parameters of one fund usage record.
type UsageInput struct {
	ProgramID  int64
	Amount     float64
	Notes      string
	ActingUser int64
}

// AllocationResult reports the committed ledger state after an allocation.
type AllocationResult struct {
	Allocation       FundAllocation
	BudgetRemaining  float64
	ProgramAllocated float64
}
