package applications

import "time"

// Status enumerates application states. PENDING is initial; APPROVED and
// REJECTED are terminal. Exactly one terminal transition is allowed.
type Status string

const (
	StatusPending  Status = "PENDING"
	StatusApproved Status = "APPROVED"
	StatusRejected Status = "REJECTED"
)

// Application is a student's scholarship application for one program and one
// academic period. Reviewer, decision time and comments are write-once.
type Application struct {
	ID          int64
	ApplicantID int64
	ProgramID   int64
	PeriodID    int64
	Status      Status
	SubmittedAt time.Time
	ReviewerID  *int64
	DecidedAt   *time.Time
	Comments    string
}

// IsTerminal reports whether the application has been decided.
func (a Application) IsTerminal() bool {
	return a.Status == StatusApproved || a.Status == StatusRejected
}

// SubmitInput carries the fields of a new application.
type SubmitInput struct {
	ApplicantID int64
	ProgramID   int64
	PeriodID    int64
}

// ListFilter narrows application queries.
type ListFilter struct {
	ApplicantID int64
	ProgramID   int64
	Status      Status
}
