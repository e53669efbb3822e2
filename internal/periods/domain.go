package periods

import "time"

// AcademicPeriod is a named academic term applications are submitted against.
type AcademicPeriod struct {
	ID        int64
	Name      string
	StartDate time.Time
	EndDate   time.Time
	Active    bool
	CreatedAt time.Time
}

// CreateInput carries the fields for a new period.
type CreateInput struct {
	Name      string
	StartDate time.Time
	EndDate   time.Time
}
