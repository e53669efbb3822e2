// Package reports aggregates application and allocation figures for
// administrative review.
package reports

import (
	"context"
	"time"

	"golang.org/x/text/language"
	"golang.org/x/text/message"

	"github.com/stipendia/stipendia/internal/shared"
	"github.com/stipendia/stipendia/internal/users"
)

// ProgramStatusRow is one program's application counts and allocated total.
type ProgramStatusRow struct {
	ProgramID      int64
	ProgramName    string
	Pending        int
	Approved       int
	Rejected       int
	AllocatedTotal float64
	AllocatedText  string
}

// StatusReport is the full application status report.
type StatusReport struct {
	GeneratedAt time.Time
	Rows        []ProgramStatusRow
}

// Repository provides the report aggregation query.
type Repository interface {
	ProgramStatusRows(ctx context.Context) ([]ProgramStatusRow, error)
}

// Service produces reports. Admin only.
type Service struct {
	repo    Repository
	printer *message.Printer
	now     func() time.Time
}

// NewService builds a Service instance.
func NewService(repo Repository) *Service {
	return &Service{
		repo:    repo,
		printer: message.NewPrinter(language.English),
		now:     time.Now,
	}
}

// ApplicationStatusReport returns per-program counts by status with formatted
// allocated totals.
func (s *Service) ApplicationStatusReport(ctx context.Context, actor users.User) (StatusReport, error) {
	if !actor.IsAdmin() {
		return StatusReport{}, shared.ErrPermissionDenied
	}
	rows, err := s.repo.ProgramStatusRows(ctx)
	if err != nil {
		return StatusReport{}, err
	}
	for i := range rows {
		rows[i].AllocatedText = s.printer.Sprintf("%.2f", rows[i].AllocatedTotal)
	}
	return StatusReport{GeneratedAt: s.now().UTC(), Rows: rows}, nil
}
