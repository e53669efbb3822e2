package applications

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/stipendia/stipendia/internal/audit"
	"github.com/stipendia/stipendia/internal/periods"
	"github.com/stipendia/stipendia/internal/programs"
	"github.com/stipendia/stipendia/internal/shared"
	"github.com/stipendia/stipendia/internal/users"
)

// ProgramGetter resolves programs during submission checks.
type ProgramGetter interface {
	Get(ctx context.Context, id int64) (programs.Program, error)
}

// PeriodGetter resolves academic periods during submission checks.
type PeriodGetter interface {
	Get(ctx context.Context, id int64) (periods.AcademicPeriod, error)
}

// Service governs the application lifecycle and its review state machine.
type Service struct {
	repo       Repository
	programSvc ProgramGetter
	periodSvc  PeriodGetter
	auditor    audit.Recorder
	now        func() time.Time
}

// NewService builds a Service instance. auditor may be nil.
func NewService(repo Repository, programSvc ProgramGetter, periodSvc PeriodGetter, auditor audit.Recorder) *Service {
	if auditor == nil {
		auditor = audit.Noop{}
	}
	return &Service{
		repo:       repo,
		programSvc: programSvc,
		periodSvc:  periodSvc,
		auditor:    auditor,
		now:        time.Now,
	}
}

// Submit files a new PENDING application for the acting student.
func (s *Service) Submit(ctx context.Context, actor users.User, programID, periodID int64) (Application, error) {
	program, err := s.programSvc.Get(ctx, programID)
	if err != nil {
		return Application{}, fmt.Errorf("load program: %w", err)
	}
	if !program.Active {
		return Application{}, fmt.Errorf("%w: program is not accepting applications", shared.ErrValidation)
	}
	now := s.now()
	if now.After(program.ApplicationDeadline) {
		return Application{}, fmt.Errorf("%w: application deadline has passed", shared.ErrValidation)
	}
	if program.MinGPA > 0 && actor.GPA < program.MinGPA {
		return Application{}, fmt.Errorf("%w: GPA %.2f is below the program minimum %.2f", shared.ErrValidation, actor.GPA, program.MinGPA)
	}
	period, err := s.periodSvc.Get(ctx, periodID)
	if err != nil {
		return Application{}, fmt.Errorf("load period: %w", err)
	}
	if !period.Active {
		return Application{}, fmt.Errorf("%w: academic period is not active", shared.ErrValidation)
	}

	id, err := s.repo.Create(ctx, SubmitInput{ApplicantID: actor.ID, ProgramID: programID, PeriodID: periodID}, now.UTC())
	if err != nil {
		if errors.Is(err, shared.ErrConflict) {
			return Application{}, fmt.Errorf("%w: an application for this program and period already exists", shared.ErrConflict)
		}
		return Application{}, err
	}
	return s.repo.GetByID(ctx, id)
}

// Approve performs the PENDING→APPROVED transition. Admin only; a second
// decision attempt fails with Conflict and leaves the stored decision intact.
func (s *Service) Approve(ctx context.Context, actor users.User, id int64, comments string) (Application, error) {
	return s.decide(ctx, actor, id, StatusApproved, comments)
}

// Reject performs the PENDING→REJECTED transition under the same guard.
func (s *Service) Reject(ctx context.Context, actor users.User, id int64, comments string) (Application, error) {
	return s.decide(ctx, actor, id, StatusRejected, comments)
}

func (s *Service) decide(ctx context.Context, actor users.User, id int64, to Status, comments string) (Application, error) {
	if !actor.IsAdmin() {
		return Application{}, shared.ErrPermissionDenied
	}
	if err := s.repo.Decide(ctx, id, to, actor.ID, s.now().UTC(), comments); err != nil {
		return Application{}, err
	}
	app, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return Application{}, err
	}
	s.auditor.Record(ctx, audit.Entry{
		ActorID:  actor.ID,
		Action:   "application." + string(to),
		Entity:   "scholarship_application",
		EntityID: id,
		Note:     comments,
	})
	return app, nil
}

// Get returns one application; students may only see their own.
func (s *Service) Get(ctx context.Context, actor users.User, id int64) (Application, error) {
	app, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return Application{}, err
	}
	if !actor.IsAdmin() && app.ApplicantID != actor.ID {
		return Application{}, shared.ErrPermissionDenied
	}
	return app, nil
}

// List returns applications. Students are restricted to their own rows;
// admins may filter by program and status.
func (s *Service) List(ctx context.Context, actor users.User, filter ListFilter) ([]Application, error) {
	if !actor.IsAdmin() {
		filter.ApplicantID = actor.ID
	}
	return s.repo.List(ctx, filter)
}
