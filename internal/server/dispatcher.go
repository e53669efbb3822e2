package server

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"

	"github.com/go-playground/validator/v10"

	"github.com/stipendia/stipendia/internal/applications"
	"github.com/stipendia/stipendia/internal/auth"
	"github.com/stipendia/stipendia/internal/budgets"
	"github.com/stipendia/stipendia/internal/ledger"
	"github.com/stipendia/stipendia/internal/periods"
	"github.com/stipendia/stipendia/internal/programs"
	"github.com/stipendia/stipendia/internal/protocol"
	"github.com/stipendia/stipendia/internal/reports"
	"github.com/stipendia/stipendia/internal/shared"
	"github.com/stipendia/stipendia/internal/users"
)

// Services aggregates the domain services the dispatcher routes commands to.
type Services struct {
	Auth         *auth.Service
	Users        *users.Service
	Periods      *periods.Service
	Programs     *programs.Service
	Budgets      *budgets.Service
	Ledger       *ledger.Service
	Applications *applications.Service
	Reports      *reports.Service
}

// handlerFunc handles one decoded command for one session.
type handlerFunc func(ctx context.Context, sess *Session, req protocol.Request) protocol.Response

// Dispatcher maps command tags to handlers. The table is built once at
// construction; unknown tags produce UNKNOWN_COMMAND. Every domain error is
// converted to an error envelope at this boundary — the session loop never
// sees a raw failure from business logic.
type Dispatcher struct {
	logger   *slog.Logger
	svc      Services
	validate *validator.Validate
	handlers map[protocol.Command]handlerFunc
}

// NewDispatcher constructs the command table.
func NewDispatcher(logger *slog.Logger, svc Services) *Dispatcher {
	d := &Dispatcher{
		logger:   logger,
		svc:      svc,
		validate: validator.New(),
	}
	d.handlers = map[protocol.Command]handlerFunc{
		protocol.CmdLogin:    d.handleLogin,
		protocol.CmdLogout:   d.handleLogout,
		protocol.CmdRegister: d.handleRegister,

		protocol.CmdAllocateFunds:   d.handleAllocateFunds,
		protocol.CmdRecordFundUsage: d.handleRecordFundUsage,
		protocol.CmdCreateBudget:    d.handleCreateBudget,
		protocol.CmdActivateBudget:  d.handleActivateBudget,
		protocol.CmdCloseBudget:     d.handleCloseBudget,
		protocol.CmdGetBudgets:      d.handleGetBudgets,

		protocol.CmdCreateScholarshipProgram: d.handleCreateProgram,
		protocol.CmdUpdateScholarshipProgram: d.handleUpdateProgram,
		protocol.CmdGetScholarshipPrograms:   d.handleGetPrograms,
		protocol.CmdCreateAcademicPeriod:     d.handleCreatePeriod,

		protocol.CmdApplyForScholarship:        d.handleApply,
		protocol.CmdApproveApplication:         d.handleApprove,
		protocol.CmdRejectApplication:          d.handleReject,
		protocol.CmdGetApplications:            d.handleGetApplications,
		protocol.CmdGetApplicationStatusReport: d.handleStatusReport,

		protocol.CmdUpdateUserStatus:  d.handleUpdateUserStatus,
		protocol.CmdUpdateUserProfile: d.handleUpdateUserProfile,
	}
	return d
}

// Dispatch routes one request. Panics in handlers are contained here so a
// misbehaving command cannot take down its session.
func (d *Dispatcher) Dispatch(ctx context.Context, sess *Session, req protocol.Request) (resp protocol.Response) {
	defer func() {
		if r := recover(); r != nil {
			d.logger.Error("handler panic", slog.Any("command", req.Command), slog.Any("panic", r))
			resp = protocol.Fail(protocol.StatusError, "internal error")
		}
	}()

	handler, ok := d.handlers[req.Command]
	if !ok {
		return protocol.Fail(protocol.StatusUnknownCommand, fmt.Sprintf("unknown command %q", req.Command))
	}
	return handler(ctx, sess, req)
}

// actor resolves the authenticated user for the session, preferring the
// session's login state and falling back to the envelope token.
func (d *Dispatcher) actor(ctx context.Context, sess *Session, req protocol.Request) (users.User, *protocol.Response) {
	identity, ok := sess.Identity()
	if !ok && req.AuthToken != "" {
		if id, valid := d.svc.Auth.Validate(req.AuthToken); valid {
			identity = id
			ok = true
			sess.SetIdentity(id, req.AuthToken)
		}
	}
	if !ok {
		resp := protocol.Fail(protocol.StatusAuthenticationRequired, "login required")
		return users.User{}, &resp
	}
	user, err := d.svc.Users.Get(ctx, identity.UserID)
	if err != nil {
		resp := d.failure(req.Command, err)
		return users.User{}, &resp
	}
	if !user.Active {
		resp := protocol.Fail(protocol.StatusAuthenticationRequired, "account is deactivated")
		return users.User{}, &resp
	}
	return user, nil
}

// decodeInto unmarshals and validates a command payload.
func (d *Dispatcher) decodeInto(req protocol.Request, out any) error {
	if len(req.Payload) == 0 {
		return fmt.Errorf("%s data is missing", req.Command)
	}
	if err := json.Unmarshal(req.Payload, out); err != nil {
		return fmt.Errorf("%s payload is malformed", req.Command)
	}
	if err := d.validate.Struct(out); err != nil {
		var invalid *validator.InvalidValidationError
		if errors.As(err, &invalid) {
			return fmt.Errorf("%s payload is malformed", req.Command)
		}
		var fields validator.ValidationErrors
		if errors.As(err, &fields) && len(fields) > 0 {
			return fmt.Errorf("%s data is invalid: field %s failed %s", req.Command, fields[0].Field(), fields[0].Tag())
		}
		return err
	}
	return nil
}

// failure converts a domain error into the matching response envelope.
func (d *Dispatcher) failure(cmd protocol.Command, err error) protocol.Response {
	switch {
	case errors.Is(err, shared.ErrPermissionDenied):
		return protocol.Fail(protocol.StatusPermissionDenied, "permission denied")
	case errors.Is(err, shared.ErrNotFound):
		return protocol.Fail(protocol.StatusDataNotFound, err.Error())
	case errors.Is(err, shared.ErrInsufficientFunds),
		errors.Is(err, shared.ErrConflict),
		errors.Is(err, budgets.ErrActiveBudgetExists):
		return protocol.Fail(protocol.StatusDataUpdateFailed, err.Error())
	case errors.Is(err, shared.ErrValidation):
		return protocol.Fail(protocol.StatusError, err.Error())
	case errors.Is(err, context.DeadlineExceeded):
		return protocol.Fail(protocol.StatusError, "command timed out")
	default:
		d.logger.Error("command failed", slog.Any("command", cmd), slog.Any("error", err))
		return protocol.Fail(protocol.StatusError, "internal error")
	}
}
