package server

import (
	"context"

	"github.com/stipendia/stipendia/internal/budgets"
	"github.com/stipendia/stipendia/internal/ledger"
	"github.com/stipendia/stipendia/internal/protocol"
	"github.com/stipendia/stipendia/internal/users"
)

func (d *Dispatcher) handleAllocateFunds(ctx context.Context, sess *Session, req protocol.Request) protocol.Response {
	actor, fail := d.actor(ctx, sess, req)
	if fail != nil {
		return *fail
	}
	var payload protocol.AllocateFundsRequest
	if err := d.decodeInto(req, &payload); err != nil {
		return protocol.Fail(protocol.StatusError, err.Error())
	}

	result, err := d.svc.Ledger.AllocateFunds(ctx, actor, ledger.AllocateInput{
		BudgetID:   payload.BudgetID,
		ProgramID:  payload.ProgramID,
		Amount:     payload.Amount,
		Notes:      payload.Notes,
		ActingUser: actor.ID,
	})
	if err != nil {
		return d.failure(req.Command, err)
	}
	return protocol.OK(protocol.StatusDataUpdated, protocol.AllocationResponse{
		AllocationID:    result.Allocation.ID,
		BudgetID:        result.Allocation.BudgetID,
		ProgramID:       result.Allocation.ProgramID,
		Amount:          result.Allocation.Amount,
		PreviousAmount:  result.Allocation.PreviousAmount,
		BudgetRemaining: result.BudgetRemaining,
		AllocatedAt:     result.Allocation.AllocatedAt,
	})
}

func (d *Dispatcher) handleRecordFundUsage(ctx context.Context, sess *Session, req protocol.Request) protocol.Response {
	actor, fail := d.actor(ctx, sess, req)
	if fail != nil {
		return *fail
	}
	var payload protocol.RecordFundUsageRequest
	if err := d.decodeInto(req, &payload); err != nil {
		return protocol.Fail(protocol.StatusError, err.Error())
	}

	usage, err := d.svc.Ledger.RecordFundUsage(ctx, actor, ledger.UsageInput{
		ProgramID:  payload.ProgramID,
		Amount:     payload.Amount,
		Notes:      payload.Notes,
		ActingUser: actor.ID,
	})
	if err != nil {
		return d.failure(req.Command, err)
	}
	return protocol.OK(protocol.StatusDataUpdated, protocol.FundUsageResponse{
		UsageID:    usage.ID,
		ProgramID:  usage.ProgramID,
		Amount:     usage.Amount,
		RecordedAt: usage.RecordedAt,
	})
}

func (d *Dispatcher) handleCreateBudget(ctx context.Context, sess *Session, req protocol.Request) protocol.Response {
	actor, fail := d.actor(ctx, sess, req)
	if fail != nil {
		return *fail
	}
	var payload protocol.CreateBudgetRequest
	if err := d.decodeInto(req, &payload); err != nil {
		return protocol.Fail(protocol.StatusError, err.Error())
	}

	budget, err := d.svc.Budgets.Create(ctx, actor, budgets.CreateInput{
		Name:        payload.Name,
		FiscalYear:  payload.FiscalYear,
		TotalAmount: payload.TotalAmount,
		StartDate:   payload.StartDate,
		EndDate:     payload.EndDate,
		CreatedBy:   actor.ID,
	})
	if err != nil {
		return d.failure(req.Command, err)
	}
	return protocol.OK(protocol.StatusDataUpdated, toBudgetResponse(budget))
}

func (d *Dispatcher) handleActivateBudget(ctx context.Context, sess *Session, req protocol.Request) protocol.Response {
	return d.budgetAction(ctx, sess, req, d.svc.Budgets.Activate)
}

func (d *Dispatcher) handleCloseBudget(ctx context.Context, sess *Session, req protocol.Request) protocol.Response {
	return d.budgetAction(ctx, sess, req, d.svc.Budgets.Close)
}

func (d *Dispatcher) budgetAction(ctx context.Context, sess *Session, req protocol.Request, action func(context.Context, users.User, int64) (budgets.Budget, error)) protocol.Response {
	actor, fail := d.actor(ctx, sess, req)
	if fail != nil {
		return *fail
	}
	var payload protocol.BudgetActionRequest
	if err := d.decodeInto(req, &payload); err != nil {
		return protocol.Fail(protocol.StatusError, err.Error())
	}

	budget, err := action(ctx, actor, payload.BudgetID)
	if err != nil {
		return d.failure(req.Command, err)
	}
	return protocol.OK(protocol.StatusDataUpdated, toBudgetResponse(budget))
}

func (d *Dispatcher) handleGetBudgets(ctx context.Context, sess *Session, req protocol.Request) protocol.Response {
	actor, fail := d.actor(ctx, sess, req)
	if fail != nil {
		return *fail
	}
	if !actor.IsAdmin() {
		return protocol.Fail(protocol.StatusPermissionDenied, "permission denied")
	}

	list, err := d.svc.Budgets.List(ctx)
	if err != nil {
		return d.failure(req.Command, err)
	}
	resp := protocol.BudgetListResponse{Budgets: make([]protocol.BudgetResponse, 0, len(list))}
	for _, b := range list {
		resp.Budgets = append(resp.Budgets, toBudgetResponse(b))
	}
	return protocol.OK(protocol.StatusDataFound, resp)
}

func toBudgetResponse(b budgets.Budget) protocol.BudgetResponse {
	return protocol.BudgetResponse{
		BudgetID:        b.ID,
		Name:            b.Name,
		FiscalYear:      b.FiscalYear,
		TotalAmount:     b.TotalAmount,
		AllocatedAmount: b.AllocatedAmount,
		RemainingAmount: b.RemainingAmount(),
		Status:          string(b.Status),
		StartDate:       b.StartDate,
		EndDate:         b.EndDate,
	}
}
