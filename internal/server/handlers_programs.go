package server

import (
	"context"

	"github.com/stipendia/stipendia/internal/periods"
	"github.com/stipendia/stipendia/internal/programs"
	"github.com/stipendia/stipendia/internal/protocol"
)

func (d *Dispatcher) handleCreateProgram(ctx context.Context, sess *Session, req protocol.Request) protocol.Response {
	actor, fail := d.actor(ctx, sess, req)
	if fail != nil {
		return *fail
	}
	var payload protocol.CreateProgramRequest
	if err := d.decodeInto(req, &payload); err != nil {
		return protocol.Fail(protocol.StatusError, err.Error())
	}

	program, err := d.svc.Programs.Create(ctx, actor, programs.CreateInput{
		Name:                payload.Name,
		Description:         payload.Description,
		FundingAmount:       payload.FundingAmount,
		MinGPA:              payload.MinGPA,
		ApplicationDeadline: payload.ApplicationDeadline,
	})
	if err != nil {
		return d.failure(req.Command, err)
	}
	return protocol.OK(protocol.StatusDataUpdated, toProgramResponse(program))
}

func (d *Dispatcher) handleUpdateProgram(ctx context.Context, sess *Session, req protocol.Request) protocol.Response {
	actor, fail := d.actor(ctx, sess, req)
	if fail != nil {
		return *fail
	}
	var payload protocol.UpdateProgramRequest
	if err := d.decodeInto(req, &payload); err != nil {
		return protocol.Fail(protocol.StatusError, err.Error())
	}

	program, err := d.svc.Programs.Update(ctx, actor, payload.ProgramID, programs.UpdateInput{
		Name:                payload.Name,
		Description:         payload.Description,
		FundingAmount:       payload.FundingAmount,
		MinGPA:              payload.MinGPA,
		ApplicationDeadline: payload.ApplicationDeadline,
		Active:              payload.Active,
	})
	if err != nil {
		return d.failure(req.Command, err)
	}
	return protocol.OK(protocol.StatusDataUpdated, toProgramResponse(program))
}

func (d *Dispatcher) handleGetPrograms(ctx context.Context, sess *Session, req protocol.Request) protocol.Response {
	if _, fail := d.actor(ctx, sess, req); fail != nil {
		return *fail
	}

	list, err := d.svc.Programs.ListActive(ctx)
	if err != nil {
		return d.failure(req.Command, err)
	}
	resp := protocol.ProgramListResponse{Programs: make([]protocol.ProgramResponse, 0, len(list))}
	for _, p := range list {
		resp.Programs = append(resp.Programs, toProgramResponse(p))
	}
	return protocol.OK(protocol.StatusScholarshipProgramsFound, resp)
}

func (d *Dispatcher) handleCreatePeriod(ctx context.Context, sess *Session, req protocol.Request) protocol.Response {
	actor, fail := d.actor(ctx, sess, req)
	if fail != nil {
		return *fail
	}
	var payload protocol.CreatePeriodRequest
	if err := d.decodeInto(req, &payload); err != nil {
		return protocol.Fail(protocol.StatusError, err.Error())
	}

	period, err := d.svc.Periods.Create(ctx, actor, periods.CreateInput{
		Name:      payload.Name,
		StartDate: payload.StartDate,
		EndDate:   payload.EndDate,
	})
	if err != nil {
		return d.failure(req.Command, err)
	}
	return protocol.OK(protocol.StatusDataUpdated, protocol.PeriodResponse{
		PeriodID:  period.ID,
		Name:      period.Name,
		StartDate: period.StartDate,
		EndDate:   period.EndDate,
		Active:    period.Active,
	})
}

func toProgramResponse(p programs.Program) protocol.ProgramResponse {
	return protocol.ProgramResponse{
		ProgramID:           p.ID,
		Name:                p.Name,
		Description:         p.Description,
		FundingAmount:       p.FundingAmount,
		AllocatedAmount:     p.AllocatedAmount,
		UsedAmount:          p.UsedAmount,
		RemainingAmount:     p.RemainingAmount(),
		MinGPA:              p.MinGPA,
		Active:              p.Active,
		ApplicationDeadline: p.ApplicationDeadline,
	}
}
