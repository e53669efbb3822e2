package server

import (
	"context"

	"github.com/stipendia/stipendia/internal/applications"
	"github.com/stipendia/stipendia/internal/protocol"
	"github.com/stipendia/stipendia/internal/users"
)

func (d *Dispatcher) handleApply(ctx context.Context, sess *Session, req protocol.Request) protocol.Response {
	actor, fail := d.actor(ctx, sess, req)
	if fail != nil {
		return *fail
	}
	var payload protocol.ApplyForScholarshipRequest
	if err := d.decodeInto(req, &payload); err != nil {
		return protocol.Fail(protocol.StatusError, err.Error())
	}

	app, err := d.svc.Applications.Submit(ctx, actor, payload.ProgramID, payload.PeriodID)
	if err != nil {
		return d.failure(req.Command, err)
	}
	return protocol.OK(protocol.StatusApplicationSubmitted, toApplicationResponse(app))
}

func (d *Dispatcher) handleApprove(ctx context.Context, sess *Session, req protocol.Request) protocol.Response {
	return d.reviewApplication(ctx, sess, req, d.svc.Applications.Approve)
}

func (d *Dispatcher) handleReject(ctx context.Context, sess *Session, req protocol.Request) protocol.Response {
	return d.reviewApplication(ctx, sess, req, d.svc.Applications.Reject)
}

func (d *Dispatcher) reviewApplication(ctx context.Context, sess *Session, req protocol.Request, decide func(context.Context, users.User, int64, string) (applications.Application, error)) protocol.Response {
	actor, fail := d.actor(ctx, sess, req)
	if fail != nil {
		return *fail
	}
	var payload protocol.ReviewApplicationRequest
	if err := d.decodeInto(req, &payload); err != nil {
		return protocol.Fail(protocol.StatusError, err.Error())
	}

	app, err := decide(ctx, actor, payload.ApplicationID, payload.Comments)
	if err != nil {
		return d.failure(req.Command, err)
	}
	return protocol.OK(protocol.StatusApplicationReviewed, toApplicationResponse(app))
}

func (d *Dispatcher) handleGetApplications(ctx context.Context, sess *Session, req protocol.Request) protocol.Response {
	actor, fail := d.actor(ctx, sess, req)
	if fail != nil {
		return *fail
	}
	var filter applications.ListFilter
	if len(req.Payload) > 0 {
		var payload protocol.GetApplicationsRequest
		if err := d.decodeInto(req, &payload); err != nil {
			return protocol.Fail(protocol.StatusError, err.Error())
		}
		filter.ProgramID = payload.ProgramID
		filter.Status = applications.Status(payload.Status)
	}

	list, err := d.svc.Applications.List(ctx, actor, filter)
	if err != nil {
		return d.failure(req.Command, err)
	}
	resp := protocol.ApplicationListResponse{Applications: make([]protocol.ApplicationResponse, 0, len(list))}
	for _, app := range list {
		resp.Applications = append(resp.Applications, toApplicationResponse(app))
	}
	return protocol.OK(protocol.StatusDataFound, resp)
}

func (d *Dispatcher) handleStatusReport(ctx context.Context, sess *Session, req protocol.Request) protocol.Response {
	actor, fail := d.actor(ctx, sess, req)
	if fail != nil {
		return *fail
	}

	report, err := d.svc.Reports.ApplicationStatusReport(ctx, actor)
	if err != nil {
		return d.failure(req.Command, err)
	}
	resp := protocol.StatusReportResponse{
		GeneratedAt: report.GeneratedAt,
		Rows:        make([]protocol.StatusReportRow, 0, len(report.Rows)),
	}
	for _, row := range report.Rows {
		resp.Rows = append(resp.Rows, protocol.StatusReportRow{
			ProgramID:      row.ProgramID,
			ProgramName:    row.ProgramName,
			Pending:        row.Pending,
			Approved:       row.Approved,
			Rejected:       row.Rejected,
			AllocatedTotal: row.AllocatedTotal,
			AllocatedText:  row.AllocatedText,
		})
	}
	return protocol.OK(protocol.StatusDataFound, resp)
}

func toApplicationResponse(a applications.Application) protocol.ApplicationResponse {
	return protocol.ApplicationResponse{
		ApplicationID: a.ID,
		ApplicantID:   a.ApplicantID,
		ProgramID:     a.ProgramID,
		PeriodID:      a.PeriodID,
		Status:        string(a.Status),
		SubmittedAt:   a.SubmittedAt,
		ReviewerID:    a.ReviewerID,
		DecidedAt:     a.DecidedAt,
		Comments:      a.Comments,
	}
}
