package server

import (
	"context"

	"github.com/stipendia/stipendia/internal/protocol"
	"github.com/stipendia/stipendia/internal/users"
)

func (d *Dispatcher) handleUpdateUserStatus(ctx context.Context, sess *Session, req protocol.Request) protocol.Response {
	actor, fail := d.actor(ctx, sess, req)
	if fail != nil {
		return *fail
	}
	var payload protocol.UpdateUserStatusRequest
	if err := d.decodeInto(req, &payload); err != nil {
		return protocol.Fail(protocol.StatusError, err.Error())
	}

	if err := d.svc.Users.UpdateStatus(ctx, actor, payload.UserID, payload.Active); err != nil {
		return d.failure(req.Command, err)
	}
	return protocol.OK(protocol.StatusDataUpdated, protocol.UserStatusResponse{
		UserID: payload.UserID,
		Active: payload.Active,
	})
}

func (d *Dispatcher) handleUpdateUserProfile(ctx context.Context, sess *Session, req protocol.Request) protocol.Response {
	actor, fail := d.actor(ctx, sess, req)
	if fail != nil {
		return *fail
	}
	var payload protocol.UpdateUserProfileRequest
	if err := d.decodeInto(req, &payload); err != nil {
		return protocol.Fail(protocol.StatusError, err.Error())
	}

	targetID := payload.UserID
	if targetID == 0 {
		targetID = actor.ID
	}
	user, err := d.svc.Users.UpdateProfile(ctx, actor, targetID, users.ProfileUpdate{
		FullName:       payload.FullName,
		Email:          payload.Email,
		GPA:            payload.GPA,
		EnrollmentYear: payload.EnrollmentYear,
	})
	if err != nil {
		return d.failure(req.Command, err)
	}
	return protocol.OK(protocol.StatusDataUpdated, toUserResponse(user))
}
