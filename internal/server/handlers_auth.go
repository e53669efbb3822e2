package server

import (
	"context"
	"errors"

	"github.com/stipendia/stipendia/internal/protocol"
	"github.com/stipendia/stipendia/internal/shared"
	"github.com/stipendia/stipendia/internal/users"
)

func (d *Dispatcher) handleLogin(ctx context.Context, sess *Session, req protocol.Request) protocol.Response {
	var payload protocol.LoginRequest
	if err := d.decodeInto(req, &payload); err != nil {
		return protocol.Fail(protocol.StatusError, err.Error())
	}

	token, identity, err := d.svc.Auth.Login(ctx, payload.Username, payload.Password)
	if err != nil {
		if errors.Is(err, shared.ErrInvalidCredentials) {
			return protocol.Fail(protocol.StatusLoginFailed, "invalid username or password")
		}
		return d.failure(req.Command, err)
	}
	sess.SetIdentity(identity, token)

	resp := protocol.OK(protocol.StatusLoginSuccess, protocol.LoginResponse{
		UserID:   identity.UserID,
		Username: identity.Username,
		Role:     string(identity.Role),
	})
	resp.AuthToken = token
	return resp
}

func (d *Dispatcher) handleLogout(_ context.Context, sess *Session, req protocol.Request) protocol.Response {
	token := sess.ClearIdentity()
	if token == "" {
		token = req.AuthToken
	}
	if token != "" {
		d.svc.Auth.Logout(token)
	}
	return protocol.OK(protocol.StatusLogoutSuccess, nil)
}

func (d *Dispatcher) handleRegister(ctx context.Context, _ *Session, req protocol.Request) protocol.Response {
	var payload protocol.RegisterRequest
	if err := d.decodeInto(req, &payload); err != nil {
		return protocol.Fail(protocol.StatusError, err.Error())
	}

	user, err := d.svc.Users.Register(ctx, users.RegisterInput{
		Username:       payload.Username,
		Password:       payload.Password,
		FullName:       payload.FullName,
		Email:          payload.Email,
		GPA:            payload.GPA,
		EnrollmentYear: payload.EnrollmentYear,
	})
	if err != nil {
		if errors.Is(err, shared.ErrConflict) {
			return protocol.Fail(protocol.StatusRegistrationUserExists, "username is already taken")
		}
		return d.failure(req.Command, err)
	}
	return protocol.OK(protocol.StatusRegistrationSuccess, toUserResponse(user))
}

func toUserResponse(u users.User) protocol.UserResponse {
	return protocol.UserResponse{
		UserID:         u.ID,
		Username:       u.Username,
		FullName:       u.FullName,
		Email:          u.Email,
		Role:           string(u.Role),
		Active:         u.Active,
		GPA:            u.GPA,
		EnrollmentYear: u.EnrollmentYear,
	}
}
