package users

import (
	"context"
	"fmt"

	"golang.org/x/crypto/bcrypt"

	"github.com/stipendia/stipendia/internal/shared"
)

// TokenRevoker invalidates live sessions when an account is deactivated.
type TokenRevoker interface {
	RevokeUser(userID int64)
}

// Service handles user account business logic.
type Service struct {
	repo    Repository
	revoker TokenRevoker
}

// NewService builds a Service instance.
func NewService(repo Repository, revoker TokenRevoker) *Service {
	return &Service{repo: repo, revoker: revoker}
}

// Register creates a student account. Username collisions surface as Conflict.
func (s *Service) Register(ctx context.Context, input RegisterInput) (User, error) {
	hash, err := bcrypt.GenerateFromPassword([]byte(input.Password), bcrypt.DefaultCost)
	if err != nil {
		return User{}, fmt.Errorf("users: hash password: %w", err)
	}
	user := User{
		Username:       input.Username,
		PasswordHash:   string(hash),
		FullName:       input.FullName,
		Email:          input.Email,
		Role:           RoleStudent,
		Active:         true,
		GPA:            input.GPA,
		EnrollmentYear: input.EnrollmentYear,
	}
	id, err := s.repo.Create(ctx, user)
	if err != nil {
		return User{}, err
	}
	user.ID = id
	return user, nil
}

// Get returns a user by id.
func (s *Service) Get(ctx context.Context, id int64) (User, error) {
	return s.repo.GetByID(ctx, id)
}

// UpdateStatus activates or deactivates an account. Deactivation revokes the
// user's live session tokens.
func (s *Service) UpdateStatus(ctx context.Context, actor User, userID int64, active bool) error {
	if !actor.IsAdmin() {
		return shared.ErrPermissionDenied
	}
	if err := s.repo.UpdateStatus(ctx, userID, active); err != nil {
		return err
	}
	if !active && s.revoker != nil {
		s.revoker.RevokeUser(userID)
	}
	return nil
}

// UpdateProfile edits profile fields for the actor's own account, or any
// account when the actor is an admin.
func (s *Service) UpdateProfile(ctx context.Context, actor User, userID int64, update ProfileUpdate) (User, error) {
	if userID == 0 {
		userID = actor.ID
	}
	if userID != actor.ID && !actor.IsAdmin() {
		return User{}, shared.ErrPermissionDenied
	}
	if err := s.repo.UpdateProfile(ctx, userID, update); err != nil {
		return User{}, err
	}
	return s.repo.GetByID(ctx, userID)
}
