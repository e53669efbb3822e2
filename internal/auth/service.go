package auth

import (
	"context"

	"golang.org/x/crypto/bcrypt"

	"github.com/stipendia/stipendia/internal/shared"
	"github.com/stipendia/stipendia/internal/users"
)

// Service wraps authentication business rules.
type Service struct {
	repo   users.Repository
	tokens *TokenStore
}

// NewService constructs a new Service.
func NewService(repo users.Repository, tokens *TokenStore) *Service {
	return &Service{repo: repo, tokens: tokens}
}

// Login validates username/password credentials and issues a session token.
func (s *Service) Login(ctx context.Context, username, password string) (string, Identity, error) {
	user, err := s.repo.GetByUsername(ctx, username)
	if err != nil {
		return "", Identity{}, shared.ErrInvalidCredentials
	}
	if !user.Active {
		return "", Identity{}, shared.ErrInvalidCredentials
	}
	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(password)); err != nil {
		return "", Identity{}, shared.ErrInvalidCredentials
	}
	identity := Identity{UserID: user.ID, Username: user.Username, Role: user.Role}
	return s.tokens.Issue(identity), identity, nil
}

// Validate resolves a session token.
func (s *Service) Validate(token string) (Identity, bool) {
	return s.tokens.Validate(token)
}

// Logout revokes a session token.
func (s *Service) Logout(token string) {
	s.tokens.Revoke(token)
}
