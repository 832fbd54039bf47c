package query

import (
	"context"
	"errors"
	"strings"

	"github.com/Addisu87/bank-support-agent/internal/apperrors"
	"github.com/Addisu87/bank-support-agent/internal/cqrs"
	"github.com/Addisu87/bank-support-agent/internal/middleware"
	"github.com/Addisu87/bank-support-agent/internal/models"
	"github.com/Addisu87/bank-support-agent/internal/utils"
)

// CredentialStore looks up users with their password hash.
type CredentialStore interface {
	GetByID(ctx context.Context, id string) (*models.User, error)
	GetByEmail(ctx context.Context, email string) (*models.User, error)
}

// AuthQueryService handles login and token refresh. There's no CommandService
// for auth because these operations don't mutate application state.
type AuthQueryService struct {
	users  CredentialStore
	tokens *middleware.TokenManager
}

func NewAuthQueryService(users CredentialStore, tokens *middleware.TokenManager) *AuthQueryService {
	return &AuthQueryService{users: users, tokens: tokens}
}

func (s *AuthQueryService) Login(ctx context.Context, cmd cqrs.LoginCommand) (*middleware.TokenPair, error) {
	user, err := s.users.GetByEmail(ctx, strings.ToLower(strings.TrimSpace(cmd.Email)))
	if errors.Is(err, apperrors.ErrNotFound) {
		return nil, apperrors.ErrUnauthorized
	}
	if err != nil {
		return nil, err
	}
	if !user.IsActive || !utils.CheckPassword(cmd.Password, user.PasswordHash) {
		return nil, apperrors.ErrUnauthorized
	}
	return s.tokens.IssuePair(user.ID, user.Email, user.IsSuperuser)
}

// RefreshToken exchanges a refresh token for a new pair. The user is
// re-read so a deactivated or deleted user cannot refresh.
func (s *AuthQueryService) RefreshToken(ctx context.Context, cmd cqrs.RefreshTokenCommand) (*middleware.TokenPair, error) {
	claims, err := s.tokens.Parse(cmd.Token, middleware.RefreshToken)
	if err != nil {
		return nil, apperrors.ErrUnauthorized
	}
	user, err := s.users.GetByID(ctx, claims.UserID)
	if errors.Is(err, apperrors.ErrNotFound) {
		return nil, apperrors.ErrUnauthorized
	}
	if err != nil {
		return nil, err
	}
	if !user.IsActive {
		return nil, apperrors.ErrUnauthorized
	}
	return s.tokens.IssuePair(user.ID, user.Email, user.IsSuperuser)
}
