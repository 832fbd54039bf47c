package query

import (
	"context"

	"github.com/Addisu87/bank-support-agent/internal/apperrors"
	"github.com/Addisu87/bank-support-agent/internal/cqrs"
	"github.com/Addisu87/bank-support-agent/internal/models"
)

type UserReader interface {
	GetByID(ctx context.Context, id string) (*models.UserView, error)
	List(ctx context.Context, limit, offset int) ([]models.UserView, error)
}

// UserQueryService serves user profiles. A user may only read their own.
type UserQueryService struct {
	users UserReader
}

func NewUserQueryService(users UserReader) *UserQueryService {
	return &UserQueryService{users: users}
}

func (s *UserQueryService) GetUser(ctx context.Context, q cqrs.GetUserQuery) (*models.UserView, error) {
	if q.UserID != q.RequestingUserID {
		return nil, apperrors.ErrForbidden
	}
	return s.users.GetByID(ctx, q.UserID)
}

// ListUsers is reserved for superusers; the router enforces that.
func (s *UserQueryService) ListUsers(ctx context.Context, q cqrs.ListUsersQuery) ([]models.UserView, error) {
	return s.users.List(ctx, q.Limit, q.Offset)
}
