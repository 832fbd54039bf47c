package command

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/Addisu87/bank-support-agent/internal/apperrors"
	"github.com/Addisu87/bank-support-agent/internal/cqrs"
	"github.com/Addisu87/bank-support-agent/internal/events"
	"github.com/Addisu87/bank-support-agent/internal/logging"
	"github.com/Addisu87/bank-support-agent/internal/models"
	"github.com/Addisu87/bank-support-agent/internal/utils"
	"go.uber.org/zap"
)

// OpenAccountCounter reports how many open accounts a user holds.
type OpenAccountCounter interface {
	CountOpenByUserID(ctx context.Context, userID string) (int, error)
}

// UserCommandService writes user state to PostgreSQL and keeps the Redis
// read model up to date.
type UserCommandService struct {
	users     UserStore
	cache     UserCache
	accounts  OpenAccountCounter
	publisher EventPublisher
	logger    *logging.Logger
}

func NewUserCommandService(users UserStore, cache UserCache, accounts OpenAccountCounter, publisher EventPublisher) *UserCommandService {
	return &UserCommandService{
		users:     users,
		cache:     cache,
		accounts:  accounts,
		publisher: publisher,
		logger:    logging.L().Named("users"),
	}
}

func (s *UserCommandService) RegisterUser(ctx context.Context, cmd cqrs.RegisterUserCommand) (*models.UserView, error) {
	passwordHash, err := utils.HashPassword(cmd.Password)
	if err != nil {
		return nil, fmt.Errorf("failed to hash password: %w", err)
	}
	now := time.Now().UTC()
	user := &models.User{
		ID:           utils.GenerateID("usr"),
		FullName:     strings.TrimSpace(cmd.FullName),
		Email:        normalizeEmail(cmd.Email),
		PasswordHash: passwordHash,
		PhoneNumber:  cmd.PhoneNumber,
		Address:      cmd.Address,
		IsActive:     true,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	if err := s.users.Create(ctx, user); err != nil {
		return nil, err
	}

	view := user.ToView()
	s.cache.CacheUserView(ctx, view)
	if err := s.publisher.Publish(ctx, events.UserEventsStream, events.UserRegistered, events.UserRegisteredEvent{
		UserID:   user.ID,
		Email:    user.Email,
		FullName: user.FullName,
	}); err != nil {
		s.logger.Warn("failed to publish user.registered event", zap.Error(err))
	}
	return view, nil
}

func (s *UserCommandService) UpdateUser(ctx context.Context, cmd cqrs.UpdateUserCommand) (*models.UserView, error) {
	if cmd.UserID != cmd.RequestingUserID {
		return nil, apperrors.ErrForbidden
	}
	user, err := s.users.GetByID(ctx, cmd.UserID)
	if err != nil {
		return nil, err
	}
	if cmd.FullName != nil {
		user.FullName = strings.TrimSpace(*cmd.FullName)
	}
	if cmd.Email != nil {
		user.Email = normalizeEmail(*cmd.Email)
	}
	setString(&user.PhoneNumber, cmd.PhoneNumber)
	if cmd.Address != nil {
		user.Address = cmd.Address
	}
	user.UpdatedAt = time.Now().UTC()

	if err := s.users.Update(ctx, user); err != nil {
		return nil, err
	}
	view := user.ToView()
	s.cache.CacheUserView(ctx, view)
	return view, nil
}

// DeleteUser rejects the operation if the user still has open accounts.
func (s *UserCommandService) DeleteUser(ctx context.Context, cmd cqrs.DeleteUserCommand) error {
	if cmd.UserID != cmd.RequestingUserID {
		return apperrors.ErrForbidden
	}
	open, err := s.accounts.CountOpenByUserID(ctx, cmd.UserID)
	if err != nil {
		return err
	}
	if open > 0 {
		return apperrors.Conflict("user still has open accounts")
	}
	if err := s.users.Delete(ctx, cmd.UserID); err != nil {
		return err
	}

	s.cache.InvalidateUserView(ctx, cmd.UserID)
	if err := s.publisher.Publish(ctx, events.UserEventsStream, events.UserDeleted, events.UserDeletedEvent{
		UserID: cmd.UserID,
	}); err != nil {
		s.logger.Warn("failed to publish user.deleted event", zap.Error(err))
	}
	return nil
}

func (s *UserCommandService) ChangePassword(ctx context.Context, cmd cqrs.ChangePasswordCommand) error {
	user, err := s.users.GetByID(ctx, cmd.UserID)
	if err != nil {
		return err
	}
	if !utils.CheckPassword(cmd.CurrentPassword, user.PasswordHash) {
		return apperrors.ErrUnauthorized
	}
	hash, err := utils.HashPassword(cmd.NewPassword)
	if err != nil {
		return fmt.Errorf("failed to hash password: %w", err)
	}
	if err := s.users.UpdatePassword(ctx, user.ID, hash); err != nil {
		return err
	}
	s.logger.Info("password changed", zap.String("user_id", user.ID))
	return nil
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}
