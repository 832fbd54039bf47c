package command

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/Addisu87/bank-support-agent/internal/apperrors"
	"github.com/Addisu87/bank-support-agent/internal/cqrs"
	"github.com/Addisu87/bank-support-agent/internal/events"
	"github.com/Addisu87/bank-support-agent/internal/logging"
	"github.com/Addisu87/bank-support-agent/internal/models"
	"github.com/Addisu87/bank-support-agent/internal/utils"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

const maxAccountNumberAttempts = 3

// AccountCommandService opens, updates and closes accounts. Balances are
// never written here; they only move through TransactionCommandService.
type AccountCommandService struct {
	accounts  AccountWriter
	banks     BankStore
	cache     AccountCache
	publisher EventPublisher
	logger    *logging.Logger
}

func NewAccountCommandService(accounts AccountWriter, banks BankStore, cache AccountCache, publisher EventPublisher) *AccountCommandService {
	return &AccountCommandService{
		accounts:  accounts,
		banks:     banks,
		cache:     cache,
		publisher: publisher,
		logger:    logging.L().Named("accounts"),
	}
}

func (s *AccountCommandService) CreateAccount(ctx context.Context, cmd cqrs.CreateAccountCommand) (*models.Account, error) {
	bank, err := s.banks.GetByID(ctx, cmd.BankID)
	if err != nil {
		return nil, err
	}
	if !bank.IsActive {
		return nil, fmt.Errorf("bank %w", apperrors.ErrAccountInactive)
	}
	if cmd.OverdraftLimit.IsNegative() {
		return nil, apperrors.ErrInvalidAmount
	}

	currency := strings.ToUpper(cmd.Currency)
	if currency == "" {
		currency = bank.Currency
	}
	accountType := cmd.AccountType
	if accountType == "" {
		accountType = models.AccountChecking
	}

	now := time.Now().UTC()
	account := &models.Account{
		ID:               utils.GenerateID("acc"),
		UserID:           cmd.UserID,
		BankID:           bank.ID,
		AccountType:      accountType,
		Balance:          decimal.Zero,
		AvailableBalance: decimal.Zero,
		Currency:         currency,
		Status:           models.AccountActive,
		OverdraftLimit:   cmd.OverdraftLimit,
		CreatedAt:        now,
		UpdatedAt:        now,
	}
	for attempt := 1; ; attempt++ {
		account.AccountNumber = utils.GenerateAccountNumber()
		err = s.accounts.Create(ctx, account)
		if err == nil {
			break
		}
		if !errors.Is(err, apperrors.ErrConflict) || attempt >= maxAccountNumberAttempts {
			return nil, err
		}
	}

	s.cache.InvalidateAccount(ctx, account.AccountNumber, account.UserID)
	if err := s.publisher.Publish(ctx, events.AccountEventsStream, events.AccountOpened, events.AccountOpenedEvent{
		AccountNumber: account.AccountNumber,
		UserID:        account.UserID,
		BankID:        account.BankID,
		AccountType:   string(account.AccountType),
		Currency:      account.Currency,
	}); err != nil {
		s.logger.Warn("failed to publish account.opened event", zap.Error(err))
	}
	s.logger.Info("account opened",
		zap.String("account", utils.MaskAccountNumber(account.AccountNumber)),
		zap.String("user_id", account.UserID),
	)
	return account, nil
}

// UpdateAccount applies the fields set on cmd. Closing goes through
// DeleteAccount, so status may not be set to closed here.
func (s *AccountCommandService) UpdateAccount(ctx context.Context, cmd cqrs.UpdateAccountCommand) (*models.Account, error) {
	account, err := s.owned(ctx, cmd.AccountNumber, cmd.RequestingUserID)
	if err != nil {
		return nil, err
	}

	if cmd.AccountType != nil {
		account.AccountType = *cmd.AccountType
	}
	if cmd.Status != nil {
		if *cmd.Status == models.AccountClosed {
			return nil, fmt.Errorf("%w: use account deletion to close an account", apperrors.ErrInvalidTransition)
		}
		account.Status = *cmd.Status
	}
	if cmd.OverdraftLimit != nil {
		if cmd.OverdraftLimit.IsNegative() {
			return nil, apperrors.ErrInvalidAmount
		}
		account.OverdraftLimit = *cmd.OverdraftLimit
	}
	account.UpdatedAt = time.Now().UTC()

	if err := s.accounts.Update(ctx, account); err != nil {
		return nil, err
	}
	s.cache.InvalidateAccount(ctx, account.AccountNumber, account.UserID)
	return account, nil
}

// DeleteAccount closes the account. The row stays for the ledger's sake.
func (s *AccountCommandService) DeleteAccount(ctx context.Context, cmd cqrs.DeleteAccountCommand) error {
	account, err := s.owned(ctx, cmd.AccountNumber, cmd.RequestingUserID)
	if err != nil {
		return err
	}
	if !account.Balance.IsZero() {
		return apperrors.Conflict("account balance must be zero before closing")
	}
	if err := s.accounts.Close(ctx, account.ID); err != nil {
		return err
	}

	s.cache.InvalidateAccount(ctx, account.AccountNumber, account.UserID)
	if err := s.publisher.Publish(ctx, events.AccountEventsStream, events.AccountClosed, events.AccountClosedEvent{
		AccountNumber: account.AccountNumber,
		UserID:        account.UserID,
	}); err != nil {
		s.logger.Warn("failed to publish account.closed event", zap.Error(err))
	}
	return nil
}

func (s *AccountCommandService) owned(ctx context.Context, accountNumber, userID string) (*models.Account, error) {
	account, err := s.accounts.GetByAccountNumber(ctx, accountNumber)
	if err != nil {
		return nil, err
	}
	if account.UserID != userID {
		return nil, apperrors.ErrForbidden
	}
	return account, nil
}
