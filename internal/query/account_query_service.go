package query

import (
	"context"

	"github.com/Addisu87/bank-support-agent/internal/apperrors"
	"github.com/Addisu87/bank-support-agent/internal/cqrs"
	"github.com/Addisu87/bank-support-agent/internal/models"
)

// AccountReader is the read side of accounts.
type AccountReader interface {
	GetByAccountNumber(ctx context.Context, accountNumber string) (*models.AccountView, error)
	ListByUserID(ctx context.Context, userID string) ([]models.AccountView, error)
}

// AccountQueryService serves account reads. Ownership is checked on every
// single-account read.
type AccountQueryService struct {
	accounts AccountReader
}

func NewAccountQueryService(accounts AccountReader) *AccountQueryService {
	return &AccountQueryService{accounts: accounts}
}

func (s *AccountQueryService) GetAccount(ctx context.Context, q cqrs.GetAccountQuery) (*models.AccountView, error) {
	return ownedAccount(ctx, s.accounts, q.AccountNumber, q.RequestingUserID)
}

func (s *AccountQueryService) ListAccounts(ctx context.Context, q cqrs.ListAccountsQuery) ([]models.AccountView, error) {
	return s.accounts.ListByUserID(ctx, q.UserID)
}

func (s *AccountQueryService) GetBalance(ctx context.Context, q cqrs.GetAccountQuery) (*models.BalanceView, error) {
	account, err := ownedAccount(ctx, s.accounts, q.AccountNumber, q.RequestingUserID)
	if err != nil {
		return nil, err
	}
	return &models.BalanceView{
		AccountNumber:    account.AccountNumber,
		Balance:          account.Balance,
		AvailableBalance: account.AvailableBalance,
		Currency:         account.Currency,
	}, nil
}

func ownedAccount(ctx context.Context, accounts AccountReader, accountNumber, userID string) (*models.AccountView, error) {
	account, err := accounts.GetByAccountNumber(ctx, accountNumber)
	if err != nil {
		return nil, err
	}
	if account.UserID != userID {
		return nil, apperrors.ErrForbidden
	}
	return account, nil
}
