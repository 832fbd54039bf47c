package query

import (
	"context"
	"time"

	"github.com/Addisu87/bank-support-agent/internal/apperrors"
	"github.com/Addisu87/bank-support-agent/internal/cqrs"
	"github.com/Addisu87/bank-support-agent/internal/models"
	"github.com/Addisu87/bank-support-agent/internal/repository"
	"github.com/shopspring/decimal"
)

const defaultRecentLimit = 10

// TransactionReader is the read side of the ledger.
type TransactionReader interface {
	GetByID(ctx context.Context, id string) (*models.TransactionView, error)
	GetByReference(ctx context.Context, reference string) (*models.TransactionView, error)
	List(ctx context.Context, f repository.TransactionFilter) ([]models.TransactionView, error)
	Summary(ctx context.Context, accountID string, from, to *time.Time) ([]models.TypeSummary, decimal.Decimal, decimal.Decimal, error)
}

// TransactionQueryService serves ledger reads. Every listing is scoped to
// the caller's own accounts.
type TransactionQueryService struct {
	transactions TransactionReader
	accounts     AccountReader
	cards        CardReader
}

func NewTransactionQueryService(transactions TransactionReader, accounts AccountReader, cards CardReader) *TransactionQueryService {
	return &TransactionQueryService{transactions: transactions, accounts: accounts, cards: cards}
}

// GetTransaction returns a single row. Superusers may read any row.
func (s *TransactionQueryService) GetTransaction(ctx context.Context, q cqrs.GetTransactionQuery) (*models.TransactionView, error) {
	view, err := s.transactions.GetByID(ctx, q.TransactionID)
	if err != nil {
		return nil, err
	}
	if !q.IsSuperuser && view.UserID != q.UserID {
		return nil, apperrors.ErrForbidden
	}
	return view, nil
}

func (s *TransactionQueryService) GetByReference(ctx context.Context, q cqrs.GetByReferenceQuery) (*models.TransactionView, error) {
	view, err := s.transactions.GetByReference(ctx, q.Reference)
	if err != nil {
		return nil, err
	}
	if view.UserID != q.UserID {
		return nil, apperrors.ErrForbidden
	}
	return view, nil
}

// ListTransactions applies the query's filters. A named account or card
// must belong to the caller.
func (s *TransactionQueryService) ListTransactions(ctx context.Context, q cqrs.ListTransactionsQuery) ([]models.TransactionView, error) {
	if q.AccountNumber != "" {
		if _, err := ownedAccount(ctx, s.accounts, q.AccountNumber, q.UserID); err != nil {
			return nil, err
		}
	}
	if q.CardID != "" {
		if _, err := ownedCard(ctx, s.cards, q.CardID, q.UserID); err != nil {
			return nil, err
		}
	}
	if q.From != nil && q.To != nil && q.From.After(*q.To) {
		return nil, apperrors.Invalid("from must not be after to")
	}
	return s.transactions.List(ctx, repository.TransactionFilter{
		UserID:        q.UserID,
		AccountNumber: q.AccountNumber,
		CardID:        q.CardID,
		Type:          q.Type,
		Status:        q.Status,
		From:          q.From,
		To:            q.To,
		Limit:         q.Limit,
		Offset:        q.Offset,
	})
}

// RecentTransactions returns the newest rows across all of the caller's accounts.
func (s *TransactionQueryService) RecentTransactions(ctx context.Context, q cqrs.RecentTransactionsQuery) ([]models.TransactionView, error) {
	limit := q.Limit
	if limit <= 0 {
		limit = defaultRecentLimit
	}
	return s.transactions.List(ctx, repository.TransactionFilter{UserID: q.UserID, Limit: limit})
}

// Summary aggregates completed and pending rows of one owned account.
func (s *TransactionQueryService) Summary(ctx context.Context, q cqrs.TransactionSummaryQuery) (*models.TransactionSummary, error) {
	account, err := ownedAccount(ctx, s.accounts, q.AccountNumber, q.UserID)
	if err != nil {
		return nil, err
	}
	byType, credits, debits, err := s.transactions.Summary(ctx, account.ID, q.From, q.To)
	if err != nil {
		return nil, err
	}
	return &models.TransactionSummary{
		AccountNumber: account.AccountNumber,
		Currency:      account.Currency,
		TotalCredits:  credits,
		TotalDebits:   debits,
		ByType:        byType,
	}, nil
}
