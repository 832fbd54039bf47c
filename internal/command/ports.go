package command

import (
	"context"

	"github.com/Addisu87/bank-support-agent/internal/models"
	"github.com/shopspring/decimal"
)

// TxRunner runs fn inside one database transaction carried by the context.
type TxRunner interface {
	WithTransaction(ctx context.Context, fn func(ctx context.Context) error) error
}

// EventPublisher appends a domain event to a stream.
type EventPublisher interface {
	Publish(ctx context.Context, stream, eventType string, data any) error
}

// AccountStore is the write side of accounts used by the ledger.
type AccountStore interface {
	GetByAccountNumber(ctx context.Context, accountNumber string) (*models.Account, error)
	ApplyDelta(ctx context.Context, accountID string, delta decimal.Decimal) (*models.Account, error)
}

// AccountWriter extends AccountStore with the lifecycle operations.
type AccountWriter interface {
	AccountStore
	Create(ctx context.Context, account *models.Account) error
	Update(ctx context.Context, account *models.Account) error
	Close(ctx context.Context, accountID string) error
	CountOpenByUserID(ctx context.Context, userID string) (int, error)
}

// AccountCache drops cached account views after a mutation.
type AccountCache interface {
	InvalidateAccount(ctx context.Context, accountNumber, userID string)
}

// Ledger is the write side of transactions.
type Ledger interface {
	Create(ctx context.Context, t *models.Transaction) error
	GetByID(ctx context.Context, id string) (*models.Transaction, error)
	UpdateStatus(ctx context.Context, id string, from, to models.TransactionStatus) (*models.Transaction, error)
	Delete(ctx context.Context, id string) error
}

// TransactionCache drops a cached transaction view.
type TransactionCache interface {
	InvalidateTransactionView(ctx context.Context, id string)
}

type BankStore interface {
	Create(ctx context.Context, bank *models.Bank) error
	GetByID(ctx context.Context, id string) (*models.Bank, error)
	Update(ctx context.Context, bank *models.Bank) error
}

type CardStore interface {
	Create(ctx context.Context, card *models.Card) error
	GetByID(ctx context.Context, id string) (*models.CardView, error)
	Update(ctx context.Context, card *models.Card) error
	InvalidateCard(ctx context.Context, cardID, userID string)
}

type UserStore interface {
	Create(ctx context.Context, user *models.User) error
	GetByID(ctx context.Context, id string) (*models.User, error)
	GetByEmail(ctx context.Context, email string) (*models.User, error)
	Update(ctx context.Context, user *models.User) error
	UpdatePassword(ctx context.Context, userID, passwordHash string) error
	Delete(ctx context.Context, id string) error
}

// UserCache refreshes or drops the cached user view.
type UserCache interface {
	CacheUserView(ctx context.Context, view *models.UserView)
	InvalidateUserView(ctx context.Context, userID string)
}
