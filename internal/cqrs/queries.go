package cqrs

import (
	"time"

	"github.com/Addisu87/bank-support-agent/internal/models"
)

// ---------- User queries ----------

// GetUserQuery fetches a single user by ID, subject to ownership check.
type GetUserQuery struct {
	UserID           string
	RequestingUserID string
}

type ListUsersQuery struct {
	Limit  int
	Offset int
}

// ---------- Bank queries ----------

type GetBankQuery struct {
	BankID string
}

type ListBanksQuery struct {
	IncludeInactive bool
}

// ---------- Account queries ----------

// GetAccountQuery fetches a single account by account number.
type GetAccountQuery struct {
	AccountNumber    string
	RequestingUserID string
}

// ListAccountsQuery fetches all accounts belonging to a user.
type ListAccountsQuery struct {
	UserID string
}

// ---------- Card queries ----------

type GetCardQuery struct {
	CardID           string
	RequestingUserID string
}

type ListCardsQuery struct {
	UserID string
}

// ---------- Transaction queries ----------

// GetTransactionQuery fetches a single transaction. Superusers bypass the ownership check.
type GetTransactionQuery struct {
	TransactionID string
	UserID        string
	IsSuperuser   bool
}

type GetByReferenceQuery struct {
	Reference string
	UserID    string
}

// ListTransactionsQuery filters the caller's ledger. Zero values mean "any".
type ListTransactionsQuery struct {
	UserID        string
	AccountNumber string
	CardID        string
	Type          models.TransactionType
	Status        models.TransactionStatus
	From          *time.Time
	To            *time.Time
	Limit         int
	Offset        int
}

type RecentTransactionsQuery struct {
	UserID string
	Limit  int
}

type TransactionSummaryQuery struct {
	AccountNumber string
	UserID        string
	From          *time.Time
	To            *time.Time
}
