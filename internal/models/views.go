package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// UserView is the read-optimised projection of a user.
// It never exposes PasswordHash.
type UserView struct {
	ID          string    `json:"id"`
	FullName    string    `json:"fullName"`
	Email       string    `json:"email"`
	PhoneNumber string    `json:"phoneNumber,omitempty"`
	Address     *Address  `json:"address,omitempty"`
	IsActive    bool      `json:"isActive"`
	IsSuperuser bool      `json:"isSuperuser"`
	CreatedAt   time.Time `json:"createdTimestamp"`
	UpdatedAt   time.Time `json:"updatedTimestamp"`
}

// AccountView is the read-optimised projection of an account, joined with
// its bank. UserID is populated for ownership checks but never serialised.
type AccountView struct {
	ID               string          `json:"id"`
	UserID           string          `json:"-"`
	BankID           string          `json:"bankId"`
	BankName         string          `json:"bankName,omitempty"`
	BankCode         string          `json:"bankCode,omitempty"`
	AccountNumber    string          `json:"accountNumber"`
	AccountType      AccountType     `json:"accountType"`
	Balance          decimal.Decimal `json:"balance"`
	AvailableBalance decimal.Decimal `json:"availableBalance"`
	Currency         string          `json:"currency"`
	Status           AccountStatus   `json:"status"`
	OverdraftLimit   decimal.Decimal `json:"overdraftLimit"`
	CreatedAt        time.Time       `json:"createdTimestamp"`
	UpdatedAt        time.Time       `json:"updatedTimestamp"`
	DeletedAt        *time.Time      `json:"deletedTimestamp,omitempty"`
}

type BalanceView struct {
	AccountNumber    string          `json:"accountNumber"`
	Balance          decimal.Decimal `json:"balance"`
	AvailableBalance decimal.Decimal `json:"availableBalance"`
	Currency         string          `json:"currency"`
}

// CardView carries the owning user for ownership checks; the card number is
// served as stored since the owner is the only reader.
type CardView struct {
	Card
	UserID        string `json:"-"`
	AccountNumber string `json:"accountNumber"`
}

// TransactionView is a ledger row joined with its account.
type TransactionView struct {
	Transaction
	AccountNumber string `json:"accountNumber"`
	UserID        string `json:"-"`
}

// TypeSummary aggregates one transaction type on one account.
type TypeSummary struct {
	Type  TransactionType `json:"type"`
	Count int             `json:"count"`
	Total decimal.Decimal `json:"total"`
}

type TransactionSummary struct {
	AccountNumber string          `json:"accountNumber"`
	Currency      string          `json:"currency"`
	TotalCredits  decimal.Decimal `json:"totalCredits"`
	TotalDebits   decimal.Decimal `json:"totalDebits"`
	ByType        []TypeSummary   `json:"byType"`
}

func (a *Account) ToView() *AccountView {
	return &AccountView{
		ID:               a.ID,
		UserID:           a.UserID,
		BankID:           a.BankID,
		AccountNumber:    a.AccountNumber,
		AccountType:      a.AccountType,
		Balance:          a.Balance,
		AvailableBalance: a.AvailableBalance,
		Currency:         a.Currency,
		Status:           a.Status,
		OverdraftLimit:   a.OverdraftLimit,
		CreatedAt:        a.CreatedAt,
		UpdatedAt:        a.UpdatedAt,
		DeletedAt:        a.DeletedAt,
	}
}

func (u *User) ToView() *UserView {
	return &UserView{
		ID:          u.ID,
		FullName:    u.FullName,
		Email:       u.Email,
		PhoneNumber: u.PhoneNumber,
		Address:     u.Address,
		IsActive:    u.IsActive,
		IsSuperuser: u.IsSuperuser,
		CreatedAt:   u.CreatedAt,
		UpdatedAt:   u.UpdatedAt,
	}
}

// CardStatusChange reports a block or unblock. Unchanged is set when the card
// was already in the requested state.
type CardStatusChange struct {
	Card      *CardView `json:"card"`
	Unchanged bool      `json:"unchanged"`
}
