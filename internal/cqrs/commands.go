package cqrs

import (
	"github.com/Addisu87/bank-support-agent/internal/models"
	"github.com/shopspring/decimal"
)

// ---------- Users & auth ----------

type RegisterUserCommand struct {
	FullName    string
	Email       string
	Password    string
	PhoneNumber string
	Address     *models.Address
}

// UpdateUserCommand is sparse: nil fields are left unchanged.
type UpdateUserCommand struct {
	UserID           string
	RequestingUserID string
	FullName         *string
	Email            *string
	PhoneNumber      *string
	Address          *models.Address
}

type DeleteUserCommand struct {
	UserID           string
	RequestingUserID string
}

type ChangePasswordCommand struct {
	UserID          string
	CurrentPassword string
	NewPassword     string
}

type LoginCommand struct {
	Email    string
	Password string
}

type RefreshTokenCommand struct {
	Token string
}

// ---------- Banks ----------

type CreateBankCommand struct {
	Name          string
	Code          string
	SwiftCode     string
	RoutingNumber string
	Country       string
	Currency      string
	ContactEmail  string
	ContactPhone  string
	Website       string
	Address       string
}

type UpdateBankCommand struct {
	BankID        string
	Name          *string
	SwiftCode     *string
	RoutingNumber *string
	Country       *string
	Currency      *string
	ContactEmail  *string
	ContactPhone  *string
	Website       *string
	Address       *string
	IsActive      *bool
}

// ---------- Accounts ----------

type CreateAccountCommand struct {
	UserID         string
	BankID         string
	AccountType    models.AccountType
	Currency       string
	OverdraftLimit decimal.Decimal
}

// UpdateAccountCommand never touches balances.
type UpdateAccountCommand struct {
	AccountNumber    string
	RequestingUserID string
	AccountType      *models.AccountType
	Status           *models.AccountStatus
	OverdraftLimit   *decimal.Decimal
}

type DeleteAccountCommand struct {
	AccountNumber    string
	RequestingUserID string
}

// ---------- Cards ----------

type IssueCardCommand struct {
	AccountNumber      string
	RequestingUserID   string
	CardType           models.CardType
	CardHolderName     string
	DailyLimit         *decimal.Decimal
	ContactlessEnabled *bool
	InternationalUsage *bool
}

type SetCardStatusCommand struct {
	CardID           string
	RequestingUserID string
}

type UpdateCardCommand struct {
	CardID             string
	RequestingUserID   string
	DailyLimit         *decimal.Decimal
	ContactlessEnabled *bool
	InternationalUsage *bool
}

// ---------- Ledger ----------

type DepositCommand struct {
	AccountNumber string
	UserID        string
	Amount        decimal.Decimal
	Description   string
	Reference     string
}

type WithdrawCommand struct {
	AccountNumber string
	UserID        string
	Amount        decimal.Decimal
	Description   string
	Reference     string
}

type TransferCommand struct {
	FromAccountNumber string
	ToAccountNumber   string
	UserID            string
	Amount            decimal.Decimal
	Description       string
}

type TransitionStatusCommand struct {
	TransactionID string
	Status        models.TransactionStatus
	Reason        string
}

type DeleteTransactionCommand struct {
	TransactionID string
}
