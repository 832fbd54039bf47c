package models

import (
	"time"

	"github.com/shopspring/decimal"
)

type AccountType string

const (
	AccountChecking AccountType = "checking"
	AccountSavings  AccountType = "savings"
	AccountBusiness AccountType = "business"
	AccountLoan     AccountType = "loan"
	AccountCredit   AccountType = "credit"
)

type AccountStatus string

const (
	AccountActive    AccountStatus = "active"
	AccountInactive  AccountStatus = "inactive"
	AccountSuspended AccountStatus = "suspended"
	AccountClosed    AccountStatus = "closed"
)

type TransactionType string

const (
	TxDeposit    TransactionType = "deposit"
	TxWithdrawal TransactionType = "withdrawal"
	TxTransfer   TransactionType = "transfer"
	TxPayment    TransactionType = "payment"
	TxRefund     TransactionType = "refund"
	TxFee        TransactionType = "fee"
)

type TransactionStatus string

const (
	TxPending   TransactionStatus = "pending"
	TxCompleted TransactionStatus = "completed"
	TxFailed    TransactionStatus = "failed"
	TxCancelled TransactionStatus = "cancelled"
	TxReversed  TransactionStatus = "reversed"
)

type CardType string

const (
	CardDebit   CardType = "debit"
	CardCredit  CardType = "credit"
	CardPrepaid CardType = "prepaid"
)

type CardStatus string

const (
	CardActive   CardStatus = "active"
	CardInactive CardStatus = "inactive"
	CardLost     CardStatus = "lost"
	CardStolen   CardStatus = "stolen"
	CardExpired  CardStatus = "expired"
	CardBlocked  CardStatus = "blocked"
)

type Address struct {
	Line1    string `json:"line1" validate:"required"`
	Line2    string `json:"line2,omitempty"`
	Town     string `json:"town" validate:"required"`
	County   string `json:"county,omitempty"`
	Postcode string `json:"postcode" validate:"required"`
	Country  string `json:"country,omitempty"`
}

type User struct {
	ID           string    `json:"id"`
	FullName     string    `json:"fullName"`
	Email        string    `json:"email"`
	PasswordHash string    `json:"-"`
	PhoneNumber  string    `json:"phoneNumber,omitempty"`
	Address      *Address  `json:"address,omitempty"`
	IsActive     bool      `json:"isActive"`
	IsSuperuser  bool      `json:"isSuperuser"`
	CreatedAt    time.Time `json:"createdTimestamp"`
	UpdatedAt    time.Time `json:"updatedTimestamp"`
}

type Bank struct {
	ID            string    `json:"id"`
	Name          string    `json:"name"`
	Code          string    `json:"code"`
	SwiftCode     string    `json:"swiftCode,omitempty"`
	RoutingNumber string    `json:"routingNumber,omitempty"`
	Country       string    `json:"country"`
	Currency      string    `json:"currency"`
	ContactEmail  string    `json:"contactEmail,omitempty"`
	ContactPhone  string    `json:"contactPhone,omitempty"`
	Website       string    `json:"website,omitempty"`
	Address       string    `json:"address,omitempty"`
	IsActive      bool      `json:"isActive"`
	CreatedAt     time.Time `json:"createdTimestamp"`
	UpdatedAt     time.Time `json:"updatedTimestamp"`
}

type Account struct {
	ID               string          `json:"id"`
	UserID           string          `json:"-"`
	BankID           string          `json:"bankId"`
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

type Card struct {
	ID                 string          `json:"id"`
	AccountID          string          `json:"accountId"`
	BankID             string          `json:"bankId"`
	CardNumber         string          `json:"cardNumber"`
	CardHolderName     string          `json:"cardHolderName"`
	CardType           CardType        `json:"cardType"`
	Status             CardStatus      `json:"status"`
	ExpiryDate         time.Time       `json:"expiryDate"`
	CVV                string          `json:"-"`
	DailyLimit         decimal.Decimal `json:"dailyLimit"`
	ContactlessEnabled bool            `json:"contactlessEnabled"`
	InternationalUsage bool            `json:"internationalUsage"`
	CreatedAt          time.Time       `json:"createdTimestamp"`
	UpdatedAt          time.Time       `json:"updatedTimestamp"`
}

// Transaction is a ledger row. Amount is signed: debits are negative.
type Transaction struct {
	ID               string            `json:"id"`
	AccountID        string            `json:"accountId"`
	CardID           string            `json:"cardId,omitempty"`
	Amount           decimal.Decimal   `json:"amount"`
	Currency         string            `json:"currency"`
	Type             TransactionType   `json:"type"`
	Status           TransactionStatus `json:"status"`
	Description      string            `json:"description,omitempty"`
	Reference        string            `json:"reference"`
	TransferID       string            `json:"transferId,omitempty"`
	Merchant         string            `json:"merchant,omitempty"`
	MerchantCategory string            `json:"merchantCategory,omitempty"`
	Location         string            `json:"location,omitempty"`
	Metadata         Metadata          `json:"metadata,omitempty"`
	CreatedAt        time.Time         `json:"createdTimestamp"`
	UpdatedAt        time.Time         `json:"updatedTimestamp"`
}

// TransferResult is returned by both transfer flows. NewBalance is the
// source account's balance after the debit.
type TransferResult struct {
	TransferID        string            `json:"transferId"`
	Reference         string            `json:"reference"`
	FromAccountNumber string            `json:"fromAccountNumber"`
	ToAccountNumber   string            `json:"toAccountNumber"`
	Amount            decimal.Decimal   `json:"amount"`
	NewBalance        decimal.Decimal   `json:"newBalance"`
	Status            TransactionStatus `json:"status"`
}

// OperationResult is returned by deposits and withdrawals.
type OperationResult struct {
	Transaction      *Transaction    `json:"transaction"`
	AccountNumber    string          `json:"accountNumber"`
	NewBalance       decimal.Decimal `json:"newBalance"`
	AvailableBalance decimal.Decimal `json:"availableBalance"`
}
