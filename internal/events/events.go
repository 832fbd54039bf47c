package events

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/shopspring/decimal"
)

// Event types
const (
	UserRegistered = "user.registered"
	UserDeleted    = "user.deleted"

	AccountOpened = "account.opened"
	AccountClosed = "account.closed"

	CardIssued  = "card.issued"
	CardBlocked = "card.blocked"

	TransactionCreated       = "transaction.created"
	TransactionStatusChanged = "transaction.status_changed"
	TransferCompleted        = "transfer.completed"
	TransferPending          = "transfer.pending"
)

// Stream names
const (
	UserEventsStream        = "user.events"
	AccountEventsStream     = "account.events"
	TransactionEventsStream = "transaction.events"
)

// Event is the envelope written to every stream. ID is unique per publish,
// so a redelivered message keeps its ID.
type Event struct {
	ID        string    `json:"id,omitempty"`
	Type      string    `json:"type"`
	Timestamp time.Time `json:"timestamp"`
	Data      any       `json:"data"`
}

// Decode re-reads the loosely typed Data payload into dst.
func (e Event) Decode(dst any) error {
	raw, err := json.Marshal(e.Data)
	if err != nil {
		return fmt.Errorf("failed to marshal %s payload: %w", e.Type, err)
	}
	if err := json.Unmarshal(raw, dst); err != nil {
		return fmt.Errorf("failed to unmarshal %s payload: %w", e.Type, err)
	}
	return nil
}

// User events
type UserRegisteredEvent struct {
	UserID   string `json:"userId"`
	Email    string `json:"email"`
	FullName string `json:"fullName"`
}

type UserDeletedEvent struct {
	UserID string `json:"userId"`
}

// Account events
type AccountOpenedEvent struct {
	AccountNumber string `json:"accountNumber"`
	UserID        string `json:"userId"`
	BankID        string `json:"bankId"`
	AccountType   string `json:"accountType"`
	Currency      string `json:"currency"`
}

type AccountClosedEvent struct {
	AccountNumber string `json:"accountNumber"`
	UserID        string `json:"userId"`
}

// Card events
type CardIssuedEvent struct {
	CardID        string `json:"cardId"`
	AccountNumber string `json:"accountNumber"`
	UserID        string `json:"userId"`
	CardType      string `json:"cardType"`
}

type CardBlockedEvent struct {
	CardID string `json:"cardId"`
	UserID string `json:"userId"`
}

// Ledger events
type TransactionCreatedEvent struct {
	TransactionID string          `json:"transactionId"`
	Reference     string          `json:"reference"`
	AccountNumber string          `json:"accountNumber"`
	UserID        string          `json:"userId"`
	Amount        decimal.Decimal `json:"amount"`
	NewBalance    decimal.Decimal `json:"newBalance"`
	Type          string          `json:"type"`
	Status        string          `json:"status"`
	Currency      string          `json:"currency"`
}

type TransactionStatusChangedEvent struct {
	TransactionID string `json:"transactionId"`
	Reference     string `json:"reference"`
	From          string `json:"from"`
	To            string `json:"to"`
}

type TransferCompletedEvent struct {
	TransferID        string          `json:"transferId"`
	Reference         string          `json:"reference"`
	FromAccountNumber string          `json:"fromAccountNumber"`
	ToAccountNumber   string          `json:"toAccountNumber"`
	FromUserID        string          `json:"fromUserId"`
	ToUserID          string          `json:"toUserId"`
	Amount            decimal.Decimal `json:"amount"`
	Currency          string          `json:"currency"`
}

type TransferPendingEvent struct {
	TransferID               string          `json:"transferId"`
	Reference                string          `json:"reference"`
	FromAccountNumber        string          `json:"fromAccountNumber"`
	DestinationAccountNumber string          `json:"destinationAccountNumber"`
	UserID                   string          `json:"userId"`
	Amount                   decimal.Decimal `json:"amount"`
	Currency                 string          `json:"currency"`
}
