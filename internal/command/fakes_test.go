package command

import (
	"context"
	"maps"
	"sync"
	"time"

	"github.com/Addisu87/bank-support-agent/internal/apperrors"
	"github.com/Addisu87/bank-support-agent/internal/models"
	"github.com/Addisu87/bank-support-agent/internal/utils"
	"github.com/shopspring/decimal"
)

// memStore is an in-memory stand-in for the Postgres write store.
type memStore struct {
	mu       sync.Mutex
	accounts map[string]*models.Account // by id
	rows     []*models.Transaction
	users    map[string]*models.User
	banks    map[string]*models.Bank
	cards    map[string]*models.CardView

	failLedger  error
	invalidated []string
	published   []string
}

func newMemStore() *memStore {
	return &memStore{
		accounts: map[string]*models.Account{},
		users:    map[string]*models.User{},
		banks:    map[string]*models.Bank{},
		cards:    map[string]*models.CardView{},
	}
}

func (m *memStore) addAccount(id, userID, bankID, number string, balance string) *models.Account {
	b := decimal.RequireFromString(balance)
	a := &models.Account{
		ID:               id,
		UserID:           userID,
		BankID:           bankID,
		AccountNumber:    number,
		AccountType:      models.AccountChecking,
		Balance:          b,
		AvailableBalance: b,
		Currency:         "GBP",
		Status:           models.AccountActive,
	}
	m.accounts[id] = a
	return a
}

func (m *memStore) balance(number string) decimal.Decimal {
	for _, a := range m.accounts {
		if a.AccountNumber == number {
			return a.Balance
		}
	}
	panic("unknown account " + number)
}

// TxRunner

// WithTransaction snapshots accounts and ledger rows and restores them when
// fn fails.
func (m *memStore) WithTransaction(ctx context.Context, fn func(ctx context.Context) error) error {
	m.mu.Lock()
	accounts := make(map[string]models.Account, len(m.accounts))
	for id, a := range m.accounts {
		accounts[id] = *a
	}
	rows := len(m.rows)
	m.mu.Unlock()

	if err := fn(ctx); err != nil {
		m.mu.Lock()
		defer m.mu.Unlock()
		for id, a := range accounts {
			restored := a
			m.accounts[id] = &restored
		}
		m.rows = m.rows[:rows]
		return err
	}
	return nil
}

// AccountWriter

func (m *memStore) GetByAccountNumber(ctx context.Context, number string) (*models.Account, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, a := range m.accounts {
		if a.AccountNumber == number && a.DeletedAt == nil {
			copied := *a
			return &copied, nil
		}
	}
	return nil, apperrors.NotFound("account")
}

func (m *memStore) ApplyDelta(ctx context.Context, id string, delta decimal.Decimal) (*models.Account, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	a, ok := m.accounts[id]
	if !ok || a.DeletedAt != nil {
		return nil, apperrors.NotFound("account")
	}
	if delta.IsNegative() && a.AvailableBalance.Add(delta).IsNegative() {
		return nil, apperrors.ErrInsufficientFunds
	}
	a.Balance = a.Balance.Add(delta)
	a.AvailableBalance = a.AvailableBalance.Add(delta)
	copied := *a
	return &copied, nil
}

func (m *memStore) Create(ctx context.Context, account *models.Account) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, a := range m.accounts {
		if a.AccountNumber == account.AccountNumber {
			return apperrors.Conflict("account account_number already exists")
		}
	}
	copied := *account
	m.accounts[account.ID] = &copied
	return nil
}

func (m *memStore) Update(ctx context.Context, account *models.Account) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	a, ok := m.accounts[account.ID]
	if !ok || a.DeletedAt != nil {
		return apperrors.NotFound("account")
	}
	a.AccountType = account.AccountType
	a.Status = account.Status
	a.OverdraftLimit = account.OverdraftLimit
	return nil
}

func (m *memStore) Close(ctx context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	a, ok := m.accounts[id]
	if !ok || a.DeletedAt != nil {
		return apperrors.NotFound("account")
	}
	now := time.Now()
	a.Status = models.AccountClosed
	a.DeletedAt = &now
	return nil
}

func (m *memStore) CountOpenByUserID(ctx context.Context, userID string) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	n := 0
	for _, a := range m.accounts {
		if a.UserID == userID && a.DeletedAt == nil {
			n++
		}
	}
	return n, nil
}

// AccountCache, TransactionCache, UserCache

func (m *memStore) InvalidateAccount(ctx context.Context, number, userID string) {
	m.invalidated = append(m.invalidated, "account:"+number)
}

func (m *memStore) InvalidateTransactionView(ctx context.Context, id string) {
	m.invalidated = append(m.invalidated, "transaction:"+id)
}

func (m *memStore) CacheUserView(ctx context.Context, view *models.UserView) {}

func (m *memStore) InvalidateUserView(ctx context.Context, userID string) {
	m.invalidated = append(m.invalidated, "user:"+userID)
}

// EventPublisher

func (m *memStore) Publish(ctx context.Context, stream, eventType string, data any) error {
	m.published = append(m.published, eventType)
	return nil
}

// memLedger implements Ledger over the same store.
type memLedger struct{ *memStore }

func (l memLedger) Create(ctx context.Context, t *models.Transaction) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.failLedger != nil {
		return l.failLedger
	}
	if _, ok := l.accounts[t.AccountID]; !ok {
		return apperrors.NotFound("account")
	}
	if t.ID == "" {
		t.ID = utils.GenerateID("tan")
	}
	if t.Reference == "" {
		t.Reference = utils.GenerateReference(t.Type.ReferencePrefix())
	}
	for _, r := range l.rows {
		if r.Reference == t.Reference {
			return apperrors.Conflict("transaction reference already exists")
		}
	}
	t.CreatedAt = time.Now().UTC()
	t.UpdatedAt = t.CreatedAt
	copied := *t
	copied.Metadata = maps.Clone(t.Metadata)
	l.rows = append(l.rows, &copied)
	return nil
}

func (l memLedger) GetByID(ctx context.Context, id string) (*models.Transaction, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	for _, r := range l.rows {
		if r.ID == id {
			copied := *r
			return &copied, nil
		}
	}
	return nil, apperrors.NotFound("transaction")
}

func (l memLedger) UpdateStatus(ctx context.Context, id string, from, to models.TransactionStatus) (*models.Transaction, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	for _, r := range l.rows {
		if r.ID == id {
			if r.Status != from {
				return nil, apperrors.ErrInvalidTransition
			}
			r.Status = to
			copied := *r
			return &copied, nil
		}
	}
	return nil, apperrors.NotFound("transaction")
}

func (l memLedger) Delete(ctx context.Context, id string) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	for i, r := range l.rows {
		if r.ID == id {
			l.rows = append(l.rows[:i], l.rows[i+1:]...)
			return nil
		}
	}
	return apperrors.NotFound("transaction")
}

func (m *memStore) rowsFor(accountID string) []*models.Transaction {
	var out []*models.Transaction
	for _, r := range m.rows {
		if r.AccountID == accountID {
			out = append(out, r)
		}
	}
	return out
}

type memBanks struct{ *memStore }

func (b memBanks) Create(ctx context.Context, bank *models.Bank) error {
	for _, existing := range b.banks {
		if existing.Code == bank.Code {
			return apperrors.Conflict("bank code already exists")
		}
	}
	copied := *bank
	b.banks[bank.ID] = &copied
	return nil
}

func (b memBanks) GetByID(ctx context.Context, id string) (*models.Bank, error) {
	bank, ok := b.banks[id]
	if !ok {
		return nil, apperrors.NotFound("bank")
	}
	copied := *bank
	return &copied, nil
}

func (b memBanks) Update(ctx context.Context, bank *models.Bank) error {
	if _, ok := b.banks[bank.ID]; !ok {
		return apperrors.NotFound("bank")
	}
	copied := *bank
	b.banks[bank.ID] = &copied
	return nil
}

type memCards struct{ *memStore }

func (c memCards) Create(ctx context.Context, card *models.Card) error {
	for _, existing := range c.cards {
		if existing.CardNumber == card.CardNumber {
			return apperrors.Conflict("card number already exists")
		}
	}
	a := c.accounts[card.AccountID]
	c.cards[card.ID] = &models.CardView{Card: *card, UserID: a.UserID, AccountNumber: a.AccountNumber}
	return nil
}

func (c memCards) GetByID(ctx context.Context, id string) (*models.CardView, error) {
	card, ok := c.cards[id]
	if !ok {
		return nil, apperrors.NotFound("card")
	}
	copied := *card
	return &copied, nil
}

func (c memCards) Update(ctx context.Context, card *models.Card) error {
	existing, ok := c.cards[card.ID]
	if !ok {
		return apperrors.NotFound("card")
	}
	existing.Card = *card
	return nil
}

func (c memCards) InvalidateCard(ctx context.Context, cardID, userID string) {
	c.invalidated = append(c.invalidated, "card:"+cardID)
}

type memUsers struct{ *memStore }

func (u memUsers) Create(ctx context.Context, user *models.User) error {
	for _, existing := range u.users {
		if existing.Email == user.Email {
			return apperrors.Conflict("email already registered")
		}
	}
	copied := *user
	u.users[user.ID] = &copied
	return nil
}

func (u memUsers) GetByID(ctx context.Context, id string) (*models.User, error) {
	user, ok := u.users[id]
	if !ok {
		return nil, apperrors.NotFound("user")
	}
	copied := *user
	return &copied, nil
}

func (u memUsers) GetByEmail(ctx context.Context, email string) (*models.User, error) {
	for _, user := range u.users {
		if user.Email == email {
			copied := *user
			return &copied, nil
		}
	}
	return nil, apperrors.NotFound("user")
}

func (u memUsers) Update(ctx context.Context, user *models.User) error {
	if _, ok := u.users[user.ID]; !ok {
		return apperrors.NotFound("user")
	}
	copied := *user
	u.users[user.ID] = &copied
	return nil
}

func (u memUsers) UpdatePassword(ctx context.Context, userID, hash string) error {
	user, ok := u.users[userID]
	if !ok {
		return apperrors.NotFound("user")
	}
	user.PasswordHash = hash
	return nil
}

func (u memUsers) Delete(ctx context.Context, id string) error {
	if _, ok := u.users[id]; !ok {
		return apperrors.NotFound("user")
	}
	delete(u.users, id)
	return nil
}
