package query

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/Addisu87/bank-support-agent/internal/apperrors"
	"github.com/Addisu87/bank-support-agent/internal/cqrs"
	"github.com/Addisu87/bank-support-agent/internal/middleware"
	"github.com/Addisu87/bank-support-agent/internal/models"
	"github.com/Addisu87/bank-support-agent/internal/repository"
	"github.com/Addisu87/bank-support-agent/internal/utils"
	"github.com/shopspring/decimal"
)

// ---- mock implementations ----

type mockAccountReader struct {
	accounts map[string]*models.AccountView
}

func (m *mockAccountReader) GetByAccountNumber(ctx context.Context, n string) (*models.AccountView, error) {
	if a, ok := m.accounts[n]; ok {
		copied := *a
		return &copied, nil
	}
	return nil, apperrors.NotFound("account")
}

func (m *mockAccountReader) ListByUserID(ctx context.Context, userID string) ([]models.AccountView, error) {
	out := []models.AccountView{}
	for _, a := range m.accounts {
		if a.UserID == userID {
			out = append(out, *a)
		}
	}
	return out, nil
}

type mockCardReader struct {
	cards map[string]*models.CardView
}

func (m *mockCardReader) GetByID(ctx context.Context, id string) (*models.CardView, error) {
	if c, ok := m.cards[id]; ok {
		return c, nil
	}
	return nil, apperrors.NotFound("card")
}

func (m *mockCardReader) ListByUserID(ctx context.Context, userID string) ([]models.CardView, error) {
	return nil, nil
}

type mockTransactionReader struct {
	rows       []models.TransactionView
	lastFilter repository.TransactionFilter
	summaryFor string
}

func (m *mockTransactionReader) GetByID(ctx context.Context, id string) (*models.TransactionView, error) {
	for i := range m.rows {
		if m.rows[i].ID == id {
			return &m.rows[i], nil
		}
	}
	return nil, apperrors.NotFound("transaction")
}

func (m *mockTransactionReader) GetByReference(ctx context.Context, ref string) (*models.TransactionView, error) {
	for i := range m.rows {
		if m.rows[i].Reference == ref {
			return &m.rows[i], nil
		}
	}
	return nil, apperrors.NotFound("transaction")
}

func (m *mockTransactionReader) List(ctx context.Context, f repository.TransactionFilter) ([]models.TransactionView, error) {
	m.lastFilter = f
	return m.rows, nil
}

func (m *mockTransactionReader) Summary(ctx context.Context, accountID string, from, to *time.Time) ([]models.TypeSummary, decimal.Decimal, decimal.Decimal, error) {
	m.summaryFor = accountID
	return []models.TypeSummary{{Type: models.TxDeposit, Count: 2, Total: decimal.NewFromInt(30)}}, decimal.NewFromInt(30), decimal.Zero, nil
}

func fixtures() (*mockAccountReader, *mockCardReader, *mockTransactionReader) {
	accounts := &mockAccountReader{accounts: map[string]*models.AccountView{
		"ACCT000000000001": {ID: "acc-1", UserID: "usr-alice", AccountNumber: "ACCT000000000001", Balance: decimal.NewFromInt(100), AvailableBalance: decimal.NewFromInt(90), Currency: "GBP"},
		"ACCT000000000002": {ID: "acc-2", UserID: "usr-bob", AccountNumber: "ACCT000000000002", Currency: "GBP"},
	}}
	cards := &mockCardReader{cards: map[string]*models.CardView{
		"crd-1": {Card: models.Card{ID: "crd-1"}, UserID: "usr-alice"},
	}}
	txs := &mockTransactionReader{rows: []models.TransactionView{
		{Transaction: models.Transaction{ID: "tan-1", Reference: "DEPAAAAAAAAAAAA"}, UserID: "usr-alice"},
	}}
	return accounts, cards, txs
}

// ---- tests ----

func TestAccountQueries(t *testing.T) {
	accounts, _, _ := fixtures()
	svc := NewAccountQueryService(accounts)
	ctx := context.Background()

	balance, err := svc.GetBalance(ctx, cqrs.GetAccountQuery{AccountNumber: "ACCT000000000001", RequestingUserID: "usr-alice"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !balance.Balance.Equal(decimal.NewFromInt(100)) || !balance.AvailableBalance.Equal(decimal.NewFromInt(90)) {
		t.Errorf("unexpected balance %+v", balance)
	}

	if _, err := svc.GetAccount(ctx, cqrs.GetAccountQuery{AccountNumber: "ACCT000000000002", RequestingUserID: "usr-alice"}); !errors.Is(err, apperrors.ErrForbidden) {
		t.Errorf("expected ErrForbidden, got %v", err)
	}
	if _, err := svc.GetAccount(ctx, cqrs.GetAccountQuery{AccountNumber: "ACCT404", RequestingUserID: "usr-alice"}); !errors.Is(err, apperrors.ErrNotFound) {
		t.Errorf("expected ErrNotFound, got %v", err)
	}

	list, err := svc.ListAccounts(ctx, cqrs.ListAccountsQuery{UserID: "usr-bob"})
	if err != nil || len(list) != 1 {
		t.Errorf("expected one account for bob, got %v %v", list, err)
	}
}

func TestTransactionQueries_Ownership(t *testing.T) {
	accounts, cards, txs := fixtures()
	svc := NewTransactionQueryService(txs, accounts, cards)
	ctx := context.Background()

	tests := []struct {
		name    string
		run     func() error
		wantErr error
	}{
		{"own transaction", func() error {
			_, err := svc.GetTransaction(ctx, cqrs.GetTransactionQuery{TransactionID: "tan-1", UserID: "usr-alice"})
			return err
		}, nil},
		{"someone else's transaction", func() error {
			_, err := svc.GetTransaction(ctx, cqrs.GetTransactionQuery{TransactionID: "tan-1", UserID: "usr-bob"})
			return err
		}, apperrors.ErrForbidden},
		{"superuser reads any transaction", func() error {
			_, err := svc.GetTransaction(ctx, cqrs.GetTransactionQuery{TransactionID: "tan-1", UserID: "usr-admin", IsSuperuser: true})
			return err
		}, nil},
		{"reference of someone else", func() error {
			_, err := svc.GetByReference(ctx, cqrs.GetByReferenceQuery{Reference: "DEPAAAAAAAAAAAA", UserID: "usr-bob"})
			return err
		}, apperrors.ErrForbidden},
		{"unknown reference", func() error {
			_, err := svc.GetByReference(ctx, cqrs.GetByReferenceQuery{Reference: "NOPE", UserID: "usr-alice"})
			return err
		}, apperrors.ErrNotFound},
		{"list on foreign account", func() error {
			_, err := svc.ListTransactions(ctx, cqrs.ListTransactionsQuery{UserID: "usr-alice", AccountNumber: "ACCT000000000002"})
			return err
		}, apperrors.ErrForbidden},
		{"list on foreign card", func() error {
			_, err := svc.ListTransactions(ctx, cqrs.ListTransactionsQuery{UserID: "usr-bob", CardID: "crd-1"})
			return err
		}, apperrors.ErrForbidden},
		{"inverted date range", func() error {
			from := time.Now()
			to := from.Add(-time.Hour)
			_, err := svc.ListTransactions(ctx, cqrs.ListTransactionsQuery{UserID: "usr-alice", From: &from, To: &to})
			return err
		}, apperrors.ErrInvalidInput},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.run()
			if tt.wantErr == nil && err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if tt.wantErr != nil && !errors.Is(err, tt.wantErr) {
				t.Fatalf("expected %v, got %v", tt.wantErr, err)
			}
		})
	}
}

func TestTransactionQueries_FiltersAndSummary(t *testing.T) {
	accounts, cards, txs := fixtures()
	svc := NewTransactionQueryService(txs, accounts, cards)
	ctx := context.Background()

	if _, err := svc.ListTransactions(ctx, cqrs.ListTransactionsQuery{
		UserID:        "usr-alice",
		AccountNumber: "ACCT000000000001",
		Type:          models.TxDeposit,
		Limit:         20,
		Offset:        40,
	}); err != nil {
		t.Fatalf("list: %v", err)
	}
	f := txs.lastFilter
	if f.UserID != "usr-alice" || f.AccountNumber != "ACCT000000000001" || f.Type != models.TxDeposit || f.Limit != 20 || f.Offset != 40 {
		t.Errorf("unexpected filter %+v", f)
	}

	if _, err := svc.RecentTransactions(ctx, cqrs.RecentTransactionsQuery{UserID: "usr-alice"}); err != nil {
		t.Fatalf("recent: %v", err)
	}
	if txs.lastFilter.Limit != defaultRecentLimit || txs.lastFilter.AccountNumber != "" {
		t.Errorf("unexpected recent filter %+v", txs.lastFilter)
	}

	summary, err := svc.Summary(ctx, cqrs.TransactionSummaryQuery{AccountNumber: "ACCT000000000001", UserID: "usr-alice"})
	if err != nil {
		t.Fatalf("summary: %v", err)
	}
	if txs.summaryFor != "acc-1" || summary.Currency != "GBP" || len(summary.ByType) != 1 || !summary.TotalCredits.Equal(decimal.NewFromInt(30)) {
		t.Errorf("unexpected summary %+v", summary)
	}
}

// ---- auth ----

type mockCredentialStore struct {
	users map[string]*models.User
}

func (m *mockCredentialStore) GetByID(ctx context.Context, id string) (*models.User, error) {
	if u, ok := m.users[id]; ok {
		return u, nil
	}
	return nil, apperrors.NotFound("user")
}

func (m *mockCredentialStore) GetByEmail(ctx context.Context, email string) (*models.User, error) {
	for _, u := range m.users {
		if u.Email == email {
			return u, nil
		}
	}
	return nil, apperrors.NotFound("user")
}

func TestAuthQueryService(t *testing.T) {
	hash, err := utils.HashPassword("securepass123")
	if err != nil {
		t.Fatalf("hash: %v", err)
	}
	store := &mockCredentialStore{users: map[string]*models.User{
		"usr-alice": {ID: "usr-alice", Email: "alice@example.com", PasswordHash: hash, IsActive: true, IsSuperuser: true},
	}}
	tokens, err := middleware.NewTokenManager("test-secret", "HS256", time.Minute, time.Hour)
	if err != nil {
		t.Fatalf("token manager: %v", err)
	}
	svc := NewAuthQueryService(store, tokens)
	ctx := context.Background()

	pair, err := svc.Login(ctx, cqrs.LoginCommand{Email: "Alice@Example.com", Password: "securepass123"})
	if err != nil {
		t.Fatalf("login: %v", err)
	}
	claims, err := tokens.Parse(pair.AccessToken, middleware.AccessToken)
	if err != nil || claims.UserID != "usr-alice" || !claims.IsSuperuser {
		t.Fatalf("unexpected access claims %+v %v", claims, err)
	}

	if _, err := svc.Login(ctx, cqrs.LoginCommand{Email: "alice@example.com", Password: "wrong"}); !errors.Is(err, apperrors.ErrUnauthorized) {
		t.Errorf("wrong password: expected ErrUnauthorized, got %v", err)
	}
	if _, err := svc.Login(ctx, cqrs.LoginCommand{Email: "nobody@example.com", Password: "x"}); !errors.Is(err, apperrors.ErrUnauthorized) {
		t.Errorf("unknown email: expected ErrUnauthorized, got %v", err)
	}

	if _, err := svc.RefreshToken(ctx, cqrs.RefreshTokenCommand{Token: pair.RefreshToken}); err != nil {
		t.Errorf("refresh: %v", err)
	}
	if _, err := svc.RefreshToken(ctx, cqrs.RefreshTokenCommand{Token: pair.AccessToken}); !errors.Is(err, apperrors.ErrUnauthorized) {
		t.Errorf("access token used as refresh: expected ErrUnauthorized, got %v", err)
	}

	store.users["usr-alice"].IsActive = false
	if _, err := svc.RefreshToken(ctx, cqrs.RefreshTokenCommand{Token: pair.RefreshToken}); !errors.Is(err, apperrors.ErrUnauthorized) {
		t.Errorf("inactive user: expected ErrUnauthorized, got %v", err)
	}
}
