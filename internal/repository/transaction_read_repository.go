package repository

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/Addisu87/bank-support-agent/internal/apperrors"
	"github.com/Addisu87/bank-support-agent/internal/metrics"
	"github.com/Addisu87/bank-support-agent/internal/models"
	sharedredis "github.com/Addisu87/bank-support-agent/internal/redis"
	goredis "github.com/redis/go-redis/v9"
	"github.com/shopspring/decimal"
)

const (
	transactionViewKeyPrefix = "transaction:view:"

	DefaultListLimit = 50
	MaxListLimit     = 100
)

// TransactionFilter narrows a ledger listing. Zero values mean "any".
type TransactionFilter struct {
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

// transactionCacheEntry keeps the owner id that TransactionView hides from JSON.
type transactionCacheEntry struct {
	models.TransactionView
	OwnerID string `json:"ownerId"`
}

// TransactionReadRepository handles all read operations for ledger rows.
type TransactionReadRepository struct {
	db    *sql.DB
	cache *sharedredis.ViewCache[transactionCacheEntry]
}

func NewTransactionReadRepository(db *sql.DB, redisClient *goredis.Client, ttl time.Duration, collector metrics.MetricsCollector) *TransactionReadRepository {
	return &TransactionReadRepository{
		db:    db,
		cache: sharedredis.NewViewCache[transactionCacheEntry](redisClient, "transaction", ttl).WithMetrics(collector),
	}
}

const transactionViewQuery = `
	SELECT t.id, t.account_id, t.card_id, t.amount, t.currency, t.type, t.status, t.description, t.reference,
	       t.transfer_id, t.merchant, t.merchant_category, t.location, t.metadata, t.created_at, t.updated_at,
	       a.account_number, a.user_id
	FROM transactions t
	JOIN accounts a ON a.id = t.account_id
`

func scanTransactionView(row rowScanner) (*models.TransactionView, error) {
	var accountNumber, userID string
	t, err := scanTransaction(row, &accountNumber, &userID)
	if err != nil {
		return nil, err
	}
	return &models.TransactionView{Transaction: *t, AccountNumber: accountNumber, UserID: userID}, nil
}

// GetByID returns a TransactionView by attempting Redis first, then PostgreSQL.
func (r *TransactionReadRepository) GetByID(ctx context.Context, id string) (*models.TransactionView, error) {
	if entry, ok := r.cache.Get(ctx, transactionViewKeyPrefix+id); ok {
		view := entry.TransactionView
		view.UserID = entry.OwnerID
		return &view, nil
	}

	view, err := scanTransactionView(r.db.QueryRowContext(ctx, transactionViewQuery+` WHERE t.id = $1`, id))
	if err == sql.ErrNoRows {
		return nil, apperrors.NotFound("transaction")
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get transaction: %w", err)
	}

	r.CacheTransactionView(ctx, view)
	return view, nil
}

func (r *TransactionReadRepository) GetByReference(ctx context.Context, reference string) (*models.TransactionView, error) {
	view, err := scanTransactionView(r.db.QueryRowContext(ctx, transactionViewQuery+` WHERE t.reference = $1`, reference))
	if err == sql.ErrNoRows {
		return nil, apperrors.NotFound("transaction")
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get transaction: %w", err)
	}
	return view, nil
}

// List returns ledger rows matching f, newest first.
func (r *TransactionReadRepository) List(ctx context.Context, f TransactionFilter) ([]models.TransactionView, error) {
	var (
		where []string
		args  []any
	)
	add := func(clause string, v any) {
		args = append(args, v)
		where = append(where, fmt.Sprintf(clause, len(args)))
	}
	if f.UserID != "" {
		add("a.user_id = $%d", f.UserID)
	}
	if f.AccountNumber != "" {
		add("a.account_number = $%d", f.AccountNumber)
	}
	if f.CardID != "" {
		add("t.card_id = $%d", f.CardID)
	}
	if f.Type != "" {
		add("t.type = $%d", f.Type)
	}
	if f.Status != "" {
		add("t.status = $%d", f.Status)
	}
	if f.From != nil {
		add("t.created_at >= $%d", *f.From)
	}
	if f.To != nil {
		add("t.created_at <= $%d", *f.To)
	}

	query := transactionViewQuery
	if len(where) > 0 {
		query += " WHERE " + strings.Join(where, " AND ")
	}
	args = append(args, clampLimit(f.Limit), max(f.Offset, 0))
	query += fmt.Sprintf(" ORDER BY t.created_at DESC, t.id LIMIT $%d OFFSET $%d", len(args)-1, len(args))

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list transactions: %w", err)
	}
	defer rows.Close()

	views := []models.TransactionView{}
	for rows.Next() {
		view, err := scanTransactionView(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan transaction: %w", err)
		}
		views = append(views, *view)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to list transactions: %w", err)
	}
	return views, nil
}

// Summary aggregates completed and pending rows of one account per type.
func (r *TransactionReadRepository) Summary(ctx context.Context, accountID string, from, to *time.Time) ([]models.TypeSummary, decimal.Decimal, decimal.Decimal, error) {
	query := `
		SELECT type, COUNT(*), COALESCE(SUM(amount), 0),
		       COALESCE(SUM(CASE WHEN amount > 0 THEN amount ELSE 0 END), 0),
		       COALESCE(SUM(CASE WHEN amount < 0 THEN -amount ELSE 0 END), 0)
		FROM transactions
		WHERE account_id = $1
		  AND status IN ('completed', 'pending')
		  AND ($2::timestamptz IS NULL OR created_at >= $2)
		  AND ($3::timestamptz IS NULL OR created_at <= $3)
		GROUP BY type
		ORDER BY type
	`
	rows, err := r.db.QueryContext(ctx, query, accountID, nullTime(from), nullTime(to))
	if err != nil {
		return nil, decimal.Zero, decimal.Zero, fmt.Errorf("failed to summarise transactions: %w", err)
	}
	defer rows.Close()

	byType := []models.TypeSummary{}
	credits, debits := decimal.Zero, decimal.Zero
	for rows.Next() {
		var (
			s           models.TypeSummary
			typeCredits decimal.Decimal
			typeDebits  decimal.Decimal
		)
		if err := rows.Scan(&s.Type, &s.Count, &s.Total, &typeCredits, &typeDebits); err != nil {
			return nil, decimal.Zero, decimal.Zero, fmt.Errorf("failed to scan summary: %w", err)
		}
		credits = credits.Add(typeCredits)
		debits = debits.Add(typeDebits)
		byType = append(byType, s)
	}
	if err := rows.Err(); err != nil {
		return nil, decimal.Zero, decimal.Zero, fmt.Errorf("failed to summarise transactions: %w", err)
	}
	return byType, credits, debits, nil
}

// ListStalePending returns interbank transfers still pending that were created before cutoff.
func (r *TransactionReadRepository) ListStalePending(ctx context.Context, cutoff time.Time, limit int) ([]models.TransactionView, error) {
	return r.List(ctx, TransactionFilter{
		Type:   models.TxTransfer,
		Status: models.TxPending,
		To:     &cutoff,
		Limit:  limit,
	})
}

func (r *TransactionReadRepository) CountStalePending(ctx context.Context, cutoff time.Time) (int, error) {
	query := `SELECT COUNT(*) FROM transactions WHERE type = $1 AND status = $2 AND created_at <= $3`
	var count int
	if err := r.db.QueryRowContext(ctx, query, models.TxTransfer, models.TxPending, cutoff).Scan(&count); err != nil {
		return 0, fmt.Errorf("failed to count pending transfers: %w", err)
	}
	return count, nil
}

// CacheTransactionView stores the read model for a transaction in Redis.
func (r *TransactionReadRepository) CacheTransactionView(ctx context.Context, view *models.TransactionView) {
	r.cache.Set(ctx, transactionViewKeyPrefix+view.ID, &transactionCacheEntry{TransactionView: *view, OwnerID: view.UserID})
}

func (r *TransactionReadRepository) InvalidateTransactionView(ctx context.Context, id string) {
	r.cache.Delete(ctx, transactionViewKeyPrefix+id)
}

func clampLimit(limit int) int {
	if limit <= 0 {
		return DefaultListLimit
	}
	if limit > MaxListLimit {
		return MaxListLimit
	}
	return limit
}
