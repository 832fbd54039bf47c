package repository

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/Addisu87/bank-support-agent/internal/apperrors"
	"github.com/Addisu87/bank-support-agent/internal/metrics"
	"github.com/Addisu87/bank-support-agent/internal/models"
	sharedredis "github.com/Addisu87/bank-support-agent/internal/redis"
	goredis "github.com/redis/go-redis/v9"
	"golang.org/x/sync/singleflight"
)

const (
	accountViewKeyPrefix = "account:view:"
	accountListKeyPrefix = "account:list:"
)

// accountCacheEntry is the Redis representation of an account. Unlike
// models.AccountView it serialises UserID so cached reads can still enforce
// ownership.
type accountCacheEntry struct {
	models.AccountView
	OwnerID string `json:"ownerId"`
}

type accountListEntry struct {
	Accounts []accountCacheEntry `json:"accounts"`
}

// AccountReadRepository handles all read operations for accounts.
// It treats Redis as the primary read store and falls back to PostgreSQL,
// warming the cache on every cold read. Concurrent cold reads of the same
// account share one database query.
type AccountReadRepository struct {
	db    *sql.DB
	cache *sharedredis.ViewCache[accountCacheEntry]
	lists *sharedredis.ViewCache[accountListEntry]
	group singleflight.Group
}

func NewAccountReadRepository(db *sql.DB, redisClient *goredis.Client, ttl time.Duration, collector metrics.MetricsCollector) *AccountReadRepository {
	return &AccountReadRepository{
		db:    db,
		cache: sharedredis.NewViewCache[accountCacheEntry](redisClient, "account", ttl).WithMetrics(collector),
		lists: sharedredis.NewViewCache[accountListEntry](redisClient, "account_list", ttl).WithMetrics(collector),
	}
}

const accountViewQuery = `
	SELECT a.id, a.user_id, a.bank_id, b.name, b.code, a.account_number, a.account_type,
	       a.balance, a.available_balance, a.currency, a.status, a.overdraft_limit,
	       a.created_at, a.updated_at
	FROM accounts a
	JOIN banks b ON b.id = a.bank_id
`

func scanAccountView(row rowScanner) (*models.AccountView, error) {
	var v models.AccountView
	err := row.Scan(
		&v.ID, &v.UserID, &v.BankID, &v.BankName, &v.BankCode, &v.AccountNumber, &v.AccountType,
		&v.Balance, &v.AvailableBalance, &v.Currency, &v.Status, &v.OverdraftLimit,
		&v.CreatedAt, &v.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &v, nil
}

func toEntry(v *models.AccountView) *accountCacheEntry {
	return &accountCacheEntry{AccountView: *v, OwnerID: v.UserID}
}

func fromEntry(e *accountCacheEntry) *models.AccountView {
	v := e.AccountView
	v.UserID = e.OwnerID
	return &v
}

// GetByAccountNumber returns an AccountView, trying Redis first then PostgreSQL.
func (r *AccountReadRepository) GetByAccountNumber(ctx context.Context, accountNumber string) (*models.AccountView, error) {
	cacheKey := accountViewKeyPrefix + accountNumber
	if entry, ok := r.cache.Get(ctx, cacheKey); ok {
		return fromEntry(entry), nil
	}

	result, err, _ := r.group.Do(cacheKey, func() (any, error) {
		query := accountViewQuery + ` WHERE a.account_number = $1 AND a.deleted_at IS NULL`
		view, err := scanAccountView(r.db.QueryRowContext(ctx, query, accountNumber))
		if err == sql.ErrNoRows {
			return nil, apperrors.NotFound("account")
		}
		if err != nil {
			return nil, fmt.Errorf("failed to get account: %w", err)
		}
		r.CacheAccountView(ctx, view)
		return view, nil
	})
	if err != nil {
		return nil, err
	}
	view := *result.(*models.AccountView)
	return &view, nil
}

// ListByUserID returns all open accounts of a user.
func (r *AccountReadRepository) ListByUserID(ctx context.Context, userID string) ([]models.AccountView, error) {
	cacheKey := accountListKeyPrefix + userID
	if entry, ok := r.lists.Get(ctx, cacheKey); ok {
		views := make([]models.AccountView, 0, len(entry.Accounts))
		for i := range entry.Accounts {
			views = append(views, *fromEntry(&entry.Accounts[i]))
		}
		return views, nil
	}

	query := accountViewQuery + ` WHERE a.user_id = $1 AND a.deleted_at IS NULL ORDER BY a.created_at DESC`
	rows, err := r.db.QueryContext(ctx, query, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to list accounts: %w", err)
	}
	defer rows.Close()

	views := []models.AccountView{}
	entry := &accountListEntry{}
	for rows.Next() {
		view, err := scanAccountView(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan account: %w", err)
		}
		views = append(views, *view)
		entry.Accounts = append(entry.Accounts, *toEntry(view))
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to list accounts: %w", err)
	}

	r.lists.Set(ctx, cacheKey, entry)
	return views, nil
}

// CacheAccountView stores or refreshes the Redis read model for an account.
func (r *AccountReadRepository) CacheAccountView(ctx context.Context, view *models.AccountView) {
	r.cache.Set(ctx, accountViewKeyPrefix+view.AccountNumber, toEntry(view))
}

// InvalidateAccount drops the account's view and every cached account list
// of its owner.
func (r *AccountReadRepository) InvalidateAccount(ctx context.Context, accountNumber, userID string) {
	r.cache.Delete(ctx, accountViewKeyPrefix+accountNumber)
	r.lists.DeletePattern(ctx, accountListKeyPrefix+userID+"*")
}
