package repository

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/Addisu87/bank-support-agent/internal/apperrors"
	"github.com/Addisu87/bank-support-agent/internal/database"
	"github.com/Addisu87/bank-support-agent/internal/metrics"
	"github.com/Addisu87/bank-support-agent/internal/models"
	sharedredis "github.com/Addisu87/bank-support-agent/internal/redis"
	goredis "github.com/redis/go-redis/v9"
)

const (
	cardViewKeyPrefix = "card:view:"
	cardListKeyPrefix = "card:list:"
	cardConstraint    = "cards_card_number_key"
)

type cardCacheEntry struct {
	models.CardView
	OwnerID string `json:"ownerId"`
}

type cardListEntry struct {
	Cards []cardCacheEntry `json:"cards"`
}

// CardRepository reads and writes cards. Reads join the owning account so
// ownership can be checked without a second query.
type CardRepository struct {
	db    *sql.DB
	cache *sharedredis.ViewCache[cardCacheEntry]
	lists *sharedredis.ViewCache[cardListEntry]
}

func NewCardRepository(db *sql.DB, redisClient *goredis.Client, ttl time.Duration, collector metrics.MetricsCollector) *CardRepository {
	return &CardRepository{
		db:    db,
		cache: sharedredis.NewViewCache[cardCacheEntry](redisClient, "card", ttl).WithMetrics(collector),
		lists: sharedredis.NewViewCache[cardListEntry](redisClient, "card_list", ttl).WithMetrics(collector),
	}
}

const cardViewQuery = `
	SELECT c.id, c.account_id, c.bank_id, c.card_number, c.card_holder_name, c.card_type, c.status,
	       c.expiry_date, c.cvv, c.daily_limit, c.contactless_enabled, c.international_usage,
	       c.created_at, c.updated_at, a.account_number, a.user_id
	FROM cards c
	JOIN accounts a ON a.id = c.account_id
`

func scanCardView(row rowScanner) (*models.CardView, error) {
	var v models.CardView
	err := row.Scan(
		&v.ID, &v.AccountID, &v.BankID, &v.CardNumber, &v.CardHolderName, &v.CardType, &v.Status,
		&v.ExpiryDate, &v.CVV, &v.DailyLimit, &v.ContactlessEnabled, &v.InternationalUsage,
		&v.CreatedAt, &v.UpdatedAt, &v.AccountNumber, &v.UserID,
	)
	if err != nil {
		return nil, err
	}
	return &v, nil
}

// Create inserts a card. A card number collision is reported as ErrConflict
// so the caller can draw a new number.
func (r *CardRepository) Create(ctx context.Context, card *models.Card) error {
	query := `
		INSERT INTO cards (id, account_id, bank_id, card_number, card_holder_name, card_type, status,
			expiry_date, cvv, daily_limit, contactless_enabled, international_usage, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14)
	`
	_, err := database.Conn(ctx, r.db).ExecContext(ctx, query,
		card.ID, card.AccountID, card.BankID, card.CardNumber, card.CardHolderName, card.CardType,
		card.Status, card.ExpiryDate, card.CVV, card.DailyLimit, card.ContactlessEnabled,
		card.InternationalUsage, card.CreatedAt, card.UpdatedAt,
	)
	if err != nil {
		if isUniqueViolation(err, cardConstraint) {
			return apperrors.Conflict("card number already exists")
		}
		return fmt.Errorf("failed to create card: %w", translate(err, "card"))
	}
	return nil
}

func (r *CardRepository) GetByID(ctx context.Context, id string) (*models.CardView, error) {
	if entry, ok := r.cache.Get(ctx, cardViewKeyPrefix+id); ok {
		view := entry.CardView
		view.UserID = entry.OwnerID
		return &view, nil
	}

	view, err := scanCardView(database.Conn(ctx, r.db).QueryRowContext(ctx, cardViewQuery+` WHERE c.id = $1`, id))
	if err == sql.ErrNoRows {
		return nil, apperrors.NotFound("card")
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get card: %w", err)
	}
	r.cache.Set(ctx, cardViewKeyPrefix+id, &cardCacheEntry{CardView: *view, OwnerID: view.UserID})
	return view, nil
}

// ListByUserID returns the cards on all of the user's open accounts.
func (r *CardRepository) ListByUserID(ctx context.Context, userID string) ([]models.CardView, error) {
	cacheKey := cardListKeyPrefix + userID
	if entry, ok := r.lists.Get(ctx, cacheKey); ok {
		views := make([]models.CardView, 0, len(entry.Cards))
		for _, e := range entry.Cards {
			v := e.CardView
			v.UserID = e.OwnerID
			views = append(views, v)
		}
		return views, nil
	}

	query := cardViewQuery + ` WHERE a.user_id = $1 AND a.deleted_at IS NULL ORDER BY c.created_at DESC`
	rows, err := r.db.QueryContext(ctx, query, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to list cards: %w", err)
	}
	defer rows.Close()

	views := []models.CardView{}
	entry := &cardListEntry{}
	for rows.Next() {
		view, err := scanCardView(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan card: %w", err)
		}
		views = append(views, *view)
		entry.Cards = append(entry.Cards, cardCacheEntry{CardView: *view, OwnerID: view.UserID})
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to list cards: %w", err)
	}
	r.lists.Set(ctx, cacheKey, entry)
	return views, nil
}

// Update persists status, limits and flags.
func (r *CardRepository) Update(ctx context.Context, card *models.Card) error {
	query := `
		UPDATE cards
		SET status = $2, daily_limit = $3, contactless_enabled = $4, international_usage = $5, updated_at = $6
		WHERE id = $1
	`
	result, err := database.Conn(ctx, r.db).ExecContext(ctx, query,
		card.ID, card.Status, card.DailyLimit, card.ContactlessEnabled, card.InternationalUsage, card.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to update card: %w", err)
	}
	return expectOne(result, "card")
}

// InvalidateCard drops the card view and the owner's cached card lists.
func (r *CardRepository) InvalidateCard(ctx context.Context, cardID, userID string) {
	r.cache.Delete(ctx, cardViewKeyPrefix+cardID)
	r.lists.DeletePattern(ctx, cardListKeyPrefix+userID+"*")
}
