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
	bankViewKeyPrefix = "bank:view:"
	bankListKey       = "bank:list:active"
)

const bankColumns = `id, name, code, swift_code, routing_number, country, currency, contact_email,
	contact_phone, website, address, is_active, created_at, updated_at`

type bankList struct {
	Banks []models.Bank `json:"banks"`
}

// BankRepository reads and writes banks. Banks change rarely, so single
// banks and the active list are cached until the next write.
type BankRepository struct {
	db    *sql.DB
	cache *sharedredis.ViewCache[models.Bank]
	list  *sharedredis.ViewCache[bankList]
}

func NewBankRepository(db *sql.DB, redisClient *goredis.Client, ttl time.Duration, collector metrics.MetricsCollector) *BankRepository {
	return &BankRepository{
		db:    db,
		cache: sharedredis.NewViewCache[models.Bank](redisClient, "bank", ttl).WithMetrics(collector),
		list:  sharedredis.NewViewCache[bankList](redisClient, "bank_list", ttl).WithMetrics(collector),
	}
}

func scanBank(row rowScanner) (*models.Bank, error) {
	var (
		b                                  models.Bank
		swift, routing, email, phone, site sql.NullString
		address                            sql.NullString
	)
	err := row.Scan(
		&b.ID, &b.Name, &b.Code, &swift, &routing, &b.Country, &b.Currency, &email,
		&phone, &site, &address, &b.IsActive, &b.CreatedAt, &b.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	b.SwiftCode = swift.String
	b.RoutingNumber = routing.String
	b.ContactEmail = email.String
	b.ContactPhone = phone.String
	b.Website = site.String
	b.Address = address.String
	return &b, nil
}

func (r *BankRepository) Create(ctx context.Context, bank *models.Bank) error {
	query := `INSERT INTO banks (` + bankColumns + `) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14)`
	_, err := database.Conn(ctx, r.db).ExecContext(ctx, query,
		bank.ID, bank.Name, bank.Code, nullString(bank.SwiftCode), nullString(bank.RoutingNumber),
		bank.Country, bank.Currency, nullString(bank.ContactEmail), nullString(bank.ContactPhone),
		nullString(bank.Website), nullString(bank.Address), bank.IsActive, bank.CreatedAt, bank.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to create bank: %w", translate(err, "bank"))
	}
	r.list.Delete(ctx, bankListKey)
	return nil
}

func (r *BankRepository) GetByID(ctx context.Context, id string) (*models.Bank, error) {
	if bank, ok := r.cache.Get(ctx, bankViewKeyPrefix+id); ok {
		return bank, nil
	}
	query := `SELECT ` + bankColumns + ` FROM banks WHERE id = $1`
	bank, err := scanBank(database.Conn(ctx, r.db).QueryRowContext(ctx, query, id))
	if err == sql.ErrNoRows {
		return nil, apperrors.NotFound("bank")
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get bank: %w", err)
	}
	r.cache.Set(ctx, bankViewKeyPrefix+id, bank)
	return bank, nil
}

// List returns banks ordered by name. Only the active list is cached.
func (r *BankRepository) List(ctx context.Context, includeInactive bool) ([]models.Bank, error) {
	if !includeInactive {
		if cached, ok := r.list.Get(ctx, bankListKey); ok {
			return cached.Banks, nil
		}
	}

	query := `SELECT ` + bankColumns + ` FROM banks WHERE ($1 OR is_active) ORDER BY name`
	rows, err := r.db.QueryContext(ctx, query, includeInactive)
	if err != nil {
		return nil, fmt.Errorf("failed to list banks: %w", err)
	}
	defer rows.Close()

	banks := []models.Bank{}
	for rows.Next() {
		bank, err := scanBank(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan bank: %w", err)
		}
		banks = append(banks, *bank)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to list banks: %w", err)
	}

	if !includeInactive {
		r.list.Set(ctx, bankListKey, &bankList{Banks: banks})
	}
	return banks, nil
}

func (r *BankRepository) Update(ctx context.Context, bank *models.Bank) error {
	query := `
		UPDATE banks
		SET name = $2, swift_code = $3, routing_number = $4, country = $5, currency = $6,
		    contact_email = $7, contact_phone = $8, website = $9, address = $10, is_active = $11,
		    updated_at = $12
		WHERE id = $1
	`
	result, err := database.Conn(ctx, r.db).ExecContext(ctx, query,
		bank.ID, bank.Name, nullString(bank.SwiftCode), nullString(bank.RoutingNumber), bank.Country,
		bank.Currency, nullString(bank.ContactEmail), nullString(bank.ContactPhone),
		nullString(bank.Website), nullString(bank.Address), bank.IsActive, bank.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to update bank: %w", translate(err, "bank"))
	}
	if err := expectOne(result, "bank"); err != nil {
		return err
	}
	r.cache.Delete(ctx, bankViewKeyPrefix+bank.ID)
	r.list.Delete(ctx, bankListKey)
	return nil
}
