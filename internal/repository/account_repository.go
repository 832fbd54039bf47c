package repository

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/Addisu87/bank-support-agent/internal/apperrors"
	"github.com/Addisu87/bank-support-agent/internal/database"
	"github.com/Addisu87/bank-support-agent/internal/models"
	"github.com/shopspring/decimal"
)

const accountColumns = `id, user_id, bank_id, account_number, account_type, balance, available_balance,
	currency, status, overdraft_limit, created_at, updated_at, deleted_at`

// AccountWriteRepository handles all state-mutating operations for accounts.
// It operates exclusively against the PostgreSQL write store (source of truth)
// and joins the caller's transaction when the context carries one.
type AccountWriteRepository struct {
	db *sql.DB
}

func NewAccountWriteRepository(db *sql.DB) *AccountWriteRepository {
	return &AccountWriteRepository{db: db}
}

func scanAccount(row rowScanner) (*models.Account, error) {
	var a models.Account
	err := row.Scan(
		&a.ID, &a.UserID, &a.BankID, &a.AccountNumber, &a.AccountType,
		&a.Balance, &a.AvailableBalance, &a.Currency, &a.Status, &a.OverdraftLimit,
		&a.CreatedAt, &a.UpdatedAt, &a.DeletedAt,
	)
	if err != nil {
		return nil, err
	}
	return &a, nil
}

func (r *AccountWriteRepository) Create(ctx context.Context, account *models.Account) error {
	query := `
		INSERT INTO accounts (id, user_id, bank_id, account_number, account_type, balance, available_balance,
			currency, status, overdraft_limit, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)
	`
	_, err := database.Conn(ctx, r.db).ExecContext(ctx, query,
		account.ID, account.UserID, account.BankID, account.AccountNumber, account.AccountType,
		account.Balance, account.AvailableBalance, account.Currency, account.Status,
		account.OverdraftLimit, account.CreatedAt, account.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to create account: %w", translate(err, "account"))
	}
	return nil
}

// GetByAccountNumber fetches the full write model including UserID for ownership checks.
func (r *AccountWriteRepository) GetByAccountNumber(ctx context.Context, accountNumber string) (*models.Account, error) {
	query := `SELECT ` + accountColumns + ` FROM accounts WHERE account_number = $1 AND deleted_at IS NULL`
	account, err := scanAccount(database.Conn(ctx, r.db).QueryRowContext(ctx, query, accountNumber))
	if err == sql.ErrNoRows {
		return nil, apperrors.NotFound("account")
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get account: %w", err)
	}
	return account, nil
}

func (r *AccountWriteRepository) GetByID(ctx context.Context, id string) (*models.Account, error) {
	query := `SELECT ` + accountColumns + ` FROM accounts WHERE id = $1 AND deleted_at IS NULL`
	account, err := scanAccount(database.Conn(ctx, r.db).QueryRowContext(ctx, query, id))
	if err == sql.ErrNoRows {
		return nil, apperrors.NotFound("account")
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get account: %w", err)
	}
	return account, nil
}

// Update persists the mutable descriptive fields. Balances are only ever
// changed through ApplyDelta.
func (r *AccountWriteRepository) Update(ctx context.Context, account *models.Account) error {
	query := `
		UPDATE accounts
		SET account_type = $2, status = $3, overdraft_limit = $4, updated_at = $5
		WHERE id = $1 AND deleted_at IS NULL
	`
	result, err := database.Conn(ctx, r.db).ExecContext(ctx, query,
		account.ID, account.AccountType, account.Status, account.OverdraftLimit, account.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to update account: %w", err)
	}
	return expectOne(result, "account")
}

// ApplyDelta adds delta to both balance and available balance in one
// conditional statement. A debit that would take available_balance below
// zero matches no row and is reported as ErrInsufficientFunds.
func (r *AccountWriteRepository) ApplyDelta(ctx context.Context, accountID string, delta decimal.Decimal) (*models.Account, error) {
	conn := database.Conn(ctx, r.db)
	query := `
		UPDATE accounts
		SET balance = balance + $2::numeric,
		    available_balance = available_balance + $2::numeric,
		    updated_at = NOW()
		WHERE id = $1 AND deleted_at IS NULL
		  AND ($2::numeric >= 0 OR available_balance + $2::numeric >= 0)
		RETURNING ` + accountColumns
	account, err := scanAccount(conn.QueryRowContext(ctx, query, accountID, delta))
	if err == nil {
		return account, nil
	}
	if err != sql.ErrNoRows {
		return nil, fmt.Errorf("failed to apply balance change: %w", err)
	}

	var exists bool
	if err := conn.QueryRowContext(ctx,
		`SELECT EXISTS (SELECT 1 FROM accounts WHERE id = $1 AND deleted_at IS NULL)`, accountID,
	).Scan(&exists); err != nil {
		return nil, fmt.Errorf("failed to check account: %w", err)
	}
	if !exists {
		return nil, apperrors.NotFound("account")
	}
	return nil, apperrors.ErrInsufficientFunds
}

// Close soft-deletes the account: status becomes closed and deleted_at is stamped.
func (r *AccountWriteRepository) Close(ctx context.Context, accountID string) error {
	query := `
		UPDATE accounts
		SET status = $2, deleted_at = NOW(), updated_at = NOW()
		WHERE id = $1 AND deleted_at IS NULL
	`
	result, err := database.Conn(ctx, r.db).ExecContext(ctx, query, accountID, models.AccountClosed)
	if err != nil {
		return fmt.Errorf("failed to close account: %w", err)
	}
	return expectOne(result, "account")
}

func (r *AccountWriteRepository) CountOpenByUserID(ctx context.Context, userID string) (int, error) {
	query := `SELECT COUNT(*) FROM accounts WHERE user_id = $1 AND deleted_at IS NULL`
	var count int
	if err := database.Conn(ctx, r.db).QueryRowContext(ctx, query, userID).Scan(&count); err != nil {
		return 0, fmt.Errorf("failed to count accounts: %w", err)
	}
	return count, nil
}

func expectOne(result sql.Result, resource string) error {
	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to check rows affected: %w", err)
	}
	if rows == 0 {
		return apperrors.NotFound(resource)
	}
	return nil
}
