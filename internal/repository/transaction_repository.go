package repository

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/Addisu87/bank-support-agent/internal/apperrors"
	"github.com/Addisu87/bank-support-agent/internal/database"
	"github.com/Addisu87/bank-support-agent/internal/models"
	"github.com/Addisu87/bank-support-agent/internal/utils"
)

const (
	referenceConstraint  = "transactions_reference_key"
	maxReferenceAttempts = 3
)

const transactionColumns = `id, account_id, card_id, amount, currency, type, status, description, reference,
	transfer_id, merchant, merchant_category, location, metadata, created_at, updated_at`

// TransactionWriteRepository handles all state-mutating operations for ledger rows.
type TransactionWriteRepository struct {
	db *sql.DB
}

func NewTransactionWriteRepository(db *sql.DB) *TransactionWriteRepository {
	return &TransactionWriteRepository{db: db}
}

func scanTransaction(row rowScanner, extra ...any) (*models.Transaction, error) {
	var (
		t                                    models.Transaction
		cardID, description, transferID      sql.NullString
		merchant, merchantCategory, location sql.NullString
	)
	dest := []any{
		&t.ID, &t.AccountID, &cardID, &t.Amount, &t.Currency, &t.Type, &t.Status, &description,
		&t.Reference, &transferID, &merchant, &merchantCategory, &location, &t.Metadata,
		&t.CreatedAt, &t.UpdatedAt,
	}
	if err := row.Scan(append(dest, extra...)...); err != nil {
		return nil, err
	}
	t.CardID = cardID.String
	t.Description = description.String
	t.TransferID = transferID.String
	t.Merchant = merchant.String
	t.MerchantCategory = merchantCategory.String
	t.Location = location.String
	return &t, nil
}

// Create inserts a ledger row. When Reference is empty a type-prefixed
// reference is generated and regenerated on collision. A caller-supplied
// reference that collides is a Conflict.
func (r *TransactionWriteRepository) Create(ctx context.Context, t *models.Transaction) error {
	if t.ID == "" {
		t.ID = utils.GenerateID("tan")
	}
	now := time.Now().UTC()
	if t.CreatedAt.IsZero() {
		t.CreatedAt = now
	}
	t.UpdatedAt = t.CreatedAt

	generated := t.Reference == ""
	for attempt := 1; ; attempt++ {
		if generated {
			t.Reference = utils.GenerateReference(t.Type.ReferencePrefix())
		}
		err := r.insert(ctx, t)
		if err == nil {
			return nil
		}
		if !isUniqueViolation(err, referenceConstraint) {
			return fmt.Errorf("failed to create transaction: %w", translate(err, "transaction"))
		}
		if !generated {
			return apperrors.Conflict("transaction reference already exists")
		}
		if attempt >= maxReferenceAttempts {
			return fmt.Errorf("failed to generate a unique reference after %d attempts: %w", attempt, apperrors.ErrConflict)
		}
	}
}

// insert wraps the INSERT in a savepoint when running inside a transaction,
// so a reference collision does not abort the enclosing transaction.
func (r *TransactionWriteRepository) insert(ctx context.Context, t *models.Transaction) error {
	conn := database.Conn(ctx, r.db)
	inTx := database.InTx(ctx)
	if inTx {
		if _, err := conn.ExecContext(ctx, `SAVEPOINT ledger_insert`); err != nil {
			return err
		}
	}

	query := `
		INSERT INTO transactions (` + transactionColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16)
	`
	_, err := conn.ExecContext(ctx, query,
		t.ID, t.AccountID, nullString(t.CardID), t.Amount, t.Currency, t.Type, t.Status,
		nullString(t.Description), t.Reference, nullString(t.TransferID), nullString(t.Merchant),
		nullString(t.MerchantCategory), nullString(t.Location), t.Metadata, t.CreatedAt, t.UpdatedAt,
	)

	if inTx {
		if err != nil {
			if _, rbErr := conn.ExecContext(ctx, `ROLLBACK TO SAVEPOINT ledger_insert`); rbErr != nil {
				return fmt.Errorf("%w (rollback to savepoint: %v)", err, rbErr)
			}
			return err
		}
		if _, err := conn.ExecContext(ctx, `RELEASE SAVEPOINT ledger_insert`); err != nil {
			return err
		}
	}
	return err
}

func (r *TransactionWriteRepository) GetByID(ctx context.Context, id string) (*models.Transaction, error) {
	query := `SELECT ` + transactionColumns + ` FROM transactions WHERE id = $1`
	t, err := scanTransaction(database.Conn(ctx, r.db).QueryRowContext(ctx, query, id))
	if err == sql.ErrNoRows {
		return nil, apperrors.NotFound("transaction")
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get transaction: %w", err)
	}
	return t, nil
}

// UpdateStatus moves a row from one status to another. The WHERE clause on
// the current status makes a concurrent transition lose cleanly.
func (r *TransactionWriteRepository) UpdateStatus(ctx context.Context, id string, from, to models.TransactionStatus) (*models.Transaction, error) {
	query := `
		UPDATE transactions SET status = $3, updated_at = NOW()
		WHERE id = $1 AND status = $2
		RETURNING ` + transactionColumns
	t, err := scanTransaction(database.Conn(ctx, r.db).QueryRowContext(ctx, query, id, from, to))
	if err == sql.ErrNoRows {
		if _, getErr := r.GetByID(ctx, id); getErr != nil {
			return nil, getErr
		}
		return nil, apperrors.ErrInvalidTransition
	}
	if err != nil {
		return nil, fmt.Errorf("failed to update transaction status: %w", err)
	}
	return t, nil
}

func (r *TransactionWriteRepository) Delete(ctx context.Context, id string) error {
	result, err := database.Conn(ctx, r.db).ExecContext(ctx, `DELETE FROM transactions WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("failed to delete transaction: %w", err)
	}
	return expectOne(result, "transaction")
}
