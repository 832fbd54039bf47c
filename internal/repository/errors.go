package repository

import (
	"database/sql"
	"errors"
	"strings"
	"time"

	"github.com/Addisu87/bank-support-agent/internal/apperrors"
	"github.com/lib/pq"
)

const (
	pqUniqueViolation     = "23505"
	pqForeignKeyViolation = "23503"
)

// rowScanner is satisfied by *sql.Row and *sql.Rows.
type rowScanner interface {
	Scan(dest ...any) error
}

func pqError(err error) (*pq.Error, bool) {
	var pqErr *pq.Error
	if errors.As(err, &pqErr) {
		return pqErr, true
	}
	return nil, false
}

func isUniqueViolation(err error, constraint string) bool {
	pqErr, ok := pqError(err)
	if !ok || pqErr.Code != pqUniqueViolation {
		return false
	}
	return constraint == "" || pqErr.Constraint == constraint
}

// translate maps driver errors onto the domain taxonomy. Unknown errors are returned unchanged.
func translate(err error, resource string) error {
	if errors.Is(err, sql.ErrNoRows) {
		return apperrors.NotFound(resource)
	}
	pqErr, ok := pqError(err)
	if !ok {
		return err
	}
	switch pqErr.Code {
	case pqUniqueViolation:
		field := strings.TrimSuffix(strings.TrimPrefix(pqErr.Constraint, resource+"s_"), "_key")
		if field == "" {
			field = "value"
		}
		return apperrors.Conflict(resource + " " + field + " already exists")
	case pqForeignKeyViolation:
		return apperrors.NotFound(referencedResource(pqErr.Constraint))
	}
	return err
}

// referencedResource guesses the missing parent from a constraint such as
// "transactions_account_id_fkey".
func referencedResource(constraint string) string {
	switch {
	case strings.Contains(constraint, "account_id"):
		return "account"
	case strings.Contains(constraint, "bank_id"):
		return "bank"
	case strings.Contains(constraint, "user_id"):
		return "user"
	case strings.Contains(constraint, "card_id"):
		return "card"
	default:
		return "referenced record"
	}
}

func nullString(s string) sql.NullString {
	if s == "" {
		return sql.NullString{Valid: false}
	}
	return sql.NullString{String: s, Valid: true}
}

func nullTime(t *time.Time) sql.NullTime {
	if t == nil {
		return sql.NullTime{}
	}
	return sql.NullTime{Time: *t, Valid: true}
}
