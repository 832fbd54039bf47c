package repository

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/Addisu87/bank-support-agent/internal/apperrors"
	"github.com/Addisu87/bank-support-agent/internal/database"
	"github.com/Addisu87/bank-support-agent/internal/models"
)

const (
	userColumns     = `id, full_name, email, password_hash, phone_number, address, is_active, is_superuser, created_at, updated_at`
	emailConstraint = "users_email_key"
)

// UserWriteRepository handles all state-mutating operations for users.
// It operates exclusively against the PostgreSQL write store (source of truth).
type UserWriteRepository struct {
	db *sql.DB
}

func NewUserWriteRepository(db *sql.DB) *UserWriteRepository {
	return &UserWriteRepository{db: db}
}

func scanUser(row rowScanner) (*models.User, error) {
	var (
		u       models.User
		phone   sql.NullString
		address *models.Address
	)
	err := row.Scan(
		&u.ID, &u.FullName, &u.Email, &u.PasswordHash, &phone, &address,
		&u.IsActive, &u.IsSuperuser, &u.CreatedAt, &u.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	u.PhoneNumber = phone.String
	u.Address = address
	return &u, nil
}

func (r *UserWriteRepository) Create(ctx context.Context, user *models.User) error {
	query := `INSERT INTO users (` + userColumns + `) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)`
	_, err := database.Conn(ctx, r.db).ExecContext(ctx, query,
		user.ID, user.FullName, user.Email, user.PasswordHash, nullString(user.PhoneNumber),
		user.Address, user.IsActive, user.IsSuperuser, user.CreatedAt, user.UpdatedAt,
	)
	if err != nil {
		if isUniqueViolation(err, emailConstraint) {
			return apperrors.Conflict("email already registered")
		}
		return fmt.Errorf("failed to create user: %w", translate(err, "user"))
	}
	return nil
}

// GetByID fetches the full write model (including PasswordHash) for internal operations.
func (r *UserWriteRepository) GetByID(ctx context.Context, id string) (*models.User, error) {
	query := `SELECT ` + userColumns + ` FROM users WHERE id = $1 AND deleted_at IS NULL`
	user, err := scanUser(database.Conn(ctx, r.db).QueryRowContext(ctx, query, id))
	if err == sql.ErrNoRows {
		return nil, apperrors.NotFound("user")
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get user: %w", err)
	}
	return user, nil
}

func (r *UserWriteRepository) GetByEmail(ctx context.Context, email string) (*models.User, error) {
	query := `SELECT ` + userColumns + ` FROM users WHERE email = $1 AND deleted_at IS NULL`
	user, err := scanUser(database.Conn(ctx, r.db).QueryRowContext(ctx, query, email))
	if err == sql.ErrNoRows {
		return nil, apperrors.NotFound("user")
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get user: %w", err)
	}
	return user, nil
}

func (r *UserWriteRepository) Update(ctx context.Context, user *models.User) error {
	query := `
		UPDATE users
		SET full_name = $2, email = $3, phone_number = $4, address = $5, is_active = $6, updated_at = $7
		WHERE id = $1 AND deleted_at IS NULL
	`
	result, err := database.Conn(ctx, r.db).ExecContext(ctx, query,
		user.ID, user.FullName, user.Email, nullString(user.PhoneNumber), user.Address,
		user.IsActive, user.UpdatedAt,
	)
	if err != nil {
		if isUniqueViolation(err, emailConstraint) {
			return apperrors.Conflict("email already registered")
		}
		return fmt.Errorf("failed to update user: %w", err)
	}
	return expectOne(result, "user")
}

func (r *UserWriteRepository) UpdatePassword(ctx context.Context, userID, passwordHash string) error {
	query := `UPDATE users SET password_hash = $2, updated_at = NOW() WHERE id = $1 AND deleted_at IS NULL`
	result, err := database.Conn(ctx, r.db).ExecContext(ctx, query, userID, passwordHash)
	if err != nil {
		return fmt.Errorf("failed to update password: %w", err)
	}
	return expectOne(result, "user")
}

// Delete soft-deletes the user.
func (r *UserWriteRepository) Delete(ctx context.Context, id string) error {
	query := `UPDATE users SET deleted_at = NOW(), is_active = FALSE WHERE id = $1 AND deleted_at IS NULL`
	result, err := database.Conn(ctx, r.db).ExecContext(ctx, query, id)
	if err != nil {
		return fmt.Errorf("failed to delete user: %w", err)
	}
	return expectOne(result, "user")
}
