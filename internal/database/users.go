package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"tourdesk/internal/domain"
	"tourdesk/internal/models"
)

const userColumns = `id, email, password_hash, role, is_active, last_login_at, created_at, updated_at`

func (db *DB) GetUserByID(ctx context.Context, id int64) (*models.User, error) {
	return db.queryUser(ctx, `SELECT `+userColumns+` FROM users WHERE id = ?`, id)
}

func (db *DB) GetUserByEmail(ctx context.Context, email string) (*models.User, error) {
	return db.queryUser(ctx, `SELECT `+userColumns+` FROM users WHERE email = ?`, strings.TrimSpace(email))
}

func (db *DB) queryUser(ctx context.Context, query string, args ...interface{}) (*models.User, error) {
	var (
		u         models.User
		lastLogin sql.NullTime
	)
	err := db.QueryRowContext(ctx, query, args...).Scan(
		&u.ID, &u.Email, &u.PasswordHash, &u.Role, &u.IsActive, &lastLogin, &u.CreatedAt, &u.UpdatedAt,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, domain.NewNotFound("User")
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get user: %w", err)
	}
	if lastLogin.Valid {
		u.LastLoginAt = &lastLogin.Time
	}
	return &u, nil
}

func (db *DB) CreateUser(ctx context.Context, user *models.User) error {
	return insertUser(ctx, db.DB, user)
}

func insertUser(ctx context.Context, q querier, user *models.User) error {
	query := `INSERT INTO users (email, password_hash, role, is_active, created_at, updated_at)
              VALUES (?, ?, ?, ?, ?, ?)`
	now := time.Now().UTC()
	result, err := q.ExecContext(ctx, query,
		strings.TrimSpace(user.Email),
		user.PasswordHash,
		user.Role,
		user.IsActive,
		now,
		now,
	)
	if err != nil {
		return fmt.Errorf("failed to create user: %w", mapError(err))
	}

	id, err := result.LastInsertId()
	if err != nil {
		return fmt.Errorf("failed to get last insert id: %w", err)
	}
	user.ID = id
	user.CreatedAt = now
	user.UpdatedAt = now
	return nil
}

// RegisterCustomer stores the user and links a customer record to it. An
// existing unlinked customer with the same email is claimed instead of
// duplicated.
func (db *DB) RegisterCustomer(ctx context.Context, user *models.User, customer *models.Customer) error {
	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", mapError(err))
	}
	defer func() {
		_ = tx.Rollback()
	}()

	if err := insertUser(ctx, tx, user); err != nil {
		return err
	}
	customer.UserID = &user.ID

	existing, err := scanCustomer(tx.QueryRowContext(ctx,
		`SELECT `+customerColumns+` FROM customers WHERE email = ?`, strings.TrimSpace(customer.Email)))
	switch {
	case errors.Is(err, sql.ErrNoRows):
		if err := insertCustomer(ctx, tx, customer); err != nil {
			return err
		}
	case err != nil:
		return fmt.Errorf("failed to look up customer: %w", err)
	case existing.UserID != nil:
		return fmt.Errorf("customer %s: %w", existing.Email, domain.ErrDuplicate)
	default:
		now := time.Now().UTC()
		_, err := tx.ExecContext(ctx, `UPDATE customers SET user_id = ?, updated_at = ? WHERE id = ?`,
			user.ID, now, existing.ID)
		if err != nil {
			return fmt.Errorf("failed to link customer: %w", mapError(err))
		}
		existing.UserID = &user.ID
		existing.UpdatedAt = now
		*customer = *existing
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", mapError(err))
	}
	return nil
}

func (db *DB) UpdateLastLogin(ctx context.Context, id int64, at time.Time) error {
	_, err := db.ExecContext(ctx, `UPDATE users SET last_login_at = ?, updated_at = ? WHERE id = ?`, at.UTC(), at.UTC(), id)
	if err != nil {
		return fmt.Errorf("failed to update last login: %w", err)
	}
	return nil
}
