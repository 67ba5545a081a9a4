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

const customerColumns = `id, user_id, name, email, phone, address, created_at, updated_at`

func scanCustomer(row interface{ Scan(...any) error }) (*models.Customer, error) {
	var (
		c      models.Customer
		userID sql.NullInt64
	)
	if err := row.Scan(&c.ID, &userID, &c.Name, &c.Email, &c.Phone, &c.Address, &c.CreatedAt, &c.UpdatedAt); err != nil {
		return nil, err
	}
	if userID.Valid {
		c.UserID = &userID.Int64
	}
	return &c, nil
}

func (s *store) CustomerExists(ctx context.Context, id int64) (bool, error) {
	var n int
	err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM customers WHERE id = ?`, id).Scan(&n)
	if err != nil {
		return false, fmt.Errorf("failed to check customer: %w", mapError(err))
	}
	return n > 0, nil
}

func (db *DB) GetCustomer(ctx context.Context, id int64) (*models.Customer, error) {
	return db.queryCustomer(ctx, `SELECT `+customerColumns+` FROM customers WHERE id = ?`, id)
}

func (db *DB) GetCustomerByUserID(ctx context.Context, userID int64) (*models.Customer, error) {
	return db.queryCustomer(ctx, `SELECT `+customerColumns+` FROM customers WHERE user_id = ?`, userID)
}

func (db *DB) queryCustomer(ctx context.Context, query string, args ...any) (*models.Customer, error) {
	customer, err := scanCustomer(db.QueryRowContext(ctx, query, args...))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, domain.NewNotFound("Customer")
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get customer: %w", err)
	}
	return customer, nil
}

func (db *DB) ListCustomers(ctx context.Context, search string, limit, offset int) ([]*models.Customer, error) {
	query := `SELECT ` + customerColumns + ` FROM customers`
	var args []any
	if s := strings.TrimSpace(search); s != "" {
		query += ` WHERE name LIKE ? OR email LIKE ? OR phone LIKE ?`
		pattern := "%" + s + "%"
		args = append(args, pattern, pattern, pattern)
	}
	query += ` ORDER BY name ASC, id ASC`
	if limit > 0 {
		query += ` LIMIT ? OFFSET ?`
		args = append(args, limit, offset)
	}

	rows, err := db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list customers: %w", err)
	}
	defer rows.Close()

	var customers []*models.Customer
	for rows.Next() {
		customer, err := scanCustomer(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan customer: %w", err)
		}
		customers = append(customers, customer)
	}
	return customers, rows.Err()
}

func (db *DB) CreateCustomer(ctx context.Context, customer *models.Customer) error {
	return insertCustomer(ctx, db.DB, customer)
}

func insertCustomer(ctx context.Context, q querier, customer *models.Customer) error {
	query := `INSERT INTO customers (user_id, name, email, phone, address, created_at, updated_at)
              VALUES (?, ?, ?, ?, ?, ?, ?)`
	now := time.Now().UTC()
	result, err := q.ExecContext(ctx, query,
		customer.UserID,
		customer.Name,
		customer.Email,
		customer.Phone,
		customer.Address,
		now,
		now,
	)
	if err != nil {
		return fmt.Errorf("failed to create customer: %w", mapError(err))
	}

	id, err := result.LastInsertId()
	if err != nil {
		return fmt.Errorf("failed to get last insert id: %w", err)
	}
	customer.ID = id
	customer.CreatedAt = now
	customer.UpdatedAt = now
	return nil
}

func (db *DB) UpdateCustomer(ctx context.Context, customer *models.Customer) error {
	query := `UPDATE customers SET name = ?, email = ?, phone = ?, address = ?, updated_at = ? WHERE id = ?`
	now := time.Now().UTC()
	res, err := db.ExecContext(ctx, query,
		customer.Name, customer.Email, customer.Phone, customer.Address, now, customer.ID)
	if err != nil {
		return fmt.Errorf("failed to update customer: %w", mapError(err))
	}
	n, err := rowsAffected(res)
	if err != nil {
		return err
	}
	if n == 0 {
		return domain.NewNotFound("Customer")
	}
	customer.UpdatedAt = now
	return nil
}

// DeleteCustomer removes a customer without non-cancelled bookings.
func (db *DB) DeleteCustomer(ctx context.Context, id int64) error {
	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", mapError(err))
	}
	defer func() {
		_ = tx.Rollback()
	}()

	var active int
	err = tx.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM bookings WHERE customer_id = ? AND status != ?`, id, models.StatusCancelled).Scan(&active)
	if err != nil {
		return fmt.Errorf("failed to count customer bookings: %w", err)
	}
	if active > 0 {
		return domain.NewValidation("Cannot delete customer with active bookings.")
	}

	res, err := tx.ExecContext(ctx, `DELETE FROM customers WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("failed to delete customer: %w", mapError(err))
	}
	n, err := rowsAffected(res)
	if err != nil {
		return err
	}
	if n == 0 {
		return domain.NewNotFound("Customer")
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", mapError(err))
	}
	return nil
}
