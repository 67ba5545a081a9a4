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

const bookingColumns = `id, tour_id, customer_id, booking_date, num_guests, status, payment_status,
    total_amount, notes, created_at, updated_at, version`

const bookingDetailsSelect = `SELECT b.id, b.tour_id, b.customer_id, b.booking_date, b.num_guests, b.status,
    b.payment_status, b.total_amount, b.notes, b.created_at, b.updated_at, b.version,
    t.destination, t.start_date, t.end_date, t.price, c.name, c.email, c.phone
    FROM bookings b
    JOIN tours t ON t.id = b.tour_id
    JOIN customers c ON c.id = b.customer_id`

var bookingSortColumns = map[string]string{
	models.SortBookingID:      "b.id",
	models.SortBookingDate:    "b.booking_date",
	models.SortBookingCreated: "b.created_at",
	models.SortTotalAmount:    "b.total_amount",
	models.SortCustomerName:   "c.name",
	models.SortDestination:    "t.destination",
}

func scanBooking(row interface{ Scan(...any) error }) (*models.Booking, error) {
	var b models.Booking
	err := row.Scan(&b.ID, &b.TourID, &b.CustomerID, &b.BookingDate, &b.NumGuests, &b.Status,
		&b.PaymentStatus, &b.TotalAmount, &b.Notes, &b.CreatedAt, &b.UpdatedAt, &b.Version)
	if err != nil {
		return nil, err
	}
	return &b, nil
}

func scanBookingDetails(row interface{ Scan(...any) error }) (*models.BookingDetails, error) {
	var d models.BookingDetails
	err := row.Scan(&d.ID, &d.TourID, &d.CustomerID, &d.BookingDate, &d.NumGuests, &d.Status,
		&d.PaymentStatus, &d.TotalAmount, &d.Notes, &d.CreatedAt, &d.UpdatedAt, &d.Version,
		&d.Destination, &d.TourStartDate, &d.TourEndDate, &d.TourPrice,
		&d.CustomerName, &d.CustomerEmail, &d.CustomerPhone)
	if err != nil {
		return nil, err
	}
	return &d, nil
}

func (s *store) GetBooking(ctx context.Context, id int64) (*models.Booking, error) {
	row := s.db.QueryRowContext(ctx, `SELECT `+bookingColumns+` FROM bookings WHERE id = ?`, id)
	booking, err := scanBooking(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, domain.NewNotFound("Booking")
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get booking: %w", mapError(err))
	}
	return booking, nil
}

func (s *store) GetBookingDetails(ctx context.Context, id int64) (*models.BookingDetails, error) {
	row := s.db.QueryRowContext(ctx, bookingDetailsSelect+` WHERE b.id = ?`, id)
	details, err := scanBookingDetails(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, domain.NewNotFound("Booking")
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get booking details: %w", mapError(err))
	}
	return details, nil
}

func (s *store) InsertBooking(ctx context.Context, booking *models.Booking) error {
	query := `INSERT INTO bookings (
				tour_id, customer_id, booking_date, num_guests, status, payment_status,
				total_amount, notes, created_at, updated_at, version
			) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`
	now := time.Now().UTC()
	result, err := s.db.ExecContext(ctx, query,
		booking.TourID,
		booking.CustomerID,
		booking.BookingDate,
		booking.NumGuests,
		booking.Status,
		booking.PaymentStatus,
		booking.TotalAmount,
		booking.Notes,
		now,
		now,
		1,
	)
	if err != nil {
		return fmt.Errorf("failed to insert booking: %w", mapError(err))
	}

	id, err := result.LastInsertId()
	if err != nil {
		return fmt.Errorf("failed to get last insert id: %w", err)
	}
	booking.ID = id
	booking.CreatedAt = now
	booking.UpdatedAt = now
	booking.Version = 1
	return nil
}

// UpdateBookingWithVersion overwrites every mutable field of the booking if
// its stored version still equals booking.Version.
func (s *store) UpdateBookingWithVersion(ctx context.Context, booking *models.Booking) error {
	query := `UPDATE bookings SET tour_id = ?, customer_id = ?, booking_date = ?, num_guests = ?,
              status = ?, payment_status = ?, total_amount = ?, notes = ?, updated_at = ?, version = version + 1
              WHERE id = ? AND version = ?`
	now := time.Now().UTC()
	res, err := s.db.ExecContext(ctx, query,
		booking.TourID,
		booking.CustomerID,
		booking.BookingDate,
		booking.NumGuests,
		booking.Status,
		booking.PaymentStatus,
		booking.TotalAmount,
		booking.Notes,
		now,
		booking.ID,
		booking.Version,
	)
	if err != nil {
		return fmt.Errorf("failed to update booking: %w", mapError(err))
	}
	n, err := rowsAffected(res)
	if err != nil {
		return err
	}
	if n == 0 {
		return ErrConcurrentModification
	}
	booking.UpdatedAt = now
	booking.Version++
	return nil
}

// CancelBooking flips a booking to cancelled and refunded.
func (s *store) CancelBooking(ctx context.Context, id int64) error {
	query := `UPDATE bookings SET status = ?, payment_status = ?, updated_at = ?, version = version + 1 WHERE id = ?`
	res, err := s.db.ExecContext(ctx, query, models.StatusCancelled, models.PaymentRefunded, time.Now().UTC(), id)
	if err != nil {
		return fmt.Errorf("failed to cancel booking: %w", mapError(err))
	}
	n, err := rowsAffected(res)
	if err != nil {
		return err
	}
	if n == 0 {
		return domain.NewNotFound("Booking")
	}
	return nil
}

func (s *store) DeleteBooking(ctx context.Context, id int64) error {
	res, err := s.db.ExecContext(ctx, `DELETE FROM bookings WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("failed to delete booking: %w", mapError(err))
	}
	n, err := rowsAffected(res)
	if err != nil {
		return err
	}
	if n == 0 {
		return domain.NewNotFound("Booking")
	}
	return nil
}

func (db *DB) ListBookings(ctx context.Context, filter models.BookingFilter) ([]*models.BookingDetails, error) {
	where, args := bookingFilterClause(filter)
	query := bookingDetailsSelect + where + bookingOrderClause(filter)
	if filter.Limit > 0 {
		query += ` LIMIT ? OFFSET ?`
		args = append(args, filter.Limit, max(filter.Offset, 0))
	}

	rows, err := db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list bookings: %w", err)
	}
	defer rows.Close()

	bookings := make([]*models.BookingDetails, 0)
	for rows.Next() {
		details, err := scanBookingDetails(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan booking: %w", err)
		}
		bookings = append(bookings, details)
	}
	return bookings, rows.Err()
}

func (db *DB) CountBookings(ctx context.Context, filter models.BookingFilter) (int, error) {
	where, args := bookingFilterClause(filter)
	query := `SELECT COUNT(*) FROM bookings b
              JOIN tours t ON t.id = b.tour_id
              JOIN customers c ON c.id = b.customer_id` + where

	var n int
	if err := db.QueryRowContext(ctx, query, args...).Scan(&n); err != nil {
		return 0, fmt.Errorf("failed to count bookings: %w", err)
	}
	return n, nil
}

func bookingFilterClause(f models.BookingFilter) (string, []any) {
	var (
		conds []string
		args  []any
	)
	if f.Status != "" {
		conds = append(conds, "b.status = ?")
		args = append(args, f.Status)
	}
	if f.PaymentStatus != "" {
		conds = append(conds, "b.payment_status = ?")
		args = append(args, f.PaymentStatus)
	}
	if f.TourID != 0 {
		conds = append(conds, "b.tour_id = ?")
		args = append(args, f.TourID)
	}
	if f.CustomerID != 0 {
		conds = append(conds, "b.customer_id = ?")
		args = append(args, f.CustomerID)
	}
	if f.DateFrom != "" {
		conds = append(conds, "b.booking_date >= ?")
		args = append(args, f.DateFrom)
	}
	if f.DateTo != "" {
		conds = append(conds, "b.booking_date <= ?")
		args = append(args, f.DateTo)
	}
	if s := strings.TrimSpace(f.Search); s != "" {
		conds = append(conds, "(c.name LIKE ? OR t.destination LIKE ? OR c.email LIKE ?)")
		pattern := "%" + s + "%"
		args = append(args, pattern, pattern, pattern)
	}
	if len(conds) == 0 {
		return "", nil
	}
	return " WHERE " + strings.Join(conds, " AND "), args
}

func bookingOrderClause(f models.BookingFilter) string {
	column, ok := bookingSortColumns[f.Sort]
	if !ok {
		column = bookingSortColumns[models.SortBookingCreated]
	}
	dir := strings.ToUpper(strings.TrimSpace(f.Order))
	if dir != "ASC" {
		dir = "DESC"
	}
	return fmt.Sprintf(" ORDER BY %s %s, b.id %s", column, dir, dir)
}
