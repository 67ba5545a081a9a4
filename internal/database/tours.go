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

const tourColumns = `id, destination, description, start_date, end_date, capacity, price, status, image_url, created_at, updated_at`

func scanTour(row interface{ Scan(...any) error }) (*models.Tour, error) {
	var t models.Tour
	err := row.Scan(&t.ID, &t.Destination, &t.Description, &t.StartDate, &t.EndDate,
		&t.Capacity, &t.Price, &t.Status, &t.ImageURL, &t.CreatedAt, &t.UpdatedAt)
	if err != nil {
		return nil, err
	}
	return &t, nil
}

func (s *store) GetTour(ctx context.Context, id int64) (*models.Tour, error) {
	row := s.db.QueryRowContext(ctx, `SELECT `+tourColumns+` FROM tours WHERE id = ?`, id)
	tour, err := scanTour(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, domain.NewNotFound("Tour")
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get tour: %w", err)
	}
	return tour, nil
}

// GetBookedGuests sums guests over non-cancelled bookings of the tour.
func (s *store) GetBookedGuests(ctx context.Context, tourID, excludeBookingID int64) (int, error) {
	query := `SELECT COALESCE(SUM(num_guests), 0) FROM bookings
              WHERE tour_id = ? AND status != ? AND id != ?`
	var booked int
	err := s.db.QueryRowContext(ctx, query, tourID, models.StatusCancelled, excludeBookingID).Scan(&booked)
	if err != nil {
		return 0, fmt.Errorf("failed to get booked guests: %w", mapError(err))
	}
	return booked, nil
}

func (db *DB) ListTours(ctx context.Context, includeInactive bool, destination string) ([]*models.Tour, error) {
	query := `SELECT ` + tourColumns + ` FROM tours WHERE 1=1`
	var args []any
	if !includeInactive {
		query += ` AND status = ?`
		args = append(args, models.TourActive)
	}
	if d := strings.TrimSpace(destination); d != "" {
		query += ` AND LOWER(destination) LIKE LOWER(?)`
		args = append(args, "%"+d+"%")
	}
	if includeInactive {
		query += ` ORDER BY start_date DESC, id DESC`
	} else {
		query += ` ORDER BY start_date ASC, id ASC`
	}

	rows, err := db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list tours: %w", err)
	}
	defer rows.Close()

	var tours []*models.Tour
	for rows.Next() {
		tour, err := scanTour(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan tour: %w", err)
		}
		tours = append(tours, tour)
	}
	return tours, rows.Err()
}

func (db *DB) CreateTour(ctx context.Context, tour *models.Tour) error {
	query := `INSERT INTO tours (destination, description, start_date, end_date, capacity, price, status, image_url, created_at, updated_at)
              VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`
	now := time.Now().UTC()
	result, err := db.ExecContext(ctx, query,
		tour.Destination,
		tour.Description,
		tour.StartDate,
		tour.EndDate,
		tour.Capacity,
		tour.Price,
		tour.Status,
		tour.ImageURL,
		now,
		now,
	)
	if err != nil {
		return fmt.Errorf("failed to create tour: %w", mapError(err))
	}

	id, err := result.LastInsertId()
	if err != nil {
		return fmt.Errorf("failed to get last insert id: %w", err)
	}
	tour.ID = id
	tour.CreatedAt = now
	tour.UpdatedAt = now
	return nil
}

func (db *DB) UpdateTour(ctx context.Context, tour *models.Tour) error {
	query := `UPDATE tours SET destination = ?, description = ?, start_date = ?, end_date = ?,
              capacity = ?, price = ?, status = ?, image_url = ?, updated_at = ? WHERE id = ?`
	now := time.Now().UTC()
	res, err := db.ExecContext(ctx, query,
		tour.Destination, tour.Description, tour.StartDate, tour.EndDate,
		tour.Capacity, tour.Price, tour.Status, tour.ImageURL, now, tour.ID)
	if err != nil {
		return fmt.Errorf("failed to update tour: %w", mapError(err))
	}
	n, err := rowsAffected(res)
	if err != nil {
		return err
	}
	if n == 0 {
		return domain.NewNotFound("Tour")
	}
	tour.UpdatedAt = now
	return nil
}

// DeleteTourIfUnbooked removes a tour and its cancelled bookings. Tours that
// still hold non-cancelled bookings are refused.
func (db *DB) DeleteTourIfUnbooked(ctx context.Context, id int64) error {
	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", mapError(err))
	}
	defer func() {
		_ = tx.Rollback()
	}()

	var exists int
	err = tx.QueryRowContext(ctx, `SELECT COUNT(*) FROM tours WHERE id = ?`, id).Scan(&exists)
	if err != nil {
		return fmt.Errorf("failed to check tour: %w", err)
	}
	if exists == 0 {
		return domain.NewNotFound("Tour")
	}

	var active int
	err = tx.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM bookings WHERE tour_id = ? AND status != ?`, id, models.StatusCancelled).Scan(&active)
	if err != nil {
		return fmt.Errorf("failed to count tour bookings: %w", err)
	}
	if active > 0 {
		return domain.NewValidation("Cannot delete tour with active bookings. Cancel bookings first or set tour to inactive.")
	}

	if _, err := tx.ExecContext(ctx, `DELETE FROM tours WHERE id = ?`, id); err != nil {
		return fmt.Errorf("failed to delete tour: %w", mapError(err))
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", mapError(err))
	}
	return nil
}

func (db *DB) CountTours(ctx context.Context) (int, error) {
	var n int
	if err := db.QueryRowContext(ctx, `SELECT COUNT(*) FROM tours`).Scan(&n); err != nil {
		return 0, fmt.Errorf("failed to count tours: %w", err)
	}
	return n, nil
}

// SeedTours inserts the given tours when the tours table is empty.
func (db *DB) SeedTours(ctx context.Context, tours []models.Tour) (int, error) {
	count, err := db.CountTours(ctx)
	if err != nil {
		return 0, err
	}
	if count > 0 {
		return 0, nil
	}

	for i := range tours {
		tour := tours[i]
		if tour.Status == "" {
			tour.Status = models.TourActive
		}
		if err := db.CreateTour(ctx, &tour); err != nil {
			return i, fmt.Errorf("failed to seed tour %q: %w", tour.Destination, err)
		}
	}
	db.logger.Info().Int("count", len(tours)).Msg("tours seeded")
	return len(tours), nil
}
