package database

import (
	"context"
	"fmt"
	"time"

	"tourdesk/internal/models"
)

// GetDashboardStats computes the dashboard aggregate as of now.
func (db *DB) GetDashboardStats(ctx context.Context, now time.Time) (*models.DashboardStats, error) {
	stats := &models.DashboardStats{
		StatusBreakdown: make(map[string]int),
		UpcomingTours:   make([]models.UpcomingTour, 0),
	}

	totalsQuery := `SELECT
            COUNT(*),
            COALESCE(SUM(CASE WHEN status = ? THEN 1 ELSE 0 END), 0),
            COALESCE(SUM(CASE WHEN status = ? THEN 1 ELSE 0 END), 0),
            COALESCE(SUM(CASE WHEN status = ? THEN 1 ELSE 0 END), 0),
            COALESCE(SUM(CASE WHEN status != ? THEN total_amount ELSE 0 END), 0),
            COALESCE(SUM(CASE WHEN payment_status = ? THEN total_amount ELSE 0 END), 0),
            COALESCE(SUM(CASE WHEN created_at >= ? THEN 1 ELSE 0 END), 0)
        FROM bookings`
	recentSince := now.UTC().AddDate(0, 0, -models.RecentBookingsDays)
	err := db.QueryRowContext(ctx, totalsQuery,
		models.StatusPending,
		models.StatusConfirmed,
		models.StatusCancelled,
		models.StatusCancelled,
		models.PaymentPaid,
		recentSince,
	).Scan(
		&stats.TotalBookings,
		&stats.PendingBookings,
		&stats.ConfirmedBookings,
		&stats.CancelledBookings,
		&stats.TotalRevenue,
		&stats.CollectedRevenue,
		&stats.RecentBookings,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to get booking totals: %w", err)
	}

	err = db.QueryRowContext(ctx, `SELECT
            (SELECT COUNT(*) FROM tours WHERE status = ?),
            (SELECT COUNT(*) FROM customers)`, models.TourActive).
		Scan(&stats.ActiveTours, &stats.TotalCustomers)
	if err != nil {
		return nil, fmt.Errorf("failed to get tour and customer totals: %w", err)
	}

	if err := db.statusBreakdown(ctx, stats.StatusBreakdown); err != nil {
		return nil, err
	}

	upcoming, err := db.upcomingTours(ctx, now)
	if err != nil {
		return nil, err
	}
	stats.UpcomingTours = upcoming

	return stats, nil
}

func (db *DB) statusBreakdown(ctx context.Context, into map[string]int) error {
	rows, err := db.QueryContext(ctx, `SELECT status, COUNT(*) FROM bookings GROUP BY status`)
	if err != nil {
		return fmt.Errorf("failed to get status breakdown: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var (
			status string
			count  int
		)
		if err := rows.Scan(&status, &count); err != nil {
			return fmt.Errorf("failed to scan status breakdown: %w", err)
		}
		into[status] = count
	}
	return rows.Err()
}

func (db *DB) upcomingTours(ctx context.Context, now time.Time) ([]models.UpcomingTour, error) {
	query := `SELECT t.id, t.destination, t.start_date, t.capacity,
                COUNT(b.id), COALESCE(SUM(b.num_guests), 0)
              FROM tours t
              LEFT JOIN bookings b ON b.tour_id = t.id AND b.status != ?
              WHERE t.status = ? AND t.start_date > ?
              GROUP BY t.id
              ORDER BY t.start_date ASC, t.id ASC
              LIMIT ?`
	rows, err := db.QueryContext(ctx, query,
		models.StatusCancelled, models.TourActive, now.Format(models.DateLayout), models.UpcomingToursLimit)
	if err != nil {
		return nil, fmt.Errorf("failed to get upcoming tours: %w", err)
	}
	defer rows.Close()

	tours := make([]models.UpcomingTour, 0, models.UpcomingToursLimit)
	for rows.Next() {
		var u models.UpcomingTour
		if err := rows.Scan(&u.ID, &u.Destination, &u.StartDate, &u.Capacity, &u.BookingCount, &u.GuestsBooked); err != nil {
			return nil, fmt.Errorf("failed to scan upcoming tour: %w", err)
		}
		u.AvailableSlots = max(0, u.Capacity-u.GuestsBooked)
		tours = append(tours, u)
	}
	return tours, rows.Err()
}
