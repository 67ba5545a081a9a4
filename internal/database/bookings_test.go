package database

import (
	"context"
	"errors"
	"testing"

	"tourdesk/internal/domain"
	"tourdesk/internal/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBookingCRUD(t *testing.T) {
	db := setupTestDB(t)
	ctx := context.Background()

	tour := createTestTour(t, db, 10)
	customer := createTestCustomer(t, db, "anna@example.com")
	booking := insertTestBooking(t, db, tour.ID, customer.ID, 3, models.StatusPending)

	t.Run("Insert", func(t *testing.T) {
		assert.NotZero(t, booking.ID)
		assert.Equal(t, int64(1), booking.Version)
	})

	t.Run("Get", func(t *testing.T) {
		got, err := db.GetBooking(ctx, booking.ID)
		require.NoError(t, err)
		assert.Equal(t, 3, got.NumGuests)
		assert.Equal(t, "2030-01-15", got.BookingDate)
		assert.Equal(t, 300.0, got.TotalAmount)
	})

	t.Run("GetDetails", func(t *testing.T) {
		got, err := db.GetBookingDetails(ctx, booking.ID)
		require.NoError(t, err)
		assert.Equal(t, "Bali", got.Destination)
		assert.Equal(t, "anna@example.com", got.CustomerEmail)
		assert.Equal(t, 100.0, got.TourPrice)
	})

	t.Run("GetMissing", func(t *testing.T) {
		_, err := db.GetBooking(ctx, 999)
		assert.True(t, errors.Is(err, domain.ErrNotFound))
		_, err = db.GetBookingDetails(ctx, 999)
		assert.True(t, errors.Is(err, domain.ErrNotFound))
	})

	t.Run("UpdateWithVersion", func(t *testing.T) {
		current, err := db.GetBooking(ctx, booking.ID)
		require.NoError(t, err)

		current.NumGuests = 4
		current.Status = models.StatusConfirmed
		require.NoError(t, db.UpdateBookingWithVersion(ctx, current))
		assert.Equal(t, int64(2), current.Version)

		stale := *current
		stale.Version = 1
		err = db.UpdateBookingWithVersion(ctx, &stale)
		assert.True(t, errors.Is(err, ErrConcurrentModification))
		assert.True(t, errors.Is(err, domain.ErrConflict))

		got, err := db.GetBooking(ctx, booking.ID)
		require.NoError(t, err)
		assert.Equal(t, 4, got.NumGuests)
		assert.Equal(t, models.StatusConfirmed, got.Status)
	})

	t.Run("Cancel", func(t *testing.T) {
		require.NoError(t, db.CancelBooking(ctx, booking.ID))
		got, err := db.GetBooking(ctx, booking.ID)
		require.NoError(t, err)
		assert.Equal(t, models.StatusCancelled, got.Status)
		assert.Equal(t, models.PaymentRefunded, got.PaymentStatus)
		assert.Equal(t, int64(3), got.Version)

		assert.True(t, errors.Is(db.CancelBooking(ctx, 999), domain.ErrNotFound))
	})

	t.Run("Delete", func(t *testing.T) {
		require.NoError(t, db.DeleteBooking(ctx, booking.ID))
		_, err := db.GetBooking(ctx, booking.ID)
		assert.True(t, errors.Is(err, domain.ErrNotFound))
		assert.True(t, errors.Is(db.DeleteBooking(ctx, booking.ID), domain.ErrNotFound))
	})
}

func TestGetBookedGuests(t *testing.T) {
	db := setupTestDB(t)
	ctx := context.Background()

	tour := createTestTour(t, db, 10)
	other := createTestTour(t, db, 10)
	customer := createTestCustomer(t, db, "b@example.com")

	first := insertTestBooking(t, db, tour.ID, customer.ID, 3, models.StatusPending)
	insertTestBooking(t, db, tour.ID, customer.ID, 4, models.StatusConfirmed)
	insertTestBooking(t, db, tour.ID, customer.ID, 5, models.StatusCancelled)
	insertTestBooking(t, db, other.ID, customer.ID, 2, models.StatusPending)

	booked, err := db.GetBookedGuests(ctx, tour.ID, 0)
	require.NoError(t, err)
	assert.Equal(t, 7, booked)

	booked, err = db.GetBookedGuests(ctx, tour.ID, first.ID)
	require.NoError(t, err)
	assert.Equal(t, 4, booked)

	booked, err = db.GetBookedGuests(ctx, 999, 0)
	require.NoError(t, err)
	assert.Zero(t, booked)
}

func TestListBookings(t *testing.T) {
	db := setupTestDB(t)
	ctx := context.Background()

	bali := createTestTour(t, db, 20)
	rome := &models.Tour{Destination: "Rome", StartDate: "2030-09-01", EndDate: "2030-09-05", Capacity: 20, Price: 50, Status: models.TourActive}
	require.NoError(t, db.CreateTour(ctx, rome))

	anna := createTestCustomer(t, db, "anna@example.com")
	bob := createTestCustomer(t, db, "bob@example.com")

	b1 := insertTestBooking(t, db, bali.ID, anna.ID, 1, models.StatusPending)
	b2 := insertTestBooking(t, db, rome.ID, bob.ID, 2, models.StatusConfirmed)
	b3 := insertTestBooking(t, db, bali.ID, bob.ID, 5, models.StatusCancelled)

	tests := []struct {
		name   string
		filter models.BookingFilter
		want   []int64
	}{
		{"DefaultNewestFirst", models.BookingFilter{}, []int64{b3.ID, b2.ID, b1.ID}},
		{"ByStatus", models.BookingFilter{Status: models.StatusConfirmed}, []int64{b2.ID}},
		{"ByTour", models.BookingFilter{TourID: bali.ID}, []int64{b3.ID, b1.ID}},
		{"ByCustomer", models.BookingFilter{CustomerID: anna.ID}, []int64{b1.ID}},
		{"SearchDestination", models.BookingFilter{Search: "rom"}, []int64{b2.ID}},
		{"SearchEmail", models.BookingFilter{Search: "bob@"}, []int64{b3.ID, b2.ID}},
		{"SortAmountAsc", models.BookingFilter{Sort: models.SortTotalAmount, Order: "asc"}, []int64{b1.ID, b2.ID, b3.ID}},
		{"UnknownSortFallsBack", models.BookingFilter{Sort: "password", Order: "sideways"}, []int64{b3.ID, b2.ID, b1.ID}},
		{"Paged", models.BookingFilter{Sort: models.SortBookingID, Order: "asc", Limit: 1, Offset: 1}, []int64{b2.ID}},
		{"DateRangeExcludes", models.BookingFilter{DateFrom: "2030-02-01"}, nil},
		{"DateRangeIncludes", models.BookingFilter{DateFrom: "2030-01-15", DateTo: "2030-01-15", PaymentStatus: models.PaymentUnpaid}, []int64{b3.ID, b2.ID, b1.ID}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := db.ListBookings(ctx, tt.filter)
			require.NoError(t, err)
			ids := make([]int64, 0, len(got))
			for _, b := range got {
				ids = append(ids, b.ID)
			}
			if tt.want == nil {
				assert.Empty(t, ids)
			} else {
				assert.Equal(t, tt.want, ids)
			}
		})
	}

	t.Run("Count", func(t *testing.T) {
		n, err := db.CountBookings(ctx, models.BookingFilter{CustomerID: bob.ID, Limit: 1})
		require.NoError(t, err)
		assert.Equal(t, 2, n)
	})
}
