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

func TestTourCRUD(t *testing.T) {
	db := setupTestDB(t)
	ctx := context.Background()

	tour := createTestTour(t, db, 10)
	require.NotZero(t, tour.ID)

	t.Run("Get", func(t *testing.T) {
		got, err := db.GetTour(ctx, tour.ID)
		require.NoError(t, err)
		assert.Equal(t, tour.Destination, got.Destination)
		assert.Equal(t, 10, got.Capacity)
		assert.Equal(t, "2030-06-01", got.StartDate)
	})

	t.Run("GetMissing", func(t *testing.T) {
		_, err := db.GetTour(ctx, 999)
		assert.True(t, errors.Is(err, domain.ErrNotFound))
		assert.Equal(t, "Tour not found.", err.Error())
	})

	t.Run("Update", func(t *testing.T) {
		tour.Capacity = 12
		tour.Status = models.TourInactive
		require.NoError(t, db.UpdateTour(ctx, tour))

		got, err := db.GetTour(ctx, tour.ID)
		require.NoError(t, err)
		assert.Equal(t, 12, got.Capacity)
		assert.False(t, got.IsActive())
	})

	t.Run("UpdateMissing", func(t *testing.T) {
		err := db.UpdateTour(ctx, &models.Tour{ID: 999, Destination: "x", Capacity: 1, StartDate: "2030-01-01", EndDate: "2030-01-01"})
		assert.True(t, errors.Is(err, domain.ErrNotFound))
	})
}

func TestListTours(t *testing.T) {
	db := setupTestDB(t)
	ctx := context.Background()

	for _, tt := range []models.Tour{
		{Destination: "Paris", StartDate: "2030-03-01", EndDate: "2030-03-05", Capacity: 5, Status: models.TourActive},
		{Destination: "Rome", StartDate: "2030-01-01", EndDate: "2030-01-05", Capacity: 5, Status: models.TourActive},
		{Destination: "Paris Night", StartDate: "2030-02-01", EndDate: "2030-02-05", Capacity: 5, Status: models.TourInactive},
	} {
		tour := tt
		require.NoError(t, db.CreateTour(ctx, &tour))
	}

	active, err := db.ListTours(ctx, false, "")
	require.NoError(t, err)
	require.Len(t, active, 2)
	assert.Equal(t, "Rome", active[0].Destination)

	all, err := db.ListTours(ctx, true, "")
	require.NoError(t, err)
	require.Len(t, all, 3)
	assert.Equal(t, "Paris", all[0].Destination)

	paris, err := db.ListTours(ctx, true, "paris")
	require.NoError(t, err)
	assert.Len(t, paris, 2)

	activeParis, err := db.ListTours(ctx, false, "PARIS")
	require.NoError(t, err)
	assert.Len(t, activeParis, 1)
}

func TestDeleteTourIfUnbooked(t *testing.T) {
	db := setupTestDB(t)
	ctx := context.Background()
	customer := createTestCustomer(t, db, "a@example.com")

	t.Run("RefusedWithActiveBookings", func(t *testing.T) {
		tour := createTestTour(t, db, 5)
		insertTestBooking(t, db, tour.ID, customer.ID, 1, models.StatusPending)

		err := db.DeleteTourIfUnbooked(ctx, tour.ID)
		require.Error(t, err)
		assert.True(t, domain.IsValidation(err))

		_, err = db.GetTour(ctx, tour.ID)
		assert.NoError(t, err)
	})

	t.Run("AllowedWithOnlyCancelled", func(t *testing.T) {
		tour := createTestTour(t, db, 5)
		booking := insertTestBooking(t, db, tour.ID, customer.ID, 1, models.StatusCancelled)

		require.NoError(t, db.DeleteTourIfUnbooked(ctx, tour.ID))

		_, err := db.GetTour(ctx, tour.ID)
		assert.True(t, errors.Is(err, domain.ErrNotFound))
		_, err = db.GetBooking(ctx, booking.ID)
		assert.True(t, errors.Is(err, domain.ErrNotFound))
	})

	t.Run("Missing", func(t *testing.T) {
		err := db.DeleteTourIfUnbooked(ctx, 999)
		assert.True(t, errors.Is(err, domain.ErrNotFound))
	})
}

func TestSeedTours(t *testing.T) {
	db := setupTestDB(t)
	ctx := context.Background()

	seed := []models.Tour{
		{Destination: "Oslo", StartDate: "2030-05-01", EndDate: "2030-05-03", Capacity: 8, Price: 50},
		{Destination: "Kyoto", StartDate: "2030-04-01", EndDate: "2030-04-09", Capacity: 12, Price: 80},
	}

	n, err := db.SeedTours(ctx, seed)
	require.NoError(t, err)
	assert.Equal(t, 2, n)

	tours, err := db.ListTours(ctx, false, "")
	require.NoError(t, err)
	require.Len(t, tours, 2)
	assert.Equal(t, models.TourActive, tours[0].Status)

	n, err = db.SeedTours(ctx, seed)
	require.NoError(t, err)
	assert.Zero(t, n)

	count, err := db.CountTours(ctx)
	require.NoError(t, err)
	assert.Equal(t, 2, count)
}
