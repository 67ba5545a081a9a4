package service

import (
	"context"
	"errors"
	"testing"

	"tourdesk/internal/domain"
	"tourdesk/internal/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCapacityCalculator(t *testing.T) {
	ctx := context.Background()
	tour := &models.Tour{ID: 1, Capacity: 10, Status: models.TourActive}

	t.Run("AvailableSlots", func(t *testing.T) {
		store := new(mockStore)
		store.On("GetTour", ctx, int64(1)).Return(tour, nil)
		store.On("GetBookedGuests", ctx, int64(1), int64(0)).Return(7, nil)

		got, err := NewCapacityCalculator(store).AvailableSlots(ctx, 1)
		require.NoError(t, err)
		assert.Equal(t, 3, got)
		store.AssertExpectations(t)
	})

	t.Run("MissingTourHasZeroSlots", func(t *testing.T) {
		store := new(mockStore)
		store.On("GetTour", ctx, int64(9)).Return(nil, domain.NewNotFound("Tour"))

		got, err := NewCapacityCalculator(store).AvailableSlots(ctx, 9)
		require.NoError(t, err)
		assert.Zero(t, got)

		ok, err := NewCapacityCalculator(store).HasCapacity(ctx, 9, 1, 0)
		require.NoError(t, err)
		assert.False(t, ok)
	})

	t.Run("OverbookedClampsToZero", func(t *testing.T) {
		store := new(mockStore)
		store.On("GetBookedGuests", ctx, int64(1), int64(0)).Return(12, nil)

		got, err := NewCapacityCalculator(store).Remaining(ctx, tour, 0)
		require.NoError(t, err)
		assert.Zero(t, got)
	})

	t.Run("HasCapacityWithExclusion", func(t *testing.T) {
		store := new(mockStore)
		store.On("GetTour", ctx, int64(1)).Return(tour, nil)
		store.On("GetBookedGuests", ctx, int64(1), int64(0)).Return(8, nil)
		store.On("GetBookedGuests", ctx, int64(1), int64(5)).Return(0, nil)

		calc := NewCapacityCalculator(store)
		ok, err := calc.HasCapacity(ctx, 1, 10, 0)
		require.NoError(t, err)
		assert.False(t, ok)

		ok, err = calc.HasCapacity(ctx, 1, 10, 5)
		require.NoError(t, err)
		assert.True(t, ok)

		ok, err = calc.HasCapacity(ctx, 1, 2, 0)
		require.NoError(t, err)
		assert.True(t, ok)
	})

	t.Run("StoreError", func(t *testing.T) {
		store := new(mockStore)
		boom := errors.New("disk I/O error")
		store.On("GetTour", ctx, int64(1)).Return(nil, boom)

		_, err := NewCapacityCalculator(store).AvailableSlots(ctx, 1)
		assert.ErrorIs(t, err, boom)
		_, err = NewCapacityCalculator(store).HasCapacity(ctx, 1, 1, 0)
		assert.ErrorIs(t, err, boom)
	})
}
