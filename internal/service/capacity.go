package service

import (
	"context"
	"errors"

	"tourdesk/internal/domain"
	"tourdesk/internal/models"
)

// CapacityCalculator derives remaining tour slots from the live booking set.
// Nothing is cached: every call sums the non-cancelled bookings again.
type CapacityCalculator struct {
	store domain.CapacityReader
}

func NewCapacityCalculator(store domain.CapacityReader) *CapacityCalculator {
	return &CapacityCalculator{store: store}
}

// AvailableSlots returns the free slots of a tour, or 0 when the tour does
// not exist.
func (c *CapacityCalculator) AvailableSlots(ctx context.Context, tourID int64) (int, error) {
	tour, err := c.store.GetTour(ctx, tourID)
	if errors.Is(err, domain.ErrNotFound) {
		return 0, nil
	}
	if err != nil {
		return 0, err
	}
	return c.Remaining(ctx, tour, 0)
}

// Remaining returns the free slots of tour with the guests of
// excludeBookingID left out of the booked total.
func (c *CapacityCalculator) Remaining(ctx context.Context, tour *models.Tour, excludeBookingID int64) (int, error) {
	booked, err := c.store.GetBookedGuests(ctx, tour.ID, excludeBookingID)
	if err != nil {
		return 0, err
	}
	return max(0, tour.Capacity-booked), nil
}

// HasCapacity reports whether numGuests more guests fit on the tour.
func (c *CapacityCalculator) HasCapacity(ctx context.Context, tourID int64, numGuests int, excludeBookingID int64) (bool, error) {
	tour, err := c.store.GetTour(ctx, tourID)
	if errors.Is(err, domain.ErrNotFound) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	available, err := c.Remaining(ctx, tour, excludeBookingID)
	if err != nil {
		return false, err
	}
	return numGuests <= available, nil
}
