package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"tourdesk/internal/domain"
	"tourdesk/internal/models"
)

// BookingValidator applies the booking write rules in a fixed order and stops
// at the first violation.
type BookingValidator struct {
	now func() time.Time
}

// NewBookingValidator uses now as the clock for the booking date window; a
// nil clock means time.Now.
func NewBookingValidator(now func() time.Time) *BookingValidator {
	if now == nil {
		now = time.Now
	}
	return &BookingValidator{now: now}
}

// Validate checks in against the store and returns the booking it describes
// with defaults applied, along with the resolved tour. TotalAmount is left at
// zero when the input omits it. excludeBookingID is left out of the capacity
// sum so a booking does not compete with itself on update.
func (v *BookingValidator) Validate(ctx context.Context, store domain.BookingReader, in models.BookingInput, excludeBookingID int64) (*models.Booking, *models.Tour, error) {
	if in.TourID == nil || *in.TourID == 0 {
		return nil, nil, domain.NewValidation("Tour is required.")
	}
	if in.CustomerID == nil || *in.CustomerID == 0 {
		return nil, nil, domain.NewValidation("Customer is required.")
	}
	if in.BookingDate == nil || strings.TrimSpace(*in.BookingDate) == "" {
		return nil, nil, domain.NewValidation("Booking date is required.")
	}

	tour, err := store.GetTour(ctx, *in.TourID)
	if errors.Is(err, domain.ErrNotFound) {
		return nil, nil, &domain.ValidationError{Reason: "Tour not found.", Cause: domain.ErrNotFound}
	}
	if err != nil {
		return nil, nil, err
	}
	if !tour.IsActive() {
		return nil, nil, domain.NewValidation("This tour is no longer available for booking.")
	}

	exists, err := store.CustomerExists(ctx, *in.CustomerID)
	if err != nil {
		return nil, nil, err
	}
	if !exists {
		return nil, nil, &domain.ValidationError{Reason: "Customer not found.", Cause: domain.ErrNotFound}
	}

	if err := v.checkBookingDate(*in.BookingDate); err != nil {
		return nil, nil, err
	}

	booking := &models.Booking{
		TourID:        *in.TourID,
		CustomerID:    *in.CustomerID,
		BookingDate:   *in.BookingDate,
		NumGuests:     models.MinGuestsPerBooking,
		Status:        models.StatusPending,
		PaymentStatus: models.PaymentUnpaid,
	}
	if in.NumGuests != nil {
		booking.NumGuests = *in.NumGuests
	}
	if in.Status != nil {
		booking.Status = *in.Status
	}
	if in.PaymentStatus != nil {
		booking.PaymentStatus = *in.PaymentStatus
	}
	if in.TotalAmount != nil {
		booking.TotalAmount = *in.TotalAmount
	}
	if in.Notes != nil {
		booking.Notes = *in.Notes
	}

	switch {
	case booking.NumGuests < models.MinGuestsPerBooking:
		return nil, nil, domain.NewValidation("Number of guests must be at least 1.")
	case booking.NumGuests > models.MaxGuestsPerBooking:
		return nil, nil, domain.NewValidation(fmt.Sprintf("Number of guests cannot exceed %d per booking.", models.MaxGuestsPerBooking))
	}
	if !models.IsValidBookingStatus(booking.Status) {
		return nil, nil, domain.NewValidation("Invalid status. Must be: " + strings.Join(models.BookingStatuses, ", "))
	}
	if !models.IsValidPaymentStatus(booking.PaymentStatus) {
		return nil, nil, domain.NewValidation("Invalid payment status. Must be: " + strings.Join(models.PaymentStatuses, ", "))
	}
	if booking.TotalAmount < 0 {
		return nil, nil, domain.NewValidation("Total amount cannot be negative.")
	}

	// a cancelled booking holds no slots
	if booking.HoldsCapacity() {
		available, err := NewCapacityCalculator(store).Remaining(ctx, tour, excludeBookingID)
		if err != nil {
			return nil, nil, err
		}
		if booking.NumGuests > available {
			return nil, nil, &domain.CapacityError{Available: available, Requested: booking.NumGuests}
		}
	}

	return booking, tour, nil
}

// checkBookingDate accepts calendar dates from one year before today through
// two years after today, both ends inclusive.
func (v *BookingValidator) checkBookingDate(raw string) error {
	now := v.now()
	date, err := time.ParseInLocation(models.DateLayout, raw, now.Location())
	if err != nil || date.Format(models.DateLayout) != raw {
		return domain.NewValidation("Invalid date format. Use YYYY-MM-DD.")
	}

	today := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, now.Location())
	if date.Before(today.AddDate(-1, 0, 0)) {
		return domain.NewValidation("Booking date cannot be more than 1 year in the past.")
	}
	if date.After(today.AddDate(2, 0, 0)) {
		return domain.NewValidation("Booking date cannot be more than 2 years in the future.")
	}
	return nil
}
