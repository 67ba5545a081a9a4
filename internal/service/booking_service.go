package service

import (
	"context"
	"errors"
	"fmt"
	"math"

	"tourdesk/internal/domain"
	"tourdesk/internal/events"
	"tourdesk/internal/metrics"
	"tourdesk/internal/models"

	"github.com/rs/zerolog"
)

// BookingService is the booking lifecycle manager. Every write validates and
// persists inside one repository transaction.
type BookingService struct {
	repo       domain.BookingRepository
	validator  *BookingValidator
	eventBus   domain.EventPublisher
	statsCache domain.StatsCache
	logger     *zerolog.Logger
}

func NewBookingService(
	repo domain.BookingRepository,
	validator *BookingValidator,
	eventBus domain.EventPublisher,
	statsCache domain.StatsCache,
	logger *zerolog.Logger,
) *BookingService {
	if validator == nil {
		validator = NewBookingValidator(nil)
	}
	return &BookingService{
		repo:       repo,
		validator:  validator,
		eventBus:   eventBus,
		statsCache: statsCache,
		logger:     logger,
	}
}

// Create validates and stores a new booking and returns its joined view.
// An omitted total is priced as tour.price x num_guests; an explicit zero
// is kept.
func (s *BookingService) Create(ctx context.Context, p domain.Principal, in models.BookingInput) (*models.BookingDetails, error) {
	if err := requireRole(p); err != nil {
		return nil, err
	}
	if in.Empty() {
		return nil, domain.NewValidation("No data provided")
	}

	if p.IsCustomer() {
		if p.CustomerID == 0 {
			return nil, &domain.ForbiddenError{Reason: "Customer profile not found."}
		}
		if in.CustomerID != nil && *in.CustomerID != 0 && *in.CustomerID != p.CustomerID {
			return nil, &domain.ForbiddenError{Reason: "You cannot create bookings for other customers"}
		}
		if in.Status != nil && *in.Status == models.StatusConfirmed {
			return nil, &domain.ForbiddenError{Reason: "You cannot confirm bookings. Please contact support."}
		}
		in.CustomerID = &p.CustomerID
		in.TotalAmount = nil
	}

	var created *models.BookingDetails
	err := s.repo.WithinTx(ctx, func(store domain.BookingStore) error {
		booking, tour, err := s.validator.Validate(ctx, store, in, 0)
		if err != nil {
			return err
		}
		if in.TotalAmount == nil {
			booking.TotalAmount = bookingTotal(tour.Price, booking.NumGuests)
		}
		if err := store.InsertBooking(ctx, booking); err != nil {
			return err
		}
		created, err = store.GetBookingDetails(ctx, booking.ID)
		return err
	})
	if err != nil {
		s.recordFailure("create", err)
		return nil, err
	}

	metrics.IncBookingOp("create", "ok")
	s.logger.Info().
		Int64("booking_id", created.ID).
		Int64("tour_id", created.TourID).
		Int("num_guests", created.NumGuests).
		Str("role", p.Role).
		Msg("booking created")
	s.afterWrite(ctx, events.EventBookingCreated, created.ID, created, false, p)
	return created, nil
}

// Get returns the joined view of one booking.
func (s *BookingService) Get(ctx context.Context, p domain.Principal, id int64) (*models.BookingDetails, error) {
	if err := requireRole(p); err != nil {
		return nil, err
	}
	details, err := s.repo.GetBookingDetails(ctx, id)
	if err != nil {
		return nil, err
	}
	if !p.Owns(details.CustomerID) {
		return nil, &domain.ForbiddenError{Reason: "Access denied. You can only view your own bookings."}
	}
	return details, nil
}

// List returns one page of bookings and the size of the unpaginated result.
// Customers only ever see their own bookings.
func (s *BookingService) List(ctx context.Context, p domain.Principal, filter models.BookingFilter) ([]*models.BookingDetails, int, error) {
	if err := requireRole(p); err != nil {
		return nil, 0, err
	}
	if p.IsCustomer() {
		if p.CustomerID == 0 {
			return nil, 0, &domain.ForbiddenError{Reason: "Customer profile not found."}
		}
		filter.CustomerID = p.CustomerID
	}
	filter = normalizePage(filter)

	bookings, err := s.repo.ListBookings(ctx, filter)
	if err != nil {
		return nil, 0, err
	}
	total, err := s.repo.CountBookings(ctx, filter)
	if err != nil {
		return nil, 0, err
	}
	return bookings, total, nil
}

// Update overlays in onto the stored booking, validates the merged booking
// with itself excluded from the capacity sum and overwrites every field.
//
// The total is recomputed from the tour price when the caller omits it and
// the guest count or tour changed; otherwise the stored or supplied total is
// kept.
func (s *BookingService) Update(ctx context.Context, p domain.Principal, id int64, in models.BookingInput) (*models.BookingDetails, error) {
	if err := requireRole(p); err != nil {
		return nil, err
	}
	if in.Empty() {
		return nil, domain.NewValidation("No data provided")
	}

	var (
		updated   *models.BookingDetails
		wasActive bool
	)
	err := s.repo.WithinTx(ctx, func(store domain.BookingStore) error {
		existing, err := store.GetBooking(ctx, id)
		if err != nil {
			return err
		}
		if !p.Owns(existing.CustomerID) {
			return &domain.ForbiddenError{Reason: "Access denied. You can only update your own bookings."}
		}
		if in.Version != nil && *in.Version != existing.Version {
			return fmt.Errorf("%w: booking %d is at version %d", domain.ErrConflict, id, existing.Version)
		}

		if p.IsCustomer() {
			if in.Status != nil && *in.Status == models.StatusConfirmed {
				return &domain.ForbiddenError{Reason: "You cannot confirm bookings. Please contact support."}
			}
			in.CustomerID = nil
			in.TotalAmount = nil
			if in.Status != nil && *in.Status == models.StatusCancelled {
				refunded := models.PaymentRefunded
				in.PaymentStatus = &refunded
			}
		}
		if in.Status != nil && *in.Status == models.StatusCancelled && in.PaymentStatus == nil {
			refunded := models.PaymentRefunded
			in.PaymentStatus = &refunded
		}

		booking, tour, err := s.validator.Validate(ctx, store, mergeInput(existing, in), existing.ID)
		if err != nil {
			return err
		}
		if in.TotalAmount == nil && (booking.NumGuests != existing.NumGuests || booking.TourID != existing.TourID) {
			booking.TotalAmount = bookingTotal(tour.Price, booking.NumGuests)
		}

		booking.ID = existing.ID
		booking.Version = existing.Version
		booking.CreatedAt = existing.CreatedAt
		if err := store.UpdateBookingWithVersion(ctx, booking); err != nil {
			return err
		}
		wasActive = existing.HoldsCapacity()

		updated, err = store.GetBookingDetails(ctx, id)
		return err
	})
	if err != nil {
		s.recordFailure("update", err)
		return nil, err
	}

	metrics.IncBookingOp("update", "ok")
	s.logger.Info().
		Int64("booking_id", id).
		Str("status", updated.Status).
		Str("payment_status", updated.PaymentStatus).
		Str("role", p.Role).
		Msg("booking updated")

	eventType := events.EventBookingUpdated
	if wasActive && !updated.HoldsCapacity() {
		eventType = events.EventBookingCancelled
	}
	s.afterWrite(ctx, eventType, id, updated, false, p)
	return updated, nil
}

// Delete cancels a booking, or removes it when hard is set. Only admins may
// hard delete; a customer's hard delete is downgraded to a cancellation.
// Cancelling an already cancelled booking leaves it cancelled and refunded.
func (s *BookingService) Delete(ctx context.Context, p domain.Principal, id int64, hard bool) error {
	if err := requireRole(p); err != nil {
		return err
	}
	if !p.IsAdmin() {
		hard = false
	}

	var snapshot *models.BookingDetails
	err := s.repo.WithinTx(ctx, func(store domain.BookingStore) error {
		existing, err := store.GetBookingDetails(ctx, id)
		if err != nil {
			return err
		}
		if !p.Owns(existing.CustomerID) {
			return &domain.ForbiddenError{Reason: "Access denied. You can only cancel your own bookings."}
		}

		if hard {
			snapshot = existing
			return store.DeleteBooking(ctx, id)
		}
		if err := store.CancelBooking(ctx, id); err != nil {
			return err
		}
		snapshot, err = store.GetBookingDetails(ctx, id)
		return err
	})
	op := "cancel"
	if hard {
		op = "delete"
	}
	if err != nil {
		s.recordFailure(op, err)
		return err
	}

	metrics.IncBookingOp(op, "ok")
	s.logger.Info().Int64("booking_id", id).Bool("hard", hard).Str("role", p.Role).Msg("booking deleted")

	eventType := events.EventBookingCancelled
	if hard {
		eventType = events.EventBookingDeleted
	}
	s.afterWrite(ctx, eventType, id, snapshot, hard, p)
	return nil
}

func (s *BookingService) afterWrite(ctx context.Context, eventType string, bookingID int64, booking *models.BookingDetails, hard bool, p domain.Principal) {
	if s.statsCache != nil {
		if err := s.statsCache.InvalidateStats(ctx); err != nil {
			s.logger.Warn().Err(err).Msg("stats cache invalidation failed")
		}
	}

	if s.eventBus == nil {
		return
	}
	payload := events.BookingEventPayload{
		BookingID:   bookingID,
		Booking:     booking,
		HardDelete:  hard,
		ChangedBy:   p.Role,
		ChangedByID: p.UserID,
	}
	if err := s.eventBus.PublishJSON(eventType, payload); err != nil {
		s.logger.Error().Err(err).Str("event_type", eventType).Int64("booking_id", bookingID).Msg("publish event error")
	}
}

func (s *BookingService) recordFailure(op string, err error) {
	var capErr *domain.CapacityError
	switch {
	case errors.As(err, &capErr):
		metrics.IncCapacityRejection()
		metrics.IncBookingOp(op, "rejected")
		s.logger.Info().Int("available", capErr.Available).Int("requested", capErr.Requested).Str("op", op).Msg("booking rejected for capacity")
	case errors.Is(err, domain.ErrConflict):
		metrics.IncConflict()
		metrics.IncBookingOp(op, "conflict")
		s.logger.Warn().Err(err).Str("op", op).Msg("booking write conflict")
	case domain.IsValidation(err), errors.Is(err, domain.ErrNotFound), errors.Is(err, domain.ErrForbidden):
		metrics.IncBookingOp(op, "rejected")
	default:
		metrics.IncBookingOp(op, "error")
		s.logger.Error().Err(err).Str("op", op).Msg("booking write failed")
	}
}

// mergeInput overlays the supplied fields of in onto a stored booking.
func mergeInput(existing *models.Booking, in models.BookingInput) models.BookingInput {
	merged := models.BookingInput{
		TourID:        &existing.TourID,
		CustomerID:    &existing.CustomerID,
		BookingDate:   &existing.BookingDate,
		NumGuests:     &existing.NumGuests,
		Status:        &existing.Status,
		PaymentStatus: &existing.PaymentStatus,
		TotalAmount:   &existing.TotalAmount,
		Notes:         &existing.Notes,
	}
	if in.TourID != nil {
		merged.TourID = in.TourID
	}
	if in.CustomerID != nil {
		merged.CustomerID = in.CustomerID
	}
	if in.BookingDate != nil {
		merged.BookingDate = in.BookingDate
	}
	if in.NumGuests != nil {
		merged.NumGuests = in.NumGuests
	}
	if in.Status != nil {
		merged.Status = in.Status
	}
	if in.PaymentStatus != nil {
		merged.PaymentStatus = in.PaymentStatus
	}
	if in.TotalAmount != nil {
		merged.TotalAmount = in.TotalAmount
	}
	if in.Notes != nil {
		merged.Notes = in.Notes
	}
	return merged
}

func bookingTotal(price float64, guests int) float64 {
	return math.Round(price*float64(guests)*100) / 100
}

func normalizePage(filter models.BookingFilter) models.BookingFilter {
	switch {
	case filter.Limit <= 0:
		filter.Limit = models.DefaultPageSize
	case filter.Limit > models.MaxPageSize:
		filter.Limit = models.MaxPageSize
	}
	if filter.Offset < 0 {
		filter.Offset = 0
	}
	return filter
}

func requireRole(p domain.Principal) error {
	if !p.IsAdmin() && !p.IsCustomer() {
		return domain.ErrUnauthorized
	}
	return nil
}
