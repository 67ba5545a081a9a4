package service

import (
	"context"
	"fmt"
	"strings"
	"time"

	"tourdesk/internal/domain"
	"tourdesk/internal/models"

	"github.com/rs/zerolog"
)

type TourService struct {
	repo       domain.TourRepository
	capacity   *CapacityCalculator
	statsCache domain.StatsCache
	logger     *zerolog.Logger
}

func NewTourService(repo domain.TourRepository, statsCache domain.StatsCache, logger *zerolog.Logger) *TourService {
	return &TourService{
		repo:       repo,
		capacity:   NewCapacityCalculator(repo),
		statsCache: statsCache,
		logger:     logger,
	}
}

// List returns active tours by start date, or every tour when
// includeInactive is set.
func (s *TourService) List(ctx context.Context, includeInactive bool, destination string) ([]models.TourView, error) {
	tours, err := s.repo.ListTours(ctx, includeInactive, destination)
	if err != nil {
		return nil, err
	}

	views := make([]models.TourView, 0, len(tours))
	for _, tour := range tours {
		available, err := s.capacity.Remaining(ctx, tour, 0)
		if err != nil {
			return nil, err
		}
		views = append(views, models.TourView{Tour: *tour, AvailableSlots: available})
	}
	return views, nil
}

// Get returns a tour with its live available_slots.
func (s *TourService) Get(ctx context.Context, id int64) (*models.TourView, error) {
	tour, err := s.repo.GetTour(ctx, id)
	if err != nil {
		return nil, err
	}
	available, err := s.capacity.Remaining(ctx, tour, 0)
	if err != nil {
		return nil, err
	}
	return &models.TourView{Tour: *tour, AvailableSlots: available}, nil
}

func (s *TourService) Create(ctx context.Context, in models.TourInput) (*models.TourView, error) {
	if err := checkStruct(in); err != nil {
		return nil, err
	}
	tour := in.Tour()
	if err := validateTour(tour); err != nil {
		return nil, err
	}

	if err := s.repo.CreateTour(ctx, tour); err != nil {
		return nil, err
	}
	s.logger.Info().Int64("tour_id", tour.ID).Str("destination", tour.Destination).Msg("tour created")
	s.invalidateStats(ctx)
	return &models.TourView{Tour: *tour, AvailableSlots: tour.Capacity}, nil
}

// Update applies a partial change. Existing bookings are not re-checked
// against a reduced capacity.
func (s *TourService) Update(ctx context.Context, id int64, patch models.TourPatch) (*models.TourView, error) {
	if patch.Empty() {
		return nil, domain.NewValidation("No fields to update.")
	}
	tour, err := s.repo.GetTour(ctx, id)
	if err != nil {
		return nil, err
	}
	patch.Apply(tour)
	if err := validateTour(tour); err != nil {
		return nil, err
	}

	if err := s.repo.UpdateTour(ctx, tour); err != nil {
		return nil, err
	}
	s.logger.Info().Int64("tour_id", id).Msg("tour updated")
	s.invalidateStats(ctx)
	return s.Get(ctx, id)
}

func (s *TourService) Delete(ctx context.Context, id int64) error {
	if err := s.repo.DeleteTourIfUnbooked(ctx, id); err != nil {
		return err
	}
	s.logger.Info().Int64("tour_id", id).Msg("tour deleted")
	s.invalidateStats(ctx)
	return nil
}

// CheckAvailability answers whether numGuests fit on an active tour.
func (s *TourService) CheckAvailability(ctx context.Context, tourID int64, numGuests int) (*models.Availability, error) {
	if tourID == 0 {
		return nil, domain.NewValidation("Tour ID is required")
	}
	if numGuests < models.MinGuestsPerBooking {
		return nil, domain.NewValidation("Number of guests must be at least 1")
	}

	tour, err := s.repo.GetTour(ctx, tourID)
	if err != nil {
		return nil, err
	}
	if !tour.IsActive() {
		return nil, domain.NewValidation("This tour is not currently available")
	}

	available, err := s.capacity.Remaining(ctx, tour, 0)
	if err != nil {
		return nil, err
	}

	result := &models.Availability{
		Available:      numGuests <= available,
		AvailableSlots: available,
		RequestedSlots: numGuests,
		TotalPrice:     bookingTotal(tour.Price, numGuests),
		Tour:           tour,
	}
	switch {
	case !result.Available:
		result.Message = fmt.Sprintf("Not enough capacity. Only %d slot(s) available, but you requested %d.", available, numGuests)
	case available <= models.LimitedAvailabilityThreshold:
		result.Message = fmt.Sprintf("Limited availability! Only %d slot(s) remaining for this tour.", available)
	default:
		result.Message = fmt.Sprintf("Available! %d slot(s) available for this tour.", available)
	}
	return result, nil
}

// Seed inserts tours when none exist yet.
func (s *TourService) Seed(ctx context.Context, tours []models.Tour) (int, error) {
	for i := range tours {
		if tours[i].Status == "" {
			tours[i].Status = models.TourActive
		}
		if err := validateTour(&tours[i]); err != nil {
			return 0, fmt.Errorf("seed tour %q: %w", tours[i].Destination, err)
		}
	}
	return s.repo.SeedTours(ctx, tours)
}

func (s *TourService) invalidateStats(ctx context.Context) {
	if s.statsCache == nil {
		return
	}
	if err := s.statsCache.InvalidateStats(ctx); err != nil {
		s.logger.Warn().Err(err).Msg("stats cache invalidation failed")
	}
}

func validateTour(t *models.Tour) error {
	if strings.TrimSpace(t.Destination) == "" {
		return domain.NewValidation("Field 'destination' is required.")
	}
	start, err := time.Parse(models.DateLayout, t.StartDate)
	if err != nil {
		return domain.NewValidation("Invalid date format. Use YYYY-MM-DD.")
	}
	end, err := time.Parse(models.DateLayout, t.EndDate)
	if err != nil {
		return domain.NewValidation("Invalid date format. Use YYYY-MM-DD.")
	}
	if end.Before(start) {
		return domain.NewValidation("End date must be after start date.")
	}
	if t.Capacity <= 0 {
		return domain.NewValidation("Capacity must be greater than 0.")
	}
	if t.Price < 0 {
		return domain.NewValidation("Price cannot be negative.")
	}
	if !models.IsValidTourStatus(t.Status) {
		return domain.NewValidation("Invalid status. Must be: active, inactive")
	}
	return nil
}
