package service

import (
	"context"
	"path/filepath"
	"sync"
	"testing"

	"tourdesk/internal/database"
	"tourdesk/internal/domain"
	"tourdesk/internal/events"
	"tourdesk/internal/models"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"
)

var (
	adminPrincipal = domain.Principal{UserID: 1, Email: "admin@example.com", Role: models.RoleAdmin}
	testLogger     = zerolog.Nop()
)

type recordedEvent struct {
	Type    string
	Payload events.BookingEventPayload
}

type eventRecorder struct {
	mu     sync.Mutex
	events []recordedEvent
}

func (r *eventRecorder) handle(eventType string, payload events.BookingEventPayload) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, recordedEvent{Type: eventType, Payload: payload})
	return nil
}

func (r *eventRecorder) types() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]string, 0, len(r.events))
	for _, e := range r.events {
		out = append(out, e.Type)
	}
	return out
}

func (r *eventRecorder) last() recordedEvent {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.events[len(r.events)-1]
}

type bookingFixture struct {
	db       *database.DB
	service  *BookingService
	tours    *TourService
	cache    *fakeStatsCache
	recorder *eventRecorder
}

func setupTestDB(t *testing.T) *database.DB {
	t.Helper()
	db, err := database.NewDB(filepath.Join(t.TempDir(), "test.db"), &testLogger)
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })
	return db
}

func setupBookingService(t *testing.T) *bookingFixture {
	t.Helper()
	db := setupTestDB(t)
	cache := &fakeStatsCache{}
	recorder := &eventRecorder{}
	bus := events.NewEventBus()
	bus.SubscribeBooking(recorder.handle, events.BookingEvents...)

	return &bookingFixture{
		db:       db,
		service:  NewBookingService(db, NewBookingValidator(fixedClock), bus, cache, &testLogger),
		tours:    NewTourService(db, cache, &testLogger),
		cache:    cache,
		recorder: recorder,
	}
}

func createTestTour(t *testing.T, db *database.DB, capacity int, price float64) *models.Tour {
	t.Helper()
	tour := &models.Tour{
		Destination: "Lake Bled",
		StartDate:   "2026-12-01",
		EndDate:     "2026-12-07",
		Capacity:    capacity,
		Price:       price,
		Status:      models.TourActive,
	}
	require.NoError(t, db.CreateTour(context.Background(), tour))
	return tour
}

func createTestCustomer(t *testing.T, db *database.DB, email string) *models.Customer {
	t.Helper()
	customer := &models.Customer{Name: "Ana Novak", Email: email, Phone: "+386 40 000 000"}
	require.NoError(t, db.CreateCustomer(context.Background(), customer))
	return customer
}

func customerPrincipal(c *models.Customer) domain.Principal {
	return domain.Principal{UserID: 100 + c.ID, Email: c.Email, Role: models.RoleCustomer, CustomerID: c.ID}
}

func bookingInput(tourID, customerID int64, guests int) models.BookingInput {
	return models.BookingInput{
		TourID:      ptr(tourID),
		CustomerID:  ptr(customerID),
		BookingDate: ptr("2026-11-01"),
		NumGuests:   ptr(guests),
	}
}
