package api

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"
	"time"

	"tourdesk/internal/auth"
	"tourdesk/internal/config"
	"tourdesk/internal/database"
	"tourdesk/internal/events"
	"tourdesk/internal/models"
	"tourdesk/internal/repository"
	"tourdesk/internal/service"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"
)

const (
	testAdminEmail    = "admin@example.com"
	testAdminPassword = "admin-password"
)

var testLogger = zerolog.Nop()

type apiFixture struct {
	db     *database.DB
	server *HTTPServer
	cache  *repository.MemoryCacheRepository
	bus    *events.EventBus
}

func testAPIConfig() config.APIConfig {
	return config.APIConfig{
		HTTP:         config.APIHTTPConfig{Port: 0},
		Auth:         config.APIAuthConfig{JWTSecret: "test-secret-0123456789", TokenTTL: time.Hour},
		RateLimit:    config.APIRateLimitConfig{RPS: 1000, Burst: 1000},
		BookingLimit: config.APIBookingLimitConfig{MaxPerWindow: 100, Window: time.Minute},
	}
}

func newAPIFixture(t *testing.T, cfg config.APIConfig) *apiFixture {
	t.Helper()

	db, err := database.NewDB(filepath.Join(t.TempDir(), "api.db"), &testLogger)
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })

	cache := repository.NewMemoryCacheRepository(time.Minute)
	bus := events.NewEventBus()
	tokens := auth.NewTokenService(cfg.Auth.JWTSecret, cfg.Auth.TokenTTL)

	services := Services{
		Bookings:       service.NewBookingService(db, service.NewBookingValidator(nil), bus, cache, &testLogger),
		Tours:          service.NewTourService(db, cache, &testLogger),
		Customers:      service.NewCustomerService(db, cache, &testLogger),
		Dashboard:      service.NewDashboardService(db, cache, &testLogger),
		Auth:           service.NewAuthService(db, db, tokens, &testLogger),
		Tokens:         tokens,
		BookingLimiter: cache,
	}
	_, err = services.Auth.EnsureAdmin(context.Background(), testAdminEmail, testAdminPassword)
	require.NoError(t, err)

	return &apiFixture{
		db:     db,
		server: NewHTTPServer(cfg, services, &testLogger),
		cache:  cache,
		bus:    bus,
	}
}

func (f *apiFixture) do(t *testing.T, method, path, token string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var reader io.Reader = http.NoBody
	if body != nil {
		raw, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(raw)
	}
	req := httptest.NewRequest(method, path, reader)
	req.RemoteAddr = "192.0.2.1:1234"
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	rec := httptest.NewRecorder()
	f.server.Handler().ServeHTTP(rec, req)
	return rec
}

func (f *apiFixture) login(t *testing.T, email, password string) string {
	t.Helper()
	rec := f.do(t, http.MethodPost, "/api/v1/auth/login", "", map[string]string{"email": email, "password": password})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	var result models.AuthResult
	decodeBody(t, rec, &result)
	return result.Token
}

func (f *apiFixture) adminToken(t *testing.T) string {
	return f.login(t, testAdminEmail, testAdminPassword)
}

// registerCustomer signs up a customer account and returns its token and
// customer id.
func (f *apiFixture) registerCustomer(t *testing.T, name, email string) (string, int64) {
	t.Helper()
	rec := f.do(t, http.MethodPost, "/api/v1/auth/register", "", map[string]string{
		"name": name, "email": email, "password": "correct-horse",
	})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	var result models.AuthResult
	decodeBody(t, rec, &result)
	require.NotNil(t, result.Customer)
	return result.Token, result.Customer.ID
}

func (f *apiFixture) createTour(t *testing.T, token string, capacity int, price float64) int64 {
	t.Helper()
	rec := f.do(t, http.MethodPost, "/api/v1/tours", token, map[string]any{
		"destination": "Lake Bled",
		"start_date":  futureDate(60),
		"end_date":    futureDate(67),
		"capacity":    capacity,
		"price":       price,
	})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	var tour models.TourView
	decodeBody(t, rec, &tour)
	return tour.ID
}

func decodeBody(t *testing.T, rec *httptest.ResponseRecorder, dst any) {
	t.Helper()
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), dst), rec.Body.String())
}

func errorMessage(t *testing.T, rec *httptest.ResponseRecorder) string {
	t.Helper()
	var body map[string]any
	decodeBody(t, rec, &body)
	msg, _ := body["error"].(string)
	return msg
}

func futureDate(days int) string {
	return time.Now().UTC().AddDate(0, 0, days).Format(models.DateLayout)
}

func bookingBody(tourID int64, guests int) map[string]any {
	return map[string]any{
		"tour_id":      tourID,
		"booking_date": futureDate(30),
		"num_guests":   guests,
	}
}
