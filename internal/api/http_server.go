package api

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"tourdesk/internal/auth"
	"tourdesk/internal/config"
	"tourdesk/internal/domain"
	"tourdesk/internal/service"

	"github.com/gorilla/mux"
	"github.com/rs/zerolog"
)

// Services are the application services the HTTP API dispatches to.
type Services struct {
	Bookings  *service.BookingService
	Tours     *service.TourService
	Customers *service.CustomerService
	Dashboard *service.DashboardService
	Auth      *service.AuthService
	Tokens    *auth.TokenService
	// BookingLimiter throttles booking writes per customer. Optional.
	BookingLimiter domain.RateLimiter
}

// HTTPServer exposes the booking administration REST API.
type HTTPServer struct {
	cfg      config.APIConfig
	services Services
	server   *http.Server
	router   *mux.Router
	limiter  *rateLimiter
	logger   *zerolog.Logger
	now      func() time.Time
}

func NewHTTPServer(cfg config.APIConfig, services Services, logger *zerolog.Logger) *HTTPServer {
	if logger == nil {
		nop := zerolog.Nop()
		logger = &nop
	}
	srv := &HTTPServer{
		cfg:      cfg,
		services: services,
		limiter:  newRateLimiter(cfg.RateLimit),
		logger:   logger,
		now:      time.Now,
	}
	srv.router = srv.routes()

	srv.server = &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.HTTP.Port),
		Handler:           requestIDMiddleware(srv.router),
		ReadHeaderTimeout: 5 * time.Second,
		WriteTimeout:      30 * time.Second,
	}
	return srv
}

func (s *HTTPServer) routes() *mux.Router {
	r := mux.NewRouter()
	r.Use(s.accessLogMiddleware, s.authMiddleware, s.rateLimitMiddleware)
	r.NotFoundHandler = http.HandlerFunc(handleNotFound)
	r.MethodNotAllowedHandler = http.HandlerFunc(handleMethodNotAllowed)

	r.HandleFunc("/healthz", s.handleHealthz).Methods(http.MethodGet)

	// a subrouter reports its own misses; the parent only sees a failed prefix
	api := r.PathPrefix("/api/v1").Subrouter()
	api.NotFoundHandler = http.HandlerFunc(handleNotFound)
	api.MethodNotAllowedHandler = http.HandlerFunc(handleMethodNotAllowed)

	api.HandleFunc("/auth/register", s.handleRegister).Methods(http.MethodPost)
	api.HandleFunc("/auth/login", s.handleLogin).Methods(http.MethodPost)
	api.HandleFunc("/auth/me", requireAuth(s.handleMe)).Methods(http.MethodGet)

	api.HandleFunc("/availability/check", s.handleCheckAvailability).Methods(http.MethodPost)

	api.HandleFunc("/tours", s.handleListTours).Methods(http.MethodGet)
	api.HandleFunc("/tours", requireAdmin(s.handleCreateTour)).Methods(http.MethodPost)
	api.HandleFunc("/tours/{id:[0-9]+}", s.handleGetTour).Methods(http.MethodGet)
	api.HandleFunc("/tours/{id:[0-9]+}", requireAdmin(s.handleUpdateTour)).Methods(http.MethodPut, http.MethodPatch)
	api.HandleFunc("/tours/{id:[0-9]+}", requireAdmin(s.handleDeleteTour)).Methods(http.MethodDelete)
	api.HandleFunc("/tours/{id:[0-9]+}/availability", s.handleTourAvailability).Methods(http.MethodGet)

	api.HandleFunc("/bookings", requireAuth(s.handleListBookings)).Methods(http.MethodGet)
	api.HandleFunc("/bookings", requireAuth(s.handleCreateBooking)).Methods(http.MethodPost)
	api.HandleFunc("/bookings/stats", requireAdmin(s.handleStats)).Methods(http.MethodGet)
	api.HandleFunc("/bookings/export", requireAdmin(s.handleExportBookings)).Methods(http.MethodGet)
	api.HandleFunc("/bookings/{id:[0-9]+}", requireAuth(s.handleGetBooking)).Methods(http.MethodGet)
	api.HandleFunc("/bookings/{id:[0-9]+}", requireAuth(s.handleUpdateBooking)).Methods(http.MethodPut, http.MethodPatch)
	api.HandleFunc("/bookings/{id:[0-9]+}", requireAuth(s.handleDeleteBooking)).Methods(http.MethodDelete)

	api.HandleFunc("/customers", requireAdmin(s.handleListCustomers)).Methods(http.MethodGet)
	api.HandleFunc("/customers", requireAdmin(s.handleCreateCustomer)).Methods(http.MethodPost)
	api.HandleFunc("/customers/{id:[0-9]+}", requireAdmin(s.handleGetCustomer)).Methods(http.MethodGet)
	api.HandleFunc("/customers/{id:[0-9]+}", requireAdmin(s.handleUpdateCustomer)).Methods(http.MethodPut, http.MethodPatch)
	api.HandleFunc("/customers/{id:[0-9]+}", requireAdmin(s.handleDeleteCustomer)).Methods(http.MethodDelete)

	return r
}

func handleNotFound(w http.ResponseWriter, _ *http.Request) {
	writeError(w, http.StatusNotFound, "not found")
}

func handleMethodNotAllowed(w http.ResponseWriter, _ *http.Request) {
	writeError(w, http.StatusMethodNotAllowed, "method not allowed")
}

// Handler returns the full handler chain, for embedding and tests.
func (s *HTTPServer) Handler() http.Handler {
	return s.server.Handler
}

func (s *HTTPServer) Start() error {
	if s.server == nil {
		return fmt.Errorf("http server is not initialized")
	}
	s.logger.Info().Str("addr", s.server.Addr).Msg("HTTP API listening")
	if err := s.server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return err
	}
	return nil
}

func (s *HTTPServer) Shutdown(ctx context.Context) error {
	if s.server == nil {
		return nil
	}
	return s.server.Shutdown(ctx)
}

func (s *HTTPServer) handleHealthz(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}
