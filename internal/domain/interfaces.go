package domain

import (
	"context"
	"time"

	"tourdesk/internal/models"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
)

// CapacityReader is what the capacity calculator needs from storage.
type CapacityReader interface {
	GetTour(ctx context.Context, id int64) (*models.Tour, error)
	// GetBookedGuests sums num_guests over non-cancelled bookings of a tour,
	// leaving out excludeBookingID when it is non-zero.
	GetBookedGuests(ctx context.Context, tourID, excludeBookingID int64) (int, error)
}

// BookingReader is what the booking validator needs from storage.
type BookingReader interface {
	CapacityReader
	CustomerExists(ctx context.Context, id int64) (bool, error)
}

// BookingStore is the set of booking operations that may run inside one transaction.
type BookingStore interface {
	BookingReader
	GetBooking(ctx context.Context, id int64) (*models.Booking, error)
	GetBookingDetails(ctx context.Context, id int64) (*models.BookingDetails, error)
	InsertBooking(ctx context.Context, booking *models.Booking) error
	UpdateBookingWithVersion(ctx context.Context, booking *models.Booking) error
	CancelBooking(ctx context.Context, id int64) error
	DeleteBooking(ctx context.Context, id int64) error
}

type BookingRepository interface {
	BookingStore
	// WithinTx runs fn inside a write transaction holding the database write lock.
	WithinTx(ctx context.Context, fn func(store BookingStore) error) error
	ListBookings(ctx context.Context, filter models.BookingFilter) ([]*models.BookingDetails, error)
	CountBookings(ctx context.Context, filter models.BookingFilter) (int, error)
}

type TourRepository interface {
	CapacityReader
	ListTours(ctx context.Context, includeInactive bool, destination string) ([]*models.Tour, error)
	CreateTour(ctx context.Context, tour *models.Tour) error
	UpdateTour(ctx context.Context, tour *models.Tour) error
	// DeleteTourIfUnbooked removes a tour that holds no non-cancelled bookings.
	DeleteTourIfUnbooked(ctx context.Context, id int64) error
	CountTours(ctx context.Context) (int, error)
	// SeedTours inserts tours only when the table is empty.
	SeedTours(ctx context.Context, tours []models.Tour) (int, error)
}

type CustomerRepository interface {
	GetCustomer(ctx context.Context, id int64) (*models.Customer, error)
	GetCustomerByUserID(ctx context.Context, userID int64) (*models.Customer, error)
	ListCustomers(ctx context.Context, search string, limit, offset int) ([]*models.Customer, error)
	CreateCustomer(ctx context.Context, customer *models.Customer) error
	UpdateCustomer(ctx context.Context, customer *models.Customer) error
	DeleteCustomer(ctx context.Context, id int64) error
}

type UserRepository interface {
	GetUserByID(ctx context.Context, id int64) (*models.User, error)
	GetUserByEmail(ctx context.Context, email string) (*models.User, error)
	CreateUser(ctx context.Context, user *models.User) error
	// RegisterCustomer stores a customer user and its customer record atomically.
	RegisterCustomer(ctx context.Context, user *models.User, customer *models.Customer) error
	UpdateLastLogin(ctx context.Context, id int64, at time.Time) error
}

type StatsRepository interface {
	GetDashboardStats(ctx context.Context, now time.Time) (*models.DashboardStats, error)
}

// StatsCache holds a short-lived copy of the dashboard aggregate.
//
// StatsVersion is read before the aggregate is computed and handed back to
// SetStats, which drops the write when an invalidation bumped the version in
// between.
type StatsCache interface {
	GetStats(ctx context.Context) (*models.DashboardStats, error)
	StatsVersion(ctx context.Context) (int64, error)
	SetStats(ctx context.Context, stats *models.DashboardStats, version int64) error
	InvalidateStats(ctx context.Context) error
}

// RateLimiter counts hits per key within a fixed window.
type RateLimiter interface {
	CheckRateLimit(ctx context.Context, key string, limit int, window time.Duration) (bool, error)
}

// CacheRepository is the shared fast store behind the stats cache and the
// booking write limiter.
type CacheRepository interface {
	StatsCache
	RateLimiter
}

type EventPublisher interface {
	PublishJSON(eventType string, payload interface{}) error
}

type SyncWorker interface {
	EnqueueTask(ctx context.Context, taskType string, bookingID int64, booking *models.BookingDetails) error
}

type SheetsWriter interface {
	UpsertBooking(ctx context.Context, booking *models.BookingDetails) error
	UpdateBookingStatus(ctx context.Context, bookingID int64, status, paymentStatus string) error
	DeleteBookingRow(ctx context.Context, bookingID int64) error
}

type TelegramSender interface {
	Send(c tgbotapi.Chattable) (tgbotapi.Message, error)
}
