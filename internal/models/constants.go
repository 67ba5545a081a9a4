package models

// Booking statuses.
const (
	StatusPending   = "pending"
	StatusConfirmed = "confirmed"
	StatusCancelled = "cancelled"
)

// Payment statuses.
const (
	PaymentUnpaid   = "unpaid"
	PaymentPartial  = "partial"
	PaymentPaid     = "paid"
	PaymentRefunded = "refunded"
)

// Tour statuses.
const (
	TourActive   = "active"
	TourInactive = "inactive"
)

// User roles.
const (
	RoleAdmin    = "admin"
	RoleCustomer = "customer"
)

// Sync queue task statuses.
const (
	SyncPending   = "pending"
	SyncRetry     = "retry"
	SyncCompleted = "completed"
	SyncFailed    = "failed"
)

// Sync queue task types.
const (
	SyncTaskUpsert       = "upsert"
	SyncTaskUpdateStatus = "update_status"
	SyncTaskDelete       = "delete"
)

const (
	// DateLayout is the wire and storage format of calendar dates.
	DateLayout = "2006-01-02"

	MinGuestsPerBooking = 1
	MaxGuestsPerBooking = 20

	// LimitedAvailabilityThreshold marks a tour as almost full.
	LimitedAvailabilityThreshold = 3

	// UpcomingToursLimit bounds the dashboard upcoming tours list.
	UpcomingToursLimit = 5

	// RecentBookingsDays is the trailing window for the recent activity count.
	RecentBookingsDays = 7

	DefaultPageSize = 50
	MaxPageSize     = 500
)

var (
	BookingStatuses = []string{StatusPending, StatusConfirmed, StatusCancelled}
	PaymentStatuses = []string{PaymentUnpaid, PaymentPartial, PaymentPaid, PaymentRefunded}
)

func IsValidBookingStatus(s string) bool {
	return contains(BookingStatuses, s)
}

func IsValidPaymentStatus(s string) bool {
	return contains(PaymentStatuses, s)
}

func IsValidTourStatus(s string) bool {
	return s == TourActive || s == TourInactive
}

func contains(values []string, s string) bool {
	for _, v := range values {
		if v == s {
			return true
		}
	}
	return false
}
