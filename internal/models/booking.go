package models

import "time"

type Booking struct {
	ID            int64     `json:"id"`
	TourID        int64     `json:"tour_id"`
	CustomerID    int64     `json:"customer_id"`
	BookingDate   string    `json:"booking_date"`
	NumGuests     int       `json:"num_guests"`
	Status        string    `json:"status"`
	PaymentStatus string    `json:"payment_status"`
	TotalAmount   float64   `json:"total_amount"`
	Notes         string    `json:"notes"`
	CreatedAt     time.Time `json:"created_at"`
	UpdatedAt     time.Time `json:"updated_at"`
	Version       int64     `json:"version"`
}

// HoldsCapacity reports whether the booking consumes tour slots.
func (b *Booking) HoldsCapacity() bool {
	return b.Status != StatusCancelled
}

// BookingDetails is the booking joined with tour and customer display fields.
type BookingDetails struct {
	Booking
	Destination   string  `json:"destination"`
	TourStartDate string  `json:"tour_start_date"`
	TourEndDate   string  `json:"tour_end_date"`
	TourPrice     float64 `json:"tour_price"`
	CustomerName  string  `json:"customer_name"`
	CustomerEmail string  `json:"customer_email"`
	CustomerPhone string  `json:"customer_phone"`
}

// BookingInput holds caller supplied booking fields. A nil field was not
// supplied and takes its default on create or its stored value on update.
type BookingInput struct {
	TourID        *int64   `json:"tour_id"`
	CustomerID    *int64   `json:"customer_id"`
	BookingDate   *string  `json:"booking_date"`
	NumGuests     *int     `json:"num_guests"`
	Status        *string  `json:"status"`
	PaymentStatus *string  `json:"payment_status"`
	TotalAmount   *float64 `json:"total_amount"`
	Notes         *string  `json:"notes"`
	// Version, when set, must match the stored version on update.
	Version *int64 `json:"version"`
}

// Empty reports whether no field was supplied.
func (in BookingInput) Empty() bool {
	return in.TourID == nil && in.CustomerID == nil && in.BookingDate == nil && in.NumGuests == nil &&
		in.Status == nil && in.PaymentStatus == nil && in.TotalAmount == nil && in.Notes == nil
}

// BookingFilter narrows a booking listing.
type BookingFilter struct {
	Status        string
	PaymentStatus string
	TourID        int64
	CustomerID    int64
	DateFrom      string
	DateTo        string
	Search        string
	Sort          string
	Order         string
	Limit         int
	Offset        int
}

// Sortable booking listing columns.
const (
	SortBookingID      = "booking_id"
	SortBookingDate    = "booking_date"
	SortBookingCreated = "booking_created"
	SortTotalAmount    = "total_amount"
	SortCustomerName   = "customer_name"
	SortDestination    = "destination"
)
