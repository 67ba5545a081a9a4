package models

// DashboardStats is the aggregate reporting view over bookings and tours.
type DashboardStats struct {
	TotalBookings     int            `json:"total_bookings"`
	PendingBookings   int            `json:"pending_bookings"`
	ConfirmedBookings int            `json:"confirmed_bookings"`
	CancelledBookings int            `json:"cancelled_bookings"`
	TotalRevenue      float64        `json:"total_revenue"`
	CollectedRevenue  float64        `json:"collected_revenue"`
	ActiveTours       int            `json:"active_tours"`
	TotalCustomers    int            `json:"total_customers"`
	RecentBookings    int            `json:"recent_bookings"`
	StatusBreakdown   map[string]int `json:"status_breakdown"`
	UpcomingTours     []UpcomingTour `json:"upcoming_tours"`
}

// UpcomingTour is a soon-departing tour with its occupancy.
type UpcomingTour struct {
	ID             int64  `json:"id"`
	Destination    string `json:"destination"`
	StartDate      string `json:"start_date"`
	Capacity       int    `json:"capacity"`
	BookingCount   int    `json:"booking_count"`
	GuestsBooked   int    `json:"guests_booked"`
	AvailableSlots int    `json:"available_slots"`
}
