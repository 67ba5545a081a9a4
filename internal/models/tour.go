package models

import "time"

type Tour struct {
	ID          int64     `json:"id" yaml:"id"`
	Destination string    `json:"destination" yaml:"destination"`
	Description string    `json:"description" yaml:"description"`
	StartDate   string    `json:"start_date" yaml:"start_date"`
	EndDate     string    `json:"end_date" yaml:"end_date"`
	Capacity    int       `json:"capacity" yaml:"capacity"`
	Price       float64   `json:"price" yaml:"price"`
	Status      string    `json:"status" yaml:"status"`
	ImageURL    string    `json:"image_url,omitempty" yaml:"image_url"`
	CreatedAt   time.Time `json:"created_at" yaml:"-"`
	UpdatedAt   time.Time `json:"updated_at" yaml:"-"`
}

// IsActive reports whether the tour accepts new bookings.
func (t *Tour) IsActive() bool {
	return t.Status == TourActive
}

// TourInput carries the fields of a new tour.
type TourInput struct {
	Destination string   `json:"destination" validate:"required"`
	Description string   `json:"description"`
	StartDate   string   `json:"start_date" validate:"required"`
	EndDate     string   `json:"end_date" validate:"required"`
	Capacity    *int     `json:"capacity" validate:"required"`
	Price       *float64 `json:"price" validate:"required"`
	Status      string   `json:"status"`
	ImageURL    string   `json:"image_url"`
}

// Tour builds the tour the input describes, defaulting status to active.
func (in TourInput) Tour() *Tour {
	t := &Tour{
		Destination: in.Destination,
		Description: in.Description,
		StartDate:   in.StartDate,
		EndDate:     in.EndDate,
		Status:      in.Status,
		ImageURL:    in.ImageURL,
	}
	if in.Capacity != nil {
		t.Capacity = *in.Capacity
	}
	if in.Price != nil {
		t.Price = *in.Price
	}
	if t.Status == "" {
		t.Status = TourActive
	}
	return t
}

// TourView is a tour annotated with its live remaining capacity.
type TourView struct {
	Tour
	AvailableSlots int `json:"available_slots"`
}

// TourPatch carries the fields of a partial tour update; nil means unchanged.
type TourPatch struct {
	Destination *string  `json:"destination"`
	Description *string  `json:"description"`
	StartDate   *string  `json:"start_date"`
	EndDate     *string  `json:"end_date"`
	Capacity    *int     `json:"capacity"`
	Price       *float64 `json:"price"`
	Status      *string  `json:"status"`
	ImageURL    *string  `json:"image_url"`
}

// Empty reports whether the patch changes nothing.
func (p TourPatch) Empty() bool {
	return p.Destination == nil && p.Description == nil && p.StartDate == nil && p.EndDate == nil &&
		p.Capacity == nil && p.Price == nil && p.Status == nil && p.ImageURL == nil
}

// Apply overlays the patch onto t.
func (p TourPatch) Apply(t *Tour) {
	if p.Destination != nil {
		t.Destination = *p.Destination
	}
	if p.Description != nil {
		t.Description = *p.Description
	}
	if p.StartDate != nil {
		t.StartDate = *p.StartDate
	}
	if p.EndDate != nil {
		t.EndDate = *p.EndDate
	}
	if p.Capacity != nil {
		t.Capacity = *p.Capacity
	}
	if p.Price != nil {
		t.Price = *p.Price
	}
	if p.Status != nil {
		t.Status = *p.Status
	}
	if p.ImageURL != nil {
		t.ImageURL = *p.ImageURL
	}
}

// Availability is the answer to an availability check for a tour.
type Availability struct {
	Available      bool    `json:"available"`
	AvailableSlots int     `json:"available_slots"`
	RequestedSlots int     `json:"requested_slots"`
	TotalPrice     float64 `json:"total_price"`
	Tour           *Tour   `json:"tour"`
	Message        string  `json:"message"`
}
