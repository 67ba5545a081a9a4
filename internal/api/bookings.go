package api

import (
	"fmt"
	"net/http"

	"tourdesk/internal/domain"
	"tourdesk/internal/export"
	"tourdesk/internal/models"
)

func (s *HTTPServer) handleListBookings(w http.ResponseWriter, r *http.Request) {
	filter, err := bookingFilterFromQuery(r)
	if err != nil {
		writeServiceError(w, r, s.logger, err)
		return
	}

	bookings, total, err := s.services.Bookings.List(r.Context(), principal(r), filter)
	if err != nil {
		writeServiceError(w, r, s.logger, err)
		return
	}
	limit := filter.Limit
	if limit <= 0 {
		limit = models.DefaultPageSize
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"bookings": bookings,
		"total":    total,
		"limit":    min(limit, models.MaxPageSize),
		"offset":   max(filter.Offset, 0),
	})
}

func (s *HTTPServer) handleGetBooking(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		writeServiceError(w, r, s.logger, err)
		return
	}
	booking, err := s.services.Bookings.Get(r.Context(), principal(r), id)
	if err != nil {
		writeServiceError(w, r, s.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, booking)
}

func (s *HTTPServer) handleCreateBooking(w http.ResponseWriter, r *http.Request) {
	var in models.BookingInput
	if err := decodeJSON(r, &in); err != nil {
		writeServiceError(w, r, s.logger, err)
		return
	}
	p := principal(r)
	if err := s.checkBookingLimit(r, p); err != nil {
		writeServiceError(w, r, s.logger, err)
		return
	}

	booking, err := s.services.Bookings.Create(r.Context(), p, in)
	if err != nil {
		writeServiceError(w, r, s.logger, err)
		return
	}
	writeJSON(w, http.StatusCreated, map[string]any{
		"message": "Booking created successfully",
		"booking": booking,
	})
}

func (s *HTTPServer) handleUpdateBooking(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		writeServiceError(w, r, s.logger, err)
		return
	}
	var in models.BookingInput
	if err := decodeJSON(r, &in); err != nil {
		writeServiceError(w, r, s.logger, err)
		return
	}
	p := principal(r)
	if err := s.checkBookingLimit(r, p); err != nil {
		writeServiceError(w, r, s.logger, err)
		return
	}

	booking, err := s.services.Bookings.Update(r.Context(), p, id, in)
	if err != nil {
		writeServiceError(w, r, s.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"message": "Booking updated successfully",
		"booking": booking,
	})
}

// handleDeleteBooking cancels a booking, or removes it with ?hard=true.
func (s *HTTPServer) handleDeleteBooking(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		writeServiceError(w, r, s.logger, err)
		return
	}
	p := principal(r)
	if err := s.checkBookingLimit(r, p); err != nil {
		writeServiceError(w, r, s.logger, err)
		return
	}

	hard := queryBool(r, "hard")
	if err := s.services.Bookings.Delete(r.Context(), p, id, hard); err != nil {
		writeServiceError(w, r, s.logger, err)
		return
	}
	message := "Booking cancelled successfully"
	if hard && p.IsAdmin() {
		message = "Booking deleted successfully"
	}
	writeJSON(w, http.StatusOK, map[string]string{"message": message})
}

func (s *HTTPServer) handleStats(w http.ResponseWriter, r *http.Request) {
	stats, err := s.services.Dashboard.Stats(r.Context())
	if err != nil {
		writeServiceError(w, r, s.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, stats)
}

// handleExportBookings streams every booking matching the query as XLSX.
func (s *HTTPServer) handleExportBookings(w http.ResponseWriter, r *http.Request) {
	filter, err := bookingFilterFromQuery(r)
	if err != nil {
		writeServiceError(w, r, s.logger, err)
		return
	}

	var all []*models.BookingDetails
	filter.Limit = models.MaxPageSize
	for offset := 0; ; offset += filter.Limit {
		filter.Offset = offset
		page, total, err := s.services.Bookings.List(r.Context(), principal(r), filter)
		if err != nil {
			writeServiceError(w, r, s.logger, err)
			return
		}
		all = append(all, page...)
		if len(page) < filter.Limit || len(all) >= total {
			break
		}
	}

	now := s.now()
	w.Header().Set("Content-Type", "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet")
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", export.FileName(now)))
	w.WriteHeader(http.StatusOK)
	if err := export.WriteBookings(w, all, now); err != nil {
		s.logger.Error().Err(err).Str("request_id", requestIDFrom(r.Context())).Msg("bookings export failed")
	}
}

// checkBookingLimit applies the per-customer booking write limit. Limiter
// failures let the request through.
func (s *HTTPServer) checkBookingLimit(r *http.Request, p domain.Principal) error {
	limiter := s.services.BookingLimiter
	if limiter == nil || !p.IsCustomer() || s.cfg.BookingLimit.MaxPerWindow <= 0 {
		return nil
	}
	key := fmt.Sprintf("booking:%d", p.UserID)
	allowed, err := limiter.CheckRateLimit(r.Context(), key, s.cfg.BookingLimit.MaxPerWindow, s.cfg.BookingLimit.Window)
	if err != nil {
		s.logger.Warn().Err(err).Str("key", key).Msg("booking rate limit check failed")
		return nil
	}
	if !allowed {
		return domain.ErrRateLimited
	}
	return nil
}

func bookingFilterFromQuery(r *http.Request) (models.BookingFilter, error) {
	q := r.URL.Query()
	filter := models.BookingFilter{
		Status:        q.Get("status"),
		PaymentStatus: q.Get("payment_status"),
		DateFrom:      q.Get("date_from"),
		DateTo:        q.Get("date_to"),
		Search:        q.Get("search"),
		Sort:          q.Get("sort"),
		Order:         q.Get("order"),
	}

	var err error
	if filter.TourID, err = queryInt64(r, "tour_id"); err != nil {
		return filter, err
	}
	if filter.CustomerID, err = queryInt64(r, "customer_id"); err != nil {
		return filter, err
	}
	if filter.Limit, err = queryInt(r, "limit"); err != nil {
		return filter, err
	}
	if filter.Offset, err = queryInt(r, "offset"); err != nil {
		return filter, err
	}
	return filter, nil
}
