package api

import (
	"net/http"

	"tourdesk/internal/models"
)

// handleListTours lists active tours. Admins may pass ?all=true to include
// inactive ones.
func (s *HTTPServer) handleListTours(w http.ResponseWriter, r *http.Request) {
	includeInactive := queryBool(r, "all") && principal(r).IsAdmin()
	tours, err := s.services.Tours.List(r.Context(), includeInactive, r.URL.Query().Get("destination"))
	if err != nil {
		writeServiceError(w, r, s.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"tours": tours})
}

func (s *HTTPServer) handleGetTour(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		writeServiceError(w, r, s.logger, err)
		return
	}
	tour, err := s.services.Tours.Get(r.Context(), id)
	if err != nil {
		writeServiceError(w, r, s.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, tour)
}

func (s *HTTPServer) handleCreateTour(w http.ResponseWriter, r *http.Request) {
	var in models.TourInput
	if err := decodeJSON(r, &in); err != nil {
		writeServiceError(w, r, s.logger, err)
		return
	}
	tour, err := s.services.Tours.Create(r.Context(), in)
	if err != nil {
		writeServiceError(w, r, s.logger, err)
		return
	}
	writeJSON(w, http.StatusCreated, tour)
}

func (s *HTTPServer) handleUpdateTour(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		writeServiceError(w, r, s.logger, err)
		return
	}
	var patch models.TourPatch
	if err := decodeJSON(r, &patch); err != nil {
		writeServiceError(w, r, s.logger, err)
		return
	}
	tour, err := s.services.Tours.Update(r.Context(), id, patch)
	if err != nil {
		writeServiceError(w, r, s.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, tour)
}

func (s *HTTPServer) handleDeleteTour(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		writeServiceError(w, r, s.logger, err)
		return
	}
	if err := s.services.Tours.Delete(r.Context(), id); err != nil {
		writeServiceError(w, r, s.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"message": "Tour deleted successfully"})
}

func (s *HTTPServer) handleTourAvailability(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		writeServiceError(w, r, s.logger, err)
		return
	}
	tour, err := s.services.Tours.Get(r.Context(), id)
	if err != nil {
		writeServiceError(w, r, s.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"tour_id":         tour.ID,
		"capacity":        tour.Capacity,
		"available_slots": tour.AvailableSlots,
		"status":          tour.Status,
	})
}

type availabilityRequest struct {
	TourID    int64 `json:"tour_id"`
	NumGuests int   `json:"num_guests"`
}

func (s *HTTPServer) handleCheckAvailability(w http.ResponseWriter, r *http.Request) {
	var req availabilityRequest
	if err := decodeJSON(r, &req); err != nil {
		writeServiceError(w, r, s.logger, err)
		return
	}
	result, err := s.services.Tours.CheckAvailability(r.Context(), req.TourID, req.NumGuests)
	if err != nil {
		writeServiceError(w, r, s.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, result)
}
