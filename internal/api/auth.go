package api

import (
	"net/http"

	"tourdesk/internal/models"
)

func (s *HTTPServer) handleRegister(w http.ResponseWriter, r *http.Request) {
	var req models.RegisterRequest
	if err := decodeJSON(r, &req); err != nil {
		writeServiceError(w, r, s.logger, err)
		return
	}
	result, err := s.services.Auth.Register(r.Context(), req)
	if err != nil {
		writeServiceError(w, r, s.logger, err)
		return
	}
	writeJSON(w, http.StatusCreated, result)
}

func (s *HTTPServer) handleLogin(w http.ResponseWriter, r *http.Request) {
	var req models.LoginRequest
	if err := decodeJSON(r, &req); err != nil {
		writeServiceError(w, r, s.logger, err)
		return
	}
	result, err := s.services.Auth.Login(r.Context(), req)
	if err != nil {
		writeServiceError(w, r, s.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, result)
}

func (s *HTTPServer) handleMe(w http.ResponseWriter, r *http.Request) {
	user, customer, err := s.services.Auth.Me(r.Context(), principal(r))
	if err != nil {
		writeServiceError(w, r, s.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"user": user, "customer": customer})
}
