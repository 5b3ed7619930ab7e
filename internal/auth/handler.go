// backend/internal/auth/handler.go
package auth

import (
	"encoding/json"
	"net/http"

	"reads-backend/internal/apierr"
	"reads-backend/internal/models"
)

type Handler struct {
	service *Service
}

func NewHandler(service *Service) *Handler {
	return &Handler{service: service}
}

func (h *Handler) Signup(w http.ResponseWriter, r *http.Request) {
	var req models.SignupRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		apierr.Write(w, apierr.Validation("invalid request"))
		return
	}

	token, err := h.service.Signup(r.Context(), req)
	if err != nil {
		apierr.Write(w, err)
		return
	}

	apierr.WriteJSON(w, http.StatusOK, models.TokenResponse{AccessToken: token, TokenType: "bearer"})
}

func (h *Handler) Login(w http.ResponseWriter, r *http.Request) {
	var req models.LoginRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		apierr.Write(w, apierr.Validation("invalid request"))
		return
	}

	token, err := h.service.Login(r.Context(), req)
	if err != nil {
		apierr.Write(w, err)
		return
	}

	apierr.WriteJSON(w, http.StatusOK, models.TokenResponse{AccessToken: token, TokenType: "bearer"})
}

func (h *Handler) Profile(w http.ResponseWriter, r *http.Request) {
	userID, ok := UserIDFromContext(r.Context())
	if !ok {
		apierr.Write(w, apierr.Unauthorized("unauthorized"))
		return
	}

	user, err := h.service.Profile(r.Context(), userID)
	if err != nil {
		apierr.Write(w, err)
		return
	}

	apierr.WriteJSON(w, http.StatusOK, user.Profile())
}
