// backend/internal/wallet/handler.go
package wallet

import (
	"net/http"
	"strconv"

	"reads-backend/internal/apierr"
	"reads-backend/internal/auth"
)

type Handler struct {
	service *Service
}

func NewHandler(service *Service) *Handler {
	return &Handler{service: service}
}

func (h *Handler) Balance(w http.ResponseWriter, r *http.Request) {
	userID, ok := auth.UserIDFromContext(r.Context())
	if !ok {
		apierr.Write(w, apierr.Unauthorized("unauthorized"))
		return
	}

	balance, err := h.service.Balance(r.Context(), userID)
	if err != nil {
		apierr.Write(w, err)
		return
	}

	apierr.WriteJSON(w, http.StatusOK, balance)
}

func (h *Handler) History(w http.ResponseWriter, r *http.Request) {
	userID, ok := auth.UserIDFromContext(r.Context())
	if !ok {
		apierr.Write(w, apierr.Unauthorized("unauthorized"))
		return
	}

	history, err := h.service.RewardHistory(r.Context(), userID)
	if err != nil {
		apierr.Write(w, err)
		return
	}

	apierr.WriteJSON(w, http.StatusOK, history)
}

func (h *Handler) Summary(w http.ResponseWriter, r *http.Request) {
	userID, ok := auth.UserIDFromContext(r.Context())
	if !ok {
		apierr.Write(w, apierr.Unauthorized("unauthorized"))
		return
	}

	summary, err := h.service.RewardSummary(r.Context(), userID)
	if err != nil {
		apierr.Write(w, err)
		return
	}

	apierr.WriteJSON(w, http.StatusOK, summary)
}

func (h *Handler) Leaderboard(w http.ResponseWriter, r *http.Request) {
	limit := 0
	if raw := r.URL.Query().Get("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 1 {
			apierr.Write(w, apierr.Validation("limit must be a positive integer"))
			return
		}
		limit = n
	}

	entries, err := h.service.Leaderboard(r.Context(), limit)
	if err != nil {
		apierr.Write(w, err)
		return
	}

	apierr.WriteJSON(w, http.StatusOK, entries)
}
