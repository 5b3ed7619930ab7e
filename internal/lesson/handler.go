package lesson

import (
	"net/http"

	"github.com/google/uuid"
	"github.com/gorilla/mux"

	"reads-backend/internal/apierr"
	"reads-backend/internal/auth"
)

type Handler struct {
	service *Service
}

func NewHandler(service *Service) *Handler {
	return &Handler{service: service}
}

func (h *Handler) Categories(w http.ResponseWriter, r *http.Request) {
	cats, err := h.service.Categories(r.Context())
	if err != nil {
		apierr.Write(w, err)
		return
	}
	apierr.WriteJSON(w, http.StatusOK, cats)
}

func (h *Handler) ByCategory(w http.ResponseWriter, r *http.Request) {
	lessons, err := h.service.LessonsByCategory(r.Context(), mux.Vars(r)["category"])
	if err != nil {
		apierr.Write(w, err)
		return
	}
	apierr.WriteJSON(w, http.StatusOK, lessons)
}

func (h *Handler) Detail(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(mux.Vars(r)["id"])
	if err != nil {
		apierr.Write(w, apierr.Validation("invalid lesson id"))
		return
	}

	lesson, err := h.service.Lesson(r.Context(), id)
	if err != nil {
		apierr.Write(w, err)
		return
	}
	apierr.WriteJSON(w, http.StatusOK, lesson)
}

func (h *Handler) Complete(w http.ResponseWriter, r *http.Request) {
	userID, ok := auth.UserIDFromContext(r.Context())
	if !ok {
		apierr.Write(w, apierr.Unauthorized("unauthorized"))
		return
	}
	id, err := uuid.Parse(mux.Vars(r)["id"])
	if err != nil {
		apierr.Write(w, apierr.Validation("invalid lesson id"))
		return
	}

	if err := h.service.Complete(r.Context(), userID, id); err != nil {
		apierr.Write(w, err)
		return
	}
	apierr.WriteJSON(w, http.StatusOK, map[string]string{"status": "success"})
}

func (h *Handler) Stats(w http.ResponseWriter, r *http.Request) {
	userID, ok := auth.UserIDFromContext(r.Context())
	if !ok {
		apierr.Write(w, apierr.Unauthorized("unauthorized"))
		return
	}

	stats, err := h.service.Stats(r.Context(), userID)
	if err != nil {
		apierr.Write(w, err)
		return
	}
	apierr.WriteJSON(w, http.StatusOK, stats)
}
