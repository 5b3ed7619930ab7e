// backend/internal/quiz/handler.go
package quiz

import (
	"encoding/json"
	"net/http"

	"github.com/google/uuid"
	"github.com/gorilla/mux"

	"reads-backend/internal/apierr"
	"reads-backend/internal/auth"
	"reads-backend/internal/models"
)

type Handler struct {
	service *Service
}

func NewHandler(service *Service) *Handler {
	return &Handler{service: service}
}

func (h *Handler) StartQuiz(w http.ResponseWriter, r *http.Request) {
	lessonID, err := uuid.Parse(mux.Vars(r)["lessonID"])
	if err != nil {
		apierr.Write(w, apierr.Validation("invalid lesson id"))
		return
	}

	questions, err := h.service.StartQuiz(r.Context(), lessonID)
	if err != nil {
		apierr.Write(w, err)
		return
	}

	apierr.WriteJSON(w, http.StatusOK, questions)
}

func (h *Handler) SubmitQuiz(w http.ResponseWriter, r *http.Request) {
	userID, ok := auth.UserIDFromContext(r.Context())
	if !ok {
		apierr.Write(w, apierr.Unauthorized("unauthorized"))
		return
	}

	var req models.QuizSubmitRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		apierr.Write(w, apierr.Validation("invalid request"))
		return
	}

	result, err := h.service.Settle(r.Context(), userID, req)
	if err != nil {
		apierr.Write(w, err)
		return
	}

	apierr.WriteJSON(w, http.StatusOK, result)
}
