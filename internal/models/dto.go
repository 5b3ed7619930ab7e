// backend/internal/models/dto.go
package models

import (
	"time"

	"github.com/google/uuid"
)

type SignupRequest struct {
	Name     string `json:"name"`
	Email    string `json:"email"`
	Password string `json:"password"`
}

type LoginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type TokenResponse struct {
	AccessToken string `json:"access_token"`
	TokenType   string `json:"token_type"`
}

type UserProfile struct {
	ID        uuid.UUID `json:"id"`
	Name      string    `json:"name"`
	Email     string    `json:"email"`
	CreatedAt time.Time `json:"created_at"`
}

func (u User) Profile() UserProfile {
	return UserProfile{ID: u.ID, Name: u.Name, Email: u.Email, CreatedAt: u.CreatedAt}
}

type UserStats struct {
	LessonsCompleted int64 `json:"lessons_completed"`
	QuizzesTaken     int64 `json:"quizzes_taken"`
}

type WalletBalance struct {
	TokenBalance int64 `json:"token_balance"`
}

type CategoryCount struct {
	Category string `json:"category"`
	Count    int64  `json:"count"`
}

type LessonSummary struct {
	ID         uuid.UUID `json:"id"`
	Category   string    `json:"category"`
	Title      string    `json:"title"`
	OrderIndex int       `json:"order_index"`
}

type LessonDetail struct {
	LessonSummary
	Content  string  `json:"content"`
	VideoURL *string `json:"video_url,omitempty"`
}

func (l Lesson) Summary() LessonSummary {
	return LessonSummary{ID: l.ID, Category: l.Category, Title: l.Title, OrderIndex: l.OrderIndex}
}

func (l Lesson) Detail() LessonDetail {
	return LessonDetail{LessonSummary: l.Summary(), Content: l.Content, VideoURL: l.VideoURL}
}

// QuestionDTO is what a learner sees: the correct option is never included.
type QuestionDTO struct {
	ID       uuid.UUID `json:"id"`
	Question string    `json:"question"`
	Options  []Option  `json:"options"`
}

func (q QuizQuestion) ToDTO() QuestionDTO {
	opts := q.OptionList()
	if opts == nil {
		opts = []Option{}
	}
	return QuestionDTO{ID: q.ID, Question: q.Question, Options: opts}
}

type AnswerSubmission struct {
	QuestionID uuid.UUID `json:"question_id"`
	Selected   string    `json:"selected"`
}

type QuizSubmitRequest struct {
	LessonID uuid.UUID          `json:"lesson_id"`
	Answers  []AnswerSubmission `json:"answers"`
}

type QuizResultResponse struct {
	Score         int   `json:"score"`
	Correct       int   `json:"correct"`
	Wrong         int   `json:"wrong"`
	TokensAwarded int64 `json:"tokens_awarded"`
}

type RewardHistoryEntry struct {
	ID           uuid.UUID `json:"id"`
	LessonID     uuid.UUID `json:"lesson_id"`
	TokensEarned int64     `json:"tokens_earned"`
	CreatedAt    time.Time `json:"created_at"`
}

type RewardSummary struct {
	TotalEarned int64 `json:"total_earned"`
}

type LeaderboardEntry struct {
	UserID uuid.UUID `json:"user_id"`
	Name   string    `json:"name"`
	Tokens int64     `json:"tokens"`
	Rank   int64     `json:"rank"`
}

// WalletUpdate is pushed over the websocket after a settlement commits.
type WalletUpdate struct {
	TokenBalance  int64     `json:"token_balance"`
	TokensAwarded int64     `json:"tokens_awarded"`
	LessonID      uuid.UUID `json:"lesson_id"`
}
