// backend/internal/models/quiz.go
package models

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

// Option is one multiple-choice answer, e.g. {Key: "A", Text: "Abuja"}.
type Option struct {
	Key  string `json:"key" yaml:"key"`
	Text string `json:"text" yaml:"text"`
}

type QuizQuestion struct {
	ID            uuid.UUID                    `json:"id" gorm:"type:uuid;primaryKey"`
	LessonID      uuid.UUID                    `json:"lesson_id" gorm:"type:uuid;index;not null"`
	Question      string                       `json:"question" gorm:"type:text;not null"`
	Options       datatypes.JSONType[[]Option] `json:"options" gorm:"not null"`
	CorrectOption string                       `json:"correct_option" gorm:"not null"`
	Position      int                          `json:"position" gorm:"not null;default:0"`
	CreatedAt     time.Time                    `json:"created_at"`
}

func NewQuizQuestion(lessonID uuid.UUID, text string, options []Option, correct string) QuizQuestion {
	return QuizQuestion{
		LessonID:      lessonID,
		Question:      text,
		Options:       datatypes.NewJSONType(options),
		CorrectOption: correct,
	}
}

func (q *QuizQuestion) BeforeCreate(tx *gorm.DB) error {
	if q.ID == uuid.Nil {
		q.ID = uuid.New()
	}
	return q.Validate()
}

func (q QuizQuestion) OptionList() []Option {
	return q.Options.Data()
}

func (q QuizQuestion) HasOption(key string) bool {
	for _, opt := range q.OptionList() {
		if opt.Key == key {
			return true
		}
	}
	return false
}

// Validate enforces that option keys are unique and non-empty and that
// CorrectOption is one of them.
func (q QuizQuestion) Validate() error {
	if strings.TrimSpace(q.Question) == "" {
		return errors.New("question text is required")
	}
	opts := q.OptionList()
	if len(opts) == 0 {
		return errors.New("question needs at least one option")
	}
	seen := make(map[string]struct{}, len(opts))
	for _, opt := range opts {
		if opt.Key == "" {
			return errors.New("option key is required")
		}
		if _, dup := seen[opt.Key]; dup {
			return fmt.Errorf("duplicate option key %q", opt.Key)
		}
		seen[opt.Key] = struct{}{}
	}
	if !q.HasOption(q.CorrectOption) {
		return fmt.Errorf("correct option %q is not one of the option keys", q.CorrectOption)
	}
	return nil
}

// QuizResult is append-only: one row per submission attempt.
type QuizResult struct {
	ID           uuid.UUID `json:"id" gorm:"type:uuid;primaryKey"`
	UserID       uuid.UUID `json:"user_id" gorm:"type:uuid;index;not null"`
	LessonID     uuid.UUID `json:"lesson_id" gorm:"type:uuid;index;not null"`
	Score        int       `json:"score" gorm:"not null"`
	CorrectCount int       `json:"correct_count" gorm:"not null"`
	WrongCount   int       `json:"wrong_count" gorm:"not null"`
	CreatedAt    time.Time `json:"created_at"`
}

func (r *QuizResult) BeforeCreate(tx *gorm.DB) error {
	if r.ID == uuid.Nil {
		r.ID = uuid.New()
	}
	return nil
}

// Reward is written only when tokens were earned, in the same transaction as
// the QuizResult it belongs to.
type Reward struct {
	ID           uuid.UUID `json:"id" gorm:"type:uuid;primaryKey"`
	UserID       uuid.UUID `json:"user_id" gorm:"type:uuid;index;not null"`
	LessonID     uuid.UUID `json:"lesson_id" gorm:"type:uuid;not null"`
	QuizResultID uuid.UUID `json:"quiz_result_id" gorm:"type:uuid;uniqueIndex;not null"`
	TokensEarned int64     `json:"tokens_earned" gorm:"not null;check:tokens_earned > 0"`
	CreatedAt    time.Time `json:"created_at"`
}

func (r *Reward) BeforeCreate(tx *gorm.DB) error {
	if r.ID == uuid.Nil {
		r.ID = uuid.New()
	}
	return nil
}

// All lists every persisted model in migration order.
func All() []interface{} {
	return []interface{}{
		&User{},
		&Wallet{},
		&Lesson{},
		&LessonProgress{},
		&QuizQuestion{},
		&QuizResult{},
		&Reward{},
	}
}
