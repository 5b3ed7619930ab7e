package quiz

import (
	"context"
	"errors"

	"github.com/google/uuid"

	"reads-backend/internal/apierr"
	"reads-backend/internal/models"
	"reads-backend/pkg/cache"
	"reads-backend/pkg/dbctx"
	"reads-backend/pkg/logger"
)

type QuestionCache interface {
	GetLessonQuestions(ctx context.Context, lessonID uuid.UUID) ([]models.QuizQuestion, error)
	SetLessonQuestions(ctx context.Context, lessonID uuid.UUID, questions []models.QuizQuestion) error
	InvalidateLessonQuestions(ctx context.Context, lessonID uuid.UUID) error
}

// QuestionBank is the read-only source of a lesson's questions and answer
// keys. It reads through the cache when one is configured.
type QuestionBank struct {
	repo  *Repository
	cache QuestionCache
	log   *logger.Logger
}

func NewQuestionBank(repo *Repository, cache QuestionCache, baseLog *logger.Logger) *QuestionBank {
	return &QuestionBank{repo: repo, cache: cache, log: baseLog.With("service", "QuestionBank")}
}

// QuestionsFor returns NotFound when the lesson has no questions.
func (b *QuestionBank) QuestionsFor(ctx context.Context, lessonID uuid.UUID) ([]models.QuizQuestion, error) {
	if b.cache != nil {
		questions, err := b.cache.GetLessonQuestions(ctx, lessonID)
		switch {
		case err == nil && len(questions) > 0:
			return questions, nil
		case err != nil && !errors.Is(err, cache.ErrMiss):
			b.log.Warn("question cache read failed", "lesson_id", lessonID, "error", err)
		}
	}

	questions, err := b.repo.GetQuestionsByLesson(dbctx.New(ctx), lessonID)
	if err != nil {
		b.log.Error("load questions failed", "lesson_id", lessonID, "error", err)
		return nil, apierr.Persistence(err)
	}
	if len(questions) == 0 {
		return nil, apierr.NotFound("no quiz questions for this lesson")
	}

	if b.cache != nil {
		if err := b.cache.SetLessonQuestions(ctx, lessonID, questions); err != nil {
			b.log.Warn("question cache write failed", "lesson_id", lessonID, "error", err)
		}
	}
	return questions, nil
}

// Invalidate drops the cached copy after the catalog changes.
func (b *QuestionBank) Invalidate(ctx context.Context, lessonID uuid.UUID) {
	if b.cache == nil {
		return
	}
	if err := b.cache.InvalidateLessonQuestions(ctx, lessonID); err != nil {
		b.log.Warn("question cache invalidate failed", "lesson_id", lessonID, "error", err)
	}
}
