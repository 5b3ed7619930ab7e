package lesson

import (
	"context"
	"time"

	"github.com/google/uuid"

	"reads-backend/internal/apierr"
	"reads-backend/internal/models"
	"reads-backend/pkg/dbctx"
	"reads-backend/pkg/logger"
)

// ResultCounter reports how many quiz attempts a user has recorded.
type ResultCounter interface {
	CountResultsByUser(dbc dbctx.Context, userID uuid.UUID) (int64, error)
}

type Service struct {
	repo    *Repository
	results ResultCounter
	now     func() time.Time
	log     *logger.Logger
}

func NewService(repo *Repository, results ResultCounter, baseLog *logger.Logger) *Service {
	return &Service{
		repo:    repo,
		results: results,
		now:     func() time.Time { return time.Now().UTC() },
		log:     baseLog.With("service", "LessonService"),
	}
}

func (s *Service) Categories(ctx context.Context) ([]models.CategoryCount, error) {
	cats, err := s.repo.Categories(dbctx.New(ctx))
	if err != nil {
		return nil, apierr.Persistence(err)
	}
	if cats == nil {
		cats = []models.CategoryCount{}
	}
	return cats, nil
}

func (s *Service) LessonsByCategory(ctx context.Context, category string) ([]models.LessonSummary, error) {
	lessons, err := s.repo.ListByCategory(dbctx.New(ctx), category)
	if err != nil {
		return nil, apierr.Persistence(err)
	}
	out := make([]models.LessonSummary, 0, len(lessons))
	for _, l := range lessons {
		out = append(out, l.Summary())
	}
	return out, nil
}

func (s *Service) Lesson(ctx context.Context, id uuid.UUID) (models.LessonDetail, error) {
	l, err := s.repo.GetLesson(dbctx.New(ctx), id)
	if err != nil {
		return models.LessonDetail{}, apierr.Persistence(err)
	}
	if l == nil {
		return models.LessonDetail{}, apierr.NotFound("lesson not found")
	}
	return l.Detail(), nil
}

// Complete marks the lesson done for the user. Repeating it is a no-op that
// still succeeds.
func (s *Service) Complete(ctx context.Context, userID, lessonID uuid.UUID) error {
	dbc := dbctx.New(ctx)
	l, err := s.repo.GetLesson(dbc, lessonID)
	if err != nil {
		return apierr.Persistence(err)
	}
	if l == nil {
		return apierr.NotFound("lesson not found")
	}
	if err := s.repo.MarkCompleted(dbc, userID, lessonID, s.now()); err != nil {
		s.log.Error("mark lesson completed failed", "user_id", userID, "lesson_id", lessonID, "error", err)
		return apierr.Persistence(err)
	}
	return nil
}

func (s *Service) Stats(ctx context.Context, userID uuid.UUID) (models.UserStats, error) {
	dbc := dbctx.New(ctx)
	completed, err := s.repo.CountCompleted(dbc, userID)
	if err != nil {
		return models.UserStats{}, apierr.Persistence(err)
	}
	taken, err := s.results.CountResultsByUser(dbc, userID)
	if err != nil {
		return models.UserStats{}, apierr.Persistence(err)
	}
	return models.UserStats{LessonsCompleted: completed, QuizzesTaken: taken}, nil
}
