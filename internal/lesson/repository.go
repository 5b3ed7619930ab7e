package lesson

import (
	"errors"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"reads-backend/internal/models"
	"reads-backend/pkg/dbctx"
	"reads-backend/pkg/logger"
)

type Repository struct {
	db  *gorm.DB
	log *logger.Logger
}

func NewRepository(db *gorm.DB, baseLog *logger.Logger) *Repository {
	return &Repository{db: db, log: baseLog.With("repo", "LessonRepository")}
}

func (r *Repository) Categories(dbc dbctx.Context) ([]models.CategoryCount, error) {
	var out []models.CategoryCount
	err := dbc.DB(r.db).
		Model(&models.Lesson{}).
		Select("category, COUNT(*) AS count").
		Group("category").
		Order("category ASC").
		Scan(&out).Error
	if err != nil {
		return nil, err
	}
	return out, nil
}

func (r *Repository) ListByCategory(dbc dbctx.Context, category string) ([]models.Lesson, error) {
	var lessons []models.Lesson
	err := dbc.DB(r.db).
		Where("category = ?", category).
		Order("order_index ASC").
		Find(&lessons).Error
	if err != nil {
		return nil, err
	}
	return lessons, nil
}

// GetLesson returns nil, nil when the lesson does not exist.
func (r *Repository) GetLesson(dbc dbctx.Context, id uuid.UUID) (*models.Lesson, error) {
	var l models.Lesson
	err := dbc.DB(r.db).First(&l, "id = ?", id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &l, nil
}

func (r *Repository) FindLesson(dbc dbctx.Context, category, title string) (*models.Lesson, error) {
	var l models.Lesson
	err := dbc.DB(r.db).Where("category = ? AND title = ?", category, title).First(&l).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &l, nil
}

func (r *Repository) CreateLesson(dbc dbctx.Context, l *models.Lesson) error {
	return dbc.DB(r.db).Create(l).Error
}

func (r *Repository) SaveLesson(dbc dbctx.Context, l *models.Lesson) error {
	return dbc.DB(r.db).Save(l).Error
}

// MarkCompleted upserts the (user, lesson) progress row. completed_at keeps
// the time of the first completion.
func (r *Repository) MarkCompleted(dbc dbctx.Context, userID, lessonID uuid.UUID, at time.Time) error {
	p := &models.LessonProgress{
		UserID:      userID,
		LessonID:    lessonID,
		Completed:   true,
		CompletedAt: &at,
	}
	return dbc.DB(r.db).Clauses(clause.OnConflict{
		Columns: []clause.Column{{Name: "user_id"}, {Name: "lesson_id"}},
		DoUpdates: clause.Assignments(map[string]interface{}{
			"completed":    true,
			"completed_at": gorm.Expr("COALESCE(lesson_progress.completed_at, excluded.completed_at)"),
		}),
	}).Create(p).Error
}

func (r *Repository) GetProgress(dbc dbctx.Context, userID, lessonID uuid.UUID) (*models.LessonProgress, error) {
	var p models.LessonProgress
	err := dbc.DB(r.db).First(&p, "user_id = ? AND lesson_id = ?", userID, lessonID).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &p, nil
}

func (r *Repository) CountCompleted(dbc dbctx.Context, userID uuid.UUID) (int64, error) {
	var n int64
	err := dbc.DB(r.db).
		Model(&models.LessonProgress{}).
		Where("user_id = ? AND completed = ?", userID, true).
		Count(&n).Error
	return n, err
}
