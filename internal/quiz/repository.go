// backend/internal/quiz/repository.go
package quiz

import (
	"github.com/google/uuid"
	"gorm.io/gorm"

	"reads-backend/internal/models"
	"reads-backend/pkg/dbctx"
	"reads-backend/pkg/logger"
)

type Repository struct {
	db  *gorm.DB
	log *logger.Logger
}

func NewRepository(db *gorm.DB, baseLog *logger.Logger) *Repository {
	return &Repository{db: db, log: baseLog.With("repo", "QuizRepository")}
}

// GetQuestionsByLesson returns the lesson's questions in presentation order.
func (r *Repository) GetQuestionsByLesson(dbc dbctx.Context, lessonID uuid.UUID) ([]models.QuizQuestion, error) {
	var questions []models.QuizQuestion
	err := dbc.DB(r.db).
		Where("lesson_id = ?", lessonID).
		Order("position ASC").
		Order("created_at ASC").
		Find(&questions).Error
	if err != nil {
		return nil, err
	}
	return questions, nil
}

func (r *Repository) CreateQuestion(dbc dbctx.Context, question *models.QuizQuestion) error {
	return dbc.DB(r.db).Create(question).Error
}

func (r *Repository) DeleteQuestionsByLesson(dbc dbctx.Context, lessonID uuid.UUID) error {
	return dbc.DB(r.db).Where("lesson_id = ?", lessonID).Delete(&models.QuizQuestion{}).Error
}

func (r *Repository) CreateResult(dbc dbctx.Context, result *models.QuizResult) error {
	return dbc.DB(r.db).Create(result).Error
}

func (r *Repository) CountResultsByUser(dbc dbctx.Context, userID uuid.UUID) (int64, error) {
	var n int64
	err := dbc.DB(r.db).Model(&models.QuizResult{}).Where("user_id = ?", userID).Count(&n).Error
	return n, err
}
