// backend/internal/auth/repository.go
package auth

import (
	"errors"

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
	return &Repository{db: db, log: baseLog.With("repo", "AuthRepository")}
}

// GetUserByEmail returns (nil, nil) when no user has that email.
func (r *Repository) GetUserByEmail(dbc dbctx.Context, email string) (*models.User, error) {
	var user models.User
	err := dbc.DB(r.db).Where("email = ?", email).First(&user).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		r.log.Error("find user by email failed", "error", err)
		return nil, err
	}
	return &user, nil
}

func (r *Repository) GetUserByID(dbc dbctx.Context, id uuid.UUID) (*models.User, error) {
	var user models.User
	err := dbc.DB(r.db).First(&user, "id = ?", id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &user, nil
}

func (r *Repository) CreateUser(dbc dbctx.Context, user *models.User) error {
	return dbc.DB(r.db).Create(user).Error
}

func (r *Repository) GetUsersByIDs(dbc dbctx.Context, ids []uuid.UUID) ([]models.User, error) {
	var users []models.User
	if len(ids) == 0 {
		return users, nil
	}
	if err := dbc.DB(r.db).Where("id IN ?", ids).Find(&users).Error; err != nil {
		return nil, err
	}
	return users, nil
}
