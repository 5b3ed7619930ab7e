package wallet

import (
	"github.com/google/uuid"
	"gorm.io/gorm"

	"reads-backend/internal/models"
	"reads-backend/pkg/dbctx"
	"reads-backend/pkg/logger"
)

type RewardRepository struct {
	db  *gorm.DB
	log *logger.Logger
}

func NewRewardRepository(db *gorm.DB, baseLog *logger.Logger) *RewardRepository {
	return &RewardRepository{db: db, log: baseLog.With("repo", "RewardRepository")}
}

func (r *RewardRepository) Append(dbc dbctx.Context, reward *models.Reward) error {
	return dbc.DB(r.db).Create(reward).Error
}

func (r *RewardRepository) History(dbc dbctx.Context, userID uuid.UUID) ([]models.Reward, error) {
	var rewards []models.Reward
	err := dbc.DB(r.db).
		Where("user_id = ?", userID).
		Order("created_at DESC").
		Find(&rewards).Error
	if err != nil {
		return nil, err
	}
	return rewards, nil
}

func (r *RewardRepository) TotalEarned(dbc dbctx.Context, userID uuid.UUID) (int64, error) {
	var total int64
	err := dbc.DB(r.db).
		Model(&models.Reward{}).
		Where("user_id = ?", userID).
		Select("CAST(COALESCE(SUM(tokens_earned), 0) AS BIGINT)").
		Scan(&total).Error
	return total, err
}

type EarnerTotal struct {
	UserID uuid.UUID
	Total  int64
}

// TopEarners sums rewards per user, highest first. A limit <= 0 returns everyone.
func (r *RewardRepository) TopEarners(dbc dbctx.Context, limit int) ([]EarnerTotal, error) {
	var rows []EarnerTotal
	q := dbc.DB(r.db).
		Model(&models.Reward{}).
		Select("user_id, CAST(SUM(tokens_earned) AS BIGINT) AS total").
		Group("user_id").
		Order("total DESC").
		Order("user_id ASC")
	if limit > 0 {
		q = q.Limit(limit)
	}
	if err := q.Scan(&rows).Error; err != nil {
		r.log.Error("top earners query failed", "error", err)
		return nil, err
	}
	return rows, nil
}
