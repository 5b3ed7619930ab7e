package wallet

import (
	"errors"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"reads-backend/internal/apierr"
	"reads-backend/internal/models"
	"reads-backend/pkg/dbctx"
	"reads-backend/pkg/logger"
)

// Ledger owns the single mutable token balance of each user.
type Ledger struct {
	db  *gorm.DB
	log *logger.Logger
}

func NewLedger(db *gorm.DB, baseLog *logger.Logger) *Ledger {
	return &Ledger{db: db, log: baseLog.With("repo", "WalletLedger")}
}

func (l *Ledger) Open(dbc dbctx.Context, userID uuid.UUID) error {
	return dbc.DB(l.db).Create(&models.Wallet{UserID: userID, TokenBalance: 0}).Error
}

// Credit adds amount to the user's balance and returns the new balance.
// The increment is a single UPDATE ... SET token_balance = token_balance + ?,
// so concurrent credits cannot lose each other. Without a transaction in dbc
// the credit runs in its own.
func (l *Ledger) Credit(dbc dbctx.Context, userID uuid.UUID, amount int64) (int64, error) {
	if amount < 0 {
		return 0, apierr.Validation("credit amount must not be negative")
	}
	if dbc.Tx == nil {
		var balance int64
		err := dbctx.Transaction(dbc.Ctx, l.db, func(txc dbctx.Context) error {
			var err error
			balance, err = l.Credit(txc, userID, amount)
			return err
		})
		return balance, err
	}

	tx := dbc.DB(l.db)
	res := tx.Model(&models.Wallet{}).
		Where("user_id = ?", userID).
		Updates(map[string]interface{}{
			"token_balance": gorm.Expr("token_balance + ?", amount),
			"updated_at":    time.Now().UTC(),
		})
	if res.Error != nil {
		return 0, res.Error
	}
	if res.RowsAffected == 0 {
		return 0, apierr.NotFound("wallet not found")
	}

	var w models.Wallet
	if err := tx.Select("token_balance").First(&w, "user_id = ?", userID).Error; err != nil {
		return 0, err
	}
	return w.TokenBalance, nil
}

func (l *Ledger) Balance(dbc dbctx.Context, userID uuid.UUID) (int64, error) {
	var w models.Wallet
	err := dbc.DB(l.db).First(&w, "user_id = ?", userID).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return 0, apierr.NotFound("wallet not found")
	}
	if err != nil {
		return 0, err
	}
	return w.TokenBalance, nil
}
