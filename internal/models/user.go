// backend/internal/models/user.go
package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

type User struct {
	ID           uuid.UUID `json:"id" gorm:"type:uuid;primaryKey"`
	Name         string    `json:"name" gorm:"not null"`
	Email        string    `json:"email" gorm:"uniqueIndex;not null"`
	PasswordHash string    `json:"-" gorm:"not null"`
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`
}

func (u *User) BeforeCreate(tx *gorm.DB) error {
	if u.ID == uuid.Nil {
		u.ID = uuid.New()
	}
	return nil
}

// Wallet is keyed by its owner; exactly one per user, created at signup.
type Wallet struct {
	UserID       uuid.UUID `json:"user_id" gorm:"type:uuid;primaryKey"`
	TokenBalance int64     `json:"token_balance" gorm:"not null;default:0;check:token_balance >= 0"`
	UpdatedAt    time.Time `json:"updated_at"`
}
