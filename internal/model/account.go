package model

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Account represents a registered user who can author and fill forms.
type Account struct {
	ID           uuid.UUID `json:"id" gorm:"type:char(36);primaryKey"`
	Username     string    `json:"username" gorm:"size:255;not null"`
	Email        string    `json:"email" gorm:"uniqueIndex;size:255;not null"` // stored lower-cased
	PasswordHash string    `json:"-" gorm:"size:255;not null"`                 // Never expose in JSON
	CreatedAt    time.Time `json:"created_at"`
}

// BeforeCreate sets UUID before creating the record.
func (a *Account) BeforeCreate(tx *gorm.DB) error {
	if a.ID == uuid.Nil {
		a.ID = uuid.New()
	}
	return nil
}
