package model

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Wallet is the account opened for every new principal. Balance is in minor
// units and starts at zero; ledger movements are handled elsewhere.
type Wallet struct {
	ID             uuid.UUID `gorm:"column:id;primaryKey"`
	OwnerActorID   uuid.UUID `gorm:"column:owner_actor_id;index"`
	Label          string    `gorm:"column:label"`
	Balance        int64     `gorm:"column:balance"`
	AllowOverdraft bool      `gorm:"column:allow_overdraft"`
	CreatedAt      time.Time `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt      time.Time `gorm:"column:updated_at;autoUpdateTime"`
}

func (Wallet) TableName() string {
	return "wallets"
}

func (w *Wallet) BeforeCreate(*gorm.DB) error {
	return assignID(&w.ID)
}
