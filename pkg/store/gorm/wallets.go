package gorm

import (
	"context"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/cayopay/cayopay-identity/pkg/errs"
	"github.com/cayopay/cayopay-identity/pkg/model"
	"github.com/cayopay/cayopay-identity/pkg/store"
)

// Ensure WalletsStore implements store.WalletsStore
var _ store.WalletsStore = (*WalletsStore)(nil)

// WalletsStore implements store.WalletsStore using GORM
type WalletsStore struct {
	db *gorm.DB
}

// NewWalletsStore creates a new WalletsStore
func NewWalletsStore(db *gorm.DB) *WalletsStore {
	return &WalletsStore{db: db}
}

func (s *WalletsStore) Create(ctx context.Context, wallet *model.Wallet) error {
	return errs.Storage(s.db.WithContext(ctx).Create(wallet).Error)
}

func (s *WalletsStore) ListByOwner(ctx context.Context, actorID uuid.UUID) ([]model.Wallet, error) {
	var wallets []model.Wallet
	if err := s.db.WithContext(ctx).Where("owner_actor_id = ?", actorID).Order("created_at").Find(&wallets).Error; err != nil {
		return nil, errs.Storage(err)
	}
	return wallets, nil
}

func (s *WalletsStore) DeleteByOwner(ctx context.Context, actorID uuid.UUID) (int64, error) {
	tx := s.db.WithContext(ctx).Where("owner_actor_id = ?", actorID).Delete(&model.Wallet{})
	if tx.Error != nil {
		return 0, errs.Storage(tx.Error)
	}
	return tx.RowsAffected, nil
}
