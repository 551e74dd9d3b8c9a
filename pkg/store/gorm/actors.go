package gorm

import (
	"context"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/cayopay/cayopay-identity/pkg/errs"
	"github.com/cayopay/cayopay-identity/pkg/model"
	"github.com/cayopay/cayopay-identity/pkg/store"
)

// Ensure ActorsStore implements store.ActorsStore
var _ store.ActorsStore = (*ActorsStore)(nil)

// ActorsStore implements store.ActorsStore using GORM
type ActorsStore struct {
	db *gorm.DB
}

// NewActorsStore creates a new ActorsStore
func NewActorsStore(db *gorm.DB) *ActorsStore {
	return &ActorsStore{db: db}
}

func (s *ActorsStore) Create(ctx context.Context, actor *model.Actor) error {
	return errs.Storage(s.db.WithContext(ctx).Create(actor).Error)
}

func (s *ActorsStore) Count(ctx context.Context) (int64, error) {
	var n int64
	if err := s.db.WithContext(ctx).Model(&model.Actor{}).Count(&n).Error; err != nil {
		return 0, errs.Storage(err)
	}
	return n, nil
}

func (s *ActorsStore) List(ctx context.Context) ([]model.Actor, error) {
	var actors []model.Actor
	if err := s.db.WithContext(ctx).Order("created_at, id").Find(&actors).Error; err != nil {
		return nil, errs.Storage(err)
	}
	return actors, nil
}

func (s *ActorsStore) FindByID(ctx context.Context, id uuid.UUID) (*model.Actor, error) {
	var actor model.Actor
	if err := s.db.WithContext(ctx).Where("id = ?", id).First(&actor).Error; err != nil {
		return nil, notFoundOr(err)
	}
	return &actor, nil
}

func (s *ActorsStore) Delete(ctx context.Context, id uuid.UUID) (bool, error) {
	tx := s.db.WithContext(ctx).Where("id = ?", id).Delete(&model.Actor{})
	if tx.Error != nil {
		return false, errs.Storage(tx.Error)
	}
	return tx.RowsAffected > 0, nil
}
