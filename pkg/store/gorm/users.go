package gorm

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/cayopay/cayopay-identity/pkg/errs"
	"github.com/cayopay/cayopay-identity/pkg/model"
	"github.com/cayopay/cayopay-identity/pkg/role"
	"github.com/cayopay/cayopay-identity/pkg/store"
)

// Ensure UsersStore implements store.UsersStore
var _ store.UsersStore = (*UsersStore)(nil)

// UsersStore implements store.UsersStore using GORM
type UsersStore struct {
	db *gorm.DB
}

// NewUsersStore creates a new UsersStore
func NewUsersStore(db *gorm.DB) *UsersStore {
	return &UsersStore{db: db}
}

func (s *UsersStore) Create(ctx context.Context, user *model.User) error {
	err := s.db.WithContext(ctx).Create(user).Error
	if isDuplicate(err) {
		return fmt.Errorf("%w: %s", errs.ErrAlreadyExists, user.Email)
	}
	return errs.Storage(err)
}

func (s *UsersStore) FindByEmail(ctx context.Context, email string) (*model.User, error) {
	var user model.User
	if err := s.db.WithContext(ctx).Where("email = ?", email).First(&user).Error; err != nil {
		return nil, notFoundOr(err)
	}
	return &user, nil
}

func (s *UsersStore) FindByID(ctx context.Context, id uuid.UUID) (*model.User, error) {
	var user model.User
	if err := s.db.WithContext(ctx).Where("id = ?", id).First(&user).Error; err != nil {
		return nil, notFoundOr(err)
	}
	return &user, nil
}

func (s *UsersStore) List(ctx context.Context) ([]model.User, error) {
	var users []model.User
	if err := s.db.WithContext(ctx).Order("created_at, id").Find(&users).Error; err != nil {
		return nil, errs.Storage(err)
	}
	return users, nil
}

func (s *UsersStore) UpdateRole(ctx context.Context, id uuid.UUID, r role.Role) error {
	tx := s.db.WithContext(ctx).Model(&model.User{}).Where("id = ?", id).Update("role", r)
	if tx.Error != nil {
		return errs.Storage(tx.Error)
	}
	if tx.RowsAffected == 0 {
		return errs.ErrNotFound
	}
	return nil
}

// LockByRole takes row locks in ID order. SQLite has no row locks; its
// single writer serializes the transaction instead.
func (s *UsersStore) LockByRole(ctx context.Context, r role.Role) ([]uuid.UUID, error) {
	var ids []uuid.UUID
	err := s.db.WithContext(ctx).
		Model(&model.User{}).
		Clauses(clause.Locking{Strength: "UPDATE"}).
		Where("role = ?", r).
		Order("id").
		Pluck("id", &ids).Error
	if err != nil {
		return nil, errs.Storage(err)
	}
	return ids, nil
}

func (s *UsersStore) FindByActorID(ctx context.Context, actorID uuid.UUID) (*model.User, error) {
	var user model.User
	if err := s.db.WithContext(ctx).Where("actor_id = ?", actorID).First(&user).Error; err != nil {
		return nil, notFoundOr(err)
	}
	return &user, nil
}

func (s *UsersStore) Delete(ctx context.Context, id uuid.UUID) (bool, error) {
	tx := s.db.WithContext(ctx).Where("id = ?", id).Delete(&model.User{})
	if tx.Error != nil {
		return false, errs.Storage(tx.Error)
	}
	return tx.RowsAffected > 0, nil
}
