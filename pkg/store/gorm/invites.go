package gorm

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/cayopay/cayopay-identity/pkg/errs"
	"github.com/cayopay/cayopay-identity/pkg/model"
	"github.com/cayopay/cayopay-identity/pkg/store"
)

// Ensure InvitesStore implements store.InvitesStore
var _ store.InvitesStore = (*InvitesStore)(nil)

// InvitesStore implements store.InvitesStore using GORM
type InvitesStore struct {
	db *gorm.DB
}

// NewInvitesStore creates a new InvitesStore
func NewInvitesStore(db *gorm.DB) *InvitesStore {
	return &InvitesStore{db: db}
}

// Create stores the invite. TokenHash is derived from Token when empty.
// Both email and token hash are unique; a duplicate is reported as
// ErrAlreadyInvited when another invite holds the email and as
// ErrDuplicateToken otherwise.
func (s *InvitesStore) Create(ctx context.Context, invite *model.Invite) error {
	if invite.TokenHash == "" {
		invite.TokenHash = model.HashToken(invite.Token)
	}
	err := s.db.WithContext(ctx).Create(invite).Error
	if !isDuplicate(err) {
		return errs.Storage(err)
	}

	var n int64
	if cerr := s.db.WithContext(ctx).Model(&model.Invite{}).Where("email = ?", invite.Email).Count(&n).Error; cerr != nil {
		// postgres refuses further statements in an aborted transaction; the email is the likely culprit
		return fmt.Errorf("%w: %s", errs.ErrAlreadyInvited, invite.Email)
	}
	if n > 0 {
		return fmt.Errorf("%w: %s", errs.ErrAlreadyInvited, invite.Email)
	}
	return store.ErrDuplicateToken
}

func (s *InvitesStore) FindByToken(ctx context.Context, token string) (*model.Invite, error) {
	var invite model.Invite
	if err := s.db.WithContext(ctx).Where("token_hash = ?", model.HashToken(token)).First(&invite).Error; err != nil {
		return nil, notFoundOr(err)
	}
	return &invite, nil
}

func (s *InvitesStore) FindByEmail(ctx context.Context, email string) (*model.Invite, error) {
	var invite model.Invite
	if err := s.db.WithContext(ctx).Where("email = ?", email).First(&invite).Error; err != nil {
		return nil, notFoundOr(err)
	}
	return &invite, nil
}

func (s *InvitesStore) FindByID(ctx context.Context, id uuid.UUID) (*model.Invite, error) {
	var invite model.Invite
	if err := s.db.WithContext(ctx).Where("id = ?", id).First(&invite).Error; err != nil {
		return nil, notFoundOr(err)
	}
	return &invite, nil
}

func (s *InvitesStore) Delete(ctx context.Context, id uuid.UUID) (bool, error) {
	tx := s.db.WithContext(ctx).Where("id = ?", id).Delete(&model.Invite{})
	if tx.Error != nil {
		return false, errs.Storage(tx.Error)
	}
	return tx.RowsAffected > 0, nil
}

func (s *InvitesStore) UpdateStatus(ctx context.Context, id uuid.UUID, status model.InviteStatus) error {
	tx := s.db.WithContext(ctx).Model(&model.Invite{}).
		Where("id = ? AND status = ?", id, model.InvitePending).
		Update("status", status)
	if tx.Error != nil {
		return errs.Storage(tx.Error)
	}
	if tx.RowsAffected == 0 {
		return errs.ErrNotFound
	}
	return nil
}

func (s *InvitesStore) List(ctx context.Context) ([]model.Invite, error) {
	var invites []model.Invite
	if err := s.db.WithContext(ctx).Order("created_at DESC").Find(&invites).Error; err != nil {
		return nil, errs.Storage(err)
	}
	return invites, nil
}


func (s *InvitesStore) DeleteByInviter(ctx context.Context, userID uuid.UUID) (int64, error) {
	tx := s.db.WithContext(ctx).Where("invited_by = ?", userID).Delete(&model.Invite{})
	if tx.Error != nil {
		return 0, errs.Storage(tx.Error)
	}
	return tx.RowsAffected, nil
}
