package gorm

import (
	"context"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/cayopay/cayopay-identity/pkg/errs"
	"github.com/cayopay/cayopay-identity/pkg/model"
	"github.com/cayopay/cayopay-identity/pkg/store"
)

// Ensure SessionsStore implements store.SessionsStore
var _ store.SessionsStore = (*SessionsStore)(nil)

// SessionsStore implements store.SessionsStore using GORM
type SessionsStore struct {
	db *gorm.DB
}

// NewSessionsStore creates a new SessionsStore
func NewSessionsStore(db *gorm.DB) *SessionsStore {
	return &SessionsStore{db: db}
}

// Create stores the session. TokenHash is derived from Token when empty.
func (s *SessionsStore) Create(ctx context.Context, session *model.Session) error {
	if session.TokenHash == "" {
		session.TokenHash = model.HashToken(session.Token)
	}
	err := s.db.WithContext(ctx).Create(session).Error
	if isDuplicate(err) {
		return store.ErrDuplicateToken
	}
	return errs.Storage(err)
}

func (s *SessionsStore) FindByToken(ctx context.Context, token string) (*model.Session, error) {
	var session model.Session
	if err := s.db.WithContext(ctx).Where("token_hash = ?", model.HashToken(token)).First(&session).Error; err != nil {
		return nil, notFoundOr(err)
	}
	return &session, nil
}

func (s *SessionsStore) Delete(ctx context.Context, id uuid.UUID) error {
	return errs.Storage(s.db.WithContext(ctx).Where("id = ?", id).Delete(&model.Session{}).Error)
}

func (s *SessionsStore) DeleteByToken(ctx context.Context, token string) error {
	return errs.Storage(s.db.WithContext(ctx).Where("token_hash = ?", model.HashToken(token)).Delete(&model.Session{}).Error)
}

func (s *SessionsStore) ListByUser(ctx context.Context, userID uuid.UUID) ([]model.Session, error) {
	var sessions []model.Session
	if err := s.db.WithContext(ctx).Where("user_id = ?", userID).Order("issued_at DESC").Find(&sessions).Error; err != nil {
		return nil, errs.Storage(err)
	}
	return sessions, nil
}

func (s *SessionsStore) DeleteByUser(ctx context.Context, userID uuid.UUID) (int64, error) {
	tx := s.db.WithContext(ctx).Where("user_id = ?", userID).Delete(&model.Session{})
	if tx.Error != nil {
		return 0, errs.Storage(tx.Error)
	}
	return tx.RowsAffected, nil
}

func (s *SessionsStore) DeleteExpired(ctx context.Context, now time.Time) (int64, error) {
	tx := s.db.WithContext(ctx).Where("expires_at <= ?", now).Delete(&model.Session{})
	if tx.Error != nil {
		return 0, errs.Storage(tx.Error)
	}
	return tx.RowsAffected, nil
}
