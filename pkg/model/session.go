package model

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Session is a live bearer handle for a user. Rows are never updated: they
// are created at login and deleted on logout or after expiry.
type Session struct {
	ID        uuid.UUID `gorm:"column:id;primaryKey"`
	UserID    uuid.UUID `gorm:"column:user_id;index"`
	TokenHash string    `gorm:"column:token_hash;uniqueIndex"`
	IssuedAt  time.Time `gorm:"column:issued_at"`
	ExpiresAt time.Time `gorm:"column:expires_at"`
	UserAgent *string   `gorm:"column:user_agent"`
	IPAddress *string   `gorm:"column:ip_address"`

	// Transient field for the plaintext token (not stored)
	Token string `gorm:"-"`
}

func (Session) TableName() string {
	return "sessions"
}

func (s *Session) BeforeCreate(*gorm.DB) error {
	return assignID(&s.ID)
}

// Duration is the lifetime the session was issued with.
func (s *Session) Duration() time.Duration {
	return s.ExpiresAt.Sub(s.IssuedAt)
}

// IsExpired reports whether the session is past expiry at now. A session is
// valid strictly before ExpiresAt.
func (s *Session) IsExpired(now time.Time) bool {
	return !now.Before(s.ExpiresAt)
}

// SessionResponse is the JSON form of a Session.
type SessionResponse struct {
	ID        string  `json:"id"`
	IssuedAt  string  `json:"issued_at"`
	ExpiresAt string  `json:"expires_at"`
	UserAgent *string `json:"user_agent,omitempty"`
	IPAddress *string `json:"ip_address,omitempty"`
}

// ToResponse converts the session to its JSON form. The token is not included.
func (s *Session) ToResponse() SessionResponse {
	return SessionResponse{
		ID:        s.ID.String(),
		IssuedAt:  s.IssuedAt.UTC().Format(time.RFC3339),
		ExpiresAt: s.ExpiresAt.UTC().Format(time.RFC3339),
		UserAgent: s.UserAgent,
		IPAddress: s.IPAddress,
	}
}
