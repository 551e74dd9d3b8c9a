package model

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/cayopay/cayopay-identity/pkg/role"
)

// InviteStatus is the stored state of an invitation. Expiry is not a status:
// expired invitations are deleted when they are next read.
type InviteStatus string

const (
	InvitePending  InviteStatus = "pending"
	InviteAccepted InviteStatus = "accepted"
	InviteDeclined InviteStatus = "declined"
	InviteRevoked  InviteStatus = "revoked"
)

// Invite is an onboarding offer sent to an email address.
type Invite struct {
	ID        uuid.UUID    `gorm:"column:id;primaryKey"`
	InvitedBy uuid.UUID    `gorm:"column:invited_by;index"`
	Email     string       `gorm:"column:email;uniqueIndex"`
	TokenHash string       `gorm:"column:token_hash;uniqueIndex"`
	Role      role.Role    `gorm:"column:role"`
	Status    InviteStatus `gorm:"column:status"`
	CreatedAt time.Time    `gorm:"column:created_at"`
	ExpiresAt time.Time    `gorm:"column:expires_at"`

	// Transient field for the plaintext token (not stored)
	Token string `gorm:"-"`
}

func (Invite) TableName() string {
	return "invites"
}

func (i *Invite) BeforeCreate(*gorm.DB) error {
	return assignID(&i.ID)
}

// IsExpired reports whether the invite is past expiry at now.
func (i *Invite) IsExpired(now time.Time) bool {
	return !now.Before(i.ExpiresAt)
}

// IsPending reports whether the invite can still be accepted or declined.
func (i *Invite) IsPending() bool {
	return i.Status == InvitePending
}

// IsActive reports whether the invite blocks a new invitation to the same address.
func (i *Invite) IsActive(now time.Time) bool {
	return i.IsPending() && !i.IsExpired(now)
}

// InviteResponse is the JSON form of an Invite.
type InviteResponse struct {
	ID        string       `json:"id"`
	InvitedBy string       `json:"invited_by"`
	Email     string       `json:"email"`
	Role      role.Role    `json:"role"`
	Status    InviteStatus `json:"status"`
	CreatedAt string       `json:"created_at"`
	ExpiresAt string       `json:"expires_at"`
}

// ToResponse converts the invite to its JSON form. The token is not included.
func (i *Invite) ToResponse() InviteResponse {
	return InviteResponse{
		ID:        i.ID.String(),
		InvitedBy: i.InvitedBy.String(),
		Email:     i.Email,
		Role:      i.Role,
		Status:    i.Status,
		CreatedAt: i.CreatedAt.UTC().Format(time.RFC3339),
		ExpiresAt: i.ExpiresAt.UTC().Format(time.RFC3339),
	}
}
