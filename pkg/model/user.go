package model

import (
	"strings"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/cayopay/cayopay-identity/pkg/role"
)

// User is a login-capable principal.
type User struct {
	ID           uuid.UUID `gorm:"column:id;primaryKey"`
	ActorID      uuid.UUID `gorm:"column:actor_id;uniqueIndex"`
	Email        string    `gorm:"column:email;uniqueIndex"`
	PasswordHash string    `gorm:"column:password_hash"`
	FirstName    string    `gorm:"column:first_name"`
	LastName     string    `gorm:"column:last_name"`
	Role         role.Role `gorm:"column:role"`
	CreatedAt    time.Time `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt    time.Time `gorm:"column:updated_at;autoUpdateTime"`
}

func (User) TableName() string {
	return "users"
}

func (u *User) BeforeCreate(*gorm.DB) error {
	return assignID(&u.ID)
}

// DisplayName returns "First Last", trimmed.
func (u *User) DisplayName() string {
	return strings.TrimSpace(u.FirstName + " " + u.LastName)
}

// UserResponse is the JSON form of a User. The password hash never leaves the process.
type UserResponse struct {
	ID          string            `json:"id"`
	ActorID     string            `json:"actor_id"`
	Email       string            `json:"email"`
	FirstName   string            `json:"first_name"`
	LastName    string            `json:"last_name"`
	Role        role.Role         `json:"role"`
	Permissions []role.Permission `json:"permissions,omitempty"`
	CreatedAt   string            `json:"created_at"`
}

// ToResponse converts the user to its JSON form.
func (u *User) ToResponse() UserResponse {
	return UserResponse{
		ID:        u.ID.String(),
		ActorID:   u.ActorID.String(),
		Email:     u.Email,
		FirstName: u.FirstName,
		LastName:  u.LastName,
		Role:      u.Role,
		CreatedAt: u.CreatedAt.UTC().Format(time.RFC3339),
	}
}

// NormalizeEmail lower-cases and trims an address so uniqueness is case-insensitive.
func NormalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}
