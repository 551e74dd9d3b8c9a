package model

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Actor is the identity anchor joining a principal to its other records.
type Actor struct {
	ID        uuid.UUID `gorm:"column:id;primaryKey"`
	CreatedAt time.Time `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt time.Time `gorm:"column:updated_at;autoUpdateTime"`
}

func (Actor) TableName() string {
	return "actors"
}

func (a *Actor) BeforeCreate(*gorm.DB) error {
	return assignID(&a.ID)
}

// ActorDetails is an actor together with the principal anchored at it.
// User is nil for actors without a login.
type ActorDetails struct {
	Actor Actor
	User  *User
}

// ActorResponse is the JSON form of ActorDetails.
type ActorResponse struct {
	ID        string        `json:"id"`
	CreatedAt string        `json:"created_at"`
	User      *UserResponse `json:"user,omitempty"`
}

func (d ActorDetails) ToResponse() ActorResponse {
	resp := ActorResponse{
		ID:        d.Actor.ID.String(),
		CreatedAt: d.Actor.CreatedAt.UTC().Format(time.RFC3339),
	}
	if d.User != nil {
		u := d.User.ToResponse()
		resp.User = &u
	}
	return resp
}
