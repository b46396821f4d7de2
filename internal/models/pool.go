package models

import (
	"time"

	"github.com/google/uuid"
)

// Pool is a reel: a set of camera angles whose clips are browsed together.
type Pool struct {
	ID        uuid.UUID `json:"id"`
	Name      string    `json:"name"`
	Venue     string    `json:"venue,omitempty"`
	IsPublic  bool      `json:"is_public"`
	OwnerID   uuid.UUID `json:"owner_id"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// Angle is a fixed camera installed for a pool.
type Angle struct {
	ID        int64     `json:"id"`
	PoolID    uuid.UUID `json:"pool_id"`
	Label     string    `json:"label"`
	CreatedAt time.Time `json:"created_at"`
}

// PoolMember grants a user access to a private pool.
type PoolMember struct {
	PoolID  uuid.UUID `json:"pool_id"`
	UserID  uuid.UUID `json:"user_id"`
	AddedAt time.Time `json:"added_at"`
}
