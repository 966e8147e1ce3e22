package models

import (
	"time"

	"github.com/google/uuid"
)

// RefreshToken is the persisted long-lived credential.
// At most one row exists per user: rotation replaces the previous one.
type RefreshToken struct {
	ID        uuid.UUID
	UserID    uuid.UUID
	Token     string
	CreatedAt time.Time
	ExpiresAt time.Time
}

type IssuedToken struct {
	Value     string
	ExpiresAt time.Time
}

// Token pair issued on register, login and refresh
type TokenPair struct {
	Access  IssuedToken
	Refresh IssuedToken
}
