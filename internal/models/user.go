package models

import (
	"strings"
	"time"

	"github.com/google/uuid"
)

// Role is a closed set. Authorization code switches over it exhaustively,
// so adding a variant requires revisiting every switch.
type Role string

const (
	RoleAdmin Role = "ADMIN"
	RoleUser  Role = "USER"
)

func (r Role) Valid() bool {
	switch r {
	case RoleAdmin, RoleUser:
		return true
	}
	return false
}

type User struct {
	ID        uuid.UUID
	CreatedAt time.Time
	UpdatedAt time.Time
	Email     string
	Name      string
	Role      Role

	// Empty for federated-only accounts: such users can't login with password
	HashedPassword string
}

// NormalizeEmail brings an email to its canonical form used for the
// uniqueness constraint
func NormalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}
