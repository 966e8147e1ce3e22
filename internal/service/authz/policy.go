// Package authz holds the authorization decisions. Every decision is a
// pure predicate over the caller's current role and the resource owner:
// nothing is cached, nothing is persisted.
package authz

import (
	"fmt"

	"github.com/google/uuid"

	"github.com/Alekaz94/catholic-daily-companion/internal/apperrors"
	"github.com/Alekaz94/catholic-daily-companion/internal/models"
)

// CanAccess permits when the actor is an admin or owns the resource.
// The switch is exhaustive over the closed Role set: unknown roles deny
func CanAccess(actor models.User, ownerID uuid.UUID) error {
	switch actor.Role {
	case models.RoleAdmin:
		return nil
	case models.RoleUser:
		if actor.ID == ownerID {
			return nil
		}
		return fmt.Errorf("%w: not the resource owner", apperrors.ErrAccessDenied)
	default:
		return fmt.Errorf("%w: unknown role", apperrors.ErrAccessDenied)
	}
}

// RequireRole permits when the actor's role is in the allowed set.
// Used for operations with no ownership concept, like listing all users
func RequireRole(actor models.User, allowed ...models.Role) error {
	for _, role := range allowed {
		if actor.Role == role {
			return nil
		}
	}
	return fmt.Errorf("%w: role %q is not allowed", apperrors.ErrAccessDenied, actor.Role)
}
