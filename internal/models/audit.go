package models

import (
	"time"

	"github.com/google/uuid"
)

// AuditRecord captures a security relevant action. Append only: records
// are never updated or deleted by the application.
type AuditRecord struct {
	ID         uuid.UUID
	CreatedAt  time.Time
	ActorID    *uuid.UUID // nil for anonymous actions (failed logins etc)
	Action     string
	EntityType string
	EntityID   *uuid.UUID
	Metadata   map[string]any
	SourceIP   string
}

// Audit actions recorded by the auth and entry services
const (
	AuditUserRegistered  = "user.registered"
	AuditUserLogin       = "user.login"
	AuditUserLoginFailed = "user.login_failed"
	AuditFederatedLogin  = "user.federated_login"
	AuditTokenRefreshed  = "token.refreshed"
	AuditTokenRevoked    = "token.revoked"
	AuditUserDeleted     = "user.deleted"
	AuditEntryCreated    = "entry.created"
	AuditEntryUpdated    = "entry.updated"
	AuditEntryDeleted    = "entry.deleted"
)
