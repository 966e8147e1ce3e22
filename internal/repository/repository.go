package repository

import (
	"context"

	"github.com/google/uuid"

	"github.com/Alekaz94/catholic-daily-companion/internal/models"
)

type CreateUserParams struct {
	Email string
	Name  string
	Role  models.Role

	// May be empty: federated-only accounts have no local password
	HashedPassword string
}

// User repository interface
type UserRepo interface {
	// Create user
	// If user with the same email exists must return apperrors.ErrUserAlreadyExists
	CreateUser(ctx context.Context, arg CreateUserParams) (models.User, error)

	// Get user by id or normalized email
	// If user not found must return apperrors.ErrUserNotFound
	GetUserByID(ctx context.Context, userID uuid.UUID) (models.User, error)
	GetUserByEmail(ctx context.Context, email string) (models.User, error)

	ListUsers(ctx context.Context) ([]models.User, error)

	// Delete user. Deleting a missing user is not an error
	DeleteUser(ctx context.Context, userID uuid.UUID) error
}

// RefreshToken repository interface
// The store keeps at most one active token per user
type RefreshTokenRepo interface {
	// Insert token for the user or replace the existing one.
	// Concurrent rotations for the same user are serialized by the store,
	// the last writer wins and the earlier token becomes unusable
	Upsert(ctx context.Context, token models.RefreshToken) (models.RefreshToken, error)

	// Lookup by exact opaque value
	// If the token is not in the store must return apperrors.ErrRefreshTokenNotFound
	Get(ctx context.Context, tokenString string) (models.RefreshToken, error)

	// Idempotent deletes: removing a missing token is not an error
	DeleteByValue(ctx context.Context, tokenString string) error
	DeleteByUser(ctx context.Context, userID uuid.UUID) error
}

type UpdateEntryParams struct {
	Title   *string
	Content *string
}

// Journal entry repository interface
type EntryRepo interface {
	CreateEntry(ctx context.Context, entry models.JournalEntry) (models.JournalEntry, error)

	// If entry not found must return apperrors.ErrEntryNotFound
	GetEntryByID(ctx context.Context, entryID uuid.UUID) (models.JournalEntry, error)

	ListEntriesByUser(ctx context.Context, userID uuid.UUID) ([]models.JournalEntry, error)
	ListEntries(ctx context.Context) ([]models.JournalEntry, error)

	UpdateEntry(ctx context.Context, entryID uuid.UUID, arg UpdateEntryParams) (models.JournalEntry, error)
	DeleteEntry(ctx context.Context, entryID uuid.UUID) error
}

// Audit repository interface. Append only
type AuditRepo interface {
	Record(ctx context.Context, record models.AuditRecord) (models.AuditRecord, error)
	ListRecords(ctx context.Context, limit int) ([]models.AuditRecord, error)
}

// Storage aggregates all repositories over one connection or transaction
type Storage interface {
	User() UserRepo
	Refresh() RefreshTokenRepo
	Entry() EntryRepo
	Audit() AuditRepo

	// Run fn inside a database transaction
	// Rollback everything if fn returns an error
	InTx(ctx context.Context, fn func(Storage) error) error
}
