package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/Alekaz94/catholic-daily-companion/internal/apperrors"
	"github.com/Alekaz94/catholic-daily-companion/internal/models"
	"github.com/Alekaz94/catholic-daily-companion/internal/repository"
)

type EntryRepo struct {
	DB DBTX
}

const createEntry = `-- name: CreateEntry
INSERT INTO journal_entries (id, user_id, title, content)
VALUES ($1, $2, $3, $4)
RETURNING id, user_id, created_at, updated_at, title, content
`

func (r *EntryRepo) CreateEntry(ctx context.Context, entry models.JournalEntry) (models.JournalEntry, error) {
	rows, _ := r.DB.Query(ctx, createEntry, entry.ID, entry.UserID, entry.Title, entry.Content)
	saved, err := pgx.CollectOneRow(rows, rowToEntry)
	if err != nil {
		return saved, fmt.Errorf("db error: %w", err)
	}
	return saved, nil
}

const getEntryByID = `-- name: GetEntryByID
SELECT id, user_id, created_at, updated_at, title, content
FROM journal_entries
WHERE id = $1
`

func (r *EntryRepo) GetEntryByID(ctx context.Context, entryID uuid.UUID) (models.JournalEntry, error) {
	rows, _ := r.DB.Query(ctx, getEntryByID, entryID)
	entry, err := pgx.CollectOneRow(rows, rowToEntry)

	switch {
	case err == nil:
		return entry, nil
	case errors.Is(err, pgx.ErrNoRows):
		return entry, apperrors.ErrEntryNotFound
	default:
		return entry, fmt.Errorf("db error: %w", err)
	}
}

const listEntriesByUser = `-- name: ListEntriesByUser
SELECT id, user_id, created_at, updated_at, title, content
FROM journal_entries
WHERE user_id = $1
ORDER BY created_at DESC
`

func (r *EntryRepo) ListEntriesByUser(ctx context.Context, userID uuid.UUID) ([]models.JournalEntry, error) {
	rows, _ := r.DB.Query(ctx, listEntriesByUser, userID)
	entries, err := pgx.CollectRows(rows, rowToEntry)
	if err != nil {
		return nil, fmt.Errorf("db error: %w", err)
	}
	return entries, nil
}

const listEntries = `-- name: ListEntries
SELECT id, user_id, created_at, updated_at, title, content
FROM journal_entries
ORDER BY created_at DESC
`

func (r *EntryRepo) ListEntries(ctx context.Context) ([]models.JournalEntry, error) {
	rows, _ := r.DB.Query(ctx, listEntries)
	entries, err := pgx.CollectRows(rows, rowToEntry)
	if err != nil {
		return nil, fmt.Errorf("db error: %w", err)
	}
	return entries, nil
}

const updateEntry = `-- name: UpdateEntry
UPDATE journal_entries
SET title = COALESCE($2, title),
    content = COALESCE($3, content),
    updated_at = now()
WHERE id = $1
RETURNING id, user_id, created_at, updated_at, title, content
`

func (r *EntryRepo) UpdateEntry(ctx context.Context, entryID uuid.UUID, arg repository.UpdateEntryParams) (models.JournalEntry, error) {
	rows, _ := r.DB.Query(ctx, updateEntry, entryID, arg.Title, arg.Content)
	entry, err := pgx.CollectOneRow(rows, rowToEntry)

	switch {
	case err == nil:
		return entry, nil
	case errors.Is(err, pgx.ErrNoRows):
		return entry, apperrors.ErrEntryNotFound
	default:
		return entry, fmt.Errorf("db error: %w", err)
	}
}

const deleteEntry = `-- name: DeleteEntry
DELETE FROM journal_entries
WHERE id = $1
`

func (r *EntryRepo) DeleteEntry(ctx context.Context, entryID uuid.UUID) error {
	_, err := r.DB.Exec(ctx, deleteEntry, entryID)
	if err != nil {
		return fmt.Errorf("db error: %w", err)
	}
	return nil
}

func rowToEntry(row pgx.CollectableRow) (models.JournalEntry, error) {
	var e models.JournalEntry
	err := row.Scan(&e.ID, &e.UserID, &e.CreatedAt, &e.UpdatedAt, &e.Title, &e.Content)
	return e, err
}
