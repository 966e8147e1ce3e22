package entry

import (
	"context"
	"errors"

	"github.com/google/uuid"

	"github.com/Alekaz94/catholic-daily-companion/internal/models"
	"github.com/Alekaz94/catholic-daily-companion/internal/repository"
	"github.com/Alekaz94/catholic-daily-companion/internal/service/authz"
)

// EntryService is the journal entry CRUD guarded by the authorization
// policy. Every read or mutation of a concrete entry checks admin-or-owner
// before touching the row
type EntryService struct {
	storage repository.Storage
}

func NewService(storage repository.Storage) (*EntryService, error) {
	if storage == nil {
		return nil, errors.New("storage must not be nil")
	}
	return &EntryService{storage: storage}, nil
}

func (s *EntryService) Create(ctx context.Context, actor models.User, title string, content string) (models.JournalEntry, error) {
	return s.storage.Entry().CreateEntry(ctx, models.JournalEntry{
		ID:      uuid.New(),
		UserID:  actor.ID,
		Title:   title,
		Content: content,
	})
}

// List returns the actor's own entries. Admins see everything
func (s *EntryService) List(ctx context.Context, actor models.User) ([]models.JournalEntry, error) {
	if actor.Role == models.RoleAdmin {
		return s.storage.Entry().ListEntries(ctx)
	}
	return s.storage.Entry().ListEntriesByUser(ctx, actor.ID)
}

func (s *EntryService) Get(ctx context.Context, actor models.User, entryID uuid.UUID) (models.JournalEntry, error) {
	entry, err := s.storage.Entry().GetEntryByID(ctx, entryID)
	if err != nil {
		return entry, err
	}

	if err := authz.CanAccess(actor, entry.UserID); err != nil {
		return models.JournalEntry{}, err
	}

	return entry, nil
}

func (s *EntryService) Update(ctx context.Context, actor models.User, entryID uuid.UUID, arg repository.UpdateEntryParams) (models.JournalEntry, error) {
	entry, err := s.storage.Entry().GetEntryByID(ctx, entryID)
	if err != nil {
		return entry, err
	}

	if err := authz.CanAccess(actor, entry.UserID); err != nil {
		return models.JournalEntry{}, err
	}

	return s.storage.Entry().UpdateEntry(ctx, entryID, arg)
}

func (s *EntryService) Delete(ctx context.Context, actor models.User, entryID uuid.UUID) error {
	entry, err := s.storage.Entry().GetEntryByID(ctx, entryID)
	if err != nil {
		return err
	}

	if err := authz.CanAccess(actor, entry.UserID); err != nil {
		return err
	}

	return s.storage.Entry().DeleteEntry(ctx, entryID)
}
