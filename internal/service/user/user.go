package user

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"

	"github.com/Alekaz94/catholic-daily-companion/internal/models"
	"github.com/Alekaz94/catholic-daily-companion/internal/repository"
	"github.com/Alekaz94/catholic-daily-companion/internal/service/authz"
)

// UserService covers the administrative user operations
type UserService struct {
	storage repository.Storage
}

func NewService(storage repository.Storage) (*UserService, error) {
	if storage == nil {
		return nil, errors.New("storage must not be nil")
	}
	return &UserService{storage: storage}, nil
}

// List returns every user. Admin only
func (s *UserService) List(ctx context.Context, actor models.User) ([]models.User, error) {
	if err := authz.RequireRole(actor, models.RoleAdmin); err != nil {
		return nil, err
	}
	return s.storage.User().ListUsers(ctx)
}

// Delete removes a user and revokes their live refresh token in one
// transaction: a deleted identity must not be able to refresh
func (s *UserService) Delete(ctx context.Context, actor models.User, userID uuid.UUID) error {
	if err := authz.RequireRole(actor, models.RoleAdmin); err != nil {
		return err
	}

	err := s.storage.InTx(ctx, func(tx repository.Storage) error {
		if err := tx.Refresh().DeleteByUser(ctx, userID); err != nil {
			return err
		}
		return tx.User().DeleteUser(ctx, userID)
	})
	if err != nil {
		return fmt.Errorf("can't delete user. Err: %w", err)
	}

	return nil
}
