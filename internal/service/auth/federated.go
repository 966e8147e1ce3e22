package auth

import (
	"context"
	"errors"
	"fmt"

	"github.com/Alekaz94/catholic-daily-companion/internal/apperrors"
	"github.com/Alekaz94/catholic-daily-companion/internal/models"
	"github.com/Alekaz94/catholic-daily-companion/internal/repository"
)

// Display name used when the provider sends none
const defaultDisplayName = "Companion user"

// LoginFederated verifies the assertion, reconciles it with the local
// user record and issues a token pair
func (s *AuthService) LoginFederated(ctx context.Context, rawToken string) (models.User, models.TokenPair, error) {
	var pair models.TokenPair

	if s.verifier == nil {
		return models.User{}, pair, fmt.Errorf("%w: federated login is not configured", apperrors.ErrFederatedAuthInvalid)
	}

	claims, err := s.verifier.VerifyAssertion(ctx, rawToken)
	if err != nil {
		return models.User{}, pair, err
	}

	user, err := s.resolveFederated(ctx, claims)
	if err != nil {
		return models.User{}, pair, err
	}

	pair, err = s.generatePair(ctx, user)
	if err != nil {
		return user, pair, fmt.Errorf("token could not be generated. Err: %w", err)
	}

	return user, pair, nil
}

// resolveFederated maps a verified assertion to exactly one local user.
// Two concurrent first logins for the same new email may both try to
// create the row: the loser sees the unique violation and re-reads the
// now existing record instead of surfacing the conflict
func (s *AuthService) resolveFederated(ctx context.Context, claims FederatedClaims) (models.User, error) {
	users := s.storage.User()
	email := models.NormalizeEmail(claims.Email)

	user, err := users.GetUserByEmail(ctx, email)
	switch {
	case err == nil:
		return user, nil
	case !errors.Is(err, apperrors.ErrUserNotFound):
		return user, err
	}

	name := claims.Name
	if name == "" {
		name = defaultDisplayName
	}

	user, err = users.CreateUser(ctx, repository.CreateUserParams{
		Email: email,
		Name:  name,
		Role:  models.RoleUser,
		// No local password for federated accounts
	})
	switch {
	case err == nil:
		return user, nil
	case errors.Is(err, apperrors.ErrUserAlreadyExists):
		// Lost the creation race, the row exists now
		return users.GetUserByEmail(ctx, email)
	default:
		return user, err
	}
}
