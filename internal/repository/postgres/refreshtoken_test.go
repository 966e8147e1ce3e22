package postgres

import (
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Alekaz94/catholic-daily-companion/internal/apperrors"
	"github.com/Alekaz94/catholic-daily-companion/internal/models"
	"github.com/Alekaz94/catholic-daily-companion/internal/repository"
	"github.com/Alekaz94/catholic-daily-companion/internal/testutil"
)

func Test_RefreshTokenRepo(t *testing.T) {
	pg := testutil.StartPostgresContainer(t)
	defer pg.Terminate()

	// Tokens reference users, so every subtest needs an owner row
	createUser := func(t *testing.T, tx pgx.Tx, email string) models.User {
		t.Helper()
		user, err := (&UserRepo{DB: tx}).CreateUser(t.Context(), repository.CreateUserParams{
			Email:          email,
			Name:           "Owner",
			Role:           models.RoleUser,
			HashedPassword: "hash",
		})
		require.NoError(t, err)
		return user
	}

	newToken := func(userID uuid.UUID, value string) models.RefreshToken {
		now := time.Now().Truncate(time.Second)
		return models.RefreshToken{
			ID:        uuid.New(),
			UserID:    userID,
			Token:     value,
			CreatedAt: now,
			ExpiresAt: now.Add(24 * time.Hour),
		}
	}

	t.Run("upsert inserts token", func(t *testing.T) {
		testutil.WithTx(pg.Pool, t, func(tx pgx.Tx) {
			r := &RefreshTokenRepo{DB: tx}
			user := createUser(t, tx, "insert@example.com")

			token := newToken(user.ID, "opaque-token-1")
			saved, err := r.Upsert(t.Context(), token)

			require.NoError(t, err)
			assert.Equal(t, token.ID, saved.ID)
			assert.Equal(t, token.Token, saved.Token)
			assert.Equal(t, user.ID, saved.UserID)
		})
	})

	t.Run("upsert replaces token of the same user", func(t *testing.T) {
		testutil.WithTx(pg.Pool, t, func(tx pgx.Tx) {
			r := &RefreshTokenRepo{DB: tx}
			user := createUser(t, tx, "rotate@example.com")

			_, err := r.Upsert(t.Context(), newToken(user.ID, "old-token"))
			require.NoError(t, err)

			_, err = r.Upsert(t.Context(), newToken(user.ID, "new-token"))
			require.NoError(t, err)

			// Only the new value resolves: single active session per user
			_, err = r.Get(t.Context(), "old-token")
			assert.ErrorIs(t, err, apperrors.ErrRefreshTokenNotFound, "replaced token must stop matching")

			got, err := r.Get(t.Context(), "new-token")
			require.NoError(t, err)
			assert.Equal(t, user.ID, got.UserID)
		})
	})

	t.Run("get missing token", func(t *testing.T) {
		testutil.WithTx(pg.Pool, t, func(tx pgx.Tx) {
			r := &RefreshTokenRepo{DB: tx}

			_, err := r.Get(t.Context(), "never-issued")
			assert.ErrorIs(t, err, apperrors.ErrRefreshTokenNotFound)
		})
	})

	t.Run("get returns expired token", func(t *testing.T) {
		testutil.WithTx(pg.Pool, t, func(tx pgx.Tx) {
			r := &RefreshTokenRepo{DB: tx}
			user := createUser(t, tx, "expired@example.com")

			expired := newToken(user.ID, "expired-token")
			expired.ExpiresAt = time.Now().Add(-time.Hour)
			_, err := r.Upsert(t.Context(), expired)
			require.NoError(t, err)

			// Expiry policy lives in the service, the store just reports
			got, err := r.Get(t.Context(), "expired-token")
			require.NoError(t, err)
			assert.True(t, got.ExpiresAt.Before(time.Now()))
		})
	})

	t.Run("delete by value is idempotent", func(t *testing.T) {
		testutil.WithTx(pg.Pool, t, func(tx pgx.Tx) {
			r := &RefreshTokenRepo{DB: tx}
			user := createUser(t, tx, "delbyvalue@example.com")

			_, err := r.Upsert(t.Context(), newToken(user.ID, "to-delete"))
			require.NoError(t, err)

			require.NoError(t, r.DeleteByValue(t.Context(), "to-delete"))
			_, err = r.Get(t.Context(), "to-delete")
			assert.ErrorIs(t, err, apperrors.ErrRefreshTokenNotFound)

			assert.NoError(t, r.DeleteByValue(t.Context(), "to-delete"))
		})
	})

	t.Run("delete by user revokes the session", func(t *testing.T) {
		testutil.WithTx(pg.Pool, t, func(tx pgx.Tx) {
			r := &RefreshTokenRepo{DB: tx}
			user := createUser(t, tx, "delbyuser@example.com")

			_, err := r.Upsert(t.Context(), newToken(user.ID, "user-token"))
			require.NoError(t, err)

			require.NoError(t, r.DeleteByUser(t.Context(), user.ID))
			_, err = r.Get(t.Context(), "user-token")
			assert.ErrorIs(t, err, apperrors.ErrRefreshTokenNotFound)

			assert.NoError(t, r.DeleteByUser(t.Context(), user.ID))
		})
	})

	t.Run("deleting user cascades to token", func(t *testing.T) {
		testutil.WithTx(pg.Pool, t, func(tx pgx.Tx) {
			r := &RefreshTokenRepo{DB: tx}
			user := createUser(t, tx, "cascade@example.com")

			_, err := r.Upsert(t.Context(), newToken(user.ID, "cascade-token"))
			require.NoError(t, err)

			require.NoError(t, (&UserRepo{DB: tx}).DeleteUser(t.Context(), user.ID))

			_, err = r.Get(t.Context(), "cascade-token")
			assert.ErrorIs(t, err, apperrors.ErrRefreshTokenNotFound)
		})
	})
}
