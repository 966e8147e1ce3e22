package auth

import (
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Alekaz94/catholic-daily-companion/internal/apperrors"
	"github.com/Alekaz94/catholic-daily-companion/internal/models"
)

func Test_TokenCodec(t *testing.T) {
	user := models.User{
		ID:    uuid.New(),
		Email: "Pilgrim@Example.COM",
		Name:  "Pilgrim",
		Role:  models.RoleUser,
	}

	newCodec := func(t *testing.T, cfg CodecConfig) *TokenCodec {
		t.Helper()
		if cfg.SecretKey == "" {
			cfg.SecretKey = "test-secret-key"
		}
		codec, err := NewCodec(cfg)
		require.NoError(t, err)
		return codec
	}

	t.Run("empty secret key fails", func(t *testing.T) {
		_, err := NewCodec(CodecConfig{})
		assert.Error(t, err)
	})

	t.Run("issue and verify roundtrip", func(t *testing.T) {
		codec := newCodec(t, CodecConfig{})

		issued, err := codec.Issue(user)
		require.NoError(t, err)
		assert.NotEmpty(t, issued.Value)
		assert.WithinDuration(t, time.Now().Add(codec.AccessTTL()), issued.ExpiresAt, time.Second)

		claims, err := codec.Verify(issued.Value)
		require.NoError(t, err)
		assert.Equal(t, user.ID, claims.UserID)
		assert.Equal(t, "pilgrim@example.com", claims.Email, "email claim must be normalized")
		assert.NotEmpty(t, claims.ID, "every token must carry a unique jti")
	})

	t.Run("expired token", func(t *testing.T) {
		codec := newCodec(t, CodecConfig{AccessTTL: -time.Minute})

		issued, err := codec.Issue(user)
		require.NoError(t, err)

		_, err = codec.Verify(issued.Value)
		assert.ErrorIs(t, err, apperrors.ErrTokenExpired)
	})

	t.Run("tampered signature", func(t *testing.T) {
		codec := newCodec(t, CodecConfig{})

		issued, err := codec.Issue(user)
		require.NoError(t, err)

		// Flip the last signature byte
		raw := []byte(issued.Value)
		if raw[len(raw)-1] == 'A' {
			raw[len(raw)-1] = 'B'
		} else {
			raw[len(raw)-1] = 'A'
		}

		_, err = codec.Verify(string(raw))
		assert.ErrorIs(t, err, apperrors.ErrTokenInvalid)
	})

	t.Run("wrong key", func(t *testing.T) {
		codec := newCodec(t, CodecConfig{SecretKey: "one-key"})
		other := newCodec(t, CodecConfig{SecretKey: "another-key"})

		issued, err := codec.Issue(user)
		require.NoError(t, err)

		_, err = other.Verify(issued.Value)
		assert.ErrorIs(t, err, apperrors.ErrTokenInvalid)
	})

	t.Run("unsigned token rejected", func(t *testing.T) {
		codec := newCodec(t, CodecConfig{})

		unsigned := jwt.NewWithClaims(jwt.SigningMethodNone, AccessTokenClaims{
			RegisteredClaims: jwt.RegisteredClaims{
				ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour)),
			},
			UserID: user.ID,
			Email:  user.Email,
		})
		value, err := unsigned.SignedString(jwt.UnsafeAllowNoneSignatureType)
		require.NoError(t, err)

		_, err = codec.Verify(value)
		assert.ErrorIs(t, err, apperrors.ErrTokenInvalid)
	})

	t.Run("garbage token", func(t *testing.T) {
		codec := newCodec(t, CodecConfig{})

		_, err := codec.Verify("not-a-token")
		assert.ErrorIs(t, err, apperrors.ErrTokenInvalid)
	})
}
