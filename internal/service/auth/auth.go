package auth

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/Alekaz94/catholic-daily-companion/internal/apperrors"
	"github.com/Alekaz94/catholic-daily-companion/internal/models"
	"github.com/Alekaz94/catholic-daily-companion/internal/repository"
)

const (
	defaultRefreshTokenTTL = 30 * 24 * time.Hour

	// Opaque refresh token size. 32 random bytes keep the value space
	// far beyond enumeration
	refreshTokenBytesLen = 32

	accessHeaderName  = "Authorization"
	accessAuthScheme  = "Bearer"
	refreshCookieName = "cdc_refresh"
	refreshCookiePath = "/api/auth"
)

// Interface to create or compare user password hashes
type PasswordHasher interface {
	// Generate Hash from password
	Hash(password string) (string, error)

	// Compare known hashedPassword and user provided password
	// Must be protected against timing attacks
	Compare(hashedPassword string, password string) error
}

type Config struct {
	// Hasher used during registration and login
	// Defaults to BcryptHasher
	Hasher PasswordHasher

	// Verifier for federated login assertions
	// If nil federated login is disabled
	Verifier AssertionVerifier

	// Refresh token lifetime
	// Must exceed the access token lifetime by a wide margin
	RefreshTokenTTL time.Duration
}

// AuthService owns registration, password and federated login, refresh
// token rotation and request authentication
type AuthService struct {
	codec      *TokenCodec
	hasher     PasswordHasher
	verifier   AssertionVerifier
	storage    repository.Storage
	refreshTTL time.Duration
}

func NewService(cfg Config, codec *TokenCodec, storage repository.Storage) (*AuthService, error) {
	if codec == nil || storage == nil {
		return nil, errors.New("codec and storage must not be nil")
	}

	hasher := cfg.Hasher
	if hasher == nil {
		hasher = BcryptHasher{}
	}

	refreshTTL := cfg.RefreshTokenTTL
	if refreshTTL == 0 {
		refreshTTL = defaultRefreshTokenTTL
	}

	// Access tokens live minutes, refresh tokens live weeks.
	// A refresh lifetime at or below the access lifetime breaks rotation
	if refreshTTL <= codec.AccessTTL() {
		return nil, errors.New("refresh token TTL must exceed access token TTL")
	}

	return &AuthService{
		codec:      codec,
		hasher:     hasher,
		verifier:   cfg.Verifier,
		storage:    storage,
		refreshTTL: refreshTTL,
	}, nil
}

func (s *AuthService) Register(ctx context.Context, email string, name string, password string) (models.User, models.TokenPair, error) {
	var pair models.TokenPair

	hash, err := s.hasher.Hash(password)
	if err != nil {
		return models.User{}, pair, fmt.Errorf("can't use this as password. Err: %w", err)
	}

	user, err := s.storage.User().CreateUser(ctx, repository.CreateUserParams{
		Email:          email,
		Name:           name,
		Role:           models.RoleUser,
		HashedPassword: hash,
	})
	if err != nil {
		return user, pair, err
	}

	pair, err = s.generatePair(ctx, user)
	if err != nil {
		return user, pair, fmt.Errorf("token could not be generated. Err: %w", err)
	}

	return user, pair, nil
}

func (s *AuthService) Login(ctx context.Context, email string, password string) (models.User, models.TokenPair, error) {
	var pair models.TokenPair

	user, err := s.storage.User().GetUserByEmail(ctx, email)
	if err != nil {
		return models.User{}, pair, apperrors.ErrUserNotFound
	}

	// Federated only accounts have no hash and can't login with password.
	// Compare handles the empty hash case but check is kept explicit
	if user.HashedPassword == "" || s.hasher.Compare(user.HashedPassword, password) != nil {
		return models.User{}, pair, apperrors.ErrUserNotFound
	}

	pair, err = s.generatePair(ctx, user)
	if err != nil {
		return user, pair, fmt.Errorf("token could not be generated. Err: %w", err)
	}

	return user, pair, nil
}

// Refresh rotates the refresh token and issues a fresh access token.
// The presented token must be known to the store and unexpired. An expired
// token is deleted on sight: it is logically dead even before the sweep
func (s *AuthService) Refresh(ctx context.Context, refresh string) (models.User, models.TokenPair, error) {
	var pair models.TokenPair

	token, err := s.storage.Refresh().Get(ctx, refresh)
	if err != nil {
		return models.User{}, pair, err
	}

	if token.ExpiresAt.Before(time.Now()) {
		_ = s.storage.Refresh().DeleteByValue(ctx, refresh)
		return models.User{}, pair, fmt.Errorf("refresh rejected: %w", apperrors.ErrRefreshTokenExpired)
	}

	user, err := s.storage.User().GetUserByID(ctx, token.UserID)
	if err != nil {
		// Owner is gone, the token must not survive it
		_ = s.storage.Refresh().DeleteByValue(ctx, refresh)
		return models.User{}, pair, fmt.Errorf("refresh rejected: %w", apperrors.ErrRefreshTokenNotFound)
	}

	pair, err = s.generatePair(ctx, user)
	if err != nil {
		return user, pair, fmt.Errorf("token could not be generated. Err: %w", err)
	}

	return user, pair, nil
}

// Logout revokes the presented refresh token. Idempotent
func (s *AuthService) Logout(ctx context.Context, refresh string) error {
	return s.storage.Refresh().DeleteByValue(ctx, refresh)
}

// RevokeUser drops the active refresh token of the user. Idempotent
func (s *AuthService) RevokeUser(ctx context.Context, userID uuid.UUID) error {
	return s.storage.Refresh().DeleteByUser(ctx, userID)
}

// Authenticate resolves the user from the request bearer token.
// A missing, invalid or expired token all end on the same unauthenticated
// path: the error is surfaced and no anonymous fallback happens
func (s *AuthService) Authenticate(ctx context.Context, r *http.Request) (models.User, error) {
	raw, err := BearerToken(r)
	if err != nil {
		return models.User{}, err
	}

	claims, err := s.codec.Verify(raw)
	if err != nil {
		return models.User{}, err
	}

	user, err := s.storage.User().GetUserByID(ctx, claims.UserID)
	if err != nil {
		return models.User{}, fmt.Errorf("%w: subject does not resolve to a user", apperrors.ErrTokenInvalid)
	}

	return user, nil
}

// SetTokens writes the pair to the response: access token in the
// Authorization header, refresh token in an HttpOnly cookie scoped to the
// auth endpoints
func (s *AuthService) SetTokens(w http.ResponseWriter, pair models.TokenPair) {
	w.Header().Set(accessHeaderName, accessAuthScheme+" "+pair.Access.Value)
	http.SetCookie(w, &http.Cookie{
		Name:     refreshCookieName,
		Value:    pair.Refresh.Value,
		Path:     refreshCookiePath,
		Expires:  pair.Refresh.ExpiresAt,
		HttpOnly: true,
		SameSite: http.SameSiteStrictMode,
	})
}

// ReadRefresh extracts the refresh token from the request cookie
func (s *AuthService) ReadRefresh(r *http.Request) (string, error) {
	cookie, err := r.Cookie(refreshCookieName)
	if err != nil || cookie.Value == "" {
		return "", fmt.Errorf("read refresh: %w", apperrors.ErrRefreshTokenNotFound)
	}
	return cookie.Value, nil
}

// BearerToken extracts the raw access token from the Authorization header
func BearerToken(r *http.Request) (string, error) {
	header := r.Header.Get(accessHeaderName)
	scheme, token, found := strings.Cut(header, " ")
	if !found || !strings.EqualFold(scheme, accessAuthScheme) || token == "" {
		return "", fmt.Errorf("%w: no bearer credential", apperrors.ErrTokenInvalid)
	}
	return token, nil
}

// generatePair issues an access token and rotates the refresh token.
// The upsert replaces any prior refresh token of the user: one active
// refresh token per identity
func (s *AuthService) generatePair(ctx context.Context, user models.User) (models.TokenPair, error) {
	var pair models.TokenPair

	access, err := s.codec.Issue(user)
	if err != nil {
		return pair, err
	}

	b := make([]byte, refreshTokenBytesLen)
	if _, err := rand.Read(b); err != nil {
		return pair, fmt.Errorf("error while generating refresh token. Err: %w", err)
	}

	now := time.Now().Truncate(time.Second)
	refresh, err := s.storage.Refresh().Upsert(ctx, models.RefreshToken{
		ID:        uuid.New(),
		UserID:    user.ID,
		Token:     hex.EncodeToString(b),
		CreatedAt: now,
		ExpiresAt: now.Add(s.refreshTTL),
	})
	if err != nil {
		return pair, fmt.Errorf("error while saving refresh token. Err: %w", err)
	}

	return models.TokenPair{
		Access:  access,
		Refresh: models.IssuedToken{Value: refresh.Token, ExpiresAt: refresh.ExpiresAt},
	}, nil
}
