package handlers

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Alekaz94/catholic-daily-companion/internal/logger"
	"github.com/Alekaz94/catholic-daily-companion/internal/ratelimit"
	"github.com/Alekaz94/catholic-daily-companion/internal/repository/postgres"
	"github.com/Alekaz94/catholic-daily-companion/internal/service/audit"
	"github.com/Alekaz94/catholic-daily-companion/internal/service/auth"
	"github.com/Alekaz94/catholic-daily-companion/internal/service/entry"
	"github.com/Alekaz94/catholic-daily-companion/internal/service/user"
	"github.com/Alekaz94/catholic-daily-companion/internal/testutil"
)

func Test_Router(t *testing.T) {
	pg := testutil.StartPostgresContainer(t)
	defer pg.Terminate()

	storage := postgres.NewStorage(pg.Pool)

	codec, err := auth.NewCodec(auth.CodecConfig{SecretKey: "test-secret"})
	require.NoError(t, err)

	authService, err := auth.NewService(auth.Config{}, codec, storage)
	require.NoError(t, err)
	userService, err := user.NewService(storage)
	require.NoError(t, err)
	entryService, err := entry.NewService(storage)
	require.NoError(t, err)
	auditService, err := audit.NewService(storage, logger.NewNoOpLogger())
	require.NoError(t, err)

	newRouter := func(limiterCfg ratelimit.Config) http.Handler {
		return NewRouter(
			NewAuth(authService, auditService),
			NewUser(userService, auditService),
			NewEntry(entryService, auditService),
			NewAudit(auditService),
			authService,
			ratelimit.New(limiterCfg),
			codec,
			logger.NewNoOpLogger(),
		)
	}

	// Generous tiers for the functional scenarios
	router := newRouter(ratelimit.Config{
		Auth:     ratelimit.TierConfig{Capacity: 1000, RefillPerMinute: 1000},
		Standard: ratelimit.TierConfig{Capacity: 1000, RefillPerMinute: 1000},
	})

	send := func(t *testing.T, h http.Handler, method, path, token string, body any) *httptest.ResponseRecorder {
		t.Helper()

		var buf bytes.Buffer
		if body != nil {
			require.NoError(t, json.NewEncoder(&buf).Encode(body))
		}

		r := httptest.NewRequest(method, path, &buf)
		if token != "" {
			r.Header.Set("Authorization", "Bearer "+token)
		}

		w := httptest.NewRecorder()
		h.ServeHTTP(w, r)
		return w
	}

	register := func(t *testing.T, email string) authResponse {
		t.Helper()

		w := send(t, router, http.MethodPost, "/api/auth/register", "", map[string]string{
			"email":    email,
			"name":     "Pilgrim",
			"password": "strongpassword",
		})
		require.Equal(t, http.StatusOK, w.Code, "register failed: %s", w.Body.String())

		var resp authResponse
		require.NoError(t, json.NewDecoder(w.Body).Decode(&resp))
		return resp
	}

	promoteToAdmin := func(t *testing.T, email string) {
		t.Helper()
		_, err := pg.Pool.Exec(t.Context(), "UPDATE users SET role = 'ADMIN' WHERE email = $1", email)
		require.NoError(t, err)
	}

	t.Run("register and login", func(t *testing.T) {
		resp := register(t, "register-flow@example.com")
		assert.NotEmpty(t, resp.AccessToken)
		assert.NotEmpty(t, resp.RefreshToken)
		assert.Equal(t, "register-flow@example.com", resp.User.Email)

		w := send(t, router, http.MethodPost, "/api/auth/register", "", map[string]string{
			"email":    "register-flow@example.com",
			"name":     "Again",
			"password": "strongpassword",
		})
		assert.Equal(t, http.StatusConflict, w.Code)

		w = send(t, router, http.MethodPost, "/api/auth/login", "", map[string]string{
			"email":    "register-flow@example.com",
			"password": "strongpassword",
		})
		assert.Equal(t, http.StatusOK, w.Code)

		w = send(t, router, http.MethodPost, "/api/auth/login", "", map[string]string{
			"email":    "register-flow@example.com",
			"password": "wrongpassword",
		})
		assert.Equal(t, http.StatusUnauthorized, w.Code)
	})

	t.Run("register validates the body", func(t *testing.T) {
		w := send(t, router, http.MethodPost, "/api/auth/register", "", map[string]string{
			"email":    "not-an-email",
			"name":     "Pilgrim",
			"password": "short",
		})
		assert.Equal(t, http.StatusBadRequest, w.Code)
	})

	t.Run("entry ownership", func(t *testing.T) {
		alice := register(t, "alice-entries@example.com")
		bob := register(t, "bob-entries@example.com")

		w := send(t, router, http.MethodPost, "/api/entry", alice.AccessToken, map[string]string{
			"title":   "Morning prayer",
			"content": "Reflections",
		})
		require.Equal(t, http.StatusCreated, w.Code)

		var created EntryResponse
		require.NoError(t, json.NewDecoder(w.Body).Decode(&created))

		entryPath := fmt.Sprintf("/api/entry/%s", created.ID)

		// Owner reads and edits
		assert.Equal(t, http.StatusOK, send(t, router, http.MethodGet, entryPath, alice.AccessToken, nil).Code)

		w = send(t, router, http.MethodPatch, entryPath, alice.AccessToken, map[string]string{"title": "Evening prayer"})
		require.Equal(t, http.StatusOK, w.Code)
		var updated EntryResponse
		require.NoError(t, json.NewDecoder(w.Body).Decode(&updated))
		assert.Equal(t, "Evening prayer", updated.Title)
		assert.Equal(t, "Reflections", updated.Content)

		// Another user is locked out of every operation on the entry
		assert.Equal(t, http.StatusForbidden, send(t, router, http.MethodGet, entryPath, bob.AccessToken, nil).Code)
		assert.Equal(t, http.StatusForbidden, send(t, router, http.MethodPatch, entryPath, bob.AccessToken, map[string]string{"title": "Hijack"}).Code)
		assert.Equal(t, http.StatusForbidden, send(t, router, http.MethodDelete, entryPath, bob.AccessToken, nil).Code)

		// Owner deletes, a second read is a 404
		assert.Equal(t, http.StatusNoContent, send(t, router, http.MethodDelete, entryPath, alice.AccessToken, nil).Code)
		assert.Equal(t, http.StatusNotFound, send(t, router, http.MethodGet, entryPath, alice.AccessToken, nil).Code)
	})

	t.Run("entry requires authentication", func(t *testing.T) {
		assert.Equal(t, http.StatusUnauthorized, send(t, router, http.MethodGet, "/api/entry", "", nil).Code)
		assert.Equal(t, http.StatusUnauthorized, send(t, router, http.MethodGet, "/api/entry", "garbage-token", nil).Code)
	})

	t.Run("me returns the caller", func(t *testing.T) {
		me := register(t, "me@example.com")

		w := send(t, router, http.MethodGet, "/api/user/me", me.AccessToken, nil)
		require.Equal(t, http.StatusOK, w.Code)

		var resp UserResponse
		require.NoError(t, json.NewDecoder(w.Body).Decode(&resp))
		assert.Equal(t, "me@example.com", resp.Email)
	})

	t.Run("admin surface", func(t *testing.T) {
		admin := register(t, "admin@example.com")
		promoteToAdmin(t, "admin@example.com")
		// Re-login to get a token for the promoted role
		w := send(t, router, http.MethodPost, "/api/auth/login", "", map[string]string{
			"email":    "admin@example.com",
			"password": "strongpassword",
		})
		require.Equal(t, http.StatusOK, w.Code)
		require.NoError(t, json.NewDecoder(w.Body).Decode(&admin))

		regular := register(t, "regular@example.com")

		t.Run("user list is admin only", func(t *testing.T) {
			assert.Equal(t, http.StatusForbidden, send(t, router, http.MethodGet, "/api/user", regular.AccessToken, nil).Code)
			assert.Equal(t, http.StatusOK, send(t, router, http.MethodGet, "/api/user", admin.AccessToken, nil).Code)
		})

		t.Run("audit list is admin only", func(t *testing.T) {
			assert.Equal(t, http.StatusForbidden, send(t, router, http.MethodGet, "/api/audit", regular.AccessToken, nil).Code)

			w := send(t, router, http.MethodGet, "/api/audit", admin.AccessToken, nil)
			require.Equal(t, http.StatusOK, w.Code)
			assert.NotEqual(t, "[]", w.Body.String(), "logins above must have produced records")
		})

		t.Run("admin may read any entry", func(t *testing.T) {
			w := send(t, router, http.MethodPost, "/api/entry", regular.AccessToken, map[string]string{
				"title":   "Private",
				"content": "Entry",
			})
			require.Equal(t, http.StatusCreated, w.Code)
			var created EntryResponse
			require.NoError(t, json.NewDecoder(w.Body).Decode(&created))

			assert.Equal(t, http.StatusOK, send(t, router, http.MethodGet, fmt.Sprintf("/api/entry/%s", created.ID), admin.AccessToken, nil).Code)
		})

		t.Run("delete user revokes the session", func(t *testing.T) {
			target := register(t, "target@example.com")

			assert.Equal(t, http.StatusForbidden, send(t, router, http.MethodDelete, fmt.Sprintf("/api/user/%s", target.User.ID), regular.AccessToken, nil).Code)
			assert.Equal(t, http.StatusNoContent, send(t, router, http.MethodDelete, fmt.Sprintf("/api/user/%s", target.User.ID), admin.AccessToken, nil).Code)

			// The deleted user's refresh token must be dead
			w := send(t, router, http.MethodPost, "/api/auth/refresh", "", map[string]string{
				"refresh_token": target.RefreshToken,
			})
			assert.Equal(t, http.StatusUnauthorized, w.Code)
		})
	})

	t.Run("refresh rotation", func(t *testing.T) {
		resp := register(t, "refresh-flow@example.com")

		w := send(t, router, http.MethodPost, "/api/auth/refresh", "", map[string]string{
			"refresh_token": resp.RefreshToken,
		})
		require.Equal(t, http.StatusOK, w.Code)
		assert.NotEmpty(t, w.Header().Get("Authorization"))

		var refreshed authResponse
		require.NoError(t, json.NewDecoder(w.Body).Decode(&refreshed))
		assert.NotEqual(t, resp.RefreshToken, refreshed.RefreshToken)

		// The replaced token stops working and no new pair leaks out
		w = send(t, router, http.MethodPost, "/api/auth/refresh", "", map[string]string{
			"refresh_token": resp.RefreshToken,
		})
		assert.Equal(t, http.StatusUnauthorized, w.Code)
		assert.Empty(t, w.Header().Get("Authorization"))
	})

	t.Run("logout", func(t *testing.T) {
		resp := register(t, "logout-flow@example.com")

		w := send(t, router, http.MethodPost, "/api/auth/logout", "", map[string]string{
			"refresh_token": resp.RefreshToken,
		})
		assert.Equal(t, http.StatusNoContent, w.Code)

		w = send(t, router, http.MethodPost, "/api/auth/refresh", "", map[string]string{
			"refresh_token": resp.RefreshToken,
		})
		assert.Equal(t, http.StatusUnauthorized, w.Code)
	})

	t.Run("auth endpoints are rate limited", func(t *testing.T) {
		strict := newRouter(ratelimit.Config{
			Auth:     ratelimit.TierConfig{Capacity: 2, RefillPerMinute: 1},
			Standard: ratelimit.TierConfig{Capacity: 1000, RefillPerMinute: 1000},
		})

		login := func() *httptest.ResponseRecorder {
			return send(t, strict, http.MethodPost, "/api/auth/login", "", map[string]string{
				"email":    "nobody@example.com",
				"password": "whatever",
			})
		}

		require.Equal(t, http.StatusUnauthorized, login().Code)
		require.Equal(t, http.StatusUnauthorized, login().Code)

		w := login()
		assert.Equal(t, http.StatusTooManyRequests, w.Code)
		assert.NotEmpty(t, w.Header().Get("Retry-After"))
	})
}
