package handlers

import (
	"context"
	"net/http"

	"github.com/Alekaz94/catholic-daily-companion/internal/handlers/middleware"
	"github.com/Alekaz94/catholic-daily-companion/internal/logger"
	"github.com/Alekaz94/catholic-daily-companion/internal/models"
	"github.com/Alekaz94/catholic-daily-companion/internal/ratelimit"
	"github.com/Alekaz94/catholic-daily-companion/internal/service/auth"
)

// chain applies middlewares in the given order: m1(m2(...(h)))
func chain(h http.Handler, mds ...func(next http.Handler) http.Handler) http.Handler {
	for i := len(mds) - 1; i >= 0; i-- {
		h = mds[i](h)
	}
	return h
}

// Authenticator binds the bearer credential to a user
type Authenticator interface {
	Authenticate(ctx context.Context, r *http.Request) (models.User, error)
}

func NewRouter(
	authHandler *AuthHandler,
	userHandler *UserHandler,
	entryHandler *EntryHandler,
	auditHandler *AuditHandler,
	authenticator Authenticator,
	limiter *ratelimit.Limiter,
	codec *auth.TokenCodec,
	log logger.Logger,
) http.Handler {
	authMiddleware := middleware.AuthMiddleware(authenticator)
	withAuth := func(h http.HandlerFunc) http.Handler {
		return authMiddleware(h)
	}

	root := http.NewServeMux()

	root.HandleFunc("POST /api/auth/register", authHandler.register)
	root.HandleFunc("POST /api/auth/login", authHandler.login)
	root.HandleFunc("POST /api/auth/google", authHandler.google)
	root.HandleFunc("POST /api/auth/refresh", authHandler.refresh)
	root.HandleFunc("POST /api/auth/logout", authHandler.logout)

	root.Handle("GET /api/user/me", withAuth(userHandler.me))
	root.Handle("GET /api/user", withAuth(userHandler.list))
	root.Handle("DELETE /api/user/{id}", withAuth(userHandler.delete))

	root.Handle("POST /api/entry", withAuth(entryHandler.create))
	root.Handle("GET /api/entry", withAuth(entryHandler.list))
	root.Handle("GET /api/entry/{id}", withAuth(entryHandler.get))
	root.Handle("PATCH /api/entry/{id}", withAuth(entryHandler.update))
	root.Handle("DELETE /api/entry/{id}", withAuth(entryHandler.delete))

	root.Handle("GET /api/audit", withAuth(auditHandler.list))

	// The limiter runs inside the logger so rejected requests still
	// show up in the access log
	return chain(root,
		middleware.LoggerMiddleware(log),
		middleware.RateLimitMiddleware(limiter, codec),
	)
}
