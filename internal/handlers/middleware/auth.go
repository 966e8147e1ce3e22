package middleware

import (
	"context"
	"net/http"

	"github.com/Alekaz94/catholic-daily-companion/internal/handlers/render"
	"github.com/Alekaz94/catholic-daily-companion/internal/handlers/userctx"
	"github.com/Alekaz94/catholic-daily-companion/internal/models"
)

type authService interface {
	Authenticate(ctx context.Context, r *http.Request) (models.User, error)
}

// AuthMiddleware resolves the bearer credential and attaches the user to
// the request context. Missing, invalid and expired tokens all end here
// with 401: there is no anonymous fallback for protected handlers
func AuthMiddleware(as authService) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			user, err := as.Authenticate(r.Context(), r)
			if err != nil {
				render.ServiceError(w, "Unauthorized", http.StatusUnauthorized)
				return
			}
			ctx := userctx.New(r.Context(), user)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}
