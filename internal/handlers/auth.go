package handlers

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/Alekaz94/catholic-daily-companion/internal/apperrors"
	"github.com/Alekaz94/catholic-daily-companion/internal/handlers/middleware"
	"github.com/Alekaz94/catholic-daily-companion/internal/handlers/render"
	"github.com/Alekaz94/catholic-daily-companion/internal/models"
)

// Auth service
type AuthService interface {
	// Register user with email, display name and password
	// Has to return apperrors.ErrUserAlreadyExists if the email is taken
	Register(ctx context.Context, email string, name string, password string) (models.User, models.TokenPair, error)

	// Login with email and password
	// Has to return apperrors.ErrUserNotFound on any credential mismatch
	Login(ctx context.Context, email string, password string) (models.User, models.TokenPair, error)

	// Login with a federated identity assertion
	// Has to return apperrors.ErrFederatedAuthInvalid if it can't be verified
	LoginFederated(ctx context.Context, rawToken string) (models.User, models.TokenPair, error)

	// Rotate refresh token and issue a fresh pair
	// If token expired: has to return apperrors.ErrRefreshTokenExpired
	// If token not found: has to return apperrors.ErrRefreshTokenNotFound
	Refresh(ctx context.Context, refresh string) (models.User, models.TokenPair, error)

	// Revoke the refresh token. Idempotent
	Logout(ctx context.Context, refresh string) error

	// Set auth tokens (access, refresh) to response
	SetTokens(w http.ResponseWriter, pair models.TokenPair)

	// Get refresh token from the request cookie
	ReadRefresh(r *http.Request) (string, error)
}

type AuthHandler struct {
	auth  AuthService
	audit auditRecorder
}

func NewAuth(auth AuthService, audit auditRecorder) *AuthHandler {
	return &AuthHandler{auth: auth, audit: audit}
}

type authResponse struct {
	User             UserResponse `json:"user"`
	AccessToken      string       `json:"access_token"`
	AccessExpiresAt  time.Time    `json:"access_expires_at"`
	RefreshToken     string       `json:"refresh_token"`
	RefreshExpiresAt time.Time    `json:"refresh_expires_at"`
}

func toAuthResponse(user models.User, pair models.TokenPair) authResponse {
	return authResponse{
		User:             toUserResponse(user),
		AccessToken:      pair.Access.Value,
		AccessExpiresAt:  pair.Access.ExpiresAt,
		RefreshToken:     pair.Refresh.Value,
		RefreshExpiresAt: pair.Refresh.ExpiresAt,
	}
}

func (h *AuthHandler) register(w http.ResponseWriter, r *http.Request) {
	type RegisterRequest struct {
		Email    string `json:"email" validate:"required,email"`
		Name     string `json:"name" validate:"required,min=1,max=100"`
		Password string `json:"password" validate:"required,min=8"`
	}

	data, err := render.BindAndValidate[RegisterRequest](w, r)
	if err != nil {
		return
	}

	user, pair, err := h.auth.Register(r.Context(), data.Email, data.Name, data.Password)
	if err != nil {
		switch {
		case errors.Is(err, apperrors.ErrUserAlreadyExists):
			render.ServiceError(w, "User already exists", http.StatusConflict)
		default:
			render.ServiceError(w, "Internal server error", http.StatusInternalServerError)
		}
		return
	}

	h.audit.Record(r.Context(), models.AuditRecord{
		ActorID:    &user.ID,
		Action:     models.AuditUserRegistered,
		EntityType: "user",
		EntityID:   &user.ID,
		SourceIP:   middleware.ClientIP(r),
	})

	h.auth.SetTokens(w, pair)
	render.JSON(w, toAuthResponse(user, pair))
}

func (h *AuthHandler) login(w http.ResponseWriter, r *http.Request) {
	type LoginRequest struct {
		Email    string `json:"email" validate:"required,email"`
		Password string `json:"password" validate:"required"`
	}

	data, err := render.BindAndValidate[LoginRequest](w, r)
	if err != nil {
		return
	}

	user, pair, err := h.auth.Login(r.Context(), data.Email, data.Password)
	if err != nil {
		h.audit.Record(r.Context(), models.AuditRecord{
			Action:   models.AuditUserLoginFailed,
			Metadata: map[string]any{"email": data.Email},
			SourceIP: middleware.ClientIP(r),
		})

		switch {
		case errors.Is(err, apperrors.ErrUserNotFound):
			render.ServiceError(w, "Invalid email or password", http.StatusUnauthorized)
		default:
			render.ServiceError(w, "Internal server error", http.StatusInternalServerError)
		}
		return
	}

	h.audit.Record(r.Context(), models.AuditRecord{
		ActorID:    &user.ID,
		Action:     models.AuditUserLogin,
		EntityType: "user",
		EntityID:   &user.ID,
		SourceIP:   middleware.ClientIP(r),
	})

	h.auth.SetTokens(w, pair)
	render.JSON(w, toAuthResponse(user, pair))
}

func (h *AuthHandler) google(w http.ResponseWriter, r *http.Request) {
	type GoogleLoginRequest struct {
		IDToken string `json:"id_token" validate:"required"`
	}

	data, err := render.BindAndValidate[GoogleLoginRequest](w, r)
	if err != nil {
		return
	}

	user, pair, err := h.auth.LoginFederated(r.Context(), data.IDToken)
	if err != nil {
		switch {
		case errors.Is(err, apperrors.ErrFederatedAuthInvalid):
			render.ServiceError(w, "Federated login failed", http.StatusUnauthorized)
		default:
			render.ServiceError(w, "Internal server error", http.StatusInternalServerError)
		}
		return
	}

	h.audit.Record(r.Context(), models.AuditRecord{
		ActorID:    &user.ID,
		Action:     models.AuditFederatedLogin,
		EntityType: "user",
		EntityID:   &user.ID,
		SourceIP:   middleware.ClientIP(r),
	})

	h.auth.SetTokens(w, pair)
	render.JSON(w, toAuthResponse(user, pair))
}

func (h *AuthHandler) refresh(w http.ResponseWriter, r *http.Request) {
	refresh := h.readRefresh(r)
	if refresh == "" {
		render.ServiceError(w, "Refresh token not found", http.StatusUnauthorized)
		return
	}

	user, pair, err := h.auth.Refresh(r.Context(), refresh)
	if err != nil {
		switch {
		case errors.Is(err, apperrors.ErrRefreshTokenExpired):
			render.ServiceError(w, "Refresh token expired", http.StatusUnauthorized)
		default:
			render.ServiceError(w, "Refresh token not found", http.StatusUnauthorized)
		}
		return
	}

	h.audit.Record(r.Context(), models.AuditRecord{
		ActorID:    &user.ID,
		Action:     models.AuditTokenRefreshed,
		EntityType: "user",
		EntityID:   &user.ID,
		SourceIP:   middleware.ClientIP(r),
	})

	h.auth.SetTokens(w, pair)
	render.JSON(w, toAuthResponse(user, pair))
}

func (h *AuthHandler) logout(w http.ResponseWriter, r *http.Request) {
	refresh := h.readRefresh(r)
	if refresh != "" {
		if err := h.auth.Logout(r.Context(), refresh); err != nil {
			render.ServiceError(w, "Internal server error", http.StatusInternalServerError)
			return
		}

		h.audit.Record(r.Context(), models.AuditRecord{
			Action:   models.AuditTokenRevoked,
			SourceIP: middleware.ClientIP(r),
		})
	}

	w.WriteHeader(http.StatusNoContent)
}

// readRefresh takes the token from the cookie or, for non-browser
// clients, from the request body
func (h *AuthHandler) readRefresh(r *http.Request) string {
	if refresh, err := h.auth.ReadRefresh(r); err == nil {
		return refresh
	}

	var body struct {
		RefreshToken string `json:"refresh_token"`
	}
	if err := decodeBody(r, &body); err != nil {
		return ""
	}
	return body.RefreshToken
}
