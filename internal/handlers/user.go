package handlers

import (
	"context"
	"errors"
	"net/http"

	"github.com/google/uuid"

	"github.com/Alekaz94/catholic-daily-companion/internal/apperrors"
	"github.com/Alekaz94/catholic-daily-companion/internal/handlers/middleware"
	"github.com/Alekaz94/catholic-daily-companion/internal/handlers/render"
	"github.com/Alekaz94/catholic-daily-companion/internal/handlers/userctx"
	"github.com/Alekaz94/catholic-daily-companion/internal/models"
)

type UserService interface {
	// List all users. Admin only, returns apperrors.ErrAccessDenied otherwise
	List(ctx context.Context, actor models.User) ([]models.User, error)

	// Delete a user and revoke its sessions. Admin only
	Delete(ctx context.Context, actor models.User, id uuid.UUID) error
}

type UserHandler struct {
	users UserService
	audit auditRecorder
}

func NewUser(users UserService, audit auditRecorder) *UserHandler {
	return &UserHandler{users: users, audit: audit}
}

func (h *UserHandler) me(w http.ResponseWriter, r *http.Request) {
	actor, ok := userctx.FromContext(r.Context())
	if !ok {
		render.ServiceError(w, "Unauthorized", http.StatusUnauthorized)
		return
	}

	render.JSON(w, toUserResponse(actor))
}

func (h *UserHandler) list(w http.ResponseWriter, r *http.Request) {
	actor, ok := userctx.FromContext(r.Context())
	if !ok {
		render.ServiceError(w, "Unauthorized", http.StatusUnauthorized)
		return
	}

	users, err := h.users.List(r.Context(), actor)
	if err != nil {
		switch {
		case errors.Is(err, apperrors.ErrAccessDenied):
			render.ServiceError(w, "Access denied", http.StatusForbidden)
		default:
			render.ServiceError(w, "Internal server error", http.StatusInternalServerError)
		}
		return
	}

	out := make([]UserResponse, 0, len(users))
	for _, u := range users {
		out = append(out, toUserResponse(u))
	}
	render.JSON(w, out)
}

func (h *UserHandler) delete(w http.ResponseWriter, r *http.Request) {
	actor, ok := userctx.FromContext(r.Context())
	if !ok {
		render.ServiceError(w, "Unauthorized", http.StatusUnauthorized)
		return
	}

	id, err := uuid.Parse(r.PathValue("id"))
	if err != nil {
		render.ServiceError(w, "Invalid user id", http.StatusBadRequest)
		return
	}

	if err := h.users.Delete(r.Context(), actor, id); err != nil {
		switch {
		case errors.Is(err, apperrors.ErrAccessDenied):
			render.ServiceError(w, "Access denied", http.StatusForbidden)
		case errors.Is(err, apperrors.ErrUserNotFound):
			render.ServiceError(w, "User not found", http.StatusNotFound)
		default:
			render.ServiceError(w, "Internal server error", http.StatusInternalServerError)
		}
		return
	}

	h.audit.Record(r.Context(), models.AuditRecord{
		ActorID:    &actor.ID,
		Action:     models.AuditUserDeleted,
		EntityType: "user",
		EntityID:   &id,
		SourceIP:   middleware.ClientIP(r),
	})

	w.WriteHeader(http.StatusNoContent)
}
