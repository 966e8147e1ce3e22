package handlers

import (
	"context"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/google/uuid"

	"github.com/Alekaz94/catholic-daily-companion/internal/apperrors"
	"github.com/Alekaz94/catholic-daily-companion/internal/handlers/render"
	"github.com/Alekaz94/catholic-daily-companion/internal/handlers/userctx"
	"github.com/Alekaz94/catholic-daily-companion/internal/models"
)

type AuditService interface {
	auditRecorder

	// List recent records, newest first. Admin only
	List(ctx context.Context, actor models.User, limit int) ([]models.AuditRecord, error)
}

type AuditHandler struct {
	audit AuditService
}

func NewAudit(audit AuditService) *AuditHandler {
	return &AuditHandler{audit: audit}
}

type AuditRecordResponse struct {
	ID         uuid.UUID      `json:"id"`
	CreatedAt  time.Time      `json:"created_at"`
	ActorID    *uuid.UUID     `json:"actor_id,omitempty"`
	Action     string         `json:"action"`
	EntityType string         `json:"entity_type,omitempty"`
	EntityID   *uuid.UUID     `json:"entity_id,omitempty"`
	Metadata   map[string]any `json:"metadata,omitempty"`
	SourceIP   string         `json:"source_ip,omitempty"`
}

func (h *AuditHandler) list(w http.ResponseWriter, r *http.Request) {
	actor, ok := userctx.FromContext(r.Context())
	if !ok {
		render.ServiceError(w, "Unauthorized", http.StatusUnauthorized)
		return
	}

	limit := 0
	if raw := r.URL.Query().Get("limit"); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil || parsed <= 0 {
			render.ServiceError(w, "Invalid limit", http.StatusBadRequest)
			return
		}
		limit = parsed
	}

	records, err := h.audit.List(r.Context(), actor, limit)
	if err != nil {
		switch {
		case errors.Is(err, apperrors.ErrAccessDenied):
			render.ServiceError(w, "Access denied", http.StatusForbidden)
		default:
			render.ServiceError(w, "Internal server error", http.StatusInternalServerError)
		}
		return
	}

	out := make([]AuditRecordResponse, 0, len(records))
	for _, rec := range records {
		out = append(out, AuditRecordResponse{
			ID:         rec.ID,
			CreatedAt:  rec.CreatedAt,
			ActorID:    rec.ActorID,
			Action:     rec.Action,
			EntityType: rec.EntityType,
			EntityID:   rec.EntityID,
			Metadata:   rec.Metadata,
			SourceIP:   rec.SourceIP,
		})
	}
	render.JSON(w, out)
}
