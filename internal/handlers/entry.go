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
	"github.com/Alekaz94/catholic-daily-companion/internal/repository"
)

type EntryService interface {
	Create(ctx context.Context, actor models.User, title string, content string) (models.JournalEntry, error)
	List(ctx context.Context, actor models.User) ([]models.JournalEntry, error)

	// Get, Update and Delete have to return apperrors.ErrEntryNotFound
	// for missing entries and apperrors.ErrAccessDenied when the actor
	// is not the owner and not an admin
	Get(ctx context.Context, actor models.User, id uuid.UUID) (models.JournalEntry, error)
	Update(ctx context.Context, actor models.User, id uuid.UUID, arg repository.UpdateEntryParams) (models.JournalEntry, error)
	Delete(ctx context.Context, actor models.User, id uuid.UUID) error
}

type EntryHandler struct {
	entries EntryService
	audit   auditRecorder
}

func NewEntry(entries EntryService, audit auditRecorder) *EntryHandler {
	return &EntryHandler{entries: entries, audit: audit}
}

func (h *EntryHandler) create(w http.ResponseWriter, r *http.Request) {
	type CreateEntryRequest struct {
		Title   string `json:"title" validate:"required,min=1,max=200"`
		Content string `json:"content" validate:"required"`
	}

	data, err := render.BindAndValidate[CreateEntryRequest](w, r)
	if err != nil {
		return
	}

	actor, ok := userctx.FromContext(r.Context())
	if !ok {
		render.ServiceError(w, "Unauthorized", http.StatusUnauthorized)
		return
	}

	entry, err := h.entries.Create(r.Context(), actor, data.Title, data.Content)
	if err != nil {
		render.ServiceError(w, "Internal server error", http.StatusInternalServerError)
		return
	}

	h.audit.Record(r.Context(), models.AuditRecord{
		ActorID:    &actor.ID,
		Action:     models.AuditEntryCreated,
		EntityType: "journal_entry",
		EntityID:   &entry.ID,
		SourceIP:   middleware.ClientIP(r),
	})

	render.JSONWithStatus(w, toEntryResponse(entry), http.StatusCreated)
}

func (h *EntryHandler) list(w http.ResponseWriter, r *http.Request) {
	actor, ok := userctx.FromContext(r.Context())
	if !ok {
		render.ServiceError(w, "Unauthorized", http.StatusUnauthorized)
		return
	}

	entries, err := h.entries.List(r.Context(), actor)
	if err != nil {
		render.ServiceError(w, "Internal server error", http.StatusInternalServerError)
		return
	}

	render.JSON(w, toEntryResponses(entries))
}

func (h *EntryHandler) get(w http.ResponseWriter, r *http.Request) {
	actor, ok := userctx.FromContext(r.Context())
	if !ok {
		render.ServiceError(w, "Unauthorized", http.StatusUnauthorized)
		return
	}

	id, err := uuid.Parse(r.PathValue("id"))
	if err != nil {
		render.ServiceError(w, "Invalid entry id", http.StatusBadRequest)
		return
	}

	entry, err := h.entries.Get(r.Context(), actor, id)
	if err != nil {
		renderEntryError(w, err)
		return
	}

	render.JSON(w, toEntryResponse(entry))
}

func (h *EntryHandler) update(w http.ResponseWriter, r *http.Request) {
	type UpdateEntryRequest struct {
		Title   *string `json:"title" validate:"omitempty,min=1,max=200"`
		Content *string `json:"content"`
	}

	data, err := render.BindAndValidate[UpdateEntryRequest](w, r)
	if err != nil {
		return
	}

	actor, ok := userctx.FromContext(r.Context())
	if !ok {
		render.ServiceError(w, "Unauthorized", http.StatusUnauthorized)
		return
	}

	id, err := uuid.Parse(r.PathValue("id"))
	if err != nil {
		render.ServiceError(w, "Invalid entry id", http.StatusBadRequest)
		return
	}

	entry, err := h.entries.Update(r.Context(), actor, id, repository.UpdateEntryParams{
		Title:   data.Title,
		Content: data.Content,
	})
	if err != nil {
		renderEntryError(w, err)
		return
	}

	h.audit.Record(r.Context(), models.AuditRecord{
		ActorID:    &actor.ID,
		Action:     models.AuditEntryUpdated,
		EntityType: "journal_entry",
		EntityID:   &entry.ID,
		SourceIP:   middleware.ClientIP(r),
	})

	render.JSON(w, toEntryResponse(entry))
}

func (h *EntryHandler) delete(w http.ResponseWriter, r *http.Request) {
	actor, ok := userctx.FromContext(r.Context())
	if !ok {
		render.ServiceError(w, "Unauthorized", http.StatusUnauthorized)
		return
	}

	id, err := uuid.Parse(r.PathValue("id"))
	if err != nil {
		render.ServiceError(w, "Invalid entry id", http.StatusBadRequest)
		return
	}

	if err := h.entries.Delete(r.Context(), actor, id); err != nil {
		renderEntryError(w, err)
		return
	}

	h.audit.Record(r.Context(), models.AuditRecord{
		ActorID:    &actor.ID,
		Action:     models.AuditEntryDeleted,
		EntityType: "journal_entry",
		EntityID:   &id,
		SourceIP:   middleware.ClientIP(r),
	})

	w.WriteHeader(http.StatusNoContent)
}

func renderEntryError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, apperrors.ErrEntryNotFound):
		render.ServiceError(w, "Entry not found", http.StatusNotFound)
	case errors.Is(err, apperrors.ErrAccessDenied):
		render.ServiceError(w, "Access denied", http.StatusForbidden)
	default:
		render.ServiceError(w, "Internal server error", http.StatusInternalServerError)
	}
}
