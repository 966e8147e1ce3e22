package audit

import (
	"context"
	"errors"

	"github.com/Alekaz94/catholic-daily-companion/internal/logger"
	"github.com/Alekaz94/catholic-daily-companion/internal/models"
	"github.com/Alekaz94/catholic-daily-companion/internal/repository"
	"github.com/Alekaz94/catholic-daily-companion/internal/service/authz"
)

const defaultListLimit = 100

// AuditService appends security relevant records. Recording is best
// effort: a failed append is logged and never fails the guarded operation
type AuditService struct {
	storage repository.Storage
	logger  logger.Logger
}

func NewService(storage repository.Storage, l logger.Logger) (*AuditService, error) {
	if storage == nil {
		return nil, errors.New("storage must not be nil")
	}
	if l == nil {
		l = logger.NewNoOpLogger()
	}

	return &AuditService{storage: storage, logger: l}, nil
}

func (s *AuditService) Record(ctx context.Context, record models.AuditRecord) {
	if _, err := s.storage.Audit().Record(ctx, record); err != nil {
		s.logger.Warn("audit record not saved", "action", record.Action, "error", err)
	}
}

// List returns the most recent records. Admin only
func (s *AuditService) List(ctx context.Context, actor models.User, limit int) ([]models.AuditRecord, error) {
	if err := authz.RequireRole(actor, models.RoleAdmin); err != nil {
		return nil, err
	}

	if limit <= 0 {
		limit = defaultListLimit
	}

	return s.storage.Audit().ListRecords(ctx, limit)
}
