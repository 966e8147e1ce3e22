package postgres

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/Alekaz94/catholic-daily-companion/internal/models"
)

type AuditRepo struct {
	DB DBTX
}

const recordAudit = `-- name: RecordAudit
INSERT INTO audit_records (id, actor_id, action, entity_type, entity_id, metadata, source_ip)
VALUES ($1, $2, $3, $4, $5, $6, $7)
RETURNING id, created_at, actor_id, action, entity_type, entity_id, metadata, source_ip
`

func (r *AuditRepo) Record(ctx context.Context, record models.AuditRecord) (models.AuditRecord, error) {
	if record.ID == uuid.Nil {
		record.ID = uuid.New()
	}
	if record.Metadata == nil {
		record.Metadata = map[string]any{}
	}

	rows, _ := r.DB.Query(ctx, recordAudit,
		record.ID,
		record.ActorID,
		record.Action,
		record.EntityType,
		record.EntityID,
		record.Metadata,
		record.SourceIP,
	)
	saved, err := pgx.CollectOneRow(rows, rowToAuditRecord)
	if err != nil {
		return saved, fmt.Errorf("db error: %w", err)
	}
	return saved, nil
}

const listAudit = `-- name: ListAudit most recent first
SELECT id, created_at, actor_id, action, entity_type, entity_id, metadata, source_ip
FROM audit_records
ORDER BY created_at DESC
LIMIT $1
`

func (r *AuditRepo) ListRecords(ctx context.Context, limit int) ([]models.AuditRecord, error) {
	rows, _ := r.DB.Query(ctx, listAudit, limit)
	records, err := pgx.CollectRows(rows, rowToAuditRecord)
	if err != nil {
		return nil, fmt.Errorf("db error: %w", err)
	}
	return records, nil
}

func rowToAuditRecord(row pgx.CollectableRow) (models.AuditRecord, error) {
	var a models.AuditRecord
	err := row.Scan(&a.ID, &a.CreatedAt, &a.ActorID, &a.Action, &a.EntityType, &a.EntityID, &a.Metadata, &a.SourceIP)
	return a, err
}
