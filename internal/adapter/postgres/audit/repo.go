// Package audit implements the append-only audit log using PostgreSQL.
package audit

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgtype"

	postgres "github.com/heartmarshall/campaign-notes/internal/adapter/postgres"
	"github.com/heartmarshall/campaign-notes/internal/domain"
)

const insertSQL = `
INSERT INTO audit_log (id, user_id, campaign_id, entity_type, entity_id, action, changes, created_at)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`

const listByEntitySQL = `
SELECT id, user_id, campaign_id, entity_type, entity_id, action, changes, created_at
FROM audit_log
WHERE entity_type = $1 AND entity_id = $2
ORDER BY created_at DESC
LIMIT $3`

// Repo provides audit log persistence backed by PostgreSQL.
type Repo struct {
	db postgres.Querier
}

// New creates a new audit repository.
func New(db postgres.Querier) *Repo {
	return &Repo{db: db}
}

// Log appends a record. Inside RunInTx it commits or rolls back together
// with the audited mutation.
func (r *Repo) Log(ctx context.Context, record domain.AuditRecord) error {
	changes := record.Changes
	if changes == nil {
		changes = map[string]any{}
	}
	changesJSON, err := json.Marshal(changes)
	if err != nil {
		return fmt.Errorf("audit_record marshal changes: %w", err)
	}

	_, err = postgres.QuerierFromCtx(ctx, r.db).Exec(ctx, insertSQL,
		record.ID, record.UserID, record.CampaignID,
		string(record.EntityType), postgres.UUIDPtrToPg(record.EntityID),
		string(record.Action), changesJSON, record.CreatedAt,
	)
	if err != nil {
		return postgres.MapError(err, "audit_record", record.ID)
	}
	return nil
}

// ListByEntity returns the audit history of one entity, newest first.
func (r *Repo) ListByEntity(ctx context.Context, entityType domain.EntityType, entityID uuid.UUID, limit int) ([]domain.AuditRecord, error) {
	rows, err := postgres.QuerierFromCtx(ctx, r.db).Query(ctx, listByEntitySQL, string(entityType), entityID, limit)
	if err != nil {
		return nil, fmt.Errorf("list audit_records by entity: %w", err)
	}
	defer rows.Close()

	records := make([]domain.AuditRecord, 0)
	for rows.Next() {
		var (
			rec        domain.AuditRecord
			entity     string
			action     string
			entityUUID pgtype.UUID
			changes    []byte
		)
		if err := rows.Scan(&rec.ID, &rec.UserID, &rec.CampaignID, &entity, &entityUUID, &action, &changes, &rec.CreatedAt); err != nil {
			return nil, fmt.Errorf("list audit_records scan: %w", err)
		}
		rec.EntityType = domain.EntityType(entity)
		rec.Action = domain.AuditAction(action)
		rec.EntityID = postgres.PgToUUIDPtr(entityUUID)
		if len(changes) > 0 {
			if err := json.Unmarshal(changes, &rec.Changes); err != nil {
				return nil, fmt.Errorf("audit_record %s unmarshal changes: %w", rec.ID, err)
			}
		}
		records = append(records, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("list audit_records rows: %w", err)
	}
	return records, nil
}
