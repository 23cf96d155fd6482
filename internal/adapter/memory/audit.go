package memory

import (
	"context"
	"maps"

	"github.com/google/uuid"

	"github.com/heartmarshall/campaign-notes/internal/domain"
)

// AuditRepo is the in-memory audit log.
type AuditRepo struct {
	s *Store
}

func (r *AuditRepo) Log(ctx context.Context, record domain.AuditRecord) error {
	defer r.s.lock(ctx)()

	record.Changes = maps.Clone(record.Changes)
	r.s.audit = append(r.s.audit, record)
	return nil
}

// ListByEntity returns the audit history of one entity, newest first.
func (r *AuditRepo) ListByEntity(ctx context.Context, entityType domain.EntityType, entityID uuid.UUID, limit int) ([]domain.AuditRecord, error) {
	defer r.s.lock(ctx)()

	out := make([]domain.AuditRecord, 0)
	for i := len(r.s.audit) - 1; i >= 0 && len(out) < limit; i-- {
		rec := r.s.audit[i]
		if rec.EntityType == entityType && rec.EntityID != nil && *rec.EntityID == entityID {
			out = append(out, rec)
		}
	}
	return out, nil
}
