package domain

import (
	"time"

	"github.com/google/uuid"
)

// AuditRecord captures an attributable mutation for the audit log.
type AuditRecord struct {
	ID         uuid.UUID
	UserID     uuid.UUID
	CampaignID uuid.UUID
	EntityType EntityType
	EntityID   *uuid.UUID
	Action     AuditAction
	Changes    map[string]any
	CreatedAt  time.Time
}
