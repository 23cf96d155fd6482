package testhelper

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/heartmarshall/campaign-notes/internal/domain"
)

// SeedNote inserts an unlocked, unshared campaign-wide note owned by ownerID
// and returns it. Use the opts to adjust the row before insertion.
func SeedNote(t *testing.T, pool *pgxpool.Pool, campaignID, ownerID uuid.UUID, opts ...func(*domain.Note)) domain.Note {
	t.Helper()

	now := time.Now().UTC().Truncate(time.Microsecond)
	n := domain.Note{
		ID:         uuid.New(),
		CampaignID: campaignID,
		OwnerID:    ownerID,
		Title:      "Seeded " + uuid.New().String()[:8],
		Blocks:     domain.Blocks{},
		Color:      domain.DefaultColor,
		CreatedAt:  now,
		UpdatedAt:  now,
	}
	for _, opt := range opts {
		opt(&n)
	}

	_, err := pool.Exec(context.Background(),
		`INSERT INTO notes (id, campaign_id, owner_id, entity_id, title, blocks, color, pinned, is_shared, created_at, updated_at)
		 VALUES ($1, $2, $3, $4, $5, '[]'::jsonb, $6, $7, $8, $9, $10)`,
		n.ID, n.CampaignID, n.OwnerID, n.EntityID, n.Title, n.Color, n.Pinned, n.IsShared, n.CreatedAt, n.UpdatedAt,
	)
	if err != nil {
		t.Fatalf("testhelper: SeedNote insert: %v", err)
	}
	return n
}

// Shared marks a seeded note as shared with the campaign.
func Shared(n *domain.Note) { n.IsShared = true }

// OnEntity attaches a seeded note to an entity page.
func OnEntity(entityID uuid.UUID) func(*domain.Note) {
	return func(n *domain.Note) { n.EntityID = &entityID }
}
