package visibility

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/heartmarshall/campaign-notes/internal/adapter/memory"
	"github.com/heartmarshall/campaign-notes/internal/domain"
)

func TestCanAccess(t *testing.T) {
	t.Parallel()

	campaign, owner, other := uuid.New(), uuid.New(), uuid.New()

	tests := []struct {
		name       string
		note       domain.Note
		userID     uuid.UUID
		campaignID uuid.UUID
		want       bool
	}{
		{"owner", domain.Note{CampaignID: campaign, OwnerID: owner}, owner, campaign, true},
		{"member on private note", domain.Note{CampaignID: campaign, OwnerID: owner}, other, campaign, false},
		{"member on shared note", domain.Note{CampaignID: campaign, OwnerID: owner, IsShared: true}, other, campaign, true},
		{"owner from another campaign", domain.Note{CampaignID: campaign, OwnerID: owner}, owner, uuid.New(), false},
		{"shared note from another campaign", domain.Note{CampaignID: campaign, OwnerID: owner, IsShared: true}, other, uuid.New(), false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			if got := CanAccess(&tt.note, tt.userID, tt.campaignID); got != tt.want {
				t.Errorf("CanAccess() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestOwnerOnlyChecks(t *testing.T) {
	t.Parallel()

	owner, member := uuid.New(), uuid.New()
	n := &domain.Note{OwnerID: owner, IsShared: true}

	if !CanChangeSharingOrPin(n, owner) || !CanDelete(n, owner) {
		t.Error("owner must be allowed to pin, share and delete")
	}
	if CanChangeSharingOrPin(n, member) {
		t.Error("member must not change pin or share flags on a shared note")
	}
	if CanDelete(n, member) {
		t.Error("member must not delete a shared note")
	}
}

func TestResolver_Scopes(t *testing.T) {
	t.Parallel()

	store := memory.NewStore()
	r := NewResolver(store.Notes())
	ctx := context.Background()
	campaign, me, other, entity := uuid.New(), uuid.New(), uuid.New(), uuid.New()

	put := func(owner uuid.UUID, shared bool, entityID *uuid.UUID) uuid.UUID {
		n, err := store.Notes().Create(ctx, &domain.Note{
			ID: uuid.New(), CampaignID: campaign, OwnerID: owner, EntityID: entityID,
			IsShared: shared, Title: "n", CreatedAt: time.Now(), UpdatedAt: time.Now(),
		})
		if err != nil {
			t.Fatalf("seed: %v", err)
		}
		return n.ID
	}
	mine := put(me, false, nil)
	mineOnEntity := put(me, false, &entity)
	sharedOnEntity := put(other, true, &entity)
	sharedWide := put(other, true, nil)
	put(other, false, nil)
	put(other, false, &entity)

	ids := func(notes []*domain.Note) map[uuid.UUID]bool {
		out := make(map[uuid.UUID]bool, len(notes))
		for _, n := range notes {
			out[n.ID] = true
		}
		return out
	}

	all, err := r.ListMine(ctx, me, campaign)
	if err != nil {
		t.Fatalf("ListMine: %v", err)
	}
	if got := ids(all); len(got) != 4 || !got[mine] || !got[mineOnEntity] || !got[sharedOnEntity] || !got[sharedWide] {
		t.Errorf("ListMine returned %v", got)
	}

	wide, err := r.ListCampaignWide(ctx, me, campaign)
	if err != nil {
		t.Fatalf("ListCampaignWide: %v", err)
	}
	if got := ids(wide); len(got) != 2 || !got[mine] || !got[sharedWide] {
		t.Errorf("ListCampaignWide returned %v", got)
	}

	onEntity, err := r.ListByEntity(ctx, me, campaign, entity)
	if err != nil {
		t.Fatalf("ListByEntity: %v", err)
	}
	if got := ids(onEntity); len(got) != 2 || !got[mineOnEntity] || !got[sharedOnEntity] {
		t.Errorf("ListByEntity returned %v", got)
	}

	none, err := r.ListMine(ctx, me, uuid.New())
	if err != nil {
		t.Fatalf("ListMine other campaign: %v", err)
	}
	if none == nil || len(none) != 0 {
		t.Errorf("ListMine for another campaign = %v, want empty non-nil", none)
	}
}
