// Package visibility decides which notes a caller may see and act on.
//
// A note is visible to a caller when it belongs to the caller's campaign and
// the caller owns it or it is shared. Callers that fail this check must be
// told the note does not exist.
package visibility

import (
	"context"
	"fmt"

	"github.com/google/uuid"

	"github.com/heartmarshall/campaign-notes/internal/domain"
)

type noteLister interface {
	List(ctx context.Context, f domain.NoteFilter) ([]*domain.Note, error)
}

// Resolver implements the three list scopes and the per-note access checks.
type Resolver struct {
	notes noteLister
}

// NewResolver creates a Resolver.
func NewResolver(notes noteLister) *Resolver {
	return &Resolver{notes: notes}
}

// ListMine returns the caller's notes plus everything shared in the
// campaign, regardless of entity scope.
func (r *Resolver) ListMine(ctx context.Context, userID, campaignID uuid.UUID) ([]*domain.Note, error) {
	return r.list(ctx, domain.NoteFilter{CampaignID: campaignID, ViewerID: userID})
}

// ListCampaignWide returns visible notes that are not attached to an entity.
func (r *Resolver) ListCampaignWide(ctx context.Context, userID, campaignID uuid.UUID) ([]*domain.Note, error) {
	return r.list(ctx, domain.NoteFilter{CampaignID: campaignID, ViewerID: userID, CampaignWideOnly: true})
}

// ListByEntity returns visible notes attached to entityID.
func (r *Resolver) ListByEntity(ctx context.Context, userID, campaignID, entityID uuid.UUID) ([]*domain.Note, error) {
	return r.list(ctx, domain.NoteFilter{CampaignID: campaignID, ViewerID: userID, EntityID: &entityID})
}

func (r *Resolver) list(ctx context.Context, f domain.NoteFilter) ([]*domain.Note, error) {
	notes, err := r.notes.List(ctx, f)
	if err != nil {
		return nil, fmt.Errorf("list visible notes: %w", err)
	}
	// The store filters already; this keeps the predicate authoritative.
	out := notes[:0]
	for _, n := range notes {
		if CanAccess(n, f.ViewerID, f.CampaignID) {
			out = append(out, n)
		}
	}
	return out, nil
}

// CanAccess gates every single-note read, mutation and lease operation.
func CanAccess(n *domain.Note, userID, campaignID uuid.UUID) bool {
	return n.CampaignID == campaignID && (n.OwnerID == userID || n.IsShared)
}

// CanChangeSharingOrPin reports whether userID may change the pin and share
// flags of n. Only the owner may.
func CanChangeSharingOrPin(n *domain.Note, userID uuid.UUID) bool {
	return n.OwnerID == userID
}

// CanDelete reports whether userID may delete n. Only the owner may, even
// when the note is shared.
func CanDelete(n *domain.Note, userID uuid.UUID) bool {
	return n.OwnerID == userID
}
