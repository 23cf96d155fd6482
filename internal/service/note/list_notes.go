package note

import (
	"context"
	"fmt"

	"github.com/heartmarshall/campaign-notes/internal/domain"
)

// ListNotes returns the notes visible to the caller in the requested scope.
// Returns an empty slice (not nil) when nothing is visible.
func (s *Service) ListNotes(ctx context.Context, input ListNotesInput) ([]*domain.NoteView, error) {
	c, err := callerFromCtx(ctx)
	if err != nil {
		return nil, err
	}

	if err := input.Validate(); err != nil {
		return nil, err
	}

	var notes []*domain.Note
	switch input.scope() {
	case domain.NoteScopeCampaign:
		notes, err = s.visible.ListCampaignWide(ctx, c.UserID, c.CampaignID)
	case domain.NoteScopeEntity:
		notes, err = s.visible.ListByEntity(ctx, c.UserID, c.CampaignID, *input.EntityID)
	default:
		notes, err = s.visible.ListMine(ctx, c.UserID, c.CampaignID)
	}
	if err != nil {
		return nil, fmt.Errorf("list notes: %w", err)
	}

	views := make([]*domain.NoteView, len(notes))
	for i, n := range notes {
		views[i] = s.view(n, c.UserID)
	}
	return views, nil
}
