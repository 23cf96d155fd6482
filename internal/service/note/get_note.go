package note

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"

	"github.com/heartmarshall/campaign-notes/internal/domain"
	"github.com/heartmarshall/campaign-notes/internal/service/visibility"
)

// GetNote returns a visible note with its current lease state.
func (s *Service) GetNote(ctx context.Context, noteID uuid.UUID) (*domain.NoteView, error) {
	c, err := callerFromCtx(ctx)
	if err != nil {
		return nil, err
	}

	n, err := s.loadVisible(ctx, c, noteID, s.notes.GetByID)
	if err != nil {
		return nil, err
	}
	return s.view(n, c.UserID), nil
}

// loadVisible reads a note with get and hides it unless the caller may
// access it.
func (s *Service) loadVisible(
	ctx context.Context,
	c caller,
	noteID uuid.UUID,
	get func(context.Context, uuid.UUID) (*domain.Note, error),
) (*domain.Note, error) {
	n, err := get(ctx, noteID)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return nil, fmt.Errorf("note %s: %w", noteID, domain.ErrNotFound)
		}
		return nil, fmt.Errorf("get note: %w", err)
	}
	if !visibility.CanAccess(n, c.UserID, c.CampaignID) {
		return nil, fmt.Errorf("note %s: %w", noteID, domain.ErrNotFound)
	}
	return n, nil
}
