package note

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/google/uuid"

	"github.com/heartmarshall/campaign-notes/internal/domain"
)

// CreateNote creates a note owned by the caller in the caller's campaign.
func (s *Service) CreateNote(ctx context.Context, input CreateNoteInput) (*domain.NoteView, error) {
	c, err := callerFromCtx(ctx)
	if err != nil {
		return nil, err
	}

	if err := input.Validate(); err != nil {
		return nil, err
	}

	title, _ := domain.NormalizeTitle(input.Title)
	color, _ := domain.NormalizeColor(input.Color)
	doc, rendered, err := renderRichDocument(input.RichDocument)
	if err != nil {
		return nil, err
	}
	blocks := input.Blocks.Clone()

	now := s.clock.Now()
	created, err := s.notes.Create(ctx, &domain.Note{
		ID:                   uuid.New(),
		CampaignID:           c.CampaignID,
		OwnerID:              c.UserID,
		EntityID:             input.EntityID,
		Title:                title,
		Blocks:               blocks,
		RichDocument:         doc,
		RichDocumentRendered: rendered,
		Color:                color,
		Pinned:               input.Pinned,
		IsShared:             input.IsShared,
		LastEditedBy:         &c.UserID,
		CreatedAt:            now,
		UpdatedAt:            now,
	})
	if err != nil {
		return nil, fmt.Errorf("create note: %w", err)
	}

	s.log.InfoContext(ctx, "note created", append(c.attrs(created.ID), slog.Bool("shared", created.IsShared))...)

	return s.view(created, c.UserID), nil
}
