package note

import (
	"context"
	"fmt"

	"github.com/google/uuid"

	"github.com/heartmarshall/campaign-notes/internal/domain"
	"github.com/heartmarshall/campaign-notes/internal/service/visibility"
)

// DeleteNote removes a note and its history. Only the owner may delete,
// even when the note is shared.
func (s *Service) DeleteNote(ctx context.Context, noteID uuid.UUID) error {
	c, err := callerFromCtx(ctx)
	if err != nil {
		return err
	}

	var deleted *domain.Note
	err = s.tx.RunInTx(ctx, func(txCtx context.Context) error {
		n, err := s.loadVisible(txCtx, c, noteID, s.notes.GetForUpdate)
		if err != nil {
			return err
		}
		if !visibility.CanDelete(n, c.UserID) {
			return fmt.Errorf("note %s: %w: only the owner can delete", noteID, domain.ErrForbidden)
		}

		if err := s.notes.Delete(txCtx, noteID); err != nil {
			return fmt.Errorf("delete note: %w", err)
		}

		if err := s.audit.Log(txCtx, domain.AuditRecord{
			ID:         uuid.New(),
			UserID:     c.UserID,
			CampaignID: c.CampaignID,
			EntityType: domain.EntityTypeNote,
			EntityID:   &noteID,
			Action:     domain.AuditActionDelete,
			Changes:    map[string]any{"title": map[string]any{"old": n.Title}},
			CreatedAt:  s.clock.Now(),
		}); err != nil {
			return fmt.Errorf("audit delete: %w", err)
		}

		deleted = n
		return nil
	})
	if err != nil {
		return err
	}

	s.log.InfoContext(ctx, "note deleted", c.attrs(noteID)...)
	s.publish(ctx, domain.NoteEventDeleted, deleted, c.UserID, nil)
	return nil
}
