package note

import (
	"context"
	"fmt"

	"github.com/google/uuid"

	"github.com/heartmarshall/campaign-notes/internal/domain"
	"github.com/heartmarshall/campaign-notes/internal/service/lease"
)

// ListVersions returns the history of a visible note, newest first.
func (s *Service) ListVersions(ctx context.Context, noteID uuid.UUID) ([]domain.NoteVersionSummary, error) {
	c, err := callerFromCtx(ctx)
	if err != nil {
		return nil, err
	}

	if _, err := s.loadVisible(ctx, c, noteID, s.notes.GetByID); err != nil {
		return nil, err
	}

	list, err := s.versions.List(ctx, noteID)
	if err != nil {
		return nil, fmt.Errorf("list versions: %w", err)
	}
	return list, nil
}

// GetVersion returns one full snapshot of a visible note.
func (s *Service) GetVersion(ctx context.Context, noteID, versionID uuid.UUID) (*domain.NoteVersion, error) {
	c, err := callerFromCtx(ctx)
	if err != nil {
		return nil, err
	}

	if _, err := s.loadVisible(ctx, c, noteID, s.notes.GetByID); err != nil {
		return nil, err
	}

	v, err := s.versions.Get(ctx, noteID, versionID)
	if err != nil {
		return nil, translate(err, noteID)
	}
	return v, nil
}

// RestoreVersion replaces the note content with a stored snapshot. It is a
// content edit: a foreign active lease refuses it, and the pre-restore state
// becomes the newest version.
func (s *Service) RestoreVersion(ctx context.Context, noteID, versionID uuid.UUID) (*domain.NoteView, error) {
	c, err := callerFromCtx(ctx)
	if err != nil {
		return nil, err
	}

	var restored *domain.Note
	err = s.tx.RunInTx(ctx, func(txCtx context.Context) error {
		n, err := s.loadVisible(txCtx, c, noteID, s.notes.GetForUpdate)
		if err != nil {
			return err
		}
		if s.leases.BlocksWriter(n, c.UserID) {
			return translate(lease.ErrHeld, noteID)
		}

		restored, err = s.versions.Restore(txCtx, n, versionID, c.UserID)
		if err != nil {
			return translate(err, noteID)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.log.InfoContext(ctx, "note restored", c.attrs(noteID)...)
	s.publish(ctx, domain.NoteEventRestored, restored, c.UserID, nil)

	return s.view(restored, c.UserID), nil
}
