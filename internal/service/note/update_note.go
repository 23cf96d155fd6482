package note

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"reflect"

	"github.com/heartmarshall/campaign-notes/internal/domain"
	"github.com/heartmarshall/campaign-notes/internal/service/lease"
	"github.com/heartmarshall/campaign-notes/internal/service/visibility"
)

// UpdateNote applies a partial update. Content changes are refused while
// someone else holds an active lease and snapshot the previous content
// first. Pin and share changes from non-owners are dropped silently.
func (s *Service) UpdateNote(ctx context.Context, input UpdateNoteInput) (*domain.NoteView, error) {
	c, err := callerFromCtx(ctx)
	if err != nil {
		return nil, err
	}

	if err := input.Validate(); err != nil {
		return nil, err
	}

	var (
		doc      = input.RichDocument
		rendered *string
	)
	if input.RichDocument != nil {
		doc, rendered, err = renderRichDocument(input.RichDocument)
		if err != nil {
			return nil, err
		}
	}

	var (
		updated        *domain.Note
		contentChanged bool
		written        bool
	)
	err = s.tx.RunInTx(ctx, func(txCtx context.Context) error {
		n, err := s.loadVisible(txCtx, c, input.NoteID, s.notes.GetForUpdate)
		if err != nil {
			return err
		}

		if !visibility.CanChangeSharingOrPin(n, c.UserID) && (input.Pinned != nil || input.IsShared != nil) {
			s.log.DebugContext(ctx, "dropping owner-only fields", c.attrs(n.ID)...)
			input.Pinned, input.IsShared = nil, nil
		}

		if input.touchesContent() && s.leases.BlocksWriter(n, c.UserID) {
			s.log.DebugContext(ctx, "update refused: lease held", c.attrs(n.ID)...)
			return translate(lease.ErrHeld, n.ID)
		}

		upd := domain.NoteUpdate{
			Color:        normalizedColor(input.Color),
			Pinned:       input.Pinned,
			IsShared:     input.IsShared,
			LastEditedBy: c.UserID,
			UpdatedAt:    s.clock.Now(),
		}

		next := n.Content()
		if input.Title != nil {
			next.Title, _ = domain.NormalizeTitle(*input.Title)
		}
		if input.Blocks != nil {
			next.Blocks = input.Blocks.Clone()
		}
		if input.RichDocument != nil {
			next.RichDocument, next.RichDocumentRendered = doc, rendered
		}
		contentChanged = !sameContent(n.Content(), next)

		if contentChanged {
			if _, err := s.versions.Snapshot(txCtx, n, c.UserID); err != nil {
				return fmt.Errorf("snapshot note: %w", err)
			}
			upd.Content = &next
		}

		if upd.Content == nil && upd.Color == nil && upd.Pinned == nil && upd.IsShared == nil {
			updated = n
			return nil
		}

		updated, err = s.notes.Update(txCtx, n.ID, upd)
		if err != nil {
			return fmt.Errorf("update note: %w", err)
		}
		written = true
		return nil
	})
	if err != nil {
		return nil, err
	}
	if !written {
		return s.view(updated, c.UserID), nil
	}

	s.log.InfoContext(ctx, "note updated", append(c.attrs(updated.ID), slog.Bool("content_changed", contentChanged))...)
	s.publish(ctx, domain.NoteEventUpdated, updated, c.UserID, nil)

	return s.view(updated, c.UserID), nil
}

func normalizedColor(color *string) *string {
	if color == nil {
		return nil
	}
	normalized, _ := domain.NormalizeColor(*color)
	return &normalized
}

// sameContent compares content-bearing fields. The rendering is derived
// from the document and is not compared on its own.
func sameContent(a, b domain.NoteContent) bool {
	return a.Title == b.Title && a.Blocks.Equal(b.Blocks) && sameDocument(a.RichDocument, b.RichDocument)
}

// sameDocument compares two JSON documents by value, so formatting and key
// order (the store may normalize both) do not count as a change.
func sameDocument(a, b json.RawMessage) bool {
	if a == nil || b == nil {
		return a == nil && b == nil
	}
	if bytes.Equal(a, b) {
		return true
	}
	var va, vb any
	if json.Unmarshal(a, &va) != nil || json.Unmarshal(b, &vb) != nil {
		return false
	}
	return reflect.DeepEqual(va, vb)
}
