package note

import (
	"context"
	"fmt"

	"github.com/heartmarshall/campaign-notes/internal/domain"
)

// ToggleCheck flips one checklist item. It bypasses the lease and never
// snapshots; checkbox clicks are not revisions.
func (s *Service) ToggleCheck(ctx context.Context, input ToggleCheckInput) (*domain.NoteView, error) {
	c, err := callerFromCtx(ctx)
	if err != nil {
		return nil, err
	}

	if err := input.Validate(); err != nil {
		return nil, err
	}

	var updated *domain.Note
	err = s.tx.RunInTx(ctx, func(txCtx context.Context) error {
		n, err := s.loadVisible(txCtx, c, input.NoteID, s.notes.GetForUpdate)
		if err != nil {
			return err
		}

		blocks, err := toggle(n.Blocks, input.BlockIndex, input.ItemIndex)
		if err != nil {
			return err
		}

		content := n.Content()
		content.Blocks = blocks
		updated, err = s.notes.Update(txCtx, n.ID, domain.NoteUpdate{
			Content:      &content,
			LastEditedBy: c.UserID,
			UpdatedAt:    s.clock.Now(),
		})
		if err != nil {
			return fmt.Errorf("toggle check: %w", err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.publish(ctx, domain.NoteEventUpdated, updated, c.UserID, nil)

	return s.view(updated, c.UserID), nil
}

// toggle returns a copy of blocks with one item flipped.
func toggle(blocks domain.Blocks, blockIndex, itemIndex int) (domain.Blocks, error) {
	if blockIndex >= len(blocks) {
		return nil, domain.NewValidationError("blockIndex", "out of range")
	}

	out := blocks.Clone()
	switch b := out[blockIndex].(type) {
	case domain.ChecklistBlock:
		if itemIndex >= len(b.Items) {
			return nil, domain.NewValidationError("itemIndex", "out of range")
		}
		b.Items[itemIndex].Checked = !b.Items[itemIndex].Checked
		out[blockIndex] = b
	default:
		return nil, domain.NewValidationError("blockIndex", "not a checklist block")
	}
	return out, nil
}
