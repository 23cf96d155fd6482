package note

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/google/uuid"

	"github.com/heartmarshall/campaign-notes/internal/domain"
)

// AcquireLease takes the edit lease on a visible note and returns the note
// with its new lock state.
func (s *Service) AcquireLease(ctx context.Context, noteID uuid.UUID) (*domain.NoteView, error) {
	c, err := callerFromCtx(ctx)
	if err != nil {
		return nil, err
	}

	if _, err := s.loadVisible(ctx, c, noteID, s.notes.GetByID); err != nil {
		return nil, err
	}

	if err := s.leases.Acquire(ctx, noteID, c.UserID); err != nil {
		s.log.DebugContext(ctx, "lease refused", c.attrs(noteID)...)
		return nil, translate(err, noteID)
	}

	n, err := s.notes.GetByID(ctx, noteID)
	if err != nil {
		return nil, fmt.Errorf("reload note: %w", err)
	}

	s.publish(ctx, domain.NoteEventLeaseAcquired, n, c.UserID, &c.UserID)
	return s.view(n, c.UserID), nil
}

// Heartbeat renews the caller's lease.
func (s *Service) Heartbeat(ctx context.Context, noteID uuid.UUID) error {
	c, err := callerFromCtx(ctx)
	if err != nil {
		return err
	}

	if _, err := s.loadVisible(ctx, c, noteID, s.notes.GetByID); err != nil {
		return err
	}

	return translate(s.leases.Heartbeat(ctx, noteID, c.UserID), noteID)
}

// ReleaseLease gives up the caller's lease. Releasing a note nobody holds
// succeeds without effect.
func (s *Service) ReleaseLease(ctx context.Context, noteID uuid.UUID) error {
	c, err := callerFromCtx(ctx)
	if err != nil {
		return err
	}

	n, err := s.loadVisible(ctx, c, noteID, s.notes.GetByID)
	if err != nil {
		return err
	}
	held := s.leases.IsHeldBy(n, c.UserID)

	if err := s.leases.Release(ctx, n, c.UserID); err != nil {
		return translate(err, noteID)
	}

	if held {
		s.publish(ctx, domain.NoteEventLeaseReleased, n, c.UserID, nil)
	}
	return nil
}

// ForceRelease clears any lease on the note. Reserved for the campaign
// owner; every use is written to the audit log.
func (s *Service) ForceRelease(ctx context.Context, noteID uuid.UUID) error {
	c, err := callerFromCtx(ctx)
	if err != nil {
		return err
	}

	var before *domain.Note
	err = s.tx.RunInTx(ctx, func(txCtx context.Context) error {
		n, err := s.loadVisible(txCtx, c, noteID, s.notes.GetForUpdate)
		if err != nil {
			return err
		}

		if err := s.leases.ForceRelease(txCtx, noteID, c.Role); err != nil {
			return translate(err, noteID)
		}

		changes := map[string]any{}
		if n.LockedBy != nil {
			changes["locked_by"] = map[string]any{"old": n.LockedBy.String()}
		}
		if n.LockedAt != nil {
			changes["locked_at"] = map[string]any{"old": n.LockedAt.UTC()}
		}
		if err := s.audit.Log(txCtx, domain.AuditRecord{
			ID:         uuid.New(),
			UserID:     c.UserID,
			CampaignID: c.CampaignID,
			EntityType: domain.EntityTypeNote,
			EntityID:   &noteID,
			Action:     domain.AuditActionForceRelease,
			Changes:    changes,
			CreatedAt:  s.clock.Now(),
		}); err != nil {
			return fmt.Errorf("audit force release: %w", err)
		}

		before = n
		return nil
	})
	if err != nil {
		return err
	}

	attrs := c.attrs(noteID)
	if before.LockedBy != nil {
		attrs = append(attrs, slog.String("previous_holder", before.LockedBy.String()))
	}
	s.log.WarnContext(ctx, "lease force released", attrs...)
	s.publish(ctx, domain.NoteEventLeaseForceReleased, before, c.UserID, before.LockedBy)
	return nil
}
