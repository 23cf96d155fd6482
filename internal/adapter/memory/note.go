package memory

import (
	"bytes"
	"context"
	"fmt"
	"slices"
	"time"

	"github.com/google/uuid"

	"github.com/heartmarshall/campaign-notes/internal/domain"
)

// NoteRepo is the in-memory note store.
type NoteRepo struct {
	s *Store
}

func (r *NoteRepo) GetByID(ctx context.Context, id uuid.UUID) (*domain.Note, error) {
	defer r.s.lock(ctx)()

	n, ok := r.s.notes[id]
	if !ok {
		return nil, fmt.Errorf("note %s: %w", id, domain.ErrNotFound)
	}
	return cloneNote(n), nil
}

// GetForUpdate is GetByID; the store mutex already serializes transactions.
func (r *NoteRepo) GetForUpdate(ctx context.Context, id uuid.UUID) (*domain.Note, error) {
	return r.GetByID(ctx, id)
}

func (r *NoteRepo) List(ctx context.Context, f domain.NoteFilter) ([]*domain.Note, error) {
	defer r.s.lock(ctx)()

	out := make([]*domain.Note, 0)
	for _, n := range r.s.notes {
		if n.CampaignID != f.CampaignID || (n.OwnerID != f.ViewerID && !n.IsShared) {
			continue
		}
		if f.EntityID != nil && (n.EntityID == nil || *n.EntityID != *f.EntityID) {
			continue
		}
		if f.CampaignWideOnly && n.EntityID != nil {
			continue
		}
		out = append(out, cloneNote(n))
	}

	slices.SortFunc(out, func(a, b *domain.Note) int {
		if a.Pinned != b.Pinned {
			if a.Pinned {
				return -1
			}
			return 1
		}
		if c := b.UpdatedAt.Compare(a.UpdatedAt); c != 0 {
			return c
		}
		return bytes.Compare(a.ID[:], b.ID[:])
	})
	return out, nil
}

func (r *NoteRepo) Create(ctx context.Context, n *domain.Note) (*domain.Note, error) {
	defer r.s.lock(ctx)()

	if _, exists := r.s.notes[n.ID]; exists {
		return nil, fmt.Errorf("note %s: %w", n.ID, domain.ErrAlreadyExists)
	}
	stored := cloneNote(n)
	if stored.Blocks == nil {
		stored.Blocks = domain.Blocks{}
	}
	r.s.notes[n.ID] = stored
	return cloneNote(stored), nil
}

func (r *NoteRepo) Update(ctx context.Context, id uuid.UUID, upd domain.NoteUpdate) (*domain.Note, error) {
	defer r.s.lock(ctx)()

	n, ok := r.s.notes[id]
	if !ok {
		return nil, fmt.Errorf("note %s: %w", id, domain.ErrNotFound)
	}

	editor := upd.LastEditedBy
	n.LastEditedBy = &editor
	n.UpdatedAt = upd.UpdatedAt
	if c := upd.Content; c != nil {
		n.Title = c.Title
		n.Blocks = c.Blocks.Clone()
		n.RichDocument = slices.Clone(c.RichDocument)
		n.RichDocumentRendered = clonePtr(c.RichDocumentRendered)
	}
	if upd.Color != nil {
		n.Color = *upd.Color
	}
	if upd.Pinned != nil {
		n.Pinned = *upd.Pinned
	}
	if upd.IsShared != nil {
		n.IsShared = *upd.IsShared
	}
	return cloneNote(n), nil
}

// Delete removes the note together with its versions.
func (r *NoteRepo) Delete(ctx context.Context, id uuid.UUID) error {
	defer r.s.lock(ctx)()

	if _, ok := r.s.notes[id]; !ok {
		return fmt.Errorf("note %s: %w", id, domain.ErrNotFound)
	}
	delete(r.s.notes, id)
	delete(r.s.versions, id)
	delete(r.s.lastSeq, id)
	return nil
}

func (r *NoteRepo) AcquireLock(ctx context.Context, id, holder uuid.UUID, now time.Time, ttl time.Duration) (bool, error) {
	defer r.s.lock(ctx)()

	n, ok := r.s.notes[id]
	if !ok {
		return false, fmt.Errorf("note %s: %w", id, domain.ErrNotFound)
	}
	cutoff := now.Add(-ttl)
	free := n.LockedBy == nil || n.LockedAt == nil || !n.LockedAt.After(cutoff) || *n.LockedBy == holder
	if !free {
		return false, nil
	}
	n.LockedBy = &holder
	n.LockedAt = &now
	return true, nil
}

// RenewLock moves lockedAt to now if the stored lease belongs to holder,
// expired or not. It never creates a lease.
func (r *NoteRepo) RenewLock(ctx context.Context, id, holder uuid.UUID, now time.Time) (bool, error) {
	defer r.s.lock(ctx)()

	n, ok := r.s.notes[id]
	if !ok {
		return false, fmt.Errorf("note %s: %w", id, domain.ErrNotFound)
	}
	if n.LockedBy == nil || *n.LockedBy != holder {
		return false, nil
	}
	n.LockedAt = &now
	return true, nil
}

func (r *NoteRepo) ReleaseLock(ctx context.Context, id, holder uuid.UUID) (bool, error) {
	defer r.s.lock(ctx)()

	n, ok := r.s.notes[id]
	if !ok || n.LockedBy == nil || *n.LockedBy != holder {
		return false, nil
	}
	n.LockedBy, n.LockedAt = nil, nil
	return true, nil
}

func (r *NoteRepo) ClearLock(ctx context.Context, id uuid.UUID) error {
	defer r.s.lock(ctx)()

	n, ok := r.s.notes[id]
	if !ok {
		return fmt.Errorf("note %s: %w", id, domain.ErrNotFound)
	}
	n.LockedBy, n.LockedAt = nil, nil
	return nil
}
