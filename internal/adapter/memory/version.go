package memory

import (
	"context"
	"fmt"

	"github.com/google/uuid"

	"github.com/heartmarshall/campaign-notes/internal/domain"
)

// VersionRepo is the in-memory version log.
type VersionRepo struct {
	s *Store
}

func (r *VersionRepo) Insert(ctx context.Context, v domain.NoteVersion) (*domain.NoteVersion, error) {
	defer r.s.lock(ctx)()

	if _, ok := r.s.notes[v.NoteID]; !ok {
		return nil, fmt.Errorf("note_version %s: %w", v.ID, domain.ErrNotFound)
	}
	if v.Blocks == nil {
		v.Blocks = domain.Blocks{}
	}
	r.s.lastSeq[v.NoteID]++
	v.Seq = r.s.lastSeq[v.NoteID]

	stored := cloneVersion(&v)
	r.s.versions[v.NoteID] = append(r.s.versions[v.NoteID], stored)
	return cloneVersion(stored), nil
}

func (r *VersionRepo) EvictBeyond(ctx context.Context, noteID uuid.UUID, keep int) (int64, error) {
	defer r.s.lock(ctx)()

	vs := r.s.versions[noteID]
	if len(vs) <= keep {
		return 0, nil
	}
	evicted := len(vs) - keep
	r.s.versions[noteID] = append([]*domain.NoteVersion(nil), vs[evicted:]...)
	return int64(evicted), nil
}

func (r *VersionRepo) Count(ctx context.Context, noteID uuid.UUID) (int, error) {
	defer r.s.lock(ctx)()
	return len(r.s.versions[noteID]), nil
}

func (r *VersionRepo) ListByNote(ctx context.Context, noteID uuid.UUID) ([]domain.NoteVersionSummary, error) {
	defer r.s.lock(ctx)()

	vs := r.s.versions[noteID]
	out := make([]domain.NoteVersionSummary, 0, len(vs))
	for i := len(vs) - 1; i >= 0; i-- {
		v := vs[i]
		out = append(out, domain.NoteVersionSummary{
			ID:        v.ID,
			NoteID:    v.NoteID,
			EditorID:  v.EditorID,
			Seq:       v.Seq,
			Title:     v.Title,
			CreatedAt: v.CreatedAt,
		})
	}
	return out, nil
}

func (r *VersionRepo) GetByID(ctx context.Context, id uuid.UUID) (*domain.NoteVersion, error) {
	defer r.s.lock(ctx)()

	for _, vs := range r.s.versions {
		for _, v := range vs {
			if v.ID == id {
				return cloneVersion(v), nil
			}
		}
	}
	return nil, fmt.Errorf("note_version %s: %w", id, domain.ErrNotFound)
}
