// Package version keeps a bounded, ordered history of note content and
// restores notes from it.
package version

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/google/uuid"
	"github.com/jonboulle/clockwork"

	"github.com/heartmarshall/campaign-notes/internal/domain"
)

// ErrVersionNotFound means the version never existed, was evicted, or
// belongs to a different note.
var ErrVersionNotFound = errors.New("version not found")

type versionStore interface {
	Insert(ctx context.Context, v domain.NoteVersion) (*domain.NoteVersion, error)
	EvictBeyond(ctx context.Context, noteID uuid.UUID, keep int) (int64, error)
	ListByNote(ctx context.Context, noteID uuid.UUID) ([]domain.NoteVersionSummary, error)
	GetByID(ctx context.Context, id uuid.UUID) (*domain.NoteVersion, error)
}

type noteWriter interface {
	Update(ctx context.Context, id uuid.UUID, upd domain.NoteUpdate) (*domain.Note, error)
}

type txManager interface {
	RunInTx(ctx context.Context, fn func(ctx context.Context) error) error
}

// Manager owns the per-note version log.
type Manager struct {
	versions    versionStore
	notes       noteWriter
	tx          txManager
	clock       clockwork.Clock
	maxVersions int
	log         *slog.Logger
}

// NewManager creates a version manager that keeps at most maxVersions
// snapshots per note.
func NewManager(
	log *slog.Logger,
	versions versionStore,
	notes noteWriter,
	tx txManager,
	clock clockwork.Clock,
	maxVersions int,
) *Manager {
	return &Manager{
		versions:    versions,
		notes:       notes,
		tx:          tx,
		clock:       clock,
		maxVersions: maxVersions,
		log:         log.With("service", "version"),
	}
}

// MaxVersions returns the per-note history cap.
func (m *Manager) MaxVersions() int { return m.maxVersions }

// Snapshot records the current content of n as its newest version and
// evicts the oldest versions past the cap in the same transaction.
func (m *Manager) Snapshot(ctx context.Context, n *domain.Note, editorID uuid.UUID) (*domain.NoteVersion, error) {
	var created *domain.NoteVersion
	err := m.tx.RunInTx(ctx, func(txCtx context.Context) error {
		var err error
		created, err = m.versions.Insert(txCtx, domain.NoteVersion{
			ID:          uuid.New(),
			NoteID:      n.ID,
			EditorID:    editorID,
			NoteContent: n.Content(),
			CreatedAt:   m.clock.Now(),
		})
		if err != nil {
			return fmt.Errorf("insert version: %w", err)
		}

		evicted, err := m.versions.EvictBeyond(txCtx, n.ID, m.maxVersions)
		if err != nil {
			return fmt.Errorf("evict versions: %w", err)
		}
		if evicted > 0 {
			m.log.DebugContext(ctx, "versions evicted",
				slog.String("note_id", n.ID.String()),
				slog.Int64("evicted", evicted),
			)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return created, nil
}

// List returns the history of noteID, newest first.
func (m *Manager) List(ctx context.Context, noteID uuid.UUID) ([]domain.NoteVersionSummary, error) {
	list, err := m.versions.ListByNote(ctx, noteID)
	if err != nil {
		return nil, fmt.Errorf("list versions: %w", err)
	}
	return list, nil
}

// Get returns one version of noteID.
func (m *Manager) Get(ctx context.Context, noteID, versionID uuid.UUID) (*domain.NoteVersion, error) {
	v, err := m.versions.GetByID(ctx, versionID)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return nil, ErrVersionNotFound
		}
		return nil, fmt.Errorf("get version: %w", err)
	}
	if v.NoteID != noteID {
		return nil, ErrVersionNotFound
	}
	return v, nil
}

// Restore snapshots the current content of n, then overwrites it with the
// content of versionID. Access and lease checks are the caller's concern.
// Restoring a version equal to the current content still snapshots.
func (m *Manager) Restore(ctx context.Context, n *domain.Note, versionID, editorID uuid.UUID) (*domain.Note, error) {
	var restored *domain.Note
	err := m.tx.RunInTx(ctx, func(txCtx context.Context) error {
		target, err := m.Get(txCtx, n.ID, versionID)
		if err != nil {
			return err
		}

		if _, err := m.Snapshot(txCtx, n, editorID); err != nil {
			return err
		}

		content := target.NoteContent
		restored, err = m.notes.Update(txCtx, n.ID, domain.NoteUpdate{
			Content:      &content,
			LastEditedBy: editorID,
			UpdatedAt:    m.clock.Now(),
		})
		if err != nil {
			return fmt.Errorf("apply version: %w", err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return restored, nil
}
