// Package memory is an in-process implementation of the note, version and
// audit stores. It backs the server in local development mode and the
// service-level tests.
//
// A single mutex guards all state. RunInTx holds it for the whole callback
// and restores a snapshot if the callback fails, so transactions are
// serializable and atomic.
package memory

import (
	"context"
	"slices"
	"sync"

	"github.com/google/uuid"

	"github.com/heartmarshall/campaign-notes/internal/domain"
)

type txKey struct{}

// Store holds all in-memory state.
type Store struct {
	mu       sync.Mutex
	notes    map[uuid.UUID]*domain.Note
	versions map[uuid.UUID][]*domain.NoteVersion // per note, ascending seq
	lastSeq  map[uuid.UUID]int64
	audit    []domain.AuditRecord
}

// NewStore creates an empty store.
func NewStore() *Store {
	return &Store{
		notes:    make(map[uuid.UUID]*domain.Note),
		versions: make(map[uuid.UUID][]*domain.NoteVersion),
		lastSeq:  make(map[uuid.UUID]int64),
	}
}

// Notes returns the note store view.
func (s *Store) Notes() *NoteRepo { return &NoteRepo{s: s} }

// Versions returns the version store view.
func (s *Store) Versions() *VersionRepo { return &VersionRepo{s: s} }

// Audit returns the audit log view.
func (s *Store) Audit() *AuditRepo { return &AuditRepo{s: s} }

// RunInTx executes fn with exclusive access to the store. If fn returns an
// error or panics, every change it made is discarded. Nested calls join the
// outer transaction.
func (s *Store) RunInTx(ctx context.Context, fn func(ctx context.Context) error) (err error) {
	if s.inTx(ctx) {
		return fn(ctx)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	snap := s.snapshot()
	defer func() {
		if r := recover(); r != nil {
			s.restore(snap)
			panic(r)
		}
	}()

	if err := fn(context.WithValue(ctx, txKey{}, s)); err != nil {
		s.restore(snap)
		return err
	}
	return nil
}

func (s *Store) inTx(ctx context.Context) bool {
	owner, _ := ctx.Value(txKey{}).(*Store)
	return owner == s
}

// lock acquires the store mutex unless ctx already runs inside RunInTx.
func (s *Store) lock(ctx context.Context) func() {
	if s.inTx(ctx) {
		return func() {}
	}
	s.mu.Lock()
	return s.mu.Unlock
}

type snapshot struct {
	notes    map[uuid.UUID]*domain.Note
	versions map[uuid.UUID][]*domain.NoteVersion
	lastSeq  map[uuid.UUID]int64
	audit    int
}

func (s *Store) snapshot() snapshot {
	snap := snapshot{
		notes:    make(map[uuid.UUID]*domain.Note, len(s.notes)),
		versions: make(map[uuid.UUID][]*domain.NoteVersion, len(s.versions)),
		lastSeq:  make(map[uuid.UUID]int64, len(s.lastSeq)),
		audit:    len(s.audit),
	}
	for id, n := range s.notes {
		snap.notes[id] = cloneNote(n)
	}
	// Versions are immutable once stored; copying the slices is enough.
	for id, vs := range s.versions {
		snap.versions[id] = slices.Clone(vs)
	}
	for id, seq := range s.lastSeq {
		snap.lastSeq[id] = seq
	}
	return snap
}

func (s *Store) restore(snap snapshot) {
	s.notes = snap.notes
	s.versions = snap.versions
	s.lastSeq = snap.lastSeq
	s.audit = s.audit[:snap.audit]
}

func cloneNote(n *domain.Note) *domain.Note {
	cp := *n
	cp.Blocks = n.Blocks.Clone()
	if n.RichDocument != nil {
		cp.RichDocument = slices.Clone(n.RichDocument)
	}
	cp.EntityID = clonePtr(n.EntityID)
	cp.RichDocumentRendered = clonePtr(n.RichDocumentRendered)
	cp.LastEditedBy = clonePtr(n.LastEditedBy)
	cp.LockedBy = clonePtr(n.LockedBy)
	cp.LockedAt = clonePtr(n.LockedAt)
	return &cp
}

func cloneVersion(v *domain.NoteVersion) *domain.NoteVersion {
	cp := *v
	cp.Blocks = v.Blocks.Clone()
	if v.RichDocument != nil {
		cp.RichDocument = slices.Clone(v.RichDocument)
	}
	cp.RichDocumentRendered = clonePtr(v.RichDocumentRendered)
	return &cp
}

func clonePtr[T any](p *T) *T {
	if p == nil {
		return nil
	}
	v := *p
	return &v
}
