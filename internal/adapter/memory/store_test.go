package memory

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/heartmarshall/campaign-notes/internal/domain"
)

func seedNote(t *testing.T, s *Store) *domain.Note {
	t.Helper()
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	n, err := s.Notes().Create(context.Background(), &domain.Note{
		ID:         uuid.New(),
		CampaignID: uuid.New(),
		OwnerID:    uuid.New(),
		Title:      "Session zero",
		Color:      domain.DefaultColor,
		CreatedAt:  now,
		UpdatedAt:  now,
	})
	require.NoError(t, err)
	return n
}

func TestRunInTx_RollbackRestoresState(t *testing.T) {
	t.Parallel()
	s := NewStore()
	n := seedNote(t, s)
	sentinel := errors.New("boom")

	err := s.RunInTx(context.Background(), func(ctx context.Context) error {
		if _, err := s.Versions().Insert(ctx, domain.NoteVersion{ID: uuid.New(), NoteID: n.ID}); err != nil {
			return err
		}
		title := "changed"
		if _, err := s.Notes().Update(ctx, n.ID, domain.NoteUpdate{Content: &domain.NoteContent{Title: title}}); err != nil {
			return err
		}
		if err := s.Audit().Log(ctx, domain.AuditRecord{ID: uuid.New(), EntityType: domain.EntityTypeNote, EntityID: &n.ID}); err != nil {
			return err
		}
		return sentinel
	})
	require.ErrorIs(t, err, sentinel)

	got, err := s.Notes().GetByID(context.Background(), n.ID)
	require.NoError(t, err)
	assert.Equal(t, "Session zero", got.Title)

	count, _ := s.Versions().Count(context.Background(), n.ID)
	assert.Zero(t, count)

	records, _ := s.Audit().ListByEntity(context.Background(), domain.EntityTypeNote, n.ID, 10)
	assert.Empty(t, records)

	// The sequence counter rolled back too.
	v, err := s.Versions().Insert(context.Background(), domain.NoteVersion{ID: uuid.New(), NoteID: n.ID})
	require.NoError(t, err)
	assert.Equal(t, int64(1), v.Seq)
}

func TestRunInTx_RollbackOnPanic(t *testing.T) {
	t.Parallel()
	s := NewStore()
	n := seedNote(t, s)

	assert.Panics(t, func() {
		_ = s.RunInTx(context.Background(), func(ctx context.Context) error {
			_ = s.Notes().Delete(ctx, n.ID)
			panic("test panic")
		})
	})

	_, err := s.Notes().GetByID(context.Background(), n.ID)
	assert.NoError(t, err)
}

func TestNoteRepo_ReturnsCopies(t *testing.T) {
	t.Parallel()
	s := NewStore()
	n := seedNote(t, s)

	got, err := s.Notes().GetByID(context.Background(), n.ID)
	require.NoError(t, err)
	got.Title = "mutated"
	got.Blocks = append(got.Blocks, domain.TextBlock{Value: "x"})

	again, err := s.Notes().GetByID(context.Background(), n.ID)
	require.NoError(t, err)
	assert.Equal(t, "Session zero", again.Title)
	assert.Empty(t, again.Blocks)
}

func TestNoteRepo_AcquireLock(t *testing.T) {
	t.Parallel()
	s := NewStore()
	n := seedNote(t, s)
	ctx := context.Background()
	ttl := 5 * time.Minute
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	a, b := uuid.New(), uuid.New()

	ok, _ := s.Notes().AcquireLock(ctx, n.ID, a, now, ttl)
	assert.True(t, ok)
	ok, _ = s.Notes().AcquireLock(ctx, n.ID, b, now.Add(ttl-time.Nanosecond), ttl)
	assert.False(t, ok)
	ok, _ = s.Notes().AcquireLock(ctx, n.ID, b, now.Add(ttl), ttl)
	assert.True(t, ok)
	ok, err := s.Notes().AcquireLock(ctx, uuid.New(), a, now, ttl)
	assert.False(t, ok)
	assert.ErrorIs(t, err, domain.ErrNotFound, "missing note")
}

func TestNoteRepo_RenewLock(t *testing.T) {
	t.Parallel()
	s := NewStore()
	n := seedNote(t, s)
	ctx := context.Background()
	ttl := 5 * time.Minute
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	a, b := uuid.New(), uuid.New()

	ok, err := s.Notes().RenewLock(ctx, n.ID, a, now)
	require.NoError(t, err)
	assert.False(t, ok, "unlocked note is not renewed")
	got, _ := s.Notes().GetByID(ctx, n.ID)
	assert.Nil(t, got.LockedBy, "renew never creates a lease")

	ok, _ = s.Notes().AcquireLock(ctx, n.ID, a, now, ttl)
	require.True(t, ok)

	later := now.Add(2 * ttl)
	ok, err = s.Notes().RenewLock(ctx, n.ID, a, later)
	require.NoError(t, err)
	assert.True(t, ok, "own lapsed lease is renewed")
	got, _ = s.Notes().GetByID(ctx, n.ID)
	assert.True(t, got.LockedAt.Equal(later))

	ok, err = s.Notes().RenewLock(ctx, n.ID, b, later)
	require.NoError(t, err)
	assert.False(t, ok)

	require.NoError(t, s.Notes().ClearLock(ctx, n.ID))
	ok, err = s.Notes().RenewLock(ctx, n.ID, a, later)
	require.NoError(t, err)
	assert.False(t, ok, "cleared lease stays cleared")

	_, err = s.Notes().RenewLock(ctx, uuid.New(), a, later)
	assert.ErrorIs(t, err, domain.ErrNotFound)
}

func TestVersionRepo_EvictBeyond_KeepsNewest(t *testing.T) {
	t.Parallel()
	s := NewStore()
	n := seedNote(t, s)
	ctx := context.Background()

	for range 5 {
		_, err := s.Versions().Insert(ctx, domain.NoteVersion{ID: uuid.New(), NoteID: n.ID})
		require.NoError(t, err)
	}
	evicted, err := s.Versions().EvictBeyond(ctx, n.ID, 3)
	require.NoError(t, err)
	assert.Equal(t, int64(2), evicted)

	list, err := s.Versions().ListByNote(ctx, n.ID)
	require.NoError(t, err)
	require.Len(t, list, 3)
	assert.Equal(t, []int64{5, 4, 3}, []int64{list[0].Seq, list[1].Seq, list[2].Seq})
}

func TestNoteRepo_DeleteCascadesVersions(t *testing.T) {
	t.Parallel()
	s := NewStore()
	n := seedNote(t, s)
	ctx := context.Background()

	v, err := s.Versions().Insert(ctx, domain.NoteVersion{ID: uuid.New(), NoteID: n.ID})
	require.NoError(t, err)
	require.NoError(t, s.Notes().Delete(ctx, n.ID))

	_, err = s.Versions().GetByID(ctx, v.ID)
	assert.ErrorIs(t, err, domain.ErrNotFound)
}
