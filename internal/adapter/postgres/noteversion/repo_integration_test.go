//go:build integration

package noteversion_test

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/heartmarshall/campaign-notes/internal/adapter/postgres/note"
	"github.com/heartmarshall/campaign-notes/internal/adapter/postgres/noteversion"
	"github.com/heartmarshall/campaign-notes/internal/adapter/postgres/testhelper"
	"github.com/heartmarshall/campaign-notes/internal/domain"
)

func TestRepo_InsertAndEvict_KeepsNewest(t *testing.T) {
	t.Parallel()
	pool := testhelper.SetupTestDB(t)
	repo := noteversion.New(pool)
	ctx := context.Background()

	n := testhelper.SeedNote(t, pool, uuid.New(), uuid.New())
	base := time.Now().UTC().Truncate(time.Microsecond)
	const keep = 50

	for i := 1; i <= keep+7; i++ {
		v, err := repo.Insert(ctx, domain.NoteVersion{
			ID:          uuid.New(),
			NoteID:      n.ID,
			EditorID:    n.OwnerID,
			NoteContent: domain.NoteContent{Title: fmt.Sprintf("rev %d", i), Blocks: domain.Blocks{}},
			CreatedAt:   base.Add(time.Duration(i) * time.Second),
		})
		require.NoError(t, err)
		assert.Equal(t, int64(i), v.Seq)
		_, err = repo.EvictBeyond(ctx, n.ID, keep)
		require.NoError(t, err)
	}

	count, err := repo.Count(ctx, n.ID)
	require.NoError(t, err)
	assert.Equal(t, keep, count)

	list, err := repo.ListByNote(ctx, n.ID)
	require.NoError(t, err)
	require.Len(t, list, keep)
	assert.Equal(t, "rev 57", list[0].Title)
	assert.Equal(t, "rev 8", list[keep-1].Title)
}

func TestRepo_DeleteNote_CascadesVersions(t *testing.T) {
	t.Parallel()
	pool := testhelper.SetupTestDB(t)
	repo := noteversion.New(pool)
	notes := note.New(pool)
	ctx := context.Background()

	n := testhelper.SeedNote(t, pool, uuid.New(), uuid.New())
	v, err := repo.Insert(ctx, domain.NoteVersion{
		ID: uuid.New(), NoteID: n.ID, EditorID: n.OwnerID,
		NoteContent: domain.NoteContent{Title: "old"}, CreatedAt: time.Now().UTC(),
	})
	require.NoError(t, err)

	require.NoError(t, notes.Delete(ctx, n.ID))

	_, err = repo.GetByID(ctx, v.ID)
	assert.ErrorIs(t, err, domain.ErrNotFound)
}
