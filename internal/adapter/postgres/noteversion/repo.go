// Package noteversion implements the bounded note version log using
// PostgreSQL. Each snapshot of a note gets the next per-note sequence
// number; eviction always removes the lowest sequence numbers first.
package noteversion

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgtype"

	postgres "github.com/heartmarshall/campaign-notes/internal/adapter/postgres"
	"github.com/heartmarshall/campaign-notes/internal/domain"
)

const insertSQL = `
INSERT INTO note_versions
    (id, note_id, seq, editor_id, title, blocks, rich_document, rich_document_rendered, created_at)
SELECT $1, $2, COALESCE(MAX(seq), 0) + 1, $3, $4, $5, $6, $7, $8
FROM note_versions
WHERE note_id = $2
RETURNING seq`

// Everything more than $2 positions behind the newest sequence goes.
const evictSQL = `
DELETE FROM note_versions
WHERE note_id = $1
  AND seq <= (SELECT MAX(seq) FROM note_versions WHERE note_id = $1) - $2`

const countSQL = `SELECT count(*) FROM note_versions WHERE note_id = $1`

const listSQL = `
SELECT id, note_id, editor_id, seq, title, created_at
FROM note_versions
WHERE note_id = $1
ORDER BY seq DESC`

const getSQL = `
SELECT id, note_id, editor_id, seq, title, blocks, rich_document, rich_document_rendered, created_at
FROM note_versions
WHERE id = $1`

// Repo provides note version persistence backed by PostgreSQL.
type Repo struct {
	db postgres.Querier
}

// New creates a new note version repository.
func New(db postgres.Querier) *Repo {
	return &Repo{db: db}
}

// Insert appends v as the newest version of its note and returns it with
// the assigned sequence number. Callers serialize inserts per note by
// holding the note row lock.
func (r *Repo) Insert(ctx context.Context, v domain.NoteVersion) (*domain.NoteVersion, error) {
	blocks := v.Blocks
	if blocks == nil {
		blocks = domain.Blocks{}
	}
	blocksJSON, err := json.Marshal(blocks)
	if err != nil {
		return nil, fmt.Errorf("note_version %s marshal blocks: %w", v.ID, err)
	}
	var richDoc []byte
	if len(v.RichDocument) > 0 {
		richDoc = v.RichDocument
	}

	err = postgres.QuerierFromCtx(ctx, r.db).QueryRow(ctx, insertSQL,
		v.ID, v.NoteID, v.EditorID, v.Title, blocksJSON, richDoc,
		postgres.StringPtrToPg(v.RichDocumentRendered), v.CreatedAt,
	).Scan(&v.Seq)
	if err != nil {
		return nil, postgres.MapError(err, "note_version", v.ID)
	}
	v.Blocks = blocks
	return &v, nil
}

// EvictBeyond deletes every version of noteID except the newest keep and
// returns how many were removed.
func (r *Repo) EvictBeyond(ctx context.Context, noteID uuid.UUID, keep int) (int64, error) {
	tag, err := postgres.QuerierFromCtx(ctx, r.db).Exec(ctx, evictSQL, noteID, keep)
	if err != nil {
		return 0, postgres.MapError(err, "note_version", noteID)
	}
	return tag.RowsAffected(), nil
}

// Count returns the number of stored versions of noteID.
func (r *Repo) Count(ctx context.Context, noteID uuid.UUID) (int, error) {
	var n int
	if err := postgres.QuerierFromCtx(ctx, r.db).QueryRow(ctx, countSQL, noteID).Scan(&n); err != nil {
		return 0, postgres.MapError(err, "note_version", noteID)
	}
	return n, nil
}

// ListByNote returns version summaries of noteID, newest first.
// Returns an empty slice (not nil) when the note has no history.
func (r *Repo) ListByNote(ctx context.Context, noteID uuid.UUID) ([]domain.NoteVersionSummary, error) {
	rows, err := postgres.QuerierFromCtx(ctx, r.db).Query(ctx, listSQL, noteID)
	if err != nil {
		return nil, fmt.Errorf("list note_versions: %w", err)
	}
	defer rows.Close()

	out := make([]domain.NoteVersionSummary, 0)
	for rows.Next() {
		var s domain.NoteVersionSummary
		if err := rows.Scan(&s.ID, &s.NoteID, &s.EditorID, &s.Seq, &s.Title, &s.CreatedAt); err != nil {
			return nil, fmt.Errorf("list note_versions scan: %w", err)
		}
		out = append(out, s)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("list note_versions rows: %w", err)
	}
	return out, nil
}

// GetByID returns a full version. Returns domain.ErrNotFound if it never
// existed or has been evicted.
func (r *Repo) GetByID(ctx context.Context, id uuid.UUID) (*domain.NoteVersion, error) {
	v, err := scanVersion(postgres.QuerierFromCtx(ctx, r.db).QueryRow(ctx, getSQL, id))
	if err != nil {
		return nil, postgres.MapError(err, "note_version", id)
	}
	return v, nil
}

func scanVersion(row pgx.Row) (*domain.NoteVersion, error) {
	var (
		v         domain.NoteVersion
		blocks    []byte
		richDoc   []byte
		rendered  pgtype.Text
		createdAt time.Time
	)
	if err := row.Scan(&v.ID, &v.NoteID, &v.EditorID, &v.Seq, &v.Title, &blocks, &richDoc, &rendered, &createdAt); err != nil {
		return nil, err
	}
	v.CreatedAt = createdAt
	v.RichDocumentRendered = postgres.PgToStringPtr(rendered)
	if len(richDoc) > 0 {
		v.RichDocument = json.RawMessage(richDoc)
	}
	v.Blocks = domain.Blocks{}
	if len(blocks) > 0 {
		if err := json.Unmarshal(blocks, &v.Blocks); err != nil {
			return nil, fmt.Errorf("note_version %s unmarshal blocks: %w", v.ID, err)
		}
	}
	return &v, nil
}
