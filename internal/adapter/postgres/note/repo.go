// Package note implements the Note store using PostgreSQL.
// Lease writes are single conditional UPDATEs so that two concurrent
// acquirers can never both succeed.
package note

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	sq "github.com/Masterminds/squirrel"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgtype"

	postgres "github.com/heartmarshall/campaign-notes/internal/adapter/postgres"
	"github.com/heartmarshall/campaign-notes/internal/domain"
)

var columns = []string{
	"id", "campaign_id", "owner_id", "entity_id",
	"title", "blocks", "rich_document", "rich_document_rendered",
	"color", "pinned", "is_shared",
	"last_edited_by", "locked_by", "locked_at",
	"created_at", "updated_at",
}

var (
	columnList = strings.Join(columns, ", ")
	psql       = sq.StatementBuilder.PlaceholderFormat(sq.Dollar)
)

// ---------------------------------------------------------------------------
// Raw SQL for lease writes
// ---------------------------------------------------------------------------

// $3 is the current time, $4 the cutoff (now - ttl) at or before which a
// stored lease counts as expired.
const acquireLockSQL = `
UPDATE notes
SET locked_by = $2, locked_at = $3
WHERE id = $1
  AND (locked_by IS NULL OR locked_at <= $4 OR locked_by = $2)`

const renewLockSQL = `
UPDATE notes
SET locked_at = $3
WHERE id = $1 AND locked_by = $2`

const existsSQL = `SELECT EXISTS (SELECT 1 FROM notes WHERE id = $1)`

const releaseLockSQL = `
UPDATE notes
SET locked_by = NULL, locked_at = NULL
WHERE id = $1 AND locked_by = $2`

const clearLockSQL = `
UPDATE notes
SET locked_by = NULL, locked_at = NULL
WHERE id = $1`

// Repo provides note persistence backed by PostgreSQL.
type Repo struct {
	db postgres.Querier
}

// New creates a new note repository.
func New(db postgres.Querier) *Repo {
	return &Repo{db: db}
}

// ---------------------------------------------------------------------------
// Read operations
// ---------------------------------------------------------------------------

// GetByID returns a note by primary key.
func (r *Repo) GetByID(ctx context.Context, id uuid.UUID) (*domain.Note, error) {
	return r.get(ctx, id, "")
}

// GetForUpdate returns a note and row-locks it until the surrounding
// transaction ends. Outside a transaction it behaves like GetByID.
func (r *Repo) GetForUpdate(ctx context.Context, id uuid.UUID) (*domain.Note, error) {
	return r.get(ctx, id, " FOR UPDATE")
}

func (r *Repo) get(ctx context.Context, id uuid.UUID, suffix string) (*domain.Note, error) {
	q := postgres.QuerierFromCtx(ctx, r.db)

	row := q.QueryRow(ctx, "SELECT "+columnList+" FROM notes WHERE id = $1"+suffix, id)
	n, err := scanNote(row)
	if err != nil {
		return nil, postgres.MapError(err, "note", id)
	}
	return n, nil
}

// List returns the notes matching the filter ordered pinned first, then by
// most recent update. Returns an empty slice (not nil) when nothing matches.
func (r *Repo) List(ctx context.Context, f domain.NoteFilter) ([]*domain.Note, error) {
	b := psql.Select(columns...).
		From("notes").
		Where(sq.Eq{"campaign_id": f.CampaignID}).
		Where(sq.Or{sq.Eq{"owner_id": f.ViewerID}, sq.Eq{"is_shared": true}}).
		OrderBy("pinned DESC", "updated_at DESC", "id")

	switch {
	case f.EntityID != nil:
		b = b.Where(sq.Eq{"entity_id": *f.EntityID})
	case f.CampaignWideOnly:
		b = b.Where(sq.Eq{"entity_id": nil})
	}

	query, args, err := b.ToSql()
	if err != nil {
		return nil, fmt.Errorf("build list notes query: %w", err)
	}

	rows, err := postgres.QuerierFromCtx(ctx, r.db).Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list notes: %w", err)
	}
	defer rows.Close()

	notes := make([]*domain.Note, 0)
	for rows.Next() {
		n, err := scanNote(rows)
		if err != nil {
			return nil, fmt.Errorf("list notes scan: %w", err)
		}
		notes = append(notes, n)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("list notes rows: %w", err)
	}
	return notes, nil
}

// ---------------------------------------------------------------------------
// Write operations
// ---------------------------------------------------------------------------

// Create inserts a new note and returns the persisted row.
func (r *Repo) Create(ctx context.Context, n *domain.Note) (*domain.Note, error) {
	blocks, err := json.Marshal(nonNilBlocks(n.Blocks))
	if err != nil {
		return nil, fmt.Errorf("note %s marshal blocks: %w", n.ID, err)
	}

	query, args, err := psql.Insert("notes").
		Columns(columns...).
		Values(
			n.ID, n.CampaignID, n.OwnerID, postgres.UUIDPtrToPg(n.EntityID),
			n.Title, blocks, rawOrNil(n.RichDocument), postgres.StringPtrToPg(n.RichDocumentRendered),
			n.Color, n.Pinned, n.IsShared,
			postgres.UUIDPtrToPg(n.LastEditedBy), postgres.UUIDPtrToPg(n.LockedBy), postgres.TimePtrToPg(n.LockedAt),
			n.CreatedAt, n.UpdatedAt,
		).
		Suffix("RETURNING " + columnList).
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("build insert note query: %w", err)
	}

	created, err := scanNote(postgres.QuerierFromCtx(ctx, r.db).QueryRow(ctx, query, args...))
	if err != nil {
		return nil, postgres.MapError(err, "note", n.ID)
	}
	return created, nil
}

// Update writes the groups of columns present in upd and returns the
// updated row. last_edited_by and updated_at are always written.
func (r *Repo) Update(ctx context.Context, id uuid.UUID, upd domain.NoteUpdate) (*domain.Note, error) {
	b := psql.Update("notes").
		Set("last_edited_by", upd.LastEditedBy).
		Set("updated_at", upd.UpdatedAt).
		Where(sq.Eq{"id": id}).
		Suffix("RETURNING " + columnList)

	if c := upd.Content; c != nil {
		blocks, err := json.Marshal(nonNilBlocks(c.Blocks))
		if err != nil {
			return nil, fmt.Errorf("note %s marshal blocks: %w", id, err)
		}
		b = b.Set("title", c.Title).
			Set("blocks", blocks).
			Set("rich_document", rawOrNil(c.RichDocument)).
			Set("rich_document_rendered", postgres.StringPtrToPg(c.RichDocumentRendered))
	}
	if upd.Color != nil {
		b = b.Set("color", *upd.Color)
	}
	if upd.Pinned != nil {
		b = b.Set("pinned", *upd.Pinned)
	}
	if upd.IsShared != nil {
		b = b.Set("is_shared", *upd.IsShared)
	}

	query, args, err := b.ToSql()
	if err != nil {
		return nil, fmt.Errorf("build update note query: %w", err)
	}

	updated, err := scanNote(postgres.QuerierFromCtx(ctx, r.db).QueryRow(ctx, query, args...))
	if err != nil {
		return nil, postgres.MapError(err, "note", id)
	}
	return updated, nil
}

// Delete removes a note. Versions go with it through ON DELETE CASCADE.
// Returns domain.ErrNotFound if no row was deleted.
func (r *Repo) Delete(ctx context.Context, id uuid.UUID) error {
	tag, err := postgres.QuerierFromCtx(ctx, r.db).Exec(ctx, `DELETE FROM notes WHERE id = $1`, id)
	if err != nil {
		return postgres.MapError(err, "note", id)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("note %s: %w", id, domain.ErrNotFound)
	}
	return nil
}

// ---------------------------------------------------------------------------
// Lease writes
// ---------------------------------------------------------------------------

// AcquireLock sets the lease to holder at now unless an unexpired lease of
// another holder exists. It reports whether the row was written.
func (r *Repo) AcquireLock(ctx context.Context, id, holder uuid.UUID, now time.Time, ttl time.Duration) (bool, error) {
	tag, err := postgres.QuerierFromCtx(ctx, r.db).Exec(ctx, acquireLockSQL, id, holder, now, now.Add(-ttl))
	if err != nil {
		return false, postgres.MapError(err, "note", id)
	}
	if tag.RowsAffected() == 1 {
		return true, nil
	}
	return false, r.mustExist(ctx, id)
}

// RenewLock moves locked_at to now if the stored lease belongs to holder,
// expired or not. It never creates a lease.
func (r *Repo) RenewLock(ctx context.Context, id, holder uuid.UUID, now time.Time) (bool, error) {
	tag, err := postgres.QuerierFromCtx(ctx, r.db).Exec(ctx, renewLockSQL, id, holder, now)
	if err != nil {
		return false, postgres.MapError(err, "note", id)
	}
	if tag.RowsAffected() == 1 {
		return true, nil
	}
	return false, r.mustExist(ctx, id)
}

// mustExist tells a refused conditional write apart from a missing row.
func (r *Repo) mustExist(ctx context.Context, id uuid.UUID) error {
	var exists bool
	if err := postgres.QuerierFromCtx(ctx, r.db).QueryRow(ctx, existsSQL, id).Scan(&exists); err != nil {
		return postgres.MapError(err, "note", id)
	}
	if !exists {
		return fmt.Errorf("note %s: %w", id, domain.ErrNotFound)
	}
	return nil
}

// ReleaseLock clears the lease if it is stored for holder. It reports
// whether the row was written.
func (r *Repo) ReleaseLock(ctx context.Context, id, holder uuid.UUID) (bool, error) {
	tag, err := postgres.QuerierFromCtx(ctx, r.db).Exec(ctx, releaseLockSQL, id, holder)
	if err != nil {
		return false, postgres.MapError(err, "note", id)
	}
	return tag.RowsAffected() == 1, nil
}

// ClearLock clears the lease regardless of holder.
func (r *Repo) ClearLock(ctx context.Context, id uuid.UUID) error {
	tag, err := postgres.QuerierFromCtx(ctx, r.db).Exec(ctx, clearLockSQL, id)
	if err != nil {
		return postgres.MapError(err, "note", id)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("note %s: %w", id, domain.ErrNotFound)
	}
	return nil
}

// ---------------------------------------------------------------------------
// Scanning helpers
// ---------------------------------------------------------------------------

func scanNote(row pgx.Row) (*domain.Note, error) {
	var (
		n            domain.Note
		entityID     pgtype.UUID
		blocks       []byte
		richDoc      []byte
		rendered     pgtype.Text
		lastEditedBy pgtype.UUID
		lockedBy     pgtype.UUID
		lockedAt     pgtype.Timestamptz
	)

	err := row.Scan(
		&n.ID, &n.CampaignID, &n.OwnerID, &entityID,
		&n.Title, &blocks, &richDoc, &rendered,
		&n.Color, &n.Pinned, &n.IsShared,
		&lastEditedBy, &lockedBy, &lockedAt,
		&n.CreatedAt, &n.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}

	n.EntityID = postgres.PgToUUIDPtr(entityID)
	n.RichDocumentRendered = postgres.PgToStringPtr(rendered)
	n.LastEditedBy = postgres.PgToUUIDPtr(lastEditedBy)
	n.LockedBy = postgres.PgToUUIDPtr(lockedBy)
	n.LockedAt = postgres.PgToTimePtr(lockedAt)
	if len(richDoc) > 0 {
		n.RichDocument = json.RawMessage(richDoc)
	}

	n.Blocks = domain.Blocks{}
	if len(blocks) > 0 {
		if err := json.Unmarshal(blocks, &n.Blocks); err != nil {
			return nil, fmt.Errorf("note %s unmarshal blocks: %w", n.ID, err)
		}
	}
	return &n, nil
}

func nonNilBlocks(bs domain.Blocks) domain.Blocks {
	if bs == nil {
		return domain.Blocks{}
	}
	return bs
}

// rawOrNil maps an absent document to SQL NULL.
func rawOrNil(doc json.RawMessage) []byte {
	if len(doc) == 0 {
		return nil
	}
	return []byte(doc)
}
