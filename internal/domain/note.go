package domain

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
)

// Note is a personal or shared document scoped to a campaign, optionally
// attached to a single entity page.
type Note struct {
	ID         uuid.UUID
	CampaignID uuid.UUID
	OwnerID    uuid.UUID
	EntityID   *uuid.UUID

	Title                string
	Blocks               Blocks
	RichDocument         json.RawMessage
	RichDocumentRendered *string
	Color                string
	Pinned               bool
	IsShared             bool

	LastEditedBy *uuid.UUID
	LockedBy     *uuid.UUID
	LockedAt     *time.Time

	CreatedAt time.Time
	UpdatedAt time.Time
}

// Content returns a deep copy of the content-bearing fields.
func (n *Note) Content() NoteContent {
	c := NoteContent{
		Title:  n.Title,
		Blocks: n.Blocks.Clone(),
	}
	if n.RichDocument != nil {
		c.RichDocument = append(json.RawMessage(nil), n.RichDocument...)
	}
	if n.RichDocumentRendered != nil {
		r := *n.RichDocumentRendered
		c.RichDocumentRendered = &r
	}
	return c
}

// NoteContent is the subset of a note that a version snapshot preserves.
type NoteContent struct {
	Title                string
	Blocks               Blocks
	RichDocument         json.RawMessage
	RichDocumentRendered *string
}

// NoteVersion is an immutable snapshot of a note's content taken before a
// content-changing mutation.
type NoteVersion struct {
	ID       uuid.UUID
	NoteID   uuid.UUID
	EditorID uuid.UUID
	// Seq grows by one per snapshot of the same note and orders eviction.
	Seq int64
	NoteContent
	CreatedAt time.Time
}

// NoteVersionSummary is the list projection of a NoteVersion.
type NoteVersionSummary struct {
	ID        uuid.UUID
	NoteID    uuid.UUID
	EditorID  uuid.UUID
	Seq       int64
	Title     string
	CreatedAt time.Time
}

// LockInfo is the lease state of a note as seen by a specific caller at a
// specific instant.
type LockInfo struct {
	Active       bool
	HeldBy       *uuid.UUID
	ExpiresAt    *time.Time
	HeldByCaller bool
}

// NoteView is a note together with its derived lock state.
type NoteView struct {
	Note
	Lock LockInfo
}

// NoteUpdate is the full set of columns written by an update. Nil pointers
// of the optional groups leave the stored value unchanged.
type NoteUpdate struct {
	Content      *NoteContent
	Color        *string
	Pinned       *bool
	IsShared     *bool
	LastEditedBy uuid.UUID
	UpdatedAt    time.Time
}
