package rest

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"

	"github.com/heartmarshall/campaign-notes/internal/domain"
)

type createNoteRequest struct {
	EntityID     *uuid.UUID      `json:"entityId"`
	Title        string          `json:"title"`
	Blocks       domain.Blocks   `json:"blocks"`
	RichDocument json.RawMessage `json:"richDocument"`
	Color        string          `json:"color"`
	Pinned       bool            `json:"pinned"`
	IsShared     bool            `json:"isShared"`
}

// updateNoteRequest is a partial update; absent fields stay unchanged and
// richDocument: null clears the document.
type updateNoteRequest struct {
	Title        *string         `json:"title"`
	Blocks       *domain.Blocks  `json:"blocks"`
	RichDocument json.RawMessage `json:"richDocument"`
	Color        *string         `json:"color"`
	Pinned       *bool           `json:"pinned"`
	IsShared     *bool           `json:"isShared"`
}

type toggleCheckRequest struct {
	BlockIndex *int `json:"blockIndex"`
	ItemIndex  *int `json:"itemIndex"`
}

type lockResponse struct {
	Active       bool       `json:"active"`
	HeldBy       *uuid.UUID `json:"heldBy,omitempty"`
	ExpiresAt    *time.Time `json:"expiresAt,omitempty"`
	HeldByCaller bool       `json:"heldByCaller"`
}

type noteResponse struct {
	ID                   uuid.UUID       `json:"id"`
	CampaignID           uuid.UUID       `json:"campaignId"`
	OwnerID              uuid.UUID       `json:"ownerId"`
	EntityID             *uuid.UUID      `json:"entityId,omitempty"`
	Title                string          `json:"title"`
	Blocks               domain.Blocks   `json:"blocks"`
	RichDocument         json.RawMessage `json:"richDocument,omitempty"`
	RichDocumentRendered *string         `json:"richDocumentRendered,omitempty"`
	Color                string          `json:"color"`
	Pinned               bool            `json:"pinned"`
	IsShared             bool            `json:"isShared"`
	LastEditedBy         *uuid.UUID      `json:"lastEditedBy,omitempty"`
	CreatedAt            time.Time       `json:"createdAt"`
	UpdatedAt            time.Time       `json:"updatedAt"`
	Lock                 lockResponse    `json:"lock"`
}

type versionSummaryResponse struct {
	ID        uuid.UUID `json:"id"`
	NoteID    uuid.UUID `json:"noteId"`
	EditorID  uuid.UUID `json:"editorId"`
	Seq       int64     `json:"seq"`
	Title     string    `json:"title"`
	CreatedAt time.Time `json:"createdAt"`
}

type versionResponse struct {
	versionSummaryResponse
	Blocks               domain.Blocks   `json:"blocks"`
	RichDocument         json.RawMessage `json:"richDocument,omitempty"`
	RichDocumentRendered *string         `json:"richDocumentRendered,omitempty"`
}

type listResponse[T any] struct {
	Items []T `json:"items"`
}

func toNoteResponse(v *domain.NoteView) noteResponse {
	return noteResponse{
		ID:                   v.ID,
		CampaignID:           v.CampaignID,
		OwnerID:              v.OwnerID,
		EntityID:             v.EntityID,
		Title:                v.Title,
		Blocks:               v.Blocks,
		RichDocument:         v.RichDocument,
		RichDocumentRendered: v.RichDocumentRendered,
		Color:                v.Color,
		Pinned:               v.Pinned,
		IsShared:             v.IsShared,
		LastEditedBy:         v.LastEditedBy,
		CreatedAt:            v.CreatedAt,
		UpdatedAt:            v.UpdatedAt,
		Lock: lockResponse{
			Active:       v.Lock.Active,
			HeldBy:       v.Lock.HeldBy,
			ExpiresAt:    v.Lock.ExpiresAt,
			HeldByCaller: v.Lock.HeldByCaller,
		},
	}
}

func toVersionSummary(s domain.NoteVersionSummary) versionSummaryResponse {
	return versionSummaryResponse{
		ID:        s.ID,
		NoteID:    s.NoteID,
		EditorID:  s.EditorID,
		Seq:       s.Seq,
		Title:     s.Title,
		CreatedAt: s.CreatedAt,
	}
}

func toVersionResponse(v *domain.NoteVersion) versionResponse {
	return versionResponse{
		versionSummaryResponse: versionSummaryResponse{
			ID:        v.ID,
			NoteID:    v.NoteID,
			EditorID:  v.EditorID,
			Seq:       v.Seq,
			Title:     v.Title,
			CreatedAt: v.CreatedAt,
		},
		Blocks:               v.Blocks,
		RichDocument:         v.RichDocument,
		RichDocumentRendered: v.RichDocumentRendered,
	}
}
