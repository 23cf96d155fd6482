package domain

import (
	"time"

	"github.com/google/uuid"
)

// NoteEventType names a committed change that other sessions may want to
// react to.
type NoteEventType string

const (
	NoteEventLeaseAcquired      NoteEventType = "lease.acquired"
	NoteEventLeaseReleased      NoteEventType = "lease.released"
	NoteEventLeaseForceReleased NoteEventType = "lease.force_released"
	NoteEventUpdated            NoteEventType = "note.updated"
	NoteEventRestored           NoteEventType = "note.restored"
	NoteEventDeleted            NoteEventType = "note.deleted"
)

// NoteEvent is published after a note mutation commits.
type NoteEvent struct {
	Type       NoteEventType `json:"type"`
	NoteID     uuid.UUID     `json:"noteId"`
	CampaignID uuid.UUID     `json:"campaignId"`
	ActorID    uuid.UUID     `json:"actorId"`
	HolderID   *uuid.UUID    `json:"holderId,omitempty"`
	At         time.Time     `json:"at"`
}
