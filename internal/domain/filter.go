package domain

import "github.com/google/uuid"

// NoteFilter selects notes visible to a caller inside one campaign.
// A note matches when it belongs to CampaignID and is owned by ViewerID or
// shared. EntityID narrows to one entity page; CampaignWideOnly keeps only
// notes without an entity.
type NoteFilter struct {
	CampaignID       uuid.UUID
	ViewerID         uuid.UUID
	EntityID         *uuid.UUID
	CampaignWideOnly bool
}
