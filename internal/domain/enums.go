package domain

// CampaignRole is the caller's membership role within a campaign.
type CampaignRole string

const (
	CampaignRoleOwner  CampaignRole = "owner"
	CampaignRoleMember CampaignRole = "member"
)

func (r CampaignRole) String() string { return string(r) }

func (r CampaignRole) IsValid() bool {
	switch r {
	case CampaignRoleOwner, CampaignRoleMember:
		return true
	}
	return false
}

// NoteScope selects one of the three visibility listings.
type NoteScope string

const (
	NoteScopeMine     NoteScope = "mine"
	NoteScopeCampaign NoteScope = "campaign"
	NoteScopeEntity   NoteScope = "entity"
)

func (s NoteScope) String() string { return string(s) }

func (s NoteScope) IsValid() bool {
	switch s {
	case NoteScopeMine, NoteScopeCampaign, NoteScopeEntity:
		return true
	}
	return false
}

// BlockType discriminates the Block union on the wire.
type BlockType string

const (
	BlockTypeText      BlockType = "text"
	BlockTypeChecklist BlockType = "checklist"
)

func (t BlockType) String() string { return string(t) }

func (t BlockType) IsValid() bool {
	switch t {
	case BlockTypeText, BlockTypeChecklist:
		return true
	}
	return false
}

// EntityType identifies the kind of domain entity (used in audit logs).
type EntityType string

const (
	EntityTypeNote EntityType = "NOTE"
)

func (e EntityType) String() string { return string(e) }

func (e EntityType) IsValid() bool {
	return e == EntityTypeNote
}

// AuditAction represents the kind of mutation recorded in the audit log.
type AuditAction string

const (
	AuditActionDelete       AuditAction = "DELETE"
	AuditActionForceRelease AuditAction = "FORCE_RELEASE"
)

func (a AuditAction) String() string { return string(a) }

func (a AuditAction) IsValid() bool {
	switch a {
	case AuditActionDelete, AuditActionForceRelease:
		return true
	}
	return false
}
