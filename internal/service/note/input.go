package note

import (
	"encoding/json"
	"fmt"

	"github.com/google/uuid"

	"github.com/heartmarshall/campaign-notes/internal/domain"
)

// CreateNoteInput holds the parameters for creating a note. The owner and
// campaign come from the caller identity.
type CreateNoteInput struct {
	EntityID     *uuid.UUID
	Title        string
	Blocks       domain.Blocks // nil = empty
	RichDocument json.RawMessage
	Color        string // blank = default
	Pinned       bool
	IsShared     bool
}

// Validate checks all fields and collects all errors.
func (i CreateNoteInput) Validate() error {
	var errs []domain.FieldError

	if _, ok := domain.NormalizeTitle(i.Title); !ok {
		errs = append(errs, titleTooLong())
	}
	if _, ok := domain.NormalizeColor(i.Color); !ok {
		errs = append(errs, invalidColor())
	}
	if i.EntityID != nil && *i.EntityID == uuid.Nil {
		errs = append(errs, domain.FieldError{Field: "entityId", Message: "must not be nil"})
	}
	errs = append(errs, domain.ValidateBlocks(i.Blocks)...)

	if len(errs) > 0 {
		return &domain.ValidationError{Errors: errs}
	}
	return nil
}

// UpdateNoteInput holds a partial update. Nil fields are left unchanged.
// RichDocument set to JSON null clears the document and its rendering.
type UpdateNoteInput struct {
	NoteID       uuid.UUID
	Title        *string
	Blocks       *domain.Blocks
	RichDocument json.RawMessage
	Color        *string
	Pinned       *bool
	IsShared     *bool
}

// touchesContent reports whether the input carries content-bearing fields.
func (i UpdateNoteInput) touchesContent() bool {
	return i.Title != nil || i.Blocks != nil || i.RichDocument != nil
}

// Validate checks all fields and collects all errors.
func (i UpdateNoteInput) Validate() error {
	var errs []domain.FieldError

	if i.NoteID == uuid.Nil {
		errs = append(errs, domain.FieldError{Field: "noteId", Message: "required"})
	}
	if i.Title != nil {
		if _, ok := domain.NormalizeTitle(*i.Title); !ok {
			errs = append(errs, titleTooLong())
		}
	}
	if i.Color != nil {
		if _, ok := domain.NormalizeColor(*i.Color); !ok {
			errs = append(errs, invalidColor())
		}
	}
	if i.Blocks != nil {
		errs = append(errs, domain.ValidateBlocks(*i.Blocks)...)
	}

	if len(errs) > 0 {
		return &domain.ValidationError{Errors: errs}
	}
	return nil
}

// ToggleCheckInput addresses one checklist item.
type ToggleCheckInput struct {
	NoteID     uuid.UUID
	BlockIndex int
	ItemIndex  int
}

// Validate checks the parts that do not depend on the note contents.
func (i ToggleCheckInput) Validate() error {
	var errs []domain.FieldError

	if i.NoteID == uuid.Nil {
		errs = append(errs, domain.FieldError{Field: "noteId", Message: "required"})
	}
	if i.BlockIndex < 0 {
		errs = append(errs, domain.FieldError{Field: "blockIndex", Message: "must not be negative"})
	}
	if i.ItemIndex < 0 {
		errs = append(errs, domain.FieldError{Field: "itemIndex", Message: "must not be negative"})
	}

	if len(errs) > 0 {
		return &domain.ValidationError{Errors: errs}
	}
	return nil
}

// ListNotesInput selects a listing scope. An empty scope means "mine",
// unless EntityID is set.
type ListNotesInput struct {
	Scope    domain.NoteScope
	EntityID *uuid.UUID
}

func (i ListNotesInput) scope() domain.NoteScope {
	if i.Scope == "" {
		if i.EntityID != nil {
			return domain.NoteScopeEntity
		}
		return domain.NoteScopeMine
	}
	return i.Scope
}

// Validate checks all fields and collects all errors.
func (i ListNotesInput) Validate() error {
	var errs []domain.FieldError

	scope := i.scope()
	if !scope.IsValid() {
		errs = append(errs, domain.FieldError{Field: "scope", Message: "must be mine, campaign or entity"})
	}
	if scope == domain.NoteScopeEntity && (i.EntityID == nil || *i.EntityID == uuid.Nil) {
		errs = append(errs, domain.FieldError{Field: "entityId", Message: "required for entity scope"})
	}

	if len(errs) > 0 {
		return &domain.ValidationError{Errors: errs}
	}
	return nil
}

func titleTooLong() domain.FieldError {
	return domain.FieldError{Field: "title", Message: fmt.Sprintf("max %d characters", domain.MaxTitleLength)}
}

func invalidColor() domain.FieldError {
	return domain.FieldError{Field: "color", Message: "must be #rgb or #rrggbb"}
}
