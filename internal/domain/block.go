package domain

import (
	"bytes"
	"encoding/json"
	"fmt"
)

// Block is one element of a note body. The set of implementations is closed:
// TextBlock and ChecklistBlock.
type Block interface {
	BlockType() BlockType
	clone() Block
	isBlock()
}

// TextBlock is a free-form paragraph.
type TextBlock struct {
	Value string
}

func (TextBlock) BlockType() BlockType { return BlockTypeText }
func (b TextBlock) clone() Block       { return b }
func (TextBlock) isBlock()             {}

// ChecklistItem is a single checkable line of a ChecklistBlock.
type ChecklistItem struct {
	Text    string `json:"text"`
	Checked bool   `json:"checked"`
}

// ChecklistBlock is an ordered list of checkable items.
type ChecklistBlock struct {
	Items []ChecklistItem
}

func (ChecklistBlock) BlockType() BlockType { return BlockTypeChecklist }
func (ChecklistBlock) isBlock()             {}

func (b ChecklistBlock) clone() Block {
	items := make([]ChecklistItem, len(b.Items))
	copy(items, b.Items)
	return ChecklistBlock{Items: items}
}

// Blocks is the ordered body of a note. It marshals as a JSON array of
// tagged objects and never encodes as null.
type Blocks []Block

// Clone returns a deep copy. The result is never nil.
func (bs Blocks) Clone() Blocks {
	out := make(Blocks, len(bs))
	for i, b := range bs {
		out[i] = b.clone()
	}
	return out
}

// Equal reports whether both sequences hold the same blocks in the same order.
func (bs Blocks) Equal(other Blocks) bool {
	if len(bs) != len(other) {
		return false
	}
	for i := range bs {
		if !blockEqual(bs[i], other[i]) {
			return false
		}
	}
	return true
}

func blockEqual(a, b Block) bool {
	switch av := a.(type) {
	case TextBlock:
		bv, ok := b.(TextBlock)
		return ok && av.Value == bv.Value
	case ChecklistBlock:
		bv, ok := b.(ChecklistBlock)
		if !ok || len(av.Items) != len(bv.Items) {
			return false
		}
		for i := range av.Items {
			if av.Items[i] != bv.Items[i] {
				return false
			}
		}
		return true
	}
	return false
}

type wireBlock struct {
	Type  BlockType       `json:"type"`
	Value *string         `json:"value,omitempty"`
	Items []ChecklistItem `json:"items,omitempty"`
}

func (bs Blocks) MarshalJSON() ([]byte, error) {
	wire := make([]json.RawMessage, 0, len(bs))
	for i, b := range bs {
		var w any
		switch v := b.(type) {
		case TextBlock:
			w = struct {
				Type  BlockType `json:"type"`
				Value string    `json:"value"`
			}{BlockTypeText, v.Value}
		case ChecklistBlock:
			items := v.Items
			if items == nil {
				items = []ChecklistItem{}
			}
			w = struct {
				Type  BlockType       `json:"type"`
				Items []ChecklistItem `json:"items"`
			}{BlockTypeChecklist, items}
		default:
			return nil, fmt.Errorf("block %d: unsupported type %T", i, b)
		}
		raw, err := json.Marshal(w)
		if err != nil {
			return nil, fmt.Errorf("block %d: %w", i, err)
		}
		wire = append(wire, raw)
	}
	return json.Marshal(wire)
}

func (bs *Blocks) UnmarshalJSON(data []byte) error {
	if bytes.Equal(bytes.TrimSpace(data), []byte("null")) {
		*bs = Blocks{}
		return nil
	}
	var wire []wireBlock
	if err := json.Unmarshal(data, &wire); err != nil {
		return err
	}
	out := make(Blocks, 0, len(wire))
	for i, w := range wire {
		switch w.Type {
		case BlockTypeText:
			var value string
			if w.Value != nil {
				value = *w.Value
			}
			out = append(out, TextBlock{Value: value})
		case BlockTypeChecklist:
			items := w.Items
			if items == nil {
				items = []ChecklistItem{}
			}
			out = append(out, ChecklistBlock{Items: items})
		default:
			return NewValidationError(fmt.Sprintf("blocks[%d].type", i), fmt.Sprintf("unknown block type %q", w.Type))
		}
	}
	*bs = out
	return nil
}

// ValidateBlocks checks structural limits on a note body.
func ValidateBlocks(bs Blocks) []FieldError {
	var errs []FieldError
	if len(bs) > MaxBlocks {
		errs = append(errs, FieldError{Field: "blocks", Message: fmt.Sprintf("max %d blocks", MaxBlocks)})
	}
	for i, b := range bs {
		switch v := b.(type) {
		case TextBlock:
		case ChecklistBlock:
			if len(v.Items) > MaxChecklistItems {
				errs = append(errs, FieldError{
					Field:   fmt.Sprintf("blocks[%d].items", i),
					Message: fmt.Sprintf("max %d items", MaxChecklistItems),
				})
			}
		case nil:
			errs = append(errs, FieldError{Field: fmt.Sprintf("blocks[%d]", i), Message: "required"})
		}
	}
	return errs
}
