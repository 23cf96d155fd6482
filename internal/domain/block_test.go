package domain

import (
	"encoding/json"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBlocks_MarshalJSON(t *testing.T) {
	t.Parallel()

	bs := Blocks{
		TextBlock{Value: "Meet at the docks"},
		ChecklistBlock{Items: []ChecklistItem{{Text: "rope", Checked: true}, {Text: "lantern"}}},
		ChecklistBlock{},
	}

	data, err := json.Marshal(bs)
	require.NoError(t, err)
	assert.JSONEq(t, `[
		{"type":"text","value":"Meet at the docks"},
		{"type":"checklist","items":[{"text":"rope","checked":true},{"text":"lantern","checked":false}]},
		{"type":"checklist","items":[]}
	]`, string(data))
}

func TestBlocks_MarshalJSON_EmptyIsArray(t *testing.T) {
	t.Parallel()

	data, err := json.Marshal(Blocks{})
	require.NoError(t, err)
	assert.Equal(t, "[]", string(data))
}

func TestBlocks_UnmarshalJSON(t *testing.T) {
	t.Parallel()

	var bs Blocks
	err := json.Unmarshal([]byte(`[{"type":"checklist","items":[{"text":"a","checked":true}]},{"type":"text"}]`), &bs)
	require.NoError(t, err)
	require.Len(t, bs, 2)

	cl, ok := bs[0].(ChecklistBlock)
	require.True(t, ok)
	assert.Equal(t, []ChecklistItem{{Text: "a", Checked: true}}, cl.Items)
	assert.Equal(t, TextBlock{Value: ""}, bs[1])
}

func TestBlocks_UnmarshalJSON_NullIsEmpty(t *testing.T) {
	t.Parallel()

	var bs Blocks
	require.NoError(t, json.Unmarshal([]byte(`null`), &bs))
	assert.NotNil(t, bs)
	assert.Empty(t, bs)
}

func TestBlocks_UnmarshalJSON_UnknownType(t *testing.T) {
	t.Parallel()

	var bs Blocks
	err := json.Unmarshal([]byte(`[{"type":"text","value":"x"},{"type":"image"}]`), &bs)
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrValidation))

	var ve *ValidationError
	require.True(t, errors.As(err, &ve))
	assert.Equal(t, "blocks[1].type", ve.Errors[0].Field)
}

func TestBlocks_Clone_IsDeep(t *testing.T) {
	t.Parallel()

	orig := Blocks{ChecklistBlock{Items: []ChecklistItem{{Text: "a"}}}}
	cp := orig.Clone()
	cp[0].(ChecklistBlock).Items[0].Checked = true

	assert.False(t, orig[0].(ChecklistBlock).Items[0].Checked)
	assert.NotNil(t, Blocks(nil).Clone())
}

func TestBlocks_Equal(t *testing.T) {
	t.Parallel()

	a := Blocks{TextBlock{Value: "x"}, ChecklistBlock{Items: []ChecklistItem{{Text: "a"}}}}

	assert.True(t, a.Equal(a.Clone()))
	assert.False(t, a.Equal(Blocks{TextBlock{Value: "x"}}))
	assert.False(t, a.Equal(Blocks{TextBlock{Value: "x"}, TextBlock{Value: "a"}}))
	assert.True(t, Blocks{}.Equal(nil))
}

func TestValidateBlocks(t *testing.T) {
	t.Parallel()

	tooMany := make(Blocks, MaxBlocks+1)
	for i := range tooMany {
		tooMany[i] = TextBlock{}
	}
	bigList := ChecklistBlock{Items: make([]ChecklistItem, MaxChecklistItems+1)}

	tests := []struct {
		name      string
		blocks    Blocks
		wantField string
	}{
		{name: "empty", blocks: Blocks{}},
		{name: "too many blocks", blocks: tooMany, wantField: "blocks"},
		{name: "too many items", blocks: Blocks{TextBlock{}, bigList}, wantField: "blocks[1].items"},
		{name: "nil block", blocks: Blocks{nil}, wantField: "blocks[0]"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			errs := ValidateBlocks(tt.blocks)
			if tt.wantField == "" {
				assert.Empty(t, errs)
				return
			}
			require.NotEmpty(t, errs)
			assert.Equal(t, tt.wantField, errs[0].Field)
		})
	}
}
