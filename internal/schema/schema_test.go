package schema

import (
	"testing"

	"github.com/marmotdata/icemeta/internal/metadata"
	"github.com/marmotdata/icemeta/internal/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func prim(k types.Kind) metadata.FieldType { return metadata.PrimitiveType{Type: types.Type{Kind: k}} }

func TestDiffAddRemoveRename(t *testing.T) {
	from := metadata.Schema{Fields: []metadata.Field{
		{ID: 1, Name: "a", Required: true, Type: prim(types.Int)},
		{ID: 2, Name: "b", Required: false, Type: prim(types.String)},
	}}
	to := metadata.Schema{Fields: []metadata.Field{
		{ID: 1, Name: "a_renamed", Required: true, Type: prim(types.Int)},
		{ID: 3, Name: "c", Required: false, Type: prim(types.String)},
	}}

	changes := Diff(from, to, 1000, nil)
	kinds := map[ChangeKind]bool{}
	for _, c := range changes {
		kinds[c.Kind] = true
	}
	assert.True(t, kinds[ChangeRenameField])
	assert.True(t, kinds[ChangeRemoveField])
	assert.True(t, kinds[ChangeAddField])
}

func TestDiffWidenType(t *testing.T) {
	from := metadata.Schema{Fields: []metadata.Field{{ID: 1, Name: "a", Type: prim(types.Int)}}}
	to := metadata.Schema{Fields: []metadata.Field{{ID: 1, Name: "a", Type: prim(types.Long)}}}

	changes := Diff(from, to, 0, nil)
	require.Len(t, changes, 1)
	assert.Equal(t, ChangeWidenType, changes[0].Kind)
}

func TestDiffMakeOptional(t *testing.T) {
	from := metadata.Schema{Fields: []metadata.Field{{ID: 1, Name: "a", Required: true, Type: prim(types.Int)}}}
	to := metadata.Schema{Fields: []metadata.Field{{ID: 1, Name: "a", Required: false, Type: prim(types.Int)}}}

	changes := Diff(from, to, 0, nil)
	require.Len(t, changes, 1)
	assert.Equal(t, ChangeMakeOptional, changes[0].Kind)
}

func TestDiffMakeRequired(t *testing.T) {
	from := metadata.Schema{Fields: []metadata.Field{{ID: 1, Name: "a", Required: false, Type: prim(types.Int)}}}
	to := metadata.Schema{Fields: []metadata.Field{{ID: 1, Name: "a", Required: true, Type: prim(types.Int)}}}

	changes := Diff(from, to, 0, nil)
	require.Len(t, changes, 1)
	assert.Equal(t, ChangeMakeRequired, changes[0].Kind)
}

func TestIsWideningCompatible(t *testing.T) {
	assert.True(t, IsWideningCompatible(prim(types.Int), prim(types.Long)))
	assert.True(t, IsWideningCompatible(prim(types.Float), prim(types.Double)))
	assert.False(t, IsWideningCompatible(prim(types.Long), prim(types.Int)))

	d1 := metadata.PrimitiveType{Type: types.Type{Kind: types.Decimal, Precision: 10, Scale: 2}}
	d2 := metadata.PrimitiveType{Type: types.Type{Kind: types.Decimal, Precision: 12, Scale: 2}}
	assert.True(t, IsWideningCompatible(d1, d2))
	assert.False(t, IsWideningCompatible(d2, d1))
}

func TestIsBackwardCompatibleRejectsRequiredAdd(t *testing.T) {
	req := true
	changes := []Change{{Kind: ChangeAddField, Required: &req}}
	assert.False(t, IsBackwardCompatible(changes, nil))
}

func TestIsBackwardCompatibleRejectsOptionalToRequired(t *testing.T) {
	changes := []Change{{Kind: ChangeMakeRequired, FieldID: 1}}
	assert.False(t, IsBackwardCompatible(changes, nil))
}

func TestIsBackwardCompatibleRejectsNarrowing(t *testing.T) {
	changes := []Change{{Kind: ChangeWidenType, PreviousType: prim(types.Long), NewType: prim(types.Int)}}
	assert.False(t, IsBackwardCompatible(changes, nil))
}

func TestIsBackwardCompatibleAllowsRemovalWithoutLiveData(t *testing.T) {
	changes := []Change{{Kind: ChangeRemoveField, FieldID: 5}}
	assert.True(t, IsBackwardCompatible(changes, func(int) bool { return false }))
}

func TestIsBackwardCompatibleRejectsRemovalWithLiveData(t *testing.T) {
	changes := []Change{{Kind: ChangeRemoveField, FieldID: 5}}
	assert.False(t, IsBackwardCompatible(changes, func(int) bool { return true }))
}
