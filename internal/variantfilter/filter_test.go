package variantfilter

import (
	"testing"

	"github.com/marmotdata/icemeta/internal/metadata"
	"github.com/marmotdata/icemeta/internal/types"
	"github.com/marmotdata/icemeta/internal/variant"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func cfg() variant.ShredConfig {
	return variant.ShredConfig{
		ColumnName: "data",
		Fields:     []string{"year"},
		FieldTypes: map[string]types.Type{"year": {Kind: types.Int}},
	}
}

func TestRewriteTransformsShreddedField(t *testing.T) {
	leaf := Node{Leaf: &Leaf{Path: "data.year", Comparisons: map[Op]interface{}{Gt: int64(2020)}}}
	result := Rewrite(leaf, []variant.ShredConfig{cfg()})

	require.Len(t, result.TransformedPaths, 1)
	assert.Equal(t, "data.year", result.TransformedPaths[0])
	assert.Equal(t, "data.typed_value.year.typed_value", result.Filter.Leaf.Path)
}

func TestRewriteUntransformedUnknownField(t *testing.T) {
	leaf := Node{Leaf: &Leaf{Path: "data.unknown", Comparisons: map[Op]interface{}{Eq: "x"}}}
	result := Rewrite(leaf, []variant.ShredConfig{cfg()})
	assert.Len(t, result.TransformedPaths, 0)
	assert.Equal(t, []string{"data.unknown"}, result.UntransformedPaths)
}

func TestRewriteIdempotent(t *testing.T) {
	leaf := Node{Leaf: &Leaf{Path: "data.year", Comparisons: map[Op]interface{}{Gt: int64(2020)}}}
	once := Rewrite(leaf, []variant.ShredConfig{cfg()})
	twice := Rewrite(once.Filter, []variant.ShredConfig{cfg()})
	assert.Len(t, twice.TransformedPaths, 0)
	assert.Equal(t, once.Filter, twice.Filter)
}

func TestRewriteNoDotUnchanged(t *testing.T) {
	leaf := Node{Leaf: &Leaf{Path: "plain_column", Comparisons: map[Op]interface{}{Eq: 1}}}
	result := Rewrite(leaf, []variant.ShredConfig{cfg()})
	assert.Empty(t, result.TransformedPaths)
	assert.Empty(t, result.UntransformedPaths)
	assert.Equal(t, "plain_column", result.Filter.Leaf.Path)
}

func boundsFile(lower, upper int64) metadata.DataFile {
	lb, _ := types.Encode(types.Type{Kind: types.Int}, lower)
	ub, _ := types.Encode(types.Type{Kind: types.Int}, upper)
	return metadata.DataFile{
		LowerBounds: map[int][]byte{1: lb},
		UpperBounds: map[int][]byte{1: ub},
	}
}

func shredded() ([]variant.ShredConfig, map[string]int, map[string]types.Type) {
	c := cfg()
	path := variant.TypedValuePath(c, "year")
	return []variant.ShredConfig{c}, map[string]int{path: 1}, map[string]types.Type{path: {Kind: types.Int}}
}

func TestShouldSkipDataFileGtOutOfRange(t *testing.T) {
	configs, ids, ftypes := shredded()
	file := boundsFile(1990, 2019)
	filter := Node{Leaf: &Leaf{Path: "data.year", Comparisons: map[Op]interface{}{Gt: int64(2020)}}}

	d := ShouldSkipDataFile(file, filter, configs, ids, ftypes)
	assert.True(t, d.Skip)
	assert.NotEmpty(t, d.Reason)
}

func TestShouldSkipDataFileGtInRange(t *testing.T) {
	configs, ids, ftypes := shredded()
	file := boundsFile(1990, 2025)
	filter := Node{Leaf: &Leaf{Path: "data.year", Comparisons: map[Op]interface{}{Gt: int64(2020)}}}

	d := ShouldSkipDataFile(file, filter, configs, ids, ftypes)
	assert.False(t, d.Skip)
}

func TestShouldSkipDataFileMissingBoundsNeverSkips(t *testing.T) {
	configs, ids, ftypes := shredded()
	filter := Node{Leaf: &Leaf{Path: "data.year", Comparisons: map[Op]interface{}{Gt: int64(2020)}}}

	d := ShouldSkipDataFile(metadata.DataFile{}, filter, configs, ids, ftypes)
	assert.False(t, d.Skip)
}

func TestShouldSkipDataFileNeNeverSkips(t *testing.T) {
	configs, ids, ftypes := shredded()
	file := boundsFile(1990, 2019)
	filter := Node{Leaf: &Leaf{Path: "data.year", Comparisons: map[Op]interface{}{Ne: int64(2000)}}}

	d := ShouldSkipDataFile(file, filter, configs, ids, ftypes)
	assert.False(t, d.Skip)
}

func TestShouldSkipDataFileAndSkipsIfAnyChildSkips(t *testing.T) {
	configs, ids, ftypes := shredded()
	file := boundsFile(1990, 2019)
	filter := Node{And: []Node{
		{Leaf: &Leaf{Path: "data.year", Comparisons: map[Op]interface{}{Gt: int64(2020)}}},
		{Leaf: &Leaf{Path: "data.year", Comparisons: map[Op]interface{}{Lt: int64(2050)}}},
	}}

	d := ShouldSkipDataFile(file, filter, configs, ids, ftypes)
	assert.True(t, d.Skip)
}

func TestShouldSkipDataFileOrSkipsOnlyIfAllChildrenSkip(t *testing.T) {
	configs, ids, ftypes := shredded()
	file := boundsFile(1990, 2019)
	filter := Node{Or: []Node{
		{Leaf: &Leaf{Path: "data.year", Comparisons: map[Op]interface{}{Gt: int64(2020)}}},
		{Leaf: &Leaf{Path: "data.year", Comparisons: map[Op]interface{}{Lt: int64(2050)}}},
	}}

	d := ShouldSkipDataFile(file, filter, configs, ids, ftypes)
	assert.False(t, d.Skip) // second child does not skip

	filter2 := Node{Or: []Node{
		{Leaf: &Leaf{Path: "data.year", Comparisons: map[Op]interface{}{Gt: int64(2020)}}},
		{Leaf: &Leaf{Path: "data.year", Comparisons: map[Op]interface{}{Lt: int64(1900)}}},
	}}
	d = ShouldSkipDataFile(file, filter2, configs, ids, ftypes)
	assert.True(t, d.Skip)
}

func TestShouldSkipDataFileNotNeverForcesSkip(t *testing.T) {
	configs, ids, ftypes := shredded()
	file := boundsFile(1990, 2019)
	inner := Node{Leaf: &Leaf{Path: "data.year", Comparisons: map[Op]interface{}{Gt: int64(2020)}}}
	filter := Node{Not: &inner}

	d := ShouldSkipDataFile(file, filter, configs, ids, ftypes)
	assert.False(t, d.Skip)
}

func TestShouldSkipDataFileIn(t *testing.T) {
	configs, ids, ftypes := shredded()
	file := boundsFile(1990, 2019)
	filter := Node{Leaf: &Leaf{Path: "data.year", Comparisons: map[Op]interface{}{In: []interface{}{int64(2021), int64(2022)}}}}

	d := ShouldSkipDataFile(file, filter, configs, ids, ftypes)
	assert.True(t, d.Skip)
}
