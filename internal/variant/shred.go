// Package variant implements variant-column shredding configuration and the
// statistics collection that feeds a shredded column's values into a data
// file's column-level bounds (spec §4.I).
package variant

import (
	"errors"
	"fmt"

	"github.com/marmotdata/icemeta/internal/metadata"
	"github.com/marmotdata/icemeta/internal/types"
)

// ShredConfig describes how one variant column is shredded: which
// sub-fields are pulled out into typed columns, and their declared types.
type ShredConfig struct {
	ColumnName string
	Fields     []string
	FieldTypes map[string]types.Type
}

// TypedValuePath is the stored path of a shredded sub-field's typed value.
// Unshredded residual data stays in the variant column itself.
func TypedValuePath(cfg ShredConfig, field string) string {
	return cfg.ColumnName + ".typed_value." + field + ".typed_value"
}

// NullMarkerPath is the sibling path recording whether a shredded
// sub-field's value is present (its typed_value sibling) or null/absent.
func NullMarkerPath(cfg ShredConfig, field string) string {
	return cfg.ColumnName + ".typed_value." + field + ".value"
}

// Column is one shredded sub-field's values across the rows of a file,
// already located at its TypedValuePath.
type Column struct {
	Path   string
	Values []interface{} // nil entries are nulls
}

// Stat is the per-shredded-sub-field statistic CollectShreddedColumnStats
// produces.
type Stat struct {
	Path       string
	FieldID    int
	ValueCount int64
	NullCount  int64
	LowerBound []byte
	UpperBound []byte
}

// DefaultStringBoundTruncation is the default prefix length, in unicode
// code points, string bounds are truncated to.
const DefaultStringBoundTruncation = 16

// CollectShreddedColumnStats assigns consecutive field ids starting at
// startingFieldID to every (config, field) pair in declaration order, and
// computes per-field value/null counts and bounds from columns (matched by
// TypedValuePath). A config/field with no matching column still receives an
// id, with zero counts and no bounds.
func CollectShreddedColumnStats(columns []Column, configs []ShredConfig, startingFieldID int) ([]Stat, map[string]int) {
	byPath := make(map[string]Column, len(columns))
	for _, c := range columns {
		byPath[c.Path] = c
	}

	fieldIDMap := make(map[string]int)
	var stats []Stat
	nextID := startingFieldID

	for _, cfg := range configs {
		for _, field := range cfg.Fields {
			path := TypedValuePath(cfg, field)
			id := nextID
			nextID++
			fieldIDMap[path] = id

			st := Stat{Path: path, FieldID: id}
			if col, ok := byPath[path]; ok {
				t := cfg.FieldTypes[field]
				st.ValueCount, st.NullCount, st.LowerBound, st.UpperBound = computeBounds(t, col.Values)
			}
			stats = append(stats, st)
		}
	}
	return stats, fieldIDMap
}

func computeBounds(t types.Type, values []interface{}) (valueCount, nullCount int64, lower, upper []byte) {
	var minV, maxV interface{}
	for _, v := range values {
		if v == nil {
			nullCount++
			continue
		}
		valueCount++
		if minV == nil {
			minV, maxV = v, v
			continue
		}
		if c, err := types.Cmp(t, v, minV); err == nil && c < 0 {
			minV = v
		}
		if c, err := types.Cmp(t, v, maxV); err == nil && c > 0 {
			maxV = v
		}
	}
	if minV == nil {
		return valueCount, nullCount, nil, nil
	}

	if t.Kind == types.String {
		minS, maxS := minV.(string), maxV.(string)
		lower, _ = types.Encode(t, truncatePrefix(minS, DefaultStringBoundTruncation))
		upper, _ = types.Encode(t, truncateUpperBoundString(maxS, DefaultStringBoundTruncation))
		return valueCount, nullCount, lower, upper
	}

	lower, _ = types.Encode(t, minV)
	upper, _ = types.Encode(t, maxV)
	return valueCount, nullCount, lower, upper
}

func truncatePrefix(s string, maxLen int) string {
	runes := []rune(s)
	if len(runes) <= maxLen {
		return s
	}
	return string(runes[:maxLen])
}

// truncateUpperBoundString truncates s to maxLen code points and, if
// truncation occurred, increments the last code point so the result remains
// a valid inclusive upper bound for every string with that prefix. If the
// last code point cannot be incremented (it is the maximum scalar value),
// that code point is dropped and the previous one is incremented instead;
// if nothing can be incremented, the untruncated value is returned.
func truncateUpperBoundString(s string, maxLen int) string {
	runes := []rune(s)
	if len(runes) <= maxLen {
		return s
	}
	prefix := runes[:maxLen]
	for i := len(prefix) - 1; i >= 0; i-- {
		if prefix[i] < 0x10FFFF {
			prefix[i]++
			return string(prefix[:i+1])
		}
	}
	return s
}

// ErrStatsFieldIDCollision is returned when a shredded field id already
// appears in the data file's statistics maps.
var ErrStatsFieldIDCollision = errors.New("variant: shredded stats field id collides with existing data file statistics")

// AddShreddedStatsToDataFile merges stats into file's value-counts,
// null-value-counts, lower-bounds, and upper-bounds maps, keyed by each
// stat's assigned field id.
func AddShreddedStatsToDataFile(file *metadata.DataFile, stats []Stat) error {
	for _, st := range stats {
		if _, ok := file.ValueCounts[st.FieldID]; ok {
			return fmt.Errorf("%w: field id %d", ErrStatsFieldIDCollision, st.FieldID)
		}
		if _, ok := file.NullValueCounts[st.FieldID]; ok {
			return fmt.Errorf("%w: field id %d", ErrStatsFieldIDCollision, st.FieldID)
		}
		if _, ok := file.LowerBounds[st.FieldID]; ok {
			return fmt.Errorf("%w: field id %d", ErrStatsFieldIDCollision, st.FieldID)
		}
		if _, ok := file.UpperBounds[st.FieldID]; ok {
			return fmt.Errorf("%w: field id %d", ErrStatsFieldIDCollision, st.FieldID)
		}
	}

	if file.ValueCounts == nil {
		file.ValueCounts = make(map[int]int64)
	}
	if file.NullValueCounts == nil {
		file.NullValueCounts = make(map[int]int64)
	}
	if file.LowerBounds == nil {
		file.LowerBounds = make(map[int][]byte)
	}
	if file.UpperBounds == nil {
		file.UpperBounds = make(map[int][]byte)
	}

	for _, st := range stats {
		file.ValueCounts[st.FieldID] = st.ValueCount
		file.NullValueCounts[st.FieldID] = st.NullCount
		if st.LowerBound != nil {
			file.LowerBounds[st.FieldID] = st.LowerBound
		}
		if st.UpperBound != nil {
			file.UpperBounds[st.FieldID] = st.UpperBound
		}
	}
	return nil
}
