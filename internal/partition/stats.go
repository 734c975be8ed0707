package partition

import (
	"fmt"
	"strings"
	"time"

	"github.com/marmotdata/icemeta/internal/types"
)

// FileStats is the per-partition-key aggregate PartitionStatsCollector
// maintains.
type FileStats struct {
	FileCount    int
	RowCount     int64
	SizeBytes    int64
	LastModified time.Time
}

// FieldStats summarizes one partition field's observed values across the
// whole collector.
type FieldStats struct {
	DistinctValues int
	MinValue       interface{}
	MaxValue       interface{}
}

// Totals is the overall aggregate returned by GetStats.
type Totals struct {
	FileCount  int
	RowCount   int64
	SizeBytes  int64
	PerField   map[string]FieldStats
}

// StatsCollector maintains O(1) addFile/removeFile aggregation of file
// counts, row counts, and sizes per partition key, plus per-field distinct
// value/min/max tracking for GetStats.
type StatsCollector struct {
	fieldNames []string
	fieldTypes []types.Type

	byKey map[string]*FileStats
	// values[i] holds the distinct encoded values seen for fieldNames[i],
	// with their decoded logical value for min/max comparison.
	values []map[string]interface{}
}

// NewStatsCollector constructs a collector for a partition spec whose
// fields, in spec order, have the given names and source types.
func NewStatsCollector(fieldNames []string, fieldTypes []types.Type) *StatsCollector {
	values := make([]map[string]interface{}, len(fieldNames))
	for i := range values {
		values[i] = make(map[string]interface{})
	}
	return &StatsCollector{
		fieldNames: fieldNames,
		fieldTypes: fieldTypes,
		byKey:      make(map[string]*FileStats),
		values:     values,
	}
}

// canonicalKey concatenates field values in spec order; nil (null) is kept
// distinct from the empty string by using a per-value length prefix.
func canonicalKey(values []interface{}) string {
	var b strings.Builder
	for _, v := range values {
		if v == nil {
			b.WriteString("\x00N")
			continue
		}
		s := fmt.Sprintf("%v", v)
		fmt.Fprintf(&b, "\x00%d:%s", len(s), s)
	}
	return b.String()
}

// AddFile records one data file's contribution to the partition identified
// by values (one per field, in spec order, as logical values).
func (c *StatsCollector) AddFile(values []interface{}, rows, sizeBytes int64, modified time.Time) {
	key := canonicalKey(values)
	s, ok := c.byKey[key]
	if !ok {
		s = &FileStats{}
		c.byKey[key] = s
	}
	s.FileCount++
	s.RowCount += rows
	s.SizeBytes += sizeBytes
	if modified.After(s.LastModified) {
		s.LastModified = modified
	}

	for i, v := range values {
		if v == nil {
			continue
		}
		enc, err := types.Encode(c.fieldTypes[i], v)
		if err != nil {
			continue
		}
		c.values[i][string(enc)] = v
	}
}

// RemoveFile reverses a prior AddFile for the same partition key. Per-field
// distinct-value tracking is not rolled back, since a value may still be
// present in other files of the same partition; GetStats' distinct counts
// are therefore a high-water mark, not a live recount.
func (c *StatsCollector) RemoveFile(values []interface{}, rows, sizeBytes int64) {
	key := canonicalKey(values)
	s, ok := c.byKey[key]
	if !ok {
		return
	}
	s.FileCount--
	s.RowCount -= rows
	s.SizeBytes -= sizeBytes
	if s.FileCount <= 0 {
		delete(c.byKey, key)
	}
}

// GetStats aggregates the overall totals and per-field distinct/min/max
// summaries, ordering min/max per field by that field's source type
// (spec §4.B).
func (c *StatsCollector) GetStats() Totals {
	totals := Totals{PerField: make(map[string]FieldStats, len(c.fieldNames))}
	for _, s := range c.byKey {
		totals.FileCount += s.FileCount
		totals.RowCount += s.RowCount
		totals.SizeBytes += s.SizeBytes
	}

	for i, name := range c.fieldNames {
		fs := FieldStats{DistinctValues: len(c.values[i])}
		for _, v := range c.values[i] {
			if fs.MinValue == nil {
				fs.MinValue, fs.MaxValue = v, v
				continue
			}
			if cmp, err := types.Cmp(c.fieldTypes[i], v, fs.MinValue); err == nil && cmp < 0 {
				fs.MinValue = v
			}
			if cmp, err := types.Cmp(c.fieldTypes[i], v, fs.MaxValue); err == nil && cmp > 0 {
				fs.MaxValue = v
			}
		}
		totals.PerField[name] = fs
	}
	return totals
}
