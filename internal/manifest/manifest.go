// Package manifest builds manifest entries and manifest lists, and
// aggregates the per-partition-field summaries a manifest-list entry
// carries (spec §4.D).
package manifest

import (
	"errors"
	"sort"

	"github.com/marmotdata/icemeta/internal/metadata"
)

// ErrInvalidStatus is returned when a caller supplies a manifest-entry
// status outside {EXISTING, ADDED, DELETED}.
var ErrInvalidStatus = errors.New("manifest: invalid entry status")

// ErrEmptyEqualityIDs is returned by AddEqualityDeleteFile when the file
// carries no equality-ids.
var ErrEmptyEqualityIDs = errors.New("manifest: equality delete file requires non-empty equality-ids")

// Summary is the aggregate (addedFiles, existingFiles, deletedFiles,
// addedRows, existingRows, deletedRows) computed by partitioning a
// manifest's entries on status and summing record-count.
type Summary struct {
	AddedFiles    int
	ExistingFiles int
	DeletedFiles  int
	AddedRows     int64
	ExistingRows  int64
	DeletedRows   int64
}

// Builder accumulates manifest entries for a single manifest file, sharing
// the sequence number and snapshot id of the commit that produced it.
type Builder struct {
	sequenceNumber int64
	snapshotID     int64
	entries        []metadata.ManifestEntry
}

// NewBuilder constructs a Builder for one manifest under the given
// sequence number and snapshot id.
func NewBuilder(sequenceNumber, snapshotID int64) *Builder {
	return &Builder{sequenceNumber: sequenceNumber, snapshotID: snapshotID}
}

func (b *Builder) addEntry(file metadata.DataFile, status metadata.ManifestEntryStatus, content metadata.FileContent) error {
	if !metadata.ValidManifestEntryStatus(status) {
		return ErrInvalidStatus
	}
	file.Content = content
	b.entries = append(b.entries, metadata.ManifestEntry{
		Status:             status,
		SnapshotID:         b.snapshotID,
		SequenceNumber:      b.sequenceNumber,
		FileSequenceNumber:  b.sequenceNumber,
		DataFile:           file,
	})
	return nil
}

// AddDataFile adds a data-content manifest entry.
func (b *Builder) AddDataFile(file metadata.DataFile, status metadata.ManifestEntryStatus) error {
	return b.addEntry(file, status, metadata.ContentData)
}

// AddDataFileWithStats adds a data-content manifest entry after merging the
// supplied statistics maps into the file in deterministic (sorted-key)
// order.
func (b *Builder) AddDataFileWithStats(file metadata.DataFile, status metadata.ManifestEntryStatus, stats Stats) error {
	mergeStats(&file, stats)
	return b.AddDataFile(file, status)
}

// AddPositionDeleteFile adds a position-delete manifest entry (which may or
// may not be a deletion vector; v3 enforcement lives in internal/snapshot).
func (b *Builder) AddPositionDeleteFile(file metadata.DataFile, status metadata.ManifestEntryStatus) error {
	return b.addEntry(file, status, metadata.ContentPositionDeletes)
}

// AddEqualityDeleteFile adds an equality-delete manifest entry; the file
// must carry a non-empty equality-ids list.
func (b *Builder) AddEqualityDeleteFile(file metadata.DataFile, status metadata.ManifestEntryStatus) error {
	if len(file.EqualityIDs) == 0 {
		return ErrEmptyEqualityIDs
	}
	return b.addEntry(file, status, metadata.ContentEqualityDeletes)
}

// Entries returns the accumulated manifest entries.
func (b *Builder) Entries() []metadata.ManifestEntry {
	out := make([]metadata.ManifestEntry, len(b.entries))
	copy(out, b.entries)
	return out
}

// Summarize computes the manifest summary by partitioning entries on status
// and accumulating record-count.
func (b *Builder) Summarize() Summary {
	var s Summary
	for _, e := range b.entries {
		switch e.Status {
		case metadata.StatusAdded:
			s.AddedFiles++
			s.AddedRows += e.DataFile.RecordCount
		case metadata.StatusExisting:
			s.ExistingFiles++
			s.ExistingRows += e.DataFile.RecordCount
		case metadata.StatusDeleted:
			s.DeletedFiles++
			s.DeletedRows += e.DataFile.RecordCount
		}
	}
	return s
}

// Stats is the per-field-id statistics bundle merged into a data file by
// AddDataFileWithStats.
type Stats struct {
	ColumnSizes     map[int]int64
	ValueCounts     map[int]int64
	NullValueCounts map[int]int64
	NaNValueCounts  map[int]int64
	LowerBounds     map[int][]byte
	UpperBounds     map[int][]byte
}

func mergeStats(file *metadata.DataFile, s Stats) {
	file.ColumnSizes = mergeInt64Map(file.ColumnSizes, s.ColumnSizes)
	file.ValueCounts = mergeInt64Map(file.ValueCounts, s.ValueCounts)
	file.NullValueCounts = mergeInt64Map(file.NullValueCounts, s.NullValueCounts)
	file.NaNValueCounts = mergeInt64Map(file.NaNValueCounts, s.NaNValueCounts)
	file.LowerBounds = mergeBytesMap(file.LowerBounds, s.LowerBounds)
	file.UpperBounds = mergeBytesMap(file.UpperBounds, s.UpperBounds)
}

func mergeInt64Map(dst, src map[int]int64) map[int]int64 {
	if len(src) == 0 {
		return dst
	}
	if dst == nil {
		dst = make(map[int]int64, len(src))
	}
	for _, k := range sortedIntKeys(src) {
		dst[k] = src[k]
	}
	return dst
}

func mergeBytesMap(dst, src map[int][]byte) map[int][]byte {
	if len(src) == 0 {
		return dst
	}
	if dst == nil {
		dst = make(map[int][]byte, len(src))
	}
	for _, k := range sortedIntKeys(src) {
		dst[k] = src[k]
	}
	return dst
}

func sortedIntKeys[V any](m map[int]V) []int {
	keys := make([]int, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Ints(keys)
	return keys
}
