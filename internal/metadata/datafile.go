package metadata

// FileContent classifies what a data file holds.
type FileContent int

const (
	ContentData FileContent = iota
	ContentPositionDeletes
	ContentEqualityDeletes
)

// DataFile describes one data or delete file referenced by a manifest
// entry. Bounds are opaque, type-encoded byte strings (see internal/types).
type DataFile struct {
	Content         FileContent
	FilePath        string
	FileFormat      string
	Partition       map[string]interface{}
	RecordCount     int64
	FileSizeInBytes int64

	ColumnSizes     map[int]int64
	ValueCounts     map[int]int64
	NullValueCounts map[int]int64
	NaNValueCounts  map[int]int64
	LowerBounds     map[int][]byte
	UpperBounds     map[int][]byte

	EqualityIDs []int

	// Deletion-vector fields: set together or not at all.
	ContentOffset     *int64
	ContentSize       *int64
	ReferencedDataFile string
}

// IsDeletionVector reports whether f is a position-delete file carrying all
// three deletion-vector fields.
func IsDeletionVector(f DataFile) bool {
	return f.Content == ContentPositionDeletes &&
		f.ContentOffset != nil && f.ContentSize != nil && f.ReferencedDataFile != ""
}

// ManifestEntryStatus classifies a manifest entry's effect on the table's
// live-file set.
type ManifestEntryStatus int

const (
	StatusExisting ManifestEntryStatus = iota
	StatusAdded
	StatusDeleted
)

// ValidManifestEntryStatus reports whether s is one of the three legal
// status values.
func ValidManifestEntryStatus(s ManifestEntryStatus) bool {
	return s == StatusExisting || s == StatusAdded || s == StatusDeleted
}

// ManifestEntry is one row of a manifest: a data or delete file plus the
// snapshot/sequence-number bookkeeping needed to reason about visibility.
type ManifestEntry struct {
	Status             ManifestEntryStatus
	SnapshotID         int64
	SequenceNumber     int64
	FileSequenceNumber int64
	DataFile           DataFile
}

// ManifestContent classifies what kind of files a manifest lists.
type ManifestContent int

const (
	ManifestContentData ManifestContent = iota
	ManifestContentDeletes
)

// PartitionFieldSummary aggregates the values seen for one partition field
// across every entry of a manifest.
type PartitionFieldSummary struct {
	ContainsNull bool
	ContainsNaN  *bool
	LowerBound   []byte
	UpperBound   []byte
}

// ManifestFile is a manifest-list entry: a reference to one manifest plus
// its per-cluster summary statistics.
type ManifestFile struct {
	ManifestPath    string
	ManifestLength  int64
	PartitionSpecID int
	Content         ManifestContent
	SequenceNumber  int64
	MinSequenceNumber int64
	AddedSnapshotID int64

	AddedFilesCount    int
	ExistingFilesCount int
	DeletedFilesCount  int
	AddedRowsCount     int64
	ExistingRowsCount  int64
	DeletedRowsCount   int64

	Partitions []PartitionFieldSummary
}
