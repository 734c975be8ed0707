package metadata

// Operation classifies what kind of write produced a snapshot.
type Operation string

const (
	OperationAppend   Operation = "append"
	OperationReplace  Operation = "replace"
	OperationOverwrite Operation = "overwrite"
	OperationDelete   Operation = "delete"
)

// Snapshot is an immutable version of the table, pointing to exactly one
// manifest list.
type Snapshot struct {
	SnapshotID       int64
	ParentSnapshotID *int64
	SequenceNumber   int64
	TimestampMs      int64
	Operation        Operation
	ManifestList     string
	SchemaID         int
	Summary          map[string]string

	// v3-only fields.
	FirstRowID *int64
	AddedRows  *int64
	KeyID      *int64
}

// RefType distinguishes a mutable branch pointer from an immutable tag.
type RefType string

const (
	RefBranch RefType = "branch"
	RefTag    RefType = "tag"
)

// SnapshotRef is a named pointer to a snapshot id, with its own optional
// retention overrides.
type SnapshotRef struct {
	SnapshotID         int64
	Type               RefType
	MaxRefAgeMs        *int64
	MaxSnapshotAgeMs   *int64
	MinSnapshotsToKeep *int
}

// MainBranch is the conventional (but not mandatory) name of the primary
// branch ref.
const MainBranch = "main"

// SnapshotLogEntry records one historical (timestamp, snapshot-id) pair for
// the table's current branch tip.
type SnapshotLogEntry struct {
	TimestampMs int64
	SnapshotID  int64
}

// MetadataLogEntry records one historical (timestamp, metadata-file) pair.
type MetadataLogEntry struct {
	TimestampMs  int64
	MetadataFile string
}
