package metadata

import (
	"errors"
	"fmt"
	"regexp"
)

// ErrBrokenInvariant is the sentinel wrapped by every invariant violation
// Validate reports.
var ErrBrokenInvariant = errors.New("metadata: broken invariant")

// ErrMissingRequiredField is wrapped when parsing a root-metadata document
// that omits a field required by the format version, or names a type tag
// outside the closed FieldType sum.
var ErrMissingRequiredField = errors.New("metadata: missing required field")

// ErrUnsupportedFormatVersion is wrapped when a root-metadata document
// declares a format-version this library does not understand.
var ErrUnsupportedFormatVersion = errors.New("metadata: unsupported format version")

var uuidV4Re = regexp.MustCompile(`^[0-9a-f]{8}-[0-9a-f]{4}-4[0-9a-f]{3}-[89ab][0-9a-f]{3}-[0-9a-f]{12}$`)

// RootMetadata is the single concurrency root of a table: the root-metadata
// blob described in spec §3/§6.
type RootMetadata struct {
	FormatVersion int
	TableUUID     string
	Location      string

	LastSequenceNumber int64
	LastUpdatedMs      int64

	LastColumnID    int
	Schemas         []Schema
	CurrentSchemaID int

	PartitionSpecs []PartitionSpec
	DefaultSpecID  int
	LastPartitionID int

	SortOrders        []SortOrder
	DefaultSortOrderID int

	Properties map[string]string

	CurrentSnapshotID *int64
	Snapshots         []Snapshot
	SnapshotLog       []SnapshotLogEntry
	MetadataLog       []MetadataLogEntry
	Refs              map[string]SnapshotRef

	// v3 only.
	NextRowID      *int64
	EncryptionKeys map[string]string
}

// SchemaByID looks up a schema by id.
func (m RootMetadata) SchemaByID(id int) (Schema, bool) {
	for _, s := range m.Schemas {
		if s.SchemaID == id {
			return s, true
		}
	}
	return Schema{}, false
}

// SnapshotByID looks up a snapshot by id.
func (m RootMetadata) SnapshotByID(id int64) (Snapshot, bool) {
	for _, s := range m.Snapshots {
		if s.SnapshotID == id {
			return s, true
		}
	}
	return Snapshot{}, false
}

// Validate checks every build-time invariant from spec §3/§8 against m,
// returning a wrapped ErrBrokenInvariant describing the first violation
// found, or nil.
func Validate(m RootMetadata) error {
	if _, ok := m.SchemaByID(m.CurrentSchemaID); !ok {
		return fmt.Errorf("%w: current-schema-id %d not present in schemas", ErrBrokenInvariant, m.CurrentSchemaID)
	}
	if !hasSpec(m.PartitionSpecs, m.DefaultSpecID) {
		return fmt.Errorf("%w: default-spec-id %d not present in partition-specs", ErrBrokenInvariant, m.DefaultSpecID)
	}
	if !hasSortOrder(m.SortOrders, m.DefaultSortOrderID) {
		return fmt.Errorf("%w: default-sort-order-id %d not present in sort-orders", ErrBrokenInvariant, m.DefaultSortOrderID)
	}

	for _, s := range m.Snapshots {
		if _, ok := m.SchemaByID(s.SchemaID); !ok {
			return fmt.Errorf("%w: snapshot %d references unknown schema-id %d", ErrBrokenInvariant, s.SnapshotID, s.SchemaID)
		}
	}

	for name, ref := range m.Refs {
		if _, ok := m.SnapshotByID(ref.SnapshotID); !ok {
			return fmt.Errorf("%w: ref %q points to unknown snapshot %d", ErrBrokenInvariant, name, ref.SnapshotID)
		}
	}

	if err := validateCurrentSnapshot(m); err != nil {
		return err
	}

	if err := validateSequenceNumbers(m); err != nil {
		return err
	}

	if !uuidV4Re.MatchString(m.TableUUID) {
		return fmt.Errorf("%w: table-uuid %q is not a valid UUIDv4", ErrBrokenInvariant, m.TableUUID)
	}

	if m.FormatVersion == 3 {
		if m.NextRowID == nil {
			return fmt.Errorf("%w: format-version 3 requires next-row-id", ErrBrokenInvariant)
		}
	}

	return nil
}

func hasSpec(specs []PartitionSpec, id int) bool {
	for _, s := range specs {
		if s.SpecID == id {
			return true
		}
	}
	return false
}

func hasSortOrder(orders []SortOrder, id int) bool {
	for _, o := range orders {
		if o.OrderID == id {
			return true
		}
	}
	return false
}

func validateCurrentSnapshot(m RootMetadata) error {
	claimedByBranch := false
	for _, ref := range m.Refs {
		if ref.Type == RefBranch && m.CurrentSnapshotID != nil && ref.SnapshotID == *m.CurrentSnapshotID {
			claimedByBranch = true
		}
	}

	if m.CurrentSnapshotID == nil {
		return nil
	}
	if len(m.Snapshots) == 0 && !claimedByBranch {
		return fmt.Errorf("%w: current-snapshot-id set but no snapshots exist", ErrBrokenInvariant)
	}
	if _, ok := m.SnapshotByID(*m.CurrentSnapshotID); !ok {
		return fmt.Errorf("%w: current-snapshot-id %d does not exist", ErrBrokenInvariant, *m.CurrentSnapshotID)
	}
	return nil
}

func validateSequenceNumbers(m RootMetadata) error {
	maxSeen := int64(0)
	for _, s := range m.Snapshots {
		if s.SequenceNumber > maxSeen {
			maxSeen = s.SequenceNumber
		}
	}
	if m.LastSequenceNumber < maxSeen {
		return fmt.Errorf("%w: last-sequence-number %d less than max snapshot sequence-number %d", ErrBrokenInvariant, m.LastSequenceNumber, maxSeen)
	}

	byID := make(map[int64]Snapshot, len(m.Snapshots))
	for _, s := range m.Snapshots {
		byID[s.SnapshotID] = s
	}
	for _, s := range m.Snapshots {
		cur := s
		for cur.ParentSnapshotID != nil {
			parent, ok := byID[*cur.ParentSnapshotID]
			if !ok {
				break // dangling parent: legal after expiration, see internal/snapshot.
			}
			if parent.SequenceNumber >= cur.SequenceNumber {
				return fmt.Errorf("%w: sequence numbers not strictly increasing along ancestry at snapshot %d", ErrBrokenInvariant, cur.SnapshotID)
			}
			cur = parent
		}
	}
	return nil
}
