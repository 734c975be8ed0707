package metadata

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func baseMetadata() RootMetadata {
	uid := metaUUID()
	return RootMetadata{
		FormatVersion:   2,
		TableUUID:       uid,
		Location:        "warehouse/db/t",
		LastColumnID:    2,
		Schemas:         []Schema{{SchemaID: 0, Fields: []Field{{ID: 1, Name: "a", Required: true}}}},
		CurrentSchemaID: 0,
		PartitionSpecs:  []PartitionSpec{{SpecID: 0}},
		DefaultSpecID:   0,
		LastPartitionID: InitialLastPartitionID,
		SortOrders:      []SortOrder{{OrderID: 0}},
		DefaultSortOrderID: 0,
		Properties:      map[string]string{},
		Refs:            map[string]SnapshotRef{},
	}
}

func metaUUID() string {
	return NewTableUUID()
}

func TestValidateHappyPath(t *testing.T) {
	m := baseMetadata()
	require.NoError(t, Validate(m))
}

func TestValidateMissingCurrentSchema(t *testing.T) {
	m := baseMetadata()
	m.CurrentSchemaID = 7
	err := Validate(m)
	assert.ErrorIs(t, err, ErrBrokenInvariant)
}

func TestValidateRefToMissingSnapshot(t *testing.T) {
	m := baseMetadata()
	m.Refs["main"] = SnapshotRef{SnapshotID: 99, Type: RefBranch}
	err := Validate(m)
	assert.ErrorIs(t, err, ErrBrokenInvariant)
}

func TestValidateBadUUID(t *testing.T) {
	m := baseMetadata()
	m.TableUUID = "not-a-uuid"
	err := Validate(m)
	assert.ErrorIs(t, err, ErrBrokenInvariant)
}

func TestValidateV3RequiresNextRowID(t *testing.T) {
	m := baseMetadata()
	m.FormatVersion = 3
	err := Validate(m)
	assert.ErrorIs(t, err, ErrBrokenInvariant)

	nextRowID := int64(0)
	m.NextRowID = &nextRowID
	require.NoError(t, Validate(m))
}

func TestValidateSequenceNumberOrdering(t *testing.T) {
	m := baseMetadata()
	parent := int64(1)
	m.Snapshots = []Snapshot{
		{SnapshotID: 1, SequenceNumber: 1, SchemaID: 0},
		{SnapshotID: 2, SequenceNumber: 1, SchemaID: 0, ParentSnapshotID: &parent}, // not strictly increasing
	}
	m.LastSequenceNumber = 1
	err := Validate(m)
	assert.ErrorIs(t, err, ErrBrokenInvariant)
}

func TestIsDeletionVector(t *testing.T) {
	off, size := int64(0), int64(100)
	dv := DataFile{Content: ContentPositionDeletes, ContentOffset: &off, ContentSize: &size, ReferencedDataFile: "data/f1.parquet"}
	assert.True(t, IsDeletionVector(dv))

	legacy := DataFile{Content: ContentPositionDeletes}
	assert.False(t, IsDeletionVector(legacy))
}

func TestValidManifestEntryStatus(t *testing.T) {
	assert.True(t, ValidManifestEntryStatus(StatusAdded))
	assert.False(t, ValidManifestEntryStatus(ManifestEntryStatus(5)))
}
