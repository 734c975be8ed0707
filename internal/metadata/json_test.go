package metadata

import (
	"testing"

	"github.com/marmotdata/icemeta/internal/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func sampleRoot() RootMetadata {
	nextRowID := int64(0)
	return RootMetadata{
		FormatVersion:      3,
		TableUUID:          "9c2c9b0a-1d1a-4a1a-8a1a-1a2b3c4d5e6f",
		Location:           "s3://bucket/warehouse/db/orders",
		LastSequenceNumber: 1,
		LastUpdatedMs:      1000,
		LastColumnID:       3,
		Schemas: []Schema{{
			SchemaID: 0,
			Fields: []Field{
				{ID: 1, Name: "id", Required: true, Type: PrimitiveType{Type: types.Type{Kind: types.Long}}},
				{ID: 2, Name: "amount", Required: false, Type: PrimitiveType{Type: types.Type{Kind: types.Decimal, Precision: 10, Scale: 2}}},
				{ID: 3, Name: "tags", Required: false, Type: ListType{
					ElementID:       4,
					Element:         PrimitiveType{Type: types.Type{Kind: types.String}},
					ElementRequired: false,
				}},
			},
		}},
		CurrentSchemaID: 0,
		PartitionSpecs: []PartitionSpec{{
			SpecID: 0,
			Fields: []PartitionField{{SourceID: 1, FieldID: 1000, Name: "id_bucket", Transform: "bucket[16]"}},
		}},
		DefaultSpecID:   0,
		LastPartitionID: 1000,
		SortOrders:      []SortOrder{{OrderID: 0, Fields: nil}},
		Properties:      map[string]string{"write.format.default": "parquet"},
		Snapshots:       nil,
		SnapshotLog:     nil,
		MetadataLog:     nil,
		Refs:            map[string]SnapshotRef{},
		NextRowID:       &nextRowID,
	}
}

func TestMarshalUnmarshalRootRoundTrip(t *testing.T) {
	orig := sampleRoot()
	b, err := MarshalRoot(orig)
	require.NoError(t, err)

	got, err := UnmarshalRoot(b)
	require.NoError(t, err)

	assert.Equal(t, orig.FormatVersion, got.FormatVersion)
	assert.Equal(t, orig.TableUUID, got.TableUUID)
	assert.Equal(t, orig.Schemas[0].Fields[0].Type, got.Schemas[0].Fields[0].Type)
	assert.Equal(t, orig.Schemas[0].Fields[1].Type, got.Schemas[0].Fields[1].Type)
	assert.Equal(t, orig.Schemas[0].Fields[2].Type, got.Schemas[0].Fields[2].Type)
	assert.Equal(t, orig.PartitionSpecs, got.PartitionSpecs)
	assert.Equal(t, *orig.NextRowID, *got.NextRowID)
}

func TestUnmarshalRootRejectsMissingTableUUID(t *testing.T) {
	_, err := UnmarshalRoot([]byte(`{"format-version":2}`))
	assert.ErrorIs(t, err, ErrMissingRequiredField)
}

func TestUnmarshalRootRejectsUnsupportedFormatVersion(t *testing.T) {
	_, err := UnmarshalRoot([]byte(`{"format-version":4,"table-uuid":"x"}`))
	assert.ErrorIs(t, err, ErrUnsupportedFormatVersion)
}

func TestUnmarshalRootRejectsV3WithoutNextRowID(t *testing.T) {
	_, err := UnmarshalRoot([]byte(`{"format-version":3,"table-uuid":"9c2c9b0a-1d1a-4a1a-8a1a-1a2b3c4d5e6f"}`))
	assert.ErrorIs(t, err, ErrMissingRequiredField)
}

func TestStructAndMapFieldTypesRoundTrip(t *testing.T) {
	schema := Schema{
		SchemaID: 0,
		Fields: []Field{
			{ID: 1, Name: "s", Required: true, Type: StructType{Fields: []Field{
				{ID: 2, Name: "nested", Required: true, Type: PrimitiveType{Type: types.Type{Kind: types.Int}}},
			}}},
			{ID: 3, Name: "m", Required: false, Type: MapType{
				KeyID: 4, Key: PrimitiveType{Type: types.Type{Kind: types.String}},
				ValueID: 5, Value: PrimitiveType{Type: types.Type{Kind: types.Long}}, ValueRequired: true,
			}},
		},
	}
	raw, err := toJSONSchema(schema)
	require.NoError(t, err)
	back, err := fromJSONSchema(raw)
	require.NoError(t, err)
	assert.Equal(t, schema, back)
}
