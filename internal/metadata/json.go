package metadata

import (
	"encoding/json"
	"fmt"

	"github.com/marmotdata/icemeta/internal/types"
)

// MarshalRoot serializes m to the canonical root-metadata JSON document
// (spec §6): the required v2 fields in canonical field order, plus
// next-row-id/encryption-keys when format-version is 3.
func MarshalRoot(m RootMetadata) ([]byte, error) {
	doc, err := toJSONRoot(m)
	if err != nil {
		return nil, fmt.Errorf("marshaling root metadata: %w", err)
	}
	b, err := json.MarshalIndent(doc, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("marshaling root metadata: %w", err)
	}
	return b, nil
}

// UnmarshalRoot parses a root-metadata JSON document into a RootMetadata.
func UnmarshalRoot(b []byte) (RootMetadata, error) {
	var doc jsonRoot
	if err := json.Unmarshal(b, &doc); err != nil {
		return RootMetadata{}, fmt.Errorf("%w: unmarshaling root metadata: %v", ErrMissingRequiredField, err)
	}
	return fromJSONRoot(doc)
}

type jsonRoot struct {
	FormatVersion      int                    `json:"format-version"`
	TableUUID          string                 `json:"table-uuid"`
	Location           string                 `json:"location"`
	LastSequenceNumber int64                  `json:"last-sequence-number"`
	LastUpdatedMs      int64                  `json:"last-updated-ms"`
	LastColumnID       int                    `json:"last-column-id"`
	Schemas            []jsonSchema           `json:"schemas"`
	CurrentSchemaID    int                    `json:"current-schema-id"`
	PartitionSpecs     []jsonPartitionSpec    `json:"partition-specs"`
	DefaultSpecID      int                    `json:"default-spec-id"`
	LastPartitionID    int                    `json:"last-partition-id"`
	SortOrders         []jsonSortOrder        `json:"sort-orders"`
	DefaultSortOrderID int                    `json:"default-sort-order-id"`
	Properties         map[string]string      `json:"properties"`
	CurrentSnapshotID  *int64                 `json:"current-snapshot-id"`
	Snapshots          []jsonSnapshot         `json:"snapshots"`
	SnapshotLog        []jsonSnapshotLogEntry `json:"snapshot-log"`
	MetadataLog        []jsonMetadataLogEntry `json:"metadata-log"`
	Refs               map[string]jsonRef     `json:"refs"`

	NextRowID      *int64            `json:"next-row-id,omitempty"`
	EncryptionKeys map[string]string `json:"encryption-keys,omitempty"`
}

type jsonField struct {
	ID       int             `json:"id"`
	Name     string          `json:"name"`
	Required bool            `json:"required"`
	Type     json.RawMessage `json:"type"`
	Doc      string          `json:"doc,omitempty"`
}

type jsonSchema struct {
	SchemaID int         `json:"schema-id"`
	Fields   []jsonField `json:"fields"`
}

type jsonStructType struct {
	Type   string      `json:"type"`
	Fields []jsonField `json:"fields"`
}

type jsonListType struct {
	Type            string          `json:"type"`
	ElementID       int             `json:"element-id"`
	Element         json.RawMessage `json:"element"`
	ElementRequired bool            `json:"element-required"`
}

type jsonMapType struct {
	Type          string          `json:"type"`
	KeyID         int             `json:"key-id"`
	Key           json.RawMessage `json:"key"`
	ValueID       int             `json:"value-id"`
	Value         json.RawMessage `json:"value"`
	ValueRequired bool            `json:"value-required"`
}

type jsonPartitionField struct {
	SourceID  int    `json:"source-id"`
	FieldID   int    `json:"field-id"`
	Name      string `json:"name"`
	Transform string `json:"transform"`
}

type jsonPartitionSpec struct {
	SpecID int                  `json:"spec-id"`
	Fields []jsonPartitionField `json:"fields"`
}

type jsonSortField struct {
	SourceID  int    `json:"source-id"`
	Transform string `json:"transform"`
	Direction string `json:"direction"`
	NullOrder string `json:"null-order"`
}

type jsonSortOrder struct {
	OrderID int             `json:"order-id"`
	Fields  []jsonSortField `json:"fields"`
}

type jsonSnapshot struct {
	SnapshotID       int64             `json:"snapshot-id"`
	ParentSnapshotID *int64            `json:"parent-snapshot-id,omitempty"`
	SequenceNumber   int64             `json:"sequence-number"`
	TimestampMs      int64             `json:"timestamp-ms"`
	ManifestList     string            `json:"manifest-list"`
	SchemaID         int               `json:"schema-id"`
	Summary          map[string]string `json:"summary"`

	FirstRowID *int64 `json:"first-row-id,omitempty"`
	AddedRows  *int64 `json:"added-rows,omitempty"`
	KeyID      *int64 `json:"key-id,omitempty"`
}

type jsonSnapshotLogEntry struct {
	TimestampMs int64 `json:"timestamp-ms"`
	SnapshotID  int64 `json:"snapshot-id"`
}

type jsonMetadataLogEntry struct {
	TimestampMs  int64  `json:"timestamp-ms"`
	MetadataFile string `json:"metadata-file"`
}

type jsonRef struct {
	SnapshotID         int64  `json:"snapshot-id"`
	Type               string `json:"type"`
	MaxRefAgeMs        *int64 `json:"max-ref-age-ms,omitempty"`
	MaxSnapshotAgeMs   *int64 `json:"max-snapshot-age-ms,omitempty"`
	MinSnapshotsToKeep *int   `json:"min-snapshots-to-keep,omitempty"`
}

func toJSONRoot(m RootMetadata) (jsonRoot, error) {
	schemas := make([]jsonSchema, len(m.Schemas))
	for i, s := range m.Schemas {
		js, err := toJSONSchema(s)
		if err != nil {
			return jsonRoot{}, err
		}
		schemas[i] = js
	}

	specs := make([]jsonPartitionSpec, len(m.PartitionSpecs))
	for i, spec := range m.PartitionSpecs {
		specs[i] = toJSONPartitionSpec(spec)
	}

	orders := make([]jsonSortOrder, len(m.SortOrders))
	for i, o := range m.SortOrders {
		orders[i] = toJSONSortOrder(o)
	}

	snapshots := make([]jsonSnapshot, len(m.Snapshots))
	for i, s := range m.Snapshots {
		snapshots[i] = toJSONSnapshot(s)
	}

	snapLog := make([]jsonSnapshotLogEntry, len(m.SnapshotLog))
	for i, e := range m.SnapshotLog {
		snapLog[i] = jsonSnapshotLogEntry{TimestampMs: e.TimestampMs, SnapshotID: e.SnapshotID}
	}

	metaLog := make([]jsonMetadataLogEntry, len(m.MetadataLog))
	for i, e := range m.MetadataLog {
		metaLog[i] = jsonMetadataLogEntry{TimestampMs: e.TimestampMs, MetadataFile: e.MetadataFile}
	}

	refs := make(map[string]jsonRef, len(m.Refs))
	for name, ref := range m.Refs {
		refs[name] = jsonRef{
			SnapshotID:         ref.SnapshotID,
			Type:               string(ref.Type),
			MaxRefAgeMs:        ref.MaxRefAgeMs,
			MaxSnapshotAgeMs:   ref.MaxSnapshotAgeMs,
			MinSnapshotsToKeep: ref.MinSnapshotsToKeep,
		}
	}

	return jsonRoot{
		FormatVersion:      m.FormatVersion,
		TableUUID:          m.TableUUID,
		Location:           m.Location,
		LastSequenceNumber: m.LastSequenceNumber,
		LastUpdatedMs:      m.LastUpdatedMs,
		LastColumnID:       m.LastColumnID,
		Schemas:            schemas,
		CurrentSchemaID:    m.CurrentSchemaID,
		PartitionSpecs:     specs,
		DefaultSpecID:      m.DefaultSpecID,
		LastPartitionID:    m.LastPartitionID,
		SortOrders:         orders,
		DefaultSortOrderID: m.DefaultSortOrderID,
		Properties:         m.Properties,
		CurrentSnapshotID:  m.CurrentSnapshotID,
		Snapshots:          snapshots,
		SnapshotLog:        snapLog,
		MetadataLog:        metaLog,
		Refs:               refs,
		NextRowID:          m.NextRowID,
		EncryptionKeys:     m.EncryptionKeys,
	}, nil
}

func fromJSONRoot(doc jsonRoot) (RootMetadata, error) {
	schemas := make([]Schema, len(doc.Schemas))
	for i, js := range doc.Schemas {
		s, err := fromJSONSchema(js)
		if err != nil {
			return RootMetadata{}, err
		}
		schemas[i] = s
	}

	specs := make([]PartitionSpec, len(doc.PartitionSpecs))
	for i, js := range doc.PartitionSpecs {
		specs[i] = fromJSONPartitionSpec(js)
	}

	orders := make([]SortOrder, len(doc.SortOrders))
	for i, js := range doc.SortOrders {
		orders[i] = fromJSONSortOrder(js)
	}

	snapshots := make([]Snapshot, len(doc.Snapshots))
	for i, js := range doc.Snapshots {
		snapshots[i] = fromJSONSnapshot(js)
	}

	snapLog := make([]SnapshotLogEntry, len(doc.SnapshotLog))
	for i, e := range doc.SnapshotLog {
		snapLog[i] = SnapshotLogEntry{TimestampMs: e.TimestampMs, SnapshotID: e.SnapshotID}
	}

	metaLog := make([]MetadataLogEntry, len(doc.MetadataLog))
	for i, e := range doc.MetadataLog {
		metaLog[i] = MetadataLogEntry{TimestampMs: e.TimestampMs, MetadataFile: e.MetadataFile}
	}

	refs := make(map[string]SnapshotRef, len(doc.Refs))
	for name, js := range doc.Refs {
		refs[name] = SnapshotRef{
			SnapshotID:         js.SnapshotID,
			Type:               RefType(js.Type),
			MaxRefAgeMs:        js.MaxRefAgeMs,
			MaxSnapshotAgeMs:   js.MaxSnapshotAgeMs,
			MinSnapshotsToKeep: js.MinSnapshotsToKeep,
		}
	}

	if doc.FormatVersion == 0 {
		return RootMetadata{}, fmt.Errorf("%w: format-version", ErrMissingRequiredField)
	}
	if doc.FormatVersion != 1 && doc.FormatVersion != 2 && doc.FormatVersion != 3 {
		return RootMetadata{}, fmt.Errorf("%w: format-version %d", ErrUnsupportedFormatVersion, doc.FormatVersion)
	}
	if doc.TableUUID == "" {
		return RootMetadata{}, fmt.Errorf("%w: table-uuid", ErrMissingRequiredField)
	}
	if doc.FormatVersion == 3 && doc.NextRowID == nil {
		return RootMetadata{}, fmt.Errorf("%w: next-row-id required for format-version 3", ErrMissingRequiredField)
	}

	return RootMetadata{
		FormatVersion:      doc.FormatVersion,
		TableUUID:          doc.TableUUID,
		Location:           doc.Location,
		LastSequenceNumber: doc.LastSequenceNumber,
		LastUpdatedMs:      doc.LastUpdatedMs,
		LastColumnID:       doc.LastColumnID,
		Schemas:            schemas,
		CurrentSchemaID:    doc.CurrentSchemaID,
		PartitionSpecs:     specs,
		DefaultSpecID:      doc.DefaultSpecID,
		LastPartitionID:    doc.LastPartitionID,
		SortOrders:         orders,
		DefaultSortOrderID: doc.DefaultSortOrderID,
		Properties:         doc.Properties,
		CurrentSnapshotID:  doc.CurrentSnapshotID,
		Snapshots:          snapshots,
		SnapshotLog:        snapLog,
		MetadataLog:        metaLog,
		Refs:               refs,
		NextRowID:          doc.NextRowID,
		EncryptionKeys:     doc.EncryptionKeys,
	}, nil
}

func toJSONSchema(s Schema) (jsonSchema, error) {
	fields := make([]jsonField, len(s.Fields))
	for i, f := range s.Fields {
		jf, err := toJSONField(f)
		if err != nil {
			return jsonSchema{}, err
		}
		fields[i] = jf
	}
	return jsonSchema{SchemaID: s.SchemaID, Fields: fields}, nil
}

func fromJSONSchema(js jsonSchema) (Schema, error) {
	fields := make([]Field, len(js.Fields))
	for i, jf := range js.Fields {
		f, err := fromJSONField(jf)
		if err != nil {
			return Schema{}, err
		}
		fields[i] = f
	}
	return Schema{SchemaID: js.SchemaID, Fields: fields}, nil
}

func toJSONField(f Field) (jsonField, error) {
	raw, err := marshalFieldType(f.Type)
	if err != nil {
		return jsonField{}, err
	}
	return jsonField{ID: f.ID, Name: f.Name, Required: f.Required, Type: raw, Doc: f.Doc}, nil
}

func fromJSONField(jf jsonField) (Field, error) {
	t, err := unmarshalFieldType(jf.Type)
	if err != nil {
		return Field{}, err
	}
	return Field{ID: jf.ID, Name: jf.Name, Required: jf.Required, Type: t, Doc: jf.Doc}, nil
}

// marshalFieldType serializes a FieldType: a bare JSON string for
// primitives, a tagged object for struct/list/map, matching the shape a
// reader would expect from the type's closed sum (spec §4.C).
func marshalFieldType(t FieldType) (json.RawMessage, error) {
	switch tt := t.(type) {
	case PrimitiveType:
		return json.Marshal(tt.Type.String())
	case StructType:
		fields := make([]jsonField, len(tt.Fields))
		for i, f := range tt.Fields {
			jf, err := toJSONField(f)
			if err != nil {
				return nil, err
			}
			fields[i] = jf
		}
		return json.Marshal(jsonStructType{Type: "struct", Fields: fields})
	case ListType:
		elem, err := marshalFieldType(tt.Element)
		if err != nil {
			return nil, err
		}
		return json.Marshal(jsonListType{Type: "list", ElementID: tt.ElementID, Element: elem, ElementRequired: tt.ElementRequired})
	case MapType:
		key, err := marshalFieldType(tt.Key)
		if err != nil {
			return nil, err
		}
		val, err := marshalFieldType(tt.Value)
		if err != nil {
			return nil, err
		}
		return json.Marshal(jsonMapType{Type: "map", KeyID: tt.KeyID, Key: key, ValueID: tt.ValueID, Value: val, ValueRequired: tt.ValueRequired})
	default:
		return nil, fmt.Errorf("%w: unknown field type %T", ErrMissingRequiredField, t)
	}
}

func unmarshalFieldType(raw json.RawMessage) (FieldType, error) {
	var asString string
	if err := json.Unmarshal(raw, &asString); err == nil {
		pt, err := types.ParseType(asString)
		if err != nil {
			return nil, fmt.Errorf("parsing primitive type: %w", err)
		}
		return PrimitiveType{Type: pt}, nil
	}

	var kind struct {
		Type string `json:"type"`
	}
	if err := json.Unmarshal(raw, &kind); err != nil {
		return nil, fmt.Errorf("%w: parsing field type: %v", ErrMissingRequiredField, err)
	}

	switch kind.Type {
	case "struct":
		var st jsonStructType
		if err := json.Unmarshal(raw, &st); err != nil {
			return nil, err
		}
		fields := make([]Field, len(st.Fields))
		for i, jf := range st.Fields {
			f, err := fromJSONField(jf)
			if err != nil {
				return nil, err
			}
			fields[i] = f
		}
		return StructType{Fields: fields}, nil
	case "list":
		var lt jsonListType
		if err := json.Unmarshal(raw, &lt); err != nil {
			return nil, err
		}
		elem, err := unmarshalFieldType(lt.Element)
		if err != nil {
			return nil, err
		}
		return ListType{ElementID: lt.ElementID, Element: elem, ElementRequired: lt.ElementRequired}, nil
	case "map":
		var mt jsonMapType
		if err := json.Unmarshal(raw, &mt); err != nil {
			return nil, err
		}
		key, err := unmarshalFieldType(mt.Key)
		if err != nil {
			return nil, err
		}
		val, err := unmarshalFieldType(mt.Value)
		if err != nil {
			return nil, err
		}
		return MapType{KeyID: mt.KeyID, Key: key, ValueID: mt.ValueID, Value: val, ValueRequired: mt.ValueRequired}, nil
	default:
		return nil, fmt.Errorf("%w: unknown field type tag %q", ErrMissingRequiredField, kind.Type)
	}
}

func toJSONPartitionSpec(spec PartitionSpec) jsonPartitionSpec {
	fields := make([]jsonPartitionField, len(spec.Fields))
	for i, f := range spec.Fields {
		fields[i] = jsonPartitionField{SourceID: f.SourceID, FieldID: f.FieldID, Name: f.Name, Transform: f.Transform}
	}
	return jsonPartitionSpec{SpecID: spec.SpecID, Fields: fields}
}

func fromJSONPartitionSpec(js jsonPartitionSpec) PartitionSpec {
	fields := make([]PartitionField, len(js.Fields))
	for i, jf := range js.Fields {
		fields[i] = PartitionField{SourceID: jf.SourceID, FieldID: jf.FieldID, Name: jf.Name, Transform: jf.Transform}
	}
	return PartitionSpec{SpecID: js.SpecID, Fields: fields}
}

func toJSONSortOrder(o SortOrder) jsonSortOrder {
	fields := make([]jsonSortField, len(o.Fields))
	for i, f := range o.Fields {
		direction := "asc"
		if f.Direction == Descending {
			direction = "desc"
		}
		nullOrder := "nulls-first"
		if f.NullOrder == NullsLast {
			nullOrder = "nulls-last"
		}
		fields[i] = jsonSortField{SourceID: f.SourceID, Transform: f.Transform, Direction: direction, NullOrder: nullOrder}
	}
	return jsonSortOrder{OrderID: o.OrderID, Fields: fields}
}

func fromJSONSortOrder(js jsonSortOrder) SortOrder {
	fields := make([]SortField, len(js.Fields))
	for i, jf := range js.Fields {
		direction := Ascending
		if jf.Direction == "desc" {
			direction = Descending
		}
		nullOrder := NullsFirst
		if jf.NullOrder == "nulls-last" {
			nullOrder = NullsLast
		}
		fields[i] = SortField{SourceID: jf.SourceID, Transform: jf.Transform, Direction: direction, NullOrder: nullOrder}
	}
	return SortOrder{OrderID: js.OrderID, Fields: fields}
}

func toJSONSnapshot(s Snapshot) jsonSnapshot {
	return jsonSnapshot{
		SnapshotID:       s.SnapshotID,
		ParentSnapshotID: s.ParentSnapshotID,
		SequenceNumber:   s.SequenceNumber,
		TimestampMs:      s.TimestampMs,
		ManifestList:     s.ManifestList,
		SchemaID:         s.SchemaID,
		Summary:          s.Summary,
		FirstRowID:       s.FirstRowID,
		AddedRows:        s.AddedRows,
		KeyID:            s.KeyID,
	}
}

func fromJSONSnapshot(js jsonSnapshot) Snapshot {
	return Snapshot{
		SnapshotID:       js.SnapshotID,
		ParentSnapshotID: js.ParentSnapshotID,
		SequenceNumber:   js.SequenceNumber,
		TimestampMs:      js.TimestampMs,
		Operation:        Operation(js.Summary["operation"]),
		ManifestList:     js.ManifestList,
		SchemaID:         js.SchemaID,
		Summary:          js.Summary,
		FirstRowID:       js.FirstRowID,
		AddedRows:        js.AddedRows,
		KeyID:            js.KeyID,
	}
}
