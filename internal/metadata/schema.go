// Package metadata defines the immutable entity types of the metadata tree
// (root metadata, schemas, partition specs, sort orders, data files,
// manifest entries/files, snapshots, and refs) along with the invariants
// that must hold whenever a root-metadata value is built.
package metadata

import "github.com/marmotdata/icemeta/internal/types"

// FieldType is a closed sum type: PrimitiveType, StructType, ListType, or
// MapType. Prefer a type switch over virtual dispatch when consuming it.
type FieldType interface {
	isFieldType()
}

// PrimitiveType wraps a primitive value type (boolean, int, string, ...).
type PrimitiveType struct {
	types.Type
}

func (PrimitiveType) isFieldType() {}

// StructType is a nested struct field type.
type StructType struct {
	Fields []Field
}

func (StructType) isFieldType() {}

// ListType is a nested list field type.
type ListType struct {
	ElementID       int
	Element         FieldType
	ElementRequired bool
}

func (ListType) isFieldType() {}

// MapType is a nested map field type.
type MapType struct {
	KeyID         int
	Key           FieldType
	ValueID       int
	Value         FieldType
	ValueRequired bool
}

func (MapType) isFieldType() {}

// Field is a schema field. Field IDs are permanent: a rename preserves the
// id, a drop retires it, and new fields always receive an id strictly
// greater than any ever assigned in the table's history.
type Field struct {
	ID       int
	Name     string
	Required bool
	Type     FieldType
	Doc      string
}

// Schema is one of possibly several schemas coexisting on a table; the
// table's current-schema-id names which one readers/writers default to.
type Schema struct {
	SchemaID int
	Fields   []Field
}

// FieldByID finds a top-level field by id, not recursing into nested
// struct/list/map fields.
func (s Schema) FieldByID(id int) (Field, bool) {
	for _, f := range s.Fields {
		if f.ID == id {
			return f, true
		}
	}
	return Field{}, false
}

// AllFieldIDs returns every field id reachable from s, including nested
// struct fields and list/map element/key/value ids.
func (s Schema) AllFieldIDs() []int {
	var ids []int
	var walk func(f Field)
	walk = func(f Field) {
		ids = append(ids, f.ID)
		walkType(f.Type, &ids)
	}
	for _, f := range s.Fields {
		walk(f)
	}
	return ids
}

func walkType(t FieldType, ids *[]int) {
	switch tt := t.(type) {
	case StructType:
		for _, f := range tt.Fields {
			*ids = append(*ids, f.ID)
			walkType(f.Type, ids)
		}
	case ListType:
		*ids = append(*ids, tt.ElementID)
		walkType(tt.Element, ids)
	case MapType:
		*ids = append(*ids, tt.KeyID, tt.ValueID)
		walkType(tt.Key, ids)
		walkType(tt.Value, ids)
	}
}

// SortDirection is the ordering direction of a sort-order field.
type SortDirection int

const (
	Ascending SortDirection = iota
	Descending
)

// NullOrder places nulls first or last within a sort-order field.
type NullOrder int

const (
	NullsFirst NullOrder = iota
	NullsLast
)

// SortField is one field of a SortOrder.
type SortField struct {
	SourceID  int
	Transform string
	Direction SortDirection
	NullOrder NullOrder
}

// SortOrder is a named, ordered list of sort fields.
type SortOrder struct {
	OrderID int
	Fields  []SortField
}
