package metadata

// PartitionField is permanent analogously to a schema Field: its FieldID is
// never reused. FieldID must be >= 1000; last-partition-id on the owning
// root metadata initializes to 999 so the first ever assigned is 1000.
type PartitionField struct {
	SourceID  int
	FieldID   int
	Name      string
	Transform string // textual form, e.g. "identity", "bucket[16]", "void"
}

// FirstPartitionFieldID is the smallest legal partition field id.
const FirstPartitionFieldID = 1000

// InitialLastPartitionID is the last-partition-id value a fresh table
// starts with, so that the first assigned PartitionField.FieldID is
// FirstPartitionFieldID.
const InitialLastPartitionID = FirstPartitionFieldID - 1

// PartitionSpec is a named, ordered list of partition fields.
type PartitionSpec struct {
	SpecID int
	Fields []PartitionField
}

// FieldByID finds a partition field within the spec.
func (p PartitionSpec) FieldByID(id int) (PartitionField, bool) {
	for _, f := range p.Fields {
		if f.FieldID == id {
			return f, true
		}
	}
	return PartitionField{}, false
}
