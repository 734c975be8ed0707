package partition

import "github.com/marmotdata/icemeta/internal/metadata"

// SpecChangeKind classifies one partition-spec evolution change.
type SpecChangeKind string

const (
	SpecAddField      SpecChangeKind = "add-field"
	SpecRemoveField   SpecChangeKind = "remove-field"
	SpecRenameField   SpecChangeKind = "rename-field"
	SpecChangeTransform SpecChangeKind = "change-transform"
)

// SpecChange is one entry of a partition-spec diff.
type SpecChange struct {
	Kind      SpecChangeKind
	FieldID   int
	FieldName string
	Previous  string // previous transform text, for change-transform
	New       string // new transform text, for change-transform
}

// DiffSpecs computes the change list transforming from into to, matched by
// field id (permanent across spec evolution, per spec §4.C).
func DiffSpecs(from, to metadata.PartitionSpec) []SpecChange {
	var changes []SpecChange

	fromByID := indexSpecFields(from.Fields)
	toByID := indexSpecFields(to.Fields)

	for id, f := range fromByID {
		t, ok := toByID[id]
		if !ok {
			changes = append(changes, SpecChange{Kind: SpecRemoveField, FieldID: id, FieldName: f.Name})
			continue
		}
		if f.Name != t.Name {
			changes = append(changes, SpecChange{Kind: SpecRenameField, FieldID: id, FieldName: t.Name})
		}
		if f.Transform != t.Transform {
			changes = append(changes, SpecChange{Kind: SpecChangeTransform, FieldID: id, FieldName: t.Name, Previous: f.Transform, New: t.Transform})
		}
	}

	for id, t := range toByID {
		if _, ok := fromByID[id]; !ok {
			changes = append(changes, SpecChange{Kind: SpecAddField, FieldID: id, FieldName: t.Name})
		}
	}

	return changes
}

func indexSpecFields(fields []metadata.PartitionField) map[int]metadata.PartitionField {
	m := make(map[int]metadata.PartitionField, len(fields))
	for _, f := range fields {
		m[f.FieldID] = f
	}
	return m
}

// IsCompatible reports whether changes preserve how existing data was
// partitioned: identity<->anything, bucket[N]<->bucket[M!=N], and
// truncate[W]<->truncate[W'!=W] are breaking. Adding and removing fields
// are always compatible.
func IsCompatible(changes []SpecChange) bool {
	for _, c := range changes {
		if c.Kind != SpecChangeTransform {
			continue
		}
		pt, err1 := Parse(c.Previous)
		nt, err2 := Parse(c.New)
		if err1 != nil || err2 != nil {
			return false
		}
		if pt.Kind != nt.Kind {
			return false
		}
		if (pt.Kind == Bucket || pt.Kind == Truncate) && pt.Arg != nt.Arg {
			return false
		}
	}
	return true
}
