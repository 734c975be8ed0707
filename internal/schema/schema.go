// Package schema computes the change list between two table schemas and
// classifies whether that evolution is backward compatible (spec §4.F).
package schema

import (
	"github.com/marmotdata/icemeta/internal/metadata"
	"github.com/marmotdata/icemeta/internal/types"
)

// ChangeKind classifies one schema change.
type ChangeKind string

const (
	ChangeAddField     ChangeKind = "add-field"
	ChangeRemoveField  ChangeKind = "remove-field"
	ChangeMakeOptional ChangeKind = "make-optional"
	ChangeMakeRequired ChangeKind = "make-required"
	ChangeRenameField  ChangeKind = "rename-field"
	ChangeUpdateDoc    ChangeKind = "update-doc"
	ChangeWidenType    ChangeKind = "widen-type"
)

// Change is one entry of a schema diff.
type Change struct {
	Kind         ChangeKind
	FieldID      int
	FieldName    string
	PreviousName string
	ParentFieldID int
	NewType      metadata.FieldType
	PreviousType metadata.FieldType
	Required     *bool
	Doc          string
	TimestampMs  int64
	SnapshotID   *int64
}

// Diff computes the ordered change list transforming from into to.
// timestampMs/snapshotID are stamped onto every change (the caller knows
// which commit produced them); fields are matched by id, which is the
// identity schema evolution preserves.
func Diff(from, to metadata.Schema, timestampMs int64, snapshotID *int64) []Change {
	var changes []Change

	fromByID := indexFields(from.Fields)
	toByID := indexFields(to.Fields)

	for id, f := range fromByID {
		t, ok := toByID[id]
		if !ok {
			changes = append(changes, Change{Kind: ChangeRemoveField, FieldID: id, FieldName: f.Name, TimestampMs: timestampMs, SnapshotID: snapshotID})
			continue
		}
		if f.Name != t.Name {
			changes = append(changes, Change{Kind: ChangeRenameField, FieldID: id, FieldName: t.Name, PreviousName: f.Name, TimestampMs: timestampMs, SnapshotID: snapshotID})
		}
		if f.Required && !t.Required {
			req := false
			changes = append(changes, Change{Kind: ChangeMakeOptional, FieldID: id, FieldName: t.Name, Required: &req, TimestampMs: timestampMs, SnapshotID: snapshotID})
		}
		if !f.Required && t.Required {
			req := true
			changes = append(changes, Change{Kind: ChangeMakeRequired, FieldID: id, FieldName: t.Name, Required: &req, TimestampMs: timestampMs, SnapshotID: snapshotID})
		}
		if f.Doc != t.Doc {
			changes = append(changes, Change{Kind: ChangeUpdateDoc, FieldID: id, FieldName: t.Name, Doc: t.Doc, TimestampMs: timestampMs, SnapshotID: snapshotID})
		}
		if !sameType(f.Type, t.Type) {
			changes = append(changes, Change{Kind: ChangeWidenType, FieldID: id, FieldName: t.Name, NewType: t.Type, PreviousType: f.Type, TimestampMs: timestampMs, SnapshotID: snapshotID})
		}
	}

	for id, t := range toByID {
		if _, ok := fromByID[id]; ok {
			continue
		}
		req := t.Required
		changes = append(changes, Change{Kind: ChangeAddField, FieldID: id, FieldName: t.Name, Required: &req, TimestampMs: timestampMs, SnapshotID: snapshotID})
	}

	return changes
}

func indexFields(fields []metadata.Field) map[int]metadata.Field {
	m := make(map[int]metadata.Field, len(fields))
	for _, f := range fields {
		m[f.ID] = f
	}
	return m
}

func sameType(a, b metadata.FieldType) bool {
	pa, ok1 := a.(metadata.PrimitiveType)
	pb, ok2 := b.(metadata.PrimitiveType)
	if ok1 && ok2 {
		return pa.Type == pb.Type
	}
	return ok1 == ok2 // structural container types are compared by identity of field ids elsewhere; a bare kind swap is a change
}

// IsWideningCompatible reports whether from can be widened to to per the
// allowed-widenings table: int -> long, float -> double,
// decimal(P,S) -> decimal(P',S) with P' >= P.
func IsWideningCompatible(from, to metadata.FieldType) bool {
	pf, ok1 := from.(metadata.PrimitiveType)
	pt, ok2 := to.(metadata.PrimitiveType)
	if !ok1 || !ok2 {
		return false
	}
	switch {
	case pf.Kind == types.Int && pt.Kind == types.Long:
		return true
	case pf.Kind == types.Float && pt.Kind == types.Double:
		return true
	case pf.Kind == types.Decimal && pt.Kind == types.Decimal:
		return pf.Scale == pt.Scale && pt.Precision >= pf.Precision
	default:
		return false
	}
}

// IsBackwardCompatible reports whether applying changes to produce the new
// schema keeps it readable against data written under the old schema:
// no required field is added without a default, no type is narrowed, no
// optional field becomes required, and no field with live data is removed
// (hasLiveData reports, per field id, whether the table currently holds
// data under that field; pass a function that always returns false to skip
// that check when it is not applicable).
func IsBackwardCompatible(changes []Change, hasLiveData func(fieldID int) bool) bool {
	for _, c := range changes {
		switch c.Kind {
		case ChangeAddField:
			if c.Required != nil && *c.Required {
				return false
			}
		case ChangeRemoveField:
			if hasLiveData != nil && hasLiveData(c.FieldID) {
				return false
			}
		case ChangeWidenType:
			if !IsWideningCompatible(c.PreviousType, c.NewType) {
				return false
			}
		case ChangeMakeRequired:
			return false
		case ChangeMakeOptional, ChangeRenameField, ChangeUpdateDoc:
			// always compatible
		}
	}
	return true
}
