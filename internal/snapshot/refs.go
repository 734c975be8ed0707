package snapshot

import (
	"errors"
	"fmt"

	"github.com/marmotdata/icemeta/internal/metadata"
)

// ErrUnknownSnapshot is returned when a ref is pointed at a snapshot id the
// table does not contain.
var ErrUnknownSnapshot = errors.New("snapshot: unknown snapshot id")

// SetRef creates or repoints a named ref, validating that its target
// snapshot exists.
func SetRef(refs map[string]metadata.SnapshotRef, snapshots []metadata.Snapshot, name string, ref metadata.SnapshotRef) error {
	if _, ok := byID(snapshots)[ref.SnapshotID]; !ok {
		return fmt.Errorf("setting ref %q to snapshot %d: %w", name, ref.SnapshotID, ErrUnknownSnapshot)
	}
	refs[name] = ref
	return nil
}

// RemoveRef deletes a named ref. Removing an absent ref is a no-op.
func RemoveRef(refs map[string]metadata.SnapshotRef, name string) {
	delete(refs, name)
}
