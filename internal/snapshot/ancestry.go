package snapshot

import "github.com/marmotdata/icemeta/internal/metadata"

func byID(snapshots []metadata.Snapshot) map[int64]metadata.Snapshot {
	m := make(map[int64]metadata.Snapshot, len(snapshots))
	for _, s := range snapshots {
		m[s.SnapshotID] = s
	}
	return m
}

// Ancestors walks the parent chain starting at id, inclusive, stopping as
// soon as a parent id is not present in snapshots (a dangling parent is
// legal: earlier history may already have been expired).
func Ancestors(snapshots []metadata.Snapshot, id int64) []metadata.Snapshot {
	index := byID(snapshots)
	var chain []metadata.Snapshot
	cur, ok := index[id]
	for ok {
		chain = append(chain, cur)
		if cur.ParentSnapshotID == nil {
			break
		}
		cur, ok = index[*cur.ParentSnapshotID]
	}
	return chain
}

// ByRef resolves a ref name to its current snapshot.
func ByRef(refs map[string]metadata.SnapshotRef, snapshots []metadata.Snapshot, name string) (metadata.Snapshot, bool) {
	ref, ok := refs[name]
	if !ok {
		return metadata.Snapshot{}, false
	}
	index := byID(snapshots)
	s, ok := index[ref.SnapshotID]
	return s, ok
}

// ByTimestamp returns the snapshot with the greatest TimestampMs that is
// still <= t, breaking ties by the larger sequence number. Returns false if
// every snapshot postdates t.
func ByTimestamp(snapshots []metadata.Snapshot, t int64) (metadata.Snapshot, bool) {
	var best metadata.Snapshot
	found := false
	for _, s := range snapshots {
		if s.TimestampMs > t {
			continue
		}
		if !found || s.TimestampMs > best.TimestampMs ||
			(s.TimestampMs == best.TimestampMs && s.SequenceNumber > best.SequenceNumber) {
			best = s
			found = true
		}
	}
	return best, found
}
