package snapshot

import "github.com/marmotdata/icemeta/internal/metadata"

// Policy is the retention policy applied when computing expiration. Any
// nil field means "no limit from this dimension" (the other dimensions
// still apply).
type Policy struct {
	MaxSnapshotAgeMs   *int64
	MaxRefAgeMs        *int64
	MinSnapshotsToKeep *int
}

// FileCounter reports how many data files and manifest files are uniquely
// owned by an expiring snapshot, so the caller can delete the right blobs.
// Computing this requires reading the snapshot's manifest list/manifests,
// which this package does not have access to; callers (the catalog layer)
// supply it.
type FileCounter interface {
	CountFiles(snapshotID int64) (dataFiles, manifestFiles int)
}

// ExpirationResult is the outcome of FindExpired: which snapshot ids may be
// dropped from the table, which are kept, and (if a FileCounter was
// supplied) how many blobs the caller should delete.
type ExpirationResult struct {
	ExpiredIDs                []int64
	KeptIDs                   []int64
	DeletedDataFilesCount     int
	DeletedManifestFilesCount int
}

func coalesceInt64(override, base *int64) *int64 {
	if override != nil {
		return override
	}
	return base
}

func coalesceInt(override, base *int) *int {
	if override != nil {
		return override
	}
	return base
}

// FindExpired computes the keep-set as the union of:
//   - every ref's target snapshot, plus (per that ref's own effective
//     retention, falling back to policy) the ancestors it protects —
//     unless the ref itself has lapsed (its target snapshot is older than
//     the ref's effective max-ref-age), in which case that ref contributes
//     nothing to the keep-set;
//   - every snapshot within policy.MaxSnapshotAgeMs of asOf, table-wide;
//   - the newest policy.MinSnapshotsToKeep snapshots, table-wide;
//   - the table's current snapshot (the active branch tip never expires).
//
// Everything else is expired. counter, if non-nil, is consulted per expired
// snapshot to report how many blobs became unreferenced; pass nil to skip
// that accounting (DeletedDataFilesCount/DeletedManifestFilesCount stay 0).
func FindExpired(m metadata.RootMetadata, policy Policy, asOf int64, counter FileCounter) ExpirationResult {
	keep := make(map[int64]bool)

	for _, ref := range m.Refs {
		maxRefAge := coalesceInt64(ref.MaxRefAgeMs, policy.MaxRefAgeMs)
		if maxRefAge != nil {
			if target, ok := m.SnapshotByID(ref.SnapshotID); ok && asOf-target.TimestampMs > *maxRefAge {
				continue
			}
		}

		keep[ref.SnapshotID] = true
		chain := Ancestors(m.Snapshots, ref.SnapshotID)
		maxAge := coalesceInt64(ref.MaxSnapshotAgeMs, policy.MaxSnapshotAgeMs)
		minKeep := coalesceInt(ref.MinSnapshotsToKeep, policy.MinSnapshotsToKeep)
		for i, s := range chain {
			if maxAge != nil && asOf-s.TimestampMs <= *maxAge {
				keep[s.SnapshotID] = true
			}
			if minKeep != nil && i < *minKeep {
				keep[s.SnapshotID] = true
			}
		}
	}

	if policy.MaxSnapshotAgeMs != nil {
		for _, s := range m.Snapshots {
			if asOf-s.TimestampMs <= *policy.MaxSnapshotAgeMs {
				keep[s.SnapshotID] = true
			}
		}
	}

	if policy.MinSnapshotsToKeep != nil {
		byNewest := append([]metadata.Snapshot(nil), m.Snapshots...)
		sortByTimestampDesc(byNewest)
		n := *policy.MinSnapshotsToKeep
		if n > len(byNewest) {
			n = len(byNewest)
		}
		for i := 0; i < n; i++ {
			keep[byNewest[i].SnapshotID] = true
		}
	}

	if m.CurrentSnapshotID != nil {
		keep[*m.CurrentSnapshotID] = true
	}

	var result ExpirationResult
	for _, s := range m.Snapshots {
		if keep[s.SnapshotID] {
			result.KeptIDs = append(result.KeptIDs, s.SnapshotID)
			continue
		}
		result.ExpiredIDs = append(result.ExpiredIDs, s.SnapshotID)
		if counter != nil {
			data, manifests := counter.CountFiles(s.SnapshotID)
			result.DeletedDataFilesCount += data
			result.DeletedManifestFilesCount += manifests
		}
	}
	return result
}

func sortByTimestampDesc(s []metadata.Snapshot) {
	for i := 1; i < len(s); i++ {
		for j := i; j > 0 && less(s[j-1], s[j]); j-- {
			s[j], s[j-1] = s[j-1], s[j]
		}
	}
}

// less reports whether a should sort after b in a descending-by-recency
// order, i.e. whether b is more recent than a.
func less(a, b metadata.Snapshot) bool {
	if a.TimestampMs != b.TimestampMs {
		return a.TimestampMs < b.TimestampMs
	}
	return a.SequenceNumber < b.SequenceNumber
}
