package manifest

import "github.com/marmotdata/icemeta/internal/metadata"

// ListBuilder accumulates manifest-file references for one snapshot's
// manifest list, aggregating cluster-wide totals.
type ListBuilder struct {
	snapshotID     int64
	sequenceNumber int64
	manifests      []metadata.ManifestFile
}

// NewListBuilder constructs a ListBuilder for the manifest list of the
// snapshot identified by snapshotID/sequenceNumber.
func NewListBuilder(snapshotID, sequenceNumber int64) *ListBuilder {
	return &ListBuilder{snapshotID: snapshotID, sequenceNumber: sequenceNumber}
}

// AddManifest appends one manifest-file reference, already carrying its own
// partition summaries (see SummarizePartitions).
func (lb *ListBuilder) AddManifest(m metadata.ManifestFile) {
	lb.manifests = append(lb.manifests, m)
}

// Manifests returns the accumulated manifest-file references.
func (lb *ListBuilder) Manifests() []metadata.ManifestFile {
	out := make([]metadata.ManifestFile, len(lb.manifests))
	copy(out, lb.manifests)
	return out
}

// ClusterTotals is the cluster-wide aggregate across every manifest in the
// list: total live/added/deleted file and row counts.
type ClusterTotals struct {
	AddedFiles    int
	ExistingFiles int
	DeletedFiles  int
	AddedRows     int64
	ExistingRows  int64
	DeletedRows   int64
}

// Aggregate folds every manifest's counts into a ClusterTotals.
func (lb *ListBuilder) Aggregate() ClusterTotals {
	var t ClusterTotals
	for _, m := range lb.manifests {
		t.AddedFiles += m.AddedFilesCount
		t.ExistingFiles += m.ExistingFilesCount
		t.DeletedFiles += m.DeletedFilesCount
		t.AddedRows += m.AddedRowsCount
		t.ExistingRows += m.ExistingRowsCount
		t.DeletedRows += m.DeletedRowsCount
	}
	return t
}

// SummarizePartitions folds a manifest's entries into one
// PartitionFieldSummary per partition field, in spec order. cmp compares two
// encoded bound values of the field's type (see internal/types.Cmp via a
// thin adapter the caller supplies, since this package does not know field
// types).
func SummarizePartitions(entries []metadata.ManifestEntry, spec metadata.PartitionSpec, cmp func(fieldID int, a, b []byte) int) []metadata.PartitionFieldSummary {
	summaries := make([]metadata.PartitionFieldSummary, len(spec.Fields))
	seen := make([]bool, len(spec.Fields))

	for _, e := range entries {
		if e.Status == metadata.StatusDeleted {
			continue
		}
		for i, f := range spec.Fields {
			val, ok := e.DataFile.Partition[f.Name]
			if !ok || val == nil {
				summaries[i].ContainsNull = true
				continue
			}
			b, ok := val.([]byte)
			if !ok {
				continue
			}
			if !seen[i] {
				seen[i] = true
				summaries[i].LowerBound = b
				summaries[i].UpperBound = b
				continue
			}
			if cmp(f.FieldID, b, summaries[i].LowerBound) < 0 {
				summaries[i].LowerBound = b
			}
			if cmp(f.FieldID, b, summaries[i].UpperBound) > 0 {
				summaries[i].UpperBound = b
			}
		}
	}
	return summaries
}
