package snapshot

import "github.com/marmotdata/icemeta/internal/metadata"

// BuildInput describes the outcome of a write operation that a new snapshot
// should capture.
type BuildInput struct {
	Parent          *metadata.Snapshot
	Operation       metadata.Operation
	ManifestList    string
	SchemaID        int
	AddedFiles      int
	DeletedFiles    int
	ExistingFiles   int
	AddedRows       int64
	DeletedRows     int64
	ExistingRows    int64
	AddedFilesSize   int64
	RemovedFilesSize int64
	TotalDataFiles   int64
	TotalRecords     int64
	TotalFilesSize   int64
	Extra            map[string]string

	// FormatVersion 3 fields; left nil for v1/v2 tables.
	FirstRowID  *int64
	AddedRowsV3 *int64
	KeyID       *int64
}

// Build constructs the next Snapshot for a table, assigning it a monotonic
// unique id and timestamp from clock/ids, and a sequence number one greater
// than its parent's (or 1 for the first snapshot in the table).
func Build(clock Clock, ids *IDGenerator, in BuildInput) metadata.Snapshot {
	var parentID *int64
	var seq int64 = 1
	if in.Parent != nil {
		id := in.Parent.SnapshotID
		parentID = &id
		seq = in.Parent.SequenceNumber + 1
	}

	summary := map[string]string{
		"operation":          string(in.Operation),
		"added-data-files":   itoa(in.AddedFiles),
		"deleted-data-files": itoa(in.DeletedFiles),
		"added-records":      itoa64(in.AddedRows),
		"deleted-records":    itoa64(in.DeletedRows),
		"added-files-size":   itoa64(in.AddedFilesSize),
		"removed-files-size": itoa64(in.RemovedFilesSize),
		"total-data-files":   itoa64(in.TotalDataFiles),
		"total-records":      itoa64(in.TotalRecords),
		"total-files-size":   itoa64(in.TotalFilesSize),
	}
	for k, v := range in.Extra {
		summary[k] = v
	}

	return metadata.Snapshot{
		SnapshotID:       ids.Next(),
		ParentSnapshotID: parentID,
		SequenceNumber:   seq,
		TimestampMs:      clock.NowMs(),
		ManifestList:     in.ManifestList,
		SchemaID:         in.SchemaID,
		Operation:        in.Operation,
		Summary:          summary,
		FirstRowID:       in.FirstRowID,
		AddedRows:        in.AddedRowsV3,
		KeyID:            in.KeyID,
	}
}

func itoa(v int) string   { return itoa64(int64(v)) }
func itoa64(v int64) string {
	neg := v < 0
	if v == 0 {
		return "0"
	}
	if neg {
		v = -v
	}
	var buf [20]byte
	i := len(buf)
	for v > 0 {
		i--
		buf[i] = byte('0' + v%10)
		v /= 10
	}
	if neg {
		i--
		buf[i] = '-'
	}
	return string(buf[i:])
}
