// Package upgrade converts a table's root metadata from format-version 2
// to format-version 3 (spec §4.H). Downgrade is never supported.
package upgrade

import (
	"errors"
	"fmt"

	"github.com/marmotdata/icemeta/internal/metadata"
)

// ErrAlreadyTargetVersion is returned when the source is already v3.
var ErrAlreadyTargetVersion = errors.New("upgrade: table is already format-version 3")

// ErrInvalidSourceVersion is returned when the source predates v2.
var ErrInvalidSourceVersion = errors.New("upgrade: format-version 1 cannot be upgraded directly")

// ErrDowngradeNotAllowed is returned by Downgrade unconditionally.
var ErrDowngradeNotAllowed = errors.New("upgrade: downgrading format-version is not supported")

// Options controls minor upgrade behavior.
type Options struct {
	// PreserveLastUpdated keeps the source's last-updated-ms instead of
	// stamping it with NowMs.
	PreserveLastUpdated bool
	NowMs               int64
}

// ToV3 upgrades src (which must have FormatVersion == 2) to format-version
// 3: every field is copied, format-version is set to 3, next-row-id is set
// to 0, and last-updated-ms is refreshed (unless Options.PreserveLastUpdated
// is set). Pre-existing snapshots are copied verbatim — they do not acquire
// first-row-id/added-rows, since retroactive assignment cannot reconstruct
// accurate row ids for data already committed under v2.
func ToV3(src metadata.RootMetadata, opts Options) (metadata.RootMetadata, error) {
	switch {
	case src.FormatVersion == 3:
		return metadata.RootMetadata{}, fmt.Errorf("%w", ErrAlreadyTargetVersion)
	case src.FormatVersion < 2:
		return metadata.RootMetadata{}, fmt.Errorf("%w: got format-version %d", ErrInvalidSourceVersion, src.FormatVersion)
	case src.FormatVersion > 3:
		return metadata.RootMetadata{}, fmt.Errorf("%w: got format-version %d", ErrInvalidSourceVersion, src.FormatVersion)
	}

	out := src
	out.FormatVersion = 3
	nextRowID := int64(0)
	out.NextRowID = &nextRowID
	if !opts.PreserveLastUpdated {
		out.LastUpdatedMs = opts.NowMs
	}

	out.Snapshots = append([]metadata.Snapshot(nil), src.Snapshots...)
	out.Schemas = append([]metadata.Schema(nil), src.Schemas...)
	out.PartitionSpecs = append([]metadata.PartitionSpec(nil), src.PartitionSpecs...)
	out.SortOrders = append([]metadata.SortOrder(nil), src.SortOrders...)
	out.SnapshotLog = append([]metadata.SnapshotLogEntry(nil), src.SnapshotLog...)
	out.MetadataLog = append([]metadata.MetadataLogEntry(nil), src.MetadataLog...)

	out.Refs = make(map[string]metadata.SnapshotRef, len(src.Refs))
	for k, v := range src.Refs {
		out.Refs[k] = v
	}
	out.Properties = make(map[string]string, len(src.Properties))
	for k, v := range src.Properties {
		out.Properties[k] = v
	}

	return out, nil
}

// Downgrade always fails: the table format never supports moving a table
// back to an earlier format-version once upgraded.
func Downgrade(_ metadata.RootMetadata, _ int) (metadata.RootMetadata, error) {
	return metadata.RootMetadata{}, ErrDowngradeNotAllowed
}
