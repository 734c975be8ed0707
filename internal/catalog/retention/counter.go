// Package retention implements the snapshot-expiration sweep (spec §4.E):
// computing which snapshots a table's retention policy no longer protects,
// committing their removal, and (optionally) deleting the manifest/data
// blobs they uniquely owned.
package retention

import (
	"context"

	"github.com/marmotdata/icemeta/internal/manifest/avrocodec"
	"github.com/marmotdata/icemeta/internal/metadata"
	"github.com/marmotdata/icemeta/internal/storage"
	"github.com/rs/zerolog/log"
)

// FileCounter implements snapshot.FileCounter by reading a snapshot's
// manifest list and counting the manifests/data files it added. This is an
// approximation of "uniquely owned": it counts what the snapshot
// introduced, not a global reachability analysis across every kept
// snapshot's manifests. That holds because manifests are themselves
// snapshot-scoped (a rewrite always produces fresh manifest files rather
// than mutating one in place), so a manifest's AddedSnapshotID is a
// reliable owner.
type FileCounter struct {
	ctx       context.Context
	blob      storage.Blob
	codec     *avrocodec.Codec
	snapshots map[int64]metadata.Snapshot
}

// NewFileCounter builds a FileCounter over root's current snapshots.
func NewFileCounter(ctx context.Context, blob storage.Blob, root metadata.RootMetadata) *FileCounter {
	snaps := make(map[int64]metadata.Snapshot, len(root.Snapshots))
	for _, s := range root.Snapshots {
		snaps[s.SnapshotID] = s
	}
	return &FileCounter{ctx: ctx, blob: blob, codec: avrocodec.New(), snapshots: snaps}
}

// CountFiles reports how many data/manifest files snapshotID's manifest
// list added. A read failure is logged and counted as zero rather than
// propagated, since FileCounter's contract (snapshot.FileCounter) has no
// error return and a failed count must not block expiration itself.
func (c *FileCounter) CountFiles(snapshotID int64) (dataFiles, manifestFiles int) {
	manifests, ok := c.manifestsAddedBy(snapshotID)
	if !ok {
		return 0, 0
	}
	for _, m := range manifests {
		manifestFiles++
		dataFiles += m.AddedFilesCount
	}
	return dataFiles, manifestFiles
}

func (c *FileCounter) manifestsAddedBy(snapshotID int64) ([]metadata.ManifestFile, bool) {
	snap, ok := c.snapshots[snapshotID]
	if !ok || snap.ManifestList == "" {
		return nil, false
	}
	raw, err := c.blob.Get(c.ctx, snap.ManifestList)
	if err != nil {
		log.Warn().Err(err).Int64("snapshot-id", snapshotID).Msg("retention: reading manifest list")
		return nil, false
	}
	all, err := c.codec.DecodeManifestList(raw)
	if err != nil {
		log.Warn().Err(err).Int64("snapshot-id", snapshotID).Msg("retention: decoding manifest list")
		return nil, false
	}
	var owned []metadata.ManifestFile
	for _, m := range all {
		if m.AddedSnapshotID == snapshotID {
			owned = append(owned, m)
		}
	}
	return owned, true
}
