package retention

import (
	"context"
	"fmt"

	"github.com/marmotdata/icemeta/internal/catalog"
	"github.com/marmotdata/icemeta/internal/manifest/avrocodec"
	"github.com/marmotdata/icemeta/internal/metadata"
	"github.com/marmotdata/icemeta/internal/snapshot"
	"github.com/marmotdata/icemeta/internal/storage"
	"github.com/rs/zerolog/log"
)

// Outcome extends snapshot.ExpirationResult with the byte total of data
// files actually removed during purge, for human-readable CLI summaries.
type Outcome struct {
	snapshot.ExpirationResult
	FreedBytes int64
}

// ExpireSnapshots computes id's expired snapshots under policy as of asOf,
// commits their removal through cat, and (when purge is true) deletes the
// manifest/data blobs those snapshots uniquely owned. Returns the
// expiration outcome; an empty ExpiredIDs list means nothing was committed.
func ExpireSnapshots(ctx context.Context, cat *catalog.Catalog, id catalog.TableIdentifier, policy snapshot.Policy, asOf int64, purge bool) (Outcome, error) {
	root, err := cat.LoadTable(ctx, id)
	if err != nil {
		return Outcome{}, fmt.Errorf("retention: loading %s: %w", id, err)
	}

	counter := NewFileCounter(ctx, cat.Blob(), root)
	result := snapshot.FindExpired(root, policy, asOf, counter)
	if len(result.ExpiredIDs) == 0 {
		return Outcome{ExpirationResult: result}, nil
	}

	req := catalog.CommitRequest{
		Identifier:   id,
		Requirements: []catalog.Requirement{{Kind: catalog.AssertTableUUID, TableUUID: root.TableUUID}},
		Updates:      []catalog.Update{{Kind: catalog.UpdateRemoveSnapshots, SnapshotIDs: result.ExpiredIDs}},
	}
	if _, err := cat.CommitTable(ctx, req); err != nil {
		return Outcome{}, fmt.Errorf("retention: committing removal of %d snapshots from %s: %w", len(result.ExpiredIDs), id, err)
	}

	var freedBytes int64
	if purge {
		freedBytes = deleteExpiredBlobs(ctx, cat.Blob(), root, result.ExpiredIDs)
	}

	cat.Metrics().RecordExpiration(id.String(), len(result.ExpiredIDs), result.DeletedDataFilesCount, result.DeletedManifestFilesCount)
	return Outcome{ExpirationResult: result, FreedBytes: freedBytes}, nil
}

// deleteExpiredBlobs removes the manifest-list, manifest, and data blobs
// that the expired snapshots introduced, returning the total size of the
// data files deleted. root must be the metadata loaded before the removal
// commit, since it still carries the expired snapshots' ManifestList
// pointers. Failures are logged rather than returned: a partially-purged
// set of orphan blobs is a cleanup nuisance, not a correctness problem,
// since the committed metadata no longer references them either way.
func deleteExpiredBlobs(ctx context.Context, blob storage.Blob, root metadata.RootMetadata, expiredIDs []int64) int64 {
	expired := make(map[int64]bool, len(expiredIDs))
	for _, id := range expiredIDs {
		expired[id] = true
	}
	codec := avrocodec.New()

	var freedBytes int64
	for _, s := range root.Snapshots {
		if !expired[s.SnapshotID] || s.ManifestList == "" {
			continue
		}
		listRaw, err := blob.Get(ctx, s.ManifestList)
		if err != nil {
			log.Warn().Err(err).Int64("snapshot-id", s.SnapshotID).Msg("retention: reading manifest list for purge")
			continue
		}
		manifests, err := codec.DecodeManifestList(listRaw)
		if err != nil {
			log.Warn().Err(err).Int64("snapshot-id", s.SnapshotID).Msg("retention: decoding manifest list for purge")
			continue
		}
		for _, m := range manifests {
			if m.AddedSnapshotID != s.SnapshotID {
				continue
			}
			freedBytes += purgeManifest(ctx, blob, codec, m, s.SnapshotID)
		}
		if err := blob.Delete(ctx, s.ManifestList); err != nil {
			log.Warn().Err(err).Str("key", s.ManifestList).Msg("retention: deleting manifest list")
		}
	}
	return freedBytes
}

func purgeManifest(ctx context.Context, blob storage.Blob, codec *avrocodec.Codec, m metadata.ManifestFile, snapshotID int64) int64 {
	raw, err := blob.Get(ctx, m.ManifestPath)
	if err != nil {
		log.Warn().Err(err).Str("key", m.ManifestPath).Msg("retention: reading manifest for purge")
		return 0
	}
	entries, err := codec.DecodeManifest(raw)
	if err != nil {
		log.Warn().Err(err).Str("key", m.ManifestPath).Msg("retention: decoding manifest for purge")
		return 0
	}
	var freedBytes int64
	for _, e := range entries {
		if e.SnapshotID != snapshotID {
			continue
		}
		if err := blob.Delete(ctx, e.DataFile.FilePath); err != nil {
			log.Warn().Err(err).Str("key", e.DataFile.FilePath).Msg("retention: deleting data file")
			continue
		}
		freedBytes += e.DataFile.FileSizeInBytes
	}
	if err := blob.Delete(ctx, m.ManifestPath); err != nil {
		log.Warn().Err(err).Str("key", m.ManifestPath).Msg("retention: deleting manifest")
	}
	return freedBytes
}
