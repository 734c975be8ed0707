package catalog

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/cenkalti/backoff/v5"
	"github.com/marmotdata/icemeta/internal/manifest/avrocodec"
	"github.com/marmotdata/icemeta/internal/metadata"
	"github.com/marmotdata/icemeta/internal/snapshot"
	"github.com/marmotdata/icemeta/internal/storage"
	"github.com/rs/zerolog/log"
)

// RetryPolicy configures commitTable's exponential-backoff retry loop
// (spec §4.L): base/max interval and jitter, plus a hard cap on attempts.
type RetryPolicy struct {
	MaxRetries          int
	BaseInterval        time.Duration
	MaxInterval         time.Duration
	RandomizationFactor float64
}

// DefaultRetryPolicy matches the spec's defaults: 5 retries, 100ms base,
// 5s max interval, 0.2 jitter.
var DefaultRetryPolicy = RetryPolicy{
	MaxRetries:          5,
	BaseInterval:        100 * time.Millisecond,
	MaxInterval:         5 * time.Second,
	RandomizationFactor: 0.2,
}

// RequirementKind enumerates the supported commitTable preconditions.
type RequirementKind string

const (
	AssertTableUUID               RequirementKind = "assert-table-uuid"
	AssertCurrentSnapshotID        RequirementKind = "assert-current-snapshot-id"
	AssertLastAssignedFieldID      RequirementKind = "assert-last-assigned-field-id"
	AssertLastAssignedPartitionID  RequirementKind = "assert-last-assigned-partition-id"
)

// Requirement is a precondition checked against the table's current root
// metadata before a commit's updates are applied.
type Requirement struct {
	Kind              RequirementKind
	TableUUID         string
	CurrentSnapshotID *int64 // nil means "no current snapshot"
	LastAssignedID    int
}

// Check reports whether r holds against the current root metadata.
func (r Requirement) Check(m metadata.RootMetadata) error {
	switch r.Kind {
	case AssertTableUUID:
		if m.TableUUID != r.TableUUID {
			return fmt.Errorf("%w: table-uuid is %q, expected %q", ErrCommitConflict, m.TableUUID, r.TableUUID)
		}
	case AssertCurrentSnapshotID:
		got := m.CurrentSnapshotID
		switch {
		case got == nil && r.CurrentSnapshotID == nil:
		case got == nil || r.CurrentSnapshotID == nil:
			return fmt.Errorf("%w: current-snapshot-id mismatch", ErrCommitConflict)
		case *got != *r.CurrentSnapshotID:
			return fmt.Errorf("%w: current-snapshot-id is %d, expected %d", ErrCommitConflict, *got, *r.CurrentSnapshotID)
		}
	case AssertLastAssignedFieldID:
		if m.LastColumnID != r.LastAssignedID {
			return fmt.Errorf("%w: last-column-id is %d, expected %d", ErrCommitConflict, m.LastColumnID, r.LastAssignedID)
		}
	case AssertLastAssignedPartitionID:
		if m.LastPartitionID != r.LastAssignedID {
			return fmt.Errorf("%w: last-partition-id is %d, expected %d", ErrCommitConflict, m.LastPartitionID, r.LastAssignedID)
		}
	default:
		return fmt.Errorf("%w: unknown requirement kind %q", ErrCommitConflict, r.Kind)
	}
	return nil
}

// UpdateKind enumerates the supported commitTable mutations.
type UpdateKind string

const (
	UpdateSetProperties    UpdateKind = "set-properties"
	UpdateRemoveProperties UpdateKind = "remove-properties"
	UpdateAddSnapshot      UpdateKind = "add-snapshot"
	UpdateSetCurrentSchema UpdateKind = "set-current-schema"
	UpdateSetSnapshotRef   UpdateKind = "set-snapshot-ref"
	UpdateRemoveSnapshots  UpdateKind = "remove-snapshots"
)

// Update is one mutation applied, in order, to a table's root metadata
// during a commit.
type Update struct {
	Kind UpdateKind

	SetProperties    map[string]string
	RemoveProperties []string
	Snapshot         metadata.Snapshot
	SchemaID         int
	RefName          string
	Ref              metadata.SnapshotRef
	SnapshotIDs      []int64 // for UpdateRemoveSnapshots
}

// Apply mutates m in place according to u.
func (u Update) Apply(m *metadata.RootMetadata) error {
	switch u.Kind {
	case UpdateSetProperties:
		if m.Properties == nil {
			m.Properties = map[string]string{}
		}
		for k, v := range u.SetProperties {
			m.Properties[k] = v
		}
	case UpdateRemoveProperties:
		for _, k := range u.RemoveProperties {
			delete(m.Properties, k)
		}
	case UpdateAddSnapshot:
		m.Snapshots = append(m.Snapshots, u.Snapshot)
		if u.Snapshot.SequenceNumber > m.LastSequenceNumber {
			m.LastSequenceNumber = u.Snapshot.SequenceNumber
		}
	case UpdateSetCurrentSchema:
		if _, ok := m.SchemaByID(u.SchemaID); !ok {
			return fmt.Errorf("%w: set-current-schema references unknown schema-id %d", metadata.ErrBrokenInvariant, u.SchemaID)
		}
		m.CurrentSchemaID = u.SchemaID
	case UpdateSetSnapshotRef:
		if m.Refs == nil {
			m.Refs = map[string]metadata.SnapshotRef{}
		}
		if err := snapshot.SetRef(m.Refs, m.Snapshots, u.RefName, u.Ref); err != nil {
			return err
		}
		if u.RefName == metadata.MainBranch {
			id := u.Ref.SnapshotID
			m.CurrentSnapshotID = &id
			ts := int64(0)
			if s, ok := m.SnapshotByID(id); ok {
				ts = s.TimestampMs
			}
			m.SnapshotLog = append(m.SnapshotLog, metadata.SnapshotLogEntry{
				TimestampMs: ts,
				SnapshotID:  id,
			})
		}
	case UpdateRemoveSnapshots:
		expired := make(map[int64]bool, len(u.SnapshotIDs))
		for _, id := range u.SnapshotIDs {
			expired[id] = true
		}
		kept := make([]metadata.Snapshot, 0, len(m.Snapshots))
		for _, s := range m.Snapshots {
			if !expired[s.SnapshotID] {
				kept = append(kept, s)
			}
		}
		m.Snapshots = kept

		var keptLog []metadata.SnapshotLogEntry
		for _, e := range m.SnapshotLog {
			if !expired[e.SnapshotID] {
				keptLog = append(keptLog, e)
			}
		}
		m.SnapshotLog = keptLog
	default:
		return fmt.Errorf("%w: unknown update kind %q", metadata.ErrBrokenInvariant, u.Kind)
	}
	return nil
}

// CommitRequest names the table and the requirements/updates of one
// commitTable call.
type CommitRequest struct {
	Identifier   TableIdentifier
	Requirements []Requirement
	Updates      []Update
}

// CommitTable performs an atomic, optimistically-retried commit: load
// current root metadata, check every requirement, apply every update in
// order, then publish the result at the next version. A swap race (someone
// else published that version first) triggers a reload-reevaluate-retry
// cycle with exponential backoff, up to the catalog RetryPolicy's
// MaxRetries retries.
func (c *Catalog) CommitTable(ctx context.Context, req CommitRequest) (metadata.RootMetadata, error) {
	table := req.Identifier.String()
	start := c.clock.NowMs()

	b := backoff.NewExponentialBackOff()
	b.InitialInterval = c.retry.BaseInterval
	b.MaxInterval = c.retry.MaxInterval
	b.RandomizationFactor = c.retry.RandomizationFactor

	attempt := 0
	result, err := backoff.Retry(ctx, func() (metadata.RootMetadata, error) {
		if attempt > 0 {
			c.metrics.RecordCommitRetry(table, attempt)
		}
		attempt++

		root, hintBytes, err := c.loadTableWithHint(ctx, req.Identifier)
		if err != nil {
			return metadata.RootMetadata{}, backoff.Permanent(err)
		}

		for _, r := range req.Requirements {
			if err := r.Check(root); err != nil {
				c.metrics.RecordCommitConflict(table)
				return metadata.RootMetadata{}, backoff.Permanent(err)
			}
		}

		for _, u := range req.Updates {
			if u.Kind == UpdateAddSnapshot {
				if err := c.validateDeletionVectors(ctx, root, u.Snapshot); err != nil {
					return metadata.RootMetadata{}, backoff.Permanent(err)
				}
			}
			if err := u.Apply(&root); err != nil {
				return metadata.RootMetadata{}, backoff.Permanent(err)
			}
		}
		root.LastUpdatedMs = c.clock.NowMs()

		if err := metadata.Validate(root); err != nil {
			return metadata.RootMetadata{}, backoff.Permanent(err)
		}

		version, err := currentVersion(hintBytes)
		if err != nil {
			return metadata.RootMetadata{}, backoff.Permanent(err)
		}
		nextVersion := version + 1

		root.MetadataLog = append(root.MetadataLog, metadata.MetadataLogEntry{
			TimestampMs:  root.LastUpdatedMs,
			MetadataFile: versionedMetadataKey(req.Identifier, version),
		})

		raw, err := metadata.MarshalRoot(root)
		if err != nil {
			return metadata.RootMetadata{}, backoff.Permanent(err)
		}

		if err := c.publishVersion(ctx, req.Identifier, nextVersion, raw); err != nil {
			if errors.Is(err, storage.ErrAlreadyExists) {
				log.Debug().Str("table", table).Int("version", nextVersion).Msg("commit race lost, retrying")
				return metadata.RootMetadata{}, fmt.Errorf("%w: version %d already published by a concurrent commit", ErrCommitConflict, nextVersion)
			}
			return metadata.RootMetadata{}, backoff.Permanent(err)
		}
		return root, nil
	}, backoff.WithBackOff(b), backoff.WithMaxTries(uint(c.retry.MaxRetries)+1))

	c.metrics.RecordCommitDuration(table, time.Duration(c.clock.NowMs()-start)*time.Millisecond)
	c.metrics.RecordCommitAttempt(table, err == nil)
	if err != nil {
		return metadata.RootMetadata{}, fmt.Errorf("committing %s: %w", table, err)
	}
	return result, nil
}

// validateDeletionVectors enforces the format-version-3 deletion-vector
// rules (spec §4.E) against the manifests a new snapshot introduces, before
// that snapshot is admitted into the table's history. It reads the
// snapshot's manifest list and checks only the manifests it added
// (AddedSnapshotID == snap.SnapshotID) — manifests carried over unchanged
// from earlier snapshots were already validated when they were added.
func (c *Catalog) validateDeletionVectors(ctx context.Context, root metadata.RootMetadata, snap metadata.Snapshot) error {
	if root.FormatVersion < 3 || snap.ManifestList == "" {
		return nil
	}

	raw, err := c.blob.Get(ctx, snap.ManifestList)
	if err != nil {
		return fmt.Errorf("reading manifest list for snapshot %d: %w", snap.SnapshotID, err)
	}
	codec := avrocodec.New()
	manifests, err := codec.DecodeManifestList(raw)
	if err != nil {
		return fmt.Errorf("decoding manifest list for snapshot %d: %w", snap.SnapshotID, err)
	}

	var added []metadata.ManifestEntry
	for _, mf := range manifests {
		if mf.AddedSnapshotID != snap.SnapshotID {
			continue
		}
		mraw, err := c.blob.Get(ctx, mf.ManifestPath)
		if err != nil {
			return fmt.Errorf("reading manifest %s: %w", mf.ManifestPath, err)
		}
		entries, err := codec.DecodeManifest(mraw)
		if err != nil {
			return fmt.Errorf("decoding manifest %s: %w", mf.ManifestPath, err)
		}
		added = append(added, entries...)
	}
	warnings, err := snapshot.ValidateDeletionVectorRules(root.FormatVersion, added)
	for _, w := range warnings {
		log.Warn().Int64("snapshot-id", snap.SnapshotID).Msg(w)
	}
	if err != nil {
		return fmt.Errorf("snapshot %d: %w", snap.SnapshotID, err)
	}
	return nil
}

func (c *Catalog) loadTableWithHint(ctx context.Context, id TableIdentifier) (metadata.RootMetadata, string, error) {
	hintBytes, err := c.blob.Get(ctx, versionHintKey(id))
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			return metadata.RootMetadata{}, "", ErrTableNotFound
		}
		return metadata.RootMetadata{}, "", fmt.Errorf("reading version-hint for %s: %w", id, err)
	}
	key, err := resolveVersionHint(id, string(hintBytes))
	if err != nil {
		return metadata.RootMetadata{}, "", err
	}
	raw, err := c.blob.Get(ctx, key)
	if err != nil {
		return metadata.RootMetadata{}, "", fmt.Errorf("reading metadata blob %q for %s: %w", key, id, err)
	}
	root, err := metadata.UnmarshalRoot(raw)
	if err != nil {
		return metadata.RootMetadata{}, "", err
	}
	return root, string(hintBytes), nil
}

// publishVersion writes the new metadata blob conditionally (so a racing
// committer can't silently overwrite it) and then advances version-hint.
func (c *Catalog) publishVersion(ctx context.Context, id TableIdentifier, version int, raw []byte) error {
	if err := c.putMetadataBlob(ctx, versionedMetadataKey(id, version), raw); err != nil {
		return err
	}
	return c.blob.Put(ctx, versionHintKey(id), []byte(fmt.Sprintf("%d", version)))
}
