package catalog

import (
	"context"
	"errors"
	"testing"

	"github.com/marmotdata/icemeta/internal/manifest/avrocodec"
	"github.com/marmotdata/icemeta/internal/metadata"
	"github.com/marmotdata/icemeta/internal/snapshot"
	"github.com/marmotdata/icemeta/internal/storage"
	"github.com/marmotdata/icemeta/internal/storage/memblob"
	"github.com/marmotdata/icemeta/internal/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeClock struct{ ms int64 }

func (f *fakeClock) NowMs() int64 {
	f.ms++
	return f.ms
}

func openTestCatalog(t *testing.T) (*Catalog, *memblob.Store) {
	t.Helper()
	store := memblob.New()
	cat, err := Open(context.Background(), Options{Blob: store, Clock: &fakeClock{ms: 1000}})
	require.NoError(t, err)
	return cat, store
}

func testSchema() *metadata.Schema {
	return &metadata.Schema{
		Fields: []metadata.Field{
			{ID: 1, Name: "id", Required: true, Type: metadata.PrimitiveType{Type: types.Type{Kind: types.Long}}},
			{ID: 2, Name: "name", Required: false, Type: metadata.PrimitiveType{Type: types.Type{Kind: types.String}}},
		},
	}
}

func TestNamespaceLifecycle(t *testing.T) {
	cat, _ := openTestCatalog(t)
	ctx := context.Background()

	require.NoError(t, cat.CreateNamespace(ctx, []string{"ns1"}, map[string]string{"owner": "a"}))
	assert.ErrorIs(t, cat.CreateNamespace(ctx, []string{"ns1"}, nil), ErrNamespaceAlreadyExists)

	props, err := cat.GetNamespaceProperties([]string{"ns1"})
	require.NoError(t, err)
	assert.Equal(t, "a", props["owner"])

	require.NoError(t, cat.SetNamespaceProperties(ctx, []string{"ns1"}, map[string]string{"owner": "b"}))
	props, err = cat.GetNamespaceProperties([]string{"ns1"})
	require.NoError(t, err)
	assert.Equal(t, "b", props["owner"])

	require.NoError(t, cat.CreateNamespace(ctx, []string{"ns1", "child"}, nil))
	top := cat.ListNamespaces(nil)
	assert.Contains(t, top, []string{"ns1"})

	children := cat.ListNamespaces([]string{"ns1"})
	assert.Contains(t, children, []string{"ns1", "child"})

	assert.ErrorIs(t, cat.DropNamespace(ctx, []string{"ns1"}), ErrNamespaceNotEmpty)

	require.NoError(t, cat.DropNamespace(ctx, []string{"ns1", "child"}))
	require.NoError(t, cat.DropNamespace(ctx, []string{"ns1"}))
	assert.ErrorIs(t, cat.DropNamespace(ctx, []string{"ns1"}), ErrNamespaceNotFound)
}

func TestNamespaceRegistryPersistsAcrossOpen(t *testing.T) {
	ctx := context.Background()
	store := memblob.New()

	cat, err := Open(ctx, Options{Blob: store})
	require.NoError(t, err)
	require.NoError(t, cat.CreateNamespace(ctx, []string{"ns1"}, map[string]string{"k": "v"}))

	reopened, err := Open(ctx, Options{Blob: store})
	require.NoError(t, err)
	props, err := reopened.GetNamespaceProperties([]string{"ns1"})
	require.NoError(t, err)
	assert.Equal(t, "v", props["k"])
}

func TestCreateAndLoadTable(t *testing.T) {
	cat, _ := openTestCatalog(t)
	ctx := context.Background()
	id := TableIdentifier{Namespace: []string{"ns1"}, Name: "t1"}

	require.NoError(t, cat.CreateNamespace(ctx, []string{"ns1"}, nil))
	created, err := cat.CreateTable(ctx, id, CreateTableInput{Schema: testSchema()})
	require.NoError(t, err)
	assert.Equal(t, 2, created.FormatVersion)
	assert.Equal(t, 2, created.LastColumnID)
	assert.NotEmpty(t, created.TableUUID)

	_, err = cat.CreateTable(ctx, id, CreateTableInput{})
	assert.ErrorIs(t, err, ErrTableAlreadyExists)

	loaded, err := cat.LoadTable(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, created.TableUUID, loaded.TableUUID)

	exists, err := cat.TableExists(ctx, id)
	require.NoError(t, err)
	assert.True(t, exists)

	names, err := cat.ListTables(ctx, []string{"ns1"})
	require.NoError(t, err)
	assert.Equal(t, []string{"t1"}, names)

	_, err = cat.LoadTable(ctx, TableIdentifier{Namespace: []string{"ns1"}, Name: "missing"})
	assert.ErrorIs(t, err, ErrTableNotFound)
}

func TestDropAndRenameTable(t *testing.T) {
	cat, _ := openTestCatalog(t)
	ctx := context.Background()
	id := TableIdentifier{Namespace: []string{"ns1"}, Name: "t1"}

	_, err := cat.CreateTable(ctx, id, CreateTableInput{Schema: testSchema()})
	require.NoError(t, err)

	to := TableIdentifier{Namespace: []string{"ns1"}, Name: "t2"}
	require.NoError(t, cat.RenameTable(ctx, id, to))

	exists, err := cat.TableExists(ctx, id)
	require.NoError(t, err)
	assert.False(t, exists)

	exists, err = cat.TableExists(ctx, to)
	require.NoError(t, err)
	assert.True(t, exists)

	require.NoError(t, cat.DropTable(ctx, to, true))
	exists, err = cat.TableExists(ctx, to)
	require.NoError(t, err)
	assert.False(t, exists)

	assert.ErrorIs(t, cat.DropTable(ctx, to, true), ErrTableNotFound)
}

func TestResolveVersionHintNumericAndPath(t *testing.T) {
	id := TableIdentifier{Namespace: []string{"ns1"}, Name: "t1"}

	key, err := resolveVersionHint(id, "3")
	require.NoError(t, err)
	assert.Equal(t, versionedMetadataKey(id, 3), key)

	key, err = resolveVersionHint(id, "ns1/t1/metadata/v9.metadata.json")
	require.NoError(t, err)
	assert.Equal(t, "ns1/t1/metadata/v9.metadata.json", key)

	_, err = resolveVersionHint(id, "../../etc/passwd")
	assert.ErrorIs(t, err, ErrInvalidVersionHint)

	_, err = currentVersion("ns1/t1/metadata/v9.metadata.json")
	assert.ErrorIs(t, err, ErrInvalidVersionHint)
}

func TestCommitTableAppliesUpdatesAndRequirements(t *testing.T) {
	cat, _ := openTestCatalog(t)
	ctx := context.Background()
	id := TableIdentifier{Namespace: []string{"ns1"}, Name: "t1"}

	created, err := cat.CreateTable(ctx, id, CreateTableInput{Schema: testSchema()})
	require.NoError(t, err)

	snap := snapshot.Build(cat.clock, cat.ids, snapshot.BuildInput{
		Operation:    metadata.OperationAppend,
		ManifestList: "ns1/t1/metadata/snap-1.avro",
		SchemaID:     created.CurrentSchemaID,
		AddedFiles:   1,
		AddedRows:    10,
	})

	req := CommitRequest{
		Identifier: id,
		Requirements: []Requirement{
			{Kind: AssertTableUUID, TableUUID: created.TableUUID},
			{Kind: AssertCurrentSnapshotID, CurrentSnapshotID: nil},
		},
		Updates: []Update{
			{Kind: UpdateAddSnapshot, Snapshot: snap},
			{Kind: UpdateSetSnapshotRef, RefName: metadata.MainBranch, Ref: metadata.SnapshotRef{SnapshotID: snap.SnapshotID, Type: metadata.RefBranch}},
			{Kind: UpdateSetProperties, SetProperties: map[string]string{"written-by": "test"}},
		},
	}

	committed, err := cat.CommitTable(ctx, req)
	require.NoError(t, err)
	assert.Equal(t, snap.SnapshotID, *committed.CurrentSnapshotID)
	assert.Len(t, committed.Snapshots, 1)
	assert.Equal(t, "test", committed.Properties["written-by"])
	assert.Len(t, committed.SnapshotLog, 1)
	assert.Len(t, committed.MetadataLog, 1)

	reloaded, err := cat.LoadTable(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, committed.TableUUID, reloaded.TableUUID)
	assert.Equal(t, snap.SnapshotID, *reloaded.CurrentSnapshotID)
}

func TestCommitTableRejectsV3NonDVPositionDelete(t *testing.T) {
	cat, store := openTestCatalog(t)
	ctx := context.Background()
	id := TableIdentifier{Namespace: []string{"ns1"}, Name: "t1"}

	created, err := cat.CreateTable(ctx, id, CreateTableInput{Schema: testSchema(), FormatVersion: 3})
	require.NoError(t, err)

	snap := snapshot.Build(cat.clock, cat.ids, snapshot.BuildInput{
		Operation:  metadata.OperationAppend,
		SchemaID:   created.CurrentSchemaID,
		AddedFiles: 1,
	})

	codec := avrocodec.New()
	manifestRaw, err := codec.EncodeManifest([]metadata.ManifestEntry{
		{
			Status:     metadata.StatusAdded,
			SnapshotID: snap.SnapshotID,
			DataFile:   metadata.DataFile{FilePath: "ns1/t1/data/f1-deletes.parquet", Content: metadata.ContentPositionDeletes, FileFormat: "parquet"},
		},
	})
	require.NoError(t, err)
	manifestKey := "ns1/t1/metadata/snap-1-m0.avro"
	require.NoError(t, store.Put(ctx, manifestKey, manifestRaw))

	listRaw, err := codec.EncodeManifestList([]metadata.ManifestFile{
		{ManifestPath: manifestKey, AddedSnapshotID: snap.SnapshotID, AddedFilesCount: 1},
	})
	require.NoError(t, err)
	listKey := "ns1/t1/metadata/snap-1-list.avro"
	require.NoError(t, store.Put(ctx, listKey, listRaw))
	snap.ManifestList = listKey

	req := CommitRequest{
		Identifier:   id,
		Requirements: []Requirement{{Kind: AssertTableUUID, TableUUID: created.TableUUID}},
		Updates:      []Update{{Kind: UpdateAddSnapshot, Snapshot: snap}},
	}
	_, err = cat.CommitTable(ctx, req)
	assert.ErrorIs(t, err, snapshot.ErrInvalidV3PositionDelete)
}

func TestCommitTableAcceptsV3DeletionVector(t *testing.T) {
	cat, store := openTestCatalog(t)
	ctx := context.Background()
	id := TableIdentifier{Namespace: []string{"ns1"}, Name: "t1"}

	created, err := cat.CreateTable(ctx, id, CreateTableInput{Schema: testSchema(), FormatVersion: 3})
	require.NoError(t, err)

	snap := snapshot.Build(cat.clock, cat.ids, snapshot.BuildInput{
		Operation:  metadata.OperationAppend,
		SchemaID:   created.CurrentSchemaID,
		AddedFiles: 1,
	})

	offset, size := int64(0), int64(128)
	codec := avrocodec.New()
	manifestRaw, err := codec.EncodeManifest([]metadata.ManifestEntry{
		{
			Status:     metadata.StatusAdded,
			SnapshotID: snap.SnapshotID,
			DataFile: metadata.DataFile{
				FilePath: "ns1/t1/data/f1-deletes.puffin", Content: metadata.ContentPositionDeletes, FileFormat: "puffin",
				ContentOffset: &offset, ContentSize: &size, ReferencedDataFile: "ns1/t1/data/f1.parquet",
			},
		},
	})
	require.NoError(t, err)
	manifestKey := "ns1/t1/metadata/snap-1-m0.avro"
	require.NoError(t, store.Put(ctx, manifestKey, manifestRaw))

	listRaw, err := codec.EncodeManifestList([]metadata.ManifestFile{
		{ManifestPath: manifestKey, AddedSnapshotID: snap.SnapshotID, AddedFilesCount: 1},
	})
	require.NoError(t, err)
	listKey := "ns1/t1/metadata/snap-1-list.avro"
	require.NoError(t, store.Put(ctx, listKey, listRaw))
	snap.ManifestList = listKey

	req := CommitRequest{
		Identifier:   id,
		Requirements: []Requirement{{Kind: AssertTableUUID, TableUUID: created.TableUUID}},
		Updates:      []Update{{Kind: UpdateAddSnapshot, Snapshot: snap}},
	}
	committed, err := cat.CommitTable(ctx, req)
	require.NoError(t, err)
	assert.Len(t, committed.Snapshots, 1)
}

func TestCommitTableFailsRequirementWithoutRetry(t *testing.T) {
	cat, _ := openTestCatalog(t)
	ctx := context.Background()
	id := TableIdentifier{Namespace: []string{"ns1"}, Name: "t1"}

	_, err := cat.CreateTable(ctx, id, CreateTableInput{Schema: testSchema()})
	require.NoError(t, err)

	req := CommitRequest{
		Identifier: id,
		Requirements: []Requirement{
			{Kind: AssertTableUUID, TableUUID: "not-the-real-uuid"},
		},
	}

	_, err = cat.CommitTable(ctx, req)
	assert.ErrorIs(t, err, ErrCommitConflict)
}

// racingBlob fails the first N PutIfAbsent calls for keys matching a
// version-hint race, simulating another committer publishing that version
// first, then lets the caller through on retry.
type racingBlob struct {
	storage.ConditionalBlob
	failKey   string
	failTimes int
}

func (r *racingBlob) PutIfAbsent(ctx context.Context, key string, data []byte) error {
	if key == r.failKey && r.failTimes > 0 {
		r.failTimes--
		return storage.ErrAlreadyExists
	}
	return r.ConditionalBlob.PutIfAbsent(ctx, key, data)
}

func TestCommitTableRetriesOnPublishRace(t *testing.T) {
	store := memblob.New()
	ctx := context.Background()
	id := TableIdentifier{Namespace: []string{"ns1"}, Name: "t1"}

	raw := &racingBlob{ConditionalBlob: store, failKey: versionedMetadataKey(id, 2), failTimes: 2}
	cat, err := Open(ctx, Options{Blob: raw, Clock: &fakeClock{ms: 1000}})
	require.NoError(t, err)

	created, err := cat.CreateTable(ctx, id, CreateTableInput{Schema: testSchema()})
	require.NoError(t, err)

	req := CommitRequest{
		Identifier:   id,
		Requirements: []Requirement{{Kind: AssertTableUUID, TableUUID: created.TableUUID}},
		Updates:      []Update{{Kind: UpdateSetProperties, SetProperties: map[string]string{"k": "v"}}},
	}

	committed, err := cat.CommitTable(ctx, req)
	require.NoError(t, err)
	assert.Equal(t, "v", committed.Properties["k"])
}

func TestCommitTableExhaustsRetriesAsCommitConflict(t *testing.T) {
	store := memblob.New()
	ctx := context.Background()
	id := TableIdentifier{Namespace: []string{"ns1"}, Name: "t1"}

	raw := &racingBlob{ConditionalBlob: store, failKey: versionedMetadataKey(id, 2), failTimes: 100}
	cat, err := Open(ctx, Options{
		Blob:  raw,
		Clock: &fakeClock{ms: 1000},
		Retry: RetryPolicy{MaxRetries: 2, BaseInterval: 1, MaxInterval: 2, RandomizationFactor: 0},
	})
	require.NoError(t, err)

	created, err := cat.CreateTable(ctx, id, CreateTableInput{Schema: testSchema()})
	require.NoError(t, err)

	req := CommitRequest{
		Identifier:   id,
		Requirements: []Requirement{{Kind: AssertTableUUID, TableUUID: created.TableUUID}},
		Updates:      []Update{{Kind: UpdateSetProperties, SetProperties: map[string]string{"k": "v"}}},
	}

	_, err = cat.CommitTable(ctx, req)
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrCommitConflict))
}
