package manifest

import (
	"testing"

	"github.com/marmotdata/icemeta/internal/metadata"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBuilderAddDataFile(t *testing.T) {
	b := NewBuilder(5, 100)
	err := b.AddDataFile(metadata.DataFile{FilePath: "data/a.parquet", RecordCount: 10}, metadata.StatusAdded)
	require.NoError(t, err)

	entries := b.Entries()
	require.Len(t, entries, 1)
	assert.Equal(t, metadata.ContentData, entries[0].DataFile.Content)
	assert.Equal(t, int64(100), entries[0].SnapshotID)
	assert.Equal(t, int64(5), entries[0].SequenceNumber)
}

func TestBuilderInvalidStatus(t *testing.T) {
	b := NewBuilder(1, 1)
	err := b.AddDataFile(metadata.DataFile{}, metadata.ManifestEntryStatus(9))
	assert.ErrorIs(t, err, ErrInvalidStatus)
}

func TestBuilderEqualityDeleteRequiresIDs(t *testing.T) {
	b := NewBuilder(1, 1)
	err := b.AddEqualityDeleteFile(metadata.DataFile{}, metadata.StatusAdded)
	assert.ErrorIs(t, err, ErrEmptyEqualityIDs)

	err = b.AddEqualityDeleteFile(metadata.DataFile{EqualityIDs: []int{1, 2}}, metadata.StatusAdded)
	require.NoError(t, err)
}

func TestSummarize(t *testing.T) {
	b := NewBuilder(1, 1)
	require.NoError(t, b.AddDataFile(metadata.DataFile{RecordCount: 10}, metadata.StatusAdded))
	require.NoError(t, b.AddDataFile(metadata.DataFile{RecordCount: 20}, metadata.StatusExisting))
	require.NoError(t, b.AddDataFile(metadata.DataFile{RecordCount: 5}, metadata.StatusDeleted))

	s := b.Summarize()
	assert.Equal(t, Summary{
		AddedFiles: 1, ExistingFiles: 1, DeletedFiles: 1,
		AddedRows: 10, ExistingRows: 20, DeletedRows: 5,
	}, s)
}

func TestAddDataFileWithStatsMerge(t *testing.T) {
	b := NewBuilder(1, 1)
	file := metadata.DataFile{RecordCount: 1, ValueCounts: map[int]int64{1: 1}}
	stats := Stats{
		ValueCounts: map[int]int64{2: 5},
		LowerBounds: map[int][]byte{2: {0x01}},
	}
	require.NoError(t, b.AddDataFileWithStats(file, metadata.StatusAdded, stats))

	got := b.Entries()[0].DataFile
	assert.Equal(t, int64(1), got.ValueCounts[1])
	assert.Equal(t, int64(5), got.ValueCounts[2])
	assert.Equal(t, []byte{0x01}, got.LowerBounds[2])
}

func TestListBuilderAggregate(t *testing.T) {
	lb := NewListBuilder(100, 5)
	lb.AddManifest(metadata.ManifestFile{AddedFilesCount: 2, AddedRowsCount: 20})
	lb.AddManifest(metadata.ManifestFile{ExistingFilesCount: 1, ExistingRowsCount: 10, DeletedFilesCount: 1, DeletedRowsCount: 3})

	totals := lb.Aggregate()
	assert.Equal(t, ClusterTotals{AddedFiles: 2, ExistingFiles: 1, DeletedFiles: 1, AddedRows: 20, ExistingRows: 10, DeletedRows: 3}, totals)
}

func TestSummarizePartitions(t *testing.T) {
	spec := metadata.PartitionSpec{SpecID: 0, Fields: []metadata.PartitionField{{SourceID: 1, FieldID: 1000, Name: "region"}}}
	entries := []metadata.ManifestEntry{
		{Status: metadata.StatusAdded, DataFile: metadata.DataFile{Partition: map[string]interface{}{"region": []byte("us")}}},
		{Status: metadata.StatusAdded, DataFile: metadata.DataFile{Partition: map[string]interface{}{"region": []byte("eu")}}},
		{Status: metadata.StatusAdded, DataFile: metadata.DataFile{Partition: map[string]interface{}{"region": nil}}},
	}
	cmp := func(fieldID int, a, b []byte) int {
		as, bs := string(a), string(b)
		switch {
		case as < bs:
			return -1
		case as > bs:
			return 1
		default:
			return 0
		}
	}
	summaries := SummarizePartitions(entries, spec, cmp)
	require.Len(t, summaries, 1)
	assert.True(t, summaries[0].ContainsNull)
	assert.Equal(t, []byte("eu"), summaries[0].LowerBound)
	assert.Equal(t, []byte("us"), summaries[0].UpperBound)
}
