package upgrade

import (
	"testing"

	"github.com/marmotdata/icemeta/internal/metadata"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestToV3HappyPath(t *testing.T) {
	src := metadata.RootMetadata{
		FormatVersion:      2,
		LastSequenceNumber: 7,
		LastColumnID:       15,
		Snapshots: []metadata.Snapshot{
			{SnapshotID: 1, SequenceNumber: 1},
			{SnapshotID: 2, SequenceNumber: 2},
		},
	}

	out, err := ToV3(src, Options{NowMs: 5000})
	require.NoError(t, err)
	assert.Equal(t, 3, out.FormatVersion)
	require.NotNil(t, out.NextRowID)
	assert.Equal(t, int64(0), *out.NextRowID)
	assert.Equal(t, int64(7), out.LastSequenceNumber)
	assert.Equal(t, 15, out.LastColumnID)
	assert.Equal(t, int64(5000), out.LastUpdatedMs)

	require.Len(t, out.Snapshots, 2)
	assert.Nil(t, out.Snapshots[0].FirstRowID)
	assert.Nil(t, out.Snapshots[0].AddedRows)
}

func TestToV3PreserveLastUpdated(t *testing.T) {
	src := metadata.RootMetadata{FormatVersion: 2, LastUpdatedMs: 42}
	out, err := ToV3(src, Options{PreserveLastUpdated: true, NowMs: 999})
	require.NoError(t, err)
	assert.Equal(t, int64(42), out.LastUpdatedMs)
}

func TestToV3AlreadyTarget(t *testing.T) {
	_, err := ToV3(metadata.RootMetadata{FormatVersion: 3}, Options{})
	assert.ErrorIs(t, err, ErrAlreadyTargetVersion)
}

func TestToV3InvalidSource(t *testing.T) {
	_, err := ToV3(metadata.RootMetadata{FormatVersion: 1}, Options{})
	assert.ErrorIs(t, err, ErrInvalidSourceVersion)
}

func TestDowngradeAlwaysFails(t *testing.T) {
	_, err := Downgrade(metadata.RootMetadata{FormatVersion: 3}, 2)
	assert.ErrorIs(t, err, ErrDowngradeNotAllowed)
}
