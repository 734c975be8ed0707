package memblob

import (
	"context"
	"testing"

	"github.com/marmotdata/icemeta/internal/storage"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPutGetRoundTrip(t *testing.T) {
	ctx := context.Background()
	s := New()
	require.NoError(t, s.Put(ctx, "a/b.json", []byte("hello")))

	got, err := s.Get(ctx, "a/b.json")
	require.NoError(t, err)
	assert.Equal(t, []byte("hello"), got)
}

func TestGetMissing(t *testing.T) {
	_, err := New().Get(context.Background(), "missing")
	assert.ErrorIs(t, err, storage.ErrNotFound)
}

func TestExistsAndDelete(t *testing.T) {
	ctx := context.Background()
	s := New()
	require.NoError(t, s.Put(ctx, "k", []byte("v")))

	ok, err := s.Exists(ctx, "k")
	require.NoError(t, err)
	assert.True(t, ok)

	require.NoError(t, s.Delete(ctx, "k"))
	ok, err = s.Exists(ctx, "k")
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestListPrefix(t *testing.T) {
	ctx := context.Background()
	s := New()
	require.NoError(t, s.Put(ctx, "metadata/v1.json", nil))
	require.NoError(t, s.Put(ctx, "metadata/v2.json", nil))
	require.NoError(t, s.Put(ctx, "data/a.parquet", nil))

	keys, err := s.List(ctx, "metadata/")
	require.NoError(t, err)
	assert.ElementsMatch(t, []string{"metadata/v1.json", "metadata/v2.json"}, keys)
}

func TestPutIfAbsent(t *testing.T) {
	ctx := context.Background()
	s := New()
	require.NoError(t, s.PutIfAbsent(ctx, "k", []byte("v1")))
	err := s.PutIfAbsent(ctx, "k", []byte("v2"))
	assert.ErrorIs(t, err, storage.ErrAlreadyExists)

	got, _ := s.Get(ctx, "k")
	assert.Equal(t, []byte("v1"), got)
}
