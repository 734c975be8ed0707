package partition

import (
	"testing"
	"time"

	"github.com/marmotdata/icemeta/internal/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestStatsCollectorAddRemove(t *testing.T) {
	c := NewStatsCollector([]string{"region"}, []types.Type{{Kind: types.String}})
	c.AddFile([]interface{}{"us"}, 100, 1024, time.Now())
	c.AddFile([]interface{}{"us"}, 50, 512, time.Now())
	c.AddFile([]interface{}{"eu"}, 10, 128, time.Now())

	totals := c.GetStats()
	assert.Equal(t, 3, totals.FileCount)
	assert.Equal(t, int64(160), totals.RowCount)
	assert.Equal(t, int64(1664), totals.SizeBytes)

	fs, ok := totals.PerField["region"]
	require.True(t, ok)
	assert.Equal(t, 2, fs.DistinctValues)
	assert.Equal(t, "eu", fs.MinValue)
	assert.Equal(t, "us", fs.MaxValue)

	c.RemoveFile([]interface{}{"us"}, 100, 1024)
	totals = c.GetStats()
	assert.Equal(t, 2, totals.FileCount)
	assert.Equal(t, int64(60), totals.RowCount)
}

func TestStatsCollectorNullDistinctFromEmpty(t *testing.T) {
	c := NewStatsCollector([]string{"region"}, []types.Type{{Kind: types.String}})
	c.AddFile([]interface{}{nil}, 1, 1, time.Now())
	c.AddFile([]interface{}{""}, 1, 1, time.Now())
	assert.Len(t, c.byKey, 2)
}
