package path

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		path    string
		wantErr bool
	}{
		{name: "plain relative", path: "warehouse/db/t/metadata/v1.metadata.json"},
		{name: "scheme rooted", path: "s3://bucket/warehouse/db/t"},
		{name: "plain traversal", path: "warehouse/../secrets", wantErr: true},
		{name: "leading traversal", path: "../etc/passwd", wantErr: true},
		{name: "trailing traversal", path: "warehouse/..", wantErr: true},
		{name: "backslash traversal", path: `warehouse\..\secrets`, wantErr: true},
		{name: "percent encoded", path: "warehouse/%2e%2e/secrets", wantErr: true},
		{name: "double dot segment literal", path: "a/../b", wantErr: true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := Validate(tt.path)
			if tt.wantErr {
				require.Error(t, err)
				assert.ErrorIs(t, err, ErrTraversal)
			} else {
				require.NoError(t, err)
			}
		})
	}
}

func TestSanitize(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want string
	}{
		{name: "collapses slashes", in: "warehouse//db///t/", want: "warehouse/db/t"},
		{name: "removes dot segments", in: "./warehouse/./db", want: "warehouse/db"},
		{name: "resolves double-dot", in: "warehouse/db/../t", want: "warehouse/t"},
		{name: "preserves scheme root", in: "s3://bucket///", want: "s3://bucket"},
		{name: "preserves single leading slash", in: "//a//b/", want: "/a/b"},
		{name: "root stays root", in: "/", want: "/"},
		{name: "backslashes normalized", in: `warehouse\db\t`, want: "warehouse/db/t"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Sanitize(tt.in))
		})
	}
}

func TestJoin(t *testing.T) {
	got, err := Join("warehouse", "db", "t")
	require.NoError(t, err)
	assert.Equal(t, "warehouse/db/t", got)

	got, err = Join("warehouse/db", "/absolute/reset")
	require.NoError(t, err)
	assert.Equal(t, "/absolute/reset", got)

	got, err = Join("s3://bucket/warehouse", "db", "t")
	require.NoError(t, err)
	assert.Equal(t, "s3://bucket/warehouse/db/t", got)

	_, err = Join("warehouse", "../etc")
	assert.ErrorIs(t, err, ErrTraversal)
}

func TestParentBasename(t *testing.T) {
	assert.Equal(t, "warehouse/db", Parent("warehouse/db/t"))
	assert.Equal(t, "t", Basename("warehouse/db/t"))
	assert.Equal(t, "s3://bucket/warehouse", Parent("s3://bucket/warehouse/db"))
	assert.Equal(t, "db", Basename("s3://bucket/warehouse/db"))
}

func TestIsAbsolute(t *testing.T) {
	assert.True(t, IsAbsolute("/warehouse"))
	assert.True(t, IsAbsolute("s3://bucket/warehouse"))
	assert.False(t, IsAbsolute("warehouse/db"))
}
