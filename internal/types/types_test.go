package types

import (
	"math"
	"testing"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEncodeDecodeRoundTrip(t *testing.T) {
	tests := []struct {
		name string
		typ  Type
		val  interface{}
	}{
		{name: "int", typ: Type{Kind: Int}, val: int64(42)},
		{name: "negative int", typ: Type{Kind: Int}, val: int64(-7)},
		{name: "long", typ: Type{Kind: Long}, val: int64(1 << 40)},
		{name: "float", typ: Type{Kind: Float}, val: float64(3.5)},
		{name: "double", typ: Type{Kind: Double}, val: float64(-2.25)},
		{name: "string", typ: Type{Kind: String}, val: "hello"},
		{name: "binary", typ: Type{Kind: Binary}, val: []byte{0x01, 0x02, 0xff}},
		{name: "bool true", typ: Type{Kind: Boolean}, val: true},
		{name: "bool false", typ: Type{Kind: Boolean}, val: false},
		{name: "uuid", typ: Type{Kind: UUID}, val: uuid.MustParse("12345678-1234-4123-8123-123456789abc")},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			enc, err := Encode(tt.typ, tt.val)
			require.NoError(t, err)
			dec, err := Decode(tt.typ, enc)
			require.NoError(t, err)
			assert.Equal(t, tt.val, dec)
		})
	}
}

func TestDecimalRoundTrip(t *testing.T) {
	typ := Type{Kind: Decimal, Precision: 10, Scale: 2}
	for _, s := range []string{"123.45", "-123.45", "0.00", "99999999.99", "-0.01"} {
		d, err := decimal.NewFromString(s)
		require.NoError(t, err)
		enc, err := Encode(typ, d)
		require.NoError(t, err)
		dec, err := Decode(typ, enc)
		require.NoError(t, err)
		got := dec.(decimal.Decimal)
		assert.True(t, d.Equal(got), "%s: want %s got %s", s, d, got)
	}
}

func TestCmpNaNOrdering(t *testing.T) {
	typ := Type{Kind: Double}
	c, err := Cmp(typ, math.NaN(), 1.0)
	require.NoError(t, err)
	assert.Equal(t, 1, c, "NaN should be greater than any number")

	c, err = Cmp(typ, 1.0, math.NaN())
	require.NoError(t, err)
	assert.Equal(t, -1, c)

	c, err = Cmp(typ, math.NaN(), math.NaN())
	require.NoError(t, err)
	assert.Equal(t, 0, c)
}

func TestCmpBooleanOrdering(t *testing.T) {
	typ := Type{Kind: Boolean}
	c, err := Cmp(typ, false, true)
	require.NoError(t, err)
	assert.Equal(t, -1, c)
}

func TestCmpStringLexicographic(t *testing.T) {
	typ := Type{Kind: String}
	c, err := Cmp(typ, "apple", "banana")
	require.NoError(t, err)
	assert.Equal(t, -1, c)
}

func TestCmpBinaryUnsigned(t *testing.T) {
	typ := Type{Kind: Binary}
	c, err := Cmp(typ, []byte{0x01}, []byte{0xff})
	require.NoError(t, err)
	assert.Equal(t, -1, c)
}

func TestUnsupportedBoundType(t *testing.T) {
	_, err := Encode(Type{Kind: Kind(99)}, "x")
	assert.ErrorIs(t, err, ErrUnsupportedBoundType)
}
