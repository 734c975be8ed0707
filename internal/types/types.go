// Package types maps the table format's logical primitive types to their
// serialized bound encodings (as stored in a data file's lower-bounds and
// upper-bounds maps) and provides type-aware comparison for those values.
package types

import (
	"encoding/binary"
	"errors"
	"fmt"
	"math"
	"math/big"
	"strconv"
	"strings"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Kind identifies a primitive logical type.
type Kind int

const (
	Boolean Kind = iota
	Int
	Long
	Float
	Double
	Decimal
	Date
	Time
	Timestamp
	TimestampTZ
	String
	UUID
	Fixed
	Binary
)

func (k Kind) String() string {
	switch k {
	case Boolean:
		return "boolean"
	case Int:
		return "int"
	case Long:
		return "long"
	case Float:
		return "float"
	case Double:
		return "double"
	case Decimal:
		return "decimal"
	case Date:
		return "date"
	case Time:
		return "time"
	case Timestamp:
		return "timestamp"
	case TimestampTZ:
		return "timestamptz"
	case String:
		return "string"
	case UUID:
		return "uuid"
	case Fixed:
		return "fixed"
	case Binary:
		return "binary"
	default:
		return "unknown"
	}
}

// Type is a fully-parameterized primitive type: Decimal carries
// Precision/Scale, Fixed carries Length.
type Type struct {
	Kind      Kind
	Precision int
	Scale     int
	Length    int
}

func (t Type) String() string {
	switch t.Kind {
	case Decimal:
		return fmt.Sprintf("decimal(%d,%d)", t.Precision, t.Scale)
	case Fixed:
		return fmt.Sprintf("fixed(%d)", t.Length)
	default:
		return t.Kind.String()
	}
}

// ErrUnsupportedBoundType is returned for nested (struct/list/map) types,
// which have no single bound encoding.
var ErrUnsupportedBoundType = errors.New("types: unsupported bound type")

// ErrUnknownType is returned by ParseType for a string matching no known
// primitive type name.
var ErrUnknownType = errors.New("types: unknown type name")

// ParseType parses the canonical string form produced by Type.String,
// including the parameterized "decimal(p,s)" and "fixed(n)" forms.
func ParseType(s string) (Type, error) {
	if strings.HasPrefix(s, "decimal(") && strings.HasSuffix(s, ")") {
		body := strings.TrimSuffix(strings.TrimPrefix(s, "decimal("), ")")
		parts := strings.SplitN(body, ",", 2)
		if len(parts) != 2 {
			return Type{}, fmt.Errorf("%w: %q", ErrUnknownType, s)
		}
		precision, err1 := strconv.Atoi(strings.TrimSpace(parts[0]))
		scale, err2 := strconv.Atoi(strings.TrimSpace(parts[1]))
		if err1 != nil || err2 != nil {
			return Type{}, fmt.Errorf("%w: %q", ErrUnknownType, s)
		}
		return Type{Kind: Decimal, Precision: precision, Scale: scale}, nil
	}
	if strings.HasPrefix(s, "fixed(") && strings.HasSuffix(s, ")") {
		body := strings.TrimSuffix(strings.TrimPrefix(s, "fixed("), ")")
		length, err := strconv.Atoi(strings.TrimSpace(body))
		if err != nil {
			return Type{}, fmt.Errorf("%w: %q", ErrUnknownType, s)
		}
		return Type{Kind: Fixed, Length: length}, nil
	}

	switch s {
	case "boolean":
		return Type{Kind: Boolean}, nil
	case "int":
		return Type{Kind: Int}, nil
	case "long":
		return Type{Kind: Long}, nil
	case "float":
		return Type{Kind: Float}, nil
	case "double":
		return Type{Kind: Double}, nil
	case "date":
		return Type{Kind: Date}, nil
	case "time":
		return Type{Kind: Time}, nil
	case "timestamp":
		return Type{Kind: Timestamp}, nil
	case "timestamptz":
		return Type{Kind: TimestampTZ}, nil
	case "string":
		return Type{Kind: String}, nil
	case "uuid":
		return Type{Kind: UUID}, nil
	case "binary":
		return Type{Kind: Binary}, nil
	default:
		return Type{}, fmt.Errorf("%w: %q", ErrUnknownType, s)
	}
}

// Encode serializes a logical value v (as produced by Decode, or a plain Go
// value matching the type) to its bound byte-string representation.
func Encode(t Type, v interface{}) ([]byte, error) {
	switch t.Kind {
	case Boolean:
		b, ok := v.(bool)
		if !ok {
			return nil, fmt.Errorf("types: expected bool for boolean, got %T", v)
		}
		if b {
			return []byte{1}, nil
		}
		return []byte{0}, nil

	case Int, Date:
		i, err := toInt64(v)
		if err != nil {
			return nil, err
		}
		buf := make([]byte, 4)
		binary.LittleEndian.PutUint32(buf, uint32(int32(i)))
		return buf, nil

	case Long, Time, Timestamp, TimestampTZ:
		i, err := toInt64(v)
		if err != nil {
			return nil, err
		}
		buf := make([]byte, 8)
		binary.LittleEndian.PutUint64(buf, uint64(i))
		return buf, nil

	case Float:
		f, err := toFloat64(v)
		if err != nil {
			return nil, err
		}
		buf := make([]byte, 4)
		binary.LittleEndian.PutUint32(buf, math.Float32bits(float32(f)))
		return buf, nil

	case Double:
		f, err := toFloat64(v)
		if err != nil {
			return nil, err
		}
		buf := make([]byte, 8)
		binary.LittleEndian.PutUint64(buf, math.Float64bits(f))
		return buf, nil

	case Decimal:
		d, ok := v.(decimal.Decimal)
		if !ok {
			return nil, fmt.Errorf("types: expected decimal.Decimal, got %T", v)
		}
		return encodeDecimalUnscaled(d.Coefficient()), nil

	case String:
		s, ok := v.(string)
		if !ok {
			return nil, fmt.Errorf("types: expected string, got %T", v)
		}
		return []byte(s), nil

	case UUID:
		u, ok := v.(uuid.UUID)
		if !ok {
			return nil, fmt.Errorf("types: expected uuid.UUID, got %T", v)
		}
		b := u[:]
		out := make([]byte, 16)
		copy(out, b)
		return out, nil

	case Fixed, Binary:
		b, ok := v.([]byte)
		if !ok {
			return nil, fmt.Errorf("types: expected []byte, got %T", v)
		}
		return b, nil

	default:
		return nil, ErrUnsupportedBoundType
	}
}

// Decode reverses Encode, producing a logical value from its bound
// byte-string representation.
func Decode(t Type, b []byte) (interface{}, error) {
	switch t.Kind {
	case Boolean:
		if len(b) != 1 {
			return nil, fmt.Errorf("types: boolean bound must be 1 byte, got %d", len(b))
		}
		return b[0] != 0, nil

	case Int, Date:
		if len(b) != 4 {
			return nil, fmt.Errorf("types: %s bound must be 4 bytes, got %d", t.Kind, len(b))
		}
		return int64(int32(binary.LittleEndian.Uint32(b))), nil

	case Long, Time, Timestamp, TimestampTZ:
		if len(b) != 8 {
			return nil, fmt.Errorf("types: %s bound must be 8 bytes, got %d", t.Kind, len(b))
		}
		return int64(binary.LittleEndian.Uint64(b)), nil

	case Float:
		if len(b) != 4 {
			return nil, fmt.Errorf("types: float bound must be 4 bytes, got %d", len(b))
		}
		return float64(math.Float32frombits(binary.LittleEndian.Uint32(b))), nil

	case Double:
		if len(b) != 8 {
			return nil, fmt.Errorf("types: double bound must be 8 bytes, got %d", len(b))
		}
		return math.Float64frombits(binary.LittleEndian.Uint64(b)), nil

	case Decimal:
		unscaled := decodeDecimalUnscaled(b)
		return decimal.NewFromBigInt(unscaled, int32(-t.Scale)), nil

	case String:
		return string(b), nil

	case UUID:
		if len(b) != 16 {
			return nil, fmt.Errorf("types: uuid bound must be 16 bytes, got %d", len(b))
		}
		u, err := uuid.FromBytes(b)
		if err != nil {
			return nil, err
		}
		return u, nil

	case Fixed, Binary:
		out := make([]byte, len(b))
		copy(out, b)
		return out, nil

	default:
		return nil, ErrUnsupportedBoundType
	}
}

// encodeDecimalUnscaled produces the minimal big-endian two's-complement
// byte representation of an arbitrary-precision unscaled decimal value.
func encodeDecimalUnscaled(unscaled *big.Int) []byte {
	neg := unscaled.Sign() < 0
	abs := new(big.Int).Abs(unscaled)
	b := abs.Bytes()
	if len(b) == 0 {
		b = []byte{0}
	}
	// ensure a clear sign bit for the magnitude representation.
	if b[0]&0x80 != 0 {
		b = append([]byte{0}, b...)
	}
	if !neg {
		return b
	}
	// two's complement negation.
	for i := range b {
		b[i] = ^b[i]
	}
	carry := byte(1)
	for i := len(b) - 1; i >= 0 && carry > 0; i-- {
		sum := int(b[i]) + int(carry)
		b[i] = byte(sum)
		carry = byte(sum >> 8)
	}
	if b[0]&0x80 == 0 {
		b = append([]byte{0xff}, b...)
	}
	return b
}

func decodeDecimalUnscaled(b []byte) *big.Int {
	if len(b) == 0 {
		return big.NewInt(0)
	}
	v := new(big.Int).SetBytes(b)
	if b[0]&0x80 != 0 {
		// negative: v - 2^(8*len(b))
		mod := new(big.Int).Lsh(big.NewInt(1), uint(8*len(b)))
		v.Sub(v, mod)
	}
	return v
}

func toInt64(v interface{}) (int64, error) {
	switch x := v.(type) {
	case int64:
		return x, nil
	case int32:
		return int64(x), nil
	case int:
		return int64(x), nil
	default:
		return 0, fmt.Errorf("types: expected integer, got %T", v)
	}
}

func toFloat64(v interface{}) (float64, error) {
	switch x := v.(type) {
	case float64:
		return x, nil
	case float32:
		return float64(x), nil
	default:
		return 0, fmt.Errorf("types: expected float, got %T", v)
	}
}

// Cmp compares two decoded logical values of type t, returning -1, 0, or 1.
// NaN orders greater than all other numbers (Iceberg convention); false
// orders less than true; binary/fixed use unsigned byte-order; string uses
// lexicographic (byte-wise) order.
func Cmp(t Type, a, b interface{}) (int, error) {
	switch t.Kind {
	case Boolean:
		av, bv := a.(bool), b.(bool)
		if av == bv {
			return 0, nil
		}
		if !av && bv {
			return -1, nil
		}
		return 1, nil

	case Int, Long, Date, Time, Timestamp, TimestampTZ:
		av, err := toInt64(a)
		if err != nil {
			return 0, err
		}
		bv, err := toInt64(b)
		if err != nil {
			return 0, err
		}
		switch {
		case av < bv:
			return -1, nil
		case av > bv:
			return 1, nil
		default:
			return 0, nil
		}

	case Float, Double:
		av, err := toFloat64(a)
		if err != nil {
			return 0, err
		}
		bv, err := toFloat64(b)
		if err != nil {
			return 0, err
		}
		return cmpFloat(av, bv), nil

	case Decimal:
		av, aok := a.(decimal.Decimal)
		bv, bok := b.(decimal.Decimal)
		if !aok || !bok {
			return 0, fmt.Errorf("types: expected decimal.Decimal operands")
		}
		return av.Cmp(bv), nil

	case String:
		av, bv := a.(string), b.(string)
		switch {
		case av < bv:
			return -1, nil
		case av > bv:
			return 1, nil
		default:
			return 0, nil
		}

	case UUID:
		av, aok := a.(uuid.UUID)
		bv, bok := b.(uuid.UUID)
		if !aok || !bok {
			return 0, fmt.Errorf("types: expected uuid.UUID operands")
		}
		return cmpBytes(av[:], bv[:]), nil

	case Fixed, Binary:
		av, aok := a.([]byte)
		bv, bok := b.([]byte)
		if !aok || !bok {
			return 0, fmt.Errorf("types: expected []byte operands")
		}
		return cmpBytes(av, bv), nil

	default:
		return 0, ErrUnsupportedBoundType
	}
}

func cmpFloat(a, b float64) int {
	aNaN, bNaN := math.IsNaN(a), math.IsNaN(b)
	switch {
	case aNaN && bNaN:
		return 0
	case aNaN:
		return 1
	case bNaN:
		return -1
	case a < b:
		return -1
	case a > b:
		return 1
	default:
		return 0
	}
}

func cmpBytes(a, b []byte) int {
	n := len(a)
	if len(b) < n {
		n = len(b)
	}
	for i := 0; i < n; i++ {
		if a[i] != b[i] {
			if a[i] < b[i] {
				return -1
			}
			return 1
		}
	}
	switch {
	case len(a) < len(b):
		return -1
	case len(a) > len(b):
		return 1
	default:
		return 0
	}
}
