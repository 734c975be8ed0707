// Package partition implements partition transforms, partition-path
// encoding, spec evolution compatibility, and partition statistics
// collection (spec §4.G).
package partition

import (
	"errors"
	"fmt"
	"math/big"
	"strconv"
	"strings"

	"github.com/marmotdata/icemeta/internal/types"
	"github.com/shopspring/decimal"
	"github.com/twmb/murmur3"
)

// Kind names one of the partition transform families.
type Kind string

const (
	Identity Kind = "identity"
	Bucket   Kind = "bucket"
	Truncate Kind = "truncate"
	Year     Kind = "year"
	Month    Kind = "month"
	Day      Kind = "day"
	Hour     Kind = "hour"
	Void     Kind = "void"
)

// Transform is a parsed partition transform, e.g. bucket[16] or identity.
type Transform struct {
	Kind Kind
	Arg  int // N for bucket[N], W for truncate[W]; unused otherwise
}

// ErrInvalidTransform is returned for unparseable transform text.
var ErrInvalidTransform = errors.New("partition: invalid transform")

// Parse parses a transform's textual form: "identity", "bucket[16]",
// "truncate[4]", "year", "month", "day", "hour", or "void".
func Parse(s string) (Transform, error) {
	if open := strings.IndexByte(s, '['); open >= 0 {
		if !strings.HasSuffix(s, "]") {
			return Transform{}, fmt.Errorf("%w: %q", ErrInvalidTransform, s)
		}
		name := s[:open]
		argStr := s[open+1 : len(s)-1]
		n, err := strconv.Atoi(argStr)
		if err != nil {
			return Transform{}, fmt.Errorf("%w: %q: %v", ErrInvalidTransform, s, err)
		}
		switch Kind(name) {
		case Bucket:
			return Transform{Kind: Bucket, Arg: n}, nil
		case Truncate:
			return Transform{Kind: Truncate, Arg: n}, nil
		default:
			return Transform{}, fmt.Errorf("%w: %q", ErrInvalidTransform, s)
		}
	}

	switch Kind(s) {
	case Identity, Year, Month, Day, Hour, Void:
		return Transform{Kind: Kind(s)}, nil
	default:
		return Transform{}, fmt.Errorf("%w: %q", ErrInvalidTransform, s)
	}
}

// Format renders t back to its textual form; Format(Parse(s)) == s for any
// valid s.
func Format(t Transform) string {
	switch t.Kind {
	case Bucket, Truncate:
		return fmt.Sprintf("%s[%d]", t.Kind, t.Arg)
	default:
		return string(t.Kind)
	}
}

const (
	microsPerSecond = 1_000_000
	secondsPerDay   = 86400
	hoursEpochUnit  = 3600 * microsPerSecond
	daysEpochUnit   = secondsPerDay * microsPerSecond
)

// Apply evaluates transform t on logical value v of source type srcType (as
// produced by types.Decode), returning the transformed output value. A nil
// v (SQL null) always yields nil, per table-format semantics, except that
// void always yields nil regardless.
func Apply(t Transform, srcType types.Type, v interface{}) (interface{}, error) {
	if t.Kind == Void {
		return nil, nil
	}
	if v == nil {
		return nil, nil
	}

	switch t.Kind {
	case Identity:
		return v, nil

	case Bucket:
		b, err := types.Encode(srcType, v)
		if err != nil {
			return nil, err
		}
		h := int32(murmur3.Sum32(b)) & 0x7fffffff
		return int64(h) % int64(t.Arg), nil

	case Truncate:
		return truncate(srcType, v, t.Arg)

	case Year, Month, Day, Hour:
		return truncateTemporal(t.Kind, srcType, v)

	default:
		return nil, fmt.Errorf("%w: unknown transform kind %q", ErrInvalidTransform, t.Kind)
	}
}

func truncate(srcType types.Type, v interface{}, w int) (interface{}, error) {
	switch srcType.Kind {
	case types.Int, types.Long:
		n, err := toInt64(v)
		if err != nil {
			return nil, err
		}
		wi := int64(w)
		return n - (((n % wi) + wi) % wi), nil

	case types.String:
		s, ok := v.(string)
		if !ok {
			return nil, fmt.Errorf("types: expected string for truncate, got %T", v)
		}
		runes := []rune(s)
		if len(runes) <= w {
			return s, nil
		}
		return string(runes[:w]), nil

	case types.Binary, types.Fixed:
		b, ok := v.([]byte)
		if !ok {
			return nil, fmt.Errorf("types: expected []byte for truncate, got %T", v)
		}
		if len(b) <= w {
			return b, nil
		}
		out := make([]byte, w)
		copy(out, b[:w])
		return out, nil

	case types.Decimal:
		d, ok := v.(decimal.Decimal)
		if !ok {
			return nil, fmt.Errorf("types: expected decimal.Decimal for truncate, got %T", v)
		}
		unscaled := d.Coefficient()
		wBig := big.NewInt(int64(w))
		rem := new(big.Int).Mod(unscaled, wBig) // Euclidean mod: always in [0, w), matching ((v%W)+W)%W
		truncated := new(big.Int).Sub(unscaled, rem)
		return decimal.NewFromBigInt(truncated, d.Exponent()), nil

	default:
		return nil, fmt.Errorf("%w: truncate does not accept %s", ErrInvalidTransform, srcType.Kind)
	}
}

func truncateTemporal(kind Kind, srcType types.Type, v interface{}) (interface{}, error) {
	n, err := toInt64(v)
	if err != nil {
		return nil, err
	}

	switch srcType.Kind {
	case types.Date:
		days := n
		switch kind {
		case Day:
			return days, nil
		case Month:
			return daysToMonths(days), nil
		case Year:
			return daysToYears(days), nil
		default:
			return nil, fmt.Errorf("%w: %s transform does not accept date", ErrInvalidTransform, kind)
		}

	case types.Timestamp, types.TimestampTZ:
		micros := n
		days := floorDiv(micros, daysEpochUnit)
		switch kind {
		case Hour:
			return floorDiv(micros, hoursEpochUnit), nil
		case Day:
			return days, nil
		case Month:
			return daysToMonths(days), nil
		case Year:
			return daysToYears(days), nil
		}
	}
	return nil, fmt.Errorf("%w: %s transform does not accept %s", ErrInvalidTransform, kind, srcType.Kind)
}

func floorDiv(a, b int64) int64 {
	q := a / b
	if (a%b != 0) && ((a < 0) != (b < 0)) {
		q--
	}
	return q
}

// daysToYears/daysToMonths convert a day-count since the Unix epoch into
// whole years/months since 1970 in the proleptic Gregorian calendar, via
// civilFromDays.
func daysToYears(days int64) int64 {
	y, _, _ := civilFromDays(days)
	return int64(y) - 1970
}

func daysToMonths(days int64) int64 {
	y, m, _ := civilFromDays(days)
	return (int64(y)-1970)*12 + int64(m) - 1
}

// civilFromDays converts a day count since 1970-01-01 into a (year, month,
// day) triple using Howard Hinnant's civil-from-days algorithm, avoiding a
// dependency on time.Time's int64-nanosecond range limits for extreme dates.
func civilFromDays(z int64) (year int, month int, day int) {
	z += 719468
	era := z
	if z < 0 {
		era = z - 146096
	}
	era /= 146097
	doe := z - era*146097
	yoe := (doe - doe/1460 + doe/36524 - doe/146096) / 365
	y := yoe + era*400
	doy := doe - (365*yoe + yoe/4 - yoe/100)
	mp := (5*doy + 2) / 153
	d := doy - (153*mp+2)/5 + 1
	m := mp + 3
	if mp >= 10 {
		m = mp - 9
	}
	if m <= 2 {
		y++
	}
	return int(y), int(m), int(d)
}

func toInt64(v interface{}) (int64, error) {
	switch n := v.(type) {
	case int64:
		return n, nil
	case int:
		return int64(n), nil
	case int32:
		return int64(n), nil
	default:
		return 0, fmt.Errorf("types: expected integer value, got %T", v)
	}
}
