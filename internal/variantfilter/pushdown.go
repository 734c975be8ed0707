package variantfilter

import (
	"fmt"

	"github.com/marmotdata/icemeta/internal/metadata"
	"github.com/marmotdata/icemeta/internal/types"
	"github.com/marmotdata/icemeta/internal/variant"
)

// SkipDecision is the outcome of ShouldSkipDataFile: whether a file can be
// skipped, and if so a short diagnostic explaining why.
type SkipDecision struct {
	Skip   bool
	Reason string
}

// ShouldSkipDataFile rewrites filter against configs (§4.J), then evaluates
// each transformed leaf's bounds-overlap against file's lower/upper bound
// statistics (resolved via fieldIDMap and decoded per fieldTypes). If the
// function returns Skip=true, no row in file can satisfy filter.
func ShouldSkipDataFile(file metadata.DataFile, filter Node, configs []variant.ShredConfig, fieldIDMap map[string]int, fieldTypes map[string]types.Type) SkipDecision {
	rewritten := Rewrite(filter, configs)
	return evalNode(rewritten.Filter, file, fieldIDMap, fieldTypes)
}

func evalNode(n Node, file metadata.DataFile, fieldIDMap map[string]int, fieldTypes map[string]types.Type) SkipDecision {
	switch {
	case n.Leaf != nil:
		return evalLeaf(*n.Leaf, file, fieldIDMap, fieldTypes)

	case n.And != nil:
		// $and skips iff any child says skip.
		for _, c := range n.And {
			if d := evalNode(c, file, fieldIDMap, fieldTypes); d.Skip {
				return d
			}
		}
		return SkipDecision{}

	case n.Or != nil:
		// $or skips iff all children say skip.
		if len(n.Or) == 0 {
			return SkipDecision{}
		}
		var last SkipDecision
		for _, c := range n.Or {
			last = evalNode(c, file, fieldIDMap, fieldTypes)
			if !last.Skip {
				return SkipDecision{}
			}
		}
		return last

	case n.Not != nil:
		// $not never forces a skip (conservative).
		return SkipDecision{}

	default:
		return SkipDecision{}
	}
}

func evalLeaf(l Leaf, file metadata.DataFile, fieldIDMap map[string]int, fieldTypes map[string]types.Type) SkipDecision {
	id, ok := fieldIDMap[l.Path]
	if !ok {
		return SkipDecision{} // not a tracked shredded field; cannot prove skip
	}
	lowerB, hasLower := file.LowerBounds[id]
	upperB, hasUpper := file.UpperBounds[id]
	if !hasLower || !hasUpper {
		return SkipDecision{}
	}

	t, ok := fieldTypeForPath(l.Path, fieldTypes)
	if !ok {
		return SkipDecision{}
	}
	lower, err := types.Decode(t, lowerB)
	if err != nil {
		return SkipDecision{}
	}
	upper, err := types.Decode(t, upperB)
	if err != nil {
		return SkipDecision{}
	}

	for op, val := range l.Comparisons {
		if d := boundsOverlapValue(t, lower, upper, val, op, l.Path); d.Skip {
			return d
		}
	}
	return SkipDecision{}
}

// fieldTypeForPath looks up the source type for a rewritten typed_value
// path; fieldTypes is keyed the same way as fieldIDMap (see
// variant.CollectShreddedColumnStats).
func fieldTypeForPath(path string, fieldTypes map[string]types.Type) (types.Type, bool) {
	t, ok := fieldTypes[path]
	return t, ok
}

func boundsOverlapValue(t types.Type, lower, upper, val interface{}, op Op, path string) SkipDecision {
	cmp := func(a, b interface{}) int {
		c, err := types.Cmp(t, a, b)
		if err != nil {
			return 0
		}
		return c
	}

	switch op {
	case Eq:
		if cmp(val, lower) < 0 || cmp(val, upper) > 0 {
			return SkipDecision{Skip: true, Reason: fmt.Sprintf("%s = %v violates [%v..%v]", path, val, lower, upper)}
		}
	case Gt:
		if cmp(upper, val) <= 0 {
			return SkipDecision{Skip: true, Reason: fmt.Sprintf("%s > %v violates [%v..%v]", path, val, lower, upper)}
		}
	case Gte:
		if cmp(upper, val) < 0 {
			return SkipDecision{Skip: true, Reason: fmt.Sprintf("%s >= %v violates [%v..%v]", path, val, lower, upper)}
		}
	case Lt:
		if cmp(lower, val) >= 0 {
			return SkipDecision{Skip: true, Reason: fmt.Sprintf("%s < %v violates [%v..%v]", path, val, lower, upper)}
		}
	case Lte:
		if cmp(lower, val) > 0 {
			return SkipDecision{Skip: true, Reason: fmt.Sprintf("%s <= %v violates [%v..%v]", path, val, lower, upper)}
		}
	case Ne:
		// never provable by bounds alone.
	case In:
		values, ok := val.([]interface{})
		if !ok {
			return SkipDecision{}
		}
		for _, v := range values {
			if !(cmp(v, lower) < 0 || cmp(v, upper) > 0) {
				return SkipDecision{} // at least one candidate is in range
			}
		}
		return SkipDecision{Skip: true, Reason: fmt.Sprintf("%s $in violates [%v..%v]", path, lower, upper)}
	}
	return SkipDecision{}
}
