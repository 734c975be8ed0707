// Package variantfilter rewrites predicate filters over shredded variant
// columns to point at their typed_value storage paths, and uses that
// rewrite to drive predicate-pushdown skip decisions against a data file's
// column bounds (spec §4.J/K).
package variantfilter

import (
	"sort"
	"strings"

	"github.com/marmotdata/icemeta/internal/variant"
)

// Op is a comparison operator on a filter leaf.
type Op string

const (
	Eq  Op = "$eq"
	Gt  Op = "$gt"
	Gte Op = "$gte"
	Lt  Op = "$lt"
	Lte Op = "$lte"
	Ne  Op = "$ne"
	In  Op = "$in"
)

const (
	and = "$and"
	or  = "$or"
	not = "$not"
)

// Leaf is one comparison filter on a path: either a single operator/value
// pair, built via the Comparisons map (a path may carry more than one
// operator, e.g. {$gte: 1, $lte: 10}).
type Leaf struct {
	Path        string
	Comparisons map[Op]interface{}
}

// Node is a filter-tree tagged union: exactly one of Leaf, And, Or, Not is
// set.
type Node struct {
	Leaf *Leaf
	And  []Node
	Or   []Node
	Not  *Node
}

// RewriteResult is the outcome of Rewrite.
type RewriteResult struct {
	Filter             Node
	TransformedPaths   []string
	UntransformedPaths []string
}

// Rewrite recursively rewrites every leaf path that names a shredded
// sub-field (columnName.fieldPath, where fieldPath is declared in some
// config's Fields) to its typed_value storage path. Paths with no dot are
// left unchanged and not recorded; dotted paths whose column has no matching
// config, or whose field is not declared shredded, are left unchanged and
// recorded in UntransformedPaths. The
// rewrite is idempotent: a path already in typed_value form contains no
// plain dot-qualified field lookup that re-matches a config, so a second
// pass leaves it alone and reports no further transformed paths.
func Rewrite(filter Node, configs []variant.ShredConfig) RewriteResult {
	byColumn := make(map[string]variant.ShredConfig, len(configs))
	for _, c := range configs {
		byColumn[c.ColumnName] = c
	}

	r := &rewriter{byColumn: byColumn}
	out := r.walk(filter)
	sort.Strings(r.transformed)
	sort.Strings(r.untransformed)
	return RewriteResult{Filter: out, TransformedPaths: r.transformed, UntransformedPaths: r.untransformed}
}

type rewriter struct {
	byColumn      map[string]variant.ShredConfig
	transformed   []string
	untransformed []string
}

func (r *rewriter) walk(n Node) Node {
	switch {
	case n.Leaf != nil:
		return Node{Leaf: r.rewriteLeaf(*n.Leaf)}
	case n.And != nil:
		return Node{And: r.walkAll(n.And)}
	case n.Or != nil:
		return Node{Or: r.walkAll(n.Or)}
	case n.Not != nil:
		child := r.walk(*n.Not)
		return Node{Not: &child}
	default:
		return n
	}
}

func (r *rewriter) walkAll(nodes []Node) []Node {
	out := make([]Node, len(nodes))
	for i, c := range nodes {
		out[i] = r.walk(c)
	}
	return out
}

func (r *rewriter) rewriteLeaf(l Leaf) *Leaf {
	dot := strings.IndexByte(l.Path, '.')
	if dot < 0 {
		return &l
	}
	column, fieldPath := l.Path[:dot], l.Path[dot+1:]
	cfg, ok := r.byColumn[column]
	if !ok || !containsField(cfg.Fields, fieldPath) {
		r.untransformed = append(r.untransformed, l.Path)
		return &l
	}
	rewritten := variant.TypedValuePath(cfg, fieldPath)
	r.transformed = append(r.transformed, l.Path)
	return &Leaf{Path: rewritten, Comparisons: l.Comparisons}
}

func containsField(fields []string, f string) bool {
	for _, x := range fields {
		if x == f {
			return true
		}
	}
	return false
}
