package query

import (
	"errors"
	"fmt"
)

// ErrUnsupportedNesting is returned by strict compilation when a tree mixes
// AND and OR below the root, which a single FilterGroup cannot express.
var ErrUnsupportedNesting = errors.New("query: nested and/or grouping is not supported")

// Expr is a predicate tree: a Cond leaf, or an AndExpr / OrExpr node owning
// two subtrees. Trees are built bottom-up and never mutated.
type Expr interface {
	// And returns a new node requiring both e and other.
	And(other Expr) Expr
	// Or returns a new node requiring either e or other.
	Or(other Expr) Expr
	// ToFilterGroup flattens the tree one level deep. The root decides the
	// group operator; the filters of every leaf are kept left to right and
	// any inner grouping is discarded, so (a | b) & c becomes a & b & c.
	ToFilterGroup() FilterGroup
	// ToFilterGroupStrict is ToFilterGroup, but fails with
	// ErrUnsupportedNesting instead of discarding inner grouping.
	ToFilterGroupStrict() (FilterGroup, error)
	// ToSelectQuery wraps the flattened tree in a SelectQuery without sorts.
	ToSelectQuery() SelectQuery

	filters() []Filter
}

// Cond is a leaf holding one filter.
type Cond struct {
	Filter Filter
}

// AndExpr matches when both children match.
type AndExpr struct {
	Left, Right Expr
}

// OrExpr matches when either child matches.
type OrExpr struct {
	Left, Right Expr
}

var (
	_ Expr = Cond{}
	_ Expr = AndExpr{}
	_ Expr = OrExpr{}
)

// A nil operand is the identity of both combinators, so folding an empty
// slice into a larger tree leaves the tree unchanged.
func andNode(left, right Expr) Expr {
	switch {
	case left == nil:
		return right
	case right == nil:
		return left
	}
	return AndExpr{Left: left, Right: right}
}

func orNode(left, right Expr) Expr {
	switch {
	case left == nil:
		return right
	case right == nil:
		return left
	}
	return OrExpr{Left: left, Right: right}
}

// All folds exprs left to right with AND, so All(a, b, c) is a.And(b).And(c).
// Nil arguments are skipped; it returns nil when nothing is left.
func All(exprs ...Expr) Expr { return fold(andNode, exprs) }

// Any folds exprs left to right with OR. Nil arguments are skipped; it
// returns nil when nothing is left.
func Any(exprs ...Expr) Expr { return fold(orNode, exprs) }

func fold(combine func(Expr, Expr) Expr, exprs []Expr) Expr {
	var acc Expr
	for _, e := range exprs {
		acc = combine(acc, e)
	}
	return acc
}

func (c Cond) And(other Expr) Expr    { return andNode(c, other) }
func (c Cond) Or(other Expr) Expr     { return orNode(c, other) }
func (a AndExpr) And(other Expr) Expr { return andNode(a, other) }
func (a AndExpr) Or(other Expr) Expr  { return orNode(a, other) }
func (o OrExpr) And(other Expr) Expr  { return andNode(o, other) }
func (o OrExpr) Or(other Expr) Expr   { return orNode(o, other) }

func (c Cond) filters() []Filter { return []Filter{c.Filter} }

func (a AndExpr) filters() []Filter { return concat(a.Left, a.Right) }

func (o OrExpr) filters() []Filter { return concat(o.Left, o.Right) }

func concat(left, right Expr) []Filter {
	l, r := filtersOf(left), filtersOf(right)
	out := make([]Filter, 0, len(l)+len(r))
	return append(append(out, l...), r...)
}

func filtersOf(e Expr) []Filter {
	if e == nil {
		return nil
	}
	return e.filters()
}

// A bare predicate is an AND group of one.
func (c Cond) ToFilterGroup() FilterGroup {
	return FilterGroup{Operator: And, Filters: c.filters()}
}

func (a AndExpr) ToFilterGroup() FilterGroup {
	return FilterGroup{Operator: And, Filters: a.filters()}
}

func (o OrExpr) ToFilterGroup() FilterGroup {
	return FilterGroup{Operator: Or, Filters: o.filters()}
}

func (c Cond) ToFilterGroupStrict() (FilterGroup, error) {
	return c.ToFilterGroup(), nil
}

func (a AndExpr) ToFilterGroupStrict() (FilterGroup, error) {
	if err := checkUniform(a, And); err != nil {
		return FilterGroup{}, err
	}
	return a.ToFilterGroup(), nil
}

func (o OrExpr) ToFilterGroupStrict() (FilterGroup, error) {
	if err := checkUniform(o, Or); err != nil {
		return FilterGroup{}, err
	}
	return o.ToFilterGroup(), nil
}

func (c Cond) ToSelectQuery() SelectQuery    { return NewSelect().Where(c) }
func (a AndExpr) ToSelectQuery() SelectQuery { return NewSelect().Where(a) }
func (o OrExpr) ToSelectQuery() SelectQuery  { return NewSelect().Where(o) }

// checkUniform reports ErrUnsupportedNesting if any node under e uses a
// logical operator other than op.
func checkUniform(e Expr, op LogicalOperator) error {
	switch n := e.(type) {
	case nil, Cond:
		return nil
	case AndExpr:
		if op != And {
			return fmt.Errorf("%w: and-group inside %s-group", ErrUnsupportedNesting, op)
		}
		if err := checkUniform(n.Left, op); err != nil {
			return err
		}
		return checkUniform(n.Right, op)
	case OrExpr:
		if op != Or {
			return fmt.Errorf("%w: or-group inside %s-group", ErrUnsupportedNesting, op)
		}
		if err := checkUniform(n.Left, op); err != nil {
			return err
		}
		return checkUniform(n.Right, op)
	default:
		return fmt.Errorf("query: unknown expression %T", e)
	}
}

// Field names a column and starts a predicate.
type Field string

// Col returns a Field for column.
func Col(column string) Field { return Field(column) }

func (f Field) cond(op Operator, value any) Expr {
	return Cond{Filter: NewFilter(string(f), op, Value(value))}
}

// Eq matches rows where the column equals value.
func (f Field) Eq(value any) Expr { return f.cond(Eq, value) }

// Neq matches rows where the column differs from value.
func (f Field) Neq(value any) Expr { return f.cond(Neq, value) }

// Gt matches rows where the column is greater than value.
func (f Field) Gt(value any) Expr { return f.cond(Gt, value) }

// Lt matches rows where the column is less than value.
func (f Field) Lt(value any) Expr { return f.cond(Lt, value) }

// Gte matches rows where the column is greater than or equal to value.
func (f Field) Gte(value any) Expr { return f.cond(Gte, value) }

// Lte matches rows where the column is less than or equal to value.
func (f Field) Lte(value any) Expr { return f.cond(Lte, value) }

// Like matches rows where the column matches the LIKE pattern. PostgREST
// accepts '*' in place of '%'.
func (f Field) Like(pattern any) Expr { return f.cond(Like, pattern) }
