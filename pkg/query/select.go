package query

import (
	"slices"
	"strconv"
	"strings"
)

// selectAll is `select=*` with the asterisk percent-encoded.
const selectAll = "select=%2A"

// SelectQuery combines an optional filter group, sorts and pagination into a
// complete query string. It is a value type: builder methods return a new
// SelectQuery and never modify or alias the receiver.
type SelectQuery struct {
	Filter *FilterGroup
	Sorts  []Sort
	Limit  int // emitted only when > 0
	Offset int // emitted only when > 0
}

// NewSelect returns an empty query selecting every column of every row.
func NewSelect() SelectQuery {
	return SelectQuery{}
}

// WithFilter returns a copy of q filtered by g.
func (q SelectQuery) WithFilter(g FilterGroup) SelectQuery {
	g.Filters = slices.Clone(g.Filters)
	q.Filter = &g
	q.Sorts = slices.Clone(q.Sorts)
	return q
}

// Where returns a copy of q filtered by the flattened expression. A nil
// expression, such as All() of nothing, leaves q unfiltered.
func (q SelectQuery) Where(e Expr) SelectQuery {
	if e == nil {
		q.Sorts = slices.Clone(q.Sorts)
		q.Filter = q.cloneFilter()
		return q
	}
	return q.WithFilter(e.ToFilterGroup())
}

// Sort returns a copy of q with one more order clause appended.
func (q SelectQuery) Sort(column string, direction SortDirection) SelectQuery {
	return q.OrderBy(NewSort(column, direction))
}

// OrderBy returns a copy of q with sorts appended in order.
func (q SelectQuery) OrderBy(sorts ...Sort) SelectQuery {
	next := make([]Sort, 0, len(q.Sorts)+len(sorts))
	next = append(next, q.Sorts...)
	q.Sorts = append(next, sorts...)
	q.Filter = q.cloneFilter()
	return q
}

// WithLimit returns a copy of q returning at most n rows. n <= 0 clears the limit.
func (q SelectQuery) WithLimit(n int) SelectQuery {
	q.Limit = max(n, 0)
	q.Sorts = slices.Clone(q.Sorts)
	q.Filter = q.cloneFilter()
	return q
}

// WithOffset returns a copy of q skipping the first n rows. n <= 0 clears the offset.
func (q SelectQuery) WithOffset(n int) SelectQuery {
	q.Offset = max(n, 0)
	q.Sorts = slices.Clone(q.Sorts)
	q.Filter = q.cloneFilter()
	return q
}

func (q SelectQuery) cloneFilter() *FilterGroup {
	if q.Filter == nil {
		return nil
	}
	g := *q.Filter
	g.Filters = slices.Clone(g.Filters)
	return &g
}

// ToQueryString returns the full query component, without a leading '?':
//
//	select=%2A&name=eq.Test%20Organisation&id=eq.123&order=created_at.asc
//
// Each sort becomes its own `order=` parameter, in insertion order.
func (q SelectQuery) ToQueryString() string {
	parts := []string{selectAll}
	if q.Filter != nil {
		parts = append(parts, q.Filter.ToQueryString())
	}
	for _, s := range q.Sorts {
		parts = append(parts, s.ToQuery())
	}
	if q.Limit > 0 {
		parts = append(parts, "limit="+strconv.Itoa(q.Limit))
	}
	if q.Offset > 0 {
		parts = append(parts, "offset="+strconv.Itoa(q.Offset))
	}
	return strings.Join(parts, "&")
}

// String implements fmt.Stringer.
func (q SelectQuery) String() string {
	return q.ToQueryString()
}
