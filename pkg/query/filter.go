package query

import (
	"net/url"
	"strings"
)

// Operator is a PostgREST comparison operator.
type Operator int

const (
	Eq Operator = iota
	Neq
	Gt
	Lt
	Gte
	Lte
	Like
)

var operatorTokens = [...]string{
	Eq:   "eq",
	Neq:  "neq",
	Gt:   "gt",
	Lt:   "lt",
	Gte:  "gte",
	Lte:  "lte",
	Like: "like",
}

// String returns the wire token of the operator, e.g. "gte".
func (o Operator) String() string {
	if o < 0 || int(o) >= len(operatorTokens) {
		return "unknown"
	}
	return operatorTokens[o]
}

// Filter is a single column/operator/value condition.
// The value is kept as its string form; column and value are accepted verbatim
// and only percent-encoded when rendered.
type Filter struct {
	Column   string
	Operator Operator
	Value    string
}

// NewFilter returns a Filter. It never fails.
func NewFilter(column string, op Operator, value string) Filter {
	return Filter{Column: column, Operator: op, Value: value}
}

// ToQuery renders the filter for an AND group, e.g. `name=eq.Org%20X`.
func (f Filter) ToQuery() string {
	return encode(f.Column) + "=" + f.Operator.String() + "." + encode(f.Value)
}

// ToOrQuery renders the filter inside an OR group, e.g. `name.eq.Org%20X`.
func (f Filter) ToOrQuery() string {
	return encode(f.Column) + "." + f.Operator.String() + "." + encode(f.Value)
}

// LogicalOperator combines the filters of a FilterGroup.
type LogicalOperator int

const (
	And LogicalOperator = iota
	Or
)

func (l LogicalOperator) String() string {
	if l == Or {
		return "or"
	}
	return "and"
}

// FilterGroup is a flat list of filters joined by one logical operator.
//
// PostgREST expresses AND as separate query parameters and OR as a single
// `or=(...)` parameter, so the two modes render with different punctuation.
type FilterGroup struct {
	Operator LogicalOperator
	Filters  []Filter
}

// NewFilterGroup returns a group owning a copy of filters.
func NewFilterGroup(op LogicalOperator, filters ...Filter) FilterGroup {
	return FilterGroup{Operator: op, Filters: append([]Filter(nil), filters...)}
}

// ToQueryString renders the group. The `or=(` `,` `)` punctuation is syntax
// and is never encoded.
func (g FilterGroup) ToQueryString() string {
	parts := make([]string, len(g.Filters))
	if g.Operator == Or {
		for i, f := range g.Filters {
			parts[i] = f.ToOrQuery()
		}
		return "or=(" + strings.Join(parts, ",") + ")"
	}
	for i, f := range g.Filters {
		parts[i] = f.ToQuery()
	}
	return strings.Join(parts, "&")
}

// encode percent-encodes everything outside the RFC 3986 unreserved set.
// Spaces become %20, never '+'.
func encode(s string) string {
	// QueryEscape already turns a literal '+' into %2B, so every '+' left is a space.
	return strings.ReplaceAll(url.QueryEscape(s), "+", "%20")
}
