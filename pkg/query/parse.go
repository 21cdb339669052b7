package query

import (
	"fmt"
	"net/url"
	"strconv"
	"strings"
)

// ParseOperator maps a wire token such as "gte" to its Operator.
func ParseOperator(token string) (Operator, error) {
	for i, t := range operatorTokens {
		if t == token {
			return Operator(i), nil
		}
	}
	return 0, fmt.Errorf("query: unsupported operator %q", token)
}

// ParseFilter parses the human form `column=op.value`, e.g. `name=eq.Org X`.
// Column and value are taken literally (not percent-decoded); the value may
// itself contain '.' and '='.
func ParseFilter(s string) (Filter, error) {
	column, rest, ok := strings.Cut(s, "=")
	if !ok || column == "" {
		return Filter{}, fmt.Errorf("query: filter %q: want column=op.value", s)
	}
	token, value, ok := strings.Cut(rest, ".")
	if !ok {
		return Filter{}, fmt.Errorf("query: filter %q: missing operator", s)
	}
	op, err := ParseOperator(token)
	if err != nil {
		return Filter{}, fmt.Errorf("query: filter %q: %w", s, err)
	}
	return NewFilter(column, op, value), nil
}

// ParseOrder parses a comma separated order list such as
// `created_at.desc,name`. Entries without a direction sort ascending.
func ParseOrder(s string) ([]Sort, error) {
	parts := strings.Split(s, ",")
	result := make([]Sort, 0, len(parts))

	for _, part := range parts {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}

		direction := Asc
		if strings.HasSuffix(part, ".desc") {
			part = strings.TrimSuffix(part, ".desc")
			direction = Desc
		} else if strings.HasSuffix(part, ".asc") {
			part = strings.TrimSuffix(part, ".asc")
		}
		if part == "" {
			return nil, fmt.Errorf("query: order %q: empty column", s)
		}

		result = append(result, NewSort(part, direction))
	}

	return result, nil
}

// ParseQueryString is the inverse of SelectQuery.ToQueryString. It accepts the
// subset of PostgREST this package emits: select=*, one AND or one OR group,
// order, limit and offset. Parameter order is preserved.
func ParseQueryString(raw string) (SelectQuery, error) {
	raw = strings.TrimPrefix(raw, "?")
	q := NewSelect()
	var (
		and   []Filter
		or    []Filter
		hasOr bool
	)

	for _, param := range strings.Split(raw, "&") {
		if param == "" {
			continue
		}
		rawKey, rawVal, _ := strings.Cut(param, "=")
		key, err := url.QueryUnescape(rawKey)
		if err != nil {
			return SelectQuery{}, fmt.Errorf("query: parameter %q: %w", param, err)
		}

		switch key {
		case "select":
			if v, _ := url.QueryUnescape(rawVal); v != "*" {
				return SelectQuery{}, fmt.Errorf("query: select=%s: only * is supported", v)
			}
		case "order":
			v, err := url.QueryUnescape(rawVal)
			if err != nil {
				return SelectQuery{}, fmt.Errorf("query: order: %w", err)
			}
			sorts, err := ParseOrder(v)
			if err != nil {
				return SelectQuery{}, err
			}
			q.Sorts = append(q.Sorts, sorts...)
		case "limit", "offset":
			n, err := strconv.Atoi(rawVal)
			if err != nil || n < 0 {
				return SelectQuery{}, fmt.Errorf("query: %s=%s: not a non-negative integer", key, rawVal)
			}
			if key == "limit" {
				q.Limit = n
			} else {
				q.Offset = n
			}
		case "or":
			if hasOr {
				return SelectQuery{}, fmt.Errorf("query: more than one or=() group")
			}
			hasOr = true
			filters, err := parseOrGroup(rawVal)
			if err != nil {
				return SelectQuery{}, err
			}
			or = filters
		default:
			token, rawValue, ok := strings.Cut(rawVal, ".")
			if !ok {
				return SelectQuery{}, fmt.Errorf("query: %s=%s: missing operator", key, rawVal)
			}
			f, err := decodeFilter(key, token, rawValue)
			if err != nil {
				return SelectQuery{}, err
			}
			and = append(and, f)
		}
	}

	switch {
	case hasOr && len(and) > 0:
		return SelectQuery{}, fmt.Errorf("query: mixing or=() with plain filters is not representable")
	case hasOr:
		q.Filter = &FilterGroup{Operator: Or, Filters: or}
	case len(and) > 0:
		q.Filter = &FilterGroup{Operator: And, Filters: and}
	}
	return q, nil
}

// parseOrGroup parses `(a.eq.x,b.lt.y)`. ToOrQuery percent-encodes commas in
// data, so splitting on ',' is safe. Dots are not encoded: the value is
// everything after the second dot, and columns containing '.' do not round-trip.
func parseOrGroup(raw string) ([]Filter, error) {
	if !strings.HasPrefix(raw, "(") || !strings.HasSuffix(raw, ")") {
		return nil, fmt.Errorf("query: or=%s: want or=(...)", raw)
	}
	inner := raw[1 : len(raw)-1]
	if inner == "" {
		return []Filter{}, nil
	}

	var filters []Filter
	for _, item := range strings.Split(inner, ",") {
		parts := strings.SplitN(item, ".", 3)
		if len(parts) != 3 {
			return nil, fmt.Errorf("query: or item %q: want column.op.value", item)
		}
		column, err := url.QueryUnescape(parts[0])
		if err != nil {
			return nil, fmt.Errorf("query: or item %q: %w", item, err)
		}
		f, err := decodeFilter(column, parts[1], parts[2])
		if err != nil {
			return nil, err
		}
		filters = append(filters, f)
	}
	return filters, nil
}

func decodeFilter(column, token, rawValue string) (Filter, error) {
	op, err := ParseOperator(token)
	if err != nil {
		return Filter{}, fmt.Errorf("query: column %s: %w", column, err)
	}
	value, err := url.QueryUnescape(rawValue)
	if err != nil {
		return Filter{}, fmt.Errorf("query: column %s: %w", column, err)
	}
	return NewFilter(column, op, value), nil
}
