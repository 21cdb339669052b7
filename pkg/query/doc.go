// Package query builds PostgREST query strings from typed filter, sort and
// pagination descriptions.
//
// The package never performs I/O. Every value is immutable once built, so a
// query can be shared between goroutines and compiled any number of times
// with byte-identical output.
//
// Wire dialect produced:
//
//	Fragment                  | Produced by
//	--------------------------|------------------------------------------
//	select=%2A                | SelectQuery (always first)
//	col=eq.val                | Filter.ToQuery, AND groups
//	or=(a.eq.x,b.lt.y)        | Filter.ToOrQuery, OR groups
//	order=col.desc            | Sort.ToQuery, one fragment per sort key
//	limit=10&offset=20        | SelectQuery.WithLimit / WithOffset
//
// Predicates can be written directly or through the expression DSL:
//
//	expr := query.Col("name").Eq("Org X").Or(query.Col("score").Gt(5))
//	q := query.NewSelect().Where(expr).Sort("created_at", query.Desc)
//	fmt.Println(q.ToQueryString())
//	// select=%2A&or=(name.eq.Org%20X,score.gt.5)&order=created_at.desc
//
// Trees are flattened one level deep: an AND of an OR keeps every leaf but
// loses the inner OR grouping. Use Expr.ToFilterGroupStrict to reject such
// trees instead of rewriting them.
//
// See https://docs.postgrest.org/en/stable/references/api/tables_views.html
package query
