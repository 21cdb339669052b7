package rest

import (
	"context"
	"fmt"
	"net/http"

	"github.com/edgeflare/pgrest/pkg/query"
	"github.com/google/uuid"
)

// Select fetches the rows of table matching q.
func (c *Client) Select(ctx context.Context, table string, q query.SelectQuery) ([]Record, error) {
	return c.SelectRaw(ctx, table, q.ToQueryString())
}

// SelectRaw fetches rows using an already encoded PostgREST query string.
func (c *Client) SelectRaw(ctx context.Context, table, rawQuery string) ([]Record, error) {
	resp, err := c.do(ctx, http.MethodGet, c.TableURL(table, rawQuery), nil, nil)
	if err != nil {
		return nil, err
	}
	return decodeRecords(resp.Body)
}

// SelectExpr fetches the rows of table matching e, sorted by sorts.
// With WithStrictFilters, trees that cannot be expressed as a single filter
// group fail with query.ErrUnsupportedNesting before any request is sent.
func (c *Client) SelectExpr(ctx context.Context, table string, e query.Expr, sorts ...query.Sort) ([]Record, error) {
	q, err := c.compile(e)
	if err != nil {
		return nil, err
	}
	return c.Select(ctx, table, q.OrderBy(sorts...))
}

// compile turns an expression into a query, honoring the strict flag.
// A nil expression selects everything.
func (c *Client) compile(e query.Expr) (query.SelectQuery, error) {
	if e == nil {
		return query.NewSelect(), nil
	}
	if !c.strictFilters {
		return e.ToSelectQuery(), nil
	}
	g, err := e.ToFilterGroupStrict()
	if err != nil {
		return query.SelectQuery{}, err
	}
	return query.NewSelect().WithFilter(g), nil
}

// Count returns the number of rows of table matching q's filter. Sorts and
// pagination are ignored.
func (c *Client) Count(ctx context.Context, table string, q query.SelectQuery) (int, error) {
	counted := query.NewSelect()
	if q.Filter != nil {
		counted = counted.WithFilter(*q.Filter)
	}

	prefer := &Prefer{Count: "exact"}
	resp, err := c.do(ctx, http.MethodHead, c.TableURL(table, counted.ToQueryString()), nil, prefer)
	if err != nil {
		return 0, err
	}
	// An estimated total must not pass for an exact one.
	if err := checkApplied(resp.Headers, prefer, func(p *Prefer) bool {
		return p.Count == "" || p.WantsCountExact()
	}); err != nil {
		return 0, err
	}

	cr, err := ParseContentRange(resp.Headers)
	if err != nil {
		return 0, err
	}
	if cr.Total < 0 {
		return 0, fmt.Errorf("%w: total is unknown", ErrMalformedContentRange)
	}
	return cr.Total, nil
}

// CountExpr is Count for an expression.
func (c *Client) CountExpr(ctx context.Context, table string, e query.Expr) (int, error) {
	q, err := c.compile(e)
	if err != nil {
		return 0, err
	}
	return c.Count(ctx, table, q)
}

func idQuery(id string) string {
	return query.NewFilter("id", query.Eq, id).ToQuery()
}

// GetByID returns the row whose id column equals id, or ErrNotFound.
func (c *Client) GetByID(ctx context.Context, table, id string) (Record, error) {
	records, err := c.SelectRaw(ctx, table, idQuery(id))
	if err != nil {
		return nil, err
	}
	if len(records) == 0 {
		return nil, fmt.Errorf("%w: %s id=%s", ErrNotFound, table, id)
	}
	return records[0], nil
}

// Create inserts record with a freshly generated UUIDv4 id and returns the
// id. The table's primary key must be a uuid or text column named id.
// record itself is not modified.
func (c *Client) Create(ctx context.Context, table string, record Record) (string, error) {
	id := uuid.NewString()
	if _, err := c.do(ctx, http.MethodPost, c.TableURL(table, ""), withID(record, id), nil); err != nil {
		return "", err
	}
	return id, nil
}

// Insert inserts records as given, in one request, and returns the inserted
// rows as the database stored them.
func (c *Client) Insert(ctx context.Context, table string, records ...Record) ([]Record, error) {
	if len(records) == 0 {
		return []Record{}, nil
	}
	prefer := &Prefer{Return: "representation"}
	resp, err := c.do(ctx, http.MethodPost, c.TableURL(table, ""), records, prefer)
	if err != nil {
		return nil, err
	}
	if err := checkApplied(resp.Headers, prefer, func(p *Prefer) bool {
		return p.Return == "" || p.WantsRepresentation()
	}); err != nil {
		return nil, err
	}
	return decodeRecords(resp.Body)
}

// Update sets the fields present in patch on the row with the given id.
func (c *Client) Update(ctx context.Context, table, id string, patch Record) error {
	_, err := c.do(ctx, http.MethodPatch, c.TableURL(table, idQuery(id)), patch, nil)
	return err
}

// Upsert inserts record under id, or merges it into the existing row with
// that id. If the server reports applied preferences without
// merge-duplicates, the row was inserted or rejected as a plain insert and
// ErrPreferenceIgnored is returned.
func (c *Client) Upsert(ctx context.Context, table, id string, record Record) error {
	prefer := &Prefer{Resolution: "merge-duplicates"}
	resp, err := c.do(ctx, http.MethodPost, c.TableURL(table, ""), withID(record, id), prefer)
	if err != nil {
		return err
	}
	return checkApplied(resp.Headers, prefer, (*Prefer).MergesDuplicates)
}

// Delete removes the row with the given id. Deleting a missing row is not an
// error.
func (c *Client) Delete(ctx context.Context, table, id string) error {
	_, err := c.do(ctx, http.MethodDelete, c.TableURL(table, idQuery(id)), nil, nil)
	return err
}
