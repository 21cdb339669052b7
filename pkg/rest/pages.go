package rest

import (
	"context"
	"iter"
	"net/http"

	"github.com/edgeflare/pgrest/pkg/query"
)

const DefaultPageSize = 100

// Pages iterates over every row of table matching q, fetching up to pageSize
// rows per request with limit/offset. q's own Offset is the starting point;
// its Limit is ignored. Each request advances the offset by the rows actually
// returned, so a server capping responses below pageSize (db-max-rows) is
// still read to the end. Iteration stops once the Content-Range total is
// reached, on the first empty page, on the first error (yielded once with a
// nil record) or when the caller breaks. Without a known total a short last
// page costs one more request.
// Without a sort the page boundaries are not stable under concurrent writes.
func (c *Client) Pages(ctx context.Context, table string, q query.SelectQuery, pageSize int) iter.Seq2[Record, error] {
	if pageSize <= 0 {
		pageSize = DefaultPageSize
	}

	return func(yield func(Record, error) bool) {
		offset := q.Offset
		for {
			if err := ctx.Err(); err != nil {
				yield(nil, err)
				return
			}

			page, total, err := c.selectPage(ctx, table, q.WithLimit(pageSize).WithOffset(offset))
			if err != nil {
				yield(nil, err)
				return
			}

			for _, r := range page {
				if !yield(r, nil) {
					return
				}
			}

			offset += len(page)
			if len(page) == 0 || (total >= 0 && offset >= total) {
				return
			}
		}
	}
}

// selectPage is Select that also reports the Content-Range total, or -1 when
// the server did not send one.
func (c *Client) selectPage(ctx context.Context, table string, q query.SelectQuery) ([]Record, int, error) {
	resp, err := c.do(ctx, http.MethodGet, c.TableURL(table, q.ToQueryString()), nil, nil)
	if err != nil {
		return nil, -1, err
	}
	records, err := decodeRecords(resp.Body)
	if err != nil {
		return nil, -1, err
	}
	total := -1
	if cr, err := ParseContentRange(resp.Headers); err == nil {
		total = cr.Total
	}
	return records, total, nil
}

// All collects every row Pages yields.
func (c *Client) All(ctx context.Context, table string, q query.SelectQuery, pageSize int) ([]Record, error) {
	var out []Record
	for r, err := range c.Pages(ctx, table, q, pageSize) {
		if err != nil {
			return out, err
		}
		out = append(out, r)
	}
	if out == nil {
		out = []Record{}
	}
	return out, nil
}
