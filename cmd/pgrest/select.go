package main

import (
	"fmt"

	"github.com/edgeflare/pgrest/pkg/query"
	"github.com/edgeflare/pgrest/pkg/rest"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
)

// queryFlags are the filter, order and pagination flags shared by select,
// count and query.
type queryFlags struct {
	filters []string
	or      bool
	orders  []string
	limit   int
	offset  int
}

func (q *queryFlags) register(f *pflag.FlagSet, paging bool) {
	f.StringArrayVarP(&q.filters, "filter", "f", nil, "filter as column=op.value, e.g. name=eq.Org X (repeatable)")
	f.BoolVar(&q.or, "or", false, "match rows satisfying any filter instead of all")
	if paging {
		f.StringArrayVarP(&q.orders, "order", "o", nil, "order as column[.asc|.desc][,...] (repeatable)")
		f.IntVar(&q.limit, "limit", 0, "return at most this many rows")
		f.IntVar(&q.offset, "offset", 0, "skip this many rows")
	}
}

func (q *queryFlags) build() (query.SelectQuery, error) {
	sq := query.NewSelect()

	if len(q.filters) > 0 {
		filters := make([]query.Filter, 0, len(q.filters))
		for _, s := range q.filters {
			f, err := query.ParseFilter(s)
			if err != nil {
				return query.SelectQuery{}, err
			}
			filters = append(filters, f)
		}
		op := query.And
		if q.or {
			op = query.Or
		}
		sq = sq.WithFilter(query.NewFilterGroup(op, filters...))
	}

	for _, s := range q.orders {
		sorts, err := query.ParseOrder(s)
		if err != nil {
			return query.SelectQuery{}, err
		}
		sq = sq.OrderBy(sorts...)
	}

	if q.limit < 0 || q.offset < 0 {
		return query.SelectQuery{}, fmt.Errorf("limit and offset must not be negative")
	}
	return sq.WithLimit(q.limit).WithOffset(q.offset), nil
}

func newSelectCmd(a *app) *cobra.Command {
	var (
		qf       queryFlags
		all      bool
		pageSize int
		field    string
	)

	cmd := &cobra.Command{
		Use:   "select TABLE",
		Short: "List rows of a table",
		Example: `  pgrest select organisations -f "category=eq.tech" -o created_at.desc --limit 10
  pgrest select organisations -f name=eq.a -f name=eq.b --or --field .name`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			q, err := qf.build()
			if err != nil {
				return err
			}
			if err := a.clients(); err != nil {
				return err
			}

			var rows []rest.Record
			if all {
				rows, err = a.rest.All(cmd.Context(), args[0], q, pageSize)
			} else {
				rows, err = a.rest.Select(cmd.Context(), args[0], q)
			}
			if err != nil {
				return fmt.Errorf("select %s: %w", args[0], err)
			}

			if field == "" {
				return printJSON(cmd.OutOrStdout(), rows)
			}
			values := make([]any, 0, len(rows))
			for _, r := range rows {
				v, err := rest.Lookup(r, field)
				if err != nil {
					return err
				}
				values = append(values, v)
			}
			return printJSON(cmd.OutOrStdout(), values)
		},
	}

	f := cmd.Flags()
	qf.register(f, true)
	f.BoolVar(&all, "all", false, "fetch every matching row, page by page")
	f.IntVar(&pageSize, "page-size", rest.DefaultPageSize, "rows per request with --all")
	f.StringVar(&field, "field", "", "print only this path of each row, e.g. .owner.name or .members[0]")
	return cmd
}

func newCountCmd(a *app) *cobra.Command {
	var qf queryFlags

	cmd := &cobra.Command{
		Use:   "count TABLE",
		Short: "Count rows of a table matching the filters",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			q, err := qf.build()
			if err != nil {
				return err
			}
			if err := a.clients(); err != nil {
				return err
			}
			n, err := a.rest.Count(cmd.Context(), args[0], q)
			if err != nil {
				return fmt.Errorf("count %s: %w", args[0], err)
			}
			fmt.Fprintln(cmd.OutOrStdout(), n)
			return nil
		},
	}

	qf.register(cmd.Flags(), false)
	return cmd
}

// newQueryCmd prints the query string select would send, without sending it.
func newQueryCmd(a *app) *cobra.Command {
	var (
		qf  queryFlags
		raw string
	)

	cmd := &cobra.Command{
		Use:   "query [TABLE]",
		Short: "Print the PostgREST query string for the given flags",
		Example: `  pgrest query -f "name=eq.Org X" -f "score=gt.5" --or -o created_at.desc
  pgrest query organisations --parse 'select=%2A&id=eq.1'`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			var (
				q   query.SelectQuery
				err error
			)
			if raw != "" {
				q, err = query.ParseQueryString(raw)
			} else {
				q, err = qf.build()
			}
			if err != nil {
				return err
			}

			out := q.ToQueryString()
			if len(args) == 1 && a.cfg.URL != "" {
				rc, err := rest.NewClient(a.cfg.URL, a.cfg.APIKey)
				if err != nil {
					return err
				}
				out = rc.TableURL(args[0], out)
			}
			fmt.Fprintln(cmd.OutOrStdout(), out)
			return nil
		},
	}

	f := cmd.Flags()
	qf.register(f, true)
	f.StringVar(&raw, "parse", "", "normalize an existing query string instead of building one from flags")
	return cmd
}
