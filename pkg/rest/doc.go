// Package rest is a client for the PostgREST endpoint (/rest/v1) of a
// Supabase-style backend.
//
// Queries are built with package query and sent as-is; rows come back as
// Record values (map[string]any) that Decode can copy into structs.
//
// Every request carries the API key in the apikey header and a bearer token
// (the access token if one is set, otherwise the API key). Operations map to
// PostgREST as follows:
//
//	Method              | Request
//	--------------------|---------------------------------------------------------
//	Select / SelectExpr | GET    /rest/v1/{table}?select=%2A&...
//	Count               | HEAD   /rest/v1/{table}?... with Prefer: count=exact
//	GetByID             | GET    /rest/v1/{table}?id=eq.{id}
//	Create              | POST   /rest/v1/{table} with a generated uuid id
//	Insert              | POST   /rest/v1/{table} with Prefer: return=representation
//	Update              | PATCH  /rest/v1/{table}?id=eq.{id}
//	Upsert              | POST   /rest/v1/{table} with Prefer: resolution=merge-duplicates
//	Delete              | DELETE /rest/v1/{table}?id=eq.{id}
//	RPC                 | POST   /rest/v1/rpc/{fn}
//	Pages / All         | repeated GET with limit and offset
//
// Non-2xx responses are returned as *httputil.APIError. Retries on 429, rate
// limiting and logging are configured on the httputil.Client passed with
// WithHTTPClient.
//
// Example usage:
//
//	client, err := rest.NewClient("https://xyz.supabase.co", apiKey)
//	if err != nil {
//		log.Fatal(err)
//	}
//	rows, err := client.SelectExpr(ctx, "organisations",
//		query.Col("name").Eq("Test Organisation").And(query.Col("score").Gt(60)),
//		query.NewSort("created_at", query.Asc),
//	)
package rest
