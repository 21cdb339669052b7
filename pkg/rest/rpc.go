package rest

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
)

// RPC calls the database function fn with args as its JSON object argument.
// The function must return a set; a scalar or object response is an error.
func (c *Client) RPC(ctx context.Context, fn string, args any) ([]Record, error) {
	if args == nil {
		args = Record{}
	}
	result, err := c.Request(ctx, http.MethodPost, restPrefix+"/rpc/"+fn, args, false)
	if err != nil {
		return nil, err
	}

	items, ok := result.([]any)
	if !ok {
		return nil, fmt.Errorf("rest: rpc %s: expected a JSON array, got %T", fn, result)
	}
	records := make([]Record, 0, len(items))
	for i, item := range items {
		r, ok := item.(map[string]any)
		if !ok {
			return nil, fmt.Errorf("rest: rpc %s: element %d is %T, not an object", fn, i, item)
		}
		records = append(records, r)
	}
	return records, nil
}

// Request sends an arbitrary request to path, relative to the base URL, and
// decodes the JSON response. path is unescaped and may carry an encoded query
// string after '?'. An empty response body yields nil. upsert adds
// Prefer: resolution=merge-duplicates.
func (c *Client) Request(ctx context.Context, method, path string, payload any, upsert bool) (any, error) {
	var prefer *Prefer
	if upsert {
		prefer = &Prefer{Resolution: "merge-duplicates"}
	}

	p, rawQuery, _ := strings.Cut(path, "?")
	resp, err := c.do(ctx, strings.ToUpper(method), c.URL(p, rawQuery), payload, prefer)
	if err != nil {
		return nil, err
	}

	body := bytes.TrimSpace(resp.Body)
	if len(body) == 0 {
		return nil, nil
	}
	var out any
	if err := json.Unmarshal(body, &out); err != nil {
		return nil, fmt.Errorf("rest: decode response: %w", err)
	}
	return out, nil
}
