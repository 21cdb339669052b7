package rest

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strings"

	"github.com/edgeflare/pgrest/pkg/httputil"
)

var (
	ErrInvalidBaseURL        = errors.New("rest: base URL must be absolute")
	ErrNotFound              = errors.New("rest: record not found")
	ErrMissingContentRange   = errors.New("rest: response has no Content-Range header")
	ErrMalformedContentRange = errors.New("rest: malformed Content-Range header")
	ErrPreferenceIgnored     = errors.New("rest: server did not apply preference")
)

const restPrefix = "/rest/v1"

// Client talks to the PostgREST endpoint of a Supabase-style backend.
// It is safe for concurrent use.
type Client struct {
	baseURL       *url.URL
	apiKey        string
	accessToken   string
	schema        string
	strictFilters bool
	http          *httputil.Client
}

// ClientOption configures a Client.
type ClientOption func(*Client)

// WithHTTPClient sets the transport. The default is httputil.NewClient().
func WithHTTPClient(hc *httputil.Client) ClientOption {
	return func(c *Client) {
		if hc != nil {
			c.http = hc
		}
	}
}

// WithAccessToken sends token instead of the API key as the bearer token, so
// row level security applies to that user.
func WithAccessToken(token string) ClientOption {
	return func(c *Client) { c.accessToken = token }
}

// WithSchema selects a non-default schema through the Accept-Profile and
// Content-Profile headers.
func WithSchema(schema string) ClientOption {
	return func(c *Client) { c.schema = schema }
}

// WithStrictFilters makes SelectExpr and Count with expressions reject trees
// that mix and/or below the root, instead of flattening them.
func WithStrictFilters(strict bool) ClientOption {
	return func(c *Client) { c.strictFilters = strict }
}

// NewClient returns a Client for the backend at baseURL, e.g.
// https://xyzcompany.supabase.co. apiKey is the anon or service role key.
func NewClient(baseURL, apiKey string, opts ...ClientOption) (*Client, error) {
	u, err := url.Parse(strings.TrimRight(baseURL, "/"))
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidBaseURL, err)
	}
	if !u.IsAbs() || u.Host == "" {
		return nil, fmt.Errorf("%w: %q", ErrInvalidBaseURL, baseURL)
	}

	c := &Client{
		baseURL: u,
		apiKey:  apiKey,
	}
	for _, opt := range opts {
		opt(c)
	}
	if c.http == nil {
		c.http = httputil.NewClient()
	}
	return c, nil
}

// WithAccessToken returns a copy of c acting as the user owning token.
// The transport is shared.
func (c *Client) WithAccessToken(token string) *Client {
	clone := *c
	clone.accessToken = token
	return &clone
}

// BaseURL returns the backend root URL.
func (c *Client) BaseURL() string {
	return c.baseURL.String()
}

// URL joins the base URL with an unescaped path and an already encoded query.
func (c *Client) URL(path, rawQuery string) string {
	u := *c.baseURL
	u.Path = c.baseURL.Path + path
	u.RawPath = ""
	u.RawQuery = rawQuery
	return u.String()
}

// TableURL returns the endpoint of table with rawQuery attached.
func (c *Client) TableURL(table, rawQuery string) string {
	return c.URL(restPrefix+"/"+table, rawQuery)
}

func (c *Client) headers(method string, prefer *Prefer) http.Header {
	h := http.Header{}
	token := c.apiKey
	if c.accessToken != "" {
		token = c.accessToken
	}
	h.Set("apikey", c.apiKey)
	h.Set("Authorization", "Bearer "+token)
	h.Set("Accept", "application/json")
	if c.schema != "" {
		if method == http.MethodGet || method == http.MethodHead {
			h.Set("Accept-Profile", c.schema)
		} else {
			h.Set("Content-Profile", c.schema)
		}
	}
	if p := prefer.String(); p != "" {
		h.Set("Prefer", p)
	}
	return h
}

func (c *Client) do(ctx context.Context, method, rawURL string, body any, prefer *Prefer) (*httputil.Response, error) {
	return c.http.Do(ctx, httputil.Request{
		Method:  method,
		URL:     rawURL,
		Headers: c.headers(method, prefer),
		Body:    body,
	})
}

// decodeRecords decodes a JSON array of objects.
func decodeRecords(body []byte) ([]Record, error) {
	var records []Record
	if err := json.Unmarshal(body, &records); err != nil {
		return nil, fmt.Errorf("rest: decode records: %w", err)
	}
	if records == nil {
		records = []Record{}
	}
	return records, nil
}
