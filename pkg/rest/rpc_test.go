package rest

import (
	"context"
	"net/http"
	"testing"

	"github.com/edgeflare/pgrest/internal/testutil/resttest"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRPC(t *testing.T) {
	c, srv := newTestClient(t)
	srv.Reply(http.MethodPost, "/rest/v1/rpc/top_orgs", resttest.JSONReply([]map[string]any{
		{"name": "Test Organisation", "score": 87.5},
		{"name": "Org Z", "score": 61},
	}))

	rows, err := c.RPC(context.Background(), "top_orgs", map[string]any{"min_score": 60})
	require.NoError(t, err)

	require.Len(t, rows, 2)
	assert.Equal(t, "Org Z", rows[1]["name"])
	assert.Equal(t, map[string]any{"min_score": float64(60)}, srv.LastCall(t).JSON(t))
}

func TestRPCNilArgsSendsEmptyObject(t *testing.T) {
	c, srv := newTestClient(t)
	srv.Reply(http.MethodPost, "/rest/v1/rpc/ping", resttest.JSONReply([]any{}))

	rows, err := c.RPC(context.Background(), "ping", nil)
	require.NoError(t, err)
	assert.Empty(t, rows)
	assert.Equal(t, "{}", string(srv.LastCall(t).Body))
}

func TestRPCRejectsNonArray(t *testing.T) {
	tests := []struct {
		name string
		body any
	}{
		{name: "object", body: map[string]any{"ok": true}},
		{name: "scalar", body: "42"},
		{name: "empty", body: ""},
		{name: "array of scalars", body: []int{1, 2}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c, srv := newTestClient(t)
			srv.Reply(http.MethodPost, "/rest/v1/rpc/f", resttest.Reply{Status: http.StatusOK, Body: tt.body})

			_, err := c.RPC(context.Background(), "f", nil)
			assert.Error(t, err)
		})
	}
}

func TestRequest(t *testing.T) {
	t.Run("decodes json", func(t *testing.T) {
		c, srv := newTestClient(t)
		srv.Reply(http.MethodGet, "/rest/v1/organisations", resttest.JSONReply([]any{map[string]any{"id": "1"}}))

		out, err := c.Request(context.Background(), "get", "/rest/v1/organisations?select=%2A&limit=1", nil, false)
		require.NoError(t, err)
		assert.Equal(t, []any{map[string]any{"id": "1"}}, out)

		call := srv.LastCall(t)
		assert.Equal(t, http.MethodGet, call.Method)
		assert.Equal(t, "select=%2A&limit=1", call.RawQuery)
		assert.Empty(t, call.Header.Get("Prefer"))
	})

	t.Run("empty body is nil", func(t *testing.T) {
		c, srv := newTestClient(t)
		srv.Reply(http.MethodPut, "/rest/v1/organisations", resttest.Reply{Status: http.StatusNoContent})

		out, err := c.Request(context.Background(), http.MethodPut, "/rest/v1/organisations", map[string]any{"id": "1"}, false)
		require.NoError(t, err)
		assert.Nil(t, out)
	})

	t.Run("upsert sets prefer", func(t *testing.T) {
		c, srv := newTestClient(t)
		srv.Reply(http.MethodPost, "/rest/v1/organisations", resttest.Reply{Status: http.StatusCreated})

		_, err := c.Request(context.Background(), http.MethodPost, "/rest/v1/organisations", map[string]any{"id": "1"}, true)
		require.NoError(t, err)
		assert.Equal(t, "resolution=merge-duplicates", srv.LastCall(t).Header.Get("Prefer"))
	})

	t.Run("invalid json", func(t *testing.T) {
		c, srv := newTestClient(t)
		srv.Reply(http.MethodGet, "/x", resttest.Reply{Status: http.StatusOK, Body: "<html>"})

		_, err := c.Request(context.Background(), http.MethodGet, "/x", nil, false)
		assert.ErrorContains(t, err, "decode response")
	})
}
