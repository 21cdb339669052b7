package httputil

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/edgeflare/pgrest/pkg/metrics"
	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"
	"golang.org/x/time/rate"
)

func newTestLogger() (*zap.Logger, *observer.ObservedLogs) {
	core, logs := observer.New(zap.DebugLevel)
	return zap.New(core), logs
}

func TestClientDo(t *testing.T) {
	var got *http.Request
	var gotBody []byte
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		got = r
		gotBody, _ = io.ReadAll(r.Body)
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`[{"id":1}]`))
	}))
	defer server.Close()

	client := NewClient(
		WithHeader("apikey", "secret"),
		WithHeader("Authorization", "Bearer default"),
	)

	resp, err := client.Do(context.Background(), Request{
		Method:  http.MethodPost,
		URL:     server.URL + "/rest/v1/things",
		Headers: http.Header{"Authorization": {"Bearer user"}},
		Body:    map[string]any{"name": "Org X"},
	})
	require.NoError(t, err)

	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.JSONEq(t, `[{"id":1}]`, string(resp.Body))
	assert.Equal(t, "secret", got.Header.Get("apikey"))
	assert.Equal(t, "Bearer user", got.Header.Get("Authorization"))
	assert.Equal(t, "application/json", got.Header.Get("Content-Type"))
	assert.JSONEq(t, `{"name":"Org X"}`, string(gotBody))

	_, err = uuid.Parse(got.Header.Get(RequestIDHeader))
	assert.NoError(t, err)
}

func TestClientDoKeepsRequestID(t *testing.T) {
	var ids []string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ids = append(ids, r.Header.Get(RequestIDHeader))
	}))
	defer server.Close()

	client := NewClient()
	ctx := WithRequestID(context.Background(), "req-1")
	_, err := client.Do(ctx, Request{Method: http.MethodGet, URL: server.URL})
	require.NoError(t, err)
	_, err = client.Do(context.Background(), Request{Method: http.MethodGet, URL: server.URL})
	require.NoError(t, err)

	require.Len(t, ids, 2)
	assert.Equal(t, "req-1", ids[0])
	assert.NotEqual(t, "req-1", ids[1])
}

func TestClientDoAPIError(t *testing.T) {
	tests := []struct {
		name    string
		status  int
		body    string
		message string
	}{
		{
			name:    "postgrest error",
			status:  http.StatusBadRequest,
			body:    `{"code":"PGRST100","message":"failed to parse filter","details":null}`,
			message: "failed to parse filter",
		},
		{
			name:    "auth error",
			status:  http.StatusUnauthorized,
			body:    `{"msg":"Invalid login credentials"}`,
			message: "Invalid login credentials",
		},
		{
			name:    "plain text",
			status:  http.StatusServiceUnavailable,
			body:    "upstream down\n",
			message: "upstream down",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(tt.status)
				_, _ = w.Write([]byte(tt.body))
			}))
			defer server.Close()

			resp, err := NewClient().Do(context.Background(), Request{Method: http.MethodGet, URL: server.URL + "/x"})

			var apiErr *APIError
			require.ErrorAs(t, err, &apiErr)
			assert.Equal(t, tt.status, apiErr.StatusCode)
			assert.Equal(t, http.MethodGet, apiErr.Method)
			assert.Equal(t, server.URL+"/x", apiErr.URL)
			assert.Equal(t, tt.body, string(apiErr.Body))
			assert.Equal(t, tt.message, apiErr.Message())
			assert.Contains(t, apiErr.Error(), tt.message)
			assert.True(t, IsStatus(err, tt.status))
			require.NotNil(t, resp)
			assert.Equal(t, tt.status, resp.StatusCode)
		})
	}
}

func TestClientRetriesWithSameRequestID(t *testing.T) {
	var mu sync.Mutex
	var ids []string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		mu.Lock()
		ids = append(ids, r.Header.Get(RequestIDHeader))
		n := len(ids)
		mu.Unlock()
		if n < 3 {
			w.WriteHeader(http.StatusTooManyRequests)
			return
		}
		_, _ = w.Write([]byte(`[]`))
	}))
	defer server.Close()

	timer := newFakeTimer()
	client := NewClient(WithRetry(RetryConfig{MaxAttempts: 3, BaseDelay: time.Millisecond, Timer: timer}))

	_, err := client.Do(context.Background(), Request{Method: http.MethodGet, URL: server.URL})
	require.NoError(t, err)

	require.Len(t, ids, 3)
	assert.Equal(t, ids[0], ids[1])
	assert.Equal(t, ids[0], ids[2])
	assert.Equal(t, []time.Duration{time.Millisecond, 2 * time.Millisecond}, timer.Waits())
}

func TestClientLogsEachAttempt(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTooManyRequests)
	}))
	defer server.Close()

	logger, logs := newTestLogger()
	client := NewClient(
		WithLogger(logger),
		WithRetry(RetryConfig{MaxAttempts: 2, BaseDelay: time.Millisecond, Timer: newFakeTimer()}),
	)

	_, err := client.Do(context.Background(), Request{Method: http.MethodGet, URL: server.URL})
	assert.True(t, IsStatus(err, http.StatusTooManyRequests))

	responses := logs.FilterMessage("response").All()
	require.Len(t, responses, 2)
	for i, entry := range responses {
		fields := entry.ContextMap()
		assert.Equal(t, zap.WarnLevel, entry.Level)
		assert.Equal(t, "GET", fields["method"])
		assert.Equal(t, int64(429), fields["status"])
		assert.Equal(t, int64(i+1), fields["attempt"])
		assert.NotEmpty(t, fields["req_id"])
	}
	assert.Equal(t, 1, logs.FilterMessage("retrying").Len())
}

func TestClientRecordsMetrics(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNoContent)
	}))
	defer server.Close()

	counter := metrics.HTTPRequests.WithLabelValues(http.MethodDelete, "204")
	before := testutil.ToFloat64(counter)

	_, err := NewClient().Do(context.Background(), Request{Method: http.MethodDelete, URL: server.URL})
	require.NoError(t, err)

	assert.Equal(t, before+1, testutil.ToFloat64(counter))
}

func TestClientRateLimitHonorsContext(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	defer server.Close()

	client := NewClient(WithRateLimit(rate.Every(time.Hour), 1))

	_, err := client.Do(context.Background(), Request{Method: http.MethodGet, URL: server.URL})
	require.NoError(t, err)

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Millisecond)
	defer cancel()
	_, err = client.Do(ctx, Request{Method: http.MethodGet, URL: server.URL})
	assert.Error(t, err)
}

func TestClientTimeout(t *testing.T) {
	release := make(chan struct{})
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		<-release
	}))
	defer server.Close()
	defer close(release)

	client := NewClient(WithTimeout(20 * time.Millisecond))
	_, err := client.Do(context.Background(), Request{Method: http.MethodGet, URL: server.URL})
	assert.Error(t, err)
}

func TestEncodeBody(t *testing.T) {
	b, err := encodeBody(nil)
	require.NoError(t, err)
	assert.Nil(t, b)

	b, err = encodeBody("raw")
	require.NoError(t, err)
	assert.Equal(t, "raw", string(b))

	b, err = encodeBody(map[string]int{"a": 1})
	require.NoError(t, err)
	assert.JSONEq(t, `{"a":1}`, string(b))

	_, err = encodeBody(make(chan int))
	assert.Error(t, err)
}
