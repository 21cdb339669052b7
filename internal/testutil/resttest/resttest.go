package resttest

import (
	"cmp"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"

	"github.com/stretchr/testify/require"
)

// Call is one request received by a Server.
type Call struct {
	Method   string
	Path     string
	RawQuery string
	Header   http.Header
	Body     []byte
}

// JSON decodes the request body into a generic value.
func (c Call) JSON(t testing.TB) any {
	t.Helper()
	var v any
	require.NoError(t, json.Unmarshal(c.Body, &v))
	return v
}

// Reply is a canned response.
type Reply struct {
	Status int
	Header http.Header
	Body   any // []byte and string are written as-is, anything else as JSON
}

// Server is an httptest server that records every request and answers with
// scripted replies. Handlers are matched by "METHOD /path"; unmatched
// requests get 404.
type Server struct {
	*httptest.Server

	mu       sync.Mutex
	calls    []Call
	handlers map[string]func(Call) Reply
}

// New starts a Server closed on test cleanup.
func New(t testing.TB) *Server {
	s := &Server{handlers: make(map[string]func(Call) Reply)}
	s.Server = httptest.NewServer(http.HandlerFunc(s.serve))
	t.Cleanup(s.Close)
	return s
}

// Handle registers fn for method and path, replacing any earlier handler.
func (s *Server) Handle(method, path string, fn func(Call) Reply) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.handlers[method+" "+path] = fn
}

// Reply registers fixed replies for method and path. They are used in order;
// the last one repeats.
func (s *Server) Reply(method, path string, replies ...Reply) {
	var mu sync.Mutex
	n := 0
	s.Handle(method, path, func(Call) Reply {
		mu.Lock()
		defer mu.Unlock()
		r := replies[min(n, len(replies)-1)]
		n++
		return r
	})
}

// Calls returns a copy of every request received so far.
func (s *Server) Calls() []Call {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]Call(nil), s.calls...)
}

// LastCall returns the most recent request, failing the test if none arrived.
func (s *Server) LastCall(t testing.TB) Call {
	t.Helper()
	calls := s.Calls()
	require.NotEmpty(t, calls, "no request reached the test server")
	return calls[len(calls)-1]
}

func (s *Server) serve(w http.ResponseWriter, r *http.Request) {
	body, _ := io.ReadAll(r.Body)
	call := Call{
		Method:   r.Method,
		Path:     r.URL.Path,
		RawQuery: r.URL.RawQuery,
		Header:   r.Header.Clone(),
		Body:     body,
	}

	s.mu.Lock()
	s.calls = append(s.calls, call)
	fn := s.handlers[r.Method+" "+r.URL.Path]
	s.mu.Unlock()

	if fn == nil {
		w.WriteHeader(http.StatusNotFound)
		_, _ = w.Write([]byte(`{"message":"no handler"}`))
		return
	}

	reply := fn(call)
	for k, vs := range reply.Header {
		for _, v := range vs {
			w.Header().Add(k, v)
		}
	}

	var data []byte
	switch b := reply.Body.(type) {
	case nil:
	case []byte:
		data = b
	case string:
		data = []byte(b)
	default:
		data, _ = json.Marshal(b)
		w.Header().Set("Content-Type", "application/json")
	}

	w.WriteHeader(cmp.Or(reply.Status, http.StatusOK))
	if r.Method != http.MethodHead {
		_, _ = w.Write(data)
	}
}

// JSONReply is a 200 reply with v as JSON body.
func JSONReply(v any) Reply {
	return Reply{Status: http.StatusOK, Body: v}
}
