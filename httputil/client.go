// Package httputil provides the HTTP client abstraction used to reach the
// solver, a scripted mock for tests, and JSON response helpers.
package httputil

import (
	"bytes"
	"fmt"
	"io"
	"net/http"
	"sync"
	"time"
)

// HTTPClient abstracts HTTP operations for testability.
// Use StandardClient in production and MockClient in tests.
type HTTPClient interface {
	// Do sends an HTTP request and returns an HTTP response.
	Do(req *http.Request) (*http.Response, error)
}

// StandardClient wraps *http.Client to implement HTTPClient.
type StandardClient struct {
	*http.Client
}

// NewStandardClient creates a client with the given overall request timeout.
// A zero timeout means no limit beyond the request context.
func NewStandardClient(timeout time.Duration) *StandardClient {
	return &StandardClient{Client: &http.Client{Timeout: timeout}}
}

// Do sends an HTTP request.
func (c *StandardClient) Do(req *http.Request) (*http.Response, error) {
	return c.Client.Do(req)
}

// MockResponse is a canned reply for one route.
type MockResponse struct {
	StatusCode int
	Body       string
	Error      error
	Delay      time.Duration // Simulated latency, interrupted by the request context
}

// MockClient answers requests from per-route queues keyed by method and
// path. The last queued response for a route repeats once the queue drains.
// Unrouted requests get a 404.
type MockClient struct {
	mu       sync.Mutex
	routes   map[string][]MockResponse
	requests []*http.Request
	bodies   [][]byte
}

// NewMockClient creates an empty mock.
func NewMockClient() *MockClient {
	return &MockClient{routes: make(map[string][]MockResponse)}
}

// Respond queues a reply for method and path.
func (m *MockClient) Respond(method, path string, status int, body string) *MockClient {
	return m.Queue(method, path, MockResponse{StatusCode: status, Body: body})
}

// Fail queues a transport error for method and path.
func (m *MockClient) Fail(method, path string, err error) *MockClient {
	return m.Queue(method, path, MockResponse{Error: err})
}

// Queue appends an arbitrary response for method and path.
func (m *MockClient) Queue(method, path string, r MockResponse) *MockClient {
	m.mu.Lock()
	defer m.mu.Unlock()
	key := routeKey(method, path)
	m.routes[key] = append(m.routes[key], r)
	return m
}

// Do records the request and body and returns the next response for its route.
func (m *MockClient) Do(req *http.Request) (*http.Response, error) {
	var body []byte
	if req.Body != nil {
		var err error
		if body, err = io.ReadAll(req.Body); err != nil {
			return nil, fmt.Errorf("reading request body: %w", err)
		}
		req.Body.Close()
	}

	m.mu.Lock()
	m.requests = append(m.requests, req)
	m.bodies = append(m.bodies, body)
	key := routeKey(req.Method, req.URL.Path)
	queue := m.routes[key]
	var r MockResponse
	switch {
	case len(queue) == 0:
		r = MockResponse{StatusCode: http.StatusNotFound, Body: `{"detail":"not found"}`}
	case len(queue) == 1:
		r = queue[0]
	default:
		r = queue[0]
		m.routes[key] = queue[1:]
	}
	m.mu.Unlock()

	if r.Delay > 0 {
		select {
		case <-time.After(r.Delay):
		case <-req.Context().Done():
			return nil, req.Context().Err()
		}
	}
	if r.Error != nil {
		return nil, r.Error
	}
	return &http.Response{
		StatusCode: r.StatusCode,
		Body:       io.NopCloser(bytes.NewBufferString(r.Body)),
		Header:     http.Header{"Content-Type": []string{"application/json"}},
		Request:    req,
	}, nil
}

// Calls returns how many requests hit method and path.
func (m *MockClient) Calls(method, path string) int {
	m.mu.Lock()
	defer m.mu.Unlock()
	n := 0
	for _, r := range m.requests {
		if r.Method == method && r.URL.Path == path {
			n++
		}
	}
	return n
}

// RequestCount returns the number of recorded requests.
func (m *MockClient) RequestCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.requests)
}

// Request returns the nth recorded request and its body.
func (m *MockClient) Request(n int) (*http.Request, []byte) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if n < 0 || n >= len(m.requests) {
		return nil, nil
	}
	return m.requests[n], m.bodies[n]
}

func routeKey(method, path string) string {
	return method + " " + path
}
