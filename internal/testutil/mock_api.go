// Package testutil provides testing utilities for the JSON aggregator.
package testutil

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"time"
)

// MockResponse defines the behavior for a mock endpoint response.
type MockResponse struct {
	StatusCode int
	Body       string
	Headers    map[string]string
	Delay      time.Duration
}

// MockAPI is a configurable mock JSON API server for testing.
// Paths without a handler answer 404.
type MockAPI struct {
	server   *httptest.Server
	mu       sync.RWMutex
	handlers map[string]http.HandlerFunc
	counts   map[string]int
	queries  map[string]string
}

// NewMockAPI creates and starts a new mock API server.
func NewMockAPI() *MockAPI {
	mock := &MockAPI{
		handlers: make(map[string]http.HandlerFunc),
		counts:   make(map[string]int),
		queries:  make(map[string]string),
	}

	mock.server = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		path := strings.TrimPrefix(r.URL.Path, "/")

		mock.mu.Lock()
		mock.counts[path]++
		mock.queries[path] = r.URL.RawQuery
		handler, exists := mock.handlers[path]
		mock.mu.Unlock()

		if exists {
			handler(w, r)
			return
		}

		w.Header().Set("Content-Type", "application/json; charset=utf-8")
		w.WriteHeader(http.StatusNotFound)
		w.Write([]byte(`{}`))
	}))

	return mock
}

// URL returns the mock server URL.
func (m *MockAPI) URL() string {
	return m.server.URL
}

// Close shuts down the mock server.
func (m *MockAPI) Close() {
	m.server.Close()
}

// SetHandler sets a custom handler for an endpoint path (without leading slash).
func (m *MockAPI) SetHandler(path string, handler http.HandlerFunc) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.handlers[strings.TrimPrefix(path, "/")] = handler
}

// SetResponse configures the same response for every request to path.
func (m *MockAPI) SetResponse(path string, resp MockResponse) {
	m.SetHandler(path, writeResponse(resp))
}

// SetSequence answers successive requests to path with the given responses;
// the last one repeats once the sequence is used up.
func (m *MockAPI) SetSequence(path string, responses ...MockResponse) {
	var (
		mu   sync.Mutex
		next int
	)
	m.SetHandler(path, func(w http.ResponseWriter, r *http.Request) {
		mu.Lock()
		resp := responses[next]
		if next < len(responses)-1 {
			next++
		}
		mu.Unlock()

		writeResponse(resp)(w, r)
	})
}

// RequestCount returns the number of requests made to path.
func (m *MockAPI) RequestCount(path string) int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.counts[strings.TrimPrefix(path, "/")]
}

// LastQuery returns the raw query string of the most recent request to path.
func (m *MockAPI) LastQuery(path string) string {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.queries[strings.TrimPrefix(path, "/")]
}

func writeResponse(resp MockResponse) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if resp.Delay > 0 {
			select {
			case <-time.After(resp.Delay):
			case <-r.Context().Done():
				return
			}
		}

		for key, value := range resp.Headers {
			w.Header().Set(key, value)
		}

		w.WriteHeader(resp.StatusCode)
		if resp.Body != "" {
			w.Write([]byte(resp.Body))
		}
	}
}

// NewJSONResponse creates a 200 OK response with a JSON body.
func NewJSONResponse(body string) MockResponse {
	return MockResponse{
		StatusCode: http.StatusOK,
		Body:       body,
		Headers: map[string]string{
			"Content-Type": "application/json; charset=utf-8",
		},
	}
}

// NewServerErrorResponse creates a 500 Internal Server Error response.
func NewServerErrorResponse() MockResponse {
	return MockResponse{
		StatusCode: http.StatusInternalServerError,
		Body:       `{"error": "Internal server error"}`,
		Headers: map[string]string{
			"Content-Type": "application/json; charset=utf-8",
		},
	}
}

// NewMalformedResponse creates a 200 OK response whose body is not JSON.
func NewMalformedResponse() MockResponse {
	return MockResponse{
		StatusCode: http.StatusOK,
		Body:       `<html><body>maintenance</body></html>`,
		Headers: map[string]string{
			"Content-Type": "text/html",
		},
	}
}

// NewRateLimitedResponse creates a 200 OK JSON response carrying
// rate limit budget headers.
func NewRateLimitedResponse(body, remaining, reset string) MockResponse {
	return MockResponse{
		StatusCode: http.StatusOK,
		Body:       body,
		Headers: map[string]string{
			"Content-Type":          "application/json; charset=utf-8",
			"X-RateLimit-Remaining": remaining,
			"X-RateLimit-Reset":     reset,
		},
	}
}

// UsersFixture is a small, valid users payload.
const UsersFixture = `[
  {"id": 1, "name": "Leanne Graham", "username": "Bret", "email": "Sincere@april.biz"},
  {"id": 2, "name": "Ervin Howell", "username": "Antonette", "email": "Shanna@melissa.tv"},
  {"id": 3, "name": "Clementine Bauch", "username": "Samantha", "email": "Nathan@yesenia.net"}
]`

// PostsFixture is a small, valid posts payload: user 1 has two posts,
// user 2 has one, one body exceeds 100 characters.
const PostsFixture = `[
  {"userId": 1, "id": 1, "title": "first", "body": "short body"},
  {"userId": 1, "id": 2, "title": "second", "body": "` + longBody + `"},
  {"userId": 2, "id": 3, "title": "third", "body": "another short body"}
]`

// CommentsFixture is a small comments payload (passed through untyped).
const CommentsFixture = `[
  {"postId": 1, "id": 1, "name": "c1", "email": "Eliseo@gardner.biz", "body": "nice"},
  {"postId": 1, "id": 2, "name": "c2", "email": "Jayne_Kuhic@sydney.com", "body": "great"}
]`

const longBody = "quia et suscipit suscipit recusandae consequuntur expedita et cum reprehenderit molestiae ut ut quas totam nostrum rerum est autem sunt rem eveniet architecto"
