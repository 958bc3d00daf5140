package client

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"
)

// Response is the outcome of a single completed HTTP GET.
type Response struct {
	StatusCode int
	Header     http.Header
	Body       []byte
}

// Transport performs one HTTP GET. Implementations must honor ctx and the
// per-call timeout, and return an error only when no response was received.
type Transport interface {
	Get(ctx context.Context, url string, timeout time.Duration) (*Response, error)
}

// HTTPTransport is the net/http implementation of Transport.
type HTTPTransport struct {
	httpClient *http.Client
	userAgent  string
}

// NewHTTPTransport creates a transport backed by a dedicated http.Client.
// Timeouts are applied per call, so the client itself has none.
func NewHTTPTransport(userAgent string) *HTTPTransport {
	return &HTTPTransport{
		httpClient: &http.Client{},
		userAgent:  userAgent,
	}
}

// SetHTTPClient sets a custom HTTP client (for testing).
func (t *HTTPTransport) SetHTTPClient(client *http.Client) {
	t.httpClient = client
}

// Get implements Transport.
func (t *HTTPTransport) Get(ctx context.Context, rawURL string, timeout time.Duration) (*Response, error) {
	if timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, timeout)
		defer cancel()
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	if t.userAgent != "" {
		req.Header.Set("User-Agent", t.userAgent)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := t.httpClient.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read body: %w", err)
	}

	return &Response{
		StatusCode: resp.StatusCode,
		Header:     resp.Header,
		Body:       body,
	}, nil
}

// BuildURL joins base address, endpoint path and URL-encoded query params.
// The query string is omitted when there are no params.
func BuildURL(baseURL, endpoint string, params map[string]string) string {
	u := strings.TrimRight(baseURL, "/") + "/" + strings.TrimLeft(endpoint, "/")
	if len(params) == 0 {
		return u
	}

	query := url.Values{}
	for k, v := range params {
		query.Set(k, v)
	}
	return u + "?" + query.Encode()
}
