// Package rapidapi provides a GET client for APIs proxied through RapidAPI.
package rapidapi

import (
	"context"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/rotisserie/eris"

	"github.com/sells-group/seller-scout/internal/resilience"
)

// Client issues authenticated GET requests against RapidAPI hosts.
type Client interface {
	// Get calls path on host with the given query parameters and returns the
	// raw response body of a 2xx response.
	Get(ctx context.Context, host, path string, params url.Values) ([]byte, error)
}

// Option configures the client.
type Option func(*httpClient)

// WithHTTPClient overrides the default http.Client.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *httpClient) {
		c.http = hc
	}
}

// WithTimeout sets the per-request timeout.
func WithTimeout(d time.Duration) Option {
	return func(c *httpClient) {
		if d > 0 {
			c.http.Timeout = d
		}
	}
}

// WithPolicy overrides the retry policy.
func WithPolicy(p resilience.Policy) Option {
	return func(c *httpClient) {
		c.policy = p
	}
}

// WithResolver maps a RapidAPI host to the base URL requests are sent to.
// The default is "https://" + host.
func WithResolver(fn func(host string) string) Option {
	return func(c *httpClient) {
		c.resolve = fn
	}
}

type httpClient struct {
	apiKey  string
	http    *http.Client
	policy  resilience.Policy
	resolve func(host string) string
}

// NewClient creates a RapidAPI client.
func NewClient(apiKey string, opts ...Option) Client {
	c := &httpClient{
		apiKey:  apiKey,
		http:    &http.Client{Timeout: 15 * time.Second},
		policy:  resilience.DefaultPolicy(),
		resolve: func(host string) string { return "https://" + host },
	}
	for _, o := range opts {
		o(c)
	}
	return c
}

func (c *httpClient) Get(ctx context.Context, host, path string, params url.Values) ([]byte, error) {
	endpoint := strings.TrimRight(c.resolve(host), "/") + "/" + strings.TrimLeft(path, "/")
	if len(params) > 0 {
		endpoint += "?" + params.Encode()
	}

	p := c.policy
	if p.Notify == nil {
		p.Notify = resilience.LogRetries("rapidapi:"+host, path)
	}

	return resilience.RetryVal(ctx, p, func(ctx context.Context) ([]byte, error) {
		return c.do(ctx, host, endpoint)
	})
}

func (c *httpClient) do(ctx context.Context, host, endpoint string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, eris.Wrap(err, "rapidapi: create request")
	}
	req.Header.Set("X-RapidAPI-Key", c.apiKey)
	req.Header.Set("X-RapidAPI-Host", host)
	req.Header.Set("Accept", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, eris.Wrap(err, "rapidapi: send request")
	}
	defer resp.Body.Close() //nolint:errcheck

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, eris.Wrap(err, "rapidapi: read response")
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, resilience.StatusError("rapidapi:"+host, resp.StatusCode, body)
	}
	return body, nil
}
