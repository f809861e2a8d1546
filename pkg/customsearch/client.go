// Package customsearch provides a client for the Google Custom Search JSON API.
package customsearch

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/rotisserie/eris"

	"github.com/sells-group/seller-scout/internal/resilience"
)

const defaultBaseURL = "https://www.googleapis.com/customsearch/v1"

// Client runs web searches against a programmable search engine.
type Client interface {
	Search(ctx context.Context, query string, opts ...SearchOption) (*SearchResponse, error)
}

// SearchResponse is the subset of the API response the resolver reads.
type SearchResponse struct {
	Items []Item `json:"items"`
}

// Item is one search hit.
type Item struct {
	Title   string `json:"title"`
	Link    string `json:"link"`
	Snippet string `json:"snippet"`
}

// SearchOption configures a search request.
type SearchOption func(url.Values)

// WithNum sets the number of results (the API allows 1..10).
func WithNum(n int) SearchOption {
	return func(v url.Values) {
		if n > 10 {
			n = 10
		}
		if n > 0 {
			v.Set("num", strconv.Itoa(n))
		}
	}
}

// WithRegion biases and restricts results to a country and its language.
func WithRegion(country, language string) SearchOption {
	return func(v url.Values) {
		if country != "" {
			v.Set("gl", strings.ToLower(country))
			v.Set("cr", "country"+strings.ToUpper(country))
		}
		if language != "" {
			v.Set("lr", "lang_"+strings.ToLower(language))
		}
	}
}

// Option configures the client.
type Option func(*httpClient)

// WithBaseURL overrides the default API endpoint.
func WithBaseURL(u string) Option {
	return func(c *httpClient) {
		if u != "" {
			c.baseURL = u
		}
	}
}

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

type httpClient struct {
	apiKey   string
	engineID string
	baseURL  string
	http     *http.Client
	policy   resilience.Policy
}

// NewClient creates a Custom Search client for the engine cx.
func NewClient(apiKey, cx string, opts ...Option) Client {
	c := &httpClient{
		apiKey:   apiKey,
		engineID: cx,
		baseURL:  defaultBaseURL,
		http:     &http.Client{Timeout: 15 * time.Second},
		policy:   resilience.DefaultPolicy(),
	}
	for _, o := range opts {
		o(c)
	}
	return c
}

func (c *httpClient) Search(ctx context.Context, query string, opts ...SearchOption) (*SearchResponse, error) {
	params := url.Values{
		"key": {c.apiKey},
		"cx":  {c.engineID},
		"q":   {query},
	}
	for _, o := range opts {
		o(params)
	}
	reqURL := c.baseURL + "?" + params.Encode()

	p := c.policy
	if p.Notify == nil {
		p.Notify = resilience.LogRetries("customsearch", "search")
	}
	return resilience.RetryVal(ctx, p, func(ctx context.Context) (*SearchResponse, error) {
		return c.get(ctx, reqURL)
	})
}

func (c *httpClient) get(ctx context.Context, reqURL string) (*SearchResponse, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, reqURL, nil)
	if err != nil {
		return nil, eris.Wrap(err, "customsearch: create request")
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, eris.Wrap(err, "customsearch: send request")
	}
	defer resp.Body.Close() //nolint:errcheck

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, eris.Wrap(err, "customsearch: read response")
	}
	if resp.StatusCode != http.StatusOK {
		return nil, resilience.StatusError("customsearch", resp.StatusCode, body)
	}

	var out SearchResponse
	if err := json.Unmarshal(body, &out); err != nil {
		return nil, &resilience.ParseError{Provider: "customsearch", Err: err}
	}
	return &out, nil
}
