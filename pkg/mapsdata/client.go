// Package mapsdata provides a client for the maps-data business search API
// served through RapidAPI.
package mapsdata

import (
	"context"
	"net/url"
	"strings"

	"github.com/rotisserie/eris"
	"github.com/tidwall/gjson"

	"github.com/sells-group/seller-scout/internal/resilience"
	"github.com/sells-group/seller-scout/pkg/rapidapi"
)

const (
	defaultHost = "maps-data.p.rapidapi.com"
	searchPath  = "/searchmaps.php"
)

// Client searches businesses on the maps-data API.
type Client interface {
	Search(ctx context.Context, query, country string) (*SearchResponse, error)
}

// SearchResponse is the normalized search response.
type SearchResponse struct {
	Status string  `json:"status"`
	Places []Place `json:"places"`
}

// OK reports whether the provider answered with a usable status.
func (r *SearchResponse) OK() bool {
	return r != nil && (r.Status == "" || strings.EqualFold(r.Status, "ok"))
}

// Place is one business returned by the API.
type Place struct {
	ID      string  `json:"id"`
	Name    string  `json:"name"`
	Phone   string  `json:"phone"`
	Address string  `json:"address"`
	Rating  float64 `json:"rating"`
	Reviews int     `json:"reviews"`
	Website string  `json:"website"`
	Link    string  `json:"link"`
}

// Option configures the client.
type Option func(*client)

// WithHost overrides the RapidAPI host.
func WithHost(host string) Option {
	return func(c *client) {
		if host != "" {
			c.host = host
		}
	}
}

type client struct {
	api  rapidapi.Client
	host string
}

// NewClient creates a maps-data client on top of a RapidAPI transport.
func NewClient(api rapidapi.Client, opts ...Option) Client {
	c := &client{api: api, host: defaultHost}
	for _, o := range opts {
		o(c)
	}
	return c
}

func (c *client) Search(ctx context.Context, query, country string) (*SearchResponse, error) {
	params := url.Values{"query": {query}}
	if country != "" {
		params.Set("country", strings.ToLower(country))
	}

	body, err := c.api.Get(ctx, c.host, searchPath, params)
	if err != nil {
		return nil, eris.Wrap(err, "mapsdata: search")
	}
	return parse(body)
}

func parse(body []byte) (*SearchResponse, error) {
	if !gjson.ValidBytes(body) {
		return nil, &resilience.ParseError{Provider: "mapsdata", Err: eris.New("invalid json")}
	}
	root := gjson.ParseBytes(body)

	items := root.Get("data")
	if !items.IsArray() {
		items = root.Get("results")
	}

	resp := &SearchResponse{Status: root.Get("status").String()}
	items.ForEach(func(_, item gjson.Result) bool {
		p := Place{
			ID:      first(item, "business_id", "place_id", "id"),
			Name:    first(item, "name"),
			Phone:   first(item, "phone_number", "phone"),
			Address: first(item, "full_address", "address"),
			Rating:  item.Get("rating").Float(),
			Reviews: int(firstResult(item, "review_count", "reviews").Int()),
			Website: first(item, "website"),
			Link:    first(item, "place_link", "link"),
		}
		if p.Name != "" {
			resp.Places = append(resp.Places, p)
		}
		return true
	})
	return resp, nil
}

func firstResult(item gjson.Result, paths ...string) gjson.Result {
	for _, p := range paths {
		if r := item.Get(p); r.Exists() && r.Type != gjson.Null {
			return r
		}
	}
	return gjson.Result{}
}

func first(item gjson.Result, paths ...string) string {
	return strings.TrimSpace(firstResult(item, paths...).String())
}
