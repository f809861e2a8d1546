package config

import (
	"errors"
	"fmt"
	"strings"
)

// ConfigurationError lists every missing or invalid setting found by Validate.
// It is fatal: a run must not start when one is returned.
type ConfigurationError struct {
	Problems []string
}

func (e *ConfigurationError) Error() string {
	return "config: invalid configuration: " + strings.Join(e.Problems, "; ")
}

// IsConfigurationError reports whether err carries a ConfigurationError.
func IsConfigurationError(err error) bool {
	var ce *ConfigurationError
	return errors.As(err, &ce)
}

// Strategies accepted by pipeline.strategy.
const (
	StrategyAll      = "all"
	StrategyWeb      = "web"
	StrategyLocation = "location"
)

// Validate checks the settings a command needs. mode is one of "search",
// "serve", or "store".
func (c *Config) Validate(mode string) error {
	var problems []string
	add := func(format string, args ...any) {
		problems = append(problems, fmt.Sprintf(format, args...))
	}

	switch mode {
	case "search", "serve":
		c.validateSearch(add)
		if mode == "serve" && (c.Server.Port <= 0 || c.Server.Port > 65535) {
			add("server.port must be between 1 and 65535, got %d", c.Server.Port)
		}
	case "store":
		c.validateStore(add)
	default:
		add("unknown validation mode %q", mode)
	}

	if len(problems) > 0 {
		return &ConfigurationError{Problems: problems}
	}
	return nil
}

func (c *Config) validateSearch(add func(string, ...any)) {
	if c.Secrets.RapidAPIKey == "" {
		add("secrets.rapidapi_key is required")
	}
	if len(c.Marketplace.Hosts) == 0 || len(c.Marketplace.Endpoints) == 0 {
		add("marketplace.hosts and marketplace.endpoints must not be empty")
	}
	if c.Marketplace.MaxPages <= 0 {
		add("marketplace.max_pages must be positive")
	}

	switch c.Pipeline.Strategy {
	case StrategyAll, StrategyWeb, StrategyLocation:
	default:
		add("pipeline.strategy must be one of all, web, location; got %q", c.Pipeline.Strategy)
	}
	if c.Pipeline.ContactWorkers <= 0 {
		add("pipeline.contact_workers must be positive")
	}

	if c.Pipeline.Strategy != StrategyLocation {
		switch c.WebSearch.Engine {
		case "customsearch":
			if c.Secrets.GoogleAPIKey == "" {
				add("secrets.google_api_key is required for websearch.engine=customsearch")
			}
			if c.Secrets.GoogleCSEID == "" {
				add("secrets.google_cse_id is required for websearch.engine=customsearch")
			}
		case "jina":
			if c.Secrets.JinaKey == "" {
				add("secrets.jina_key is required for websearch.engine=jina")
			}
		default:
			add("websearch.engine must be customsearch or jina; got %q", c.WebSearch.Engine)
		}
	}

	r := c.Ranking
	if r.PriceWeight < 0 || r.SalesWeight < 0 || r.ConditionWeight < 0 {
		add("ranking weights must be non-negative")
	}
	if r.PriceDecay <= 0 {
		add("ranking.price_decay must be positive")
	}
	if r.MaxSales <= 0 {
		add("ranking.max_sales must be positive")
	}
	if c.Filter.MaxPrice > 0 && c.Filter.MinPrice > c.Filter.MaxPrice {
		add("filter.min_price must not exceed filter.max_price")
	}
}

func (c *Config) validateStore(add func(string, ...any)) {
	switch c.Store.Driver {
	case "sqlite", "postgres":
		if c.Store.DatabaseURL == "" {
			add("store.database_url is required")
		}
	default:
		add("store.driver must be sqlite or postgres; got %q", c.Store.Driver)
	}
}
