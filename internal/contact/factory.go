package contact

import (
	"context"
	"strings"
	"sync"
	"time"

	"github.com/sells-group/seller-scout/internal/cache"
	"github.com/sells-group/seller-scout/internal/config"
	"github.com/sells-group/seller-scout/internal/model"
	"github.com/sells-group/seller-scout/internal/resilience"
	"github.com/sells-group/seller-scout/pkg/customsearch"
	"github.com/sells-group/seller-scout/pkg/google"
	"github.com/sells-group/seller-scout/pkg/jina"
	"github.com/sells-group/seller-scout/pkg/mapsdata"
	"github.com/sells-group/seller-scout/pkg/rapidapi"
)

// SellerResolver resolves one seller name to a contact record.
type SellerResolver interface {
	Resolve(ctx context.Context, seller string) model.ContactRecord
}

// FactoryOptions configures the facades a Factory builds.
type FactoryOptions struct {
	Sites      []string
	NumResults int
	MaxPlaces  int
	PlacesTTL  time.Duration
	Strategy   string
}

// Factory builds one Facade per region and keeps it, so the web memo lives as
// long as the process.
type Factory struct {
	engine   SearchEngine
	primary  mapsdata.Client
	fallback google.Client
	breaker  *resilience.Breaker
	cache    cache.Cache
	opts     FactoryOptions

	mu       sync.Mutex
	byRegion map[string]*Facade
}

// NewFactory creates a Factory. Any provider may be nil.
func NewFactory(engine SearchEngine, primary mapsdata.Client, fallback google.Client, breaker *resilience.Breaker, c cache.Cache, opts FactoryOptions) *Factory {
	return &Factory{
		engine:   engine,
		primary:  primary,
		fallback: fallback,
		breaker:  breaker,
		cache:    c,
		opts:     opts,
		byRegion: make(map[string]*Facade),
	}
}

// NewFactoryFromConfig wires the provider clients named by cfg.
func NewFactoryFromConfig(cfg *config.Config, api rapidapi.Client, c cache.Cache) *Factory {
	var engine SearchEngine
	switch cfg.WebSearch.Engine {
	case "jina":
		if cfg.Secrets.JinaKey != "" {
			var opts []jina.Option
			if cfg.WebSearch.BaseURL != "" {
				opts = append(opts, jina.WithSearchBaseURL(cfg.WebSearch.BaseURL))
			}
			engine = NewJinaEngine(jina.NewClient(cfg.Secrets.JinaKey, opts...))
		}
	default:
		if cfg.Secrets.GoogleAPIKey != "" && cfg.Secrets.GoogleCSEID != "" {
			engine = NewCustomSearchEngine(customsearch.NewClient(
				cfg.Secrets.GoogleAPIKey, cfg.Secrets.GoogleCSEID,
				customsearch.WithBaseURL(cfg.WebSearch.BaseURL),
				customsearch.WithTimeout(cfg.WebSearch.Timeout),
			))
		}
	}

	var primary mapsdata.Client
	if api != nil {
		primary = mapsdata.NewClient(api, mapsdata.WithHost(cfg.Places.PrimaryHost))
	}

	var fallback google.Client
	if cfg.Secrets.GoogleAPIKey != "" {
		fallback = google.NewClient(cfg.Secrets.GoogleAPIKey,
			google.WithBaseURL(cfg.Places.FallbackBaseURL),
			google.WithRateLimit(cfg.Places.FallbackRPS),
		)
	}

	return NewFactory(engine, primary, fallback,
		resilience.NewBreaker(cfg.Places.BreakerFailures, cfg.Places.BreakerCooldown),
		c,
		FactoryOptions{
			Sites:      cfg.WebSearch.Sites,
			NumResults: cfg.WebSearch.NumResults,
			MaxPlaces:  cfg.Places.MaxResults,
			PlacesTTL:  cfg.Cache.PlacesTTL,
			Strategy:   cfg.Pipeline.Strategy,
		})
}

// ForRegion returns the facade for a two-letter region.
func (f *Factory) ForRegion(region string) SellerResolver {
	region = strings.ToLower(strings.TrimSpace(region))

	f.mu.Lock()
	defer f.mu.Unlock()
	if fc, ok := f.byRegion[region]; ok {
		return fc
	}

	plan := PlanFor(region)
	var web, places Resolver
	if f.engine != nil {
		web = NewWebResolver(f.engine, plan, f.opts.Sites, f.opts.NumResults)
	}
	if f.primary != nil || f.fallback != nil {
		places = NewPlacesResolver(f.primary, f.fallback, f.breaker, f.cache, PlacesOptions{
			Region:     region,
			Language:   plan.Language,
			MaxResults: f.opts.MaxPlaces,
			CacheTTL:   f.opts.PlacesTTL,
		})
	}
	fc := NewFacade(web, places, f.opts.Strategy)
	f.byRegion[region] = fc
	return fc
}
