package contact

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/sells-group/seller-scout/internal/cache"
	"github.com/sells-group/seller-scout/internal/model"
	"github.com/sells-group/seller-scout/internal/resilience"
	"github.com/sells-group/seller-scout/pkg/google"
	"github.com/sells-group/seller-scout/pkg/mapsdata"
)

// Provider names recorded on Business and in contact provenance.
const (
	ProviderMapsData     = "mapsdata"
	ProviderGooglePlaces = "google_places"
)

// PlacesOptions configures a PlacesResolver.
type PlacesOptions struct {
	Region     string
	Language   string
	MaxResults int
	CacheTTL   time.Duration
}

// PlacesResolver looks sellers up as physical businesses. The primary
// provider sits behind a circuit breaker; the fallback is used when the
// primary errors, answers non-OK, or finds nothing.
type PlacesResolver struct {
	primary  mapsdata.Client
	fallback google.Client
	breaker  *resilience.Breaker
	cache    cache.Cache
	plan     RegionPlan
	opts     PlacesOptions
}

// NewPlacesResolver creates a PlacesResolver. Either provider may be nil.
func NewPlacesResolver(primary mapsdata.Client, fallback google.Client, breaker *resilience.Breaker, c cache.Cache, opts PlacesOptions) *PlacesResolver {
	if opts.MaxResults <= 0 {
		opts.MaxResults = 3
	}
	if opts.CacheTTL <= 0 {
		opts.CacheTTL = 24 * time.Hour
	}
	if breaker == nil {
		breaker = resilience.NewBreaker(5, 2*time.Minute)
	}
	return &PlacesResolver{
		primary:  primary,
		fallback: fallback,
		breaker:  breaker,
		cache:    c,
		plan:     PlanFor(opts.Region),
		opts:     opts,
	}
}

// CacheKey is the shared-cache key for a seller's places lookup in region.
func CacheKey(region, seller string) string {
	return "places:" + strings.ToLower(strings.TrimSpace(region)) + ":" + memoKey(CleanSellerName(seller))
}

// Lookup returns up to MaxResults businesses matching seller. An empty result
// with a nil error means neither provider found anything. Only non-empty
// results are cached.
func (p *PlacesResolver) Lookup(ctx context.Context, seller string) ([]model.Business, error) {
	query := CleanSellerName(seller)
	if query == "" {
		return nil, nil
	}
	return cache.Remember(ctx, p.cache, CacheKey(p.opts.Region, seller), p.opts.CacheTTL,
		func(found []model.Business) bool { return len(found) > 0 },
		func(ctx context.Context) ([]model.Business, error) { return p.lookup(ctx, seller, query) },
	)
}

func (p *PlacesResolver) lookup(ctx context.Context, seller, query string) ([]model.Business, error) {
	log := zap.L().With(zap.String("seller", seller), zap.String("query", query))

	found, primaryErr := p.searchPrimary(ctx, query)
	if primaryErr != nil {
		log.Warn("contact: primary places provider failed", zap.Error(primaryErr))
	}

	var fallbackErr error
	if len(found) == 0 && p.fallback != nil {
		log.Debug("contact: falling back to secondary places provider")
		found, fallbackErr = p.searchFallback(ctx, query)
		if fallbackErr != nil {
			log.Warn("contact: fallback places provider failed", zap.Error(fallbackErr))
		}
	}

	if len(found) == 0 {
		if primaryErr != nil && (fallbackErr != nil || p.fallback == nil) {
			return nil, eris.Wrap(errors.Join(primaryErr, fallbackErr), "contact: places lookup")
		}
		return nil, nil
	}

	if len(found) > p.opts.MaxResults {
		found = found[:p.opts.MaxResults]
	}
	return found, nil
}

// Resolve maps the top businesses onto a contact record. Each field comes from
// the highest-ranked business that has it.
func (p *PlacesResolver) Resolve(ctx context.Context, seller string) (model.ContactRecord, error) {
	found, err := p.Lookup(ctx, seller)
	if err != nil {
		return model.ContactRecord{}, err
	}
	return RecordFromBusinesses(p.plan, found), nil
}

// RecordFromBusinesses merges businesses in rank order. Phones are normalized
// with plan as possible fixed lines; one that does not fit the plan is
// dropped.
func RecordFromBusinesses(plan RegionPlan, found []model.Business) model.ContactRecord {
	var rec model.ContactRecord
	for _, b := range found {
		source := "places:" + b.Provider
		if rec.Phone == "" {
			if phone, ok := plan.NormalizeLandline(b.Phone); ok {
				rec.Set(model.FieldPhone, phone, source)
			}
		}
		if rec.Address == "" {
			rec.Set(model.FieldAddress, strings.TrimSpace(b.Address), source)
		}
		if rec.Website == "" {
			rec.Set(model.FieldWebsite, strings.TrimSpace(b.Website), source)
		}
		if rec.PlaceLink == "" {
			rec.Set(model.FieldPlaceLink, strings.TrimSpace(b.MapLink), source)
		}
	}
	return rec
}

func (p *PlacesResolver) searchPrimary(ctx context.Context, query string) ([]model.Business, error) {
	if p.primary == nil {
		return nil, nil
	}
	resp, err := resilience.Call(ctx, p.breaker, func(ctx context.Context) (*mapsdata.SearchResponse, error) {
		return p.primary.Search(ctx, query, p.opts.Region)
	})
	if err != nil {
		return nil, err
	}
	if !resp.OK() {
		return nil, nil
	}
	out := make([]model.Business, 0, len(resp.Places))
	for _, pl := range resp.Places {
		if pl.Name == "" {
			continue
		}
		out = append(out, model.Business{
			Name:        pl.Name,
			Phone:       pl.Phone,
			Address:     pl.Address,
			Rating:      pl.Rating,
			ReviewCount: pl.Reviews,
			Website:     pl.Website,
			MapLink:     pl.Link,
			Provider:    ProviderMapsData,
		})
	}
	return out, nil
}

func (p *PlacesResolver) searchFallback(ctx context.Context, query string) ([]model.Business, error) {
	resp, err := p.fallback.TextSearch(ctx, google.TextSearchRequest{
		TextQuery:    query,
		LanguageCode: p.opts.Language,
		RegionCode:   strings.ToUpper(p.opts.Region),
		PageSize:     p.opts.MaxResults,
	})
	if err != nil {
		return nil, err
	}
	out := make([]model.Business, 0, len(resp.Places))
	for _, pl := range resp.Places {
		if pl.DisplayName.Text == "" {
			continue
		}
		out = append(out, model.Business{
			Name:        pl.DisplayName.Text,
			Phone:       pl.Phone(),
			Address:     pl.FormattedAddress,
			Rating:      pl.Rating,
			ReviewCount: pl.UserRatingCount,
			Website:     pl.WebsiteURI,
			MapLink:     pl.MapLink(),
			Provider:    ProviderGooglePlaces,
		})
	}
	return out, nil
}
