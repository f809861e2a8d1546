// Package pipeline runs a marketplace search end to end: search, filter, rank,
// then resolve seller contacts for the ranked listings.
package pipeline

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
	"golang.org/x/time/rate"

	"github.com/sells-group/seller-scout/internal/cache"
	"github.com/sells-group/seller-scout/internal/config"
	"github.com/sells-group/seller-scout/internal/contact"
	"github.com/sells-group/seller-scout/internal/filter"
	"github.com/sells-group/seller-scout/internal/model"
	"github.com/sells-group/seller-scout/internal/ranking"
)

// Searcher returns normalized listings for a query. It never fails; total
// provider failure is an empty slice.
type Searcher interface {
	Search(ctx context.Context, q model.SearchQuery) []model.Listing
}

// Contacts hands out a seller resolver for a region.
type Contacts interface {
	ForRegion(region string) contact.SellerResolver
}

// History records finished runs.
type History interface {
	RecordSearch(ctx context.Context, rec model.SearchRecord) error
}

// Options tunes a Pipeline.
type Options struct {
	Deadline       time.Duration
	Limit          int
	ContactWorkers int
	ContactRPS     float64
	SearchTTL      time.Duration
	Strategy       string
}

// OptionsFromConfig reads pipeline options from cfg.
func OptionsFromConfig(cfg *config.Config) Options {
	return Options{
		Deadline:       cfg.Pipeline.Deadline,
		Limit:          cfg.Ranking.Limit,
		ContactWorkers: cfg.Pipeline.ContactWorkers,
		ContactRPS:     cfg.Pipeline.ContactRPS,
		SearchTTL:      cfg.Cache.SearchTTL,
		Strategy:       cfg.Pipeline.Strategy,
	}
}

func (o Options) withDefaults() Options {
	if o.Deadline <= 0 {
		o.Deadline = 90 * time.Second
	}
	if o.Limit <= 0 {
		o.Limit = 20
	}
	if o.ContactWorkers <= 0 {
		o.ContactWorkers = 4
	}
	if o.SearchTTL <= 0 {
		o.SearchTTL = time.Hour
	}
	return o
}

// Pipeline orchestrates one search run. It holds no per-run state, so one
// Pipeline serves concurrent runs.
type Pipeline struct {
	search   Searcher
	criteria filter.Criteria
	scorer   *ranking.Scorer
	contacts Contacts
	cache    cache.Cache
	history  History
	opts     Options
}

// New creates a Pipeline. contacts, c and history may be nil.
func New(search Searcher, criteria filter.Criteria, scorer *ranking.Scorer, contacts Contacts, c cache.Cache, history History, opts Options) *Pipeline {
	return &Pipeline{
		search:   search,
		criteria: criteria,
		scorer:   scorer,
		contacts: contacts,
		cache:    c,
		history:  history,
		opts:     opts.withDefaults(),
	}
}

// rankedPage is what the search cache stores: ranked listings before contact
// resolution plus the counts that produced them.
type rankedPage struct {
	Searched int                   `json:"searched"`
	Filtered int                   `json:"filtered"`
	Products []model.RankedListing `json:"products"`
}

// SearchCacheKey is the cache key of the ranked result for term in region.
func SearchCacheKey(region, term string) string {
	return "search:" + strings.ToLower(region) + ":" + strings.ToLower(term)
}

// Execute runs the pipeline. It returns an error only for invalid input;
// provider failures degrade to fewer products or empty contacts.
func (p *Pipeline) Execute(ctx context.Context, query, region string) (*model.Result, error) {
	query, region, err := Validate(query, region)
	if err != nil {
		return nil, err
	}

	start := time.Now()
	result := &model.Result{
		RunID:  uuid.NewString(),
		Query:  query,
		Region: region,
	}
	log := zap.L().With(
		zap.String("run_id", result.RunID),
		zap.String("query", query),
		zap.String("region", region),
	)
	log.Info("pipeline: starting search")

	runCtx, cancel := context.WithTimeout(ctx, p.opts.Deadline)
	defer cancel()

	trackStage := func(name string, fn func() int) {
		stageStart := time.Now()
		n := fn()
		log.Info("pipeline: stage complete",
			zap.String("stage", name),
			zap.Int("count", n),
			zap.Int64("duration_ms", time.Since(stageStart).Milliseconds()),
		)
	}

	var ranked rankedPage
	key := SearchCacheKey(region, query)
	if p.cache != nil && p.cache.Get(runCtx, key, &ranked) {
		result.Stats.CacheHit = true
		log.Info("pipeline: ranked listings served from cache", zap.Int("count", len(ranked.Products)))
	} else {
		var listings []model.Listing
		trackStage("search", func() int {
			listings = p.search.Search(runCtx, model.SearchQuery{Term: query, Region: region})
			return len(listings)
		})
		ranked.Searched = len(listings)

		trackStage("filter", func() int {
			var dropped map[filter.Reason]int
			listings, dropped = filter.Explain(listings, p.criteria)
			for reason, n := range dropped {
				log.Debug("pipeline: listings filtered", zap.String("reason", string(reason)), zap.Int("count", n))
			}
			return len(listings)
		})
		ranked.Filtered = len(listings)

		trackStage("rank", func() int {
			ranked.Products = p.scorer.Rank(listings, min(p.opts.Limit, len(listings)))
			return len(ranked.Products)
		})

		if p.cache != nil && len(ranked.Products) > 0 && runCtx.Err() == nil {
			p.cache.Set(runCtx, key, ranked, p.opts.SearchTTL)
		}
	}

	result.Products = ranked.Products
	result.Stats.Searched = ranked.Searched
	result.Stats.Filtered = ranked.Filtered
	result.Stats.Ranked = len(ranked.Products)

	trackStage("contact", func() int {
		result.Stats.Contacted = p.resolveContacts(runCtx, region, result.Products)
		return result.Stats.Contacted
	})

	result.Status, result.Message = p.status(runCtx, result)
	result.Stats.Elapsed = time.Since(start)
	p.record(context.WithoutCancel(ctx), result)

	log.Info("pipeline: search complete",
		zap.String("status", string(result.Status)),
		zap.Int("products", len(result.Products)),
		zap.Int("contacted", result.Stats.Contacted),
		zap.Duration("elapsed", result.Stats.Elapsed),
	)
	return result, nil
}

// resolveContacts fills Contact and WhatsAppLink on products in place and
// returns how many got a non-empty record. Each distinct seller is resolved
// once. Resolutions still running at the deadline are abandoned.
func (p *Pipeline) resolveContacts(ctx context.Context, region string, products []model.RankedListing) int {
	if p.contacts == nil || len(products) == 0 {
		return 0
	}

	bySeller := make(map[string][]int)
	var sellers []string
	for i, prod := range products {
		if !prod.Seller.Identifiable() {
			continue
		}
		name := prod.Seller.Nickname
		if _, ok := bySeller[name]; !ok {
			sellers = append(sellers, name)
		}
		bySeller[name] = append(bySeller[name], i)
	}
	if len(sellers) == 0 {
		return 0
	}

	resolver := p.contacts.ForRegion(region)
	limit := rate.Inf
	if p.opts.ContactRPS > 0 {
		limit = rate.Limit(p.opts.ContactRPS)
	}
	limiter := rate.NewLimiter(limit, 1)

	records := make([]*model.ContactRecord, len(sellers))
	g, gCtx := errgroup.WithContext(ctx)
	g.SetLimit(p.opts.ContactWorkers)
	for i, seller := range sellers {
		g.Go(func() error {
			if err := limiter.Wait(gCtx); err != nil {
				return nil
			}
			done := make(chan model.ContactRecord, 1)
			go func() { done <- resolver.Resolve(gCtx, seller) }()
			select {
			case rec := <-done:
				records[i] = &rec
			case <-gCtx.Done():
				zap.L().Debug("pipeline: contact resolution abandoned", zap.String("seller", seller))
			}
			return nil
		})
	}
	_ = g.Wait()

	contacted := 0
	for i, seller := range sellers {
		rec := records[i]
		if rec == nil {
			continue
		}
		for _, idx := range bySeller[seller] {
			c := rec.Clone()
			products[idx].Contact = &c
			if c.Phone != "" {
				products[idx].WhatsAppLink = contact.WhatsAppLink(c.Phone, products[idx].Title)
			}
			if !c.IsEmpty() {
				contacted++
			}
		}
	}
	return contacted
}

func (p *Pipeline) status(ctx context.Context, result *model.Result) (model.Status, string) {
	if err := ctx.Err(); err != nil {
		return model.StatusPartial, fmt.Sprintf("%v; returning %d products with the contacts resolved so far", err, len(result.Products))
	}
	if len(result.Products) == 0 {
		return model.StatusOK, "no products found"
	}
	return model.StatusOK, fmt.Sprintf("found %d products, %d with contact data", len(result.Products), result.Stats.Contacted)
}

func (p *Pipeline) record(ctx context.Context, result *model.Result) {
	if p.history == nil {
		return
	}
	err := p.history.RecordSearch(ctx, model.SearchRecord{
		ID:          result.RunID,
		Term:        result.Query,
		Region:      result.Region,
		Status:      result.Status,
		ResultCount: len(result.Products),
		Params: map[string]any{
			"limit":     p.opts.Limit,
			"strategy":  p.opts.Strategy,
			"cache_hit": result.Stats.CacheHit,
			"contacted": result.Stats.Contacted,
		},
		CreatedAt: time.Now().UTC(),
	})
	if err != nil {
		zap.L().Warn("pipeline: failed to record search", zap.String("run_id", result.RunID), zap.Error(err))
	}
}

// ErrorResult is the result handed to callers when a run could not start.
func ErrorResult(query, region string, err error) *model.Result {
	return &model.Result{
		Status:  model.StatusError,
		Message: err.Error(),
		Query:   query,
		Region:  region,
	}
}
