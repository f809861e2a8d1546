// Package marketplace searches marketplace listings through proxy providers
// whose contracts vary. It probes host, endpoint and parameter-schema
// combinations in a fixed order and locks onto the first that works.
package marketplace

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/rotisserie/eris"
	"github.com/tidwall/gjson"
	"go.uber.org/zap"

	"github.com/sells-group/seller-scout/internal/config"
	"github.com/sells-group/seller-scout/internal/model"
	"github.com/sells-group/seller-scout/internal/resilience"
	"github.com/sells-group/seller-scout/pkg/rapidapi"
)

var errInvalidJSON = eris.New("marketplace: response is not valid JSON")

// Options tunes pagination and probing.
type Options struct {
	MaxPages         int
	MinResults       int
	PageSize         int
	FailureThreshold int
	// MaxProbes caps the page requests one Search may spend across all
	// combinations.
	MaxProbes int
	PageDelay time.Duration
}

// OptionsFromConfig builds Options from the marketplace config section.
func OptionsFromConfig(cfg config.MarketplaceConfig) Options {
	return Options{
		MaxPages:         cfg.MaxPages,
		MinResults:       cfg.MinResults,
		PageSize:         cfg.PageSize,
		FailureThreshold: cfg.FailureThreshold,
		MaxProbes:        cfg.MaxProbes,
		PageDelay:        cfg.PageDelay,
	}
}

func (o Options) withDefaults() Options {
	if o.MaxPages <= 0 {
		o.MaxPages = 5
	}
	if o.MinResults <= 0 {
		o.MinResults = 20
	}
	if o.PageSize <= 0 {
		o.PageSize = 50
	}
	if o.FailureThreshold <= 0 {
		o.FailureThreshold = 3
	}
	if o.MaxProbes <= 0 {
		o.MaxProbes = 30
	}
	return o
}

// ProbeResult is the outcome of requesting one page from one combination.
type ProbeResult struct {
	Combination Combination
	Page        int
	// Items is the raw item count before normalization.
	Items    int
	Listings []model.Listing
	Err      error
}

// Success reports whether the page carried at least one listing with a real
// seller identity.
func (r ProbeResult) Success() bool {
	if r.Err != nil {
		return false
	}
	for _, l := range r.Listings {
		if l.Seller.Identifiable() {
			return true
		}
	}
	return false
}

// Client searches listings. It is safe for concurrent use.
type Client struct {
	api    rapidapi.Client
	combos []Combination
	opts   Options
	sleep  func(ctx context.Context, d time.Duration) error

	mu     sync.Mutex
	locked *Combination
}

// New creates a Client probing combos in order.
func New(api rapidapi.Client, combos []Combination, opts Options) *Client {
	return &Client{
		api:    api,
		combos: combos,
		opts:   opts.withDefaults(),
		sleep:  sleepCtx,
	}
}

// NewFromConfig creates a Client from the marketplace config section using the
// default parameter schemas.
func NewFromConfig(api rapidapi.Client, cfg config.MarketplaceConfig) *Client {
	return New(api, Combinations(cfg.Hosts, cfg.Endpoints, DefaultSchemas()), OptionsFromConfig(cfg))
}

// Locked returns the combination the client has locked onto, if any.
func (c *Client) Locked() (Combination, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.locked == nil {
		return Combination{}, false
	}
	return *c.locked, true
}

// Search returns normalized, de-duplicated listings for q. Provider failures
// are absorbed; total failure yields an empty slice.
func (c *Client) Search(ctx context.Context, q model.SearchQuery) []model.Listing {
	log := zap.L().With(zap.String("term", q.Term), zap.String("region", q.Region))

	var loose []model.Listing
	b := newBudget(c.opts)
	for _, combo := range c.candidates() {
		if ctx.Err() != nil || b.exhausted() {
			break
		}
		if !combo.Applicable(q.Region) || b.hostDown(combo.Host) {
			continue
		}

		first, ok := c.discover(ctx, b, combo, q, &loose)
		if !ok {
			log.Debug("marketplace: combination abandoned", zap.Stringer("combination", combo))
			continue
		}

		c.lock(combo)
		col := newCollector()
		col.add(first.Listings)
		c.paginate(ctx, b, combo, q, first, col)

		log.Info("marketplace: search complete",
			zap.Stringer("combination", combo),
			zap.Int("listings", len(col.listings)),
			zap.Int("identified", col.identified),
		)
		return col.listings
	}

	// No combination produced an identifiable seller. Listings from the
	// first combination that returned anything are still worth ranking.
	if len(loose) > 0 {
		col := newCollector()
		col.add(loose)
		log.Warn("marketplace: no combination yielded seller identities",
			zap.Int("listings", len(col.listings)))
		return col.listings
	}
	log.Warn("marketplace: all combinations failed",
		zap.Int("probes", c.opts.MaxProbes-b.remaining),
		zap.Strings("hosts_down", b.down()))
	return []model.Listing{}
}

// candidates puts the locked combination first so a working contract is not
// re-probed. The rest remain as fallbacks if it stops working.
func (c *Client) candidates() []Combination {
	c.mu.Lock()
	locked := c.locked
	c.mu.Unlock()

	if locked == nil {
		return c.combos
	}
	out := make([]Combination, 0, len(c.combos))
	out = append(out, *locked)
	for _, combo := range c.combos {
		if combo != *locked {
			out = append(out, combo)
		}
	}
	return out
}

func (c *Client) lock(combo Combination) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.locked == nil || *c.locked != combo {
		zap.L().Info("marketplace: locked combination", zap.Stringer("combination", combo))
	}
	c.locked = &combo
}

// discover walks pages of one combination until a page succeeds or the
// consecutive failure threshold is reached.
func (c *Client) discover(ctx context.Context, b *budget, combo Combination, q model.SearchQuery, loose *[]model.Listing) (ProbeResult, bool) {
	failures := 0
	for page := startPage(q); page <= c.opts.MaxPages && failures < c.opts.FailureThreshold; page++ {
		if b.exhausted() || b.hostDown(combo.Host) {
			return ProbeResult{}, false
		}
		if page > startPage(q) {
			if err := c.sleep(ctx, c.opts.PageDelay); err != nil {
				return ProbeResult{}, false
			}
		}
		res := c.probe(ctx, combo, q, page)
		b.spend(combo.Host, res.Err)
		if res.Success() {
			return res, true
		}
		if len(*loose) == 0 && len(res.Listings) > 0 {
			*loose = res.Listings
		}
		failures++
		zap.L().Debug("marketplace: probe failed",
			zap.Stringer("combination", combo),
			zap.Int("page", page),
			zap.Int("items", res.Items),
			zap.Error(res.Err),
		)
	}
	return ProbeResult{}, false
}

// paginate keeps requesting pages of a locked combination until enough
// listings with sellers are collected, a short page signals the end, or the
// page cap is hit.
func (c *Client) paginate(ctx context.Context, b *budget, combo Combination, q model.SearchQuery, first ProbeResult, col *collector) {
	if first.Items < c.opts.PageSize {
		return
	}
	failures := 0
	for page := first.Page + 1; page <= c.opts.MaxPages && col.identified < c.opts.MinResults; page++ {
		if b.exhausted() {
			return
		}
		if err := c.sleep(ctx, c.opts.PageDelay); err != nil {
			return
		}
		res := c.probe(ctx, combo, q, page)
		b.spend(combo.Host, res.Err)
		if res.Err != nil {
			failures++
			if failures >= c.opts.FailureThreshold {
				return
			}
			continue
		}
		failures = 0
		if res.Items == 0 {
			return
		}
		col.add(res.Listings)
		if res.Items < c.opts.PageSize {
			return
		}
	}
}

func (c *Client) probe(ctx context.Context, combo Combination, q model.SearchQuery, page int) ProbeResult {
	res := ProbeResult{Combination: combo, Page: page}

	body, err := c.api.Get(ctx, combo.Host, combo.Path(q.Region), combo.Params(q, page, c.opts.PageSize))
	if err != nil {
		res.Err = err
		return res
	}
	if !gjson.ValidBytes(body) {
		res.Err = &resilience.ParseError{Provider: combo.Host, Err: errInvalidJSON}
		return res
	}

	items := ExtractItems(gjson.ParseBytes(body))
	res.Items = len(items)
	for _, item := range items {
		l, ok := NormalizeRaw(item)
		if !ok {
			continue
		}
		l.Source = combo.Host
		res.Listings = append(res.Listings, l)
	}
	return res
}

// budget tracks the probes left in one Search and the hosts that keep failing
// at the transport level. A host is skipped for the rest of the search once
// it has failed FailureThreshold times in a row.
type budget struct {
	remaining int
	threshold int
	failures  map[string]int
}

func newBudget(o Options) *budget {
	return &budget{remaining: o.MaxProbes, threshold: o.FailureThreshold, failures: make(map[string]int)}
}

func (b *budget) exhausted() bool { return b.remaining <= 0 }

func (b *budget) hostDown(host string) bool { return b.failures[host] >= b.threshold }

func (b *budget) spend(host string, err error) {
	b.remaining--
	switch {
	case err == nil:
		b.failures[host] = 0
	case resilience.IsTransient(err):
		b.failures[host]++
	}
}

func (b *budget) down() []string {
	var out []string
	for host, n := range b.failures {
		if n >= b.threshold {
			out = append(out, host)
		}
	}
	sort.Strings(out)
	return out
}

func startPage(q model.SearchQuery) int {
	if q.Page > 0 {
		return q.Page
	}
	return 1
}

// collector accumulates listings across pages, dropping repeated ids.
type collector struct {
	seen       map[string]struct{}
	listings   []model.Listing
	identified int
}

func newCollector() *collector {
	return &collector{seen: make(map[string]struct{}), listings: []model.Listing{}}
}

func (c *collector) add(ls []model.Listing) {
	for _, l := range ls {
		if l.ID != "" {
			if _, dup := c.seen[l.ID]; dup {
				continue
			}
			c.seen[l.ID] = struct{}{}
		}
		c.listings = append(c.listings, l)
		if l.Seller.Identifiable() {
			c.identified++
		}
	}
}

func sleepCtx(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}
