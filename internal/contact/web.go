package contact

import (
	"context"
	"net/url"
	"regexp"
	"strings"
	"sync"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"
	"golang.org/x/sync/singleflight"

	"github.com/sells-group/seller-scout/internal/model"
	"github.com/sells-group/seller-scout/pkg/customsearch"
	"github.com/sells-group/seller-scout/pkg/jina"
)

// WebQuery is one contact-intent web search.
type WebQuery struct {
	Text     string
	Sites    []string
	Country  string
	Language string
	Num      int
}

// Hit is one web search result.
type Hit struct {
	Title   string
	Snippet string
	Link    string
}

// SearchEngine runs web searches for the web resolver.
type SearchEngine interface {
	Name() string
	Search(ctx context.Context, q WebQuery) ([]Hit, error)
}

// NewCustomSearchEngine adapts a Custom Search client. Site restrictions are
// expressed as site: operators in the query text.
func NewCustomSearchEngine(c customsearch.Client) SearchEngine {
	return &customSearchEngine{client: c}
}

type customSearchEngine struct {
	client customsearch.Client
}

func (e *customSearchEngine) Name() string { return "customsearch" }

func (e *customSearchEngine) Search(ctx context.Context, q WebQuery) ([]Hit, error) {
	text := q.Text
	if len(q.Sites) > 0 {
		clauses := make([]string, len(q.Sites))
		for i, s := range q.Sites {
			clauses[i] = "site:" + s
		}
		text += " " + strings.Join(clauses, " OR ")
	}

	resp, err := e.client.Search(ctx, text,
		customsearch.WithNum(q.Num),
		customsearch.WithRegion(q.Country, q.Language),
	)
	if err != nil {
		return nil, err
	}
	hits := make([]Hit, 0, len(resp.Items))
	for _, it := range resp.Items {
		hits = append(hits, Hit{Title: it.Title, Snippet: it.Snippet, Link: it.Link})
	}
	return hits, nil
}

// NewJinaEngine adapts a Jina search client. Sites go through its site filter,
// which does not accept wildcards.
func NewJinaEngine(c jina.Client) SearchEngine {
	return &jinaEngine{client: c}
}

type jinaEngine struct {
	client jina.Client
}

func (e *jinaEngine) Name() string { return "jina" }

func (e *jinaEngine) Search(ctx context.Context, q WebQuery) ([]Hit, error) {
	sites := make([]string, 0, len(q.Sites))
	for _, s := range q.Sites {
		sites = append(sites, strings.TrimPrefix(s, "*."))
	}
	resp, err := e.client.Search(ctx, q.Text,
		jina.WithSiteFilter(sites...),
		jina.WithCountry(q.Country),
		jina.WithNum(q.Num),
	)
	if err != nil {
		return nil, err
	}
	hits := make([]Hit, 0, len(resp.Data))
	for _, r := range resp.Data {
		snippet := r.Description
		if snippet == "" {
			snippet = r.Content
		}
		hits = append(hits, Hit{Title: r.Title, Snippet: snippet, Link: r.URL})
	}
	return hits, nil
}

var (
	emailPattern  = regexp.MustCompile(`[a-zA-Z0-9._%+-]+@[a-zA-Z0-9.-]+\.[a-zA-Z]{2,}`)
	socialPattern = regexp.MustCompile(`https?://(?:[a-z0-9-]+\.)?(?:facebook|instagram)\.com/[^\s"'<>()]+`)

	// Path segments on social domains that never identify a business
	// profile.
	nonProfileSegments = map[string]bool{
		"groups": true, "events": true, "pages": true, "marketplace": true,
		"photo": true, "photo.php": true, "photos": true, "permalink.php": true,
		"story.php": true, "watch": true, "sharer": true, "sharer.php": true,
		"share.php": true, "login": true, "login.php": true, "ajax": true,
		"help": true, "policies": true, "hashtag": true, "explore": true,
	}
	instagramContentSegments = map[string]bool{
		"p": true, "reel": true, "reels": true, "stories": true, "tv": true,
	}
)

// WebResolver extracts contact fields from web search results. Lookups are
// memoized per seller for the lifetime of the resolver.
type WebResolver struct {
	engine SearchEngine
	plan   RegionPlan
	sites  []string
	num    int

	group singleflight.Group
	mu    sync.RWMutex
	memo  map[string]model.ContactRecord
}

// NewWebResolver creates a WebResolver. num is the number of results scanned.
func NewWebResolver(engine SearchEngine, plan RegionPlan, sites []string, num int) *WebResolver {
	if num <= 0 {
		num = 3
	}
	return &WebResolver{
		engine: engine,
		plan:   plan,
		sites:  sites,
		num:    num,
		memo:   make(map[string]model.ContactRecord),
	}
}

// Query builds the contact-intent query for seller.
func (w *WebResolver) Query(seller string) WebQuery {
	text := `"` + strings.TrimSpace(seller) + `" (contacto OR teléfono OR email OR whatsapp)`
	if w.plan.CountryName != "" {
		text += " " + w.plan.CountryName
	}
	return WebQuery{
		Text:     text,
		Sites:    w.sites,
		Country:  w.plan.Region,
		Language: w.plan.Language,
		Num:      w.num,
	}
}

// Resolve searches for seller and returns whatever contact fields the top
// results reveal. Engine failures are returned and not memoized.
func (w *WebResolver) Resolve(ctx context.Context, seller string) (model.ContactRecord, error) {
	key := memoKey(seller)
	if key == "" {
		return model.ContactRecord{}, nil
	}

	w.mu.RLock()
	rec, ok := w.memo[key]
	w.mu.RUnlock()
	if ok {
		return rec.Clone(), nil
	}

	v, err, _ := w.group.Do(key, func() (any, error) {
		hits, err := w.engine.Search(ctx, w.Query(seller))
		if err != nil {
			return nil, eris.Wrapf(err, "contact: web search for %q", seller)
		}
		rec := w.scan(hits)
		w.mu.Lock()
		w.memo[key] = rec
		w.mu.Unlock()

		zap.L().Debug("contact: web search complete",
			zap.String("seller", seller),
			zap.String("engine", w.engine.Name()),
			zap.Int("hits", len(hits)),
			zap.Bool("found", !rec.IsEmpty()),
		)
		return rec, nil
	})
	if err != nil {
		return model.ContactRecord{}, err
	}
	return v.(model.ContactRecord).Clone(), nil
}

// scan reads hits in order and stops once phone, email, and social URL are
// all known.
func (w *WebResolver) scan(hits []Hit) model.ContactRecord {
	var rec model.ContactRecord
	source := "web:" + w.engine.Name()

	for _, h := range hits {
		link := strings.ToLower(strings.TrimSpace(h.Link))
		text := strings.ToLower(h.Title + " " + h.Snippet + " " + h.Link)

		if rec.Phone == "" {
			if raw := w.plan.Find(text); raw != "" {
				if phone, ok := w.plan.Normalize(raw); ok {
					rec.Set(model.FieldPhone, phone, source)
				}
			}
		}
		if rec.Email == "" {
			rec.Set(model.FieldEmail, emailPattern.FindString(text), source)
		}
		if rec.SocialURL == "" {
			rec.Set(model.FieldSocialURL, socialProfile(link, text), source)
		}

		if rec.Phone != "" && rec.Email != "" && rec.SocialURL != "" {
			break
		}
	}
	return rec
}

// socialProfile prefers the result link itself, then any profile URL in the
// text.
func socialProfile(link, text string) string {
	if u := profileURL(socialPattern.FindString(link)); u != "" {
		return u
	}
	for _, m := range socialPattern.FindAllString(text, -1) {
		if u := profileURL(m); u != "" {
			return u
		}
	}
	return ""
}

// profileURL returns raw without query or fragment, or "" when it points at
// content rather than a profile. Facebook numeric profiles keep their id.
func profileURL(raw string) string {
	u, err := url.Parse(strings.TrimRight(raw, ".,;:!?"))
	if err != nil || u.Host == "" {
		return ""
	}
	path := strings.Trim(u.Path, "/")
	if path == "" {
		return ""
	}
	instagram := strings.Contains(u.Host, "instagram.")
	for _, seg := range strings.Split(strings.ToLower(path), "/") {
		if nonProfileSegments[seg] || (instagram && instagramContentSegments[seg]) {
			return ""
		}
	}

	out := u.Scheme + "://" + u.Host + "/" + path
	if strings.EqualFold(path, "profile.php") {
		id := u.Query().Get("id")
		if id == "" {
			return ""
		}
		out += "?id=" + id
	}
	return out
}
