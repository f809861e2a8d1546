package marketplace

import (
	"net/url"
	"strconv"
	"strings"

	"github.com/sells-group/seller-scout/internal/model"
)

// RegionStyle controls how a region is rendered into request parameters.
type RegionStyle int

// Region styles.
const (
	// RegionCountry sends the lowercase two-letter country code.
	RegionCountry RegionStyle = iota
	// RegionSite sends the uppercase marketplace site id (MLA, MLM, ...).
	RegionSite
)

// Schema names the query parameters one provider contract expects.
type Schema struct {
	Name        string
	Term        string
	Region      string
	RegionStyle RegionStyle
	Page        string
	// Offset sends the page parameter as an item offset instead of a
	// one-based page number.
	Offset bool
	Limit  string
	Sort   string
}

// DefaultSchemas are the parameter shapes seen across marketplace proxies,
// in probe order.
func DefaultSchemas() []Schema {
	return []Schema{
		{Name: "listings", Term: "search_str", Region: "country", RegionStyle: RegionCountry, Page: "page_num", Limit: "limit", Sort: "sort_by"},
		{Name: "official", Term: "q", Region: "site_id", RegionStyle: RegionSite, Page: "offset", Offset: true, Limit: "limit", Sort: "sort"},
		{Name: "query", Term: "query", Region: "country", RegionStyle: RegionCountry, Page: "page"},
		{Name: "keyword", Term: "keyword", Region: "site", RegionStyle: RegionSite, Page: "page"},
	}
}

// Combination is one (host, endpoint, schema) candidate for reaching a provider.
type Combination struct {
	Host     string
	Endpoint string
	Schema   Schema
}

// String identifies the combination in logs.
func (c Combination) String() string {
	return c.Host + c.Endpoint + "#" + c.Schema.Name
}

// Applicable reports whether the combination can address region. Contracts
// keyed by site id cannot serve regions without a known site.
func (c Combination) Applicable(region string) bool {
	if c.Schema.RegionStyle != RegionSite && !strings.Contains(c.Endpoint, "{site}") {
		return true
	}
	_, ok := SiteID(region)
	return ok
}

// Path renders the endpoint for region.
func (c Combination) Path(region string) string {
	if !strings.Contains(c.Endpoint, "{site}") {
		return c.Endpoint
	}
	site, _ := SiteID(region)
	return strings.ReplaceAll(c.Endpoint, "{site}", site)
}

// Params renders the query parameters for one page of q.
func (c Combination) Params(q model.SearchQuery, page, pageSize int) url.Values {
	s := c.Schema
	v := url.Values{}
	v.Set(s.Term, q.Term)

	if s.Region != "" {
		region := strings.ToLower(q.Region)
		if s.RegionStyle == RegionSite {
			region, _ = SiteID(q.Region)
		}
		v.Set(s.Region, region)
	}
	if s.Page != "" {
		if s.Offset {
			v.Set(s.Page, strconv.Itoa((page-1)*pageSize))
		} else {
			v.Set(s.Page, strconv.Itoa(page))
		}
	}
	if s.Limit != "" && pageSize > 0 {
		v.Set(s.Limit, strconv.Itoa(pageSize))
	}
	if s.Sort != "" && q.Sort != "" {
		v.Set(s.Sort, string(q.Sort))
	}
	return v
}

// Combinations expands hosts, endpoints and schemas into the fixed probe
// order: host-major, then endpoint, then schema.
func Combinations(hosts, endpoints []string, schemas []Schema) []Combination {
	out := make([]Combination, 0, len(hosts)*len(endpoints)*len(schemas))
	for _, h := range hosts {
		for _, e := range endpoints {
			for _, s := range schemas {
				out = append(out, Combination{Host: h, Endpoint: e, Schema: s})
			}
		}
	}
	return out
}

var siteIDs = map[string]string{
	"ar": "MLA",
	"mx": "MLM",
	"br": "MLB",
	"co": "MCO",
	"cl": "MLC",
	"uy": "MLU",
	"pe": "MPE",
	"ve": "MLV",
	"ec": "MEC",
}

// SiteID maps a two-letter region to its marketplace site id.
func SiteID(region string) (string, bool) {
	id, ok := siteIDs[strings.ToLower(strings.TrimSpace(region))]
	return id, ok
}
