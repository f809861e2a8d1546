package marketplace

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sells-group/seller-scout/internal/model"
)

func TestCombinations_Order(t *testing.T) {
	schemas := DefaultSchemas()
	combos := Combinations([]string{"h1", "h2"}, []string{"/a", "/b"}, schemas)

	require.Len(t, combos, 2*2*len(schemas))
	assert.Equal(t, Combination{Host: "h1", Endpoint: "/a", Schema: schemas[0]}, combos[0])
	assert.Equal(t, Combination{Host: "h1", Endpoint: "/a", Schema: schemas[1]}, combos[1])
	assert.Equal(t, "h1", combos[len(schemas)].Host)
	assert.Equal(t, "/b", combos[len(schemas)].Endpoint)
	assert.Equal(t, "h2", combos[len(combos)-1].Host)
}

func TestCombination_Params(t *testing.T) {
	schemas := DefaultSchemas()
	q := model.SearchQuery{Term: "parlante", Region: "AR", Sort: model.SortPriceAsc}

	listings := Combination{Schema: schemas[0]}.Params(q, 2, 50)
	assert.Equal(t, "parlante", listings.Get("search_str"))
	assert.Equal(t, "ar", listings.Get("country"))
	assert.Equal(t, "2", listings.Get("page_num"))
	assert.Equal(t, "50", listings.Get("limit"))
	assert.Equal(t, "price_asc", listings.Get("sort_by"))

	official := Combination{Schema: schemas[1]}.Params(q, 3, 50)
	assert.Equal(t, "parlante", official.Get("q"))
	assert.Equal(t, "MLA", official.Get("site_id"))
	assert.Equal(t, "100", official.Get("offset"))

	keyword := Combination{Schema: schemas[3]}.Params(model.SearchQuery{Term: "x", Region: "mx"}, 1, 50)
	assert.Equal(t, "MLM", keyword.Get("site"))
	assert.Equal(t, "1", keyword.Get("page"))
	assert.False(t, keyword.Has("sort"))
}

func TestCombination_PathAndApplicable(t *testing.T) {
	c := Combination{Host: "h", Endpoint: "/sites/{site}/search", Schema: DefaultSchemas()[0]}
	assert.Equal(t, "/sites/MLB/search", c.Path("br"))
	assert.True(t, c.Applicable("br"))
	assert.False(t, c.Applicable("zz"))

	plain := Combination{Host: "h", Endpoint: "/search", Schema: DefaultSchemas()[0]}
	assert.Equal(t, "/search", plain.Path("zz"))
	assert.True(t, plain.Applicable("zz"))
}

func TestSiteID(t *testing.T) {
	id, ok := SiteID("AR")
	assert.True(t, ok)
	assert.Equal(t, "MLA", id)

	_, ok = SiteID("zz")
	assert.False(t, ok)
}
