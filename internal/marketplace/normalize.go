package marketplace

import (
	"regexp"
	"strconv"
	"strings"

	"github.com/tidwall/gjson"

	"github.com/sells-group/seller-scout/internal/model"
)

// Field aliases observed across provider contracts, in priority order.
var (
	idPaths        = []string{"id", "item_id", "itemId", "product_id", "productId", "mlid"}
	titlePaths     = []string{"title", "name", "product_name"}
	pricePaths     = []string{"price", "current_price", "sale_price", "amount"}
	currencyPaths  = []string{"currency_id", "currency", "price.currency"}
	permalinkPaths = []string{"permalink", "url", "link", "product_url"}
	thumbnailPaths = []string{"thumbnail", "thumbnail_url", "image", "picture"}
	conditionPaths = []string{"condition", "item_condition"}
	soldPaths      = []string{"sold_quantity", "sold", "sales"}
	availablePaths = []string{"available_quantity", "stock"}
	sellerPaths    = []string{"seller", "vendor", "store", "merchant", "seller_info", "seller_name"}
	nicknamePaths  = []string{"nickname", "nick_name", "name", "eshop.nick_name"}

	// Locations of the results array, tried after a bare root array.
	resultPaths = []string{"results", "data.results", "data.items", "data", "items", "products"}
)

var (
	sellerPrefix = regexp.MustCompile(`(?i)^\s*por\s+`)
	// Store and profile paths carry the seller nickname in the permalink.
	permalinkSeller = []*regexp.Regexp{
		regexp.MustCompile(`(?i)/(?:tienda|perfil|pagina)/([a-z0-9][a-z0-9_.\-]*)`),
		regexp.MustCompile(`(?i)^https?://([a-z0-9][a-z0-9\-]*)\.mercadoshops\.com`),
	}
	nonNumeric = regexp.MustCompile(`[^0-9.,\-]`)
)

// ExtractItems locates the array of result items in a provider payload. A
// payload that is valid JSON but carries no recognizable array yields nil.
func ExtractItems(root gjson.Result) []gjson.Result {
	if root.IsArray() {
		return root.Array()
	}
	for _, p := range resultPaths {
		if r := root.Get(p); r.IsArray() {
			return r.Array()
		}
	}
	// Some contracts nest the list beside a paging object under an
	// unpredictable key; take the first array of objects.
	var found []gjson.Result
	root.ForEach(func(_, v gjson.Result) bool {
		if v.IsArray() && len(v.Array()) > 0 && v.Array()[0].IsObject() {
			found = v.Array()
			return false
		}
		return true
	})
	return found
}

// NormalizeRaw converts one raw item into a Listing. It reports false for items
// lacking both title and id.
func NormalizeRaw(item gjson.Result) (model.Listing, bool) {
	l := model.Listing{
		ID:                firstString(item, idPaths...),
		Title:             firstString(item, titlePaths...),
		Price:             parsePrice(firstResult(item, pricePaths...)),
		Currency:          firstString(item, currencyPaths...),
		Condition:         model.ParseCondition(firstString(item, conditionPaths...)),
		SoldQuantity:      int(firstResult(item, soldPaths...).Int()),
		AvailableQuantity: int(firstResult(item, availablePaths...).Int()),
		Permalink:         firstString(item, permalinkPaths...),
		Thumbnail:         firstString(item, thumbnailPaths...),
		Shipping:          parseShipping(item),
	}
	if l.ID == "" && l.Title == "" {
		return model.Listing{}, false
	}
	l.Seller = sellerIdentity(firstResult(item, sellerPaths...), l.Permalink, l.ID)
	return NormalizeListing(l), true
}

// NormalizeListing brings a typed Listing to canonical form. It is a fixpoint:
// applying it to its own output changes nothing.
func NormalizeListing(l model.Listing) model.Listing {
	l.ID = strings.TrimSpace(l.ID)
	l.Title = strings.TrimSpace(l.Title)
	if l.Price < 0 {
		l.Price = 0
	}
	if l.SoldQuantity < 0 {
		l.SoldQuantity = 0
	}
	if l.AvailableQuantity < 0 {
		l.AvailableQuantity = 0
	}
	l.Condition = model.ParseCondition(string(l.Condition))

	if !l.Seller.Placeholder {
		l.Seller.Nickname = stripSellerPrefix(l.Seller.Nickname)
	}
	if l.Seller.Nickname == "" {
		l.Seller = placeholderSeller(l.Seller, l.ID)
	}
	return l
}

// sellerIdentity applies the fixed priority chain: nested object, "Por "
// string, permalink pattern, placeholder from the listing id.
func sellerIdentity(raw gjson.Result, permalink, listingID string) model.SellerIdentity {
	var s model.SellerIdentity

	switch {
	case raw.IsObject():
		if id := raw.Get("id"); id.Exists() {
			if n, err := strconv.ParseInt(id.String(), 10, 64); err == nil {
				s.ID = &n
			}
		}
		s.Nickname = stripSellerPrefix(firstString(raw, nicknamePaths...))
		if rep := raw.Get("seller_reputation"); rep.IsObject() {
			s.Reputation = &model.Reputation{
				LevelID:   rep.Get("level_id").String(),
				Completed: int(rep.Get("transactions.completed").Int()),
			}
		}
	case raw.Type == gjson.String:
		s.Nickname = stripSellerPrefix(raw.String())
	}

	if s.Nickname == "" {
		s.Nickname = sellerFromPermalink(permalink)
	}
	if s.Nickname == "" {
		s = placeholderSeller(s, listingID)
	}
	return s
}

func stripSellerPrefix(name string) string {
	name = strings.TrimSpace(name)
	for sellerPrefix.MatchString(name) {
		name = sellerPrefix.ReplaceAllString(name, "")
	}
	return name
}

func sellerFromPermalink(permalink string) string {
	for _, re := range permalinkSeller {
		if m := re.FindStringSubmatch(permalink); m != nil {
			return m[1]
		}
	}
	return ""
}

// placeholderSeller derives a deterministic, obviously synthetic nickname.
// Without a listing id the nickname stays empty.
func placeholderSeller(s model.SellerIdentity, listingID string) model.SellerIdentity {
	if listingID == "" {
		s.Nickname = ""
		s.Placeholder = false
		return s
	}
	s.Nickname = "seller:" + listingID
	s.Placeholder = true
	return s
}

func parseShipping(item gjson.Result) *model.Shipping {
	sh := item.Get("shipping")
	switch {
	case sh.IsObject():
		out := &model.Shipping{
			Free:         sh.Get("free_shipping").Bool(),
			Fast:         sh.Get("fast_shipping").Bool(),
			LogisticType: sh.Get("logistic_type").String(),
			Mode:         sh.Get("mode").String(),
		}
		// Fulfillment and Mercado Envios modes ship expedited.
		if out.LogisticType == "fulfillment" || out.Mode == "me2" {
			out.Fast = true
		}
		return out
	case sh.IsBool():
		return &model.Shipping{Free: sh.Bool()}
	}
	if free := item.Get("free_shipping"); free.IsBool() {
		return &model.Shipping{Free: free.Bool()}
	}
	return nil
}

// parsePrice reads a numeric price from a number, an object with an amount,
// or a localized string. Anything unparseable is 0.
func parsePrice(r gjson.Result) float64 {
	switch {
	case r.Type == gjson.Number:
		return clampPrice(r.Float())
	case r.IsObject():
		return parsePrice(firstResult(r, "amount", "value", "current"))
	case r.Type == gjson.String:
		return ParsePriceString(r.String())
	}
	return 0
}

// ParsePriceString parses a localized price such as "$ 1.234,56", "1,234.56",
// or "12.500". A lone separator followed by exactly three digits is a
// thousands separator; otherwise it is the decimal mark.
func ParsePriceString(s string) float64 {
	s = nonNumeric.ReplaceAllString(s, "")
	if s == "" {
		return 0
	}

	lastDot := strings.LastIndex(s, ".")
	lastComma := strings.LastIndex(s, ",")
	switch {
	case lastDot >= 0 && lastComma >= 0:
		if lastComma > lastDot {
			s = strings.ReplaceAll(s, ".", "")
			s = strings.Replace(s, ",", ".", 1)
		} else {
			s = strings.ReplaceAll(s, ",", "")
		}
	case lastComma >= 0:
		s = normalizeSingleSeparator(s, ",")
	case lastDot >= 0:
		s = normalizeSingleSeparator(s, ".")
	}

	v, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0
	}
	return clampPrice(v)
}

func normalizeSingleSeparator(s, sep string) string {
	if strings.Count(s, sep) > 1 {
		return strings.ReplaceAll(s, sep, "")
	}
	i := strings.Index(s, sep)
	if len(s)-i-1 == 3 {
		return strings.Replace(s, sep, "", 1)
	}
	return strings.Replace(s, sep, ".", 1)
}

func clampPrice(v float64) float64 {
	if v < 0 {
		return 0
	}
	return v
}

func firstResult(item gjson.Result, paths ...string) gjson.Result {
	for _, p := range paths {
		if r := item.Get(p); r.Exists() && r.Type != gjson.Null {
			return r
		}
	}
	return gjson.Result{}
}

func firstString(item gjson.Result, paths ...string) string {
	for _, p := range paths {
		r := item.Get(p)
		if r.Type == gjson.String || r.Type == gjson.Number {
			if s := strings.TrimSpace(r.String()); s != "" {
				return s
			}
		}
	}
	return ""
}
