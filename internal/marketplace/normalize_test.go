package marketplace

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tidwall/gjson"

	"github.com/sells-group/seller-scout/internal/model"
)

func TestNormalizeRaw_SellerObject(t *testing.T) {
	item := gjson.Parse(`{
		"id": "MLA1",
		"title": "  Parlante bluetooth ",
		"price": 15000,
		"currency_id": "ARS",
		"condition": "new",
		"sold_quantity": 42,
		"available_quantity": 3,
		"permalink": "https://articulo.mercadolibre.com.ar/MLA-1",
		"shipping": {"free_shipping": true, "logistic_type": "fulfillment"},
		"seller": {"id": 991, "nickname": "TIENDA_JUAN", "seller_reputation": {"level_id": "5_green", "transactions": {"completed": 1200}}}
	}`)

	l, ok := NormalizeRaw(item)
	require.True(t, ok)
	assert.Equal(t, "MLA1", l.ID)
	assert.Equal(t, "Parlante bluetooth", l.Title)
	assert.Equal(t, 15000.0, l.Price)
	assert.Equal(t, model.ConditionNew, l.Condition)
	assert.Equal(t, 42, l.SoldQuantity)
	require.NotNil(t, l.Shipping)
	assert.True(t, l.Shipping.Free)
	assert.True(t, l.Shipping.Fast)

	assert.Equal(t, "TIENDA_JUAN", l.Seller.Nickname)
	require.NotNil(t, l.Seller.ID)
	assert.Equal(t, int64(991), *l.Seller.ID)
	require.NotNil(t, l.Seller.Reputation)
	assert.Equal(t, "5_green", l.Seller.Reputation.LevelID)
	assert.Equal(t, 1200, l.Seller.Reputation.Completed)
	assert.True(t, l.Seller.Identifiable())
}

func TestNormalizeRaw_SellerChain(t *testing.T) {
	tests := []struct {
		name        string
		raw         string
		nickname    string
		placeholder bool
	}{
		{"por prefix string", `{"id":"A1","title":"x","seller":"Por Tienda de Juan"}`, "Tienda de Juan", false},
		{"vendor alias", `{"id":"A2","title":"x","vendor":"Electro Sur"}`, "Electro Sur", false},
		{"eshop nick", `{"id":"A3","title":"x","seller":{"id":5,"eshop":{"nick_name":"ESHOP1"}}}`, "ESHOP1", false},
		{"permalink tienda", `{"id":"A4","title":"x","permalink":"https://www.mercadolibre.com.ar/tienda/audiomax"}`, "audiomax", false},
		{"permalink mercadoshops", `{"id":"A5","title":"x","url":"https://sonidopro.mercadoshops.com.ar/item"}`, "sonidopro", false},
		{"placeholder", `{"id":"A6","title":"x","seller":{}}`, "seller:A6", true},
		{"no id no seller", `{"title":"x"}`, "", false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			l, ok := NormalizeRaw(gjson.Parse(tt.raw))
			require.True(t, ok)
			assert.Equal(t, tt.nickname, l.Seller.Nickname)
			assert.Equal(t, tt.placeholder, l.Seller.Placeholder)
		})
	}
}

func TestNormalizeRaw_Aliases(t *testing.T) {
	l, ok := NormalizeRaw(gjson.Parse(`{"item_id":"B1","name":"Auriculares","price":"$ 1.234,56","link":"https://x","shipping":true,"seller":"Por Audio"}`))
	require.True(t, ok)
	assert.Equal(t, "B1", l.ID)
	assert.Equal(t, "Auriculares", l.Title)
	assert.InDelta(t, 1234.56, l.Price, 1e-9)
	assert.Equal(t, "https://x", l.Permalink)
	require.NotNil(t, l.Shipping)
	assert.True(t, l.Shipping.Free)
	assert.Equal(t, model.ConditionNotSpecified, l.Condition)
}

func TestNormalizeRaw_DropsEmptyItem(t *testing.T) {
	_, ok := NormalizeRaw(gjson.Parse(`{"price": 10}`))
	assert.False(t, ok)
}

func TestNormalizeListing_Idempotent(t *testing.T) {
	raws := []string{
		`{"id":"A1","title":"x","seller":"Por Por Tienda"}`,
		`{"id":"A2","title":" y ","price":-5,"seller":{}}`,
		`{"id":"A3","title":"z","condition":"usado","seller":{"nickname":"SHOP"}}`,
	}
	for _, raw := range raws {
		once, ok := NormalizeRaw(gjson.Parse(raw))
		require.True(t, ok)
		assert.Equal(t, once, NormalizeListing(once), raw)
	}
}

func TestNormalizeListing_TypedInput(t *testing.T) {
	l := NormalizeListing(model.Listing{
		ID:        "C1",
		Title:     "t",
		Price:     -1,
		Condition: "Nuevo",
		Seller:    model.SellerIdentity{Nickname: "Por  Juan"},
	})
	assert.Equal(t, 0.0, l.Price)
	assert.Equal(t, model.ConditionNew, l.Condition)
	assert.Equal(t, "Juan", l.Seller.Nickname)
	assert.Equal(t, l, NormalizeListing(l))
}

func TestParsePriceString(t *testing.T) {
	tests := []struct {
		in   string
		want float64
	}{
		{"$ 1.234,56", 1234.56},
		{"1,234.56", 1234.56},
		{"12.500", 12500},
		{"1.234.567", 1234567},
		{"12,5", 12.5},
		{"99.90", 99.9},
		{"$ 15000", 15000},
		{"", 0},
		{"gratis", 0},
		{"-300", 0},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			assert.InDelta(t, tt.want, ParsePriceString(tt.in), 1e-9)
		})
	}
}

func TestParsePrice_Object(t *testing.T) {
	l, ok := NormalizeRaw(gjson.Parse(`{"id":"P1","price":{"amount":250.5,"currency":"MXN"}}`))
	require.True(t, ok)
	assert.Equal(t, 250.5, l.Price)
	assert.Equal(t, "MXN", l.Currency)
}

func TestExtractItems(t *testing.T) {
	tests := []struct {
		name string
		body string
		want int
	}{
		{"root array", `[{"id":"1"},{"id":"2"}]`, 2},
		{"results", `{"results":[{"id":"1"}]}`, 1},
		{"data.results", `{"data":{"results":[{"id":"1"},{"id":"2"},{"id":"3"}]}}`, 3},
		{"data array", `{"data":[{"id":"1"}]}`, 1},
		{"products", `{"products":[{"id":"1"}]}`, 1},
		{"unknown key", `{"paging":{"total":1},"listing_items":[{"id":"1"}]}`, 1},
		{"no array", `{"message":"rate limited"}`, 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Len(t, ExtractItems(gjson.Parse(tt.body)), tt.want)
		})
	}
}
