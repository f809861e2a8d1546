package card

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sells-group/seller-scout/internal/model"
)

func sampleProduct() model.RankedListing {
	rec := model.ContactRecord{}
	rec.Set(model.FieldPhone, "+5491112345678", "web:customsearch")
	rec.Set(model.FieldEmail, "contacto@tiendadejuan.com", "web:customsearch")
	rec.Set(model.FieldAddress, "Av. Corrientes 1234", "places:mapsdata")
	return model.RankedListing{
		Listing: model.Listing{
			ID:           "MLA1",
			Title:        "Parlante *Bluetooth* [20W]",
			Price:        12500,
			Currency:     "ARS",
			Condition:    model.ConditionNew,
			SoldQuantity: 40,
			Seller:       model.SellerIdentity{Nickname: "TIENDA_DE_JUAN"},
			Permalink:    "https://articulo.mercadolibre.com.ar/MLA-1",
		},
		Score:        0.8123,
		Contact:      &rec,
		WhatsAppLink: "https://wa.me/5491112345678",
	}
}

func TestNew(t *testing.T) {
	for _, s := range []string{"", "plain", "TEXT", "markdown", "md"} {
		_, err := New(s, "ar")
		assert.NoError(t, err, s)
	}
	_, err := New("html", "ar")
	assert.Error(t, err)
}

func TestProduct_Plain(t *testing.T) {
	f, err := New("plain", "ar")
	require.NoError(t, err)

	out := f.Product(1, sampleProduct())

	assert.True(t, strings.HasPrefix(out, "1. Parlante *Bluetooth* [20W]\n"))
	assert.Contains(t, out, "Price: ARS ")
	assert.Contains(t, out, "Score: 0.812")
	assert.Contains(t, out, "Seller: TIENDA_DE_JUAN")
	assert.Contains(t, out, "Phone: +5491112345678 (WhatsApp: https://wa.me/5491112345678)")
	assert.Contains(t, out, "Email: contacto@tiendadejuan.com")
	assert.Contains(t, out, "Address: Av. Corrientes 1234")
	assert.NotContains(t, out, "Website:")
}

func TestProduct_Markdown(t *testing.T) {
	f, err := New("markdown", "ar")
	require.NoError(t, err)

	out := f.Product(2, sampleProduct())

	assert.Contains(t, out, `### 2. [Parlante \*Bluetooth\* \[20W\]](https://articulo.mercadolibre.com.ar/MLA-1)`)
	assert.Contains(t, out, `- **Seller:** TIENDA\_DE\_JUAN`)
	assert.Contains(t, out, "- **Phone:** +5491112345678 ([WhatsApp](https://wa.me/5491112345678))")
	assert.Contains(t, out, "- **Email:** contacto@tiendadejuan.com")
}

func TestProduct_NoContactAndNoPrice(t *testing.T) {
	f, err := New("plain", "mx")
	require.NoError(t, err)

	p := sampleProduct()
	p.Price = 0
	p.Contact = &model.ContactRecord{}
	out := f.Product(1, p)
	assert.Contains(t, out, "Price: n/a")
	assert.Contains(t, out, "No contact found.")

	p.Contact = nil
	assert.NotContains(t, f.Product(1, p), "No contact found.")
}

func TestContact(t *testing.T) {
	f, err := New("markdown", "ar")
	require.NoError(t, err)

	out := f.Contact("Audio Sur", model.ContactRecord{SocialURL: "https://instagram.com/audiosur"})
	assert.Equal(t, "### Audio Sur\n\n- **Social:** https://instagram.com/audiosur\n", out)

	out = f.Contact("Nadie", model.ContactRecord{})
	assert.Equal(t, "### Nadie\n\n- _No contact found._\n", out)
}

func TestResult(t *testing.T) {
	f, err := New("plain", "ar")
	require.NoError(t, err)

	res := &model.Result{
		Status:   model.StatusOK,
		Message:  "found 1 products, 1 with contact data",
		Query:    "parlante",
		Region:   "ar",
		Products: []model.RankedListing{sampleProduct()},
	}
	out := f.Result(res)
	assert.True(t, strings.HasPrefix(out, "parlante (AR): found 1 products, 1 with contact data\n\n1. "))
}

func TestRegionTag(t *testing.T) {
	assert.Equal(t, "es-AR", regionTag("ar").String())
	assert.Equal(t, "es", regionTag("").String())
}
