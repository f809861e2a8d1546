package contact

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/sells-group/seller-scout/internal/cache"
	"github.com/sells-group/seller-scout/internal/model"
	"github.com/sells-group/seller-scout/internal/resilience"
	"github.com/sells-group/seller-scout/pkg/google"
	"github.com/sells-group/seller-scout/pkg/google/mocks"
	"github.com/sells-group/seller-scout/pkg/mapsdata"
)

type stubMaps struct {
	calls atomic.Int32
	query string
	resp  *mapsdata.SearchResponse
	err   error
}

func (s *stubMaps) Search(_ context.Context, query, _ string) (*mapsdata.SearchResponse, error) {
	s.calls.Add(1)
	s.query = query
	return s.resp, s.err
}

func memCache(t *testing.T) cache.Cache {
	t.Helper()
	return cache.New(context.Background(), cache.Options{Prefix: "test:", DefaultTTL: time.Hour})
}

func TestPlaces_PrimaryHitIsCached(t *testing.T) {
	primary := &stubMaps{resp: &mapsdata.SearchResponse{Status: "OK", Places: []mapsdata.Place{
		{Name: "Tienda de Juan", Phone: "+54 11 4444-5555", Address: "Av. Corrientes 1234", Website: "https://tiendadejuan.com", Link: "https://maps.google.com/?cid=1"},
		{Name: "Otra", Address: "Calle 2"},
		{Name: "Tercera"},
		{Name: "Cuarta"},
	}}}
	c := memCache(t)
	p := NewPlacesResolver(primary, nil, nil, c, PlacesOptions{Region: "ar", MaxResults: 3})

	found, err := p.Lookup(context.Background(), "TIENDA_DE_JUAN_TiendaOficial")
	require.NoError(t, err)
	require.Len(t, found, 3)
	assert.Equal(t, "TIENDA DE JUAN", primary.query)
	assert.Equal(t, ProviderMapsData, found[0].Provider)

	again, err := p.Lookup(context.Background(), "TIENDA_DE_JUAN_TiendaOficial")
	require.NoError(t, err)
	assert.Equal(t, found, again)
	assert.Equal(t, int32(1), primary.calls.Load())

	var cached []model.Business
	assert.True(t, c.Get(context.Background(), CacheKey("ar", "TIENDA_DE_JUAN_TiendaOficial"), &cached))
	assert.False(t, c.Get(context.Background(), CacheKey("mx", "TIENDA_DE_JUAN_TiendaOficial"), &cached))
}

func TestPlaces_FallbackOnEmptyPrimary(t *testing.T) {
	primary := &stubMaps{resp: &mapsdata.SearchResponse{Status: "OK"}}
	fallback := mocks.NewMockClient(t)
	fallback.On("TextSearch", mock.Anything, google.TextSearchRequest{
		TextQuery: "Audio Sur", LanguageCode: "es", RegionCode: "AR", PageSize: 3,
	}).Return(&google.TextSearchResponse{Places: []google.Place{{
		ID:               "abc",
		DisplayName:      google.DisplayName{Text: "Audio Sur"},
		FormattedAddress: "San Martín 50, Córdoba",
		WebsiteURI:       "https://audiosur.com.ar",
	}}}, nil)

	p := NewPlacesResolver(primary, fallback, nil, memCache(t), PlacesOptions{Region: "ar", Language: "es"})
	rec, err := p.Resolve(context.Background(), "Audio_Sur")

	require.NoError(t, err)
	assert.Equal(t, "San Martín 50, Córdoba", rec.Address)
	assert.Equal(t, "https://audiosur.com.ar", rec.Website)
	assert.Equal(t, "https://www.google.com/maps/place/?q=place_id:abc", rec.PlaceLink)
	assert.Equal(t, "places:"+ProviderGooglePlaces, rec.Sources[model.FieldAddress])
}

func TestPlaces_FallbackOnPrimaryNotOK(t *testing.T) {
	primary := &stubMaps{resp: &mapsdata.SearchResponse{Status: "error", Places: []mapsdata.Place{{Name: "ignored"}}}}
	fallback := mocks.NewMockClient(t)
	fallback.On("TextSearch", mock.Anything, mock.Anything).
		Return(&google.TextSearchResponse{Places: []google.Place{{DisplayName: google.DisplayName{Text: "Real"}}}}, nil)

	p := NewPlacesResolver(primary, fallback, nil, nil, PlacesOptions{Region: "ar"})
	found, err := p.Lookup(context.Background(), "X")

	require.NoError(t, err)
	require.Len(t, found, 1)
	assert.Equal(t, "Real", found[0].Name)
}

func TestPlaces_BothFail(t *testing.T) {
	primary := &stubMaps{err: resilience.StatusError("mapsdata", 503, nil)}
	fallback := mocks.NewMockClient(t)
	fallback.On("TextSearch", mock.Anything, mock.Anything).Return(nil, errors.New("down"))

	p := NewPlacesResolver(primary, fallback, nil, memCache(t), PlacesOptions{Region: "ar"})
	_, err := p.Lookup(context.Background(), "X")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "down")
}

func TestPlaces_NothingFoundIsNotCached(t *testing.T) {
	primary := &stubMaps{resp: &mapsdata.SearchResponse{Status: "OK"}}
	p := NewPlacesResolver(primary, nil, nil, memCache(t), PlacesOptions{Region: "ar"})

	for range 2 {
		found, err := p.Lookup(context.Background(), "Nadie")
		require.NoError(t, err)
		assert.Empty(t, found)
	}
	assert.Equal(t, int32(2), primary.calls.Load())
}

func TestPlaces_BreakerSkipsPrimary(t *testing.T) {
	primary := &stubMaps{err: resilience.StatusError("mapsdata", 500, nil)}
	fallback := mocks.NewMockClient(t)
	fallback.On("TextSearch", mock.Anything, mock.Anything).
		Return(&google.TextSearchResponse{}, nil)

	p := NewPlacesResolver(primary, fallback, resilience.NewBreaker(2, time.Hour), nil, PlacesOptions{Region: "ar"})
	for range 4 {
		_, _ = p.Lookup(context.Background(), "X")
	}
	assert.Equal(t, int32(2), primary.calls.Load())
	fallback.AssertNumberOfCalls(t, "TextSearch", 4)
}

func TestPlaces_EmptyName(t *testing.T) {
	primary := &stubMaps{}
	found, err := NewPlacesResolver(primary, nil, nil, nil, PlacesOptions{}).Lookup(context.Background(), "__")
	require.NoError(t, err)
	assert.Nil(t, found)
	assert.Equal(t, int32(0), primary.calls.Load())
}

func TestRecordFromBusinesses(t *testing.T) {
	rec := RecordFromBusinesses(PlanFor("ar"), []model.Business{
		{Name: "A", Address: "Calle 1", Provider: ProviderMapsData},
		{Name: "B", Phone: "+54 11 4444-5555", Address: "Calle 2", Website: "https://b.com", Provider: ProviderMapsData},
	})
	assert.Equal(t, "Calle 1", rec.Address)
	assert.Equal(t, "+541144445555", rec.Phone)
	assert.Equal(t, "https://b.com", rec.Website)
	assert.Empty(t, rec.Email)
}

func TestRecordFromBusinesses_NationalPhones(t *testing.T) {
	tests := []struct {
		phone string
		want  string
	}{
		{"011 4567-8900", "+541145678900"},
		{"(0351) 422-1100", "+543514221100"},
		{"4567-8900", "+541145678900"},
		{"011 15 4567-8900", "+5491145678900"},
		{"+54 9 11 4567-8900", "+5491145678900"},
		{"int. 22", ""},
	}
	for _, tt := range tests {
		t.Run(tt.phone, func(t *testing.T) {
			rec := RecordFromBusinesses(PlanFor("ar"), []model.Business{{Name: "A", Phone: tt.phone, Provider: ProviderGooglePlaces}})
			assert.Equal(t, tt.want, rec.Phone)
		})
	}
}

func TestPlaces_NationalPhoneGetsCountryCode(t *testing.T) {
	primary := &stubMaps{resp: &mapsdata.SearchResponse{Status: "OK", Places: []mapsdata.Place{
		{Name: "Audio Sur", Phone: "011 4567-8900", Address: "Calle 1"},
	}}}
	p := NewPlacesResolver(primary, nil, nil, nil, PlacesOptions{Region: "ar"})

	rec, err := p.Resolve(context.Background(), "Audio_Sur")
	require.NoError(t, err)

	got := Merge(model.ContactRecord{}, rec)
	assert.Equal(t, "+541145678900", got.Phone)
	assert.Equal(t, "https://wa.me/541145678900", WhatsAppLink(got.Phone, ""))
}

func TestCleanSellerName(t *testing.T) {
	tests := map[string]string{
		"TIENDA_DE_JUAN_TiendaOficial": "TIENDA DE JUAN",
		"ElectroSur_Store":             "ElectroSur",
		"audio.max_ML":                 "audio max",
		"Peña-Hogar_Argentina":         "Peña Hogar",
		"MUEBLES_OFICIAL_SHOP":         "MUEBLES",
		"  ":                           "",
		"_ml":                          "ml",
	}
	for in, want := range tests {
		assert.Equal(t, want, CleanSellerName(in), in)
	}
}
