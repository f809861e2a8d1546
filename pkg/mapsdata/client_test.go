package mapsdata

import (
	"context"
	"errors"
	"net/url"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sells-group/seller-scout/internal/resilience"
)

type stubAPI struct {
	host   string
	path   string
	params url.Values
	body   string
	err    error
}

func (s *stubAPI) Get(_ context.Context, host, path string, params url.Values) ([]byte, error) {
	s.host, s.path, s.params = host, path, params
	return []byte(s.body), s.err
}

func TestSearch_DataShape(t *testing.T) {
	api := &stubAPI{body: `{"status":"OK","data":[
		{"business_id":"0x1","name":"Tienda de Juan","phone_number":"+54 11 1234-5678",
		 "full_address":"Av. Corrientes 1234, CABA","rating":4.6,"review_count":88,
		 "website":"https://tiendadejuan.com","place_link":"https://maps.google.com/?cid=1"},
		{"name":"","phone_number":"x"}
	]}`}
	c := NewClient(api)

	resp, err := c.Search(context.Background(), "Tienda de Juan", "AR")
	require.NoError(t, err)

	assert.Equal(t, "maps-data.p.rapidapi.com", api.host)
	assert.Equal(t, "/searchmaps.php", api.path)
	assert.Equal(t, "ar", api.params.Get("country"))
	assert.True(t, resp.OK())
	require.Len(t, resp.Places, 1)
	p := resp.Places[0]
	assert.Equal(t, "0x1", p.ID)
	assert.Equal(t, "+54 11 1234-5678", p.Phone)
	assert.Equal(t, "Av. Corrientes 1234, CABA", p.Address)
	assert.InDelta(t, 4.6, p.Rating, 0.001)
	assert.Equal(t, 88, p.Reviews)
	assert.Equal(t, "https://maps.google.com/?cid=1", p.Link)
}

func TestSearch_ResultsShape(t *testing.T) {
	api := &stubAPI{body: `{"results":[{"id":"a","name":"Shop","phone":"011 4444-5555","address":"Calle 1","reviews":3,"link":"l"}]}`}
	resp, err := NewClient(api, WithHost("alt.p.rapidapi.com")).Search(context.Background(), "Shop", "")
	require.NoError(t, err)

	assert.Equal(t, "alt.p.rapidapi.com", api.host)
	assert.False(t, api.params.Has("country"))
	require.Len(t, resp.Places, 1)
	assert.Equal(t, 3, resp.Places[0].Reviews)
	assert.Equal(t, "Calle 1", resp.Places[0].Address)
}

func TestSearch_NonOKStatus(t *testing.T) {
	api := &stubAPI{body: `{"status":"ERROR","data":[]}`}
	resp, err := NewClient(api).Search(context.Background(), "x", "ar")
	require.NoError(t, err)
	assert.False(t, resp.OK())
}

func TestSearch_InvalidJSON(t *testing.T) {
	api := &stubAPI{body: `<html>rate limited</html>`}
	_, err := NewClient(api).Search(context.Background(), "x", "ar")
	require.Error(t, err)
	var pe *resilience.ParseError
	assert.True(t, errors.As(err, &pe))
}

func TestSearch_TransportError(t *testing.T) {
	api := &stubAPI{err: errors.New("boom")}
	_, err := NewClient(api).Search(context.Background(), "x", "ar")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "mapsdata: search")
}
