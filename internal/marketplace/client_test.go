package marketplace

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"sync"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sells-group/seller-scout/internal/model"
	"github.com/sells-group/seller-scout/internal/resilience"
	"github.com/sells-group/seller-scout/pkg/rapidapi"
)

type call struct {
	host   string
	path   string
	params url.Values
}

type stubAPI struct {
	mu    sync.Mutex
	calls []call
	fn    func(c call) ([]byte, error)
}

func (s *stubAPI) Get(_ context.Context, host, path string, params url.Values) ([]byte, error) {
	c := call{host: host, path: path, params: params}
	s.mu.Lock()
	s.calls = append(s.calls, c)
	s.mu.Unlock()
	return s.fn(c)
}

func (s *stubAPI) count(host string) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	n := 0
	for _, c := range s.calls {
		if c.host == host {
			n++
		}
	}
	return n
}

func page(prefix string, n int, seller string) []byte {
	items := make([]string, n)
	for i := range items {
		items[i] = fmt.Sprintf(`{"id":"%s%d","title":"item %d","price":%d,"seller":{"nickname":%q}}`, prefix, i, i, 1000+i, seller)
	}
	return []byte(`{"results":[` + strings.Join(items, ",") + `]}`)
}

func noDelay() Options {
	return Options{MaxPages: 5, MinResults: 20, PageSize: 50, FailureThreshold: 3}
}

func TestSearch_FailingHostThenWorkingHost(t *testing.T) {
	bad := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer bad.Close()

	good := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "good.test", r.Header.Get("X-RapidAPI-Host"))
		_, _ = w.Write(page("MLM", 2, "TIENDA_MX"))
	}))
	defer good.Close()

	api := rapidapi.NewClient("key",
		rapidapi.WithPolicy(resilience.Policy{Attempts: 1}),
		rapidapi.WithResolver(func(host string) string {
			if host == "bad.test" {
				return bad.URL
			}
			return good.URL
		}),
	)
	c := New(api, Combinations([]string{"bad.test", "good.test"}, []string{"/search"}, DefaultSchemas()), noDelay())

	got := c.Search(context.Background(), model.SearchQuery{Term: "parlante", Region: "mx"})

	require.Len(t, got, 2)
	for _, l := range got {
		assert.Equal(t, "good.test", l.Source)
		assert.Equal(t, "TIENDA_MX", l.Seller.Nickname)
	}
	locked, ok := c.Locked()
	require.True(t, ok)
	assert.Equal(t, "good.test", locked.Host)
}

func TestSearch_AbandonsAfterFailureThreshold(t *testing.T) {
	api := &stubAPI{fn: func(c call) ([]byte, error) {
		if c.host == "bad" {
			return nil, resilience.StatusError("bad", 500, nil)
		}
		return page("A", 1, "S"), nil
	}}
	schemas := DefaultSchemas()[:1]
	c := New(api, Combinations([]string{"bad", "good"}, []string{"/search"}, schemas), noDelay())

	got := c.Search(context.Background(), model.SearchQuery{Term: "x", Region: "ar"})

	require.Len(t, got, 1)
	assert.Equal(t, 3, api.count("bad"))
	assert.Equal(t, 1, api.count("good"))
}

func TestSearch_LockedCombinationTriedFirst(t *testing.T) {
	api := &stubAPI{fn: func(c call) ([]byte, error) {
		if c.host == "bad" {
			return nil, resilience.StatusError("bad", 503, nil)
		}
		return page("A", 1, "S"), nil
	}}
	c := New(api, Combinations([]string{"bad", "good"}, []string{"/search"}, DefaultSchemas()[:1]), noDelay())

	c.Search(context.Background(), model.SearchQuery{Term: "x", Region: "ar"})
	before := api.count("bad")
	c.Search(context.Background(), model.SearchQuery{Term: "y", Region: "ar"})

	assert.Equal(t, before, api.count("bad"), "locked combination should skip re-probing")
	assert.Equal(t, 2, api.count("good"))
}

func TestSearch_PaginatesUntilMinResults(t *testing.T) {
	api := &stubAPI{fn: func(c call) ([]byte, error) {
		p := c.params.Get("page_num")
		return page("P"+p+"-", 10, "S"), nil
	}}
	opts := noDelay()
	opts.PageSize = 10
	opts.MinResults = 25
	c := New(api, Combinations([]string{"h"}, []string{"/s"}, DefaultSchemas()[:1]), opts)

	got := c.Search(context.Background(), model.SearchQuery{Term: "x", Region: "ar"})

	assert.Len(t, got, 30)
	assert.Equal(t, 3, api.count("h"))
}

func TestSearch_StopsOnShortPage(t *testing.T) {
	api := &stubAPI{fn: func(c call) ([]byte, error) {
		if c.params.Get("page_num") == "1" {
			return page("A", 50, "S"), nil
		}
		return page("B", 7, "S"), nil
	}}
	opts := noDelay()
	opts.MinResults = 500
	c := New(api, Combinations([]string{"h"}, []string{"/s"}, DefaultSchemas()[:1]), opts)

	got := c.Search(context.Background(), model.SearchQuery{Term: "x", Region: "ar"})

	assert.Len(t, got, 57)
	assert.Equal(t, 2, api.count("h"))
}

func TestSearch_DeduplicatesAcrossPages(t *testing.T) {
	api := &stubAPI{fn: func(_ call) ([]byte, error) {
		return page("SAME", 5, "S"), nil
	}}
	opts := noDelay()
	opts.PageSize = 5
	c := New(api, Combinations([]string{"h"}, []string{"/s"}, DefaultSchemas()[:1]), opts)

	got := c.Search(context.Background(), model.SearchQuery{Term: "x", Region: "ar"})

	assert.Len(t, got, 5)
	assert.Equal(t, 5, api.count("h"))
}

func TestSearch_TotalFailureIsEmpty(t *testing.T) {
	api := &stubAPI{fn: func(_ call) ([]byte, error) {
		return []byte(`<html>`), nil
	}}
	c := New(api, Combinations([]string{"h1", "h2"}, []string{"/s"}, DefaultSchemas()), noDelay())

	got := c.Search(context.Background(), model.SearchQuery{Term: "x", Region: "ar"})

	require.NotNil(t, got)
	assert.Empty(t, got)
	_, locked := c.Locked()
	assert.False(t, locked)
}

func TestSearch_PlaceholderOnlyListingsReturned(t *testing.T) {
	api := &stubAPI{fn: func(_ call) ([]byte, error) {
		return []byte(`{"results":[{"id":"X1","title":"a"},{"id":"X2","title":"b"}]}`), nil
	}}
	c := New(api, Combinations([]string{"h"}, []string{"/s"}, DefaultSchemas()[:1]), noDelay())

	got := c.Search(context.Background(), model.SearchQuery{Term: "x", Region: "ar"})

	require.Len(t, got, 2)
	assert.True(t, got[0].Seller.Placeholder)
	_, locked := c.Locked()
	assert.False(t, locked)
}

func TestSearch_SkipsSiteCombinationsForUnknownRegion(t *testing.T) {
	var sawSite atomic.Bool
	api := &stubAPI{fn: func(c call) ([]byte, error) {
		if c.params.Has("site_id") || c.params.Has("site") {
			sawSite.Store(true)
		}
		return nil, resilience.StatusError("h", 404, nil)
	}}
	c := New(api, Combinations([]string{"h"}, []string{"/s"}, DefaultSchemas()), noDelay())

	c.Search(context.Background(), model.SearchQuery{Term: "x", Region: "zz"})

	assert.False(t, sawSite.Load())
}

func TestSearch_CanceledContext(t *testing.T) {
	api := &stubAPI{fn: func(_ call) ([]byte, error) {
		return page("A", 1, "S"), nil
	}}
	c := New(api, Combinations([]string{"h"}, []string{"/s"}, DefaultSchemas()), noDelay())

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	got := c.Search(ctx, model.SearchQuery{Term: "x", Region: "ar"})

	assert.Empty(t, got)
	assert.Equal(t, 0, api.count("h"))
}

func TestSearch_SkipsHostAfterTransientFailures(t *testing.T) {
	api := &stubAPI{fn: func(c call) ([]byte, error) {
		if c.host == "down" {
			return nil, resilience.StatusError("down", 503, nil)
		}
		return page("A", 1, "S"), nil
	}}
	combos := Combinations([]string{"down", "up"}, []string{"/a", "/b"}, DefaultSchemas())
	c := New(api, combos, noDelay())

	got := c.Search(context.Background(), model.SearchQuery{Term: "x", Region: "ar"})

	require.Len(t, got, 1)
	assert.Equal(t, 3, api.count("down"), "a host failing at the transport level is not re-probed through other combinations")
	assert.Equal(t, 1, api.count("up"))
}

func TestSearch_NonTransientErrorsKeepHost(t *testing.T) {
	api := &stubAPI{fn: func(c call) ([]byte, error) {
		if c.path == "/a" {
			return nil, resilience.StatusError("h", 404, nil)
		}
		return page("A", 1, "S"), nil
	}}
	c := New(api, Combinations([]string{"h"}, []string{"/a", "/b"}, DefaultSchemas()[:1]), noDelay())

	got := c.Search(context.Background(), model.SearchQuery{Term: "x", Region: "ar"})

	require.Len(t, got, 1)
	assert.Equal(t, 4, api.count("h"))
}

func TestSearch_ProbeBudget(t *testing.T) {
	api := &stubAPI{fn: func(_ call) ([]byte, error) {
		return []byte(`<html>`), nil
	}}
	opts := noDelay()
	opts.MaxProbes = 7
	c := New(api, Combinations([]string{"h1", "h2"}, []string{"/s"}, DefaultSchemas()), opts)

	got := c.Search(context.Background(), model.SearchQuery{Term: "x", Region: "ar"})

	assert.Empty(t, got)
	assert.Equal(t, 7, api.count("h1")+api.count("h2"))
}
