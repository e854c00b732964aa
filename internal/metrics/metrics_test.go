package metrics

import (
	"io"
	"net/http/httptest"
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRecorders(t *testing.T) {
	c := NewCollector("quicksell")

	c.RecordSearch(SearchOK)
	c.RecordSearch(SearchOK)
	c.RecordSearch(SearchNoMatch)
	c.RecordListingCreated()
	c.RecordRebuild(12)
	c.RecordCache(true)
	c.RecordCache(false)
	c.RecordCache(false)

	assert.Equal(t, 2.0, testutil.ToFloat64(c.ListingSearches.WithLabelValues(SearchOK)))
	assert.Equal(t, 1.0, testutil.ToFloat64(c.ListingSearches.WithLabelValues(SearchNoMatch)))
	assert.Equal(t, 1.0, testutil.ToFloat64(c.ListingsCreated))
	assert.Equal(t, 1.0, testutil.ToFloat64(c.CategoryRebuilds))
	assert.Equal(t, 12.0, testutil.ToFloat64(c.CategoryNodes))
	assert.Equal(t, 1.0, testutil.ToFloat64(c.CacheHits))
	assert.Equal(t, 2.0, testutil.ToFloat64(c.CacheMisses))
}

func TestNilCollectorIsNoop(t *testing.T) {
	var c *Collector
	assert.NotPanics(t, func() {
		c.RecordSearch(SearchInvalid)
		c.RecordListingCreated()
		c.RecordRebuild(3)
		c.RecordCache(true)
	})
}

func TestIndependentRegistries(t *testing.T) {
	a := NewCollector("quicksell")
	b := NewCollector("quicksell")
	a.RecordListingCreated()
	assert.Equal(t, 0.0, testutil.ToFloat64(b.ListingsCreated))
}

func TestHandler(t *testing.T) {
	c := NewCollector("quicksell")
	c.RecordSearch(SearchOK)

	rec := httptest.NewRecorder()
	c.Handler().ServeHTTP(rec, httptest.NewRequest("GET", "/metrics", nil))

	body, err := io.ReadAll(rec.Body)
	require.NoError(t, err)
	assert.Equal(t, 200, rec.Code)
	assert.Contains(t, string(body), `quicksell_listing_searches_total{result="ok"} 1`)
}
