package metrics

import (
	"io"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewMetrics(t *testing.T) {
	registry := prometheus.NewRegistry()
	m := NewMetrics(registry)
	require.NotNil(t, m)
	assert.Same(t, registry, m.Registry())

	m.QueriesTotal.WithLabelValues(OutcomeMatch).Inc()
	m.QueriesTotal.WithLabelValues(OutcomeMatch).Inc()
	m.QueriesTotal.WithLabelValues(OutcomeEmpty).Inc()
	m.CatalogRecords.Set(42)

	assert.Equal(t, 2.0, testutil.ToFloat64(m.QueriesTotal.WithLabelValues(OutcomeMatch)))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.QueriesTotal.WithLabelValues(OutcomeEmpty)))
	assert.Equal(t, 42.0, testutil.ToFloat64(m.CatalogRecords))
}

func TestNewMetricsNilRegistry(t *testing.T) {
	m := NewMetrics(nil)
	require.NotNil(t, m.Registry())
}

func TestHandler(t *testing.T) {
	m := NewMetrics(nil)
	m.CatalogSwaps.Inc()

	rec := httptest.NewRecorder()
	m.Handler().ServeHTTP(rec, httptest.NewRequest("GET", "/metrics", nil))

	body, err := io.ReadAll(rec.Body)
	require.NoError(t, err)
	assert.True(t, strings.Contains(string(body), "placeserve_catalog_swaps_total 1"))
}
