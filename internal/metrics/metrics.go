// Package metrics holds the Prometheus collectors shared by the engine, the reloader
// and the IPC server.
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Query outcomes used as the "outcome" label of QueriesTotal.
const (
	OutcomeMatch = "match"
	OutcomeEmpty = "empty"
	OutcomeAll   = "all"
)

// Metrics holds all Prometheus metrics
type Metrics struct {
	registry *prometheus.Registry

	// Query metrics
	QueriesTotal     *prometheus.CounterVec
	QueryDuration    prometheus.Histogram
	QueriesDropped   prometheus.Counter
	CacheHitsTotal   prometheus.Counter
	CacheMissesTotal prometheus.Counter

	// Catalog metrics
	CatalogRecords prometheus.Gauge
	CatalogVersion prometheus.Gauge
	CatalogSwaps   prometheus.Counter

	// Ingest metrics
	IngestRecordsTotal prometheus.Counter
	IngestSkippedTotal prometheus.Counter
	ReloadErrorsTotal  prometheus.Counter
}

// NewMetrics creates and registers all metrics on registry.
// A nil registry gets a fresh one.
func NewMetrics(registry *prometheus.Registry) *Metrics {
	if registry == nil {
		registry = prometheus.NewRegistry()
	}
	m := &Metrics{
		registry: registry,
		QueriesTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "placeserve_queries_total",
				Help: "Total number of prefix queries by outcome",
			},
			[]string{"outcome"},
		),
		QueryDuration: prometheus.NewHistogram(
			prometheus.HistogramOpts{
				Name:    "placeserve_query_duration_seconds",
				Help:    "Prefix query duration in seconds",
				Buckets: []float64{.00001, .00005, .0001, .0005, .001, .005, .01, .05},
			},
		),
		QueriesDropped: prometheus.NewCounter(
			prometheus.CounterOpts{
				Name: "placeserve_queries_superseded_total",
				Help: "Live queries whose result was discarded because a newer query arrived",
			},
		),
		CacheHitsTotal: prometheus.NewCounter(
			prometheus.CounterOpts{
				Name: "placeserve_cache_hits_total",
				Help: "Total number of result cache hits",
			},
		),
		CacheMissesTotal: prometheus.NewCounter(
			prometheus.CounterOpts{
				Name: "placeserve_cache_misses_total",
				Help: "Total number of result cache misses",
			},
		),
		CatalogRecords: prometheus.NewGauge(
			prometheus.GaugeOpts{
				Name: "placeserve_catalog_records",
				Help: "Number of records in the published catalog",
			},
		),
		CatalogVersion: prometheus.NewGauge(
			prometheus.GaugeOpts{
				Name: "placeserve_catalog_version",
				Help: "Version of the published catalog",
			},
		),
		CatalogSwaps: prometheus.NewCounter(
			prometheus.CounterOpts{
				Name: "placeserve_catalog_swaps_total",
				Help: "Total number of catalog publications",
			},
		),
		IngestRecordsTotal: prometheus.NewCounter(
			prometheus.CounterOpts{
				Name: "placeserve_ingest_records_total",
				Help: "Total number of records decoded from data files",
			},
		),
		IngestSkippedTotal: prometheus.NewCounter(
			prometheus.CounterOpts{
				Name: "placeserve_ingest_skipped_total",
				Help: "Total number of malformed records skipped during ingestion",
			},
		),
		ReloadErrorsTotal: prometheus.NewCounter(
			prometheus.CounterOpts{
				Name: "placeserve_reload_errors_total",
				Help: "Total number of failed catalog reloads",
			},
		),
	}

	registry.MustRegister(
		m.QueriesTotal,
		m.QueryDuration,
		m.QueriesDropped,
		m.CacheHitsTotal,
		m.CacheMissesTotal,
		m.CatalogRecords,
		m.CatalogVersion,
		m.CatalogSwaps,
		m.IngestRecordsTotal,
		m.IngestSkippedTotal,
		m.ReloadErrorsTotal,
	)
	return m
}

// Registry returns the registry the metrics were registered on.
func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}

// Handler returns the HTTP handler exposing the registry.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}
