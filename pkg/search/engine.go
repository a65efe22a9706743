/*
Package search finds the place records whose names start with a prefix.

Matching is case-insensitive: names and the prefix are folded before comparison, and
the block of matches is located with binary searches over the sorted catalog. The seed
search finds any matching record, then two more binary searches walk out to the first and
last record of the block, so a query costs O(log n) comparisons regardless of how many
records match.

	engine := search.NewEngine(search.WithCache(256))
	engine.SetCatalog(catalog.Build(records))
	matches := engine.Search("aa")

A blank prefix (empty or whitespace only) returns the whole catalog. Surrounding
whitespace is never trimmed otherwise, so "  aachen" only matches names that start with
two spaces.

# Publishing

The Engine always reads one published catalog. SetCatalog swaps in a new catalog with a
single atomic store; queries already running finish against the catalog they started
with. Concurrent Search calls need no coordination.

# Live queries

Live wraps an Engine for callers that fire a query per keystroke: every submission runs in
the background and only the newest one is delivered.
*/
package search

import (
	"sync"
	"sync/atomic"
	"time"

	"github.com/bastiangx/placeserve/internal/logger"
	"github.com/bastiangx/placeserve/internal/metrics"
	"github.com/bastiangx/placeserve/pkg/catalog"
	"github.com/bastiangx/placeserve/pkg/place"
	"github.com/charmbracelet/log"
	lru "github.com/hashicorp/golang-lru/v2"
)

type cacheKey struct {
	version uint64
	prefix  string
}

// Engine answers prefix queries against the currently published catalog.
type Engine struct {
	mu      sync.Mutex
	current atomic.Pointer[catalog.Catalog]
	cache   *lru.Cache[cacheKey, []place.Record]
	metrics *metrics.Metrics
	logger  *log.Logger
}

// Option configures an Engine.
type Option func(*Engine)

// WithCache keeps the results of the last size distinct non-blank queries.
// A size below 1 disables the cache.
func WithCache(size int) Option {
	return func(e *Engine) {
		if size < 1 {
			e.cache = nil
			return
		}
		cache, err := lru.New[cacheKey, []place.Record](size)
		if err != nil {
			e.logger.Warnf("Result cache disabled: %v", err)
			return
		}
		e.cache = cache
	}
}

// WithMetrics records query and catalog metrics on m.
func WithMetrics(m *metrics.Metrics) Option {
	return func(e *Engine) {
		e.metrics = m
	}
}

// WithLogger replaces the engine logger.
func WithLogger(l *log.Logger) Option {
	return func(e *Engine) {
		e.logger = l
	}
}

// NewEngine returns an engine with an empty catalog published.
func NewEngine(opts ...Option) *Engine {
	e := &Engine{logger: logger.New("search")}
	for _, opt := range opts {
		opt(e)
	}
	e.current.Store(catalog.Build(nil))
	return e
}

// SetCatalog publishes c for all subsequent queries. A nil catalog publishes an
// empty one.
func (e *Engine) SetCatalog(c *catalog.Catalog) {
	if c == nil {
		c = catalog.Build(nil)
	}

	e.mu.Lock()
	defer e.mu.Unlock()

	prev := e.current.Swap(c)
	if e.cache != nil {
		e.cache.Purge()
	}
	if e.metrics != nil {
		e.metrics.CatalogRecords.Set(float64(c.Size()))
		e.metrics.CatalogVersion.Set(float64(c.Version()))
		e.metrics.CatalogSwaps.Inc()
	}
	e.logger.Debugf("Published catalog v%d (%d records), replacing v%d", c.Version(), c.Size(), prev.Version())
}

// Catalog returns the currently published catalog.
func (e *Engine) Catalog() *catalog.Catalog {
	return e.current.Load()
}

// Search returns the records whose folded name starts with the folded prefix, in
// catalog order. The result is a fresh slice; it is empty, never nil, when nothing
// matches.
func (e *Engine) Search(prefix string) []place.Record {
	records, _ := e.SearchVersion(prefix)
	return records
}

// SearchVersion is Search that also reports which catalog version answered.
func (e *Engine) SearchVersion(prefix string) ([]place.Record, uint64) {
	start := time.Now()
	c := e.current.Load()

	var (
		records []place.Record
		outcome string
	)
	if IsBlank(prefix) {
		records = c.All()
		outcome = metrics.OutcomeAll
	} else {
		records = e.lookup(c, prefix)
		outcome = metrics.OutcomeMatch
		if len(records) == 0 {
			outcome = metrics.OutcomeEmpty
		}
	}

	if e.metrics != nil {
		e.metrics.QueriesTotal.WithLabelValues(outcome).Inc()
		e.metrics.QueryDuration.Observe(time.Since(start).Seconds())
	}
	return records, c.Version()
}

func (e *Engine) lookup(c *catalog.Catalog, prefix string) []place.Record {
	key := cacheKey{version: c.Version(), prefix: prefix}
	if e.cache != nil {
		if cached, ok := e.cache.Get(key); ok {
			if e.metrics != nil {
				e.metrics.CacheHitsTotal.Inc()
			}
			return place.CloneAll(cached)
		}
		if e.metrics != nil {
			e.metrics.CacheMissesTotal.Inc()
		}
	}

	records := []place.Record{}
	if lo, hi, ok := Range(c, prefix); ok {
		records = c.Slice(lo, hi)
	}

	if e.cache != nil {
		e.cache.Add(key, place.CloneAll(records))
	}
	return records
}

// Stats returns basic numbers about the published catalog and the cache.
func (e *Engine) Stats() map[string]int {
	c := e.current.Load()
	stats := map[string]int{
		"records": c.Size(),
		"version": int(c.Version()),
	}
	if e.cache != nil {
		stats["cacheEntries"] = e.cache.Len()
	}
	return stats
}
