package search

import (
	"sync"
	"time"

	"github.com/bastiangx/placeserve/internal/metrics"
	"github.com/bastiangx/placeserve/pkg/place"
)

// Result is a delivered live query.
type Result struct {
	Seq     uint64
	ID      string
	Prefix  string
	Records []place.Record
	Version uint64
	Elapsed time.Duration
}

// Live runs queries in the background and delivers only the newest one. A query that
// finishes after a newer submission is discarded; the engine itself never cancels work.
//
// Consumers must keep reading Results until it is closed.
type Live struct {
	engine  *Engine
	metrics *metrics.Metrics
	results chan Result

	mu      sync.Mutex
	latest  uint64
	closed  bool
	wg      sync.WaitGroup
	dropped uint64
}

// NewLive wraps engine. buffer sizes the Results channel.
func NewLive(engine *Engine, buffer int, m *metrics.Metrics) *Live {
	if buffer < 1 {
		buffer = 1
	}
	return &Live{
		engine:  engine,
		metrics: m,
		results: make(chan Result, buffer),
	}
}

// Submit starts a query and returns its sequence number, or 0 after Close.
func (l *Live) Submit(id, prefix string) uint64 {
	l.mu.Lock()
	if l.closed {
		l.mu.Unlock()
		return 0
	}
	l.latest++
	seq := l.latest
	l.wg.Add(1)
	l.mu.Unlock()

	go func() {
		defer l.wg.Done()
		start := time.Now()
		records, version := l.engine.SearchVersion(prefix)
		l.deliver(Result{
			Seq:     seq,
			ID:      id,
			Prefix:  prefix,
			Records: records,
			Version: version,
			Elapsed: time.Since(start),
		})
	}()
	return seq
}

func (l *Live) deliver(r Result) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if r.Seq != l.latest {
		l.dropped++
		if l.metrics != nil {
			l.metrics.QueriesDropped.Inc()
		}
		l.engine.logger.Debugf("Dropped superseded query %q (seq %d < %d)", r.Prefix, r.Seq, l.latest)
		return
	}
	l.results <- r
}

// Results delivers the results of queries that were still the newest when they finished.
func (l *Live) Results() <-chan Result {
	return l.results
}

// Dropped returns how many results were discarded so far.
func (l *Live) Dropped() uint64 {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.dropped
}

// Close stops accepting queries, waits for running ones and closes Results.
func (l *Live) Close() {
	l.mu.Lock()
	if l.closed {
		l.mu.Unlock()
		return
	}
	l.closed = true
	l.mu.Unlock()

	l.wg.Wait()
	close(l.results)
}
