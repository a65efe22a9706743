// Package reload rebuilds the catalog from the data files and publishes it, on demand,
// when the files change on disk, or on a cron schedule.
package reload

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"sync"
	"time"

	"github.com/bastiangx/placeserve/internal/logger"
	"github.com/bastiangx/placeserve/internal/metrics"
	"github.com/bastiangx/placeserve/pkg/catalog"
	"github.com/bastiangx/placeserve/pkg/ingest"
	"github.com/charmbracelet/log"
	"github.com/fsnotify/fsnotify"
	"github.com/robfig/cron/v3"
	"golang.org/x/sync/singleflight"
)

// Publisher receives freshly built catalogs. *search.Engine implements it.
type Publisher interface {
	SetCatalog(c *catalog.Catalog)
}

// Indexer is rebuilt after every publish. *suggest.Completer implements it.
type Indexer interface {
	Rebuild(c *catalog.Catalog)
}

// Result describes one successful reload.
type Result struct {
	Version  uint64
	Records  int
	Stats    ingest.Stats
	Duration time.Duration
}

// Reloader loads a fixed set of data files into a publisher.
type Reloader struct {
	paths     []string
	loader    *ingest.Loader
	publisher Publisher
	indexers  []Indexer
	buildOpts []catalog.Option
	metrics   *metrics.Metrics
	logger    *log.Logger

	group singleflight.Group

	mu      sync.Mutex
	last    Result
	lastErr error
	cron    *cron.Cron
}

// Option configures a Reloader.
type Option func(*Reloader)

func WithLoader(l *ingest.Loader) Option {
	return func(r *Reloader) {
		r.loader = l
	}
}

// WithIndexer adds an index rebuilt after each publish.
func WithIndexer(ix Indexer) Option {
	return func(r *Reloader) {
		r.indexers = append(r.indexers, ix)
	}
}

// WithBuildOptions passes opts to catalog.Build.
func WithBuildOptions(opts ...catalog.Option) Option {
	return func(r *Reloader) {
		r.buildOpts = append(r.buildOpts, opts...)
	}
}

func WithMetrics(m *metrics.Metrics) Option {
	return func(r *Reloader) {
		r.metrics = m
	}
}

func WithLogger(l *log.Logger) Option {
	return func(r *Reloader) {
		r.logger = l
	}
}

// New returns a Reloader for paths. Nothing is loaded until Reload.
func New(paths []string, publisher Publisher, opts ...Option) *Reloader {
	r := &Reloader{
		paths:     paths,
		publisher: publisher,
		logger:    logger.New("reload"),
	}
	for _, opt := range opts {
		opt(r)
	}
	if r.loader == nil {
		r.loader = ingest.NewLoader(ingest.WithMetrics(r.metrics))
	}
	return r
}

// Reload loads every data file, builds a catalog and publishes it. Concurrent calls
// share one load. On failure the published catalog is left as it was.
func (r *Reloader) Reload(ctx context.Context) (Result, error) {
	v, err, shared := r.group.Do("reload", func() (any, error) {
		return r.reload(ctx)
	})
	if shared {
		r.logger.Debug("Joined a reload already in progress")
	}
	if err != nil {
		return Result{}, err
	}
	return v.(Result), nil
}

func (r *Reloader) reload(ctx context.Context) (Result, error) {
	start := time.Now()

	records, stats, err := r.loader.LoadFiles(ctx, r.paths)
	if err != nil {
		r.fail(err)
		return Result{}, fmt.Errorf("reload failed: %w", err)
	}

	c := catalog.Build(records, r.buildOpts...)
	r.publisher.SetCatalog(c)
	for _, ix := range r.indexers {
		ix.Rebuild(c)
	}

	res := Result{
		Version:  c.Version(),
		Records:  c.Size(),
		Stats:    stats,
		Duration: time.Since(start),
	}

	r.mu.Lock()
	r.last = res
	r.lastErr = nil
	r.mu.Unlock()

	r.logger.Infof("Published catalog v%d: %d records from %d files in %v (%d skipped)",
		res.Version, res.Records, stats.Files, res.Duration.Round(time.Millisecond), stats.Skipped)
	return res, nil
}

func (r *Reloader) fail(err error) {
	r.mu.Lock()
	r.lastErr = err
	r.mu.Unlock()
	if r.metrics != nil {
		r.metrics.ReloadErrorsTotal.Inc()
	}
	r.logger.Errorf("Reload failed, keeping the current catalog: %v", err)
}

// Last returns the latest successful reload and the error of the latest attempt.
func (r *Reloader) Last() (Result, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.last, r.lastErr
}

// Paths returns the data files this Reloader reads.
func (r *Reloader) Paths() []string {
	return r.paths
}

// Watch reloads whenever a data file is written, created or renamed, waiting for
// debounce of quiet first. It blocks until ctx is done.
func (r *Reloader) Watch(ctx context.Context, debounce time.Duration) error {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("failed to create watcher: %w", err)
	}
	defer watcher.Close()

	watched := make(map[string]bool, len(r.paths))
	dirs := make(map[string]bool)
	for _, p := range r.paths {
		abs, err := filepath.Abs(p)
		if err != nil {
			return fmt.Errorf("failed to resolve %s: %w", p, err)
		}
		watched[abs] = true
		dirs[filepath.Dir(abs)] = true
	}
	// Directories, not files, so that editors replacing a file by rename are seen.
	for dir := range dirs {
		if err := watcher.Add(dir); err != nil {
			return fmt.Errorf("failed to watch %s: %w", dir, err)
		}
		r.logger.Debugf("Watching %s", dir)
	}

	timer := time.NewTimer(debounce)
	timer.Stop()
	defer timer.Stop()

	for {
		select {
		case <-ctx.Done():
			return nil
		case event, ok := <-watcher.Events:
			if !ok {
				return nil
			}
			if !event.Has(fsnotify.Write) && !event.Has(fsnotify.Create) && !event.Has(fsnotify.Rename) {
				continue
			}
			abs, err := filepath.Abs(event.Name)
			if err != nil || !watched[abs] {
				continue
			}
			r.logger.Debugf("Data file changed: %s", event)
			timer.Reset(debounce)
		case err, ok := <-watcher.Errors:
			if !ok {
				return nil
			}
			r.logger.Warnf("Watcher error: %v", err)
		case <-timer.C:
			if _, err := r.Reload(ctx); err != nil && !errors.Is(err, context.Canceled) {
				r.logger.Warnf("Reload after file change failed: %v", err)
			}
		}
	}
}

// Schedule reloads on a cron spec ("@every 1h", "0 3 * * *"). A second call replaces
// the previous schedule.
func (r *Reloader) Schedule(spec string) error {
	c := cron.New()
	if _, err := c.AddFunc(spec, func() {
		if _, err := r.Reload(context.Background()); err != nil {
			r.logger.Warnf("Scheduled reload failed: %v", err)
		}
	}); err != nil {
		return fmt.Errorf("invalid reload schedule %q: %w", spec, err)
	}

	r.Stop()
	r.mu.Lock()
	r.cron = c
	r.mu.Unlock()
	c.Start()
	r.logger.Debugf("Scheduled reloads: %s", spec)
	return nil
}

// Stop cancels the schedule and waits for a running scheduled reload.
func (r *Reloader) Stop() {
	r.mu.Lock()
	c := r.cron
	r.cron = nil
	r.mu.Unlock()
	if c != nil {
		<-c.Stop().Done()
	}
}
