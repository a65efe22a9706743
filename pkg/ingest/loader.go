// Package ingest reads place records from data files. JSON and MessagePack arrays are
// supported, optionally gzip, bzip2 or zstd compressed; the format follows from the file
// name. Elements that fail to decode are skipped and counted rather than failing the
// whole file.
package ingest

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/bastiangx/placeserve/internal/logger"
	"github.com/bastiangx/placeserve/internal/metrics"
	"github.com/bastiangx/placeserve/pkg/place"
	"github.com/charmbracelet/log"
	jsoniter "github.com/json-iterator/go"
	"github.com/json-iterator/go/extra"
	"github.com/vmihailenco/msgpack/v5"
	"golang.org/x/sync/errgroup"
)

var jsonAPI = jsoniter.ConfigCompatibleWithStandardLibrary

func init() {
	// Source lists carry numeric ids and occasionally quoted coordinates.
	extra.RegisterFuzzyDecoders()
}

const ctxCheckInterval = 4096

// Stats summarizes one load.
type Stats struct {
	Files              int
	Records            int
	Skipped            int
	InvalidCoordinates int
}

func (s *Stats) add(o Stats) {
	s.Files += o.Files
	s.Records += o.Records
	s.Skipped += o.Skipped
	s.InvalidCoordinates += o.InvalidCoordinates
}

// Loader reads data files.
type Loader struct {
	logger  *log.Logger
	metrics *metrics.Metrics
	workers int
}

// Option configures a Loader.
type Option func(*Loader)

func WithMetrics(m *metrics.Metrics) Option {
	return func(l *Loader) {
		l.metrics = m
	}
}

func WithLogger(lg *log.Logger) Option {
	return func(l *Loader) {
		l.logger = lg
	}
}

// WithWorkers bounds how many files LoadFiles reads at once. n < 1 means one per file.
func WithWorkers(n int) Option {
	return func(l *Loader) {
		l.workers = n
	}
}

func NewLoader(opts ...Option) *Loader {
	l := &Loader{logger: logger.New("ingest")}
	for _, opt := range opts {
		opt(l)
	}
	return l
}

// LoadFile reads path with a default Loader.
func LoadFile(path string) ([]place.Record, Stats, error) {
	return NewLoader().LoadFile(context.Background(), path)
}

// LoadFiles reads paths with a default Loader.
func LoadFiles(ctx context.Context, paths []string) ([]place.Record, Stats, error) {
	return NewLoader().LoadFiles(ctx, paths)
}

// LoadFile decodes every record of one data file.
func (l *Loader) LoadFile(ctx context.Context, path string) ([]place.Record, Stats, error) {
	format, compression, err := DetectFormat(path)
	if err != nil {
		return nil, Stats{}, err
	}

	file, err := os.Open(path)
	if err != nil {
		return nil, Stats{}, fmt.Errorf("failed to open data file %s: %w", path, err)
	}
	defer file.Close()

	r, release, err := decompress(bufio.NewReaderSize(file, 64*1024), compression)
	if err != nil {
		return nil, Stats{}, fmt.Errorf("%s: %w", path, err)
	}
	defer release()

	records, stats, err := l.Decode(ctx, r, format)
	if err != nil {
		return nil, stats, fmt.Errorf("failed to decode %s: %w", path, err)
	}
	stats.Files = 1

	if stats.Skipped > 0 {
		l.logger.Warnf("Skipped %d malformed records in %s", stats.Skipped, path)
	}
	l.logger.Debugf("Loaded %d records from %s (%s)", stats.Records, path, format)
	return records, stats, nil
}

// LoadFiles reads paths in parallel and concatenates the records in path order. Any
// failing file fails the whole load.
func (l *Loader) LoadFiles(ctx context.Context, paths []string) ([]place.Record, Stats, error) {
	if len(paths) == 0 {
		return nil, Stats{}, ErrNoFiles
	}

	results := make([][]place.Record, len(paths))
	stats := make([]Stats, len(paths))

	g, ctx := errgroup.WithContext(ctx)
	if l.workers > 0 {
		g.SetLimit(l.workers)
	}
	for i, path := range paths {
		g.Go(func() error {
			records, s, err := l.LoadFile(ctx, path)
			if err != nil {
				return err
			}
			results[i] = records
			stats[i] = s
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, Stats{}, err
	}

	var total Stats
	for _, s := range stats {
		total.add(s)
	}
	records := make([]place.Record, 0, total.Records)
	for _, r := range results {
		records = append(records, r...)
	}
	return records, total, nil
}

// Decode reads a record array in the given format from r.
func (l *Loader) Decode(ctx context.Context, r io.Reader, format FileFormat) ([]place.Record, Stats, error) {
	var (
		records []place.Record
		stats   Stats
	)
	emit := func(rec place.Record) error {
		if len(records)%ctxCheckInterval == 0 {
			if err := ctx.Err(); err != nil {
				return err
			}
		}
		if rec.Coordinates.Complete() {
			if _, ok := rec.LatLng(); !ok {
				rec.Coordinates = nil
				stats.InvalidCoordinates++
			}
		}
		records = append(records, rec)
		return nil
	}

	var err error
	switch format {
	case FormatJSON:
		err = decodeJSON(r, emit, &stats)
	case FormatMsgpack:
		err = decodeMsgpack(r, emit, &stats)
	default:
		err = ErrUnknownFormat
	}
	stats.Records = len(records)

	if l.metrics != nil {
		l.metrics.IngestRecordsTotal.Add(float64(stats.Records))
		l.metrics.IngestSkippedTotal.Add(float64(stats.Skipped))
	}
	if err != nil {
		return nil, stats, err
	}
	if records == nil {
		records = []place.Record{}
	}
	return records, stats, nil
}

func decodeJSON(r io.Reader, emit func(place.Record) error, stats *Stats) error {
	var emitErr error
	iter := jsoniter.Parse(jsonAPI, r, 64*1024)
	complete := iter.ReadArrayCB(func(it *jsoniter.Iterator) bool {
		raw := it.SkipAndReturnBytes()
		if it.Error != nil {
			return false
		}
		var rec place.Record
		if err := jsonAPI.Unmarshal(raw, &rec); err != nil {
			stats.Skipped++
			log.Debugf("Skipping JSON element: %v", err)
			return true
		}
		if emitErr = emit(rec); emitErr != nil {
			return false
		}
		return true
	})
	switch {
	case emitErr != nil:
		return emitErr
	case complete:
		return nil
	case iter.Error == nil || iter.Error == io.EOF:
		return errors.New("malformed JSON array: unexpected end of input")
	default:
		return fmt.Errorf("malformed JSON array: %w", iter.Error)
	}
}

func decodeMsgpack(r io.Reader, emit func(place.Record) error, stats *Stats) error {
	dec := msgpack.NewDecoder(r)
	n, err := dec.DecodeArrayLen()
	if err != nil {
		return fmt.Errorf("malformed MessagePack array: %w", err)
	}
	for i := 0; i < n; i++ {
		raw, err := dec.DecodeRaw()
		if err != nil {
			return fmt.Errorf("malformed MessagePack element %d: %w", i, err)
		}
		var rec place.Record
		if err := msgpack.Unmarshal(raw, &rec); err != nil {
			stats.Skipped++
			log.Debugf("Skipping MessagePack element %d: %v", i, err)
			continue
		}
		if err := emit(rec); err != nil {
			return err
		}
	}
	return nil
}
