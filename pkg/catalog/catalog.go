// Package catalog holds the sorted, read-only snapshot of place records that prefix
// queries run against.
//
// A Catalog is built once per ingestion cycle and never modified afterwards. Callers that
// need fresh data build a new Catalog and publish it in place of the old one.
package catalog

import (
	"errors"
	"fmt"
	"slices"
	"sync/atomic"
	"time"

	"github.com/bastiangx/placeserve/pkg/place"
)

// ErrOutOfRange is returned by Get for an index outside [0, Size()).
var ErrOutOfRange = errors.New("catalog index out of range")

// OutOfRangeError describes an invalid index access.
type OutOfRangeError struct {
	Index int
	Size  int
}

func (e *OutOfRangeError) Error() string {
	return fmt.Sprintf("catalog index %d out of range [0, %d)", e.Index, e.Size)
}

// Unwrap lets errors.Is match ErrOutOfRange.
func (e *OutOfRangeError) Unwrap() error { return ErrOutOfRange }

// SortStrategy selects how Build orders the records.
type SortStrategy int

const (
	// SortStable uses the standard library stable sort.
	SortStable SortStrategy = iota
	// SortPartition uses a recursive three-way partition sort.
	SortPartition
)

// ParseSortStrategy maps a config value to a strategy. Unknown values fall back to SortStable.
func ParseSortStrategy(s string) SortStrategy {
	if s == "partition" {
		return SortPartition
	}
	return SortStable
}

func (s SortStrategy) String() string {
	if s == SortPartition {
		return "partition"
	}
	return "stable"
}

type buildConfig struct {
	strategy SortStrategy
}

// Option configures Build.
type Option func(*buildConfig)

// WithSortStrategy selects the sort used by Build.
func WithSortStrategy(s SortStrategy) Option {
	return func(c *buildConfig) {
		c.strategy = s
	}
}

// WithPartitionSort is shorthand for WithSortStrategy(SortPartition).
func WithPartitionSort() Option {
	return WithSortStrategy(SortPartition)
}

var versionSeq atomic.Uint64

// Catalog is an immutable sequence of records ordered by place.Compare.
type Catalog struct {
	records []place.Record
	version uint64
	builtAt time.Time
}

// Build deep-copies records and sorts the copy by (Name, CountryCode).
// The input slice is left untouched and later changes to it do not reach the catalog.
func Build(records []place.Record, opts ...Option) *Catalog {
	cfg := &buildConfig{strategy: SortStable}
	for _, opt := range opts {
		opt(cfg)
	}

	var sorted []place.Record
	switch cfg.strategy {
	case SortPartition:
		sorted = partitionSort(place.CloneAll(records))
	default:
		sorted = place.CloneAll(records)
		slices.SortStableFunc(sorted, place.Compare)
	}

	return &Catalog{
		records: sorted,
		version: versionSeq.Add(1),
		builtAt: time.Now(),
	}
}

// partitionSort is a three-way divide and conquer sort. Records equal to the pivot keep
// their input order, so the result matches the stable sort.
func partitionSort(records []place.Record) []place.Record {
	if len(records) < 2 {
		return records
	}
	pivot := records[len(records)/2]

	var less, equal, greater []place.Record
	for _, r := range records {
		switch c := place.Compare(r, pivot); {
		case c < 0:
			less = append(less, r)
		case c > 0:
			greater = append(greater, r)
		default:
			equal = append(equal, r)
		}
	}

	out := make([]place.Record, 0, len(records))
	out = append(out, partitionSort(less)...)
	out = append(out, equal...)
	return append(out, partitionSort(greater)...)
}

// Size returns the number of records.
func (c *Catalog) Size() int {
	return len(c.records)
}

// At returns the record at index i. The record shares its Coordinates with the
// catalog and must not be modified; Get, Slice and All hand out copies. At panics with *OutOfRangeError when i is out of
// range: reaching it means the caller's index arithmetic is broken.
func (c *Catalog) At(i int) place.Record {
	if i < 0 || i >= len(c.records) {
		panic(&OutOfRangeError{Index: i, Size: len(c.records)})
	}
	return c.records[i]
}

// Get is At for indexes that come from outside the process.
func (c *Catalog) Get(i int) (place.Record, error) {
	if i < 0 || i >= len(c.records) {
		return place.Record{}, &OutOfRangeError{Index: i, Size: len(c.records)}
	}
	return c.records[i].Clone(), nil
}

// Slice returns a copy of the inclusive range [lo, hi].
func (c *Catalog) Slice(lo, hi int) []place.Record {
	if lo < 0 || hi >= len(c.records) || lo > hi+1 {
		panic(&OutOfRangeError{Index: hi, Size: len(c.records)})
	}
	return place.CloneAll(c.records[lo : hi+1])
}

// All returns a copy of every record in catalog order.
func (c *Catalog) All() []place.Record {
	return place.CloneAll(c.records)
}

// Version identifies this catalog. Versions grow with every Build in the process.
func (c *Catalog) Version() uint64 {
	return c.version
}

// BuiltAt reports when the catalog was built.
func (c *Catalog) BuiltAt() time.Time {
	return c.builtAt
}
