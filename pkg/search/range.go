package search

import (
	"strings"

	"github.com/bastiangx/placeserve/pkg/catalog"
	"github.com/bastiangx/placeserve/pkg/place"
)

// IsBlank reports whether prefix is empty or whitespace only. A blank prefix selects
// the whole catalog.
func IsBlank(prefix string) bool {
	return strings.TrimSpace(prefix) == ""
}

// rangeFinder compares folded catalog names against one folded prefix.
type rangeFinder struct {
	c      *catalog.Catalog
	prefix string
}

func (f rangeFinder) name(i int) string {
	return place.Fold(f.c.At(i).Name)
}

func (f rangeFinder) matches(i int) bool {
	return strings.HasPrefix(f.name(i), f.prefix)
}

// Range returns the inclusive index range [lo, hi] of records whose folded name starts
// with the folded prefix. ok is false when nothing matches. A blank prefix selects
// every record, so ok is false only for an empty catalog in that case.
//
// The catalog is ordered by raw names while the comparisons here use folded names. When
// the two orders disagree the block of matches is not contiguous and the range can miss
// records; this is accepted.
func Range(c *catalog.Catalog, prefix string) (lo, hi int, ok bool) {
	n := c.Size()
	if IsBlank(prefix) {
		return 0, n - 1, n > 0
	}

	f := rangeFinder{c: c, prefix: place.Fold(prefix)}
	low, high := 0, n-1
	for low <= high {
		mid := low + (high-low)/2
		name := f.name(mid)
		switch {
		case strings.HasPrefix(name, f.prefix):
			lo, hi = f.expand(low, high, mid)
			return lo, hi, true
		case f.prefix > name:
			low = mid + 1
		default:
			high = mid - 1
		}
	}
	return 0, -1, false
}

// expand grows the seed index into the full block of matches within [low, high].
func (f rangeFinder) expand(low, high, seed int) (lo, hi int) {
	lo, hi = seed, seed
	if seed > 0 && f.matches(seed-1) {
		lo = f.lowerBound(low, seed-1, seed)
	}
	if seed < f.c.Size()-1 && f.matches(seed+1) {
		hi = f.upperBound(seed+1, high, seed)
	}
	return lo, hi
}

// lowerBound finds the first matching index in [low, high]: a match whose predecessor
// does not match. It returns fallback when the search runs dry.
func (f rangeFinder) lowerBound(low, high, fallback int) int {
	for low <= high {
		mid := low + (high-low)/2
		name := f.name(mid)
		switch {
		case strings.HasPrefix(name, f.prefix):
			if mid == 0 || !f.matches(mid-1) {
				return mid
			}
			high = mid - 1
		case f.prefix > name:
			low = mid + 1
		default:
			high = mid - 1
		}
	}
	return fallback
}

// upperBound finds the last matching index in [low, high]: a match whose successor
// does not match, or the last catalog index.
func (f rangeFinder) upperBound(low, high, fallback int) int {
	last := f.c.Size() - 1
	for low <= high {
		mid := low + (high-low)/2
		name := f.name(mid)
		switch {
		case strings.HasPrefix(name, f.prefix):
			if mid == last || !f.matches(mid+1) {
				return mid
			}
			low = mid + 1
		case f.prefix > name:
			low = mid + 1
		default:
			high = mid - 1
		}
	}
	return fallback
}
