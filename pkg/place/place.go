// Package place defines the place record shared by the catalog, the search engine and
// the ingestion layer, along with the ordering key and the case fold used to compare names.
package place

import (
	"cmp"
	"strings"

	"github.com/golang/geo/s2"
)

// DefaultCellLevel is the S2 level used for record cell tokens, roughly 10km cells.
const DefaultCellLevel = 10

// Coordinates holds an optional longitude/latitude pair.
// Either value may be nil when the source omitted it.
type Coordinates struct {
	Longitude *float64 `json:"lon,omitempty" msgpack:"lon,omitempty"`
	Latitude  *float64 `json:"lat,omitempty" msgpack:"lat,omitempty"`
}

// Record is a single place. Absent string fields are empty strings and absent
// coordinates are nil; a Record is never modified after it is built.
type Record struct {
	ID          string       `json:"_id" msgpack:"_id"`
	Name        string       `json:"name" msgpack:"name"`
	CountryCode string       `json:"country" msgpack:"country"`
	Coordinates *Coordinates `json:"coord,omitempty" msgpack:"coord,omitempty"`
}

// NewCoordinates returns coordinates with both values present.
func NewCoordinates(lon, lat float64) *Coordinates {
	return &Coordinates{Longitude: &lon, Latitude: &lat}
}

// Complete reports whether both longitude and latitude are present.
func (c *Coordinates) Complete() bool {
	return c != nil && c.Longitude != nil && c.Latitude != nil
}

// LatLng converts the record location to an s2.LatLng.
// ok is false when a coordinate is missing or out of range.
func (r Record) LatLng() (ll s2.LatLng, ok bool) {
	if !r.Coordinates.Complete() {
		return s2.LatLng{}, false
	}
	ll = s2.LatLngFromDegrees(*r.Coordinates.Latitude, *r.Coordinates.Longitude)
	return ll, ll.IsValid()
}

// CellToken returns the token of the S2 cell containing the record at the given
// level, or "" when the record has no usable location.
func (r Record) CellToken(level int) string {
	ll, ok := r.LatLng()
	if !ok {
		return ""
	}
	return s2.CellIDFromLatLng(ll).Parent(level).ToToken()
}

// Clone returns a copy of r that shares no memory with it.
func (r Record) Clone() Record {
	if r.Coordinates != nil {
		c := *r.Coordinates
		if c.Longitude != nil {
			lon := *c.Longitude
			c.Longitude = &lon
		}
		if c.Latitude != nil {
			lat := *c.Latitude
			c.Latitude = &lat
		}
		r.Coordinates = &c
	}
	return r
}

// CloneAll deep-copies records. The result is never nil.
func CloneAll(records []Record) []Record {
	out := make([]Record, len(records))
	for i, r := range records {
		out[i] = r.Clone()
	}
	return out
}

// Label renders "Name, CC" the way list rows display a record.
func (r Record) Label() string {
	if r.CountryCode == "" {
		return r.Name
	}
	return r.Name + ", " + r.CountryCode
}

// Compare orders records by (Name, CountryCode) using plain byte-wise comparison.
// No case folding is applied here.
func Compare(a, b Record) int {
	if c := cmp.Compare(a.Name, b.Name); c != 0 {
		return c
	}
	return cmp.Compare(a.CountryCode, b.CountryCode)
}

// Fold normalizes s to the canonical case used by prefix matching.
func Fold(s string) string {
	return strings.ToLower(s)
}
