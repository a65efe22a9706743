package place

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestCompare(t *testing.T) {
	tests := []struct {
		name string
		a, b Record
		want int
	}{
		{"name decides", Record{Name: "Aachen"}, Record{Name: "Berlin"}, -1},
		{"country breaks ties", Record{Name: "Paris", CountryCode: "US"}, Record{Name: "Paris", CountryCode: "FR"}, 1},
		{"equal key", Record{Name: "Paris", CountryCode: "FR", ID: "1"}, Record{Name: "Paris", CountryCode: "FR", ID: "2"}, 0},
		{"absent name sorts first", Record{}, Record{Name: "'t Zand"}, -1},
		{"raw comparison puts upper case first", Record{Name: "Zwolle"}, Record{Name: "aachen"}, -1},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Compare(tt.a, tt.b))
		})
	}
}

func TestFold(t *testing.T) {
	assert.Equal(t, "a coruna", Fold("A Coruna"))
	assert.Equal(t, "zürich", Fold("ZÜRICH"))
	assert.Equal(t, "  kaaawa", Fold("  KaAawA"))
	assert.Equal(t, "", Fold(""))
}

func TestLatLng(t *testing.T) {
	r := Record{Name: "Austin", Coordinates: NewCoordinates(-97.74306, 30.26715)}
	ll, ok := r.LatLng()
	assert.True(t, ok)
	assert.InDelta(t, 30.26715, ll.Lat.Degrees(), 1e-9)
	assert.InDelta(t, -97.74306, ll.Lng.Degrees(), 1e-9)
	assert.NotEmpty(t, r.CellToken(DefaultCellLevel))

	lon := 12.5
	partial := Record{Name: "Half", Coordinates: &Coordinates{Longitude: &lon}}
	_, ok = partial.LatLng()
	assert.False(t, ok)
	assert.Empty(t, partial.CellToken(DefaultCellLevel))

	_, ok = Record{Name: "Nowhere"}.LatLng()
	assert.False(t, ok)

	invalid := Record{Name: "Bad", Coordinates: NewCoordinates(10, 95)}
	_, ok = invalid.LatLng()
	assert.False(t, ok)
}

func TestLabel(t *testing.T) {
	assert.Equal(t, "Aachen, DE", Record{Name: "Aachen", CountryCode: "DE"}.Label())
	assert.Equal(t, "Aachen", Record{Name: "Aachen"}.Label())
}

func TestClone(t *testing.T) {
	r := Record{ID: "1", Name: "Aachen", CountryCode: "DE", Coordinates: NewCoordinates(6.08, 50.77)}
	c := r.Clone()
	assert.Equal(t, r, c)

	*c.Coordinates.Longitude = 0
	c.Coordinates.Latitude = nil
	assert.Equal(t, 6.08, *r.Coordinates.Longitude)
	assert.Equal(t, 50.77, *r.Coordinates.Latitude)

	half := Record{Coordinates: &Coordinates{Latitude: r.Coordinates.Latitude}}
	assert.Nil(t, half.Clone().Coordinates.Longitude)
	assert.Nil(t, Record{}.Clone().Coordinates)

	all := CloneAll(nil)
	assert.NotNil(t, all)
	assert.Empty(t, all)
}
