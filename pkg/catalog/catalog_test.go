package catalog

import (
	"errors"
	"fmt"
	"math/rand"
	"slices"
	"testing"

	"github.com/bastiangx/placeserve/pkg/place"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func names(records []place.Record) []string {
	out := make([]string, len(records))
	for i, r := range records {
		out[i] = r.Name
	}
	return out
}

func unsorted() []place.Record {
	return []place.Record{
		{ID: "1", Name: "Aachen", CountryCode: "DE"},
		{ID: "2", Name: "'t Zand", CountryCode: "NL"},
		{ID: "3", Name: "Paris", CountryCode: "US"},
		{ID: "4", Name: "A Coruna", CountryCode: "ES"},
		{ID: "5", Name: "Paris", CountryCode: "FR"},
		{ID: "6", Name: "'t Hoeksken", CountryCode: "BE"},
		{ID: "7", Name: "", CountryCode: "XX"},
		{ID: "8", Name: "665 Site Colonia", CountryCode: "MX"},
		{ID: "9", Name: "aachen", CountryCode: "DE"},
	}
}

func TestBuildOrdersByNameThenCountry(t *testing.T) {
	input := unsorted()
	original := slices.Clone(input)

	c := Build(input)

	require.Equal(t, len(input), c.Size())
	assert.Equal(t, []string{
		"", "'t Hoeksken", "'t Zand", "665 Site Colonia", "A Coruna", "Aachen", "Paris", "Paris", "aachen",
	}, names(c.All()))
	assert.Equal(t, "FR", c.At(6).CountryCode)
	assert.Equal(t, "US", c.At(7).CountryCode)

	// input is neither reordered nor aliased
	assert.Equal(t, original, input)
	input[0].Name = "mutated"
	assert.NotEqual(t, "mutated", c.At(5).Name)
}

func TestBuildIsStable(t *testing.T) {
	input := []place.Record{
		{ID: "first", Name: "Springfield", CountryCode: "US"},
		{ID: "other", Name: "Albany", CountryCode: "US"},
		{ID: "second", Name: "Springfield", CountryCode: "US"},
		{ID: "third", Name: "Springfield", CountryCode: "US"},
	}
	for _, strategy := range []SortStrategy{SortStable, SortPartition} {
		t.Run(strategy.String(), func(t *testing.T) {
			c := Build(input, WithSortStrategy(strategy))
			ids := []string{c.At(1).ID, c.At(2).ID, c.At(3).ID}
			assert.Equal(t, []string{"first", "second", "third"}, ids)
		})
	}
}

func TestPartitionSortMatchesStableSort(t *testing.T) {
	rng := rand.New(rand.NewSource(42))
	alphabet := []string{"a", "B", "c", "'", "1", " ", "Z", "é"}
	countries := []string{"", "DE", "FR", "US"}

	var input []place.Record
	for i := 0; i < 2000; i++ {
		n := ""
		for j := 0; j < 1+rng.Intn(4); j++ {
			n += alphabet[rng.Intn(len(alphabet))]
		}
		input = append(input, place.Record{
			ID:          fmt.Sprint(i),
			Name:        n,
			CountryCode: countries[rng.Intn(len(countries))],
		})
	}

	stable := Build(input)
	partition := Build(input, WithPartitionSort())
	assert.Equal(t, stable.All(), partition.All())
	assert.True(t, slices.IsSortedFunc(stable.All(), place.Compare))
}

func TestBuildEmpty(t *testing.T) {
	c := Build(nil)
	assert.Equal(t, 0, c.Size())
	assert.NotNil(t, c.All())
	assert.Empty(t, c.All())
}

func TestAtOutOfRangePanics(t *testing.T) {
	c := Build(unsorted())

	for _, idx := range []int{-1, c.Size(), c.Size() + 10} {
		t.Run(fmt.Sprint(idx), func(t *testing.T) {
			defer func() {
				r := recover()
				require.NotNil(t, r)
				err, ok := r.(*OutOfRangeError)
				require.True(t, ok, "panic value %T", r)
				assert.Equal(t, idx, err.Index)
				assert.True(t, errors.Is(err, ErrOutOfRange))
			}()
			c.At(idx)
		})
	}
}

func TestGet(t *testing.T) {
	c := Build(unsorted())

	r, err := c.Get(1)
	require.NoError(t, err)
	assert.Equal(t, "'t Hoeksken", r.Name)

	_, err = c.Get(c.Size())
	assert.ErrorIs(t, err, ErrOutOfRange)
	var oor *OutOfRangeError
	require.ErrorAs(t, err, &oor)
	assert.Equal(t, c.Size(), oor.Size)
}

func TestSlice(t *testing.T) {
	c := Build(unsorted())

	assert.Equal(t, []string{"'t Hoeksken", "'t Zand"}, names(c.Slice(1, 2)))
	assert.Equal(t, []string{"aachen"}, names(c.Slice(8, 8)))

	s := c.Slice(1, 2)
	s[0].Name = "changed"
	assert.Equal(t, "'t Hoeksken", c.At(1).Name)
}

func TestVersionsIncrease(t *testing.T) {
	a := Build(nil)
	b := Build(nil)
	assert.Greater(t, b.Version(), a.Version())
	assert.False(t, a.BuiltAt().IsZero())
}

func TestParseSortStrategy(t *testing.T) {
	assert.Equal(t, SortPartition, ParseSortStrategy("partition"))
	assert.Equal(t, SortStable, ParseSortStrategy("stable"))
	assert.Equal(t, SortStable, ParseSortStrategy("bogus"))
}

func BenchmarkBuild(b *testing.B) {
	rng := rand.New(rand.NewSource(1))
	input := make([]place.Record, 50000)
	for i := range input {
		input[i] = place.Record{Name: fmt.Sprintf("city-%08d", rng.Int63()), CountryCode: "XX"}
	}
	b.ResetTimer()
	for n := 0; n < b.N; n++ {
		Build(input)
	}
}

func TestRecordsAreNotShared(t *testing.T) {
	input := []place.Record{{ID: "1", Name: "Zwolle", CountryCode: "NL", Coordinates: place.NewCoordinates(6.09, 52.51)}}
	c := Build(input)

	*input[0].Coordinates.Latitude = 1
	assert.Equal(t, 52.51, *c.At(0).Coordinates.Latitude)

	for _, got := range [][]place.Record{c.All(), c.Slice(0, 0)} {
		*got[0].Coordinates.Longitude = 2
	}
	rec, err := c.Get(0)
	require.NoError(t, err)
	rec.Coordinates.Latitude = nil

	assert.Equal(t, 6.09, *c.At(0).Coordinates.Longitude)
	assert.Equal(t, 52.51, *c.At(0).Coordinates.Latitude)
}
