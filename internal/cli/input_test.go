package cli

import (
	"bytes"
	"strings"
	"testing"

	"github.com/bastiangx/placeserve/pkg/catalog"
	"github.com/bastiangx/placeserve/pkg/place"
	"github.com/bastiangx/placeserve/pkg/search"
	"github.com/bastiangx/placeserve/pkg/suggest"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newHandler(t *testing.T, input string, limit int) (*InputHandler, *bytes.Buffer) {
	t.Helper()
	engine := search.NewEngine()
	engine.SetCatalog(catalog.Build([]place.Record{
		{ID: "1", Name: "Aachen", CountryCode: "DE", Coordinates: place.NewCoordinates(6.08, 50.77)},
		{ID: "2", Name: "Aalborg", CountryCode: "DK"},
		{ID: "3", Name: "Abu Dhabi", CountryCode: "AE"},
		{ID: "4", Name: " Spaced", CountryCode: "XX"},
	}))
	completer := suggest.NewCompleter(suggest.WithOriginalCase())
	completer.Rebuild(engine.Catalog())

	var out bytes.Buffer
	h := NewInputHandler(engine, completer, limit)
	h.SetIO(strings.NewReader(input), &out)
	return h, &out
}

func TestSearchLines(t *testing.T) {
	h, out := newHandler(t, "aa\nzz\n", 10)
	require.NoError(t, h.Start())

	text := out.String()
	assert.Contains(t, text, "Aachen, DE")
	assert.Contains(t, text, "Aalborg, DK")
	assert.Contains(t, text, "50.770000")
	assert.Contains(t, text, "empty")
	assert.Contains(t, text, "success", "banner reports the loaded catalog")
	assert.NotContains(t, text, "Abu Dhabi")
	assert.Equal(t, 2, h.requestCount)
}

func TestLimitAndEmptyLine(t *testing.T) {
	h, out := newHandler(t, "\n", 2)
	require.NoError(t, h.Start())
	assert.Contains(t, out.String(), "2 more")
}

func TestWhitespaceIsKept(t *testing.T) {
	h, out := newHandler(t, " sp", 10)
	require.NoError(t, h.Start())
	assert.Contains(t, out.String(), "Spaced")

	h, out = newHandler(t, "sp\r\n", 10)
	require.NoError(t, h.Start())
	assert.NotContains(t, out.String(), "Spaced")
}

func TestCommands(t *testing.T) {
	h, out := newHandler(t, ":complete a\n:stats\n:quit\naa\n", 10)
	require.NoError(t, h.Start())

	text := out.String()
	assert.Contains(t, text, "Aachen")
	assert.Contains(t, text, "records")
	assert.Equal(t, 0, h.requestCount, "nothing after :quit is read")
}
