/*
Package server implements msgpack IPC for place search.

Clients write msgpack maps to stdin, one after another with no framing, and read one
msgpack map per request from stdout. Logs go to stderr. The first message the server
writes is a ready status:

	{"id": "", "status": "ready", "v": 3, "n": 209557}

# Requests

Every request has an id and an action ("a"); the action defaults to "search":

	{"id": "req_001", "p": "ams", "l": 10, "o": 0}

The server answers with the matching records in catalog order, the total number of
matches and the catalog version that answered:

	{"id": "req_001", "st": "update", "r": [{"_id": "2759794", "name": "Amsterdam", "country": "NL", "coord": {...}}], "c": 1, "n": 1, "v": 3, "t": 41}

"t" is the time taken in microseconds. An empty or whitespace prefix pages through the
whole catalog. A request without an id gets a generated one.

Other actions:

	{"id": "c1", "a": "complete", "p": "spring", "l": 5}   distinct names with counts
	{"id": "r1", "a": "record", "i": 1042}                 one record by catalog index
	{"id": "s1", "a": "stats"}                             engine and completer numbers
	{"id": "x1", "a": "reload"}                            reload the data files
	{"id": "h1", "a": "health"}

Failures are answered with an ErrorResponse carrying an HTTP-like code: 400 for a
malformed request, 404 for an index outside the catalog, 500 for internal failures
such as a failed reload.

# Live mode

With live mode on, searches run in the background and a search that is overtaken by a
newer one is never answered. This suits clients that send a request per keystroke and
only care about the latest text.
*/
package server

import (
	"github.com/bastiangx/placeserve/pkg/place"
	"github.com/bastiangx/placeserve/pkg/resource"
	"github.com/bastiangx/placeserve/pkg/suggest"
)

// Actions understood by the server.
const (
	ActionSearch   = "search"
	ActionComplete = "complete"
	ActionRecord   = "record"
	ActionStats    = "stats"
	ActionReload   = "reload"
	ActionHealth   = "health"
)

// Request is the single request shape; fields unused by an action are ignored.
type Request struct {
	ID     string `msgpack:"id"`
	Action string `msgpack:"a,omitempty"`
	Prefix string `msgpack:"p,omitempty"`
	Limit  int    `msgpack:"l,omitempty"`
	Offset int    `msgpack:"o,omitempty"`
	Index  *int   `msgpack:"i,omitempty"`
}

// SearchResponse - one page of prefix matches
type SearchResponse struct {
	ID        string         `msgpack:"id"`
	State     resource.State `msgpack:"st"`
	Records   []place.Record `msgpack:"r"`
	Count     int            `msgpack:"c"`
	Total     int            `msgpack:"n"`
	Version   uint64         `msgpack:"v"`
	TimeTaken int64          `msgpack:"t"`
}

// CompleteResponse - distinct name completions
type CompleteResponse struct {
	ID          string               `msgpack:"id"`
	Suggestions []suggest.Suggestion `msgpack:"s"`
	Count       int                  `msgpack:"c"`
	TimeTaken   int64                `msgpack:"t"`
}

// RecordResponse - a record by index, with its S2 cell token when located
type RecordResponse struct {
	ID     string         `msgpack:"id"`
	State  resource.State `msgpack:"st"`
	Record place.Record   `msgpack:"r"`
	Cell   string         `msgpack:"cell,omitempty"`
}

// StatsResponse - engine, completer and server counters
type StatsResponse struct {
	ID    string         `msgpack:"id"`
	Stats map[string]int `msgpack:"s"`
}

// StatusResponse answers ready, health and reload.
type StatusResponse struct {
	ID      string `msgpack:"id"`
	Status  string `msgpack:"status"`
	Version uint64 `msgpack:"v,omitempty"`
	Records int    `msgpack:"n,omitempty"`
}

// ErrorResponse holds basic error information for failed requests
type ErrorResponse struct {
	ID    string `msgpack:"id"`
	Error string `msgpack:"e"`
	Code  int    `msgpack:"c"`
}
