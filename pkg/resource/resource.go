// Package resource wraps the outcome of loading or querying the catalog.
package resource

import (
	"fmt"
	"strings"

	"github.com/bastiangx/placeserve/pkg/catalog"
	"github.com/bastiangx/placeserve/pkg/place"
	"github.com/vmihailenco/msgpack/v5"
)

// State tags a Resource.
type State uint8

const (
	StateLoading State = iota
	StateSuccess
	StateEmpty
	StateError
	StateUpdate
)

// Reasons reported with StateError.
const (
	ReasonCatalog = "cities_list_error"
	ReasonQuery   = "search_error"
)

var stateNames = [...]string{"loading", "success", "empty", "error", "update"}

func (s State) String() string {
	if int(s) < len(stateNames) {
		return stateNames[s]
	}
	return fmt.Sprintf("state(%d)", uint8(s))
}

// ParseState is the inverse of String.
func ParseState(name string) (State, error) {
	for i, n := range stateNames {
		if strings.EqualFold(n, name) {
			return State(i), nil
		}
	}
	return 0, fmt.Errorf("unknown resource state %q", name)
}

func (s State) MarshalText() ([]byte, error) {
	return []byte(s.String()), nil
}

func (s *State) UnmarshalText(text []byte) error {
	parsed, err := ParseState(string(text))
	if err != nil {
		return err
	}
	*s = parsed
	return nil
}

var (
	_ msgpack.CustomEncoder = State(0)
	_ msgpack.CustomDecoder = (*State)(nil)
)

func (s State) EncodeMsgpack(enc *msgpack.Encoder) error {
	return enc.EncodeString(s.String())
}

func (s *State) DecodeMsgpack(dec *msgpack.Decoder) error {
	name, err := dec.DecodeString()
	if err != nil {
		return err
	}
	return s.UnmarshalText([]byte(name))
}

// Resource is the state of a catalog load or a query together with its records.
// Data is set for Success and Update, Reason for Error.
type Resource struct {
	State  State          `msgpack:"st" json:"state"`
	Data   []place.Record `msgpack:"d,omitempty" json:"data,omitempty"`
	Reason string         `msgpack:"e,omitempty" json:"reason,omitempty"`
}

func Loading() Resource {
	return Resource{State: StateLoading}
}

func Success(data []place.Record) Resource {
	return Resource{State: StateSuccess, Data: data}
}

func Empty() Resource {
	return Resource{State: StateEmpty}
}

func Error(reason string) Resource {
	return Resource{State: StateError, Reason: reason}
}

func Update(data []place.Record) Resource {
	return Resource{State: StateUpdate, Data: data}
}

// FromCatalog reports a catalog load. A failed load is an Error, an empty catalog is
// Empty.
func FromCatalog(c *catalog.Catalog, err error) Resource {
	switch {
	case err != nil:
		return Error(ReasonCatalog)
	case c == nil || c.Size() == 0:
		return Empty()
	default:
		return Success(c.All())
	}
}

// FromSearch reports the records of a query.
func FromSearch(records []place.Record) Resource {
	if len(records) == 0 {
		return Empty()
	}
	return Update(records)
}

// Len is the number of records carried.
func (r Resource) Len() int {
	return len(r.Data)
}

// OK reports whether the resource carries records.
func (r Resource) OK() bool {
	return r.State == StateSuccess || r.State == StateUpdate
}
