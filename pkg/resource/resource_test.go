package resource

import (
	"errors"
	"testing"

	"github.com/bastiangx/placeserve/pkg/catalog"
	"github.com/bastiangx/placeserve/pkg/place"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/vmihailenco/msgpack/v5"
)

func TestConstructors(t *testing.T) {
	data := []place.Record{{Name: "Aachen"}}

	assert.Equal(t, StateLoading, Loading().State)
	assert.Equal(t, StateEmpty, Empty().State)
	assert.False(t, Empty().OK())

	s := Success(data)
	assert.Equal(t, StateSuccess, s.State)
	assert.True(t, s.OK())
	assert.Equal(t, 1, s.Len())

	u := Update(data)
	assert.Equal(t, StateUpdate, u.State)
	assert.True(t, u.OK())

	e := Error("boom")
	assert.Equal(t, StateError, e.State)
	assert.Equal(t, "boom", e.Reason)
	assert.Nil(t, e.Data)
}

func TestFromCatalog(t *testing.T) {
	assert.Equal(t, Error(ReasonCatalog), FromCatalog(nil, errors.New("no file")))
	assert.Equal(t, StateEmpty, FromCatalog(nil, nil).State)
	assert.Equal(t, StateEmpty, FromCatalog(catalog.Build(nil), nil).State)

	r := FromCatalog(catalog.Build([]place.Record{{Name: "b"}, {Name: "a"}}), nil)
	require.Equal(t, StateSuccess, r.State)
	assert.Equal(t, "a", r.Data[0].Name)
}

func TestFromSearch(t *testing.T) {
	assert.Equal(t, StateEmpty, FromSearch(nil).State)
	assert.Equal(t, StateEmpty, FromSearch([]place.Record{}).State)
	assert.Equal(t, StateUpdate, FromSearch([]place.Record{{Name: "a"}}).State)
}

func TestStateText(t *testing.T) {
	tests := []struct {
		state State
		name  string
	}{
		{StateLoading, "loading"},
		{StateSuccess, "success"},
		{StateEmpty, "empty"},
		{StateError, "error"},
		{StateUpdate, "update"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.name, tt.state.String())
			parsed, err := ParseState(tt.name)
			require.NoError(t, err)
			assert.Equal(t, tt.state, parsed)
		})
	}

	assert.Equal(t, "state(9)", State(9).String())
	_, err := ParseState("done")
	assert.Error(t, err)
}

func TestStateMsgpack(t *testing.T) {
	b, err := msgpack.Marshal(Update([]place.Record{{Name: "Aachen", CountryCode: "DE"}}))
	require.NoError(t, err)

	var raw map[string]any
	require.NoError(t, msgpack.Unmarshal(b, &raw))
	assert.Equal(t, "update", raw["st"])

	var back Resource
	require.NoError(t, msgpack.Unmarshal(b, &back))
	assert.Equal(t, StateUpdate, back.State)
	assert.Equal(t, "Aachen", back.Data[0].Name)
}
