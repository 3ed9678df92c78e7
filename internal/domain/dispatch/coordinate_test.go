package dispatch

import (
	"encoding/json"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseComponent(t *testing.T) {
	tests := []struct {
		name    string
		raw     any
		present bool
		want    string
	}{
		{name: "nil", raw: nil, present: false},
		{name: "empty string", raw: "", present: false},
		{name: "blank string", raw: "   ", present: false},
		{name: "garbage", raw: "abc", present: false},
		{name: "numeric string", raw: "-47.9", present: true, want: "-47.9"},
		{name: "comma decimal", raw: "-18,1", present: true, want: "-18.1"},
		{name: "float", raw: float64(-18.15365), present: true, want: "-18.15365"},
		{name: "json number", raw: json.Number("-47.962979"), present: true, want: "-47.962979"},
		{name: "zero string", raw: "0", present: true, want: "0"},
		{name: "zero float", raw: float64(0), present: true, want: "0"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := ParseComponent(tt.raw)
			assert.Equal(t, tt.present, c.IsPresent())
			if tt.present {
				assert.Equal(t, tt.want, c.Decimal().String())
			}
		})
	}
}

func TestCoordinateComponent_Usable(t *testing.T) {
	assert.False(t, MissingComponent().Usable())
	assert.False(t, ComponentOf(decimal.Zero).Usable())
	assert.True(t, ComponentOf(decimal.RequireFromString("-18.1")).Usable())
}

func TestCoordinateComponent_MarshalJSON(t *testing.T) {
	b, err := json.Marshal(MissingComponent())
	require.NoError(t, err)
	assert.Equal(t, "null", string(b))

	b, err = json.Marshal(ParseComponent("-47.9"))
	require.NoError(t, err)
	assert.Equal(t, "-47.9", string(b))
}

func clientWith(lon, lat any) ClientRecord {
	return ClientRecord{
		ClientID:   "7",
		StatusCode: StatusActive,
		Longitude:  ParseComponent(lon),
		Latitude:   ParseComponent(lat),
	}
}

func TestCoordinateResolver_Resolve(t *testing.T) {
	resolver := NewCoordinateResolver(DefaultFallbackCoordinate)

	t.Run("valid coordinate passes through in strict mode", func(t *testing.T) {
		res, err := resolver.Resolve(clientWith("-47.9", "-18.1"), ModeStrict)
		require.NoError(t, err)
		assert.False(t, res.Substituted)
		assert.Equal(t, "-47.9", res.Coordinate.Longitude.String())
		assert.Equal(t, "-18.1", res.Coordinate.Latitude.String())
	})

	t.Run("valid coordinate passes through in lenient mode", func(t *testing.T) {
		res, err := resolver.Resolve(clientWith("-47.9", "-18.1"), ModeLenient)
		require.NoError(t, err)
		assert.False(t, res.Substituted)
		assert.Equal(t, "-47.9,-18.1", res.Coordinate.String())
	})

	t.Run("zero longitude fails strict mode", func(t *testing.T) {
		_, err := resolver.Resolve(clientWith(float64(0), "-18.1"), ModeStrict)
		require.Error(t, err)
		assert.ErrorIs(t, err, ErrMissingCoordinates)
		assert.Equal(t, CodeMissingCoordinates, ErrorCode(err))
	})

	t.Run("zero longitude falls back in lenient mode", func(t *testing.T) {
		res, err := resolver.Resolve(clientWith(float64(0), "-18.1"), ModeLenient)
		require.NoError(t, err)
		assert.True(t, res.Substituted)
		assert.Equal(t, DefaultFallbackCoordinate, res.Coordinate)
	})

	t.Run("missing latitude fails strict mode", func(t *testing.T) {
		_, err := resolver.Resolve(clientWith("-47.9", nil), ModeStrict)
		assert.ErrorIs(t, err, ErrMissingCoordinates)
	})

	t.Run("empty strings fall back in lenient mode", func(t *testing.T) {
		res, err := resolver.Resolve(clientWith("", ""), ModeLenient)
		require.NoError(t, err)
		assert.True(t, res.Substituted)
	})

	t.Run("custom fallback point is used", func(t *testing.T) {
		custom := NewCoordinate(-48.0, -17.5)
		r := NewCoordinateResolver(custom)
		res, err := r.Resolve(clientWith(nil, nil), ModeLenient)
		require.NoError(t, err)
		assert.Equal(t, custom, res.Coordinate)
		assert.Equal(t, custom, r.Fallback())
	})
}

func TestCoordinate_Floats(t *testing.T) {
	c := NewCoordinate(-47.962979, -18.15365)
	assert.InDelta(t, -47.962979, c.Lon(), 1e-9)
	assert.InDelta(t, -18.15365, c.Lat(), 1e-9)
}

func TestCoordinateMode_String(t *testing.T) {
	assert.Equal(t, "strict", ModeStrict.String())
	assert.Equal(t, "lenient", ModeLenient.String())
}
