package dispatch

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/shopspring/decimal"
)

// CoordinateComponent is one axis of a CRM coordinate. The CRM sends numbers,
// numeric strings, empty strings or null, so presence is tracked separately.
type CoordinateComponent struct {
	value   decimal.Decimal
	present bool
}

// ComponentOf wraps a known value
func ComponentOf(d decimal.Decimal) CoordinateComponent {
	return CoordinateComponent{value: d, present: true}
}

// MissingComponent is an absent axis
func MissingComponent() CoordinateComponent {
	return CoordinateComponent{}
}

// ParseComponent converts a decoded JSON value into a component.
// Unparseable input is treated as missing.
func ParseComponent(raw any) CoordinateComponent {
	switch v := raw.(type) {
	case nil:
		return MissingComponent()
	case float64:
		return ComponentOf(decimal.NewFromFloat(v))
	case json.Number:
		return parseComponentString(v.String())
	case string:
		return parseComponentString(v)
	default:
		return parseComponentString(fmt.Sprint(v))
	}
}

func parseComponentString(s string) CoordinateComponent {
	s = strings.TrimSpace(strings.ReplaceAll(s, ",", "."))
	if s == "" {
		return MissingComponent()
	}
	d, err := decimal.NewFromString(s)
	if err != nil {
		return MissingComponent()
	}
	return ComponentOf(d)
}

// IsPresent reports whether the CRM supplied a value
func (c CoordinateComponent) IsPresent() bool {
	return c.present
}

// Decimal returns the value (zero when missing)
func (c CoordinateComponent) Decimal() decimal.Decimal {
	return c.value
}

// Usable reports whether the component is present and not the zero value
func (c CoordinateComponent) Usable() bool {
	return c.present && !c.value.IsZero()
}

// MarshalJSON renders missing components as null
func (c CoordinateComponent) MarshalJSON() ([]byte, error) {
	if !c.present {
		return []byte("null"), nil
	}
	return []byte(c.value.String()), nil
}

// RawCoordinate is the coordinate pair exactly as the CRM reported it
type RawCoordinate struct {
	Longitude CoordinateComponent
	Latitude  CoordinateComponent
}

// Valid reports whether both components are present and non-zero
func (r RawCoordinate) Valid() bool {
	return r.Longitude.Usable() && r.Latitude.Usable()
}

// Coordinate is a resolved, usable (longitude, latitude) pair
type Coordinate struct {
	Longitude decimal.Decimal `json:"longitude"`
	Latitude  decimal.Decimal `json:"latitude"`
}

// NewCoordinate builds a coordinate from float degrees
func NewCoordinate(longitude, latitude float64) Coordinate {
	return Coordinate{
		Longitude: decimal.NewFromFloat(longitude),
		Latitude:  decimal.NewFromFloat(latitude),
	}
}

// Lon returns the longitude in float degrees
func (c Coordinate) Lon() float64 {
	f, _ := c.Longitude.Float64()
	return f
}

// Lat returns the latitude in float degrees
func (c Coordinate) Lat() float64 {
	f, _ := c.Latitude.Float64()
	return f
}

// String renders the pair as "lon,lat"
func (c Coordinate) String() string {
	return c.Longitude.String() + "," + c.Latitude.String()
}

// CoordinateMode selects how invalid coordinates are handled
type CoordinateMode int

const (
	// ModeStrict rejects invalid coordinates (single-order export)
	ModeStrict CoordinateMode = iota
	// ModeLenient substitutes the fallback point (batch export)
	ModeLenient
)

func (m CoordinateMode) String() string {
	if m == ModeLenient {
		return "lenient"
	}
	return "strict"
}

// DefaultFallbackCoordinate is the depot point used when a client has no
// usable coordinates during a batch export.
var DefaultFallbackCoordinate = NewCoordinate(-47.962979, -18.153650)

// CoordinateResolution is the outcome of resolving a client's coordinate
type CoordinateResolution struct {
	Coordinate Coordinate
	// Substituted is true when the fallback point replaced an invalid pair
	Substituted bool
}

// CoordinateResolver applies the coordinate validity and fallback policy
type CoordinateResolver struct {
	fallback Coordinate
}

// NewCoordinateResolver creates a resolver with the given fallback point
func NewCoordinateResolver(fallback Coordinate) *CoordinateResolver {
	return &CoordinateResolver{fallback: fallback}
}

// Fallback returns the configured fallback point
func (r *CoordinateResolver) Fallback() Coordinate {
	return r.fallback
}

// Resolve produces a usable coordinate for the client under the given mode
func (r *CoordinateResolver) Resolve(client ClientRecord, mode CoordinateMode) (CoordinateResolution, error) {
	raw := client.Coordinate()
	if raw.Valid() {
		return CoordinateResolution{
			Coordinate: Coordinate{
				Longitude: raw.Longitude.Decimal(),
				Latitude:  raw.Latitude.Decimal(),
			},
		}, nil
	}
	if mode == ModeStrict {
		return CoordinateResolution{}, NewMissingCoordinatesError(client.ClientID)
	}
	return CoordinateResolution{Coordinate: r.fallback, Substituted: true}, nil
}
