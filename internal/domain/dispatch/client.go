package dispatch

import "github.com/osmap/backend/internal/domain/shared"

// StatusActive is the CRM "situacao" value of a released client.
// Any other status keeps the client off the dispatch map.
const StatusActive = "L"

// ClientRecord is a CRM client row
type ClientRecord struct {
	ClientID   string              `json:"client_id"`
	StatusCode string              `json:"status_code"`
	Name       Text                `json:"name"`
	Reference  Text                `json:"reference"`
	Longitude  CoordinateComponent `json:"longitude"`
	Latitude   CoordinateComponent `json:"latitude"`
	Extra      map[string]any      `json:"extra,omitempty"`
}

// IsActive reports whether the client passes the activation gate
func (c ClientRecord) IsActive() bool {
	return c.StatusCode == StatusActive
}

// CheckActive returns ClientNotActive when the gate fails
func (c ClientRecord) CheckActive() error {
	if c.IsActive() {
		return nil
	}
	return NewClientNotActiveError(c.ClientID, c.StatusCode)
}

// Coordinate returns the raw coordinate pair as reported by the CRM
func (c ClientRecord) Coordinate() RawCoordinate {
	return RawCoordinate{Longitude: c.Longitude, Latitude: c.Latitude}
}

func errInvalidID(kind string) error {
	return shared.ErrInvalidInput.WithMessage("%s id must not be empty", kind)
}
