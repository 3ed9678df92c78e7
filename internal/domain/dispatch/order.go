package dispatch

import "strings"

// OrderRecord is one service order as mapped from a CRM row.
// It is built once per export and never modified afterwards.
type OrderRecord struct {
	OrderID               string `json:"order_id"`
	ClientID              Text   `json:"client_id"`
	ClientName            Text   `json:"client_name"`
	TechnicalLocationNote Text   `json:"technical_location_note"`
	HistoryText           Text   `json:"history_text"`
	City                  Text   `json:"city"`
	ServiceType           Text   `json:"service_type"`
	ClosedAt              Text   `json:"closed_at"`
}

// NewOrderRecord returns a record whose optional fields are all unset
func NewOrderRecord(orderID string) OrderRecord {
	return OrderRecord{OrderID: strings.TrimSpace(orderID)}
}

// MatchesCriteria reports whether the order's city and service type equal
// the criteria literals exactly. Unset fields never match.
func (o OrderRecord) MatchesCriteria(c FilterCriteria) bool {
	if !o.City.IsSet() || !o.ServiceType.IsSet() {
		return false
	}
	return o.City.Value() == c.City && o.ServiceType.Value() == c.ServiceType
}

// ValidateOrderID checks an order identifier is a non-empty token
func ValidateOrderID(orderID string) error {
	if strings.TrimSpace(orderID) == "" {
		return errInvalidID("order")
	}
	return nil
}

// ValidateClientID checks a client identifier is a non-empty token
func ValidateClientID(clientID string) error {
	if strings.TrimSpace(clientID) == "" {
		return errInvalidID("client")
	}
	return nil
}
