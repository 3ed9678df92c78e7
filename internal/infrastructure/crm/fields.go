package crm

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/osmap/backend/internal/domain/dispatch"
)

// text converts a row value into an optional text. Missing keys, null and
// blank strings are unset.
func (r row) text(key string) dispatch.Text {
	v, ok := r[key]
	if !ok || v == nil {
		return dispatch.Unset()
	}
	switch t := v.(type) {
	case string:
		return dispatch.TextFrom(t)
	case json.Number:
		return dispatch.Known(t.String())
	default:
		return dispatch.TextFrom(fmt.Sprint(t))
	}
}

// str returns the trimmed value of key, "" when unset
func (r row) str(key string) string {
	return strings.TrimSpace(r.text(key).Value())
}

func orderFromRow(r row, requestedID string) dispatch.OrderRecord {
	orderID := r.str(keyOrderID)
	if orderID == "" {
		orderID = requestedID
	}
	order := dispatch.NewOrderRecord(orderID)
	order.ClientID = r.text(keyOrderClient)
	order.ClientName = r.text(keyOrderName)
	order.TechnicalLocationNote = r.text(keyOrderNote)
	order.HistoryText = r.text(keyOrderHistory)
	order.City = r.text(keyOrderCity)
	order.ServiceType = r.text(keyOrderType)
	order.ClosedAt = r.text(keyOrderClosed)
	return order
}

var knownClientKeys = map[string]struct{}{
	keyClientID:        {},
	keyClientStatus:    {},
	keyClientName:      {},
	keyClientReference: {},
	keyClientLongitude: {},
	keyClientLatitude:  {},
}

func clientFromRow(r row, requestedID string) dispatch.ClientRecord {
	clientID := r.str(keyClientID)
	if clientID == "" {
		clientID = strings.TrimSpace(requestedID)
	}
	client := dispatch.ClientRecord{
		ClientID:   clientID,
		StatusCode: r.str(keyClientStatus),
		Name:       r.text(keyClientName),
		Reference:  r.text(keyClientReference),
		Longitude:  dispatch.ParseComponent(r[keyClientLongitude]),
		Latitude:   dispatch.ParseComponent(r[keyClientLatitude]),
	}
	for k, v := range r {
		if _, known := knownClientKeys[k]; known {
			continue
		}
		if client.Extra == nil {
			client.Extra = make(map[string]any)
		}
		client.Extra[k] = v
	}
	return client
}
