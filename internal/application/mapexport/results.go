package mapexport

import (
	"github.com/osmap/backend/internal/domain/dispatch"
)

// ItemResult is the outcome of aggregating one batch candidate. Exactly one
// of Marker and Err is set.
type ItemResult struct {
	OrderID  string           `json:"order_id"`
	ClientID string           `json:"client_id,omitempty"`
	Marker   *dispatch.Marker `json:"marker,omitempty"`
	Err      error            `json:"-"`
	// Reason is the error code of a skipped item
	Reason string `json:"reason,omitempty"`
}

// Skipped reports whether the item was left out of the document
func (r ItemResult) Skipped() bool {
	return r.Err != nil
}

// BatchResult holds the per-candidate outcomes in candidate order
type BatchResult struct {
	Criteria dispatch.FilterCriteria
	Items    []ItemResult
}

// Markers returns the successful markers, preserving candidate order
func (b *BatchResult) Markers() []dispatch.Marker {
	markers := make([]dispatch.Marker, 0, len(b.Items))
	for _, item := range b.Items {
		if item.Marker != nil {
			markers = append(markers, *item.Marker)
		}
	}
	return markers
}

// Skipped returns the items that failed
func (b *BatchResult) Skipped() []ItemResult {
	var skipped []ItemResult
	for _, item := range b.Items {
		if item.Skipped() {
			skipped = append(skipped, item)
		}
	}
	return skipped
}

// FallbackCount returns how many markers use the fallback point
func (b *BatchResult) FallbackCount() int {
	n := 0
	for _, item := range b.Items {
		if item.Marker != nil && item.Marker.Fallback {
			n++
		}
	}
	return n
}

// FilteredExport is the result of a batch export
type FilteredExport struct {
	Artifact   *dispatch.Artifact      `json:"artifact"`
	Criteria   dispatch.FilterCriteria `json:"criteria"`
	Candidates int                     `json:"candidates"`
	Fallbacks  int                     `json:"fallbacks"`
	Skipped    []ItemResult            `json:"skipped"`
}

// OpenOrdersQuery selects the candidate list of GET /get_open_order/.
// An empty Field uses the configured closure-date search.
type OpenOrdersQuery struct {
	Field       string
	Value       string
	City        string
	ServiceType string
}

// OpenOrders is the filtered candidate list
type OpenOrders struct {
	Criteria dispatch.FilterCriteria `json:"criteria"`
	Orders   []dispatch.OrderRecord  `json:"orders"`
}
