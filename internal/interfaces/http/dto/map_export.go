package dto

import (
	"github.com/osmap/backend/internal/application/mapexport"
	"github.com/osmap/backend/internal/domain/dispatch"
)

// OrderPathRequest binds the order id path parameter
type OrderPathRequest struct {
	OrderID string `uri:"order_id" binding:"required,max=64"`
}

// ClientPathRequest binds the client id path parameter
type ClientPathRequest struct {
	ClientID string `uri:"client_id" binding:"required,max=64"`
}

// FilterQuery binds the city and service type slugs of a batch export.
// Unknown or missing slugs fall back to the default filter.
type FilterQuery struct {
	City        string `form:"cidade" binding:"max=64"`
	ServiceType string `form:"tipo" binding:"max=64"`
}

// Slugs returns the query as filter slugs
func (q FilterQuery) Slugs() dispatch.FilterSlugs {
	return dispatch.FilterSlugs{City: q.City, ServiceType: q.ServiceType}
}

// OpenOrdersQuery binds GET /get_open_order/. Field and Value replace the
// default closure-date search when given together.
type OpenOrdersQuery struct {
	FilterQuery
	Field string `form:"campo1" binding:"required_with=Value,max=64"`
	Value string `form:"valor1" binding:"max=128"`
}

// ToQuery converts the request into the service query
func (q OpenOrdersQuery) ToQuery() mapexport.OpenOrdersQuery {
	return mapexport.OpenOrdersQuery{
		Field:       q.Field,
		Value:       q.Value,
		City:        q.City,
		ServiceType: q.ServiceType,
	}
}

// OpenOrdersResponse lists the orders a batch export would consider
type OpenOrdersResponse struct {
	City        string                 `json:"city"`
	ServiceType string                 `json:"service_type"`
	Count       int                    `json:"count"`
	Orders      []dispatch.OrderRecord `json:"orders"`
}

// NewOpenOrdersResponse builds the candidate list response
func NewOpenOrdersResponse(o *mapexport.OpenOrders) OpenOrdersResponse {
	orders := o.Orders
	if orders == nil {
		orders = []dispatch.OrderRecord{}
	}
	return OpenOrdersResponse{
		City:        o.Criteria.City,
		ServiceType: o.Criteria.ServiceType,
		Count:       len(orders),
		Orders:      orders,
	}
}

// SkippedOrder reports an order left out of a batch export
type SkippedOrder struct {
	OrderID  string `json:"order_id"`
	ClientID string `json:"client_id,omitempty"`
	Reason   string `json:"reason"`
}

// SkippedOrders converts the skip report of a batch export
func SkippedOrders(items []mapexport.ItemResult) []SkippedOrder {
	out := make([]SkippedOrder, 0, len(items))
	for _, item := range items {
		out = append(out, SkippedOrder{
			OrderID:  item.OrderID,
			ClientID: item.ClientID,
			Reason:   item.Reason,
		})
	}
	return out
}
