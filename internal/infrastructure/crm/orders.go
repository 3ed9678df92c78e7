package crm

import (
	"context"
	"strings"

	"go.uber.org/zap"

	"github.com/osmap/backend/internal/domain/dispatch"
)

// FetchOrder looks up one service order by id. An empty result set is an
// UpstreamBadResponse with reason empty_result.
func (c *Client) FetchOrder(ctx context.Context, orderID string) (dispatch.OrderRecord, error) {
	if err := dispatch.ValidateOrderID(orderID); err != nil {
		return dispatch.OrderRecord{}, err
	}
	orderID = strings.TrimSpace(orderID)

	rows, err := c.searchRows(ctx, newSearchRequest(fieldOrderID, orderID))
	if err != nil {
		return dispatch.OrderRecord{}, err
	}
	if len(rows) == 0 {
		return dispatch.OrderRecord{}, dispatch.ErrUpstreamBadResponse.
			WithMessage("crm returned no order for id %s", orderID).
			WithDetail(dispatch.DetailOrderID, orderID).
			WithDetail(dispatch.DetailReason, dispatch.ReasonEmptyResult)
	}
	return orderFromRow(rows[0], orderID), nil
}

// SearchOrders runs a server-side order search. An empty result is valid.
func (c *Client) SearchOrders(ctx context.Context, filter dispatch.SearchFilter) ([]dispatch.OrderRecord, error) {
	if filter.Field == "" {
		filter = dispatch.DefaultSearchFilter()
	}
	rows, err := c.searchRows(ctx, newSearchRequest(filter.Field, filter.Value))
	if err != nil {
		return nil, err
	}

	orders := make([]dispatch.OrderRecord, 0, len(rows))
	for i, r := range rows {
		order := orderFromRow(r, "")
		if order.OrderID == "" {
			c.logger.Warn("crm search row without order id",
				zap.Int("row", i),
				zap.String("field", filter.Field),
			)
			continue
		}
		orders = append(orders, order)
	}
	return orders, nil
}

func (c *Client) searchRows(ctx context.Context, req searchRequest) ([]row, error) {
	body, err := c.doRequest(ctx, pathOrderSearch, req, true)
	if err != nil {
		return nil, err
	}
	var rows []row
	if err := decodeJSON(body, &rows); err != nil {
		return nil, badPayload(pathOrderSearch, err)
	}
	return rows, nil
}
