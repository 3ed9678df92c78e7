// Package mapexport turns CRM service orders into map documents.
package mapexport

import (
	"context"

	"github.com/osmap/backend/internal/domain/dispatch"
)

// OrderSource reads service orders from the CRM
type OrderSource interface {
	FetchOrder(ctx context.Context, orderID string) (dispatch.OrderRecord, error)
	SearchOrders(ctx context.Context, filter dispatch.SearchFilter) ([]dispatch.OrderRecord, error)
}

// ClientSource reads client records from the CRM. A client that fails the
// activation gate is returned together with a ClientNotActive error.
type ClientSource interface {
	FetchClient(ctx context.Context, clientID string) (dispatch.ClientRecord, error)
}

// DocumentWriter serializes and stores a marker document
type DocumentWriter interface {
	Write(ctx context.Context, doc *dispatch.MarkerDocument, name string) (*dispatch.Artifact, error)
}
