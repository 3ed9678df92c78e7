package mapexport

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/shopspring/decimal"

	"github.com/osmap/backend/internal/domain/dispatch"
)

type fakeOrders struct {
	orders    map[string]dispatch.OrderRecord
	rows      []dispatch.OrderRecord
	fetchErr  error
	searchErr error

	mu       sync.Mutex
	searches []dispatch.SearchFilter
}

func (f *fakeOrders) FetchOrder(_ context.Context, orderID string) (dispatch.OrderRecord, error) {
	if f.fetchErr != nil {
		return dispatch.OrderRecord{}, f.fetchErr
	}
	order, ok := f.orders[orderID]
	if !ok {
		return dispatch.OrderRecord{}, dispatch.ErrUpstreamBadResponse.
			WithDetail(dispatch.DetailOrderID, orderID).
			WithDetail(dispatch.DetailReason, dispatch.ReasonEmptyResult)
	}
	return order, nil
}

func (f *fakeOrders) SearchOrders(_ context.Context, filter dispatch.SearchFilter) ([]dispatch.OrderRecord, error) {
	f.mu.Lock()
	f.searches = append(f.searches, filter)
	f.mu.Unlock()
	if f.searchErr != nil {
		return nil, f.searchErr
	}
	return f.rows, nil
}

type fakeClients struct {
	clients map[string]dispatch.ClientRecord
	errs    map[string]error
	// delay per client id, used to finish lookups out of order
	delays map[string]time.Duration
	// block makes every lookup wait for context cancellation
	block bool
}

func (f *fakeClients) FetchClient(ctx context.Context, clientID string) (dispatch.ClientRecord, error) {
	if f.block {
		<-ctx.Done()
		return dispatch.ClientRecord{}, ctx.Err()
	}
	if d := f.delays[clientID]; d > 0 {
		select {
		case <-time.After(d):
		case <-ctx.Done():
			return dispatch.ClientRecord{}, ctx.Err()
		}
	}
	if err := f.errs[clientID]; err != nil {
		return dispatch.ClientRecord{}, err
	}
	client, ok := f.clients[clientID]
	if !ok {
		return dispatch.ClientRecord{}, dispatch.ErrUpstreamBadResponse.WithDetail(dispatch.DetailClientID, clientID)
	}
	if err := client.CheckActive(); err != nil {
		return client, err
	}
	return client, nil
}

type fakeWriter struct {
	err error

	mu    sync.Mutex
	docs  []*dispatch.MarkerDocument
	names []string
}

func (f *fakeWriter) Write(_ context.Context, doc *dispatch.MarkerDocument, name string) (*dispatch.Artifact, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return nil, f.err
	}
	f.docs = append(f.docs, doc)
	f.names = append(f.names, name)
	return &dispatch.Artifact{
		Name:        name,
		Path:        "2026/10/" + name,
		URL:         "/artifacts/2026/10/" + name,
		MarkerCount: doc.Len(),
		ContentType: dispatch.KMLContentType,
	}, nil
}

func order(id, clientID, city, serviceType string) dispatch.OrderRecord {
	o := dispatch.NewOrderRecord(id)
	o.ClientID = dispatch.TextFrom(clientID)
	o.ClientName = dispatch.Known("Cliente " + clientID)
	o.City = dispatch.Known(city)
	o.ServiceType = dispatch.Known(serviceType)
	o.HistoryText = dispatch.Known("linha 1\r\nlinha 2")
	return o
}

func activeClient(id string, lon, lat float64) dispatch.ClientRecord {
	return dispatch.ClientRecord{
		ClientID:   id,
		StatusCode: dispatch.StatusActive,
		Name:       dispatch.Known("Cliente " + id),
		Longitude:  dispatch.ComponentOf(decimal.NewFromFloat(lon)),
		Latitude:   dispatch.ComponentOf(decimal.NewFromFloat(lat)),
	}
}

func clientWithoutCoordinates(id string) dispatch.ClientRecord {
	return dispatch.ClientRecord{
		ClientID:   id,
		StatusCode: dispatch.StatusActive,
		Longitude:  dispatch.MissingComponent(),
		Latitude:   dispatch.ComponentOf(decimal.Zero),
	}
}

func inactiveClient(id string) dispatch.ClientRecord {
	c := activeClient(id, -47.9, -18.1)
	c.StatusCode = "B"
	return c
}

func orderIDs(markers []dispatch.Marker) []string {
	ids := make([]string, len(markers))
	for i, m := range markers {
		ids[i] = m.OrderID
	}
	return ids
}

func clientIDFor(i int) string {
	return fmt.Sprintf("c%d", i)
}
