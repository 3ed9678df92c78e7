package mapexport

import (
	"context"
	"errors"
	"strings"

	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/osmap/backend/internal/domain/dispatch"
	"github.com/osmap/backend/internal/domain/shared"
	"github.com/osmap/backend/internal/infrastructure/logger"
	"github.com/osmap/backend/internal/infrastructure/telemetry"
)

// DefaultBatchWorkers bounds concurrent client lookups of a batch export
const DefaultBatchWorkers = 8

// Aggregator builds markers from CRM records. It keeps no state between
// calls.
type Aggregator struct {
	orders    OrderSource
	clients   ClientSource
	resolver  *dispatch.CoordinateResolver
	formatter *dispatch.DescriptionFormatter
	workers   int
	metrics   *telemetry.ExportMetrics
}

// NewAggregator creates an Aggregator. workers <= 0 selects DefaultBatchWorkers.
func NewAggregator(orders OrderSource, clients ClientSource, resolver *dispatch.CoordinateResolver, workers int) *Aggregator {
	if workers <= 0 {
		workers = DefaultBatchWorkers
	}
	if resolver == nil {
		resolver = dispatch.NewCoordinateResolver(dispatch.DefaultFallbackCoordinate)
	}
	return &Aggregator{
		orders:    orders,
		clients:   clients,
		resolver:  resolver,
		formatter: dispatch.NewDescriptionFormatter(),
		workers:   workers,
	}
}

// SetExportMetrics sets the metrics sink for skips and fallbacks
func (a *Aggregator) SetExportMetrics(m *telemetry.ExportMetrics) {
	a.metrics = m
}

// Single aggregates one order with strict coordinates. Every failure is
// returned unchanged.
func (a *Aggregator) Single(ctx context.Context, orderID string) (dispatch.Marker, error) {
	ctx, span := telemetry.StartSpan(ctx, "mapexport.aggregate_order",
		telemetry.WithAttribute(telemetry.SpanAttrOrderID, orderID),
	)
	defer span.End()

	order, err := a.orders.FetchOrder(ctx, orderID)
	if err != nil {
		telemetry.RecordError(span, err)
		return dispatch.Marker{}, err
	}

	marker, err := a.build(ctx, order, dispatch.ModeStrict)
	if err != nil {
		telemetry.RecordError(span, err)
		return dispatch.Marker{}, err
	}
	return marker, nil
}

// Candidates runs the server-side search and keeps the orders matching the
// criteria's city and service type exactly. A search failure is returned.
func (a *Aggregator) Candidates(ctx context.Context, criteria dispatch.FilterCriteria) ([]dispatch.OrderRecord, error) {
	var rows []dispatch.OrderRecord
	var err error
	telemetry.WithProfilingLabels(ctx, telemetry.RegionLabels(telemetry.RegionCRMSearch), func(ctx context.Context) {
		rows, err = a.orders.SearchOrders(ctx, criteria.Search)
	})
	if err != nil {
		return nil, err
	}
	candidates := make([]dispatch.OrderRecord, 0, len(rows))
	for _, order := range rows {
		if order.MatchesCriteria(criteria) {
			candidates = append(candidates, order)
		}
	}
	return candidates, nil
}

// Batch aggregates every candidate of criteria with lenient coordinates.
// Per-order failures become skipped items; a failed search or a cancelled
// context aborts the batch and returns no markers.
func (a *Aggregator) Batch(ctx context.Context, criteria dispatch.FilterCriteria) (*BatchResult, error) {
	ctx, span := telemetry.StartSpan(ctx, "mapexport.aggregate_batch",
		telemetry.WithAttribute(telemetry.SpanAttrFilterCity, criteria.City),
		telemetry.WithAttribute(telemetry.SpanAttrFilterType, criteria.ServiceType),
	)
	defer span.End()

	candidates, err := a.Candidates(ctx, criteria)
	if err != nil {
		telemetry.RecordError(span, err)
		return nil, err
	}

	items := make([]ItemResult, len(candidates))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(a.workers)
	for i, order := range candidates {
		if gctx.Err() != nil {
			break
		}
		g.Go(func() error {
			items[i] = ItemResult{OrderID: order.OrderID, ClientID: order.ClientID.Value()}
			var marker dispatch.Marker
			var err error
			telemetry.WithProfilingLabels(gctx, telemetry.RegionLabels(telemetry.RegionClientLookup), func(ctx context.Context) {
				marker, err = a.build(ctx, order, dispatch.ModeLenient)
			})
			if err == nil {
				items[i].Marker = &marker
				return nil
			}
			if gctx.Err() != nil || !skippable(err) {
				return err
			}
			items[i].Err = err
			items[i].Reason = skipReason(err)
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		telemetry.RecordError(span, err)
		return nil, err
	}
	if err := ctx.Err(); err != nil {
		telemetry.RecordError(span, err)
		return nil, err
	}

	result := &BatchResult{Criteria: criteria, Items: items}
	a.report(ctx, result)

	telemetry.SetAttributes(span,
		telemetry.SpanAttrMarkerCount, len(result.Markers()),
		telemetry.SpanAttrSkipCount, len(result.Skipped()),
	)
	telemetry.SetOK(span)
	return result, nil
}

// report logs and counts skips and fallbacks in candidate order; skips are
// also recorded as events on the batch span
func (a *Aggregator) report(ctx context.Context, result *BatchResult) {
	log := logger.L(ctx)
	span := trace.SpanFromContext(ctx)
	for _, item := range result.Items {
		switch {
		case item.Skipped():
			telemetry.AddEvent(span, "order_skipped",
				telemetry.SpanAttrOrderID, item.OrderID,
				telemetry.SpanAttrClientID, item.ClientID,
				"reason", item.Reason,
			)
			log.Warn("Order skipped from batch export",
				zap.String("order_id", item.OrderID),
				zap.String("client_id", item.ClientID),
				zap.String("reason", item.Reason),
				zap.Error(item.Err),
			)
			a.metrics.RecordSkipped(ctx, item.Reason)
		case item.Marker.Fallback:
			log.Warn("Client has no usable coordinates, using fallback point",
				zap.String("order_id", item.OrderID),
				zap.String("client_id", item.ClientID),
				zap.Stringer("fallback", a.resolver.Fallback()),
			)
			a.metrics.RecordFallback(ctx)
		}
	}
}

// build runs client lookup, coordinate resolution and description rendering
func (a *Aggregator) build(ctx context.Context, order dispatch.OrderRecord, mode dispatch.CoordinateMode) (dispatch.Marker, error) {
	clientID := strings.TrimSpace(order.ClientID.Value())
	if clientID == "" {
		return dispatch.Marker{}, dispatch.NewMissingClientError(order.OrderID)
	}

	client, err := a.clients.FetchClient(ctx, clientID)
	if err != nil {
		return dispatch.Marker{}, err
	}

	resolution, err := a.resolver.Resolve(client, mode)
	if err != nil {
		return dispatch.Marker{}, err
	}

	return dispatch.Marker{
		OrderID:         order.OrderID,
		Label:           dispatch.MarkerLabel(order),
		Coordinate:      resolution.Coordinate,
		DescriptionHTML: a.formatter.Render(dispatch.DescriptionInputFor(order)),
		Fallback:        resolution.Substituted,
	}, nil
}

func skippable(err error) bool {
	return dispatch.IsItemFailure(err) || errors.Is(err, shared.ErrInvalidInput)
}

// skipReason prefers a detail reason over the bare error code
func skipReason(err error) string {
	var de *shared.DomainError
	if errors.As(err, &de) {
		if reason := de.Detail(dispatch.DetailReason); reason != "" {
			return reason
		}
		return de.Code
	}
	return "unknown"
}
