package mapexport

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/osmap/backend/internal/domain/dispatch"
	"github.com/osmap/backend/internal/infrastructure/logger"
	"github.com/osmap/backend/internal/infrastructure/telemetry"
)

// Export modes, used as metric and log labels
const (
	ModeSingle = "single"
	ModeBatch  = "batch"
)

// Config holds export settings
type Config struct {
	BatchWorkers int
	Fallback     dispatch.Coordinate
	Search       dispatch.SearchFilter
}

// Service exposes the map export use cases
type Service struct {
	orders     OrderSource
	clients    ClientSource
	writer     DocumentWriter
	aggregator *Aggregator
	catalog    *dispatch.FilterCatalog
	metrics    *telemetry.ExportMetrics
	newID      func() string
}

// NewService creates a new map export Service
func NewService(orders OrderSource, clients ClientSource, writer DocumentWriter, cfg Config) *Service {
	fallback := cfg.Fallback
	if fallback.Longitude.IsZero() && fallback.Latitude.IsZero() {
		fallback = dispatch.DefaultFallbackCoordinate
	}
	search := cfg.Search
	if search.Field == "" {
		search = dispatch.DefaultSearchFilter()
	}

	return &Service{
		orders:     orders,
		clients:    clients,
		writer:     writer,
		aggregator: NewAggregator(orders, clients, dispatch.NewCoordinateResolver(fallback), cfg.BatchWorkers),
		catalog:    dispatch.NewFilterCatalog().WithSearch(search),
		newID:      func() string { return uuid.NewString() },
	}
}

// SetExportMetrics sets the metrics sink for the service and its aggregator
func (s *Service) SetExportMetrics(m *telemetry.ExportMetrics) {
	s.metrics = m
	s.aggregator.SetExportMetrics(m)
}

// Catalog returns the filter catalog used to resolve slugs
func (s *Service) Catalog() *dispatch.FilterCatalog {
	return s.catalog
}

// PreviewOrder aggregates one order without writing a document
func (s *Service) PreviewOrder(ctx context.Context, orderID string) (*dispatch.Marker, error) {
	if err := dispatch.ValidateOrderID(orderID); err != nil {
		return nil, err
	}
	marker, err := s.aggregator.Single(ctx, orderID)
	if err != nil {
		return nil, err
	}
	return &marker, nil
}

// LookupClient returns a client record that passed the activation gate
func (s *Service) LookupClient(ctx context.Context, clientID string) (*dispatch.ClientRecord, error) {
	if err := dispatch.ValidateClientID(clientID); err != nil {
		return nil, err
	}
	client, err := s.clients.FetchClient(ctx, clientID)
	if err != nil {
		return nil, err
	}
	return &client, nil
}

// ExportOrder writes a one-marker document for orderID
func (s *Service) ExportOrder(ctx context.Context, orderID string) (artifact *dispatch.Artifact, err error) {
	ctx, span := telemetry.StartServiceSpan(ctx, "mapexport", "export_order",
		telemetry.WithAttribute(telemetry.SpanAttrExportMode, ModeSingle),
		telemetry.WithAttribute(telemetry.SpanAttrOrderID, orderID),
	)
	defer span.End()

	start := time.Now()
	defer func() {
		s.metrics.RecordExport(ctx, ModeSingle, time.Since(start), err)
		telemetry.RecordError(span, err)
	}()

	marker, err := s.PreviewOrder(ctx, orderID)
	if err != nil {
		return nil, err
	}

	name := fmt.Sprintf("OS %s MAP", marker.OrderID)
	artifact, err = s.write(ctx, dispatch.NewMarkerDocument(name, *marker), name+".kml")
	if err != nil {
		return nil, err
	}
	s.metrics.RecordMarkers(ctx, ModeSingle, artifact.MarkerCount)
	return artifact, nil
}

// ExportFiltered writes a document with every open order matching slugs.
// Orders that fail are reported in Skipped; an empty document is valid.
func (s *Service) ExportFiltered(ctx context.Context, slugs dispatch.FilterSlugs) (export *FilteredExport, err error) {
	criteria := s.catalog.Resolve(slugs)

	ctx, span := telemetry.StartServiceSpan(ctx, "mapexport", "export_filtered",
		telemetry.WithAttribute(telemetry.SpanAttrExportMode, ModeBatch),
	)
	defer span.End()
	ctx = logger.WithFields(ctx,
		zap.String("export_mode", ModeBatch),
		zap.String("city", criteria.City),
		zap.String("service_type", criteria.ServiceType),
	)

	start := time.Now()
	defer func() {
		s.metrics.RecordExport(ctx, ModeBatch, time.Since(start), err)
		telemetry.RecordError(span, err)
	}()

	batch, err := s.aggregator.Batch(ctx, criteria)
	if err != nil {
		return nil, err
	}

	markers := batch.Markers()
	name := fmt.Sprintf("OS %s-%s %s MAP", criteria.City, criteria.ServiceType, shortID(s.newID()))
	artifact, err := s.write(ctx, dispatch.NewMarkerDocument(name, markers...), name+".kml")
	if err != nil {
		return nil, err
	}
	s.metrics.RecordMarkers(ctx, ModeBatch, artifact.MarkerCount)

	skipped := batch.Skipped()
	logger.L(ctx).Info("Batch export finished",
		zap.Int("candidates", len(batch.Items)),
		zap.Int("markers", len(markers)),
		zap.Int("skipped", len(skipped)),
		zap.String("artifact", artifact.Path),
	)

	return &FilteredExport{
		Artifact:   artifact,
		Criteria:   criteria,
		Candidates: len(batch.Items),
		Fallbacks:  batch.FallbackCount(),
		Skipped:    skipped,
	}, nil
}

// ListOpenOrders returns the candidate orders of a query without
// aggregating them.
func (s *Service) ListOpenOrders(ctx context.Context, query OpenOrdersQuery) (*OpenOrders, error) {
	criteria := s.catalog.Resolve(dispatch.FilterSlugs{City: query.City, ServiceType: query.ServiceType})
	if query.Field != "" {
		criteria.Search = dispatch.SearchFilter{Field: query.Field, Value: query.Value}
	}

	orders, err := s.aggregator.Candidates(ctx, criteria)
	if err != nil {
		return nil, err
	}
	return &OpenOrders{Criteria: criteria, Orders: orders}, nil
}

func (s *Service) write(ctx context.Context, doc *dispatch.MarkerDocument, name string) (*dispatch.Artifact, error) {
	var artifact *dispatch.Artifact
	var err error
	telemetry.WithProfilingLabels(ctx, telemetry.RegionLabels(telemetry.RegionKMLWrite), func(ctx context.Context) {
		artifact, err = s.writer.Write(ctx, doc, name)
	})
	if err != nil {
		if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
			return nil, err
		}
		return nil, dispatch.NewExportFailedError(err)
	}
	return artifact, nil
}

func shortID(id string) string {
	if len(id) > 8 {
		return id[:8]
	}
	return id
}
