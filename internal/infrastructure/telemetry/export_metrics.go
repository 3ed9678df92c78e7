package telemetry

import (
	"context"
	"errors"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
	"go.uber.org/zap"
)

// Export metric attribute keys
var (
	AttrExportMode  = attribute.Key("export_mode")
	AttrSkipReason  = attribute.Key("skip_reason")
	AttrCRMEndpoint = attribute.Key("crm.endpoint")
	AttrOutcome     = attribute.Key("outcome")
)

// Call outcomes
const (
	OutcomeOK       = "ok"
	OutcomeError    = "error"
	OutcomeCanceled = "canceled"
)

// ExportMetrics tracks map exports: markers produced, orders skipped, fallback
// substitutions and CRM latency. A nil *ExportMetrics records nothing.
type ExportMetrics struct {
	logger *zap.Logger

	markersExported *Counter
	ordersSkipped   *Counter
	fallbackTotal   *Counter
	exportDuration  *Histogram
	crmCallDuration *Histogram
}

// ExportMetricsConfig holds configuration for export metrics
type ExportMetricsConfig struct {
	Meter  metric.Meter
	Logger *zap.Logger
}

// NewExportMetrics creates the export instruments on the given meter
func NewExportMetrics(cfg ExportMetricsConfig) (*ExportMetrics, error) {
	if cfg.Meter == nil {
		return nil, ErrMeterNil
	}

	logger := cfg.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	em := &ExportMetrics{logger: logger}

	var err error
	em.markersExported, err = NewCounter(cfg.Meter,
		"osmap_markers_exported_total",
		"Total number of markers written to map documents",
		"{markers}",
	)
	if err != nil {
		return nil, err
	}

	em.ordersSkipped, err = NewCounter(cfg.Meter,
		"osmap_orders_skipped_total",
		"Orders skipped by batch exports, by reason",
		"{orders}",
	)
	if err != nil {
		return nil, err
	}

	em.fallbackTotal, err = NewCounter(cfg.Meter,
		"osmap_fallback_coordinates_total",
		"Markers placed on the fallback point because the client had no usable coordinates",
		"{markers}",
	)
	if err != nil {
		return nil, err
	}

	em.exportDuration, err = NewHistogram(cfg.Meter, HistogramOpts{
		Name:        "osmap_export_duration_seconds",
		Description: "Duration of map exports",
		Unit:        "s",
		Boundaries:  HTTPDurationBuckets,
	})
	if err != nil {
		return nil, err
	}

	em.crmCallDuration, err = NewHistogram(cfg.Meter, HistogramOpts{
		Name:        "osmap_crm_call_duration_seconds",
		Description: "Duration of CRM calls",
		Unit:        "s",
		Boundaries:  HTTPDurationBuckets,
	})
	if err != nil {
		return nil, err
	}

	return em, nil
}

// RecordMarkers counts markers written by an export
func (em *ExportMetrics) RecordMarkers(ctx context.Context, mode string, n int) {
	if em == nil || n <= 0 {
		return
	}
	em.markersExported.Add(ctx, int64(n), AttrExportMode.String(mode))
}

// RecordSkipped counts one order skipped by a batch export
func (em *ExportMetrics) RecordSkipped(ctx context.Context, reason string) {
	if em == nil {
		return
	}
	em.ordersSkipped.Inc(ctx, AttrSkipReason.String(reason))
}

// RecordFallback counts one fallback coordinate substitution
func (em *ExportMetrics) RecordFallback(ctx context.Context) {
	if em == nil {
		return
	}
	em.fallbackTotal.Inc(ctx)
}

// RecordExport records the duration and outcome of one export
func (em *ExportMetrics) RecordExport(ctx context.Context, mode string, d time.Duration, err error) {
	if em == nil {
		return
	}
	em.exportDuration.RecordDuration(ctx, d,
		AttrExportMode.String(mode),
		AttrOutcome.String(outcomeOf(err)),
	)
}

// ObserveCRMCall records the duration and outcome of one CRM call
func (em *ExportMetrics) ObserveCRMCall(ctx context.Context, endpoint string, d time.Duration, err error) {
	if em == nil {
		return
	}
	em.crmCallDuration.RecordDuration(ctx, d,
		AttrCRMEndpoint.String(endpoint),
		AttrOutcome.String(outcomeOf(err)),
	)
}

func outcomeOf(err error) string {
	switch {
	case err == nil:
		return OutcomeOK
	case errors.Is(err, context.Canceled):
		return OutcomeCanceled
	default:
		return OutcomeError
	}
}

// ErrMeterNil is returned when meter is nil.
var ErrMeterNil = &MetricsError{Op: "NewExportMetrics", Err: "meter cannot be nil"}

// MetricsError represents a metrics-related error.
type MetricsError struct {
	Op  string
	Err string
}

func (e *MetricsError) Error() string {
	return e.Op + ": " + e.Err
}
