package telemetry

import (
	"context"
	"sort"
	"strings"

	"github.com/grafana/pyroscope-go"
)

// Profiling label keys.
const (
	ProfilingLabelRoute      = "route"
	ProfilingLabelMethod     = "method"
	ProfilingLabelExportMode = "export_mode"
	ProfilingLabelOperation  = "operation"
	ProfilingLabelRegion     = "region"
)

// Code regions labelled inside the export pipeline.
const (
	RegionCRMSearch    = "crm_search"
	RegionClientLookup = "client_lookup"
	RegionKMLWrite     = "kml_write"
)

// MaxLabelValueLength caps label values to keep profile series small.
const MaxLabelValueLength = 128

// highCardinalityLabels are never attached to profiles.
var highCardinalityLabels = map[string]bool{
	"request_id": true,
	"order_id":   true,
	"client_id":  true,
	"trace_id":   true,
	"span_id":    true,
}

// WithProfilingLabels runs fn with labels attached to the goroutine's
// profile samples. The labels map is not retained.
func WithProfilingLabels(ctx context.Context, labels map[string]string, fn func(context.Context)) {
	pairs := sanitizeLabels(labels)
	if len(pairs) == 0 {
		fn(ctx)
		return
	}
	pyroscope.TagWrapper(ctx, pyroscope.Labels(pairs...), fn)
}

// HTTPRequestLabels builds the labels for one HTTP request.
func HTTPRequestLabels(route, method, exportMode string) map[string]string {
	return map[string]string{
		ProfilingLabelRoute:      route,
		ProfilingLabelMethod:     method,
		ProfilingLabelExportMode: exportMode,
	}
}

// RegionLabels builds the labels for a code region.
func RegionLabels(region string) map[string]string {
	return map[string]string{ProfilingLabelRegion: region}
}

// sanitizeLabels returns sorted key/value pairs with empty and
// high-cardinality entries removed and long values truncated.
func sanitizeLabels(labels map[string]string) []string {
	if len(labels) == 0 {
		return nil
	}

	keys := make([]string, 0, len(labels))
	for k := range labels {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	pairs := make([]string, 0, len(labels)*2)
	for _, key := range keys {
		value := labels[key]
		sanitized := sanitizeLabelKey(key)
		if sanitized == "" || value == "" || highCardinalityLabels[sanitized] {
			continue
		}
		if len(value) > MaxLabelValueLength {
			value = value[:MaxLabelValueLength]
		}
		pairs = append(pairs, sanitized, value)
	}
	return pairs
}

// sanitizeLabelKey lowercases key and keeps only [a-z0-9_].
func sanitizeLabelKey(key string) string {
	key = strings.ToLower(key)
	var b strings.Builder
	b.Grow(len(key))
	for i := 0; i < len(key); i++ {
		c := key[i]
		switch {
		case c == ' ' || c == '-':
			b.WriteByte('_')
		case (c >= 'a' && c <= 'z') || (c >= '0' && c <= '9') || c == '_':
			b.WriteByte(c)
		}
	}
	return b.String()
}
