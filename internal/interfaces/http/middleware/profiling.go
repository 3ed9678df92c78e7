package middleware

import (
	"context"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/osmap/backend/internal/infrastructure/telemetry"
)

// ProfilingConfig holds configuration for the profiling middleware.
type ProfilingConfig struct {
	Enabled bool
	// SkipPaths are route patterns that get no labels.
	SkipPaths []string
	// ExportModes maps a route pattern to the export_mode label.
	ExportModes map[string]string
}

// DefaultProfilingConfig labels the export routes and skips health checks.
func DefaultProfilingConfig() ProfilingConfig {
	return ProfilingConfig{
		Enabled:   true,
		SkipPaths: []string{"/system/ping"},
		ExportModes: map[string]string{
			"/marker_create/:order_id": "single",
			"/list_marker_create/":     "batch",
		},
	}
}

// Profiling returns profiling middleware with default configuration.
func Profiling() gin.HandlerFunc {
	return ProfilingWithConfig(DefaultProfilingConfig())
}

// ProfilingWithConfig attaches Pyroscope labels (route, method, export_mode)
// to the request context so profiles can be sliced per endpoint. Labels use
// route patterns, never raw paths or ids.
func ProfilingWithConfig(cfg ProfilingConfig) gin.HandlerFunc {
	if !cfg.Enabled {
		return passThrough
	}

	skip := make(map[string]bool, len(cfg.SkipPaths))
	for _, p := range cfg.SkipPaths {
		skip[p] = true
	}

	return func(c *gin.Context) {
		route := c.FullPath()
		if route == "" || skip[route] {
			c.Next()
			return
		}

		labels := telemetry.HTTPRequestLabels(route, c.Request.Method, exportMode(cfg.ExportModes, route))
		telemetry.WithProfilingLabels(c.Request.Context(), labels, func(ctx context.Context) {
			c.Request = c.Request.WithContext(ctx)
			c.Next()
		})
	}
}

// exportMode returns the configured mode of route; artifact downloads and
// lookups are labelled by their first path segment.
func exportMode(modes map[string]string, route string) string {
	if mode, ok := modes[route]; ok {
		return mode
	}
	segment := strings.TrimPrefix(route, "/")
	if i := strings.IndexByte(segment, '/'); i >= 0 {
		segment = segment[:i]
	}
	return segment
}
