package middleware

import (
	"net/http"
	"net/http/httptest"
	"runtime/pprof"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/osmap/backend/internal/infrastructure/telemetry"
)

func captureLabels(cfg ProfilingConfig, route, target string) map[string]string {
	var got map[string]string
	router := gin.New()
	router.Use(ProfilingWithConfig(cfg))
	router.GET(route, func(c *gin.Context) {
		got = map[string]string{}
		pprof.ForLabels(c.Request.Context(), func(key, value string) bool {
			got[key] = value
			return true
		})
		c.Status(http.StatusOK)
	})

	w := httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, target, nil))
	return got
}

func TestProfilingWithConfig(t *testing.T) {
	t.Run("labels batch export with route pattern", func(t *testing.T) {
		got := captureLabels(DefaultProfilingConfig(), "/list_marker_create/", "/list_marker_create/?cidade=uberaba")

		require.NotNil(t, got)
		assert.Equal(t, "/list_marker_create/", got[telemetry.ProfilingLabelRoute])
		assert.Equal(t, http.MethodGet, got[telemetry.ProfilingLabelMethod])
		assert.Equal(t, "batch", got[telemetry.ProfilingLabelExportMode])
	})

	t.Run("never labels raw ids", func(t *testing.T) {
		got := captureLabels(DefaultProfilingConfig(), "/marker_create/:order_id", "/marker_create/4711")

		assert.Equal(t, "/marker_create/:order_id", got[telemetry.ProfilingLabelRoute])
		assert.Equal(t, "single", got[telemetry.ProfilingLabelExportMode])
		for _, v := range got {
			assert.NotContains(t, v, "4711")
		}
	})

	t.Run("unmapped routes use first segment", func(t *testing.T) {
		got := captureLabels(DefaultProfilingConfig(), "/artifacts/*path", "/artifacts/a.kml")

		assert.Equal(t, "artifacts", got[telemetry.ProfilingLabelExportMode])
	})

	t.Run("skips configured paths", func(t *testing.T) {
		got := captureLabels(DefaultProfilingConfig(), "/system/ping", "/system/ping")

		assert.Empty(t, got)
	})

	t.Run("disabled adds nothing", func(t *testing.T) {
		got := captureLabels(ProfilingConfig{}, "/list_marker_create/", "/list_marker_create/")

		assert.Empty(t, got)
	})
}
