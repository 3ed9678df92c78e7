package middleware

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel/attribute"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/metric/metricdata"
)

func setupTestMeter(t *testing.T) (*sdkmetric.MeterProvider, *sdkmetric.ManualReader) {
	t.Helper()

	reader := sdkmetric.NewManualReader()
	mp := sdkmetric.NewMeterProvider(sdkmetric.WithReader(reader))
	t.Cleanup(func() {
		_ = mp.Shutdown(context.Background())
	})
	return mp, reader
}

func collectMetrics(t *testing.T, reader *sdkmetric.ManualReader) metricdata.ResourceMetrics {
	t.Helper()

	var rm metricdata.ResourceMetrics
	require.NoError(t, reader.Collect(context.Background(), &rm))
	return rm
}

func findMetricByName(rm metricdata.ResourceMetrics, name string) *metricdata.Metrics {
	for _, sm := range rm.ScopeMetrics {
		for i := range sm.Metrics {
			if sm.Metrics[i].Name == name {
				return &sm.Metrics[i]
			}
		}
	}
	return nil
}

func metricsRouter(mp *sdkmetric.MeterProvider) *gin.Engine {
	router := gin.New()
	router.Use(HTTPMetricsWithMeter(mp.Meter("test"), true))
	router.GET("/order/:order_id", func(c *gin.Context) {
		if c.Param("order_id") == "0" {
			c.JSON(http.StatusBadGateway, gin.H{"success": false})
			return
		}
		c.JSON(http.StatusOK, gin.H{"success": true})
	})
	return router
}

func TestHTTPMetrics_DisabledPassesThrough(t *testing.T) {
	for _, mw := range []gin.HandlerFunc{
		HTTPMetrics(HTTPMetricsConfig{Enabled: false}),
		HTTPMetrics(HTTPMetricsConfig{Enabled: true}),
	} {
		router := gin.New()
		router.Use(mw)
		router.GET("/test", func(c *gin.Context) {
			c.Status(http.StatusOK)
		})
		w := httptest.NewRecorder()
		router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/test", nil))
		assert.Equal(t, http.StatusOK, w.Code)
	}
}

func TestHTTPMetricsWithMeter_RequestCounter(t *testing.T) {
	mp, reader := setupTestMeter(t)
	router := metricsRouter(mp)

	for _, id := range []string{"1", "2", "0"} {
		router.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/order/"+id, nil))
	}

	m := findMetricByName(collectMetrics(t, reader), "http_server_request_total")
	require.NotNil(t, m)
	sum, ok := m.Data.(metricdata.Sum[int64])
	require.True(t, ok)

	byStatus := map[int64]int64{}
	for _, dp := range sum.DataPoints {
		route, _ := dp.Attributes.Value(attribute.Key("http.route"))
		assert.Equal(t, "/order/:order_id", route.AsString())
		status, _ := dp.Attributes.Value(attribute.Key("http.response.status_code"))
		byStatus[status.AsInt64()] += dp.Value
	}
	assert.Equal(t, map[int64]int64{200: 2, 502: 1}, byStatus)
}

func TestHTTPMetricsWithMeter_DurationAndSize(t *testing.T) {
	mp, reader := setupTestMeter(t)
	router := metricsRouter(mp)

	router.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/order/7", nil))
	rm := collectMetrics(t, reader)

	duration := findMetricByName(rm, "http_server_request_duration_seconds")
	require.NotNil(t, duration)
	hist, ok := duration.Data.(metricdata.Histogram[float64])
	require.True(t, ok)
	require.Len(t, hist.DataPoints, 1)
	assert.Equal(t, uint64(1), hist.DataPoints[0].Count)
	_, hasStatus := hist.DataPoints[0].Attributes.Value(attribute.Key("http.response.status_code"))
	assert.False(t, hasStatus)

	size := findMetricByName(rm, "http_server_response_size_bytes")
	require.NotNil(t, size)
	sizeHist := size.Data.(metricdata.Histogram[float64])
	require.Len(t, sizeHist.DataPoints, 1)
	assert.Greater(t, sizeHist.DataPoints[0].Sum, 0.0)
}

func TestHTTPMetricsWithMeter_ActiveRequestsReturnToZero(t *testing.T) {
	mp, reader := setupTestMeter(t)
	router := metricsRouter(mp)

	router.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/order/7", nil))

	m := findMetricByName(collectMetrics(t, reader), "http_server_active_requests")
	require.NotNil(t, m)
	sum := m.Data.(metricdata.Sum[int64])
	require.Len(t, sum.DataPoints, 1)
	assert.Equal(t, int64(0), sum.DataPoints[0].Value)
}

func TestGetRoutePattern_Unmatched(t *testing.T) {
	var route string
	router := gin.New()
	router.NoRoute(func(c *gin.Context) {
		route = getRoutePattern(c)
		c.Status(http.StatusNotFound)
	})
	router.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/nope/123", nil))
	assert.Equal(t, "unknown", route)
}
