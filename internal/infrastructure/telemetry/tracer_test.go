package telemetry_test

import (
	"context"
	"testing"
	"time"

	"github.com/osmap/backend/internal/infrastructure/telemetry"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"
)

func TestNewTracerProvider_Disabled(t *testing.T) {
	ctx := context.Background()

	tp, err := telemetry.NewTracerProvider(ctx, telemetry.Config{
		Enabled:     false,
		ServiceName: "osmap-test",
	}, zaptest.NewLogger(t))
	require.NoError(t, err)

	assert.False(t, tp.IsEnabled())
	assert.NotNil(t, tp.Tracer("test"))
	assert.NoError(t, tp.ForceFlush(ctx))
	assert.NoError(t, tp.Shutdown(ctx))
}

func TestNewTracerProvider_Enabled(t *testing.T) {
	ctx := context.Background()

	// The gRPC exporter connects lazily, so no collector is needed.
	tp, err := telemetry.NewTracerProvider(ctx, telemetry.Config{
		Enabled:           true,
		CollectorEndpoint: "localhost:14317",
		SamplingRatio:     0.5,
		ServiceName:       "osmap-test",
		Insecure:          true,
	}, zaptest.NewLogger(t))
	require.NoError(t, err)
	assert.True(t, tp.IsEnabled())

	_, span := tp.Tracer("test").Start(ctx, "probe")
	span.End()

	shutdownCtx, cancel := context.WithTimeout(ctx, time.Second)
	defer cancel()
	_ = tp.Shutdown(shutdownCtx)
}

func TestNewTracerProvider_SamplingRatios(t *testing.T) {
	for _, ratio := range []float64{0, 0.25, 1, 2} {
		tp, err := telemetry.NewTracerProvider(context.Background(), telemetry.Config{
			Enabled:           true,
			CollectorEndpoint: "localhost:14317",
			SamplingRatio:     ratio,
			ServiceName:       "osmap-test",
			Insecure:          true,
		}, zaptest.NewLogger(t))
		require.NoError(t, err, "ratio %v", ratio)

		ctx, cancel := context.WithTimeout(context.Background(), time.Second)
		_ = tp.Shutdown(ctx)
		cancel()
	}
}

func TestTracerProvider_EnableSpanProfiles(t *testing.T) {
	t.Run("no-op when tracing disabled", func(t *testing.T) {
		tp, err := telemetry.NewTracerProvider(context.Background(), telemetry.Config{}, zaptest.NewLogger(t))
		require.NoError(t, err)

		assert.False(t, tp.EnableSpanProfiles())
	})

	t.Run("idempotent when tracing enabled", func(t *testing.T) {
		tp, err := telemetry.NewTracerProvider(context.Background(), telemetry.Config{
			Enabled:           true,
			CollectorEndpoint: "localhost:14317",
			SamplingRatio:     1,
			ServiceName:       "osmap-test",
			Insecure:          true,
		}, zaptest.NewLogger(t))
		require.NoError(t, err)

		assert.True(t, tp.EnableSpanProfiles())
		assert.True(t, tp.EnableSpanProfiles())

		ctx, cancel := context.WithTimeout(context.Background(), time.Second)
		defer cancel()
		_ = tp.Shutdown(ctx)
	})
}
