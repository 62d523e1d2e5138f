package telemetry

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestSetupBuildsOnlyConfiguredSignals(t *testing.T) {
	ctx := context.Background()

	disabled, err := Setup(ctx, "observatorio-test", Config{})
	require.NoError(t, err)
	require.Nil(t, disabled.TracerProvider)
	require.Nil(t, disabled.MeterProvider)
	require.NoError(t, disabled.Shutdown(ctx))

	metricsOnly, err := Setup(ctx, "observatorio-test", Config{
		Otlp: OtlpConfig{
			Metrics: OtlpConnConfig{HttpEndpoint: "http://127.0.0.1:4318/v1/metrics"},
		},
	})
	require.NoError(t, err)
	require.Nil(t, metricsOnly.TracerProvider)
	require.NotNil(t, metricsOnly.MeterProvider)

	// nothing listens on the collector address, the final flush is allowed to fail
	cancelled, cancel := context.WithCancel(ctx)
	cancel()
	_ = metricsOnly.Shutdown(cancelled)

	tracesOnly, err := Setup(ctx, "observatorio-test", Config{
		Otlp: OtlpConfig{
			Traces: OtlpConnConfig{HttpEndpoint: "http://127.0.0.1:4318/v1/traces"},
		},
	})
	require.NoError(t, err)
	require.NotNil(t, tracesOnly.TracerProvider)
	require.Nil(t, tracesOnly.MeterProvider)
	_ = tracesOnly.Shutdown(cancelled)
}
