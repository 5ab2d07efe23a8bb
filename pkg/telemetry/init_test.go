package telemetry

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
)

func TestInit_DiscardExporter(t *testing.T) {
	t.Setenv("OTEL_EXPORTER_OTLP_ENDPOINT", "")
	shutdown, err := Init(context.Background(), "graphstep-test", "dev", "")
	require.NoError(t, err)

	assert.IsType(t, &sdktrace.TracerProvider{}, otel.GetTracerProvider())
	assert.IsType(t, &sdkmetric.MeterProvider{}, otel.GetMeterProvider())

	_, span := Tracer("test").Start(context.Background(), "unit")
	assert.True(t, span.SpanContext().IsValid())
	span.End()

	c, err := Meter("test").Int64Counter("graphstep.test")
	require.NoError(t, err)
	c.Add(context.Background(), 1)

	require.NoError(t, shutdown(context.Background()))
}

func TestMeter(t *testing.T) {
	c, err := Meter("test").Int64Counter("graphstep.test")
	require.NoError(t, err)
	c.Add(context.Background(), 1)
}
