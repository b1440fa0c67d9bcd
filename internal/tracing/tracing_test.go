package tracing_test

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"

	"docent-service/internal/tracing"
)

func TestInit_NoCollectorIsNoop(t *testing.T) {
	shutdown, err := tracing.Init(context.Background(), "docent-service", "test", "")
	require.NoError(t, err)
	require.NoError(t, shutdown(context.Background()))

	_, span := tracing.Tracer().Start(context.Background(), "noop")
	span.End()
}

func TestRecordError(t *testing.T) {
	rec := tracetest.NewSpanRecorder()
	tp := trace.NewTracerProvider(trace.WithSpanProcessor(rec))

	_, span := tp.Tracer("test").Start(context.Background(), "op")
	tracing.RecordError(span, errors.New("boom"))
	span.End()

	spans := rec.Ended()
	require.Len(t, spans, 1)
	require.Equal(t, "boom", spans[0].Status().Description)
	require.Len(t, spans[0].Events(), 1)
}
