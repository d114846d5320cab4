package observability

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"
)

func TestStartChunkSpan(t *testing.T) {
	rec := tracetest.NewSpanRecorder()
	tp := sdktrace.NewTracerProvider(sdktrace.WithSpanProcessor(rec))
	prev := otel.GetTracerProvider()
	otel.SetTracerProvider(tp)
	defer otel.SetTracerProvider(prev)

	_, span := StartChunkSpan(context.Background(), "mesh.extract", "1:0:2")
	span.End()

	spans := rec.Ended()
	require.Len(t, spans, 1)
	assert.Equal(t, "mesh.extract", spans[0].Name())

	found := false
	for _, kv := range spans[0].Attributes() {
		if string(kv.Key) == "voxelmesh.chunk" {
			found = true
			assert.Equal(t, "1:0:2", kv.Value.AsString())
		}
	}
	assert.True(t, found)
}

func TestInitNoop(t *testing.T) {
	assert.NoError(t, InitNoop()(context.Background()))
}
