package observability

import (
	"context"
	"time"

	"github.com/annel0/voxelmesh/internal/logging"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/exporters/otlp/otlptrace/otlptracehttp"
	"go.opentelemetry.io/otel/sdk/resource"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	semconv "go.opentelemetry.io/otel/semconv/v1.21.0"
	"go.opentelemetry.io/otel/trace"
)

// TracerName — имя трассировщика сервиса
const TracerName = "voxelmesh"

// InitTelemetry настраивает OTLP экспортер и устанавливает глобальный TracerProvider.
// Возвращает функцию shutdown, которую нужно вызвать при завершении приложения.
func InitTelemetry(ctx context.Context, serviceName string) (func(context.Context) error, error) {
	// OTLP HTTP экспортер (по умолчанию localhost:4318)
	exp, err := otlptracehttp.New(ctx)
	if err != nil {
		return nil, err
	}

	res, err := resource.New(ctx,
		resource.WithAttributes(semconv.ServiceName(serviceName)),
	)
	if err != nil {
		return nil, err
	}

	tp := sdktrace.NewTracerProvider(
		sdktrace.WithBatcher(exp),
		sdktrace.WithResource(res),
	)

	otel.SetTracerProvider(tp)
	logging.Info("📡 OpenTelemetry инициализирован (OTLP → 4318, service=%s)", serviceName)

	return shutdownFunc(tp), nil
}

// InitNoop оставляет глобальный провайдер без экспорта (телеметрия выключена).
// Спаны создаются, но никуда не уходят.
func InitNoop() func(context.Context) error {
	return func(context.Context) error { return nil }
}

func shutdownFunc(tp *sdktrace.TracerProvider) func(context.Context) error {
	return func(ctx context.Context) error {
		ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
		defer cancel()
		return tp.Shutdown(ctx)
	}
}

// Tracer возвращает трассировщик сервиса из глобального провайдера
func Tracer() trace.Tracer {
	return otel.Tracer(TracerName)
}

// StartChunkSpan открывает спан обработки чанка
func StartChunkSpan(ctx context.Context, op, chunkKey string) (context.Context, trace.Span) {
	return Tracer().Start(ctx, op, trace.WithAttributes(attribute.String("voxelmesh.chunk", chunkKey)))
}
