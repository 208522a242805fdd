// Package observability sets up OpenTelemetry tracing for the query pipeline.
package observability

import (
	"context"
	"fmt"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/exporters/otlp/otlptrace/otlptracegrpc"
	"go.opentelemetry.io/otel/propagation"
	"go.opentelemetry.io/otel/sdk/resource"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	semconv "go.opentelemetry.io/otel/semconv/v1.24.0"
	"go.opentelemetry.io/otel/trace"

	"quranrag/internal/config"
)

// TracerName is the instrumentation scope of every span this module emits.
const TracerName = "quranrag"

// TracerProvider wraps the SDK provider so callers can flush it on exit.
type TracerProvider struct {
	provider *sdktrace.TracerProvider
	tracer   trace.Tracer
}

// InitTracing installs a global tracer provider exporting over OTLP/gRPC.
// With no endpoint configured the global no-op tracer is used.
func InitTracing(ctx context.Context, cfg config.TracingConfig) (*TracerProvider, error) {
	if cfg.OTLPEndpoint == "" {
		return &TracerProvider{tracer: otel.Tracer(TracerName)}, nil
	}
	if cfg.ServiceName == "" {
		cfg.ServiceName = "quranrag"
	}

	exporter, err := otlptracegrpc.New(ctx,
		otlptracegrpc.WithEndpoint(cfg.OTLPEndpoint),
		otlptracegrpc.WithInsecure(),
	)
	if err != nil {
		return nil, fmt.Errorf("create OTLP exporter: %w", err)
	}

	// Schemaless so the merge never conflicts with the SDK default's schema version.
	res, err := resource.Merge(
		resource.Default(),
		resource.NewSchemaless(semconv.ServiceName(cfg.ServiceName)),
	)
	if err != nil {
		return nil, fmt.Errorf("create resource: %w", err)
	}

	var sampler sdktrace.Sampler
	switch {
	case cfg.SampleRate >= 1.0:
		sampler = sdktrace.AlwaysSample()
	case cfg.SampleRate <= 0:
		sampler = sdktrace.NeverSample()
	default:
		sampler = sdktrace.TraceIDRatioBased(cfg.SampleRate)
	}

	provider := sdktrace.NewTracerProvider(
		sdktrace.WithBatcher(exporter),
		sdktrace.WithResource(res),
		sdktrace.WithSampler(sampler),
	)
	otel.SetTracerProvider(provider)
	otel.SetTextMapPropagator(propagation.NewCompositeTextMapPropagator(
		propagation.TraceContext{},
		propagation.Baggage{},
	))

	return &TracerProvider{provider: provider, tracer: provider.Tracer(TracerName)}, nil
}

// Shutdown flushes pending spans.
func (tp *TracerProvider) Shutdown(ctx context.Context) error {
	if tp.provider != nil {
		return tp.provider.Shutdown(ctx)
	}
	return nil
}

func (tp *TracerProvider) Tracer() trace.Tracer { return tp.tracer }

// StartQuerySpan starts the span covering one question across all stores.
func StartQuerySpan(ctx context.Context, storeCount int) (context.Context, trace.Span) {
	return otel.Tracer(TracerName).Start(ctx, "rag.query",
		trace.WithSpanKind(trace.SpanKindInternal),
		trace.WithAttributes(attribute.Int("rag.store_count", storeCount)),
	)
}

// StartStoreSpan starts the span for retrieval and generation against one store.
func StartStoreSpan(ctx context.Context, store string) (context.Context, trace.Span) {
	return otel.Tracer(TracerName).Start(ctx, "rag.store",
		trace.WithSpanKind(trace.SpanKindInternal),
		trace.WithAttributes(attribute.String("rag.store", store)),
	)
}

// StartLLMSpan starts a span for one chat completion.
func StartLLMSpan(ctx context.Context, model string) (context.Context, trace.Span) {
	return otel.Tracer(TracerName).Start(ctx, "llm.complete",
		trace.WithSpanKind(trace.SpanKindClient),
		trace.WithAttributes(attribute.String("llm.model", model)),
	)
}

// RecordRetrieved notes how many documents a store returned.
func RecordRetrieved(span trace.Span, n int) {
	span.SetAttributes(attribute.Int("rag.retrieved", n))
}

// RecordError marks the span failed. A nil error is ignored.
func RecordError(span trace.Span, err error) {
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
	}
}
