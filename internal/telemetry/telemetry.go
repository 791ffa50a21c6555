package telemetry

import (
	"context"
	"fmt"
	"os"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/exporters/otlp/otlptrace/otlptracegrpc"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/trace"

	"github.com/jdiitm/graphrag-architect/workers/submitguard/internal/domain"
)

const serviceName = "submitguard"

var tracer trace.Tracer

type Option func(*config)

type config struct {
	exporter sdktrace.SpanExporter
}

func WithTestExporter() Option {
	return func(c *config) {
		c.exporter = noopExporter{}
	}
}

func WithExporter(exp sdktrace.SpanExporter) Option {
	return func(c *config) {
		c.exporter = exp
	}
}

func Init(opts ...Option) (*sdktrace.TracerProvider, error) {
	cfg := &config{}
	for _, o := range opts {
		o(cfg)
	}

	if cfg.exporter == nil {
		endpoint := os.Getenv("OTEL_EXPORTER_OTLP_ENDPOINT")
		if endpoint == "" {
			endpoint = "localhost:4317"
		}
		exp, err := otlptracegrpc.New(
			context.Background(),
			otlptracegrpc.WithEndpoint(endpoint),
			otlptracegrpc.WithInsecure(),
		)
		if err != nil {
			return nil, fmt.Errorf("create OTLP exporter: %w", err)
		}
		cfg.exporter = exp
	}

	tp := sdktrace.NewTracerProvider(
		sdktrace.WithSyncer(cfg.exporter),
	)
	otel.SetTracerProvider(tp)
	tracer = tp.Tracer(serviceName)
	return tp, nil
}

func Tracer() trace.Tracer {
	if tracer == nil {
		return otel.Tracer(serviceName)
	}
	return tracer
}

func StartRunSpan(ctx context.Context, store string, keys, tasks int) (context.Context, trace.Span) {
	return Tracer().Start(ctx, "workload.run",
		trace.WithAttributes(
			attribute.String("claim.store", store),
			attribute.Int64("workload.keys", int64(keys)),
			attribute.Int64("workload.tasks", int64(tasks)),
		),
	)
}

func StartClaimSpan(ctx context.Context, store, key string) (context.Context, trace.Span) {
	return Tracer().Start(ctx, "claim.try",
		trace.WithAttributes(
			attribute.String("claim.store", store),
			attribute.String("claim.key", key),
		),
	)
}

func StartActionSpan(ctx context.Context, key string) (context.Context, trace.Span) {
	return Tracer().Start(ctx, "action.perform",
		trace.WithAttributes(
			attribute.String("claim.key", key),
		),
	)
}

func StartDLQSpan(ctx context.Context, result domain.Result) (context.Context, trace.Span) {
	errMsg := ""
	if result.Err != nil {
		errMsg = result.Err.Error()
	}
	return Tracer().Start(ctx, "dlq.route",
		trace.WithAttributes(
			attribute.String("claim.store", result.Store),
			attribute.String("claim.key", result.Task.Key),
			attribute.Int64("task.seq", int64(result.Task.Seq)),
			attribute.Bool("claim.claimed", result.Claimed),
			attribute.String("dlq.error", errMsg),
		),
	)
}

type noopExporter struct{}

func (noopExporter) ExportSpans(_ context.Context, _ []sdktrace.ReadOnlySpan) error {
	return nil
}

func (noopExporter) Shutdown(_ context.Context) error { return nil }
