package trace

import (
	"context"
	"io"
	"os"
	"strings"
	"sync"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/exporters/stdout/stdouttrace"
	"go.opentelemetry.io/otel/sdk/resource"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	semconv "go.opentelemetry.io/otel/semconv/v1.24.0"
	"go.opentelemetry.io/otel/trace"
)

const (
	ServiceName    = "breeze-trading-bot"
	ServiceVersion = "1.0.0"
)

// Config selects whether and where spans are exported. The zero value
// disables tracing.
type Config struct {
	Enabled bool
	// Service overrides the service.name resource attribute.
	Service string
	// Output receives spans as JSON. Nil means pretty-printed stdout.
	Output io.Writer
}

// ConfigFromEnv enables tracing when LOG_TRACING_ENABLED is "true".
func ConfigFromEnv() Config {
	return Config{
		Enabled: strings.EqualFold(strings.TrimSpace(os.Getenv("LOG_TRACING_ENABLED")), "true"),
	}
}

type pipeline struct {
	provider *sdktrace.TracerProvider
	tracer   trace.Tracer
}

var (
	mu     sync.RWMutex
	active *pipeline
)

// Init configures tracing from the environment.
func Init() error {
	return Setup(ConfigFromEnv())
}

// Setup replaces the active pipeline, shutting down any previous one.
// On error tracing stays disabled.
func Setup(cfg Config) error {
	mu.Lock()
	prev := active
	active = nil
	mu.Unlock()
	if prev != nil {
		_ = prev.provider.Shutdown(context.Background())
	}

	if !cfg.Enabled {
		return nil
	}
	p, err := newPipeline(cfg)
	if err != nil {
		return err
	}

	mu.Lock()
	active = p
	mu.Unlock()
	return nil
}

func newPipeline(cfg Config) (*pipeline, error) {
	var opts []stdouttrace.Option
	if cfg.Output != nil {
		opts = append(opts, stdouttrace.WithWriter(cfg.Output))
	} else {
		opts = append(opts, stdouttrace.WithPrettyPrint())
	}
	exporter, err := stdouttrace.New(opts...)
	if err != nil {
		return nil, err
	}

	service := cfg.Service
	if service == "" {
		service = ServiceName
	}
	res, err := resource.New(context.Background(),
		resource.WithAttributes(
			semconv.ServiceName(service),
			semconv.ServiceVersion(ServiceVersion),
		),
	)
	if err != nil {
		return nil, err
	}

	provider := sdktrace.NewTracerProvider(
		sdktrace.WithBatcher(exporter),
		sdktrace.WithResource(res),
	)
	otel.SetTracerProvider(provider)
	return &pipeline{provider: provider, tracer: provider.Tracer(service)}, nil
}

func current() *pipeline {
	mu.RLock()
	defer mu.RUnlock()
	return active
}

// Shutdown flushes pending spans and disables tracing.
func Shutdown(ctx context.Context) error {
	mu.Lock()
	p := active
	active = nil
	mu.Unlock()
	if p == nil {
		return nil
	}
	return p.provider.Shutdown(ctx)
}

// StartSpan starts a child span of ctx. With tracing disabled ctx is
// returned unchanged with a non-recording span.
func StartSpan(ctx context.Context, spanName string, opts ...trace.SpanStartOption) (context.Context, trace.Span) {
	p := current()
	if p == nil {
		return ctx, trace.SpanFromContext(context.Background())
	}
	return p.tracer.Start(ctx, spanName, opts...)
}

func Enabled() bool {
	return current() != nil
}

// GetTraceFields returns the hex trace and span ids of the span in ctx.
func GetTraceFields(ctx context.Context) (traceID, spanID string, ok bool) {
	if !Enabled() {
		return "", "", false
	}
	sc := trace.SpanContextFromContext(ctx)
	if !sc.IsValid() {
		return "", "", false
	}
	return sc.TraceID().String(), sc.SpanID().String(), true
}
