package observability

import (
	"context"
	"strconv"
	"strings"
	"sync"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/exporters/otlp/otlptrace/otlptracehttp"
	"go.opentelemetry.io/otel/exporters/stdout/stdouttrace"
	"go.opentelemetry.io/otel/propagation"
	"go.opentelemetry.io/otel/sdk/resource"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	semconv "go.opentelemetry.io/otel/semconv/v1.27.0"

	"github.com/yungbote/attrition-backend/internal/platform/envutil"
	"github.com/yungbote/attrition-backend/internal/platform/logger"
)

const defaultServiceName = "attrition-backend"

type OtelConfig struct {
	ServiceName string
	Environment string
	Version     string
}

// exportSettings is the OTEL_* environment read once at startup.
type exportSettings struct {
	enabled     bool
	endpoint    string
	insecure    bool
	headers     map[string]string
	sampleRatio float64
}

func settingsFromEnv() exportSettings {
	return exportSettings{
		enabled:     envutil.Bool("OTEL_ENABLED", false),
		endpoint:    envutil.String("OTEL_EXPORTER_OTLP_ENDPOINT", ""),
		insecure:    envutil.Bool("OTEL_EXPORTER_OTLP_INSECURE", false),
		headers:     parseHeaders(envutil.String("OTEL_EXPORTER_OTLP_HEADERS", "")),
		sampleRatio: parseRatio(envutil.String("OTEL_SAMPLER_RATIO", "")),
	}
}

var (
	otelOnce     sync.Once
	otelShutdown func(context.Context) error = func(context.Context) error { return nil }
)

// InitOTel installs the global tracer provider when OTEL_ENABLED is set. The
// returned func flushes pending spans; it is a no-op when tracing is off.
func InitOTel(ctx context.Context, log *logger.Logger, cfg OtelConfig) func(context.Context) error {
	otelOnce.Do(func() {
		s := settingsFromEnv()
		if !s.enabled {
			return
		}
		tp := newTracerProvider(ctx, log, cfg, s)
		otel.SetTracerProvider(tp)
		otel.SetTextMapPropagator(propagation.NewCompositeTextMapPropagator(
			propagation.TraceContext{},
			propagation.Baggage{},
		))
		otelShutdown = tp.Shutdown
		if log != nil {
			log.Info("otel tracing initialized", "service", serviceName(cfg), "endpoint", s.endpoint, "ratio", s.sampleRatio)
		}
	})
	return otelShutdown
}

func serviceName(cfg OtelConfig) string {
	if n := strings.TrimSpace(cfg.ServiceName); n != "" {
		return n
	}
	return defaultServiceName
}

func newTracerProvider(ctx context.Context, log *logger.Logger, cfg OtelConfig, s exportSettings) *sdktrace.TracerProvider {
	name := serviceName(cfg)
	res, err := resource.New(ctx, resource.WithAttributes(
		semconv.ServiceNameKey.String(name),
		semconv.ServiceVersionKey.String(strings.TrimSpace(cfg.Version)),
		attribute.String("deployment.environment", strings.TrimSpace(cfg.Environment)),
	))
	if err != nil && log != nil {
		log.Warn("otel resource init failed (continuing)", "error", err)
	}

	opts := []sdktrace.TracerProviderOption{
		sdktrace.WithSampler(sdktrace.ParentBased(sdktrace.TraceIDRatioBased(s.sampleRatio))),
		sdktrace.WithResource(res),
	}
	exporter, err := newExporter(ctx, log, s)
	if err != nil && log != nil {
		log.Warn("otel exporter init failed (continuing without export)", "error", err)
	}
	if exporter != nil {
		opts = append(opts, sdktrace.WithBatcher(exporter, sdktrace.WithBatchTimeout(5*time.Second)))
	}
	return sdktrace.NewTracerProvider(opts...)
}

// newExporter ships spans over OTLP/HTTP when an endpoint is configured and
// pretty-prints them to stdout otherwise.
func newExporter(ctx context.Context, log *logger.Logger, s exportSettings) (sdktrace.SpanExporter, error) {
	if s.endpoint == "" {
		if log != nil {
			log.Warn("otel using stdout exporter (no OTLP endpoint configured)")
		}
		return stdouttrace.New(stdouttrace.WithPrettyPrint())
	}
	opts := []otlptracehttp.Option{otlptracehttp.WithEndpoint(s.endpoint)}
	if s.insecure {
		opts = append(opts, otlptracehttp.WithInsecure())
	}
	if len(s.headers) > 0 {
		opts = append(opts, otlptracehttp.WithHeaders(s.headers))
	}
	return otlptracehttp.New(ctx, opts...)
}

// parseHeaders reads "k1=v1,k2=v2"; malformed or empty pairs are skipped.
func parseHeaders(raw string) map[string]string {
	var headers map[string]string
	for _, part := range strings.Split(raw, ",") {
		k, v, ok := strings.Cut(part, "=")
		k, v = strings.TrimSpace(k), strings.TrimSpace(v)
		if !ok || k == "" || v == "" {
			continue
		}
		if headers == nil {
			headers = map[string]string{}
		}
		headers[k] = v
	}
	return headers
}

// Scoring traffic is low volume, so everything is sampled unless told otherwise.
func parseRatio(raw string) float64 {
	if raw == "" {
		return 1
	}
	f, err := strconv.ParseFloat(raw, 64)
	if err != nil {
		return 1
	}
	return min(max(f, 0), 1)
}
