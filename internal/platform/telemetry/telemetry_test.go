package telemetry

import (
	"bytes"
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/labstack/echo/v4"
	"github.com/rs/zerolog"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/propagation"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"
)

func installRecorder(t *testing.T) *tracetest.SpanRecorder {
	t.Helper()
	rec := tracetest.NewSpanRecorder()
	tp := sdktrace.NewTracerProvider(sdktrace.WithSpanProcessor(rec))
	prev := otel.GetTracerProvider()
	otel.SetTracerProvider(tp)
	otel.SetTextMapPropagator(propagation.TraceContext{})
	t.Cleanup(func() {
		_ = tp.Shutdown(context.Background())
		otel.SetTracerProvider(prev)
	})
	return rec
}

func TestTelemetryConfig_Defaults(t *testing.T) {
	cfg := TelemetryConfig{}
	cfg.applyDefaults()

	if cfg.ServiceName != "clinic-server" {
		t.Errorf("expected default ServiceName='clinic-server', got %q", cfg.ServiceName)
	}
	if cfg.ServiceVersion != "0.0.0" {
		t.Errorf("expected default ServiceVersion='0.0.0', got %q", cfg.ServiceVersion)
	}
	if cfg.Environment != "development" {
		t.Errorf("expected default Environment='development', got %q", cfg.Environment)
	}
	if cfg.SampleRate != 1.0 {
		t.Errorf("expected default SampleRate=1.0, got %f", cfg.SampleRate)
	}
}

func TestSetup_Disabled(t *testing.T) {
	shutdown, err := Setup(context.Background(), TelemetryConfig{Enabled: false})
	if err != nil {
		t.Fatalf("Setup() error: %v", err)
	}
	if err := shutdown(context.Background()); err != nil {
		t.Errorf("shutdown() error: %v", err)
	}
}

func TestTraceContext_RoundTrip(t *testing.T) {
	installRecorder(t)

	ctx, span := Tracer("test").Start(context.Background(), "book")
	defer span.End()

	traceparent, _ := TraceContextStrings(ctx)
	if traceparent == "" {
		t.Fatal("expected traceparent for an active span")
	}
	if !strings.Contains(traceparent, span.SpanContext().TraceID().String()) {
		t.Errorf("traceparent %q does not carry trace id", traceparent)
	}

	restored := ContextWithTraceContext(context.Background(), traceparent, "")
	_, child := Tracer("test").Start(restored, "publish")
	defer child.End()
	if child.SpanContext().TraceID() != span.SpanContext().TraceID() {
		t.Error("expected restored context to continue the trace")
	}
}

func TestContextWithTraceContext_Empty(t *testing.T) {
	ctx := context.Background()
	if got := ContextWithTraceContext(ctx, "", ""); got != ctx {
		t.Error("expected context to be returned unchanged")
	}
}

func TestMiddleware_RecordsSpan(t *testing.T) {
	rec := installRecorder(t)

	e := echo.New()
	e.Use(Middleware("clinic-server"))
	e.GET("/clinics", func(c echo.Context) error {
		return c.String(http.StatusOK, "ok")
	})

	req := httptest.NewRequest(http.MethodGet, "/clinics", nil)
	res := httptest.NewRecorder()
	e.ServeHTTP(res, req)

	if res.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", res.Code)
	}
	spans := rec.Ended()
	if len(spans) != 1 {
		t.Fatalf("expected 1 span, got %d", len(spans))
	}
	if spans[0].Name() != "GET /clinics" {
		t.Errorf("unexpected span name %q", spans[0].Name())
	}
}

func TestLogger_AddsTraceID(t *testing.T) {
	installRecorder(t)

	var buf bytes.Buffer
	base := zerolog.New(&buf)

	l := Logger(context.Background(), base)
	l.Info().Msg("no span")
	if strings.Contains(buf.String(), "trace_id") {
		t.Error("expected no trace_id without a span")
	}
	buf.Reset()

	ctx, span := Tracer("test").Start(context.Background(), "op")
	defer span.End()
	l = Logger(ctx, base)
	l.Info().Msg("with span")
	if !strings.Contains(buf.String(), span.SpanContext().TraceID().String()) {
		t.Errorf("expected trace id in %s", buf.String())
	}
}
