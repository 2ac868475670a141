package outbox

import (
	"context"
	"encoding/json"
	"testing"

	"github.com/rs/zerolog"
	"github.com/segmentio/kafka-go"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/propagation"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"

	"github.com/clinic/clinic/internal/platform/telemetry"
)

func installTracing(t *testing.T) {
	t.Helper()
	tp := sdktrace.NewTracerProvider()
	prev := otel.GetTracerProvider()
	otel.SetTracerProvider(tp)
	otel.SetTextMapPropagator(propagation.TraceContext{})
	t.Cleanup(func() {
		_ = tp.Shutdown(context.Background())
		otel.SetTracerProvider(prev)
	})
}

func TestNewEvent(t *testing.T) {
	evt, err := NewEvent("appointment", "a-1", "appointment.booked", map[string]string{"status": "scheduled"})
	if err != nil {
		t.Fatalf("NewEvent() error: %v", err)
	}
	if evt.EventType != "appointment.booked" || evt.AggregateID != "a-1" {
		t.Errorf("unexpected event: %+v", evt)
	}
	var payload map[string]string
	if err := json.Unmarshal(evt.Payload, &payload); err != nil {
		t.Fatalf("payload is not JSON: %v", err)
	}
	if payload["status"] != "scheduled" {
		t.Errorf("unexpected payload %v", payload)
	}
}

func TestNewEvent_UnmarshalablePayload(t *testing.T) {
	if _, err := NewEvent("appointment", "a-1", "appointment.booked", make(chan int)); err == nil {
		t.Fatal("expected marshal error")
	}
}

func TestNopRecorder(t *testing.T) {
	var r Recorder = NopRecorder{}
	if err := r.Record(context.Background(), Event{}); err != nil {
		t.Errorf("unexpected error: %v", err)
	}
}

func TestHeaderCarrier_SetOverwrites(t *testing.T) {
	c := &headerCarrier{headers: []kafka.Header{{Key: "traceparent", Value: []byte("old")}}}
	c.Set("traceparent", "new")
	c.Set("tracestate", "x=1")

	if len(c.headers) != 2 {
		t.Fatalf("expected 2 headers, got %d", len(c.headers))
	}
	if c.Get("traceparent") != "new" || c.Get("tracestate") != "x=1" {
		t.Errorf("unexpected headers %v", c.headers)
	}
	if keys := c.Keys(); len(keys) != 2 {
		t.Errorf("unexpected keys %v", keys)
	}
}

func TestBuildMessage_CarriesTrace(t *testing.T) {
	installTracing(t)

	ctx, span := otel.Tracer("test").Start(context.Background(), "book")
	traceparent, tracestate := telemetry.TraceContextStrings(ctx)
	span.End()

	msg := buildMessage(context.Background(), Record{
		ID:            7,
		EventID:       "evt-1",
		AggregateType: "appointment",
		AggregateID:   "a-1",
		EventType:     "appointment.cancelled",
		Payload:       []byte(`{}`),
		Traceparent:   traceparent,
		Tracestate:    tracestate,
	})

	if msg.Topic != "appointment.cancelled" || string(msg.Key) != "a-1" {
		t.Errorf("unexpected message routing: topic=%s key=%s", msg.Topic, msg.Key)
	}
	if HeaderValue(msg.Headers, "event_id") != "evt-1" {
		t.Error("expected event_id header")
	}
	if HeaderValue(msg.Headers, "traceparent") != traceparent {
		t.Errorf("expected traceparent %q, got %q", traceparent, HeaderValue(msg.Headers, "traceparent"))
	}

	extracted := ExtractTraceContext(context.Background(), msg)
	_, child := otel.Tracer("test").Start(extracted, "consume")
	defer child.End()
	if child.SpanContext().TraceID() != span.SpanContext().TraceID() {
		t.Error("expected consumer span to join the booking trace")
	}
}

func TestReadyCheck_NoBrokers(t *testing.T) {
	if err := ReadyCheck(nil)(context.Background()); err == nil {
		t.Error("expected error without brokers")
	}
}

func TestNewPublisher_Defaults(t *testing.T) {
	p := NewPublisher(nil, nil, nil, zeroLogger(), PublisherConfig{})
	if p.pollEvery.Seconds() != 2 || p.batchSize != 50 {
		t.Errorf("unexpected defaults: %v %d", p.pollEvery, p.batchSize)
	}
}

func TestPublisher_RunStopsOnCancel(t *testing.T) {
	p := NewPublisher(nil, nil, nil, zeroLogger(), PublisherConfig{})
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	done := make(chan struct{})
	go func() {
		p.Run(ctx)
		close(done)
	}()
	<-done
}

func zeroLogger() zerolog.Logger { return zerolog.Nop() }
