package telemetry

import (
	"bytes"
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/segmentio/kafka-go"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/propagation"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"
)

func withRecorder(t *testing.T) *tracetest.SpanRecorder {
	t.Helper()
	recorder := tracetest.NewSpanRecorder()
	tp := sdktrace.NewTracerProvider(sdktrace.WithSpanProcessor(recorder))
	otel.SetTracerProvider(tp)
	t.Cleanup(func() { tp.Shutdown(context.Background()) })
	return recorder
}

func TestInit_Disabled(t *testing.T) {
	ctx := context.Background()
	provider, err := Init(ctx, &Config{
		ServiceName: "broker-etrade",
		Enabled:     false,
	})
	if err != nil {
		t.Fatalf("Init failed: %v", err)
	}
	if provider == nil {
		t.Fatal("provider should not be nil")
	}

	// Shutdown should work even when disabled
	if err := provider.Shutdown(ctx); err != nil {
		t.Fatalf("Shutdown failed: %v", err)
	}
}

func TestInit_StdoutExporter(t *testing.T) {
	ctx := context.Background()
	prev := otel.GetTracerProvider()
	t.Cleanup(func() { otel.SetTracerProvider(prev) })

	var buf bytes.Buffer
	provider, err := Init(ctx, &Config{
		ServiceName: "broker-etrade",
		Environment: "test",
		Enabled:     true,
		Exporter:    "stdout",
		Writer:      &buf,
	})
	if err != nil {
		t.Fatalf("Init failed: %v", err)
	}

	_, span := StartSpan(ctx, "session.initialize")
	span.End()

	if err := provider.Shutdown(ctx); err != nil {
		t.Fatalf("Shutdown failed: %v", err)
	}
	if !strings.Contains(buf.String(), "session.initialize") {
		t.Errorf("exported spans = %q, want session.initialize", buf.String())
	}
}

func TestInit_UnknownExporter(t *testing.T) {
	_, err := Init(context.Background(), &Config{Enabled: true, Exporter: "zipkin"})
	if err == nil {
		t.Fatal("Init should reject an unknown exporter")
	}
}

func TestStartSpan(t *testing.T) {
	withRecorder(t)

	ctx, span := StartSpan(context.Background(), "session.get_accounts")
	if !span.SpanContext().IsValid() {
		t.Error("span context should be valid")
	}

	if len(TraceID(ctx)) != 32 {
		t.Errorf("trace ID should be 32 chars, got %q", TraceID(ctx))
	}
	if len(SpanID(ctx)) != 16 {
		t.Errorf("span ID should be 16 chars, got %q", SpanID(ctx))
	}
	span.End()
}

func TestTraceID_NoSpan(t *testing.T) {
	if got := TraceID(context.Background()); got != "" {
		t.Errorf("TraceID() = %q, want empty", got)
	}
	if got := SpanID(context.Background()); got != "" {
		t.Errorf("SpanID() = %q, want empty", got)
	}
}

func TestEndSpan(t *testing.T) {
	tests := []struct {
		name       string
		err        error
		wantStatus codes.Code
		wantEvents int
	}{
		{"success", nil, codes.Ok, 0},
		{"failure", errors.New("token_rejected"), codes.Error, 1},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			recorder := withRecorder(t)

			_, span := StartSpan(context.Background(), "session.submit_order")
			EndSpan(span, tt.err)

			ended := recorder.Ended()
			if len(ended) != 1 {
				t.Fatalf("ended spans = %d, want 1", len(ended))
			}
			if ended[0].Status().Code != tt.wantStatus {
				t.Errorf("status = %v, want %v", ended[0].Status().Code, tt.wantStatus)
			}
			if len(ended[0].Events()) != tt.wantEvents {
				t.Errorf("events = %d, want %d", len(ended[0].Events()), tt.wantEvents)
			}
		})
	}
}

func TestWrapHTTPClient(t *testing.T) {
	client := WrapHTTPClient(nil)
	if client == nil {
		t.Fatal("client should not be nil")
	}
	if client == http.DefaultClient {
		t.Error("nil should not resolve to the shared default client")
	}
	if _, ok := client.Transport.(*otelhttp.Transport); !ok {
		t.Errorf("transport = %T, want *otelhttp.Transport", client.Transport)
	}
}

func TestWrapHTTPClient_Existing(t *testing.T) {
	original := &http.Client{}
	wrapped := WrapHTTPClient(original)

	if wrapped != original {
		t.Error("should return the same client instance")
	}

	transport := wrapped.Transport
	WrapHTTPClient(wrapped)
	if wrapped.Transport != transport {
		t.Error("wrapping twice should not nest transports")
	}
}

func TestWrapHTTPClient_RecordsSpan(t *testing.T) {
	recorder := withRecorder(t)

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNoContent)
	}))
	defer srv.Close()

	client := WrapHTTPClient(&http.Client{})
	resp, err := client.Get(srv.URL + "/v1/accounts/list")
	if err != nil {
		t.Fatalf("Get failed: %v", err)
	}
	resp.Body.Close()

	ended := recorder.Ended()
	if len(ended) == 0 {
		t.Fatal("expected a client span")
	}
	if ended[0].Name() != "etrade GET /v1/accounts/list" {
		t.Errorf("span name = %v", ended[0].Name())
	}
}

func TestKafkaHeaderCarrier(t *testing.T) {
	headers := []kafka.Header{
		{Key: "test-key", Value: []byte("test-value")},
	}
	carrier := KafkaHeaderCarrier{Headers: &headers}

	if value := carrier.Get("test-key"); value != "test-value" {
		t.Errorf("expected 'test-value', got '%s'", value)
	}
	if value := carrier.Get("non-existent"); value != "" {
		t.Errorf("expected empty string, got '%s'", value)
	}

	carrier.Set("new-key", "new-value")
	if value := carrier.Get("new-key"); value != "new-value" {
		t.Errorf("expected 'new-value', got '%s'", value)
	}

	carrier.Set("new-key", "replaced")
	if keys := carrier.Keys(); len(keys) != 2 {
		t.Errorf("expected 2 keys, got %d", len(keys))
	}
}

func TestInjectTraceContext(t *testing.T) {
	withRecorder(t)
	otel.SetTextMapPropagator(propagation.TraceContext{})

	ctx, span := StartProducerSpan(context.Background(), "broker.orders.submitted")
	defer span.End()

	headers := make([]kafka.Header, 0)
	InjectTraceContext(ctx, &headers)

	carrier := KafkaHeaderCarrier{Headers: &headers}
	if carrier.Get("traceparent") == "" {
		t.Error("traceparent header should be injected")
	}
}
