package logger

import (
	"bytes"
	"context"
	"strings"
	"testing"

	"github.com/rs/zerolog"
	"go.opentelemetry.io/otel/trace"
)

func TestInit(t *testing.T) {
	tests := []struct {
		name        string
		serviceName string
		level       string
		pretty      bool
	}{
		{"info level pretty", "test-service", "info", true},
		{"debug level json", "test-service", "debug", false},
		{"invalid level defaults to info", "test-service", "invalid", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			Init(tt.serviceName, tt.level, tt.pretty)

			if Logger.GetLevel() == zerolog.Disabled {
				t.Error("Logger should be enabled after Init")
			}
		})
	}
}

func TestLogLevels(t *testing.T) {
	var buf bytes.Buffer
	zerolog.SetGlobalLevel(zerolog.DebugLevel)
	Logger = zerolog.New(&buf).With().Timestamp().Logger()

	Debug().Msg("debug message")
	Info().Msg("info message")
	Warn().Msg("warn message")
	Error().Msg("error message")

	output := buf.String()

	if !strings.Contains(output, "debug message") {
		t.Error("Debug() should log messages")
	}
	if !strings.Contains(output, "info message") {
		t.Error("Info() should log messages")
	}
	if !strings.Contains(output, "warn message") {
		t.Error("Warn() should log messages")
	}
	if !strings.Contains(output, "error message") {
		t.Error("Error() should log messages")
	}
}

func TestWithContext(t *testing.T) {
	Init("test", "info", false)

	ctx := context.Background()
	logger := WithContext(ctx)

	if logger.GetLevel() == zerolog.Disabled {
		t.Error("WithContext should return a valid logger")
	}
}

func TestWithContext_TraceFields(t *testing.T) {
	var buf bytes.Buffer
	zerolog.SetGlobalLevel(zerolog.DebugLevel)
	Logger = zerolog.New(&buf)

	traceID, _ := trace.TraceIDFromHex("4bf92f3577b34da6a3ce929d0e0e4736")
	spanID, _ := trace.SpanIDFromHex("00f067aa0ba902b7")
	sc := trace.NewSpanContext(trace.SpanContextConfig{
		TraceID:    traceID,
		SpanID:     spanID,
		TraceFlags: trace.FlagsSampled,
	})
	ctx := trace.ContextWithSpanContext(context.Background(), sc)

	l := WithContext(ctx)
	l.Info().Msg("traced")

	output := buf.String()
	if !strings.Contains(output, `"trace_id":"4bf92f3577b34da6a3ce929d0e0e4736"`) {
		t.Errorf("output = %s, want trace_id field", output)
	}
	if !strings.Contains(output, `"span_id":"00f067aa0ba902b7"`) {
		t.Errorf("output = %s, want span_id field", output)
	}
}

func TestComponent(t *testing.T) {
	var buf bytes.Buffer
	zerolog.SetGlobalLevel(zerolog.DebugLevel)
	Logger = zerolog.New(&buf)

	l := Component("session")
	l.Warn().Str("account_id", "84110000").Msg("balance unavailable")

	output := buf.String()
	if !strings.Contains(output, `"component":"session"`) {
		t.Errorf("output = %s, want component field", output)
	}
	if !strings.Contains(output, `"account_id":"84110000"`) {
		t.Errorf("output = %s, want account_id field", output)
	}
}
