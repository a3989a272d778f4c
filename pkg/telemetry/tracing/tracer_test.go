package tracing

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"mercator-hq/warden/pkg/config"

	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"
)

func TestNew(t *testing.T) {
	tests := []struct {
		name    string
		config  *config.TracingConfig
		wantErr bool
	}{
		{
			name:    "nil config",
			config:  nil,
			wantErr: true,
		},
		{
			name: "disabled tracing",
			config: &config.TracingConfig{
				Enabled:     false,
				ServiceName: "warden",
			},
		},
		{
			name: "bad sampler",
			config: &config.TracingConfig{
				Enabled:  true,
				Sampler:  "sometimes",
				Exporter: "otlp",
			},
			wantErr: true,
		},
		{
			name: "unsupported exporter",
			config: &config.TracingConfig{
				Enabled:  true,
				Sampler:  "always",
				Exporter: "zipkin",
			},
			wantErr: true,
		},
		{
			name: "otlp exporter",
			config: &config.TracingConfig{
				Enabled:     true,
				Sampler:     "ratio",
				SampleRatio: 0.5,
				Exporter:    "otlp",
				Endpoint:    "localhost:4317",
				ServiceName: "warden",
				OTLP: config.OTLPConfig{
					Insecure: true,
					Timeout:  time.Second,
				},
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tracer, err := New(tt.config)
			if (err != nil) != tt.wantErr {
				t.Fatalf("New() error = %v, wantErr %v", err, tt.wantErr)
			}
			if err != nil {
				return
			}
			if tracer.OTel() == nil {
				t.Error("OTel() returned nil")
			}
			if tracer.Enabled() != tt.config.Enabled {
				t.Errorf("Enabled() = %v, want %v", tracer.Enabled(), tt.config.Enabled)
			}

			ctx, cancel := context.WithTimeout(context.Background(), 100*time.Millisecond)
			defer cancel()
			_ = tracer.Shutdown(ctx)
		})
	}
}

func TestDisabledTracer_NoopSpans(t *testing.T) {
	tracer, err := New(&config.TracingConfig{})
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}

	ctx, span := tracer.Start(context.Background(), "call")
	defer span.End()

	if span.SpanContext().IsValid() {
		t.Error("disabled tracer should produce invalid span contexts")
	}
	if TraceID(ctx) != "" || SpanID(ctx) != "" {
		t.Error("disabled tracer should not expose IDs")
	}
}

func TestCreateSampler(t *testing.T) {
	tests := []struct {
		strategy string
		ratio    float64
		wantErr  bool
	}{
		{SamplerAlways, 0, false},
		{"", 0, false},
		{SamplerNever, 0, false},
		{SamplerRatio, 0.25, false},
		{SamplerRatio, 1.5, true},
		{SamplerRatio, -0.1, true},
		{"sometimes", 0, true},
	}

	for _, tt := range tests {
		s, err := createSampler(tt.strategy, tt.ratio)
		if (err != nil) != tt.wantErr {
			t.Errorf("createSampler(%q, %v) error = %v, wantErr %v", tt.strategy, tt.ratio, err, tt.wantErr)
		}
		if err == nil && s == nil {
			t.Errorf("createSampler(%q) returned nil sampler", tt.strategy)
		}
	}
}

func TestAttributes(t *testing.T) {
	rec := tracetest.NewSpanRecorder()
	tp := sdktrace.NewTracerProvider(sdktrace.WithSpanProcessor(rec))
	tracer := tp.Tracer("test")

	_, span := tracer.Start(context.Background(), "warden.project.submitScore",
		NewAttributeBuilder().WithPolicy("validate").WithCustom("custom.flag", true).Build())
	SetInvocationAttributes(span, "inv-1", "project", "submitScore", 2)
	SetStepAttributes(span, "validate", "deny", "out of range")
	SetOutcomeAttributes(span, "denied", "policy_denial", 3)
	AddConfirmationEvent(span, EventConfirmAnswered, "https://evil.example/ext.js", false)
	span.End()

	spans := rec.Ended()
	if len(spans) != 1 {
		t.Fatalf("recorded %d spans, want 1", len(spans))
	}

	got := map[string]string{}
	for _, kv := range spans[0].Attributes() {
		got[string(kv.Key)] = kv.Value.Emit()
	}
	want := map[string]string{
		AttrInvocationID:  "inv-1",
		AttrOwner:         "project",
		AttrOperation:     "submitScore",
		AttrArgCount:      "2",
		AttrPolicyKind:    "validate",
		AttrPolicyVerdict: "deny",
		AttrPolicyReason:  "out of range",
		AttrOutcome:       "denied",
		AttrCause:         "policy_denial",
		"custom.flag":     "true",
	}
	for k, v := range want {
		if got[k] != v {
			t.Errorf("attribute %s = %q, want %q", k, got[k], v)
		}
	}

	events := spans[0].Events()
	if len(events) != 1 || events[0].Name != EventConfirmAnswered {
		t.Errorf("events = %v", events)
	}
}

func TestHTTPMiddleware(t *testing.T) {
	rec := tracetest.NewSpanRecorder()
	tp := sdktrace.NewTracerProvider(sdktrace.WithSpanProcessor(rec))

	var sawSpan bool
	h := HTTPMiddleware(tp.Tracer("test"), http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		sawSpan = TraceID(r.Context()) != ""
	}))

	w := httptest.NewRecorder()
	h.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/v1/bindings", nil))

	if !sawSpan {
		t.Error("handler context should carry a span")
	}
	if w.Header().Get("X-Trace-ID") == "" {
		t.Error("expected X-Trace-ID header")
	}
	if spans := rec.Ended(); len(spans) != 1 || spans[0].Name() != "GET /v1/bindings" {
		t.Errorf("unexpected spans: %v", spans)
	}
}
