package context

import (
	"context"
	"testing"

	"go.opentelemetry.io/otel/trace"
)

func TestTraceRoundTrip(t *testing.T) {
	tc := &TraceContext{TraceID: "t-1", SpanID: "s-1", RequestID: "r-1"}
	ctx := WithTrace(context.Background(), tc)

	if got := GetTrace(ctx); got != tc {
		t.Errorf("GetTrace mismatch: %+v", got)
	}
	if got := GetTraceID(ctx); got != "t-1" {
		t.Errorf("trace id mismatch\nwant: t-1\ngot:  %s", got)
	}
	if got := GetRequestID(ctx); got != "r-1" {
		t.Errorf("request id mismatch\nwant: r-1\ngot:  %s", got)
	}
}

func TestGetTraceID_PrefersActiveSpan(t *testing.T) {
	traceID, err := trace.TraceIDFromHex("0123456789abcdef0123456789abcdef")
	if err != nil {
		t.Fatalf("bad trace id: %v", err)
	}
	spanID, err := trace.SpanIDFromHex("0123456789abcdef")
	if err != nil {
		t.Fatalf("bad span id: %v", err)
	}
	sc := trace.NewSpanContext(trace.SpanContextConfig{TraceID: traceID, SpanID: spanID})

	ctx := WithTrace(context.Background(), &TraceContext{TraceID: "header-trace"})
	ctx = trace.ContextWithSpanContext(ctx, sc)

	if got := GetTraceID(ctx); got != traceID.String() {
		t.Errorf("active span must win\nwant: %s\ngot:  %s", traceID, got)
	}
}

func TestEmptyContext(t *testing.T) {
	ctx := context.Background()

	if GetTrace(ctx) != nil {
		t.Error("GetTrace on a bare context must be nil")
	}
	if GetTraceID(ctx) != "" {
		t.Error("GetTraceID on a bare context must be empty")
	}
	if GetRequestID(ctx) != "" {
		t.Error("GetRequestID on a bare context must be empty")
	}
}
