package context

import (
	"context"

	"go.opentelemetry.io/otel/trace"
)

// TraceContext carries request correlation identifiers. TraceID follows
// the request across services; RequestID is unique per inbound call.
type TraceContext struct {
	TraceID   string
	SpanID    string
	RequestID string
}

type traceContextKey struct{}

// WithTrace attaches correlation identifiers to the context.
func WithTrace(ctx context.Context, tc *TraceContext) context.Context {
	return context.WithValue(ctx, traceContextKey{}, tc)
}

// GetTrace returns the attached TraceContext, or nil outside a request.
func GetTrace(ctx context.Context) *TraceContext {
	tc, _ := ctx.Value(traceContextKey{}).(*TraceContext)
	return tc
}

// GetTraceID resolves the trace id for log correlation. An active otel
// span wins over the request-level id; empty means no trace is in
// flight, callers must not treat it as an identifier.
func GetTraceID(ctx context.Context) string {
	if sc := trace.SpanContextFromContext(ctx); sc.HasTraceID() {
		return sc.TraceID().String()
	}
	if tc := GetTrace(ctx); tc != nil {
		return tc.TraceID
	}
	return ""
}

// GetRequestID returns the inbound request id, or empty outside a
// request.
func GetRequestID(ctx context.Context) string {
	if tc := GetTrace(ctx); tc != nil {
		return tc.RequestID
	}
	return ""
}
