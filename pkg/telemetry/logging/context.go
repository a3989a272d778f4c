package logging

import (
	"context"
	"log/slog"

	"go.opentelemetry.io/otel/trace"
)

// Context keys for common log fields.
type contextKey string

const (
	// InvocationIDKey is the context key for invocation IDs.
	InvocationIDKey contextKey = "invocation_id"

	// OwnerKey is the context key for the owner of the called operation.
	OwnerKey contextKey = "owner"

	// OperationKey is the context key for the called operation.
	OperationKey contextKey = "operation"

	// ChannelKey is the context key for a rate limit channel.
	ChannelKey contextKey = "channel"
)

// WithInvocationID adds an invocation ID to the context.
func WithInvocationID(ctx context.Context, id string) context.Context {
	return context.WithValue(ctx, InvocationIDKey, id)
}

// GetInvocationID retrieves the invocation ID from the context.
func GetInvocationID(ctx context.Context) string {
	return getString(ctx, InvocationIDKey)
}

// WithOperation adds the owner and operation name to the context.
func WithOperation(ctx context.Context, owner, operation string) context.Context {
	ctx = context.WithValue(ctx, OwnerKey, owner)
	return context.WithValue(ctx, OperationKey, operation)
}

// GetOwner retrieves the owner from the context.
func GetOwner(ctx context.Context) string {
	return getString(ctx, OwnerKey)
}

// GetOperation retrieves the operation name from the context.
func GetOperation(ctx context.Context) string {
	return getString(ctx, OperationKey)
}

// WithChannel adds a rate limit channel to the context.
func WithChannel(ctx context.Context, channel string) context.Context {
	return context.WithValue(ctx, ChannelKey, channel)
}

// GetChannel retrieves the rate limit channel from the context.
func GetChannel(ctx context.Context) string {
	return getString(ctx, ChannelKey)
}

func getString(ctx context.Context, key contextKey) string {
	if ctx == nil {
		return ""
	}
	if v, ok := ctx.Value(key).(string); ok {
		return v
	}
	return ""
}

// contextAttrs extracts the context fields present in ctx, including the
// trace and span IDs of an active span.
func contextAttrs(ctx context.Context) []slog.Attr {
	if ctx == nil {
		return nil
	}

	var attrs []slog.Attr
	for _, key := range []contextKey{InvocationIDKey, OwnerKey, OperationKey, ChannelKey} {
		if v := getString(ctx, key); v != "" {
			attrs = append(attrs, slog.String(string(key), v))
		}
	}

	if sc := trace.SpanFromContext(ctx).SpanContext(); sc.IsValid() {
		attrs = append(attrs,
			slog.String("trace_id", sc.TraceID().String()),
			slog.String("span_id", sc.SpanID().String()),
		)
	}
	return attrs
}
