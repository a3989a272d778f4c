package tracing

import (
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
)

// Attribute keys set by the engine.
const (
	// Invocation attributes
	AttrInvocationID = "warden.invocation_id"
	AttrOwner        = "warden.owner"
	AttrOperation    = "warden.operation"
	AttrArgCount     = "warden.arg_count"

	// Policy attributes
	AttrPolicyKind    = "warden.policy.kind"
	AttrPolicyVerdict = "warden.policy.verdict"
	AttrPolicyReason  = "warden.policy.reason"

	// Outcome attributes
	AttrOutcome  = "warden.outcome"
	AttrCause    = "warden.cause"
	AttrDuration = "warden.duration_ms"

	// Confirmation attributes
	AttrConfirmResource = "warden.confirmation.resource"
	AttrConfirmApproved = "warden.confirmation.approved"

	AttrErrorMessage = "error.message"
)

// Event names.
const (
	EventConfirmRequested = "confirmation.requested"
	EventConfirmAnswered  = "confirmation.answered"
)

// SetInvocationAttributes sets the identity of a wrapped call on span.
func SetInvocationAttributes(span trace.Span, invocationID, owner, operation string, argCount int) {
	span.SetAttributes(
		attribute.String(AttrInvocationID, invocationID),
		attribute.String(AttrOwner, owner),
		attribute.String(AttrOperation, operation),
		attribute.Int(AttrArgCount, argCount),
	)
}

// SetStepAttributes sets the result of one policy step on span. An empty
// reason is omitted.
func SetStepAttributes(span trace.Span, kind, verdict, reason string) {
	attrs := []attribute.KeyValue{
		attribute.String(AttrPolicyKind, kind),
		attribute.String(AttrPolicyVerdict, verdict),
	}
	if reason != "" {
		attrs = append(attrs, attribute.String(AttrPolicyReason, reason))
	}
	span.SetAttributes(attrs...)
}

// SetOutcomeAttributes sets the final state of a call on span.
func SetOutcomeAttributes(span trace.Span, outcome, cause string, durationMs int64) {
	attrs := []attribute.KeyValue{
		attribute.String(AttrOutcome, outcome),
		attribute.Int64(AttrDuration, durationMs),
	}
	if cause != "" {
		attrs = append(attrs, attribute.String(AttrCause, cause))
	}
	span.SetAttributes(attrs...)
}

// AddConfirmationEvent records a confirmation question or answer on span.
// approved is ignored for EventConfirmRequested.
func AddConfirmationEvent(span trace.Span, name, resource string, approved bool) {
	attrs := []attribute.KeyValue{attribute.String(AttrConfirmResource, resource)}
	if name == EventConfirmAnswered {
		attrs = append(attrs, attribute.Bool(AttrConfirmApproved, approved))
	}
	span.AddEvent(name, trace.WithAttributes(attrs...))
}

// AttributeBuilder collects span attributes fluently.
//
//	opts := tracing.NewAttributeBuilder().
//	    WithInvocation(id, "project", "submitScore").
//	    Build()
type AttributeBuilder struct {
	attrs []attribute.KeyValue
}

// NewAttributeBuilder returns an empty builder.
func NewAttributeBuilder() *AttributeBuilder {
	return &AttributeBuilder{}
}

// WithInvocation adds invocation identity attributes.
func (ab *AttributeBuilder) WithInvocation(invocationID, owner, operation string) *AttributeBuilder {
	ab.attrs = append(ab.attrs,
		attribute.String(AttrInvocationID, invocationID),
		attribute.String(AttrOwner, owner),
		attribute.String(AttrOperation, operation),
	)
	return ab
}

// WithPolicy adds the policy kind.
func (ab *AttributeBuilder) WithPolicy(kind string) *AttributeBuilder {
	ab.attrs = append(ab.attrs, attribute.String(AttrPolicyKind, kind))
	return ab
}

// WithCustom adds a string, bool, int, int64 or float64 attribute. Values
// with a String method are stored as strings; anything else is skipped.
func (ab *AttributeBuilder) WithCustom(key string, value any) *AttributeBuilder {
	switch v := value.(type) {
	case string:
		ab.attrs = append(ab.attrs, attribute.String(key, v))
	case bool:
		ab.attrs = append(ab.attrs, attribute.Bool(key, v))
	case int:
		ab.attrs = append(ab.attrs, attribute.Int(key, v))
	case int64:
		ab.attrs = append(ab.attrs, attribute.Int64(key, v))
	case float64:
		ab.attrs = append(ab.attrs, attribute.Float64(key, v))
	case interface{ String() string }:
		ab.attrs = append(ab.attrs, attribute.String(key, v.String()))
	}
	return ab
}

// Build returns the attributes as a span start option.
func (ab *AttributeBuilder) Build() trace.SpanStartOption {
	return trace.WithAttributes(ab.attrs...)
}

// Attributes returns the collected attributes.
func (ab *AttributeBuilder) Attributes() []attribute.KeyValue {
	return ab.attrs
}
