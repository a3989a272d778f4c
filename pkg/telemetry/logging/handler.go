package logging

import (
	"context"
	"log/slog"
)

// handler adds context fields to records and redacts attribute values
// before passing them on.
type handler struct {
	next     slog.Handler
	redactor *Redactor
}

func newHandler(next slog.Handler, redactor *Redactor) *handler {
	return &handler{next: next, redactor: redactor}
}

func (h *handler) Enabled(ctx context.Context, level slog.Level) bool {
	return h.next.Enabled(ctx, level)
}

func (h *handler) Handle(ctx context.Context, r slog.Record) error {
	fields := contextAttrs(ctx)
	if len(fields) == 0 && h.redactor == nil {
		return h.next.Handle(ctx, r)
	}

	out := slog.NewRecord(r.Time, r.Level, h.redact("", slog.StringValue(r.Message)).String(), r.PC)
	out.AddAttrs(fields...)
	r.Attrs(func(a slog.Attr) bool {
		out.AddAttrs(h.redactAttr(a))
		return true
	})
	return h.next.Handle(ctx, out)
}

func (h *handler) WithAttrs(attrs []slog.Attr) slog.Handler {
	redacted := make([]slog.Attr, len(attrs))
	for i, a := range attrs {
		redacted[i] = h.redactAttr(a)
	}
	return &handler{next: h.next.WithAttrs(redacted), redactor: h.redactor}
}

func (h *handler) WithGroup(name string) slog.Handler {
	return &handler{next: h.next.WithGroup(name), redactor: h.redactor}
}

func (h *handler) redactAttr(a slog.Attr) slog.Attr {
	if h.redactor == nil {
		return a
	}
	if a.Value.Kind() == slog.KindGroup {
		group := a.Value.Group()
		redacted := make([]slog.Attr, len(group))
		for i, g := range group {
			redacted[i] = h.redactAttr(g)
		}
		return slog.Attr{Key: a.Key, Value: slog.GroupValue(redacted...)}
	}
	return slog.Attr{Key: a.Key, Value: h.redact(a.Key, a.Value)}
}

func (h *handler) redact(key string, v slog.Value) slog.Value {
	if h.redactor == nil {
		return v
	}
	v = v.Resolve()
	if key != "" && h.redactor.isSensitiveKey(key) {
		return slog.AnyValue(h.redactor.redactValue(v.Any()))
	}
	if v.Kind() == slog.KindString {
		return slog.StringValue(h.redactor.RedactString(v.String()))
	}
	return v
}
