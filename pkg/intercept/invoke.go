package intercept

import (
	"context"
	"fmt"
	"time"

	"go.opentelemetry.io/otel/trace"

	"mercator-hq/warden/pkg/policy"
	"mercator-hq/warden/pkg/telemetry/logging"
	"mercator-hq/warden/pkg/telemetry/tracing"
)

// run evaluates the chain of b for one call and forwards or suppresses it.
func (e *Engine) run(ctx context.Context, b *Binding, args []any) Outcome {
	d := b.descriptor
	out := Outcome{
		ID:        e.newID(),
		Owner:     d.Owner,
		Operation: d.Operation,
		State:     Pending,
		Started:   e.now(),
	}

	ctx = logging.WithInvocationID(ctx, out.ID)
	ctx = logging.WithOperation(ctx, d.Owner, d.Operation)
	ctx, span := e.tracer.Start(ctx, "warden."+d.String(), trace.WithSpanKind(trace.SpanKindInternal))
	defer span.End()
	tracing.SetInvocationAttributes(span, out.ID, d.Owner, d.Operation, len(args))

	call := &policy.Call{
		ID:        out.ID,
		Owner:     d.Owner,
		Operation: d.Operation,
		Args:      args,
		Time:      out.Started,
	}

	out.State = Evaluating
	for _, step := range d.Steps {
		kind := step.Kind()
		res := e.evaluate(ctx, step, call, &out)

		switch res.Verdict {
		case policy.Allow:
			continue

		case policy.Suspend:
			conf := e.confirm(ctx, span, b, kind, res)
			out.Confirmations = append(out.Confirmations, conf)
			switch {
			case conf.Err != nil:
				e.deny(ctx, b, &out, &PolicyDenial{
					Policy: kind,
					Reason: fmt.Sprintf("confirmation failed: %v", conf.Err),
				}, true)
				return e.finish(ctx, span, out)
			case !conf.Approved:
				e.deny(ctx, b, &out, &UserCancelledError{Resource: res.Resource}, false)
				return e.finish(ctx, span, out)
			}

		default:
			e.deny(ctx, b, &out, &PolicyDenial{Policy: kind, Reason: res.Reason}, true)
			return e.finish(ctx, span, out)
		}
	}

	out.State = Forwarded
	out.Value, out.Err = e.forward(ctx, b, args)
	e.logger.DebugContext(ctx, "operation forwarded", "error", out.Err)
	return e.finish(ctx, span, out)
}

// evaluate runs one step in its own span. A panicking step denies the call.
func (e *Engine) evaluate(ctx context.Context, step policy.Step, call *policy.Call, out *Outcome) (res policy.Result) {
	kind := step.Kind()
	ctx, span := e.tracer.Start(ctx, "warden.policy."+kind)
	start := e.now()

	defer func() {
		if r := recover(); r != nil {
			e.logger.ErrorContext(ctx, "policy step panicked", "policy", kind, "panic", fmt.Sprint(r))
			res = policy.Denied("policy %s failed: %v", kind, r)
		}
		if res.Verdict != policy.Allow && res.Verdict != policy.Suspend && res.Verdict != policy.Deny {
			res = policy.Denied("policy %s returned %s", kind, res.Verdict)
		}
		out.Steps = append(out.Steps, StepTrace{
			Kind:     kind,
			Verdict:  res.Verdict,
			Reason:   res.Reason,
			Duration: e.now().Sub(start),
		})
		tracing.SetStepAttributes(span, kind, res.Verdict.String(), res.Reason)
		span.End()
	}()

	return step.Evaluate(ctx, call)
}

// confirm asks the sink about a suspended call. No engine lock is held.
func (e *Engine) confirm(ctx context.Context, span trace.Span, b *Binding, kind string, res policy.Result) Confirmation {
	d := b.descriptor
	conf := Confirmation{Policy: kind, Resource: res.Resource, Prompt: res.Prompt}

	e.confirmStarted(d.Owner, d.Operation)
	span.AddEvent(tracing.EventConfirmRequested)
	e.logger.InfoContext(ctx, "awaiting confirmation", "policy", kind, "resource", res.Resource)

	start := e.now()
	approved, err := e.ask(ctx, res.Prompt)
	conf.Waited = e.now().Sub(start)

	if err != nil {
		conf.Err = err
	} else {
		conf.Approved = approved
		if res.OnAnswer != nil {
			e.answer(ctx, kind, res.OnAnswer, approved)
		}
	}

	e.confirmFinished(d.Owner, d.Operation, conf.Approved, conf.Err, conf.Waited)
	tracing.AddConfirmationEvent(span, tracing.EventConfirmAnswered, res.Resource, conf.Approved)
	return conf
}

// ask calls Confirm with panic recovery. A context that ends while the sink
// is still answering counts as no answer.
func (e *Engine) ask(ctx context.Context, prompt string) (approved bool, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("confirmation sink panicked: %v", r)
		}
	}()
	if err := ctx.Err(); err != nil {
		return false, err
	}
	approved, err = e.sink.Confirm(ctx, prompt)
	if err == nil && ctx.Err() != nil {
		return false, ctx.Err()
	}
	return approved, err
}

func (e *Engine) answer(ctx context.Context, kind string, fn func(bool), approved bool) {
	defer func() {
		if r := recover(); r != nil {
			e.logger.ErrorContext(ctx, "confirmation callback panicked", "policy", kind, "panic", fmt.Sprint(r))
		}
	}()
	fn(approved)
}

// deny marks out as suppressed. User refusals are logged but not notified.
func (e *Engine) deny(ctx context.Context, b *Binding, out *Outcome, cause error, notifyUser bool) {
	d := b.descriptor
	out.State = Denied
	out.Cause = cause
	out.Value = d.DenialValue()

	kind, reason := out.DeniedBy()
	if !notifyUser {
		e.logger.InfoContext(ctx, "operation cancelled by user", "policy", kind, "reason", reason)
		return
	}

	e.logger.WarnContext(ctx, "operation blocked", "policy", kind, "reason", reason)
	e.notify(context.WithoutCancel(ctx), fmt.Sprintf("Blocked %s: %s", d.String(), reason))
}

func (e *Engine) notify(ctx context.Context, msg string) {
	defer func() {
		if r := recover(); r != nil {
			e.logger.ErrorContext(ctx, "notification sink panicked", "panic", fmt.Sprint(r))
		}
	}()
	e.sink.Notify(ctx, msg)
}

// forward calls the original exactly once. A panic in the original is
// returned as an error.
func (e *Engine) forward(ctx context.Context, b *Binding, args []any) (value any, err error) {
	defer func() {
		if r := recover(); r != nil {
			e.logger.ErrorContext(ctx, "original operation panicked", "panic", fmt.Sprint(r))
			value, err = nil, fmt.Errorf("%s panicked: %v", b.descriptor.String(), r)
		}
	}()
	return b.original(ctx, args...)
}

func (e *Engine) finish(ctx context.Context, span trace.Span, out Outcome) Outcome {
	out.Duration = e.now().Sub(out.Started)

	tracing.SetOutcomeAttributes(span, out.State.String(), CauseKind(out.Cause), out.Duration.Milliseconds())
	if out.State == Forwarded && out.Err != nil {
		tracing.SetError(span, out.Err)
	}

	for _, o := range e.observers {
		e.observe(ctx, o, out)
	}
	return out
}

func (e *Engine) observe(ctx context.Context, o Observer, out Outcome) {
	defer func() {
		if r := recover(); r != nil {
			e.logger.ErrorContext(ctx, "observer panicked", "panic", fmt.Sprint(r))
		}
	}()
	o.Observe(ctx, out)
}

func (e *Engine) confirmStarted(owner, operation string) {
	for _, o := range e.observers {
		if co, ok := o.(ConfirmationObserver); ok {
			e.safely(func() { co.ConfirmationStarted(owner, operation) })
		}
	}
}

func (e *Engine) confirmFinished(owner, operation string, approved bool, err error, waited time.Duration) {
	for _, o := range e.observers {
		if co, ok := o.(ConfirmationObserver); ok {
			e.safely(func() { co.ConfirmationFinished(owner, operation, approved, err, waited) })
		}
	}
}

func (e *Engine) safely(fn func()) {
	defer func() {
		if r := recover(); r != nil {
			e.logger.Error("observer panicked", "panic", fmt.Sprint(r))
		}
	}()
	fn()
}
