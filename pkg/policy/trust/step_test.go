package trust

import (
	"context"
	"testing"

	"mercator-hq/warden/pkg/policy"
)

func TestStep_Evaluate(t *testing.T) {
	step := NewStep(NewGate([]string{trustedOrigin}), 0, "", "")
	ctx := context.Background()

	trusted := step.Evaluate(ctx, &policy.Call{Args: []any{"https://gandi-main.ccw.site/ext.js"}})
	if trusted.Verdict != policy.Allow {
		t.Errorf("trusted verdict = %v, want allow", trusted.Verdict)
	}

	untrusted := step.Evaluate(ctx, &policy.Call{Args: []any{"https://evil.example/ext.js"}})
	if untrusted.Verdict != policy.Suspend {
		t.Fatalf("untrusted verdict = %v, want suspend", untrusted.Verdict)
	}
	if untrusted.Resource != "https://evil.example/ext.js" {
		t.Errorf("Resource = %q", untrusted.Resource)
	}
	if untrusted.Prompt != "Load untrusted resource https://evil.example/ext.js?" {
		t.Errorf("Prompt = %q", untrusted.Prompt)
	}

	notString := step.Evaluate(ctx, &policy.Call{Args: []any{42}})
	if notString.Verdict != policy.Deny {
		t.Errorf("non-string verdict = %v, want deny", notString.Verdict)
	}

	missing := step.Evaluate(ctx, &policy.Call{})
	if missing.Verdict != policy.Deny {
		t.Errorf("missing argument verdict = %v, want deny", missing.Verdict)
	}
}

func TestStep_OnAnswerRemembers(t *testing.T) {
	gate := NewGate(nil, WithSessionMemory())
	step := NewStep(gate, 0, "url", "Allow %s?")
	ctx := context.Background()
	call := &policy.Call{Args: []any{map[string]any{"url": "https://evil.example/ext.js"}}}

	res := step.Evaluate(ctx, call)
	if res.Verdict != policy.Suspend {
		t.Fatalf("verdict = %v, want suspend", res.Verdict)
	}
	if res.Prompt != "Allow https://evil.example/ext.js?" {
		t.Errorf("Prompt = %q", res.Prompt)
	}

	res.OnAnswer(false)
	if step.Evaluate(ctx, call).Verdict != policy.Suspend {
		t.Error("a declined reference must prompt again")
	}

	res.OnAnswer(true)
	if step.Evaluate(ctx, call).Verdict != policy.Allow {
		t.Error("an approved reference should be allowed with session memory")
	}
}

func TestStep_MaySuspend(t *testing.T) {
	d := policy.Descriptor{Steps: []policy.Step{NewStep(NewGate(nil), 0, "", "")}}
	if !d.Suspends() {
		t.Error("descriptor with a trust step should report Suspends")
	}
}
