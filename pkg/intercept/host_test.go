package intercept

import (
	"context"
	"errors"
	"testing"
)

func TestTable(t *testing.T) {
	tbl := NewTable().
		Define("b", func(context.Context, ...any) (any, error) { return "b", nil }).
		Define("a", func(_ context.Context, args ...any) (any, error) { return len(args), nil })

	if got := tbl.Names(); len(got) != 2 || got[0] != "a" || got[1] != "b" {
		t.Errorf("Names() = %v", got)
	}

	v, err := tbl.Call(context.Background(), "a", 1, 2, 3)
	if v != 3 || err != nil {
		t.Errorf("Call(a) = %v, %v", v, err)
	}

	var nf *TargetNotFoundError
	if _, err := tbl.Call(context.Background(), "c"); !errors.As(err, &nf) {
		t.Errorf("Call(c) error = %v, want TargetNotFoundError", err)
	}
	if err := tbl.SetOperation("c", func(context.Context, ...any) (any, error) { return nil, nil }); !errors.As(err, &nf) {
		t.Errorf("SetOperation(c) error = %v, want TargetNotFoundError", err)
	}
	if err := tbl.SetOperation("a", nil); err == nil {
		t.Error("SetOperation(nil) should fail")
	}
}

func TestFuture(t *testing.T) {
	f := NewFuture()
	if f.Resolved() {
		t.Fatal("new future is resolved")
	}

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if _, err := f.Await(ctx); !errors.Is(err, context.Canceled) {
		t.Errorf("Await(cancelled) error = %v", err)
	}

	if !f.Resolve(1, nil) {
		t.Error("first Resolve returned false")
	}
	if f.Resolve(2, errors.New("late")) {
		t.Error("second Resolve returned true")
	}

	<-f.Done()
	v, err := f.Await(context.Background())
	if v != 1 || err != nil {
		t.Errorf("Await() = %v, %v, want 1, nil", v, err)
	}
}

func TestOutcome_DeniedBy(t *testing.T) {
	out := Outcome{
		State:         Denied,
		Cause:         &UserCancelledError{Resource: "https://evil.example/ext.js"},
		Confirmations: []Confirmation{{Policy: "trust_gate"}},
	}
	kind, reason := out.DeniedBy()
	if kind != "trust_gate" || reason != "user declined https://evil.example/ext.js" {
		t.Errorf("DeniedBy() = %q, %q", kind, reason)
	}

	if kind, reason := (Outcome{State: Forwarded}).DeniedBy(); kind != "" || reason != "" {
		t.Errorf("forwarded DeniedBy() = %q, %q", kind, reason)
	}
}

func TestParseDuplicatePolicy(t *testing.T) {
	tests := []struct {
		in      string
		want    DuplicatePolicy
		wantErr bool
	}{
		{"", DuplicateError, false},
		{"error", DuplicateError, false},
		{"ignore", DuplicateIgnore, false},
		{"replace", DuplicateError, true},
	}
	for _, tt := range tests {
		got, err := ParseDuplicatePolicy(tt.in)
		if got != tt.want || (err != nil) != tt.wantErr {
			t.Errorf("ParseDuplicatePolicy(%q) = %v, %v", tt.in, got, err)
		}
	}
}
