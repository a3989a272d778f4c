package trust

import (
	"sync"
	"testing"
)

const trustedOrigin = "https://gandi-main.ccw.site"

func TestGate_Evaluate(t *testing.T) {
	tests := []struct {
		name    string
		origins []string
		mode    MatchMode
		ref     string
		want    Decision
	}{
		{"trusted prefix", []string{trustedOrigin}, MatchPrefix, "https://gandi-main.ccw.site/ext.js", Trusted},
		{"untrusted origin", []string{trustedOrigin}, MatchPrefix, "https://evil.example/ext.js", NeedsConfirmation},
		{"prefix is not substring", []string{"gandi-main.ccw.site"}, MatchPrefix, "https://gandi-main.ccw.site/ext.js", NeedsConfirmation},
		{"substring mode", []string{"gandi-main.ccw.site"}, MatchSubstring, "https://gandi-main.ccw.site/ext.js", Trusted},
		{"case sensitive", []string{trustedOrigin}, MatchPrefix, "HTTPS://GANDI-MAIN.CCW.SITE/ext.js", NeedsConfirmation},
		{"empty allow-list", nil, MatchPrefix, "https://gandi-main.ccw.site/ext.js", NeedsConfirmation},
		{"empty entry ignored", []string{""}, MatchPrefix, "anything", NeedsConfirmation},
		{"second entry", []string{"https://a.example", trustedOrigin}, MatchPrefix, trustedOrigin + "/x.js", Trusted},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			g := NewGate(tt.origins, WithMatchMode(tt.mode))
			if got := g.Evaluate(tt.ref); got != tt.want {
				t.Errorf("Evaluate(%q) = %v, want %v", tt.ref, got, tt.want)
			}
		})
	}
}

func TestGate_ApproveWithoutMemory(t *testing.T) {
	g := NewGate([]string{trustedOrigin})
	ref := "https://evil.example/ext.js"

	g.Approve(ref)
	if g.Evaluate(ref) != NeedsConfirmation {
		t.Error("gate without session memory must prompt every time")
	}
}

func TestGate_SessionMemory(t *testing.T) {
	g := NewGate([]string{trustedOrigin}, WithSessionMemory())
	ref := "https://evil.example/ext.js"

	if g.Evaluate(ref) != NeedsConfirmation {
		t.Fatal("unapproved reference should need confirmation")
	}
	g.Approve(ref)
	if g.Evaluate(ref) != Trusted {
		t.Error("approved reference should be trusted for the session")
	}
	if g.Evaluate("https://evil.example/other.js") != NeedsConfirmation {
		t.Error("approval must be exact, not by origin")
	}

	g.Forget()
	if g.Evaluate(ref) != NeedsConfirmation {
		t.Error("forgotten approval should need confirmation again")
	}
}

func TestGate_ConcurrentApprove(t *testing.T) {
	g := NewGate(nil, WithSessionMemory())
	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			g.Approve("ref")
			g.Evaluate("ref")
		}()
	}
	wg.Wait()
	if g.Evaluate("ref") != Trusted {
		t.Error("expected ref to be remembered")
	}
}

func TestParseMatchMode(t *testing.T) {
	for in, want := range map[string]MatchMode{"": MatchPrefix, "prefix": MatchPrefix, "substring": MatchSubstring} {
		got, err := ParseMatchMode(in)
		if err != nil || got != want {
			t.Errorf("ParseMatchMode(%q) = %v, %v", in, got, err)
		}
	}
	if _, err := ParseMatchMode("regex"); err == nil {
		t.Error("expected error for unknown mode")
	}
}
