package matching

import (
	"testing"

	"github.com/thebossrrpg/Thesims4modanalyzer/internal/config"
)

func TestPolicyFromConfig(t *testing.T) {
	cfg := config.DefaultPolicy()
	cfg.ScoringWorkers = 0
	p := PolicyFromConfig(cfg)
	if p.FoundThreshold != 0.48 || p.AmbiguityGap != 0.15 || p.MaxCandidates != 5 {
		t.Fatalf("unexpected policy: %+v", p)
	}
	if p.ScoringWorkers != 1 {
		t.Fatalf("expected workers floor of 1, got %d", p.ScoringWorkers)
	}
	if p.Version != config.PolicyVersion(cfg) {
		t.Fatalf("Version = %q", p.Version)
	}
}

func TestSameSite(t *testing.T) {
	p := DefaultPolicy()
	tests := []struct {
		a, b string
		want bool
	}{
		{"mod.example.com", "MOD.example.com", true},
		{"www.curseforge.com", "legacy.curseforge.com", true},
		{"sims4.curseforge.com", "curseforge.com", true},
		{"modthesims.info", "mts.com", true},
		{"patreon.com", "tumblr.com", false},
		{"example.com", "other.com", false},
		{"", "example.com", false},
	}
	for _, tt := range tests {
		if got := p.SameSite(tt.a, tt.b); got != tt.want {
			t.Errorf("SameSite(%q, %q) = %v, want %v", tt.a, tt.b, got, tt.want)
		}
	}
}

func TestAtLeast(t *testing.T) {
	if !AtLeast(0.1+0.2, 0.3) {
		t.Fatal("float noise should not fail an equal comparison")
	}
	if AtLeast(0.69, 0.70) {
		t.Fatal("0.69 must not clear 0.70")
	}
}
