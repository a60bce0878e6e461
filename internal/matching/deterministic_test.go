package matching

import (
	"testing"

	"github.com/thebossrrpg/Thesims4modanalyzer/internal/catalog"
	"github.com/thebossrrpg/Thesims4modanalyzer/internal/decision"
)

func mustIndex(t *testing.T, entries ...catalog.Entry) *catalog.Index {
	t.Helper()
	idx, err := catalog.NewIndex("test", entries)
	if err != nil {
		t.Fatalf("NewIndex: %v", err)
	}
	return idx
}

func TestDeterministicExactMatchAcrossForms(t *testing.T) {
	idx := mustIndex(t,
		catalog.Entry{ID: "a1", URL: "https://mod.example.com/cool-pack", Title: "Cool Pack"},
		catalog.Entry{ID: "b2", URL: "https://mod.example.com/other", Title: "Other"},
	)
	m := NewDeterministicMatcher(idx, nil)

	for _, raw := range []string{
		"https://mod.example.com/cool-pack/",
		"https://mod.example.com/cool-pack",
		"http://www.mod.example.com/cool-pack",
		"  https://mod.example.com/cool-pack  ",
	} {
		res := m.Match(raw, "")
		if !res.Matched {
			t.Fatalf("Match(%q) did not match", raw)
		}
		if res.Outcome.Status != decision.StatusFound || res.Outcome.Stage != decision.StageExact || res.Outcome.ChosenID != "a1" {
			t.Fatalf("Match(%q) = %+v", raw, res.Outcome)
		}
	}
}

func TestDeterministicUniqueSlug(t *testing.T) {
	idx := mustIndex(t, catalog.Entry{ID: "a1", URL: "https://old.example.com/downloads/cool-pack", Title: "Cool Pack"})
	res := NewDeterministicMatcher(idx, nil).Match("https://new.example.org/mods/Cool_Pack/", "")
	if !res.Matched || res.Outcome.Stage != decision.StageSlug || res.Outcome.ChosenID != "a1" {
		t.Fatalf("expected slug match, got %+v", res)
	}
}

func TestDeterministicSharedSlugFallsThrough(t *testing.T) {
	idx := mustIndex(t,
		catalog.Entry{ID: "a1", URL: "https://one.example.com/cool-pack", Title: "Cool Pack"},
		catalog.Entry{ID: "b2", URL: "https://two.example.com/cool-pack", Title: "Cool Pack Too"},
	)
	res := NewDeterministicMatcher(idx, nil).Match("https://three.example.com/cool-pack", "")
	if res.Matched {
		t.Fatalf("shared slug must not auto-resolve, got %+v", res.Outcome)
	}
	if len(res.Notes) == 0 {
		t.Fatal("expected a trail note about the collision")
	}
}

func TestDeterministicSlugHintAndMalformed(t *testing.T) {
	idx := mustIndex(t, catalog.Entry{ID: "a1", URL: "https://mod.example.com/cool-pack"})
	m := NewDeterministicMatcher(idx, nil)

	if res := m.Match("", "cool-pack"); !res.Matched || res.Outcome.ChosenID != "a1" {
		t.Fatalf("slug hint should match, got %+v", res)
	}
	if res := m.Match("%%%", ""); res.Matched {
		t.Fatalf("malformed input must be a non-match, got %+v", res)
	}
	if res := m.Match("", ""); res.Matched {
		t.Fatal("empty input must be a non-match")
	}
}
