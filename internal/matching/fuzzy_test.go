package matching

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/google/go-cmp/cmp"

	"github.com/thebossrrpg/Thesims4modanalyzer/internal/catalog"
	"github.com/thebossrrpg/Thesims4modanalyzer/internal/decision"
	"github.com/thebossrrpg/Thesims4modanalyzer/internal/identity"
)

func TestFuzzyTypoFoundWithSingleCandidate(t *testing.T) {
	idx := mustIndex(t, catalog.Entry{ID: "a1", URL: "https://mod.example.com/cool-pack", Title: "Cool Pack"})
	res, err := NewFuzzyScorer(DefaultPolicy(), nil).Score(context.Background(),
		identity.Identity{PrimaryName: "Cool Pakc", Domain: "mod.example.com"}, idx)
	if err != nil {
		t.Fatalf("Score: %v", err)
	}
	if res.Outcome.Status != decision.StatusFound || res.Outcome.Stage != decision.StageFuzzy || res.Outcome.ChosenID != "a1" {
		t.Fatalf("unexpected outcome: %+v", res.Outcome)
	}
	if res.EarlyExit {
		t.Fatal("typo should not trigger the exact-title exit")
	}
	// 0.60 * (1 - 2/9) + 0.05 domain bonus
	if got, want := res.Candidates[0].Score, 0.6*(1-2.0/9.0)+0.05; got < want-1e-9 || got > want+1e-9 {
		t.Fatalf("score = %v, want %v", got, want)
	}
}

func TestFuzzyExactTitleExitsEarly(t *testing.T) {
	idx := mustIndex(t,
		catalog.Entry{ID: "b2", Title: "Cozy Kitchen"},
		catalog.Entry{ID: "a1", AlternateName: "Cozy Kitchen!"},
		catalog.Entry{ID: "c3", Title: "Cozy Kitchens"},
	)
	res, err := NewFuzzyScorer(DefaultPolicy(), nil).Score(context.Background(), identity.Identity{PrimaryName: "cozy kitchen"}, idx)
	if err != nil {
		t.Fatalf("Score: %v", err)
	}
	if !res.EarlyExit || res.Outcome.ChosenID != "a1" {
		t.Fatalf("expected early exit on lowest matching id, got %+v", res)
	}
}

func TestFuzzyMissingNameSkipsScoring(t *testing.T) {
	idx := mustIndex(t, catalog.Entry{ID: "a1", Title: "Cool Pack"})
	res, err := NewFuzzyScorer(DefaultPolicy(), nil).Score(context.Background(), identity.Identity{Domain: "mod.example.com"}, idx)
	if err != nil {
		t.Fatalf("Score: %v", err)
	}
	if res.Outcome.Status != decision.StatusNotFound || res.TotalScored != 0 {
		t.Fatalf("expected NOTFOUND without scoring, got %+v", res)
	}
}

func TestFuzzyTokenFallbackForReorderedTitle(t *testing.T) {
	idx := mustIndex(t, catalog.Entry{ID: "a1", Title: "Kitchen Clutter Cozy Set"})
	res, err := NewFuzzyScorer(DefaultPolicy(), nil).Score(context.Background(), identity.Identity{PrimaryName: "Cozy Set Kitchen Clutter"}, idx)
	if err != nil {
		t.Fatalf("Score: %v", err)
	}
	if len(res.Candidates) != 1 {
		t.Fatalf("expected reordered title to be admitted, got %+v", res.Outcome)
	}
	if got := res.Candidates[0].Reasons[0]; got != "title 1.00 (tokens)" {
		t.Fatalf("expected token-set signal, got %q", got)
	}
}

func TestFuzzySkipsEntriesWithoutName(t *testing.T) {
	idx := mustIndex(t, catalog.Entry{ID: "a1", URL: "https://mod.example.com/cool-pack"}, catalog.Entry{ID: "b2", Title: "Cool Pack"})
	res, err := NewFuzzyScorer(DefaultPolicy(), nil).Score(context.Background(), identity.Identity{PrimaryName: "Cool Pack"}, idx)
	if err != nil {
		t.Fatalf("Score: %v", err)
	}
	if res.TotalScored != 1 || res.Outcome.ChosenID != "b2" {
		t.Fatalf("unexpected result: scored=%d outcome=%+v", res.TotalScored, res.Outcome)
	}
}

func TestDecideGapRule(t *testing.T) {
	p := DefaultPolicy()
	cand := func(id string, score float64) ScoredCandidate {
		return ScoredCandidate{Entry: catalog.Entry{ID: id}, Score: score}
	}
	tests := []struct {
		name       string
		cands      []ScoredCandidate
		wantStatus decision.Status
		wantChosen string
		wantIDs    []string
	}{
		{"empty", nil, decision.StatusNotFound, "", nil},
		{"close race", []ScoredCandidate{cand("a", 0.80), cand("b", 0.79)}, decision.StatusAmbiguous, "", []string{"a", "b"}},
		{"clear lead", []ScoredCandidate{cand("a", 0.80), cand("b", 0.65)}, decision.StatusFound, "a", nil},
		{"single at threshold", []ScoredCandidate{cand("a", 0.48)}, decision.StatusFound, "a", nil},
		{"below threshold", []ScoredCandidate{cand("a", 0.47), cand("b", 0.31)}, decision.StatusNotFound, "", []string{"a", "b"}},
		{"top five only", []ScoredCandidate{cand("a", 0.6), cand("b", 0.59), cand("c", 0.58), cand("d", 0.57), cand("e", 0.56), cand("f", 0.55)},
			decision.StatusAmbiguous, "", []string{"a", "b", "c", "d", "e"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			out := p.Decide(tt.cands)
			if out.Status != tt.wantStatus || out.ChosenID != tt.wantChosen {
				t.Fatalf("Decide = %s/%q, want %s/%q (%s)", out.Status, out.ChosenID, tt.wantStatus, tt.wantChosen, out.Reason)
			}
			if diff := cmp.Diff(tt.wantIDs, out.CandidateIDs); diff != "" {
				t.Fatalf("candidate ids (-want +got):\n%s", diff)
			}
		})
	}
}

func TestSortCandidatesBreaksTiesByID(t *testing.T) {
	cands := []ScoredCandidate{
		{Entry: catalog.Entry{ID: "c"}, Score: 0.5},
		{Entry: catalog.Entry{ID: "a"}, Score: 0.5},
		{Entry: catalog.Entry{ID: "b"}, Score: 0.9},
	}
	SortCandidates(cands)
	got := []string{cands[0].ID, cands[1].ID, cands[2].ID}
	if diff := cmp.Diff([]string{"b", "a", "c"}, got); diff != "" {
		t.Fatalf("order (-want +got):\n%s", diff)
	}
}

func TestFuzzyParallelMatchesSequential(t *testing.T) {
	var entries []catalog.Entry
	for i := range 1000 {
		entries = append(entries, catalog.Entry{
			ID:    fmt.Sprintf("e%04d", i),
			URL:   fmt.Sprintf("https://mods.example.com/pack-%d", i%37),
			Title: fmt.Sprintf("Pack %d Deluxe", i%53),
		})
	}
	idx := mustIndex(t, entries...)
	id := identity.Identity{PrimaryName: "Pack 7 Delux", Domain: "mods.example.com", Slug: "pack-7"}

	seq := DefaultPolicy()
	seq.ScoringWorkers = 1
	par := DefaultPolicy()
	par.ScoringWorkers = 8

	a, err := NewFuzzyScorer(seq, nil).Score(context.Background(), id, idx)
	if err != nil {
		t.Fatalf("sequential: %v", err)
	}
	b, err := NewFuzzyScorer(par, nil).Score(context.Background(), id, idx)
	if err != nil {
		t.Fatalf("parallel: %v", err)
	}
	if diff := cmp.Diff(a.Outcome, b.Outcome); diff != "" {
		t.Fatalf("parallel outcome differs (-seq +par):\n%s", diff)
	}
	if len(a.Candidates) != len(b.Candidates) {
		t.Fatalf("candidate counts differ: %d vs %d", len(a.Candidates), len(b.Candidates))
	}
}

func TestFuzzyHonoursCancellation(t *testing.T) {
	idx := mustIndex(t, catalog.Entry{ID: "a1", Title: "Cool Pack"})
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := NewFuzzyScorer(DefaultPolicy(), nil).Score(ctx, identity.Identity{PrimaryName: "Cool Pack"}, idx)
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("expected context.Canceled, got %v", err)
	}
}
