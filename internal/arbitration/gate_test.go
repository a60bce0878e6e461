package arbitration

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"

	"github.com/thebossrrpg/Thesims4modanalyzer/internal/catalog"
	"github.com/thebossrrpg/Thesims4modanalyzer/internal/decision"
	"github.com/thebossrrpg/Thesims4modanalyzer/internal/identity"
	"github.com/thebossrrpg/Thesims4modanalyzer/internal/matching"
	"github.com/thebossrrpg/Thesims4modanalyzer/internal/rescue"
)

type stubOracle struct {
	mu     sync.Mutex
	scores []float64
	err    error
	calls  int
	texts  []string
}

func (s *stubOracle) Score(_ context.Context, _ string, candidates []string) ([]float64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.calls++
	s.texts = append([]string(nil), candidates...)
	return s.scores, s.err
}

type stubFetcher struct {
	mu       sync.Mutex
	entities map[string]catalog.LiveEntity
	calls    int
}

func (s *stubFetcher) FetchEntity(_ context.Context, id string) (catalog.LiveEntity, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.calls++
	e, ok := s.entities[id]
	if !ok {
		return catalog.LiveEntity{}, errors.New("entry gone")
	}
	return e, nil
}

type memLive struct {
	mu      sync.Mutex
	entries map[string]catalog.LiveEntity
}

func (m *memLive) LookupLiveEntity(id string, _ time.Time) (catalog.LiveEntity, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	e, ok := m.entries[id]
	return e, ok
}

func (m *memLive) PutLiveEntity(e catalog.LiveEntity) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.entries[e.ID] = e
	return nil
}

var validIdentity = identity.Identity{PrimaryName: "Cool Pack", Domain: "mod.example.com"}

func planFor(scores ...float64) rescue.Plan {
	cands := make([]matching.ScoredCandidate, len(scores))
	for i, s := range scores {
		id := string(rune('a' + i))
		cands[i] = matching.ScoredCandidate{Entry: catalog.Entry{ID: id, Title: "Title " + id}, Score: s}
	}
	return rescue.NewPlanner(matching.DefaultPolicy()).Plan(cands, len(cands))
}

func newGate(t *testing.T, opts Options) *Gate {
	t.Helper()
	gate, err := New(matching.DefaultPolicy(), opts)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	return gate
}

func TestConfirmationThresholdBoundary(t *testing.T) {
	plan := planFor(0.40)
	fallback := decision.NotFound(decision.StageFuzzy, "best score 0.40 below found threshold 0.48", nil)
	tests := []struct {
		confidence float64
		want       decision.Status
	}{
		{0.70, decision.StatusFound},
		{0.69, decision.StatusNotFound},
	}
	for _, tt := range tests {
		gate := newGate(t, Options{Oracle: &stubOracle{scores: []float64{tt.confidence}}})
		res := gate.Arbitrate(context.Background(), validIdentity, plan, fallback)
		if res.Outcome.Status != tt.want || res.Outcome.Stage != decision.StageArbitration {
			t.Fatalf("confidence %.2f: got %s/%s, want %s", tt.confidence, res.Outcome.Status, res.Outcome.Stage, tt.want)
		}
		if tt.want == decision.StatusFound && res.Outcome.ChosenID != "a" {
			t.Fatalf("expected a chosen, got %q", res.Outcome.ChosenID)
		}
	}
}

func TestMultiCandidateDecision(t *testing.T) {
	plan := planFor(0.52, 0.50, 0.45)
	fallback := decision.Ambiguous(decision.StageFuzzy, "close race", []decision.Candidate{{ID: "a"}, {ID: "b"}, {ID: "c"}})
	tests := []struct {
		name       string
		scores     []float64
		wantStatus decision.Status
		wantChosen string
		wantIDs    []string
	}{
		{"clear winner", []float64{0.30, 0.90, 0.75}, decision.StatusFound, "b", nil},
		{"small margin", []float64{0.80, 0.75, 0.10}, decision.StatusAmbiguous, "", []string{"a", "b", "c"}},
		{"low top", []float64{0.60, 0.20, 0.10}, decision.StatusAmbiguous, "", []string{"a", "b", "c"}},
		{"tie breaks by id", []float64{0.10, 0.80, 0.80}, decision.StatusAmbiguous, "", []string{"b", "c", "a"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			gate := newGate(t, Options{Oracle: &stubOracle{scores: tt.scores}})
			res := gate.Arbitrate(context.Background(), validIdentity, plan, fallback)
			if res.Outcome.Status != tt.wantStatus || res.Outcome.ChosenID != tt.wantChosen {
				t.Fatalf("got %s/%q (%s)", res.Outcome.Status, res.Outcome.ChosenID, res.Outcome.Reason)
			}
			if diff := cmp.Diff(tt.wantIDs, res.Outcome.CandidateIDs); diff != "" {
				t.Fatalf("candidate ids (-want +got):\n%s", diff)
			}
		})
	}
}

func TestOracleFailureDegradesToFallback(t *testing.T) {
	plan := planFor(0.80, 0.79)
	fallback := decision.Ambiguous(decision.StageFuzzy, "best score 0.80 leads runner-up by only 0.01 (need 0.15)",
		[]decision.Candidate{{ID: "a"}, {ID: "b"}})
	gate := newGate(t, Options{Oracle: &stubOracle{err: errors.New("401 unauthorized")}, OracleName: "llm"})

	res := gate.Arbitrate(context.Background(), validIdentity, plan, fallback)
	if !res.Degraded || !res.Outcome.Degraded {
		t.Fatal("expected degraded result")
	}
	out := res.Outcome
	if out.Status != fallback.Status || out.Stage != fallback.Stage {
		t.Fatalf("fallback decision not preserved: %+v", out)
	}
	if diff := cmp.Diff(fallback.CandidateIDs, out.CandidateIDs); diff != "" {
		t.Fatalf("candidates changed (-want +got):\n%s", diff)
	}
	if !strings.HasPrefix(out.Reason, fallback.Reason) || !strings.Contains(out.Reason, "401 unauthorized") {
		t.Fatalf("reason not annotated with cause: %q", out.Reason)
	}
	if !strings.Contains(strings.Join(out.Trail, "\n"), "collaborator unavailable") {
		t.Fatalf("trail does not record the failure: %v", out.Trail)
	}
}

func TestOracleTimeoutDegrades(t *testing.T) {
	blocking := OracleFunc(func(ctx context.Context, _ string, _ []string) ([]float64, error) {
		<-ctx.Done()
		return nil, ctx.Err()
	})
	gate := newGate(t, Options{Oracle: blocking, OracleTimeout: 20 * time.Millisecond})
	fallback := decision.NotFound(decision.StageFuzzy, "weak", nil)
	res := gate.Arbitrate(context.Background(), validIdentity, planFor(0.40), fallback)
	if !res.Degraded || res.Outcome.Status != decision.StatusNotFound || !strings.Contains(res.Outcome.Reason, "timeout") {
		t.Fatalf("expected degraded timeout, got %+v", res.Outcome)
	}
}

func TestWrongScoreCountDegrades(t *testing.T) {
	gate := newGate(t, Options{Oracle: &stubOracle{scores: []float64{0.9}}})
	res := gate.Arbitrate(context.Background(), validIdentity, planFor(0.5, 0.45), decision.Ambiguous(decision.StageFuzzy, "close", []decision.Candidate{{ID: "a"}, {ID: "b"}}))
	if !res.Degraded {
		t.Fatal("mismatched score count must degrade")
	}
}

func TestInvalidIdentitySkipsOracle(t *testing.T) {
	oracle := &stubOracle{scores: []float64{1}}
	gate := newGate(t, Options{Oracle: oracle})
	fallback := decision.NotFound(decision.StageFuzzy, "weak", nil)
	res := gate.Arbitrate(context.Background(), identity.Identity{PrimaryName: "2024"}, planFor(0.40), fallback)
	if res.Arbitrated || oracle.calls != 0 {
		t.Fatalf("oracle must not run for invalid identity: %+v", res)
	}
	if res.Outcome.Status != decision.StatusNotFound || len(res.Outcome.Trail) == 0 {
		t.Fatalf("unexpected outcome %+v", res.Outcome)
	}
}

func TestEnrichmentUsesCacheThenFetcher(t *testing.T) {
	fetcher := &stubFetcher{entities: map[string]catalog.LiveEntity{
		"a": {ID: "a", Title: "Cool Pack Deluxe"},
	}}
	live := &memLive{entries: map[string]catalog.LiveEntity{}}
	oracle := &stubOracle{scores: []float64{0.9, 0.2}}
	gate := newGate(t, Options{Oracle: oracle, Fetcher: fetcher, Live: live})
	fallback := decision.Ambiguous(decision.StageFuzzy, "close", []decision.Candidate{{ID: "a"}, {ID: "b"}})

	res := gate.Arbitrate(context.Background(), validIdentity, planFor(0.5, 0.45), fallback)
	if res.Degraded || res.Enriched != 1 {
		t.Fatalf("expected one enriched candidate, got %+v", res)
	}
	if diff := cmp.Diff([]string{"Cool Pack Deluxe", "Title b"}, oracle.texts); diff != "" {
		t.Fatalf("oracle texts (-want +got):\n%s", diff)
	}
	if !strings.Contains(strings.Join(res.Outcome.Trail, "\n"), "b unavailable") {
		t.Fatalf("fetch failure not noted: %v", res.Outcome.Trail)
	}
	if _, ok := live.entries["a"]; !ok {
		t.Fatal("fetched entity should be cached")
	}

	gate.Arbitrate(context.Background(), validIdentity, planFor(0.5, 0.45), fallback)
	if fetcher.calls != 3 {
		t.Fatalf("expected cached a to skip the fetcher, got %d calls", fetcher.calls)
	}
}

func TestNewRequiresOracle(t *testing.T) {
	if _, err := New(matching.DefaultPolicy(), Options{}); err == nil {
		t.Fatal("expected error without oracle")
	}
}
