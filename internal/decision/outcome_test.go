package decision

import (
	"testing"

	"github.com/google/go-cmp/cmp"
)

func TestConstructorsSatisfyInvariants(t *testing.T) {
	cands := []Candidate{{ID: "a1", Score: 0.8}, {ID: "b2", Score: 0.79}}
	tests := []struct {
		name string
		out  Outcome
	}{
		{"found", Found(StageExact, "a1", "exact url")},
		{"ambiguous", Ambiguous(StageFuzzy, "gap too small", cands)},
		{"notfound empty", NotFound(StageFuzzy, "no candidates", nil)},
		{"notfound with candidates", NotFound(StageArbitration, "oracle rejected", cands[:1])},
		{"rejected", Rejected(StageInput, "malformed url")},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if err := tt.out.Validate(); err != nil {
				t.Fatalf("Validate: %v", err)
			}
		})
	}

	if diff := cmp.Diff([]string{"a1", "b2"}, Ambiguous(StageFuzzy, "", cands).CandidateIDs); diff != "" {
		t.Fatalf("candidate ids (-want +got):\n%s", diff)
	}
}

func TestValidateCatchesBrokenVariants(t *testing.T) {
	bad := []Outcome{
		{Status: StatusFound, Stage: StageExact},
		{Status: StatusAmbiguous, Stage: StageFuzzy},
		{Status: StatusNotFound, Stage: StageFuzzy, ChosenID: "a1"},
		{Status: "MAYBE", Stage: StageFuzzy},
		{Status: StatusRejected, Stage: "LATER"},
	}
	for _, o := range bad {
		if err := o.Validate(); err == nil {
			t.Errorf("expected %+v to be invalid", o)
		}
	}
}

func TestURLCacheable(t *testing.T) {
	tests := []struct {
		out  Outcome
		want bool
	}{
		{Found(StageExact, "a1", ""), true},
		{Found(StageSlug, "a1", ""), true},
		{Found(StageFuzzy, "a1", ""), false},
		{Found(StageArbitration, "a1", ""), false},
		{Rejected(StageInput, ""), true},
		{Rejected(StageIdentity, ""), true},
		{NotFound(StageFuzzy, "", nil), false},
		{Ambiguous(StageFuzzy, "", []Candidate{{ID: "x"}}), false},
	}
	for _, tt := range tests {
		if got := tt.out.URLCacheable(); got != tt.want {
			t.Errorf("URLCacheable(%s/%s) = %v, want %v", tt.out.Status, tt.out.Stage, got, tt.want)
		}
	}
}

func TestTrailHelpers(t *testing.T) {
	o := Found(StageFuzzy, "a1", "score 0.91")
	o.Note("scored %d candidates", 3)
	o = o.WithTrail([]string{"exact: no match"})
	want := []string{"exact: no match", "scored 3 candidates"}
	if diff := cmp.Diff(want, o.Trail); diff != "" {
		t.Fatalf("trail (-want +got):\n%s", diff)
	}
}

func TestParse(t *testing.T) {
	if s, ok := ParseStatus(" found "); !ok || s != StatusFound {
		t.Fatalf("ParseStatus = %q, %v", s, ok)
	}
	if _, ok := ParseStatus("maybe"); ok {
		t.Fatal("unexpected status accepted")
	}
	if s, ok := ParseStage("slug"); !ok || s != StageSlug {
		t.Fatalf("ParseStage = %q, %v", s, ok)
	}
}
