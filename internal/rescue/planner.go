// Package rescue bounds the fuzzy candidate set and decides whether the
// arbitration stage should look at it.
package rescue

import (
	"fmt"

	"github.com/thebossrrpg/Thesims4modanalyzer/internal/matching"
)

// Mode selects how arbitration treats the bounded set.
type Mode string

const (
	ModeSkip              Mode = "SKIP"
	ModeConfirmSingleWeak Mode = "CONFIRM_SINGLE_WEAK"
	ModeDisambiguate      Mode = "DISAMBIGUATE"
)

// Plan is the planner output. Bounded keeps the fuzzy order (score desc, ID asc).
type Plan struct {
	ShouldArbitrate bool
	Mode            Mode
	Bounded         []matching.ScoredCandidate
	BestScore       float64
	SecondBestScore float64
	Gap             float64
	TotalScored     int
	Notes           []string
}

// IDs returns the bounded candidate IDs in plan order.
func (p Plan) IDs() []string {
	ids := make([]string, len(p.Bounded))
	for i, c := range p.Bounded {
		ids[i] = c.ID
	}
	return ids
}

// Scores returns the bounded candidate scores in plan order.
func (p Plan) Scores() []float64 {
	scores := make([]float64, len(p.Bounded))
	for i, c := range p.Bounded {
		scores[i] = c.Score
	}
	return scores
}

// Planner turns a fuzzy result into a Plan. It holds no state.
type Planner struct {
	policy matching.Policy
}

// NewPlanner constructs a planner for policy.
func NewPlanner(policy matching.Policy) Planner {
	return Planner{policy: policy}
}

// Plan inspects candidates, which must already be sorted best first.
func (p Planner) Plan(candidates []matching.ScoredCandidate, totalScored int) Plan {
	plan := Plan{Mode: ModeSkip, TotalScored: totalScored}
	if len(candidates) == 0 {
		plan.Notes = append(plan.Notes, "rescue: no candidates, nothing to arbitrate")
		return plan
	}

	bounded := candidates
	if limit := p.policy.MaxCandidates; limit > 0 && len(bounded) > limit {
		plan.Notes = append(plan.Notes, fmt.Sprintf("rescue: clipped %d candidates to %d", len(bounded), limit))
		bounded = bounded[:limit]
	}
	plan.Bounded = append([]matching.ScoredCandidate(nil), bounded...)
	plan.BestScore = plan.Bounded[0].Score
	if len(plan.Bounded) > 1 {
		plan.SecondBestScore = plan.Bounded[1].Score
		plan.Gap = plan.BestScore - plan.SecondBestScore
	}

	if len(plan.Bounded) == 1 {
		if matching.AtLeast(plan.BestScore, p.policy.FoundThreshold) {
			plan.Notes = append(plan.Notes, fmt.Sprintf("rescue: single candidate %.2f already confident", plan.BestScore))
			return plan
		}
		plan.ShouldArbitrate = true
		plan.Mode = ModeConfirmSingleWeak
		plan.Notes = append(plan.Notes, fmt.Sprintf("rescue: confirm weak single candidate %.2f", plan.BestScore))
		return plan
	}

	plan.ShouldArbitrate = true
	plan.Mode = ModeDisambiguate
	plan.Notes = append(plan.Notes, fmt.Sprintf("rescue: disambiguate %d candidates (gap %.2f)", len(plan.Bounded), plan.Gap))
	return plan
}
