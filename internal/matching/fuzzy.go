package matching

import (
	"context"
	"fmt"
	"log/slog"
	"sort"

	"golang.org/x/sync/errgroup"

	"github.com/thebossrrpg/Thesims4modanalyzer/internal/catalog"
	"github.com/thebossrrpg/Thesims4modanalyzer/internal/decision"
	"github.com/thebossrrpg/Thesims4modanalyzer/internal/identity"
	"github.com/thebossrrpg/Thesims4modanalyzer/internal/logging"
	"github.com/thebossrrpg/Thesims4modanalyzer/internal/textutil"
	"github.com/thebossrrpg/Thesims4modanalyzer/internal/urlkey"
)

// scoringChunk is the number of entries one worker scores per task.
const scoringChunk = 256

// ScoredCandidate is a catalog entry with its fuzzy score for one query.
type ScoredCandidate struct {
	catalog.Entry
	Score   float64
	Reasons []string
}

// Summary converts the candidate for an outcome.
func (c ScoredCandidate) Summary() decision.Candidate {
	return decision.Candidate{
		ID:      c.ID,
		Title:   c.DisplayName(),
		URL:     c.URL,
		Score:   c.Score,
		Reasons: c.Reasons,
	}
}

// Summaries converts candidates for an outcome.
func Summaries(cands []ScoredCandidate) []decision.Candidate {
	if len(cands) == 0 {
		return nil
	}
	out := make([]decision.Candidate, len(cands))
	for i, c := range cands {
		out[i] = c.Summary()
	}
	return out
}

// FuzzyResult is the provisional decision of the fuzzy stage. Candidates holds
// every entry above the admission floor, best first.
type FuzzyResult struct {
	Outcome     decision.Outcome
	Candidates  []ScoredCandidate
	TotalScored int
	EarlyExit   bool
}

// FuzzyScorer ranks catalog entries against an identity.
type FuzzyScorer struct {
	policy Policy
	logger *slog.Logger
}

// NewFuzzyScorer constructs a scorer for policy.
func NewFuzzyScorer(policy Policy, logger *slog.Logger) *FuzzyScorer {
	return &FuzzyScorer{policy: policy, logger: logging.NewComponentLogger(logger, "fuzzy")}
}

type query struct {
	name       string
	tokens     []string
	creator    string
	slugTokens []string
	domain     string
}

type scored struct {
	candidate ScoredCandidate
	title     float64
	usable    bool
}

// Score runs the fuzzy stage. The only error is context cancellation.
func (s *FuzzyScorer) Score(ctx context.Context, id identity.Identity, index *catalog.Index) (FuzzyResult, error) {
	if !id.HasName() {
		reason := "identity has no primary name"
		s.logger.Info("fuzzy skipped", logging.Args(logging.DecisionAttrs("fuzzy_score", string(decision.StatusNotFound), reason)...)...)
		return FuzzyResult{Outcome: decision.NotFound(decision.StageIdentity, reason, nil)}, nil
	}

	q := query{
		name:       textutil.Fold(id.PrimaryName),
		tokens:     textutil.ContentTokens(id.PrimaryName),
		creator:    textutil.Fold(id.Creator),
		slugTokens: textutil.SlugTokens(id.Slug),
		domain:     urlkey.NormalizeHost(id.Domain),
	}

	entries := index.Entries()
	results := make([]scored, len(entries))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(s.policy.ScoringWorkers)
	for start := 0; start < len(entries); start += scoringChunk {
		end := min(start+scoringChunk, len(entries))
		g.Go(func() error {
			for i := start; i < end; i++ {
				if i%64 == 0 {
					if err := gctx.Err(); err != nil {
						return err
					}
				}
				results[i] = s.scoreEntry(q, entries[i])
			}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return FuzzyResult{}, fmt.Errorf("fuzzy scoring: %w", err)
	}

	var (
		kept  []ScoredCandidate
		total int
	)
	for _, r := range results {
		if !r.usable {
			continue
		}
		total++
		// Entries are ID-ordered, so the first exact title is the sequential winner.
		if AtLeast(r.title, s.policy.ExactTitleThreshold) {
			reason := fmt.Sprintf("title similarity %.2f at or above %.2f", r.title, s.policy.ExactTitleThreshold)
			out := decision.Found(decision.StageFuzzy, r.candidate.ID, reason)
			out.Candidates = []decision.Candidate{r.candidate.Summary()}
			s.logDecision(out, total)
			return FuzzyResult{Outcome: out, Candidates: []ScoredCandidate{r.candidate}, TotalScored: total, EarlyExit: true}, nil
		}
		if AtLeast(r.candidate.Score, s.policy.AdmissionFloor) {
			kept = append(kept, r.candidate)
		}
	}

	SortCandidates(kept)
	out := s.policy.Decide(kept)
	s.logDecision(out, total)
	return FuzzyResult{Outcome: out, Candidates: kept, TotalScored: total}, nil
}

func (s *FuzzyScorer) logDecision(out decision.Outcome, total int) {
	attrs := logging.DecisionAttrs("fuzzy_score", string(out.Status), out.Reason)
	attrs = append(attrs, logging.Int("scored", total), logging.Int("candidates", len(out.CandidateIDs)))
	if out.ChosenID != "" {
		attrs = append(attrs, logging.String(logging.FieldEntryID, out.ChosenID))
	}
	s.logger.Info("fuzzy decision", logging.Args(attrs...)...)
}

func (s *FuzzyScorer) scoreEntry(q query, e catalog.Entry) scored {
	if e.DisplayName() == "" {
		return scored{}
	}
	p := s.policy
	var reasons []string

	title, how := s.titleSignal(q, e.Title)
	if alt, altHow := s.titleSignal(q, e.AlternateName); alt > title {
		title, how = alt, "alternate "+altHow
	}
	score := title * p.TitleWeight
	reasons = append(reasons, fmt.Sprintf("title %.2f (%s)", title, how))

	if q.creator != "" {
		if creator := textutil.Fold(e.Creator); creator != "" {
			sim := textutil.EditRatio(q.creator, creator)
			score += sim * p.CreatorWeight
			reasons = append(reasons, fmt.Sprintf("creator %.2f", sim))
		}
	}

	if len(q.slugTokens) > 0 && e.URL != "" {
		if tokens := textutil.SlugTokens(urlkey.LastSegment(e.URL)); len(tokens) > 0 {
			sim := textutil.Jaccard(q.slugTokens, tokens)
			score += sim * p.SlugWeight
			reasons = append(reasons, fmt.Sprintf("slug %.2f", sim))
		}
	}

	if q.domain != "" && e.URL != "" {
		if host := urlkey.Host(e.URL); p.SameSite(q.domain, host) {
			score += p.DomainBonus
			reasons = append(reasons, "domain "+host)
		}
	}

	return scored{
		candidate: ScoredCandidate{Entry: e, Score: clamp01(score), Reasons: reasons},
		title:     title,
		usable:    true,
	}
}

// titleSignal scores one candidate name: normalized edit distance, replaced by
// token-set Jaccard when that is larger and the edit signal is weak.
func (s *FuzzyScorer) titleSignal(q query, name string) (float64, string) {
	folded := textutil.Fold(name)
	if folded == "" || q.name == "" {
		return 0, "none"
	}
	edit := textutil.EditRatio(q.name, folded)
	if edit >= s.policy.TitleFallbackTrigger {
		return edit, "edit"
	}
	if jac := textutil.Jaccard(q.tokens, textutil.ContentTokens(name)); jac > edit {
		return jac, "tokens"
	}
	return edit, "edit"
}

// Decide applies the threshold and gap rules to candidates sorted best first.
func (p Policy) Decide(cands []ScoredCandidate) decision.Outcome {
	if len(cands) == 0 {
		return decision.NotFound(decision.StageFuzzy, fmt.Sprintf("no candidate reached the admission floor %.2f", p.AdmissionFloor), nil)
	}
	top := Top(cands, p.MaxCandidates)
	best := cands[0]
	if !AtLeast(best.Score, p.FoundThreshold) {
		return decision.NotFound(decision.StageFuzzy,
			fmt.Sprintf("best score %.2f below found threshold %.2f", best.Score, p.FoundThreshold), Summaries(top))
	}
	if len(cands) == 1 {
		out := decision.Found(decision.StageFuzzy, best.ID, fmt.Sprintf("single candidate scored %.2f", best.Score))
		out.Candidates = Summaries(top)
		return out
	}
	gap := best.Score - cands[1].Score
	if AtLeast(gap, p.AmbiguityGap) {
		out := decision.Found(decision.StageFuzzy, best.ID,
			fmt.Sprintf("best score %.2f leads runner-up by %.2f", best.Score, gap))
		out.Candidates = Summaries(top)
		return out
	}
	return decision.Ambiguous(decision.StageFuzzy,
		fmt.Sprintf("best score %.2f leads runner-up by only %.2f (need %.2f)", best.Score, gap, p.AmbiguityGap), Summaries(top))
}

// SortCandidates orders by score descending, then ID ascending.
func SortCandidates(cands []ScoredCandidate) {
	sort.SliceStable(cands, func(i, j int) bool {
		if cands[i].Score != cands[j].Score {
			return cands[i].Score > cands[j].Score
		}
		return cands[i].ID < cands[j].ID
	})
}

// Top returns at most n leading candidates.
func Top(cands []ScoredCandidate, n int) []ScoredCandidate {
	if n <= 0 || len(cands) <= n {
		return cands
	}
	return cands[:n]
}

func clamp01(v float64) float64 {
	switch {
	case v < 0:
		return 0
	case v > 1:
		return 1
	default:
		return v
	}
}
