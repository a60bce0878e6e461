package arbitration

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"time"

	"github.com/thebossrrpg/Thesims4modanalyzer/internal/catalog"
	"github.com/thebossrrpg/Thesims4modanalyzer/internal/decision"
	"github.com/thebossrrpg/Thesims4modanalyzer/internal/identity"
	"github.com/thebossrrpg/Thesims4modanalyzer/internal/logging"
	"github.com/thebossrrpg/Thesims4modanalyzer/internal/matching"
	"github.com/thebossrrpg/Thesims4modanalyzer/internal/rescue"
	"github.com/thebossrrpg/Thesims4modanalyzer/internal/services"
)

// SimilarityOracle returns one confidence in [0,1] per candidate text.
type SimilarityOracle interface {
	Score(ctx context.Context, query string, candidates []string) ([]float64, error)
}

// OracleFunc adapts a function to SimilarityOracle.
type OracleFunc func(ctx context.Context, query string, candidates []string) ([]float64, error)

// Score calls f.
func (f OracleFunc) Score(ctx context.Context, query string, candidates []string) ([]float64, error) {
	return f(ctx, query, candidates)
}

// EntityFetcher reads the live state of a catalog entry.
type EntityFetcher interface {
	FetchEntity(ctx context.Context, id string) (catalog.LiveEntity, error)
}

// LiveCache stores live entity snapshots between runs.
type LiveCache interface {
	LookupLiveEntity(id string, catalogModified time.Time) (catalog.LiveEntity, bool)
	PutLiveEntity(e catalog.LiveEntity) error
}

// Observer is told about every collaborator call. Names are "oracle" and
// "live_source".
type Observer interface {
	ObserveCollaborator(name string, elapsed time.Duration, err error)
}

// Options wires the gate's collaborators. Fetcher, Live and Observer are optional.
type Options struct {
	Oracle        SimilarityOracle
	OracleName    string
	OracleTimeout time.Duration
	Fetcher       EntityFetcher
	FetchTimeout  time.Duration
	Live          LiveCache
	Observer      Observer
	Logger        *slog.Logger
}

// Gate decides between the bounded candidates of a rescue plan.
type Gate struct {
	policy matching.Policy
	opts   Options
	logger *slog.Logger
}

// Result is the gate's decision. Arbitrated is false when a precondition failed
// and the fallback decision was returned untouched apart from its trail.
type Result struct {
	Outcome     decision.Outcome
	Arbitrated  bool
	Degraded    bool
	Enriched    int
	Confidences []float64
}

// New constructs a gate. An oracle is required.
func New(policy matching.Policy, opts Options) (*Gate, error) {
	if opts.Oracle == nil {
		return nil, services.Wrap(services.ErrConfiguration, "arbitration", "new gate", "similarity oracle required", nil)
	}
	if opts.OracleName == "" {
		opts.OracleName = "oracle"
	}
	if opts.OracleTimeout <= 0 {
		opts.OracleTimeout = 20 * time.Second
	}
	if opts.FetchTimeout <= 0 {
		opts.FetchTimeout = 10 * time.Second
	}
	return &Gate{policy: policy, opts: opts, logger: logging.NewComponentLogger(opts.Logger, "arbitration")}, nil
}

// Arbitrate decides plan's bounded set. fallback is the fuzzy decision returned
// when arbitration cannot run or fails.
func (g *Gate) Arbitrate(ctx context.Context, id identity.Identity, plan rescue.Plan, fallback decision.Outcome) Result {
	logger := logging.WithContext(ctx, g.logger)
	if !plan.ShouldArbitrate || len(plan.Bounded) == 0 {
		out := fallback
		out.Note("arbitration: plan %s does not require arbitration", plan.Mode)
		return Result{Outcome: out}
	}
	if ok, reason := CheckIdentity(id, g.policy); !ok {
		out := fallback
		out.Note("arbitration: skipped, %s", reason)
		logger.Info("arbitration skipped", logging.Args(logging.DecisionAttrs("arbitration_gate", "skipped", reason)...)...)
		return Result{Outcome: out}
	}

	cands, enriched, notes := g.enrich(ctx, plan.Bounded)
	texts := make([]string, len(cands))
	for i, c := range cands {
		texts[i] = c.DisplayName()
	}

	confidences, err := g.score(ctx, id.PrimaryName, texts)
	if err != nil {
		cause := services.Cause(err)
		out := fallback
		out.Reason = fmt.Sprintf("%s; arbitration unavailable: %s", fallback.Reason, cause)
		out.Degraded = true
		out.Trail = append(out.Trail, notes...)
		out.Note("arbitration: %s failed: %s", g.opts.OracleName, cause)
		logging.WarnWithContext(logger, "similarity oracle failed", "oracle_failed",
			logging.String("oracle", g.opts.OracleName),
			logging.Error(err),
			logging.String(logging.FieldErrorHint, "check oracle credentials and connectivity"),
			logging.String(logging.FieldImpact, "fuzzy decision returned without arbitration"))
		return Result{Outcome: out, Arbitrated: true, Degraded: true, Enriched: enriched}
	}

	out := g.decide(plan.Mode, cands, confidences)
	out.Trail = append(notes, out.Trail...)
	attrs := logging.DecisionAttrs("arbitration", string(out.Status), out.Reason)
	attrs = append(attrs, logging.String("oracle", g.opts.OracleName), logging.Int("candidates", len(cands)), logging.Int("enriched", enriched))
	logger.Info("arbitration decision", logging.Args(attrs...)...)
	return Result{Outcome: out, Arbitrated: true, Enriched: enriched, Confidences: confidences}
}

func (g *Gate) score(ctx context.Context, query string, texts []string) ([]float64, error) {
	callCtx, cancel := context.WithTimeout(ctx, g.opts.OracleTimeout)
	defer cancel()
	start := time.Now()
	scores, err := g.opts.Oracle.Score(callCtx, query, texts)
	if err == nil && len(scores) != len(texts) {
		err = fmt.Errorf("oracle returned %d scores for %d candidates", len(scores), len(texts))
	}
	if g.opts.Observer != nil {
		g.opts.Observer.ObserveCollaborator("oracle", time.Since(start), err)
	}
	switch {
	case err == nil:
		return scores, nil
	case errors.Is(err, context.DeadlineExceeded):
		return nil, services.Wrap(services.ErrTimeout, "arbitration", g.opts.OracleName,
			fmt.Sprintf("no answer within %s", g.opts.OracleTimeout), err)
	default:
		return nil, services.Wrap(services.ErrCollaboratorUnavailable, "arbitration", g.opts.OracleName, "", err)
	}
}

type ranked struct {
	candidate  matching.ScoredCandidate
	confidence float64
}

func (g *Gate) decide(mode rescue.Mode, cands []matching.ScoredCandidate, confidences []float64) decision.Outcome {
	order := make([]ranked, len(cands))
	for i, c := range cands {
		c.Reasons = append(append([]string(nil), c.Reasons...), fmt.Sprintf("%s %.2f", g.opts.OracleName, confidences[i]))
		order[i] = ranked{candidate: c, confidence: confidences[i]}
	}
	sort.SliceStable(order, func(i, j int) bool {
		if order[i].confidence != order[j].confidence {
			return order[i].confidence > order[j].confidence
		}
		return order[i].candidate.ID < order[j].candidate.ID
	})
	summaries := make([]decision.Candidate, len(order))
	for i, r := range order {
		summaries[i] = r.candidate.Summary()
	}
	top := order[0]

	if mode == rescue.ModeConfirmSingleWeak {
		if matching.AtLeast(top.confidence, g.policy.ConfirmThreshold) {
			out := decision.Found(decision.StageArbitration, top.candidate.ID,
				fmt.Sprintf("%s confirmed single candidate at %.2f (threshold %.2f)", g.opts.OracleName, top.confidence, g.policy.ConfirmThreshold))
			out.Candidates = summaries
			return out
		}
		return decision.NotFound(decision.StageArbitration,
			fmt.Sprintf("%s rejected single candidate at %.2f (threshold %.2f)", g.opts.OracleName, top.confidence, g.policy.ConfirmThreshold), summaries)
	}

	margin := top.confidence
	if len(order) > 1 {
		margin -= order[1].confidence
	}
	if matching.AtLeast(top.confidence, g.policy.AcceptThreshold) && matching.AtLeast(margin, g.policy.MinArbitrationGap) {
		out := decision.Found(decision.StageArbitration, top.candidate.ID,
			fmt.Sprintf("%s picked %.2f with margin %.2f", g.opts.OracleName, top.confidence, margin))
		out.Candidates = summaries
		return out
	}
	return decision.Ambiguous(decision.StageArbitration,
		fmt.Sprintf("%s top %.2f margin %.2f (need %.2f and %.2f)", g.opts.OracleName, top.confidence, margin,
			g.policy.AcceptThreshold, g.policy.MinArbitrationGap), summaries)
}
