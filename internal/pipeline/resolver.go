package pipeline

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/thebossrrpg/Thesims4modanalyzer/internal/arbitration"
	"github.com/thebossrrpg/Thesims4modanalyzer/internal/cache"
	"github.com/thebossrrpg/Thesims4modanalyzer/internal/catalog"
	"github.com/thebossrrpg/Thesims4modanalyzer/internal/decision"
	"github.com/thebossrrpg/Thesims4modanalyzer/internal/identity"
	"github.com/thebossrrpg/Thesims4modanalyzer/internal/logging"
	"github.com/thebossrrpg/Thesims4modanalyzer/internal/matching"
	"github.com/thebossrrpg/Thesims4modanalyzer/internal/metrics"
	"github.com/thebossrrpg/Thesims4modanalyzer/internal/rescue"
	"github.com/thebossrrpg/Thesims4modanalyzer/internal/services"
	"github.com/thebossrrpg/Thesims4modanalyzer/internal/urlkey"
)

const tracerName = "github.com/thebossrrpg/Thesims4modanalyzer/internal/pipeline"

// DecisionCache is the part of the cache store the resolver reads and writes.
type DecisionCache interface {
	LookupURL(key string) (cache.Entry, bool)
	PutURL(key string, e cache.Entry) error
	LookupEvidence(key string) (cache.Entry, bool)
	PutEvidence(key string, e cache.Entry) error
}

// Options wires a Resolver. Only Index is required: a nil Cache disables
// caching, a nil Producer derives identities from the URL, and a nil Gate
// returns fuzzy decisions without arbitration.
type Options struct {
	Index          *catalog.Index
	Policy         matching.Policy
	Cache          DecisionCache
	Producer       identity.Producer
	Gate           *arbitration.Gate
	QuantizeScores bool
	Metrics        *metrics.Metrics
	TracerProvider trace.TracerProvider
	Logger         *slog.Logger
	Now            func() time.Time
}

// Resolver answers whether a mod page is already in the catalog.
type Resolver struct {
	index    *catalog.Index
	policy   matching.Policy
	cache    DecisionCache
	producer identity.Producer
	matcher  *matching.DeterministicMatcher
	scorer   *matching.FuzzyScorer
	planner  rescue.Planner
	gate     *arbitration.Gate
	quantize bool
	metrics  *metrics.Metrics
	tracer   trace.Tracer
	logger   *slog.Logger
	now      func() time.Time
}

// New constructs a Resolver. A zero Policy is replaced by the default policy.
func New(opts Options) (*Resolver, error) {
	if opts.Index == nil {
		return nil, services.Wrap(services.ErrConfiguration, "pipeline", "new resolver", "catalog index required", nil)
	}
	if opts.Policy.Version == "" {
		opts.Policy = matching.DefaultPolicy()
	}
	if opts.Producer == nil {
		opts.Producer = identity.NewURLProducer()
	}
	if opts.TracerProvider == nil {
		opts.TracerProvider = otel.GetTracerProvider()
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}
	logger := logging.NewComponentLogger(opts.Logger, "pipeline")
	return &Resolver{
		index:    opts.Index,
		policy:   opts.Policy,
		cache:    opts.Cache,
		producer: opts.Producer,
		matcher:  matching.NewDeterministicMatcher(opts.Index, opts.Logger),
		scorer:   matching.NewFuzzyScorer(opts.Policy, opts.Logger),
		planner:  rescue.NewPlanner(opts.Policy),
		gate:     opts.Gate,
		quantize: opts.QuantizeScores,
		metrics:  opts.Metrics,
		tracer:   opts.TracerProvider.Tracer(tracerName),
		logger:   logger,
		now:      opts.Now,
	}, nil
}

// Policy returns the policy the resolver decides with.
func (r *Resolver) Policy() matching.Policy {
	return r.policy
}

// Index returns the catalog the resolver matches against.
func (r *Resolver) Index() *catalog.Index {
	return r.index
}

// run carries the per-resolution state.
type run struct {
	trail []string
}

func (rn *run) note(format string, args ...any) {
	rn.trail = append(rn.trail, fmt.Sprintf(format, args...))
}

// Resolve decides rawURL. Domain uncertainty is reported in the outcome; the
// error is non-nil only for cancellation or an internal fault.
func (r *Resolver) Resolve(ctx context.Context, rawURL string) (decision.Outcome, error) {
	ctx, span, start := r.begin(ctx, "resolve", rawURL)
	defer span.End()
	rn := &run{}

	trimmed := strings.TrimSpace(rawURL)
	key, err := urlkey.Canonical(trimmed)
	if err != nil {
		return r.finish(ctx, span, start, rn, decision.Rejected(decision.StageInput, services.Cause(err)))
	}
	span.SetAttributes(attribute.String("url.canonical", key))

	if out, ok := r.lookupURL(rn, key); ok {
		return r.finish(ctx, span, start, rn, out)
	}
	if out, ok := r.deterministic(ctx, rn, trimmed, "", key); ok {
		return r.finish(ctx, span, start, rn, out)
	}

	id, err := r.produce(ctx, rn, trimmed)
	if err != nil {
		if errors.Is(err, identity.ErrPageGone) {
			out := decision.Rejected(decision.StageIdentity, "page is gone: "+services.Cause(err))
			r.putURL(ctx, rn, key, out)
			return r.finish(ctx, span, start, rn, out)
		}
		return r.fail(span, err)
	}

	out, err := r.decide(ctx, rn, id)
	if err != nil {
		return r.fail(span, err)
	}
	return r.finish(ctx, span, start, rn, out)
}

// ResolveIdentity decides an identity supplied by the caller, skipping the URL
// stages. The identity's Slug is used for slug matching.
func (r *Resolver) ResolveIdentity(ctx context.Context, id identity.Identity) (decision.Outcome, error) {
	ctx, span, start := r.begin(ctx, "resolve_identity", "")
	defer span.End()
	rn := &run{}
	if out, ok := r.deterministic(ctx, rn, "", id.Slug, ""); ok {
		return r.finish(ctx, span, start, rn, out)
	}
	out, err := r.decide(ctx, rn, id)
	if err != nil {
		return r.fail(span, err)
	}
	return r.finish(ctx, span, start, rn, out)
}

func (r *Resolver) begin(ctx context.Context, name, rawURL string) (context.Context, trace.Span, time.Time) {
	requestID, ok := services.RequestIDFromContext(ctx)
	if !ok {
		requestID = uuid.NewString()
		ctx = services.WithRequestID(ctx, requestID)
	}
	if rawURL != "" {
		ctx = services.WithQueryURL(ctx, rawURL)
	}
	ctx, span := r.tracer.Start(ctx, name, trace.WithAttributes(
		attribute.String("request.id", requestID),
		attribute.String("catalog.version", r.index.Version()),
		attribute.String("policy.version", r.policy.Version),
	))
	return ctx, span, r.now()
}

func (r *Resolver) fail(span trace.Span, err error) (decision.Outcome, error) {
	span.RecordError(err)
	span.SetStatus(codes.Error, err.Error())
	return decision.Outcome{}, err
}

func (r *Resolver) finish(ctx context.Context, span trace.Span, start time.Time, rn *run, out decision.Outcome) (decision.Outcome, error) {
	out = out.WithTrail(rn.trail)
	if err := out.Validate(); err != nil {
		return r.fail(span, fmt.Errorf("invalid outcome: %w", err))
	}
	span.SetAttributes(
		attribute.String("decision.status", string(out.Status)),
		attribute.String("decision.stage", string(out.Stage)),
		attribute.String("decision.cache_source", out.CacheSource),
		attribute.Int("decision.candidates", len(out.CandidateIDs)),
	)
	r.metrics.IncrementOutcome(string(out.Status), string(out.Stage))
	r.metrics.ObserveResolve(r.now().Sub(start))

	attrs := logging.DecisionAttrs("resolution", string(out.Status), out.Reason)
	attrs = append(attrs,
		logging.String(logging.FieldStage, string(out.Stage)),
		logging.Duration("elapsed", r.now().Sub(start)))
	if out.ChosenID != "" {
		attrs = append(attrs, logging.String(logging.FieldEntryID, out.ChosenID))
	}
	if out.CacheSource != "" {
		attrs = append(attrs, logging.String("cache_source", out.CacheSource))
	}
	if out.Degraded {
		attrs = append(attrs, logging.Bool("degraded", true))
	}
	logging.WithContext(ctx, r.logger).Info("resolution complete", logging.Args(attrs...)...)
	return out, nil
}

func (r *Resolver) produce(ctx context.Context, rn *run, rawURL string) (identity.Identity, error) {
	start := time.Now()
	id, err := r.producer.Produce(services.WithStage(ctx, string(decision.StageIdentity)), rawURL)
	r.metrics.ObserveCollaborator("identity", time.Since(start), err)
	switch {
	case err == nil:
	case errors.Is(err, identity.ErrPageGone), errors.Is(err, context.Canceled):
		return identity.Identity{}, err
	default:
		logging.WarnWithContext(logging.WithContext(ctx, r.logger), "identity producer failed", "identity_failed",
			logging.Error(err),
			logging.String(logging.FieldErrorHint, "the page could not be read"),
			logging.String(logging.FieldImpact, "resolution continues with URL-derived matching only"))
		rn.note("identity: producer failed: %s", services.Cause(err))
		id = identity.Identity{}
	}
	if id.IsZero() {
		rn.note("identity: empty")
	} else {
		rn.note("identity: name=%q creator=%q domain=%q slug=%q", id.PrimaryName, id.Creator, id.Domain, id.Slug)
	}
	return id, nil
}

// deterministic tries the URL lookup keys and the slug. A match is stored
// under urlKey when one is given.
func (r *Resolver) deterministic(ctx context.Context, rn *run, rawURL, slugHint, urlKey string) (decision.Outcome, bool) {
	_, span := r.tracer.Start(ctx, "deterministic")
	defer span.End()
	det := r.matcher.Match(rawURL, slugHint)
	rn.trail = append(rn.trail, det.Notes...)
	span.SetAttributes(attribute.Bool("matched", det.Matched))
	if !det.Matched {
		return decision.Outcome{}, false
	}
	if urlKey != "" {
		r.putURL(ctx, rn, urlKey, det.Outcome)
	}
	return det.Outcome, true
}

// decide runs the fuzzy, planning, evidence and arbitration stages. A blocked
// identity stops before fuzzy scoring even when it carries a name.
func (r *Resolver) decide(ctx context.Context, rn *run, id identity.Identity) (decision.Outcome, error) {
	if id.Blocked {
		return decision.NotFound(decision.StageIdentity, fmt.Sprintf("identity blocked: host %q is not a mod source", id.Domain), nil), nil
	}

	fctx, span := r.tracer.Start(services.WithStage(ctx, string(decision.StageFuzzy)), "fuzzy")
	fuzzy, err := r.scorer.Score(fctx, id, r.index)
	span.SetAttributes(
		attribute.Int("scored", fuzzy.TotalScored),
		attribute.Int("candidates", len(fuzzy.Candidates)),
		attribute.Bool("early_exit", fuzzy.EarlyExit),
		attribute.String("status", string(fuzzy.Outcome.Status)),
	)
	span.End()
	if err != nil {
		return decision.Outcome{}, err
	}
	rn.note("fuzzy: scored %d entries, kept %d above %.2f", fuzzy.TotalScored, len(fuzzy.Candidates), r.policy.AdmissionFloor)
	if !id.HasName() || len(fuzzy.Candidates) == 0 {
		return fuzzy.Outcome, nil
	}
	if fuzzy.Outcome.Status == decision.StatusFound {
		r.putEvidence(ctx, rn, r.evidenceKey(id, matching.Top(fuzzy.Candidates, r.policy.MaxCandidates)), fuzzy.Outcome)
		return fuzzy.Outcome, nil
	}

	plan := r.planner.Plan(fuzzy.Candidates, fuzzy.TotalScored)
	rn.trail = append(rn.trail, plan.Notes...)
	key := r.evidenceKey(id, plan.Bounded)
	if !plan.ShouldArbitrate {
		r.putEvidence(ctx, rn, key, fuzzy.Outcome)
		return fuzzy.Outcome, nil
	}

	if out, ok := r.lookupEvidence(rn, key); ok {
		return out, nil
	}
	if r.gate == nil {
		rn.note("arbitration: no oracle configured")
		return fuzzy.Outcome, nil
	}

	actx, span := r.tracer.Start(services.WithStage(ctx, string(decision.StageArbitration)), "arbitration",
		trace.WithAttributes(attribute.String("mode", string(plan.Mode)), attribute.Int("bounded", len(plan.Bounded))))
	res := r.gate.Arbitrate(actx, id, plan, fuzzy.Outcome)
	span.SetAttributes(
		attribute.Bool("degraded", res.Degraded),
		attribute.Int("enriched", res.Enriched),
		attribute.String("status", string(res.Outcome.Status)),
	)
	if res.Degraded {
		span.SetStatus(codes.Error, res.Outcome.Reason)
	}
	span.End()

	if !res.Degraded {
		r.putEvidence(ctx, rn, key, res.Outcome)
	}
	return res.Outcome, nil
}

func (r *Resolver) evidenceKey(id identity.Identity, bounded []matching.ScoredCandidate) string {
	in := cache.EvidenceInput{
		PolicyVersion: r.policy.Version,
		Name:          id.PrimaryName,
		Creator:       id.Creator,
		Domain:        id.Domain,
		Slug:          id.Slug,
		CandidateIDs:  make([]string, len(bounded)),
	}
	for i, c := range bounded {
		in.CandidateIDs[i] = c.ID
	}
	if r.quantize {
		in.Scores = make([]float64, len(bounded))
		for i, c := range bounded {
			in.Scores[i] = c.Score
		}
	}
	return cache.EvidenceKey(in)
}

func (r *Resolver) lookupURL(rn *run, key string) (decision.Outcome, bool) {
	if r.cache == nil {
		return decision.Outcome{}, false
	}
	e, ok := r.cache.LookupURL(key)
	r.metrics.ObserveCacheLookup(string(cache.PartitionURL), ok)
	if !ok {
		rn.note("cache: url miss")
		return decision.Outcome{}, false
	}
	rn.note("cache: url hit (stored %s)", e.Timestamp.Format(time.RFC3339))
	return e.Outcome(decision.CacheSourceURL), true
}

func (r *Resolver) lookupEvidence(rn *run, key string) (decision.Outcome, bool) {
	if r.cache == nil {
		return decision.Outcome{}, false
	}
	e, ok := r.cache.LookupEvidence(key)
	r.metrics.ObserveCacheLookup(string(cache.PartitionEvidence), ok)
	if !ok {
		rn.note("cache: evidence miss %s", shortKey(key))
		return decision.Outcome{}, false
	}
	rn.note("cache: evidence hit %s (stored %s)", shortKey(key), e.Timestamp.Format(time.RFC3339))
	return e.Outcome(decision.CacheSourceEvidence), true
}

func (r *Resolver) putURL(ctx context.Context, rn *run, key string, out decision.Outcome) {
	if r.cache == nil || !out.URLCacheable() {
		return
	}
	if err := r.cache.PutURL(key, cache.FromOutcome(out, r.now())); err != nil {
		r.warnCacheWrite(ctx, cache.PartitionURL, err)
		return
	}
	rn.note("cache: stored url decision")
}

func (r *Resolver) putEvidence(ctx context.Context, rn *run, key string, out decision.Outcome) {
	if r.cache == nil || out.Degraded {
		return
	}
	if err := r.cache.PutEvidence(key, cache.FromOutcome(out, r.now())); err != nil {
		r.warnCacheWrite(ctx, cache.PartitionEvidence, err)
		return
	}
	rn.note("cache: stored evidence %s", shortKey(key))
}

func (r *Resolver) warnCacheWrite(ctx context.Context, p cache.Partition, err error) {
	logging.WarnWithContext(logging.WithContext(ctx, r.logger), "cache write failed", "cache_write_failed",
		logging.String("partition", string(p)),
		logging.Error(err),
		logging.String(logging.FieldErrorHint, "check cache directory permissions and free space"),
		logging.String(logging.FieldImpact, "the decision will be recomputed next run"))
}

func shortKey(key string) string {
	if len(key) > 12 {
		return key[:12]
	}
	return key
}
