package arbitration

import (
	"context"
	"fmt"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/thebossrrpg/Thesims4modanalyzer/internal/catalog"
	"github.com/thebossrrpg/Thesims4modanalyzer/internal/logging"
	"github.com/thebossrrpg/Thesims4modanalyzer/internal/matching"
	"github.com/thebossrrpg/Thesims4modanalyzer/internal/services"
)

// enrich overlays live entity data onto cands, preferring cached snapshots.
// Failures leave a candidate as it was. The returned slice keeps cands' order.
func (g *Gate) enrich(ctx context.Context, cands []matching.ScoredCandidate) ([]matching.ScoredCandidate, int, []string) {
	out := append([]matching.ScoredCandidate(nil), cands...)
	if g.opts.Fetcher == nil && g.opts.Live == nil {
		return out, 0, nil
	}

	live := make([]catalog.LiveEntity, len(out))
	hit := make([]bool, len(out))
	errs := make([]error, len(out))

	var eg errgroup.Group
	for i := range out {
		eg.Go(func() error {
			live[i], hit[i], errs[i] = g.liveEntity(ctx, out[i].Entry)
			return nil
		})
	}
	_ = eg.Wait()

	var (
		enriched int
		notes    []string
	)
	for i := range out {
		if errs[i] != nil {
			notes = append(notes, fmt.Sprintf("enrich: %s unavailable: %s", out[i].ID, services.Cause(errs[i])))
			continue
		}
		if !hit[i] {
			continue
		}
		out[i].Entry = live[i].Apply(out[i].Entry)
		enriched++
	}
	if enriched > 0 {
		notes = append(notes, fmt.Sprintf("enrich: refreshed %d of %d candidates", enriched, len(out)))
	}
	return out, enriched, notes
}

func (g *Gate) liveEntity(ctx context.Context, e catalog.Entry) (catalog.LiveEntity, bool, error) {
	if g.opts.Live != nil {
		if cached, ok := g.opts.Live.LookupLiveEntity(e.ID, e.LastModifiedAt); ok {
			return cached, true, nil
		}
	}
	if g.opts.Fetcher == nil {
		return catalog.LiveEntity{}, false, nil
	}

	fetchCtx, cancel := context.WithTimeout(ctx, g.opts.FetchTimeout)
	defer cancel()
	start := time.Now()
	entity, err := g.opts.Fetcher.FetchEntity(fetchCtx, e.ID)
	if g.opts.Observer != nil {
		g.opts.Observer.ObserveCollaborator("live_source", time.Since(start), err)
	}
	if err != nil {
		g.logger.Debug("live entity fetch failed", logging.String(logging.FieldEntryID, e.ID), logging.Error(err))
		return catalog.LiveEntity{}, false, err
	}
	if entity.ID == "" {
		entity.ID = e.ID
	}
	if g.opts.Live != nil {
		if err := g.opts.Live.PutLiveEntity(entity); err != nil {
			logging.WarnWithContext(g.logger, "live entity not cached", "live_cache_write_failed",
				logging.String(logging.FieldEntryID, e.ID),
				logging.Error(err),
				logging.String(logging.FieldErrorHint, "check cache directory permissions"),
				logging.String(logging.FieldImpact, "the entity will be fetched again next run"))
		}
	}
	return entity, true, nil
}
