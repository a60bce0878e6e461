package matching

import (
	"fmt"
	"log/slog"
	"strings"

	"github.com/thebossrrpg/Thesims4modanalyzer/internal/catalog"
	"github.com/thebossrrpg/Thesims4modanalyzer/internal/decision"
	"github.com/thebossrrpg/Thesims4modanalyzer/internal/logging"
	"github.com/thebossrrpg/Thesims4modanalyzer/internal/urlkey"
)

// DeterministicResult is the outcome of exact and slug matching. Matched is
// false when the pipeline should continue to fuzzy scoring.
type DeterministicResult struct {
	Matched bool
	Outcome decision.Outcome
	Notes   []string
}

// DeterministicMatcher resolves queries by URL lookup keys or a unique slug.
type DeterministicMatcher struct {
	index  *catalog.Index
	logger *slog.Logger
}

// NewDeterministicMatcher binds a matcher to an index.
func NewDeterministicMatcher(index *catalog.Index, logger *slog.Logger) *DeterministicMatcher {
	return &DeterministicMatcher{
		index:  index,
		logger: logging.NewComponentLogger(logger, "deterministic"),
	}
}

// Match tries every lookup key of rawURL, then the slug. slugHint is used when
// rawURL has no path segment (identity-only queries). Malformed input is a
// non-match.
func (m *DeterministicMatcher) Match(rawURL, slugHint string) DeterministicResult {
	var res DeterministicResult

	if keys := urlkey.LookupKeys(rawURL); len(keys) > 0 {
		if entry, key, ok := m.index.LookupURL(keys...); ok {
			reason := fmt.Sprintf("exact url match on key %q", key)
			res.Matched = true
			res.Outcome = decision.Found(decision.StageExact, entry.ID, reason)
			m.logger.Info("exact match",
				logging.Args(append(logging.DecisionAttrs("exact_match", string(decision.StatusFound), reason),
					logging.String(logging.FieldEntryID, entry.ID))...)...)
			return res
		}
		res.Notes = append(res.Notes, fmt.Sprintf("exact: no match on %d lookup keys", len(keys)))
	}

	slug := urlkey.Slug(rawURL)
	if slug == "" {
		slug = urlkey.Compact(strings.TrimSpace(slugHint))
	}
	if slug == "" {
		res.Notes = append(res.Notes, "slug: no slug to match")
		return res
	}

	matches := m.index.LookupSlug(slug)
	switch len(matches) {
	case 0:
		res.Notes = append(res.Notes, fmt.Sprintf("slug: %q not in catalog", slug))
	case 1:
		reason := fmt.Sprintf("unique slug match %q", slug)
		res.Matched = true
		res.Outcome = decision.Found(decision.StageSlug, matches[0].ID, reason)
		m.logger.Info("slug match",
			logging.Args(append(logging.DecisionAttrs("slug_match", string(decision.StatusFound), reason),
				logging.String(logging.FieldEntryID, matches[0].ID))...)...)
	default:
		note := fmt.Sprintf("slug: %q shared by %d entries, falling through", slug, len(matches))
		res.Notes = append(res.Notes, note)
		m.logger.Debug("slug collision", logging.String("slug", slug), logging.Int("entries", len(matches)))
	}
	return res
}
