// Package decision defines the single terminal result of a resolution.
package decision

import (
	"errors"
	"fmt"
	"strings"
)

// Status is the verdict of a resolution.
type Status string

const (
	StatusFound     Status = "FOUND"
	StatusAmbiguous Status = "AMBIGUOUS"
	StatusNotFound  Status = "NOTFOUND"
	StatusRejected  Status = "REJECTED"
)

// Stage names the pipeline stage that produced a decision.
type Stage string

const (
	StageInput       Stage = "INPUT"
	StageIdentity    Stage = "IDENTITY"
	StageExact       Stage = "EXACT"
	StageSlug        Stage = "SLUG"
	StageFuzzy       Stage = "FUZZY"
	StageArbitration Stage = "ARBITRATION"
)

// Cache sources recorded on outcomes served from the store.
const (
	CacheSourceNone     = ""
	CacheSourceURL      = "url"
	CacheSourceEvidence = "evidence"
)

var allStatuses = []Status{StatusFound, StatusAmbiguous, StatusNotFound, StatusRejected}

var allStages = []Stage{StageInput, StageIdentity, StageExact, StageSlug, StageFuzzy, StageArbitration}

var statusSet = func() map[Status]struct{} {
	set := make(map[Status]struct{}, len(allStatuses))
	for _, status := range allStatuses {
		set[status] = struct{}{}
	}
	return set
}()

var stageSet = func() map[Stage]struct{} {
	set := make(map[Stage]struct{}, len(allStages))
	for _, stage := range allStages {
		set[stage] = struct{}{}
	}
	return set
}()

// ParseStatus converts a stored status string.
func ParseStatus(value string) (Status, bool) {
	status := Status(strings.ToUpper(strings.TrimSpace(value)))
	_, ok := statusSet[status]
	return status, ok
}

// ParseStage converts a stored stage string.
func ParseStage(value string) (Stage, bool) {
	stage := Stage(strings.ToUpper(strings.TrimSpace(value)))
	_, ok := stageSet[stage]
	return stage, ok
}

// Deterministic reports whether the stage depends only on exact string
// equality, which makes its result safe to cache by URL.
func (s Stage) Deterministic() bool {
	return s == StageExact || s == StageSlug
}

// Candidate summarizes one scored catalog entry carried on an outcome.
type Candidate struct {
	ID      string   `json:"id"`
	Title   string   `json:"title,omitempty"`
	URL     string   `json:"url,omitempty"`
	Score   float64  `json:"score"`
	Reasons []string `json:"reasons,omitempty"`
}

// Outcome is the terminal decision for one query. Exactly one Status is set;
// ChosenID is present only for FOUND, CandidateIDs only for AMBIGUOUS and
// NOTFOUND.
type Outcome struct {
	Status       Status      `json:"status"`
	Stage        Stage       `json:"stage"`
	Reason       string      `json:"reason"`
	ChosenID     string      `json:"chosen_id,omitempty"`
	CandidateIDs []string    `json:"candidate_ids,omitempty"`
	Candidates   []Candidate `json:"candidates,omitempty"`
	Trail        []string    `json:"trail,omitempty"`
	CacheSource  string      `json:"cache_source,omitempty"`
	// Degraded is set when a collaborator failed and the outcome fell back to
	// an earlier stage's decision.
	Degraded bool `json:"degraded,omitempty"`
}

// Found builds a FOUND outcome.
func Found(stage Stage, chosenID, reason string) Outcome {
	return Outcome{Status: StatusFound, Stage: stage, ChosenID: chosenID, Reason: reason}
}

// Ambiguous builds an AMBIGUOUS outcome over candidates.
func Ambiguous(stage Stage, reason string, candidates []Candidate) Outcome {
	return Outcome{Status: StatusAmbiguous, Stage: stage, Reason: reason, Candidates: candidates, CandidateIDs: IDs(candidates)}
}

// NotFound builds a NOTFOUND outcome, optionally carrying the best candidates
// for downstream use.
func NotFound(stage Stage, reason string, candidates []Candidate) Outcome {
	return Outcome{Status: StatusNotFound, Stage: stage, Reason: reason, Candidates: candidates, CandidateIDs: IDs(candidates)}
}

// Rejected builds a REJECTED outcome for unusable input.
func Rejected(stage Stage, reason string) Outcome {
	return Outcome{Status: StatusRejected, Stage: stage, Reason: reason}
}

// IDs returns the candidate IDs in order, or nil for an empty list.
func IDs(candidates []Candidate) []string {
	if len(candidates) == 0 {
		return nil
	}
	ids := make([]string, len(candidates))
	for i, c := range candidates {
		ids[i] = c.ID
	}
	return ids
}

// Note appends a formatted line to the audit trail.
func (o *Outcome) Note(format string, args ...any) {
	o.Trail = append(o.Trail, fmt.Sprintf(format, args...))
}

// WithTrail returns o with trail prepended to its own trail.
func (o Outcome) WithTrail(trail []string) Outcome {
	if len(trail) == 0 {
		return o
	}
	merged := make([]string, 0, len(trail)+len(o.Trail))
	merged = append(merged, trail...)
	merged = append(merged, o.Trail...)
	o.Trail = merged
	return o
}

// URLCacheable reports whether the outcome may be stored under its URL key:
// deterministic matches and rejections only.
func (o Outcome) URLCacheable() bool {
	switch o.Status {
	case StatusRejected:
		return true
	case StatusFound:
		return o.Stage.Deterministic()
	case StatusAmbiguous, StatusNotFound:
		return false
	default:
		panic(fmt.Sprintf("decision: unknown status %q", o.Status))
	}
}

// Validate checks the variant invariants.
func (o Outcome) Validate() error {
	if _, ok := statusSet[o.Status]; !ok {
		return fmt.Errorf("unknown status %q", o.Status)
	}
	if _, ok := stageSet[o.Stage]; !ok {
		return fmt.Errorf("unknown stage %q", o.Stage)
	}
	switch o.Status {
	case StatusFound:
		if o.ChosenID == "" {
			return errors.New("FOUND outcome without chosen id")
		}
	case StatusAmbiguous:
		if len(o.CandidateIDs) == 0 {
			return errors.New("AMBIGUOUS outcome without candidates")
		}
		if o.ChosenID != "" {
			return errors.New("AMBIGUOUS outcome with chosen id")
		}
	case StatusNotFound, StatusRejected:
		if o.ChosenID != "" {
			return fmt.Errorf("%s outcome with chosen id", o.Status)
		}
	}
	return nil
}

// Summary renders a one-line description for logs and plain output.
func (o Outcome) Summary() string {
	switch o.Status {
	case StatusFound:
		return fmt.Sprintf("%s via %s: %s (%s)", o.Status, o.Stage, o.ChosenID, o.Reason)
	case StatusAmbiguous, StatusNotFound:
		if len(o.CandidateIDs) > 0 {
			return fmt.Sprintf("%s via %s: %s [%s]", o.Status, o.Stage, o.Reason, strings.Join(o.CandidateIDs, ", "))
		}
		return fmt.Sprintf("%s via %s: %s", o.Status, o.Stage, o.Reason)
	case StatusRejected:
		return fmt.Sprintf("%s via %s: %s", o.Status, o.Stage, o.Reason)
	default:
		panic(fmt.Sprintf("decision: unknown status %q", o.Status))
	}
}
