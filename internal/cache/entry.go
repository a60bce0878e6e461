package cache

import (
	"slices"
	"time"

	"github.com/thebossrrpg/Thesims4modanalyzer/internal/decision"
)

// Entry is a stored decision shared by the URL and evidence partitions.
type Entry struct {
	Result       decision.Status `json:"result"`
	Stage        decision.Stage  `json:"stage"`
	Reason       string          `json:"reason"`
	ChosenID     string          `json:"chosen_id,omitempty"`
	CandidateIDs []string        `json:"candidate_ids,omitempty"`
	Timestamp    time.Time       `json:"timestamp"`
}

// FromOutcome captures the cacheable fields of o.
func FromOutcome(o decision.Outcome, at time.Time) Entry {
	return Entry{
		Result:       o.Status,
		Stage:        o.Stage,
		Reason:       o.Reason,
		ChosenID:     o.ChosenID,
		CandidateIDs: slices.Clone(o.CandidateIDs),
		Timestamp:    at.UTC(),
	}
}

// Outcome rebuilds the decision, tagged with the partition it came from.
func (e Entry) Outcome(source string) decision.Outcome {
	return decision.Outcome{
		Status:       e.Result,
		Stage:        e.Stage,
		Reason:       e.Reason,
		ChosenID:     e.ChosenID,
		CandidateIDs: slices.Clone(e.CandidateIDs),
		CacheSource:  source,
	}
}

func (e Entry) valid() bool {
	if _, ok := decision.ParseStatus(string(e.Result)); !ok {
		return false
	}
	if _, ok := decision.ParseStage(string(e.Stage)); !ok {
		return false
	}
	return e.Outcome("").Validate() == nil
}
