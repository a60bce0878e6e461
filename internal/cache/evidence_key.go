package cache

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"math"
	"sort"
	"strconv"

	"github.com/thebossrrpg/Thesims4modanalyzer/internal/textutil"
	"github.com/thebossrrpg/Thesims4modanalyzer/internal/urlkey"
)

// scoreBucket is the quantisation step applied to scores in evidence keys.
const scoreBucket = 0.05

// EvidenceInput is everything an evidence key depends on. Scores, when set,
// must be parallel to CandidateIDs.
type EvidenceInput struct {
	PolicyVersion string
	Name          string
	Creator       string
	Domain        string
	Slug          string
	CandidateIDs  []string
	Scores        []float64
}

type evidenceDocument struct {
	PolicyVersion string   `json:"policy_version"`
	Name          string   `json:"name"`
	Creator       string   `json:"creator"`
	Domain        string   `json:"domain"`
	Slug          string   `json:"slug"`
	Candidates    []string `json:"candidates"`
	Scores        []string `json:"scores,omitempty"`
}

// EvidenceKey returns the hex SHA-256 of the canonical evidence document.
// Identity fields are noise-stripped, candidate IDs sorted, and scores (when
// present) quantised to 0.05 and reordered with their IDs.
func EvidenceKey(in EvidenceInput) string {
	type pair struct {
		id    string
		score float64
	}
	pairs := make([]pair, len(in.CandidateIDs))
	for i, id := range in.CandidateIDs {
		pairs[i].id = id
		if i < len(in.Scores) {
			pairs[i].score = in.Scores[i]
		}
	}
	sort.SliceStable(pairs, func(i, j int) bool { return pairs[i].id < pairs[j].id })

	doc := evidenceDocument{
		PolicyVersion: in.PolicyVersion,
		Name:          textutil.StripNoise(in.Name),
		Creator:       textutil.StripNoise(in.Creator),
		Domain:        urlkey.NormalizeHost(in.Domain),
		Slug:          textutil.StripNoise(in.Slug),
		Candidates:    make([]string, len(pairs)),
	}
	for i, p := range pairs {
		doc.Candidates[i] = p.id
	}
	if len(in.Scores) > 0 {
		doc.Scores = make([]string, len(pairs))
		for i, p := range pairs {
			doc.Scores[i] = strconv.FormatFloat(Quantize(p.score), 'f', 2, 64)
		}
	}

	// Struct fields marshal in declaration order, so the encoding is canonical.
	encoded, err := json.Marshal(doc)
	if err != nil {
		panic("cache: encode evidence document: " + err.Error())
	}
	sum := sha256.Sum256(encoded)
	return hex.EncodeToString(sum[:])
}

// Quantize rounds score to the nearest 0.05 bucket.
func Quantize(score float64) float64 {
	return math.Round(score/scoreBucket) * scoreBucket
}
