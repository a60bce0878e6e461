package matching

import (
	"strings"

	"github.com/thebossrrpg/Thesims4modanalyzer/internal/config"
	"github.com/thebossrrpg/Thesims4modanalyzer/internal/urlkey"
)

// scoreEpsilon absorbs float noise when comparing scores with thresholds.
const scoreEpsilon = 1e-9

// Policy carries the tunable decision constants shared by every stage.
type Policy struct {
	Version              string
	FoundThreshold       float64
	AmbiguityGap         float64
	AdmissionFloor       float64
	ExactTitleThreshold  float64
	TitleFallbackTrigger float64
	TitleWeight          float64
	CreatorWeight        float64
	SlugWeight           float64
	DomainBonus          float64
	MaxCandidates        int
	MinNameLength        int
	MinAlphaRatio        float64
	ConfirmThreshold     float64
	AcceptThreshold      float64
	MinArbitrationGap    float64
	ScoringWorkers       int

	hostGroups map[string]string
}

// PolicyFromConfig builds a Policy from the [policy] config section. Version is
// the full policy version including the constants hash.
func PolicyFromConfig(p config.Policy) Policy {
	policy := Policy{
		Version:              config.PolicyVersion(p),
		FoundThreshold:       p.FoundThreshold,
		AmbiguityGap:         p.AmbiguityGap,
		AdmissionFloor:       p.AdmissionFloor,
		ExactTitleThreshold:  p.ExactTitleThreshold,
		TitleFallbackTrigger: p.TitleFallbackTrigger,
		TitleWeight:          p.TitleWeight,
		CreatorWeight:        p.CreatorWeight,
		SlugWeight:           p.SlugWeight,
		DomainBonus:          p.DomainBonus,
		MaxCandidates:        p.MaxCandidates,
		MinNameLength:        p.MinNameLength,
		MinAlphaRatio:        p.MinAlphaRatio,
		ConfirmThreshold:     p.ConfirmThreshold,
		AcceptThreshold:      p.AcceptThreshold,
		MinArbitrationGap:    p.MinArbitrationGap,
		ScoringWorkers:       p.ScoringWorkers,
		hostGroups:           make(map[string]string),
	}
	for group, hosts := range p.HostAliases {
		for _, host := range hosts {
			policy.hostGroups[urlkey.NormalizeHost(host)] = group
		}
	}
	if policy.MaxCandidates <= 0 {
		policy.MaxCandidates = 5
	}
	if policy.ScoringWorkers <= 0 {
		policy.ScoringWorkers = 1
	}
	return policy
}

// DefaultPolicy returns the canonical policy.
func DefaultPolicy() Policy {
	return PolicyFromConfig(config.DefaultPolicy())
}

// HostGroup returns the alias group of host, matching subdomains of a listed
// host too, or "" when host belongs to no group.
func (p Policy) HostGroup(host string) string {
	host = urlkey.NormalizeHost(host)
	for host != "" {
		if group, ok := p.hostGroups[host]; ok {
			return group
		}
		dot := strings.IndexByte(host, '.')
		if dot < 0 {
			break
		}
		host = host[dot+1:]
	}
	return ""
}

// SameSite reports whether two hosts are equal or share an alias group.
func (p Policy) SameSite(a, b string) bool {
	a, b = urlkey.NormalizeHost(a), urlkey.NormalizeHost(b)
	if a == "" || b == "" {
		return false
	}
	if a == b {
		return true
	}
	ga := p.HostGroup(a)
	return ga != "" && ga == p.HostGroup(b)
}

// AtLeast reports value >= threshold within float tolerance.
func AtLeast(value, threshold float64) bool {
	return value >= threshold-scoreEpsilon
}
