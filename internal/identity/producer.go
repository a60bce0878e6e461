package identity

import (
	"context"
	"strings"
	"unicode"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"

	"github.com/thebossrrpg/Thesims4modanalyzer/internal/urlkey"
)

// URLProducer derives an Identity from the URL alone: host, last path
// segment, and a display name humanized from that segment. It is the
// producer used when no page scraper is wired in.
type URLProducer struct {
	blocked map[string]struct{}
}

// NewURLProducer returns a URLProducer that marks identities from the given
// hosts as Blocked.
func NewURLProducer(blockedHosts ...string) *URLProducer {
	blocked := make(map[string]struct{}, len(blockedHosts))
	for _, host := range blockedHosts {
		if h := urlkey.NormalizeHost(host); h != "" {
			blocked[h] = struct{}{}
		}
	}
	return &URLProducer{blocked: blocked}
}

// Produce implements Producer.
func (p *URLProducer) Produce(_ context.Context, rawURL string) (Identity, error) {
	if _, err := urlkey.Parse(rawURL); err != nil {
		return Identity{}, nil
	}
	segment := urlkey.LastSegment(rawURL)
	id := Identity{
		Domain:      urlkey.Host(rawURL),
		Slug:        strings.ToLower(segment),
		PrimaryName: HumanizeSlug(segment),
	}
	if p != nil {
		if _, ok := p.blocked[id.Domain]; ok {
			id.Blocked = true
		}
	}
	return id, nil
}

// HumanizeSlug turns "cool-pack_v2.package" into "Cool Pack V2". Trailing
// numeric ids such as "12345-cool-pack" keep their words only.
func HumanizeSlug(segment string) string {
	if segment == "" {
		return ""
	}
	if dot := strings.LastIndexByte(segment, '.'); dot > 0 {
		switch strings.ToLower(segment[dot+1:]) {
		case "html", "htm", "php", "aspx", "package", "zip":
			segment = segment[:dot]
		}
	}
	cleaned := strings.Builder{}
	prevSpace := false
	for _, r := range segment {
		switch {
		case unicode.IsLetter(r) || unicode.IsNumber(r):
			cleaned.WriteRune(r)
			prevSpace = false
		case unicode.IsSpace(r) || r == '-' || r == '_' || r == '.' || r == '+':
			if !prevSpace {
				cleaned.WriteRune(' ')
				prevSpace = true
			}
		}
	}
	words := strings.Fields(cleaned.String())
	kept := words[:0]
	for _, w := range words {
		if isDigits(w) && len(w) >= 4 {
			continue
		}
		kept = append(kept, w)
	}
	if len(kept) == 0 {
		return ""
	}
	return cases.Title(language.Und).String(strings.Join(kept, " "))
}

func isDigits(s string) bool {
	for _, r := range s {
		if !unicode.IsDigit(r) {
			return false
		}
	}
	return s != ""
}

// Static answers every request with a caller-supplied name and creator,
// filling Domain and Slug from the URL.
type Static struct {
	Name    string
	Creator string
}

// Produce implements Producer.
func (s Static) Produce(ctx context.Context, rawURL string) (Identity, error) {
	id, err := (&URLProducer{}).Produce(ctx, rawURL)
	if err != nil {
		return Identity{}, err
	}
	if name := strings.TrimSpace(s.Name); name != "" {
		id.PrimaryName = name
	}
	id.Creator = strings.TrimSpace(s.Creator)
	return id, nil
}
