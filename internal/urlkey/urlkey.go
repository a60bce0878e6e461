// Package urlkey derives the normalized keys used to match and cache mod page URLs.
//
// Canonical produces the single key of the URL cache partition. LookupKeys
// produces the several historical representations a catalog may have stored
// for the same page; the deterministic matcher indexes all of them.
package urlkey

import (
	"errors"
	"fmt"
	"net"
	"net/url"
	"path"
	"sort"
	"strings"
	"unicode"
)

// ErrMalformed marks input that cannot be interpreted as an http(s) page URL.
var ErrMalformed = errors.New("malformed url")

var trackingParams = map[string]struct{}{
	"fbclid":  {},
	"gclid":   {},
	"mc_cid":  {},
	"mc_eid":  {},
	"igshid":  {},
	"ref":     {},
	"ref_src": {},
	"si":      {},
}

// Parse validates raw as an http(s) URL with a host. Input without a scheme,
// such as "example.com/a" or "//example.com/a", is read as https.
func Parse(raw string) (*url.URL, error) {
	trimmed := strings.TrimSpace(raw)
	if trimmed == "" {
		return nil, fmt.Errorf("%w: empty", ErrMalformed)
	}
	u, err := url.Parse(withDefaultScheme(trimmed))
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformed, err)
	}
	scheme := strings.ToLower(u.Scheme)
	if scheme != "http" && scheme != "https" {
		return nil, fmt.Errorf("%w: unsupported scheme %q", ErrMalformed, u.Scheme)
	}
	if u.Hostname() == "" {
		return nil, fmt.Errorf("%w: missing host", ErrMalformed)
	}
	return u, nil
}

// Canonical returns the cache key for raw: lowercase scheme and host, www. and
// default ports removed, path cleaned and lowercased without a trailing slash,
// fragment and tracking parameters dropped, remaining parameters sorted.
func Canonical(raw string) (string, error) {
	u, err := Parse(raw)
	if err != nil {
		return "", err
	}
	scheme := strings.ToLower(u.Scheme)
	host := normalizeHost(u.Host, scheme)

	p := cleanPath(u.EscapedPath())
	p = strings.ToLower(p)

	var b strings.Builder
	b.WriteString(scheme)
	b.WriteString("://")
	b.WriteString(host)
	b.WriteString(p)
	if q := canonicalQuery(u.Query()); q != "" {
		b.WriteByte('?')
		b.WriteString(q)
	}
	return b.String(), nil
}

// LookupKeys returns the distinct match keys for a stored or queried URL: the
// trimmed raw string, the scheme-stripped form, and the punctuation-compacted
// legacy form. Unparseable input yields only the trimmed raw key.
func LookupKeys(raw string) []string {
	trimmed := strings.TrimSpace(raw)
	if trimmed == "" {
		return nil
	}
	keys := []string{trimmed}
	stripped := schemeStripped(trimmed)
	if stripped == "" {
		return keys
	}
	keys = appendUnique(keys, stripped)
	if compact := Compact(stripped); compact != "" {
		keys = appendUnique(keys, compact)
	}
	return keys
}

// Compact lowercases value and removes every non-alphanumeric rune.
func Compact(value string) string {
	var b strings.Builder
	for _, r := range strings.ToLower(value) {
		if unicode.IsLetter(r) || unicode.IsDigit(r) {
			b.WriteRune(r)
		}
	}
	return b.String()
}

// Slug returns the compacted last non-empty path segment of raw, or "" when
// raw has no path.
func Slug(raw string) string {
	return Compact(LastSegment(raw))
}

// LastSegment returns the last non-empty path segment of raw, unescaped.
func LastSegment(raw string) string {
	u, ok := parseLoose(raw)
	if !ok {
		return ""
	}
	segments := strings.Split(u.Path, "/")
	for i := len(segments) - 1; i >= 0; i-- {
		if s := strings.TrimSpace(segments[i]); s != "" {
			return s
		}
	}
	return ""
}

// Host returns the lowercase host of raw without www. or port.
func Host(raw string) string {
	u, ok := parseLoose(raw)
	if !ok {
		return ""
	}
	return NormalizeHost(u.Hostname())
}

// NormalizeHost lowercases host and strips a leading www. and any port.
func NormalizeHost(host string) string {
	host = strings.ToLower(strings.TrimSpace(host))
	if h, _, err := net.SplitHostPort(host); err == nil {
		host = h
	}
	host = strings.TrimSuffix(host, ".")
	return strings.TrimPrefix(host, "www.")
}

func schemeStripped(raw string) string {
	u, ok := parseLoose(raw)
	if !ok {
		return ""
	}
	host := NormalizeHost(u.Host)
	if host == "" {
		return ""
	}
	p := strings.TrimRight(u.EscapedPath(), "/")
	out := host + p
	if u.RawQuery != "" {
		out += "?" + u.RawQuery
	}
	return out
}

// parseLoose accepts scheme-less catalog URLs such as "example.com/a".
func parseLoose(raw string) (*url.URL, bool) {
	trimmed := strings.TrimSpace(raw)
	if trimmed == "" {
		return nil, false
	}
	u, err := url.Parse(withDefaultScheme(trimmed))
	if err != nil || u.Hostname() == "" {
		return nil, false
	}
	return u, true
}

func withDefaultScheme(raw string) string {
	if strings.Contains(raw, "://") {
		return raw
	}
	return "https://" + strings.TrimPrefix(raw, "//")
}

func normalizeHost(hostport, scheme string) string {
	host := strings.ToLower(hostport)
	if h, port, err := net.SplitHostPort(host); err == nil {
		if (scheme == "http" && port == "80") || (scheme == "https" && port == "443") {
			host = h
		}
	}
	return strings.TrimPrefix(host, "www.")
}

func cleanPath(p string) string {
	if p == "" || p == "/" {
		return ""
	}
	cleaned := path.Clean("/" + p)
	if cleaned == "/" {
		return ""
	}
	return strings.TrimRight(cleaned, "/")
}

func canonicalQuery(values url.Values) string {
	if len(values) == 0 {
		return ""
	}
	keys := make([]string, 0, len(values))
	for key := range values {
		lower := strings.ToLower(key)
		if strings.HasPrefix(lower, "utm_") {
			continue
		}
		if _, tracking := trackingParams[lower]; tracking {
			continue
		}
		keys = append(keys, key)
	}
	sort.Strings(keys)
	var parts []string
	for _, key := range keys {
		vals := append([]string(nil), values[key]...)
		sort.Strings(vals)
		for _, v := range vals {
			parts = append(parts, url.QueryEscape(key)+"="+url.QueryEscape(v))
		}
	}
	return strings.Join(parts, "&")
}

func appendUnique(keys []string, key string) []string {
	for _, existing := range keys {
		if existing == key {
			return keys
		}
	}
	return append(keys, key)
}
