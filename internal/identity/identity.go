// Package identity describes the query side of a resolution: the normalized
// signature of the mod page being looked up and the producers that build it.
package identity

import (
	"context"
	"errors"
	"strings"
)

// ErrPageGone is returned by a Producer when the page is confirmed dead
// (404/410 or removed listing). The resolver classifies it as REJECTED.
var ErrPageGone = errors.New("page gone")

// Identity is the normalized signature of a queried mod page. Empty strings
// stand for unknown values.
type Identity struct {
	PrimaryName string `json:"primary_name,omitempty"`
	Domain      string `json:"domain,omitempty"`
	Slug        string `json:"slug,omitempty"`
	Creator     string `json:"creator,omitempty"`
	// Blocked marks a page from a host that does not publish mods (link
	// shorteners, image boards). Its name is not matched against the catalog
	// and the page resolves NOTFOUND at IDENTITY.
	Blocked bool `json:"blocked,omitempty"`
}

// HasName reports whether the identity carries a usable primary name.
func (id Identity) HasName() bool {
	return strings.TrimSpace(id.PrimaryName) != ""
}

// IsZero reports whether no field is set.
func (id Identity) IsZero() bool {
	return id == Identity{}
}

// Producer builds an Identity for a page URL. Soft failures (timeouts, parse
// errors) return the zero Identity and a nil error; a confirmed-dead page
// returns ErrPageGone.
type Producer interface {
	Produce(ctx context.Context, rawURL string) (Identity, error)
}

// ProducerFunc adapts a function to the Producer interface.
type ProducerFunc func(ctx context.Context, rawURL string) (Identity, error)

// Produce calls f.
func (f ProducerFunc) Produce(ctx context.Context, rawURL string) (Identity, error) {
	return f(ctx, rawURL)
}
