package catalog

import (
	"strings"
	"time"
)

// Entry is one known mod in the reference catalog. Optional text fields are
// empty when unknown.
type Entry struct {
	ID             string    `json:"id"`
	URL            string    `json:"url,omitempty"`
	Title          string    `json:"title,omitempty"`
	AlternateName  string    `json:"alternate_name,omitempty"`
	Creator        string    `json:"creator,omitempty"`
	CreatedAt      time.Time `json:"created_at,omitzero"`
	LastModifiedAt time.Time `json:"last_modified_at,omitzero"`
}

// DisplayName returns Title, falling back to AlternateName.
func (e Entry) DisplayName() string {
	if t := strings.TrimSpace(e.Title); t != "" {
		return t
	}
	return strings.TrimSpace(e.AlternateName)
}

// LiveEntity is the current state of a catalog entry as reported by the live
// catalog source. FetchedAt is when the snapshot was taken.
type LiveEntity struct {
	ID             string    `json:"id"`
	Title          string    `json:"title,omitempty"`
	Creator        string    `json:"creator,omitempty"`
	URL            string    `json:"url,omitempty"`
	LastModifiedAt time.Time `json:"last_modified_at,omitzero"`
	FetchedAt      time.Time `json:"fetched_at"`
}

// Apply overlays the non-empty live fields onto e.
func (l LiveEntity) Apply(e Entry) Entry {
	if t := strings.TrimSpace(l.Title); t != "" {
		e.Title = t
	}
	if c := strings.TrimSpace(l.Creator); c != "" {
		e.Creator = c
	}
	if u := strings.TrimSpace(l.URL); u != "" {
		e.URL = u
	}
	if l.LastModifiedAt.After(e.LastModifiedAt) {
		e.LastModifiedAt = l.LastModifiedAt
	}
	return e
}
