package fhirstore

import (
	"net/url"
	"time"

	"github.com/google/uuid"
)

// Bundle is an Atom-style result feed. Entry ids are version-independent
// absolute URLs; each entry's self link is version-specific.
type Bundle struct {
	ResourceType string        `json:"resourceType"`
	Title        string        `json:"title"`
	ID           string        `json:"id"`
	Updated      time.Time     `json:"updated"`
	Link         []BundleLink  `json:"link"`
	TotalResults int64         `json:"totalResults"`
	Entry        []BundleEntry `json:"entry"`
}

// BundleLink is a single feed or entry link.
type BundleLink struct {
	Rel  string `json:"rel"`
	Href string `json:"href"`
}

// BundleEntry wraps one resource in a feed.
type BundleEntry struct {
	Title   string       `json:"title"`
	ID      string       `json:"id"`
	Updated time.Time    `json:"updated"`
	Link    []BundleLink `json:"link"`
	Content Resource     `json:"content"`
}

// NewBundle assembles a feed. The fhir-base link lets consumers resolve
// relative URLs within the bundle.
func NewBundle(base, title string, resources []Resource, totalResults int64) *Bundle {
	entries := make([]BundleEntry, 0, len(resources))
	for _, resource := range resources {
		entries = append(entries, newBundleEntry(base, resource))
	}

	return &Bundle{
		ResourceType: "Bundle",
		Title:        title,
		ID:           "urn:uuid:" + uuid.NewString(),
		Updated:      time.Now().UTC(),
		Link: []BundleLink{
			{Rel: "fhir-base", Href: base},
		},
		TotalResults: totalResults,
		Entry:        entries,
	}
}

func newBundleEntry(base string, resource Resource) BundleEntry {
	return BundleEntry{
		Title:   resource.Type() + " Resource",
		ID:      resolve(base, resource.Type(), resource.ID()),
		Updated: resource.LastUpdated(),
		Link: []BundleLink{
			{
				Rel:  "self",
				Href: resolve(base, resource.Type(), resource.ID(), "_history", resource.VersionID()),
			},
		},
		Content: resource,
	}
}

func resolve(base string, parts ...string) string {
	href, err := url.JoinPath(base, parts...)
	if err != nil {
		// base was validated at construction; fall back to a relative path.
		href, _ = url.JoinPath("/", parts...)
	}
	return href
}
