package imageref

import (
	"net/url"
	"strings"
)

// Candidate is one location where a hosted image may be retrievable.
// Template contains a single "{id}" placeholder; Query selects query escaping
// instead of path escaping for the identifier.
type Candidate struct {
	Template string
	Query    bool
}

// URL returns the candidate URL for an image identifier.
func (c Candidate) URL(id string) string {
	escaped := url.PathEscape(id)
	if c.Query {
		escaped = url.QueryEscape(id)
	}
	return strings.Replace(c.Template, "{id}", escaped, 1)
}

// Host returns the host part of the template, or "" if it does not parse.
func (c Candidate) Host() string {
	u, err := url.Parse(strings.Replace(c.Template, "{id}", "x", 1))
	if err != nil {
		return ""
	}
	return u.Hostname()
}

// DefaultCandidates lists the known and likely endpoint shapes of the image
// hosting service, in the order they are tried.
var DefaultCandidates = []Candidate{
	// API endpoints
	{Template: "https://api.puch.ai/images/{id}"},
	{Template: "https://api.puch.ai/v1/images/{id}"},
	{Template: "https://api.puch.ai/files/{id}"},

	// Web endpoints
	{Template: "https://puch.ai/api/images/{id}"},
	{Template: "https://puch.ai/images/{id}"},
	{Template: "https://puch.ai/files/{id}"},

	// CDN/media hosts
	{Template: "https://cdn.puch.ai/{id}"},
	{Template: "https://media.puch.ai/{id}"},
	{Template: "https://storage.puch.ai/images/{id}"},

	// Query-string variants
	{Template: "https://api.puch.ai/image?id={id}", Query: true},
	{Template: "https://puch.ai/api/image?id={id}", Query: true},
}

// DefaultExcludedHosts are hosts that fail name resolution. Candidates on
// these hosts are skipped without dialing.
var DefaultExcludedHosts = []string{
	"cdn.puch.ai",
	"media.puch.ai",
	"storage.puch.ai",
}
