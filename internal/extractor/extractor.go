// Package extractor turns a canonical provider URL into the list of
// candidate streams the provider currently serves for it. Extraction is
// metadata-only: no media bytes are fetched.
package extractor

import (
	"context"
	"strings"

	"github.com/feedkit/resolver/internal/feed"
)

// CandidateStream describes one playable variant reported by a provider.
// Exactly one of URL and FragmentBaseURL is consulted per candidate;
// the fragment base takes priority when both are present.
type CandidateStream struct {
	Ext             string
	FormatID        string
	MimeType        string
	Width           int
	Height          int
	Bitrate         int
	AudioChannels   int
	URL             string
	FragmentBaseURL string
}

// Location returns the playable location of the candidate, preferring the
// fragment-base URL when the provider exposes one.
func (c CandidateStream) Location() string {
	if c.FragmentBaseURL != "" {
		return c.FragmentBaseURL
	}
	return c.URL
}

// Extractor fetches candidate streams for a canonical provider URL.
type Extractor interface {
	Provider() feed.Provider
	Extract(ctx context.Context, url string) ([]CandidateStream, error)
}

// Registry maps providers to their extraction engines.
type Registry map[feed.Provider]Extractor

// NewRegistry builds a registry from the given extractors.
func NewRegistry(extractors ...Extractor) Registry {
	r := make(Registry, len(extractors))
	for _, e := range extractors {
		r[e.Provider()] = e
	}
	return r
}

// Lookup returns the extractor for a provider, if one is registered.
func (r Registry) Lookup(provider feed.Provider) (Extractor, bool) {
	e, ok := r[provider]
	return e, ok
}

func mimeToExt(mime string) string {
	if i := strings.Index(mime, ";"); i >= 0 {
		mime = mime[:i]
	}
	parts := strings.Split(mime, "/")
	if len(parts) == 2 {
		switch parts[1] {
		case "3gpp":
			return "3gp"
		default:
			return parts[1]
		}
	}
	return "bin"
}
