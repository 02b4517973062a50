package resolver

import (
	"fmt"
	"sort"
	"strings"

	"github.com/samber/lo"

	"github.com/feedkit/resolver/internal/extractor"
	"github.com/feedkit/resolver/internal/feed"
)

// StreamSelector picks exactly one playable URL out of the candidate
// streams an extractor reported. Selection is a pure read: the input slice
// is never mutated.
type StreamSelector interface {
	SelectStream(candidates []extractor.CandidateStream, format feed.Format, quality feed.Quality) (string, error)
}

var selectors = map[feed.Provider]StreamSelector{
	feed.ProviderYoutube: youtubeSelector{},
	feed.ProviderVimeo:   vimeoSelector{},
}

// SelectorFor returns the selection strategy for a provider.
func SelectorFor(provider feed.Provider) (StreamSelector, bool) {
	s, ok := selectors[provider]
	return s, ok
}

func validatePreference(format feed.Format, quality feed.Quality) error {
	if _, err := feed.ParseFormat(string(format)); err != nil {
		return invalidUsagef("invalid format preference: %v", err)
	}
	if _, err := feed.ParseQuality(string(quality)); err != nil {
		return invalidUsagef("invalid quality preference: %v", err)
	}
	return nil
}

// rankedCopy sorts a copy of the pool best-first using the given ordering.
func rankedCopy(pool []extractor.CandidateStream, better func(a, b extractor.CandidateStream) bool) []extractor.CandidateStream {
	ranked := make([]extractor.CandidateStream, len(pool))
	copy(ranked, pool)
	sort.SliceStable(ranked, func(i, j int) bool {
		return better(ranked[i], ranked[j])
	})
	return ranked
}

// youtubeSelector implements the selection rules for YouTube feeds:
// video wants a muxed mp4 rendition and ranks by resolution, audio wants
// an audio-only stream and ranks by bitrate. High quality takes the best
// candidate of the ranked set, low quality the worst. A fragment-base
// location on the chosen candidate wins over its direct URL.
type youtubeSelector struct{}

func (youtubeSelector) SelectStream(candidates []extractor.CandidateStream, format feed.Format, quality feed.Quality) (string, error) {
	if err := validatePreference(format, quality); err != nil {
		return "", err
	}

	var pool []extractor.CandidateStream
	if format == feed.VideoFormat {
		// Muxed renditions only; video-only DASH streams are considered
		// solely when no candidate carries an audio track.
		pool = lo.Filter(candidates, func(c extractor.CandidateStream, _ int) bool {
			return c.Ext == "mp4" && (c.Width > 0 || c.Height > 0) && c.AudioChannels > 0
		})
		if len(pool) == 0 {
			pool = lo.Filter(candidates, func(c extractor.CandidateStream, _ int) bool {
				return c.Ext == "mp4" && (c.Width > 0 || c.Height > 0)
			})
		}
		pool = rankedCopy(pool, func(a, b extractor.CandidateStream) bool {
			if a.Height != b.Height {
				return a.Height > b.Height
			}
			return a.Bitrate > b.Bitrate
		})
	} else {
		pool = lo.Filter(candidates, func(c extractor.CandidateStream, _ int) bool {
			return c.AudioChannels > 0 && c.Width == 0 && c.Height == 0
		})
		pool = rankedCopy(pool, func(a, b extractor.CandidateStream) bool {
			return a.Bitrate > b.Bitrate
		})
	}

	if len(pool) == 0 {
		return "", wrapCategory(CategoryResolutionFailed,
			fmt.Errorf("no %s %s stream found", quality, format))
	}

	chosen := pool[0]
	if quality == feed.LowQuality {
		chosen = pool[len(pool)-1]
	}
	return chosen.Location(), nil
}

// vimeoSelector implements the selection rules for Vimeo feeds: only the
// progressive mp4 renditions (format ids with the http- prefix) are
// directly fetchable, ordered by width. High quality takes the widest,
// low quality the narrowest.
type vimeoSelector struct{}

func (vimeoSelector) SelectStream(candidates []extractor.CandidateStream, format feed.Format, quality feed.Quality) (string, error) {
	if err := validatePreference(format, quality); err != nil {
		return "", err
	}

	pool := lo.Filter(candidates, func(c extractor.CandidateStream, _ int) bool {
		return c.Ext == "mp4" && strings.HasPrefix(c.FormatID, "http-")
	})
	if len(pool) == 0 {
		return "", wrapCategory(CategoryResolutionFailed,
			fmt.Errorf("no progressive mp4 stream found"))
	}

	ranked := rankedCopy(pool, func(a, b extractor.CandidateStream) bool {
		return a.Width > b.Width
	})
	chosen := ranked[0]
	if quality == feed.LowQuality {
		chosen = ranked[len(ranked)-1]
	}
	return chosen.URL, nil
}
