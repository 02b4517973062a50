// Package feed holds the domain types describing a configured feed: which
// provider it points at, the preferred media format and quality, and the
// account tier controlling quota enforcement.
package feed

import (
	"fmt"
	"time"
)

// Provider identifies the external video host a feed references.
type Provider string

const (
	ProviderYoutube = Provider("youtube")
	ProviderVimeo   = Provider("vimeo")
)

// Format selects between video and audio-only streams.
type Format string

const (
	VideoFormat = Format("video")
	AudioFormat = Format("audio")
)

// Quality selects between the best and worst matching stream.
type Quality string

const (
	HighQuality = Quality("high")
	LowQuality  = Quality("low")
)

// Feature levels. Zero is the anonymous/free tier and is quota-limited;
// anything above is unlimited.
const (
	DefaultFeatures = iota
	ExtendedFeatures
	PodcasterFeature
)

// Metadata is the per-feed configuration consulted on every resolution.
// It is read fresh on each call; the resolver never caches it.
type Metadata struct {
	Provider     Provider
	Format       Format
	Quality      Quality
	FeatureLevel int
	LastAccess   time.Time
}

// ParseProvider validates a stored provider value.
func ParseProvider(s string) (Provider, error) {
	switch Provider(s) {
	case ProviderYoutube, ProviderVimeo:
		return Provider(s), nil
	}
	return "", fmt.Errorf("unknown provider %q", s)
}

// ParseFormat validates a stored format value. Unrecognized values are an
// error, never a silent default.
func ParseFormat(s string) (Format, error) {
	switch Format(s) {
	case VideoFormat, AudioFormat:
		return Format(s), nil
	}
	return "", fmt.Errorf("unknown format %q", s)
}

// ParseQuality validates a stored quality value.
func ParseQuality(s string) (Quality, error) {
	switch Quality(s) {
	case HighQuality, LowQuality:
		return Quality(s), nil
	}
	return "", fmt.Errorf("unknown quality %q", s)
}

// Validate checks that a metadata record carries only recognized enum
// values and a sane feature level.
func (m Metadata) Validate() error {
	if _, err := ParseProvider(string(m.Provider)); err != nil {
		return err
	}
	if _, err := ParseFormat(string(m.Format)); err != nil {
		return err
	}
	if _, err := ParseQuality(string(m.Quality)); err != nil {
		return err
	}
	if m.FeatureLevel < 0 {
		return fmt.Errorf("negative feature level %d", m.FeatureLevel)
	}
	return nil
}
