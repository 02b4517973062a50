package extractor

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"github.com/kkdai/youtube/v2"

	"github.com/feedkit/resolver/internal/feed"
)

// YouTubeClient defines the interface for fetching video metadata from the
// YouTube data API. This decouples the extractor from the concrete
// youtube.Client type, enabling testing with fakes.
type YouTubeClient interface {
	GetVideoContext(ctx context.Context, url string) (*youtube.Video, error)
}

// YouTube extracts candidate streams through the YouTube innertube API.
type YouTube struct {
	client YouTubeClient
}

// NewYouTube builds the extractor with a real youtube.Client. The Android
// client profile is used because it exposes directly fetchable stream URLs.
func NewYouTube(timeout time.Duration) *YouTube {
	youtube.DefaultClient = youtube.AndroidClient
	return &YouTube{
		client: &youtube.Client{HTTPClient: newHTTPClient(timeout)},
	}
}

// NewYouTubeWithClient builds the extractor around an existing client.
func NewYouTubeWithClient(client YouTubeClient) *YouTube {
	return &YouTube{client: client}
}

func (e *YouTube) Provider() feed.Provider {
	return feed.ProviderYoutube
}

// Extract fetches video metadata and maps every reported format to a
// candidate stream. An HLS manifest, when present, becomes an extra
// fragment-base candidate.
func (e *YouTube) Extract(ctx context.Context, url string) ([]CandidateStream, error) {
	video, err := e.client.GetVideoContext(ctx, url)
	if err != nil {
		return nil, fmt.Errorf("fetching video metadata: %w", err)
	}

	candidates := make([]CandidateStream, 0, len(video.Formats)+1)
	for _, f := range video.Formats {
		candidates = append(candidates, CandidateStream{
			Ext:           mimeToExt(f.MimeType),
			FormatID:      strconv.Itoa(f.ItagNo),
			MimeType:      f.MimeType,
			Width:         f.Width,
			Height:        f.Height,
			Bitrate:       bitrateOf(f),
			AudioChannels: f.AudioChannels,
			URL:           f.URL,
		})
	}
	if video.HLSManifestURL != "" {
		candidates = append(candidates, CandidateStream{
			Ext:             "mp4",
			FormatID:        "hls",
			FragmentBaseURL: video.HLSManifestURL,
		})
	}
	return candidates, nil
}

func bitrateOf(f youtube.Format) int {
	if f.Bitrate > 0 {
		return f.Bitrate
	}
	return f.AverageBitrate
}
