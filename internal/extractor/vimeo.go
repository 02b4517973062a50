package extractor

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"path"
	"time"

	"github.com/feedkit/resolver/internal/feed"
)

const vimeoConfigURL = "https://player.vimeo.com/video/%s/config"

// Vimeo extracts candidate streams from the Vimeo player configuration
// endpoint, which lists the progressive (direct HTTP) renditions and the
// HLS delivery CDNs for a clip.
type Vimeo struct {
	httpClient *http.Client
	configURL  string
}

// NewVimeo builds the extractor with the shared retrying HTTP client.
func NewVimeo(timeout time.Duration) *Vimeo {
	return &Vimeo{httpClient: newHTTPClient(timeout), configURL: vimeoConfigURL}
}

// NewVimeoWithClient builds the extractor around an existing HTTP client
// and config endpoint, for tests.
func NewVimeoWithClient(client *http.Client, configURL string) *Vimeo {
	if configURL == "" {
		configURL = vimeoConfigURL
	}
	return &Vimeo{httpClient: client, configURL: configURL}
}

func (e *Vimeo) Provider() feed.Provider {
	return feed.ProviderVimeo
}

type vimeoConfig struct {
	Request struct {
		Files struct {
			Progressive []struct {
				Quality string `json:"quality"`
				Width   int    `json:"width"`
				Height  int    `json:"height"`
				Mime    string `json:"mime"`
				URL     string `json:"url"`
			} `json:"progressive"`
			HLS struct {
				DefaultCDN string `json:"default_cdn"`
				CDNs       map[string]struct {
					URL string `json:"url"`
				} `json:"cdns"`
			} `json:"hls"`
		} `json:"files"`
	} `json:"request"`
}

// Extract fetches the player config for the clip behind the canonical URL
// and maps each progressive rendition to an http-prefixed mp4 candidate.
func (e *Vimeo) Extract(ctx context.Context, canonical string) ([]CandidateStream, error) {
	videoID, err := vimeoVideoID(canonical)
	if err != nil {
		return nil, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, fmt.Sprintf(e.configURL, videoID), nil)
	if err != nil {
		return nil, fmt.Errorf("building config request: %w", err)
	}
	resp, err := e.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("fetching player config: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("player config returned status %d", resp.StatusCode)
	}

	var config vimeoConfig
	if err := json.NewDecoder(resp.Body).Decode(&config); err != nil {
		return nil, fmt.Errorf("decoding player config: %w", err)
	}

	files := config.Request.Files
	candidates := make([]CandidateStream, 0, len(files.Progressive)+1)
	for _, p := range files.Progressive {
		ext := mimeToExt(p.Mime)
		if ext == "bin" {
			ext = "mp4"
		}
		candidates = append(candidates, CandidateStream{
			Ext:      ext,
			FormatID: "http-" + p.Quality,
			MimeType: p.Mime,
			Width:    p.Width,
			Height:   p.Height,
			URL:      p.URL,
		})
	}
	if cdn, ok := files.HLS.CDNs[files.HLS.DefaultCDN]; ok && cdn.URL != "" {
		candidates = append(candidates, CandidateStream{
			Ext:             "mp4",
			FormatID:        "hls-" + files.HLS.DefaultCDN,
			FragmentBaseURL: cdn.URL,
		})
	}
	return candidates, nil
}

// vimeoVideoID pulls the numeric clip id out of a canonical
// https://vimeo.com/{id} URL.
func vimeoVideoID(canonical string) (string, error) {
	parsed, err := url.Parse(canonical)
	if err != nil {
		return "", fmt.Errorf("parsing vimeo URL: %w", err)
	}
	id := path.Base(parsed.Path)
	if id == "" || id == "." || id == "/" {
		return "", fmt.Errorf("no video id in vimeo URL %q", canonical)
	}
	return id, nil
}
