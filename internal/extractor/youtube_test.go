package extractor

import (
	"context"
	"errors"
	"testing"

	"github.com/kkdai/youtube/v2"

	"github.com/feedkit/resolver/internal/feed"
)

type fakeYouTubeClient struct {
	video *youtube.Video
	err   error
	urls  []string
}

func (f *fakeYouTubeClient) GetVideoContext(_ context.Context, url string) (*youtube.Video, error) {
	f.urls = append(f.urls, url)
	if f.err != nil {
		return nil, f.err
	}
	return f.video, nil
}

func TestYouTubeExtractMapsFormats(t *testing.T) {
	client := &fakeYouTubeClient{
		video: &youtube.Video{
			ID: "xyz123",
			Formats: youtube.FormatList{
				{
					ItagNo:        22,
					MimeType:      `video/mp4; codecs="avc1.64001F, mp4a.40.2"`,
					Width:         1280,
					Height:        720,
					Bitrate:       2_000_000,
					AudioChannels: 2,
					URL:           "https://yt.example/720.mp4",
				},
				{
					ItagNo:         140,
					MimeType:       `audio/mp4; codecs="mp4a.40.2"`,
					AverageBitrate: 128_000,
					AudioChannels:  2,
					URL:            "https://yt.example/128.m4a",
				},
			},
			HLSManifestURL: "https://yt.example/master.m3u8",
		},
	}

	e := NewYouTubeWithClient(client)
	if e.Provider() != feed.ProviderYoutube {
		t.Fatalf("wrong provider")
	}

	candidates, err := e.Extract(context.Background(), "https://youtube.com/watch?v=xyz123")
	if err != nil {
		t.Fatalf("Extract failed: %v", err)
	}
	if len(client.urls) != 1 || client.urls[0] != "https://youtube.com/watch?v=xyz123" {
		t.Fatalf("expected canonical URL to be passed through, got %v", client.urls)
	}

	if len(candidates) != 3 {
		t.Fatalf("expected 2 formats + 1 hls candidate, got %d", len(candidates))
	}

	video := candidates[0]
	if video.Ext != "mp4" || video.FormatID != "22" || video.Width != 1280 || video.Bitrate != 2_000_000 {
		t.Fatalf("unexpected video mapping: %+v", video)
	}

	audio := candidates[1]
	if audio.Ext != "mp4" || audio.Bitrate != 128_000 || audio.Width != 0 {
		t.Fatalf("unexpected audio mapping: %+v", audio)
	}

	hls := candidates[2]
	if hls.FormatID != "hls" || hls.FragmentBaseURL != "https://yt.example/master.m3u8" {
		t.Fatalf("unexpected hls mapping: %+v", hls)
	}
}

func TestYouTubeExtractError(t *testing.T) {
	client := &fakeYouTubeClient{err: errors.New("video unavailable")}
	e := NewYouTubeWithClient(client)

	if _, err := e.Extract(context.Background(), "https://youtube.com/watch?v=gone"); err == nil {
		t.Fatalf("expected error to propagate")
	}
}

func TestMimeToExt(t *testing.T) {
	cases := []struct {
		in   string
		want string
	}{
		{`video/mp4; codecs="avc1"`, "mp4"},
		{"audio/webm", "webm"},
		{"video/3gpp", "3gp"},
		{"garbage", "bin"},
	}
	for _, tc := range cases {
		if got := mimeToExt(tc.in); got != tc.want {
			t.Fatalf("mimeToExt(%q) = %q, want %q", tc.in, got, tc.want)
		}
	}
}
