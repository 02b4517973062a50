package feed

import "testing"

func TestParseProvider(t *testing.T) {
	cases := []struct {
		in      string
		want    Provider
		wantErr bool
	}{
		{"youtube", ProviderYoutube, false},
		{"vimeo", ProviderVimeo, false},
		{"dailymotion", "", true},
		{"", "", true},
		{"YouTube", "", true},
	}
	for _, tc := range cases {
		got, err := ParseProvider(tc.in)
		if tc.wantErr {
			if err == nil {
				t.Fatalf("ParseProvider(%q): expected error", tc.in)
			}
			continue
		}
		if err != nil {
			t.Fatalf("ParseProvider(%q) failed: %v", tc.in, err)
		}
		if got != tc.want {
			t.Fatalf("ParseProvider(%q) = %q, want %q", tc.in, got, tc.want)
		}
	}
}

func TestParseFormatAndQuality(t *testing.T) {
	if _, err := ParseFormat("video"); err != nil {
		t.Fatalf("video should parse: %v", err)
	}
	if _, err := ParseFormat("audio"); err != nil {
		t.Fatalf("audio should parse: %v", err)
	}
	if _, err := ParseFormat("hologram"); err == nil {
		t.Fatalf("expected error for unknown format")
	}
	if _, err := ParseQuality("high"); err != nil {
		t.Fatalf("high should parse: %v", err)
	}
	if _, err := ParseQuality("low"); err != nil {
		t.Fatalf("low should parse: %v", err)
	}
	if _, err := ParseQuality("medium"); err == nil {
		t.Fatalf("expected error for unknown quality")
	}
}

func TestMetadataValidate(t *testing.T) {
	valid := Metadata{Provider: ProviderYoutube, Format: VideoFormat, Quality: HighQuality}
	if err := valid.Validate(); err != nil {
		t.Fatalf("valid metadata rejected: %v", err)
	}

	cases := []Metadata{
		{Provider: "dailymotion", Format: VideoFormat, Quality: HighQuality},
		{Provider: ProviderYoutube, Format: "hologram", Quality: HighQuality},
		{Provider: ProviderYoutube, Format: VideoFormat, Quality: "ultra"},
		{Provider: ProviderYoutube, Format: VideoFormat, Quality: HighQuality, FeatureLevel: -1},
	}
	for i, meta := range cases {
		if err := meta.Validate(); err == nil {
			t.Fatalf("case %d: expected validation error for %+v", i, meta)
		}
	}
}
