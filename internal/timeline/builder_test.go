package timeline

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"math"
	"testing"
)

const epsilon = 1e-9

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func f64(v float64) *float64 { return &v }
func intp(v int) *int        { return &v }

func almostEqual(a, b float64) bool {
	return math.Abs(a-b) < 1e-6
}

func sumLengths(track Track) float64 {
	total := 0.0
	for _, c := range track.Clips {
		total += c.Length
	}
	return total
}

type fakeProber struct {
	duration float64
	err      error
	calls    []string
}

func (p *fakeProber) ProbeDuration(ctx context.Context, url string) (float64, error) {
	p.calls = append(p.calls, url)
	return p.duration, p.err
}

func TestBuild_EndToEndUniform(t *testing.T) {
	req := &Request{
		MediaItems: []MediaItem{
			{URL: "a", Type: MediaImage},
			{URL: "b", Type: MediaImage},
		},
		AudioURL:      "https://cdn.example.com/voice.mp3",
		AudioDuration: f64(10),
	}

	d := ResolveDurations(context.Background(), req, nil, nil)
	tl := NewBuilder(Options{}, testLogger()).Build(req, d)

	if len(tl.Tracks) != 2 {
		t.Fatalf("tracks = %d, want 2", len(tl.Tracks))
	}

	media := tl.Tracks[0]
	if len(media.Clips) != 2 {
		t.Fatalf("media clips = %d, want 2", len(media.Clips))
	}
	for i, want := range []float64{0, 5} {
		c := media.Clips[i]
		if c.Start != want || c.Length != 5 {
			t.Errorf("media clip %d = start %v length %v, want start %v length 5", i, c.Start, c.Length, want)
		}
		if c.Fit != "cover" {
			t.Errorf("media clip %d fit = %q, want cover", i, c.Fit)
		}
		if c.Effect != "" {
			t.Errorf("media clip %d effect = %q, want none", i, c.Effect)
		}
	}

	voice := tl.Tracks[1]
	if len(voice.Clips) != 1 {
		t.Fatalf("voiceover clips = %d, want 1", len(voice.Clips))
	}
	vc := voice.Clips[0]
	if vc.Length != 10 || vc.Start != 0 {
		t.Errorf("voiceover clip = start %v length %v, want 0/10", vc.Start, vc.Length)
	}
	if vc.Asset.Type != "audio" || vc.Asset.Src != req.AudioURL {
		t.Errorf("voiceover asset = %+v", vc.Asset)
	}
	if vc.Asset.Volume == nil || *vc.Asset.Volume != 0.8 {
		t.Errorf("voiceover volume = %v, want 0.8", vc.Asset.Volume)
	}
}

func TestBuild_TrackOrder(t *testing.T) {
	req := &Request{
		MediaItems:                []MediaItem{{URL: "a", Type: MediaImage}},
		AudioURL:                  "voice.mp3",
		AudioDuration:             f64(40),
		SubtitlesURL:              "subs.srt",
		DustOverlay:               true,
		SnowOverlay:               true,
		ScreenDisplacementOverlay: true,
		FireOverlay:               true,
		UseCustomMusic:            true,
		CustomMusicFiles:          []MusicFile{{URL: "music.mp3"}},
	}

	b := NewBuilder(Options{}, testLogger())
	tl := b.Build(req, ResolveDurations(context.Background(), req, nil, nil))

	if len(tl.Tracks) != 8 {
		t.Fatalf("tracks = %d, want 8", len(tl.Tracks))
	}

	for i, kind := range OverlayKinds {
		first := tl.Tracks[i].Clips[0]
		if first.Asset.Src != b.OverlaySource(kind) {
			t.Errorf("track %d src = %q, want %s overlay", i, first.Asset.Src, kind)
		}
		if first.Opacity == nil || *first.Opacity != OverlayOpacity(kind) {
			t.Errorf("track %d opacity = %v, want %v", i, first.Opacity, OverlayOpacity(kind))
		}
	}

	if got := tl.Tracks[4].Clips[0].Asset.Type; got != "caption" {
		t.Errorf("track 4 type = %q, want caption", got)
	}
	if got := tl.Tracks[5].Clips[0].Asset.Src; got != "a" {
		t.Errorf("track 5 src = %q, want media", got)
	}
	if got := tl.Tracks[6].Clips[0].Asset.Src; got != "voice.mp3" {
		t.Errorf("track 6 src = %q, want voiceover", got)
	}
	if got := tl.Tracks[7].Clips[0].Asset.Src; got != "music.mp3" {
		t.Errorf("track 7 src = %q, want music", got)
	}
}

func TestBuild_OverlaySourceOverride(t *testing.T) {
	b := NewBuilder(Options{OverlaySources: map[OverlayKind]string{OverlaySnow: "https://mirror/snow.mp4"}}, nil)

	if got := b.OverlaySource(OverlaySnow); got != "https://mirror/snow.mp4" {
		t.Errorf("snow source = %q, want override", got)
	}
	if got := b.OverlaySource(OverlayDust); got != DefaultOverlaySources[OverlayDust] {
		t.Errorf("dust source = %q, want default", got)
	}
}

func TestBuild_NoVoiceover(t *testing.T) {
	req := &Request{
		MediaItems:    []MediaItem{{URL: "a", Type: MediaVideo}},
		AudioDuration: f64(12),
	}

	tl := NewBuilder(Options{}, nil).Build(req, ResolveDurations(context.Background(), req, nil, nil))

	if len(tl.Tracks) != 1 {
		t.Fatalf("tracks = %d, want only the media track", len(tl.Tracks))
	}
}

func TestBuild_CompressedAudioFallback(t *testing.T) {
	req := &Request{
		MediaItems:         []MediaItem{{URL: "a", Type: MediaImage}},
		CompressedAudioURL: "voice-small.mp3",
		AudioDuration:      f64(12),
	}

	tl := NewBuilder(Options{}, nil).Build(req, ResolveDurations(context.Background(), req, nil, nil))

	if len(tl.Tracks) != 2 {
		t.Fatalf("tracks = %d, want 2", len(tl.Tracks))
	}
	if got := tl.Tracks[1].Clips[0].Asset.Src; got != "voice-small.mp3" {
		t.Errorf("voiceover src = %q, want compressed url", got)
	}
}

func TestBuild_InvalidMusicTracksSkipped(t *testing.T) {
	req := &Request{
		MediaItems:          []MediaItem{{URL: "a", Type: MediaImage}},
		AudioURL:            "voice.mp3",
		AudioDuration:       f64(20),
		UseCustomMusic:      true,
		SelectedMusicTracks: []MusicTrack{{Title: "", PreviewURL: ""}},
	}

	baseline := &Request{
		MediaItems:    req.MediaItems,
		AudioURL:      req.AudioURL,
		AudioDuration: req.AudioDuration,
	}

	b := NewBuilder(Options{}, testLogger())
	got := b.Build(req, ResolveDurations(context.Background(), req, nil, nil))
	want := b.Build(baseline, ResolveDurations(context.Background(), baseline, nil, nil))

	gotJSON, _ := json.Marshal(got)
	wantJSON, _ := json.Marshal(want)
	if string(gotJSON) != string(wantJSON) {
		t.Fatalf("timeline with invalid music = %s, want %s", gotJSON, wantJSON)
	}
}

func TestBuild_MusicRequiresOptIn(t *testing.T) {
	req := &Request{
		MediaItems:         []MediaItem{{URL: "a", Type: MediaImage}},
		AudioURL:           "voice.mp3",
		AudioDuration:      f64(20),
		SelectedMusicTrack: &MusicTrack{PreviewURL: "m.mp3", Title: "M"},
	}

	tl := NewBuilder(Options{}, nil).Build(req, ResolveDurations(context.Background(), req, nil, nil))
	if len(tl.Tracks) != 2 {
		t.Fatalf("tracks = %d, want 2 when useCustomMusic is false", len(tl.Tracks))
	}
}

func TestBuild_JSONShape(t *testing.T) {
	req := &Request{
		MediaItems:    []MediaItem{{URL: "a", Type: MediaAnimation}},
		AudioURL:      "voice.mp3",
		AudioDuration: f64(5),
		DustOverlay:   true,
		ZoomEffect:    true,
	}

	tl := NewBuilder(Options{}, nil).Build(req, ResolveDurations(context.Background(), req, nil, nil))
	raw, err := json.Marshal(tl)
	if err != nil {
		t.Fatalf("json.Marshal() error = %v", err)
	}

	var doc struct {
		Tracks []struct {
			Clips []map[string]interface{} `json:"clips"`
		} `json:"tracks"`
	}
	if err := json.Unmarshal(raw, &doc); err != nil {
		t.Fatalf("json.Unmarshal() error = %v", err)
	}

	overlay := doc.Tracks[0].Clips[0]
	asset := overlay["asset"].(map[string]interface{})
	if v, ok := asset["volume"]; !ok || v.(float64) != 0 {
		t.Errorf("overlay asset volume = %v, want explicit 0", asset["volume"])
	}

	media := doc.Tracks[1].Clips[0]
	if media["effect"] != EffectZoomIn {
		t.Errorf("media effect = %v, want %s", media["effect"], EffectZoomIn)
	}
	if _, ok := media["opacity"]; ok {
		t.Error("media clip should not carry opacity")
	}

	voice := doc.Tracks[2].Clips[0]
	if _, ok := voice["fit"]; ok {
		t.Error("audio clip should not carry fit")
	}
}

func TestResolveDurations(t *testing.T) {
	tests := []struct {
		name       string
		req        *Request
		prober     *fakeProber
		wantTotal  float64
		wantPer    float64
		wantSeg    bool
		wantSource string
	}{
		{
			name: "segmented sums timings",
			req: &Request{
				MediaItems:     []MediaItem{{URL: "a"}, {URL: "b"}},
				SegmentTimings: []SegmentTiming{{Duration: 3.5}, {Duration: 6.5}},
				AudioDuration:  f64(99),
			},
			wantTotal:  10,
			wantSeg:    true,
			wantSource: SourceSegments,
		},
		{
			name: "audio duration from request",
			req: &Request{
				MediaItems:    []MediaItem{{URL: "a"}, {URL: "b"}, {URL: "c"}, {URL: "d"}},
				AudioDuration: f64(20),
				AudioURL:      "voice.mp3",
			},
			prober:     &fakeProber{duration: 42},
			wantTotal:  20,
			wantPer:    5,
			wantSource: SourceRequest,
		},
		{
			name: "zero audio duration falls through to probe",
			req: &Request{
				MediaItems:    []MediaItem{{URL: "a"}, {URL: "b"}},
				AudioDuration: f64(0),
				AudioURL:      "voice.mp3",
			},
			prober:     &fakeProber{duration: 42},
			wantTotal:  42,
			wantPer:    21,
			wantSource: SourceProbe,
		},
		{
			name: "unreachable audio defaults to 300",
			req: &Request{
				MediaItems: []MediaItem{{URL: "a"}, {URL: "b"}, {URL: "c"}},
				AudioURL:   "https://unreachable.invalid/voice.mp3",
			},
			prober:     &fakeProber{err: errors.New("connection refused")},
			wantTotal:  300,
			wantPer:    100,
			wantSource: SourceDefault,
		},
		{
			name: "non-positive probe result defaults to 300",
			req: &Request{
				MediaItems: []MediaItem{{URL: "a"}},
				AudioURL:   "voice.mp3",
			},
			prober:     &fakeProber{duration: 0},
			wantTotal:  300,
			wantPer:    300,
			wantSource: SourceDefault,
		},
		{
			name:       "no media items guards division",
			req:        &Request{AudioDuration: f64(30)},
			wantTotal:  30,
			wantPer:    0,
			wantSource: SourceRequest,
		},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			var prober DurationProber
			if tc.prober != nil {
				prober = tc.prober
			}
			d := ResolveDurations(context.Background(), tc.req, prober, testLogger())

			if !almostEqual(d.Total, tc.wantTotal) {
				t.Errorf("Total = %v, want %v", d.Total, tc.wantTotal)
			}
			if !almostEqual(d.PerItem, tc.wantPer) {
				t.Errorf("PerItem = %v, want %v", d.PerItem, tc.wantPer)
			}
			if d.Segmented != tc.wantSeg {
				t.Errorf("Segmented = %v, want %v", d.Segmented, tc.wantSeg)
			}
			if d.Source != tc.wantSource {
				t.Errorf("Source = %q, want %q", d.Source, tc.wantSource)
			}
		})
	}
}

func TestResolveDurations_ProbesCompressedURL(t *testing.T) {
	prober := &fakeProber{duration: 12}
	req := &Request{CompressedAudioURL: "small.mp3"}

	ResolveDurations(context.Background(), req, prober, nil)

	if len(prober.calls) != 1 || prober.calls[0] != "small.mp3" {
		t.Fatalf("probe calls = %v, want [small.mp3]", prober.calls)
	}
}

func TestResolveDurations_NoProberDefaults(t *testing.T) {
	req := &Request{AudioURL: "voice.mp3", MediaItems: []MediaItem{{URL: "a"}}}
	d := ResolveDurations(context.Background(), req, nil, nil)
	if d.Total != DefaultTotalDuration {
		t.Fatalf("Total = %v, want %v", d.Total, DefaultTotalDuration)
	}
}
