package timeline

import "log/slog"

// Options configures a Builder.
type Options struct {
	// OverlaySources overrides the overlay asset URLs per kind.
	OverlaySources map[OverlayKind]string
}

// Builder assembles timelines. It holds configuration only, so a single
// Builder can serve concurrent requests.
type Builder struct {
	overlays map[OverlayKind]string
	logger   *slog.Logger
}

// NewBuilder creates a Builder. logger may be nil.
func NewBuilder(opts Options, logger *slog.Logger) *Builder {
	overlays := make(map[OverlayKind]string, len(DefaultOverlaySources))
	for kind, src := range DefaultOverlaySources {
		overlays[kind] = src
	}
	for kind, src := range opts.OverlaySources {
		if src != "" {
			overlays[kind] = src
		}
	}
	return &Builder{overlays: overlays, logger: logger}
}

// OverlaySource returns the asset URL used for an overlay kind.
func (b *Builder) OverlaySource(kind OverlayKind) string {
	return b.overlays[kind]
}

// Build assembles the timeline for req against the resolved durations. Track
// order is overlays, captions, media, voiceover, music.
func (b *Builder) Build(req *Request, d Durations) *Timeline {
	tracks := make([]Track, 0, len(OverlayKinds)+4)

	for _, kind := range OverlayKinds {
		if req.overlayEnabled(kind) {
			tracks = append(tracks, overlayTrack(b.overlays[kind], OverlayOpacity(kind), d.Total))
		}
	}

	if req.SubtitlesURL != "" {
		tracks = append(tracks, captionTrack(req.SubtitlesURL, ResolveCaptionStyle(req), d.Total))
	}

	tracks = append(tracks, mediaTrack(req, d))

	if track, ok := voiceoverTrack(req, d.Total); ok {
		tracks = append(tracks, track)
	} else if b.logger != nil {
		b.logger.Warn("no voiceover url, building timeline without narration")
	}

	if track, ok := musicTrack(req, d.Total, b.logger); ok {
		tracks = append(tracks, track)
	}

	if b.logger != nil {
		b.logger.Debug("timeline built",
			"tracks", len(tracks),
			"total_s", d.Total,
			"segmented", d.Segmented,
			"duration_source", d.Source,
		)
	}
	return &Timeline{Tracks: tracks}
}

// voiceoverTrack places the narration over the whole timeline.
func voiceoverTrack(req *Request, total float64) (Track, bool) {
	src := req.VoiceoverURL()
	if src == "" {
		return Track{}, false
	}
	volume := DefaultVoiceoverVolume
	if req.VoiceoverVolume != nil {
		volume = *req.VoiceoverVolume
	}
	return Track{Clips: []Clip{audioClip(src, 0, total, volume)}}, true
}
