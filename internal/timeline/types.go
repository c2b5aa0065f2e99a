// Package timeline assembles the declarative render timeline (tracks of
// time-positioned clips) from a video-creation request.
//
// Everything in this package is pure: no I/O happens while a timeline is
// built. Duration probing is the only collaborator and it is injected through
// the DurationProber interface and used before any track is built.
package timeline

// Media item types accepted in a request.
const (
	MediaImage     = "image"
	MediaVideo     = "video"
	MediaAnimation = "animation"
)

// Text transforms applied to subtitle files.
const (
	TransformNone      = "none"
	TransformUppercase = "uppercase"
)

type MediaItem struct {
	URL  string `json:"url"`
	Type string `json:"type"`
}

type SegmentTiming struct {
	Duration float64 `json:"duration"`
}

// MusicTrack is a catalogue track picked in the music library.
type MusicTrack struct {
	PreviewURL string   `json:"preview_url"`
	Title      string   `json:"title"`
	Artist     string   `json:"artist,omitempty"`
	Duration   *float64 `json:"duration,omitempty"`
	Order      *int     `json:"order,omitempty"`
}

// MusicFile is a music file uploaded by the user.
type MusicFile struct {
	URL      string   `json:"url"`
	Name     string   `json:"name,omitempty"`
	Duration *float64 `json:"duration,omitempty"`
}

// PublishOptions asks for the finished render to be published. The builder
// ignores it.
type PublishOptions struct {
	Title         string   `json:"title"`
	Description   string   `json:"description,omitempty"`
	Tags          []string `json:"tags,omitempty"`
	PrivacyStatus string   `json:"privacyStatus,omitempty"`
}

// Request describes one render job as submitted by the editor UI.
type Request struct {
	Title string `json:"title,omitempty"`

	MediaItems          []MediaItem     `json:"mediaItems"`
	OrderedContentURLs  []string        `json:"orderedContentUrls,omitempty"`
	OrderedContentTypes []string        `json:"orderedContentTypes,omitempty"`
	SegmentTimings      []SegmentTiming `json:"segmentTimings,omitempty"`

	AudioURL           string   `json:"audioUrl,omitempty"`
	CompressedAudioURL string   `json:"compressedAudioUrl,omitempty"`
	AudioDuration      *float64 `json:"audioDuration,omitempty"`

	SubtitlesURL  string   `json:"subtitlesUrl,omitempty"`
	FontFamily    string   `json:"fontFamily,omitempty"`
	FontSize      *int     `json:"fontSize,omitempty"`
	FontColor     string   `json:"fontColor,omitempty"`
	FontWeight    string   `json:"fontWeight,omitempty"`
	StrokeWidth   *float64 `json:"strokeWidth,omitempty"`
	TextTransform string   `json:"textTransform,omitempty"`

	DustOverlay               bool `json:"dustOverlay"`
	SnowOverlay               bool `json:"snowOverlay"`
	ScreenDisplacementOverlay bool `json:"screenDisplacementOverlay"`
	FireOverlay               bool `json:"fireOverlay"`

	UseCustomMusic      bool         `json:"useCustomMusic"`
	SelectedMusicTracks []MusicTrack `json:"selectedMusicTracks,omitempty"`
	SelectedMusicTrack  *MusicTrack  `json:"selectedMusicTrack,omitempty"`
	CustomMusicFiles    []MusicFile  `json:"customMusicFiles,omitempty"`

	VoiceoverVolume *float64 `json:"voiceoverVolume,omitempty"`
	MusicVolume     *float64 `json:"musicVolume,omitempty"`

	ZoomEffect bool `json:"zoomEffect"`

	Publish *PublishOptions `json:"publish,omitempty"`
}

// VoiceoverURL returns the authoritative voiceover URL, falling back to the
// compressed rendition.
func (r *Request) VoiceoverURL() string {
	if r.AudioURL != "" {
		return r.AudioURL
	}
	return r.CompressedAudioURL
}

// Timeline is the document handed to the external renderer.
type Timeline struct {
	Tracks []Track `json:"tracks"`
}

type Track struct {
	Clips []Clip `json:"clips"`
}

type Clip struct {
	Asset   Asset    `json:"asset"`
	Start   float64  `json:"start"`
	Length  float64  `json:"length"`
	Fit     string   `json:"fit,omitempty"`
	Opacity *float64 `json:"opacity,omitempty"`
	Effect  string   `json:"effect,omitempty"`
}

// End returns the time the clip stops playing.
func (c Clip) End() float64 {
	return c.Start + c.Length
}

// Asset is the union of the renderer asset kinds used here (image, video,
// audio, caption). Fields irrelevant to a kind stay empty and are omitted.
type Asset struct {
	Type       string             `json:"type"`
	Src        string             `json:"src"`
	Volume     *float64           `json:"volume,omitempty"`
	Font       *CaptionFont       `json:"font,omitempty"`
	Background *CaptionBackground `json:"background,omitempty"`
	Margin     *CaptionMargin     `json:"margin,omitempty"`
}

type CaptionFont struct {
	Family      string  `json:"family"`
	Size        int     `json:"size"`
	Color       string  `json:"color"`
	Weight      string  `json:"weight"`
	Stroke      string  `json:"stroke"`
	StrokeWidth float64 `json:"strokeWidth"`
}

type CaptionBackground struct {
	Color   string  `json:"color"`
	Opacity float64 `json:"opacity"`
	Padding int     `json:"padding"`
}

type CaptionMargin struct {
	Top   float64 `json:"top"`
	Left  float64 `json:"left"`
	Right float64 `json:"right"`
}

// ClipCount returns the number of clips across all tracks.
func (t *Timeline) ClipCount() int {
	n := 0
	for _, tr := range t.Tracks {
		n += len(tr.Clips)
	}
	return n
}

func float64Ptr(v float64) *float64 {
	return &v
}
