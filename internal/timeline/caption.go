package timeline

import (
	"regexp"
	"strings"
)

// Caption defaults.
const (
	DefaultFontFamily    = "Montserrat ExtraBold"
	FallbackFontFamily   = "Montserrat"
	DefaultFontSize      = 24
	DefaultFontColor     = "#ffffff"
	DefaultFontWeight    = "700"
	DefaultStrokeWidth   = 2.0
	DefaultTextTransform = TransformUppercase

	captionStrokeColor = "#000000"
)

// fontFamilies maps the family names offered by the editor to families the
// renderer ships with.
var fontFamilies = map[string]string{
	"Montserrat ExtraBold": "Montserrat ExtraBold",
	"Montserrat SemiBold":  "Montserrat SemiBold",
	"Montserrat":           "Montserrat",
	"Open Sans":            "Open Sans Bold",
	"Open Sans Bold":       "Open Sans Bold",
	"Roboto":               "Roboto",
	"Permanent Marker":     "Permanent Marker",
	"Didact Gothic":        "Didact Gothic",
	"Clear Sans":           "Clear Sans",
	"Work Sans":            "Work Sans Light",
	"Work Sans Light":      "Work Sans Light",
	"Arapey":               "Arapey Regular",
	"Sue Ellen Francisco":  "Sue Ellen Francisco",
	"Bebas Neue":           "Bebas Neue",
}

// RendererFontFamily maps an editor font family to the renderer family name.
// Unknown names fall back to Montserrat.
func RendererFontFamily(name string) string {
	if family, ok := fontFamilies[name]; ok {
		return family
	}
	return FallbackFontFamily
}

// CaptionStyle is the resolved caption styling of a request.
type CaptionStyle struct {
	Family        string
	Size          int
	Color         string
	Weight        string
	StrokeWidth   float64
	TextTransform string
}

// ResolveCaptionStyle applies the caption defaults to a request.
func ResolveCaptionStyle(req *Request) CaptionStyle {
	family := req.FontFamily
	if family == "" {
		family = DefaultFontFamily
	}
	style := CaptionStyle{
		Family:        RendererFontFamily(family),
		Size:          DefaultFontSize,
		Color:         DefaultFontColor,
		Weight:        DefaultFontWeight,
		StrokeWidth:   DefaultStrokeWidth,
		TextTransform: DefaultTextTransform,
	}
	if req.FontSize != nil {
		style.Size = *req.FontSize
	}
	if req.FontColor != "" {
		style.Color = req.FontColor
	}
	if req.FontWeight != "" {
		style.Weight = req.FontWeight
	}
	if req.StrokeWidth != nil {
		style.StrokeWidth = *req.StrokeWidth
	}
	if req.TextTransform != "" {
		style.TextTransform = req.TextTransform
	}
	return style
}

// captionTrack places a single word-timed caption asset over the whole
// timeline. The subtitles URL is passed through untouched; the resolved text
// transform is not applied to it.
func captionTrack(src string, style CaptionStyle, total float64) Track {
	return Track{Clips: []Clip{{
		Asset: Asset{
			Type: "caption",
			Src:  src,
			Font: &CaptionFont{
				Family:      style.Family,
				Size:        style.Size,
				Color:       style.Color,
				Weight:      style.Weight,
				Stroke:      captionStrokeColor,
				StrokeWidth: style.StrokeWidth,
			},
			Background: &CaptionBackground{Color: "#ffffff", Opacity: 0, Padding: 12},
			Margin:     &CaptionMargin{Top: 0.75, Left: 0, Right: 0},
		},
		Start:  0,
		Length: total,
	}}}
}

var (
	srtIndexLine     = regexp.MustCompile(`^\d+$`)
	srtTimestampLine = regexp.MustCompile(`^\d{2}:\d{2}:\d{2}[,.]\d{3}\s*-->\s*\d{2}:\d{2}:\d{2}[,.]\d{3}`)
)

// ApplyTextTransform rewrites the text lines of an SRT document. Index and
// timestamp lines are left alone. Only "uppercase" changes anything.
func ApplyTextTransform(srt, transform string) string {
	if transform != TransformUppercase {
		return srt
	}

	lines := strings.Split(srt, "\n")
	for i, line := range lines {
		trimmed := strings.TrimSpace(line)
		if trimmed == "" || srtIndexLine.MatchString(trimmed) || srtTimestampLine.MatchString(trimmed) {
			continue
		}
		lines[i] = strings.ToUpper(line)
	}
	return strings.Join(lines, "\n")
}
