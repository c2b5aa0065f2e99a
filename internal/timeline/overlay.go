package timeline

import "math"

// OverlaySegmentLength is the playing time of every overlay asset in seconds.
const OverlaySegmentLength = 19.0

type OverlayKind string

const (
	OverlayDust               OverlayKind = "dust"
	OverlaySnow               OverlayKind = "snow"
	OverlayScreenDisplacement OverlayKind = "screenDisplacement"
	OverlayFire               OverlayKind = "fire"
)

// OverlayKinds lists the overlays in track order.
var OverlayKinds = []OverlayKind{
	OverlayDust,
	OverlaySnow,
	OverlayScreenDisplacement,
	OverlayFire,
}

var overlayOpacity = map[OverlayKind]float64{
	OverlayDust:               0.15,
	OverlaySnow:               0.2,
	OverlayScreenDisplacement: 0.25,
	OverlayFire:               0.3,
}

// DefaultOverlaySources are the hosted looping overlay assets.
var DefaultOverlaySources = map[OverlayKind]string{
	OverlayDust:               "https://assets.reelforge.app/overlays/dust.mp4",
	OverlaySnow:               "https://assets.reelforge.app/overlays/snow.mp4",
	OverlayScreenDisplacement: "https://assets.reelforge.app/overlays/screen-displacement.mp4",
	OverlayFire:               "https://assets.reelforge.app/overlays/fire.mp4",
}

// OverlayOpacity returns the fixed opacity of an overlay kind.
func OverlayOpacity(kind OverlayKind) float64 {
	return overlayOpacity[kind]
}

func (r *Request) overlayEnabled(kind OverlayKind) bool {
	switch kind {
	case OverlayDust:
		return r.DustOverlay
	case OverlaySnow:
		return r.SnowOverlay
	case OverlayScreenDisplacement:
		return r.ScreenDisplacementOverlay
	case OverlayFire:
		return r.FireOverlay
	}
	return false
}

// overlayTrack repeats the overlay asset back to back so it covers total
// exactly. A non-positive total yields an empty track.
func overlayTrack(src string, opacity, total float64) Track {
	numClips := int(math.Ceil(total / OverlaySegmentLength))
	clips := make([]Clip, 0, max(numClips, 0))

	for i := 0; i < numClips; i++ {
		start := float64(i) * OverlaySegmentLength
		length := math.Min(OverlaySegmentLength, total-start)
		if length <= 0 {
			continue
		}
		clips = append(clips, Clip{
			Asset:   Asset{Type: "video", Src: src, Volume: float64Ptr(0)},
			Start:   start,
			Length:  length,
			Fit:     "cover",
			Opacity: float64Ptr(opacity),
		})
	}
	return Track{Clips: clips}
}
