// Package export converts render timelines into edit decision lists for
// finishing in an NLE.
package export

import (
	"math"
	"path"

	"github.com/reelforge/reelforge/internal/timeline"
)

// DefaultFrameRate is used when a request gives no usable frame rate.
const DefaultFrameRate = 30.0

// ResolvedClip is one event of the list. StartMs and EndMs are source
// positions; events are recorded back to back.
type ResolvedClip struct {
	ClipName  string
	MediaPath string
	StartMs   int
	EndMs     int
}

// FromTimeline returns the events of the visual media track: the first track
// of image or video clips that is not an overlay.
func FromTimeline(tl *timeline.Timeline) []ResolvedClip {
	if tl == nil {
		return nil
	}
	for _, tr := range tl.Tracks {
		if !isMediaTrack(tr) {
			continue
		}
		clips := make([]ResolvedClip, 0, len(tr.Clips))
		for i, c := range tr.Clips {
			clips = append(clips, ResolvedClip{
				ClipName:  clipName(i, c.Asset.Src),
				MediaPath: c.Asset.Src,
				StartMs:   0,
				EndMs:     int(math.Round(c.Length * 1000)),
			})
		}
		return clips
	}
	return nil
}

func isMediaTrack(tr timeline.Track) bool {
	if len(tr.Clips) == 0 {
		return false
	}
	for _, c := range tr.Clips {
		if c.Opacity != nil {
			return false
		}
		if c.Asset.Type != "image" && c.Asset.Type != "video" {
			return false
		}
	}
	return true
}

func clipName(i int, src string) string {
	base := path.Base(src)
	if base == "." || base == "/" || base == "" {
		base = "clip"
	}
	if name := SanitizeName(base, 64); name != "" {
		return name
	}
	return "clip"
}
