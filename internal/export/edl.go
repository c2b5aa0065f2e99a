package export

import (
	"fmt"
	"math"
	"strconv"
	"strings"

	"github.com/reelforge/reelforge/internal/timeline"
)

// Generate renders the media track of tl as a CMX3600 edit decision list.
func Generate(tl *timeline.Timeline, title string, frameRate float64) string {
	name := SanitizeName(title, 70)
	if name == "" {
		name = "Untitled"
	}
	return GenerateEDL(FromTimeline(tl), name, frameRate)
}

// GenerateEDL writes one video event per clip, recorded back to back.
func GenerateEDL(clips []ResolvedClip, title string, frameRate float64) string {
	fps := int(math.Round(frameRate))
	if fps <= 0 {
		fps = int(DefaultFrameRate)
	}

	var b strings.Builder
	fmt.Fprintf(&b, "TITLE: %s\n", title)
	if isDropFrame(frameRate) {
		b.WriteString("FCM: DROP FRAME\n")
	} else {
		b.WriteString("FCM: NON-DROP FRAME\n")
	}
	b.WriteString("\n")

	recordMs := 0
	for i, clip := range clips {
		length := clip.EndMs - clip.StartMs
		fmt.Fprintf(&b, "%03d  %-8s %-5s C        %s %s %s %s\n",
			i+1, "AX", "V",
			msToTimecode(clip.StartMs, fps), msToTimecode(clip.EndMs, fps),
			msToTimecode(recordMs, fps), msToTimecode(recordMs+length, fps))
		fmt.Fprintf(&b, "* FROM CLIP NAME:  %s\n", clip.ClipName)
		fmt.Fprintf(&b, "* MEDIA PATH:  %s\n", clip.MediaPath)
		recordMs += length
	}

	return b.String()
}

// ParseFrameRate reads a frame rate query value, falling back to
// DefaultFrameRate for anything unusable.
func ParseFrameRate(raw string) float64 {
	if raw == "" {
		return DefaultFrameRate
	}
	fps, err := strconv.ParseFloat(raw, 64)
	if err != nil || fps <= 0 || fps > 240 || math.IsNaN(fps) {
		return DefaultFrameRate
	}
	return fps
}

func isDropFrame(frameRate float64) bool {
	return math.Abs(frameRate-29.97) < 0.01 || math.Abs(frameRate-59.94) < 0.01
}

func msToTimecode(ms int, fps int) string {
	totalFrames := int(math.Round(float64(ms) * float64(fps) / 1000.0))
	frames := totalFrames % fps
	totalSeconds := totalFrames / fps
	return fmt.Sprintf("%02d:%02d:%02d:%02d", totalSeconds/3600, (totalSeconds/60)%60, totalSeconds%60, frames)
}
