package timeline

import (
	"context"
	"log/slog"
)

// DefaultTotalDuration is used when no voiceover duration can be determined.
const DefaultTotalDuration = 300.0

// DurationProber resolves the playing time of a remote audio resource in
// seconds.
type DurationProber interface {
	ProbeDuration(ctx context.Context, url string) (float64, error)
}

// Durations is the resolved time axis every track is laid out against.
type Durations struct {
	Total     float64
	PerItem   float64
	Segmented bool
	// Source records where Total came from: segments, request, probe or default.
	Source string
}

const (
	SourceSegments = "segments"
	SourceRequest  = "request"
	SourceProbe    = "probe"
	SourceDefault  = "default"
)

// ResolveDurations determines the total duration and, in uniform mode, the
// per-item duration. It never fails: missing data degrades to defaults.
// prober and logger may be nil.
func ResolveDurations(ctx context.Context, req *Request, prober DurationProber, logger *slog.Logger) Durations {
	if len(req.SegmentTimings) > 0 {
		total := 0.0
		for _, s := range req.SegmentTimings {
			total += s.Duration
		}
		return Durations{Total: total, Segmented: true, Source: SourceSegments}
	}

	d := Durations{Total: DefaultTotalDuration, Source: SourceDefault}
	switch {
	case req.AudioDuration != nil && *req.AudioDuration > 0:
		d.Total = *req.AudioDuration
		d.Source = SourceRequest
	case prober != nil && req.VoiceoverURL() != "":
		probed, err := prober.ProbeDuration(ctx, req.VoiceoverURL())
		if err != nil || probed <= 0 {
			if logger != nil {
				logger.Warn("audio duration probe failed, using default",
					"error", err, "default_s", DefaultTotalDuration)
			}
			break
		}
		d.Total = probed
		d.Source = SourceProbe
	}

	if n := len(req.MediaItems); n > 0 {
		d.PerItem = d.Total / float64(n)
	}
	return d
}
