// Package probe measures the playing time of remote audio resources with
// ffprobe and caches the results.
package probe

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strconv"
	"time"

	ffmpeg "github.com/u2takey/ffmpeg-go"

	"github.com/reelforge/reelforge/internal/logging"
)

// ErrNoDuration is returned when ffprobe output carries no usable duration.
var ErrNoDuration = errors.New("probe: no positive duration in ffprobe output")

type probeFunc func(url string, timeout time.Duration) (string, error)

func runFFProbe(url string, timeout time.Duration) (string, error) {
	return ffmpeg.ProbeWithTimeout(url, timeout, ffmpeg.KwArgs{})
}

// FFProbe implements timeline.DurationProber by shelling out to ffprobe.
type FFProbe struct {
	timeout time.Duration
	run     probeFunc
	logger  *slog.Logger
}

func NewFFProbe(timeout time.Duration, logger *slog.Logger) *FFProbe {
	return &FFProbe{timeout: timeout, run: runFFProbe, logger: logger}
}

// ProbeDuration returns the duration in seconds. The context deadline
// shortens the configured timeout when it is closer.
func (p *FFProbe) ProbeDuration(ctx context.Context, url string) (float64, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}

	timeout := p.timeout
	if deadline, ok := ctx.Deadline(); ok {
		if remaining := time.Until(deadline); timeout <= 0 || remaining < timeout {
			timeout = remaining
		}
	}

	start := time.Now()
	out, err := p.run(url, timeout)
	if err != nil {
		return 0, fmt.Errorf("ffprobe %s: %w", logging.SanitizeURL(url), err)
	}

	d, err := ParseDuration(out)
	if err != nil {
		return 0, err
	}
	if p.logger != nil {
		p.logger.Debug("probed audio duration",
			"url", logging.SanitizeURL(url), "duration_s", d, "elapsed_ms", time.Since(start).Milliseconds())
	}
	return d, nil
}

type ffprobeOutput struct {
	Format struct {
		Duration string `json:"duration"`
	} `json:"format"`
	Streams []struct {
		CodecType string `json:"codec_type"`
		Duration  string `json:"duration"`
	} `json:"streams"`
}

// ParseDuration extracts the duration from ffprobe JSON output. The container
// duration wins; otherwise the longest audio stream is used.
func ParseDuration(raw string) (float64, error) {
	var out ffprobeOutput
	if err := json.Unmarshal([]byte(raw), &out); err != nil {
		return 0, fmt.Errorf("decode ffprobe output: %w", err)
	}

	if d, err := strconv.ParseFloat(out.Format.Duration, 64); err == nil && d > 0 {
		return d, nil
	}

	longest := 0.0
	for _, s := range out.Streams {
		if s.CodecType != "audio" {
			continue
		}
		if d, err := strconv.ParseFloat(s.Duration, 64); err == nil && d > longest {
			longest = d
		}
	}
	if longest <= 0 {
		return 0, ErrNoDuration
	}
	return longest, nil
}
