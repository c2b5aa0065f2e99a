package timeline

import (
	"log/slog"
	"math"
	"sort"

	"github.com/samber/lo"
)

// DefaultMusicDuration is assumed for music sources without a known length.
const DefaultMusicDuration = 30.0

// Volume defaults.
const (
	DefaultVoiceoverVolume = 0.8
	DefaultMusicVolume     = 0.3
)

// musicSource is one loopable audio file.
type musicSource struct {
	src      string
	duration float64
}

// musicDuration resolves an optional source duration. Non-positive values are
// treated as unknown so the placement loops always advance.
func musicDuration(d *float64) float64 {
	if d == nil || *d <= 0 {
		return DefaultMusicDuration
	}
	return *d
}

func hasMusicSource(req *Request) bool {
	return len(req.SelectedMusicTracks) > 0 || req.SelectedMusicTrack != nil || len(req.CustomMusicFiles) > 0
}

// musicTrack builds the background music track. The second return value is
// false when no music track should be added at all.
func musicTrack(req *Request, total float64, logger *slog.Logger) (Track, bool) {
	if !req.UseCustomMusic || !hasMusicSource(req) {
		return Track{}, false
	}

	volume := DefaultMusicVolume
	if req.MusicVolume != nil {
		volume = *req.MusicVolume
	}

	switch {
	case len(req.SelectedMusicTracks) > 0:
		valid := lo.Filter(req.SelectedMusicTracks, func(t MusicTrack, _ int) bool {
			return t.PreviewURL != "" && t.Title != ""
		})
		if dropped := len(req.SelectedMusicTracks) - len(valid); dropped > 0 && logger != nil {
			logger.Warn("dropping music tracks without preview url or title", "dropped", dropped)
		}
		if len(valid) == 0 {
			if logger != nil {
				logger.Warn("no valid music tracks selected, skipping music")
			}
			return Track{}, false
		}

		sort.SliceStable(valid, func(i, j int) bool {
			return lo.FromPtr(valid[i].Order) < lo.FromPtr(valid[j].Order)
		})
		sources := lo.Map(valid, func(t MusicTrack, _ int) musicSource {
			return musicSource{src: t.PreviewURL, duration: musicDuration(t.Duration)}
		})
		return Track{Clips: sequenceMusic(sources, total, volume)}, true

	case req.SelectedMusicTrack != nil:
		src := musicSource{src: req.SelectedMusicTrack.PreviewURL, duration: musicDuration(req.SelectedMusicTrack.Duration)}
		return Track{Clips: loopMusic(src, total, volume)}, true

	default:
		sources := lo.Map(req.CustomMusicFiles, func(f MusicFile, _ int) musicSource {
			return musicSource{src: f.URL, duration: musicDuration(f.Duration)}
		})
		return Track{Clips: sequenceMusic(sources, total, volume)}, true
	}
}

// sequenceMusic plays the sources in order, wrapping around the list until
// total is covered. The last clip is cut to end exactly at total.
func sequenceMusic(sources []musicSource, total, volume float64) []Clip {
	clips := []Clip{}
	if len(sources) == 0 {
		return clips
	}
	currentTime := 0.0
	for currentTime < total {
		for _, s := range sources {
			if currentTime >= total {
				break
			}
			remaining := total - currentTime
			length := math.Min(s.duration, remaining)
			clips = append(clips, audioClip(s.src, currentTime, length, volume))
			if length == remaining {
				currentTime = total
			} else {
				currentTime += length
			}
		}
	}
	return clips
}

// loopMusic repeats a single source ceil(total/duration) times.
func loopMusic(s musicSource, total, volume float64) []Clip {
	clips := []Clip{}
	loopCount := int(math.Ceil(total / s.duration))
	for i := 0; i < loopCount; i++ {
		start := float64(i) * s.duration
		length := math.Min(s.duration, total-start)
		if length <= 0 {
			continue
		}
		clips = append(clips, audioClip(s.src, start, length, volume))
	}
	return clips
}

func audioClip(src string, start, length, volume float64) Clip {
	return Clip{
		Asset:  Asset{Type: "audio", Src: src, Volume: float64Ptr(volume)},
		Start:  start,
		Length: length,
	}
}
