package timeline

// Zoom effects alternated over still images.
const (
	EffectZoomIn  = "zoomIn"
	EffectZoomOut = "zoomOut"
)

type mediaEntry struct {
	url       string
	mediaType string
	length    float64
}

// mediaEntries lists the visual items in playing order with their lengths.
func mediaEntries(req *Request, d Durations) []mediaEntry {
	if d.Segmented {
		entries := make([]mediaEntry, 0, len(req.MediaItems))
		for i, item := range req.MediaItems {
			length := 0.0
			if i < len(req.SegmentTimings) {
				length = req.SegmentTimings[i].Duration
			}
			entries = append(entries, mediaEntry{url: item.URL, mediaType: item.Type, length: length})
		}
		return entries
	}

	if len(req.OrderedContentURLs) > 0 {
		entries := make([]mediaEntry, 0, len(req.OrderedContentURLs))
		for i, url := range req.OrderedContentURLs {
			mediaType := MediaImage
			if i < len(req.OrderedContentTypes) && req.OrderedContentTypes[i] != "" {
				mediaType = req.OrderedContentTypes[i]
			}
			entries = append(entries, mediaEntry{url: url, mediaType: mediaType, length: d.PerItem})
		}
		return entries
	}

	entries := make([]mediaEntry, 0, len(req.MediaItems))
	for _, item := range req.MediaItems {
		entries = append(entries, mediaEntry{url: item.URL, mediaType: MediaImage, length: d.PerItem})
	}
	return entries
}

// rendererAssetType maps a media type to the renderer asset type. Animation
// only exists in the editor.
func rendererAssetType(mediaType string) string {
	if mediaType == MediaAnimation {
		return MediaImage
	}
	return mediaType
}

// zoomEffectFor returns the alternating zoom for the item at index, or "" when
// the item is not a still image.
func zoomEffectFor(index int, mediaType string) string {
	if mediaType != MediaImage && mediaType != MediaAnimation {
		return ""
	}
	if index%2 == 0 {
		return EffectZoomIn
	}
	return EffectZoomOut
}

// mediaTrack lays the visual items back to back from 0. Items without a
// positive length (a missing segment timing) are skipped.
func mediaTrack(req *Request, d Durations) Track {
	entries := mediaEntries(req, d)
	clips := make([]Clip, 0, len(entries))

	runningTime := 0.0
	for i, e := range entries {
		if e.length <= 0 {
			continue
		}
		clip := Clip{
			Asset:  Asset{Type: rendererAssetType(e.mediaType), Src: e.url},
			Start:  runningTime,
			Length: e.length,
			Fit:    "cover",
		}
		if req.ZoomEffect {
			clip.Effect = zoomEffectFor(i, e.mediaType)
		}
		clips = append(clips, clip)
		runningTime += e.length
	}
	return Track{Clips: clips}
}
