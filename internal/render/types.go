// Package render talks to the external rendering service that turns a
// timeline into a video file.
package render

import "github.com/reelforge/reelforge/internal/timeline"

// Output defaults. Every render is a 720p MP4.
const (
	FormatMP4     = "mp4"
	DefaultWidth  = 1280
	DefaultHeight = 720
)

// Renderer job states.
const (
	StatusQueued    = "queued"
	StatusFetching  = "fetching"
	StatusRendering = "rendering"
	StatusSaving    = "saving"
	StatusDone      = "done"
	StatusFailed    = "failed"
)

// Edit is the submission payload: the timeline plus output settings.
type Edit struct {
	Timeline *timeline.Timeline `json:"timeline"`
	Output   Output             `json:"output"`
	Callback string             `json:"callback,omitempty"`
}

type Output struct {
	Format string `json:"format"`
	Size   Size   `json:"size"`
}

type Size struct {
	Width  int `json:"width"`
	Height int `json:"height"`
}

// NewEdit wraps a timeline with the default output settings.
func NewEdit(tl *timeline.Timeline, callback string) Edit {
	return Edit{
		Timeline: tl,
		Output: Output{
			Format: FormatMP4,
			Size:   Size{Width: DefaultWidth, Height: DefaultHeight},
		},
		Callback: callback,
	}
}

// Status is the renderer's view of one render job.
type Status struct {
	ID     string `json:"id"`
	Status string `json:"status"`
	URL    string `json:"url,omitempty"`
	Error  string `json:"error,omitempty"`
}

// Terminal reports whether the renderer will not change the job any more.
func (s *Status) Terminal() bool {
	return s.Status == StatusDone || s.Status == StatusFailed
}

type submitResponse struct {
	Success  bool   `json:"success"`
	Message  string `json:"message"`
	Response struct {
		ID      string `json:"id"`
		Message string `json:"message,omitempty"`
	} `json:"response"`
}

type statusResponse struct {
	Success  bool   `json:"success"`
	Message  string `json:"message"`
	Response Status `json:"response"`
}
