// Package renders owns the lifecycle of render jobs: intake, timeline
// assembly, submission to the renderer, progress tracking and publishing.
package renders

import (
	"time"

	"github.com/google/uuid"

	"github.com/reelforge/reelforge/internal/timeline"
)

const (
	StatusPending   = "pending"
	StatusSubmitted = "submitted"
	StatusRendering = "rendering"
	StatusDone      = "done"
	StatusFailed    = "failed"
	StatusPublished = "published"

	SourceAPI   = "api"
	SourceQueue = "queue"
)

// ActiveStatuses are the states the runner keeps polling.
var ActiveStatuses = []string{StatusSubmitted, StatusRendering}

type Render struct {
	ID             string                   `json:"id"`
	Title          string                   `json:"title,omitempty"`
	Status         string                   `json:"status"`
	Source         string                   `json:"source"`
	RendererID     string                   `json:"renderer_id,omitempty"`
	TotalDuration  float64                  `json:"total_duration"`
	DurationSource string                   `json:"duration_source,omitempty"`
	TrackCount     int                      `json:"track_count"`
	ClipCount      int                      `json:"clip_count"`
	PayloadPath    string                   `json:"payload_path,omitempty"`
	OutputURL      string                   `json:"output_url,omitempty"`
	YouTubeVideoID string                   `json:"youtube_video_id,omitempty"`
	Publish        *timeline.PublishOptions `json:"publish,omitempty"`
	Error          string                   `json:"error,omitempty"`
	CreatedAt      time.Time                `json:"created_at"`
	UpdatedAt      time.Time                `json:"updated_at"`
}

// IsTerminal reports whether the render will not change any more.
func (r *Render) IsTerminal() bool {
	switch r.Status {
	case StatusDone, StatusFailed, StatusPublished:
		return true
	}
	return false
}

// Prepared is the outcome of timeline assembly, recorded before submission.
type Prepared struct {
	TotalDuration  float64
	DurationSource string
	TrackCount     int
	ClipCount      int
	PayloadPath    string
}

// Transition moves a render to To when its current status is one of From.
// Empty optional fields leave the stored value unchanged, except Error which
// is always overwritten.
type Transition struct {
	To             string
	From           []string
	Error          string
	RendererID     string
	OutputURL      string
	YouTubeVideoID string
}

func NewID() string {
	return uuid.NewString()
}
