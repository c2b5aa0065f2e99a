package api

import (
	"time"

	"github.com/reelforge/reelforge/internal/render"
	"github.com/reelforge/reelforge/internal/renders"
	"github.com/reelforge/reelforge/internal/timeline"
)

type HealthResponse struct {
	Status  string `json:"status"`
	Version string `json:"version"`
	UptimeS int64  `json:"uptime_s"`
}

type StatusResponse struct {
	State         string         `json:"state"`
	ActiveRenders int            `json:"active_renders"`
	Counts        map[string]int `json:"counts"`
	LastError     string         `json:"last_error,omitempty"`
}

type CreateRenderResponse struct {
	ID         string `json:"id"`
	Status     string `json:"status"`
	RendererID string `json:"renderer_id,omitempty"`
}

type RenderResponse struct {
	ID             string                   `json:"id"`
	Title          string                   `json:"title,omitempty"`
	Status         string                   `json:"status"`
	Source         string                   `json:"source"`
	RendererID     string                   `json:"renderer_id,omitempty"`
	TotalDuration  float64                  `json:"total_duration"`
	DurationSource string                   `json:"duration_source,omitempty"`
	TrackCount     int                      `json:"track_count"`
	ClipCount      int                      `json:"clip_count"`
	OutputURL      string                   `json:"output_url,omitempty"`
	YouTubeVideoID string                   `json:"youtube_video_id,omitempty"`
	Publish        *timeline.PublishOptions `json:"publish,omitempty"`
	Error          string                   `json:"error,omitempty"`
	CreatedAt      string                   `json:"created_at"`
	UpdatedAt      string                   `json:"updated_at"`
}

type RendersResponse struct {
	Renders []RenderResponse `json:"renders"`
}

type PreviewResponse struct {
	Edit           *render.Edit `json:"edit"`
	TotalDuration  float64      `json:"total_duration"`
	DurationSource string       `json:"duration_source"`
	Segmented      bool         `json:"segmented"`
}

type TransformRequest struct {
	Content       string `json:"content"`
	TextTransform string `json:"textTransform"`
}

type TransformResponse struct {
	Content string `json:"content"`
}

type ErrorResponse struct {
	Error string `json:"error"`
	Code  string `json:"code,omitempty"`
}

// RenderToResponse drops internal fields such as the local payload path.
func RenderToResponse(r *renders.Render) RenderResponse {
	return RenderResponse{
		ID:             r.ID,
		Title:          r.Title,
		Status:         r.Status,
		Source:         r.Source,
		RendererID:     r.RendererID,
		TotalDuration:  r.TotalDuration,
		DurationSource: r.DurationSource,
		TrackCount:     r.TrackCount,
		ClipCount:      r.ClipCount,
		OutputURL:      r.OutputURL,
		YouTubeVideoID: r.YouTubeVideoID,
		Publish:        r.Publish,
		Error:          r.Error,
		CreatedAt:      r.CreatedAt.Format(time.RFC3339),
		UpdatedAt:      r.UpdatedAt.Format(time.RFC3339),
	}
}
