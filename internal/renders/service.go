package renders

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"math"
	"net/url"
	"time"

	"github.com/reelforge/reelforge/internal/archive"
	"github.com/reelforge/reelforge/internal/logging"
	"github.com/reelforge/reelforge/internal/publish"
	"github.com/reelforge/reelforge/internal/render"
	"github.com/reelforge/reelforge/internal/timeline"
)

// PayloadArchive keeps a copy of every submitted edit.
type PayloadArchive interface {
	Save(ctx context.Context, id string, payload interface{}) (string, error)
	Load(ctx context.Context, id string) ([]byte, error)
}

type RenderService interface {
	Validate(req *timeline.Request) error
	Preview(ctx context.Context, req *timeline.Request) (*render.Edit, timeline.Durations, error)
	Create(ctx context.Context, req *timeline.Request, source string) (*Render, error)
	Get(ctx context.Context, id string) (*Render, error)
	List(ctx context.Context, limit int) ([]*Render, error)
	Edit(ctx context.Context, id string) (*render.Edit, error)
	HandleCallback(ctx context.Context, id string, st render.Status) error
	Counts(ctx context.Context) (map[string]int, error)
}

type ServiceConfig struct {
	Builder   *timeline.Builder
	Prober    timeline.DurationProber
	Renderer  render.Client
	Archive   PayloadArchive
	Publisher publish.Publisher
	// CallbackBaseURL is the public base URL of this service. Empty disables
	// renderer callbacks.
	CallbackBaseURL string
}

type Service struct {
	repo         Repository
	builder      *timeline.Builder
	prober       timeline.DurationProber
	renderer     render.Client
	archive      PayloadArchive
	publisher    publish.Publisher
	callbackBase string
	logger       *slog.Logger
}

func NewService(repo Repository, cfg ServiceConfig, logger *slog.Logger) *Service {
	builder := cfg.Builder
	if builder == nil {
		builder = timeline.NewBuilder(timeline.Options{}, logger)
	}
	return &Service{
		repo:         repo,
		builder:      builder,
		prober:       cfg.Prober,
		renderer:     cfg.Renderer,
		archive:      cfg.Archive,
		publisher:    cfg.Publisher,
		callbackBase: cfg.CallbackBaseURL,
		logger:       logger,
	}
}

// Validate performs the hard checks the timeline builder relies on.
func (s *Service) Validate(req *timeline.Request) error {
	if req == nil {
		return &ValidationError{Field: "body", Message: "request is empty"}
	}
	if len(req.MediaItems) == 0 {
		return &ValidationError{Field: "mediaItems", Message: "at least one media item is required"}
	}
	for i, item := range req.MediaItems {
		if item.URL == "" {
			return &ValidationError{Field: fmt.Sprintf("mediaItems[%d].url", i), Message: "is required"}
		}
		switch item.Type {
		case "", timeline.MediaImage, timeline.MediaVideo, timeline.MediaAnimation:
		default:
			return &ValidationError{Field: fmt.Sprintf("mediaItems[%d].type", i), Message: fmt.Sprintf("unknown type %q", item.Type)}
		}
	}
	if req.VoiceoverURL() == "" {
		return &ValidationError{Field: "audioUrl", Message: "an audio url is required"}
	}
	if len(req.SegmentTimings) > 0 {
		if len(req.SegmentTimings) != len(req.MediaItems) {
			return &ValidationError{
				Field:   "segmentTimings",
				Message: fmt.Sprintf("has %d entries for %d media items", len(req.SegmentTimings), len(req.MediaItems)),
			}
		}
		for i, st := range req.SegmentTimings {
			if st.Duration < 0 || math.IsNaN(st.Duration) || math.IsInf(st.Duration, 0) {
				return &ValidationError{Field: fmt.Sprintf("segmentTimings[%d].duration", i), Message: "must be a non-negative number"}
			}
		}
	}
	if n := len(req.OrderedContentURLs); n > 0 && n != len(req.MediaItems) {
		return &ValidationError{
			Field:   "orderedContentUrls",
			Message: fmt.Sprintf("has %d entries for %d media items", n, len(req.MediaItems)),
		}
	}
	if n := len(req.OrderedContentTypes); n > 0 && n != len(req.MediaItems) {
		return &ValidationError{
			Field:   "orderedContentTypes",
			Message: fmt.Sprintf("has %d entries for %d media items", n, len(req.MediaItems)),
		}
	}
	if req.AudioDuration != nil && (math.IsNaN(*req.AudioDuration) || math.IsInf(*req.AudioDuration, 0)) {
		return &ValidationError{Field: "audioDuration", Message: "must be a finite number"}
	}
	return nil
}

func (s *Service) build(ctx context.Context, req *timeline.Request, callback string) (*render.Edit, timeline.Durations) {
	d := timeline.ResolveDurations(ctx, req, s.prober, s.logger)
	tl := s.builder.Build(req, d)
	edit := render.NewEdit(tl, callback)
	return &edit, d
}

// Preview assembles the edit a request would submit, without submitting it.
func (s *Service) Preview(ctx context.Context, req *timeline.Request) (*render.Edit, timeline.Durations, error) {
	if err := s.Validate(req); err != nil {
		return nil, timeline.Durations{}, err
	}
	edit, d := s.build(ctx, req, "")
	return edit, d, nil
}

func (s *Service) callbackURL(id string) string {
	if s.callbackBase == "" {
		return ""
	}
	return s.callbackBase + "/callbacks/render?id=" + url.QueryEscape(id)
}

// Create validates, records, builds, archives and submits a render. A
// renderer rejection is returned as *SubmitError together with the failed
// render.
func (s *Service) Create(ctx context.Context, req *timeline.Request, source string) (*Render, error) {
	if err := s.Validate(req); err != nil {
		return nil, err
	}
	if source == "" {
		source = SourceAPI
	}

	now := time.Now().UTC()
	rd := &Render{
		ID:        NewID(),
		Title:     req.Title,
		Status:    StatusPending,
		Source:    source,
		Publish:   req.Publish,
		CreatedAt: now,
		UpdatedAt: now,
	}
	if err := s.repo.CreateRender(ctx, rd); err != nil {
		return nil, fmt.Errorf("failed to record render: %w", err)
	}

	logger := s.logger
	if logger != nil {
		logger = logging.WithRenderID(logger, rd.ID)
	}

	edit, d := s.build(ctx, req, s.callbackURL(rd.ID))

	prepared := Prepared{
		TotalDuration:  d.Total,
		DurationSource: d.Source,
		TrackCount:     len(edit.Timeline.Tracks),
		ClipCount:      edit.Timeline.ClipCount(),
	}
	if s.archive != nil {
		path, err := s.archive.Save(ctx, rd.ID, edit)
		if err != nil {
			if logger != nil {
				logger.Warn("failed to archive render payload", "error", err)
			}
		} else {
			prepared.PayloadPath = path
		}
	}
	if err := s.repo.SetRenderPrepared(ctx, rd.ID, prepared); err != nil {
		return nil, fmt.Errorf("failed to record render: %w", err)
	}
	rd.TotalDuration = prepared.TotalDuration
	rd.DurationSource = prepared.DurationSource
	rd.TrackCount = prepared.TrackCount
	rd.ClipCount = prepared.ClipCount
	rd.PayloadPath = prepared.PayloadPath

	rendererID, err := s.renderer.Submit(ctx, *edit)
	if err != nil {
		if logger != nil {
			logger.Error("render submission failed", "error", err)
		}
		if _, terr := s.repo.TransitionRender(ctx, rd.ID, Transition{
			To:    StatusFailed,
			From:  []string{StatusPending},
			Error: err.Error(),
		}); terr != nil && logger != nil {
			logger.Error("failed to mark render failed", "error", terr)
		}
		rd.Status = StatusFailed
		rd.Error = err.Error()
		return rd, &SubmitError{RenderID: rd.ID, Err: err}
	}

	if _, err := s.repo.TransitionRender(ctx, rd.ID, Transition{
		To:         StatusSubmitted,
		From:       []string{StatusPending},
		RendererID: rendererID,
	}); err != nil {
		return nil, fmt.Errorf("failed to record submission: %w", err)
	}
	rd.Status = StatusSubmitted
	rd.RendererID = rendererID

	if logger != nil {
		logger.Info("render submitted",
			"renderer_id", rendererID,
			"source", source,
			"total_s", d.Total,
			"duration_source", d.Source,
			"tracks", prepared.TrackCount,
			"clips", prepared.ClipCount,
		)
	}
	return rd, nil
}

func (s *Service) Get(ctx context.Context, id string) (*Render, error) {
	rd, err := s.repo.GetRender(ctx, id)
	if err != nil {
		return nil, err
	}
	if rd == nil {
		return nil, ErrNotFound
	}
	return rd, nil
}

func (s *Service) List(ctx context.Context, limit int) ([]*Render, error) {
	return s.repo.ListRenders(ctx, limit)
}

func (s *Service) Counts(ctx context.Context) (map[string]int, error) {
	return s.repo.CountRendersByStatus(ctx)
}

// Edit returns the archived edit of a render.
func (s *Service) Edit(ctx context.Context, id string) (*render.Edit, error) {
	if _, err := s.Get(ctx, id); err != nil {
		return nil, err
	}
	if s.archive == nil {
		return nil, ErrNotFound
	}
	data, err := s.archive.Load(ctx, id)
	if err != nil {
		if errors.Is(err, archive.ErrNotFound) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	var edit render.Edit
	if err := json.Unmarshal(data, &edit); err != nil {
		return nil, fmt.Errorf("decode archived payload: %w", err)
	}
	return &edit, nil
}

// HandleCallback applies a status pushed by the renderer. The body must carry
// the renderer job id recorded at submission.
func (s *Service) HandleCallback(ctx context.Context, id string, st render.Status) error {
	rd, err := s.Get(ctx, id)
	if err != nil {
		return err
	}
	if rd.RendererID == "" {
		return &ValidationError{Field: "id", Message: "render was never submitted"}
	}
	if st.ID != rd.RendererID {
		return &ValidationError{Field: "id", Message: "does not match the render job"}
	}
	if st.Status == "" {
		return &ValidationError{Field: "status", Message: "is required"}
	}
	return s.ApplyStatus(ctx, rd, &st)
}

// ApplyStatus maps a renderer status onto the render. Transitions are
// compare-and-set, so a status seen by both the poller and a callback is
// applied once.
func (s *Service) ApplyStatus(ctx context.Context, rd *Render, st *render.Status) error {
	logger := s.logger
	if logger != nil {
		logger = logging.WithRenderID(logger, rd.ID)
	}

	if rd.IsTerminal() {
		return nil
	}

	switch st.Status {
	case render.StatusQueued, render.StatusFetching:
		return nil

	case render.StatusRendering, render.StatusSaving:
		_, err := s.repo.TransitionRender(ctx, rd.ID, Transition{
			To:   StatusRendering,
			From: []string{StatusSubmitted},
		})
		return err

	case render.StatusDone:
		claimed, err := s.repo.TransitionRender(ctx, rd.ID, Transition{
			To:        StatusDone,
			From:      ActiveStatuses,
			OutputURL: st.URL,
		})
		if err != nil || !claimed {
			return err
		}
		if logger != nil {
			logger.Info("render finished", "output_url", logging.SanitizeURL(st.URL))
		}
		if rd.Publish != nil {
			return s.publish(ctx, rd, st.URL)
		}
		return nil

	case render.StatusFailed:
		msg := st.Error
		if msg == "" {
			msg = "renderer reported failure"
		}
		claimed, err := s.repo.TransitionRender(ctx, rd.ID, Transition{
			To:    StatusFailed,
			From:  ActiveStatuses,
			Error: msg,
		})
		if claimed && logger != nil {
			logger.Warn("render failed", "error", msg)
		}
		return err

	default:
		if logger != nil {
			logger.Warn("ignoring unknown renderer status", "status", st.Status)
		}
		return nil
	}
}

// Fail marks an active render failed, e.g. when the renderer no longer knows
// the job.
func (s *Service) Fail(ctx context.Context, rd *Render, reason string) error {
	_, err := s.repo.TransitionRender(ctx, rd.ID, Transition{
		To:    StatusFailed,
		From:  ActiveStatuses,
		Error: reason,
	})
	return err
}

func (s *Service) publish(ctx context.Context, rd *Render, videoURL string) error {
	if s.publisher == nil || videoURL == "" {
		if s.logger != nil {
			s.logger.Warn("render asked for publishing but no publisher or output url is available", "render_id", rd.ID)
		}
		return nil
	}

	title := rd.Publish.Title
	if title == "" {
		title = rd.Title
	}
	videoID, err := s.publisher.Publish(ctx, videoURL, publish.Metadata{
		Title:         title,
		Description:   rd.Publish.Description,
		Tags:          rd.Publish.Tags,
		PrivacyStatus: rd.Publish.PrivacyStatus,
	})
	if err != nil {
		if s.logger != nil {
			s.logger.Error("publishing failed", "render_id", rd.ID, "error", err)
		}
		_, terr := s.repo.TransitionRender(ctx, rd.ID, Transition{
			To:    StatusDone,
			From:  []string{StatusDone},
			Error: "publish failed: " + err.Error(),
		})
		return terr
	}

	_, err = s.repo.TransitionRender(ctx, rd.ID, Transition{
		To:             StatusPublished,
		From:           []string{StatusDone},
		YouTubeVideoID: videoID,
	})
	if err == nil && s.logger != nil {
		s.logger.Info("render published", "render_id", rd.ID, "video_id", videoID)
	}
	return err
}
