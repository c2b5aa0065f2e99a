package renders

import (
	"context"
	"errors"
	"log/slog"
	"sync/atomic"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/reelforge/reelforge/internal/render"
)

// DefaultPollConcurrency bounds the status requests in flight per poll.
const DefaultPollConcurrency = 4

// Runner polls the renderer for every active render. Callbacks make polling
// redundant when they arrive; polling covers the renders whose callbacks do
// not.
type Runner struct {
	service      *Service
	repo         Repository
	renderer     render.Client
	logger       *slog.Logger
	pollInterval time.Duration
	concurrency  int
	running      atomic.Bool
	paused       atomic.Bool
}

func NewRunner(service *Service, repo Repository, renderer render.Client, pollInterval time.Duration, logger *slog.Logger) *Runner {
	if pollInterval <= 0 {
		pollInterval = 10 * time.Second
	}
	return &Runner{
		service:      service,
		repo:         repo,
		renderer:     renderer,
		logger:       logger,
		pollInterval: pollInterval,
		concurrency:  DefaultPollConcurrency,
	}
}

func (r *Runner) Start(ctx context.Context) {
	if r.running.Swap(true) {
		return
	}

	r.logger.Info("render runner started", "poll_interval", r.pollInterval.String())

	ticker := time.NewTicker(r.pollInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			r.logger.Info("render runner stopping")
			r.running.Store(false)
			return
		case <-ticker.C:
			if !r.paused.Load() {
				r.PollOnce(ctx)
			}
		}
	}
}

func (r *Runner) Pause() {
	r.paused.Store(true)
	r.logger.Info("render runner paused")
}

func (r *Runner) Resume() {
	r.paused.Store(false)
	r.logger.Info("render runner resumed")
}

func (r *Runner) IsPaused() bool {
	return r.paused.Load()
}

func (r *Runner) IsRunning() bool {
	return r.running.Load()
}

// PollOnce checks every active render once and returns how many were polled.
func (r *Runner) PollOnce(ctx context.Context) int {
	active, err := r.repo.ListActiveRenders(ctx)
	if err != nil {
		r.logger.Error("failed to list active renders", "error", err)
		return 0
	}
	if len(active) == 0 {
		return 0
	}

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(r.concurrency)
	for _, rd := range active {
		g.Go(func() error {
			r.pollRender(gctx, rd)
			return nil
		})
	}
	g.Wait()
	return len(active)
}

func (r *Runner) pollRender(ctx context.Context, rd *Render) {
	st, err := r.renderer.Status(ctx, rd.RendererID)
	if err != nil {
		var apiErr *render.APIError
		if errors.As(err, &apiErr) && !apiErr.IsRetryable() {
			r.logger.Warn("renderer rejected status request, failing render",
				"render_id", rd.ID, "renderer_id", rd.RendererID, "status_code", apiErr.StatusCode)
			if err := r.service.Fail(ctx, rd, apiErr.Error()); err != nil {
				r.logger.Error("failed to mark render failed", "render_id", rd.ID, "error", err)
			}
			return
		}
		r.logger.Warn("render status check failed, will retry", "render_id", rd.ID, "error", err)
		return
	}

	if err := r.service.ApplyStatus(ctx, rd, st); err != nil {
		r.logger.Error("failed to apply render status", "render_id", rd.ID, "status", st.Status, "error", err)
	}
}

// ActiveCount returns the number of renders still in progress.
func (r *Runner) ActiveCount(ctx context.Context) int {
	counts, err := r.repo.CountRendersByStatus(ctx)
	if err != nil {
		return 0
	}
	return counts[StatusPending] + counts[StatusSubmitted] + counts[StatusRendering]
}
