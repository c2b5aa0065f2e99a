package queue

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"

	"github.com/reelforge/reelforge/internal/renders"
	"github.com/reelforge/reelforge/internal/timeline"
)

// TypedHandler decodes JSON messages into T before processing them.
type TypedHandler[T any] struct {
	// Validate returns false for messages that should not be processed.
	Validate func(msg *T) bool
	Process  func(ctx context.Context, msg *T) error
	// AlwaysMark commits undecodable and invalid messages so they are not
	// redelivered.
	AlwaysMark bool
	Logger     *slog.Logger
}

func (h *TypedHandler[T]) HandleMessage(ctx context.Context, message []byte) (bool, error) {
	var msg T
	if err := json.Unmarshal(message, &msg); err != nil {
		if h.Logger != nil {
			h.Logger.Warn("dropping undecodable message", "error", err, "bytes", len(message))
		}
		return h.AlwaysMark, nil
	}

	if h.Validate != nil && !h.Validate(&msg) {
		return h.AlwaysMark, nil
	}

	if err := h.Process(ctx, &msg); err != nil {
		return false, err
	}
	return true, nil
}

// Creator is the part of the render service the queue needs.
type Creator interface {
	Validate(req *timeline.Request) error
	Create(ctx context.Context, req *timeline.Request, source string) (*renders.Render, error)
}

// NewRenderHandler turns each message into a render. Invalid requests and
// renderer rejections are committed: retrying them cannot succeed. Storage
// errors are left uncommitted for redelivery.
func NewRenderHandler(svc Creator, logger *slog.Logger) *TypedHandler[timeline.Request] {
	return &TypedHandler[timeline.Request]{
		AlwaysMark: true,
		Logger:     logger,
		Validate: func(req *timeline.Request) bool {
			if err := svc.Validate(req); err != nil {
				logger.Warn("rejecting queued render request", "error", err)
				return false
			}
			return true
		},
		Process: func(ctx context.Context, req *timeline.Request) error {
			rd, err := svc.Create(ctx, req, renders.SourceQueue)
			var serr *renders.SubmitError
			var verr *renders.ValidationError
			switch {
			case errors.As(err, &serr):
				logger.Warn("queued render was rejected by the renderer", "render_id", serr.RenderID, "error", serr.Err)
				return nil
			case errors.As(err, &verr):
				return nil
			case err != nil:
				return err
			}
			logger.Info("queued render submitted", "render_id", rd.ID, "renderer_id", rd.RendererID)
			return nil
		},
	}
}
