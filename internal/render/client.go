package render

import (
	"context"
	"log/slog"

	"github.com/google/uuid"
)

// Client submits edits to the renderer and reports their progress.
type Client interface {
	Submit(ctx context.Context, edit Edit) (string, error)
	Status(ctx context.Context, id string) (*Status, error)
}

// StubClient accepts every edit without rendering anything. It is used when
// no renderer API key is configured.
type StubClient struct {
	logger *slog.Logger
}

func NewStubClient(logger *slog.Logger) *StubClient {
	return &StubClient{logger: logger}
}

func (c *StubClient) Submit(ctx context.Context, edit Edit) (string, error) {
	id := "stub-" + uuid.NewString()
	if c.logger != nil {
		c.logger.Info("render stub: submission accepted (no renderer configured)",
			"renderer_id", id, "tracks", len(edit.Timeline.Tracks))
	}
	return id, nil
}

// Status always reports the job as queued so renders stay visible but never
// complete.
func (c *StubClient) Status(ctx context.Context, id string) (*Status, error) {
	return &Status{ID: id, Status: StatusQueued}, nil
}
