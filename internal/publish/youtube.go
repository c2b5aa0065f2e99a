package publish

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os"

	"golang.org/x/oauth2/google"
	"google.golang.org/api/option"
	"google.golang.org/api/youtube/v3"

	"github.com/reelforge/reelforge/internal/logging"
)

// YouTube uploads through the Data API with a service account.
type YouTube struct {
	service *youtube.Service
	http    *http.Client
	logger  *slog.Logger
}

func NewYouTube(ctx context.Context, serviceAccountFile string, logger *slog.Logger) (*YouTube, error) {
	data, err := os.ReadFile(serviceAccountFile)
	if err != nil {
		return nil, fmt.Errorf("unable to read service account file: %w", err)
	}

	config, err := google.JWTConfigFromJSON(data, youtube.YoutubeUploadScope)
	if err != nil {
		return nil, fmt.Errorf("unable to parse service account: %w", err)
	}

	service, err := youtube.NewService(ctx, option.WithHTTPClient(config.Client(ctx)))
	if err != nil {
		return nil, fmt.Errorf("unable to create YouTube service: %w", err)
	}

	return &YouTube{service: service, http: http.DefaultClient, logger: logger}, nil
}

// Publish streams the rendered file from videoURL straight into the upload.
func (y *YouTube) Publish(ctx context.Context, videoURL string, meta Metadata) (string, error) {
	meta = meta.Normalize()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, videoURL, nil)
	if err != nil {
		return "", fmt.Errorf("create download request: %w", err)
	}
	resp, err := y.http.Do(req)
	if err != nil {
		return "", fmt.Errorf("download rendered video: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("download rendered video: HTTP %d", resp.StatusCode)
	}

	if y.logger != nil {
		y.logger.Info("uploading video to youtube",
			"source", logging.SanitizeURL(videoURL),
			"title", meta.Title,
			"size_mb", float64(resp.ContentLength)/(1024*1024),
		)
	}

	video := &youtube.Video{
		Snippet: &youtube.VideoSnippet{
			Title:       meta.Title,
			Description: meta.Description,
			Tags:        meta.Tags,
			CategoryId:  meta.CategoryID,
		},
		Status: &youtube.VideoStatus{
			PrivacyStatus:           meta.PrivacyStatus,
			SelfDeclaredMadeForKids: false,
		},
	}

	call := y.service.Videos.Insert([]string{"snippet", "status"}, video).
		Media(resp.Body).
		Context(ctx)

	response, err := call.Do()
	if err != nil {
		return "", fmt.Errorf("failed to upload video: %w", err)
	}

	if y.logger != nil {
		y.logger.Info("video published", "video_id", response.Id)
	}
	return response.Id, nil
}
