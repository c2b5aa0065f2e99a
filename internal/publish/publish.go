// Package publish uploads finished renders to YouTube.
package publish

import (
	"context"
	"log/slog"
	"strings"
	"unicode/utf8"

	"github.com/google/uuid"
)

const (
	maxTitleRunes        = 100
	DefaultPrivacyStatus = "private"
	DefaultCategoryID    = "22"
)

// Metadata describes the published video.
type Metadata struct {
	Title         string
	Description   string
	Tags          []string
	PrivacyStatus string
	CategoryID    string
}

// Normalize applies defaults and the platform title limit.
func (m Metadata) Normalize() Metadata {
	m.Title = strings.TrimSpace(m.Title)
	if m.Title == "" {
		m.Title = "Untitled"
	}
	if utf8.RuneCountInString(m.Title) > maxTitleRunes {
		runes := []rune(m.Title)
		m.Title = string(runes[:maxTitleRunes-3]) + "..."
	}
	switch m.PrivacyStatus {
	case "public", "unlisted", "private":
	default:
		m.PrivacyStatus = DefaultPrivacyStatus
	}
	if m.CategoryID == "" {
		m.CategoryID = DefaultCategoryID
	}
	return m
}

// Publisher uploads the video at videoURL and returns the platform video id.
type Publisher interface {
	Publish(ctx context.Context, videoURL string, meta Metadata) (string, error)
}

// Stub pretends to publish. It is used when no credentials are configured.
type Stub struct {
	logger *slog.Logger
}

func NewStub(logger *slog.Logger) *Stub {
	return &Stub{logger: logger}
}

func (s *Stub) Publish(ctx context.Context, videoURL string, meta Metadata) (string, error) {
	id := "stub-" + uuid.NewString()
	if s.logger != nil {
		s.logger.Info("publish stub: upload requested (no credentials configured)",
			"title", meta.Normalize().Title, "video_id", id)
	}
	return id, nil
}
