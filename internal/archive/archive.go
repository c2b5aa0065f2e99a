// Package archive keeps the render payloads handed to the renderer, on local
// disk and optionally in S3, for diagnostics and the timeline endpoint.
package archive

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"regexp"
	"strings"
	"time"
)

// ErrNotFound is returned when no payload is archived under an id.
var ErrNotFound = errors.New("archive: payload not found")

var validID = regexp.MustCompile(`^[A-Za-z0-9][A-Za-z0-9._-]*$`)

// Archive stores one JSON document per render id.
type Archive struct {
	dir    string
	store  ObjectStore
	logger *slog.Logger
}

// New creates an archive rooted at dir. store may be nil.
func New(dir string, store ObjectStore, logger *slog.Logger) (*Archive, error) {
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create payload directory: %w", err)
	}
	return &Archive{dir: dir, store: store, logger: logger}, nil
}

func (a *Archive) path(id string) string {
	return filepath.Join(a.dir, id+".json")
}

func checkID(id string) error {
	if !validID.MatchString(id) || strings.Contains(id, "..") {
		return fmt.Errorf("archive: invalid id %q", id)
	}
	return nil
}

// Save writes payload as indented JSON and returns the local path. A failed
// S3 upload is logged and does not fail the save.
func (a *Archive) Save(ctx context.Context, id string, payload interface{}) (string, error) {
	if err := checkID(id); err != nil {
		return "", err
	}

	data, err := json.MarshalIndent(payload, "", "  ")
	if err != nil {
		return "", fmt.Errorf("marshal payload: %w", err)
	}

	p := a.path(id)
	tmp := p + ".tmp"
	if err := os.WriteFile(tmp, data, 0644); err != nil {
		return "", fmt.Errorf("write payload: %w", err)
	}
	if err := os.Rename(tmp, p); err != nil {
		os.Remove(tmp)
		return "", fmt.Errorf("write payload: %w", err)
	}

	if a.store != nil {
		if err := a.store.Put(ctx, id+".json", bytes.NewReader(data), "application/json"); err != nil {
			if a.logger != nil {
				a.logger.Warn("payload upload failed", "render_id", id, "error", err)
			}
		} else if a.logger != nil {
			a.logger.Debug("payload uploaded", "render_id", id, "bytes", len(data))
		}
	}

	return p, nil
}

// Load returns the archived payload. Dumps already pruned from disk are read
// back from the object store when one is configured.
func (a *Archive) Load(ctx context.Context, id string) ([]byte, error) {
	if err := checkID(id); err != nil {
		return nil, err
	}

	data, err := os.ReadFile(a.path(id))
	if err == nil {
		return data, nil
	}
	if !errors.Is(err, os.ErrNotExist) {
		return nil, fmt.Errorf("read payload: %w", err)
	}
	if a.store == nil {
		return nil, ErrNotFound
	}

	body, err := a.store.Get(ctx, id+".json")
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("fetch payload: %w", err)
	}
	defer body.Close()
	return io.ReadAll(body)
}

// Prune deletes local dumps last modified before now-olderThan and returns
// how many were removed. Remote copies are left to bucket lifecycle rules.
func (a *Archive) Prune(olderThan time.Duration) (int, error) {
	entries, err := os.ReadDir(a.dir)
	if err != nil {
		return 0, fmt.Errorf("read payload directory: %w", err)
	}

	cutoff := time.Now().Add(-olderThan)
	removed := 0
	for _, e := range entries {
		if e.IsDir() || filepath.Ext(e.Name()) != ".json" {
			continue
		}
		info, err := e.Info()
		if err != nil {
			continue
		}
		if info.ModTime().After(cutoff) {
			continue
		}
		if err := os.Remove(filepath.Join(a.dir, e.Name())); err != nil && !errors.Is(err, os.ErrNotExist) {
			return removed, fmt.Errorf("remove %s: %w", e.Name(), err)
		}
		removed++
	}
	return removed, nil
}
