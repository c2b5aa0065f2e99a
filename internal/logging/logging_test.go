package logging

import (
	"bytes"
	"encoding/json"
	"log/slog"
	"testing"
)

func TestParseLevel(t *testing.T) {
	tests := []struct {
		in   string
		want slog.Level
	}{
		{"debug", slog.LevelDebug},
		{"DEBUG", slog.LevelDebug},
		{"warn", slog.LevelWarn},
		{"warning", slog.LevelWarn},
		{"error", slog.LevelError},
		{"info", slog.LevelInfo},
		{"verbose", slog.LevelInfo},
		{"", slog.LevelInfo},
	}
	for _, tc := range tests {
		if got := ParseLevel(tc.in); got != tc.want {
			t.Errorf("ParseLevel(%q) = %v, want %v", tc.in, got, tc.want)
		}
	}
}

func TestNewLoggerTo_JSONWithAttributes(t *testing.T) {
	var buf bytes.Buffer
	logger := WithRenderID(WithComponent(NewLoggerTo(&buf, "info"), "runner"), "r-1")

	logger.Debug("hidden")
	logger.Info("render submitted", "tracks", 3)

	var entry map[string]interface{}
	if err := json.Unmarshal(bytes.TrimSpace(buf.Bytes()), &entry); err != nil {
		t.Fatalf("expected a single JSON line, got %q: %v", buf.String(), err)
	}
	if entry["msg"] != "render submitted" {
		t.Errorf("msg = %v", entry["msg"])
	}
	if entry["component"] != "runner" || entry["render_id"] != "r-1" {
		t.Errorf("attributes = %v", entry)
	}
	if entry["tracks"] != float64(3) {
		t.Errorf("tracks = %v, want 3", entry["tracks"])
	}
}

func TestSanitizeToken(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"", "****"},
		{"short", "****"},
		{"12345678", "****"},
		{"abcd1234efgh", "abcd...efgh"},
	}
	for _, tc := range tests {
		if got := SanitizeToken(tc.in); got != tc.want {
			t.Errorf("SanitizeToken(%q) = %q, want %q", tc.in, got, tc.want)
		}
	}
}

func TestSanitizeURL(t *testing.T) {
	if got := SanitizeURL("https://cdn/a.mp3?X-Amz-Signature=secret"); got != "https://cdn/a.mp3?..." {
		t.Errorf("SanitizeURL() = %q", got)
	}
	if got := SanitizeURL("https://cdn/a.mp3"); got != "https://cdn/a.mp3" {
		t.Errorf("SanitizeURL() = %q", got)
	}
}
