package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestNew_Defaults(t *testing.T) {
	t.Setenv(EnvDataDir, t.TempDir())

	cfg, err := New()
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}

	if cfg.Host() != DefaultHost {
		t.Errorf("Host() = %q, want %q", cfg.Host(), DefaultHost)
	}
	if cfg.Port() != DefaultPort {
		t.Errorf("Port() = %d, want %d", cfg.Port(), DefaultPort)
	}
	if !cfg.Headless() {
		t.Error("Headless() = false, want true by default")
	}
	if cfg.PollInterval() != DefaultPollInterval {
		t.Errorf("PollInterval() = %v, want %v", cfg.PollInterval(), DefaultPollInterval)
	}
	if cfg.PruneSchedule() != "@hourly" {
		t.Errorf("PruneSchedule() = %q, want @hourly", cfg.PruneSchedule())
	}
	if cfg.RendererURL() != DefaultRendererURL || cfg.RendererStage() != DefaultRendererStage {
		t.Errorf("renderer = %s/%s", cfg.RendererURL(), cfg.RendererStage())
	}
	if cfg.Assets() == nil {
		t.Error("Assets() = nil, want empty assets")
	}
	if filepath.Base(cfg.DBPath()) != DBFilename {
		t.Errorf("DBPath() = %q", cfg.DBPath())
	}
}

func TestNew_EnvOverrides(t *testing.T) {
	t.Setenv(EnvPort, "9001")
	t.Setenv(EnvHeadless, "false")
	t.Setenv(EnvRendererURL, "https://renderer.example.com/")
	t.Setenv(EnvCallbackURL, "https://hooks.example.com/")
	t.Setenv(EnvPollInterval, "2s")
	t.Setenv(EnvRedisDB, "3")
	t.Setenv(EnvKafkaBrokers, "k1:9092, k2:9092,,")
	t.Setenv(EnvPayloadRetention, "48h")
	t.Setenv(EnvHost, "0.0.0.0")
	t.Setenv(EnvAllowedOrigins, "https://editor.example.com")

	cfg, err := New()
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}

	if cfg.Port() != 9001 {
		t.Errorf("Port() = %d, want 9001", cfg.Port())
	}
	if cfg.Headless() {
		t.Error("Headless() = true, want false")
	}
	if cfg.RendererURL() != "https://renderer.example.com" {
		t.Errorf("RendererURL() = %q, want trailing slash trimmed", cfg.RendererURL())
	}
	if cfg.CallbackBaseURL() != "https://hooks.example.com" {
		t.Errorf("CallbackBaseURL() = %q", cfg.CallbackBaseURL())
	}
	if cfg.PollInterval() != 2*time.Second {
		t.Errorf("PollInterval() = %v, want 2s", cfg.PollInterval())
	}
	if cfg.RedisDB() != 3 {
		t.Errorf("RedisDB() = %d, want 3", cfg.RedisDB())
	}
	brokers := cfg.KafkaBrokers()
	if len(brokers) != 2 || brokers[0] != "k1:9092" || brokers[1] != "k2:9092" {
		t.Errorf("KafkaBrokers() = %v", brokers)
	}
	if cfg.Host() != "0.0.0.0" {
		t.Errorf("Host() = %q, want 0.0.0.0", cfg.Host())
	}
	if origins := cfg.AllowedOrigins(); len(origins) != 1 || origins[0] != "https://editor.example.com" {
		t.Errorf("AllowedOrigins() = %v", origins)
	}
	if cfg.PayloadRetention() != 48*time.Hour {
		t.Errorf("PayloadRetention() = %v, want 48h", cfg.PayloadRetention())
	}
}

func TestNew_InvalidValues(t *testing.T) {
	tests := []struct {
		name  string
		key   string
		value string
	}{
		{"non-numeric port", EnvPort, "abc"},
		{"port out of range", EnvPort, "70000"},
		{"bad headless flag", EnvHeadless, "maybe"},
		{"bad poll interval", EnvPollInterval, "soon"},
		{"negative probe timeout", EnvProbeTimeout, "-1s"},
		{"negative redis db", EnvRedisDB, "-2"},
		{"missing assets file", EnvAssetsFile, "/nonexistent/assets.yaml"},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			t.Setenv(tc.key, tc.value)
			if _, err := New(); err == nil {
				t.Fatalf("New() with %s=%q: expected error", tc.key, tc.value)
			}
		})
	}
}

func TestLoadAssets(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "assets.yaml")
	content := "overlays:\n  dust: https://cdn.example.com/dust.mp4\n  screenDisplacement: https://cdn.example.com/sd.mp4\n"
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatal(err)
	}

	t.Setenv(EnvAssetsFile, path)
	cfg, err := New()
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}

	overlays := cfg.Assets().Overlays
	if overlays["dust"] != "https://cdn.example.com/dust.mp4" {
		t.Errorf("dust = %q", overlays["dust"])
	}
	if overlays["screenDisplacement"] != "https://cdn.example.com/sd.mp4" {
		t.Errorf("screenDisplacement = %q", overlays["screenDisplacement"])
	}
}

func TestLoadAssets_UnknownOverlay(t *testing.T) {
	path := filepath.Join(t.TempDir(), "assets.yaml")
	if err := os.WriteFile(path, []byte("overlays:\n  rain: https://cdn/rain.mp4\n"), 0644); err != nil {
		t.Fatal(err)
	}

	if _, err := LoadAssets(path); err == nil {
		t.Fatal("expected error for unknown overlay")
	}
}

func TestLoadDotEnv(t *testing.T) {
	path := filepath.Join(t.TempDir(), ".env")
	if err := os.WriteFile(path, []byte("REELFORGE_S3_BUCKET=from-dotenv\nREELFORGE_S3_PREFIX=from-dotenv/\n"), 0644); err != nil {
		t.Fatal(err)
	}
	t.Setenv(EnvS3Prefix, "already-set/")
	t.Setenv(EnvS3Bucket, "")
	os.Unsetenv(EnvS3Bucket)

	if err := LoadDotEnv(path, filepath.Join(t.TempDir(), "missing.env")); err != nil {
		t.Fatalf("LoadDotEnv() error = %v", err)
	}

	cfg, err := New()
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	if cfg.S3Bucket() != "from-dotenv" {
		t.Errorf("S3Bucket() = %q, want value from .env", cfg.S3Bucket())
	}
	if cfg.S3Prefix() != "already-set/" {
		t.Errorf("S3Prefix() = %q, want existing env to win", cfg.S3Prefix())
	}
}
