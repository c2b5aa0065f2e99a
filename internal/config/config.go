// Package config provides configuration management for reelforge.
// Configuration is loaded from environment variables (optionally seeded from a
// .env file) with sensible defaults.
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

const (
	// Default values
	DefaultPort     = 8790
	DefaultHost     = "127.0.0.1"
	DefaultLogLevel = "info"
	DefaultDataDir  = ".reelforge"

	DefaultRendererURL   = "https://api.shotstack.io/edit"
	DefaultRendererStage = "v1"

	DefaultPollInterval     = 10 * time.Second
	DefaultProbeTimeout     = 15 * time.Second
	DefaultPayloadRetention = 7 * 24 * time.Hour
	DefaultPruneSchedule    = "@hourly"
	DefaultKafkaGroup       = "reelforge"

	// Environment variable names
	EnvPort     = "REELFORGE_PORT"
	EnvLogLevel = "REELFORGE_LOG_LEVEL"
	EnvDataDir  = "REELFORGE_DATA_DIR"
	EnvHeadless = "REELFORGE_HEADLESS"
	EnvHost     = "REELFORGE_HOST"

	EnvAllowedOrigins = "REELFORGE_ALLOWED_ORIGINS"

	EnvRendererURL    = "REELFORGE_RENDERER_URL"
	EnvRendererAPIKey = "REELFORGE_RENDERER_API_KEY"
	EnvRendererStage  = "REELFORGE_RENDERER_STAGE"
	EnvCallbackURL    = "REELFORGE_CALLBACK_BASE_URL"
	EnvPollInterval   = "REELFORGE_POLL_INTERVAL"
	EnvProbeTimeout   = "REELFORGE_PROBE_TIMEOUT"

	EnvRedisAddr     = "REELFORGE_REDIS_ADDR"
	EnvRedisPassword = "REELFORGE_REDIS_PASSWORD"
	EnvRedisDB       = "REELFORGE_REDIS_DB"

	EnvS3Bucket = "REELFORGE_S3_BUCKET"
	EnvS3Region = "REELFORGE_S3_REGION"
	EnvS3Prefix = "REELFORGE_S3_PREFIX"

	EnvKafkaBrokers = "REELFORGE_KAFKA_BROKERS"
	EnvKafkaTopic   = "REELFORGE_KAFKA_TOPIC"
	EnvKafkaGroup   = "REELFORGE_KAFKA_GROUP"

	EnvYouTubeCredentials = "REELFORGE_YOUTUBE_CREDENTIALS"

	EnvPayloadRetention = "REELFORGE_PAYLOAD_RETENTION"
	EnvPruneSchedule    = "REELFORGE_PRUNE_SCHEDULE"
	EnvAssetsFile       = "REELFORGE_ASSETS_FILE"

	// Database filename
	DBFilename = "reelforge.db"
)

// Config defines the application configuration interface
type Config interface {
	Port() int
	Host() string
	AllowedOrigins() []string
	LogLevel() string
	DataDir() string
	DBPath() string
	PayloadDir() string
	Headless() bool

	RendererURL() string
	RendererAPIKey() string
	RendererStage() string
	CallbackBaseURL() string
	PollInterval() time.Duration
	ProbeTimeout() time.Duration

	RedisAddr() string
	RedisPassword() string
	RedisDB() int

	S3Bucket() string
	S3Region() string
	S3Prefix() string

	KafkaBrokers() []string
	KafkaTopic() string
	KafkaGroup() string

	YouTubeCredentialsFile() string

	PayloadRetention() time.Duration
	PruneSchedule() string
	Assets() *Assets
}

// EnvConfig reads configuration from environment variables
type EnvConfig struct {
	port     int
	host     string
	logLevel string
	dataDir  string
	headless bool

	allowedOrigins []string

	rendererURL    string
	rendererAPIKey string
	rendererStage  string
	callbackURL    string
	pollInterval   time.Duration
	probeTimeout   time.Duration

	redisAddr     string
	redisPassword string
	redisDB       int

	s3Bucket string
	s3Region string
	s3Prefix string

	kafkaBrokers []string
	kafkaTopic   string
	kafkaGroup   string

	youtubeCredentials string

	payloadRetention time.Duration
	pruneSchedule    string
	assets           *Assets
}

// LoadDotEnv loads KEY=VALUE pairs from the given files into the process
// environment without overriding variables that are already set. Missing
// files are skipped. With no paths, ./.env is tried.
func LoadDotEnv(paths ...string) error {
	if len(paths) == 0 {
		paths = []string{".env"}
	}
	for _, p := range paths {
		if err := godotenv.Load(p); err != nil {
			if errors.Is(err, fs.ErrNotExist) {
				continue
			}
			return fmt.Errorf("failed to load %s: %w", p, err)
		}
	}
	return nil
}

// New creates a new EnvConfig with defaults and environment variable overrides
func New() (*EnvConfig, error) {
	cfg := &EnvConfig{
		port:             DefaultPort,
		host:             DefaultHost,
		logLevel:         DefaultLogLevel,
		dataDir:          defaultDataDir(),
		headless:         true,
		rendererURL:      DefaultRendererURL,
		rendererStage:    DefaultRendererStage,
		pollInterval:     DefaultPollInterval,
		probeTimeout:     DefaultProbeTimeout,
		kafkaGroup:       DefaultKafkaGroup,
		payloadRetention: DefaultPayloadRetention,
		pruneSchedule:    DefaultPruneSchedule,
		assets:           &Assets{},
	}

	if p := os.Getenv(EnvPort); p != "" {
		port, err := strconv.Atoi(p)
		if err != nil {
			return nil, fmt.Errorf("invalid %s: %w", EnvPort, err)
		}
		if port < 1 || port > 65535 {
			return nil, fmt.Errorf("invalid %s: port must be between 1 and 65535", EnvPort)
		}
		cfg.port = port
	}

	if ll := os.Getenv(EnvLogLevel); ll != "" {
		cfg.logLevel = ll
	}
	if dd := os.Getenv(EnvDataDir); dd != "" {
		cfg.dataDir = dd
	}
	if h := os.Getenv(EnvHeadless); h != "" {
		headless, err := strconv.ParseBool(h)
		if err != nil {
			return nil, fmt.Errorf("invalid %s: %w", EnvHeadless, err)
		}
		cfg.headless = headless
	}

	if u := os.Getenv(EnvRendererURL); u != "" {
		cfg.rendererURL = strings.TrimRight(u, "/")
	}
	cfg.rendererAPIKey = os.Getenv(EnvRendererAPIKey)
	if s := os.Getenv(EnvRendererStage); s != "" {
		cfg.rendererStage = s
	}
	cfg.callbackURL = strings.TrimRight(os.Getenv(EnvCallbackURL), "/")

	var err error
	if cfg.pollInterval, err = durationEnv(EnvPollInterval, cfg.pollInterval); err != nil {
		return nil, err
	}
	if cfg.probeTimeout, err = durationEnv(EnvProbeTimeout, cfg.probeTimeout); err != nil {
		return nil, err
	}
	if cfg.payloadRetention, err = durationEnv(EnvPayloadRetention, cfg.payloadRetention); err != nil {
		return nil, err
	}

	cfg.redisAddr = os.Getenv(EnvRedisAddr)
	cfg.redisPassword = os.Getenv(EnvRedisPassword)
	if db := os.Getenv(EnvRedisDB); db != "" {
		n, err := strconv.Atoi(db)
		if err != nil || n < 0 {
			return nil, fmt.Errorf("invalid %s: must be a non-negative integer", EnvRedisDB)
		}
		cfg.redisDB = n
	}

	cfg.s3Bucket = os.Getenv(EnvS3Bucket)
	cfg.s3Region = os.Getenv(EnvS3Region)
	cfg.s3Prefix = os.Getenv(EnvS3Prefix)

	if h := os.Getenv(EnvHost); h != "" {
		cfg.host = h
	}
	cfg.allowedOrigins = splitList(os.Getenv(EnvAllowedOrigins))

	cfg.kafkaBrokers = splitList(os.Getenv(EnvKafkaBrokers))
	cfg.kafkaTopic = os.Getenv(EnvKafkaTopic)
	if g := os.Getenv(EnvKafkaGroup); g != "" {
		cfg.kafkaGroup = g
	}

	cfg.youtubeCredentials = os.Getenv(EnvYouTubeCredentials)

	if s := os.Getenv(EnvPruneSchedule); s != "" {
		cfg.pruneSchedule = s
	}

	if path := os.Getenv(EnvAssetsFile); path != "" {
		assets, err := LoadAssets(path)
		if err != nil {
			return nil, err
		}
		cfg.assets = assets
	}

	return cfg, nil
}

// Port returns the HTTP server port
func (c *EnvConfig) Port() int {
	return c.port
}

// Host returns the interface the HTTP server binds to
func (c *EnvConfig) Host() string {
	return c.host
}

// AllowedOrigins returns browser origins allowed in addition to loopback ones
func (c *EnvConfig) AllowedOrigins() []string {
	return c.allowedOrigins
}

// LogLevel returns the log level (debug, info, warn, error)
func (c *EnvConfig) LogLevel() string {
	return c.logLevel
}

// DataDir returns the data directory path
func (c *EnvConfig) DataDir() string {
	return c.dataDir
}

// DBPath returns the full path to the SQLite database file
func (c *EnvConfig) DBPath() string {
	return filepath.Join(c.dataDir, DBFilename)
}

// PayloadDir returns the directory render payload dumps are written to
func (c *EnvConfig) PayloadDir() string {
	return filepath.Join(c.dataDir, "payloads")
}

// Headless reports whether the system tray is disabled
func (c *EnvConfig) Headless() bool {
	return c.headless
}

func (c *EnvConfig) RendererURL() string {
	return c.rendererURL
}

func (c *EnvConfig) RendererAPIKey() string {
	return c.rendererAPIKey
}

func (c *EnvConfig) RendererStage() string {
	return c.rendererStage
}

// CallbackBaseURL returns the public base URL the renderer calls back to.
// Empty disables callbacks; renders are then tracked by polling only.
func (c *EnvConfig) CallbackBaseURL() string {
	return c.callbackURL
}

func (c *EnvConfig) PollInterval() time.Duration {
	return c.pollInterval
}

func (c *EnvConfig) ProbeTimeout() time.Duration {
	return c.probeTimeout
}

func (c *EnvConfig) RedisAddr() string {
	return c.redisAddr
}

func (c *EnvConfig) RedisPassword() string {
	return c.redisPassword
}

func (c *EnvConfig) RedisDB() int {
	return c.redisDB
}

func (c *EnvConfig) S3Bucket() string {
	return c.s3Bucket
}

func (c *EnvConfig) S3Region() string {
	return c.s3Region
}

func (c *EnvConfig) S3Prefix() string {
	return c.s3Prefix
}

func (c *EnvConfig) KafkaBrokers() []string {
	return c.kafkaBrokers
}

func (c *EnvConfig) KafkaTopic() string {
	return c.kafkaTopic
}

func (c *EnvConfig) KafkaGroup() string {
	return c.kafkaGroup
}

func (c *EnvConfig) YouTubeCredentialsFile() string {
	return c.youtubeCredentials
}

// PayloadRetention returns how long payload dumps are kept on disk
func (c *EnvConfig) PayloadRetention() time.Duration {
	return c.payloadRetention
}

// PruneSchedule returns the cron spec of the payload pruning job
func (c *EnvConfig) PruneSchedule() string {
	return c.pruneSchedule
}

// Assets returns the asset overrides, never nil
func (c *EnvConfig) Assets() *Assets {
	return c.assets
}

func durationEnv(name string, def time.Duration) (time.Duration, error) {
	v := os.Getenv(name)
	if v == "" {
		return def, nil
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		return 0, fmt.Errorf("invalid %s: %w", name, err)
	}
	if d <= 0 {
		return 0, fmt.Errorf("invalid %s: must be positive", name)
	}
	return d, nil
}

func splitList(v string) []string {
	var out []string
	for _, part := range strings.Split(v, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}

// defaultDataDir returns the default data directory path
func defaultDataDir() string {
	home, err := os.UserHomeDir()
	if err != nil {
		// Fallback to current directory if home is not available
		return DefaultDataDir
	}
	return filepath.Join(home, DefaultDataDir)
}

// Version information (set at build time via ldflags)
var (
	Version   = "0.1.0"
	BuildTime = "unknown"
	GitCommit = "unknown"
)
