package main

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"log"
	"log/slog"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/samber/lo"

	"github.com/reelforge/reelforge/internal/api"
	"github.com/reelforge/reelforge/internal/archive"
	"github.com/reelforge/reelforge/internal/config"
	"github.com/reelforge/reelforge/internal/db"
	"github.com/reelforge/reelforge/internal/logging"
	"github.com/reelforge/reelforge/internal/probe"
	"github.com/reelforge/reelforge/internal/publish"
	"github.com/reelforge/reelforge/internal/queue"
	"github.com/reelforge/reelforge/internal/render"
	"github.com/reelforge/reelforge/internal/renders"
	"github.com/reelforge/reelforge/internal/timeline"
	"github.com/reelforge/reelforge/internal/ui"
)

func main() {
	if err := run(); err != nil {
		log.Fatalf("fatal error: %v", err)
	}
}

func run() error {
	startTime := time.Now()

	if err := config.LoadDotEnv(); err != nil {
		return err
	}

	cfg, err := config.New()
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	if err := os.MkdirAll(cfg.DataDir(), 0755); err != nil {
		return fmt.Errorf("failed to create data dir: %w", err)
	}

	logger := logging.NewLogger(cfg.LogLevel())
	logger.Info("starting reelforge", "version", config.Version, "commit", config.GitCommit, "data_dir", cfg.DataDir())

	database, err := db.New(cfg.DBPath(), logger)
	if err != nil {
		return fmt.Errorf("failed to initialize database: %w", err)
	}
	defer database.Close()

	repo := renders.NewRepository(database.Conn())

	authToken, err := ensureAuthToken(repo)
	if err != nil {
		return fmt.Errorf("failed to ensure auth token: %w", err)
	}

	fmt.Println()
	fmt.Println("╔═══════════════════════════════════════════════════════════╗")
	fmt.Printf("║                     REELFORGE v%-10s                 ║\n", config.Version)
	fmt.Println("╠═══════════════════════════════════════════════════════════╣")
	fmt.Printf("║  API URL:    http://%-38s║\n", fmt.Sprintf("%s:%d", cfg.Host(), cfg.Port()))
	fmt.Println("╚═══════════════════════════════════════════════════════════╝")
	fmt.Printf("  Auth Token: %s\n", authToken)
	fmt.Println()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	prober := newProber(ctx, cfg, logger)

	builder := timeline.NewBuilder(timeline.Options{
		OverlaySources: lo.MapKeys(cfg.Assets().Overlays, func(_ string, kind string) timeline.OverlayKind {
			return timeline.OverlayKind(kind)
		}),
	}, logging.WithComponent(logger, "timeline"))

	var renderer render.Client
	if cfg.RendererAPIKey() != "" {
		renderer = render.NewHTTPClient(cfg.RendererURL(), cfg.RendererStage(), cfg.RendererAPIKey(), logger)
		logger.Info("renderer configured", "url", cfg.RendererURL(), "stage", cfg.RendererStage())
	} else {
		renderer = render.NewStubClient(logger)
		logger.Warn("no renderer api key, renders will be accepted but never rendered")
	}

	payloads, err := newArchive(ctx, cfg, logger)
	if err != nil {
		return err
	}
	pruner := archive.NewScheduler(payloads, cfg.PayloadRetention(), logger)
	if err := pruner.Start(cfg.PruneSchedule()); err != nil {
		return fmt.Errorf("failed to schedule payload pruning: %w", err)
	}
	defer pruner.Stop()

	var publisher publish.Publisher
	if path := cfg.YouTubeCredentialsFile(); path != "" {
		yt, err := publish.NewYouTube(ctx, path, logger)
		if err != nil {
			return fmt.Errorf("failed to set up youtube publishing: %w", err)
		}
		publisher = yt
		logger.Info("youtube publishing enabled")
	} else {
		publisher = publish.NewStub(logger)
	}

	service := renders.NewService(repo, renders.ServiceConfig{
		Builder:         builder,
		Prober:          prober,
		Renderer:        renderer,
		Archive:         payloads,
		Publisher:       publisher,
		CallbackBaseURL: cfg.CallbackBaseURL(),
	}, logging.WithComponent(logger, "renders"))

	runner := renders.NewRunner(service, repo, renderer, cfg.PollInterval(), logging.WithComponent(logger, "runner"))
	go runner.Start(ctx)

	if brokers := cfg.KafkaBrokers(); len(brokers) > 0 && cfg.KafkaTopic() != "" {
		qlogger := logging.WithComponent(logger, "queue")
		consumer, err := queue.NewConsumer(queue.ConsumerConfig{
			Brokers: brokers,
			Topic:   cfg.KafkaTopic(),
			GroupID: cfg.KafkaGroup(),
			Handler: queue.NewRenderHandler(service, qlogger),
		}, qlogger)
		if err != nil {
			return fmt.Errorf("failed to create kafka consumer: %w", err)
		}
		defer consumer.Close()

		go func() {
			if err := consumer.Start(ctx); err != nil && ctx.Err() == nil {
				qlogger.Error("kafka consumer failed to start", "error", err)
			}
		}()
	}

	apiServer := api.NewServer(api.ServerConfig{
		Host:           cfg.Host(),
		Port:           cfg.Port(),
		Service:        service,
		Repository:     repo,
		Runner:         runner,
		AllowedOrigins: cfg.AllowedOrigins(),
		Logger:         logger,
		StartTime:      startTime,
		Version:        config.Version,
	})

	go func() {
		if err := apiServer.Start(); err != nil {
			logger.Error("HTTP server error", "error", err)
		}
	}()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	quitCh := make(chan struct{})
	var quitOnce sync.Once
	quit := func() { quitOnce.Do(func() { close(quitCh) }) }

	go func() {
		select {
		case sig := <-sigCh:
			logger.Info("received shutdown signal", "signal", sig)
			quit()
		case <-quitCh:
		}
	}()

	var tray *ui.Tray
	if cfg.Headless() {
		logger.Info("running in headless mode (no system tray)")
	} else {
		tray = ui.NewTray(ui.TrayConfig{
			Runner: runner,
			Logger: logger,
			OnQuit: quit,
		})
		go tray.Run()
	}

	<-quitCh

	logger.Info("initiating graceful shutdown")
	cancel()

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()

	if err := apiServer.Shutdown(shutdownCtx); err != nil {
		logger.Error("failed to shutdown HTTP server", "error", err)
	}
	if tray != nil {
		tray.Quit()
	}

	logger.Info("shutdown complete")
	return nil
}

// newProber probes with ffprobe behind a duration cache, in redis when
// configured and in memory otherwise.
func newProber(ctx context.Context, cfg config.Config, logger *slog.Logger) timeline.DurationProber {
	plogger := logging.WithComponent(logger, "probe")
	ffprobe := probe.NewFFProbe(cfg.ProbeTimeout(), plogger)

	var store probe.Store = probe.NewMemoryStore()
	if addr := cfg.RedisAddr(); addr != "" {
		dialCtx, dialCancel := context.WithTimeout(ctx, 5*time.Second)
		defer dialCancel()
		client, err := probe.DialRedis(dialCtx, addr, cfg.RedisPassword(), cfg.RedisDB())
		if err != nil {
			plogger.Warn("redis unavailable, caching durations in memory", "addr", addr, "error", err)
		} else {
			store = probe.NewRedisStore(client)
			plogger.Info("caching durations in redis", "addr", addr)
		}
	}
	return probe.NewCached(ffprobe, store, probe.DefaultCacheTTL, plogger)
}

func newArchive(ctx context.Context, cfg config.Config, logger *slog.Logger) (*archive.Archive, error) {
	alogger := logging.WithComponent(logger, "archive")

	var store archive.ObjectStore
	if bucket := cfg.S3Bucket(); bucket != "" {
		s3Store, err := archive.NewS3Store(ctx, archive.S3Config{
			Bucket: bucket,
			Region: cfg.S3Region(),
			Prefix: cfg.S3Prefix(),
		})
		if err != nil {
			return nil, fmt.Errorf("failed to set up s3 archive: %w", err)
		}
		store = s3Store
		alogger.Info("archiving payloads to s3", "bucket", bucket, "prefix", cfg.S3Prefix())
	}

	a, err := archive.New(cfg.PayloadDir(), store, alogger)
	if err != nil {
		return nil, err
	}
	return a, nil
}

func ensureAuthToken(repo renders.Repository) (string, error) {
	ctx := context.Background()

	existing, err := repo.GetConfig(ctx, api.AuthTokenKey)
	if err == nil && existing != "" {
		return existing, nil
	}

	tokenBytes := make([]byte, 32)
	if _, err := rand.Read(tokenBytes); err != nil {
		return "", err
	}
	token := hex.EncodeToString(tokenBytes)

	if err := repo.SetConfig(ctx, api.AuthTokenKey, token); err != nil {
		return "", err
	}

	return token, nil
}
