package app

import (
	"context"
	"errors"
	"fmt"
	"os"
	"sync"
	"time"

	"github.com/auto-dns/buildwatch/internal/config"
	"github.com/auto-dns/buildwatch/internal/detect"
	"github.com/auto-dns/buildwatch/internal/domain"
	"github.com/auto-dns/buildwatch/internal/event"
	"github.com/auto-dns/buildwatch/internal/health"
	"github.com/auto-dns/buildwatch/internal/ingest"
	"github.com/auto-dns/buildwatch/internal/issues"
	"github.com/auto-dns/buildwatch/internal/metrics"
	"github.com/auto-dns/buildwatch/internal/persist"
	"github.com/auto-dns/buildwatch/internal/ring"
	"github.com/auto-dns/buildwatch/internal/server"
	"github.com/auto-dns/buildwatch/internal/snapshot"
	"github.com/auto-dns/buildwatch/internal/state"
	dockerCli "github.com/docker/docker/client"
	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

// stateFileThrottle bounds how often per-event state changes hit disk.
const stateFileThrottle = 2 * time.Second

// shutdownGrace bounds how long in-flight HTTP responses may take to drain.
const shutdownGrace = 10 * time.Second

type App struct {
	logger       zerolog.Logger
	cfg          *config.Config
	dockerClient *dockerCli.Client

	store       *state.Store
	issueList   *issues.List
	lifecycle   *health.Lifecycle
	stateFile   *persist.StateFile
	appenders   []*persist.Appender
	ingestor    *ingest.Ingestor
	sampler     *metrics.Sampler
	snapshotter *snapshot.Snapshotter
	server      *server.Server
}

// New creates a new App by wiring up all dependencies. Failures here are
// startup-fatal; after Run reaches the running state all errors are
// downgraded to logged warnings.
func New(cfg *config.Config, logger zerolog.Logger) (*App, error) {
	for _, dir := range []string{cfg.Paths.LogDir, cfg.Paths.StateDir} {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("create directory %s: %w", dir, err)
		}
	}

	a := &App{
		logger: logger,
		cfg:    cfg,
	}

	// Event source and log tailer, native API by default with the runtime
	// CLI as fallback.
	var src event.Source
	var tailer event.LogTailer
	if cfg.Ingest.Source == config.SourceCLI {
		src = event.NewCLISource(logger)
		tailer = event.NewCLILogTailer(logger)
	} else {
		cli, err := dockerCli.NewClientWithOpts(dockerCli.FromEnv, dockerCli.WithAPIVersionNegotiation())
		if err != nil {
			return nil, fmt.Errorf("create docker client: %w", err)
		}
		a.dockerClient = cli
		src = event.NewDockerSource(cli, logger)
		tailer = event.NewDockerLogTailer(cli, logger)
	}

	// Crash recovery: reload the last persisted container table.
	a.stateFile = persist.NewStateFile(cfg.Paths.StateDir, stateFileThrottle, logger)
	if doc, err := a.stateFile.Load(); err == nil {
		a.store = state.NewStoreFrom(doc)
		logger.Info().Int("containers", len(doc.Containers)).Msg("Recovered state from disk")
	} else {
		if !errors.Is(err, persist.ErrNoStateFile) {
			logger.Warn().Err(err).Msg("Could not recover state, starting fresh")
		}
		a.store = state.NewStore()
	}

	eventLog := persist.NewAppender(cfg.Paths.LogDir, "events.log", cfg.Retention.Days, logger)
	issueLog := persist.NewAppender(cfg.Paths.LogDir, "issues.log", cfg.Retention.Days, logger)
	metricsLog := persist.NewAppender(cfg.Paths.LogDir, "metrics.log", cfg.Retention.Days, logger)
	statusLog := persist.NewAppender(cfg.Paths.LogDir, "status.log", cfg.Retention.Days, logger)
	a.appenders = []*persist.Appender{eventLog, issueLog, metricsLog, statusLog}

	a.issueList = issues.NewList()
	a.lifecycle = health.NewLifecycle(logger)
	ringBuf := ring.New(cfg.Ingest.RingCapacity)

	deploymentID := cfg.App.DeploymentID
	if deploymentID == "" {
		deploymentID = uuid.NewString()
	}
	meta := domain.DeploymentMetadata{
		DeploymentID: deploymentID,
		AppName:      cfg.App.AppName,
		StartedAt:    time.Now().UTC(),
	}

	detector := detect.NewDetector(a.issueList, issueLog, logger)
	a.ingestor = ingest.New(src, a.store, ringBuf, detector, eventLog, a.stateFile, a.lifecycle, ingest.Options{
		QueueSize:         cfg.Ingest.QueueSize,
		DegradedThreshold: cfg.Ingest.DegradedThreshold,
		MaxBackoff:        time.Duration(cfg.Ingest.ReconnectMaxBackoffSeconds) * time.Second,
	}, logger)

	if cfg.Metrics.Enabled {
		a.sampler = metrics.NewSampler(metricsLog, time.Duration(cfg.Metrics.IntervalSeconds)*time.Second, logger)
	}
	a.snapshotter = snapshot.New(a.store, a.issueList, a.lifecycle, meta, statusLog,
		time.Duration(cfg.Snapshot.IntervalSeconds)*time.Second, logger)

	a.server = server.New(a.store, ringBuf, a.issueList, a.lifecycle, a.ingestor, tailer, meta, server.Options{
		Port:           cfg.API.Port,
		MetricsEnabled: cfg.Metrics.Enabled,
	}, logger)

	return a, nil
}

// Run starts every loop and blocks until the context is cancelled, then
// drains gracefully: stop timers, close the subscription, give in-flight
// responses a bounded grace, flush buffers.
func (a *App) Run(ctx context.Context) error {
	a.logger.Info().Msg("Application starting")

	// The first snapshot gates starting→running together with the first
	// successful subscription; a write failure here is transient I/O.
	if err := a.snapshotter.WriteOnce(); err != nil {
		a.logger.Warn().Err(err).Msg("Failed to write initial status snapshot")
	}

	if err := a.server.Start(ctx); err != nil {
		return err
	}

	var wg sync.WaitGroup
	runLoop := func(name string, fn func(context.Context) error) {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if err := fn(ctx); err != nil && err != context.Canceled {
				a.logger.Warn().Err(err).Str("loop", name).Msg("Background loop exited")
			}
		}()
	}

	runLoop("ingestor", a.ingestor.Run)
	runLoop("snapshotter", a.snapshotter.Run)
	if a.sampler != nil {
		runLoop("sampler", a.sampler.Run)
	}

	<-ctx.Done()
	a.logger.Info().Msg("Shutting down")
	a.lifecycle.SetStopped()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownGrace)
	defer cancel()
	if err := a.server.Shutdown(shutdownCtx); err != nil {
		a.logger.Warn().Err(err).Msg("API server shutdown error")
	}

	wg.Wait()

	if err := a.stateFile.Write(a.store.Document()); err != nil {
		a.logger.Warn().Err(err).Msg("Final state flush failed")
	}
	if err := a.Close(); err != nil {
		a.logger.Warn().Err(err).Msg("Close error")
	}

	a.logger.Info().Msg("Shutdown complete")
	return nil
}

func (a *App) Close() error {
	var firstErr error
	for _, ap := range a.appenders {
		if err := ap.Close(); err != nil && firstErr == nil {
			firstErr = fmt.Errorf("close appender: %w", err)
		}
	}
	if a.dockerClient != nil {
		if err := a.dockerClient.Close(); err != nil && firstErr == nil {
			firstErr = fmt.Errorf("close docker client: %w", err)
		}
	}
	return firstErr
}
