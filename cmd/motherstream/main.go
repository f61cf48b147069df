// Command motherstream runs the single-output live-stream orchestrator:
// it accepts RTMP publishes from many DJs, rotates exactly one of them
// to the compositor at a time, and serves the ingest server's control
// callbacks, liveness check, and Prometheus metrics.
package main

import (
	"context"
	"log"
	"os"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"motherstream/internal/clients/ingestadmin"
	"motherstream/internal/clients/notify"
	"motherstream/internal/clients/recording"
	"motherstream/internal/clients/users"
	"motherstream/internal/config"
	"motherstream/internal/core/compositor"
	"motherstream/internal/core/health"
	"motherstream/internal/core/orchestrator"
	"motherstream/internal/core/supervisor"
	"motherstream/internal/core/worker"
	"motherstream/internal/logging"
	"motherstream/internal/server"
	"motherstream/internal/svc/control"
	"motherstream/internal/svc/metrics"
)

func main() {
	cfg, err := config.Load(nil)
	if err != nil {
		log.Fatalf("load config: %v", err)
	}
	if err := cfg.Validate(); err != nil {
		log.Fatalf("invalid config: %v", err)
	}

	logger := logging.New(cfg.LogLevel)
	appLog := logging.Component(logger, "main")

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	m := metrics.New(prometheus.DefaultRegisterer)

	compositorClient := compositor.New(compositor.Options{
		Host:                 cfg.Compositor.Host,
		Port:                 cfg.Compositor.Port,
		Password:             cfg.Compositor.Password,
		MaxReconnectFailures: 5,
		OnReconnect:          m.CompositorReconnected,
	}, logging.Component(logger, "compositor"))

	if err := compositorClient.Connect(ctx); err != nil {
		appLog.WithError(err).Error("initial compositor connection failed, will retry on first call")
	}

	notifier := notify.New(cfg.Notify.WebhookURL)
	recorder := recording.New(cfg.Recording.Host, cfg.Recording.Port)
	ingestAdmin := ingestadmin.New(cfg.Ingest.Host, cfg.Ingest.AdminPort, cfg.IngestAdminToken)

	timing, err := worker.NewTimingWriter(cfg.JobTimingCSV)
	if err != nil {
		log.Fatalf("open job timing csv: %v", err)
	}
	defer timing.Close()

	jobWorker := worker.New(compositorClient, notifier, recorder, ingestAdmin, cfg.OBSJobDelay, timing, m, logging.Component(logger, "worker"))

	provider := users.NewHTTPProvider(cfg.AccountsBaseURL)

	managerCfg := orchestrator.ManagerConfig{
		SwapInterval:    cfg.SwapInterval,
		PriorityTimeout: 30 * time.Second,
		Scene:           cfg.Overlay.SceneName,
		Source:          cfg.Overlay.SourceName,
		TimerSource:     cfg.Overlay.TimerSourceName,
		TimerTextSource: cfg.Overlay.TimerTextSourceName,
		LoadingSource:   cfg.Overlay.LoadingSourceName,
	}
	manager := orchestrator.NewManager(managerCfg, provider, cfg.QueueSnapshot, jobWorker, logging.Component(logger, "orchestrator"))
	if err := manager.Queue().LoadSnapshot(); err != nil {
		appLog.WithError(err).Warn("failed to load persisted queue snapshot, starting empty")
	}

	healthCSV := health.NewHourlyCSVWriter(cfg.HealthCSVDir)
	defer healthCSV.Close()

	motherstreamSource := compositor.NewSceneSource(cfg.Overlay.SceneName, cfg.Overlay.SourceName)
	healthRegistry := health.NewRegistry(func(name string) *health.Monitor {
		return health.NewMonitor(name, motherstreamSource, cfg.Overlay.SourceName, cfg.Overlay.MotherstreamURL, compositorClient, healthCSV, cfg.HealthPoll, logging.Component(logger, "health"))
	})
	motherstreamMonitor := healthRegistry.GetOrCreate("motherstream")
	motherstreamMonitor.Activate()

	controlSurface := control.New(manager, provider, control.Config{
		MotherstreamURL: cfg.Overlay.MotherstreamURL,
		RecordingURL:    cfg.Overlay.RecordingIngestURL,
		AlsoRecord:      cfg.AlsoRecord,
	}, m, logging.Component(logger, "control"))

	httpServer := server.New(cfg, controlSurface)

	sup := supervisor.New(ctx)
	sup.Add(jobWorker, func(err error) {
		appLog.WithError(err).Error("job worker stopped unexpectedly")
	})
	sup.Add(orchestrator.NewTicker(manager, cfg.SwitchTickRate), func(err error) {
		appLog.WithError(err).Error("stream manager ticker stopped unexpectedly")
	})

	go reportQueueDepth(ctx, manager, m)
	go reportHealthScores(ctx, healthRegistry, m)

	httpServer.SetReady(true)
	appLog.WithField("control_port", cfg.ControlPort).WithField("metrics_port", cfg.MetricsPort).Info("motherstream starting")

	shutdownHandler := server.NewShutdownHandler(httpServer, ctx)
	go func() {
		if err := httpServer.Start(); err != nil {
			appLog.WithError(err).Error("http server error")
			os.Exit(1)
		}
	}()

	if err := shutdownHandler.Wait(); err != nil {
		appLog.WithError(err).Error("shutdown error")
	}

	cancel()
	sup.Stop()
	motherstreamMonitor.Deactivate()
	_ = compositorClient.Close()

	appLog.Info("motherstream shut down cleanly")
}

func reportQueueDepth(ctx context.Context, manager *orchestrator.Manager, m *metrics.Metrics) {
	ticker := time.NewTicker(5 * time.Second)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			m.SetQueueDepth(manager.Queue().Len())
		}
	}
}

func reportHealthScores(ctx context.Context, registry *health.Registry, m *metrics.Metrics) {
	ticker := time.NewTicker(5 * time.Second)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			for source, score := range registry.Scores() {
				if score >= 0 {
					m.SetHealthScore(source, score)
				}
			}
		}
	}
}
