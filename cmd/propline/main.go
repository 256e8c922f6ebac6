package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/Vodeneev/propline/internal/collector"
	"github.com/Vodeneev/propline/internal/collector/schedule"
	"github.com/Vodeneev/propline/internal/evaluator"
	pkgconfig "github.com/Vodeneev/propline/internal/pkg/config"
	"github.com/Vodeneev/propline/internal/pkg/games"
	"github.com/Vodeneev/propline/internal/pkg/health"
	"github.com/Vodeneev/propline/internal/pkg/health/handlers"
	"github.com/Vodeneev/propline/internal/pkg/lines"
	"github.com/Vodeneev/propline/internal/pkg/logging"
	"github.com/Vodeneev/propline/internal/pkg/models"
	"github.com/Vodeneev/propline/internal/pkg/performance"
	"github.com/Vodeneev/propline/internal/pkg/registry"
	"github.com/Vodeneev/propline/internal/pkg/storage"

	// Register all supported sources via init().
	_ "github.com/Vodeneev/propline/internal/collector/sources/all"
)

const (
	defaultConfigPath = "configs/production.yaml"
)

type config struct {
	configPath string
	runFor     time.Duration
	once       bool // one round of every group plus one evaluation, then exit
}

func main() {
	if err := run(); err != nil {
		slog.Error("Propline failed", "error", err)
		os.Exit(1)
	}
}

func run() error {
	cfg := parseFlags()
	slog.Info("Loading config", "path", cfg.configPath)

	appConfig, err := pkgconfig.Load(cfg.configPath)
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	_, logCloser, err := logging.SetupLogger(&appConfig.Logging, "propline")
	if err != nil {
		slog.Warn("Failed to setup logging, continuing with default logger", "error", err)
	} else {
		defer logCloser.Close()
	}
	slog.Info("Config loaded successfully", "sources", len(appConfig.Collector.Sources), "groups", len(appConfig.Collector.Groups))

	ctx, cancel := createContext(cfg.runFor)
	defer cancel()
	setupSignalHandler(ctx, cancel)

	metrics := performance.NewMetrics()
	tracker := performance.NewTracker(metrics)

	reg := registry.New()
	entities, err := openEntityStorage(ctx, appConfig, reg)
	if err != nil {
		return err
	}
	if entities != nil {
		defer entities.Close()
	}

	idx := games.NewIndex()
	store := lines.NewStore(appConfig.Lines.MaxHistory)
	retry := collector.NewRetryPolicy(appConfig.Collector.Retry)

	groups, err := collector.BuildGroups(appConfig.Collector)
	if err != nil {
		return err
	}
	printGroups(groups)

	pipeline := collector.NewPipeline(reg, idx, store, tracker, retry)
	orchestrator := collector.NewOrchestrator(pipeline, groups, appConfig.Collector)

	ev := evaluator.New(appConfig.Evaluator, store, metrics)
	if appConfig.Telegram.Enabled() {
		notifier, err := evaluator.NewTelegramNotifier(appConfig.Telegram, metrics)
		if err != nil {
			slog.Warn("Telegram notifier disabled", "error", err)
		} else {
			defer notifier.Stop()
			ev.WithNotifier(notifier)
		}
	}
	if appConfig.Redis.Addr != "" {
		redisClient, err := storage.NewRedisClient(&appConfig.Redis)
		if err != nil {
			slog.Warn("Redis publication disabled", "error", err)
		} else {
			defer redisClient.Close()
			ev.WithPublisher(redisClient)
		}
	}

	var poller *schedule.Poller
	if appConfig.Schedule.URL != "" {
		poller = schedule.NewPoller(appConfig.Schedule, appConfig.Collector.UserAgent, retry, reg, idx)
		// games must be known before the first round resolves lines against them
		if n, err := poller.Poll(ctx); err != nil {
			slog.Error("Initial schedule poll failed", "error", err)
		} else {
			slog.Info("Schedule loaded", "games", n)
		}
	}

	j := &jobs{
		ctx:       ctx,
		registry:  reg,
		entities:  entities,
		games:     idx,
		store:     store,
		evaluator: ev,
		poller:    poller,
		metrics:   metrics,
		retention: appConfig.Lines.Retention,
	}

	if cfg.once {
		orchestrator.RunOnce(ctx)
		j.evaluate(ctx)
		j.flushRegistry(context.Background())
		tracker.PrintSummary()
		return nil
	}

	addr, err := health.AddrFor(appConfig.Health.Port)
	if err != nil {
		return fmt.Errorf("health.port: %w", err)
	}
	router := health.NewRouter(&handlers.Handlers{
		Lines:     store,
		Evaluated: ev,
		Registry:  reg,
		Games:     idx,
		Trigger:   orchestrator,
		Stats:     tracker,
	}, metrics.Handler(), appConfig.Health.CORSOrigins)
	if err := health.Run(ctx, addr, "propline", router, appConfig.Health.ReadHeaderTimeout); err != nil {
		return err
	}

	scheduler, err := j.schedule(appConfig)
	if err != nil {
		return err
	}
	scheduler.Start()

	slog.Info("Starting collection", "interval", appConfig.Collector.Interval, "round_timeout", appConfig.Collector.RoundTimeout)
	orchestrator.Run(ctx)
	<-ctx.Done()

	<-scheduler.Stop().Done()
	// persist what the last rounds learned
	j.flushRegistry(context.Background())
	tracker.PrintSummary()
	slog.Info("Propline stopped gracefully")
	return nil
}

func parseFlags() config {
	var cfg config

	defaultConfig := os.Getenv("CONFIG_PATH")
	if defaultConfig == "" {
		defaultConfig = defaultConfigPath
	}

	flag.StringVar(&cfg.configPath, "config", defaultConfig, "Path to config file (can be set via CONFIG_PATH env var)")
	flag.DurationVar(&cfg.runFor, "run-for", 0, "Auto-stop after duration (e.g. 10s, 1m). 0 = run until SIGINT/SIGTERM")
	flag.BoolVar(&cfg.once, "once", false, "Run one round of every group and one evaluation, then exit")
	flag.Parse()
	return cfg
}

// openEntityStorage loads the registry from Postgres when configured. The
// seed file is used without Postgres, or to initialize an empty database.
// Returns nil storage without Postgres.
func openEntityStorage(ctx context.Context, appConfig *pkgconfig.Config, reg *registry.Registry) (storage.EntityStorage, error) {
	if appConfig.Postgres.DSN == "" {
		slog.Info("Postgres not configured, registry changes are kept in memory only")
		return nil, loadSeed(appConfig.Registry.SeedFile, reg)
	}

	pg, err := storage.NewPostgresEntityStorage(&appConfig.Postgres)
	if err != nil {
		return nil, err
	}
	if err := loadPersisted(ctx, pg, appConfig.Registry.SeedFile, reg); err != nil {
		pg.Close()
		return nil, err
	}
	return pg, nil
}

func loadPersisted(ctx context.Context, pg storage.EntityStorage, seedFile string, reg *registry.Registry) error {
	persisted, err := pg.LoadEntities(ctx)
	if err != nil {
		return err
	}
	if len(persisted) == 0 && seedFile != "" {
		if err := loadSeed(seedFile, reg); err != nil {
			return err
		}
		var seeded []models.Entity
		for _, d := range models.Domains {
			seeded = append(seeded, reg.Entities(d)...)
		}
		if err := pg.SaveEntities(ctx, seeded); err != nil {
			return fmt.Errorf("failed to persist seed entities: %w", err)
		}
	} else if err := reg.Load(persisted); err != nil {
		return fmt.Errorf("failed to load persisted entities: %w", err)
	}

	unidentified, err := pg.LoadUnidentified(ctx)
	if err != nil {
		return err
	}
	reg.LoadUnidentified(unidentified)
	slog.Info("Registry loaded from Postgres", "entities", len(persisted), "unidentified", len(unidentified))
	return nil
}

func loadSeed(path string, reg *registry.Registry) error {
	if path == "" {
		return nil
	}
	seed, err := storage.LoadSeedFile(path)
	if err != nil {
		return err
	}
	if err := reg.Load(seed); err != nil {
		return fmt.Errorf("failed to load seed entities: %w", err)
	}
	slog.Info("Seed entities loaded", "path", path, "count", len(seed))
	return nil
}

func printGroups(groups []collector.Group) {
	for _, g := range groups {
		names := make([]string, 0, len(g.Sources))
		for _, s := range g.Sources {
			names = append(names, s.Name())
		}
		slog.Info("Using source group", "group", g.Name, "sources", strings.Join(names, ", "))
	}
	slog.Info("Available source kinds", "kinds", strings.Join(collector.AvailableNames(), ", "))
}

func createContext(runFor time.Duration) (context.Context, context.CancelFunc) {
	if runFor > 0 {
		return context.WithTimeout(context.Background(), runFor)
	}
	return context.WithCancel(context.Background())
}

func setupSignalHandler(ctx context.Context, cancel context.CancelFunc) {
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		select {
		case sig := <-sigChan:
			slog.Info("Received shutdown signal, stopping propline...", "signal", sig.String())
			cancel()
		case <-ctx.Done():
			// Context already cancelled (timeout or parent cancellation)
			signal.Stop(sigChan)
		}
	}()
}
