package main

import (
	"context"
	"flag"
	"log/slog"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/frozenquant/frozen-data/internal/calendar"
	"github.com/frozenquant/frozen-data/internal/config"
	"github.com/frozenquant/frozen-data/internal/dispatch"
	"github.com/frozenquant/frozen-data/internal/model"
	"github.com/frozenquant/frozen-data/internal/ratelimit"
	"github.com/frozenquant/frozen-data/internal/source"
	"github.com/frozenquant/frozen-data/internal/storage"
	"github.com/frozenquant/frozen-data/internal/sync"
	"github.com/frozenquant/frozen-data/internal/version"
)

func main() {
	configPath := flag.String("config", "configs/syncer.local.yaml", "path to config file")
	modeFlag := flag.String("mode", "incremental", "sync mode: full or incremental")
	categoriesFlag := flag.String("categories", "", "comma-separated categories to sync (default: all)")
	flag.Parse()

	// Set up structured logging
	logger := slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{
		Level: slog.LevelDebug,
	}))
	slog.SetDefault(logger)

	logger.Info("starting syncer",
		"version", version.Version,
		"commit", version.Commit,
		"config", *configPath,
	)

	// Load configuration
	cfg, err := config.LoadAndValidate(*configPath)
	if err != nil {
		logger.Error("failed to load config", "error", err)
		os.Exit(1)
	}

	mode, err := sync.ParseMode(*modeFlag)
	if err != nil {
		logger.Error("invalid mode", "error", err)
		os.Exit(1)
	}

	requests, err := buildRequests(cfg, mode, *categoriesFlag)
	if err != nil {
		logger.Error("invalid categories", "error", err)
		os.Exit(1)
	}

	logger.Info("configuration loaded",
		"instance_id", cfg.Instance.ID,
		"source", cfg.Source.Name,
		"backend", cfg.Storage.Backend,
		"mode", mode,
		"requests", len(requests),
		"universe", len(cfg.Sync.Universe),
	)

	// Create context with cancellation
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Handle shutdown signals
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		sig := <-sigCh
		logger.Info("received shutdown signal", "signal", sig)
		cancel()
	}()

	// Connect to storage
	backend, err := storage.Open(ctx, cfg.Storage, logger)
	if err != nil {
		logger.Error("failed to open storage backend", "error", err)
		os.Exit(1)
	}
	defer backend.Close(context.Background())

	if err := backend.Ping(ctx); err != nil {
		logger.Error("storage backend unavailable", "error", err)
		os.Exit(1)
	}
	logger.Info("storage connected", "backend", cfg.Storage.Backend)

	// Upstream source behind the shared rate limiter
	limiter := ratelimit.New(cfg.Source.RateLimit.MaxCalls, cfg.Source.RateLimit.Window)
	factory, err := source.NewFactory(cfg.Source, limiter, logger)
	if err != nil {
		logger.Error("failed to build source", "error", err)
		os.Exit(1)
	}

	engine := sync.New(backend, factory, calendar.New(cfg.Sync.HolidayTimes()), sync.Options{
		Floor:    cfg.Sync.StartTime(),
		End:      cfg.Sync.EndTime(time.Now()),
		Universe: cfg.Sync.Universe,
	}, logger)

	dispatcher := dispatch.New(engine, cfg.Dispatcher.MaxParallel, logger)

	if err := dispatcher.Run(ctx, requests); err != nil {
		logger.Error("sync finished with failures", "error", err)
		os.Exit(1)
	}
	logger.Info("sync finished")
}

// buildRequests expands the categories flag into dispatch requests.
// An empty flag selects every category.
func buildRequests(cfg *config.SyncerConfig, mode sync.Mode, categories string) ([]dispatch.Request, error) {
	selected := model.Categories()
	if categories != "" {
		selected = selected[:0]
		for _, name := range strings.Split(categories, ",") {
			c, err := model.ParseCategory(name)
			if err != nil {
				return nil, err
			}
			selected = append(selected, c)
		}
	}

	tables := map[model.Category]string{
		model.CategoryBar:         cfg.Sync.Tables.Bars,
		model.CategoryLimit:       cfg.Sync.Tables.Limits,
		model.CategoryFundamental: cfg.Sync.Tables.Fundamentals,
		model.CategoryDividend:    cfg.Sync.Tables.Dividends,
		model.CategorySuspension:  cfg.Sync.Tables.Suspensions,
		model.CategoryBasic:       cfg.Sync.Tables.Basics,
	}

	requests := make([]dispatch.Request, 0, len(selected))
	for _, c := range selected {
		requests = append(requests, dispatch.Request{
			Category: c,
			Table:    tables[c],
			Mode:     mode,
		})
	}
	return requests, nil
}
