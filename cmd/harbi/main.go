package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"log/slog"
	"math/rand"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/shopspring/decimal"

	"github.com/harbibet/harbi/internal/pkg/collect"
	"github.com/harbibet/harbi/internal/pkg/config"
	"github.com/harbibet/harbi/internal/pkg/health"
	"github.com/harbibet/harbi/internal/pkg/logging"
	"github.com/harbibet/harbi/internal/pkg/pipeline"
	"github.com/harbibet/harbi/internal/pkg/registry"
	"github.com/harbibet/harbi/internal/pkg/report"
	"github.com/harbibet/harbi/internal/pkg/storage"
)

const defaultConfigPath = "configs/production.yaml"

func main() {
	fmt.Println("Starting Harbi arbitrage engine...")

	var configPath string
	var healthAddr string

	defaultConfig := os.Getenv("CONFIG_PATH")
	if defaultConfig == "" {
		defaultConfig = defaultConfigPath
	}

	flag.StringVar(&configPath, "config", defaultConfig, "Path to config file (can be set via CONFIG_PATH env var)")
	flag.StringVar(&healthAddr, "health-addr", ":8080", "Health server listen address (e.g. :8080)")
	flag.Parse()

	cfg, err := config.Load(configPath)
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	if _, err := logging.SetupLogger(&cfg.Logging, "harbi"); err != nil {
		log.Fatalf("Failed to setup logging: %v", err)
	}

	auth, ok := cfg.Authoritative()
	if !ok {
		log.Fatal("No authoritative source configured")
	}

	minEdge, err := decimal.NewFromString(cfg.Arbitrage.MinEdge)
	if err != nil {
		log.Fatalf("Invalid arbitrage.min_edge %q: %v", cfg.Arbitrage.MinEdge, err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	reg := registry.New()

	var matchStore storage.MatchStore
	if cfg.Postgres.DSN != "" {
		store, err := storage.NewPostgresMatchStore(&cfg.Postgres)
		if err != nil {
			log.Fatalf("Failed to init postgres match store: %v", err)
		}
		defer store.Close()
		matchStore = store

		rows, err := store.LoadMatches(ctx)
		if err != nil {
			log.Fatalf("Failed to load persisted matches: %v", err)
		}
		loaded := 0
		for _, m := range rows {
			if reg.Upsert(m) {
				loaded++
			}
		}
		slog.Info("Loaded persisted team matches", "rows", loaded)
	}

	var snapStore *storage.RedisSnapshotStore
	if cfg.Redis.Addr != "" {
		snapStore, err = storage.NewRedisSnapshotStore(&cfg.Redis, cfg.Telegram.Cooldown)
		if err != nil {
			log.Fatalf("Failed to init redis snapshot store: %v", err)
		}
		defer snapStore.Close()
	}

	var notifier *report.TelegramNotifier
	if cfg.Telegram.BotToken != "" && len(cfg.Telegram.ChatIDs) > 0 {
		var dedup report.Deduper
		if snapStore != nil {
			dedup = snapStore
		}
		notifier = report.NewTelegramNotifier(cfg.Telegram.BotToken, cfg.Telegram.ChatIDs, dedup)
		defer notifier.Close()
	}

	collectors := make([]collect.Collector, 0, len(cfg.Sources))
	for _, src := range cfg.Sources {
		collectors = append(collectors, collect.FileCollector{
			ID:         src.Name,
			EventsPath: src.EventsFile,
			StatusPath: src.StatusFile,
			Model:      src.PriceModel,
		})
	}

	healthStore := &health.Store{}
	health.Run(ctx, healthAddr, "harbi", healthStore)

	p := pipeline.New(reg, auth.Name, cfg.Matching.MinConfidence, minEdge)

	slog.Info("Harbi started",
		"sources", len(cfg.Sources),
		"authoritative", auth.Name,
		"min_confidence", cfg.Matching.MinConfidence,
		"min_edge", cfg.Arbitrage.MinEdge)

	for {
		rep, err := p.RunCycle(ctx, collectors)
		if err != nil {
			// Authoritative outage is a cycle-level failure; the next
			// cycle retries from scratch.
			slog.Error("Cycle failed", "error", err)
		}
		if rep != nil {
			healthStore.SetReport(rep)
			if matchStore != nil {
				if err := matchStore.UpsertMatches(ctx, reg.Matches()); err != nil {
					slog.Error("Failed to persist team matches", "error", err)
				}
			}
			if snapStore != nil {
				if err := snapStore.StoreReport(ctx, rep); err != nil {
					slog.Error("Failed to store cycle snapshot", "error", err)
				}
			}
			if notifier != nil {
				notifier.NotifyReport(ctx, rep)
			}
		}

		if cfg.Pipeline.RunOnce {
			return
		}

		// Randomized interval so external fetchers are not hit on a
		// fixed beat.
		wait := cfg.Pipeline.IntervalMin + time.Duration(rand.Int63n(int64(cfg.Pipeline.IntervalMax-cfg.Pipeline.IntervalMin)+1))
		slog.Info("Next cycle scheduled", "in", wait)
		select {
		case <-ctx.Done():
			slog.Info("Shutting down")
			return
		case <-time.After(wait):
		}
	}
}
