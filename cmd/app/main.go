package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github-signals/internal/adapter/gemini"
	"github-signals/internal/adapter/github"
	"github-signals/internal/adapter/hackernews"
	"github-signals/internal/adapter/repository"
	"github-signals/internal/adapter/webhook"
	"github-signals/internal/analyzer"
	"github-signals/internal/cache"
	"github-signals/internal/config"
	"github-signals/internal/generator"
	"github-signals/internal/logger"
	"github-signals/internal/port"
	"github-signals/internal/scorer"
	"github-signals/internal/service"

	"go.uber.org/zap"
)

func main() {
	configPath := flag.String("config", "", "path to config file (optional)")
	date := flag.String("date", "", "report date as YYYY-MM-DD, default today")
	interval := flag.Int("interval", 0, "rerun interval in minutes, 0 runs once")
	forceRefresh := flag.Bool("force-refresh", false, "bypass and clear the collector cache")
	clearCache := flag.Bool("clear-cache", false, "clear the collector cache and exit")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "config load failed: %v\n", err)
		os.Exit(1)
	}

	log, err := logger.New(cfg.LogLevel)
	if err != nil {
		fmt.Fprintf(os.Stderr, "logger init failed: %v\n", err)
		os.Exit(1)
	}
	defer log.Sync()

	store, err := cache.New(cfg.Cache.Directory, cfg.Cache.Enabled && !*forceRefresh,
		cfg.Cache.MemoryEntries, cfg.Cache.TTL)
	if err != nil {
		log.Fatal("cache init failed", zap.Error(err))
	}
	if *clearCache || *forceRefresh {
		if err := store.Clear(); err != nil {
			log.Warn("cache clear failed", zap.Error(err))
		}
		if *clearCache {
			log.Info("cache cleared")
			return
		}
	}

	svc := buildService(cfg, store, log)

	if *interval > 0 {
		runScheduled(svc, *interval, log)
		return
	}
	runOnce(svc, reportDate(*date), log)
}

func buildService(cfg *config.Config, store port.Cache, log *zap.Logger) *service.ReportService {
	snapshots := buildSnapshotStore(cfg, log)

	var narrator port.Narrator
	if cfg.Gemini.APIKey != "" {
		n, err := gemini.NewNarrator(context.Background(), cfg.Gemini.APIKey, cfg.Gemini.Model)
		if err != nil {
			log.Warn("narrator init failed, falling back to heuristic narratives", zap.Error(err))
		} else {
			narrator = n
		}
	}

	var notifier port.Notifier
	if cfg.Webhook.URL != "" {
		notifier = webhook.NewNotifier(cfg.Webhook.URL, log)
	}

	return service.NewReportService(service.Params{
		Config:      cfg,
		Collector:   github.NewCollector(cfg.GitHub, cfg.Scoring.WindowDays, store, cfg.Cache.TTL, log),
		Discussions: hackernews.NewCollector(cfg.HackerNews, store, cfg.Cache.TTL, log),
		Scorer:      scorer.NewMomentum(cfg.Scoring),
		Analyzer:    analyzer.NewTrend(),
		Builder:     generator.NewBuilder(cfg.Output),
		Store:       snapshots,
		Narrator:    narrator,
		Notifier:    notifier,
		Logger:      log,
	})
}

func buildSnapshotStore(cfg *config.Config, log *zap.Logger) port.SnapshotStore {
	if cfg.Database.DSN != "" {
		pg, err := repository.NewPostgresStore(cfg.Database.DSN)
		if err == nil {
			return pg
		}
		log.Warn("postgres snapshot store unavailable, using file store", zap.Error(err))
	}
	fs, err := repository.NewFileStore(cfg.Output.Directory + "/snapshots")
	if err != nil {
		log.Fatal("snapshot store init failed", zap.Error(err))
	}
	return fs
}

func runOnce(svc *service.ReportService, date string, log *zap.Logger) {
	report, err := svc.Run(context.Background(), date)
	if err != nil {
		log.Fatal("report run failed", zap.Error(err))
	}
	log.Info("report complete",
		zap.String("date", report.Date),
		zap.Int("repositories", report.RepositoryCount),
		zap.Int("ranked", len(report.Repositories)))
}

func runScheduled(svc *service.ReportService, intervalMinutes int, log *zap.Logger) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)

	ticker := time.NewTicker(time.Duration(intervalMinutes) * time.Minute)
	defer ticker.Stop()

	run := func() {
		date := time.Now().Format("2006-01-02")
		if _, err := svc.Run(ctx, date); err != nil {
			log.Error("scheduled run failed", zap.String("date", date), zap.Error(err))
		}
	}

	log.Info("scheduler started", zap.Int("interval_minutes", intervalMinutes))
	run()
	for {
		select {
		case <-ticker.C:
			run()
		case sig := <-sigChan:
			log.Info("shutting down", zap.String("signal", sig.String()))
			return
		}
	}
}

func reportDate(flagValue string) string {
	if flagValue != "" {
		return flagValue
	}
	return time.Now().Format("2006-01-02")
}
