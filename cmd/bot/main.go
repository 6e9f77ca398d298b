package main

import (
	"context"
	"flag"
	"os"
	"os/signal"
	"syscall"

	"neurobot/internal/config"
	"neurobot/internal/delivery"
	"neurobot/internal/logging"
	"neurobot/internal/monitor"
	"neurobot/internal/scheduler"
	"neurobot/internal/service"
	"neurobot/internal/source"
	"neurobot/internal/source/client"
	"neurobot/internal/storage/ledger"
	"neurobot/internal/storage/status"
	"neurobot/internal/telegram"
)

func main() {
	configPath := flag.String("config", "config.yaml", "path to config file")
	flag.Parse()

	logger := logging.New("info")

	cfg, err := config.Load(*configPath)
	if err != nil {
		logger.Error("failed to load config", "error", err)
		os.Exit(1)
	}

	logger = logging.New(cfg.LogLevel)

	ledgerStore := ledger.New(ledger.Config{
		Path:          cfg.Storage.LedgerPath,
		RetentionDays: cfg.Storage.URLRetentionDays,
		MaxEntries:    cfg.Storage.MaxStoredURLs,
	}, logger)

	statusStore := status.NewStore(cfg.Storage.StatusPath, logger)
	runMonitor := monitor.New(statusStore, logger)

	httpClient := client.New(client.Config{
		Timeout:        cfg.HTTP.Timeout,
		MaxAttempts:    cfg.HTTP.Retry.MaxAttempts,
		InitialBackoff: cfg.HTTP.Retry.InitialBackoff,
		MaxBackoff:     cfg.HTTP.Retry.MaxBackoff,
	}, logger)

	built := source.Build(cfg.Sources, httpClient, logger)
	sources := make([]service.Source, 0, len(built))
	for _, s := range built {
		sources = append(sources, s)
	}

	channel := telegram.New(telegram.Config{
		Token:   cfg.Telegram.Token,
		ChatID:  cfg.Telegram.ChatID,
		TopicID: cfg.Telegram.TopicID,
		Timeout: cfg.HTTP.Timeout,
	}, logger)

	pipeline := delivery.NewPipeline(
		channel,
		ledgerStore,
		runMonitor,
		cfg.Run.MessageDelay(),
		logger,
	)

	runService := service.NewRunService(
		sources,
		ledgerStore,
		pipeline,
		runMonitor,
		logger,
	)

	sched := scheduler.NewScheduler(runService, cfg.Run.Interval(), logger)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	go func() {
		sigCh := make(chan os.Signal, 1)
		signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
		sig := <-sigCh
		logger.Info("received shutdown signal", "signal", sig)
		cancel()
	}()

	logger.Info("starting content digest bot",
		"sources", len(sources),
		"interval", cfg.Run.Interval(),
		"message_delay", cfg.Run.MessageDelay(),
	)

	if err := sched.Start(ctx); err != nil && err != context.Canceled {
		logger.Error("scheduler error", "error", err)
		os.Exit(1)
	}
}
