package main

import (
	"context"
	"flag"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"earnpulse/internal/api"
	"earnpulse/internal/bot"
	"earnpulse/internal/coach"
	"earnpulse/internal/config"
	"earnpulse/internal/core"
	"earnpulse/internal/store"
	"earnpulse/internal/web"
)

func main() {
	configPath := flag.String("config", "", "path to YAML config file")
	flag.Parse()

	logger := slog.New(slog.NewTextHandler(os.Stdout, nil))
	slog.SetDefault(logger)

	cfg, err := config.Load(*configPath)
	if err != nil {
		logger.Error("failed to load config", "error", err)
		os.Exit(1)
	}

	if cfg.Session.Secret == "" {
		cfg.Session.Secret = "dev-secret-change-in-production"
		logger.Warn("using default session secret, set SESSION_SECRET in production")
	}

	logger.Info("initializing store", "path", cfg.Database.Path)
	db, err := store.NewStore(cfg.Database.Path)
	if err != nil {
		logger.Error("failed to initialize store", "error", err)
		os.Exit(1)
	}
	defer db.Close()

	service := core.NewService(db, logger)
	client := api.NewClient(service, time.Duration(cfg.API.LatencyMS)*time.Millisecond)
	coachClient := coach.NewClient(cfg.Coach.BaseURL, cfg.Coach.Model, cfg.Coach.APIKey, logger)

	server := web.NewServer(client, service, coachClient,
		cfg.Session.Secret, cfg.Server.PublicURL, cfg.Backup.Dir, logger)

	// Telegram settlement bot is optional: no token, no bot.
	if cfg.Telegram.BotToken != "" && cfg.Telegram.AdminChatID != 0 {
		settleBot, err := bot.NewBot(cfg.Telegram.BotToken, cfg.Telegram.AdminChatID, service, logger)
		if err != nil {
			logger.Warn("failed to initialize telegram bot, continuing without it", "error", err)
		} else {
			service.SetNotifier(settleBot)
			go settleBot.Start()
			defer settleBot.Stop()
		}
	} else {
		logger.Info("telegram bot disabled, set TELEGRAM_BOT_TOKEN and TELEGRAM_ADMIN_CHAT_ID to enable it")
	}

	srv := &http.Server{
		Addr:         ":" + cfg.Server.Port,
		Handler:      server.Router(),
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		logger.Info("server starting", "addr", srv.Addr, "latency_ms", cfg.API.LatencyMS)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Error("failed to start server", "error", err)
			os.Exit(1)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	sig := <-quit
	logger.Info("shutting down", "signal", sig.String())

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		logger.Error("error during shutdown", "error", err)
	}
	logger.Info("shutdown complete")
}
