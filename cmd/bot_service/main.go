package main

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	accessapp "github.com/AlexandrGonin/eatprayit-tgbot/internal/access_service/app"
	"github.com/AlexandrGonin/eatprayit-tgbot/internal/access_service/repository/postgres"
	"github.com/AlexandrGonin/eatprayit-tgbot/internal/bot_gateway/middleware"
	gatewayhttp "github.com/AlexandrGonin/eatprayit-tgbot/internal/bot_gateway/transport/http"
	"github.com/AlexandrGonin/eatprayit-tgbot/internal/platform/config"
	"github.com/AlexandrGonin/eatprayit-tgbot/internal/platform/database"
	"github.com/AlexandrGonin/eatprayit-tgbot/internal/platform/logger"
	"github.com/AlexandrGonin/eatprayit-tgbot/internal/platform/messagebroker"
	"github.com/AlexandrGonin/eatprayit-tgbot/internal/platform/telegram"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
)

const serviceName = "bot_service"

func main() {
	cfg, err := config.Load("./configs", "config.defaults")
	if err != nil {
		slog.Error("Failed to load configuration", "service", serviceName, "error", err)
		os.Exit(1)
	}

	appLogger := logger.New(cfg.LogLevel)
	appLogger.Info("Bot service starting...", "port", cfg.BotServicePort, "log_level", cfg.LogLevel)

	if cfg.BotToken == "" {
		appLogger.Error("Bot token is not configured (APP_BOT_TOKEN)")
		os.Exit(1)
	}
	if cfg.WebhookSecret == "" {
		appLogger.Error("Webhook secret is not configured (APP_WEBHOOK_SECRET)")
		os.Exit(1)
	}

	dbPool, err := database.NewDBPool(context.Background(), cfg.PostgresDSN)
	if err != nil {
		appLogger.Error("Failed to connect to PostgreSQL database", "error", err)
		os.Exit(1)
	}
	defer dbPool.Close()
	appLogger.Info("Successfully connected to PostgreSQL database")

	natsClient, err := messagebroker.NewNatsClient(cfg.NATSUrl, serviceName, appLogger)
	if err != nil {
		appLogger.Error("Failed to connect to NATS", "error", err)
		os.Exit(1)
	}
	defer natsClient.Close()
	appLogger.Info("Successfully connected to NATS")

	tgClient := telegram.NewClient(appLogger, cfg.BotToken, "", nil)

	botUsername := cfg.BotUsername
	if me, err := tgClient.GetMe(context.Background()); err != nil {
		appLogger.Warn("Could not verify bot token with getMe", "error", err)
	} else {
		botUsername = me.Username
		appLogger.Info("Bot identity resolved", "username", me.Username, "bot_id", me.ID)
	}

	principalRepo := postgres.NewPgPrincipalRepository(dbPool)
	accessController := accessapp.NewAccessController(principalRepo, natsClient, botUsername, appLogger)

	webhookHandler := gatewayhttp.NewWebhookHandler(accessController, tgClient, cfg.WebhookSecret, appLogger)
	miniAppHandler := gatewayhttp.NewMiniAppHandler(accessController, gatewayhttp.MiniAppConfig{
		BotToken:  cfg.BotToken,
		JWTSecret: cfg.MiniAppJWTSecret,
		JWTExpiry: time.Duration(cfg.MiniAppJWTExpiryHours) * time.Hour,
	}, appLogger)

	r := chi.NewRouter()
	r.Use(chimiddleware.RequestID)
	r.Use(chimiddleware.RealIP)
	r.Use(chimiddleware.Recoverer)
	r.Use(chimiddleware.Timeout(30 * time.Second))

	r.Get("/", func(w http.ResponseWriter, req *http.Request) {
		writeHealth(w, map[string]string{
			"status":    "Bot is running",
			"service":   serviceName,
			"timestamp": time.Now().UTC().Format(time.RFC3339),
		})
	})
	r.Get("/healthz", func(w http.ResponseWriter, req *http.Request) {
		writeHealth(w, map[string]string{"status": "healthy"})
	})

	r.Post("/webhook/{secret}", webhookHandler.HandleUpdate)

	r.Route("/api/v1", func(api chi.Router) {
		api.Post("/auth/telegram", miniAppHandler.HandleAuth)
		api.Group(func(protected chi.Router) {
			protected.Use(middleware.MiniAppAuthMiddleware(cfg.MiniAppJWTSecret, appLogger))
			protected.Get("/me", miniAppHandler.HandleMe)
		})
	})

	if cfg.WebhookPublicURL != "" {
		webhookURL := fmt.Sprintf("%s/webhook/%s", cfg.WebhookPublicURL, cfg.WebhookSecret)
		if err := tgClient.SetWebhook(context.Background(), webhookURL); err != nil {
			appLogger.Error("Failed to register Telegram webhook", "error", err)
			os.Exit(1)
		}
	} else {
		appLogger.Info("Webhook public URL not set; skipping webhook registration")
	}

	server := &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.BotServicePort),
		Handler:      r,
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  120 * time.Second,
	}

	go func() {
		appLogger.Info(fmt.Sprintf("Bot service HTTP server listening on port %d", cfg.BotServicePort))
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			appLogger.Error("HTTP server failed to serve", "error", err)
			os.Exit(1)
		}
	}()

	quitChan := make(chan os.Signal, 1)
	signal.Notify(quitChan, syscall.SIGINT, syscall.SIGTERM)
	<-quitChan

	appLogger.Info("Shutting down bot service...")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		appLogger.Error("HTTP server shutdown failed", "error", err)
	}
	appLogger.Info("Bot service stopped")
}

func writeHealth(w http.ResponseWriter, body map[string]string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	_ = json.NewEncoder(w).Encode(body)
}
