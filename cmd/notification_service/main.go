package main

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"sync"
	"syscall"

	"github.com/AlexandrGonin/eatprayit-tgbot/internal/access_service/domain"
	notifyapp "github.com/AlexandrGonin/eatprayit-tgbot/internal/notification_service/app"
	"github.com/AlexandrGonin/eatprayit-tgbot/internal/platform/config"
	"github.com/AlexandrGonin/eatprayit-tgbot/internal/platform/logger"
	"github.com/AlexandrGonin/eatprayit-tgbot/internal/platform/messagebroker"
	"github.com/AlexandrGonin/eatprayit-tgbot/internal/platform/telegram"
)

const (
	serviceName = "notification_service"
	queueGroup  = "referral-notifications"
	// eventBuffer absorbs short bursts of activations; overflow beyond it
	// blocks the NATS callback, which is fine for courtesy messages.
	eventBuffer = 64
)

func main() {
	cfg, err := config.Load("./configs", "config.defaults")
	if err != nil {
		slog.Error("Failed to load configuration", "service", serviceName, "error", err)
		os.Exit(1)
	}

	appLogger := logger.New(cfg.LogLevel)
	appLogger.Info("Notification service starting...", "log_level", cfg.LogLevel)

	if cfg.BotToken == "" {
		appLogger.Error("Bot token is not configured (APP_BOT_TOKEN)")
		os.Exit(1)
	}

	natsClient, err := messagebroker.NewNatsClient(cfg.NATSUrl, serviceName, appLogger)
	if err != nil {
		appLogger.Error("Failed to connect to NATS", "error", err)
		os.Exit(1)
	}
	defer natsClient.Close()
	appLogger.Info("Successfully connected to NATS")

	tgClient := telegram.NewClient(appLogger, cfg.BotToken, "", nil)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	eventChan := make(chan domain.ReferralActivatedEvent, eventBuffer)
	consumer := notifyapp.NewNotificationConsumer(natsClient, appLogger, eventChan)
	processor := notifyapp.NewNotificationProcessor(tgClient, appLogger, eventChan)

	var wg sync.WaitGroup
	wg.Add(2)
	go func() {
		defer wg.Done()
		if err := consumer.StartConsuming(ctx, queueGroup); err != nil && err != context.Canceled {
			appLogger.Error("Notification consumer stopped with error", "error", err)
			cancel()
		}
	}()
	go func() {
		defer wg.Done()
		processor.Run(ctx)
	}()

	quitChan := make(chan os.Signal, 1)
	signal.Notify(quitChan, syscall.SIGINT, syscall.SIGTERM)
	<-quitChan

	appLogger.Info("Shutting down notification service...")
	cancel()
	wg.Wait()
	appLogger.Info("Notification service stopped")
}
