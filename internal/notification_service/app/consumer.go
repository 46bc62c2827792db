package app

import (
	"context"
	"encoding/json"
	"log/slog"

	"github.com/AlexandrGonin/eatprayit-tgbot/internal/access_service/domain"
	"github.com/AlexandrGonin/eatprayit-tgbot/internal/platform/messagebroker"
	"github.com/nats-io/nats.go"
)

// NotificationConsumer subscribes to referral activation events and feeds
// them to the processor. Deserialization failures are logged and dropped:
// the events are courtesy messages, not state.
type NotificationConsumer struct {
	natsClient *messagebroker.NatsClient
	logger     *slog.Logger
	outputChan chan<- domain.ReferralActivatedEvent
}

// NewNotificationConsumer creates a NotificationConsumer writing decoded
// events to outputChan.
func NewNotificationConsumer(natsClient *messagebroker.NatsClient, logger *slog.Logger, outputChan chan<- domain.ReferralActivatedEvent) *NotificationConsumer {
	return &NotificationConsumer{
		natsClient: natsClient,
		logger:     logger.With("component", "notification_consumer"),
		outputChan: outputChan,
	}
}

// StartConsuming subscribes to the referral activation subject with the
// given queue group and blocks until ctx is cancelled.
func (c *NotificationConsumer) StartConsuming(ctx context.Context, queueGroup string) error {
	msgHandler := func(msg *nats.Msg) {
		var event domain.ReferralActivatedEvent
		if err := json.Unmarshal(msg.Data, &event); err != nil {
			c.logger.ErrorContext(ctx, "Failed to deserialize referral activated event",
				"error", err, "subject", msg.Subject, "data", string(msg.Data))
			return
		}

		select {
		case c.outputChan <- event:
			c.logger.DebugContext(ctx, "Queued referral notification",
				"event_id", event.EventID, "referrer_id", event.ReferrerID)
		case <-ctx.Done():
			c.logger.InfoContext(ctx, "Context cancelled, dropping referral notification",
				"event_id", event.EventID)
		}
	}

	sub, err := c.natsClient.Subscribe(ctx, domain.SubjectReferralActivated, queueGroup, msgHandler)
	if err != nil {
		return err
	}

	<-ctx.Done()
	if sub.IsValid() {
		c.logger.Info("Unsubscribing from referral activation subject")
		if err := sub.Unsubscribe(); err != nil {
			c.logger.Warn("Failed to unsubscribe", "error", err)
		}
	}
	return ctx.Err()
}
