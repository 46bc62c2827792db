package app

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/AlexandrGonin/eatprayit-tgbot/internal/access_service/domain"
)

// MessageSender delivers chat messages. Satisfied by telegram.Client.
type MessageSender interface {
	SendMessage(ctx context.Context, chatID int64, text string) error
}

// NotificationProcessor turns referral activation events into referrer
// notifications. Delivery is best-effort: a failed send is logged and the
// event is discarded, never retried.
type NotificationProcessor struct {
	sender    MessageSender
	logger    *slog.Logger
	inputChan <-chan domain.ReferralActivatedEvent
}

// NewNotificationProcessor creates a NotificationProcessor reading events
// from inputChan.
func NewNotificationProcessor(sender MessageSender, logger *slog.Logger, inputChan <-chan domain.ReferralActivatedEvent) *NotificationProcessor {
	return &NotificationProcessor{
		sender:    sender,
		logger:    logger.With("component", "notification_processor"),
		inputChan: inputChan,
	}
}

// Run processes events until ctx is cancelled.
func (p *NotificationProcessor) Run(ctx context.Context) {
	for {
		select {
		case event, ok := <-p.inputChan:
			if !ok {
				p.logger.Info("Notification channel closed, stopping processor")
				return
			}
			p.process(ctx, event)
		case <-ctx.Done():
			p.logger.Info("Context cancelled, stopping notification processor")
			return
		}
	}
}

func (p *NotificationProcessor) process(ctx context.Context, event domain.ReferralActivatedEvent) {
	text := RenderReferrerNotification(event)
	if err := p.sender.SendMessage(ctx, event.ReferrerID, text); err != nil {
		p.logger.WarnContext(ctx, "Failed to deliver referrer notification",
			"error", err, "event_id", event.EventID, "referrer_id", event.ReferrerID)
		return
	}
	p.logger.InfoContext(ctx, "Referrer notified",
		"event_id", event.EventID, "referrer_id", event.ReferrerID, "referred_id", event.ReferredID)
}

// RenderReferrerNotification builds the chat message sent to a referrer
// after one of their links is redeemed.
func RenderReferrerNotification(event domain.ReferralActivatedEvent) string {
	return fmt.Sprintf("🎉 %s joined via your referral link!\n\n"+
		"💰 +1 coin. You now have %d coins and %d referrals.",
		event.ReferredFirstName, event.ReferrerCoins, event.ReferrerReferrals)
}
