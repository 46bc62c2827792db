package http

import (
	"context"
	"crypto/subtle"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"strings"

	"github.com/AlexandrGonin/eatprayit-tgbot/internal/access_service/domain"
	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
)

const maxUpdateBodySize = 1 << 20 // 1 MB

// AccessService is the controller surface the webhook handler needs.
// Satisfied by app.AccessController; mocked in tests.
type AccessService interface {
	HandleStart(ctx context.Context, event domain.StartEvent) (*domain.Outcome, error)
	Status(ctx context.Context, telegramID int64) (*domain.StatusView, error)
	ReferralLink(ctx context.Context, telegramID int64) (string, error)
}

// Replier sends chat replies. Satisfied by telegram.Client.
type Replier interface {
	SendMessage(ctx context.Context, chatID int64, text string) error
}

// WebhookHandler receives Telegram updates, dispatches bot commands to the
// access controller and renders outcomes back into chat messages.
type WebhookHandler struct {
	access  AccessService
	replier Replier
	secret  string
	logger  *slog.Logger
}

// NewWebhookHandler creates a WebhookHandler. secret is the random path
// segment Telegram posts to; requests with a different segment are dropped.
func NewWebhookHandler(access AccessService, replier Replier, secret string, logger *slog.Logger) *WebhookHandler {
	return &WebhookHandler{
		access:  access,
		replier: replier,
		secret:  secret,
		logger:  logger.With("component", "webhook_handler"),
	}
}

// HandleUpdate processes one Telegram update. It always answers 200 once
// the payload is readable: Telegram re-delivers on non-2xx, and re-running
// a failed handler against the same update would only spam the user.
// Failures are logged and the user gets a generic error reply instead.
func (h *WebhookHandler) HandleUpdate(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	logger := h.logger.With("request_id", chimiddleware.GetReqID(ctx))

	if subtle.ConstantTimeCompare([]byte(chi.URLParam(r, "secret")), []byte(h.secret)) != 1 {
		logger.WarnContext(ctx, "Webhook called with wrong secret", "remote_addr", r.RemoteAddr)
		http.Error(w, "Not found", http.StatusNotFound)
		return
	}

	r.Body = http.MaxBytesReader(w, r.Body, maxUpdateBodySize)
	body, err := io.ReadAll(r.Body)
	if err != nil {
		logger.ErrorContext(ctx, "Failed to read update body", "error", err)
		http.Error(w, "Error reading request body", http.StatusBadRequest)
		return
	}

	var update Update
	if err := json.Unmarshal(body, &update); err != nil {
		logger.ErrorContext(ctx, "Failed to decode update", "error", err)
		http.Error(w, "Malformed update", http.StatusBadRequest)
		return
	}

	h.processUpdate(ctx, logger, &update)
	w.WriteHeader(http.StatusOK)
}

func (h *WebhookHandler) processUpdate(ctx context.Context, logger *slog.Logger, update *Update) {
	msg := update.Message
	if msg == nil || msg.From == nil || msg.From.IsBot || msg.Text == "" {
		return
	}
	logger = logger.With("telegram_id", msg.From.ID, "update_id", update.UpdateID)

	command, payload := parseCommand(msg.Text)

	var reply string
	switch command {
	case "/start":
		reply = h.handleStart(ctx, logger, msg, payload)
	case "/status":
		reply = h.handleStatus(ctx, logger, msg)
	case "/referral":
		reply = h.handleReferral(ctx, logger, msg)
	case "/help":
		reply = msgHelp
	default:
		reply = msgUnknownText
	}

	if err := h.replier.SendMessage(ctx, msg.Chat.ID, reply); err != nil {
		logger.ErrorContext(ctx, "Failed to send reply", "error", err)
	}
}

func (h *WebhookHandler) handleStart(ctx context.Context, logger *slog.Logger, msg *Message, payload string) string {
	outcome, err := h.access.HandleStart(ctx, domain.StartEvent{
		TelegramID:   msg.From.ID,
		FirstName:    msg.From.FirstName,
		LastName:     msg.From.LastName,
		Username:     msg.From.Username,
		ReferralCode: payload,
	})
	if err != nil {
		if errors.Is(err, domain.ErrInvalidEvent) {
			logger.WarnContext(ctx, "Dropping invalid start event", "error", err)
			return "Could not read your account details. Please try again."
		}
		logger.ErrorContext(ctx, "Start event failed", "error", err)
		return msgGenericError
	}
	logger.InfoContext(ctx, "Start event handled", "outcome", string(outcome.Kind))
	return renderOutcome(outcome, msg.From.FirstName)
}

func (h *WebhookHandler) handleStatus(ctx context.Context, logger *slog.Logger, msg *Message) string {
	view, err := h.access.Status(ctx, msg.From.ID)
	if err != nil {
		if errors.Is(err, domain.ErrPrincipalNotFound) {
			return msgRegisterFirst
		}
		logger.ErrorContext(ctx, "Status lookup failed", "error", err)
		return msgGenericError
	}
	return renderStatus(view)
}

func (h *WebhookHandler) handleReferral(ctx context.Context, logger *slog.Logger, msg *Message) string {
	link, err := h.access.ReferralLink(ctx, msg.From.ID)
	if err != nil {
		switch {
		case errors.Is(err, domain.ErrPrincipalNotFound):
			return msgRegisterFirst
		case errors.Is(err, domain.ErrAccessDenied):
			return renderReferralDenied()
		default:
			logger.ErrorContext(ctx, "Referral link lookup failed", "error", err)
			return msgGenericError
		}
	}
	return renderReferralLink(link)
}

// parseCommand splits a message into a bot command and its payload.
// "/start ABC123" and "/start@eatprayit_bot ABC123" both yield
// ("/start", "ABC123"); plain text yields ("", text).
func parseCommand(text string) (command string, payload string) {
	text = strings.TrimSpace(text)
	if !strings.HasPrefix(text, "/") {
		return "", text
	}
	parts := strings.SplitN(text, " ", 2)
	command = parts[0]
	if at := strings.Index(command, "@"); at != -1 {
		command = command[:at]
	}
	if len(parts) == 2 {
		payload = strings.TrimSpace(parts[1])
	}
	return command, payload
}
