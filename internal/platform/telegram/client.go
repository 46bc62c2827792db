package telegram

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"time"
)

const defaultAPIBaseURL = "https://api.telegram.org"

// Client is a minimal Telegram Bot API client covering what the services
// need: sending messages, registering the webhook and resolving the bot
// identity. No SDK: the API is a handful of plain JSON POSTs.
type Client struct {
	logger     *slog.Logger
	httpClient *http.Client
	baseURL    string
	token      string
}

// NewClient creates a Telegram Bot API client. baseURL is overridable for
// tests; pass "" for the real API.
func NewClient(logger *slog.Logger, token string, baseURL string, httpClient *http.Client) *Client {
	if httpClient == nil {
		httpClient = &http.Client{Timeout: 10 * time.Second}
	}
	if baseURL == "" {
		baseURL = defaultAPIBaseURL
	}
	return &Client{
		logger:     logger.With("component", "telegram_client"),
		httpClient: httpClient,
		baseURL:    baseURL,
		token:      token,
	}
}

type sendMessageRequest struct {
	ChatID int64  `json:"chat_id"`
	Text   string `json:"text"`
}

type setWebhookRequest struct {
	URL string `json:"url"`
}

// apiResponse is the Bot API envelope. Result is left raw; callers that
// need it decode into their own type.
type apiResponse struct {
	OK          bool            `json:"ok"`
	Description string          `json:"description,omitempty"`
	Result      json.RawMessage `json:"result,omitempty"`
}

// SendMessage delivers a plain-text message to the given chat.
func (c *Client) SendMessage(ctx context.Context, chatID int64, text string) error {
	_, err := c.call(ctx, "sendMessage", sendMessageRequest{ChatID: chatID, Text: text})
	return err
}

// SetWebhook registers webhookURL with Telegram so updates arrive via HTTP
// POST instead of long polling.
func (c *Client) SetWebhook(ctx context.Context, webhookURL string) error {
	_, err := c.call(ctx, "setWebhook", setWebhookRequest{URL: webhookURL})
	if err == nil {
		c.logger.InfoContext(ctx, "Telegram webhook registered", "url", webhookURL)
	}
	return err
}

// BotInfo is the subset of getMe the services care about.
type BotInfo struct {
	ID       int64  `json:"id"`
	Username string `json:"username"`
}

// GetMe resolves the bot's own identity. Used at startup as a token sanity
// check and to fill in the bot username when it is not configured.
func (c *Client) GetMe(ctx context.Context) (*BotInfo, error) {
	result, err := c.call(ctx, "getMe", struct{}{})
	if err != nil {
		return nil, err
	}
	var info BotInfo
	if err := json.Unmarshal(result, &info); err != nil {
		return nil, fmt.Errorf("failed to decode getMe result: %w", err)
	}
	return &info, nil
}

func (c *Client) call(ctx context.Context, method string, payload any) (json.RawMessage, error) {
	reqBytes, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal %s request: %w", method, err)
	}

	url := fmt.Sprintf("%s/bot%s/%s", c.baseURL, c.token, method)
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewBuffer(reqBytes))
	if err != nil {
		return nil, fmt.Errorf("failed to create %s request: %w", method, err)
	}
	httpReq.Header.Set("Content-Type", "application/json")

	httpResp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return nil, fmt.Errorf("telegram %s request failed: %w", method, err)
	}
	defer httpResp.Body.Close()

	respBody, err := io.ReadAll(httpResp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read %s response: %w", method, err)
	}

	var resp apiResponse
	if err := json.Unmarshal(respBody, &resp); err != nil {
		return nil, fmt.Errorf("failed to decode %s response (status %d): %w", method, httpResp.StatusCode, err)
	}
	if !resp.OK {
		return nil, fmt.Errorf("telegram %s failed (status %d): %s", method, httpResp.StatusCode, resp.Description)
	}
	return resp.Result, nil
}
