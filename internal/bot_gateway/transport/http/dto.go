package http

// Telegram update wire types, reduced to the fields the bot reads.
// https://core.telegram.org/bots/api#update

// Update is one inbound webhook payload from Telegram.
type Update struct {
	UpdateID int64    `json:"update_id"`
	Message  *Message `json:"message,omitempty"`
}

// Message is an incoming chat message.
type Message struct {
	MessageID int64   `json:"message_id"`
	From      *TgUser `json:"from,omitempty"`
	Chat      Chat    `json:"chat"`
	Text      string  `json:"text,omitempty"`
}

// TgUser identifies the Telegram account that sent the message.
type TgUser struct {
	ID        int64  `json:"id"`
	IsBot     bool   `json:"is_bot"`
	FirstName string `json:"first_name"`
	LastName  string `json:"last_name,omitempty"`
	Username  string `json:"username,omitempty"`
}

// Chat is the conversation the message arrived in.
type Chat struct {
	ID   int64  `json:"id"`
	Type string `json:"type"`
}

// MiniAppAuthRequest carries the raw initData string from the Telegram
// WebApp client.
type MiniAppAuthRequest struct {
	InitData string `json:"init_data" validate:"required"`
}

// MiniAppAuthResponse returns the session token for the Mini App.
type MiniAppAuthResponse struct {
	AccessToken string `json:"access_token"`
	TelegramID  int64  `json:"telegram_id"`
}

// ProfileResponse is the principal snapshot for GET /api/v1/me.
type ProfileResponse struct {
	TelegramID    int64  `json:"telegram_id"`
	FirstName     string `json:"first_name"`
	LastName      string `json:"last_name,omitempty"`
	Username      string `json:"username,omitempty"`
	IsActive      bool   `json:"is_active"`
	Coins         int    `json:"coins"`
	ReferralCount int    `json:"referral_count"`
	ReferralLink  string `json:"referral_link,omitempty"`
}

// GenericErrorResponse for API errors.
type GenericErrorResponse struct {
	Error   string `json:"error"`
	Details string `json:"details,omitempty"`
}
