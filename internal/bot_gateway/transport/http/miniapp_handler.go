package http

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/AlexandrGonin/eatprayit-tgbot/internal/access_service/domain"
	"github.com/AlexandrGonin/eatprayit-tgbot/internal/bot_gateway/middleware"
	"github.com/go-playground/validator/v10"
	"github.com/golang-jwt/jwt/v5"
)

// MiniAppAccessService is the controller surface the Mini App API needs.
type MiniAppAccessService interface {
	CanAccess(ctx context.Context, telegramID int64) (bool, error)
	Status(ctx context.Context, telegramID int64) (*domain.StatusView, error)
}

// MiniAppConfig carries the auth settings for the Mini App API.
type MiniAppConfig struct {
	BotToken  string
	JWTSecret string
	JWTExpiry time.Duration
}

// MiniAppHandler serves the companion application API: exchanging Telegram
// WebApp initData for a session token and returning the caller's profile.
type MiniAppHandler struct {
	access   MiniAppAccessService
	config   MiniAppConfig
	validate *validator.Validate
	logger   *slog.Logger
	now      func() time.Time
}

// NewMiniAppHandler creates a MiniAppHandler.
func NewMiniAppHandler(access MiniAppAccessService, config MiniAppConfig, logger *slog.Logger) *MiniAppHandler {
	return &MiniAppHandler{
		access:   access,
		config:   config,
		validate: validator.New(),
		logger:   logger.With("component", "miniapp_handler"),
		now:      time.Now,
	}
}

// HandleAuth exchanges verified initData for a JWT. Only active principals
// get a token: the same flag that gates the bot gates the Mini App.
func (h *MiniAppHandler) HandleAuth(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	var req MiniAppAuthRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSONError(w, http.StatusBadRequest, "Invalid request body", "")
		return
	}
	if err := h.validate.Struct(req); err != nil {
		writeJSONError(w, http.StatusBadRequest, "Validation failed", err.Error())
		return
	}

	user, err := verifyInitData(req.InitData, h.config.BotToken, h.now())
	if err != nil {
		h.logger.WarnContext(ctx, "Init data verification failed", "error", err)
		writeJSONError(w, http.StatusUnauthorized, "Init data verification failed", "")
		return
	}

	allowed, err := h.access.CanAccess(ctx, user.ID)
	if err != nil {
		h.logger.ErrorContext(ctx, "Access check failed", "error", err, "telegram_id", user.ID)
		writeJSONError(w, http.StatusInternalServerError, "Internal error", "")
		return
	}
	if !allowed {
		writeJSONError(w, http.StatusForbidden, "No access: register through a referral link first", "")
		return
	}

	now := h.now()
	claims := jwt.RegisteredClaims{
		Subject:   strconv.FormatInt(user.ID, 10),
		IssuedAt:  jwt.NewNumericDate(now),
		ExpiresAt: jwt.NewNumericDate(now.Add(h.config.JWTExpiry)),
	}
	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(h.config.JWTSecret))
	if err != nil {
		h.logger.ErrorContext(ctx, "Failed to sign session token", "error", err)
		writeJSONError(w, http.StatusInternalServerError, "Internal error", "")
		return
	}

	writeJSON(w, http.StatusOK, MiniAppAuthResponse{AccessToken: token, TelegramID: user.ID})
}

// HandleMe returns the authenticated principal's snapshot. Sits behind
// middleware.MiniAppAuthMiddleware.
func (h *MiniAppHandler) HandleMe(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	telegramID, ok := middleware.TelegramIDFromContext(ctx)
	if !ok {
		writeJSONError(w, http.StatusUnauthorized, "Not authenticated", "")
		return
	}

	view, err := h.access.Status(ctx, telegramID)
	if err != nil {
		if errors.Is(err, domain.ErrPrincipalNotFound) {
			writeJSONError(w, http.StatusNotFound, "Principal not found", "")
			return
		}
		h.logger.ErrorContext(ctx, "Profile lookup failed", "error", err, "telegram_id", telegramID)
		writeJSONError(w, http.StatusInternalServerError, "Internal error", "")
		return
	}

	p := view.Principal
	writeJSON(w, http.StatusOK, ProfileResponse{
		TelegramID:    p.TelegramID,
		FirstName:     p.FirstName,
		LastName:      p.LastName,
		Username:      p.Username,
		IsActive:      p.IsActive,
		Coins:         p.Coins,
		ReferralCount: p.ReferralCount,
		ReferralLink:  view.Link,
	})
}

func writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(body)
}

func writeJSONError(w http.ResponseWriter, status int, message, details string) {
	writeJSON(w, status, GenericErrorResponse{Error: message, Details: details})
}
