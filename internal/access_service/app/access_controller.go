package app

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"

	"github.com/AlexandrGonin/eatprayit-tgbot/internal/access_service/domain"
	"github.com/AlexandrGonin/eatprayit-tgbot/internal/access_service/repository"
	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
)

// EventPublisher is the notification side-channel. Implemented by
// messagebroker.NatsClient; mocked in tests.
type EventPublisher interface {
	Publish(ctx context.Context, subject string, data []byte) error
}

// AccessController decides what a new or returning principal may do. It owns
// the referral state machine: who may activate whom, exactly-once crediting,
// idempotent re-entry. All collaborators are constructor-injected.
type AccessController struct {
	principals  repository.PrincipalRepository
	publisher   EventPublisher
	validate    *validator.Validate
	botUsername string
	logger      *slog.Logger
}

// NewAccessController creates an AccessController. botUsername is used to
// compose t.me deep links.
func NewAccessController(
	principals repository.PrincipalRepository,
	publisher EventPublisher,
	botUsername string,
	logger *slog.Logger,
) *AccessController {
	return &AccessController{
		principals:  principals,
		publisher:   publisher,
		validate:    validator.New(),
		botUsername: botUsername,
		logger:      logger.With("service", "access_controller"),
	}
}

// HandleStart applies the access state machine to a /start event.
//
// Transition table (first match wins):
//
//	UNKNOWN + no code                       -> denied
//	UNKNOWN + code of an active referrer    -> create active, credit, notify
//	UNKNOWN + code of self/absent/inactive  -> invalid code
//	INERT   + no code                       -> denied
//	INERT   + any code                      -> already registered
//	ACTIVE  + anything                      -> returning (code ignored)
func (c *AccessController) HandleStart(ctx context.Context, event domain.StartEvent) (*domain.Outcome, error) {
	if err := c.validate.Struct(event); err != nil {
		return nil, fmt.Errorf("%w: %v", domain.ErrInvalidEvent, err)
	}

	existing, err := c.principals.GetByTelegramID(ctx, event.TelegramID)
	if err != nil && !errors.Is(err, domain.ErrPrincipalNotFound) {
		return nil, fmt.Errorf("failed to look up principal %d: %w", event.TelegramID, err)
	}

	switch domain.StateOf(existing) {
	case domain.StateActive:
		// Idempotent re-entry; a presented code changes nothing.
		return &domain.Outcome{
			Kind:      domain.OutcomeReturning,
			Principal: existing,
			Link:      c.referralLinkFor(existing),
		}, nil

	case domain.StateInert:
		if event.ReferralCode != "" {
			// Registered-but-inactive principals cannot redeem a
			// code through this path.
			return &domain.Outcome{Kind: domain.OutcomeAlreadyRegistered, Principal: existing}, nil
		}
		return &domain.Outcome{Kind: domain.OutcomeDenied, Principal: existing}, nil

	default: // StateUnknown
		if event.ReferralCode == "" {
			return &domain.Outcome{Kind: domain.OutcomeDenied}, nil
		}
		return c.redeem(ctx, event)
	}
}

// redeem handles the one composite transition: UNKNOWN + valid code of an
// active referrer. Creation happens already-active in a single insert, so
// there is no window where the new principal exists but cannot be activated.
func (c *AccessController) redeem(ctx context.Context, event domain.StartEvent) (*domain.Outcome, error) {
	referrer, err := c.principals.GetByReferralCode(ctx, event.ReferralCode)
	if err != nil {
		if errors.Is(err, domain.ErrPrincipalNotFound) {
			return &domain.Outcome{Kind: domain.OutcomeInvalidCode}, nil
		}
		return nil, fmt.Errorf("failed to resolve referral code: %w", err)
	}
	if referrer.TelegramID == event.TelegramID || !referrer.IsActive {
		return &domain.Outcome{Kind: domain.OutcomeInvalidCode}, nil
	}

	referrerID := referrer.TelegramID
	created, err := c.principals.Create(ctx, &domain.Principal{
		TelegramID: event.TelegramID,
		Username:   event.Username,
		FirstName:  event.FirstName,
		LastName:   event.LastName,
		ReferredBy: &referrerID,
		IsActive:   true,
	})
	if err != nil {
		if errors.Is(err, domain.ErrDuplicatePrincipal) {
			// Lost a race with another first contact for the same
			// principal. Re-read and fall back to the returning
			// path; whoever won the insert owns the credit.
			c.logger.WarnContext(ctx, "Create raced with concurrent registration",
				"telegram_id", event.TelegramID)
			raced, rerr := c.principals.GetByTelegramID(ctx, event.TelegramID)
			if rerr != nil {
				return nil, fmt.Errorf("failed to re-read principal after create conflict: %w", rerr)
			}
			return c.HandleStart(ctx, domain.StartEvent{
				TelegramID: raced.TelegramID,
				FirstName:  raced.FirstName,
				LastName:   raced.LastName,
				Username:   raced.Username,
			})
		}
		return nil, fmt.Errorf("failed to create principal %d: %w", event.TelegramID, err)
	}

	creditedReferrer, err := c.principals.CreditReferrer(ctx, referrerID)
	if err != nil {
		// The new principal is registered and active but the referrer
		// got no credit. No rollback: surfaced for out-of-band repair.
		// A retry of the same event finds the existing row and takes
		// the returning path, so it can never credit twice.
		c.logger.ErrorContext(ctx, "Inconsistent state: principal activated but referrer not credited",
			"telegram_id", event.TelegramID, "referrer_id", referrerID, "error", err)
		return nil, fmt.Errorf("failed to credit referrer %d: %w", referrerID, err)
	}

	c.publishReferralActivated(ctx, creditedReferrer, created)

	return &domain.Outcome{
		Kind:      domain.OutcomeWelcomed,
		Principal: created,
		Referrer:  creditedReferrer,
		Link:      c.referralLinkFor(created),
	}, nil
}

// publishReferralActivated emits the referrer notification event.
// Fire-and-forget: a failed publish is logged and swallowed, never retried,
// and never rolls back the credit.
func (c *AccessController) publishReferralActivated(ctx context.Context, referrer, referred *domain.Principal) {
	event := domain.ReferralActivatedEvent{
		EventID:           uuid.NewString(),
		ReferrerID:        referrer.TelegramID,
		ReferredID:        referred.TelegramID,
		ReferredFirstName: referred.FirstName,
		ReferrerCoins:     referrer.Coins,
		ReferrerReferrals: referrer.ReferralCount,
	}
	payload, err := json.Marshal(event)
	if err != nil {
		c.logger.ErrorContext(ctx, "Failed to marshal referral activated event", "error", err)
		return
	}
	if err := c.publisher.Publish(ctx, domain.SubjectReferralActivated, payload); err != nil {
		c.logger.WarnContext(ctx, "Failed to publish referral activated event",
			"error", err, "referrer_id", referrer.TelegramID, "event_id", event.EventID)
	}
}

// Status returns the read-only status snapshot for a principal.
func (c *AccessController) Status(ctx context.Context, telegramID int64) (*domain.StatusView, error) {
	principal, err := c.principals.GetByTelegramID(ctx, telegramID)
	if err != nil {
		return nil, err
	}
	return &domain.StatusView{
		Principal: principal,
		Link:      c.referralLinkFor(principal),
	}, nil
}

// ReferralLink returns the principal's own referral link. Active principals
// always have one; inert principals get domain.ErrAccessDenied.
func (c *AccessController) ReferralLink(ctx context.Context, telegramID int64) (string, error) {
	principal, err := c.principals.GetByTelegramID(ctx, telegramID)
	if err != nil {
		return "", err
	}
	link := c.referralLinkFor(principal)
	if link == "" {
		return "", domain.ErrAccessDenied
	}
	return link, nil
}

// CanAccess reports whether the principal may use the Mini App.
func (c *AccessController) CanAccess(ctx context.Context, telegramID int64) (bool, error) {
	principal, err := c.principals.GetByTelegramID(ctx, telegramID)
	if err != nil {
		if errors.Is(err, domain.ErrPrincipalNotFound) {
			return false, nil
		}
		return false, err
	}
	return principal.IsActive, nil
}

// referralLinkFor composes the t.me deep link. The link is exposed iff the
// principal is active: one flag gates both app access and link visibility.
func (c *AccessController) referralLinkFor(p *domain.Principal) string {
	if p == nil || !p.IsActive {
		return ""
	}
	return fmt.Sprintf("https://t.me/%s?start=%s", c.botUsername, p.ReferralCode)
}
