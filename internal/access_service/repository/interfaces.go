package repository

import (
	"context"

	"github.com/AlexandrGonin/eatprayit-tgbot/internal/access_service/domain"
)

// PrincipalRepository is the identity & access store: one row per principal
// keyed by telegram id, secondary unique index on referral_code.
type PrincipalRepository interface {
	// Create inserts the principal and assigns a fresh unique referral
	// code. Returns domain.ErrDuplicatePrincipal when the telegram id is
	// already registered.
	Create(ctx context.Context, principal *domain.Principal) (*domain.Principal, error)
	// GetByTelegramID returns domain.ErrPrincipalNotFound when absent.
	GetByTelegramID(ctx context.Context, telegramID int64) (*domain.Principal, error)
	// GetByReferralCode returns domain.ErrPrincipalNotFound when absent.
	GetByReferralCode(ctx context.Context, code string) (*domain.Principal, error)
	// Activate sets is_active = true. Safe to call on an already-active
	// row; returns domain.ErrPrincipalNotFound when absent.
	Activate(ctx context.Context, telegramID int64) error
	// CreditReferrer atomically increments coins and referral_count by 1
	// and returns the updated row. The increment happens in a single SQL
	// statement so concurrent credits to the same referrer never lose
	// updates.
	CreditReferrer(ctx context.Context, telegramID int64) (*domain.Principal, error)
}
