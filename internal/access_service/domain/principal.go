package domain

import (
	"time"
)

// Principal represents a registered bot user. Identity comes from Telegram;
// the service never generates principal ids itself.
type Principal struct {
	TelegramID    int64     `json:"telegram_id" db:"telegram_id"`
	Username      string    `json:"username,omitempty" db:"username"`
	FirstName     string    `json:"first_name" db:"first_name"`
	LastName      string    `json:"last_name,omitempty" db:"last_name"`
	ReferralCode  string    `json:"referral_code" db:"referral_code"`
	ReferredBy    *int64    `json:"referred_by,omitempty" db:"referred_by"`
	IsActive      bool      `json:"is_active" db:"is_active"`
	Coins         int       `json:"coins" db:"coins"`
	ReferralCount int       `json:"referral_count" db:"referral_count"`
	CreatedAt     time.Time `json:"created_at" db:"created_at"`
	UpdatedAt     time.Time `json:"updated_at" db:"updated_at"`
}

// State is the access state derived from stored fields. It is never stored
// separately; UNKNOWN means no row exists at all.
type State int

const (
	StateUnknown State = iota
	StateInert
	StateActive
)

// StateOf derives the access state for a possibly-absent principal.
func StateOf(p *Principal) State {
	switch {
	case p == nil:
		return StateUnknown
	case p.IsActive:
		return StateActive
	default:
		return StateInert
	}
}

// DisplayName returns the name shown in chat messages: the first name, which
// Telegram guarantees to be present.
func (p *Principal) DisplayName() string {
	return p.FirstName
}
