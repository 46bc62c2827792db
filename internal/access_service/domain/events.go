package domain

// SubjectReferralActivated is the NATS subject for successful referral
// activations. The notification service consumes it with a queue group.
const SubjectReferralActivated = "referral.activated"

// ReferralActivatedEvent is published after a referrer has been credited.
// Delivery is best-effort: losing an event loses a courtesy message, never
// state.
type ReferralActivatedEvent struct {
	EventID           string `json:"event_id"`
	ReferrerID        int64  `json:"referrer_id"`
	ReferredID        int64  `json:"referred_id"`
	ReferredFirstName string `json:"referred_first_name"`
	ReferrerCoins     int    `json:"referrer_coins"`
	ReferrerReferrals int    `json:"referrer_referrals"`
}
