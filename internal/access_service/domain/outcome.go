package domain

// StartEvent is the inbound /start event as seen by the access controller.
// The transport fills it from a Telegram update; ReferralCode is the deep
// link payload and may be empty.
type StartEvent struct {
	TelegramID   int64  `validate:"required"`
	FirstName    string `validate:"required"`
	LastName     string
	Username     string
	ReferralCode string
}

// OutcomeKind tags the result of handling a start event.
type OutcomeKind string

const (
	// OutcomeWelcomed means a new principal was created and activated
	// through a valid referral link.
	OutcomeWelcomed OutcomeKind = "welcomed"
	// OutcomeReturning means the principal is already active; nothing
	// changed.
	OutcomeReturning OutcomeKind = "returning"
	// OutcomeDenied means the principal has no access and presented no
	// usable referral code.
	OutcomeDenied OutcomeKind = "denied"
	// OutcomeInvalidCode means the presented code resolved to nothing,
	// to the principal itself, or to an inactive referrer.
	OutcomeInvalidCode OutcomeKind = "invalid_code"
	// OutcomeAlreadyRegistered means an inert principal tried to redeem
	// a code; registered-but-inactive users cannot redeem through /start.
	OutcomeAlreadyRegistered OutcomeKind = "already_registered"
)

// Outcome is the controller's result descriptor. The transport renders it
// into user-facing text; the controller never formats chat messages.
type Outcome struct {
	Kind      OutcomeKind
	Principal *Principal
	Referrer  *Principal
	// Link is the principal's own referral link, set only when the
	// exposure policy holds (is_active).
	Link string
}

// StatusView is the read-only status snapshot for /status.
type StatusView struct {
	Principal *Principal
	// Link is set iff the principal is active.
	Link string
}
