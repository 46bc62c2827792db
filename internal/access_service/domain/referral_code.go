package domain

import (
	"crypto/rand"
	"fmt"
)

// ReferralCodeLength is the length of every referral code.
const ReferralCodeLength = 8

// referralCodeAlphabet matches the codes issued by the first bot revision,
// so links shared before a redeploy keep working.
const referralCodeAlphabet = "ABCDEFGHIJKLMNOPQRSTUVWXYZ0123456789"

// NewReferralCode generates a random 8-character code over [A-Z0-9].
// Roughly 41 bits of entropy; uniqueness is still enforced by the store's
// unique index, with the repository regenerating on collision.
func NewReferralCode() (string, error) {
	buf := make([]byte, ReferralCodeLength)
	if _, err := rand.Read(buf); err != nil {
		return "", fmt.Errorf("failed to read random bytes for referral code: %w", err)
	}
	for i, b := range buf {
		buf[i] = referralCodeAlphabet[int(b)%len(referralCodeAlphabet)]
	}
	return string(buf), nil
}
