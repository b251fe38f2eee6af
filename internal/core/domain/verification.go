package domain

import "time"

// VerificationToken is a single-use capability proving control of an email
// address. Only the hash of the raw secret is ever stored.
type VerificationToken struct {
	ID        string     `json:"id"`
	AccountID string     `json:"account_id"`
	TokenHash string     `json:"-"`
	ExpiresAt time.Time  `json:"expires_at"`
	Used      bool       `json:"used"`
	UsedAt    *time.Time `json:"used_at,omitempty"`
	CreatedAt time.Time  `json:"created_at"`
}

// Expired reports whether the token's validity window has closed at now.
func (t *VerificationToken) Expired(now time.Time) bool {
	return !now.Before(t.ExpiresAt)
}

// VerificationOutcome is returned by a successful email verification and is
// enough for the transport to build a redirect message.
type VerificationOutcome struct {
	AccountID string
	Status    AccountStatus
	Code      string
	Message   string
}

const (
	VerifyCodeVerified        = "verified"
	VerifyCodePendingApproval = "pending_approval"
	VerifyCodeDenied          = "denied"
	VerifyCodeDisabled        = "disabled"
)
