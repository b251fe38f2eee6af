package ports

import (
	"context"
	"time"
)

// PasswordHasher performs one-way salted password hashing.
type PasswordHasher interface {
	Hash(password string) (string, error)
	// Verify never fails on a malformed hash; it reports false.
	Verify(hash, candidate string) bool
}

// TokenIssuer mints signed bearer tokens. It performs no I/O.
type TokenIssuer interface {
	IssueForAccount(accountID, email, role string) (token string, expiresAt time.Time, err error)
}

// SecretGenerator produces random verification secrets and their storage hash.
type SecretGenerator interface {
	NewSecret() (raw string, err error)
	HashSecret(raw string) string
}

// EmailSender delivers outbound email.
type EmailSender interface {
	Send(ctx context.Context, to, subject, body string) error
}
