package service

import (
	"context"
	"fmt"
	"time"

	"github.com/northwind/backoffice/internal/core/domain"
	"github.com/northwind/backoffice/internal/core/ports"
)

const defaultVerificationTTL = 24 * time.Hour

// VerificationTokens issues and consumes single-use email-verification
// tokens. The raw secret leaves this type exactly once, from Create.
type VerificationTokens struct {
	repo    ports.VerificationTokenRepository
	secrets ports.SecretGenerator
	ttl     time.Duration
	now     func() time.Time
}

func NewVerificationTokens(repo ports.VerificationTokenRepository, secrets ports.SecretGenerator, ttl time.Duration, opts ...Option) *VerificationTokens {
	if ttl <= 0 {
		ttl = defaultVerificationTTL
	}
	s := applyOptions(opts)
	return &VerificationTokens{repo: repo, secrets: secrets, ttl: ttl, now: s.now}
}

// Create stores a new unused token for accountID and returns the raw secret.
func (v *VerificationTokens) Create(ctx context.Context, accountID string) (string, error) {
	raw, err := v.secrets.NewSecret()
	if err != nil {
		return "", fmt.Errorf("generate verification secret: %w", err)
	}

	now := v.now()
	token := &domain.VerificationToken{
		ID:        newID(),
		AccountID: accountID,
		TokenHash: v.secrets.HashSecret(raw),
		ExpiresAt: now.Add(v.ttl),
		CreatedAt: now,
	}
	if err := v.repo.Create(ctx, token); err != nil {
		return "", err
	}
	return raw, nil
}

// GetByRawToken hashes raw and looks the token up by hash.
func (v *VerificationTokens) GetByRawToken(ctx context.Context, raw string) (*domain.VerificationToken, error) {
	if raw == "" {
		return nil, domain.NotFound("verification token")
	}
	return v.repo.FindByHash(ctx, v.secrets.HashSecret(raw))
}

// MarkUsed consumes the token; a second consumption fails with a conflict.
func (v *VerificationTokens) MarkUsed(ctx context.Context, id string) error {
	return v.repo.MarkUsed(ctx, id)
}
