package ports

import (
	"context"

	"github.com/northwind/backoffice/internal/core/domain"
)

// AccountRepository defines persistence for accounts. Writes that collide with
// the unique normalized-email constraint return a domain conflict.
type AccountRepository interface {
	LifecycleRepository[*domain.Account]

	Create(ctx context.Context, account *domain.Account) error
	// FindByNormalizedEmail only considers accounts that are not deleted.
	FindByNormalizedEmail(ctx context.Context, normalizedEmail string) (*domain.Account, error)
	List(ctx context.Context, filter ListFilter) ([]*domain.Account, int64, error)
}

// VerificationTokenRepository persists email-verification tokens by hash.
type VerificationTokenRepository interface {
	Create(ctx context.Context, token *domain.VerificationToken) error
	FindByHash(ctx context.Context, tokenHash string) (*domain.VerificationToken, error)
	// MarkUsed flips used from false to true in a single conditional write.
	// It returns a conflict when the token was already consumed.
	MarkUsed(ctx context.Context, id string) error
}

// Transactor runs fn as one atomic persistence unit. Repositories invoked
// with the ctx passed to fn participate in the same transaction.
type Transactor interface {
	RunInTx(ctx context.Context, fn func(ctx context.Context) error) error
}
