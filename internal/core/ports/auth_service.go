package ports

import (
	"context"
	"time"

	"github.com/northwind/backoffice/internal/core/domain"
)

// LoginResult is the bearer token issued on successful authentication.
type LoginResult struct {
	Token     string
	ExpiresAt time.Time
	AccountID string
	Role      string
}

type AuthService interface {
	Register(ctx context.Context, email, password string) (string, error)
	VerifyEmail(ctx context.Context, rawToken string) (*domain.VerificationOutcome, error)
	ResendVerification(ctx context.Context, email string) error
	Login(ctx context.Context, email, password string) (*LoginResult, error)
}

// AccountAdminService exposes administrative account management.
type AccountAdminService interface {
	Get(ctx context.Context, id string) (*domain.Account, error)
	List(ctx context.Context, filter ListFilter) (*Page[*domain.Account], error)
	SetStatus(ctx context.Context, id string, status domain.AccountStatus) (*domain.Account, error)
	SetRole(ctx context.Context, id string, role domain.Role) (*domain.Account, error)
	SoftDelete(ctx context.Context, id, actorID string) error
	Restore(ctx context.Context, id string) error
}
