package service

import (
	"context"
	"fmt"
	"time"

	"github.com/rs/zerolog"

	"github.com/northwind/backoffice/internal/core/domain"
	"github.com/northwind/backoffice/internal/core/ports"
)

// AccountService implements administrative account management. Soft-delete
// and restore come from the shared Lifecycle.
type AccountService struct {
	*Lifecycle[*domain.Account]
	repo ports.AccountRepository
	tx   ports.Transactor
	now  func() time.Time
	log  zerolog.Logger
}

var _ ports.AccountAdminService = (*AccountService)(nil)

func NewAccountService(repo ports.AccountRepository, tx ports.Transactor, log zerolog.Logger, opts ...Option) *AccountService {
	s := applyOptions(opts)
	return &AccountService{
		Lifecycle: NewLifecycle[*domain.Account]("account", repo, tx, log, opts...),
		repo:      repo,
		tx:        tx,
		now:       s.now,
		log:       log,
	}
}

func (s *AccountService) Get(ctx context.Context, id string) (*domain.Account, error) {
	return s.repo.FindByID(ctx, id)
}

func (s *AccountService) List(ctx context.Context, filter ports.ListFilter) (*ports.Page[*domain.Account], error) {
	filter = normalizeFilter(filter)
	items, total, err := s.repo.List(ctx, filter)
	if err != nil {
		return nil, fmt.Errorf("list accounts: %w", err)
	}
	return newPage(items, total, filter), nil
}

// SetStatus applies an administrative status change, enforcing the
// transition table.
func (s *AccountService) SetStatus(ctx context.Context, id string, status domain.AccountStatus) (*domain.Account, error) {
	return s.update(ctx, id, func(a *domain.Account) error {
		from := a.Status
		if err := a.TransitionTo(status, s.now()); err != nil {
			return err
		}
		s.log.Info().Str("account_id", id).Str("from", from.String()).Str("to", status.String()).Msg("account status changed")
		return nil
	})
}

func (s *AccountService) SetRole(ctx context.Context, id string, role domain.Role) (*domain.Account, error) {
	if !role.Valid() {
		return nil, domain.Fail(domain.KindValidation, "unknown role")
	}
	return s.update(ctx, id, func(a *domain.Account) error {
		a.Role = role
		a.UpdatedAt = s.now()
		return nil
	})
}

func (s *AccountService) update(ctx context.Context, id string, mutate func(*domain.Account) error) (*domain.Account, error) {
	var account *domain.Account
	err := s.tx.RunInTx(ctx, func(ctx context.Context) error {
		a, err := s.repo.FindByID(ctx, id)
		if err != nil {
			return err
		}
		if a.IsDeleted() {
			return domain.NotFound("account")
		}
		if err := mutate(a); err != nil {
			return err
		}
		if err := s.repo.Save(ctx, a); err != nil {
			return err
		}
		account = a
		return nil
	})
	if err != nil {
		if _, ok := domain.KindOf(err); ok {
			return nil, err
		}
		return nil, fmt.Errorf("update account %s: %w", id, err)
	}
	return account, nil
}
