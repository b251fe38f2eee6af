package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/rs/zerolog"

	"github.com/northwind/backoffice/internal/core/domain"
	"github.com/northwind/backoffice/internal/core/ports"
)

// Lifecycle implements the Active <-> Deleted state machine once for every
// aggregate type. Both transitions are idempotent.
type Lifecycle[T domain.Aggregate] struct {
	name string
	repo ports.LifecycleRepository[T]
	tx   ports.Transactor
	now  func() time.Time
	log  zerolog.Logger
}

// NewLifecycle returns a Lifecycle for the aggregate called name (used in
// messages, e.g. "position").
func NewLifecycle[T domain.Aggregate](name string, repo ports.LifecycleRepository[T], tx ports.Transactor, log zerolog.Logger, opts ...Option) *Lifecycle[T] {
	s := applyOptions(opts)
	return &Lifecycle[T]{
		name: name,
		repo: repo,
		tx:   tx,
		now:  s.now,
		log:  log,
	}
}

// SoftDelete marks the entity Deleted on behalf of actorID. Deleting an
// already Deleted entity succeeds without writing.
func (l *Lifecycle[T]) SoftDelete(ctx context.Context, id, actorID string) error {
	var deleted bool
	err := l.tx.RunInTx(ctx, func(ctx context.Context) error {
		entity, err := l.repo.FindByID(ctx, id)
		if err != nil {
			return err
		}
		if entity.IsDeleted() {
			return nil
		}
		entity.MarkDeleted(l.now(), actorID)
		if err := l.repo.Save(ctx, entity); err != nil {
			return err
		}
		deleted = true
		return nil
	})
	if err != nil {
		return l.fail("soft delete", id, err)
	}
	if deleted {
		l.log.Info().Str("aggregate", l.name).Str("id", id).Str("actor_id", actorID).Msg("entity soft-deleted")
	}
	return nil
}

// Restore moves a Deleted entity back to Active. Restoring an Active entity
// succeeds without writing. When another Active entity holds the same business
// key the restore fails with a conflict and the entity stays Deleted.
func (l *Lifecycle[T]) Restore(ctx context.Context, id string) error {
	var restored bool
	err := l.tx.RunInTx(ctx, func(ctx context.Context) error {
		entity, err := l.repo.FindByID(ctx, id)
		if err != nil {
			return err
		}
		if !entity.IsDeleted() {
			return nil
		}

		taken, err := l.repo.HasActiveDuplicate(ctx, entity)
		if err != nil {
			return fmt.Errorf("uniqueness probe: %w", err)
		}
		if taken {
			return domain.Conflict(fmt.Sprintf("an active %s with the same key already exists", l.name), "")
		}

		entity.ClearDeleted(l.now())
		if err := l.repo.Save(ctx, entity); err != nil {
			if errors.Is(err, domain.ErrNotFound) {
				return &domain.Error{
					Kind:    domain.KindRestoreFailed,
					Message: fmt.Sprintf("%s could not be restored", l.name),
					Err:     err,
				}
			}
			return err
		}
		restored = true
		return nil
	})
	if err != nil {
		return l.fail("restore", id, err)
	}
	if restored {
		l.log.Info().Str("aggregate", l.name).Str("id", id).Msg("entity restored")
	}
	return nil
}

// fail passes typed failures through untouched and wraps anything else.
func (l *Lifecycle[T]) fail(op, id string, err error) error {
	if kind, ok := domain.KindOf(err); ok {
		l.log.Debug().Str("aggregate", l.name).Str("id", id).Str("kind", kind.String()).Msg(op + " rejected")
		return err
	}
	return fmt.Errorf("%s %s %s: %w", op, l.name, id, err)
}
