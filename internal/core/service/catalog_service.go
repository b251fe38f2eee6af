package service

import (
	"context"
	"fmt"

	"github.com/rs/zerolog"

	"github.com/northwind/backoffice/internal/core/domain"
	"github.com/northwind/backoffice/internal/core/ports"
)

// Catalog implements ports.CatalogService for any lifecycle-managed aggregate.
type Catalog[T domain.Aggregate] struct {
	*Lifecycle[T]
	repo ports.CatalogRepository[T]
	tx   ports.Transactor
	key  string
	log  zerolog.Logger
}

var _ ports.CatalogService[*domain.Position] = (*Catalog[*domain.Position])(nil)

// NewCatalog returns a Catalog for the aggregate called name whose business
// key is described by key (e.g. "code").
func NewCatalog[T domain.Aggregate](name, key string, repo ports.CatalogRepository[T], tx ports.Transactor, log zerolog.Logger, opts ...Option) *Catalog[T] {
	return &Catalog[T]{
		Lifecycle: NewLifecycle[T](name, repo, tx, log, opts...),
		repo:      repo,
		tx:        tx,
		key:       key,
		log:       log,
	}
}

// Create assigns the entity a new identity and persists it. An Active entity
// with the same business key yields a conflict, whether detected up front or
// at commit.
func (c *Catalog[T]) Create(ctx context.Context, entity T) (T, error) {
	var zero T
	entity.Stamp(newID(), c.now())
	err := c.tx.RunInTx(ctx, func(ctx context.Context) error {
		taken, err := c.repo.HasActiveDuplicate(ctx, entity)
		if err != nil {
			return fmt.Errorf("uniqueness probe: %w", err)
		}
		if taken {
			return domain.Conflict(fmt.Sprintf("a %s with this %s already exists", c.name, c.key), "")
		}
		return c.repo.Create(ctx, entity)
	})
	if err != nil {
		return zero, c.fail("create", entity.GetID(), err)
	}

	c.log.Info().Str("aggregate", c.name).Str("id", entity.GetID()).Msg("entity created")
	return entity, nil
}

// Get returns the entity whether Active or Deleted.
func (c *Catalog[T]) Get(ctx context.Context, id string) (T, error) {
	entity, err := c.repo.FindByID(ctx, id)
	if err != nil {
		var zero T
		return zero, c.fail("get", id, err)
	}
	return entity, nil
}

// List returns a page of entities. Limit defaults to 20 and is capped at 100.
func (c *Catalog[T]) List(ctx context.Context, filter ports.ListFilter) (*ports.Page[T], error) {
	filter = normalizeFilter(filter)
	items, total, err := c.repo.List(ctx, filter)
	if err != nil {
		return nil, fmt.Errorf("list %s: %w", c.name, err)
	}
	return newPage(items, total, filter), nil
}
