package ports

import (
	"context"

	"github.com/northwind/backoffice/internal/core/domain"
)

// LifecycleRepository is the storage contract the soft-delete/restore machine
// needs from any aggregate store.
type LifecycleRepository[T domain.Aggregate] interface {
	// FindByID loads the entity whether Active or Deleted; missing -> not_found.
	FindByID(ctx context.Context, id string) (T, error)
	// Save persists the full entity. A uniqueness violation returns a conflict.
	Save(ctx context.Context, entity T) error
	// HasActiveDuplicate reports whether another Active entity holds the
	// business key of entity.
	HasActiveDuplicate(ctx context.Context, entity T) (bool, error)
}

// CatalogRepository adds creation and paging to the lifecycle contract.
type CatalogRepository[T domain.Aggregate] interface {
	LifecycleRepository[T]

	Create(ctx context.Context, entity T) error
	List(ctx context.Context, filter ListFilter) ([]T, int64, error)
}

// ListFilter carries paging and filtering parameters for list queries.
type ListFilter struct {
	Search         string // optional: case-insensitive partial match on the business key or name
	IncludeDeleted bool
	Page           int // 1-based
	Limit          int // capped at 100 by the service
}

// Page is a single page of results.
type Page[T any] struct {
	Items      []T
	Total      int64
	Page       int
	Limit      int
	TotalPages int
}
